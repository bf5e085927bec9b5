package handlers

import (
	"errors"
	"fmt"
	"mime/multipart"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/DavideCamp/match-cv/internal/models"
	"github.com/DavideCamp/match-cv/internal/repositories"
	"github.com/DavideCamp/match-cv/internal/services"
)

type UploadHandler struct {
	docRepo        repositories.DocumentRepository
	batchRepo      repositories.BatchRepository
	storageService services.StorageService
	vectorStore    services.QdrantService
	dispatcher     services.Dispatcher
	maxFileSize    int64
	logger         *zap.Logger
}

func NewUploadHandler(
	docRepo repositories.DocumentRepository,
	batchRepo repositories.BatchRepository,
	storageService services.StorageService,
	vectorStore services.QdrantService,
	dispatcher services.Dispatcher,
	maxFileSize int64,
	logger *zap.Logger,
) *UploadHandler {
	return &UploadHandler{
		docRepo:        docRepo,
		batchRepo:      batchRepo,
		storageService: storageService,
		vectorStore:    vectorStore,
		dispatcher:     dispatcher,
		maxFileSize:    maxFileSize,
		logger:         logger,
	}
}

// HandleUpload handles POST /documents: a single CV upload, stored and
// registered synchronously. Ingestion of single uploads goes through the
// bulk endpoint with one file when async processing is wanted.
func (h *UploadHandler) HandleUpload(c *fiber.Ctx) error {
	file, err := c.FormFile("file")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "file is required (multipart field 'file')",
		})
	}

	if err := h.validateFile(file); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	doc, err := h.storeDocument(file)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": fmt.Sprintf("failed to store CV: %v", err),
		})
	}

	return c.Status(fiber.StatusCreated).JSON(models.UploadResponse{
		ID:           doc.ID.String(),
		Filename:     doc.Filename,
		OriginalName: doc.OriginalFileName,
	})
}

// HandleBulkUpload handles POST /documents/bulk. The batch and all its items
// are created before any processing starts; the response is a 202 and the
// actual work happens on the dispatcher pool.
func (h *UploadHandler) HandleBulkUpload(c *fiber.Ctx) error {
	form, err := c.MultipartForm()
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "failed to parse multipart form",
		})
	}

	files := form.File["files"]
	if len(files) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "files is required (multipart files[])",
		})
	}

	// Reject the whole upload before storing anything if any file is invalid.
	for _, file := range files {
		if err := h.validateFile(file); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error":    err.Error(),
				"filename": file.Filename,
			})
		}
	}

	batch := &models.UploadBatch{
		ID:         uuid.New(),
		Status:     models.StatusPending,
		TotalFiles: len(files),
		CreatedAt:  time.Now(),
		UpdatedAt:  time.Now(),
	}

	var stored []*models.Document
	for _, file := range files {
		doc, err := h.storeDocument(file)
		if err != nil {
			h.rollbackStored(stored)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error":    fmt.Sprintf("failed to store CV: %v", err),
				"filename": file.Filename,
			})
		}
		stored = append(stored, doc)

		docID := doc.ID
		batch.Items = append(batch.Items, models.UploadItem{
			ID:         uuid.New(),
			BatchID:    batch.ID,
			DocumentID: &docID,
			Filename:   file.Filename,
			Status:     models.StatusPending,
			CreatedAt:  time.Now(),
		})
	}

	if err := h.batchRepo.CreateWithItems(batch); err != nil {
		h.logger.Error("failed to create upload batch", zap.Error(err))
		h.rollbackStored(stored)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to create upload batch",
		})
	}

	itemIDs := make([]uuid.UUID, len(batch.Items))
	response := models.BulkUploadResponse{
		BatchID:    batch.ID.String(),
		Status:     string(batch.Status),
		TotalFiles: batch.TotalFiles,
	}
	for i, item := range batch.Items {
		itemIDs[i] = item.ID
		response.Items = append(response.Items, models.BulkUploadItem{
			ItemID:     item.ID.String(),
			DocumentID: item.DocumentID.String(),
			Filename:   item.Filename,
			Status:     string(item.Status),
		})
	}

	h.dispatcher.Dispatch(batch.ID, itemIDs)

	return c.Status(fiber.StatusAccepted).JSON(response)
}

// HandleDeleteDocument handles DELETE /documents/:id. Removes the stored
// file, the vector store chunks and the database row. The row goes last so a
// partial failure leaves the document visible and the delete retryable.
func (h *UploadHandler) HandleDeleteDocument(c *fiber.Ctx) error {
	docID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid document ID format",
		})
	}

	doc, err := h.docRepo.FindByID(docID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "document not found",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to load document",
		})
	}

	if err := h.vectorStore.DeleteDocument(c.Context(), docID); err != nil {
		h.logger.Error("failed to delete document vectors", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to delete document vectors",
		})
	}

	if err := h.storageService.DeleteFile(doc.Filename); err != nil {
		// The file may already be gone; the row and vectors matter more.
		h.logger.Warn("failed to delete stored file",
			zap.String("filename", doc.Filename),
			zap.Error(err),
		)
	}

	if err := h.docRepo.Delete(docID); err != nil {
		h.logger.Error("failed to delete document row", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to delete document",
		})
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *UploadHandler) validateFile(file *multipart.FileHeader) error {
	if file.Size > h.maxFileSize {
		return fmt.Errorf("file too large. Max size: %d bytes", h.maxFileSize)
	}
	if ext := strings.ToLower(filepath.Ext(file.Filename)); ext != ".pdf" {
		return fmt.Errorf("invalid file extension: %s (only .pdf is accepted)", ext)
	}
	return nil
}

// rollbackStored removes documents stored earlier in a bulk request that
// failed before its batch existed. Without this they would sit on disk and in
// the table with nothing referencing them.
func (h *UploadHandler) rollbackStored(stored []*models.Document) {
	for _, doc := range stored {
		if err := h.storageService.DeleteFile(doc.Filename); err != nil {
			h.logger.Warn("failed to remove stored file during rollback",
				zap.String("filename", doc.Filename),
				zap.Error(err),
			)
		}
		if err := h.docRepo.Delete(doc.ID); err != nil {
			h.logger.Warn("failed to remove document during rollback",
				zap.String("document_id", doc.ID.String()),
				zap.Error(err),
			)
		}
	}
}

func (h *UploadHandler) storeDocument(file *multipart.FileHeader) (*models.Document, error) {
	filename, filePath, err := h.storageService.SaveFile(file)
	if err != nil {
		return nil, err
	}

	doc := &models.Document{
		ID:               uuid.New(),
		Filename:         filename,
		OriginalFileName: file.Filename,
		FilePath:         filePath,
		Metadata:         "{}",
		CreatedAt:        time.Now(),
		UpdatedAt:        time.Now(),
	}

	if err := h.docRepo.Create(doc); err != nil {
		// Cleanup uploaded file if database insert fails
		if delErr := h.storageService.DeleteFile(filename); delErr != nil {
			h.logger.Warn("failed to clean up stored file", zap.Error(delErr))
		}
		return nil, err
	}

	return doc, nil
}
