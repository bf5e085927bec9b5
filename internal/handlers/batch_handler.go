package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/DavideCamp/match-cv/internal/models"
	"github.com/DavideCamp/match-cv/internal/repositories"
)

type BatchHandler struct {
	batchRepo repositories.BatchRepository
}

func NewBatchHandler(batchRepo repositories.BatchRepository) *BatchHandler {
	return &BatchHandler{
		batchRepo: batchRepo,
	}
}

// HandleGetBatchStatus handles GET /batches/:id. Read-only snapshot, safe to
// poll.
func (h *BatchHandler) HandleGetBatchStatus(c *fiber.Ctx) error {
	batchID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid batch ID format",
		})
	}

	batch, err := h.batchRepo.FindByID(batchID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "batch not found",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to load batch",
		})
	}

	response := models.BatchStatusResponse{
		BatchID:        batch.ID.String(),
		Status:         string(batch.Status),
		TotalFiles:     batch.TotalFiles,
		ProcessedFiles: batch.ProcessedFiles,
		FailedFiles:    batch.FailedFiles,
		StartedAt:      batch.StartedAt,
		CompletedAt:    batch.CompletedAt,
		Items:          make([]models.BatchItemStatus, 0, len(batch.Items)),
	}

	for _, item := range batch.Items {
		status := models.BatchItemStatus{
			ItemID:       item.ID.String(),
			Filename:     item.Filename,
			Status:       string(item.Status),
			ErrorMessage: item.ErrorMessage,
			StartedAt:    item.StartedAt,
			CompletedAt:  item.CompletedAt,
		}
		if item.DocumentID != nil {
			docID := item.DocumentID.String()
			status.DocumentID = &docID
		}
		response.Items = append(response.Items, status)
	}

	return c.JSON(response)
}
