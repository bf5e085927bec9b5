package services

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/DavideCamp/match-cv/internal/models"
	"github.com/DavideCamp/match-cv/internal/repositories"
)

// Ingestor processes one upload item end to end: parse the PDF, extract
// candidate metadata, embed the text chunks, persist everything. Each item
// is an independent unit of work; a failure is recorded on the item and
// never touches its siblings.
type Ingestor interface {
	ProcessItem(ctx context.Context, itemID uuid.UUID) error
}

type ingestor struct {
	batchRepo     repositories.BatchRepository
	docRepo       repositories.DocumentRepository
	pdfParser     PDFParserService
	gemini        GeminiService
	qdrant        QdrantService
	chunker       TextChunker
	promptBuilder *PromptBuilder
	logger        *zap.Logger
}

func NewIngestor(
	batchRepo repositories.BatchRepository,
	docRepo repositories.DocumentRepository,
	pdfParser PDFParserService,
	gemini GeminiService,
	qdrant QdrantService,
	logger *zap.Logger,
) Ingestor {
	return &ingestor{
		batchRepo:     batchRepo,
		docRepo:       docRepo,
		pdfParser:     pdfParser,
		gemini:        gemini,
		qdrant:        qdrant,
		chunker:       NewTextChunker(),
		promptBuilder: NewPromptBuilder(),
		logger:        logger,
	}
}

const (
	chunkMaxSize = 1000
	chunkOverlap = 100
)

type candidateMetadata struct {
	CandidateName string `json:"candidate_name"`
	Email         string `json:"email"`
}

// ProcessItem implements Ingestor. The batch status is recomputed from item
// states after every transition, so it never has to be patched by hand.
func (in *ingestor) ProcessItem(ctx context.Context, itemID uuid.UUID) error {
	item, err := in.batchRepo.FindItemByID(itemID)
	if err != nil {
		return fmt.Errorf("failed to load upload item: %w", err)
	}

	if err := in.batchRepo.MarkItemRunning(itemID); err != nil {
		return fmt.Errorf("failed to mark item running: %w", err)
	}
	in.recompute(item.BatchID)

	if err := in.ingest(ctx, item); err != nil {
		in.logger.Warn("upload item failed",
			zap.String("item_id", itemID.String()),
			zap.String("filename", item.Filename),
			zap.Error(err),
		)
		if markErr := in.batchRepo.MarkItemTerminal(itemID, models.StatusFailed, err.Error()); markErr != nil {
			in.logger.Error("failed to record item failure", zap.Error(markErr))
		}
		in.recompute(item.BatchID)
		return err
	}

	if err := in.batchRepo.MarkItemTerminal(itemID, models.StatusSuccess, ""); err != nil {
		in.logger.Error("failed to record item success", zap.Error(err))
	}
	in.recompute(item.BatchID)

	in.logger.Info("upload item processed",
		zap.String("item_id", itemID.String()),
		zap.String("filename", item.Filename),
	)
	return nil
}

func (in *ingestor) ingest(ctx context.Context, item *models.UploadItem) error {
	if item.DocumentID == nil {
		return fmt.Errorf("upload item has no document")
	}

	doc, err := in.docRepo.FindByID(*item.DocumentID)
	if err != nil {
		return fmt.Errorf("document lookup failed: %w", err)
	}

	text, err := in.pdfParser.ExtractText(doc.FilePath)
	if err != nil {
		return fmt.Errorf("text extraction failed: %w", err)
	}

	metadataJSON, meta, err := in.extractMetadata(ctx, text)
	if err != nil {
		return fmt.Errorf("metadata extraction failed: %w", err)
	}

	chunks := in.chunker.ChunkText(text, chunkMaxSize, chunkOverlap)
	for i, chunk := range chunks {
		embedding, err := in.gemini.GenerateEmbedding(ctx, chunk)
		if err != nil {
			return fmt.Errorf("embedding of chunk %d failed: %w", i, err)
		}

		if err := in.qdrant.UpsertChunk(ctx, doc.ID, i, chunk, embedding); err != nil {
			return fmt.Errorf("vector store write of chunk %d failed: %w", i, err)
		}
	}

	if err := in.docRepo.UpdateIngestion(doc.ID, text, metadataJSON, meta.CandidateName, meta.Email); err != nil {
		return fmt.Errorf("document update failed: %w", err)
	}

	return nil
}

// extractMetadata runs the model extraction and returns both the raw JSON
// (persisted as-is, it feeds the fulltext index) and the fields the service
// reads directly.
func (in *ingestor) extractMetadata(ctx context.Context, cvText string) (string, candidateMetadata, error) {
	var meta candidateMetadata

	prompt := in.promptBuilder.BuildMetadataExtractionPrompt(cvText)
	response, err := in.gemini.GenerateJSON(ctx, prompt)
	if err != nil {
		return "", meta, err
	}

	metadataJSON := extractJSON(response)
	if err := json.Unmarshal([]byte(metadataJSON), &meta); err != nil {
		return "", meta, fmt.Errorf("unparseable metadata response: %w", err)
	}

	return metadataJSON, meta, nil
}

func (in *ingestor) recompute(batchID uuid.UUID) {
	batch, err := in.batchRepo.RecomputeBatchStatus(batchID)
	if err != nil {
		in.logger.Error("failed to recompute batch status",
			zap.String("batch_id", batchID.String()),
			zap.Error(err),
		)
		return
	}

	in.logger.Debug("batch status recomputed",
		zap.String("batch_id", batchID.String()),
		zap.String("status", string(batch.Status)),
		zap.Int("processed", batch.ProcessedFiles),
		zap.Int("failed", batch.FailedFiles),
	)
}
