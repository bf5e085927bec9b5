// Bulk-ingest a directory of CV PDFs from the command line, bypassing the
// HTTP API. Useful for seeding a fresh environment.
package main

import (
	"context"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/DavideCamp/match-cv/internal/config"
	"github.com/DavideCamp/match-cv/internal/logger"
	"github.com/DavideCamp/match-cv/internal/models"
	"github.com/DavideCamp/match-cv/internal/repositories"
	"github.com/DavideCamp/match-cv/internal/services"
)

func main() {
	dir := "./cv_documents"
	if len(os.Args) > 1 {
		dir = os.Args[1]
	}

	cfg := config.Load()

	zapLogger, err := logger.New(false, true)
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer zapLogger.Sync()

	db, err := config.InitDatabase(cfg)
	if err != nil {
		zapLogger.Fatal("failed to initialize database", zap.Error(err))
	}

	docRepo := repositories.NewDocumentRepository(db)
	batchRepo := repositories.NewBatchRepository(db)

	geminiService, err := services.NewGeminiService(cfg.Gemini.APIKey)
	if err != nil {
		zapLogger.Fatal("failed to initialize Gemini", zap.Error(err))
	}

	qdrantService, err := services.NewQdrantService(
		cfg.Qdrant.URL,
		cfg.Qdrant.APIKey,
		cfg.Qdrant.Collection,
		zapLogger,
	)
	if err != nil {
		zapLogger.Fatal("failed to initialize Qdrant", zap.Error(err))
	}
	if err := qdrantService.InitCollection(); err != nil {
		zapLogger.Fatal("failed to initialize Qdrant collection", zap.Error(err))
	}

	ingestor := services.NewIngestor(
		batchRepo,
		docRepo,
		services.NewPDFParserService(),
		geminiService,
		qdrantService,
		zapLogger,
	)

	entries, err := os.ReadDir(dir)
	if err != nil {
		zapLogger.Fatal("failed to read directory", zap.String("dir", dir), zap.Error(err))
	}

	batch := &models.UploadBatch{
		ID:        uuid.New(),
		Status:    models.StatusPending,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}

	for _, entry := range entries {
		if entry.IsDir() || strings.ToLower(filepath.Ext(entry.Name())) != ".pdf" {
			continue
		}

		path := filepath.Join(dir, entry.Name())
		doc := &models.Document{
			ID:               uuid.New(),
			Filename:         entry.Name(),
			OriginalFileName: entry.Name(),
			FilePath:         path,
			Metadata:         "{}",
			CreatedAt:        time.Now(),
			UpdatedAt:        time.Now(),
		}
		if err := docRepo.Create(doc); err != nil {
			zapLogger.Fatal("failed to register document", zap.String("file", entry.Name()), zap.Error(err))
		}

		docID := doc.ID
		batch.Items = append(batch.Items, models.UploadItem{
			ID:         uuid.New(),
			BatchID:    batch.ID,
			DocumentID: &docID,
			Filename:   entry.Name(),
			Status:     models.StatusPending,
			CreatedAt:  time.Now(),
		})
	}

	if len(batch.Items) == 0 {
		zapLogger.Fatal("no PDF files found", zap.String("dir", dir))
	}

	batch.TotalFiles = len(batch.Items)
	if err := batchRepo.CreateWithItems(batch); err != nil {
		zapLogger.Fatal("failed to create batch", zap.Error(err))
	}

	ctx := context.Background()
	for _, item := range batch.Items {
		if err := ingestor.ProcessItem(ctx, item.ID); err != nil {
			zapLogger.Warn("item failed", zap.String("file", item.Filename), zap.Error(err))
		}
	}

	final, err := batchRepo.FindByID(batch.ID)
	if err != nil {
		zapLogger.Fatal("failed to load final batch state", zap.Error(err))
	}

	zapLogger.Info("ingestion finished",
		zap.String("batch_id", final.ID.String()),
		zap.String("status", string(final.Status)),
		zap.Int("total", final.TotalFiles),
		zap.Int("processed", final.ProcessedFiles),
		zap.Int("failed", final.FailedFiles),
	)
}
