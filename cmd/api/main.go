package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"

	"github.com/DavideCamp/match-cv/internal/config"
	"github.com/DavideCamp/match-cv/internal/handlers"
	"github.com/DavideCamp/match-cv/internal/logger"
	"github.com/DavideCamp/match-cv/internal/repositories"
	"github.com/DavideCamp/match-cv/internal/services"
)

func main() {
	// Load configuration
	cfg := config.Load()

	zapLogger, err := logger.New(cfg.Server.Env != "development", cfg.Server.Env == "development")
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer zapLogger.Sync()

	// Initialize database
	db, err := config.InitDatabase(cfg)
	if err != nil {
		zapLogger.Fatal("failed to initialize database", zap.Error(err))
	}
	zapLogger.Info("database connected and migrated")

	// Initialize repositories
	docRepo := repositories.NewDocumentRepository(db)
	batchRepo := repositories.NewBatchRepository(db)

	// Initialize services
	storageService := services.NewStorageService(cfg.Storage.UploadPath)
	if err := storageService.EnsureUploadDir(); err != nil {
		zapLogger.Fatal("failed to create upload directory", zap.Error(err))
	}

	pdfParser := services.NewPDFParserService()

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
	zapLogger.Info("qdrant ready", zap.String("collection", cfg.Qdrant.Collection))

	// Ingestion side
	ingestorService := services.NewIngestor(
		batchRepo,
		docRepo,
		pdfParser,
		geminiService,
		qdrantService,
		zapLogger,
	)

	dispatcher, err := services.NewDispatcher(ingestorService, batchRepo, cfg.Worker.Concurrency, zapLogger)
	if err != nil {
		zapLogger.Fatal("failed to initialize dispatcher", zap.Error(err))
	}
	zapLogger.Info("dispatcher started", zap.Int("concurrency", cfg.Worker.Concurrency))

	// Search side
	extractor := services.NewCategoryExtractor(geminiService, zapLogger)
	sources := []services.RetrievalSource{
		services.NewSemanticSource(geminiService, qdrantService),
		services.NewFulltextSource(docRepo),
	}
	searchPipeline := services.NewSearchPipeline(
		extractor,
		sources,
		docRepo,
		cfg.Search.RetrievalTimeout,
		cfg.Search.RetrievalTopN,
		cfg.Search.DefaultTopK,
		zapLogger,
	)

	// Initialize handlers
	uploadHandler := handlers.NewUploadHandler(
		docRepo,
		batchRepo,
		storageService,
		qdrantService,
		dispatcher,
		cfg.Storage.MaxFileSize,
		zapLogger,
	)
	batchHandler := handlers.NewBatchHandler(batchRepo)
	searchHandler := handlers.NewSearchHandler(searchPipeline, zapLogger)

	// Create Fiber app
	app := fiber.New(fiber.Config{
		AppName:      "Match CV API",
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		BodyLimit:    int(cfg.Storage.MaxFileSize) * 20,
		ErrorHandler: customErrorHandler,
	})

	// Middleware
	app.Use(recover.New())
	app.Use(fiberlogger.New(fiberlogger.Config{
		Format:     "[${time}] ${status} - ${latency} ${method} ${path}\n",
		TimeFormat: "2006-01-02 15:04:05",
	}))

	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
	}))

	// Routes
	api := app.Group("/api/v1")

	api.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "healthy",
			"time":   time.Now(),
		})
	})

	api.Post("/documents", uploadHandler.HandleUpload)
	api.Post("/documents/bulk", uploadHandler.HandleBulkUpload)
	api.Delete("/documents/:id", uploadHandler.HandleDeleteDocument)
	api.Get("/batches/:id", batchHandler.HandleGetBatchStatus)
	api.Post("/search", searchHandler.HandleSearch)

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		zapLogger.Info("shutting down server")
		dispatcher.Release()
		if err := app.Shutdown(); err != nil {
			zapLogger.Error("server forced to shutdown", zap.Error(err))
		}
	}()

	// Start server
	addr := fmt.Sprintf(":%s", cfg.Server.Port)
	zapLogger.Info("server starting", zap.String("addr", addr))

	if err := app.Listen(addr); err != nil {
		zapLogger.Fatal("failed to start server", zap.Error(err))
	}
}

func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
	}

	return c.Status(code).JSON(fiber.Map{
		"error": err.Error(),
		"code":  code,
	})
}
