package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"

	database "github.com/naver-ai-trip/agent-trip/app/db"
	"github.com/naver-ai-trip/agent-trip/config"
	generativeAI "github.com/naver-ai-trip/agent-trip/internal/api/generative_ai"
	"github.com/naver-ai-trip/agent-trip/internal/api/knowledge"
	"github.com/naver-ai-trip/agent-trip/internal/api/translation"
	"github.com/naver-ai-trip/agent-trip/internal/types"
)

// Loads every .txt and .md file of a directory into the knowledge base.
func main() {
	dir := flag.String("dir", "", "directory with .txt/.md documents")
	category := flag.String("category", "", "category stored with every document")
	language := flag.String("language", "", "language of the documents (defaults to the corpus language)")
	author := flag.String("author", "", "author stored with every document")
	flag.Parse()

	if *dir == "" {
		log.Fatal("-dir is required")
	}

	ctx := context.Background()

	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: Could not load .env file: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	cfg, err := config.InitConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	dbConfig, err := database.NewDatabaseConfig(&cfg, logger)
	if err != nil {
		logger.Error("Failed to generate database config", slog.Any("error", err))
		os.Exit(1)
	}
	if err := database.RunMigrations(dbConfig.ConnectionURL, logger); err != nil {
		logger.Error("Failed to run migrations", slog.Any("error", err))
		os.Exit(1)
	}
	pool, err := database.Init(ctx, dbConfig.ConnectionURL, logger)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer pool.Close()
	logger.Info("Connected to database successfully")

	llm, err := generativeAI.NewLLMClient(ctx, cfg.LLM)
	if err != nil {
		log.Fatalf("Failed to create llm client: %v", err)
	}

	repo := knowledge.NewPostgresRepository(pool, logger)
	service := knowledge.NewService(
		knowledge.NewLLMBackend(llm, repo, cfg.Knowledge.RerankTopK, logger),
		repo,
		translation.NewLLMTranslator(llm, logger),
		cfg.Language.Corpus,
		cfg.Knowledge.TopK,
		cfg.Knowledge.ChunkSize,
		logger,
	)

	lang := *language
	if lang == "" {
		lang = cfg.Language.Corpus
	}

	if err := ingestDir(ctx, service, *dir, types.IngestDocumentRequest{
		Author:   *author,
		Category: *category,
		Language: lang,
	}, logger); err != nil {
		logger.Error("Ingestion finished with errors", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("Ingestion completed!")
}

func ingestDir(ctx context.Context, service knowledge.Service, dir string, base types.IngestDocumentRequest, logger *slog.Logger) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", dir, err)
	}

	totalProcessed := 0
	totalErrors := 0
	for _, e := range entries {
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if e.IsDir() || (ext != ".txt" && ext != ".md") {
			continue
		}
		path := filepath.Join(dir, e.Name())
		text, err := os.ReadFile(path)
		if err != nil {
			logger.Error("Failed to read document", slog.String("path", path), slog.Any("error", err))
			totalErrors++
			continue
		}

		req := base
		req.Title = strings.TrimSuffix(e.Name(), filepath.Ext(e.Name()))
		req.Location = path
		req.Text = string(text)

		doc, err := service.Ingest(ctx, req)
		if err != nil {
			logger.Error("Failed to ingest document", slog.String("path", path), slog.Any("error", err))
			totalErrors++
			continue
		}
		totalProcessed++
		logger.Info("Document ingested",
			slog.String("title", doc.Title),
			slog.String("document_id", doc.ID.String()))
	}

	logger.Info("Batch ingestion completed",
		slog.Int("total_processed", totalProcessed),
		slog.Int("total_errors", totalErrors))
	if totalErrors > 0 {
		return fmt.Errorf("ingestion completed with %d errors out of %d documents", totalErrors, totalProcessed+totalErrors)
	}
	return nil
}
