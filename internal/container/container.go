package container

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	database "github.com/naver-ai-trip/agent-trip/app/db"
	"github.com/naver-ai-trip/agent-trip/config"
	"github.com/naver-ai-trip/agent-trip/internal/api/backend"
	llmChat "github.com/naver-ai-trip/agent-trip/internal/api/chat_prompt"
	"github.com/naver-ai-trip/agent-trip/internal/api/extraction"
	generativeAI "github.com/naver-ai-trip/agent-trip/internal/api/generative_ai"
	"github.com/naver-ai-trip/agent-trip/internal/api/hotels"
	"github.com/naver-ai-trip/agent-trip/internal/api/itinerary"
	"github.com/naver-ai-trip/agent-trip/internal/api/knowledge"
	"github.com/naver-ai-trip/agent-trip/internal/api/poi"
	"github.com/naver-ai-trip/agent-trip/internal/api/session"
	"github.com/naver-ai-trip/agent-trip/internal/api/translation"
)

// Container holds all application dependencies
type Container struct {
	Config           *config.Config
	Logger           *slog.Logger
	Pool             *pgxpool.Pool
	Redis            *redis.Client
	ChatHandler      *llmChat.HandlerImpl
	KnowledgeHandler *knowledge.HandlerImpl
}

// NewContainer migrates the database, opens the pool and Redis client and
// wires every service.
func NewContainer(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Container, error) {
	dbConfig, err := database.NewDatabaseConfig(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to generate database config: %w", err)
	}
	if err := database.RunMigrations(dbConfig.ConnectionURL, logger); err != nil {
		return nil, fmt.Errorf("failed to run database migrations: %w", err)
	}
	pool, err := database.Init(ctx, dbConfig.ConnectionURL, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database pool: %w", err)
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Repositories.Redis.Addr,
		Password: cfg.Repositories.Redis.Password,
		DB:       cfg.Repositories.Redis.DB,
	})

	llm, err := generativeAI.NewLLMClient(ctx, cfg.LLM)
	if err != nil {
		pool.Close()
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to create llm client: %w", err)
	}

	corpus := cfg.Language.Corpus
	translator := translation.NewLLMTranslator(llm, logger)
	backendClient := backend.NewHTTPClient(cfg.Backend.BaseURL, cfg.Backend.Timeout, logger)

	places, err := newPlaceProvider(cfg, llm, backendClient, logger)
	if err != nil {
		pool.Close()
		_ = rdb.Close()
		return nil, err
	}

	seed := uint64(cfg.Planner.Seed)
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	aggregator := poi.NewAggregator(translator, corpus, cfg.Places.MaxRadius, rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)), logger)
	scheduler := itinerary.NewScheduler(rand.New(rand.NewPCG(seed+1, seed)), logger)

	knowledgeRepo := knowledge.NewPostgresRepository(pool, logger)
	knowledgeBackend := knowledge.NewLLMBackend(llm, knowledgeRepo, cfg.Knowledge.RerankTopK, logger)
	knowledgeService := knowledge.NewService(knowledgeBackend, knowledgeRepo, translator, corpus,
		cfg.Knowledge.TopK, cfg.Knowledge.ChunkSize, logger)

	sessions := session.NewCachedStore(session.NewBackendStore(backendClient), rdb, cfg.Repositories.Redis.TTL, logger)
	turns := llmChat.NewRepositoryImpl(pool, logger)

	chatService := llmChat.NewServiceImpl(llmChat.Deps{
		Sessions:        sessions,
		LLM:             llm,
		Translator:      translator,
		PlaceLocalizer:  translation.NewPlaceTranslator(llm, corpus, logger),
		Places:          places,
		Aggregator:      aggregator,
		Scheduler:       scheduler,
		Knowledge:       knowledgeService,
		Hotels:          hotels.NewService(backendClient, translator, corpus, logger),
		Turns:           turns,
		Days:            extraction.DayCounter{DefaultDays: cfg.Planner.DefaultDays, MaxDays: cfg.Planner.MaxDays},
		CorpusLanguage:  corpus,
		MessageLanguage: cfg.Language.Base,
	}, logger)

	return &Container{
		Config:           cfg,
		Logger:           logger,
		Pool:             pool,
		Redis:            rdb,
		ChatHandler:      llmChat.NewHandlerImpl(chatService, turns, logger),
		KnowledgeHandler: knowledge.NewHandler(knowledgeService, logger),
	}, nil
}

// newPlaceProvider selects the search backend. The regional catalog is shared
// by both.
func newPlaceProvider(cfg *config.Config, llm generativeAI.LLMClient, client backend.Client, logger *slog.Logger) (poi.SourceProvider, error) {
	var catalog poi.RegionCatalog
	if cfg.Places.CatalogBaseURL != "" {
		catalog = poi.NewCatalogScraper(cfg.Places.CatalogBaseURL, llm, logger)
	}

	switch strings.ToLower(cfg.Places.Provider) {
	case "", "backend":
		return poi.NewBackendProvider(client, cfg.Places.MaxRadius, catalog), nil
	case "googlemaps":
		searcher, err := poi.NewGoogleMapsSearcher(cfg.Places.GoogleMapsKey, cfg.Language.Corpus, cfg.Places.Region, cfg.Places.MaxRadius)
		if err != nil {
			return nil, fmt.Errorf("failed to create google maps searcher: %w", err)
		}
		return poi.NewStaticProvider(searcher, catalog), nil
	default:
		return nil, fmt.Errorf("unknown places provider %q", cfg.Places.Provider)
	}
}

// Close releases all resources held by the container
func (c *Container) Close() {
	if c.Redis != nil {
		if err := c.Redis.Close(); err != nil {
			c.Logger.Warn("Failed to close redis client", slog.Any("error", err))
		}
	}
	if c.Pool != nil {
		c.Pool.Close()
	}
}

// WaitForDB waits for the database to be ready
func (c *Container) WaitForDB(ctx context.Context) bool {
	return database.WaitForDB(ctx, c.Pool, c.Logger)
}

// Health pings the database and Redis.
func (c *Container) Health(ctx context.Context) map[string]string {
	status := map[string]string{"database": "ok", "redis": "ok"}
	if err := c.Pool.Ping(ctx); err != nil {
		status["database"] = err.Error()
	}
	if err := c.Redis.Ping(ctx).Err(); err != nil {
		status["redis"] = err.Error()
	}
	return status
}
