package bootstrap

import (
	"context"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"docvault/internal/ai"
	"docvault/internal/app"
	"docvault/internal/cache"
	"docvault/internal/config"
	"docvault/internal/pkg/pdfrender"
	"docvault/internal/platform/database"
	rabbitmqClient "docvault/internal/platform/rabbitmq"
	redisClient "docvault/internal/platform/redis"
	"docvault/internal/rag"
	"docvault/internal/repository"
	"docvault/internal/storage"
	"docvault/internal/worker"
)

type Services struct {
	Auth          *app.AuthService
	Organizations *app.OrganizationService
	Filesystem    *app.FilesystemService
	Search        *app.SearchService
}

type App struct {
	Config      *config.Config
	Logger      *zap.Logger
	DB          *gorm.DB
	Redis       *redis.Client
	MQConn      *amqp.Connection
	EventWorker *worker.IngestionEventWorker
	Services    Services

	StartedAt time.Time
}

// Infra carries the connections Assemble builds on. Redis and MQConn are optional, and
// ModelClient and Renderer default to the configured provider and pdftoppm.
type Infra struct {
	DB          *gorm.DB
	Redis       *redis.Client
	MQConn      *amqp.Connection
	ModelClient rag.ModelClient
	Renderer    rag.PageRenderer
}

// New connects every configured dependency, assembles the services and starts the ingestion
// event worker.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	db, err := database.New(ctx, cfg.Database.Driver, cfg.DSN(), logger)
	if err != nil {
		return nil, err
	}
	infra := Infra{DB: db}

	if cfg.Redis.Enabled {
		infra.Redis, err = redisClient.New(ctx, cfg.Redis)
		if err != nil {
			closeDB(db)
			return nil, err
		}
	}

	if cfg.RabbitMQ.Enabled {
		infra.MQConn, err = rabbitmqClient.New(ctx, cfg.RabbitMQ.URL, cfg.RabbitMQ.IngestionEventQueue)
		if err != nil {
			if infra.Redis != nil {
				_ = infra.Redis.Close()
			}
			closeDB(db)
			return nil, err
		}
	}

	a, err := Assemble(cfg, logger, infra)
	if err != nil {
		_ = (&App{DB: infra.DB, Redis: infra.Redis, MQConn: infra.MQConn}).Close()
		return nil, err
	}

	if a.MQConn != nil {
		a.EventWorker = worker.NewIngestionEventWorker(
			a.MQConn,
			repository.NewIngestionEventRepository(a.DB),
			cfg.RabbitMQ.IngestionEventQueue,
			logger,
		)
		if err := a.EventWorker.Start(ctx); err != nil {
			_ = a.Close()
			return nil, fmt.Errorf("start ingestion event worker failed: %w", err)
		}
	}

	logger.Info("application assembled",
		zap.String("database", cfg.Database.Driver),
		zap.Bool("redis", a.Redis != nil),
		zap.Bool("rabbitmq", a.MQConn != nil),
	)
	return a, nil
}

// Assemble migrates the schema and builds the services on top of already opened connections.
func Assemble(cfg *config.Config, logger *zap.Logger, infra Infra) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := repository.Migrate(infra.DB); err != nil {
		return nil, err
	}

	blobs, err := storage.NewLocal(cfg.Storage.Root)
	if err != nil {
		return nil, err
	}

	modelClient := infra.ModelClient
	if modelClient == nil {
		modelClient = rag.NewClient(ai.NewOpenAICompatibleClient(), clientConfig(cfg))
	}
	renderer := infra.Renderer
	if renderer == nil {
		renderer = pdfrender.NewPoppler(cfg.RAG.PDFToPPMPath, cfg.RAG.PDFRenderDPI)
	}

	var queryCache rag.QueryEmbeddingCache
	if infra.Redis != nil {
		queryCache = cache.NewEmbeddingCache(infra.Redis, cfg.LLM.EmbeddingModel, cfg.LLM.EmbeddingMaxTokens, cfg.EmbeddingCacheTTL())
	}

	userRepo := repository.NewUserRepository(infra.DB)
	orgRepo := repository.NewOrganizationRepository(infra.DB)
	ragRepo := repository.NewRAGRepository(infra.DB)

	ragLogger := logger.Named("rag")
	pipeline := rag.NewPipeline(
		rag.NewExtractor(blobs, renderer, cfg.RAG.MaxImageSide),
		modelClient,
		ragRepo,
		cfg.RAG.PageConcurrency,
		ragLogger,
	)
	engine := rag.NewEngine(ragRepo, modelClient, queryCache, cfg.RAG.TopK, ragLogger)

	deps := app.FilesystemDeps{
		DirRepo:   repository.NewDirectoryRepository(infra.DB),
		FileRepo:  repository.NewFileRepository(infra.DB),
		OrgRepo:   orgRepo,
		RAGRepo:   ragRepo,
		Blobs:     blobs,
		Ingester:  pipeline,
		MaxUpload: cfg.MaxUploadBytes(),
		Logger:    logger.Named("filesystem"),
	}
	if infra.MQConn != nil {
		deps.Events = rabbitmqClient.NewEventPublisher(infra.MQConn, cfg.RabbitMQ.IngestionEventQueue)
	}

	orgs := app.NewOrganizationService(orgRepo, userRepo, logger.Named("organizations"))
	deps.Orgs = orgs

	return &App{
		Config: cfg,
		Logger: logger,
		DB:     infra.DB,
		Redis:  infra.Redis,
		MQConn: infra.MQConn,
		Services: Services{
			Auth:          app.NewAuthService(userRepo, cfg.Auth.JWTSecret, time.Duration(cfg.Auth.JWTExpireMinute)*time.Minute),
			Organizations: orgs,
			Filesystem:    app.NewFilesystemService(deps),
			Search:        app.NewSearchService(orgs, engine),
		},
		StartedAt: time.Now(),
	}, nil
}

func clientConfig(cfg *config.Config) rag.ClientConfig {
	return rag.ClientConfig{
		Chat: ai.ChatConfig{
			BaseURL:   cfg.LLM.BaseURL,
			APIKey:    cfg.LLM.APIKey,
			Model:     cfg.LLM.ChatModel,
			MaxTokens: cfg.LLM.SummaryMaxTokens,
		},
		Vision: ai.ChatConfig{
			BaseURL:   cfg.LLM.BaseURL,
			APIKey:    cfg.LLM.APIKey,
			Model:     cfg.LLM.VisionModel,
			MaxTokens: cfg.LLM.SummaryMaxTokens,
		},
		Embedding: ai.EmbeddingConfig{
			BaseURL: cfg.LLM.BaseURL,
			APIKey:  cfg.LLM.APIKey,
			Model:   cfg.LLM.EmbeddingModel,
		},
		Prompt:            cfg.RAG.SummaryPrompt,
		MaxTokensPerChunk: cfg.LLM.EmbeddingMaxTokens,
		Dimension:         cfg.LLM.EmbeddingDimension,
		BatchSize:         cfg.LLM.EmbeddingBatchSize,
		Timeout:           cfg.RequestTimeout(),
	}
}

func (a *App) Close() error {
	var closeErr error
	if a.EventWorker != nil {
		a.EventWorker.Close()
	}
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			closeErr = err
		}
	}
	if a.MQConn != nil && !a.MQConn.IsClosed() {
		if err := a.MQConn.Close(); err != nil {
			closeErr = err
		}
	}
	if a.DB != nil {
		sqlDB, err := a.DB.DB()
		if err == nil {
			if err := sqlDB.Close(); err != nil {
				closeErr = err
			}
		}
	}
	return closeErr
}

func closeDB(db *gorm.DB) {
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
