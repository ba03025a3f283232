package main

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/akolanti/filebook/internal/config"
	"github.com/akolanti/filebook/internal/data/store"
	"github.com/akolanti/filebook/internal/domain/filebookModel"
	"github.com/akolanti/filebook/internal/quota"
	"github.com/akolanti/filebook/internal/rag"
	"github.com/akolanti/filebook/internal/rag/embedding/googleEmbedding"
	"github.com/akolanti/filebook/internal/rag/ingest"
	"github.com/akolanti/filebook/internal/rag/llm"
	"github.com/akolanti/filebook/internal/rag/llm/gemini"
	"github.com/akolanti/filebook/internal/rag/llm/openaiLLM"
	"github.com/akolanti/filebook/internal/rag/vectorDB"
	"github.com/akolanti/filebook/internal/rag/vectorDB/memoryDB"
	"github.com/akolanti/filebook/internal/rag/vectorDB/qdrantDB"
	"github.com/akolanti/filebook/internal/worker"
	"github.com/akolanti/filebook/pkg/logger_i"
)

// app is every long lived dependency, built once per command.
type app struct {
	settings *config.Settings
	store    filebookModel.Store
	index    vectorDB.DataProcessor
	pool     *worker.Pool
	governor *quota.Governor
	service  rag.Service
	library  *rag.Library
	ingestor *ingest.Ingestor
}

func buildApp(ctx context.Context, settings *config.Settings, stopWorkers chan bool, workers *sync.WaitGroup) (*app, error) {
	logger := logger_i.NewLogger("main")

	filebookStore, err := openStore(ctx, settings, logger)
	if err != nil {
		return nil, err
	}

	index, err := openIndex(ctx, settings)
	if err != nil {
		return nil, err
	}
	if err := index.EnsureCollection(ctx); err != nil {
		return nil, fmt.Errorf("ensure vector collection: %w", err)
	}

	embedder := googleEmbedding.GetGoogleEmbeddingClient(ctx, config.GoogleEmbeddingModel, settings.GoogleAPIKey)
	if embedder == nil {
		return nil, errors.New("embedding client is unavailable, check GEMINI_API_KEY")
	}

	models := llm.NewRegistry()
	models.Register(gemini.GetGeminiClient(ctx, settings.GoogleAPIKey), llm.ModelGeminiFlash, llm.ModelGeminiFlashLite)
	models.Register(openaiLLM.GetOpenAIClient(settings.OpenAIAPIKey), llm.ModelGPT4oMini)
	if len(models.Models()) == 0 {
		return nil, errors.New("no chat model is available")
	}
	defaultModel, err := llm.ParseModel(settings.DefaultModel, llm.ModelGeminiFlash)
	if err != nil {
		return nil, fmt.Errorf("default model: %w", err)
	}
	logger.Debug("Available services", "store", settings.StoreBackend, "index", settings.VectorIndex, "models", models.Models())

	pool := worker.NewPool(worker.DefaultPoolConfig(stopWorkers, workers))
	pool.Start()

	governor := quota.NewGovernor(filebookStore, settings.Quota)
	opts := rag.DefaultOptions()
	opts.DefaultModel = defaultModel

	return &app{
		settings: settings,
		store:    filebookStore,
		index:    index,
		pool:     pool,
		governor: governor,
		service:  rag.NewService(filebookStore, governor, embedder, index, models, opts),
		library:  rag.NewLibrary(filebookStore, index, governor),
		ingestor: ingest.NewIngestor(filebookStore, governor, embedder, index, pool, settings.Ingest),
	}, nil
}

func openStore(ctx context.Context, settings *config.Settings, logger *logger_i.Logger) (filebookModel.Store, error) {
	switch settings.StoreBackend {
	case "mysql":
		s, err := store.OpenGormFilebookStore(ctx, settings.MySQLDSN)
		if err != nil {
			return nil, fmt.Errorf("open mysql store: %w", err)
		}
		return s, nil
	case "memory":
		return store.InitInMemoryFilebookStore(), nil
	default:
		if s := store.GetRedisFilebookStore(ctx, settings.Redis); s != nil {
			return s, nil
		}
		if !config.FALLBACK_REDIS_TO_INTERNALSTORE {
			return nil, errors.New("redis is offline")
		}
		logger.Error("Redis store is offline, falling back to the in-memory store")
		return store.InitInMemoryFilebookStore(), nil
	}
}

func openIndex(ctx context.Context, settings *config.Settings) (vectorDB.DataProcessor, error) {
	if settings.VectorIndex == "memory" {
		return memoryDB.NewIndex(int(config.EmbeddingOutputDimensionality)), nil
	}
	holder := qdrantDB.GetQuadrantClient(ctx, settings.Qdrant)
	if holder == nil {
		return nil, errors.New("qdrant is unavailable")
	}
	return holder, nil
}
