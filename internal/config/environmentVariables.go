package config

import (
	"log/slog"
	"time"
)

type contextKey string

const (
	IS_PROD                         = false
	LOG_LEVEL_PROD                  = slog.LevelInfo
	FALLBACK_REDIS_TO_INTERNALSTORE = true //if redis init fails, it falls back to an internal in-memory store
	TRACE_ID_KEY         contextKey = "traceId"
	SESSION_KEY          contextKey = "session"
	RATE_LIMIT_PER_SECOND           = 2
	BURST_RATE_LIMIT_PER_SECOND     = 5

	//embeddings
	EmbeddingOutputDimensionality int32 = 1024
	GoogleEmbeddingModel                = "gemini-embedding-001"
	EmbeddingBatchSize                  = 50
	EmbeddingConcurrency                = 4
	EmbeddingRetryInitialInterval       = 500 * time.Millisecond
	EmbeddingRetryMaxInterval           = 10 * time.Second
	EmbeddingRetryMaxElapsed            = 30 * time.Second

	//chunking
	ChunkSize    = 1000
	ChunkOverlap = 100

	//vectorDB
	EmbeddingDBName         = "filebook-chunks"
	UpsertBatchSize         = 100
	UpsertConcurrency       = 4
	RetrievalTopK           = 5
	QdrantConnectionTimeout = 30 * time.Second
	QdrantHost              = "localhost"
	QdrantPort              = 6333 //http
	QdrantGrpcPort          = 6334
	QdrantUseTLS            = false //set for https
	QdrantPoolSize          = 1     //2-5 is preferred for prod according to documentation

	//upload
	MaxUploadSize      = 2 << 20 //2mb
	multipartOverhead  = 64 << 10
	MaxUploadBodyBytes = MaxUploadSize + multipartOverhead

	//conversation
	HistoryTurns          = 10
	AskTimeout            = 60 * time.Second
	IngestTimeout         = 2 * time.Minute
	PageExtractionTimeout = 10 * time.Second

	//quota
	GlobalWindow           = 60 * time.Second
	GlobalWindowCeiling    = 4
	GlobalDailyPerModel    = 48
	FreeDailyQuestions     = 10
	ProDailyQuestions      = 100
	FreeMaxCollections     = 5
	ProMaxCollections      = 9999
	FreeMaxDocuments       = 20
	ProMaxDocuments        = 1000
	FreeHistoryRetention   = 50
	ProHistoryRetention    = 500
	UsageIndexRetention    = 48 * time.Hour
	DefaultChatModelName   = "gemini-2.5-flash"
	GeminiFlashLiteName    = "gemini-2.5-flash-lite"
	OpenAIChatModelName    = "gpt-4o-mini"
	ModelTemperature float32 = 0.3

	//worker pool
	RequestsPerNewWorkerCount int64 = 4
	MaxWorkerCount            int64 = 8
	MinWorkerCount            int64 = 1
	IdleWorkerTimeout               = 1 * time.Minute
	WorkerQueueSize                 = 32

	//serverTimeouts
	ReadTimeout            = 15 * time.Second
	WriteTimeout           = 2 * time.Minute //streamed answers hold the connection
	IdleTimeout            = 120 * time.Second
	ShutdownContextTimeout = 10 * time.Second

	//server listening port
	ServerListenAddr = ":3000"

	//outbound http
	MaxIdleConns        = 50
	MaxIdleConnsPerHost = 25
	IdleConnTimeout     = 60 * time.Second

	//redis
	redisHost = "127.0.0.1"
	redisPort = "6379"
	RedisAddr = redisHost + ":" + redisPort

	//redis has 16 DB we can use
	RedisFilebookStore = 0

	RedisReadTimeout  = 30 * time.Second
	RedisWriteTimeout = 30 * time.Second
	RedisPingTimeout  = 3 * time.Second
)
