package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// PlanLimits are the per-tier ceilings enforced by the quota governor.
type PlanLimits struct {
	DailyQuestions   int `yaml:"daily_questions"`
	MaxCollections   int `yaml:"max_collections"`
	MaxDocuments     int `yaml:"max_documents"`
	HistoryRetention int `yaml:"history_retention"`
}

// QuotaSettings holds the system-wide throttles and the plan tiers.
type QuotaSettings struct {
	GlobalWindow        time.Duration `yaml:"global_window"`
	GlobalWindowCeiling int           `yaml:"global_window_ceiling"`
	GlobalDailyPerModel int           `yaml:"global_daily_per_model"`
	Free                PlanLimits    `yaml:"free"`
	Pro                 PlanLimits    `yaml:"pro"`
	Timezone            string        `yaml:"timezone"`
}

type RedisSettings struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"-"`
	DB       int    `yaml:"db"`
}

type QdrantSettings struct {
	Host       string `yaml:"host"`
	Port       int    `yaml:"port"`
	APIKey     string `yaml:"-"`
	UseTLS     bool   `yaml:"use_tls"`
	Collection string `yaml:"collection"`
}

type IngestSettings struct {
	ChunkSize     int   `yaml:"chunk_size"`
	ChunkOverlap  int   `yaml:"chunk_overlap"`
	MaxUploadSize int64 `yaml:"max_upload_size"`
}

// Settings is the runtime configuration. Compile-time constants in this
// package are the defaults; a YAML file and then the environment override them.
type Settings struct {
	ListenAddr   string         `yaml:"listen_addr"`
	StoreBackend string         `yaml:"store_backend"` // redis | mysql | memory
	VectorIndex  string         `yaml:"vector_index"`  // qdrant | memory
	DefaultModel string         `yaml:"default_model"`
	Redis        RedisSettings  `yaml:"redis"`
	Qdrant       QdrantSettings `yaml:"qdrant"`
	Ingest       IngestSettings `yaml:"ingest"`
	Quota        QuotaSettings  `yaml:"quota"`

	MySQLDSN     string `yaml:"-"`
	GoogleAPIKey string `yaml:"-"`
	OpenAIAPIKey string `yaml:"-"`
	JWTSecret    string `yaml:"-"`
}

// Default returns the settings built from the package constants.
func Default() *Settings {
	return &Settings{
		ListenAddr:   ServerListenAddr,
		StoreBackend: "redis",
		VectorIndex:  "qdrant",
		DefaultModel: DefaultChatModelName,
		Redis:        RedisSettings{Addr: RedisAddr, DB: RedisFilebookStore},
		Qdrant: QdrantSettings{
			Host:       QdrantHost,
			Port:       QdrantGrpcPort,
			UseTLS:     QdrantUseTLS,
			Collection: EmbeddingDBName,
		},
		Ingest: IngestSettings{
			ChunkSize:     ChunkSize,
			ChunkOverlap:  ChunkOverlap,
			MaxUploadSize: MaxUploadSize,
		},
		Quota: DefaultQuota(),
	}
}

func DefaultQuota() QuotaSettings {
	return QuotaSettings{
		GlobalWindow:        GlobalWindow,
		GlobalWindowCeiling: GlobalWindowCeiling,
		GlobalDailyPerModel: GlobalDailyPerModel,
		Free: PlanLimits{
			DailyQuestions:   FreeDailyQuestions,
			MaxCollections:   FreeMaxCollections,
			MaxDocuments:     FreeMaxDocuments,
			HistoryRetention: FreeHistoryRetention,
		},
		Pro: PlanLimits{
			DailyQuestions:   ProDailyQuestions,
			MaxCollections:   ProMaxCollections,
			MaxDocuments:     ProMaxDocuments,
			HistoryRetention: ProHistoryRetention,
		},
		Timezone: "UTC",
	}
}

// Load builds the settings: defaults, then the YAML file at path (a missing
// file is not an error), then .env and process environment variables.
func Load(path string) (*Settings, error) {
	s := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("read config %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(data, s); err != nil {
				return nil, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}

	// .env is for local development, production injects real env vars
	_ = godotenv.Load()
	s.applyEnv()
	s.applyDefaults()

	if s.JWTSecret == "" {
		return nil, errors.New("FILEBOOK_JWT_SECRET is not set")
	}
	return s, nil
}

func (s *Settings) applyEnv() {
	setString(&s.ListenAddr, "FILEBOOK_LISTEN_ADDR")
	setString(&s.StoreBackend, "FILEBOOK_STORE")
	setString(&s.VectorIndex, "FILEBOOK_VECTOR_INDEX")
	setString(&s.DefaultModel, "FILEBOOK_DEFAULT_MODEL")
	setString(&s.Redis.Addr, "REDIS_ADDR")
	setString(&s.Redis.Password, "REDIS_PASSWORD")
	setString(&s.Qdrant.Host, "QDRANT_HOST")
	setInt(&s.Qdrant.Port, "QDRANT_PORT")
	setString(&s.Qdrant.APIKey, "QDRANT_API_KEY")
	setString(&s.MySQLDSN, "MYSQL_DSN")
	setString(&s.GoogleAPIKey, "GEMINI_API_KEY")
	setString(&s.OpenAIAPIKey, "OPENAI_API_KEY")
	setString(&s.JWTSecret, "FILEBOOK_JWT_SECRET")
}

func (s *Settings) applyDefaults() {
	d := Default()
	if s.Ingest.ChunkSize <= 0 {
		s.Ingest.ChunkSize = d.Ingest.ChunkSize
	}
	if s.Ingest.ChunkOverlap < 0 {
		s.Ingest.ChunkOverlap = d.Ingest.ChunkOverlap
	}
	if s.Ingest.MaxUploadSize <= 0 {
		s.Ingest.MaxUploadSize = d.Ingest.MaxUploadSize
	}
	if s.Quota.GlobalWindow <= 0 {
		s.Quota.GlobalWindow = d.Quota.GlobalWindow
	}
	if s.Quota.Timezone == "" {
		s.Quota.Timezone = d.Quota.Timezone
	}
	if s.Qdrant.Collection == "" {
		s.Qdrant.Collection = d.Qdrant.Collection
	}
}

// Location resolves the quota timezone, falling back to UTC.
func (q QuotaSettings) Location() *time.Location {
	loc, err := time.LoadLocation(q.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil {
		*dst = v
	}
}
