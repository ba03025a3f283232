package redisStore

import (
	"context"
	"strconv"
	"sync"

	"github.com/akolanti/filebook/internal/config"
	"github.com/akolanti/filebook/pkg/logger_i"
	"github.com/redis/go-redis/v9"
)

var (
	instances = make(map[int]*Store)
	mu        sync.RWMutex
	logger    = logger_i.NewLogger("RedisStore")
	once      sync.Once
)

type Store struct {
	client *redis.Client
	Type   int
}

// GetRedisStore returns one shared store per Redis DB, or nil when Redis is
// offline so the caller can fall back to memory.
func GetRedisStore(ctx context.Context, settings config.RedisSettings) *Store {
	mu.RLock()
	instance, exists := instances[settings.DB]
	mu.RUnlock()

	if exists {
		return instance
	}

	mu.Lock()
	defer mu.Unlock()

	if instance, exists = instances[settings.DB]; exists {
		return instance
	}
	return createNewStore(ctx, settings)
}

func closeRedisStores(ctx context.Context) {
	<-ctx.Done()
	logger.Info("Closing Redis Stores")
	mu.Lock()
	defer mu.Unlock()
	for db, store := range instances {
		if err := store.client.Close(); err != nil {
			logger.Error("Error closing redis client", "db", db, "error", err)
		}
		delete(instances, db)
	}
	logger.Info("Redis Store Closed successfully")
}

func createNewStore(ctx context.Context, settings config.RedisSettings) *Store {
	log := logger.With("db", strconv.Itoa(settings.DB), "addr", settings.Addr)
	newClient := redis.NewClient(&redis.Options{
		Addr:                  settings.Addr,
		Password:              settings.Password,
		DB:                    settings.DB,
		ContextTimeoutEnabled: true,
		ReadTimeout:           config.RedisReadTimeout,
		WriteTimeout:          config.RedisWriteTimeout,
	})

	pingCtx, cancel := context.WithTimeout(ctx, config.RedisPingTimeout)
	defer cancel()

	if err := newClient.Ping(pingCtx).Err(); err != nil {
		log.Error("Redis is offline", "error", err)
		_ = newClient.Close()
		return nil
	}

	log.Info("Redis store initialised")

	newStore := &Store{
		client: newClient,
		Type:   settings.DB,
	}

	instances[settings.DB] = newStore
	once.Do(func() {
		go closeRedisStores(ctx)
	})
	return newStore
}

// NewTestStore wraps an existing client, for miniredis backed tests.
func NewTestStore(client *redis.Client) *Store {
	return &Store{
		client: client,
	}
}
