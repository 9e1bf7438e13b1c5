package server

import (
	"github.com/gofiber/fiber/v2"
	memoryStorage "github.com/gofiber/storage/memory/v2"
	redisStorage "github.com/gofiber/storage/redis/v2"
	"github.com/rs/zerolog"

	"github.com/alnah/go-md2doc/internal/config"
	"github.com/alnah/go-md2doc/internal/hints"
)

// NewStorage returns the cache store selected by cfg. The redis driver
// panics when it cannot reach the server; in that case the in-memory
// store is used instead so the site still serves.
func NewStorage(cfg config.CacheConfig, logger zerolog.Logger) (store fiber.Storage) {
	if cfg.Store != config.StoreRedis {
		logger.Debug().Msg("using in-memory cache store")
		return memoryStorage.New()
	}

	defer func() {
		if r := recover(); r != nil {
			logger.Error().
				Interface("panic", r).
				Str("addr", cfg.RedisAddr).
				Msg("redis cache store init failed, falling back to memory" + hints.ForCacheStore(cfg.RedisAddr))
			store = memoryStorage.New()
		}
	}()

	store = redisStorage.New(redisStorage.Config{
		Addrs:    []string{cfg.RedisAddr},
		Database: cfg.RedisDB,
	})
	logger.Info().Str("addr", cfg.RedisAddr).Int("db", cfg.RedisDB).Msg("using redis cache store")
	return store
}
