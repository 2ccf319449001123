package app

import (
	"context"
	"fmt"
	"io"

	goredis "github.com/redis/go-redis/v9"

	"github.com/MrSnakeDoc/pulse/internal/config"
	"github.com/MrSnakeDoc/pulse/internal/index"
	"github.com/MrSnakeDoc/pulse/internal/logger"
	"github.com/MrSnakeDoc/pulse/internal/redis"
	"github.com/MrSnakeDoc/pulse/internal/store"
	redisstore "github.com/MrSnakeDoc/pulse/internal/store/redis"
	"github.com/MrSnakeDoc/pulse/internal/store/sqlstore"
)

// Backend is an opened store plus what has to be released on shutdown.
type Backend struct {
	Store  store.Store
	Redis  *goredis.Client // nil unless cfg.Store is redis
	Closer io.Closer       // nil for the memory store
}

// OpenStore opens the backend selected by cfg.Store. Redis is retried until
// cfg.RedisConnectTimeout elapses.
func OpenStore(ctx context.Context, cfg *config.Config, log logger.Logger) (Backend, error) {
	switch cfg.Store {
	case config.StoreMemory:
		log.Warn("using the in-memory store, pulses are lost on restart")
		return Backend{Store: index.NewMemoryIndex()}, nil

	case config.StoreRedis:
		log.Infof("Connecting to Redis at %s", cfg.RedisAddr)
		client, err := redis.Connect(ctx, redis.ConnectOptions{
			Addr:           cfg.RedisAddr,
			User:           cfg.RedisUser,
			Password:       cfg.RedisPassword,
			DB:             cfg.RedisDB,
			DialTimeout:    cfg.RedisDT,
			ReadTimeout:    cfg.RedisRT,
			WriteTimeout:   cfg.RedisWT,
			PoolSize:       cfg.RedisPoolSize,
			ConnectTimeout: cfg.RedisConnectTimeout,
			RetryInterval:  cfg.RedisRetryInterval,
			MaxWait:        cfg.RedisMaxWait,
			PingTimeout:    cfg.RedisPingTimeout,
		}, log)
		if err != nil {
			return Backend{}, fmt.Errorf("connect redis: %w", err)
		}
		log.Info("Redis initialized successfully")
		return Backend{Store: redisstore.NewStore(client), Redis: client, Closer: client}, nil

	case config.StoreDuckDB:
		path := cfg.DuckDBPath
		if path == "" {
			log.Warn("PULSE_DUCKDB_PATH is empty, using an in-memory database")
		}
		st, err := sqlstore.Open(ctx, path)
		if err != nil {
			return Backend{}, err
		}
		log.Info("DuckDB store opened", logger.String("path", path))
		return Backend{Store: st, Closer: st}, nil

	default:
		return Backend{}, fmt.Errorf("unknown store %q", cfg.Store)
	}
}
