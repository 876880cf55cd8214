package local

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/taskmaster/daybook/internal/infrastructure/config"
	"github.com/taskmaster/daybook/internal/ports"
)

// OpenKV builds the key/value backend selected by cfg.Local.Driver
func OpenKV(ctx context.Context, cfg *config.Config) (ports.KeyValueStore, error) {
	switch cfg.Local.Driver {
	case config.LocalDriverFile:
		return NewFileKV(cfg.Local.Path)

	case config.LocalDriverSQLite:
		path := cfg.Local.Path
		if filepath.Ext(path) == "" {
			path = filepath.Join(path, "daybook.db")
		}
		if err := ensureDir(filepath.Dir(path)); err != nil {
			return nil, err
		}
		return NewSQLiteKV(path)

	case config.LocalDriverRedis:
		client := redis.NewClient(&redis.Options{
			Addr:         cfg.Redis.GetAddr(),
			Password:     cfg.Redis.Password,
			DB:           cfg.Redis.DB,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, fmt.Errorf("connect to redis at %s: %w", cfg.Redis.GetAddr(), err)
		}
		return NewRedisKV(client, cfg.Local.RedisPrefix), nil

	case config.LocalDriverMemory:
		return NewMemoryKV(), nil
	}

	return nil, fmt.Errorf("unknown local driver %q", cfg.Local.Driver)
}

func ensureDir(dir string) error {
	if dir == "" || dir == "." {
		return nil
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create store directory: %w", err)
	}
	return nil
}
