package backend

import (
	"context"
	"fmt"
	"log/slog"

	"bucks2bar/internal/cache"
	"bucks2bar/internal/storage"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *slog.Logger
	caches *cache.Manager
}

// NewFactory creates a new backend factory. Caches it creates are
// registered with caches when that is non-nil.
func NewFactory(logger *slog.Logger, caches *cache.Manager) Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{logger: logger, caches: caches}
}

func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Type {
	case SQLiteBackend:
		return f.createSQLiteBackend(config)
	case FileBackend:
		return f.createFileBackend(config)
	case MemoryBackend:
		return f.createMemoryBackend(config)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

func (f *DefaultFactory) createSQLiteBackend(config Config) (*BackendResult, error) {
	kv, err := storage.NewSQLiteKV(config.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite store: %w", err)
	}

	f.logger.Info("Initialized SQLite backend", "db_path", config.SQLiteDBPath, "cache_size", config.CacheSize)
	return f.wrap(kv, config), nil
}

func (f *DefaultFactory) createFileBackend(config Config) (*BackendResult, error) {
	kv, err := storage.NewFileKV(config.DataFilePath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize file store: %w", err)
	}

	f.logger.Info("Initialized file backend", "path", config.DataFilePath, "cache_size", config.CacheSize)
	return f.wrap(kv, config), nil
}

func (f *DefaultFactory) createMemoryBackend(config Config) (*BackendResult, error) {
	kv := storage.NewMemoryKV(config.QuotaBytes)

	f.logger.Info("Initialized memory backend", "quota_bytes", config.QuotaBytes)
	return &BackendResult{Store: kv, Cleanup: kv.Close}, nil
}

func (f *DefaultFactory) wrap(kv storage.KV, config Config) *BackendResult {
	if config.CacheSize <= 0 {
		return &BackendResult{Store: kv, Cleanup: kv.Close}
	}
	lru := cache.NewLRUCache[[]byte](config.CacheSize, config.CacheTTL)
	if f.caches != nil {
		f.caches.Register(lru)
	}
	cached := storage.NewCachedKV(kv, lru)
	return &BackendResult{Store: cached, Cleanup: cached.Close}
}
