package state

import (
	"context"
	"fmt"
	"io"

	"cable-orchestrator/internal/config"
	"cable-orchestrator/internal/service"

	"go.uber.org/zap"
)

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// OpenMappingStore builds the store selected by cfg.MappingStore. The
// returned closer releases its connection.
func OpenMappingStore(ctx context.Context, cfg config.Config, logger *zap.Logger) (service.MappingStore, io.Closer, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	switch cfg.MappingStore {
	case config.StoreMemory, "":
		logger.Info("using in-memory mapping store")
		return NewMemoryStore(), nopCloser{}, nil
	case config.StoreRedis:
		client, err := NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("using redis mapping store")
		return NewRedisStore(client, "cable:mapping", 0), client, nil
	case config.StoreSQLite, config.StorePostgres:
		dsn := cfg.MappingDSN
		if cfg.MappingStore == config.StorePostgres && cfg.Postgres.Host != "" {
			dsn = DataSourceConfig(cfg.Postgres).DSN()
		}
		s, err := OpenSQLStore(ctx, cfg.MappingStore, dsn)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("using sql mapping store", zap.String("driver", cfg.MappingStore))
		return s, s, nil
	}
	return nil, nil, fmt.Errorf("unknown mapping store %q", cfg.MappingStore)
}
