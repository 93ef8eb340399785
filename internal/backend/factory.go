package backend

import (
	"context"
	"fmt"
	"log/slog"

	"timesplit/internal/amqp"
	applog "timesplit/internal/log"
	"timesplit/internal/services"
	"timesplit/internal/storage"
	"timesplit/internal/store"
	"timesplit/internal/store/memory"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *slog.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *slog.Logger) Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{
		logger: logger.With(applog.FieldComponent, applog.ComponentBackend),
	}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	var (
		repo store.Repository
		err  error
	)
	switch config.Type {
	case SQLiteBackend:
		repo, err = f.createSQLiteRepository(ctx, config)
	case MemoryBackend:
		repo = f.createMemoryRepository(config)
	default:
		err = fmt.Errorf("unsupported backend type: %s", config.Type)
	}
	if err != nil {
		return nil, err
	}

	opts := []services.Option{
		services.WithSummaryTTL(config.SummaryCacheTTL),
		services.WithLogger(applog.New(applog.Config{
			Component: applog.ComponentEntries,
			Handler:   f.logger.Handler(),
		})),
	}
	if pub := f.createPublisher(config); pub != nil {
		opts = append(opts, services.WithPublisher(pub))
	}

	svc := services.NewEntryService(repo, opts...)
	return &BackendResult{
		Service: svc,
		Cleanup: svc.Close,
	}, nil
}

func (f *DefaultFactory) createSQLiteRepository(ctx context.Context, config Config) (store.Repository, error) {
	repo, err := storage.NewSQLiteRepository(ctx, config.SQLiteDBName, config.BaseAmount)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}

	f.logger.Info("Initialized SQLite backend",
		"db_name", config.SQLiteDBName,
		"base_amount", config.BaseAmount)
	return repo, nil
}

func (f *DefaultFactory) createMemoryRepository(config Config) store.Repository {
	f.logger.Info("Initialized memory backend", "base_amount", config.BaseAmount)
	return memory.New(config.BaseAmount)
}

// createPublisher dials the broker when configured. A broker that cannot be
// reached only disables events; the service still starts.
func (f *DefaultFactory) createPublisher(config Config) services.Publisher {
	if config.AMQPURL == "" {
		return nil
	}

	client, err := amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPRoutingPrefix)
	if err != nil {
		f.logger.Warn("Failed to initialize AMQP client, continuing without change events", "error", err)
		return nil
	}

	f.logger.Info("Initialized AMQP client",
		"exchange", config.AMQPExchange,
		"routing_prefix", config.AMQPRoutingPrefix)
	return client
}
