package backend

import (
	"context"
	"fmt"
	"log/slog"

	"txreport/internal/config"
	applog "txreport/internal/log"
	"txreport/internal/storage"
	"txreport/internal/storage/memory"
	"txreport/internal/storage/mongo"
	"txreport/internal/storage/postgres"
)

// FromAppConfig converts the application config to backend config
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, fmt.Errorf("app config is nil")
	}

	backendType := BackendType(appConfig.DataBackend)
	if !backendType.IsValid() {
		return Config{}, fmt.Errorf("invalid backend type in config: %s", appConfig.DataBackend)
	}

	return Config{
		Type:            backendType,
		MemorySeedFile:  appConfig.MemorySeedFile,
		SQLiteDBPath:    appConfig.SQLiteDBPath,
		PostgresURL:     appConfig.PostgresURL,
		MongoURI:        appConfig.MongoURI,
		MongoDatabase:   appConfig.MongoDatabase,
		MongoCollection: appConfig.MongoCollection,
	}, nil
}

// Validate validates the backend configuration
func (c Config) Validate() error {
	switch c.Type {
	case MemoryBackend:
	case SQLiteBackend:
		if c.SQLiteDBPath == "" {
			return fmt.Errorf("SQLite database path is required for sqlite backend")
		}
	case PostgresBackend:
		if c.PostgresURL == "" {
			return fmt.Errorf("Postgres URL is required for postgres backend")
		}
	case MongoBackend:
		if c.MongoURI == "" || c.MongoDatabase == "" || c.MongoCollection == "" {
			return fmt.Errorf("Mongo URI, database and collection are required for mongo backend")
		}
	default:
		return fmt.Errorf("invalid backend type: %s", c.Type)
	}
	return nil
}

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

// CreateBackend opens the configured store. Durable backends run their
// migrations or index setup before returning.
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	var (
		store   Store
		cleanup CleanupFunc
		err     error
	)
	switch config.Type {
	case MemoryBackend:
		store, cleanup, err = f.createMemoryBackend(config)
	case SQLiteBackend:
		store, cleanup, err = f.createSQLiteBackend(config)
	case PostgresBackend:
		store, cleanup, err = f.createPostgresBackend(ctx, config)
	case MongoBackend:
		store, cleanup, err = f.createMongoBackend(ctx, config)
	}
	if err != nil {
		return nil, err
	}

	return &BackendResult{Store: store, Type: config.Type, Cleanup: cleanup}, nil
}

func (f *DefaultFactory) createMemoryBackend(config Config) (Store, CleanupFunc, error) {
	if config.MemorySeedFile == "" {
		f.logger.Info("Initialized memory backend")
		s := memory.New()
		return s, s.Close, nil
	}

	s, err := memory.NewFromFile(config.MemorySeedFile)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize memory backend: %w", err)
	}
	f.logger.Info("Initialized memory backend",
		"seed_file", config.MemorySeedFile,
		applog.FieldCount, s.Len())
	return s, s.Close, nil
}

func (f *DefaultFactory) createSQLiteBackend(config Config) (Store, CleanupFunc, error) {
	repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}
	f.logger.Info("Initialized SQLite backend", "db_path", config.SQLiteDBPath)
	return repo, repo.Close, nil
}

func (f *DefaultFactory) createPostgresBackend(ctx context.Context, config Config) (Store, CleanupFunc, error) {
	s, err := postgres.Open(ctx, config.PostgresURL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize postgres backend: %w", err)
	}
	f.logger.Info("Initialized Postgres backend")
	return s, s.Close, nil
}

func (f *DefaultFactory) createMongoBackend(ctx context.Context, config Config) (Store, CleanupFunc, error) {
	s, err := mongo.Open(ctx, config.MongoURI, config.MongoDatabase, config.MongoCollection)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize mongo backend: %w", err)
	}
	f.logger.Info("Initialized Mongo backend",
		"database", config.MongoDatabase,
		"collection", config.MongoCollection)
	return s, s.Close, nil
}
