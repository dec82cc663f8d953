// Package repository opens the bookmark store selected by configuration.
package repository

import (
	"context"
	"fmt"
	"log/slog"

	"treemark/internal/config"
	"treemark/internal/domain/repositories"
	"treemark/internal/repository/memory"
	"treemark/internal/repository/mongodb"
	"treemark/internal/repository/postgres"
)

// Store bundles a repository with its transaction manager.
type Store struct {
	Driver    string
	Bookmarks repositories.BookmarkRepository
	TxManager repositories.TransactionManager
	close     func()
}

// Close releases the underlying connections.
func (s *Store) Close() {
	if s.close != nil {
		s.close()
	}
}

// Open connects to the configured backend and prepares its indexes or
// schema.
func Open(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Store, error) {
	switch cfg.StoreDriver {
	case config.StoreMemory:
		store := memory.NewStore()
		logger.Warn("using in-memory store; data is lost on restart")
		return &Store{
			Driver:    cfg.StoreDriver,
			Bookmarks: memory.NewBookmarkRepository(store),
			TxManager: memory.NewTransactionManager(store),
		}, nil

	case config.StoreMongo:
		client, err := mongodb.Connect(ctx, cfg.MongoURI)
		if err != nil {
			return nil, err
		}
		repoConfig := &mongodb.RepositoryConfig{
			Client:     client,
			Database:   cfg.MongoDatabase,
			Collection: cfg.MongoCollection,
			Logger:     logger,
		}
		if err := mongodb.EnsureIndexes(ctx, repoConfig); err != nil {
			_ = client.Disconnect(context.Background())
			return nil, err
		}
		logger.Info("database connected",
			"driver", cfg.StoreDriver,
			"database", cfg.MongoDatabase,
			"collection", cfg.MongoCollection,
			"transactions", cfg.MongoTransactions,
		)
		return &Store{
			Driver:    cfg.StoreDriver,
			Bookmarks: mongodb.NewBookmarkRepository(repoConfig),
			TxManager: mongodb.NewTransactionManager(client, cfg.MongoTransactions),
			close:     func() { _ = client.Disconnect(context.Background()) },
		}, nil

	case config.StorePostgres:
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL is required for store driver %q", cfg.StoreDriver)
		}
		pool, err := postgres.CreateConnectionPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		tables := postgres.NewTableNames(cfg.TablePrefix)
		if err := postgres.EnsureSchema(ctx, pool, tables); err != nil {
			pool.Close()
			return nil, err
		}
		logger.Info("database connected",
			"driver", cfg.StoreDriver,
			"table", tables.Bookmarks,
		)
		repoConfig := &postgres.RepositoryConfig{Pool: pool, Tables: tables, Logger: logger}
		return &Store{
			Driver:    cfg.StoreDriver,
			Bookmarks: postgres.NewBookmarkRepository(repoConfig),
			TxManager: postgres.NewTransactionManager(pool, logger),
			close:     pool.Close,
		}, nil

	default:
		return nil, fmt.Errorf("unknown store driver %q (want %s, %s or %s)",
			cfg.StoreDriver, config.StoreMemory, config.StoreMongo, config.StorePostgres)
	}
}
