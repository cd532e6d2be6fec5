package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spacesedan/complaintflow/config"
	"github.com/spacesedan/complaintflow/internal/clients"
	"github.com/spacesedan/complaintflow/internal/db"
)

// openRepository returns the configured backend and a func that releases it.
func openRepository(ctx context.Context, cfg config.StoreConfig) (db.Repository, func(), error) {
	switch cfg.Backend {
	case config.StoreBackendPostgres:
		pool, err := clients.NewPostgresPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		repo := db.NewPostgresRepository(pool)
		if err := repo.Migrate(ctx); err != nil {
			pool.Close()
			return nil, nil, err
		}
		return repo, pool.Close, nil

	case config.StoreBackendDynamoDB:
		client, err := clients.NewDynamoDBClient(ctx, cfg)
		if err != nil {
			return nil, nil, err
		}
		slog.Info("[API] Using DynamoDB store", slog.String("table", cfg.DynamoDBTable))
		return db.NewDynamoDBRepository(client, cfg.DynamoDBTable), func() {}, nil

	case config.StoreBackendMemory, "":
		slog.Warn("[API] Using in-memory store, complaints are lost on restart")
		return db.NewMemoryRepository(), func() {}, nil
	}
	return nil, nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
}
