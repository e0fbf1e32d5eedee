package main

import (
	"context"
	"fmt"
	"strings"

	"canonkeeper/internal/config"
	"canonkeeper/internal/store"
	"canonkeeper/internal/store/memory"
	"canonkeeper/internal/store/postgres"
	"canonkeeper/internal/store/sqlite"
)

const configFile = "canonkeeper.yaml"

func openStore(ctx context.Context, cfg *config.ProjectConfig) (store.Store, error) {
	dsn := cfg.Database.DSN

	var db store.Store
	var err error
	switch {
	case strings.HasPrefix(dsn, "sqlite://"):
		db, err = sqlite.New(ctx, dsn)
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		db, err = postgres.New(ctx, dsn)
	case strings.HasPrefix(dsn, "memory://"):
		db = memory.New()
	default:
		return nil, fmt.Errorf("unsupported database dsn %q", dsn)
	}
	if err != nil {
		return nil, err
	}

	if err := db.EnsureSchema(ctx); err != nil {
		db.Close(ctx)
		return nil, err
	}
	return db, nil
}
