package main

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/99minutos/user-service/internal/core/ports"
	"github.com/99minutos/user-service/internal/infrastructure/config"
	"github.com/99minutos/user-service/internal/infrastructure/db/memory"
	mongodb "github.com/99minutos/user-service/internal/infrastructure/db/mongo"
	"github.com/99minutos/user-service/internal/infrastructure/db/sqlstore"
	"github.com/99minutos/user-service/internal/infrastructure/http/handlers"
)

type store struct {
	repo      ports.UserRepository
	readiness map[string]handlers.Pinger
	close     func()
}

// openStore connects the backend selected by STORE_DRIVER.
func openStore(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*store, error) {
	switch cfg.Store.Driver {
	case config.DriverPostgres, config.DriverSQLite:
		sc := sqlstore.Config{Dialect: sqlstore.Postgres, DSN: cfg.Store.DatabaseURL}
		if cfg.Store.Driver == config.DriverSQLite {
			sc = sqlstore.Config{Dialect: sqlstore.SQLite, DSN: cfg.Store.SQLitePath + "?_busy_timeout=5000"}
		}
		db, err := sqlstore.Open(ctx, sc, log)
		if err != nil {
			return nil, err
		}
		return &store{
			repo:      sqlstore.NewUserRepository(db),
			readiness: map[string]handlers.Pinger{"database": db},
			close:     func() { _ = db.Close() },
		}, nil

	case config.DriverMongo:
		client, db, err := mongodb.Connect(ctx, mongodb.Config{URI: cfg.Mongo.URI, Database: cfg.Mongo.Database})
		if err != nil {
			return nil, err
		}
		repo := mongodb.NewUserRepository(db)
		if err := repo.EnsureIndexes(ctx); err != nil {
			_ = client.Disconnect(context.Background())
			return nil, err
		}
		log.Info().Str("database", cfg.Mongo.Database).Msg("connected to mongodb")
		return &store{
			repo:      repo,
			readiness: map[string]handlers.Pinger{"mongodb": mongodb.Pinger{Client: client}},
			close:     func() { _ = client.Disconnect(context.Background()) },
		}, nil

	case config.DriverMemory:
		log.Warn().Msg("using in-memory user store; accounts are lost on restart")
		repo := memory.NewUserRepository()
		return &store{
			repo:      repo,
			readiness: map[string]handlers.Pinger{"store": repo},
			close:     func() {},
		}, nil
	}
	return nil, fmt.Errorf("unsupported store driver %q", cfg.Store.Driver)
}
