// Package app assembles the services shared by the API server and fretctl.
package app

import (
	"context"
	"fmt"

	"github.com/lalith-99/fretboard/internal/backup"
	"github.com/lalith-99/fretboard/internal/callable"
	"github.com/lalith-99/fretboard/internal/config"
	"github.com/lalith-99/fretboard/internal/db"
	"github.com/lalith-99/fretboard/internal/live"
	"github.com/lalith-99/fretboard/internal/notify"
	"github.com/lalith-99/fretboard/internal/repository/postgres"
	"github.com/lalith-99/fretboard/internal/stagetpl"
	"github.com/lalith-99/fretboard/internal/tracking"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type App struct {
	DB     *db.DB
	Redis  *redis.Client
	Stores *postgres.Stores

	Bus       live.Bus
	Publisher *live.Publisher
	Hooks     *live.Hooks

	Notify    *notify.Service
	Tracking  *tracking.Service
	Callables *callable.Service

	closers []func()
}

// New connects to Postgres and Redis and builds every service on top.
// Close releases whatever New acquired, in reverse order.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	a := &App{}

	database, err := db.New(ctx, cfg.DatabaseURL, logger)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	a.DB = database
	a.closers = append(a.closers, database.Close)

	rdb, err := db.NewRedis(ctx, cfg.RedisURL, logger)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	a.Redis = rdb
	a.closers = append(a.closers, func() { _ = rdb.Close() })

	tpl, err := stagetpl.Load(cfg.StageTemplate)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.Stores = postgres.NewStores(database.Pool())
	a.Bus = live.NewRedisBus(rdb)
	a.Publisher = live.NewPublisher(a.Bus, logger)
	a.Hooks = live.NewHooks(a.Bus, a.Stores.Runs, a.Stores.Guitars, a.Stores.Notes,
		a.Stores.Notifications, a.Stores.Clients, logger)

	a.Notify = notify.NewService(a.Stores.Guitars, a.Stores.Notes, a.Stores.Notifications, a.Publisher, logger)
	a.Tracking = tracking.NewService(a.Stores.Runs, a.Stores.Guitars, a.Stores.Notes,
		a.Notify, a.Publisher, tpl.Stages, logger)

	var lister backup.Lister
	gcs, err := backup.NewGCSLister(ctx, cfg.CredentialsFile)
	if err != nil {
		logger.Warn("backup listing unavailable", zap.Error(err))
		lister = backup.UnavailableLister{Err: err}
	} else {
		lister = gcs
		a.closers = append(a.closers, func() { _ = gcs.Close() })
	}

	a.Callables = callable.NewService(
		a.Stores.Users,
		a.Stores.Clients,
		backup.NewCloudSQLExporter(cfg.ProjectID, cfg.SQLInstance, cfg.SQLDatabase, cfg.CredentialsFile),
		lister,
		callable.BackupConfig{
			Bucket:   cfg.BackupBucket,
			Prefix:   cfg.BackupPrefix,
			Database: cfg.SQLDatabase,
		},
		logger,
	)
	return a, nil
}

func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
