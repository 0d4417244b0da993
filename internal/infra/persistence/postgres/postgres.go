package postgres

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"hrdesk/config"
	"hrdesk/internal/domain/lifecycle"
	"hrdesk/internal/errors"
	"hrdesk/internal/infra/persistence/model"

	pgLib "github.com/slighter12/go-lib/database/postgres"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

const (
	poolSampleInterval = 5 * time.Second
	poolWaitWarnAfter  = 50 * time.Millisecond
)

// Params defines the required parameters
type Params struct {
	fx.In
	fx.Lifecycle

	Config *config.Config
	Logger *slog.Logger
}

// New opens the account store. Startup fails when the database is unreachable
// or the schema from migrations/ has not been applied.
func New(params Params) (*gorm.DB, error) {
	db, err := pgLib.New(params.Config.Postgres)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create PostgreSQL client")
	}

	// Multi-step writes go through TxManager, so single statements run bare.
	db = db.Session(&gorm.Session{
		SkipDefaultTransaction: true,
		Logger:                 newGormSlogLogger(params.Logger, params.Config),
	})

	sqlDB, err := db.DB()
	if err != nil {
		return nil, errors.Wrap(err, "failed to get PostgreSQL sql.DB")
	}

	logger := params.Logger.With(slog.String("component", "postgres"))
	sampleCtx, stopSampling := context.WithCancel(context.Background())

	params.Append(fx.Hook{
		OnStart: func(startCtx context.Context) error {
			ctx, cancel := context.WithTimeout(startCtx, lifecycle.DefaultTimeout)
			defer cancel()

			if err := sqlDB.PingContext(ctx); err != nil {
				return errors.Wrap(err, "failed to ping PostgreSQL")
			}
			if err := requireSchema(db.WithContext(ctx)); err != nil {
				return err
			}

			go samplePool(sampleCtx, logger, sqlDB)

			return nil
		},
		OnStop: func(_ context.Context) error {
			stopSampling()

			return sqlDB.Close()
		},
	})

	return db, nil
}

// requireSchema checks that the account tables exist.
func requireSchema(db *gorm.DB) error {
	migrator := db.Migrator()
	for _, table := range []any{&model.AccountModel{}, &model.RefreshTokenModel{}} {
		if !migrator.HasTable(table) {
			return errors.Errorf("table for %T is missing, apply migrations/ first", table)
		}
	}

	return nil
}

// samplePool logs connection pool contention seen since the previous sample.
func samplePool(ctx context.Context, logger *slog.Logger, sqlDB *sql.DB) {
	ticker := time.NewTicker(poolSampleInterval)
	defer ticker.Stop()

	last := sqlDB.Stats()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		now := sqlDB.Stats()
		waits := now.WaitCount - last.WaitCount
		waited := now.WaitDuration - last.WaitDuration
		last = now

		if waits <= 0 {
			continue
		}

		level := slog.LevelDebug
		if waited >= poolWaitWarnAfter {
			level = slog.LevelWarn
		}
		logger.LogAttrs(ctx, level, "Connection pool contention",
			slog.Int64("waits", waits),
			slog.Duration("waited", waited),
			slog.Int("open", now.OpenConnections),
			slog.Int("in_use", now.InUse),
			slog.Int("max_open", now.MaxOpenConnections),
		)
	}
}
