package postgres

import (
	"context"
	"fmt"
	"io/fs"
	"log"
	"sort"

	"pivot_backtest/internal/modules/config"
	"pivot_backtest/migrations"
	"pivot_backtest/pkg/db"

	"go.uber.org/fx"
)

// Module даёт *db.PgTxManager. Без db_dsn отдаёт nil: postgres опционален.
func Module() fx.Option {
	return fx.Module("postgres",
		fx.Provide(
			func(ctx context.Context, lc fx.Lifecycle, cfg *config.Config) (*db.PgTxManager, error) {
				if cfg.DB == "" {
					log.Printf("[PG] db_dsn is empty, postgres disabled")
					return nil, nil
				}
				poolMaster, err := db.NewPool(ctx, db.PoolConfig{
					DSN:      cfg.DB,
					MaxConns: int32(cfg.Backtest.Workers) + 2,
				})
				if err != nil {
					return nil, fmt.Errorf("failed to create poolMaster: %w", err)
				}

				err = poolMaster.Ping(ctx)
				if err != nil {
					return nil, err
				}

				m := db.NewPgTxManager(poolMaster)
				if err = Migrate(ctx, m); err != nil {
					return nil, err
				}
				lc.Append(fx.Hook{
					OnStop: func(context.Context) error {
						m.Close()
						return nil
					},
				})
				return m, nil
			},
		),
	)
}

// Migrate прогоняет migrations/*.sql по порядку имён.
func Migrate(ctx context.Context, m *db.PgTxManager) error {
	names, err := fs.Glob(migrations.FS, "*.sql")
	if err != nil {
		return err
	}
	sort.Strings(names)
	for _, name := range names {
		body, err := migrations.FS.ReadFile(name)
		if err != nil {
			return err
		}
		if _, err = m.Conn().Exec(ctx, string(body)); err != nil {
			return fmt.Errorf("migration %s: %w", name, err)
		}
		log.Printf("[PG] migration %s applied", name)
	}
	return nil
}
