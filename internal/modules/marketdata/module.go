package marketdata

import (
	"fmt"

	"go.uber.org/fx"

	"pivot_backtest/internal/modules/config"
	"pivot_backtest/internal/modules/marketdata/service"
	"pivot_backtest/pkg/db"
)

func NewLoader(cfg *config.Config, txManager *db.PgTxManager) (*service.Loader, error) {
	switch cfg.Data.Source {
	case config.SourcePostgres:
		if txManager == nil {
			return nil, fmt.Errorf("data.source=postgres requires db_dsn")
		}
		return service.NewLoader(service.NewPGProvider(txManager)), nil
	case config.SourceCSV:
		return service.NewLoader(service.NewCSVProvider(cfg.Data.Dir)), nil
	default:
		return nil, fmt.Errorf("unknown data.source: %q", cfg.Data.Source)
	}
}

func Module() fx.Option {
	return fx.Module("marketdata",
		fx.Provide(
			NewLoader, // *service.Loader
		),
	)
}
