package recorder

import (
	"context"
	"log"

	"go.uber.org/fx"

	"pivot_backtest/internal/modules/config"
	"pivot_backtest/internal/modules/recorder/service"
	"pivot_backtest/pkg/db"
)

// NewRecorder собирает приёмники из конфига. Postgres только если поднят пул.
func NewRecorder(lc fx.Lifecycle, cfg *config.Config, txManager *db.PgTxManager) (service.Recorder, error) {
	var recs []service.Recorder
	if p := cfg.Recorder.CSVPath; p != "" {
		recs = append(recs, service.NewCSVRecorder(p))
	}
	if p := cfg.Recorder.JSONPath; p != "" {
		recs = append(recs, service.NewJSONRecorder(p))
	}
	if p := cfg.Recorder.SQLitePath; p != "" {
		r, err := service.NewSQLiteRecorder(p)
		if err != nil {
			return nil, err
		}
		recs = append(recs, r)
	}
	if txManager != nil {
		recs = append(recs, service.NewPGRecorder(txManager))
	}
	if len(recs) == 0 {
		recs = append(recs, service.NewNoopRecorder())
	}

	m := service.NewMulti(recs...)
	log.Printf("[REC] recorders: %v", m.Names())
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			return m.Close()
		},
	})
	return m, nil
}

func Module() fx.Option {
	return fx.Module("recorder",
		fx.Provide(
			NewRecorder, // service.Recorder
		),
	)
}
