package main

import (
	"context"

	"go.uber.org/fx"

	"pivot_backtest/internal/modules/api"
	"pivot_backtest/internal/modules/backtest"
	"pivot_backtest/internal/modules/config"
	"pivot_backtest/internal/modules/health"
	"pivot_backtest/internal/modules/marketdata"
	"pivot_backtest/internal/modules/postgres"
	"pivot_backtest/internal/modules/recorder"
	"pivot_backtest/internal/modules/strategy"
	"pivot_backtest/internal/notify"
)

func main() {
	app := fx.New(
		fx.Provide(
			func() context.Context {
				return context.Background()
			},
		),
		config.Module(),
		postgres.Module(),
		marketdata.Module(),
		strategy.Module(),
		recorder.Module(),
		notify.Module(),
		health.Module(),
		backtest.Module(),
		api.Module(),
	)
	app.Run()
}
