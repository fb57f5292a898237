package strategy

import (
	"go.uber.org/fx"

	"pivot_backtest/internal/modules/strategy/service"
)

func Module() fx.Option {
	return fx.Module("strategy",
		fx.Provide(
			service.NewEngine, // service.Engine (Model 3)
		),
	)
}
