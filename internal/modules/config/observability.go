package config

import (
	"context"

	"go.uber.org/fx"

	"pivot_backtest/pkg/logger"
	"pivot_backtest/pkg/tracing"
)

const serviceName = "pivot-backtest"

// initObservability поднимает логгер и трейсер. Вызывается из Module(), поэтому
// хук регистрируется первым и на остановке закрывает трейсер последним.
func initObservability(lc fx.Lifecycle, cfg *Config) error {
	if err := logger.Init(cfg.LogLevel); err != nil {
		return err
	}
	logger.SetServiceName(serviceName)
	tracing.SetServiceName(serviceName)

	_, closeTracer, err := tracing.InitTracer(tracing.Config{
		Enabled: cfg.Tracing.Enabled,
		Host:    cfg.Tracing.Host,
		Port:    cfg.Tracing.Port,
	})
	if err != nil {
		return err
	}

	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			closeTracer()
			logger.Sync()
			return nil
		},
	})
	return nil
}
