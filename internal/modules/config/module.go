package config

import "go.uber.org/fx"

// Module регистрирует *Config как fx-провайдер и поднимает логгер с трейсером.
// Должен идти первым в fx.New: его OnStop тогда выполняется после остальных.
func Module() fx.Option {
	return fx.Module("config",
		fx.Provide(
			NewConfig,
		),
		fx.Invoke(initObservability),
	)
}
