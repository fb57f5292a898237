package api

import (
	"context"
	"fmt"
	"log"
	"net"

	"go.uber.org/fx"

	"pivot_backtest/internal/modules/api/service"
	backtest "pivot_backtest/internal/modules/backtest/service"
	"pivot_backtest/internal/modules/config"
)

func RunHTTP(lc fx.Lifecycle, cfg *config.Config, bt *backtest.Backtester) {
	if cfg.Service.APIPort <= 0 {
		log.Printf("[API] api_port not set, api disabled")
		return
	}
	addr := fmt.Sprintf("%s:%d", cfg.Service.Host, cfg.Service.APIPort)

	runCtx, cancel := context.WithCancel(context.Background())
	srv := service.NewServer(service.NewHandler(runCtx, bt), addr)

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			ln, err := net.Listen("tcp", addr)
			if err != nil {
				cancel()
				return err
			}
			go func() {
				if err := srv.Serve(ln); err != nil {
					log.Printf("[API] serve: %v", err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			cancel()
			return srv.Shutdown(ctx)
		},
	})
}

func Module() fx.Option {
	return fx.Module("api",
		fx.Invoke(RunHTTP),
	)
}
