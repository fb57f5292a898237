package backtest

import (
	"context"
	"log"
	"sync"

	"go.uber.org/fx"

	"pivot_backtest/internal/modules/backtest/service"
	"pivot_backtest/internal/modules/config"
	health "pivot_backtest/internal/modules/health/service"
	marketdata "pivot_backtest/internal/modules/marketdata/service"
	strategy "pivot_backtest/internal/modules/strategy/service"
)

func NewRunner(cfg *config.Config, loader *marketdata.Loader, engine strategy.Engine, state *health.State) (*service.Runner, error) {
	return service.NewRunner(loader, engine, cfg.Backtest, state)
}

// Start: без cron один прогон и штатное завершение приложения, иначе планировщик.
func Start(lc fx.Lifecycle, sd fx.Shutdowner, cfg *config.Config, bt *service.Backtester) error {
	if cfg.Schedule.Cron == "" {
		startOnce(lc, sd, bt)
		return nil
	}

	sched, err := service.NewScheduler(cfg.Schedule.Cron, func(ctx context.Context) {
		if _, err := bt.RunOnce(ctx); err != nil {
			log.Printf("[SCHED] run error: %v", err)
		}
	})
	if err != nil {
		return err
	}

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			sched.Start()
			if cfg.Schedule.RunOnStart {
				go sched.RunNow()
			}
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return sched.Stop(ctx)
		},
	})
	return nil
}

func startOnce(lc fx.Lifecycle, sd fx.Shutdowner, bt *service.Backtester) {
	// ctx хука живёт только на время старта, прогону нужен свой
	runCtx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			wg.Add(1)
			go func() {
				defer wg.Done()
				code := 0
				res, err := bt.RunOnce(runCtx)
				if err != nil {
					log.Printf("[BACKTEST] run error: %v", err)
					code = 1
				} else {
					log.Printf("[BACKTEST] run %s done: trades=%d totalR=%.2f",
						res.RunID, len(res.Trades), res.Summary.TotalR)
				}
				if err := sd.Shutdown(fx.ExitCode(code)); err != nil {
					log.Printf("[BACKTEST] shutdown: %v", err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			cancel()
			done := make(chan struct{})
			go func() {
				wg.Wait()
				close(done)
			}()
			select {
			case <-done:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		},
	})
}

func Module() fx.Option {
	return fx.Module("backtest",
		fx.Provide(
			NewRunner,             // *service.Runner
			service.NewBacktester, // *service.Backtester
		),
		fx.Invoke(Start),
	)
}
