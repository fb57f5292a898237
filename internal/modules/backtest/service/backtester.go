package service

import (
	"context"
	"sync"

	"github.com/pkg/errors"

	"pivot_backtest/internal/models"
	"pivot_backtest/internal/notify"
	recorder "pivot_backtest/internal/modules/recorder/service"
	"pivot_backtest/pkg/logger"
)

var ErrRunInProgress = errors.New("backtest run in progress")

// Backtester: прогон, запись результата и уведомление. Прогоны не пересекаются.
type Backtester struct {
	runner   *Runner
	recorder recorder.Recorder
	notifier notify.Notifier

	mu sync.Mutex // держится на время прогона

	lastMu sync.RWMutex
	last   *models.Result
}

func NewBacktester(runner *Runner, rec recorder.Recorder, n notify.Notifier) *Backtester {
	if rec == nil {
		rec = recorder.NewNoopRecorder()
	}
	return &Backtester{
		runner:   runner,
		recorder: rec,
		notifier: n,
	}
}

// RunOnce ждёт окончания текущего прогона, если он есть, и запускает свой.
func (b *Backtester) RunOnce(ctx context.Context) (*models.Result, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.run(ctx)
}

// Trigger запускает прогон в фоне. Если прогон уже идёт, вернёт ErrRunInProgress.
func (b *Backtester) Trigger(ctx context.Context) error {
	if !b.mu.TryLock() {
		return ErrRunInProgress
	}
	go func() {
		defer b.mu.Unlock()
		if _, err := b.run(ctx); err != nil {
			logger.Error("[BACKTEST] triggered run: %v", err)
		}
	}()
	return nil
}

// LastResult: последний успешно записанный прогон или nil.
func (b *Backtester) LastResult() *models.Result {
	b.lastMu.RLock()
	defer b.lastMu.RUnlock()
	return b.last
}

func (b *Backtester) run(ctx context.Context) (*models.Result, error) {
	res, err := b.runner.Run(ctx)
	if err != nil {
		b.sendf("⚠️ Backtest прерван: %v", err)
		return res, err
	}

	if err = b.recorder.Record(ctx, res); err != nil {
		logger.Error("[BACKTEST] record %s: %v", res.RunID, err)
		b.sendf("⚠️ Backtest `%s`: не удалось сохранить результат: %v", res.RunID, err)
		return res, errors.Wrap(err, "record result")
	}

	b.lastMu.Lock()
	b.last = res
	b.lastMu.Unlock()

	if b.notifier != nil {
		b.notifier.SendSummary(res)
	}
	return res, nil
}

func (b *Backtester) sendf(format string, args ...any) {
	if b.notifier != nil {
		b.notifier.Sendf(format, args...)
	}
}
