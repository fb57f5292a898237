package service

import (
	"context"

	"github.com/pkg/errors"

	"pivot_backtest/internal/models"
)

// Provider отдаёт всю историю пары на одном ТФ.
// Ошибки: models.ErrDataUnavailable (нет/пусто), models.ErrMalformedSeries (битые данные).
type Provider interface {
	Load(ctx context.Context, pair string, tf models.Timeframe) (*models.Series, error)
	Name() string
}

// Loader: обёртка над Provider: если 3D нет, собираем его из D.
type Loader struct {
	provider Provider
}

func NewLoader(p Provider) *Loader {
	return &Loader{provider: p}
}

func (l *Loader) Name() string { return l.provider.Name() }

func (l *Loader) Load(ctx context.Context, pair string, tf models.Timeframe) (*models.Series, error) {
	s, err := l.provider.Load(ctx, pair, tf)
	if err == nil || tf != models.TF3Day || !errors.Is(err, models.ErrDataUnavailable) {
		return s, err
	}

	daily, dErr := l.provider.Load(ctx, pair, models.TFDay)
	if dErr != nil {
		return nil, errors.Wrapf(err, "no daily bars to build 3D: %v", dErr)
	}
	return Resample3D(daily)
}

// LoadSet грузит несколько ТФ пары. Ошибки по каждому ТФ отдельно, решает вызывающий.
func (l *Loader) LoadSet(ctx context.Context, pair string, tfs []models.Timeframe) (models.SeriesSet, map[models.Timeframe]error) {
	set := make(models.SeriesSet, len(tfs))
	var failed map[models.Timeframe]error
	for _, tf := range tfs {
		if _, ok := set[tf]; ok {
			continue
		}
		if err := ctx.Err(); err != nil {
			return set, map[models.Timeframe]error{tf: err}
		}
		s, err := l.Load(ctx, pair, tf)
		if err != nil {
			if failed == nil {
				failed = make(map[models.Timeframe]error)
			}
			failed[tf] = err
			continue
		}
		set[tf] = s
	}
	return set, failed
}
