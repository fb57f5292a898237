package bars

import (
	"context"
	"fmt"

	"pivot_backtest/internal/models"
	"pivot_backtest/internal/modules/marketdata/service/pg/bars/sql"
)

// Bars implement db store
type Bars struct {
	sql *sql.Queries
}

// New instance
func New() *Bars {
	return &Bars{
		sql: sql.New(),
	}
}

func (b *Bars) Get(ctx context.Context, tx sql.DBTX, pair string, tf models.Timeframe) (bars []models.Bar, err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("Bars.Get: %w", err)
		}
	}()

	resp, err := b.sql.GetBars(ctx, tx, &sql.GetBarsParams{
		Pair:      pair,
		Timeframe: string(tf),
	})
	if err != nil {
		return nil, err
	}

	bars = make([]models.Bar, 0, len(resp))
	for _, r := range resp {
		if !r.Time.Valid {
			continue
		}
		bars = append(bars, models.Bar{
			Time:   r.Time.Time.UTC(),
			Open:   r.Open,
			High:   r.High,
			Low:    r.Low,
			Close:  r.Close,
			Volume: r.Volume,
		})
	}
	return bars, nil
}
