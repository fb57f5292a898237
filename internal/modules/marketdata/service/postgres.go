package service

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"

	"pivot_backtest/internal/helper"
	"pivot_backtest/internal/models"
	"pivot_backtest/internal/modules/marketdata/service/pg/bars"
	"pivot_backtest/pkg/db"
)

// PGProvider читает таблицу bars(pair, timeframe, time, ohlc, volume).
type PGProvider struct {
	txManager db.TxManager
	bars      *bars.Bars
}

func NewPGProvider(txManager db.TxManager) *PGProvider {
	return &PGProvider{
		txManager: txManager,
		bars:      bars.New(),
	}
}

func (p *PGProvider) Name() string { return "postgres" }

func (p *PGProvider) Load(ctx context.Context, pair string, tf models.Timeframe) (*models.Series, error) {
	pair = helper.NormPair(pair)

	var out []models.Bar
	err := p.txManager.RunReadOnly(ctx, func(ctxTx context.Context, tx pgx.Tx) error {
		var err error
		out, err = p.bars.Get(ctxTx, tx, pair, tf)
		return err
	})
	if err != nil {
		return nil, errors.Wrapf(err, "%s %s: load bars", pair, tf)
	}
	if len(out) == 0 {
		return nil, errors.Wrapf(models.ErrDataUnavailable, "%s %s: no rows", pair, tf)
	}
	return models.NewSeries(pair, tf, out)
}
