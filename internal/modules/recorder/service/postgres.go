package service

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"

	"pivot_backtest/internal/models"
	"pivot_backtest/internal/modules/recorder/service/pg/trades"
	"pivot_backtest/pkg/db"
)

// PGRecorder пишет прогон и его сделки в одной транзакции.
type PGRecorder struct {
	txManager db.TxManager
	trades    *trades.Trades
}

func NewPGRecorder(txManager db.TxManager) *PGRecorder {
	return &PGRecorder{
		txManager: txManager,
		trades:    trades.New(),
	}
}

func (r *PGRecorder) Name() string { return "postgres" }
func (r *PGRecorder) Close() error { return nil }

func (r *PGRecorder) Record(ctx context.Context, res *models.Result) error {
	err := r.txManager.RunMaster(ctx, func(ctxTx context.Context, tx pgx.Tx) error {
		if err := r.trades.InsertRun(ctxTx, tx, res); err != nil {
			return err
		}
		for i := range res.Trades {
			if err := r.trades.Insert(ctxTx, tx, res.RunID, &res.Trades[i]); err != nil {
				return err
			}
		}
		return nil
	})
	return errors.Wrapf(err, "run %s", res.RunID)
}
