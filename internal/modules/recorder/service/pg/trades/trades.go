package trades

import (
	"context"
	"fmt"
	"time"

	"github.com/bytedance/sonic"
	"github.com/jackc/pgx/v5/pgtype"

	"pivot_backtest/internal/models"
	"pivot_backtest/internal/modules/recorder/service/pg/trades/sql"
)

// Meta: всё, что не вынесено в колонки, лежит в trades.meta (jsonb).
type Meta struct {
	PivotLevel       float64            `json:"pivot_level"`
	PivotExtreme     float64            `json:"pivot_extreme"`
	PivotNear        float64            `json:"pivot_near"`
	GapSize          float64            `json:"gap_size"`
	GapATR           float64            `json:"gap_atr,omitempty"`
	GapTouchTime     time.Time          `json:"gap_touch_time"`
	Refinement       *models.Refinement `json:"refinement,omitempty"`
	TotalRefinements int                `json:"total_refinements"`
	RR               float64            `json:"rr"`
	MFEPips          float64            `json:"mfe_pips"`
	MAEPips          float64            `json:"mae_pips"`
	PipSize          float64            `json:"pip_size"`
}

func MetaOf(t *models.Trade) Meta {
	return Meta{
		PivotLevel:       t.PivotLevel,
		PivotExtreme:     t.PivotExtreme,
		PivotNear:        t.PivotNear,
		GapSize:          t.GapSize,
		GapATR:           t.GapATR,
		GapTouchTime:     t.GapTouchTime,
		Refinement:       t.Refinement,
		TotalRefinements: t.TotalRefinements,
		RR:               t.RR,
		MFEPips:          t.MFEPips,
		MAEPips:          t.MAEPips,
		PipSize:          t.PipSize,
	}
}

// Trades implement db store
type Trades struct {
	sql *sql.Queries
}

// New instance
func New() *Trades {
	return &Trades{
		sql: sql.New(),
	}
}

func (s *Trades) InsertRun(ctx context.Context, tx sql.DBTX, res *models.Result) (err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("Trades.InsertRun: %w", err)
		}
	}()

	var summary []byte
	summary, err = sonic.Marshal(res.Summary)
	if err != nil {
		return err
	}
	return s.sql.InsertRun(ctx, tx, &sql.InsertRunParams{
		ID:         res.RunID,
		StartedAt:  ts(res.StartedAt),
		FinishedAt: ts(res.FinishedAt),
		Pivots:     int32(res.Pivots),
		Failures:   int32(res.Failures),
		Summary:    summary,
	})
}

func (s *Trades) Insert(ctx context.Context, tx sql.DBTX, runID string, t *models.Trade) (err error) {
	defer func() {
		if err != nil {
			err = fmt.Errorf("Trades.Insert: %w", err)
		}
	}()

	var meta []byte
	meta, err = sonic.Marshal(MetaOf(t))
	if err != nil {
		return err
	}
	return s.sql.InsertTrade(ctx, tx, &sql.InsertTradeParams{
		RunID:       runID,
		Pair:        t.Pair,
		Htf:         string(t.HTF),
		Direction:   string(t.Direction),
		EntrySource: t.EntrySource,
		PivotTime:   ts(t.PivotTime),
		EntryTime:   ts(t.EntryTime),
		EntryPrice:  t.EntryPrice,
		SlPrice:     t.SL,
		TpPrice:     t.TP,
		ExitTime:    ts(t.ExitTime),
		ExitPrice:   t.ExitPrice,
		ExitReason:  string(t.ExitReason),
		PnlPips:     t.PnLPips,
		PnlR:        t.PnLR,
		Meta:        meta,
	})
}

func ts(t time.Time) pgtype.Timestamptz {
	return pgtype.Timestamptz{Time: t, Valid: !t.IsZero()}
}
