package service

import (
	"context"
	"encoding/csv"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/pkg/errors"

	"pivot_backtest/internal/helper"
	"pivot_backtest/internal/models"
)

var csvHeader = []string{
	"run_id", "pair", "htf", "direction", "entry_source", "refinement_tf", "total_refinements",
	"pivot_time", "gap_touch_time", "entry_time", "entry_price", "sl_price", "tp_price", "rr",
	"exit_time", "exit_price", "exit_reason", "risk_pips", "pnl_pips", "pnl_r", "mfe_pips", "mae_pips",
}

// CSVRecorder: сделки прогона в один CSV (файл перезаписывается).
type CSVRecorder struct {
	path string
}

func NewCSVRecorder(path string) *CSVRecorder {
	return &CSVRecorder{path: path}
}

func (r *CSVRecorder) Name() string { return "csv" }
func (r *CSVRecorder) Close() error { return nil }

func (r *CSVRecorder) Record(_ context.Context, res *models.Result) error {
	if dir := filepath.Dir(r.path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.Wrap(err, "create report dir")
		}
	}
	f, err := os.Create(r.path)
	if err != nil {
		return errors.Wrapf(err, "create %s", r.path)
	}
	if err = WriteTradesCSV(f, res.RunID, res.Trades); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// WriteTradesCSV: цены округляются до 1/10 пипса, чтобы не тащить хвосты float.
func WriteTradesCSV(w io.Writer, runID string, trades []models.Trade) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return errors.Wrap(err, "write header")
	}
	for i := range trades {
		t := &trades[i]
		tick := t.PipSize / 10
		refTF := ""
		if t.Refinement != nil {
			refTF = string(t.Refinement.Timeframe)
		}
		rec := []string{
			runID, t.Pair, string(t.HTF), string(t.Direction), t.EntrySource, refTF, strconv.Itoa(t.TotalRefinements),
			formatTime(t.PivotTime), formatTime(t.GapTouchTime), formatTime(t.EntryTime),
			formatPrice(t.EntryPrice, tick), formatPrice(t.SL, tick), formatPrice(t.TP, tick), formatF(t.RR, 4),
			formatTime(t.ExitTime), formatPrice(t.ExitPrice, tick), string(t.ExitReason),
			formatF(t.RiskPips(), 1), formatF(t.PnLPips, 1), formatF(t.PnLR, 4),
			formatF(t.MFEPips, 1), formatF(t.MAEPips, 1),
		}
		if err := cw.Write(rec); err != nil {
			return errors.Wrap(err, "write trade")
		}
	}
	cw.Flush()
	return errors.Wrap(cw.Error(), "flush csv")
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func formatPrice(px, tick float64) string {
	prec := -1
	if tick > 0 {
		prec = int(math.Max(0, math.Round(-math.Log10(tick))))
	}
	return strconv.FormatFloat(helper.RoundToTick(px, tick), 'f', prec, 64)
}

func formatF(f float64, prec int) string { return strconv.FormatFloat(f, 'f', prec, 64) }
