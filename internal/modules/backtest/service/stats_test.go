package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"pivot_backtest/internal/models"
)

var t0 = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func closed(i int, dir models.Direction, r float64) models.Trade {
	entry := t0.Add(time.Duration(i) * 24 * time.Hour)
	return models.Trade{
		Pair:      "EURUSD",
		HTF:       models.TFWeek,
		Direction: dir,
		EntryTime: entry,
		ExitTime:  entry.Add(2 * time.Hour),
		PnLR:      r,
	}
}

func TestSummarizeEmpty(t *testing.T) {
	s := Summarize(nil, 0.01, 100000)
	assert.Equal(t, 0, s.Trades)
	assert.Equal(t, 100000.0, s.EndCapital)
	assert.Zero(t, s.MaxDDPct)
	assert.Zero(t, s.ProfitFactor)
}

func TestSummarizeMixed(t *testing.T) {
	trades := []models.Trade{
		closed(0, models.DirectionBullish, 1.5),
		closed(1, models.DirectionBearish, -1),
		closed(2, models.DirectionBullish, -1),
		closed(3, models.DirectionBullish, 1.5),
		closed(4, models.DirectionBearish, -1),
	}
	s := Summarize(trades, 0.01, 100000)

	assert.Equal(t, 5, s.Trades)
	assert.Equal(t, 2, s.Wins)
	assert.Equal(t, 3, s.Losses)
	assert.Equal(t, 3, s.Longs)
	assert.Equal(t, 2, s.Shorts)
	assert.InDelta(t, 40.0, s.WinRate, 1e-9)
	assert.InDelta(t, 0.0, s.TotalR, 1e-9)
	assert.InDelta(t, 0.0, s.Expectancy, 1e-9)
	assert.InDelta(t, 1.5, s.AvgWinR, 1e-9)
	assert.InDelta(t, -1.0, s.AvgLossR, 1e-9)
	assert.InDelta(t, 1.0, s.ProfitFactor, 1e-9)
	assert.Equal(t, 2, s.MaxLossStreak)
	assert.InDelta(t, 0.0, s.SQN, 1e-9)

	// 101500 -> 100500 -> 99500: просадка 2000 от пика 101500
	assert.InDelta(t, 2000.0/101500*100, s.MaxDDPct, 1e-9)
	assert.InDelta(t, 100000.0, s.EndCapital, 1e-6)
	assert.InDelta(t, 0.0, s.ReturnPct, 1e-9)
	assert.Equal(t, 2*time.Hour, s.AvgDuration)
}

func TestSummarizeNoLosses(t *testing.T) {
	trades := []models.Trade{
		closed(0, models.DirectionBullish, 1.5),
		closed(1, models.DirectionBullish, 0.5),
	}
	s := Summarize(trades, 0.01, 100000)

	assert.Equal(t, 2, s.Wins)
	assert.Zero(t, s.Losses)
	assert.Zero(t, s.ProfitFactor)
	assert.Zero(t, s.MaxDDPct)
	assert.InDelta(t, 2.0, s.ReturnPct, 1e-9)
	assert.InDelta(t, 102000.0, s.EndCapital, 1e-6)
	// mean 1, stdev sqrt(0.5)
	assert.InDelta(t, 2.0, s.SQN, 1e-9)
}

func TestSummarizeBreakevenIsLoss(t *testing.T) {
	s := Summarize([]models.Trade{closed(0, models.DirectionBearish, 0)}, 0.01, 100000)
	assert.Equal(t, 0, s.Wins)
	assert.Equal(t, 1, s.Losses)
	assert.Equal(t, 1, s.MaxLossStreak)
}
