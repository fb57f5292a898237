package service

import (
	"github.com/markcheno/go-talib"

	"pivot_backtest/internal/models"
)

const atrPeriod = 14

// htfATR: ATR(14) по серии HTF. Значение на индексе K2 известно к valid_time пивота.
func htfATR(s *models.Series) []float64 {
	if s == nil || s.Len() <= atrPeriod {
		return nil
	}
	highs := make([]float64, s.Len())
	lows := make([]float64, s.Len())
	closes := make([]float64, s.Len())
	for i, b := range s.Bars {
		highs[i] = b.High
		lows[i] = b.Low
		closes[i] = b.Close
	}
	return talib.Atr(highs, lows, closes, atrPeriod)
}

// gapATR: размер gap в ATR. 0, если ATR на K2 ещё не посчитан.
func gapATR(atr []float64, pv models.Pivot) float64 {
	if pv.Index < 0 || pv.Index >= len(atr) || atr[pv.Index] <= 0 {
		return 0
	}
	return pv.GapSize / atr[pv.Index]
}
