package service

import (
	"math"
	"time"

	"pivot_backtest/internal/models"
)

// Summarize считает агрегаты по сделкам в порядке входа.
// Сделка с pnl_r <= 0 считается убыточной. Капитал без реинвеста.
func Summarize(trades []models.Trade, riskPerTrade, startingCapital float64) models.Summary {
	s := models.Summary{Trades: len(trades), EndCapital: startingCapital}
	if len(trades) == 0 {
		return s
	}

	var (
		sumWins, sumLosses float64
		sumSq              float64
		streak             int
		totalDur           time.Duration
	)

	equity := startingCapital
	peak := startingCapital
	step := startingCapital * riskPerTrade

	for _, t := range trades {
		s.TotalR += t.PnLR
		sumSq += t.PnLR * t.PnLR
		totalDur += t.Duration()

		switch t.Direction {
		case models.DirectionBullish:
			s.Longs++
		case models.DirectionBearish:
			s.Shorts++
		}

		if t.IsWin() {
			s.Wins++
			sumWins += t.PnLR
			streak = 0
		} else {
			s.Losses++
			sumLosses += -t.PnLR
			streak++
			if streak > s.MaxLossStreak {
				s.MaxLossStreak = streak
			}
		}

		equity += t.PnLR * step
		if equity > peak {
			peak = equity
		}
		if peak > 0 {
			if dd := (peak - equity) / peak * 100; dd > s.MaxDDPct {
				s.MaxDDPct = dd
			}
		}
	}

	n := float64(len(trades))
	s.WinRate = float64(s.Wins) / n * 100
	s.Expectancy = s.TotalR / n
	if s.Wins > 0 {
		s.AvgWinR = sumWins / float64(s.Wins)
	}
	if s.Losses > 0 {
		s.AvgLossR = -sumLosses / float64(s.Losses)
	}
	if sumLosses > 0 {
		s.ProfitFactor = sumWins / sumLosses
	}

	// SQN = sqrt(n) * mean / stdev (выборочное)
	if len(trades) > 1 {
		variance := (sumSq - n*s.Expectancy*s.Expectancy) / (n - 1)
		if variance > 0 {
			s.SQN = math.Sqrt(n) * s.Expectancy / math.Sqrt(variance)
		}
	}

	s.EndCapital = equity
	if startingCapital > 0 {
		s.ReturnPct = (equity - startingCapital) / startingCapital * 100
	}
	s.AvgDuration = totalDur / time.Duration(len(trades))
	return s
}
