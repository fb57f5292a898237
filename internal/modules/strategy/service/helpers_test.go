package service

import (
	"time"

	"pivot_backtest/internal/models"
)

var t0 = time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)

func bar(t time.Time, o, h, l, c float64) models.Bar {
	return models.Bar{Time: t, Open: o, High: h, Low: l, Close: c}
}

// filler: n баров с шагом step, все одинаковые зелёные (пар не образуют).
func filler(start time.Time, step time.Duration, n int, o, h, l, c float64) []models.Bar {
	out := make([]models.Bar, n)
	for i := range out {
		out[i] = bar(start.Add(time.Duration(i)*step), o, h, l, c)
	}
	return out
}

func hourly(start time.Time, ohlc ...[4]float64) []models.Bar {
	out := make([]models.Bar, len(ohlc))
	for i, v := range ohlc {
		out[i] = bar(start.Add(time.Duration(i)*time.Hour), v[0], v[1], v[2], v[3])
	}
	return out
}
