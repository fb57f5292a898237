package service

import (
	"math"
	"time"

	"pivot_backtest/internal/models"
)

const threeDays = 72 * time.Hour

// Resample3D собирает 3D из дневок: окна по 3 календарных дня от полуночи первого бара,
// пустые окна (выходные) выпадают.
func Resample3D(daily *models.Series) (*models.Series, error) {
	if daily == nil || daily.Len() == 0 {
		return nil, models.ErrDataUnavailable
	}
	first := daily.Bars[0].Time.UTC()
	origin := time.Date(first.Year(), first.Month(), first.Day(), 0, 0, 0, 0, time.UTC)

	out := make([]models.Bar, 0, daily.Len()/3+1)
	var cur models.Bar
	bucket := int64(-1)
	for _, b := range daily.Bars {
		n := int64(b.Time.Sub(origin) / threeDays)
		if n != bucket {
			if bucket >= 0 {
				out = append(out, cur)
			}
			bucket = n
			cur = models.Bar{
				Time:   origin.Add(time.Duration(n) * threeDays),
				Open:   b.Open,
				High:   b.High,
				Low:    b.Low,
				Close:  b.Close,
				Volume: b.Volume,
			}
			continue
		}
		cur.High = math.Max(cur.High, b.High)
		cur.Low = math.Min(cur.Low, b.Low)
		cur.Close = b.Close
		cur.Volume += b.Volume
	}
	out = append(out, cur)

	return models.NewSeries(daily.Pair, models.TF3Day, out)
}
