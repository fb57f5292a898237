package service

import (
	"fmt"
	"math"

	"pivot_backtest/internal/models"
)

// PivotDetector ищет двухбарные развороты на старшем ТФ.
type PivotDetector struct {
	minBodyPct float64
}

func NewPivotDetector(minBodyPct float64) (*PivotDetector, error) {
	if math.IsNaN(minBodyPct) || minBodyPct < 0 || minBodyPct >= 100 {
		return nil, fmt.Errorf("min_body_pct must be in [0, 100), got %v", minBodyPct)
	}
	return &PivotDetector{minBodyPct: minBodyPct}, nil
}

// Detect проходит по всем соседним парам K1/K2. На пару не больше одного пивота,
// порядок по времени K2.
func (d *PivotDetector) Detect(bars []models.Bar) []models.Pivot {
	out := make([]models.Pivot, 0, len(bars)/8)
	for i := 1; i < len(bars); i++ {
		k1, k2 := bars[i-1], bars[i]

		// doji-фильтр
		if k1.BodyPct() < d.minBodyPct || k2.BodyPct() < d.minBodyPct {
			continue
		}
		dir, ok := models.ClassifyPair(k1, k2)
		if !ok {
			continue
		}

		extreme, near := models.WickPoints(dir, k1, k2)
		level := k2.Open // без смещения, чистый open K2
		gap := math.Abs(level - extreme)
		if gap <= 0 {
			continue
		}

		// валиден после закрытия K2, т.е. с open следующего бара
		valid := k2.Time
		if i+1 < len(bars) {
			valid = bars[i+1].Time
		}

		out = append(out, models.Pivot{
			Index:     i,
			K1Time:    k1.Time,
			Time:      k2.Time,
			ValidTime: valid,
			Direction: dir,
			Level:     level,
			Extreme:   extreme,
			Near:      near,
			GapSize:   gap,
		})
	}
	return out
}
