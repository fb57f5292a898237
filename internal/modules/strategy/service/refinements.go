package service

import (
	"fmt"
	"math"
	"sort"

	"pivot_backtest/internal/helper"
	"pivot_backtest/internal/models"
)

// RefinementDetector ищет уточнения пивота на младшем ТФ.
//
// Уточнение должно:
//   - сформироваться внутри жизни пивота: K2 в [pivot.K1Time, pivot.ValidTime);
//   - совпадать с пивотом по направлению и пройти doji-фильтр;
//   - быть не больше maxSizeFrac от gap пивота (размер = |extreme - near|);
//   - лежать целиком в wick difference пивота, либо extreme уточнения на near пивота;
//   - остаться нетронутым до pivot.ValidTime включительно.
type RefinementDetector struct {
	maxSizeFrac float64
	minBodyPct  float64
	tolerance   float64
}

func NewRefinementDetector(maxSizeFrac, minBodyPct, tolerance float64) (*RefinementDetector, error) {
	if math.IsNaN(maxSizeFrac) || maxSizeFrac <= 0 || maxSizeFrac > 1 {
		return nil, fmt.Errorf("max_size_frac must be in (0, 1], got %v", maxSizeFrac)
	}
	if math.IsNaN(minBodyPct) || minBodyPct < 0 || minBodyPct >= 100 {
		return nil, fmt.Errorf("min_body_pct must be in [0, 100), got %v", minBodyPct)
	}
	if math.IsNaN(tolerance) || tolerance < 0 {
		return nil, fmt.Errorf("position_tolerance must be >= 0, got %v", tolerance)
	}
	return &RefinementDetector{
		maxSizeFrac: maxSizeFrac,
		minBodyPct:  minBodyPct,
		tolerance:   tolerance,
	}, nil
}

// Detect возвращает уточнения в порядке сканирования (по времени).
func (d *RefinementDetector) Detect(bars []models.Bar, p models.Pivot, tf models.Timeframe) []models.Refinement {
	lo := models.SearchBars(bars, p.K1Time)
	hi := models.SearchBars(bars, p.ValidTime)
	if hi-lo < 2 {
		return nil
	}

	maxSize := p.GapSize * d.maxSizeFrac
	wickLow, wickHigh := p.WickLow(), p.WickHigh()

	var out []models.Refinement
	for i := lo + 1; i < hi; i++ {
		k1, k2 := bars[i-1], bars[i]

		if k1.BodyPct() < d.minBodyPct || k2.BodyPct() < d.minBodyPct {
			continue
		}
		dir, ok := models.ClassifyPair(k1, k2)
		if !ok || dir != p.Direction {
			continue
		}

		extreme, near := models.WickPoints(dir, k1, k2)
		// extreme не может выходить за extreme пивота
		if dir == models.DirectionBullish {
			extreme = math.Max(extreme, p.Extreme)
		} else {
			extreme = math.Min(extreme, p.Extreme)
		}

		size := math.Abs(extreme - near)
		if size == 0 || size > maxSize {
			continue
		}

		refLow, refHigh := math.Min(extreme, near), math.Max(extreme, near)
		inside := refLow >= wickLow && refHigh <= wickHigh
		onNear := helper.IsClose(extreme, p.Near, d.tolerance)
		if !inside && !onNear {
			continue
		}

		if nearTouched(bars, i+1, p, near) {
			continue
		}

		out = append(out, models.Refinement{
			Timeframe: tf,
			Time:      k2.Time,
			Direction: dir,
			Level:     k2.Open,
			Extreme:   extreme,
			Near:      near,
			Size:      size,
		})
	}
	return out
}

// nearTouched: трогал ли кто-то near начиная с bars[from] и до p.ValidTime включительно.
func nearTouched(bars []models.Bar, from int, p models.Pivot, near float64) bool {
	for j := from; j < len(bars); j++ {
		b := bars[j]
		if b.Time.After(p.ValidTime) {
			return false
		}
		if p.Direction == models.DirectionBullish {
			if b.Low <= near {
				return true
			}
		} else if b.High >= near {
			return true
		}
	}
	return false
}

// RankRefinements сортирует по старшинству ТФ (M > W > 3D > D > H4 > H1),
// затем по близости near уточнения к near пивота. Вход не меняется.
func RankRefinements(refs []models.Refinement, p models.Pivot) []models.Refinement {
	out := make([]models.Refinement, len(refs))
	copy(out, refs)
	sort.SliceStable(out, func(i, j int) bool {
		ri, rj := out[i].Timeframe.Rank(), out[j].Timeframe.Rank()
		if ri != rj {
			return ri < rj
		}
		return math.Abs(out[i].Near-p.Near) < math.Abs(out[j].Near-p.Near)
	})
	return out
}
