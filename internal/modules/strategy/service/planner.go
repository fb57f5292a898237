package service

import (
	"fmt"
	"math"

	"pivot_backtest/internal/models"
)

// Plan: уровни сделки.
type Plan struct {
	SL float64
	TP float64
	RR float64
}

// Planner считает SL/TP/RR от пивота.
//
//	TP = pivot level ± gap (Fib -1)
//	SL = дальний из: extreme ∓ slBufferFrac*gap (Fib 1.1) и entry ∓ minSLPips
//	RR < rrFloor => нет сетапа; RR > rrCeiling => стоп подтягиваем до rrCeiling
type Planner struct {
	minSLPips    float64
	rrFloor      float64
	rrCeiling    float64
	slBufferFrac float64
}

func NewPlanner(minSLPips, rrFloor, rrCeiling, slBufferFrac float64) (*Planner, error) {
	switch {
	case math.IsNaN(minSLPips) || minSLPips < 0:
		return nil, fmt.Errorf("min_sl_distance_pips must be >= 0, got %v", minSLPips)
	case math.IsNaN(rrFloor) || rrFloor <= 0:
		return nil, fmt.Errorf("rr_floor must be > 0, got %v", rrFloor)
	case math.IsNaN(rrCeiling) || rrCeiling < rrFloor:
		return nil, fmt.Errorf("rr_ceiling must be >= rr_floor, got %v < %v", rrCeiling, rrFloor)
	case math.IsNaN(slBufferFrac) || slBufferFrac < 0:
		return nil, fmt.Errorf("sl_buffer_frac must be >= 0, got %v", slBufferFrac)
	}
	return &Planner{
		minSLPips:    minSLPips,
		rrFloor:      rrFloor,
		rrCeiling:    rrCeiling,
		slBufferFrac: slBufferFrac,
	}, nil
}

// Plan возвращает ok=false, если сетап невалиден. Это штатная ситуация, не ошибка.
func (p *Planner) Plan(dir models.Direction, entry float64, pv models.Pivot, pipSize float64) (Plan, bool) {
	if pipSize <= 0 || pv.GapSize <= 0 {
		return Plan{}, false
	}
	gap := pv.GapSize
	minDist := p.minSLPips * pipSize

	var sl, tp float64
	if dir == models.DirectionBullish {
		tp = pv.Level + gap
		sl = math.Min(pv.Extreme-p.slBufferFrac*gap, entry-minDist)
		if sl >= entry {
			return Plan{}, false
		}
	} else {
		tp = pv.Level - gap
		sl = math.Max(pv.Extreme+p.slBufferFrac*gap, entry+minDist)
		if sl <= entry {
			return Plan{}, false
		}
	}

	sign := dir.Sign()
	risk := sign * (entry - sl)
	reward := sign * (tp - entry)
	if risk <= 0 || reward <= 0 {
		return Plan{}, false
	}

	rr := reward / risk
	if rr < p.rrFloor {
		return Plan{}, false
	}
	if rr > p.rrCeiling {
		sl = entry - sign*reward/p.rrCeiling
		rr = p.rrCeiling
	}
	return Plan{SL: sl, TP: tp, RR: rr}, true
}
