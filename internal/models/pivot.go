package models

import (
	"math"
	"time"
)

type Direction string

const (
	DirectionBullish Direction = "bullish"
	DirectionBearish Direction = "bearish"
)

// Sign: +1 для bullish, -1 для bearish.
func (d Direction) Sign() float64 {
	if d == DirectionBearish {
		return -1
	}
	return 1
}

// ClassifyPair определяет направление пары K1/K2 по цвету тел.
// K1 красная + K2 зелёная => bullish, K1 зелёная + K2 красная => bearish.
func ClassifyPair(k1, k2 Bar) (Direction, bool) {
	switch {
	case k1.IsRed() && k2.IsGreen():
		return DirectionBullish, true
	case k1.IsGreen() && k2.IsRed():
		return DirectionBearish, true
	default:
		return "", false
	}
}

// WickPoints: extreme (дальний фитиль) и near (ближний фитиль) пары K1/K2.
func WickPoints(dir Direction, k1, k2 Bar) (extreme, near float64) {
	if dir == DirectionBullish {
		return math.Min(k1.Low, k2.Low), math.Max(k1.Low, k2.Low)
	}
	return math.Max(k1.High, k2.High), math.Min(k1.High, k2.High)
}

// Pivot: разворот из двух баров на старшем ТФ.
type Pivot struct {
	Index     int       `json:"index"`
	K1Time    time.Time `json:"k1_time"`
	Time      time.Time `json:"time"`       // K2 open
	ValidTime time.Time `json:"valid_time"` // open бара после K2 (или K2, если он последний)
	Direction Direction `json:"direction"`
	Level     float64   `json:"pivot_level"` // K2 open
	Extreme   float64   `json:"extreme"`
	Near      float64   `json:"near"`
	GapSize   float64   `json:"gap_size"`
}

func (p Pivot) GapLow() float64  { return math.Min(p.Level, p.Extreme) }
func (p Pivot) GapHigh() float64 { return math.Max(p.Level, p.Extreme) }

// WickLow/WickHigh: границы wick difference (между extreme и near).
func (p Pivot) WickLow() float64  { return math.Min(p.Extreme, p.Near) }
func (p Pivot) WickHigh() float64 { return math.Max(p.Extreme, p.Near) }
func (p Pivot) WickSize() float64 { return math.Abs(p.Near - p.Extreme) }

// Refinement: вложенный разворот на младшем ТФ внутри пивота.
type Refinement struct {
	Timeframe Timeframe `json:"timeframe"`
	Time      time.Time `json:"time"` // K2 open
	Direction Direction `json:"direction"`
	Level     float64   `json:"pivot_level"`
	Extreme   float64   `json:"extreme"`
	Near      float64   `json:"near"`
	Size      float64   `json:"size"` // |extreme - near|
}

// EntryLevel: вход по near, не по extreme: extreme ближе к стопу.
func (r Refinement) EntryLevel() float64 { return r.Near }
