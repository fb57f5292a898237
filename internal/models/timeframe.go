package models

import (
	"strings"
	"time"
)

type Timeframe string

const (
	TFMonth Timeframe = "M"
	TFWeek  Timeframe = "W"
	TF3Day  Timeframe = "3D"
	TFDay   Timeframe = "D"
	TF4Hour Timeframe = "H4"
	TF1Hour Timeframe = "H1"
	TFNone  Timeframe = ""
)

// Hierarchy: от старшего ТФ к младшему. Индекс = приоритет (меньше = важнее).
var Hierarchy = []Timeframe{TFMonth, TFWeek, TF3Day, TFDay, TF4Hour, TF1Hour}

func (tf Timeframe) String() string { return string(tf) }

// Rank: позиция в иерархии, 99 для неизвестного ТФ.
func (tf Timeframe) Rank() int {
	for i, h := range Hierarchy {
		if h == tf {
			return i
		}
	}
	return 99
}

// Lower возвращает все ТФ строго ниже tf (M -> W, 3D, D, H4, H1).
func (tf Timeframe) Lower() []Timeframe {
	r := tf.Rank()
	if r >= len(Hierarchy) {
		return nil
	}
	out := make([]Timeframe, 0, len(Hierarchy)-r-1)
	out = append(out, Hierarchy[r+1:]...)
	return out
}

// Duration: примерная длина бара (отчёты, окно бара подтверждения H4).
func (tf Timeframe) Duration() time.Duration {
	switch tf {
	case TF1Hour:
		return time.Hour
	case TF4Hour:
		return 4 * time.Hour
	case TFDay:
		return 24 * time.Hour
	case TF3Day:
		return 72 * time.Hour
	case TFWeek:
		return 7 * 24 * time.Hour
	case TFMonth:
		return 30 * 24 * time.Hour
	default:
		return 0
	}
}

// ParseTimeframe понимает варианты вроде "1h", "h1", "4H", "1d", "daily", "1w", "1M".
func ParseTimeframe(raw string) (Timeframe, bool) {
	s := strings.TrimSpace(raw)
	// "1M" (месяц) и "1m" (минута) различаются только регистром
	if s == "M" || s == "1M" || s == "MN" || s == "MN1" {
		return TFMonth, true
	}
	switch strings.ToLower(s) {
	case "h1", "1h", "60m", "60":
		return TF1Hour, true
	case "h4", "4h", "240m", "240":
		return TF4Hour, true
	case "d", "1d", "d1", "day", "daily":
		return TFDay, true
	case "3d", "d3":
		return TF3Day, true
	case "w", "1w", "w1", "week", "weekly":
		return TFWeek, true
	case "month", "monthly":
		return TFMonth, true
	default:
		return TFNone, false
	}
}
