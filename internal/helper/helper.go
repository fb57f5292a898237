package helper

import (
	"math"
	"strings"
)

const (
	pipDefault = 0.0001
	pipJPY     = 0.01
)

// NormPair приводит "eur_usd", "EUR/USD", "EUR-USD" к "EURUSD".
func NormPair(raw string) string {
	s := strings.ToUpper(strings.TrimSpace(raw))
	s = strings.NewReplacer("_", "", "/", "", "-", "", " ", "").Replace(s)
	return s
}

// PipSize: 0.01 для JPY-котируемых пар, 0.0001 для остальных.
// override (если есть для пары и > 0) имеет приоритет.
func PipSize(pair string, override map[string]float64) float64 {
	p := NormPair(pair)
	if v, ok := override[p]; ok && v > 0 {
		return v
	}
	if strings.Contains(p, "JPY") {
		return pipJPY
	}
	return pipDefault
}

// ToPips переводит разницу цен в пипсы (со знаком).
func ToPips(diff, pip float64) float64 {
	if pip <= 0 {
		return 0
	}
	return diff / pip
}

// IsClose: |a-b| <= tol.
func IsClose(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}

// RoundToTick округляет к ближайшему шагу цены.
func RoundToTick(px, tick float64) float64 {
	if tick <= 0 {
		return px
	}
	return math.Round(px/tick) * tick
}
