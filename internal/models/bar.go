package models

import (
	"math"
	"sort"
	"time"

	"github.com/pkg/errors"
)

var (
	// ErrDataUnavailable: серии нет или она пустая.
	ErrDataUnavailable = errors.New("data unavailable")
	// ErrMalformedSeries: время не строго возрастает или бар битый.
	ErrMalformedSeries = errors.New("malformed bar series")
)

// Bar: OHLC бар, Time = время ОТКРЫТИЯ.
type Bar struct {
	Time   time.Time `json:"time"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume,omitempty"`
}

// BodyPct: доля тела от диапазона в процентах. Для нулевого диапазона 0.
func (b Bar) BodyPct() float64 {
	rng := b.High - b.Low
	if rng <= 0 {
		return 0
	}
	return math.Abs(b.Close-b.Open) / rng * 100
}

func (b Bar) IsGreen() bool { return b.Close > b.Open }
func (b Bar) IsRed() bool   { return b.Close < b.Open }

// Series: упорядоченные по времени бары одной пары на одном ТФ.
// После NewSeries не мутируется, можно шарить между воркерами.
type Series struct {
	Pair string
	TF   Timeframe
	Bars []Bar
}

// NewSeries проверяет серию: не пустая, время строго растёт, high >= low.
func NewSeries(pair string, tf Timeframe, bars []Bar) (*Series, error) {
	if len(bars) == 0 {
		return nil, errors.Wrapf(ErrDataUnavailable, "%s %s: empty series", pair, tf)
	}
	for i := range bars {
		if bars[i].High < bars[i].Low {
			return nil, errors.Wrapf(ErrMalformedSeries, "%s %s: high < low at %s",
				pair, tf, bars[i].Time.Format(time.RFC3339))
		}
		if i > 0 && !bars[i].Time.After(bars[i-1].Time) {
			return nil, errors.Wrapf(ErrMalformedSeries, "%s %s: non-monotonic time at %s",
				pair, tf, bars[i].Time.Format(time.RFC3339))
		}
	}
	return &Series{Pair: pair, TF: tf, Bars: bars}, nil
}

func (s *Series) Len() int { return len(s.Bars) }

// Search: индекс первого бара с Time >= t (len, если такого нет).
func (s *Series) Search(t time.Time) int {
	return SearchBars(s.Bars, t)
}

// Between возвращает бары с from <= Time <= to. Нулевые границы не ограничивают.
func (s *Series) Between(from, to time.Time) *Series {
	lo, hi := 0, len(s.Bars)
	if !from.IsZero() {
		lo = s.Search(from)
	}
	if !to.IsZero() {
		hi = sort.Search(len(s.Bars), func(i int) bool { return s.Bars[i].Time.After(to) })
	}
	if lo > hi {
		lo = hi
	}
	return &Series{Pair: s.Pair, TF: s.TF, Bars: s.Bars[lo:hi]}
}

// SearchBars: бинарный поиск первого бара с Time >= t.
func SearchBars(bars []Bar, t time.Time) int {
	return sort.Search(len(bars), func(i int) bool { return !bars[i].Time.Before(t) })
}

// SeriesSet: все ТФ одной пары.
type SeriesSet map[Timeframe]*Series

func (ss SeriesSet) Get(tf Timeframe) (*Series, bool) {
	s, ok := ss[tf]
	if !ok || s == nil || s.Len() == 0 {
		return nil, false
	}
	return s, true
}
