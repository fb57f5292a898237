package service

import (
	"fmt"
	"math"
	"sort"
	"time"

	"pivot_backtest/internal/models"
	"pivot_backtest/internal/modules/config"
)

// QualitySample: исход одной комбинации TP x SL на одном пивоте.
type QualitySample struct {
	Pair      string
	HTF       models.Timeframe
	TPMult    float64
	SLMult    float64
	EntryTime time.Time
	ExitTime  time.Time
	Win       bool
	PnLPips   float64
}

// QualityGrid проверяет, насколько рынок уважает голый пивот: вход на уровне
// при первом касании gap box на ТФ исполнения, без уточнений и без RR-фильтра.
type QualityGrid struct {
	tp, sl         []float64
	minGap, maxGap float64 // пипсы, 0 = без границы
}

// NewQualityGrid: nil, если сетка выключена.
func NewQualityGrid(cfg config.QualityConfig) (*QualityGrid, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &QualityGrid{
		tp:     append([]float64(nil), cfg.TPMultipliers...),
		sl:     append([]float64(nil), cfg.SLMultipliers...),
		minGap: cfg.MinGapPips,
		maxGap: cfg.MaxGapPips,
	}, nil
}

func (g *QualityGrid) String() string {
	return fmt.Sprintf("tp=%v sl=%v gap=[%v, %v]", g.tp, g.sl, g.minGap, g.maxGap)
}

// Samples: по одному исходу на каждую комбинацию. Пивот вне фильтра по gap,
// без касания или без выхода до конца данных не даёт ничего.
func (g *QualityGrid) Samples(pair string, htf models.Timeframe, pv models.Pivot,
	exec []models.Bar, pipSize float64) []QualitySample {
	if pipSize <= 0 || pv.GapSize <= 0 {
		return nil
	}
	gapPips := pv.GapSize / pipSize
	if gapPips < g.minGap || (g.maxGap > 0 && gapPips > g.maxGap) {
		return nil
	}

	entryIdx := -1
	lo, hi := pv.GapLow(), pv.GapHigh()
	for i := models.SearchBars(exec, pv.ValidTime); i < len(exec); i++ {
		if exec[i].Low <= hi && exec[i].High >= lo {
			entryIdx = i
			break
		}
	}
	if entryIdx < 0 {
		return nil
	}

	sign := pv.Direction.Sign()
	entry := pv.Level
	var out []QualitySample
	for _, tpMult := range g.tp {
		for _, slMult := range g.sl {
			tp := entry + sign*tpMult*pv.GapSize
			sl := pv.Extreme - sign*slMult*pv.GapSize
			exitIdx, win, ok := qualityExit(pv.Direction, exec[entryIdx:], tp, sl)
			if !ok {
				continue
			}
			exitPx := sl
			if win {
				exitPx = tp
			}
			out = append(out, QualitySample{
				Pair:      pair,
				HTF:       htf,
				TPMult:    tpMult,
				SLMult:    slMult,
				EntryTime: exec[entryIdx].Time,
				ExitTime:  exec[entryIdx+exitIdx].Time,
				Win:       win,
				PnLPips:   sign * (exitPx - entry) / pipSize,
			})
		}
	}
	return out
}

// qualityExit: SL раньше TP на одном баре, как в симуляторе.
func qualityExit(dir models.Direction, bars []models.Bar, tp, sl float64) (int, bool, bool) {
	for i, b := range bars {
		if dir == models.DirectionBullish {
			if b.Low <= sl {
				return i, false, true
			}
			if b.High >= tp {
				return i, true, true
			}
			continue
		}
		if b.High >= sl {
			return i, false, true
		}
		if b.Low <= tp {
			return i, true, true
		}
	}
	return 0, false, false
}

type qualityKey struct {
	htf    models.Timeframe
	tp, sl float64
}

// Stats сворачивает исходы по (htf, tp, sl) в порядке htfs и сетки.
// Серии и просадка считаются по исходам в порядке входа.
func (g *QualityGrid) Stats(htfs []models.Timeframe, samples []QualitySample) []models.QualityStats {
	sorted := append([]QualitySample(nil), samples...)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if !a.EntryTime.Equal(b.EntryTime) {
			return a.EntryTime.Before(b.EntryTime)
		}
		return a.Pair < b.Pair
	})

	groups := make(map[qualityKey][]QualitySample)
	for _, s := range sorted {
		k := qualityKey{htf: s.HTF, tp: s.TPMult, sl: s.SLMult}
		groups[k] = append(groups[k], s)
	}

	var out []models.QualityStats
	for _, htf := range htfs {
		for _, tp := range g.tp {
			for _, sl := range g.sl {
				group := groups[qualityKey{htf: htf, tp: tp, sl: sl}]
				if len(group) == 0 {
					continue
				}
				st := qualityStats(group)
				st.HTF, st.TPMult, st.SLMult = htf, tp, sl
				out = append(out, st)
			}
		}
	}
	return out
}

func qualityStats(samples []QualitySample) models.QualityStats {
	st := models.QualityStats{Trades: len(samples)}

	var (
		winPips, lossPips float64
		hours             float64
		cum, peak         float64
		winRun, lossRun   int
	)
	for _, s := range samples {
		h := s.ExitTime.Sub(s.EntryTime).Hours()
		hours += h
		if h > st.MaxDurationHours {
			st.MaxDurationHours = h
		}
		st.TotalPips += s.PnLPips

		if s.Win {
			st.Wins++
			winPips += s.PnLPips
			winRun++
			lossRun = 0
		} else {
			st.Losses++
			lossPips += s.PnLPips
			lossRun++
			winRun = 0
		}
		if winRun > st.MaxConsecWins {
			st.MaxConsecWins = winRun
		}
		if lossRun > st.MaxConsecLosses {
			st.MaxConsecLosses = lossRun
		}

		// просадка от пика накопленных пипсов, пик стартует с нуля
		cum += s.PnLPips
		if cum > peak {
			peak = cum
		}
		if dd := peak - cum; dd > st.MaxDDPips {
			st.MaxDDPips = dd
		}
	}

	n := float64(len(samples))
	st.WinRate = float64(st.Wins) / n * 100
	st.Expectancy = st.TotalPips / n
	st.AvgDurationHours = hours / n
	if st.Wins > 0 {
		st.AvgWinPips = winPips / float64(st.Wins)
	}
	if st.Losses > 0 {
		st.AvgLossPips = lossPips / float64(st.Losses)
	}
	if st.AvgLossPips != 0 {
		st.RRRatio = math.Abs(st.AvgWinPips / st.AvgLossPips)
	}
	if lossPips != 0 {
		st.ProfitFactor = winPips / -lossPips
	}
	return st
}
