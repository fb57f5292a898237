package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pivot_backtest/internal/models"
	"pivot_backtest/internal/modules/config"
)

func h1(i int, o, h, l, c float64) models.Bar {
	return models.Bar{Time: t0.Add(time.Duration(i) * time.Hour), Open: o, High: h, Low: l, Close: c}
}

// бычий пивот: уровень 1.1000, extreme 1.0950, gap 50 пипсов
func qualityPivot() models.Pivot {
	return models.Pivot{
		Time:      t0.Add(-7 * 24 * time.Hour),
		ValidTime: t0,
		Direction: models.DirectionBullish,
		Level:     1.1000,
		Extreme:   1.0950,
		Near:      1.0960,
		GapSize:   0.0050,
	}
}

func qualityBars() []models.Bar {
	return []models.Bar{
		h1(0, 1.1030, 1.1040, 1.1010, 1.1020), // над gap
		h1(1, 1.1020, 1.1025, 1.0990, 1.1005), // касание => вход
		h1(2, 1.1005, 1.1055, 1.1000, 1.1050), // TP x1
		h1(3, 1.1050, 1.1060, 1.0940, 1.0945), // SL на extreme
		h1(4, 1.0945, 1.1080, 1.0890, 1.0900), // SL x1
	}
}

func testQualityGrid(t *testing.T) *QualityGrid {
	t.Helper()
	g, err := NewQualityGrid(config.QualityConfig{
		Enabled:       true,
		TPMultipliers: []float64{1, 2},
		SLMultipliers: []float64{0, 1},
		MinGapPips:    10,
		MaxGapPips:    250,
	})
	require.NoError(t, err)
	require.NotNil(t, g)
	return g
}

func TestNewQualityGrid(t *testing.T) {
	g, err := NewQualityGrid(config.QualityConfig{})
	assert.NoError(t, err)
	assert.Nil(t, g)

	_, err = NewQualityGrid(config.QualityConfig{Enabled: true, TPMultipliers: []float64{1}})
	assert.Error(t, err)
}

func TestQualityGrid_Samples(t *testing.T) {
	g := testQualityGrid(t)
	samples := g.Samples("EURUSD", models.TFWeek, qualityPivot(), qualityBars(), 0.0001)
	require.Len(t, samples, 4)

	cases := []struct {
		tp, sl float64
		win    bool
		pips   float64
		exit   int
	}{
		{1, 0, true, 50, 2},
		{1, 1, true, 50, 2},
		{2, 0, false, -50, 3},
		{2, 1, false, -100, 4},
	}
	for i, c := range cases {
		s := samples[i]
		assert.Equal(t, c.tp, s.TPMult)
		assert.Equal(t, c.sl, s.SLMult)
		assert.Equal(t, c.win, s.Win, "tp=%v sl=%v", c.tp, c.sl)
		assert.InDelta(t, c.pips, s.PnLPips, 1e-6)
		assert.Equal(t, t0.Add(time.Hour), s.EntryTime)
		assert.Equal(t, t0.Add(time.Duration(c.exit)*time.Hour), s.ExitTime)
		assert.Equal(t, "EURUSD", s.Pair)
		assert.Equal(t, models.TFWeek, s.HTF)
	}
}

func TestQualityGrid_SamplesBearish(t *testing.T) {
	g := testQualityGrid(t)
	pv := models.Pivot{
		ValidTime: t0,
		Direction: models.DirectionBearish,
		Level:     1.2000,
		Extreme:   1.2040,
		GapSize:   0.0040,
	}
	bars := []models.Bar{
		h1(0, 1.1990, 1.2005, 1.1980, 1.1985), // касание
		h1(1, 1.1985, 1.1990, 1.1955, 1.1960), // TP x1 = 1.1960
		h1(2, 1.1960, 1.2045, 1.1950, 1.2040), // SL на extreme
	}
	samples := g.Samples("EURUSD", models.TFWeek, pv, bars, 0.0001)
	// tp x2 = 1.1920 при SL x1 = 1.2080: до конца данных выхода нет
	require.Len(t, samples, 3)

	assert.True(t, samples[0].Win)
	assert.InDelta(t, 40, samples[0].PnLPips, 1e-6)
	assert.Equal(t, t0, samples[0].EntryTime)
	assert.Equal(t, t0.Add(time.Hour), samples[0].ExitTime)
	assert.True(t, samples[1].Win)

	assert.Equal(t, 2.0, samples[2].TPMult)
	assert.Equal(t, 0.0, samples[2].SLMult)
	assert.False(t, samples[2].Win)
	assert.InDelta(t, -40, samples[2].PnLPips, 1e-6)
}

func TestQualityGrid_SkippedPivots(t *testing.T) {
	g := testQualityGrid(t)
	bars := qualityBars()

	small := qualityPivot()
	small.Extreme, small.GapSize = 1.0995, 0.0005
	assert.Empty(t, g.Samples("EURUSD", models.TFWeek, small, bars, 0.0001))

	large := qualityPivot()
	large.Extreme, large.GapSize = 1.0700, 0.0300
	assert.Empty(t, g.Samples("EURUSD", models.TFWeek, large, bars, 0.0001))

	// касание до valid_time не считается
	late := qualityPivot()
	late.ValidTime = t0.Add(5 * time.Hour)
	assert.Empty(t, g.Samples("EURUSD", models.TFWeek, late, bars, 0.0001))

	assert.Empty(t, g.Samples("EURUSD", models.TFWeek, qualityPivot(), bars[:1], 0.0001))
}

func TestQualityGrid_SLBeforeTPOnSameBar(t *testing.T) {
	g := testQualityGrid(t)
	bars := []models.Bar{
		h1(0, 1.1010, 1.1060, 1.0940, 1.1000), // касание, TP x1 и SL на extreme в одном баре
	}
	samples := g.Samples("EURUSD", models.TFWeek, qualityPivot(), bars, 0.0001)
	require.Len(t, samples, 3)

	assert.Equal(t, 1.0, samples[0].TPMult)
	assert.Equal(t, 0.0, samples[0].SLMult)
	assert.False(t, samples[0].Win)
	assert.InDelta(t, -50, samples[0].PnLPips, 1e-6)
	// SL x1 = 1.0900 не задет, TP x1 засчитан
	assert.True(t, samples[1].Win)
	assert.Equal(t, 1.0, samples[1].SLMult)
	assert.False(t, samples[2].Win)
}

func TestQualityGrid_Stats(t *testing.T) {
	g := testQualityGrid(t)
	sample := func(hour int, dur time.Duration, pips float64) QualitySample {
		entry := t0.Add(time.Duration(hour) * time.Hour)
		return QualitySample{
			Pair: "EURUSD", HTF: models.TFWeek, TPMult: 1, SLMult: 0,
			EntryTime: entry, ExitTime: entry.Add(dur), Win: pips > 0, PnLPips: pips,
		}
	}
	// порядок входа: +50, -30, -20, +40
	samples := []QualitySample{
		sample(30, 3*time.Hour, 40),
		sample(0, 2*time.Hour, 50),
		sample(20, time.Hour, -20),
		sample(10, 4*time.Hour, -30),
	}
	other := sample(5, time.Hour, 10)
	other.HTF = models.TFMonth
	samples = append(samples, other)

	stats := g.Stats([]models.Timeframe{models.TFWeek}, samples)
	require.Len(t, stats, 1)
	st := stats[0]

	assert.Equal(t, models.TFWeek, st.HTF)
	assert.Equal(t, 4, st.Trades)
	assert.Equal(t, 2, st.Wins)
	assert.Equal(t, 2, st.Losses)
	assert.InDelta(t, 50.0, st.WinRate, 1e-9)
	assert.InDelta(t, 45.0, st.AvgWinPips, 1e-9)
	assert.InDelta(t, -25.0, st.AvgLossPips, 1e-9)
	assert.InDelta(t, 1.8, st.RRRatio, 1e-9)
	assert.InDelta(t, 1.8, st.ProfitFactor, 1e-9)
	assert.InDelta(t, 10.0, st.Expectancy, 1e-9)
	assert.InDelta(t, 40.0, st.TotalPips, 1e-9)
	assert.InDelta(t, 2.5, st.AvgDurationHours, 1e-9)
	assert.InDelta(t, 4.0, st.MaxDurationHours, 1e-9)
	assert.Equal(t, 1, st.MaxConsecWins)
	assert.Equal(t, 2, st.MaxConsecLosses)
	assert.InDelta(t, 50.0, st.MaxDDPips, 1e-9)

	// без убыточных PF = 0
	stats = g.Stats([]models.Timeframe{models.TFMonth}, samples)
	require.Len(t, stats, 1)
	assert.Equal(t, 0.0, stats[0].ProfitFactor)
	assert.Equal(t, 0.0, stats[0].RRRatio)
	assert.Equal(t, 0.0, stats[0].MaxDDPips)
}

// gapEngine: один бычий пивот с gap на старте данных.
type gapEngine struct {
	fakeEngine
}

func (e *gapEngine) DetectPivots(s *models.Series) []models.Pivot {
	pv := qualityPivot()
	pv.Time = s.Bars[0].Time
	return []models.Pivot{pv}
}

func TestRunnerQualityGrid(t *testing.T) {
	loader := &fakeLoader{data: map[string]models.SeriesSet{
		"EURUSD": {
			models.TFWeek:  weekly("EURUSD", 1),
			models.TF1Hour: &models.Series{Pair: "EURUSD", TF: models.TF1Hour, Bars: qualityBars()},
		},
	}}
	cfg := testBacktestConfig()
	cfg.Pairs = []string{"EURUSD"}
	cfg.Quality = config.QualityConfig{
		Enabled:       true,
		TPMultipliers: []float64{1, 2},
		SLMultipliers: []float64{0, 1},
		MinGapPips:    10,
		MaxGapPips:    250,
	}
	r, err := NewRunner(loader, &gapEngine{}, cfg, nil)
	require.NoError(t, err)

	res, err := r.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, res.Quality, 4)

	first := res.Quality[0]
	assert.Equal(t, models.TFWeek, first.HTF)
	assert.Equal(t, 1.0, first.TPMult)
	assert.Equal(t, 0.0, first.SLMult)
	assert.Equal(t, 1, first.Trades)
	assert.Equal(t, 1, first.Wins)

	last := res.Quality[3]
	assert.Equal(t, 2.0, last.TPMult)
	assert.Equal(t, 1.0, last.SLMult)
	assert.InDelta(t, -100, last.TotalPips, 1e-6)

	cfg.Quality.Enabled = false
	r, err = NewRunner(loader, &gapEngine{}, cfg, nil)
	require.NoError(t, err)
	res, err = r.Run(context.Background())
	require.NoError(t, err)
	assert.Nil(t, res.Quality)
}
