package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pivot_backtest/internal/models"
	"pivot_backtest/internal/modules/config"
	strategy "pivot_backtest/internal/modules/strategy/service"
)

type fakeLoader struct {
	data map[string]models.SeriesSet
}

func (l *fakeLoader) LoadSet(_ context.Context, pair string, tfs []models.Timeframe) (models.SeriesSet, map[models.Timeframe]error) {
	set := make(models.SeriesSet)
	failed := make(map[models.Timeframe]error)
	for _, tf := range tfs {
		if s, ok := l.data[pair][tf]; ok {
			set[tf] = s
			continue
		}
		failed[tf] = models.ErrDataUnavailable
	}
	return set, failed
}

// fakeEngine: пивот на каждом баре HTF, сделка на чётных индексах.
type fakeEngine struct {
	panicOn map[string]int
}

func (e *fakeEngine) Name() string           { return "fake" }
func (e *fakeEngine) PipSize(string) float64 { return 0.0001 }

func (e *fakeEngine) DetectPivots(s *models.Series) []models.Pivot {
	out := make([]models.Pivot, 0, s.Len())
	for i, b := range s.Bars {
		out = append(out, models.Pivot{Index: i, Time: b.Time, Direction: models.DirectionBullish})
	}
	return out
}

func (e *fakeEngine) Refinements(models.Pivot, models.Timeframe, models.SeriesSet) []models.Refinement {
	return nil
}

func (e *fakeEngine) ProcessPivot(pair string, htf models.Timeframe, pv models.Pivot,
	_ models.SeriesSet) (*models.Trade, strategy.Outcome, error) {
	if idx, ok := e.panicOn[pair]; ok && idx == pv.Index {
		panic("broken pivot")
	}
	if pv.Index%2 == 1 {
		return nil, strategy.OutcomeNoGapTouch, nil
	}
	entry := pv.Time.Add(time.Hour)
	return &models.Trade{
		Pair:      pair,
		HTF:       htf,
		Direction: pv.Direction,
		PivotTime: pv.Time,
		EntryTime: entry,
		ExitTime:  entry.Add(time.Hour),
		PnLR:      1,
	}, strategy.OutcomeTraded, nil
}

type recProgress struct {
	mu       sync.Mutex
	total    int
	done     int
	trades   int
	finished bool
	err      error
}

func (p *recProgress) BeginRun(pairs int) { p.total = pairs }
func (p *recProgress) PairDone(trades int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.done++
	p.trades += trades
}
func (p *recProgress) FinishRun(_ time.Time, err error) {
	p.finished = true
	p.err = err
}

func weekly(pair string, n int) *models.Series {
	bars := make([]models.Bar, n)
	for i := range bars {
		bars[i] = models.Bar{Time: t0.Add(time.Duration(i) * 7 * 24 * time.Hour), Open: 1, High: 1.1, Low: 0.9, Close: 1}
	}
	return &models.Series{Pair: pair, TF: models.TFWeek, Bars: bars}
}

func hourly(pair string) *models.Series {
	return &models.Series{Pair: pair, TF: models.TF1Hour, Bars: []models.Bar{{Time: t0, Open: 1, High: 1, Low: 1, Close: 1}}}
}

func testData() *fakeLoader {
	return &fakeLoader{data: map[string]models.SeriesSet{
		"EURUSD": {models.TFWeek: weekly("EURUSD", 4), models.TF1Hour: hourly("EURUSD")},
		"GBPUSD": {models.TFWeek: weekly("GBPUSD", 2), models.TF1Hour: hourly("GBPUSD")},
		// нет H1 => пара пропускается целиком
		"USDJPY": {models.TFWeek: weekly("USDJPY", 3)},
	}}
}

func testBacktestConfig() config.BacktestConfig {
	return config.BacktestConfig{
		Pairs:              []string{"eur/usd", "GBPUSD", "USDJPY"},
		HTFTimeframes:      []string{"W"},
		ExecutionTimeframe: "H1",
		Workers:            2,
		RiskPerTrade:       0.01,
		StartingCapital:    100000,
	}
}

func TestRequiredTimeframes(t *testing.T) {
	assert.Equal(t,
		[]models.Timeframe{models.TFWeek, models.TF3Day, models.TFDay, models.TF4Hour, models.TF1Hour},
		requiredTimeframes([]models.Timeframe{models.TFWeek}, models.TF1Hour))
	assert.Equal(t,
		[]models.Timeframe{models.TFMonth, models.TFWeek, models.TF3Day, models.TFDay, models.TF4Hour, models.TF1Hour},
		requiredTimeframes([]models.Timeframe{models.TF3Day, models.TFMonth}, models.TF1Hour))
}

func TestRunnerRun(t *testing.T) {
	progress := &recProgress{}
	r, err := NewRunner(testData(), &fakeEngine{}, testBacktestConfig(), progress)
	require.NoError(t, err)

	res, err := r.Run(context.Background())
	require.NoError(t, err)

	assert.NotEmpty(t, res.RunID)
	assert.Equal(t, 6, res.Pivots)
	assert.Equal(t, 0, res.Failures)
	require.Len(t, res.Trades, 3)
	assert.Equal(t, 3, res.Outcomes["traded"])
	assert.Equal(t, 3, res.Outcomes["no_gap_touch"])

	for i := 1; i < len(res.Trades); i++ {
		assert.False(t, res.Trades[i].EntryTime.Before(res.Trades[i-1].EntryTime))
	}
	// одинаковое время входа: пары по алфавиту
	assert.Equal(t, "EURUSD", res.Trades[0].Pair)
	assert.Equal(t, "GBPUSD", res.Trades[1].Pair)

	assert.Equal(t, 3, res.Summary.Trades)
	assert.InDelta(t, 3.0, res.Summary.TotalR, 1e-9)

	assert.Equal(t, 3, progress.total)
	assert.Equal(t, 3, progress.done)
	assert.Equal(t, 3, progress.trades)
	assert.True(t, progress.finished)
	assert.NoError(t, progress.err)
}

func TestRunnerRecoversPanic(t *testing.T) {
	engine := &fakeEngine{panicOn: map[string]int{"EURUSD": 2}}
	r, err := NewRunner(testData(), engine, testBacktestConfig(), nil)
	require.NoError(t, err)

	res, err := r.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 6, res.Pivots)
	assert.Equal(t, 1, res.Failures)
	assert.Len(t, res.Trades, 2)
}

func TestRunnerWindowAndSampling(t *testing.T) {
	cfg := testBacktestConfig()
	cfg.Pairs = []string{"EURUSD"}
	cfg.Start = "2024-01-08"
	r, err := NewRunner(testData(), &fakeEngine{}, cfg, nil)
	require.NoError(t, err)

	res, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, res.Pivots)
	require.Len(t, res.Trades, 1)
	assert.Equal(t, t0.Add(14*24*time.Hour), res.Trades[0].PivotTime)

	cfg.Start = ""
	cfg.SamplePivots = 2
	cfg.SampleSeed = 11
	r, err = NewRunner(testData(), &fakeEngine{}, cfg, nil)
	require.NoError(t, err)

	first, err := r.Run(context.Background())
	require.NoError(t, err)
	second, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, first.Pivots)
	assert.Equal(t, first.Outcomes, second.Outcomes)
	assert.NotEqual(t, first.RunID, second.RunID)
}

func TestRunnerCancelled(t *testing.T) {
	progress := &recProgress{}
	r, err := NewRunner(testData(), &fakeEngine{}, testBacktestConfig(), progress)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := r.Run(ctx)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Empty(t, res.Trades)
	assert.True(t, progress.finished)
}

func TestNewRunnerInvalidConfig(t *testing.T) {
	cfg := testBacktestConfig()
	cfg.ExecutionTimeframe = "5m"
	_, err := NewRunner(testData(), &fakeEngine{}, cfg, nil)
	assert.Error(t, err)
}
