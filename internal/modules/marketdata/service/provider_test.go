package service

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pivot_backtest/internal/models"
)

type memProvider struct {
	series map[models.Timeframe]*models.Series
	calls  []models.Timeframe
}

func (m *memProvider) Name() string { return "mem" }

func (m *memProvider) Load(_ context.Context, pair string, tf models.Timeframe) (*models.Series, error) {
	m.calls = append(m.calls, tf)
	s, ok := m.series[tf]
	if !ok {
		return nil, errors.Wrapf(models.ErrDataUnavailable, "%s %s", pair, tf)
	}
	return s, nil
}

var d0 = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func dailySeries(t *testing.T, n int) *models.Series {
	t.Helper()
	bars := make([]models.Bar, n)
	for i := range bars {
		base := 1.1 + float64(i)*0.001
		bars[i] = models.Bar{
			Time:   d0.Add(time.Duration(i) * 24 * time.Hour),
			Open:   base,
			High:   base + 0.002,
			Low:    base - 0.002,
			Close:  base + 0.001,
			Volume: 10,
		}
	}
	s, err := models.NewSeries("EURUSD", models.TFDay, bars)
	require.NoError(t, err)
	return s
}

func TestResample3D(t *testing.T) {
	daily := dailySeries(t, 7)
	// дырка: без 5-го дня
	daily.Bars = append(daily.Bars[:4:4], daily.Bars[5:]...)

	s, err := Resample3D(daily)
	require.NoError(t, err)
	require.Equal(t, 3, s.Len())
	assert.Equal(t, models.TF3Day, s.TF)

	first := s.Bars[0]
	assert.Equal(t, d0, first.Time)
	assert.InDelta(t, 1.100, first.Open, 1e-12)
	assert.InDelta(t, 1.102+0.002, first.High, 1e-12)
	assert.InDelta(t, 1.100-0.002, first.Low, 1e-12)
	assert.InDelta(t, 1.102+0.001, first.Close, 1e-12)
	assert.Equal(t, 30.0, first.Volume)

	second := s.Bars[1]
	assert.Equal(t, d0.Add(72*time.Hour), second.Time)
	assert.Equal(t, 20.0, second.Volume) // дни 4 и 6

	assert.Equal(t, d0.Add(144*time.Hour), s.Bars[2].Time)

	_, err = Resample3D(nil)
	assert.ErrorIs(t, err, models.ErrDataUnavailable)
}

func TestLoader_Builds3DFromDaily(t *testing.T) {
	mem := &memProvider{series: map[models.Timeframe]*models.Series{
		models.TFDay: dailySeries(t, 6),
	}}
	l := NewLoader(mem)

	s, err := l.Load(context.Background(), "EURUSD", models.TF3Day)
	require.NoError(t, err)
	assert.Equal(t, 2, s.Len())
	assert.Equal(t, []models.Timeframe{models.TF3Day, models.TFDay}, mem.calls)
}

func TestLoader_NoFallbackForOtherTF(t *testing.T) {
	l := NewLoader(&memProvider{series: map[models.Timeframe]*models.Series{}})

	_, err := l.Load(context.Background(), "EURUSD", models.TFWeek)
	assert.True(t, errors.Is(err, models.ErrDataUnavailable))

	_, err = l.Load(context.Background(), "EURUSD", models.TF3Day)
	assert.True(t, errors.Is(err, models.ErrDataUnavailable))
}

func TestLoader_LoadSet(t *testing.T) {
	mem := &memProvider{series: map[models.Timeframe]*models.Series{
		models.TFDay: dailySeries(t, 3),
	}}
	l := NewLoader(mem)

	set, failed := l.LoadSet(context.Background(), "EURUSD",
		[]models.Timeframe{models.TFDay, models.TFWeek, models.TFDay})
	_, ok := set.Get(models.TFDay)
	assert.True(t, ok)
	require.Len(t, failed, 1)
	assert.True(t, errors.Is(failed[models.TFWeek], models.ErrDataUnavailable))
	assert.Len(t, mem.calls, 2)
}
