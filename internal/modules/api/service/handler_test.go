package service

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pivot_backtest/internal/models"
	backtest "pivot_backtest/internal/modules/backtest/service"
)

type fakeRuns struct {
	last       *models.Result
	triggerErr error
	triggered  int
}

func (f *fakeRuns) LastResult() *models.Result { return f.last }
func (f *fakeRuns) Trigger(context.Context) error {
	f.triggered++
	return f.triggerErr
}

func sampleResult() *models.Result {
	t0 := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)
	return &models.Result{
		RunID:  "run-1",
		Pivots: 10,
		Trades: []models.Trade{
			{Pair: "EURUSD", HTF: models.TFWeek, Direction: models.DirectionBullish, EntryTime: t0, PnLR: 1.5},
			{Pair: "EURUSD", HTF: models.TFMonth, Direction: models.DirectionBearish, EntryTime: t0, PnLR: -1},
			{Pair: "GBPUSD", HTF: models.TFWeek, Direction: models.DirectionBearish, EntryTime: t0, PnLR: -1},
		},
		Summary:  models.Summary{Trades: 3, Wins: 1},
		Outcomes: map[string]int{"traded": 3, "no_entry": 7},
		Quality: []models.QualityStats{
			{HTF: models.TFWeek, TPMult: 1, SLMult: 0, Trades: 4, Wins: 3},
			{HTF: models.TFMonth, TPMult: 1, SLMult: 0, Trades: 2, Wins: 1},
		},
	}
}

func do(t *testing.T, runs Runs, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	srv := NewServer(NewHandler(context.Background(), runs), ":0")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(method, target, nil))
	return rec
}

type tradesResponse struct {
	Count int            `json:"count"`
	Data  []models.Trade `json:"data"`
}

func TestGetLastRun(t *testing.T) {
	rec := do(t, &fakeRuns{}, http.MethodGet, "/api/runs/last")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, &fakeRuns{last: sampleResult()}, http.MethodGet, "/api/runs/last")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Data struct {
			RunID    string         `json:"run_id"`
			Trades   int            `json:"trades"`
			Summary  models.Summary `json:"summary"`
			Outcomes map[string]int `json:"outcomes"`
		} `json:"data"`
	}
	require.NoError(t, sonic.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "run-1", body.Data.RunID)
	assert.Equal(t, 3, body.Data.Trades)
	assert.Equal(t, 1, body.Data.Summary.Wins)
	assert.Equal(t, 7, body.Data.Outcomes["no_entry"])
}

func TestGetTradesFilters(t *testing.T) {
	runs := &fakeRuns{last: sampleResult()}

	tests := []struct {
		query string
		count int
	}{
		{"", 3},
		{"?pair=eur/usd", 2},
		{"?pair=EURUSD&htf=1w", 1},
		{"?direction=bearish", 2},
		{"?direction=bearish&limit=1", 1},
	}
	for _, tt := range tests {
		rec := do(t, runs, http.MethodGet, "/api/runs/last/trades"+tt.query)
		require.Equal(t, http.StatusOK, rec.Code, tt.query)

		var body tradesResponse
		require.NoError(t, sonic.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, tt.count, body.Count, tt.query)
		assert.Len(t, body.Data, tt.count, tt.query)
	}
}

func TestGetTradesBadQuery(t *testing.T) {
	runs := &fakeRuns{last: sampleResult()}
	assert.Equal(t, http.StatusBadRequest, do(t, runs, http.MethodGet, "/api/runs/last/trades?htf=5m").Code)
	assert.Equal(t, http.StatusBadRequest, do(t, runs, http.MethodGet, "/api/runs/last/trades?limit=-1").Code)
}

func TestTriggerRun(t *testing.T) {
	runs := &fakeRuns{}
	assert.Equal(t, http.StatusAccepted, do(t, runs, http.MethodPost, "/api/runs").Code)
	assert.Equal(t, 1, runs.triggered)

	runs.triggerErr = backtest.ErrRunInProgress
	assert.Equal(t, http.StatusConflict, do(t, runs, http.MethodPost, "/api/runs").Code)

	runs.triggerErr = errors.New("boom")
	assert.Equal(t, http.StatusInternalServerError, do(t, runs, http.MethodPost, "/api/runs").Code)
}

func TestGetQuality(t *testing.T) {
	rec := do(t, &fakeRuns{}, http.MethodGet, "/api/runs/last/quality")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	runs := &fakeRuns{last: sampleResult()}
	rec = do(t, runs, http.MethodGet, "/api/runs/last/quality?htf=W")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Count int                   `json:"count"`
		Data  []models.QualityStats `json:"data"`
	}
	require.NoError(t, sonic.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, 1, body.Count)
	assert.Equal(t, models.TFWeek, body.Data[0].HTF)
	assert.Equal(t, 3, body.Data[0].Wins)

	rec = do(t, runs, http.MethodGet, "/api/runs/last/quality?htf=5m")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
