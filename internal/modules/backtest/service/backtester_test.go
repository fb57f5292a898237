package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pivot_backtest/internal/models"
)

type memRecorder struct {
	results []*models.Result
	err     error
}

func (r *memRecorder) Record(_ context.Context, res *models.Result) error {
	if r.err != nil {
		return r.err
	}
	r.results = append(r.results, res)
	return nil
}
func (r *memRecorder) Name() string { return "mem" }
func (r *memRecorder) Close() error { return nil }

type memNotifier struct {
	messages  []string
	summaries []*models.Result
}

func (n *memNotifier) Send(msg string) { n.messages = append(n.messages, msg) }
func (n *memNotifier) Sendf(format string, args ...any) {
	n.Send(fmt.Sprintf(format, args...))
}
func (n *memNotifier) SendSummary(res *models.Result) { n.summaries = append(n.summaries, res) }

func newTestRunner(t *testing.T) *Runner {
	t.Helper()
	r, err := NewRunner(testData(), &fakeEngine{}, testBacktestConfig(), nil)
	require.NoError(t, err)
	return r
}

func TestBacktesterRunOnce(t *testing.T) {
	rec := &memRecorder{}
	n := &memNotifier{}
	bt := NewBacktester(newTestRunner(t), rec, n)

	res, err := bt.RunOnce(context.Background())
	require.NoError(t, err)
	require.Len(t, rec.results, 1)
	assert.Same(t, res, rec.results[0])
	require.Len(t, n.summaries, 1)
	assert.Empty(t, n.messages)
}

func TestBacktesterRecordError(t *testing.T) {
	rec := &memRecorder{err: errors.New("disk full")}
	n := &memNotifier{}
	bt := NewBacktester(newTestRunner(t), rec, n)

	_, err := bt.RunOnce(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	assert.Empty(t, n.summaries)
	require.Len(t, n.messages, 1)
	assert.Contains(t, n.messages[0], "disk full")
}

func TestBacktesterCancelled(t *testing.T) {
	rec := &memRecorder{}
	bt := NewBacktester(newTestRunner(t), rec, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := bt.RunOnce(ctx)
	require.Error(t, err)
	assert.Empty(t, rec.results)
}

func TestBacktesterTrigger(t *testing.T) {
	rec := &memRecorder{}
	bt := NewBacktester(newTestRunner(t), rec, nil)
	assert.Nil(t, bt.LastResult())

	// пока mu занят, Trigger отказывает
	bt.mu.Lock()
	assert.ErrorIs(t, bt.Trigger(context.Background()), ErrRunInProgress)
	bt.mu.Unlock()

	require.NoError(t, bt.Trigger(context.Background()))
	require.Eventually(t, func() bool { return bt.LastResult() != nil }, 2*time.Second, 10*time.Millisecond)

	// RunOnce дожидается фонового прогона
	res, err := bt.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Same(t, res, bt.LastResult())
	assert.Len(t, rec.results, 2)
}
