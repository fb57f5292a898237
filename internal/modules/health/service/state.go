package service

import (
	"sync/atomic"
	"time"
)

// State: прогресс прогонов для /healthz. Пишут воркеры раннера, читает HTTP.
type State struct {
	ready     atomic.Bool
	running   atomic.Bool
	startedAt time.Time

	runs       atomic.Int64
	pairsTotal atomic.Int64
	pairsDone  atomic.Int64
	trades     atomic.Int64

	lastRunUnix atomic.Int64 // unix seconds
	lastErr     atomic.Value // string
}

func NewState() *State {
	s := &State{startedAt: time.Now()}
	s.ready.Store(false)
	s.lastErr.Store("")
	return s
}

func (s *State) SetReady(v bool) { s.ready.Store(v) }
func (s *State) Ready() bool     { return s.ready.Load() }
func (s *State) Running() bool   { return s.running.Load() }

// BeginRun сбрасывает счётчики перед новым прогоном.
func (s *State) BeginRun(pairs int) {
	s.running.Store(true)
	s.pairsTotal.Store(int64(pairs))
	s.pairsDone.Store(0)
	s.trades.Store(0)
}

func (s *State) PairDone(trades int) {
	s.pairsDone.Add(1)
	s.trades.Add(int64(trades))
}

// FinishRun: сервис ready после первого завершённого прогона, даже неудачного.
func (s *State) FinishRun(at time.Time, err error) {
	s.running.Store(false)
	s.runs.Add(1)
	s.lastRunUnix.Store(at.Unix())
	if err != nil {
		s.lastErr.Store(err.Error())
	} else {
		s.lastErr.Store("")
	}
	s.ready.Store(true)
}

func (s *State) Runs() int64       { return s.runs.Load() }
func (s *State) PairsTotal() int64 { return s.pairsTotal.Load() }
func (s *State) PairsDone() int64  { return s.pairsDone.Load() }
func (s *State) Trades() int64     { return s.trades.Load() }
func (s *State) LastError() string { return s.lastErr.Load().(string) }

func (s *State) LastRun() time.Time {
	u := s.lastRunUnix.Load()
	if u == 0 {
		return time.Time{}
	}
	return time.Unix(u, 0).UTC()
}

func (s *State) Uptime() time.Duration { return time.Since(s.startedAt) }
