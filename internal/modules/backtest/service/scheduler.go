package service

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/robfig/cron/v3"
)

// Job: одна итерация по расписанию.
type Job func(ctx context.Context)

// Scheduler перезапускает прогон по cron. Если прошлый ещё идёт, тик пропускается.
type Scheduler struct {
	cron *cron.Cron
	job  Job

	ctx    context.Context
	cancel context.CancelFunc
}

// cron с секундами опционально: "0 6 * * 1", "0 0 6 * * 1", "@daily", "@every 1h".
var cronParser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

func NewScheduler(spec string, job Job) (*Scheduler, error) {
	if job == nil {
		return nil, fmt.Errorf("scheduler: nil job")
	}
	cronLog := cron.PrintfLogger(log.New(os.Stdout, "[SCHED] ", log.LstdFlags))
	c := cron.New(
		cron.WithParser(cronParser),
		cron.WithLocation(time.UTC),
		cron.WithLogger(cronLog),
		cron.WithChain(cron.Recover(cronLog), cron.SkipIfStillRunning(cronLog)),
	)

	ctx, cancel := context.WithCancel(context.Background())
	s := &Scheduler{cron: c, job: job, ctx: ctx, cancel: cancel}
	if _, err := c.AddFunc(spec, s.tick); err != nil {
		cancel()
		return nil, fmt.Errorf("register backtest cron %q: %w", spec, err)
	}
	return s, nil
}

func (s *Scheduler) tick() { s.job(s.ctx) }

func (s *Scheduler) Start() {
	s.cron.Start()
	log.Printf("[SCHED] started, next run at %s", s.Next().Format(time.RFC3339))
}

// RunNow: прогон вне расписания (run_on_start).
func (s *Scheduler) RunNow() { s.tick() }

// Stop отменяет текущий прогон и ждёт его завершения (или ctx).
func (s *Scheduler) Stop(ctx context.Context) error {
	s.cancel()
	done := s.cron.Stop()
	select {
	case <-done.Done():
		log.Println("[SCHED] stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Scheduler) Next() time.Time {
	entries := s.cron.Entries()
	if len(entries) == 0 {
		return time.Time{}
	}
	if !entries[0].Next.IsZero() {
		return entries[0].Next
	}
	return entries[0].Schedule.Next(time.Now().UTC())
}
