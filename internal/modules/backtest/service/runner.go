package service

import (
	"context"
	"fmt"
	"runtime/debug"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"pivot_backtest/internal/models"
	"pivot_backtest/internal/modules/config"
	strategy "pivot_backtest/internal/modules/strategy/service"
	"pivot_backtest/pkg/logger"
	"pivot_backtest/pkg/tracing"
)

// SeriesLoader: источник баров пары по нескольким ТФ.
type SeriesLoader interface {
	LoadSet(ctx context.Context, pair string, tfs []models.Timeframe) (models.SeriesSet, map[models.Timeframe]error)
}

// Progress: куда раннер сообщает о ходе прогона (health).
type Progress interface {
	BeginRun(pairs int)
	PairDone(trades int)
	FinishRun(at time.Time, err error)
}

type nopProgress struct{}

func (nopProgress) BeginRun(int)               {}
func (nopProgress) PairDone(int)               {}
func (nopProgress) FinishRun(time.Time, error) {}

// Runner гоняет движок по всем парам и HTF. Пары параллельно, пивоты внутри пары по порядку.
type Runner struct {
	loader   SeriesLoader
	engine   strategy.Engine
	cfg      config.BacktestConfig
	progress Progress
	quality  *QualityGrid // nil = сетка выключена

	htfs   []models.Timeframe
	execTF models.Timeframe
	tfs    []models.Timeframe
	from   time.Time
	to     time.Time

	now func() time.Time
}

func NewRunner(loader SeriesLoader, engine strategy.Engine, cfg config.BacktestConfig, progress Progress) (*Runner, error) {
	htfs, err := cfg.HTFs()
	if err != nil {
		return nil, err
	}
	execTF, err := cfg.ExecutionTF()
	if err != nil {
		return nil, err
	}
	from, to, err := cfg.Window()
	if err != nil {
		return nil, err
	}
	quality, err := NewQualityGrid(cfg.Quality)
	if err != nil {
		return nil, err
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if progress == nil {
		progress = nopProgress{}
	}
	return &Runner{
		loader:   loader,
		engine:   engine,
		cfg:      cfg,
		progress: progress,
		quality:  quality,
		htfs:     htfs,
		execTF:   execTF,
		tfs:      requiredTimeframes(htfs, execTF),
		from:     from,
		to:       to,
		now:      time.Now,
	}, nil
}

// requiredTimeframes: HTF, все их младшие и ТФ исполнения, от старшего к младшему.
func requiredTimeframes(htfs []models.Timeframe, execTF models.Timeframe) []models.Timeframe {
	need := map[models.Timeframe]bool{execTF: true}
	for _, htf := range htfs {
		need[htf] = true
		for _, tf := range htf.Lower() {
			need[tf] = true
		}
	}
	out := make([]models.Timeframe, 0, len(need))
	for _, tf := range models.Hierarchy {
		if need[tf] {
			out = append(out, tf)
		}
	}
	return out
}

type pairResult struct {
	pivots   int
	failures int
	trades   []models.Trade
	outcomes map[string]int
	quality  []QualitySample
}

// Run: один полный прогон. Ошибка только при отмене контекста, результат при этом частичный.
func (r *Runner) Run(ctx context.Context) (*models.Result, error) {
	pairs := r.cfg.NormPairs()
	res := &models.Result{
		RunID:     uuid.NewString(),
		StartedAt: r.now().UTC(),
		Outcomes:  make(map[string]int),
	}

	span, ctx := tracing.StartSpan(ctx, "backtest.run")
	span.SetTag("run_id", res.RunID)
	defer span.Finish()

	logger.Info("[BACKTEST] run %s: engine=%s pairs=%d htf=%v exec=%s workers=%d",
		res.RunID, r.engine.Name(), len(pairs), r.htfs, r.execTF, r.cfg.Workers)
	if r.quality != nil {
		logger.Info("[BACKTEST] run %s: quality grid %s", res.RunID, r.quality)
	}
	r.progress.BeginRun(len(pairs))

	var (
		mu      sync.Mutex
		samples []QualitySample
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.cfg.Workers)

	for _, pair := range pairs {
		pair := pair
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			pr := r.runPair(gctx, pair)

			mu.Lock()
			res.Pivots += pr.pivots
			res.Failures += pr.failures
			res.Trades = append(res.Trades, pr.trades...)
			for k, v := range pr.outcomes {
				res.Outcomes[k] += v
			}
			samples = append(samples, pr.quality...)
			mu.Unlock()

			r.progress.PairDone(len(pr.trades))
			return gctx.Err()
		})
	}
	err := g.Wait()

	sortTrades(res.Trades)
	res.Summary = Summarize(res.Trades, r.cfg.RiskPerTrade, r.cfg.StartingCapital)
	if r.quality != nil {
		res.Quality = r.quality.Stats(r.htfs, samples)
	}
	res.FinishedAt = r.now().UTC()

	if err != nil {
		err = errors.Wrapf(err, "run %s interrupted", res.RunID)
	}
	r.progress.FinishRun(res.FinishedAt, err)

	logger.With(
		zap.String("run_id", res.RunID),
		zap.Duration("elapsed", res.FinishedAt.Sub(res.StartedAt)),
		zap.Int("pivots", res.Pivots),
		zap.Int("trades", len(res.Trades)),
		zap.Int("failures", res.Failures),
		zap.Float64("total_r", res.Summary.TotalR),
	).Info("[BACKTEST] run finished")
	return res, err
}

func (r *Runner) runPair(ctx context.Context, pair string) pairResult {
	pr := pairResult{outcomes: make(map[string]int)}

	span, ctx := tracing.StartSpan(ctx, "backtest.pair")
	span.SetTag("pair", pair)
	defer span.Finish()

	data, failed := r.loader.LoadSet(ctx, pair, r.tfs)
	for tf, err := range failed {
		logger.Error("[BACKTEST] %s %s: load failed: %v", pair, tf, err)
	}
	if _, ok := data.Get(r.execTF); !ok {
		logger.Error("[BACKTEST] %s: no %s bars, pair skipped", pair, r.execTF)
		return pr
	}

	for _, htf := range r.htfs {
		if ctx.Err() != nil {
			return pr
		}
		series, ok := data.Get(htf)
		if !ok {
			logger.Warn("[BACKTEST] %s: no %s bars, htf skipped", pair, htf)
			continue
		}
		r.runHTF(ctx, pair, htf, series, data, &pr)
	}
	return pr
}

func (r *Runner) runHTF(ctx context.Context, pair string, htf models.Timeframe, series *models.Series,
	data models.SeriesSet, pr *pairResult) {
	span, _ := tracing.StartSpan(ctx, "backtest.htf")
	span.SetTag("pair", pair)
	span.SetTag("htf", string(htf))
	defer span.Finish()

	pivots := InWindow(r.engine.DetectPivots(series), r.from, r.to)
	pivots = SamplePivots(pivots, r.cfg.SamplePivots, sampleSeed(r.cfg.SampleSeed, pair, htf))
	span.SetTag("pivots", len(pivots))
	atr := htfATR(series)
	exec, _ := data.Get(r.execTF)
	pipSize := r.engine.PipSize(pair)

	trades := 0
	for _, pv := range pivots {
		pr.pivots++
		if r.quality != nil {
			pr.quality = append(pr.quality, r.quality.Samples(pair, htf, pv, exec.Bars, pipSize)...)
		}
		trade, outcome, err := r.processPivot(pair, htf, pv, data)
		if err != nil {
			pr.failures++
			logger.Error("[BACKTEST] %s %s pivot %s: %v", pair, htf, pv.Time.Format(time.RFC3339), err)
			continue
		}
		pr.outcomes[outcome.String()]++
		if trade == nil {
			logger.Debug("[BACKTEST] %s %s pivot %s: %s", pair, htf, pv.Time.Format(time.RFC3339), outcome)
			continue
		}
		trade.GapATR = gapATR(atr, pv)
		trades++
		pr.trades = append(pr.trades, *trade)
	}
	logger.Debug("[BACKTEST] %s %s: pivots=%d trades=%d", pair, htf, len(pivots), trades)
}

// processPivot: паника на одном пивоте не валит прогон.
func (r *Runner) processPivot(pair string, htf models.Timeframe, pv models.Pivot,
	data models.SeriesSet) (trade *models.Trade, outcome strategy.Outcome, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			trade = nil
			err = fmt.Errorf("panic: %v\n%s", rec, debug.Stack())
		}
	}()
	return r.engine.ProcessPivot(pair, htf, pv, data)
}

// sortTrades: по времени входа, дальше пара и старший HTF первым.
func sortTrades(trades []models.Trade) {
	sort.SliceStable(trades, func(i, j int) bool {
		a, b := trades[i], trades[j]
		if !a.EntryTime.Equal(b.EntryTime) {
			return a.EntryTime.Before(b.EntryTime)
		}
		if a.Pair != b.Pair {
			return a.Pair < b.Pair
		}
		return a.HTF.Rank() < b.HTF.Rank()
	})
}
