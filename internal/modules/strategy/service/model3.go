package service

import (
	"pivot_backtest/internal/helper"
	"pivot_backtest/internal/models"
	"pivot_backtest/internal/modules/config"

	"github.com/pkg/errors"
)

// Model3, пивот на HTF, уточнения на всех младших ТФ, исполнение на H1.
type Model3 struct {
	cfg    config.StrategyConfig
	execTF models.Timeframe

	pivots *PivotDetector
	refs   *RefinementDetector
	sim    *Simulator
}

func NewModel3(cfg config.StrategyConfig, execTF models.Timeframe) (*Model3, error) {
	pivots, err := NewPivotDetector(cfg.MinBodyPct)
	if err != nil {
		return nil, errors.Wrap(err, "pivot detector")
	}
	refs, err := NewRefinementDetector(cfg.MaxSizeFrac, cfg.MinBodyPct, cfg.PositionTolerance)
	if err != nil {
		return nil, errors.Wrap(err, "refinement detector")
	}
	planner, err := NewPlanner(cfg.MinSLDistancePips, cfg.RRFloor, cfg.RRCeiling, cfg.SLBufferFrac)
	if err != nil {
		return nil, errors.Wrap(err, "planner")
	}
	sim, err := NewSimulator(planner, cfg.EntryConfirmation, cfg.WickDiffMaxFrac)
	if err != nil {
		return nil, errors.Wrap(err, "simulator")
	}
	if execTF == models.TFNone {
		execTF = models.TF1Hour
	}
	return &Model3{
		cfg:    cfg,
		execTF: execTF,
		pivots: pivots,
		refs:   refs,
		sim:    sim,
	}, nil
}

func (m *Model3) Name() string { return "model3" }

func (m *Model3) PipSize(pair string) float64 {
	return helper.PipSize(pair, m.cfg.PipSizeOverride)
}

func (m *Model3) DetectPivots(htf *models.Series) []models.Pivot {
	if htf == nil {
		return nil
	}
	return m.pivots.Detect(htf.Bars)
}

func (m *Model3) Refinements(pv models.Pivot, htf models.Timeframe, data models.SeriesSet) []models.Refinement {
	var all []models.Refinement
	for _, tf := range htf.Lower() {
		s, ok := data.Get(tf)
		if !ok {
			continue
		}
		all = append(all, m.refs.Detect(s.Bars, pv, tf)...)
	}
	return RankRefinements(all, pv)
}

func (m *Model3) ProcessPivot(pair string, htf models.Timeframe, pv models.Pivot,
	data models.SeriesSet,
) (*models.Trade, Outcome, error) {
	exec, ok := data.Get(m.execTF)
	if !ok {
		return nil, OutcomeNoGapTouch, errors.Wrapf(models.ErrDataUnavailable, "%s %s execution series", pair, m.execTF)
	}
	var conf []models.Bar
	if tf := m.sim.ConfirmTimeframe(); tf != models.TFNone {
		s, ok := data.Get(tf)
		if !ok {
			return nil, OutcomeNoEntry, errors.Wrapf(models.ErrDataUnavailable, "%s %s confirmation series", pair, tf)
		}
		conf = s.Bars
	}
	ranked := m.Refinements(pv, htf, data)
	trade, outcome := m.sim.SimulateConfirmed(pair, htf, pv, ranked, exec.Bars, conf, m.PipSize(pair))
	return trade, outcome, nil
}
