package service

import (
	"fmt"
	"math"
	"time"

	"pivot_backtest/internal/models"
	"pivot_backtest/internal/modules/config"
)

// Outcome: чем закончилась обработка пивота.
type Outcome int

const (
	OutcomeTraded Outcome = iota
	OutcomeNoGapTouch
	OutcomeNoCandidates
	OutcomeNoEntry
	OutcomeTPPreTouched
	OutcomeInvalidated
)

func (o Outcome) String() string {
	switch o {
	case OutcomeTraded:
		return "traded"
	case OutcomeNoGapTouch:
		return "no_gap_touch"
	case OutcomeNoCandidates:
		return "no_candidates"
	case OutcomeNoEntry:
		return "no_entry"
	case OutcomeTPPreTouched:
		return "tp_pre_touched"
	case OutcomeInvalidated:
		return "invalidated"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// candidate: уровень входа. ref == nil => wick difference пивота.
type candidate struct {
	ref   *models.Refinement
	level float64
	alive bool
}

// entryFill: фактический вход.
type entryFill struct {
	idx      int // бар входа
	exitFrom int // с какого бара ищем выход
	time     time.Time
	price    float64
	cand     *candidate
	plan     Plan
}

// fillRule: по какой цене и на каком баре исполняется подтверждённый вход.
type fillRule int

const (
	fillAtLevel  fillRule = iota // direct_touch: по уровню на баре касания
	fillNextOpen                 // по open первого бара после подтверждения
	fillAtClose                  // по close бара подтверждения
	fillAtNear                   // повторное касание уровня после подтверждения
)

type confirmMode struct {
	fill fillRule
	h4   bool // подтверждает бар H4, иначе сам бар касания
}

func parseConfirmation(mode string) (confirmMode, error) {
	switch mode {
	case "", config.EntryDirectTouch:
		return confirmMode{fill: fillAtLevel}, nil
	case config.EntryClose:
		return confirmMode{fill: fillNextOpen}, nil
	case config.EntryCloseAtClose:
		return confirmMode{fill: fillAtClose}, nil
	case config.EntryCloseAtNear:
		return confirmMode{fill: fillAtNear}, nil
	case config.EntryH4Close:
		return confirmMode{fill: fillNextOpen, h4: true}, nil
	case config.EntryH4CloseAtClose:
		return confirmMode{fill: fillAtClose, h4: true}, nil
	case config.EntryH4CloseAtNear:
		return confirmMode{fill: fillAtNear, h4: true}, nil
	}
	return confirmMode{}, fmt.Errorf("unknown entry confirmation %q", mode)
}

type confirmStatus int

const (
	confirmed   confirmStatus = iota // вход есть
	invalidated                      // бар подтверждения закрылся обратно в гэп
	unfilled                         // не хватило баров
)

// Simulator прогоняет один пивот по барам исполнения (H1).
type Simulator struct {
	planner         *Planner
	confirmation    string
	mode            confirmMode
	wickDiffMaxFrac float64
}

func NewSimulator(planner *Planner, confirmation string, wickDiffMaxFrac float64) (*Simulator, error) {
	if planner == nil {
		return nil, fmt.Errorf("planner is nil")
	}
	mode, err := parseConfirmation(confirmation)
	if err != nil {
		return nil, err
	}
	if confirmation == "" {
		confirmation = config.EntryDirectTouch
	}
	if math.IsNaN(wickDiffMaxFrac) || wickDiffMaxFrac < 0 {
		return nil, fmt.Errorf("wick_diff_max_frac must be >= 0, got %v", wickDiffMaxFrac)
	}
	return &Simulator{
		planner:         planner,
		confirmation:    confirmation,
		mode:            mode,
		wickDiffMaxFrac: wickDiffMaxFrac,
	}, nil
}

// ConfirmTimeframe: серия, которой подтверждается вход. TFNone => хватает баров исполнения.
func (s *Simulator) ConfirmTimeframe() models.Timeframe {
	if s.mode.h4 {
		return models.TF4Hour
	}
	return models.TFNone
}

// Simulate: то же, что SimulateConfirmed, без отдельной серии подтверждения.
func (s *Simulator) Simulate(pair string, htf models.Timeframe, pv models.Pivot,
	ranked []models.Refinement, exec []models.Bar, pipSize float64,
) (*models.Trade, Outcome) {
	return s.SimulateConfirmed(pair, htf, pv, ranked, exec, nil, pipSize)
}

// SimulateConfirmed: касание гэпа -> вход по первому достижимому кандидату -> выход.
// ranked уже отсортированы по приоритету, conf нужны только в режимах 4h_*.
// Нет сделки => nil и причина.
func (s *Simulator) SimulateConfirmed(pair string, htf models.Timeframe, pv models.Pivot,
	ranked []models.Refinement, exec, conf []models.Bar, pipSize float64,
) (*models.Trade, Outcome) {
	// 1. первое касание гэпа после валидации пивота
	gapLow, gapHigh := pv.GapLow(), pv.GapHigh()
	g := -1
	for i := models.SearchBars(exec, pv.ValidTime); i < len(exec); i++ {
		if exec[i].Low <= gapHigh && exec[i].High >= gapLow {
			g = i
			break
		}
	}
	if g < 0 {
		return nil, OutcomeNoGapTouch
	}

	// 2. кандидаты по приоритету, wick diff последним
	cands := s.candidates(pv, ranked)
	if len(cands) == 0 {
		return nil, OutcomeNoCandidates
	}

	// 3. вход
	fill, ok, dropped := s.findEntry(pv, cands, exec, conf, g, pipSize)
	if !ok {
		if dropped > 0 {
			return nil, OutcomeInvalidated
		}
		return nil, OutcomeNoEntry
	}

	// 4. TP до входа => рынок ушёл, пивот отменяется целиком
	if tpTouched(pv.Direction, exec[g:fill.idx], fill.plan.TP) {
		return nil, OutcomeTPPreTouched
	}

	// 5. выход
	exitIdx, exitPrice, reason := s.findExit(pv.Direction, exec, fill)

	sign := pv.Direction.Sign()
	pnlPips := sign * (exitPrice - fill.price) / pipSize
	riskPips := math.Abs(fill.price-fill.plan.SL) / pipSize
	var pnlR float64
	if riskPips > 0 {
		pnlR = pnlPips / riskPips
	}
	mfe, mae := excursions(pv.Direction, exec[fill.idx:exitIdx+1], fill.price, pipSize)

	t := &models.Trade{
		Pair:      pair,
		HTF:       htf,
		Direction: pv.Direction,
		PipSize:   pipSize,

		PivotTime:      pv.Time,
		PivotValidTime: pv.ValidTime,
		PivotLevel:     pv.Level,
		PivotExtreme:   pv.Extreme,
		PivotNear:      pv.Near,
		GapSize:        pv.GapSize,
		GapTouchTime:   exec[g].Time,

		TotalRefinements: len(ranked),

		EntryTime:  fill.time,
		EntryPrice: fill.price,
		SL:         fill.plan.SL,
		TP:         fill.plan.TP,
		RR:         fill.plan.RR,

		ExitTime:   exec[exitIdx].Time,
		ExitPrice:  exitPrice,
		ExitReason: reason,

		PnLPips: pnlPips,
		PnLR:    pnlR,
		MFEPips: mfe,
		MAEPips: mae,
	}
	if fill.cand.ref != nil {
		ref := *fill.cand.ref
		t.Refinement = &ref
		t.EntrySource = string(ref.Timeframe)
	} else {
		t.EntrySource = models.EntrySourceWickDiff
	}
	return t, OutcomeTraded
}

func (s *Simulator) candidates(pv models.Pivot, ranked []models.Refinement) []*candidate {
	out := make([]*candidate, 0, len(ranked)+1)
	for i := range ranked {
		out = append(out, &candidate{ref: &ranked[i], level: ranked[i].EntryLevel(), alive: true})
	}
	if pv.GapSize > 0 && pv.WickSize()/pv.GapSize < s.wickDiffMaxFrac {
		out = append(out, &candidate{level: pv.Near, alive: true})
	}
	return out
}

// findEntry: бар за баром с касания гэпа. В каждом баре кандидаты идут по приоритету:
// тронутый кандидат с наивысшим приоритетом планируется, тронутый с более низким
// (есть живой выше) выбывает. Wick diff живёт, пока есть живые уточнения, но при касании
// в этот период тоже выбывает. dropped: сколько кандидатов сняло закрытие обратно в гэп.
func (s *Simulator) findEntry(pv models.Pivot, cands []*candidate, exec, conf []models.Bar,
	from int, pipSize float64,
) (fill entryFill, ok bool, dropped int) {
	for i := from; i < len(exec); i++ {
		bar := exec[i]
		for _, c := range cands {
			if !c.alive || !levelTouched(pv.Direction, bar, c.level) {
				continue
			}
			if !isTop(cands, c) {
				c.alive = false
				continue
			}

			f, status := s.confirm(pv.Direction, exec, conf, i, c)
			if status != confirmed {
				if status == invalidated {
					dropped++
				}
				c.alive = false
				continue
			}
			plan, planned := s.planner.Plan(pv.Direction, f.price, pv, pipSize)
			if !planned {
				c.alive = false
				continue
			}
			f.plan = plan
			return f, true, dropped
		}
		if !anyAlive(cands) {
			break
		}
	}
	return entryFill{}, false, dropped
}

// confirm: цена и бар входа по режиму подтверждения. Бар подтверждения должен закрыться
// за уровнем по направлению сделки, иначе кандидат снят (цена вернулась в гэп).
func (s *Simulator) confirm(dir models.Direction, exec, conf []models.Bar, i int, c *candidate) (entryFill, confirmStatus) {
	if s.mode.fill == fillAtLevel {
		return entryFill{idx: i, exitFrom: i + 1, time: exec[i].Time, price: c.level, cand: c}, confirmed
	}

	closePx, next, ok := s.confirmBar(exec, conf, i)
	if !ok {
		return entryFill{}, unfilled
	}
	if !closedBeyond(dir, closePx, c.level) {
		return entryFill{}, invalidated
	}
	if next >= len(exec) {
		return entryFill{}, unfilled
	}

	switch s.mode.fill {
	case fillNextOpen:
		return entryFill{idx: next, exitFrom: next, time: exec[next].Time, price: exec[next].Open, cand: c}, confirmed
	case fillAtClose:
		// вход на закрытии бара подтверждения, в отчёте это open следующего бара
		return entryFill{idx: next, exitFrom: next, time: exec[next].Time, price: closePx, cand: c}, confirmed
	}

	// fillAtNear: ждём, пока цена снова дойдёт до уровня
	for j := next; j < len(exec); j++ {
		if levelTouched(dir, exec[j], c.level) {
			return entryFill{idx: j, exitFrom: j + 1, time: exec[j].Time, price: c.level, cand: c}, confirmed
		}
	}
	return entryFill{}, unfilled
}

// confirmBar: close бара подтверждения для касания exec[i] и индекс первого бара исполнения
// после его закрытия. В режимах 4h_* это бар H4, внутри которого было касание.
func (s *Simulator) confirmBar(exec, conf []models.Bar, i int) (float64, int, bool) {
	if !s.mode.h4 {
		return exec[i].Close, i + 1, true
	}
	t := exec[i].Time
	k := models.SearchBars(conf, t)
	if k >= len(conf) || conf[k].Time.After(t) {
		k--
	}
	if k < 0 {
		return 0, 0, false
	}
	end := conf[k].Time.Add(models.TF4Hour.Duration())
	if !t.Before(end) {
		// дыра в H4: касание не покрыто ни одним баром
		return 0, 0, false
	}
	return conf[k].Close, models.SearchBars(exec, end), true
}

func closedBeyond(dir models.Direction, closePx, level float64) bool {
	if dir == models.DirectionBullish {
		return closePx > level
	}
	return closePx < level
}

// findExit: SL проверяется раньше TP (консервативно). Нет выхода => закрытие по последнему бару.
func (s *Simulator) findExit(dir models.Direction, exec []models.Bar, fill entryFill) (int, float64, models.ExitReason) {
	sl, tp := fill.plan.SL, fill.plan.TP
	for j := fill.exitFrom; j < len(exec); j++ {
		bar := exec[j]
		if dir == models.DirectionBullish {
			if bar.Low <= sl {
				return j, sl, models.ExitStopLoss
			}
			if bar.High >= tp {
				return j, tp, models.ExitTakeProfit
			}
			continue
		}
		if bar.High >= sl {
			return j, sl, models.ExitStopLoss
		}
		if bar.Low <= tp {
			return j, tp, models.ExitTakeProfit
		}
	}
	last := len(exec) - 1
	return last, exec[last].Close, models.ExitManual
}

// levelTouched: одностороннее касание: bullish сверху вниз, bearish снизу вверх.
func levelTouched(dir models.Direction, bar models.Bar, level float64) bool {
	if dir == models.DirectionBullish {
		return bar.Low <= level
	}
	return bar.High >= level
}

func tpTouched(dir models.Direction, bars []models.Bar, tp float64) bool {
	for _, b := range bars {
		if dir == models.DirectionBullish && b.High >= tp {
			return true
		}
		if dir == models.DirectionBearish && b.Low <= tp {
			return true
		}
	}
	return false
}

// excursions: MFE/MAE в пипсах за время сделки.
func excursions(dir models.Direction, bars []models.Bar, entry, pipSize float64) (mfe, mae float64) {
	if len(bars) == 0 {
		return 0, 0
	}
	hi, lo := bars[0].High, bars[0].Low
	for _, b := range bars[1:] {
		hi = math.Max(hi, b.High)
		lo = math.Min(lo, b.Low)
	}
	if dir == models.DirectionBullish {
		mfe, mae = hi-entry, entry-lo
	} else {
		mfe, mae = entry-lo, hi-entry
	}
	return math.Max(0, mfe) / pipSize, math.Max(0, mae) / pipSize
}

// isTop: c первый живой кандидат. Wick diff (последний) становится первым,
// только когда все уточнения выбыли.
func isTop(cands []*candidate, c *candidate) bool {
	for _, o := range cands {
		if o.alive {
			return o == c
		}
	}
	return false
}

func anyAlive(cands []*candidate) bool {
	for _, c := range cands {
		if c.alive {
			return true
		}
	}
	return false
}
