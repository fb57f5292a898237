package models

import "time"

type ExitReason string

const (
	ExitStopLoss   ExitReason = "sl"
	ExitTakeProfit ExitReason = "tp"
	ExitManual     ExitReason = "manual"
)

// EntrySourceWickDiff: вход по wick difference самого пивота, без уточнения.
const EntrySourceWickDiff = "wick_diff"

// Trade: закрытая сделка по одному пивоту.
type Trade struct {
	Pair      string    `json:"pair"`
	HTF       Timeframe `json:"htf_timeframe"`
	Direction Direction `json:"direction"`
	PipSize   float64   `json:"pip_size"`

	// пивот
	PivotTime      time.Time `json:"pivot_time"`
	PivotValidTime time.Time `json:"pivot_valid_time"`
	PivotLevel     float64   `json:"pivot_level"`
	PivotExtreme   float64   `json:"pivot_extreme"`
	PivotNear      float64   `json:"pivot_near"`
	GapSize        float64   `json:"gap_size"`
	GapATR         float64   `json:"gap_atr,omitempty"` // gap / ATR(14) старшего ТФ на K2
	GapTouchTime   time.Time `json:"gap_touch_time"`

	// вход: Refinement == nil для wick_diff
	EntrySource      string      `json:"entry_source"`
	Refinement       *Refinement `json:"refinement,omitempty"`
	TotalRefinements int         `json:"total_refinements"`

	EntryTime  time.Time `json:"entry_time"`
	EntryPrice float64   `json:"entry_price"`
	SL         float64   `json:"sl_price"`
	TP         float64   `json:"tp_price"`
	RR         float64   `json:"rr"`

	ExitTime   time.Time  `json:"exit_time"`
	ExitPrice  float64    `json:"exit_price"`
	ExitReason ExitReason `json:"exit_reason"`

	PnLPips float64 `json:"pnl_pips"`
	PnLR    float64 `json:"pnl_r"`
	MFEPips float64 `json:"mfe_pips"`
	MAEPips float64 `json:"mae_pips"`
}

// RiskPips: |entry - sl| в пипсах.
func (t Trade) RiskPips() float64 {
	if t.PipSize <= 0 {
		return 0
	}
	d := t.EntryPrice - t.SL
	if d < 0 {
		d = -d
	}
	return d / t.PipSize
}

func (t Trade) Duration() time.Duration { return t.ExitTime.Sub(t.EntryTime) }

func (t Trade) IsWin() bool { return t.PnLR > 0 }

// Summary: агрегаты по списку сделок. Equity без реинвеста:
// каждая сделка двигает капитал на pnl_r * risk_per_trade * starting_capital.
type Summary struct {
	Trades        int           `json:"trades"`
	Wins          int           `json:"wins"`
	Losses        int           `json:"losses"`
	Longs         int           `json:"longs"`
	Shorts        int           `json:"shorts"`
	WinRate       float64       `json:"win_rate"`
	TotalR        float64       `json:"total_r"`
	Expectancy    float64       `json:"expectancy_r"`
	AvgWinR       float64       `json:"avg_win_r"`
	AvgLossR      float64       `json:"avg_loss_r"`
	ProfitFactor  float64       `json:"profit_factor"`
	SQN           float64       `json:"sqn"`
	MaxLossStreak int           `json:"max_loss_streak"`
	MaxDDPct      float64       `json:"max_dd_pct"`
	ReturnPct     float64       `json:"return_pct"`
	EndCapital    float64       `json:"end_capital"`
	AvgDuration   time.Duration `json:"avg_duration"`
}

// Result: итог одного прогона.
type Result struct {
	RunID      string    `json:"run_id"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Pivots     int       `json:"pivots"`
	Failures   int       `json:"failures"`
	Trades     []Trade   `json:"trades"`
	Summary    Summary   `json:"summary"`

	// исходы по пивотам: traded, no_gap_touch, ...
	Outcomes map[string]int `json:"outcomes,omitempty"`

	// сетка качества пивотов, если включена
	Quality []QualityStats `json:"quality,omitempty"`
}
