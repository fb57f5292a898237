package models

// QualityStats: одна ячейка сетки TP x SL по пивотам одного HTF. Всё в пипсах.
type QualityStats struct {
	HTF    Timeframe `json:"htf_timeframe"`
	TPMult float64   `json:"tp_mult"`
	SLMult float64   `json:"sl_mult"`

	Trades  int     `json:"trades"`
	Wins    int     `json:"wins"`
	Losses  int     `json:"losses"`
	WinRate float64 `json:"win_rate"`

	AvgWinPips   float64 `json:"avg_win_pips"`
	AvgLossPips  float64 `json:"avg_loss_pips"` // <= 0
	RRRatio      float64 `json:"rr_ratio"`
	ProfitFactor float64 `json:"profit_factor"` // 0 без убыточных
	Expectancy   float64 `json:"expectancy_pips"`
	TotalPips    float64 `json:"total_pips"`

	AvgDurationHours float64 `json:"avg_duration_hours"`
	MaxDurationHours float64 `json:"max_duration_hours"`
	MaxConsecWins    int     `json:"max_consecutive_wins"`
	MaxConsecLosses  int     `json:"max_consecutive_losses"`
	MaxDDPips        float64 `json:"max_dd_pips"`
}
