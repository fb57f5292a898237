package service

import "pivot_backtest/internal/models"

type Engine interface {
	// DetectPivots: все пивоты серии старшего ТФ, по времени.
	DetectPivots(htf *models.Series) []models.Pivot

	// Refinements: уточнения пивота со всех ТФ ниже htf, уже ранжированные.
	Refinements(pv models.Pivot, htf models.Timeframe, data models.SeriesSet) []models.Refinement

	// ProcessPivot: полная обработка пивота. trade == nil => сделки нет, причина в Outcome.
	// error только если нет данных для исполнения.
	ProcessPivot(pair string, htf models.Timeframe, pv models.Pivot, data models.SeriesSet) (*models.Trade, Outcome, error)

	PipSize(pair string) float64
	Name() string
}
