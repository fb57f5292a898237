package service

import (
	"pivot_backtest/internal/modules/config"
)

func NewEngine(cfg *config.Config) (Engine, error) {
	execTF, err := cfg.Backtest.ExecutionTF()
	if err != nil {
		return nil, err
	}
	return NewModel3(cfg.Strategy, execTF)
}
