package service

import (
	"context"

	"pivot_backtest/internal/models"
)

// NoopRecorder: когда ни один приёмник не настроен.
type NoopRecorder struct{}

func NewNoopRecorder() *NoopRecorder { return &NoopRecorder{} }

func (n *NoopRecorder) Record(context.Context, *models.Result) error { return nil }
func (n *NoopRecorder) Name() string                                 { return "noop" }
func (n *NoopRecorder) Close() error                                 { return nil }
