package service

import (
	"context"

	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"pivot_backtest/internal/models"
)

// Recorder сохраняет результат прогона.
type Recorder interface {
	Record(ctx context.Context, res *models.Result) error
	Name() string
	Close() error
}

// Multi пишет во все приёмники; ошибка одного не мешает остальным.
type Multi struct {
	recorders []Recorder
}

func NewMulti(recorders ...Recorder) *Multi {
	m := &Multi{}
	for _, r := range recorders {
		if r != nil {
			m.recorders = append(m.recorders, r)
		}
	}
	return m
}

func (m *Multi) Name() string { return "multi" }

func (m *Multi) Names() []string {
	out := make([]string, 0, len(m.recorders))
	for _, r := range m.recorders {
		out = append(out, r.Name())
	}
	return out
}

func (m *Multi) Record(ctx context.Context, res *models.Result) error {
	var err error
	for _, r := range m.recorders {
		if rErr := r.Record(ctx, res); rErr != nil {
			err = multierr.Append(err, errors.Wrapf(rErr, "recorder %s", r.Name()))
		}
	}
	return err
}

func (m *Multi) Close() error {
	var err error
	for _, r := range m.recorders {
		err = multierr.Append(err, r.Close())
	}
	return err
}
