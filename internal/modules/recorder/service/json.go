package service

import (
	"context"
	"os"
	"path/filepath"

	"github.com/bytedance/sonic"
	"github.com/pkg/errors"

	"pivot_backtest/internal/models"
)

// JSONRecorder: весь Result (сводка + сделки) одним JSON.
type JSONRecorder struct {
	path string
}

func NewJSONRecorder(path string) *JSONRecorder {
	return &JSONRecorder{path: path}
}

func (r *JSONRecorder) Name() string { return "json" }
func (r *JSONRecorder) Close() error { return nil }

func (r *JSONRecorder) Record(_ context.Context, res *models.Result) error {
	data, err := sonic.ConfigStd.MarshalIndent(res, "", "  ")
	if err != nil {
		return errors.Wrap(err, "marshal result")
	}
	if err = os.MkdirAll(filepath.Dir(r.path), 0o755); err != nil {
		return errors.Wrap(err, "create report dir")
	}
	return errors.Wrapf(os.WriteFile(r.path, data, 0o644), "write %s", r.path)
}
