package notify

import "pivot_backtest/internal/models"

// Multi рассылает во все нотифайеры.
type Multi []Notifier

func (m Multi) Send(msg string) {
	for _, n := range m {
		n.Send(msg)
	}
}

func (m Multi) Sendf(format string, args ...any) {
	for _, n := range m {
		n.Sendf(format, args...)
	}
}

func (m Multi) SendSummary(res *models.Result) {
	for _, n := range m {
		n.SendSummary(res)
	}
}
