package notify

import (
	"log"
	"os"

	"go.uber.org/fx"

	"pivot_backtest/internal/modules/config"
)

// NewNotifier: консоль всегда, Telegram если заданы token и chat_id.
func NewNotifier(cfg *config.Config) (Notifier, error) {
	out := Multi{NewConsole(os.Stdout)}

	tg, err := NewTelegram(cfg.Telegram.Token, cfg.Telegram.ChatID)
	if err != nil {
		return nil, err
	}
	if tg == nil {
		log.Printf("[NOTIFY] telegram disabled")
	} else {
		out = append(out, tg)
	}
	return out, nil
}

func Module() fx.Option {
	return fx.Module("notify",
		fx.Provide(NewNotifier),
	)
}
