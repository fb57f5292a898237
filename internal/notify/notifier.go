package notify

import (
	"fmt"
	"log"

	tgbot "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"pivot_backtest/internal/models"
)

type Notifier interface {
	Send(msg string)
	Sendf(format string, args ...any)
	SendSummary(res *models.Result)
}

// Telegram: пассивный нотифайер: итоги прогонов и ошибки. nil-safe.
type Telegram struct {
	bot    *tgbot.BotAPI
	chatID int64
}

var _ Notifier = (*Telegram)(nil)

// NewTelegram без токена или chat_id возвращает nil: отправка становится no-op.
func NewTelegram(token string, chatID int64) (*Telegram, error) {
	if token == "" || chatID == 0 {
		return nil, nil
	}
	b, err := tgbot.NewBotAPI(token)
	if err != nil {
		return nil, err
	}
	return &Telegram{
		bot:    b,
		chatID: chatID,
	}, nil
}

func (t *Telegram) Send(msg string) {
	if t == nil || t.bot == nil || t.chatID == 0 {
		return
	}
	m := tgbot.NewMessage(t.chatID, msg)
	m.ParseMode = tgbot.ModeMarkdown
	if _, err := t.bot.Send(m); err != nil {
		log.Printf("[NOTIFY] send: %v", err)
	}
}

func (t *Telegram) Sendf(format string, args ...any) { t.Send(fmt.Sprintf(format, args...)) }

func (t *Telegram) SendSummary(res *models.Result) {
	if t == nil || res == nil {
		return
	}
	t.Send(FormatSummary(res))
}
