package notify

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"pivot_backtest/internal/models"
)

func FormatSummary(res *models.Result) string {
	s := res.Summary
	var b strings.Builder

	fmt.Fprintf(&b,
		"*📊 Backtest* `%s`\n\n"+
			"Пивотов: `%d`, ошибок: `%d`\n"+
			"Сделок: `%d` (long `%d` / short `%d`)\n"+
			"Win rate: `%s%%`\n"+
			"Total: `%sR`, expectancy: `%sR`\n"+
			"PF: `%s`, SQN: `%s`\n"+
			"Max DD: `%s%%`, return: `%s%%`\n"+
			"Время: `%s`\n",
		shortID(res.RunID),
		res.Pivots, res.Failures,
		s.Trades, s.Longs, s.Shorts,
		f2(s.WinRate),
		f2(s.TotalR), f2(s.Expectancy),
		f2(s.ProfitFactor), f2(s.SQN),
		f2(s.MaxDDPct), f2(s.ReturnPct),
		res.FinishedAt.Sub(res.StartedAt).Round(time.Second),
	)

	if len(res.Outcomes) > 0 {
		keys := make([]string, 0, len(res.Outcomes))
		for k := range res.Outcomes {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		b.WriteString("\n*Исходы*\n")
		for _, k := range keys {
			fmt.Fprintf(&b, "  %s: `%d`\n", k, res.Outcomes[k])
		}
	}
	return b.String()
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func f2(v float64) string { return fmt.Sprintf("%.2f", v) }
