package notify

import (
	"fmt"
	"io"
	"sort"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"pivot_backtest/internal/models"
)

var (
	printer = message.NewPrinter(language.English)

	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	labelStyle = lipgloss.NewStyle().Width(16).Foreground(lipgloss.Color("8"))
	valueStyle = lipgloss.NewStyle().Bold(true)
	cellStyle  = lipgloss.NewStyle().Width(10).Align(lipgloss.Right)
	boxStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	posStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	negStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
)

// Console печатает сводку в терминал.
type Console struct {
	mu sync.Mutex
	w  io.Writer
}

var _ Notifier = (*Console)(nil)

func NewConsole(w io.Writer) *Console {
	return &Console{w: w}
}

func (c *Console) Send(msg string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, _ = fmt.Fprintln(c.w, msg)
}

func (c *Console) Sendf(format string, args ...any) { c.Send(fmt.Sprintf(format, args...)) }

func (c *Console) SendSummary(res *models.Result) {
	if res == nil {
		return
	}
	c.Send(RenderSummary(res))
}

// RenderSummary: сводка и разбивка по парам одним блоком.
func RenderSummary(res *models.Result) string {
	s := res.Summary
	rows := [][2]string{
		{"Pivots", printer.Sprintf("%d", res.Pivots)},
		{"Failures", printer.Sprintf("%d", res.Failures)},
		{"Trades", printer.Sprintf("%d (L %d / S %d)", s.Trades, s.Longs, s.Shorts)},
		{"Win rate", printer.Sprintf("%.2f%%", s.WinRate)},
		{"Total R", signed(s.TotalR, "%+.2fR")},
		{"Expectancy", signed(s.Expectancy, "%+.3fR")},
		{"Profit factor", printer.Sprintf("%.2f", s.ProfitFactor)},
		{"SQN", printer.Sprintf("%.2f", s.SQN)},
		{"Loss streak", printer.Sprintf("%d", s.MaxLossStreak)},
		{"Max DD", printer.Sprintf("%.2f%%", s.MaxDDPct)},
		{"Return", signed(s.ReturnPct, "%+.2f%%")},
		{"End capital", printer.Sprintf("%.2f", s.EndCapital)},
	}

	lines := []string{titleStyle.Render("Model 3 backtest " + shortID(res.RunID)), ""}
	for _, r := range rows {
		lines = append(lines, lipgloss.JoinHorizontal(lipgloss.Top, labelStyle.Render(r[0]), valueStyle.Render(r[1])))
	}

	if pairs := byPair(res.Trades); len(pairs) > 0 {
		lines = append(lines, "", lipgloss.JoinHorizontal(lipgloss.Top,
			labelStyle.Render("Pair"), cellStyle.Render("Trades"), cellStyle.Render("Win%"), cellStyle.Render("R")))
		for _, p := range pairs {
			lines = append(lines, lipgloss.JoinHorizontal(lipgloss.Top,
				labelStyle.Render(p.pair),
				cellStyle.Render(printer.Sprintf("%d", p.trades)),
				cellStyle.Render(printer.Sprintf("%.1f", p.winRate())),
				cellStyle.Render(signed(p.totalR, "%+.2f")),
			))
		}
	}
	if len(res.Quality) > 0 {
		lines = append(lines, "", lipgloss.JoinHorizontal(lipgloss.Top,
			labelStyle.Render("HTF TPxSL"), cellStyle.Render("Trades"), cellStyle.Render("Win%"),
			cellStyle.Render("PF"), cellStyle.Render("Pips")))
		for _, q := range res.Quality {
			lines = append(lines, lipgloss.JoinHorizontal(lipgloss.Top,
				labelStyle.Render(printer.Sprintf("%s %gx%g", q.HTF, q.TPMult, q.SLMult)),
				cellStyle.Render(printer.Sprintf("%d", q.Trades)),
				cellStyle.Render(printer.Sprintf("%.1f", q.WinRate)),
				cellStyle.Render(printer.Sprintf("%.2f", q.ProfitFactor)),
				cellStyle.Render(signed(q.TotalPips, "%+.0f")),
			))
		}
	}
	return boxStyle.Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}

type pairStats struct {
	pair   string
	trades int
	wins   int
	totalR float64
}

func (p pairStats) winRate() float64 {
	if p.trades == 0 {
		return 0
	}
	return float64(p.wins) / float64(p.trades) * 100
}

func byPair(trades []models.Trade) []pairStats {
	idx := make(map[string]int)
	var out []pairStats
	for _, t := range trades {
		i, ok := idx[t.Pair]
		if !ok {
			i = len(out)
			idx[t.Pair] = i
			out = append(out, pairStats{pair: t.Pair})
		}
		out[i].trades++
		out[i].totalR += t.PnLR
		if t.IsWin() {
			out[i].wins++
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].pair < out[j].pair })
	return out
}

func signed(v float64, format string) string {
	txt := printer.Sprintf(format, v)
	switch {
	case v > 0:
		return posStyle.Render(txt)
	case v < 0:
		return negStyle.Render(txt)
	default:
		return txt
	}
}
