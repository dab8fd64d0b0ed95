package cli

import (
	"fmt"
	"sort"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/iudanet/daybook/internal/client/sync"
)

var (
	styleHeader = lipgloss.NewStyle().Bold(true).Underline(true)
	styleID     = lipgloss.NewStyle().Foreground(lipgloss.Color("12"))
	styleDim    = lipgloss.NewStyle().Faint(true)
	styleOK     = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	styleWarn   = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	styleError  = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
)

// statusStyle раскрашивает индикатор по StatusKind.Color
func statusStyle(kind sync.StatusKind) lipgloss.Style {
	switch kind.Color() {
	case "green":
		return styleOK.Bold(true)
	case "yellow":
		return styleWarn.Bold(true)
	default:
		return styleError.Bold(true)
	}
}

// since форматирует метку updatedAtMs относительно текущего времени
func (c *Cli) since(ms int64) string {
	if ms <= 0 {
		return "never"
	}
	return humanize.RelTime(time.UnixMilli(ms), c.now(), "ago", "from now")
}

func (c *Cli) printResults(results map[string]*sync.CycleResult) {
	names := make([]string, 0, len(results))
	for name := range results {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		res := results[name]
		switch {
		case res.Wrote:
			c.io.Printf("%s: %s (%d records, %d local changes sent)\n",
				name, styleOK.Render("uploaded"), res.Records, res.Applied)
		case res.Records > 0 || res.Applied > 0:
			c.io.Printf("%s: %s (%d records)\n", name, styleOK.Render("up to date"), res.Records)
		default:
			c.io.Printf("%s: %s\n", name, styleDim.Render("nothing to do"))
		}
		if res.Suppressed > 0 {
			c.io.Printf("  %d local change(s) lost to newer edits\n", res.Suppressed)
		}
		if res.Diagnostic != nil {
			c.io.Println(styleWarn.Render(fmt.Sprintf("  warning: %v", res.Diagnostic)))
		}
	}
}
