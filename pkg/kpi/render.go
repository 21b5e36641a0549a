package kpi

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63"))
	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Width(16)
	goodStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	badStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

// RenderTerminal produces a styled report for interactive terminals.
func RenderTerminal(rep Report) string {
	var b strings.Builder

	title := "Workflow KPIs"
	if rep.Window > 0 {
		title = fmt.Sprintf("Workflow KPIs (last %s)", rep.Window)
	}
	b.WriteString(titleStyle.Render(title))
	b.WriteString("\n\n")

	line := func(label, value string) {
		b.WriteString(labelStyle.Render(label))
		b.WriteString(value)
		b.WriteString("\n")
	}

	line("dispatched", fmt.Sprintf("%d", rep.Dispatched))
	line("completed", goodStyle.Render(fmt.Sprintf("%d", rep.Completed)))
	line("failed", badStyle.Render(fmt.Sprintf("%d", rep.Failed)))
	line("blocked", fmt.Sprintf("%d", rep.Blocked))
	line("success rate", fmt.Sprintf("%.0f%%", rep.SuccessRate()*100))
	line("cache hit rate", fmt.Sprintf("%.0f%% (%d/%d)",
		rep.CacheHitRate()*100, rep.CacheHits, rep.CacheHits+rep.CacheMisses))

	if len(rep.ByCommand) > 0 {
		b.WriteString("\n")
		b.WriteString(titleStyle.Render("By command"))
		b.WriteString("\n")
		for _, cmd := range sortedCommands(rep.ByCommand) {
			line(cmd, fmt.Sprintf("%d", rep.ByCommand[cmd]))
		}
	}
	return b.String()
}

// RenderMarkdown produces the report as a markdown document, for posting to
// issues or dashboards.
func RenderMarkdown(rep Report) string {
	var b strings.Builder

	if rep.Window > 0 {
		fmt.Fprintf(&b, "# Workflow KPIs (last %s)\n\n", rep.Window)
	} else {
		b.WriteString("# Workflow KPIs\n\n")
	}

	b.WriteString("| Metric | Value |\n|---|---|\n")
	fmt.Fprintf(&b, "| Dispatched | %d |\n", rep.Dispatched)
	fmt.Fprintf(&b, "| Completed | %d |\n", rep.Completed)
	fmt.Fprintf(&b, "| Failed | %d |\n", rep.Failed)
	fmt.Fprintf(&b, "| Blocked | %d |\n", rep.Blocked)
	fmt.Fprintf(&b, "| Success rate | %.0f%% |\n", rep.SuccessRate()*100)
	fmt.Fprintf(&b, "| Cache hit rate | %.0f%% |\n", rep.CacheHitRate()*100)

	if len(rep.ByCommand) > 0 {
		b.WriteString("\n## By command\n\n| Command | Dispatched |\n|---|---|\n")
		for _, cmd := range sortedCommands(rep.ByCommand) {
			fmt.Fprintf(&b, "| %s | %d |\n", cmd, rep.ByCommand[cmd])
		}
	}
	return b.String()
}

// sortedCommands returns the command keys in deterministic order.
func sortedCommands(m map[string]int) []string {
	cmds := make([]string, 0, len(m))
	for c := range m {
		cmds = append(cmds, c)
	}
	sort.Strings(cmds)
	return cmds
}
