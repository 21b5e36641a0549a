package main

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"ipe/pkg/kpi"
)

const (
	pollInterval = 2 * time.Second
	eventLimit   = 50
	reportWindow = 24 * time.Hour
)

// tickMsg drives the poll loop.
type tickMsg time.Time

// snapshotMsg carries one refresh of report and recent events.
type snapshotMsg struct {
	report kpi.Report
	events []kpi.Event
	err    error
}

// Model is the dashboard state: the latest KPI snapshot plus the event table.
type Model struct {
	dbPath string
	report kpi.Report
	events table.Model
	err    error
	width  int
}

func newModel(dbPath string) Model {
	columns := []table.Column{
		{Title: "Time", Width: 19},
		{Title: "Type", Width: 14},
		{Title: "Instance", Width: 14},
		{Title: "Command", Width: 16},
	}

	t := table.New(
		table.WithColumns(columns),
		table.WithHeight(12),
		table.WithFocused(true),
	)

	s := table.DefaultStyles()
	s.Header = s.Header.Bold(true).Foreground(lipgloss.Color("12"))
	s.Selected = s.Selected.Foreground(lipgloss.Color("229")).Background(lipgloss.Color("57"))
	t.SetStyles(s)

	return Model{dbPath: dbPath, events: t}
}

// Init starts the poll loop with an immediate fetch.
func (m Model) Init() tea.Cmd {
	return tea.Batch(fetchCmd(m.dbPath), tickCmd())
}

func tickCmd() tea.Cmd {
	return tea.Tick(pollInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// fetchCmd reads the event log in a command so the UI never blocks on SQLite.
func fetchCmd(dbPath string) tea.Cmd {
	return func() tea.Msg {
		reader, err := kpi.NewReader(dbPath)
		if err != nil {
			return snapshotMsg{err: err}
		}
		defer func() { _ = reader.Close() }()

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		report, err := reader.Build(ctx, reportWindow)
		if err != nil {
			return snapshotMsg{err: err}
		}
		events, err := reader.RecentEvents(ctx, eventLimit)
		if err != nil {
			return snapshotMsg{err: err}
		}
		return snapshotMsg{report: report, events: events}
	}
}

// Update handles ticks, snapshots, resizes, and quit keys.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case tickMsg:
		return m, tea.Batch(fetchCmd(m.dbPath), tickCmd())

	case snapshotMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.err = nil
		m.report = msg.report
		m.events.SetRows(eventRows(msg.events))
		return m, nil
	}

	var cmd tea.Cmd
	m.events, cmd = m.events.Update(msg)
	return m, cmd
}

// eventRows converts event log rows into table rows.
func eventRows(events []kpi.Event) []table.Row {
	rows := make([]table.Row, 0, len(events))
	for _, e := range events {
		rows = append(rows, table.Row{e.CreatedAt, e.Type, e.InstanceID, e.Command})
	}
	return rows
}

// View renders the KPI header, event table, and footer.
func (m Model) View() string {
	theme := DefaultTheme()

	title := lipgloss.NewStyle().Bold(true).Foreground(theme.Primary).Render("ipe dashboard")

	if m.err != nil {
		errLine := lipgloss.NewStyle().Foreground(theme.Error).Render(fmt.Sprintf("error: %v", m.err))
		return title + "\n\n" + errLine + "\n\nq to quit\n"
	}

	header := fmt.Sprintf(
		"dispatched %d   completed %d   failed %d   blocked %d   success %.0f%%   cache hits %.0f%%",
		m.report.Dispatched, m.report.Completed, m.report.Failed, m.report.Blocked,
		m.report.SuccessRate()*100, m.report.CacheHitRate()*100,
	)
	headerLine := lipgloss.NewStyle().Foreground(theme.Secondary).Render(header)

	footer := lipgloss.NewStyle().Foreground(theme.Muted).Render("q quit  ↑/↓ scroll events")

	return title + "\n" + headerLine + "\n\n" + m.events.View() + "\n" + footer + "\n"
}
