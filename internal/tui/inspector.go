package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mev-engine/ton-mev-lab/pkg/interfaces"
	"github.com/mev-engine/ton-mev-lab/pkg/types"
)

const loadTimeout = 2 * time.Minute

// Config holds configuration for the inspector
type Config struct {
	// RefreshRate reloads the source periodically; zero disables it
	RefreshRate time.Duration
	Title       string
}

type tab int

const (
	tabTriples tab = iota
	tabHits
)

func (t tab) String() string {
	if t == tabHits {
		return "Top hits"
	}
	return "Triples"
}

// Model represents the inspector state
type Model struct {
	config     Config
	source     Source
	snapshot   *Snapshot
	loading    bool
	error      error
	width      int
	height     int
	tab        tab
	cursor     int
	lastUpdate time.Time
}

// tickMsg is sent when the refresh timer ticks
type tickMsg time.Time

// snapshotMsg carries a fresh snapshot
type snapshotMsg *Snapshot

// errorMsg is sent when a load fails
type errorMsg error

// StartInspector runs the inspector until the user quits
func StartInspector(config Config, source Source) error {
	p := tea.NewProgram(initialModel(config, source), tea.WithAltScreen())
	_, err := p.Run()
	return err
}

func initialModel(config Config, source Source) Model {
	if config.Title == "" {
		config.Title = "STON.fi USDT/TON sandwich inspector"
	}
	return Model{
		config:  config,
		source:  source,
		loading: true,
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(
		loadSnapshot(m.source),
		tickCmd(m.config.RefreshRate),
	)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "r":
			m.loading = true
			return m, loadSnapshot(m.source)
		case "tab", "left", "right", "h", "l":
			if m.tab == tabTriples {
				m.tab = tabHits
			} else {
				m.tab = tabTriples
			}
			m.cursor = 0
		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
			}
		case "down", "j":
			if m.cursor < m.rows()-1 {
				m.cursor++
			}
		}
		return m, nil

	case tickMsg:
		return m, tea.Batch(
			loadSnapshot(m.source),
			tickCmd(m.config.RefreshRate),
		)

	case snapshotMsg:
		m.snapshot = msg
		m.loading = false
		m.error = nil
		m.lastUpdate = time.Now()
		if m.cursor >= m.rows() {
			m.cursor = max(m.rows()-1, 0)
		}
		return m, nil

	case errorMsg:
		m.error = msg
		m.loading = false
		return m, nil
	}

	return m, nil
}

func (m Model) rows() int {
	if m.snapshot == nil {
		return 0
	}
	if m.tab == tabHits {
		return len(m.snapshot.Summary.TopHits)
	}
	return len(m.snapshot.Triples)
}

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#0098EA")).
			Padding(0, 1)

	contentStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#0098EA")).
			Padding(1, 2)

	activeTabStyle = lipgloss.NewStyle().Bold(true).Underline(true)
	faintStyle     = lipgloss.NewStyle().Faint(true)
	selectedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#00D1FF")).Bold(true)
	errorStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF0000")).Bold(true)
)

func confidenceColor(c types.Confidence) lipgloss.Color {
	switch c {
	case types.ConfidenceHigh:
		return lipgloss.Color("#FF5F5F")
	case types.ConfidenceMedium:
		return lipgloss.Color("#FFD75F")
	default:
		return lipgloss.Color("#87AFAF")
	}
}

func (m Model) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	var b strings.Builder

	b.WriteString(titleStyle.Width(m.width-2).Render(m.config.Title) + "\n\n")
	b.WriteString(faintStyle.Render("tab switch view · ↑/↓ select · r reload · q quit") + "\n\n")

	switch {
	case m.error != nil:
		b.WriteString(errorStyle.Render(fmt.Sprintf("Error: %v", m.error)) + "\n")
	case m.snapshot == nil:
		b.WriteString("Loading analysis...\n")
	default:
		b.WriteString(m.renderSummary() + "\n")
		b.WriteString(m.renderTabs() + "\n\n")
		if m.tab == tabHits {
			b.WriteString(m.renderHits())
		} else {
			b.WriteString(m.renderTriples())
		}
	}

	if !m.lastUpdate.IsZero() {
		b.WriteString("\n" + faintStyle.Render("Last updated: "+m.lastUpdate.Format("15:04:05")))
	}

	return contentStyle.Width(m.width - 4).Render(b.String())
}

func (m Model) renderSummary() string {
	s := m.snapshot.Summary
	return fmt.Sprintf("Swaps: %d   Victims: %d   Triples: %d (high %d, medium %d, low %d)\n",
		s.TotalSwaps, s.Victims, s.TotalTriples(),
		s.TriplesByConfidence[types.ConfidenceHigh],
		s.TriplesByConfidence[types.ConfidenceMedium],
		s.TriplesByConfidence[types.ConfidenceLow],
	)
}

func (m Model) renderTabs() string {
	var parts []string
	for _, t := range []tab{tabTriples, tabHits} {
		if t == m.tab {
			parts = append(parts, activeTabStyle.Render(t.String()))
		} else {
			parts = append(parts, faintStyle.Render(t.String()))
		}
	}
	return strings.Join(parts, "  ")
}

func (m Model) renderTriples() string {
	triples := m.snapshot.Triples
	if len(triples) == 0 {
		return "No sandwich candidates.\n"
	}

	var b strings.Builder
	for i, t := range triples {
		line := fmt.Sprintf("%-6s victim %-20s span %d  impact %s",
			t.Confidence, t.VictimQueryID, t.Span, t.Impact.StringFixed(6))
		if i == m.cursor {
			b.WriteString(selectedStyle.Render("> "+line) + "\n")
		} else {
			b.WriteString("  " + lipgloss.NewStyle().Foreground(confidenceColor(t.Confidence)).Render(line) + "\n")
		}
	}

	if m.cursor < len(triples) {
		b.WriteString("\n" + renderTripleDetail(triples[m.cursor]))
	}
	return b.String()
}

func renderTripleDetail(t interfaces.TripleView) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Lane %s  baseline %s (%s)\n", t.Lane, t.Baseline.StringFixed(4), t.BaselineSource)
	for _, row := range []struct {
		label string
		rec   types.IndicatorRecord
	}{
		{"front ", t.FrontRecord},
		{"victim", t.VictimRecord},
		{"back  ", t.BackRecord},
	} {
		fmt.Fprintf(&b, "  %s %s\n", row.label, recordLine(row.rec))
	}
	return b.String()
}

func recordLine(rec types.IndicatorRecord) string {
	sw := rec.Swap
	line := fmt.Sprintf("%-20s %-12s lt %d", sw.QueryID, sw.Direction, sw.LT)
	if sw.Block != nil {
		line += " block " + sw.Block.String()
	}
	if rec.ScaledRate.Valid {
		line += " rate " + rec.ScaledRate.Decimal.StringFixed(4)
	}
	if rec.HitPct.Valid {
		line += " hit " + rec.HitPct.Decimal.StringFixed(2) + "%"
	}
	return line
}

func (m Model) renderHits() string {
	hits := m.snapshot.Summary.TopHits
	if len(hits) == 0 {
		return "No swaps with a minimum output.\n"
	}

	var b strings.Builder
	for i, h := range hits {
		line := fmt.Sprintf("%-20s %-12s hit %8.4f%%  lt %d", h.QueryID, h.Direction, h.HitPct, h.LT)
		if i == m.cursor {
			b.WriteString(selectedStyle.Render("> "+line) + "\n")
		} else {
			b.WriteString("  " + line + "\n")
		}
	}
	return b.String()
}

func loadSnapshot(source Source) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), loadTimeout)
		defer cancel()

		snap, err := source.Load(ctx)
		if err != nil {
			return errorMsg(err)
		}
		return snapshotMsg(snap)
	}
}

func tickCmd(refreshRate time.Duration) tea.Cmd {
	if refreshRate <= 0 {
		return nil
	}
	return tea.Tick(refreshRate, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}
