// Package report renders an analysis as a human-readable summary or JSON.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mev-engine/ton-mev-lab/pkg/interfaces"
	"github.com/mev-engine/ton-mev-lab/pkg/types"
)

const (
	FormatText = "text"
	FormatJSON = "json"
)

// Formats lists the accepted report formats
var Formats = []string{FormatText, FormatJSON}

// DefaultTripleRows bounds the triple listing in text reports
const DefaultTripleRows = 20

// Options control text rendering
type Options struct {
	Styled     bool
	Input      string
	TripleRows int
}

// Write renders the analysis in the given format
func Write(w io.Writer, format string, a *interfaces.Analysis, opts Options) error {
	switch format {
	case FormatText, "":
		return Text(w, a, opts)
	case FormatJSON:
		return JSON(w, a)
	default:
		return fmt.Errorf("unknown report format %q", format)
	}
}

// JSON writes the summary, triples and pair counts as indented JSON. Records
// are left to the NDJSON records output.
func JSON(w io.Writer, a *interfaces.Analysis) error {
	out := struct {
		Summary *interfaces.Summary `json:"summary"`
		Triples []types.Triple      `json:"triples"`
	}{
		Summary: a.Summary,
		Triples: a.Triples,
	}
	if out.Triples == nil {
		out.Triples = []types.Triple{}
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(out)
}

type styles struct {
	title   lipgloss.Style
	section lipgloss.Style
	label   lipgloss.Style
	alert   lipgloss.Style
	faint   lipgloss.Style
}

func newStyles() styles {
	return styles{
		title: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1),
		section: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#874BFD")),
		label:   lipgloss.NewStyle().Foreground(lipgloss.Color("#A0A0A0")),
		alert:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FF5F5F")),
		faint:   lipgloss.NewStyle().Faint(true),
	}
}

type textWriter struct {
	sb     strings.Builder
	st     styles
	styled bool
}

func (t *textWriter) render(style lipgloss.Style, s string) string {
	if !t.styled {
		return s
	}
	return style.Render(s)
}

func (t *textWriter) section(title string) {
	t.sb.WriteString("\n")
	t.sb.WriteString(t.render(t.st.section, title))
	t.sb.WriteString("\n")
	t.sb.WriteString(strings.Repeat("-", len(title)))
	t.sb.WriteString("\n")
}

func (t *textWriter) row(label string, format string, args ...any) {
	t.sb.WriteString(t.render(t.st.label, fmt.Sprintf("%-24s", label)))
	t.sb.WriteString(fmt.Sprintf(format, args...))
	t.sb.WriteString("\n")
}

func (t *textWriter) dist(label string, d interfaces.Distribution, precision int) {
	if d.Count == 0 {
		t.row(label, "n=0")
		return
	}
	f := fmt.Sprintf("n=%%d min=%%.%[1]df median=%%.%[1]df mean=%%.%[1]df max=%%.%[1]df", precision)
	t.row(label, f, d.Count, d.Min, d.Median, d.Mean, d.Max)
}

// Text writes the summary report
func Text(w io.Writer, a *interfaces.Analysis, opts Options) error {
	s := a.Summary
	if s == nil {
		return fmt.Errorf("analysis has no summary")
	}
	rows := opts.TripleRows
	if rows <= 0 {
		rows = DefaultTripleRows
	}

	t := &textWriter{st: newStyles(), styled: opts.Styled}
	t.sb.WriteString(t.render(t.st.title, "STON.fi TON/USDT swap analysis"))
	t.sb.WriteString("\n")
	if opts.Input != "" {
		t.sb.WriteString(t.render(t.st.faint, "input: "+opts.Input))
		t.sb.WriteString("\n")
	}

	rt := s.Reconstruction
	t.section("Reconstruction")
	t.row("Message events", "%d", rt.Events)
	t.row("Query groups", "%d", rt.Groups)
	t.row("Swaps emitted", "%d", rt.Emitted)
	t.row("Incomplete groups", "%d", rt.Incomplete)
	t.row("Unknown direction", "%d", rt.UnknownDirection)
	t.row("Failed swaps", "%d", rt.Failed)
	t.row("Pool mismatch", "%d", rt.PoolMismatch)
	t.row("Duplicate roles", "%d", rt.DuplicateRoles)

	t.section("Swaps")
	t.row("Total", "%d", s.TotalSwaps)
	for _, dir := range types.Directions {
		t.row(string(dir), "%d", s.SwapsByDirection[dir])
	}
	t.row("Valid rates", "%d", s.ValidRates)
	t.row("With min_out", "%d", s.WithMinOut)
	t.row("Invalid rate", "%d", s.Tally.InvalidRate)
	t.row("Outside sanity range", "%d", s.Tally.SanityRange)
	t.row("Zero min_out", "%d", s.Tally.ZeroMinOut)
	t.row("Without block", "%d", s.Tally.NoBlock)
	if s.Tally.HitAbove100 > 0 {
		t.row("hit_pct above 100", "%s", t.render(t.st.alert, fmt.Sprintf("%d", s.Tally.HitAbove100)))
	}

	t.section("Indicators")
	t.dist("hit_pct", s.HitPct, 4)
	t.dist("scaled_rate", s.ScaledRate, 4)
	for _, dir := range types.Directions {
		if d, ok := s.ScaledRateByDirection[dir]; ok {
			t.dist("  "+string(dir), d, 4)
		}
	}
	t.dist("rate_deviation", s.RateDeviation, 6)

	mode := "same block only"
	if s.CrossBlock {
		mode = fmt.Sprintf("cross-block, gap %d", s.BlockGap)
	}
	t.section(fmt.Sprintf("Sandwich candidates (%s)", mode))
	t.row("Victims", "%d", s.Victims)
	t.row("Front-runners", "%d", s.FrontRunners)
	t.row("Back-runners", "%d", s.BackRunners)
	for _, c := range types.Confidences {
		t.row("Triples "+string(c), "%d", s.TriplesByConfidence[c])
	}
	t.dist("victim impact", s.VictimImpact, 6)
	t.dist("front->victim seconds", s.TripleLatency, 1)

	if len(a.Triples) > 0 {
		t.sb.WriteString("\n")
		for i, tr := range a.Triples {
			if i == rows {
				t.sb.WriteString(t.render(t.st.faint, fmt.Sprintf("... %d more", len(a.Triples)-rows)))
				t.sb.WriteString("\n")
				break
			}
			t.sb.WriteString(fmt.Sprintf("  %-6s %s  A=%s V=%s B=%s span=%d impact=%s (%s)\n",
				tr.Confidence, tr.Lane, tr.FrontQueryID, tr.VictimQueryID, tr.BackQueryID,
				tr.Span, tr.Impact.StringFixed(6), tr.BaselineSource))
		}
	}

	t.section("Pair scans")
	for _, kind := range types.PairKinds {
		t.row(string(kind), "%d", s.PairsByKind[kind])
	}

	if len(s.TopHits) > 0 {
		t.section("Closest to min_out")
		for _, h := range s.TopHits {
			t.sb.WriteString(fmt.Sprintf("  %-20s %-12s hit=%.4f%% lt=%d\n", h.QueryID, h.Direction, h.HitPct, h.LT))
		}
	}

	_, err := io.WriteString(w, t.sb.String())
	return err
}
