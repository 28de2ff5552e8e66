// Package display formats readings for the terminal.
package display

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/go-ports/glucowatch/internal/models"
)

// Printer renders readings with range-coloured values. Colours are dropped
// automatically when the renderer's output is not a terminal.
type Printer struct {
	now    func() time.Time
	ranges map[models.Range]lipgloss.Style
	muted  lipgloss.Style
	header lipgloss.Style
}

// New returns a Printer for r. A nil now uses time.Now.
func New(r *lipgloss.Renderer, now func() time.Time) *Printer {
	if r == nil {
		r = lipgloss.DefaultRenderer()
	}
	if now == nil {
		now = time.Now
	}
	return &Printer{
		now: now,
		ranges: map[models.Range]lipgloss.Style{
			models.RangeLow:      r.NewStyle().Foreground(lipgloss.Color("9")).Bold(true),
			models.RangeInRange:  r.NewStyle().Foreground(lipgloss.Color("10")),
			models.RangeHigh:     r.NewStyle().Foreground(lipgloss.Color("214")),
			models.RangeVeryHigh: r.NewStyle().Foreground(lipgloss.Color("11")).Bold(true),
		},
		muted:  r.NewStyle().Foreground(lipgloss.Color("241")),
		header: r.NewStyle().Bold(true),
	}
}

func (p *Printer) value(v int) string {
	return p.ranges[models.RangeOf(v)].Render(fmt.Sprintf("%d", v))
}

// Title is the compact status: indicator, value and arrow.
func (p *Printer) Title(r models.Reading) string {
	return fmt.Sprintf("%s %s %s", models.RangeOf(r.Value).Indicator(), p.value(r.Value), r.Arrow())
}

// Current renders the three-line current reading block.
func (p *Printer) Current(r models.Reading) string {
	rng := models.RangeOf(r.Value)
	return fmt.Sprintf("Current: %s %s mg/dL %s\nStatus: %s\nUpdated: %s",
		rng.Indicator(), p.value(r.Value), r.Arrow(),
		rng,
		p.muted.Render(TimeAgo(p.now(), r.Time)),
	)
}

// Line renders one recent reading as "HH:MM - indicator value mg/dL arrow (ago)".
func (p *Printer) Line(r models.Reading) string {
	return fmt.Sprintf("%s - %s %s mg/dL %s %s",
		r.Time.Format("15:04"),
		models.RangeOf(r.Value).Indicator(), p.value(r.Value), r.Arrow(),
		p.muted.Render("("+TimeAgo(p.now(), r.Time)+")"),
	)
}

// Recent renders a header and one Line per reading.
func (p *Printer) Recent(readings []models.Reading) string {
	if len(readings) == 0 {
		return "No readings available."
	}
	var b strings.Builder
	b.WriteString(p.header.Render("Recent Readings"))
	for _, r := range readings {
		b.WriteString("\n")
		b.WriteString(p.Line(r))
	}
	return b.String()
}

// TimeAgo renders the age of t relative to now: "just now" under a minute,
// then whole minutes, hours or days.
func TimeAgo(now, t time.Time) string {
	d := now.Sub(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d/time.Minute))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d/time.Hour))
	default:
		return fmt.Sprintf("%dd ago", int(d/(24*time.Hour)))
	}
}

// Fields is the JSON shape of a reading shared by the CLI and the MCP tools.
func Fields(r models.Reading, now time.Time) map[string]any {
	rng := models.RangeOf(r.Value)
	return map[string]any{
		"value":      r.Value,
		"trend":      int(r.Trend),
		"trend_name": r.TrendName(),
		"arrow":      r.Arrow(),
		"range":      rng.String(),
		"indicator":  rng.Indicator(),
		"time":       r.Time.Format(time.RFC3339),
		"time_ago":   TimeAgo(now, r.Time),
	}
}
