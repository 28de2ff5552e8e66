package display_test

import (
	"io"
	"testing"
	"time"

	"github.com/charmbracelet/lipgloss"
	qt "github.com/frankban/quicktest"

	"github.com/go-ports/glucowatch/internal/display"
	"github.com/go-ports/glucowatch/internal/models"
)

var now = time.Date(2024, 3, 1, 8, 30, 0, 0, time.UTC)

// plainPrinter renders to a non-terminal so no escape codes are emitted.
func plainPrinter() *display.Printer {
	return display.New(lipgloss.NewRenderer(io.Discard), func() time.Time { return now })
}

func TestTimeAgo(t *testing.T) {
	c := qt.New(t)

	cases := []struct {
		age  time.Duration
		want string
	}{
		{0, "just now"},
		{59 * time.Second, "just now"},
		{time.Minute, "1m ago"},
		{59*time.Minute + 59*time.Second, "59m ago"},
		{time.Hour, "1h ago"},
		{23 * time.Hour, "23h ago"},
		{24 * time.Hour, "1d ago"},
		{50 * time.Hour, "2d ago"},
		{-time.Minute, "just now"},
	}
	for _, tc := range cases {
		c.Assert(display.TimeAgo(now, now.Add(-tc.age)), qt.Equals, tc.want, qt.Commentf("age %s", tc.age))
	}
}

func TestPrinter_Title(t *testing.T) {
	c := qt.New(t)

	p := plainPrinter()
	c.Assert(p.Title(models.Reading{Value: 65, Trend: models.TrendSingleDown}), qt.Equals, "🔴 65 ⬇")
	c.Assert(p.Title(models.Reading{Value: 120, Trend: models.TrendFlat}), qt.Equals, "🟢 120 →")
	c.Assert(p.Title(models.Reading{Value: 300, Trend: models.Trend(42)}), qt.Equals, "🟡 300 ?")
}

func TestPrinter_Current(t *testing.T) {
	c := qt.New(t)

	r := models.Reading{Value: 210, Trend: models.TrendFortyFiveUp, Time: now.Add(-7 * time.Minute)}
	c.Assert(plainPrinter().Current(r), qt.Equals, "Current: 🟠 210 mg/dL ↗\nStatus: High\nUpdated: 7m ago")
}

func TestPrinter_Recent(t *testing.T) {
	c := qt.New(t)

	p := plainPrinter()
	c.Assert(p.Recent(nil), qt.Equals, "No readings available.")

	readings := []models.Reading{
		{Value: 182, Trend: models.TrendFlat, Time: time.Date(2024, 3, 1, 8, 25, 0, 0, time.UTC)},
		{Value: 179, Trend: models.TrendFortyFiveUp, Time: time.Date(2024, 3, 1, 6, 20, 0, 0, time.UTC)},
	}
	c.Assert(p.Recent(readings), qt.Equals,
		"Recent Readings\n"+
			"08:25 - 🟠 182 mg/dL → (5m ago)\n"+
			"06:20 - 🟢 179 mg/dL ↗ (2h ago)")
}

func TestFields(t *testing.T) {
	c := qt.New(t)

	r := models.Reading{Value: 65, Trend: models.TrendDoubleDown, Time: now.Add(-2 * time.Hour)}
	c.Assert(display.Fields(r, now), qt.DeepEquals, map[string]any{
		"value":      65,
		"trend":      7,
		"trend_name": "DoubleDown",
		"arrow":      "⬇⬇",
		"range":      "Low",
		"indicator":  "🔴",
		"time":       "2024-03-01T06:30:00Z",
		"time_ago":   "2h ago",
	})
}
