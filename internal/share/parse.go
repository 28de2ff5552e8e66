package share

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/go-ports/glucowatch/internal/models"
)

// rawReading is one record of ReadPublisherLatestGlucoseValues.
type rawReading struct {
	WT    string          `json:"WT"`
	Value *int            `json:"Value"`
	Trend json.RawMessage `json:"Trend"`
}

// parseReading converts a wire record into a Reading. A missing or negative
// value and an unreadable timestamp are errors; an odd trend is not.
func parseReading(raw rawReading) (models.Reading, error) {
	ts, err := parseWT(raw.WT)
	if err != nil {
		return models.Reading{}, &APIError{Op: "parse", Err: err}
	}
	if raw.Value == nil {
		return models.Reading{}, &APIError{Op: "parse", Err: fmt.Errorf("record at %s has no Value", raw.WT)}
	}
	if *raw.Value < 0 {
		return models.Reading{}, &APIError{Op: "parse", Err: fmt.Errorf("negative Value %d", *raw.Value)}
	}

	trend := parseTrend(raw.Trend)
	slog.Debug("share: parsed reading", "wt", raw.WT, "value", *raw.Value,
		"raw_trend", string(raw.Trend), "trend", int(trend), "arrow", trend.Arrow())

	return models.Reading{Value: *raw.Value, Trend: trend, Time: ts}, nil
}

// parseWT strips the /Date(ms)/ or Date(ms) wrapper and returns the instant
// in local time.
func parseWT(wt string) (time.Time, error) {
	s := strings.ReplaceAll(wt, "/Date(", "")
	s = strings.ReplaceAll(s, ")/", "")
	s = strings.ReplaceAll(s, "Date(", "")
	s = strings.ReplaceAll(s, ")", "")
	ms, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("malformed timestamp %q: %w", wt, err)
	}
	return time.UnixMilli(ms).Local(), nil
}

// parseTrend accepts either the integer code or the string name.
// Missing, null and unrecognised values all become TrendNone.
func parseTrend(raw json.RawMessage) models.Trend {
	if len(raw) == 0 {
		return models.TrendNone
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return models.TrendNone
	}
	switch t := v.(type) {
	case float64:
		if t != math.Trunc(t) {
			return models.TrendNone
		}
		code := models.Trend(int(t))
		if !code.Known() {
			return models.TrendNone
		}
		return code
	case string:
		return models.ParseTrendName(t)
	default:
		return models.TrendNone
	}
}
