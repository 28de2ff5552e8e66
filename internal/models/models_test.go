package models_test

import (
	"testing"

	qt "github.com/frankban/quicktest"

	"github.com/go-ports/glucowatch/internal/models"
)

func TestTrend_HappyPath(t *testing.T) {
	c := qt.New(t)

	tests := []struct {
		trend     models.Trend
		wantArrow string
		wantName  string
	}{
		{models.TrendNone, "⚠", "None"},
		{models.TrendDoubleUp, "⬆⬆", "DoubleUp"},
		{models.TrendSingleUp, "⬆", "SingleUp"},
		{models.TrendFortyFiveUp, "↗", "FortyFiveUp"},
		{models.TrendFlat, "→", "Flat"},
		{models.TrendFortyFiveDown, "↘", "FortyFiveDown"},
		{models.TrendSingleDown, "⬇", "SingleDown"},
		{models.TrendDoubleDown, "⬇⬇", "DoubleDown"},
		{models.TrendNotComputable, "⚠", "NotComputable"},
		{models.TrendRateOutOfRange, "⚠", "RateOutOfRange"},
	}

	for _, tt := range tests {
		c.Run(tt.wantName, func(c *qt.C) {
			c.Assert(tt.trend.Known(), qt.IsTrue)
			c.Assert(tt.trend.Arrow(), qt.Equals, tt.wantArrow)
			c.Assert(tt.trend.Name(), qt.Equals, tt.wantName)
			c.Assert(models.ParseTrendName(tt.wantName), qt.Equals, tt.trend)
		})
	}
}

func TestTrend_FailurePath(t *testing.T) {
	c := qt.New(t)

	for _, code := range []models.Trend{-1, 10, 42} {
		c.Assert(code.Known(), qt.IsFalse)
		c.Assert(code.Arrow(), qt.Equals, "?")
		c.Assert(code.Name(), qt.Equals, "Unknown")
	}

	c.Run("unknown names map to None", func(c *qt.C) {
		c.Assert(models.ParseTrendName("Sideways"), qt.Equals, models.TrendNone)
		c.Assert(models.ParseTrendName(""), qt.Equals, models.TrendNone)
		c.Assert(models.ParseTrendName("singledown"), qt.Equals, models.TrendNone)
	})
}

func TestReading_DerivedFields(t *testing.T) {
	c := qt.New(t)

	r := models.Reading{Value: 125, Trend: models.TrendSingleDown}
	c.Assert(r.Arrow(), qt.Equals, "⬇")
	c.Assert(r.TrendName(), qt.Equals, "SingleDown")
}

func TestRangeOf(t *testing.T) {
	c := qt.New(t)

	tests := []struct {
		value         int
		wantName      string
		wantIndicator string
	}{
		{0, "Low", "🔴"},
		{69, "Low", "🔴"},
		{70, "In Range", "🟢"},
		{180, "In Range", "🟢"},
		{181, "High", "🟠"},
		{250, "High", "🟠"},
		{251, "Very High", "🟡"},
	}

	for _, tt := range tests {
		r := models.RangeOf(tt.value)
		c.Assert(r.String(), qt.Equals, tt.wantName, qt.Commentf("value %d", tt.value))
		c.Assert(r.Indicator(), qt.Equals, tt.wantIndicator, qt.Commentf("value %d", tt.value))
	}
}
