package metrics_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	qt "github.com/frankban/quicktest"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/go-ports/glucowatch/internal/metrics"
)

func TestNew_IndependentRegistries(t *testing.T) {
	c := qt.New(t)

	a, b := metrics.New(), metrics.New()
	a.PollsTotal.WithLabelValues(metrics.OutcomeOK).Inc()

	c.Assert(testutil.ToFloat64(a.PollsTotal.WithLabelValues(metrics.OutcomeOK)), qt.Equals, 1.0)
	c.Assert(testutil.ToFloat64(b.PollsTotal.WithLabelValues(metrics.OutcomeOK)), qt.Equals, 0.0)
}

func TestObserveReading(t *testing.T) {
	c := qt.New(t)

	m := metrics.New()
	at := time.Unix(1700000000, 0)
	m.ObserveReading(142, at)

	c.Assert(testutil.ToFloat64(m.LastGlucose), qt.Equals, 142.0)
	c.Assert(testutil.ToFloat64(m.LastReadingTime), qt.Equals, 1700000000.0)
}

func TestHandler(t *testing.T) {
	c := qt.New(t)

	m := metrics.New()
	m.AlertsTotal.WithLabelValues("high", "emit").Inc()
	m.ObserveReading(260, time.Unix(1700000000, 0))

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	c.Assert(err, qt.IsNil)
	defer resp.Body.Close()
	c.Assert(resp.StatusCode, qt.Equals, http.StatusOK)

	body, err := io.ReadAll(resp.Body)
	c.Assert(err, qt.IsNil)
	c.Assert(string(body), qt.Contains, `glucowatch_alerts_total{decision="emit",rule="high"} 1`)
	c.Assert(string(body), qt.Contains, "glucowatch_glucose_mg_dl 260")
	c.Assert(string(body), qt.Contains, "go_goroutines")
}
