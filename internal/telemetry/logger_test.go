package telemetry_test

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	qt "github.com/frankban/quicktest"

	"github.com/go-ports/glucowatch/internal/telemetry"
)

// restoreDefault puts the previous default logger back after the test.
func restoreDefault(t *testing.T) {
	t.Helper()
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })
}

func TestParseLevel(t *testing.T) {
	c := qt.New(t)

	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"":        slog.LevelInfo,
		"INFO":    slog.LevelInfo,
		"warn":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
	}
	for in, want := range cases {
		got, err := telemetry.ParseLevel(in)
		c.Assert(err, qt.IsNil, qt.Commentf("level %q", in))
		c.Assert(got, qt.Equals, want, qt.Commentf("level %q", in))
	}

	_, err := telemetry.ParseLevel("trace")
	c.Assert(err, qt.ErrorMatches, `unknown log level "trace"`)
}

func TestInitLogger_WriterOnly(t *testing.T) {
	c := qt.New(t)
	restoreDefault(t)

	var buf bytes.Buffer
	closeFn, err := telemetry.InitLogger(slog.LevelInfo, &buf, "")
	c.Assert(err, qt.IsNil)
	defer closeFn()

	slog.Debug("hidden")
	slog.Info("poll", "value", 120)

	out := buf.String()
	c.Assert(strings.Contains(out, "hidden"), qt.IsFalse)
	c.Assert(out, qt.Contains, "msg=poll")
	c.Assert(out, qt.Contains, "value=120")
}

func TestInitLogger_WithFile(t *testing.T) {
	c := qt.New(t)
	restoreDefault(t)

	var buf bytes.Buffer
	logFile := filepath.Join(t.TempDir(), "logs", "glucowatch.log")
	closeFn, err := telemetry.InitLogger(slog.LevelDebug, &buf, logFile)
	c.Assert(err, qt.IsNil)

	slog.With("component", "watch").Debug("tick", "n", 1)
	c.Assert(closeFn(), qt.IsNil)

	c.Assert(buf.String(), qt.Contains, "component=watch")

	data, err := os.ReadFile(logFile)
	c.Assert(err, qt.IsNil)
	var rec map[string]any
	c.Assert(json.Unmarshal(bytes.TrimSpace(data), &rec), qt.IsNil)
	c.Assert(rec["msg"], qt.Equals, "tick")
	c.Assert(rec["component"], qt.Equals, "watch")
	c.Assert(rec["level"], qt.Equals, "DEBUG")
}

func TestInitLogger_FailurePath(t *testing.T) {
	c := qt.New(t)
	restoreDefault(t)

	// A regular file where the log directory should be.
	blocker := filepath.Join(t.TempDir(), "blocker")
	c.Assert(os.WriteFile(blocker, nil, 0o600), qt.IsNil)

	_, err := telemetry.InitLogger(slog.LevelInfo, &bytes.Buffer{}, filepath.Join(blocker, "x.log"))
	c.Assert(err, qt.ErrorMatches, "telemetry: create log dir.*")
}
