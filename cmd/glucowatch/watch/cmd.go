// Package watchcmd implements the `glucowatch watch` command.
package watchcmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/go-ports/glucowatch/cmd/glucowatch/shared"
	"github.com/go-ports/glucowatch/internal/alert"
	"github.com/go-ports/glucowatch/internal/display"
	"github.com/go-ports/glucowatch/internal/metrics"
	"github.com/go-ports/glucowatch/internal/service"
	"github.com/go-ports/glucowatch/internal/share"
)

// Command implements `glucowatch watch`.
type Command struct {
	ctx *shared.Context
	cmd *cobra.Command

	interval    time.Duration
	metricsAddr string
	count       int
}

// New creates the watch command.
func New(ctx *shared.Context) *Command {
	c := &Command{ctx: ctx}
	c.cmd = &cobra.Command{
		Use:   "watch",
		Short: "Poll glucose readings and send threshold alerts",
		Long: `Poll the share service immediately and then every interval, print a status
line per cycle and send an alert through the configured sinks when a reading
crosses a threshold. The same condition is not announced again within the
suppression window.`,
		Args: cobra.NoArgs,
		RunE: c.run,
	}
	c.cmd.Flags().DurationVar(&c.interval, "interval", 0, "Poll interval (default: poll.interval from config)")
	c.cmd.Flags().StringVar(&c.metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address, e.g. :2112 (default: metrics.addr from config)")
	c.cmd.Flags().IntVar(&c.count, "count", 0, "Stop after this many poll cycles (0 runs until interrupted)")
	return c
}

// Cmd returns the cobra command.
func (c *Command) Cmd() *cobra.Command { return c.cmd }

func (c *Command) run(cmd *cobra.Command, _ []string) error {
	if c.count < 0 {
		return fmt.Errorf("--count must not be negative")
	}

	m := metrics.New()
	svc, err := c.ctx.OpenService(cmd, service.WithMetrics(m))
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	addr := c.metricsAddr
	if addr == "" {
		addr = svc.Config.Metrics.Addr
	}
	if addr != "" {
		go func() {
			if err := m.Serve(ctx, addr); err != nil {
				slog.Error("metrics server", "addr", addr, "err", err)
			}
		}()
	}

	p := c.ctx.Printer(cmd)
	out := cmd.OutOrStdout()
	cycles := 0
	return svc.Run(ctx, c.interval, func(res service.PollResult, err error) {
		fmt.Fprintln(out, svc.Redact(statusLine(p, res, err)))
		cycles++
		if c.count > 0 && cycles >= c.count {
			cancel()
		}
	})
}

// statusLine renders one cycle the way a status bar would show it.
func statusLine(p *display.Printer, res service.PollResult, err error) string {
	switch {
	case err != nil && share.IsAuthentication(err):
		return "⚠ Auth Error: " + err.Error()
	case err != nil && isAPIError(err):
		return "⚠ API Error: " + err.Error()
	case err != nil:
		return "⚠ Error: " + err.Error()
	case res.Current == nil:
		return "⚠ No Data"
	}

	line := p.Title(*res.Current)
	switch res.Decision {
	case alert.Emit:
		line += "  " + res.Alert.Subtitle
		if res.NotifyErr != nil {
			line += " (not delivered)"
		}
	case alert.Suppressed:
		line += "  " + res.Alert.Subtitle + " (suppressed)"
	}
	return line
}

func isAPIError(err error) bool {
	var apiErr *share.APIError
	return errors.As(err, &apiErr)
}
