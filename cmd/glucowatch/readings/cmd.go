// Package readingscmd implements the `glucowatch readings` command.
package readingscmd

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/go-ports/glucowatch/cmd/glucowatch/shared"
	"github.com/go-ports/glucowatch/internal/display"
)

// Command implements `glucowatch readings`.
type Command struct {
	ctx *shared.Context
	cmd *cobra.Command

	limit   int
	minutes int
	asJSON  bool
}

// New creates the readings command.
func New(ctx *shared.Context) *Command {
	c := &Command{ctx: ctx}
	c.cmd = &cobra.Command{
		Use:   "readings",
		Short: "List recent glucose readings, newest first",
		Args:  cobra.NoArgs,
		RunE:  c.run,
	}
	c.cmd.Flags().IntVarP(&c.limit, "limit", "n", 0, "Max readings, 1-288 (default: poll.max_count from config)")
	c.cmd.Flags().IntVar(&c.minutes, "minutes", 0, "Lookback window in minutes, 1-1440 (default: poll.lookback_minutes from config)")
	c.cmd.Flags().BoolVar(&c.asJSON, "json", false, "Print readings as JSON")
	return c
}

// Cmd returns the cobra command.
func (c *Command) Cmd() *cobra.Command { return c.cmd }

func (c *Command) run(cmd *cobra.Command, _ []string) error {
	if c.limit < 0 || c.limit > 288 {
		return fmt.Errorf("--limit must be between 1 and 288")
	}
	if c.minutes < 0 || c.minutes > 1440 {
		return fmt.Errorf("--minutes must be between 1 and 1440")
	}

	svc, err := c.ctx.OpenService(cmd)
	if err != nil {
		return err
	}
	readings, err := svc.Recent(cmd.Context(), c.limit, c.minutes)
	if err != nil {
		return fmt.Errorf("readings: %w", err)
	}

	out := cmd.OutOrStdout()
	if c.asJSON {
		now := time.Now()
		docs := make([]map[string]any, 0, len(readings))
		for _, r := range readings {
			docs = append(docs, display.Fields(r, now))
		}
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(docs)
	}

	fmt.Fprintln(out, c.ctx.Printer(cmd).Recent(readings))
	return nil
}
