// Package currentcmd implements the `glucowatch current` command.
package currentcmd

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/go-ports/glucowatch/cmd/glucowatch/shared"
	"github.com/go-ports/glucowatch/internal/display"
)

// Command implements `glucowatch current`.
type Command struct {
	ctx *shared.Context
	cmd *cobra.Command

	asJSON bool
	notify bool
}

// New creates the current command.
func New(ctx *shared.Context) *Command {
	c := &Command{ctx: ctx}
	c.cmd = &cobra.Command{
		Use:   "current",
		Short: "Show the most recent glucose reading",
		Args:  cobra.NoArgs,
		RunE:  c.run,
	}
	c.cmd.Flags().BoolVar(&c.asJSON, "json", false, "Print the reading as JSON")
	c.cmd.Flags().BoolVar(&c.notify, "notify", false, "Also send the reading through the configured sinks")
	return c
}

// Cmd returns the cobra command.
func (c *Command) Cmd() *cobra.Command { return c.cmd }

func (c *Command) run(cmd *cobra.Command, _ []string) error {
	svc, err := c.ctx.OpenService(cmd)
	if err != nil {
		return err
	}
	r, err := svc.Current(cmd.Context())
	if err != nil {
		return fmt.Errorf("current: %w", err)
	}

	out := cmd.OutOrStdout()
	switch {
	case c.asJSON:
		doc := map[string]any{"available": r != nil}
		if r != nil {
			doc = display.Fields(*r, time.Now())
			doc["available"] = true
		}
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(doc); err != nil {
			return err
		}
	case r == nil:
		fmt.Fprintln(out, "No glucose reading available.")
	default:
		fmt.Fprintln(out, c.ctx.Printer(cmd).Current(*r))
	}

	if c.notify {
		if err := svc.NotifyCurrent(cmd.Context(), r); err != nil {
			return fmt.Errorf("current: notify: %w", err)
		}
	}
	return nil
}
