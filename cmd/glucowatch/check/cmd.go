// Package checkcmd implements the `glucowatch check` command.
package checkcmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/go-ports/glucowatch/cmd/glucowatch/shared"
	"github.com/go-ports/glucowatch/internal/share"
)

// Command implements `glucowatch check`.
type Command struct {
	ctx *shared.Context
	cmd *cobra.Command
}

// New creates the check command.
func New(ctx *shared.Context) *Command {
	c := &Command{ctx: ctx}
	c.cmd = &cobra.Command{
		Use:   "check",
		Short: "Verify the share credentials by logging in and fetching the current reading",
		Args:  cobra.NoArgs,
		RunE:  c.run,
	}
	return c
}

// Cmd returns the cobra command.
func (c *Command) Cmd() *cobra.Command { return c.cmd }

func (c *Command) run(cmd *cobra.Command, _ []string) error {
	svc, err := c.ctx.OpenService(cmd)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	creds := svc.Credentials
	fmt.Fprintf(out, "Testing credentials for %s (region %s, from %s)...\n", creds.Username, creds.Region, creds.Source)

	r, err := svc.Check(cmd.Context())
	switch {
	case share.IsAuthentication(err):
		fmt.Fprintf(out, "✗ Authentication failed: %s\n", svc.RedactError(err))
		fmt.Fprintln(out, "\nPlease verify:")
		fmt.Fprintln(out, "  - Your username and password are correct")
		fmt.Fprintln(out, "  - Share is enabled in the mobile app")
		fmt.Fprintln(out, "  - You selected the correct region")
		return fmt.Errorf("check: %w", err)
	case err != nil:
		fmt.Fprintf(out, "⚠ API Error: %s\n", svc.RedactError(err))
		fmt.Fprintln(out, "Credentials may be correct but there was a network issue.")
		return fmt.Errorf("check: %w", err)
	}

	fmt.Fprintln(out, "✓ Authentication successful!")
	if r == nil {
		fmt.Fprintln(out, "⚠ Authentication worked but no glucose data available.")
		return nil
	}
	fmt.Fprintf(out, "✓ Current glucose: %d mg/dL %s\n", r.Value, r.Arrow())
	return nil
}
