// Package setupcmd implements the `glucowatch setup` command group.
package setupcmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/go-ports/glucowatch/cmd/glucowatch/shared"
	"github.com/go-ports/glucowatch/internal/setup"
)

// Command implements `glucowatch setup`.
type Command struct {
	ctx *shared.Context
	cmd *cobra.Command
}

// New creates the setup command group with one subcommand per agent.
func New(ctx *shared.Context) *Command {
	c := &Command{ctx: ctx}
	c.cmd = &cobra.Command{
		Use:   "setup",
		Short: "Register the glucowatch MCP server with a coding agent",
		RunE:  func(cmd *cobra.Command, _ []string) error { return cmd.Help() },
	}
	for _, agent := range setup.Agents() {
		c.cmd.AddCommand(c.newAgent(agent))
	}
	return c
}

// Cmd returns the cobra command.
func (c *Command) Cmd() *cobra.Command { return c.cmd }

func (c *Command) newAgent(agent setup.Agent) *cobra.Command {
	var t setup.Target
	cmd := &cobra.Command{
		Use:   string(agent),
		Short: fmt.Sprintf("Register the MCP server with %s", agent.Label()),
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			// An explicit --home is pinned into the agent config so the
			// server reads the same config as this invocation.
			home := ""
			if c.ctx.Home != "" {
				home = c.ctx.ResolvedHome()
			}
			res, err := setup.Install(agent, t, setup.DefaultServer(home))
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), res.Message)
			return nil
		},
	}
	shared.AgentFlags(cmd, agent, &t, "Install")
	return cmd
}
