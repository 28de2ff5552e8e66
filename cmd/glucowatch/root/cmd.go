// Package rootcmd wires the root cobra.Command for the glucowatch CLI binary.
package rootcmd

import (
	"github.com/spf13/cobra"

	checkcmd "github.com/go-ports/glucowatch/cmd/glucowatch/check"
	configcmd "github.com/go-ports/glucowatch/cmd/glucowatch/config"
	currentcmd "github.com/go-ports/glucowatch/cmd/glucowatch/current"
	mcpcmd "github.com/go-ports/glucowatch/cmd/glucowatch/mcp"
	readingscmd "github.com/go-ports/glucowatch/cmd/glucowatch/readings"
	setupcmd "github.com/go-ports/glucowatch/cmd/glucowatch/setup"
	"github.com/go-ports/glucowatch/cmd/glucowatch/shared"
	uninstallcmd "github.com/go-ports/glucowatch/cmd/glucowatch/uninstall"
	versioncmd "github.com/go-ports/glucowatch/cmd/glucowatch/version"
	watchcmd "github.com/go-ports/glucowatch/cmd/glucowatch/watch"
	"github.com/go-ports/glucowatch/internal/buildinfo"
)

// New creates and returns the root cobra.Command for the glucowatch CLI.
func New() *cobra.Command {
	ctx := &shared.Context{}

	root := &cobra.Command{
		Use:           "glucowatch",
		Short:         "glucowatch: glucose share monitor with threshold alerts",
		Version:       buildinfo.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          func(cmd *cobra.Command, _ []string) error { return cmd.Help() },
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return ctx.InitLogging(cmd)
		},
		PersistentPostRunE: func(_ *cobra.Command, _ []string) error {
			return ctx.CloseLogging()
		},
	}

	root.PersistentFlags().StringVar(
		&ctx.Home, "home", "",
		"Override home directory (default: $GLUCOWATCH_HOME env → ~/.glucowatch)",
	)
	root.PersistentFlags().StringVar(
		&ctx.LogLevel, "log-level", "",
		"Log level: debug, info, warn or error (default: log.level from config)",
	)

	root.AddCommand(
		watchcmd.New(ctx).Cmd(),
		currentcmd.New(ctx).Cmd(),
		readingscmd.New(ctx).Cmd(),
		checkcmd.New(ctx).Cmd(),
		configcmd.New(ctx).Cmd(),
		mcpcmd.New(ctx).Cmd(),
		setupcmd.New(ctx).Cmd(),
		uninstallcmd.New(ctx).Cmd(),
		versioncmd.New(ctx).Cmd(),
	)

	return root
}
