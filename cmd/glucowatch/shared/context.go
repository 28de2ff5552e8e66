// Package shared holds the context passed to all CLI commands.
package shared

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/go-ports/glucowatch/internal/config"
	"github.com/go-ports/glucowatch/internal/display"
	"github.com/go-ports/glucowatch/internal/notify"
	"github.com/go-ports/glucowatch/internal/service"
	"github.com/go-ports/glucowatch/internal/setup"
	"github.com/go-ports/glucowatch/internal/telemetry"
)

// Context carries global CLI state (flags set on the root command).
type Context struct {
	// Home overrides the home directory.
	// When empty, resolution falls through to GLUCOWATCH_HOME env var → ~/.glucowatch.
	Home string
	// LogLevel overrides log.level from the config file.
	LogLevel string

	closeLog func() error
}

// ResolvedHome returns the effective home directory.
func (c *Context) ResolvedHome() string { return config.GetHome(c.Home) }

// InitLogging installs the process logger on the command's stderr, using the
// level and file from the config unless --log-level was given. A config that
// cannot be read is ignored here; commands that need it report the error.
func (c *Context) InitLogging(cmd *cobra.Command) error {
	level, file := "info", ""
	if cfg, err := config.Load(config.Path(c.ResolvedHome())); err == nil {
		level, file = cfg.Log.Level, cfg.Log.File
	}
	if c.LogLevel != "" {
		level = c.LogLevel
	}
	lvl, err := telemetry.ParseLevel(level)
	if err != nil {
		return err
	}
	closeFn, err := telemetry.InitLogger(lvl, cmd.ErrOrStderr(), file)
	if err != nil {
		return err
	}
	c.closeLog = closeFn
	return nil
}

// CloseLogging releases the log file, if any.
func (c *Context) CloseLogging() error {
	if c.closeLog == nil {
		return nil
	}
	err := c.closeLog()
	c.closeLog = nil
	return err
}

// OpenService loads the config and builds a Service whose stdout sink
// writes to the command's output.
func (c *Context) OpenService(cmd *cobra.Command, opts ...service.Option) (*service.Service, error) {
	home := c.ResolvedHome()
	cfg, err := config.LoadHome(home)
	if err != nil {
		return nil, err
	}
	sinks, err := notify.FromConfig(cfg.Notify, notify.Options{Stdout: cmd.OutOrStdout()})
	if err != nil {
		return nil, err
	}
	svc, err := service.New(cfg, append([]service.Option{service.WithNotifier(sinks)}, opts...)...)
	if err != nil {
		return nil, err
	}
	svc.Home = home
	return svc, nil
}

// Printer returns a display.Printer for the command's output. Colours are
// only emitted when that output is a terminal.
func (c *Context) Printer(cmd *cobra.Command) *display.Printer {
	return display.New(lipgloss.NewRenderer(cmd.OutOrStdout()), nil)
}

// AgentFlags binds the --project and, where the agent has a config
// directory, --config-dir flags of a setup or uninstall subcommand to t.
// verb starts the --project help text.
func AgentFlags(cmd *cobra.Command, agent setup.Agent, t *setup.Target, verb string) {
	cmd.Flags().BoolVar(&t.Project, "project", false, verb+" for the current project instead of globally")
	switch agent {
	case setup.Cursor:
		cmd.Flags().StringVar(&t.Dir, "config-dir", "", "Path to the .cursor directory")
	case setup.Codex:
		cmd.Flags().StringVar(&t.Dir, "config-dir", "", "Path to the .codex directory")
	}
}
