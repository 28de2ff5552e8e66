// Package configcmd implements the `glucowatch config` command group.
package configcmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/go-ports/glucowatch/cmd/glucowatch/shared"
	"github.com/go-ports/glucowatch/internal/config"
)

const configTemplate = `# glucowatch configuration
#
# Credentials may also come from DEXCOM_USERNAME / DEXCOM_PASSWORD /
# DEXCOM_REGION (or a .env file next to this one); the environment wins.

share:
  username: ""
  password: ""
  region: US                   # US | OUS (outside the US)
  # base_url: ""               # override the regional endpoint
  timeout: 10s

poll:
  interval: 5m
  max_count: 12                # readings shown by "readings" and "watch"
  lookback_minutes: 1440

alerts:
  suppress_window: 15m         # do not repeat the same condition within this window

notify:
  sinks: [log]                 # log | stdout | slack | discord
  # slack_webhook_url: https://hooks.slack.com/services/...
  # discord_webhook_url: https://discord.com/api/webhooks/...

metrics:
  addr: ""                     # e.g. :2112 to expose /metrics during watch

log:
  level: info                  # debug | info | warn | error
  file: ""
`

// Command implements `glucowatch config`.
type Command struct {
	ctx *shared.Context
	cmd *cobra.Command
}

// New creates the config command group.
func New(ctx *shared.Context) *Command {
	c := &Command{ctx: ctx}
	c.cmd = &cobra.Command{
		Use:   "config",
		Short: "Show or manage configuration",
		RunE:  c.runShow,
	}
	c.cmd.AddCommand(
		newShow(c),
		newConfigInit(ctx),
	)
	return c
}

// Cmd returns the cobra command.
func (c *Command) Cmd() *cobra.Command { return c.cmd }

func newShow(c *Command) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration with secrets redacted",
		Args:  cobra.NoArgs,
		RunE:  c.runShow,
	}
}

func (c *Command) runShow(cmd *cobra.Command, _ []string) error {
	home, source := config.ResolveHome()
	if c.ctx.Home != "" {
		home = config.GetHome(c.ctx.Home)
		source = "flag"
	}
	if err := config.LoadDotEnv(filepath.Join(home, ".env"), ".env"); err != nil {
		return err
	}
	cfg, err := config.Load(config.Path(home))
	if err != nil {
		return err
	}

	credSource := "none"
	creds, err := cfg.Credentials()
	switch {
	case err == nil:
		credSource = creds.Source
	case !errors.Is(err, config.ErrNoCredentials):
		return err
	}

	data := map[string]any{
		"share": map[string]any{
			"username": cfg.Share.Username,
			"password": redact(cfg.Share.Password),
			"region":   cfg.Share.Region,
			"base_url": cfg.Share.BaseURL,
			"timeout":  cfg.Share.Timeout.String(),
		},
		"poll": map[string]any{
			"interval":         cfg.Poll.Interval.String(),
			"max_count":        cfg.Poll.MaxCount,
			"lookback_minutes": cfg.Poll.LookbackMinutes,
		},
		"alerts": map[string]any{
			"suppress_window": cfg.Alerts.SuppressWindow.String(),
		},
		"notify": map[string]any{
			"sinks":               cfg.Notify.Sinks,
			"slack_webhook_url":   redact(cfg.Notify.SlackWebhookURL),
			"discord_webhook_url": redact(cfg.Notify.DiscordWebhookURL),
		},
		"metrics": map[string]any{
			"addr": cfg.Metrics.Addr,
		},
		"log": map[string]any{
			"level": cfg.Log.Level,
			"file":  cfg.Log.File,
		},
		"home":               home,
		"home_source":        source,
		"credentials_source": credSource,
	}
	if err := cfg.Validate(); err != nil {
		data["invalid"] = err.Error()
	}

	b, err := yaml.Marshal(data)
	if err != nil {
		return err
	}
	fmt.Fprint(cmd.OutOrStdout(), string(b))
	return nil
}

// ---------------------------------------------------------------------------
// config init
// ---------------------------------------------------------------------------

func newConfigInit(ctx *shared.Context) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Generate a starter config.yaml",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			home := ctx.ResolvedHome()
			cfgPath := config.Path(home)
			out := cmd.OutOrStdout()
			if _, err := os.Stat(cfgPath); err == nil && !force {
				fmt.Fprintf(out, "Config already exists at %s\n", cfgPath)
				fmt.Fprintln(out, "Use --force to overwrite.")
				return nil
			}
			if err := os.MkdirAll(home, 0o700); err != nil {
				return err
			}
			if err := os.WriteFile(cfgPath, []byte(configTemplate), 0o600); err != nil {
				return err
			}
			fmt.Fprintf(out, "Created %s\n", cfgPath)
			fmt.Fprintln(out, "Edit the file to add your share credentials, then run `glucowatch check`.")
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite existing config")
	return cmd
}

func redact(secret string) string {
	if secret != "" {
		return "<redacted>"
	}
	return ""
}
