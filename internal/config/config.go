// Package config handles configuration loading, credential lookup and home
// directory resolution.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// ---------------------------------------------------------------------------
// Config types
// ---------------------------------------------------------------------------

// ShareConfig holds the share account and endpoint settings.
type ShareConfig struct {
	Username string        `yaml:"username"`
	Password string        `yaml:"password"` // #nosec G117 -- share account password, redacted by `config show`
	Region   string        `yaml:"region"`   // "US" | "OUS"
	BaseURL  string        `yaml:"base_url"` // optional endpoint override
	Timeout  time.Duration `yaml:"timeout"`
}

// PollConfig controls the watch loop.
type PollConfig struct {
	Interval        time.Duration `yaml:"interval"`
	MaxCount        int           `yaml:"max_count"`
	LookbackMinutes int           `yaml:"lookback_minutes"`
}

// AlertConfig controls notification suppression.
type AlertConfig struct {
	SuppressWindow time.Duration `yaml:"suppress_window"`
}

// NotifyConfig selects the notification sinks.
type NotifyConfig struct {
	Sinks             []string `yaml:"sinks"` // "log" | "stdout" | "slack" | "discord"
	SlackWebhookURL   string   `yaml:"slack_webhook_url"`
	DiscordWebhookURL string   `yaml:"discord_webhook_url"`
}

// MetricsConfig controls the Prometheus endpoint of the watch loop.
type MetricsConfig struct {
	Addr string `yaml:"addr"` // empty disables the endpoint
}

// LogConfig controls logging.
type LogConfig struct {
	Level string `yaml:"level"` // "debug" | "info" | "warn" | "error"
	File  string `yaml:"file"`
}

// Config is the root configuration.
type Config struct {
	Share   ShareConfig   `yaml:"share"`
	Poll    PollConfig    `yaml:"poll"`
	Alerts  AlertConfig   `yaml:"alerts"`
	Notify  NotifyConfig  `yaml:"notify"`
	Metrics MetricsConfig `yaml:"metrics"`
	Log     LogConfig     `yaml:"log"`
}

// Known sink names.
const (
	SinkLog     = "log"
	SinkStdout  = "stdout"
	SinkSlack   = "slack"
	SinkDiscord = "discord"
)

var (
	validSinks     = []string{SinkLog, SinkStdout, SinkSlack, SinkDiscord}
	validRegions   = []string{"US", "OUS"}
	validLogLevels = []string{"debug", "info", "warn", "error"}
)

// Default returns a Config populated with sensible defaults.
func Default() *Config {
	return &Config{
		Share: ShareConfig{
			Region:  "US",
			Timeout: 10 * time.Second,
		},
		Poll: PollConfig{
			Interval:        5 * time.Minute,
			MaxCount:        12,
			LookbackMinutes: 1440,
		},
		Alerts: AlertConfig{
			SuppressWindow: 15 * time.Minute,
		},
		Notify: NotifyConfig{
			Sinks: []string{SinkLog},
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads config.yaml from path.
// If the file does not exist it returns Default() with no error.
// Missing keys retain their default values.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config.Load %s: %w", path, err)
	}

	// Empty values in the file keep the defaults.
	def := Default()
	if strings.TrimSpace(cfg.Share.Region) == "" {
		cfg.Share.Region = def.Share.Region
	}
	if len(cfg.Notify.Sinks) == 0 {
		cfg.Notify.Sinks = def.Notify.Sinks
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = def.Log.Level
	}
	cfg.Share.Region = strings.ToUpper(strings.TrimSpace(cfg.Share.Region))

	return cfg, nil
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if !slices.Contains(validRegions, strings.ToUpper(c.Share.Region)) {
		return fmt.Errorf("share.region: %q is not one of %s", c.Share.Region, strings.Join(validRegions, ", "))
	}
	if c.Share.Timeout <= 0 {
		return fmt.Errorf("share.timeout: must be positive")
	}
	if c.Poll.Interval <= 0 {
		return fmt.Errorf("poll.interval: must be positive")
	}
	if c.Poll.MaxCount < 1 || c.Poll.MaxCount > 288 {
		return fmt.Errorf("poll.max_count: %d is outside 1..288", c.Poll.MaxCount)
	}
	if c.Poll.LookbackMinutes < 1 || c.Poll.LookbackMinutes > 1440 {
		return fmt.Errorf("poll.lookback_minutes: %d is outside 1..1440", c.Poll.LookbackMinutes)
	}
	if c.Alerts.SuppressWindow <= 0 {
		return fmt.Errorf("alerts.suppress_window: must be positive")
	}
	for _, s := range c.Notify.Sinks {
		if !slices.Contains(validSinks, s) {
			return fmt.Errorf("notify.sinks: unknown sink %q", s)
		}
	}
	if slices.Contains(c.Notify.Sinks, SinkSlack) && c.Notify.SlackWebhookURL == "" {
		return fmt.Errorf("notify.slack_webhook_url: required by the slack sink")
	}
	if slices.Contains(c.Notify.Sinks, SinkDiscord) && c.Notify.DiscordWebhookURL == "" {
		return fmt.Errorf("notify.discord_webhook_url: required by the discord sink")
	}
	if !slices.Contains(validLogLevels, c.Log.Level) {
		return fmt.Errorf("log.level: %q is not one of %s", c.Log.Level, strings.Join(validLogLevels, ", "))
	}
	return nil
}

// ---------------------------------------------------------------------------
// Credentials
// ---------------------------------------------------------------------------

// Environment variables consulted before the config file.
const (
	EnvUsername = "DEXCOM_USERNAME"
	EnvPassword = "DEXCOM_PASSWORD" // #nosec G101 -- name of the variable, not a credential
	EnvRegion   = "DEXCOM_REGION"
)

// ErrNoCredentials is returned when neither the environment nor the config
// file provide a username and password.
var ErrNoCredentials = errors.New("no share credentials configured (set DEXCOM_USERNAME and DEXCOM_PASSWORD or share.username and share.password)")

// Credentials are the resolved account details.
type Credentials struct {
	Username string
	Password string // #nosec G117 -- resolved share account password
	Region   string
	Source   string // "env" or "config"
}

// Credentials resolves the account details. The environment wins when both
// username and password are set there; otherwise the config file is used.
func (c *Config) Credentials() (Credentials, error) {
	user, pass := os.Getenv(EnvUsername), os.Getenv(EnvPassword)
	if user != "" && pass != "" {
		region := os.Getenv(EnvRegion)
		if region == "" {
			region = c.Share.Region
		}
		return Credentials{Username: user, Password: pass, Region: strings.ToUpper(region), Source: "env"}, nil
	}
	if c.Share.Username != "" && c.Share.Password != "" {
		return Credentials{
			Username: c.Share.Username,
			Password: c.Share.Password,
			Region:   strings.ToUpper(c.Share.Region),
			Source:   "config",
		}, nil
	}
	return Credentials{}, ErrNoCredentials
}

// LoadDotEnv loads each existing .env file into the process environment.
// Variables that are already set are not overridden and missing files are
// skipped.
func LoadDotEnv(paths ...string) error {
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return fmt.Errorf("load %s: %w", p, err)
		}
	}
	return nil
}

// ---------------------------------------------------------------------------
// Home resolution
// ---------------------------------------------------------------------------

// EnvHome overrides the home directory.
const EnvHome = "GLUCOWATCH_HOME"

// normalizePath expands ~ and makes the path absolute.
func normalizePath(path string) (string, error) {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		path = filepath.Join(home, path[2:])
	}
	return filepath.Abs(os.ExpandEnv(path))
}

// ResolveHome returns the home directory and the source of the resolution.
// Priority: GLUCOWATCH_HOME env → ~/.glucowatch.
// source is one of "env" or "default".
func ResolveHome() (path, source string) {
	if env := os.Getenv(EnvHome); env != "" {
		p, err := normalizePath(env)
		if err == nil {
			return p, "env"
		}
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".glucowatch"), "default"
}

// GetHome returns override when set, else the resolved home directory.
func GetHome(override string) string {
	if override != "" {
		if p, err := normalizePath(override); err == nil {
			return p
		}
		return override
	}
	path, _ := ResolveHome()
	return path
}

// Path returns the config.yaml path inside home.
func Path(home string) string { return filepath.Join(home, "config.yaml") }

// LoadHome loads .env files from home and the working directory, then
// config.yaml from home, and validates the result.
func LoadHome(home string) (*Config, error) {
	if err := LoadDotEnv(filepath.Join(home, ".env"), ".env"); err != nil {
		return nil, err
	}
	cfg, err := Load(Path(home))
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", Path(home), err)
	}
	return cfg, nil
}
