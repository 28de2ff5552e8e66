// Package notify delivers alert messages to the configured sinks.
package notify

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-ports/glucowatch/internal/config"
)

// defaultTimeout bounds every webhook delivery.
const defaultTimeout = 10 * time.Second

// Message is one notification.
type Message struct {
	Title    string
	Subtitle string
	Body     string
}

// Text renders m as plain lines, skipping empty parts.
func (m Message) Text() string {
	parts := make([]string, 0, 3)
	for _, p := range []string{m.Title, m.Subtitle, m.Body} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, "\n")
}

// Notifier delivers a Message. Implementations must be safe for concurrent use.
type Notifier interface {
	Name() string
	Notify(ctx context.Context, msg Message) error
}

// ---------------------------------------------------------------------------
// Log and writer sinks
// ---------------------------------------------------------------------------

// LogNotifier writes notifications to a slog logger.
type LogNotifier struct {
	Logger *slog.Logger
}

func (LogNotifier) Name() string { return config.SinkLog }

func (n LogNotifier) Notify(ctx context.Context, msg Message) error {
	logger := n.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.InfoContext(ctx, "notification", "title", msg.Title, "subtitle", msg.Subtitle, "body", msg.Body)
	return nil
}

// WriterNotifier prints notifications to an io.Writer, one block per message.
type WriterNotifier struct {
	mu sync.Mutex
	w  io.Writer
}

// NewWriterNotifier returns a WriterNotifier that prints to w.
func NewWriterNotifier(w io.Writer) *WriterNotifier {
	return &WriterNotifier{w: w}
}

func (*WriterNotifier) Name() string { return config.SinkStdout }

func (n *WriterNotifier) Notify(_ context.Context, msg Message) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	_, err := fmt.Fprintf(n.w, "%s\n\n", msg.Text())
	return err
}

// ---------------------------------------------------------------------------
// Fan-out
// ---------------------------------------------------------------------------

// Multi delivers to every sink in order. A failing sink does not stop the
// others; their errors are joined.
type Multi []Notifier

func (Multi) Name() string { return "multi" }

func (m Multi) Notify(ctx context.Context, msg Message) error {
	var errs []error
	for _, n := range m {
		if err := n.Notify(ctx, msg); err != nil {
			slog.Warn("notify", "sink", n.Name(), "err", err)
			errs = append(errs, fmt.Errorf("%s: %w", n.Name(), err))
		}
	}
	return errors.Join(errs...)
}

// Options customise FromConfig.
type Options struct {
	Stdout     io.Writer
	Logger     *slog.Logger
	HTTPClient *http.Client
}

// FromConfig builds the sinks named by cfg.Sinks. Duplicate names are
// collapsed.
func FromConfig(cfg config.NotifyConfig, opts Options) (Multi, error) {
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: defaultTimeout}
	}

	seen := make(map[string]bool, len(cfg.Sinks))
	var out Multi
	for _, name := range cfg.Sinks {
		if seen[name] {
			continue
		}
		seen[name] = true

		switch name {
		case config.SinkLog:
			out = append(out, LogNotifier{Logger: opts.Logger})
		case config.SinkStdout:
			if opts.Stdout == nil {
				return nil, fmt.Errorf("notify: stdout sink needs a writer")
			}
			out = append(out, NewWriterNotifier(opts.Stdout))
		case config.SinkSlack:
			if cfg.SlackWebhookURL == "" {
				return nil, fmt.Errorf("notify: slack sink needs a webhook url")
			}
			out = append(out, &SlackNotifier{WebhookURL: cfg.SlackWebhookURL, Client: client})
		case config.SinkDiscord:
			if cfg.DiscordWebhookURL == "" {
				return nil, fmt.Errorf("notify: discord sink needs a webhook url")
			}
			out = append(out, &DiscordNotifier{WebhookURL: cfg.DiscordWebhookURL, Client: client})
		default:
			return nil, fmt.Errorf("notify: unknown sink %q", name)
		}
	}
	return out, nil
}
