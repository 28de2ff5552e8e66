// Package service implements the glucose watch orchestrator that wires
// together configuration, the share client, the alert filter, notification
// sinks and metrics.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/go-ports/glucowatch/internal/alert"
	"github.com/go-ports/glucowatch/internal/config"
	"github.com/go-ports/glucowatch/internal/metrics"
	"github.com/go-ports/glucowatch/internal/models"
	"github.com/go-ports/glucowatch/internal/notify"
	"github.com/go-ports/glucowatch/internal/redaction"
	"github.com/go-ports/glucowatch/internal/share"
)

// RefreshTitle heads the notification sent by NotifyCurrent.
const RefreshTitle = "glucowatch"

// Service orchestrates all glucose operations. Its methods are safe for
// concurrent use; calls are serialised so the share session and the alert
// filter only ever see one logical loop.
type Service struct {
	Home        string
	Config      *config.Config
	Credentials config.Credentials

	client   *share.Client
	filter   *alert.Filter
	notifier notify.Notifier
	metrics  *metrics.Metrics
	redactor *redaction.Redactor
	now      func() time.Time

	mu   sync.Mutex
	last *models.Reading
}

// Option customises a Service.
type Option func(*settings)

type settings struct {
	notifier  notify.Notifier
	metrics   *metrics.Metrics
	now       func() time.Time
	shareOpts []share.Option
}

// WithNotifier replaces the sinks built from the config.
func WithNotifier(n notify.Notifier) Option {
	return func(s *settings) { s.notifier = n }
}

// WithMetrics records poll outcomes into m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *settings) { s.metrics = m }
}

// WithClock replaces the wall clock used by the alert filter.
func WithClock(now func() time.Time) Option {
	return func(s *settings) { s.now = now }
}

// WithShareOptions passes extra options to the share client.
func WithShareOptions(opts ...share.Option) Option {
	return func(s *settings) { s.shareOpts = append(s.shareOpts, opts...) }
}

// Open loads the config found in home (resolved via config.GetHome when
// empty), resolves credentials and returns a ready Service.
func Open(home string, opts ...Option) (*Service, error) {
	home = config.GetHome(home)
	cfg, err := config.LoadHome(home)
	if err != nil {
		return nil, fmt.Errorf("service.Open: %w", err)
	}
	svc, err := New(cfg, opts...)
	if err != nil {
		return nil, err
	}
	svc.Home = home
	return svc, nil
}

// New builds a Service from an already loaded config.
func New(cfg *config.Config, opts ...Option) (*Service, error) {
	var st settings
	for _, opt := range opts {
		opt(&st)
	}
	if st.now == nil {
		st.now = time.Now
	}

	creds, err := cfg.Credentials()
	if err != nil {
		return nil, fmt.Errorf("service.New: %w", err)
	}

	svc := &Service{
		Config:      cfg,
		Credentials: creds,
		metrics:     st.metrics,
		now:         st.now,
		redactor: redaction.New(
			creds.Password,
			cfg.Share.Password,
			cfg.Notify.SlackWebhookURL,
			cfg.Notify.DiscordWebhookURL,
		),
	}

	shareOpts := []share.Option{
		share.WithTimeout(cfg.Share.Timeout),
		share.WithBaseURL(cfg.Share.BaseURL),
		share.WithAuthHook(svc.observeAuth),
	}
	client, err := share.New(share.Credentials{
		Username: creds.Username,
		Password: creds.Password,
		Region:   creds.Region,
	}, append(shareOpts, st.shareOpts...)...)
	if err != nil {
		return nil, fmt.Errorf("service.New: %w", err)
	}
	svc.client = client

	svc.filter = alert.NewFilter(alert.WithClock(st.now), alert.WithWindow(cfg.Alerts.SuppressWindow))

	svc.notifier = st.notifier
	if svc.notifier == nil {
		sinks, err := notify.FromConfig(cfg.Notify, notify.Options{Stdout: os.Stdout})
		if err != nil {
			return nil, fmt.Errorf("service.New: %w", err)
		}
		svc.notifier = sinks
	}

	slog.Debug("service ready", "region", creds.Region, "credentials", creds.Source)
	return svc, nil
}

// ---------------------------------------------------------------------------
// Internal helpers
// ---------------------------------------------------------------------------

func (s *Service) observeAuth(err error) {
	if s.metrics == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	s.metrics.AuthTotal.WithLabelValues(result).Inc()
}

// fetch runs FetchReadings and times it. Callers hold s.mu.
func (s *Service) fetch(ctx context.Context, maxCount, minutes int) ([]models.Reading, error) {
	start := time.Now()
	readings, err := s.client.FetchReadings(ctx, maxCount, minutes)
	if s.metrics != nil {
		s.metrics.FetchDuration.Observe(time.Since(start).Seconds())
	}
	if err != nil {
		return nil, err
	}
	if len(readings) > 0 {
		r := readings[0]
		s.last = &r
		if s.metrics != nil {
			s.metrics.ObserveReading(r.Value, r.Time)
		}
	}
	return readings, nil
}

// Redact removes the configured secrets, session ids and webhook tokens from
// text so it can be shown or logged.
func (s *Service) Redact(text string) string { return s.redactor.Redact(text) }

// RedactError is Redact applied to err's message; nil yields "".
func (s *Service) RedactError(err error) string { return s.redactor.Error(err) }

func alertMessage(a alert.Alert) notify.Message {
	return notify.Message{Title: a.Title, Subtitle: a.Subtitle, Body: a.Body}
}

func refreshMessage(r *models.Reading) notify.Message {
	msg := notify.Message{Title: RefreshTitle, Subtitle: "Refreshed", Body: "No data available"}
	if r != nil {
		msg.Body = fmt.Sprintf("Current: %d %s", r.Value, r.Arrow())
	}
	return msg
}

// ---------------------------------------------------------------------------
// Queries
// ---------------------------------------------------------------------------

// Check logs in explicitly and fetches the current reading, proving the
// credentials work end to end. A nil reading with a nil error means the
// account has no data for the last day.
func (s *Service) Check(ctx context.Context) (*models.Reading, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.client.Authenticate(ctx); err != nil {
		return nil, err
	}
	readings, err := s.fetch(ctx, 1, share.DefaultLookbackMinutes)
	if err != nil {
		return nil, err
	}
	if len(readings) == 0 {
		return nil, nil
	}
	return &readings[0], nil
}

// Current returns the most recent reading of the last day, or nil when
// there is none.
func (s *Service) Current(ctx context.Context) (*models.Reading, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	readings, err := s.fetch(ctx, 1, share.DefaultLookbackMinutes)
	if err != nil {
		return nil, err
	}
	if len(readings) == 0 {
		return nil, nil
	}
	return &readings[0], nil
}

// Recent returns up to maxCount readings from the last minutes minutes,
// newest first. Zero values fall back to the poll config.
func (s *Service) Recent(ctx context.Context, maxCount, minutes int) ([]models.Reading, error) {
	if maxCount == 0 {
		maxCount = s.Config.Poll.MaxCount
	}
	if minutes == 0 {
		minutes = s.Config.Poll.LookbackMinutes
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fetch(ctx, maxCount, minutes)
}

// Last returns the newest reading seen by any call, or nil.
func (s *Service) Last() *models.Reading {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.last == nil {
		return nil
	}
	r := *s.last
	return &r
}

// NotifyCurrent sends the current reading, or a no-data notice, through the
// configured sinks.
func (s *Service) NotifyCurrent(ctx context.Context, r *models.Reading) error {
	return s.notifier.Notify(ctx, refreshMessage(r))
}

// ---------------------------------------------------------------------------
// Polling
// ---------------------------------------------------------------------------

// PollResult describes one poll cycle.
type PollResult struct {
	Current  *models.Reading
	Recent   []models.Reading
	Alert    *alert.Alert
	Decision alert.Decision
	// NotifyErr is set when an emitted alert failed to reach a sink. The
	// filter still counts the alert as sent.
	NotifyErr error
}

// Poll runs one cycle: fetch the recent readings, evaluate the newest one
// against the alert policy and notify on Emit.
func (s *Service) Poll(ctx context.Context) (PollResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	readings, err := s.fetch(ctx, s.Config.Poll.MaxCount, s.Config.Poll.LookbackMinutes)
	if err != nil {
		s.countPoll(metrics.OutcomeError)
		return PollResult{}, err
	}
	if len(readings) == 0 {
		s.countPoll(metrics.OutcomeEmpty)
		slog.Warn("poll: no glucose reading available")
		return PollResult{}, nil
	}
	s.countPoll(metrics.OutcomeOK)

	res := PollResult{Current: &readings[0], Recent: readings}
	slog.Info("poll", "value", res.Current.Value, "trend", res.Current.TrendName(), "arrow", res.Current.Arrow())

	a, decision := s.filter.Check(*res.Current)
	res.Decision = decision
	if decision == alert.None {
		return res, nil
	}
	res.Alert = &a
	if s.metrics != nil {
		s.metrics.AlertsTotal.WithLabelValues(string(a.Rule), decision.String()).Inc()
	}

	if decision == alert.Suppressed {
		_, at, _ := s.filter.Last()
		slog.Info("poll: alert suppressed", "key", a.Key, "sent_ago", s.now().Sub(at).Round(time.Second).String())
		return res, nil
	}

	slog.Info("poll: sending alert", "key", a.Key, "subtitle", a.Subtitle)
	if err := s.notifier.Notify(ctx, alertMessage(a)); err != nil {
		slog.Warn("poll: notify", "err", s.RedactError(err))
		res.NotifyErr = err
		if s.metrics != nil {
			s.metrics.NotifyErrorsTotal.Inc()
		}
	}
	return res, nil
}

func (s *Service) countPoll(outcome string) {
	if s.metrics != nil {
		s.metrics.PollsTotal.WithLabelValues(outcome).Inc()
	}
}

// Run polls immediately and then every interval until ctx is cancelled.
// Poll errors are logged and the loop continues. onCycle, when non-nil, is
// called after every cycle with its result.
func (s *Service) Run(ctx context.Context, interval time.Duration, onCycle func(PollResult, error)) error {
	if interval <= 0 {
		interval = s.Config.Poll.Interval
	}
	slog.Info("watch started", "interval", interval.String(), "region", s.Credentials.Region)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		res, err := s.Poll(ctx)
		switch {
		case err == nil:
		case ctx.Err() != nil:
			// Cancelled mid-request.
		case share.IsAuthentication(err):
			slog.Error("poll: authentication failed", "err", s.RedactError(err))
		case errors.Is(err, share.ErrSessionExpired):
			slog.Error("poll: session expired again after re-authenticating", "err", s.RedactError(err))
		default:
			slog.Error("poll", "err", s.RedactError(err))
		}
		if onCycle != nil && ctx.Err() == nil {
			onCycle(res, err)
		}

		select {
		case <-ctx.Done():
			slog.Info("watch stopped")
			return nil
		case <-ticker.C:
		}
	}
}
