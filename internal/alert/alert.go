// Package alert decides when a glucose reading deserves a user notification.
//
// Evaluate applies the threshold policy; Filter adds a suppression window so
// that the same ongoing condition is not announced on every poll.
package alert

import (
	"fmt"
	"time"

	"github.com/go-ports/glucowatch/internal/models"
)

// Rule names the threshold rule that matched a reading.
type Rule string

// Rules in evaluation order.
const (
	RuleSingleDown  Rule = "single_down"
	RuleDoubleDown  Rule = "double_down"
	RuleFortyFiveUp Rule = "forty_five_up"
	RuleHigh        Rule = "high"
)

// Notification titles.
const (
	TitleLow  = "⚠️ Glucose Alert"
	TitleHigh = "📈 High Glucose Alert"

	// Body is the advice line sent with every alert.
	Body = "Check your glucose and consider taking action."
)

// Alert is a notification candidate produced by Evaluate.
type Alert struct {
	Rule     Rule
	Key      string // condition key used for suppression
	Title    string
	Subtitle string
	Body     string
	Reading  models.Reading
}

// Evaluate runs the threshold policy against r. The first matching rule wins:
//
//  1. single-down below 130
//  2. double-down below 160
//  3. forty-five-up above 200
//  4. anything above 250
//
// Rules 1-3 bucket the condition key per 10 mg/dL, rule 4 per 20 mg/dL.
func Evaluate(r models.Reading) (Alert, bool) {
	v := r.Value
	a := Alert{Title: TitleLow, Body: Body, Reading: r}

	switch {
	case r.Trend == models.TrendSingleDown && v < 130:
		a.Rule = RuleSingleDown
		a.Key = conditionKey(RuleSingleDown, v/10)
		a.Subtitle = fmt.Sprintf("Glucose falling: %d mg/dL %s", v, models.TrendSingleDown.Arrow())
	case r.Trend == models.TrendDoubleDown && v < 160:
		a.Rule = RuleDoubleDown
		a.Key = conditionKey(RuleDoubleDown, v/10)
		a.Subtitle = fmt.Sprintf("Glucose dropping quickly: %d mg/dL %s", v, models.TrendDoubleDown.Arrow())
	case r.Trend == models.TrendFortyFiveUp && v > 200:
		a.Rule = RuleFortyFiveUp
		a.Key = conditionKey(RuleFortyFiveUp, v/10)
		a.Title = TitleHigh
		a.Subtitle = fmt.Sprintf("Glucose rising: %d mg/dL %s", v, models.TrendFortyFiveUp.Arrow())
	case v > 250:
		a.Rule = RuleHigh
		a.Key = conditionKey(RuleHigh, v/20)
		a.Title = TitleHigh
		a.Subtitle = fmt.Sprintf("Glucose elevated: %d mg/dL %s", v, r.Arrow())
	default:
		return Alert{}, false
	}
	return a, true
}

func conditionKey(rule Rule, bucket int) string {
	return fmt.Sprintf("%s_%d", rule, bucket)
}

// ---------------------------------------------------------------------------
// Filter
// ---------------------------------------------------------------------------

// DefaultWindow is how long an emitted condition key stays suppressed.
const DefaultWindow = 15 * time.Minute

// Decision is the outcome of Filter.Check.
type Decision int

const (
	// None means no rule matched.
	None Decision = iota
	// Suppressed means a rule matched but the same key fired recently.
	Suppressed
	// Emit means the caller should send the alert.
	Emit
)

func (d Decision) String() string {
	switch d {
	case Suppressed:
		return "suppressed"
	case Emit:
		return "emit"
	default:
		return "none"
	}
}

// Filter remembers only the most recently emitted condition key and when it
// was emitted; a different key always fires. The zero value is not usable;
// call NewFilter. A Filter is not safe for concurrent use.
type Filter struct {
	now    func() time.Time
	window time.Duration

	lastKey  string
	lastSent time.Time
}

// Option customises a Filter.
type Option func(*Filter)

// WithClock replaces the wall clock used to measure the window.
func WithClock(now func() time.Time) Option {
	return func(f *Filter) {
		if now != nil {
			f.now = now
		}
	}
}

// WithWindow replaces DefaultWindow.
func WithWindow(d time.Duration) Option {
	return func(f *Filter) {
		if d > 0 {
			f.window = d
		}
	}
}

// NewFilter returns an idle Filter.
func NewFilter(opts ...Option) *Filter {
	f := &Filter{now: time.Now, window: DefaultWindow}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Check evaluates r and applies the suppression window. On Emit the filter
// records the key and the current time before returning.
func (f *Filter) Check(r models.Reading) (Alert, Decision) {
	a, ok := Evaluate(r)
	if !ok {
		return Alert{}, None
	}
	now := f.now()
	if f.lastKey == a.Key && !f.lastSent.IsZero() && now.Sub(f.lastSent) < f.window {
		return a, Suppressed
	}
	f.lastKey = a.Key
	f.lastSent = now
	return a, Emit
}

// Last returns the last emitted key and its time; ok is false while idle.
func (f *Filter) Last() (key string, at time.Time, ok bool) {
	return f.lastKey, f.lastSent, f.lastKey != ""
}

// Reset returns the filter to idle.
func (f *Filter) Reset() {
	f.lastKey = ""
	f.lastSent = time.Time{}
}
