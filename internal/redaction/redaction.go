// Package redaction scrubs secrets from text before it is logged, printed
// or returned to an MCP client.
package redaction

import (
	"cmp"
	"regexp"
	"slices"
)

const replacement = "[REDACTED]"

// minLiteral is the shortest literal secret New accepts. Shorter values
// would blank out ordinary words.
const minLiteral = 4

type rule struct {
	re   *regexp.Regexp
	repl string
}

// builtinRules catch secrets that can show up in transport errors even when
// their values are not known up front.
var builtinRules = []rule{
	// share read URLs
	{regexp.MustCompile(`(?i)(sessionId=)[^&\s"]+`), "${1}" + replacement},
	// Slack and Discord webhooks
	{regexp.MustCompile(`(https://hooks\.slack\.com/(?:services|workflows)/)[^\s"]+`), "${1}" + replacement},
	{regexp.MustCompile(`(/api/webhooks/\d+/)[^\s"?/]+`), "${1}" + replacement},
	{regexp.MustCompile(`xox[abposr]-[a-zA-Z0-9-]+`), replacement},
	// login bodies and key=value pairs
	{regexp.MustCompile(`(?i)("password"\s*:\s*")[^"]*`), "${1}" + replacement},
	{regexp.MustCompile(`(?i)(password\s*[:=]\s*)[^\s,;"]+`), "${1}" + replacement},
}

// Redactor removes built-in secret patterns and a set of literal secrets.
// The zero value applies the built-in patterns only.
type Redactor struct {
	literals []*regexp.Regexp
}

// New returns a Redactor that additionally removes every secret of at least
// minLiteral bytes verbatim, longest first so that a secret containing another is removed
// whole.
func New(secrets ...string) *Redactor {
	secrets = slices.DeleteFunc(slices.Clone(secrets), func(s string) bool { return len(s) < minLiteral })
	slices.SortFunc(secrets, func(a, b string) int { return cmp.Or(cmp.Compare(len(b), len(a)), cmp.Compare(a, b)) })
	secrets = slices.Compact(secrets)

	r := &Redactor{}
	for _, s := range secrets {
		r.literals = append(r.literals, regexp.MustCompile(regexp.QuoteMeta(s)))
	}
	return r
}

// Redact applies the literal secrets, then the built-in patterns.
func (r *Redactor) Redact(text string) string {
	if r != nil {
		for _, re := range r.literals {
			text = re.ReplaceAllLiteralString(text, replacement)
		}
	}
	for _, b := range builtinRules {
		text = b.re.ReplaceAllString(text, b.repl)
	}
	return text
}

// Error returns the redacted message of err, or "" for nil.
func (r *Redactor) Error(err error) string {
	if err == nil {
		return ""
	}
	return r.Redact(err.Error())
}
