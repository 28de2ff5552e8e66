package share

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrAuthentication is matched by every failure to obtain an account id
	// or session token: bad credentials, the all-zero account sentinel, a
	// missing token or a non-200 answer from either login endpoint.
	ErrAuthentication = errors.New("authentication failed")

	// ErrSessionExpired is wrapped into the APIError returned when a read is
	// still rejected as expired after one re-authentication.
	ErrSessionExpired = errors.New("session expired")

	// ErrInvalidRegion is returned by New for any region other than US or OUS.
	ErrInvalidRegion = errors.New("invalid region")
)

// APIError describes a failed exchange with the share service.
// StatusCode is zero for transport and decoding failures.
type APIError struct {
	Op         string // "authenticate", "login", "read" or "parse"
	StatusCode int
	Body       string
	Err        error
}

func (e *APIError) Error() string {
	var sb strings.Builder
	sb.WriteString("share ")
	sb.WriteString(e.Op)
	if e.StatusCode != 0 {
		fmt.Fprintf(&sb, ": HTTP %d", e.StatusCode)
		if e.Body != "" {
			sb.WriteString(" - ")
			sb.WriteString(e.Body)
		}
	}
	if e.Err != nil {
		sb.WriteString(": ")
		sb.WriteString(e.Err.Error())
	}
	return sb.String()
}

func (e *APIError) Unwrap() error { return e.Err }

// IsAuthentication reports whether err is an authentication failure.
func IsAuthentication(err error) bool { return errors.Is(err, ErrAuthentication) }
