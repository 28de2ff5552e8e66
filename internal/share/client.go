// Package share is a client for the vendor's glucose share web service.
//
// A Client logs in with publisher credentials, keeps the resulting session
// token and transparently logs in again, once, when the service reports the
// session as expired. A Client is not safe for concurrent use: it is meant to
// serve a single polling loop.
package share

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/go-ports/glucowatch/internal/models"
)

// Regions accepted by New.
const (
	RegionUS  = "US"
	RegionOUS = "OUS" // outside the US
)

var baseURLs = map[string]string{
	RegionUS:  "https://share2.dexcom.com/ShareWebServices/Services",
	RegionOUS: "https://shareous1.dexcom.com/ShareWebServices/Services",
}

// ApplicationID identifies the official share client to the service.
var ApplicationID = uuid.MustParse("d89443d2-327c-4a6f-89e5-496bbb0317db")

const (
	authenticatePath = "/General/AuthenticatePublisherAccount"
	loginPath        = "/General/LoginPublisherAccountById"
	readPath         = "/Publisher/ReadPublisherLatestGlucoseValues"

	// DefaultLookbackMinutes is one day.
	DefaultLookbackMinutes = 1440
	// DefaultMaxCount is one hour of readings at the 5-minute sensor cadence.
	DefaultMaxCount = 12

	defaultTimeout = 10 * time.Second

	// sessionExpiredStatus is how the read endpoint reports an invalid session.
	sessionExpiredStatus = http.StatusInternalServerError
	// maxReadAttempts bounds a read to the first try plus one retry after
	// re-authenticating.
	maxReadAttempts = 2
)

// Credentials are the publisher account details.
type Credentials struct {
	Username string
	Password string // #nosec G117 -- publisher password is sent to the share service on login
	Region   string // "US" or "OUS"
}

// Client talks to one share region on behalf of one account.
type Client struct {
	username string
	password string
	region   string
	baseURL  string
	client   *http.Client

	accountID string
	sessionID string

	onAuth func(error)
}

// Option customises a Client.
type Option func(*Client)

// WithBaseURL overrides the regional endpoint, e.g. for a proxy or a test server.
func WithBaseURL(u string) Option {
	return func(c *Client) {
		if u != "" {
			c.baseURL = strings.TrimRight(u, "/")
		}
	}
}

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.client = hc
		}
	}
}

// WithTimeout sets the per-request timeout of the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.client = newHTTPClient(d)
		}
	}
}

// WithAuthHook registers fn to be called with the result of every login
// attempt, including the implicit ones made by FetchReadings.
func WithAuthHook(fn func(error)) Option {
	return func(c *Client) { c.onAuth = fn }
}

// New returns a Client for creds. The region is validated here, not on the
// first call.
func New(creds Credentials, opts ...Option) (*Client, error) {
	region := strings.ToUpper(strings.TrimSpace(creds.Region))
	base, ok := baseURLs[region]
	if !ok {
		return nil, fmt.Errorf("%w: %q (must be %s or %s)", ErrInvalidRegion, creds.Region, RegionUS, RegionOUS)
	}
	c := &Client{
		username: creds.Username,
		password: creds.Password,
		region:   region,
		baseURL:  base,
		client:   newHTTPClient(defaultTimeout),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Region returns the normalised region.
func (c *Client) Region() string { return c.region }

// AccountID returns the account id of the last successful login.
func (c *Client) AccountID() string { return c.accountID }

// HasSession reports whether a session token is held.
func (c *Client) HasSession() bool { return c.sessionID != "" }

// Authenticate exchanges the credentials for an account id and then for a
// session token, replacing any previously held values. Failures leave the
// previous values untouched.
func (c *Client) Authenticate(ctx context.Context) error {
	err := c.authenticate(ctx)
	if c.onAuth != nil {
		c.onAuth(err)
	}
	return err
}

func (c *Client) authenticate(ctx context.Context) error {
	slog.Info("authenticating with share service", "region", c.region)

	var accountID string
	err := doJSON(ctx, c.client, "authenticate", c.baseURL+authenticatePath, map[string]string{
		"accountName":   c.username,
		"password":      c.password,
		"applicationId": ApplicationID.String(),
	}, &accountID)
	if err != nil {
		return asAuthFailure(err)
	}
	if id, err := uuid.Parse(accountID); err != nil || id == uuid.Nil {
		return fmt.Errorf("share authenticate: %w: invalid credentials", ErrAuthentication)
	}

	var sessionID string
	err = doJSON(ctx, c.client, "login", c.baseURL+loginPath, map[string]string{
		"accountId":     accountID,
		"password":      c.password,
		"applicationId": ApplicationID.String(),
	}, &sessionID)
	if err != nil {
		return asAuthFailure(err)
	}
	if sessionID == "" || sessionID == uuid.Nil.String() {
		return fmt.Errorf("share login: %w: no session id returned", ErrAuthentication)
	}

	c.accountID = accountID
	c.sessionID = sessionID
	slog.Info("authenticated with share service")
	return nil
}

// asAuthFailure marks a status failure from a login endpoint as an
// authentication failure. Transport and decoding failures stay plain API errors.
func asAuthFailure(err error) error {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode != 0 && apiErr.Err == nil {
		apiErr.Err = ErrAuthentication
	}
	return err
}

// FetchReadings returns up to maxCount readings from the last minutes
// minutes, in the order the service sent them. It logs in first when no
// session is held, and logs in again at most once if the session expired.
func (c *Client) FetchReadings(ctx context.Context, maxCount, minutes int) ([]models.Reading, error) {
	if maxCount < 1 || minutes < 1 {
		return nil, fmt.Errorf("share read: maxCount and minutes must be positive (got %d, %d)", maxCount, minutes)
	}
	if c.sessionID == "" {
		slog.Info("no session, authenticating")
		if err := c.Authenticate(ctx); err != nil {
			return nil, err
		}
	}

	var raw []rawReading
	for attempt := 1; ; attempt++ {
		err := c.read(ctx, maxCount, minutes, &raw)
		if err == nil {
			break
		}
		var apiErr *APIError
		if !errors.As(err, &apiErr) || apiErr.StatusCode != sessionExpiredStatus {
			return nil, err
		}
		if attempt >= maxReadAttempts {
			apiErr.Err = ErrSessionExpired
			return nil, apiErr
		}
		slog.Info("session expired, re-authenticating", "attempt", attempt)
		c.sessionID = ""
		if err := c.Authenticate(ctx); err != nil {
			return nil, err
		}
	}

	readings := make([]models.Reading, 0, len(raw))
	for _, r := range raw {
		reading, err := parseReading(r)
		if err != nil {
			return nil, err
		}
		readings = append(readings, reading)
	}
	return readings, nil
}

// FetchLatest returns the most recent reading of the last day, or nil when
// the service has none.
func (c *Client) FetchLatest(ctx context.Context) (*models.Reading, error) {
	readings, err := c.FetchReadings(ctx, 1, DefaultLookbackMinutes)
	if err != nil {
		return nil, err
	}
	if len(readings) == 0 {
		return nil, nil
	}
	return &readings[0], nil
}

func (c *Client) read(ctx context.Context, maxCount, minutes int, out *[]rawReading) error {
	q := url.Values{}
	q.Set("sessionId", c.sessionID)
	q.Set("minutes", strconv.Itoa(minutes))
	q.Set("maxCount", strconv.Itoa(maxCount))
	return doJSON(ctx, c.client, "read", c.baseURL+readPath+"?"+q.Encode(), nil, out)
}
