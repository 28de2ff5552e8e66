package share_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	qt "github.com/frankban/quicktest"

	"github.com/go-ports/glucowatch/internal/models"
	"github.com/go-ports/glucowatch/internal/share"
)

const (
	testAccountID = "1e2f3a4b-5c6d-4e7f-8a9b-0c1d2e3f4a5b"
	testSessionA  = "aaaaaaaa-1111-4111-8111-aaaaaaaaaaaa"
	testSessionB  = "bbbbbbbb-2222-4222-8222-bbbbbbbbbbbb"
)

// fakeShare mimics the three share endpoints. Each login hands out the next
// session from sessions; reads answer with readStatus (one status per read,
// the last one repeating) and readings.
type fakeShare struct {
	mu sync.Mutex

	accountID   string
	authStatus  int
	loginStatus int
	sessions    []string
	readStatus  []int
	readings    []map[string]any

	authCalls  int
	loginCalls int
	readCalls  int
	readQuery  []string
	authBodies []map[string]string
	userAgents []string
}

func newFakeShare() *fakeShare {
	return &fakeShare{
		accountID:   testAccountID,
		authStatus:  http.StatusOK,
		loginStatus: http.StatusOK,
		sessions:    []string{testSessionA, testSessionB},
		readStatus:  []int{http.StatusOK},
	}
}

func (f *fakeShare) start(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/General/AuthenticatePublisherAccount", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.authCalls++
		f.userAgents = append(f.userAgents, r.UserAgent())
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		f.authBodies = append(f.authBodies, body)
		if f.authStatus != http.StatusOK {
			http.Error(w, "bad auth", f.authStatus)
			return
		}
		_ = json.NewEncoder(w).Encode(f.accountID)
	})
	mux.HandleFunc("/General/LoginPublisherAccountById", func(w http.ResponseWriter, _ *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.loginCalls++
		if f.loginStatus != http.StatusOK {
			http.Error(w, "bad login", f.loginStatus)
			return
		}
		session := ""
		if len(f.sessions) > 0 {
			session = f.sessions[0]
			f.sessions = f.sessions[1:]
		}
		_ = json.NewEncoder(w).Encode(session)
	})
	mux.HandleFunc("/Publisher/ReadPublisherLatestGlucoseValues", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.readCalls++
		f.readQuery = append(f.readQuery, r.URL.RawQuery)
		status := f.readStatus[0]
		if len(f.readStatus) > 1 {
			f.readStatus = f.readStatus[1:]
		}
		if status != http.StatusOK {
			http.Error(w, "SessionNotValid", status)
			return
		}
		readings := f.readings
		if readings == nil {
			readings = make([]map[string]any, 0)
		}
		_ = json.NewEncoder(w).Encode(readings)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newClient(c *qt.C, baseURL string) *share.Client {
	cl, err := share.New(share.Credentials{Username: "alice", Password: "secret", Region: "US"},
		share.WithBaseURL(baseURL), share.WithTimeout(2*time.Second))
	c.Assert(err, qt.IsNil)
	return cl
}

// ---------------------------------------------------------------------------
// New
// ---------------------------------------------------------------------------

func TestNew_HappyPath(t *testing.T) {
	c := qt.New(t)

	for _, region := range []string{"US", "OUS", "us", " ous "} {
		cl, err := share.New(share.Credentials{Username: "u", Password: "p", Region: region})
		c.Assert(err, qt.IsNil, qt.Commentf("region %q", region))
		c.Assert(cl.HasSession(), qt.IsFalse)
	}
}

func TestNew_FailurePath(t *testing.T) {
	c := qt.New(t)

	for _, region := range []string{"", "EU", "USA"} {
		cl, err := share.New(share.Credentials{Username: "u", Password: "p", Region: region})
		c.Assert(err, qt.ErrorIs, share.ErrInvalidRegion, qt.Commentf("region %q", region))
		c.Assert(cl, qt.IsNil)
	}
}

// ---------------------------------------------------------------------------
// Authenticate
// ---------------------------------------------------------------------------

func TestAuthenticate_HappyPath(t *testing.T) {
	c := qt.New(t)

	fake := newFakeShare()
	srv := fake.start(t)
	cl := newClient(c, srv.URL)

	err := cl.Authenticate(context.Background())
	c.Assert(err, qt.IsNil)
	c.Assert(cl.AccountID(), qt.Equals, testAccountID)
	c.Assert(cl.HasSession(), qt.IsTrue)

	c.Assert(fake.authBodies, qt.HasLen, 1)
	c.Assert(fake.authBodies[0], qt.DeepEquals, map[string]string{
		"accountName":   "alice",
		"password":      "secret",
		"applicationId": "d89443d2-327c-4a6f-89e5-496bbb0317db",
	})
	c.Assert(fake.userAgents[0], qt.Equals, "Dexcom Share/3.0.2.11 CFNetwork/711.2.23 Darwin/14.0.0")
}

func TestAuthenticate_FailurePath(t *testing.T) {
	c := qt.New(t)

	c.Run("all-zero account id is rejected as invalid credentials", func(c *qt.C) {
		fake := newFakeShare()
		fake.accountID = "00000000-0000-0000-0000-000000000000"
		cl := newClient(c, fake.start(t).URL)

		err := cl.Authenticate(context.Background())
		c.Assert(err, qt.ErrorIs, share.ErrAuthentication)
		c.Assert(err, qt.ErrorMatches, ".*invalid credentials.*")
		c.Assert(cl.HasSession(), qt.IsFalse)
		c.Assert(fake.loginCalls, qt.Equals, 0)
	})

	c.Run("non-200 from authenticate is an authentication API error", func(c *qt.C) {
		fake := newFakeShare()
		fake.authStatus = http.StatusBadRequest
		cl := newClient(c, fake.start(t).URL)

		err := cl.Authenticate(context.Background())
		c.Assert(share.IsAuthentication(err), qt.IsTrue)
		var apiErr *share.APIError
		c.Assert(errors.As(err, &apiErr), qt.IsTrue)
		c.Assert(apiErr.StatusCode, qt.Equals, http.StatusBadRequest)
		c.Assert(apiErr.Op, qt.Equals, "authenticate")
	})

	c.Run("non-200 from login is an authentication error", func(c *qt.C) {
		fake := newFakeShare()
		fake.loginStatus = http.StatusInternalServerError
		cl := newClient(c, fake.start(t).URL)

		err := cl.Authenticate(context.Background())
		c.Assert(err, qt.ErrorIs, share.ErrAuthentication)
		c.Assert(cl.HasSession(), qt.IsFalse)
	})

	c.Run("empty session token is an authentication error", func(c *qt.C) {
		fake := newFakeShare()
		fake.sessions = nil
		cl := newClient(c, fake.start(t).URL)

		err := cl.Authenticate(context.Background())
		c.Assert(err, qt.ErrorIs, share.ErrAuthentication)
		c.Assert(err, qt.ErrorMatches, ".*no session id.*")
	})

	c.Run("unreachable service is an API error, not an authentication error", func(c *qt.C) {
		srv := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, _ *http.Request) {}))
		srv.Close()
		cl := newClient(c, srv.URL)

		err := cl.Authenticate(context.Background())
		c.Assert(err, qt.IsNotNil)
		c.Assert(share.IsAuthentication(err), qt.IsFalse)
		var apiErr *share.APIError
		c.Assert(errors.As(err, &apiErr), qt.IsTrue)
		c.Assert(apiErr.StatusCode, qt.Equals, 0)
	})
}

// ---------------------------------------------------------------------------
// FetchReadings
// ---------------------------------------------------------------------------

func TestFetchReadings_HappyPath(t *testing.T) {
	c := qt.New(t)

	fake := newFakeShare()
	fake.readings = []map[string]any{
		{"WT": "Date(1700000300000)", "Value": 125, "Trend": "SingleDown"},
		{"WT": "/Date(1700000000000)/", "Value": 131, "Trend": 4},
		{"WT": "Date(1699999700000)", "Value": 140},
	}
	srv := fake.start(t)
	cl := newClient(c, srv.URL)

	got, err := cl.FetchReadings(context.Background(), 12, 1440)
	c.Assert(err, qt.IsNil)
	c.Assert(got, qt.DeepEquals, []models.Reading{
		{Value: 125, Trend: models.TrendSingleDown, Time: time.UnixMilli(1700000300000).Local()},
		{Value: 131, Trend: models.TrendFlat, Time: time.UnixMilli(1700000000000).Local()},
		{Value: 140, Trend: models.TrendNone, Time: time.UnixMilli(1699999700000).Local()},
	})

	c.Run("first call authenticates, second reuses the session", func(c *qt.C) {
		_, err := cl.FetchReadings(context.Background(), 12, 1440)
		c.Assert(err, qt.IsNil)
		c.Assert(fake.authCalls, qt.Equals, 1)
		c.Assert(fake.loginCalls, qt.Equals, 1)
		c.Assert(fake.readCalls, qt.Equals, 2)
		c.Assert(fake.readQuery[1], qt.Equals, "maxCount=12&minutes=1440&sessionId="+testSessionA)
	})
}

func TestFetchReadings_SessionExpiry(t *testing.T) {
	c := qt.New(t)

	c.Run("one expiry triggers exactly one re-auth and one retry", func(c *qt.C) {
		fake := newFakeShare()
		fake.readStatus = []int{http.StatusInternalServerError, http.StatusOK}
		fake.readings = []map[string]any{{"WT": "Date(1700000000000)", "Value": 100, "Trend": 4}}
		cl := newClient(c, fake.start(t).URL)

		got, err := cl.FetchReadings(context.Background(), 1, 60)
		c.Assert(err, qt.IsNil)
		c.Assert(got, qt.HasLen, 1)
		c.Assert(fake.authCalls, qt.Equals, 2)
		c.Assert(fake.readCalls, qt.Equals, 2)
		c.Assert(fake.readQuery[0], qt.Contains, "sessionId="+testSessionA)
		c.Assert(fake.readQuery[1], qt.Contains, "sessionId="+testSessionB)
	})

	c.Run("second consecutive expiry propagates instead of looping", func(c *qt.C) {
		fake := newFakeShare()
		fake.readStatus = []int{http.StatusInternalServerError}
		fake.sessions = []string{testSessionA, testSessionB, testSessionA}
		cl := newClient(c, fake.start(t).URL)

		got, err := cl.FetchReadings(context.Background(), 1, 60)
		c.Assert(got, qt.IsNil)
		c.Assert(err, qt.ErrorIs, share.ErrSessionExpired)
		c.Assert(share.IsAuthentication(err), qt.IsFalse)
		var apiErr *share.APIError
		c.Assert(errors.As(err, &apiErr), qt.IsTrue)
		c.Assert(apiErr.StatusCode, qt.Equals, http.StatusInternalServerError)
		c.Assert(fake.readCalls, qt.Equals, 2)
		c.Assert(fake.authCalls, qt.Equals, 2)
	})

	c.Run("re-auth failure after expiry surfaces the authentication error", func(c *qt.C) {
		fake := newFakeShare()
		fake.readStatus = []int{http.StatusInternalServerError}
		fake.sessions = []string{testSessionA}
		cl := newClient(c, fake.start(t).URL)

		_, err := cl.FetchReadings(context.Background(), 1, 60)
		c.Assert(err, qt.ErrorIs, share.ErrAuthentication)
		c.Assert(fake.readCalls, qt.Equals, 1)
		c.Assert(cl.HasSession(), qt.IsFalse)
	})
}

func TestFetchReadings_FailurePath(t *testing.T) {
	c := qt.New(t)

	c.Run("other non-200 statuses do not re-authenticate and keep the session", func(c *qt.C) {
		fake := newFakeShare()
		fake.readStatus = []int{http.StatusServiceUnavailable}
		cl := newClient(c, fake.start(t).URL)

		_, err := cl.FetchReadings(context.Background(), 1, 60)
		var apiErr *share.APIError
		c.Assert(errors.As(err, &apiErr), qt.IsTrue)
		c.Assert(apiErr.StatusCode, qt.Equals, http.StatusServiceUnavailable)
		c.Assert(apiErr.Op, qt.Equals, "read")
		c.Assert(fake.authCalls, qt.Equals, 1)
		c.Assert(cl.HasSession(), qt.IsTrue)
	})

	c.Run("malformed timestamp fails the whole fetch", func(c *qt.C) {
		fake := newFakeShare()
		fake.readings = []map[string]any{{"WT": "Date(yesterday)", "Value": 100, "Trend": 4}}
		cl := newClient(c, fake.start(t).URL)

		got, err := cl.FetchReadings(context.Background(), 1, 60)
		c.Assert(got, qt.IsNil)
		var apiErr *share.APIError
		c.Assert(errors.As(err, &apiErr), qt.IsTrue)
		c.Assert(apiErr.Op, qt.Equals, "parse")
	})

	c.Run("missing value fails the whole fetch", func(c *qt.C) {
		fake := newFakeShare()
		fake.readings = []map[string]any{{"WT": "Date(1700000000000)", "Trend": 4}}
		cl := newClient(c, fake.start(t).URL)

		_, err := cl.FetchReadings(context.Background(), 1, 60)
		c.Assert(err, qt.ErrorMatches, ".*no Value.*")
	})

	c.Run("non-positive arguments are rejected before any request", func(c *qt.C) {
		fake := newFakeShare()
		cl := newClient(c, fake.start(t).URL)

		_, err := cl.FetchReadings(context.Background(), 0, 60)
		c.Assert(err, qt.IsNotNil)
		c.Assert(fake.authCalls, qt.Equals, 0)
	})
}

// ---------------------------------------------------------------------------
// FetchLatest
// ---------------------------------------------------------------------------

func TestFetchLatest_HappyPath(t *testing.T) {
	c := qt.New(t)

	c.Run("returns the single reading", func(c *qt.C) {
		fake := newFakeShare()
		fake.readings = []map[string]any{{"WT": "Date(1700000000000)", "Value": 260, "Trend": "Flat"}}
		cl := newClient(c, fake.start(t).URL)

		got, err := cl.FetchLatest(context.Background())
		c.Assert(err, qt.IsNil)
		c.Assert(got, qt.IsNotNil)
		c.Assert(got.Value, qt.Equals, 260)
		c.Assert(got.Trend, qt.Equals, models.TrendFlat)
		c.Assert(fake.readQuery[0], qt.Contains, "maxCount=1&minutes=1440")
	})

	c.Run("empty result is no reading and no error", func(c *qt.C) {
		fake := newFakeShare()
		cl := newClient(c, fake.start(t).URL)

		got, err := cl.FetchLatest(context.Background())
		c.Assert(err, qt.IsNil)
		c.Assert(got, qt.IsNil)
	})
}

func TestWithAuthHook(t *testing.T) {
	c := qt.New(t)

	fake := newFakeShare()
	fake.readStatus = []int{http.StatusInternalServerError, http.StatusOK}
	fake.sessions = []string{testSessionA}
	srv := fake.start(t)

	var results []error
	cl, err := share.New(share.Credentials{Username: "alice", Password: "secret", Region: "US"},
		share.WithBaseURL(srv.URL),
		share.WithAuthHook(func(err error) { results = append(results, err) }))
	c.Assert(err, qt.IsNil)

	_, err = cl.FetchReadings(context.Background(), 1, 60)
	c.Assert(err, qt.ErrorIs, share.ErrAuthentication)

	// Implicit login, then the failed re-login after the expiry.
	c.Assert(results, qt.HasLen, 2)
	c.Assert(results[0], qt.IsNil)
	c.Assert(results[1], qt.ErrorIs, share.ErrAuthentication)
}
