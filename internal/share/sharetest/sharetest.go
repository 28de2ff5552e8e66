// Package sharetest provides an in-memory share service for tests.
package sharetest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"

	"github.com/go-ports/glucowatch/internal/models"
)

// Fixed identifiers handed out by the fake.
const (
	AccountID = "1e2f3a4b-5c6d-4e7f-8a9b-0c1d2e3f4a5b"
	SessionID = "aaaaaaaa-1111-4111-8111-aaaaaaaaaaaa"
)

// Server answers the three share endpoints. Readings are served newest first
// and truncated to the maxCount query parameter.
type Server struct {
	*httptest.Server

	mu         sync.Mutex
	readings   []models.Reading
	authStatus int
	readStatus int
	auths      int
	logins     int
	reads      int
}

// New starts a Server that is closed when t finishes.
func New(t testing.TB) *Server {
	t.Helper()
	s := &Server{authStatus: http.StatusOK, readStatus: http.StatusOK}

	mux := http.NewServeMux()
	mux.HandleFunc("/General/AuthenticatePublisherAccount", func(w http.ResponseWriter, _ *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.auths++
		if s.authStatus != http.StatusOK {
			http.Error(w, `{"Code":"AccountPasswordInvalid"}`, s.authStatus)
			return
		}
		_ = json.NewEncoder(w).Encode(AccountID)
	})
	mux.HandleFunc("/General/LoginPublisherAccountById", func(w http.ResponseWriter, _ *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.logins++
		_ = json.NewEncoder(w).Encode(SessionID)
	})
	mux.HandleFunc("/Publisher/ReadPublisherLatestGlucoseValues", func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.reads++
		if s.readStatus != http.StatusOK {
			http.Error(w, "SessionNotValid", s.readStatus)
			return
		}
		n := len(s.readings)
		if max, err := strconv.Atoi(r.URL.Query().Get("maxCount")); err == nil && max < n {
			n = max
		}
		out := make([]map[string]any, 0, n)
		for _, rd := range s.readings[:n] {
			out = append(out, map[string]any{
				"WT":    fmt.Sprintf("Date(%d)", rd.Time.UnixMilli()),
				"ST":    fmt.Sprintf("Date(%d)", rd.Time.UnixMilli()),
				"DT":    fmt.Sprintf("Date(%d-0000)", rd.Time.UnixMilli()),
				"Value": rd.Value,
				"Trend": rd.Trend.Name(),
			})
		}
		_ = json.NewEncoder(w).Encode(out)
	})

	s.Server = httptest.NewServer(mux)
	t.Cleanup(s.Close)
	return s
}

// SetReadings replaces the served readings, newest first.
func (s *Server) SetReadings(rs ...models.Reading) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.readings = append([]models.Reading(nil), rs...)
}

// SetAuthStatus makes the authenticate endpoint answer with code.
func (s *Server) SetAuthStatus(code int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.authStatus = code
}

// SetReadStatus makes the read endpoint answer with code.
func (s *Server) SetReadStatus(code int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.readStatus = code
}

// Calls returns the number of requests each endpoint has served.
func (s *Server) Calls() (auths, logins, reads int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.auths, s.logins, s.reads
}
