package zendesk

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"zenexport/internal/logging"
	"zenexport/internal/testutil"
)

var testCreds = Credentials{Subdomain: "acme", Email: "ops@example.com", Token: "s3cret"}

// scriptedServer answers the n-th request with the n-th handler and records
// every request's query string.
type scriptedServer struct {
	*httptest.Server

	mu      sync.Mutex
	queries []url.Values
	paths   []string
}

func newScriptedServer(t *testing.T, steps ...http.HandlerFunc) *scriptedServer {
	t.Helper()
	s := &scriptedServer{}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		n := len(s.queries)
		s.queries = append(s.queries, r.URL.Query())
		s.paths = append(s.paths, r.URL.Path)
		s.mu.Unlock()

		if n >= len(steps) {
			t.Errorf("unexpected request #%d to %s", n+1, r.URL.String())
			w.WriteHeader(http.StatusTeapot)
			return
		}
		steps[n](w, r)
	}))
	t.Cleanup(s.Close)
	return s
}

func (s *scriptedServer) requests() []url.Values {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]url.Values(nil), s.queries...)
}

func (s *scriptedServer) requestPaths() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.paths...)
}

func jsonPage(v interface{}) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(v)
	}
}

func status(code int, header map[string]string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		for k, v := range header {
			w.Header().Set(k, v)
		}
		w.WriteHeader(code)
		_, _ = w.Write([]byte(`{"error":"nope"}`))
	}
}

func newTestFetcher(srv *httptest.Server, policy RetryPolicy) (*Fetcher, *testutil.FakeClock) {
	clk := testutil.NewFakeClock(time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC))
	client := NewClient(testCreds, WithBaseURL(srv.URL))
	return NewFetcher(client, policy, WithSleeper(clk), WithLogger(logging.Discard())), clk
}
