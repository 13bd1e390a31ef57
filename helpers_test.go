package moemail

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"
)

// provider is a scripted Moemail endpoint that records every request.
type provider struct {
	mux *http.ServeMux

	mu       sync.Mutex
	requests []string
}

func newProvider(t *testing.T) (*provider, *httptest.Server) {
	t.Helper()
	p := &provider{mux: http.NewServeMux()}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p.mu.Lock()
		p.requests = append(p.requests, r.Method+" "+r.URL.Path)
		p.mu.Unlock()
		p.mux.ServeHTTP(w, r)
	}))
	t.Cleanup(server.Close)
	return p, server
}

func (p *provider) handle(pattern string, body string) {
	p.mux.HandleFunc(pattern, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(body))
	})
}

func (p *provider) fail(pattern string, status int) {
	p.mux.HandleFunc(pattern, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"scripted failure"}`, status)
	})
}

// count returns how many recorded requests start with prefix.
func (p *provider) count(prefix string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, r := range p.requests {
		if strings.HasPrefix(r, prefix) {
			n++
		}
	}
	return n
}

func (p *provider) total() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.requests)
}

type logEntry struct {
	level   string
	message string
}

type logRecorder struct {
	mu      sync.Mutex
	entries []logEntry
}

func (l *logRecorder) log(level, message string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, logEntry{level, message})
}

func (l *logRecorder) contains(level, substr string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, e := range l.entries {
		if e.level == level && strings.Contains(e.message, substr) {
			return true
		}
	}
	return false
}

type sleepRecorder struct {
	mu    sync.Mutex
	calls []time.Duration
	err   error
}

func (s *sleepRecorder) sleep(_ context.Context, d time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, d)
	return s.err
}

func (s *sleepRecorder) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

// newTestClient builds a client against server with recorded logs and
// sleeps that return immediately.
func newTestClient(t *testing.T, server *httptest.Server, opts ...Option) (*Client, *logRecorder, *sleepRecorder) {
	t.Helper()
	logs := &logRecorder{}
	opts = append([]Option{WithBaseURL(server.URL), WithAPIKey("test-key"), WithLogger(logs.log)}, opts...)
	c, err := New(opts...)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	sleeps := &sleepRecorder{}
	c.sleep = sleeps.sleep
	return c, logs, sleeps
}

// provisioned returns a client whose current mailbox is mb-1.
func provisioned(t *testing.T, p *provider, server *httptest.Server, opts ...Option) (*Client, *logRecorder, *sleepRecorder) {
	t.Helper()
	p.handle("POST /api/emails/generate", `{"email":"t1234abcdefghij@moemail.app","id":"mb-1"}`)
	c, logs, sleeps := newTestClient(t, server, opts...)
	if !c.Provision(context.Background(), "moemail.app") {
		t.Fatal("Provision() = false")
	}
	return c, logs, sleeps
}
