package moemail

import (
	"context"
	"net/http"
	"strings"
	"testing"
	"time"
)

func TestFetchCodeOnce_NoMailbox(t *testing.T) {
	p, server := newProvider(t)
	c, logs, _ := newTestClient(t, server)

	if code, ok := c.FetchCodeOnce(context.Background(), time.Time{}); ok {
		t.Errorf("FetchCodeOnce() = %q, true before Provision", code)
	}
	if n := p.total(); n != 0 {
		t.Errorf("requests = %d, want 0", n)
	}
	if !logs.contains(LevelError, ErrNoMailbox.Error()) {
		t.Error("missing no-mailbox log")
	}
}

func TestFetchCodeOnce_InlineContent(t *testing.T) {
	p, server := newProvider(t)
	c, _, _ := provisioned(t, p, server)
	p.handle("GET /api/emails/mb-1", `{"messages":[{"id":"m1","content":"Your code is 123456"}]}`)

	code, ok := c.FetchCodeOnce(context.Background(), time.Time{})
	if !ok || code != "123456" {
		t.Fatalf("FetchCodeOnce() = %q, %v, want 123456", code, ok)
	}
	if n := p.count("GET /api/emails/mb-1/"); n != 0 {
		t.Errorf("detail requests = %d, want 0", n)
	}
}

func TestFetchCodeOnce_DetailEnvelope(t *testing.T) {
	p, server := newProvider(t)
	c, _, _ := provisioned(t, p, server)
	p.handle("GET /api/emails/mb-1", `{"messages":[{"id":"m1"}]}`)
	p.handle("GET /api/emails/mb-1/m1", `{"message":{"id":"m1","text":"code: 482910"}}`)

	code, ok := c.FetchCodeOnce(context.Background(), time.Time{})
	if !ok || code != "482910" {
		t.Fatalf("FetchCodeOnce() = %q, %v, want 482910", code, ok)
	}
	if n := p.count("GET /api/emails/mb-1/m1"); n != 1 {
		t.Errorf("detail requests = %d, want 1", n)
	}
}

func TestFetchCodeOnce_DetailShapes(t *testing.T) {
	tests := []struct {
		name   string
		detail string
		want   string
	}{
		{"flat text", `{"text":"Your code is 551234"}`, "551234"},
		{"textContent", `{"textContent":"OTP: 8842"}`, "8842"},
		{"content", `{"content":"PIN 7766"}`, "7766"},
		{"html only", `{"html":"<p>Your verification code is <b>904211</b></p>"}`, "904211"},
		{"htmlContent", `{"message":{"htmlContent":"<div>code 120934</div>"}}`, "120934"},
		{"html fragments", `{"html":["<p>code ","665544","</p>"]}`, "665544"},
		{"text then html", `{"text":"Hello there","html":"<p>code: 303030</p>"}`, "303030"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, server := newProvider(t)
			c, _, _ := provisioned(t, p, server)
			p.handle("GET /api/emails/mb-1", `{"messages":[{"id":"m1","content":"no digits here"}]}`)
			p.handle("GET /api/emails/mb-1/m1", tt.detail)

			code, ok := c.FetchCodeOnce(context.Background(), time.Time{})
			if !ok || code != tt.want {
				t.Errorf("FetchCodeOnce() = %q, %v, want %s", code, ok, tt.want)
			}
		})
	}
}

func TestFetchCodeOnce_SinceFilter(t *testing.T) {
	p, server := newProvider(t)
	c, logs, _ := provisioned(t, p, server)
	p.handle("GET /api/emails/mb-1", `{"messages":[
		{"id":"old","content":"code 111111","createdAt":"2026-01-01T00:00:00Z"},
		{"id":"new","content":"code 222222","createdAt":"2026-01-01T00:10:00.123456789Z"}
	]}`)

	since := time.Date(2026, 1, 1, 0, 5, 0, 0, time.UTC)
	code, ok := c.FetchCodeOnce(context.Background(), since)
	if !ok || code != "222222" {
		t.Fatalf("FetchCodeOnce() = %q, %v, want 222222", code, ok)
	}
	if !logs.contains(LevelDebug, "Skipping message old") {
		t.Error("missing skip log for old message")
	}

	code, ok = c.FetchCodeOnce(context.Background(), time.Time{})
	if !ok || code != "111111" {
		t.Errorf("FetchCodeOnce(zero since) = %q, %v, want 111111", code, ok)
	}
}

func TestFetchCodeOnce_SinceFilterKeys(t *testing.T) {
	tests := []struct {
		name string
		list string
		want string
	}{
		{"receivedAt", `{"messages":[{"id":"a","content":"code 111111","receivedAt":"2026-01-01T00:00:00+00:00"},{"id":"b","content":"code 222222","receivedAt":"2026-01-01T01:00:00+00:00"}]}`, "222222"},
		{"unix millis", `{"messages":[{"id":"a","content":"code 111111","createdAt":1767225600000},{"id":"b","content":"code 222222","createdAt":1767229200000}]}`, "222222"},
		{"unparseable kept", `{"messages":[{"id":"a","content":"code 333333","createdAt":"yesterday"}]}`, "333333"},
		{"missing kept", `{"messages":[{"id":"a","content":"code 444444"}]}`, "444444"},
	}

	since := time.Date(2026, 1, 1, 0, 30, 0, 0, time.UTC)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, server := newProvider(t)
			c, _, _ := provisioned(t, p, server)
			p.handle("GET /api/emails/mb-1", tt.list)

			code, ok := c.FetchCodeOnce(context.Background(), since)
			if !ok || code != tt.want {
				t.Errorf("FetchCodeOnce() = %q, %v, want %s", code, ok, tt.want)
			}
		})
	}
}

func TestFetchCodeOnce_NoCode(t *testing.T) {
	tests := []struct {
		name string
		list string
	}{
		{"empty inbox", `{"messages":[]}`},
		{"missing messages", `{}`},
		{"entries without id", `{"messages":[{"content":"code 123456"}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, server := newProvider(t)
			c, _, _ := provisioned(t, p, server)
			p.handle("GET /api/emails/mb-1", tt.list)

			if code, ok := c.FetchCodeOnce(context.Background(), time.Time{}); ok {
				t.Errorf("FetchCodeOnce() = %q, true", code)
			}
			if n := p.count("GET /api/emails/mb-1/"); n != 0 {
				t.Errorf("detail requests = %d, want 0", n)
			}
		})
	}
}

func TestFetchCodeOnce_ListFailure(t *testing.T) {
	p, server := newProvider(t)
	c, logs, _ := provisioned(t, p, server)
	p.fail("GET /api/emails/mb-1", http.StatusInternalServerError)

	if _, ok := c.FetchCodeOnce(context.Background(), time.Time{}); ok {
		t.Error("FetchCodeOnce() ok = true on list failure")
	}
	if !logs.contains(LevelError, "API error 500") {
		t.Error("missing list failure log")
	}
}

func TestFetchCodeOnce_DetailErrorSkipsMessage(t *testing.T) {
	p, server := newProvider(t)
	c, logs, _ := provisioned(t, p, server)
	p.handle("GET /api/emails/mb-1", `{"messages":[{"id":"m1"},{"id":"m2"}]}`)
	p.fail("GET /api/emails/mb-1/m1", http.StatusNotFound)
	p.handle("GET /api/emails/mb-1/m2", `{"text":"code 777000"}`)

	code, ok := c.FetchCodeOnce(context.Background(), time.Time{})
	if !ok || code != "777000" {
		t.Fatalf("FetchCodeOnce() = %q, %v, want 777000", code, ok)
	}
	if !logs.contains(LevelWarn, "Skipping message m1") {
		t.Error("missing skip log for m1")
	}
}

func TestFetchCodeOnce_TransportFailureAborts(t *testing.T) {
	p, server := newProvider(t)
	c, _, _ := provisioned(t, p, server)
	p.handle("GET /api/emails/mb-1", `{"messages":[{"id":"m1"},{"id":"m2"}]}`)
	p.mux.HandleFunc("GET /api/emails/mb-1/m1", func(w http.ResponseWriter, r *http.Request) {
		conn, _, err := w.(http.Hijacker).Hijack()
		if err != nil {
			t.Errorf("Hijack() error = %v", err)
			return
		}
		conn.Close()
	})
	p.handle("GET /api/emails/mb-1/m2", `{"text":"code 777000"}`)

	if code, ok := c.FetchCodeOnce(context.Background(), time.Time{}); ok {
		t.Errorf("FetchCodeOnce() = %q, true after transport failure", code)
	}
	if n := p.count("GET /api/emails/mb-1/m2"); n != 0 {
		t.Errorf("m2 requests = %d, want 0", n)
	}
}

func TestFetchCodeOnce_InlineWithoutCodeFetchesDetail(t *testing.T) {
	p, server := newProvider(t)
	c, _, _ := provisioned(t, p, server)
	p.handle("GET /api/emails/mb-1", `{"messages":[{"id":"m1","content":"Welcome aboard"}]}`)
	p.handle("GET /api/emails/mb-1/m1", `{"message":{"html":"<p>Welcome aboard</p>"}}`)

	if _, ok := c.FetchCodeOnce(context.Background(), time.Time{}); ok {
		t.Error("FetchCodeOnce() ok = true without a code")
	}
	if n := p.count("GET /api/emails/mb-1/m1"); n != 1 {
		t.Errorf("detail requests = %d, want 1", n)
	}
}

func TestFetchCodeOnce_CustomExtractor(t *testing.T) {
	p, server := newProvider(t)
	extract := func(text string) (string, bool) {
		if i := strings.Index(text, "TOKEN-"); i >= 0 {
			return text[i+6:], true
		}
		return "", false
	}
	c, _, _ := provisioned(t, p, server, WithExtractor(extract))
	p.handle("GET /api/emails/mb-1", `{"messages":[{"id":"m1","content":"use TOKEN-abc"}]}`)

	code, ok := c.FetchCodeOnce(context.Background(), time.Time{})
	if !ok || code != "abc" {
		t.Errorf("FetchCodeOnce() = %q, %v, want abc", code, ok)
	}
}

func TestFetchCodeOnce_ExtractorPanic(t *testing.T) {
	p, server := newProvider(t)
	c, logs, _ := provisioned(t, p, server, WithExtractor(func(string) (string, bool) {
		panic("bad extractor")
	}))
	p.handle("GET /api/emails/mb-1", `{"messages":[{"id":"m1","content":"code 123456"}]}`)
	p.handle("GET /api/emails/mb-1/m1", `{"text":"code 123456"}`)

	if _, ok := c.FetchCodeOnce(context.Background(), time.Time{}); ok {
		t.Error("FetchCodeOnce() ok = true with panicking extractor")
	}
	if !logs.contains(LevelError, "Code extractor panicked") {
		t.Error("missing extractor panic log")
	}
}
