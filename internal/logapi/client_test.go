package logapi

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"
)

const minimalLog = `{"request": {"body": {"messages": [{"role": "user", "content": "hello"}]}}}`

func newTestClient(t *testing.T, h http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := New(srv.URL, 5*time.Second)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return c
}

func TestListLogs(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/viewer/api/logs" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"path": "u1/s1/20240115_093000.json", "filename": "20240115_093000.json", "timestamp": "2024-01-15T09:30:00Z"}]`))
	}))

	entries, err := c.ListLogs(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(entries) != 1 || entries[0].Path != "u1/s1/20240115_093000.json" || entries[0].Filename != "20240115_093000.json" {
		t.Fatalf("unexpected entries: %#v", entries)
	}
}

func TestListLogsHTTPError(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "kaput", http.StatusInternalServerError)
	}))
	_, err := c.ListLogs(context.Background())
	var se *StatusError
	if !errors.As(err, &se) || se.StatusCode != http.StatusInternalServerError {
		t.Fatalf("expected status error, got %v", err)
	}
}

func TestFetchTranscriptDirect(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/viewer/api/logs/u1/s1/a.json" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(minimalLog))
	}))

	f, err := c.FetchTranscript(context.Background(), "u1/s1/a.json")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if f.Redirected() {
		t.Fatalf("direct fetch should not be redirected: %#v", f)
	}
	if f.Path != "u1/s1/a.json" || len(f.Transcript.Messages()) != 1 {
		t.Fatalf("unexpected fetch: %#v", f)
	}
	if len(f.Raw) == 0 {
		t.Fatalf("raw body should be kept")
	}
}

func TestFetchTranscriptFollowsRedirect(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/viewer/api/logs/u1/s1", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/viewer/api/logs/u1/s1/20240115_093000.json", http.StatusFound)
	})
	mux.HandleFunc("/viewer/api/logs/u1/s1/20240115_093000.json", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(minimalLog))
	})
	c := newTestClient(t, mux)

	f, err := c.FetchTranscript(context.Background(), "u1/s1")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if !f.Redirected() {
		t.Fatalf("expected redirect to be detected")
	}
	if f.RequestedPath != "u1/s1" || f.Path != "u1/s1/20240115_093000.json" {
		t.Fatalf("unexpected paths: requested=%q resolved=%q", f.RequestedPath, f.Path)
	}
}

func TestFetchTranscriptCanonicalHeaderWins(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(CanonicalHeader, "/u1/s1/latest.json")
		_, _ = w.Write([]byte(`{"canonical_path": "u1/s1/other.json", "request": {"body": {}}}`))
	}))
	f, err := c.FetchTranscript(context.Background(), "u1/s1")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if f.Path != "u1/s1/latest.json" {
		t.Fatalf("expected header path, got %q", f.Path)
	}
}

func TestFetchTranscriptCanonicalField(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"canonical_path": "u1/s1/other.json", "request": {"body": {}}}`))
	}))
	f, err := c.FetchTranscript(context.Background(), "u1/s1")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if f.Path != "u1/s1/other.json" || !f.Redirected() {
		t.Fatalf("expected field path, got %#v", f)
	}
}

func TestFetchTranscriptNotFound(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte("Log not found"))
	}))
	_, err := c.FetchTranscript(context.Background(), "nope.json")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestFetchTranscriptBadJSON(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html>"))
	}))
	if _, err := c.FetchTranscript(context.Background(), "x.json"); err == nil {
		t.Fatalf("expected decode error")
	}
}

func TestDeleteSession(t *testing.T) {
	var gotMethod, gotPath string
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod, gotPath = r.Method, r.URL.Path
		_, _ = w.Write([]byte(`{"success": true}`))
	}))
	if err := c.DeleteSession(context.Background(), "u1", "20240101_000000_abcd1234"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if gotMethod != http.MethodDelete || gotPath != "/viewer/api/sessions/u1/20240101_000000_abcd1234" {
		t.Fatalf("unexpected request %s %s", gotMethod, gotPath)
	}
}

func TestDeleteSessionKeepsBackendText(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte("Session not found"))
	}))
	err := c.DeleteSession(context.Background(), "u1", "gone")
	var se *StatusError
	if !errors.As(err, &se) {
		t.Fatalf("expected status error, got %v", err)
	}
	if se.Body != "Session not found" {
		t.Fatalf("body should be verbatim, got %q", se.Body)
	}
}

func TestLogPathFromURL(t *testing.T) {
	cases := []struct {
		raw  string
		want string
		ok   bool
	}{
		{"http://h/viewer/api/logs/u1/s1/a.json", "u1/s1/a.json", true},
		{"http://h/base/viewer/api/logs/a.json", "a.json", true},
		{"http://h/viewer/api/logs/", "", false},
		{"http://h/other", "", false},
	}
	for _, tc := range cases {
		u, err := url.Parse(tc.raw)
		if err != nil {
			t.Fatalf("parse %q: %v", tc.raw, err)
		}
		got, ok := LogPathFromURL(u)
		if got != tc.want || ok != tc.ok {
			t.Fatalf("url=%q got=(%q,%v) want=(%q,%v)", tc.raw, got, ok, tc.want, tc.ok)
		}
	}
}
