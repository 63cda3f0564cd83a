package logapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"gateway-trace/internal/catalog"
	"gateway-trace/internal/transcript"
)

const (
	logsPrefix     = "/viewer/api/logs/"
	sessionsPrefix = "/viewer/api/sessions/"
	// CanonicalHeader lets the gateway name the log it actually served.
	CanonicalHeader = "X-Canonical-Path"
	maxErrorBody    = 64 * 1024
)

var ErrNotFound = errors.New("not found")

// StatusError is a non-2xx backend answer. Body holds the response text
// verbatim so it can be shown to the user unchanged.
type StatusError struct {
	Op         string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	body := strings.TrimSpace(e.Body)
	if body == "" {
		body = http.StatusText(e.StatusCode)
	}
	return fmt.Sprintf("%s: %d %s", e.Op, e.StatusCode, body)
}

func (e *StatusError) Is(target error) bool {
	return target == ErrNotFound && e.StatusCode == http.StatusNotFound
}

type Client struct {
	base *url.URL
	http *http.Client
}

func New(baseURL string, timeout time.Duration) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{base: u, http: &http.Client{Timeout: timeout}}, nil
}

func (c *Client) endpoint(p string) string {
	return c.base.String() + p
}

// ListLogs fetches the log index.
func (c *Client) ListLogs(ctx context.Context) ([]catalog.Entry, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint("/viewer/api/logs"), nil)
	if err != nil {
		return nil, fmt.Errorf("build list request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("list logs: %w", err)
	}
	defer resp.Body.Close()
	if err := checkStatus("list logs", resp); err != nil {
		return nil, err
	}
	var entries []catalog.Entry
	if err := json.NewDecoder(resp.Body).Decode(&entries); err != nil {
		return nil, fmt.Errorf("decode log index: %w", err)
	}
	return entries, nil
}

// Fetched is a transcript together with the path it was served from.
type Fetched struct {
	RequestedPath string
	Path          string
	Transcript    *transcript.Transcript
	Raw           []byte
	// FromCache marks a copy served from the local cache after the backend
	// failed.
	FromCache bool
}

// Redirected reports whether the backend resolved the request to another log,
// e.g. a session pointer to its latest file.
func (f Fetched) Redirected() bool {
	return f.Path != "" && f.Path != f.RequestedPath
}

// FetchTranscript loads one log. The resolved path comes from the canonical
// header, then the canonical_path field, then the final URL after redirects.
func (c *Client) FetchTranscript(ctx context.Context, logPath string) (Fetched, error) {
	logPath = strings.TrimPrefix(logPath, "/")
	out := Fetched{RequestedPath: logPath, Path: logPath}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint(logsPrefix+escapePath(logPath)), nil)
	if err != nil {
		return out, fmt.Errorf("build log request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return out, fmt.Errorf("fetch log %s: %w", logPath, err)
	}
	defer resp.Body.Close()
	if err := checkStatus("fetch log "+logPath, resp); err != nil {
		return out, err
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return out, fmt.Errorf("read log %s: %w", logPath, err)
	}
	t, err := transcript.Decode(raw)
	if err != nil {
		return out, fmt.Errorf("log %s: %w", logPath, err)
	}
	out.Transcript = t
	out.Raw = raw
	out.Path = c.resolvedPath(resp, t, logPath)
	return out, nil
}

func (c *Client) resolvedPath(resp *http.Response, t *transcript.Transcript, requested string) string {
	if p := strings.TrimPrefix(strings.TrimSpace(resp.Header.Get(CanonicalHeader)), "/"); p != "" {
		return p
	}
	if p := strings.TrimPrefix(strings.TrimSpace(t.CanonicalPath), "/"); p != "" {
		return p
	}
	if resp.Request != nil && resp.Request.URL != nil {
		if p, ok := LogPathFromURL(resp.Request.URL); ok {
			return p
		}
	}
	return requested
}

// LogPathFromURL extracts the log path from a /viewer/api/logs/ URL.
func LogPathFromURL(u *url.URL) (string, bool) {
	p := u.Path
	idx := strings.Index(p, logsPrefix)
	if idx < 0 {
		return "", false
	}
	rest := p[idx+len(logsPrefix):]
	if rest == "" {
		return "", false
	}
	return rest, true
}

// DeleteSession removes a session folder on the backend.
func (c *Client) DeleteSession(ctx context.Context, userID, folder string) error {
	target := c.endpoint(sessionsPrefix + url.PathEscape(userID) + "/" + url.PathEscape(folder))
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, target, nil)
	if err != nil {
		return fmt.Errorf("build delete request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("delete session %s/%s: %w", userID, folder, err)
	}
	defer resp.Body.Close()
	return checkStatus("delete session "+userID+"/"+folder, resp)
}

func checkStatus(op string, resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return &StatusError{Op: op, StatusCode: resp.StatusCode, Body: string(body)}
}

func escapePath(p string) string {
	segs := strings.Split(p, "/")
	for i, s := range segs {
		segs[i] = url.PathEscape(s)
	}
	return strings.Join(segs, "/")
}
