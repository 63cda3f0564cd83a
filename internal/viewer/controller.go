package viewer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
	"sync"

	"gateway-trace/internal/catalog"
	"gateway-trace/internal/logapi"
	"gateway-trace/internal/transcript"
)

// User-facing texts shared by both front ends.
const (
	MsgIndexFailed    = "Failed to load logs."
	MsgLoadFailed     = "Failed to load log file."
	MsgWelcome        = "Select a log from the left sidebar to view the conversation."
	MsgFolderNotFound = "Failed to delete session. Folder not found."
	MsgDeletePrefix   = "Failed to delete session: "
	MsgDeleteError    = "An error occurred while deleting the session."
	MsgConfirmDelete  = "Are you sure you want to delete this session? This action cannot be undone."
)

var (
	ErrFolderNotFound  = errors.New(MsgFolderNotFound)
	ErrSessionNotFound = errors.New("session not found")
)

type Backend interface {
	ListLogs(ctx context.Context) ([]catalog.Entry, error)
	FetchTranscript(ctx context.Context, logPath string) (logapi.Fetched, error)
	DeleteSession(ctx context.Context, userID, folder string) error
}

// Cache keeps copies of fetched transcripts and serves them when the backend
// fails. Failures are logged, never surfaced.
type Cache interface {
	Put(ctx context.Context, path string, raw []byte, t *transcript.Transcript) error
	Get(ctx context.Context, path string) ([]byte, bool, error)
	Has(ctx context.Context, path string) (bool, error)
	DeleteSession(ctx context.Context, userID, folder string) (int64, error)
}

// Controller owns the navigator tree and the active log. Front ends call it
// sequentially; it is safe for concurrent use.
type Controller struct {
	backend Backend
	cache   Cache
	labeler catalog.Labeler
	logger  *log.Logger

	mu      sync.Mutex
	tree    catalog.Tree
	loadErr error
	active  string
}

type Option func(*Controller)

func WithCache(c Cache) Option {
	return func(ctl *Controller) { ctl.cache = c }
}

func WithLabeler(l catalog.Labeler) Option {
	return func(ctl *Controller) { ctl.labeler = l }
}

func WithLogger(l *log.Logger) Option {
	return func(ctl *Controller) { ctl.logger = l }
}

func New(b Backend, opts ...Option) *Controller {
	c := &Controller{backend: b, logger: log.New(io.Discard, "", 0)}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Refresh reloads the log index and rebuilds the tree. On failure the tree is
// emptied and IndexError reports the cause.
func (c *Controller) Refresh(ctx context.Context) (catalog.Tree, error) {
	entries, err := c.backend.ListLogs(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		c.logger.Printf("load log index: %v", err)
		c.tree = catalog.Tree{}
		c.loadErr = err
		return catalog.Tree{}, err
	}
	c.tree = catalog.Group(entries)
	c.loadErr = nil
	return c.tree.Clone(), nil
}

func (c *Controller) Tree() catalog.Tree {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tree.Clone()
}

func (c *Controller) IndexError() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loadErr
}

func (c *Controller) Label(e catalog.Entry) string {
	return c.labeler.Label(e)
}

func (c *Controller) Active() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active
}

// Select marks path as the open log without fetching it.
func (c *Controller) Select(path string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.active = normalizePath(path)
}

// Open selects path and fetches its transcript. When the backend serves a
// different log the selection moves to the resolved path. On failure the
// selection stays on the requested path and the tree is untouched.
func (c *Controller) Open(ctx context.Context, path string) (logapi.Fetched, error) {
	path = normalizePath(path)
	c.Select(path)

	f, err := c.Fetch(ctx, path)
	if err != nil {
		return f, err
	}

	c.mu.Lock()
	if c.active == path {
		c.active = f.Path
	}
	c.mu.Unlock()
	return f, nil
}

// Fetch loads path without touching the selection, for front ends that track
// their own open log such as browser tabs. When the backend is unreachable or
// failing and a cached copy exists, the copy is returned with FromCache set. A
// log the backend reports as missing is never served from the cache.
func (c *Controller) Fetch(ctx context.Context, path string) (logapi.Fetched, error) {
	path = normalizePath(path)

	f, err := c.backend.FetchTranscript(ctx, path)
	if err != nil {
		c.logger.Printf("load log %s: %v", path, err)
		if !errors.Is(err, logapi.ErrNotFound) {
			if cached, ok := c.cachedCopy(ctx, path); ok {
				return cached, nil
			}
		}
		return f, err
	}
	if f.Path == "" {
		f.Path = path
	}
	if f.Redirected() {
		c.logger.Printf("log %s resolved to %s", path, f.Path)
	}
	c.cachePut(ctx, f)
	return f, nil
}

func (c *Controller) cachedCopy(ctx context.Context, path string) (logapi.Fetched, bool) {
	if c.cache == nil {
		return logapi.Fetched{}, false
	}
	raw, ok, err := c.cache.Get(ctx, path)
	if err != nil {
		c.logger.Printf("read cached %s: %v", path, err)
		return logapi.Fetched{}, false
	}
	if !ok {
		return logapi.Fetched{}, false
	}
	t, err := transcript.Decode(raw)
	if err != nil {
		c.logger.Printf("decode cached %s: %v", path, err)
		return logapi.Fetched{}, false
	}
	return logapi.Fetched{RequestedPath: path, Path: path, Transcript: t, Raw: raw, FromCache: true}, true
}

func (c *Controller) cachePut(ctx context.Context, f logapi.Fetched) {
	if c.cache == nil || f.Transcript == nil {
		return
	}
	if err := c.cache.Put(ctx, f.Path, f.Raw, f.Transcript); err != nil {
		c.logger.Printf("cache %s: %v", f.Path, err)
	}
}

// DeleteResult describes a completed session deletion.
type DeleteResult struct {
	UserID    string
	SessionID string
	Folder    string
	// Paths lists the files the session held when it was deleted.
	Paths []string
	// ResetPane is set when the controller's selection belonged to the
	// deleted session. Front ends with their own selection use Paths.
	ResetPane bool
	Purged    int64
}

// DeleteSession removes a session on the backend. The folder is taken from
// the stored path of a listed file, never from the session label. The tree
// changes only after the backend confirms.
func (c *Controller) DeleteSession(ctx context.Context, userID, sessionID string) (DeleteResult, error) {
	res := DeleteResult{UserID: userID, SessionID: sessionID}

	c.mu.Lock()
	sess, ok := c.tree.Session(userID, sessionID)
	c.mu.Unlock()
	if !ok {
		return res, fmt.Errorf("%s/%s: %w", userID, sessionID, ErrSessionNotFound)
	}
	folder, ok := sess.Folder()
	if !ok {
		return res, ErrFolderNotFound
	}
	res.Folder = folder
	for _, e := range sess.Entries {
		res.Paths = append(res.Paths, e.Path)
	}

	if err := c.backend.DeleteSession(ctx, userID, folder); err != nil {
		c.logger.Printf("delete session %s/%s: %v", userID, folder, err)
		return res, err
	}

	c.mu.Lock()
	c.tree.RemoveSession(userID, sessionID)
	if c.active != "" && sess.Contains(c.active) {
		c.active = ""
		res.ResetPane = true
	}
	c.mu.Unlock()

	if c.cache != nil {
		n, err := c.cache.DeleteSession(ctx, userID, folder)
		if err != nil {
			c.logger.Printf("purge cached session %s/%s: %v", userID, folder, err)
		}
		res.Purged = n
	}
	return res, nil
}

// DeleteErrorText is the message shown to the user for a failed deletion.
// Backend answers are passed through verbatim.
func DeleteErrorText(err error) string {
	var se *logapi.StatusError
	switch {
	case errors.Is(err, ErrFolderNotFound), errors.Is(err, ErrSessionNotFound):
		return MsgFolderNotFound
	case errors.As(err, &se):
		return MsgDeletePrefix + se.Body
	}
	return MsgDeleteError
}

func normalizePath(p string) string {
	return strings.TrimPrefix(strings.TrimPrefix(strings.TrimSpace(p), "#"), "/")
}
