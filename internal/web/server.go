package web

import (
	"bytes"
	"context"
	"embed"
	"encoding/json"
	"errors"
	"html/template"
	"io"
	"io/fs"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"gateway-trace/internal/catalog"
	"gateway-trace/internal/highlight"
	"gateway-trace/internal/logapi"
	"gateway-trace/internal/render"
	"gateway-trace/internal/store"
	"gateway-trace/internal/viewer"
)

//go:embed static/*
var staticFiles embed.FS

// ResolvedPathHeader tells the page which log a render request was served
// from. The value is percent-encoded per path segment.
const ResolvedPathHeader = "X-Resolved-Path"

type Searcher interface {
	Search(ctx context.Context, query string, limit int) ([]store.Hit, error)
}

type Server struct {
	ctl    *viewer.Controller
	html   *render.HTML
	search Searcher
	logger *log.Logger
}

func New(ctl *viewer.Controller, html *render.HTML, search Searcher, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Server{ctl: ctl, html: html, search: search, logger: logger}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.AttachRoutes(mux)
	return withLogging(s.logger, mux)
}

func (s *Server) AttachRoutes(mux *http.ServeMux) {
	static, _ := fs.Sub(staticFiles, "static")

	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/viewer", http.StatusFound)
	})
	mux.HandleFunc("GET /viewer", s.handlePage)
	mux.HandleFunc("GET /viewer/sidebar", s.handleSidebar)
	mux.HandleFunc("GET /viewer/render/{path...}", s.handleRender)
	mux.HandleFunc("DELETE /viewer/sessions/{user}/{session}", s.handleDelete)
	mux.HandleFunc("GET /viewer/api/search", s.handleSearch)
	mux.HandleFunc("GET /viewer/static/chroma.css", s.handleChromaCSS)
	mux.Handle("GET /viewer/static/", http.StripPrefix("/viewer/static/", http.FileServerFS(static)))
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	})
}

func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	data := pageData{
		Sidebar:    s.sidebar(r.Context(), r.URL.Query().Get("q")),
		Welcome:    viewer.MsgWelcome,
		LoadFailed: viewer.MsgLoadFailed,
		Confirm:    viewer.MsgConfirmDelete,
		DeleteErr:  viewer.MsgDeleteError,
	}
	s.writeTemplate(w, "page", data)
}

func (s *Server) handleSidebar(w http.ResponseWriter, r *http.Request) {
	s.writeTemplate(w, "sidebar", s.sidebar(r.Context(), r.URL.Query().Get("q")))
}

func (s *Server) handleRender(w http.ResponseWriter, r *http.Request) {
	path := r.PathValue("path")
	f, err := s.ctl.Fetch(r.Context(), path)
	if err != nil {
		status := http.StatusBadGateway
		if errors.Is(err, logapi.ErrNotFound) {
			status = http.StatusNotFound
		}
		writeFragment(w, status, loadFailedHTML)
		return
	}

	out, err := s.html.Render(f.Transcript)
	if err != nil {
		s.logger.Printf("render %s: %v", f.Path, err)
		writeFragment(w, http.StatusInternalServerError, loadFailedHTML)
		return
	}
	if terms := highlight.Terms(r.URL.Query().Get("hl")); len(terms) > 0 {
		out = template.HTML(highlight.ApplyHTML(string(out), terms).Text)
	}
	if f.FromCache {
		out = cachedNoteHTML + out
	}
	w.Header().Set(ResolvedPathHeader, escapePath(f.Path))
	writeFragment(w, http.StatusOK, out)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	res, err := s.ctl.DeleteSession(r.Context(), r.PathValue("user"), r.PathValue("session"))
	if err != nil {
		status := http.StatusBadGateway
		var se *logapi.StatusError
		switch {
		case errors.As(err, &se):
			status = se.StatusCode
		case errors.Is(err, viewer.ErrFolderNotFound), errors.Is(err, viewer.ErrSessionNotFound):
			status = http.StatusNotFound
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, viewer.DeleteErrorText(err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"user":    res.UserID,
		"session": res.SessionID,
		"folder":  res.Folder,
		"paths":   res.Paths,
	})
}

type searchHit struct {
	Path     string `json:"path"`
	UserID   string `json:"user_id,omitempty"`
	Folder   string `json:"session,omitempty"`
	Label    string `json:"label"`
	Score    int    `json:"score"`
	Preview  string `json:"preview,omitempty"`
	Messages int    `json:"message_count"`
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	if s.search == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{"error": "search needs the transcript cache"})
		return
	}
	limit := 50
	if n, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && n > 0 {
		limit = n
	}
	hits, err := s.search.Search(r.Context(), r.URL.Query().Get("q"), limit)
	if err != nil {
		s.logger.Printf("search: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": err.Error()})
		return
	}
	out := make([]searchHit, 0, len(hits))
	for _, h := range hits {
		out = append(out, searchHit{
			Path:     h.Path,
			UserID:   h.UserID,
			Folder:   h.Folder,
			Label:    s.ctl.Label(catalog.Entry{Path: h.Path, Filename: h.Filename}),
			Score:    h.Score,
			Preview:  h.Preview,
			Messages: h.MessageCount,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleChromaCSS(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := s.html.WriteCSS(&buf); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/css; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) writeTemplate(w http.ResponseWriter, name string, data any) {
	var buf bytes.Buffer
	if err := pageTmpl.ExecuteTemplate(&buf, name, data); err != nil {
		s.logger.Printf("execute %s template: %v", name, err)
		http.Error(w, "template error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}

const cachedNoteHTML template.HTML = `<div class="cached-note">Backend unavailable; showing the cached copy.</div>`

// escapePath percent-encodes each segment so the header stays ASCII.
func escapePath(p string) string {
	segs := strings.Split(p, "/")
	for i, seg := range segs {
		segs[i] = url.PathEscape(seg)
	}
	return strings.Join(segs, "/")
}

const loadFailedHTML template.HTML = `<div class="welcome-message error">` + viewer.MsgLoadFailed + `</div>`

func writeFragment(w http.ResponseWriter, status int, h template.HTML) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, string(h))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}

func withLogging(logger *log.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &logResponseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(lrw, r)
		logger.Printf("%s %s %d %s", r.Method, r.URL.Path, lrw.status, time.Since(start).Truncate(time.Millisecond))
	})
}

type logResponseWriter struct {
	http.ResponseWriter
	status int
}

func (lrw *logResponseWriter) WriteHeader(code int) {
	lrw.status = code
	lrw.ResponseWriter.WriteHeader(code)
}

func trimQuery(q string) string {
	return strings.TrimSpace(q)
}
