package config

import (
	"flag"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	DefaultGlamourStyle = "dark"
	DefaultBackendURL   = "http://localhost:8000"
	DefaultListen       = "127.0.0.1:7078"
	// DefaultTimeLayout matches the ja-JP date rendering the gateway UI uses.
	DefaultTimeLayout = "2006/1/2 15:04:05"
)

type AppConfig struct {
	BackendURL string
	PublicURL  string
	Listen     string
	DBPath     string
	NoCache    bool
	Reindex    bool
	ExportDir  string
	Open       string
	TimeLayout string
	Style      string
	Timeout    time.Duration
	Workers    int
	Args       []string
}

// Parse reads flags for the named subcommand from args.
func Parse(name string, args []string) (AppConfig, error) {
	var cfg AppConfig

	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.StringVar(&cfg.BackendURL, "backend", "", "gateway base URL (default $GATEWAY_URL or "+DefaultBackendURL+")")
	fs.StringVar(&cfg.PublicURL, "public-url", "", "base URL used for copied deep links (default: backend URL)")
	fs.StringVar(&cfg.Listen, "listen", DefaultListen, "address for the browser viewer")
	fs.StringVar(&cfg.DBPath, "db-path", "", "path to SQLite transcript cache")
	fs.BoolVar(&cfg.NoCache, "no-cache", false, "disable the transcript cache")
	fs.BoolVar(&cfg.Reindex, "reindex", false, "drop the transcript cache before starting")
	fs.StringVar(&cfg.ExportDir, "export-dir", "", "directory for markdown exports")
	fs.StringVar(&cfg.Open, "open", "", "log path to open on start")
	fs.StringVar(&cfg.TimeLayout, "time-format", DefaultTimeLayout, "Go time layout for log labels")
	fs.StringVar(&cfg.Style, "style", DefaultGlamourStyle, "glamour style for the terminal viewer")
	fs.DurationVar(&cfg.Timeout, "timeout", 15*time.Second, "HTTP timeout for backend requests")
	fs.IntVar(&cfg.Workers, "workers", 4, "concurrent fetches for sync")
	if err := fs.Parse(args); err != nil {
		return cfg, err
	}
	cfg.Args = fs.Args()

	var err error
	cfg.BackendURL, err = DetectBackendURL(cfg.BackendURL)
	if err != nil {
		return cfg, err
	}
	if cfg.PublicURL == "" {
		cfg.PublicURL = cfg.BackendURL
	}
	cfg.PublicURL = strings.TrimRight(cfg.PublicURL, "/")
	cfg.Open = strings.TrimPrefix(strings.TrimSpace(cfg.Open), "#")

	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.TimeLayout == "" {
		cfg.TimeLayout = DefaultTimeLayout
	}

	if cfg.ExportDir == "" {
		cfg.ExportDir = os.Getenv("GATEWAY_TRACE_EXPORT_DIR")
	}

	if cfg.NoCache {
		return cfg, nil
	}
	cfg.DBPath, err = DetectDBPath(cfg.DBPath)
	if err != nil {
		return cfg, err
	}
	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755); err != nil {
		return cfg, fmt.Errorf("create db dir: %w", err)
	}
	return cfg, nil
}

func DetectBackendURL(explicit string) (string, error) {
	raw := explicit
	if raw == "" {
		raw = os.Getenv("GATEWAY_URL")
	}
	if raw == "" {
		raw = DefaultBackendURL
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("parse backend url %q: %w", raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("backend url %q: scheme must be http or https", raw)
	}
	if u.Host == "" {
		return "", fmt.Errorf("backend url %q: missing host", raw)
	}
	return strings.TrimRight(u.String(), "/"), nil
}

func DetectDBPath(explicit string) (string, error) {
	if explicit != "" {
		return filepath.Clean(explicit), nil
	}
	if fromEnv := os.Getenv("GATEWAY_TRACE_DB"); fromEnv != "" {
		return filepath.Clean(fromEnv), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, ".local", "share", "gateway-trace", "cache.sqlite"), nil
}
