package config

import (
	"path/filepath"
	"testing"
	"time"
)

func TestDetectBackendURL(t *testing.T) {
	t.Setenv("GATEWAY_URL", "")

	cases := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"", DefaultBackendURL, false},
		{"http://gw.local:9000/", "http://gw.local:9000", false},
		{"https://gw.example.com/base", "https://gw.example.com/base", false},
		{"ftp://gw.local", "", true},
		{"http://", "", true},
	}
	for _, tc := range cases {
		got, err := DetectBackendURL(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Fatalf("in=%q expected error, got %q", tc.in, got)
			}
			continue
		}
		if err != nil {
			t.Fatalf("in=%q unexpected error: %v", tc.in, err)
		}
		if got != tc.want {
			t.Fatalf("in=%q got=%q want=%q", tc.in, got, tc.want)
		}
	}
}

func TestDetectBackendURLFromEnv(t *testing.T) {
	t.Setenv("GATEWAY_URL", "http://from-env:1234")
	got, err := DetectBackendURL("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "http://from-env:1234" {
		t.Fatalf("expected env url, got %q", got)
	}
}

func TestParse(t *testing.T) {
	t.Setenv("GATEWAY_URL", "")
	dir := t.TempDir()
	db := filepath.Join(dir, "nested", "cache.sqlite")

	cfg, err := Parse("tui", []string{
		"-backend", "http://gw:8000/",
		"-db-path", db,
		"-open", "#u1/s1/20240115_093000.json",
		"-timeout", "3s",
		"-workers", "0",
		"extra",
	})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cfg.BackendURL != "http://gw:8000" {
		t.Fatalf("backend: %q", cfg.BackendURL)
	}
	if cfg.PublicURL != "http://gw:8000" {
		t.Fatalf("public url should default to backend, got %q", cfg.PublicURL)
	}
	if cfg.Open != "u1/s1/20240115_093000.json" {
		t.Fatalf("open should drop leading #, got %q", cfg.Open)
	}
	if cfg.Timeout != 3*time.Second {
		t.Fatalf("timeout: %v", cfg.Timeout)
	}
	if cfg.Workers != 1 {
		t.Fatalf("workers should clamp to 1, got %d", cfg.Workers)
	}
	if cfg.DBPath != db {
		t.Fatalf("db path: %q", cfg.DBPath)
	}
	if len(cfg.Args) != 1 || cfg.Args[0] != "extra" {
		t.Fatalf("args: %#v", cfg.Args)
	}
}

func TestParseNoCacheSkipsDBPath(t *testing.T) {
	t.Setenv("GATEWAY_URL", "")
	cfg, err := Parse("serve", []string{"-no-cache"})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cfg.DBPath != "" {
		t.Fatalf("expected empty db path with -no-cache, got %q", cfg.DBPath)
	}
}
