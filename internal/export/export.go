package export

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gateway-trace/internal/render"
	"gateway-trace/internal/transcript"
)

// DefaultDir is used under the working directory when no export directory is
// configured.
const DefaultDir = "gateway-trace-exports"

type Exporter struct {
	overrideDir string
	cwd         string
	now         func() time.Time
}

func New(overrideDir string) (*Exporter, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("resolve cwd: %w", err)
	}
	return &Exporter{overrideDir: strings.TrimSpace(overrideDir), cwd: cwd, now: time.Now}, nil
}

// Export writes the transcript stored at logPath as markdown and returns the
// file it wrote.
func (e *Exporter) Export(logPath string, t *transcript.Transcript) (string, error) {
	path := e.OutputPath(logPath)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("create export directory: %w", err)
	}

	body := render.Markdown(t, render.MarkdownOptions{ShowSystem: true, ShowTools: true})
	md := BuildDocument(logPath, t, body, e.now().UTC())
	if err := os.WriteFile(path, []byte(md), 0o644); err != nil {
		return "", fmt.Errorf("write export file: %w", err)
	}
	return path, nil
}

// BuildDocument prefixes a rendered transcript with a title and the request
// envelope.
func BuildDocument(logPath string, t *transcript.Transcript, body string, now time.Time) string {
	var b strings.Builder
	b.WriteString("# Transcript " + logPath + "\n\n")
	b.WriteString("Exported: " + now.Format(time.RFC3339) + "\n\n")
	b.WriteString("```text\n")
	if t != nil {
		b.WriteString("timestamp: " + safeValue(t.Timestamp) + "\n")
		b.WriteString("request: " + safeValue(strings.TrimSpace(t.Request.Method+" "+t.Request.Path)) + "\n")
		b.WriteString("model: " + safeValue(t.Request.Body.Model) + "\n")
		status := "n/a"
		if t.StatusCode != 0 {
			status = fmt.Sprintf("%d", t.StatusCode)
		}
		b.WriteString("status_code: " + status + "\n")
		b.WriteString(fmt.Sprintf("message_count: %d\n", len(t.Messages())))
	}
	b.WriteString("```\n\n")
	b.WriteString(body)
	if !strings.HasSuffix(body, "\n") {
		b.WriteString("\n")
	}
	return b.String()
}

// OutputPath maps u/s/f.json to <dir>/u_s_f.md.
func (e *Exporter) OutputPath(logPath string) string {
	dir := e.overrideDir
	if dir == "" {
		dir = DefaultDir
	}
	if !filepath.IsAbs(dir) {
		dir = filepath.Join(e.cwd, dir)
	}
	return filepath.Join(dir, FileName(logPath))
}

func FileName(logPath string) string {
	parts := strings.Split(strings.Trim(logPath, "/"), "/")
	for i, p := range parts {
		parts[i] = safeFileName(p)
	}
	return strings.TrimSuffix(strings.Join(parts, "_"), ".json") + ".md"
}

func safeFileName(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "transcript"
	}
	replacer := strings.NewReplacer("\\", "_", ":", "_", " ", "_", "..", "_")
	return replacer.Replace(s)
}

func safeValue(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "n/a"
	}
	return s
}
