package ui

import (
	"strconv"
	"strings"
	"unicode/utf8"
)

const maxDisplayChars = 1_000_000

func sanitizeMarkdownForDisplay(md string) string {
	md = stripEmbeddedImageData(md)
	md = clampLongLines(md, 8000)
	if len(md) <= maxDisplayChars {
		return md
	}
	trimmed := md[:runeFloor(md, maxDisplayChars)]
	trimmed = strings.TrimRight(trimmed, "\n")
	return trimmed + "\n\n... [transcript truncated for display; use export for full content] ...\n"
}

// stripEmbeddedImageData replaces inline data URIs that slipped into text
// content with a size note.
func stripEmbeddedImageData(s string) string {
	var b strings.Builder
	pos := 0
	for {
		i := strings.Index(s[pos:], "data:image/")
		if i < 0 {
			b.WriteString(s[pos:])
			break
		}
		start := pos + i
		b.WriteString(s[pos:start])

		rest := s[start:]
		marker := strings.Index(rest, ";base64,")
		if marker < 0 {
			b.WriteString("data:image/")
			pos = start + len("data:image/")
			continue
		}

		payloadStart := start + marker + len(";base64,")
		j := payloadStart
		for j < len(s) && isBase64Byte(s[j]) {
			j++
		}

		b.WriteString("[embedded image data omitted: ")
		b.WriteString(strconv.Itoa(j - payloadStart))
		b.WriteString(" base64 chars]")
		pos = j
	}
	return b.String()
}

func isBase64Byte(c byte) bool {
	switch {
	case c >= 'A' && c <= 'Z', c >= 'a' && c <= 'z', c >= '0' && c <= '9':
		return true
	case c == '+' || c == '/' || c == '=' || c == '\n' || c == '\r':
		return true
	default:
		return false
	}
}

func clampLongLines(s string, max int) string {
	if max <= 0 || len(s) == 0 {
		return s
	}
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		if len(line) <= max {
			continue
		}
		head := line[:runeFloor(line, max/2)]
		tail := line[runeCeil(line, len(line)-max/2):]
		cut := len(line) - len(head) - len(tail)
		lines[i] = head + "... [line truncated " + strconv.Itoa(cut) + " chars] ..." + tail
	}
	return strings.Join(lines, "\n")
}

// runeFloor backs i off to the start of the rune it falls in.
func runeFloor(s string, i int) int {
	if i >= len(s) {
		return len(s)
	}
	for i > 0 && !utf8.RuneStart(s[i]) {
		i--
	}
	return i
}

// runeCeil moves i forward to the next rune start.
func runeCeil(s string, i int) int {
	if i <= 0 {
		return 0
	}
	for i < len(s) && !utf8.RuneStart(s[i]) {
		i++
	}
	return i
}

func shorten(s string, n int) string {
	s = strings.TrimSpace(s)
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 3 {
		return string(r[:n])
	}
	return string(r[:n-3]) + "..."
}
