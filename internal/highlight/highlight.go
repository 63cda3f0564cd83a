package highlight

import (
	"regexp"
	"sort"
	"strings"
)

var (
	ansiCSI = regexp.MustCompile(`\x1b\[[0-?]*[ -/]*[@-~]`)
	// Tags and character references are copied through untouched.
	htmlMarkup = regexp.MustCompile(`<[^>]*>|&[a-zA-Z0-9#]+;`)
)

type Result struct {
	Text      string
	Count     int
	LineIndex []int
}

// Terms splits a search query into the words to highlight, longest first so
// that overlapping terms prefer the longer match.
func Terms(query string) []string {
	seen := map[string]bool{}
	var out []string
	for _, f := range strings.Fields(strings.ToLower(query)) {
		f = strings.Trim(f, "`\"'.,:;!?()[]{}<>|")
		if f == "" || seen[f] {
			continue
		}
		seen[f] = true
		out = append(out, f)
	}
	sort.SliceStable(out, func(i, j int) bool { return len(out[i]) > len(out[j]) })
	return out
}

// ApplyANSI wraps every case-insensitive occurrence of terms in rendered
// terminal text. Escape sequences are never split.
func ApplyANSI(input string, terms []string, wrap func(string) string) Result {
	return apply(input, terms, ansiCSI, wrap)
}

// ApplyHTML marks occurrences of terms in the text nodes of an HTML fragment.
func ApplyHTML(input string, terms []string) Result {
	return apply(input, terms, htmlMarkup, func(s string) string {
		return `<mark class="search-hit">` + s + `</mark>`
	})
}

func apply(input string, terms []string, skip *regexp.Regexp, wrap func(string) string) Result {
	terms = nonEmpty(terms)
	if len(terms) == 0 {
		return Result{Text: input}
	}
	if wrap == nil {
		wrap = func(s string) string { return s }
	}

	lines := strings.SplitAfter(input, "\n")
	if len(lines) == 0 {
		lines = []string{input}
	}

	var out strings.Builder
	lineMatches := make([]int, 0, 64)
	total := 0

	for lineNo, line := range lines {
		core, hasNewline := strings.CutSuffix(line, "\n")

		rendered, count := applySkipping(core, terms, skip, wrap)
		out.WriteString(rendered)
		if hasNewline {
			out.WriteByte('\n')
		}
		if count > 0 {
			lineMatches = append(lineMatches, lineNo)
			total += count
		}
	}

	return Result{
		Text:      out.String(),
		Count:     total,
		LineIndex: lineMatches,
	}
}

func nonEmpty(terms []string) []string {
	out := make([]string, 0, len(terms))
	for _, t := range terms {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, strings.ToLower(t))
		}
	}
	return out
}

func applySkipping(s string, terms []string, skip *regexp.Regexp, wrap func(string) string) (string, int) {
	indices := skip.FindAllStringIndex(s, -1)
	if len(indices) == 0 {
		return applyToPlain(s, terms, wrap)
	}

	var out strings.Builder
	total := 0
	pos := 0
	for _, idx := range indices {
		if idx[0] > pos {
			plain, count := applyToPlain(s[pos:idx[0]], terms, wrap)
			out.WriteString(plain)
			total += count
		}
		out.WriteString(s[idx[0]:idx[1]])
		pos = idx[1]
	}
	if pos < len(s) {
		plain, count := applyToPlain(s[pos:], terms, wrap)
		out.WriteString(plain)
		total += count
	}
	return out.String(), total
}

func applyToPlain(s string, terms []string, wrap func(string) string) (string, int) {
	if s == "" {
		return s, 0
	}

	lower := strings.ToLower(s)
	if len(lower) != len(s) {
		// Case folding changed byte offsets; match exact case only.
		lower = s
	}

	var out strings.Builder
	count := 0
	start := 0
	for start < len(s) {
		idx, n := nextMatch(lower, start, terms)
		if idx < 0 {
			break
		}
		out.WriteString(s[start:idx])
		out.WriteString(wrap(s[idx : idx+n]))
		count++
		start = idx + n
	}
	if count == 0 {
		return s, 0
	}
	out.WriteString(s[start:])
	return out.String(), count
}

// nextMatch finds the earliest term occurrence at or after start. Terms are
// ordered longest first, so ties go to the longer term.
func nextMatch(lower string, start int, terms []string) (int, int) {
	best, bestLen := -1, 0
	for _, t := range terms {
		rel := strings.Index(lower[start:], t)
		if rel < 0 {
			continue
		}
		idx := start + rel
		if best < 0 || idx < best {
			best, bestLen = idx, len(t)
		}
	}
	return best, bestLen
}
