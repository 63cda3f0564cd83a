package catalog

import (
	"strings"

	"github.com/sahilm/fuzzy"
)

// Filter keeps entries whose user, session, label or filename fuzzy-match
// query. Groups left without entries are dropped.
func Filter(t Tree, query string, label func(Entry) string) Tree {
	query = strings.TrimSpace(query)
	if query == "" {
		return t
	}
	if label == nil {
		label = func(e Entry) string { return e.Filename }
	}

	entries := t.Entries()
	haystack := make([]string, len(entries))
	for i, e := range entries {
		haystack[i] = strings.ToLower(strings.Join([]string{e.Path, label(e)}, " "))
	}
	keep := make(map[string]struct{}, len(entries))
	for _, m := range fuzzy.Find(strings.ToLower(query), haystack) {
		keep[entries[m.Index].Path] = struct{}{}
	}

	out := Tree{}
	for _, u := range t.Users {
		fu := User{ID: u.ID}
		for _, s := range u.Sessions {
			fs := Session{ID: s.ID, UserID: s.UserID}
			for _, e := range s.Entries {
				if _, ok := keep[e.Path]; ok {
					fs.Entries = append(fs.Entries, e)
				}
			}
			if len(fs.Entries) > 0 {
				fu.Sessions = append(fu.Sessions, fs)
			}
		}
		if len(fu.Sessions) > 0 {
			out.Users = append(out.Users, fu)
		}
	}
	for _, e := range t.Legacy {
		if _, ok := keep[e.Path]; ok {
			out.Legacy = append(out.Legacy, e)
		}
	}
	return out
}
