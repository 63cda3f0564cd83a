package ui

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/x/ansi"

	"gateway-trace/internal/catalog"
)

type rowKind int

const (
	rowUser rowKind = iota
	rowSession
	rowFile
)

// navRow is one line of the flattened user/session/file navigator.
type navRow struct {
	kind      rowKind
	userID    string
	sessionID string
	legacy    bool
	entry     catalog.Entry
	label     string
	depth     int
	collapsed bool
	count     int
	active    bool
}

func (r navRow) FilterValue() string { return r.label }

func (r navRow) key() string {
	switch r.kind {
	case rowUser:
		if r.legacy {
			return legacyKey
		}
		return userKey(r.userID)
	case rowSession:
		return sessionKey(r.userID, r.sessionID)
	}
	return "f:" + r.entry.Path
}

const legacyKey = "legacy"

func userKey(id string) string { return "u:" + id }
func sessionKey(user, sess string) string { return "s:" + user + "/" + sess }
func fileKey(path string) string { return "f:" + path }

// sessionKeyOf returns the session group holding path, if it has one.
func sessionKeyOf(path string) (string, bool) {
	parts := strings.Split(path, "/")
	if len(parts) < 2 {
		return "", false
	}
	return sessionKey(parts[0], parts[1]), true
}

// buildRows flattens a tree, skipping children of collapsed groups. Users are
// open and sessions closed unless collapsed says otherwise; openSessions flips
// the session default.
func buildRows(t catalog.Tree, collapsed map[string]bool, openSessions bool, label func(catalog.Entry) string, active string) []navRow {
	var rows []navRow
	file := func(e catalog.Entry, depth int) navRow {
		return navRow{kind: rowFile, entry: e, label: label(e), depth: depth, active: e.Path == active}
	}
	for _, u := range t.Users {
		n := 0
		for _, s := range u.Sessions {
			n += len(s.Entries)
		}
		uc := collapsed[userKey(u.ID)]
		rows = append(rows, navRow{kind: rowUser, userID: u.ID, label: u.ID, collapsed: uc, count: n})
		if uc {
			continue
		}
		for _, s := range u.Sessions {
			sc, set := collapsed[sessionKey(u.ID, s.ID)]
			if !set {
				sc = !openSessions
			}
			rows = append(rows, navRow{
				kind: rowSession, userID: u.ID, sessionID: s.ID,
				label: "Session: " + s.ID, depth: 1, collapsed: sc, count: len(s.Entries),
			})
			if sc {
				continue
			}
			for _, e := range s.Entries {
				r := file(e, 2)
				r.userID, r.sessionID = u.ID, s.ID
				rows = append(rows, r)
			}
		}
	}
	if len(t.Legacy) > 0 {
		lc := collapsed[legacyKey]
		rows = append(rows, navRow{kind: rowUser, legacy: true, label: catalog.LegacyLabel, collapsed: lc, count: len(t.Legacy)})
		if !lc {
			for _, e := range t.Legacy {
				rows = append(rows, file(e, 1))
			}
		}
	}
	return rows
}

func rowItems(rows []navRow) []list.Item {
	items := make([]list.Item, len(rows))
	for i, r := range rows {
		items[i] = r
	}
	return items
}

type rowDelegate struct{}

func (rowDelegate) Height() int { return 1 }
func (rowDelegate) Spacing() int { return 0 }
func (rowDelegate) Update(_ tea.Msg, _ *list.Model) tea.Cmd { return nil }

func (rowDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	r, ok := item.(navRow)
	if !ok {
		return
	}
	var line string
	switch r.kind {
	case rowUser, rowSession:
		arrow := "▼"
		if r.collapsed {
			arrow = "▶"
		}
		line = fmt.Sprintf("%s%s %s (%d)", strings.Repeat("  ", r.depth), arrow, r.label, r.count)
	default:
		line = strings.Repeat("  ", r.depth) + r.label
	}

	width := m.Width()
	if width > 2 {
		line = ansi.Truncate(line, width-2, "…")
	}

	style := rowStyle
	switch {
	case index == m.Index():
		style = selectedRowStyle
	case r.active:
		style = activeRowStyle
	case r.kind == rowUser:
		style = userRowStyle
	case r.kind == rowSession:
		style = sessionRowStyle
	}
	prefix := "  "
	if r.active {
		prefix = "● "
	}
	fmt.Fprint(w, style.Render(prefix+line))
}

// restrictToPaths keeps only entries whose path is in keep.
func restrictToPaths(t catalog.Tree, keep map[string]int) catalog.Tree {
	var out catalog.Tree
	for _, u := range t.Users {
		nu := catalog.User{ID: u.ID}
		for _, s := range u.Sessions {
			ns := catalog.Session{ID: s.ID, UserID: s.UserID}
			for _, e := range s.Entries {
				if _, ok := keep[e.Path]; ok {
					ns.Entries = append(ns.Entries, e)
				}
			}
			if len(ns.Entries) > 0 {
				nu.Sessions = append(nu.Sessions, ns)
			}
		}
		if len(nu.Sessions) > 0 {
			out.Users = append(out.Users, nu)
		}
	}
	for _, e := range t.Legacy {
		if _, ok := keep[e.Path]; ok {
			out.Legacy = append(out.Legacy, e)
		}
	}
	return out
}
