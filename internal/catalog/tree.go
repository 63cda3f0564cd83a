package catalog

import (
	"sort"
	"strings"
)

// LegacyLabel names the bucket for flat log paths in the navigator.
const LegacyLabel = "legacy"

// Entry is one recorded transcript file as listed by the gateway.
type Entry struct {
	Path      string `json:"path"`
	Filename  string `json:"filename"`
	Timestamp string `json:"timestamp,omitempty"`
}

func (e Entry) segments() []string {
	return strings.Split(e.Path, "/")
}

type Session struct {
	ID      string
	UserID  string
	Entries []Entry
}

// Folder returns the backend folder name of the session, recovered from the
// stored path of a listed file rather than from the display id.
func (s Session) Folder() (string, bool) {
	for _, e := range s.Entries {
		parts := e.segments()
		if len(parts) >= 2 && parts[1] != "" {
			return parts[1], true
		}
	}
	return "", false
}

func (s Session) Contains(path string) bool {
	for _, e := range s.Entries {
		if e.Path == path {
			return true
		}
	}
	return false
}

type User struct {
	ID       string
	Sessions []Session
}

// Tree is the two-level grouping of a log index. It is rebuilt from scratch on
// every refresh.
type Tree struct {
	Users  []User
	Legacy []Entry
}

// Group partitions entries by user id and session id. Paths with fewer than
// two segments land in the legacy bucket. Users and sessions sort newest
// first; entries keep the backend order.
func Group(entries []Entry) Tree {
	byUser := map[string]map[string][]Entry{}
	var legacy []Entry
	for _, e := range entries {
		parts := e.segments()
		if len(parts) < 2 {
			legacy = append(legacy, e)
			continue
		}
		userID, sessionID := parts[0], parts[1]
		sessions, ok := byUser[userID]
		if !ok {
			sessions = map[string][]Entry{}
			byUser[userID] = sessions
		}
		sessions[sessionID] = append(sessions[sessionID], e)
	}

	userIDs := make([]string, 0, len(byUser))
	for id := range byUser {
		userIDs = append(userIDs, id)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(userIDs)))

	t := Tree{Users: make([]User, 0, len(userIDs)), Legacy: legacy}
	for _, userID := range userIDs {
		sessions := byUser[userID]
		sessionIDs := make([]string, 0, len(sessions))
		for id := range sessions {
			sessionIDs = append(sessionIDs, id)
		}
		sort.Sort(sort.Reverse(sort.StringSlice(sessionIDs)))

		u := User{ID: userID, Sessions: make([]Session, 0, len(sessionIDs))}
		for _, sessionID := range sessionIDs {
			u.Sessions = append(u.Sessions, Session{ID: sessionID, UserID: userID, Entries: sessions[sessionID]})
		}
		t.Users = append(t.Users, u)
	}
	return t
}

// Len counts entries across all groups.
func (t Tree) Len() int {
	n := len(t.Legacy)
	for _, u := range t.Users {
		for _, s := range u.Sessions {
			n += len(s.Entries)
		}
	}
	return n
}

func (t Tree) Empty() bool {
	return t.Len() == 0 && len(t.Users) == 0
}

// Entries lists every entry in navigator order.
func (t Tree) Entries() []Entry {
	out := make([]Entry, 0, t.Len())
	for _, u := range t.Users {
		for _, s := range u.Sessions {
			out = append(out, s.Entries...)
		}
	}
	return append(out, t.Legacy...)
}

func (t Tree) Find(path string) (Entry, bool) {
	for _, e := range t.Entries() {
		if e.Path == path {
			return e, true
		}
	}
	return Entry{}, false
}

func (t Tree) Session(userID, sessionID string) (Session, bool) {
	for _, u := range t.Users {
		if u.ID != userID {
			continue
		}
		for _, s := range u.Sessions {
			if s.ID == sessionID {
				return s, true
			}
		}
	}
	return Session{}, false
}

// RemoveSession drops exactly one session subtree. The user group stays even
// when it becomes empty.
func (t *Tree) RemoveSession(userID, sessionID string) (Session, bool) {
	for ui := range t.Users {
		u := &t.Users[ui]
		if u.ID != userID {
			continue
		}
		for si, s := range u.Sessions {
			if s.ID != sessionID {
				continue
			}
			u.Sessions = append(u.Sessions[:si:si], u.Sessions[si+1:]...)
			return s, true
		}
	}
	return Session{}, false
}

// Clone returns a copy that shares no slices with t.
func (t Tree) Clone() Tree {
	out := Tree{Users: make([]User, len(t.Users))}
	if t.Legacy != nil {
		out.Legacy = append([]Entry(nil), t.Legacy...)
	}
	for i, u := range t.Users {
		cu := User{ID: u.ID, Sessions: make([]Session, len(u.Sessions))}
		for j, s := range u.Sessions {
			cu.Sessions[j] = Session{ID: s.ID, UserID: s.UserID, Entries: append([]Entry(nil), s.Entries...)}
		}
		out.Users[i] = cu
	}
	return out
}
