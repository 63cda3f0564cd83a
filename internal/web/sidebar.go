package web

import (
	"context"

	"gateway-trace/internal/catalog"
	"gateway-trace/internal/viewer"
)

type sidebarFile struct {
	Path  string
	Label string
}

type sidebarSession struct {
	UserID string
	ID     string
	Files  []sidebarFile
}

type sidebarUser struct {
	ID       string
	Sessions []sidebarSession
}

type sidebarData struct {
	Failed      bool
	FailedText  string
	Query       string
	Users       []sidebarUser
	Legacy      []sidebarFile
	LegacyLabel string
	Empty       bool

	// OpenSessions shows every file list; set while filtering so matches
	// are visible.
	OpenSessions bool
}

type pageData struct {
	Sidebar    sidebarData
	Welcome    string
	LoadFailed string
	Confirm    string
	DeleteErr  string
}

// sidebar reloads the index and lays it out for the navigator template.
func (s *Server) sidebar(ctx context.Context, query string) sidebarData {
	data := sidebarData{Query: trimQuery(query), LegacyLabel: catalog.LegacyLabel, FailedText: viewer.MsgIndexFailed}

	tree, err := s.ctl.Refresh(ctx)
	if err != nil {
		data.Failed = true
		return data
	}
	if data.Query != "" {
		tree = catalog.Filter(tree, data.Query, s.ctl.Label)
		data.OpenSessions = true
	}

	files := func(entries []catalog.Entry) []sidebarFile {
		out := make([]sidebarFile, 0, len(entries))
		for _, e := range entries {
			out = append(out, sidebarFile{Path: e.Path, Label: s.ctl.Label(e)})
		}
		return out
	}
	for _, u := range tree.Users {
		su := sidebarUser{ID: u.ID}
		for _, sess := range u.Sessions {
			su.Sessions = append(su.Sessions, sidebarSession{UserID: u.ID, ID: sess.ID, Files: files(sess.Entries)})
		}
		data.Users = append(data.Users, su)
	}
	data.Legacy = files(tree.Legacy)
	data.Empty = tree.Empty()
	return data
}
