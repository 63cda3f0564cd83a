package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gateway-trace/internal/catalog"
	"gateway-trace/internal/clipboard"
	"gateway-trace/internal/config"
	"gateway-trace/internal/export"
	"gateway-trace/internal/highlight"
	"gateway-trace/internal/render"
	"gateway-trace/internal/store"
	"gateway-trace/internal/transcript"
	"gateway-trace/internal/viewer"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
)

const searchLimit = 500

// Searcher runs full-text queries over cached transcripts.
type Searcher interface {
	Search(ctx context.Context, query string, limit int) ([]store.Hit, error)
}

type inputMode int

const (
	inputNone inputMode = iota
	inputSearch
	inputFilter
)

type pendingDelete struct {
	userID    string
	sessionID string
}

type Model struct {
	cfg      config.AppConfig
	ctl      *viewer.Controller
	searcher Searcher
	exporter *export.Exporter
	copier   *clipboard.Copier

	list     list.Model
	viewport viewport.Model
	help     help.Model
	spinner  spinner.Model
	input    textinput.Model
	keys     keyMap

	width  int
	height int

	loading     bool
	indexFailed bool
	mode        inputMode
	searchQuery string
	filterQuery string
	hits        map[string]int
	focusOnList bool
	showSystem  bool
	showTools   bool
	rendering   bool
	fetchNonce  int
	renderNonce int

	tree      catalog.Tree
	collapsed map[string]bool
	cursorKey string
	active    string
	current   *transcript.Transcript
	confirm   *pendingDelete

	rendered    map[string]string
	highlighted map[string]highlight.Result
	matchLines  []int
	matchCount  int
	matchIndex  int

	status string
	err    error
}

type treeMsg struct {
	tree catalog.Tree
	err  error
}
type transcriptMsg struct {
	requested  string
	path       string
	redirected bool
	fromCache  bool
	transcript *transcript.Transcript
	nonce      int
	err        error
}
type renderMsg struct {
	path     string
	cacheKey string
	rendered string
	gotoTop  bool
	nonce    int
}
type deleteMsg struct {
	res viewer.DeleteResult
	err error
}
type searchMsg struct {
	query string
	hits  []store.Hit
	err   error
}
type exportMsg struct {
	path string
	err  error
}
type copyMsg struct {
	link string
	err  error
}

// NewModel builds the terminal viewer. searcher and exp may be nil, which
// disables cache search and markdown export.
func NewModel(cfg config.AppConfig, ctl *viewer.Controller, searcher Searcher, exp *export.Exporter) Model {
	l := list.New([]list.Item{}, rowDelegate{}, 40, 20)
	l.Title = "Logs"
	l.SetShowFilter(false)
	l.SetFilteringEnabled(false)
	l.SetShowStatusBar(false)
	l.SetShowHelp(false)
	l.DisableQuitKeybindings()

	vp := viewport.New(60, 20)
	vp.SetContent(viewer.MsgWelcome)

	h := help.New()
	h.ShowAll = false

	sp := spinner.New()
	sp.Spinner = spinner.Points

	ti := textinput.New()
	ti.CharLimit = 256

	m := Model{
		cfg:      cfg,
		ctl:      ctl,
		searcher: searcher,
		exporter: exp,
		copier:   clipboard.NewCopier(),
		list:     l,
		viewport: vp,
		help:     h,
		spinner:  sp,
		input:    ti,
		keys:     defaultKeys(),

		loading:     true,
		focusOnList: true,
		collapsed:   make(map[string]bool),
		rendered:    make(map[string]string),
		highlighted: make(map[string]highlight.Result),
		matchIndex:  -1,
	}
	if cfg.Open != "" {
		m.active = cfg.Open
		m.cursorKey = fileKey(cfg.Open)
		m.fetchNonce = 1
		m.viewport.SetContent("Loading log...")
	}
	return m
}

func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.spinner.Tick, m.refreshCmd()}
	if m.active != "" {
		cmds = append(cmds, m.openCmd(m.active, m.fetchNonce))
	}
	return tea.Batch(cmds...)
}

func (m Model) refreshCmd() tea.Cmd {
	ctl := m.ctl
	return func() tea.Msg {
		t, err := ctl.Refresh(context.Background())
		return treeMsg{tree: t, err: err}
	}
}

func (m Model) openCmd(path string, nonce int) tea.Cmd {
	ctl := m.ctl
	return func() tea.Msg {
		f, err := ctl.Open(context.Background(), path)
		if err != nil {
			return transcriptMsg{requested: path, nonce: nonce, err: err}
		}
		return transcriptMsg{
			requested:  f.RequestedPath,
			path:       f.Path,
			redirected: f.Redirected(),
			fromCache:  f.FromCache,
			transcript: f.Transcript,
			nonce:      nonce,
		}
	}
}

func (m Model) deleteCmd(p pendingDelete) tea.Cmd {
	ctl := m.ctl
	return func() tea.Msg {
		res, err := ctl.DeleteSession(context.Background(), p.userID, p.sessionID)
		return deleteMsg{res: res, err: err}
	}
}

func (m Model) searchCmd(query string) tea.Cmd {
	s := m.searcher
	return func() tea.Msg {
		hits, err := s.Search(context.Background(), query, searchLimit)
		return searchMsg{query: query, hits: hits, err: err}
	}
}

func (m Model) exportCmd() tea.Cmd {
	if m.exporter == nil || m.current == nil {
		return nil
	}
	exp, path, t := m.exporter, m.active, m.current
	return func() tea.Msg {
		out, err := exp.Export(path, t)
		return exportMsg{path: out, err: err}
	}
}

func (m Model) copyCmd() tea.Cmd {
	if m.active == "" {
		return nil
	}
	copier, base, path := m.copier, m.cfg.PublicURL, m.active
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		link, err := copier.CopyLink(ctx, base, path)
		return copyMsg{link: link, err: err}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.resize()
		cmds = append(cmds, m.renderActive(true, false))

	case treeMsg:
		m.loading = false
		if msg.err != nil {
			m.indexFailed = true
			m.tree = catalog.Tree{}
			m.status = viewer.MsgIndexFailed
		} else {
			m.indexFailed = false
			m.tree = msg.tree
			m.status = fmt.Sprintf("%d logs", msg.tree.Len())
		}
		m.rebuildRows()

	case transcriptMsg:
		if msg.nonce != m.fetchNonce {
			break
		}
		if msg.err != nil {
			m.current = nil
			m.clearMatches()
			m.viewport.SetContent(errorTextStyle.Render(viewer.MsgLoadFailed))
			m.status = viewer.MsgLoadFailed
			break
		}
		m.current = msg.transcript
		if msg.redirected {
			m.active = msg.path
			m.cursorKey = fileKey(msg.path)
			m.reveal(msg.path)
			m.status = "Resolved " + msg.requested + " to " + msg.path
		}
		if msg.fromCache {
			m.status = "Backend unavailable, showing " + msg.path + " (cached copy)"
		}
		m.rebuildRows()
		cmds = append(cmds, m.renderActive(true, true))

	case renderMsg:
		if msg.nonce != m.renderNonce {
			break
		}
		m.rendering = false
		m.rendered[msg.cacheKey] = msg.rendered
		if m.active == msg.path {
			m.setViewportFromRendered(msg.cacheKey, msg.rendered, msg.gotoTop)
		}

	case deleteMsg:
		if msg.err != nil {
			m.status = viewer.DeleteErrorText(msg.err)
			break
		}
		m.tree = m.ctl.Tree()
		if msg.res.ResetPane {
			m.active = ""
			m.current = nil
			m.clearMatches()
			m.viewport.SetContent(viewer.MsgWelcome)
		}
		m.cursorKey = userKey(msg.res.UserID)
		m.status = "Deleted session " + msg.res.SessionID
		m.rebuildRows()

	case searchMsg:
		if msg.query != m.searchQuery {
			break
		}
		if msg.err != nil {
			m.err = msg.err
			m.status = "Search failed"
			break
		}
		m.hits = make(map[string]int, len(msg.hits))
		for _, h := range msg.hits {
			m.hits[h.Path] = h.Score
		}
		m.status = fmt.Sprintf("%d cached logs match", len(msg.hits))
		m.rebuildRows()
		m.refreshViewportFromCache()

	case exportMsg:
		if msg.err != nil {
			m.err = msg.err
			m.status = "Export failed: " + msg.err.Error()
		} else {
			m.status = "Exported: " + msg.path
		}

	case copyMsg:
		switch {
		case errors.Is(msg.err, clipboard.ErrToolNotFound):
			m.status = "Could not copy: clipboard tool not found. Link: " + msg.link
		case msg.err != nil:
			m.status = "Could not copy: " + msg.err.Error()
		default:
			m.status = "Copied " + msg.link
		}

	case tea.KeyMsg:
		if m.confirm != nil {
			p := *m.confirm
			m.confirm = nil
			if msg.String() == "y" || msg.String() == "Y" {
				m.status = "Deleting session " + p.sessionID + "..."
				return m, m.deleteCmd(p)
			}
			m.status = "Delete cancelled"
			return m, nil
		}
		if m.mode != inputNone {
			return m.updateInput(msg)
		}

		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.Search):
			m.beginInput(inputSearch, m.searchQuery)
			return m, nil
		case key.Matches(msg, m.keys.Filter):
			m.beginInput(inputFilter, m.filterQuery)
			return m, nil
		case key.Matches(msg, m.keys.Esc):
			cmd := m.clearQueries()
			return m, cmd
		case key.Matches(msg, m.keys.Tab):
			m.focusOnList = !m.focusOnList
			return m, nil
		case key.Matches(msg, m.keys.FocusLeft):
			m.focusOnList = true
			return m, nil
		case key.Matches(msg, m.keys.FocusRight):
			m.focusOnList = false
			return m, nil
		case key.Matches(msg, m.keys.PageUp):
			m.viewport.HalfViewUp()
			return m, nil
		case key.Matches(msg, m.keys.PageDown):
			m.viewport.HalfViewDown()
			return m, nil
		case key.Matches(msg, m.keys.PrevMatch):
			m.jumpToMatch(-1)
			return m, nil
		case key.Matches(msg, m.keys.NextMatch):
			m.jumpToMatch(1)
			return m, nil
		case key.Matches(msg, m.keys.Refresh):
			m.loading = true
			m.status = "Refreshing..."
			return m, tea.Batch(m.spinner.Tick, m.refreshCmd())
		case key.Matches(msg, m.keys.Delete):
			m.requestDelete()
			return m, nil
		case key.Matches(msg, m.keys.ToggleSystem):
			m.showSystem = !m.showSystem
			cmd := m.renderActive(true, false)
			return m, cmd
		case key.Matches(msg, m.keys.ToggleTools):
			m.showTools = !m.showTools
			cmd := m.renderActive(true, false)
			return m, cmd
		case key.Matches(msg, m.keys.Export):
			if m.exporter == nil {
				m.status = "Export unavailable"
				return m, nil
			}
			return m, m.exportCmd()
		case key.Matches(msg, m.keys.Copy):
			return m, m.copyCmd()
		case key.Matches(msg, m.keys.Toggle) && m.focusOnList:
			cmd := m.activateSelected()
			return m, cmd
		}

		if m.focusOnList {
			var cmd tea.Cmd
			m.list, cmd = m.list.Update(msg)
			cmds = append(cmds, cmd)
			if r, ok := m.selectedRow(); ok {
				m.cursorKey = r.key()
			}
		} else {
			switch msg.String() {
			case "up", "k":
				m.viewport.LineUp(1)
			case "down", "j":
				m.viewport.LineDown(1)
			}
		}
	}

	if m.loading {
		var spin tea.Cmd
		m.spinner, spin = m.spinner.Update(msg)
		cmds = append(cmds, spin)
	}

	return m, tea.Batch(cmds...)
}

func (m *Model) beginInput(mode inputMode, value string) {
	m.mode = mode
	switch mode {
	case inputSearch:
		m.input.Prompt = "/ "
		m.input.Placeholder = "Search cached transcripts..."
	case inputFilter:
		m.input.Prompt = "filter: "
		m.input.Placeholder = "user, session, time..."
	}
	m.input.SetValue(value)
	m.input.CursorEnd()
	m.input.Focus()
}

func (m Model) updateInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		mode := m.mode
		m.mode = inputNone
		m.input.SetValue("")
		m.input.Blur()
		if mode == inputFilter {
			m.filterQuery = ""
			m.rebuildRows()
			return m, nil
		}
		cmd := m.setSearchQuery("")
		return m, cmd
	case "enter":
		m.mode = inputNone
		m.input.Blur()
		return m, nil
	}

	before := strings.TrimSpace(m.input.Value())
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	after := strings.TrimSpace(m.input.Value())
	if after == before {
		return m, cmd
	}

	switch m.mode {
	case inputFilter:
		m.filterQuery = after
		m.rebuildRows()
		return m, cmd
	default:
		search := m.setSearchQuery(after)
		return m, tea.Batch(cmd, search)
	}
}

func (m *Model) setSearchQuery(q string) tea.Cmd {
	m.searchQuery = q
	if q == "" {
		m.hits = nil
		m.rebuildRows()
		m.refreshViewportFromCache()
		return nil
	}
	m.refreshViewportFromCache()
	if m.searcher == nil {
		m.status = "Search needs the transcript cache"
		return nil
	}
	return m.searchCmd(q)
}

func (m *Model) clearQueries() tea.Cmd {
	m.filterQuery = ""
	return m.setSearchQuery("")
}

// activateSelected expands or collapses a group row, or opens a file row.
func (m *Model) activateSelected() tea.Cmd {
	r, ok := m.selectedRow()
	if !ok {
		return nil
	}
	if r.kind != rowFile {
		k := r.key()
		m.collapsed[k] = !r.collapsed
		m.cursorKey = k
		m.rebuildRows()
		return nil
	}
	return m.openPath(r.entry.Path)
}

// openPath starts loading path. A later call supersedes any load still in
// flight.
func (m *Model) openPath(path string) tea.Cmd {
	m.fetchNonce++
	m.active = path
	m.current = nil
	m.cursorKey = fileKey(path)
	m.reveal(path)
	m.clearMatches()
	m.viewport.SetContent("Loading log...")
	m.rebuildRows()
	return m.openCmd(path, m.fetchNonce)
}

// reveal opens the session group holding path.
func (m *Model) reveal(path string) {
	if k, ok := sessionKeyOf(path); ok {
		m.collapsed[k] = false
	}
}

func (m *Model) requestDelete() {
	r, ok := m.selectedRow()
	switch {
	case !ok:
		return
	case r.kind == rowUser:
		m.status = "Select a session to delete"
		return
	case r.kind == rowFile && r.sessionID == "":
		m.status = "Legacy logs belong to no session"
		return
	}
	m.confirm = &pendingDelete{userID: r.userID, sessionID: r.sessionID}
}

func (m Model) selectedRow() (navRow, bool) {
	r, ok := m.list.SelectedItem().(navRow)
	return r, ok
}

func (m Model) visibleTree() catalog.Tree {
	t := m.tree
	if m.hits != nil {
		t = restrictToPaths(t, m.hits)
	}
	return catalog.Filter(t, m.filterQuery, m.ctl.Label)
}

func (m *Model) rebuildRows() {
	rows := buildRows(m.visibleTree(), m.collapsed, m.hits != nil || m.filterQuery != "", m.ctl.Label, m.active)
	m.list.SetItems(rowItems(rows))
	if len(rows) == 0 {
		return
	}
	idx := 0
	for i, r := range rows {
		if r.key() == m.cursorKey {
			idx = i
			break
		}
	}
	m.list.Select(idx)
	m.cursorKey = rows[idx].key()
}

func (m *Model) renderActive(force, gotoTop bool) tea.Cmd {
	if m.current == nil {
		return nil
	}
	cacheKey := m.renderCacheKey()
	if !force {
		if rendered, ok := m.rendered[cacheKey]; ok {
			m.setViewportFromRendered(cacheKey, rendered, false)
			return nil
		}
	}
	m.rendering = true
	m.renderNonce++
	wrap := m.viewport.Width - 2
	if wrap < 20 {
		wrap = 20
	}
	opts := render.MarkdownOptions{ShowSystem: m.showSystem, ShowTools: m.showTools}
	return renderTranscriptCmd(m.active, cacheKey, m.current, opts, m.cfg.Style, wrap, gotoTop, m.renderNonce)
}

func renderTranscriptCmd(
	path, cacheKey string,
	t *transcript.Transcript,
	opts render.MarkdownOptions,
	style string,
	wrap int,
	gotoTop bool,
	nonce int,
) tea.Cmd {
	return func() tea.Msg {
		md := sanitizeMarkdownForDisplay(render.Markdown(t, opts))
		out := renderMsg{path: path, cacheKey: cacheKey, rendered: md, gotoTop: gotoTop, nonce: nonce}
		if len(md) > 500_000 {
			return out
		}
		if style == "" {
			style = config.DefaultGlamourStyle
		}
		r, err := glamour.NewTermRenderer(
			glamour.WithStandardStyle(style),
			glamour.WithWordWrap(wrap),
		)
		if err != nil {
			return out
		}
		if rendered, err := r.Render(md); err == nil {
			out.rendered = rendered
		}
		return out
	}
}

func (m Model) renderCacheKey() string {
	return fmt.Sprintf("%s|n=%d|w=%d|s=%t|t=%t", m.active, m.fetchNonce, m.viewport.Width, m.showSystem, m.showTools)
}

func (m *Model) refreshViewportFromCache() {
	if m.current == nil {
		m.clearMatches()
		return
	}
	cacheKey := m.renderCacheKey()
	rendered, ok := m.rendered[cacheKey]
	if !ok {
		return
	}
	oldOffset := m.viewport.YOffset
	m.setViewportFromRendered(cacheKey, rendered, false)
	m.viewport.SetYOffset(m.clampViewportOffset(oldOffset))
}

func (m *Model) setViewportFromRendered(cacheKey, rendered string, gotoTop bool) {
	content := rendered
	if terms := highlight.Terms(m.searchQuery); len(terms) > 0 {
		hKey := cacheKey + "|q=" + strings.Join(terms, " ")
		res, ok := m.highlighted[hKey]
		if !ok {
			res = highlight.ApplyANSI(rendered, terms, func(s string) string {
				return searchMatchStyle.Render(s)
			})
			m.highlighted[hKey] = res
		}
		content = res.Text
		m.setMatchMeta(res)
	} else {
		m.clearMatches()
	}

	oldOffset := m.viewport.YOffset
	m.viewport.SetContent(content)
	if !gotoTop {
		m.viewport.SetYOffset(m.clampViewportOffset(oldOffset))
		return
	}
	m.viewport.GotoTop()
	if len(m.matchLines) > 0 {
		m.matchIndex = 0
		m.viewport.SetYOffset(m.clampViewportOffset(m.matchLines[0]))
	}
}

func (m *Model) setMatchMeta(res highlight.Result) {
	if res.Count == 0 || len(res.LineIndex) == 0 {
		m.clearMatches()
		return
	}
	m.matchCount = res.Count
	m.matchLines = append(m.matchLines[:0], res.LineIndex...)
	if m.matchIndex < 0 || m.matchIndex >= len(m.matchLines) {
		m.matchIndex = 0
	}
}

func (m *Model) clearMatches() {
	m.matchLines = nil
	m.matchCount = 0
	m.matchIndex = -1
}

func (m *Model) jumpToMatch(delta int) {
	if len(m.matchLines) == 0 {
		if m.searchQuery != "" {
			m.status = "No search matches in transcript"
		}
		return
	}

	if m.matchIndex < 0 || m.matchIndex >= len(m.matchLines) {
		m.matchIndex = 0
	} else if delta > 0 {
		m.matchIndex = (m.matchIndex + 1) % len(m.matchLines)
	} else if delta < 0 {
		m.matchIndex = (m.matchIndex - 1 + len(m.matchLines)) % len(m.matchLines)
	}

	m.viewport.SetYOffset(m.clampViewportOffset(m.matchLines[m.matchIndex]))
	m.status = fmt.Sprintf("Match %d/%d", m.matchIndex+1, m.matchCount)
}

func (m *Model) clampViewportOffset(offset int) int {
	if offset < 0 {
		return 0
	}
	maxOffset := m.viewport.TotalLineCount() - m.viewport.Height
	if maxOffset < 0 {
		maxOffset = 0
	}
	if offset > maxOffset {
		return maxOffset
	}
	return offset
}

func (m *Model) resize() {
	if m.width <= 0 || m.height <= 0 {
		return
	}
	left, right := m.paneWidths()

	bodyHeight := m.height - 2
	if bodyHeight < 8 {
		bodyHeight = 8
	}

	m.list.SetSize(left-2, bodyHeight-2)
	m.viewport.Width = right - 2
	m.viewport.Height = bodyHeight - 2
}

func (m Model) View() string {
	if m.width == 0 || m.height == 0 {
		return "Starting..."
	}

	left, right := m.paneWidths()
	leftPane := panelStyle(m.focusOnList).Width(left).Height(m.height - 2).Render(m.navigatorView())
	rightPane := panelStyle(!m.focusOnList).Width(right).Height(m.height - 2).Render(m.viewport.View())
	body := lipgloss.JoinHorizontal(lipgloss.Top, leftPane, rightPane)

	helpView := m.help.View(m.keys)
	switch {
	case m.mode != inputNone:
		helpView = m.input.View() + "  " + helpView
	case m.searchQuery != "" && m.filterQuery != "":
		helpView = "search: " + m.searchQuery + "  filter: " + m.filterQuery + "  " + helpView
	case m.searchQuery != "":
		helpView = "search: " + m.searchQuery + "  " + helpView
	case m.filterQuery != "":
		helpView = "filter: " + m.filterQuery + "  " + helpView
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		m.statusLine(),
		body,
		helpView,
	)
}

func (m Model) navigatorView() string {
	switch {
	case m.indexFailed:
		return errorTextStyle.Render(viewer.MsgIndexFailed)
	case m.loading && m.tree.Empty():
		return m.spinner.View() + " loading logs..."
	case len(m.list.Items()) == 0 && (m.filterQuery != "" || m.searchQuery != ""):
		return "No matching logs."
	case len(m.list.Items()) == 0:
		return "No logs recorded yet."
	}
	return m.list.View()
}

func (m Model) statusLine() string {
	if m.confirm != nil {
		return confirmStyle.Render(fmt.Sprintf("%s  [session %s]  y/n", viewer.MsgConfirmDelete, m.confirm.sessionID))
	}

	status := ""
	if m.loading {
		status = m.spinner.View() + " loading..."
	}
	if m.active != "" {
		status = "log=" + shorten(m.active, 48)
		if m.current != nil {
			status += fmt.Sprintf("  messages=%d", len(m.current.Request.Body.Messages))
			if model := m.current.Request.Body.Model; model != "" {
				status += "  model=" + shorten(model, 24)
			}
		}
	}
	if m.searchQuery != "" {
		if m.matchCount > 0 {
			cur := m.matchIndex + 1
			if cur < 1 {
				cur = 1
			}
			status += fmt.Sprintf("  [match %d/%d]", cur, m.matchCount)
		} else {
			status += "  [match 0]"
		}
	}
	if m.showSystem {
		status += "  [system]"
	}
	if m.showTools {
		status += "  [tools]"
	}
	if m.rendering {
		status += "  [rendering]"
	}
	if s := strings.TrimSpace(m.status); s != "" {
		status += "  " + shorten(s, 80)
	}
	if m.err != nil {
		status += "  err=" + m.err.Error()
	}
	return statusStyle.Render(status)
}

func (m *Model) paneWidths() (int, int) {
	left := m.width / 3
	if left < 32 {
		left = 32
	}
	if left > m.width-32 {
		left = m.width - 32
	}
	if left < 20 {
		left = 20
	}
	right := m.width - left - 1
	if right < 20 {
		right = 20
	}
	return left, right
}
