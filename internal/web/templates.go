package web

import "html/template"

var pageTmpl = template.Must(template.New("page").Parse(pageHTML))

func init() {
	template.Must(pageTmpl.New("sidebar").Parse(sidebarHTML))
}

const pageHTML = `<!doctype html>
<html lang="en">
<head>
  <meta charset="utf-8" />
  <meta name="viewport" content="width=device-width, initial-scale=1" />
  <title>Gateway Trace</title>
  <link rel="stylesheet" href="/viewer/static/viewer.css" />
  <link rel="stylesheet" href="/viewer/static/chroma.css" />
</head>
<body>
  <div class="container">
    <aside class="sidebar">
      <div class="sidebar-header">
        <h2>Logs</h2>
        <button id="refresh-logs" type="button" title="Refresh">⟳</button>
      </div>
      <form class="log-filter" method="get" action="/viewer">
        <input type="search" name="q" value="{{.Sidebar.Query}}" placeholder="Filter by date, session or path" />
      </form>
      <div id="log-list">{{template "sidebar" .Sidebar}}</div>
    </aside>
    <main id="chat-container" class="chat-container"
      data-welcome="{{.Welcome}}"
      data-load-failed="{{.LoadFailed}}"
      data-confirm="{{.Confirm}}"
      data-delete-error="{{.DeleteErr}}">
      <div class="welcome-message">{{.Welcome}}</div>
    </main>
  </div>
  <script src="/viewer/static/viewer.js"></script>
</body>
</html>
`

const sidebarHTML = `{{if .Failed}}<div class="log-error">{{.FailedText}}</div>{{else}}{{if .Empty}}<p class="log-empty">No logs.</p>{{end}}
{{range .Users}}<div class="log-user-group" data-user="{{.ID}}">
  <h3 class="log-user-header" data-toggle="user"><span class="collapse-arrow">▼</span> {{.ID}}</h3>
  <div class="log-user-sessions">
  {{range .Sessions}}<div class="log-session-group" data-user="{{.UserID}}" data-session="{{.ID}}">
    <h4 class="log-session-header">
      <span class="session-text{{if not $.OpenSessions}} collapsed{{end}}" data-toggle="session"><span class="collapse-arrow">{{if $.OpenSessions}}▼{{else}}▶{{end}}</span> Session: {{.ID}}</span>
      <button class="delete-session-button" type="button" title="Delete Session" data-user="{{.UserID}}" data-session="{{.ID}}">🗑️</button>
    </h4>
    <div class="log-file-list{{if not $.OpenSessions}} collapsed{{end}}">
      {{range .Files}}<a href="#{{.Path}}" data-path="{{.Path}}">{{.Label}}</a>
      {{end}}</div>
  </div>
  {{end}}</div>
</div>
{{end}}{{with .Legacy}}<div class="log-user-group legacy">
  <h3 class="log-user-header" data-toggle="user"><span class="collapse-arrow">▼</span> {{$.LegacyLabel}}</h3>
  <div class="log-user-sessions">
    <div class="log-file-list">
      {{range .}}<a href="#{{.Path}}" data-path="{{.Path}}">{{.Label}}</a>
      {{end}}</div>
  </div>
</div>
{{end}}{{end}}`
