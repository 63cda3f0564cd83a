package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"gateway-trace/internal/transcript"
)

// Store caches fetched transcripts in sqlite and indexes their message text
// for full-text search.
type Store struct {
	dbPath     string
	db         *sql.DB
	ftsEnabled bool
	mu         sync.Mutex
	now        func() time.Time
}

func New(dbPath string, reset bool) (*Store, error) {
	if reset {
		_ = os.Remove(dbPath)
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	s := &Store{dbPath: dbPath, db: db, now: time.Now}
	if err := s.initSchema(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// FTSEnabled reports whether the sqlite build supports FTS5.
func (s *Store) FTSEnabled() bool {
	return s.ftsEnabled
}

func (s *Store) initSchema() error {
	stmts := []string{
		`PRAGMA journal_mode = WAL;`,
		`CREATE TABLE IF NOT EXISTS transcripts (
			path TEXT PRIMARY KEY,
			user_id TEXT,
			session_folder TEXT,
			filename TEXT,
			fetched_at INTEGER,
			message_count INTEGER,
			preview TEXT,
			raw BLOB
		);`,
		`CREATE INDEX IF NOT EXISTS idx_transcripts_session ON transcripts(user_id, session_folder);`,
		`CREATE TABLE IF NOT EXISTS messages (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			path TEXT,
			seq INTEGER,
			role TEXT,
			content TEXT
		);`,
		`CREATE INDEX IF NOT EXISTS idx_messages_path ON messages(path, seq);`,
	}

	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("init schema: %w", err)
		}
	}
	return s.ensureFTSTable()
}

func (s *Store) ensureFTSTable() error {
	var sqlDef string
	err := s.db.QueryRow(`SELECT sql FROM sqlite_master WHERE name = 'messages_fts'`).Scan(&sqlDef)
	if err == nil {
		lower := strings.ToLower(sqlDef)
		s.ftsEnabled = strings.Contains(lower, "virtual table") && strings.Contains(lower, "fts5")
		return nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("inspect messages_fts table: %w", err)
	}

	_, err = s.db.Exec(`CREATE VIRTUAL TABLE messages_fts USING fts5(
		path UNINDEXED,
		role UNINDEXED,
		content
	);`)
	if err == nil {
		s.ftsEnabled = true
		return nil
	}

	if !strings.Contains(strings.ToLower(err.Error()), "no such module: fts5") {
		return fmt.Errorf("create messages_fts: %w", err)
	}

	// Fallback for sqlite builds without FTS5 support.
	if _, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS messages_fts (
		rowid INTEGER PRIMARY KEY,
		path TEXT,
		role TEXT,
		content TEXT
	);`); err != nil {
		return fmt.Errorf("create messages_fts fallback table: %w", err)
	}
	if _, err := s.db.Exec(`CREATE INDEX IF NOT EXISTS idx_messages_fts_path ON messages_fts(path);`); err != nil {
		return fmt.Errorf("create fallback messages_fts index: %w", err)
	}
	s.ftsEnabled = false
	return nil
}

// Put replaces the cached copy of a transcript.
func (s *Store) Put(ctx context.Context, path string, raw []byte, t *transcript.Transcript) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, folder, filename := splitPath(path)
	msgs := t.Messages()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin put tx: %w", err)
	}
	defer tx.Rollback()

	if err := deletePaths(ctx, tx, `path = ?`, path); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO transcripts(path, user_id, session_folder, filename, fetched_at, message_count, preview, raw)
		VALUES(?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			user_id=excluded.user_id,
			session_folder=excluded.session_folder,
			filename=excluded.filename,
			fetched_at=excluded.fetched_at,
			message_count=excluded.message_count,
			preview=excluded.preview,
			raw=excluded.raw
	`, path, user, folder, filename, s.now().Unix(), len(msgs), trimPreview(pickPreview(msgs)), raw); err != nil {
		return fmt.Errorf("upsert transcript %s: %w", path, err)
	}

	insertMsgStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO messages(path, seq, role, content)
		VALUES(?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("prepare message insert: %w", err)
	}
	defer insertMsgStmt.Close()

	insertFTSStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO messages_fts(rowid, path, role, content)
		VALUES(?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("prepare fts insert: %w", err)
	}
	defer insertFTSStmt.Close()

	docs := make([]indexedText, 0, len(msgs)+1)
	if sys := strings.TrimSpace(t.Request.Body.System.Text()); sys != "" {
		docs = append(docs, indexedText{role: "system", content: sys})
	}
	for _, m := range msgs {
		docs = append(docs, indexedText{role: m.Kind(), content: m.Content.PlainText()})
	}

	for seq, d := range docs {
		if strings.TrimSpace(d.content) == "" {
			continue
		}
		res, err := insertMsgStmt.ExecContext(ctx, path, seq, d.role, d.content)
		if err != nil {
			return fmt.Errorf("insert message %s#%d: %w", path, seq, err)
		}
		rowID, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("message rowid %s#%d: %w", path, seq, err)
		}
		if _, err := insertFTSStmt.ExecContext(ctx, rowID, path, d.role, d.content); err != nil {
			return fmt.Errorf("index message %s#%d: %w", path, seq, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit put %s: %w", path, err)
	}
	return nil
}

type indexedText struct {
	role    string
	content string
}

// Get returns the raw JSON of a cached transcript.
func (s *Store) Get(ctx context.Context, path string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var raw []byte
	err := s.db.QueryRowContext(ctx, `SELECT raw FROM transcripts WHERE path = ?`, path).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("read transcript %s: %w", path, err)
	}
	return raw, true, nil
}

func (s *Store) Has(ctx context.Context, path string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM transcripts WHERE path = ?`, path).Scan(&n); err != nil {
		return false, fmt.Errorf("check transcript %s: %w", path, err)
	}
	return n > 0, nil
}

// List returns cached transcripts, newest path first.
func (s *Store) List(ctx context.Context) ([]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT path, COALESCE(user_id, ''), COALESCE(session_folder, ''), COALESCE(filename, ''),
			COALESCE(message_count, 0), COALESCE(preview, ''), COALESCE(fetched_at, 0)
		FROM transcripts
		ORDER BY path DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("list transcripts: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.Path, &e.UserID, &e.Folder, &e.Filename, &e.MessageCount, &e.Preview, &e.FetchedAt); err != nil {
			return nil, fmt.Errorf("scan transcript row: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transcripts: %w", err)
	}
	return out, nil
}

// DeleteSession purges every cached transcript of a session folder and
// returns how many were removed.
func (s *Store) DeleteSession(ctx context.Context, userID, folder string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin delete session tx: %w", err)
	}
	defer tx.Rollback()

	where := `path IN (SELECT path FROM transcripts WHERE user_id = ? AND session_folder = ?)`
	if err := deletePaths(ctx, tx, where, userID, folder); err != nil {
		return 0, err
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM transcripts WHERE user_id = ? AND session_folder = ?`, userID, folder)
	if err != nil {
		return 0, fmt.Errorf("delete transcripts %s/%s: %w", userID, folder, err)
	}
	n, _ := res.RowsAffected()

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit delete session %s/%s: %w", userID, folder, err)
	}
	return n, nil
}

// deletePaths clears message and fts rows for the paths matched by where.
// The transcripts row itself is left to the caller.
func deletePaths(ctx context.Context, tx *sql.Tx, where string, args ...any) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM messages_fts WHERE rowid IN (SELECT id FROM messages WHERE `+where+`)`, args...); err != nil {
		return fmt.Errorf("clear stale fts rows: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM messages WHERE `+where, args...); err != nil {
		return fmt.Errorf("clear stale message rows: %w", err)
	}
	return nil
}

// Search ranks cached transcripts by the number of messages matching query.
func (s *Store) Search(ctx context.Context, query string, limit int) ([]Hit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if limit <= 0 {
		limit = 50
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}

	rows, err := s.searchRows(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Hit, 0, 32)
	for rows.Next() {
		var h Hit
		if err := rows.Scan(&h.Path, &h.UserID, &h.Folder, &h.Filename, &h.Score, &h.MessageCount, &h.Preview, &h.FetchedAt); err != nil {
			return nil, fmt.Errorf("scan search row: %w", err)
		}
		out = append(out, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate search rows: %w", err)
	}
	return out, nil
}

const hitColumns = `t.path, COALESCE(t.user_id, ''), COALESCE(t.session_folder, ''), COALESCE(t.filename, ''),
	ranked.score, COALESCE(t.message_count, 0), COALESCE(t.preview, ''), COALESCE(t.fetched_at, 0)`

func (s *Store) searchRows(ctx context.Context, query string, limit int) (*sql.Rows, error) {
	if s.ftsEnabled {
		rows, err := s.searchRowsFTS(ctx, query, limit)
		if err == nil {
			return rows, nil
		}
		fallback, fbErr := s.searchRowsLike(ctx, query, limit)
		if fbErr != nil {
			return nil, fmt.Errorf("search (fts and fallback failed): fts=%w, fallback=%v", err, fbErr)
		}
		return fallback, nil
	}
	return s.searchRowsLike(ctx, query, limit)
}

func (s *Store) searchRowsFTS(ctx context.Context, query string, limit int) (*sql.Rows, error) {
	ftsQuery := buildFTSQuery(query)
	if ftsQuery == "" {
		return nil, fmt.Errorf("empty fts query")
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+hitColumns+`
		FROM transcripts t
		JOIN (
			SELECT path, COUNT(*) AS score
			FROM messages_fts
			WHERE messages_fts MATCH ?
			GROUP BY path
			ORDER BY score DESC
			LIMIT ?
		) ranked ON ranked.path = t.path
		ORDER BY ranked.score DESC, t.path DESC
	`, ftsQuery, limit)
	if err != nil {
		return nil, fmt.Errorf("fts query failed: %w", err)
	}
	return rows, nil
}

func (s *Store) searchRowsLike(ctx context.Context, query string, limit int) (*sql.Rows, error) {
	terms := tokenizeSearchTerms(query)
	if len(terms) == 0 {
		terms = []string{strings.ToLower(strings.TrimSpace(query))}
	}

	var b strings.Builder
	b.WriteString(`
		SELECT ` + hitColumns + `
		FROM transcripts t
		JOIN (
			SELECT path, COUNT(*) AS score
			FROM messages
			WHERE `)
	args := make([]any, 0, len(terms)+1)
	for idx, term := range terms {
		if idx > 0 {
			b.WriteString(" AND ")
		}
		b.WriteString("LOWER(content) LIKE ?")
		args = append(args, "%"+term+"%")
	}
	b.WriteString(`
			GROUP BY path
			ORDER BY score DESC
			LIMIT ?
		) ranked ON ranked.path = t.path
		ORDER BY ranked.score DESC, t.path DESC
	`)
	args = append(args, limit)
	rows, err := s.db.QueryContext(ctx, b.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("like query failed: %w", err)
	}
	return rows, nil
}

func buildFTSQuery(raw string) string {
	parts := tokenizeSearchTerms(raw)
	if len(parts) == 0 {
		return ""
	}
	quoted := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		p = strings.ReplaceAll(p, `"`, "")
		quoted = append(quoted, fmt.Sprintf(`"%s"*`, p))
	}
	return strings.Join(quoted, " AND ")
}

// SearchTerms splits a query the way the store matches it.
func SearchTerms(raw string) []string {
	return tokenizeSearchTerms(raw)
}

func tokenizeSearchTerms(raw string) []string {
	parts := strings.Fields(strings.ToLower(strings.TrimSpace(raw)))
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		p = strings.Trim(p, "`\"'.,:;!?()[]{}<>|")
		if p == "" {
			continue
		}
		out = append(out, p)
	}
	return out
}

func pickPreview(msgs []transcript.Message) string {
	for _, m := range msgs {
		if m.Kind() != "user" {
			continue
		}
		if text := m.Content.PlainText(); text != "" {
			return text
		}
	}
	for _, m := range msgs {
		if text := m.Content.PlainText(); text != "" {
			return text
		}
	}
	return ""
}

func trimPreview(s string) string {
	s = strings.TrimSpace(strings.ReplaceAll(s, "\n", " "))
	if len([]rune(s)) <= 120 {
		return s
	}
	return string([]rune(s)[:117]) + "..."
}

func splitPath(p string) (user, folder, filename string) {
	parts := strings.Split(strings.Trim(p, "/"), "/")
	if len(parts) < 2 {
		return "", "", parts[len(parts)-1]
	}
	return parts[0], parts[1], parts[len(parts)-1]
}

func FormatUnix(ts int64) string {
	if ts <= 0 {
		return "n/a"
	}
	return time.Unix(ts, 0).Local().Format("2006-01-02 15:04")
}
