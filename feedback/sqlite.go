package feedback

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/hazyhaar/docqa/dbopen"
	"github.com/hazyhaar/docqa/idgen"
)

const schema = `
CREATE TABLE IF NOT EXISTS ratings (
    id         TEXT PRIMARY KEY,
    session_id TEXT NOT NULL,
    message_id TEXT NOT NULL,
    rating     TEXT NOT NULL CHECK (rating IN ('up', 'down')),
    role       TEXT NOT NULL DEFAULT '',
    mode       TEXT NOT NULL DEFAULT '',
    question   TEXT NOT NULL DEFAULT '',
    ip         TEXT NOT NULL DEFAULT '',
    created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_ratings_created ON ratings(created_at DESC);
CREATE INDEX IF NOT EXISTS idx_ratings_session ON ratings(session_id);
`

// SQLiteSink stores ratings in the ratings table.
type SQLiteSink struct {
	db    *sql.DB
	newID idgen.Generator
}

// NewSQLiteSink applies the schema to db. The sink does not own db unless
// Close is called.
func NewSQLiteSink(db *sql.DB) (*SQLiteSink, error) {
	if db == nil {
		return nil, fmt.Errorf("feedback: DB is required")
	}
	for _, stmt := range strings.Split(schema, ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if _, err := db.Exec(stmt); err != nil {
			return nil, fmt.Errorf("feedback schema: %w", err)
		}
	}
	return &SQLiteSink{db: db, newID: idgen.Prefixed("rat_", idgen.Default)}, nil
}

func (s *SQLiteSink) Append(ctx context.Context, r Rating) error {
	if err := stamp(&r); err != nil {
		return err
	}
	_, err := dbopen.Exec(ctx, s.db,
		`INSERT INTO ratings (id, session_id, message_id, rating, role, mode, question, ip, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.newID(), r.SessionID, r.MessageID, string(r.Rating), r.Role, r.Mode, r.Question, r.IP, r.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("feedback: insert: %w", err)
	}
	return nil
}

// List returns ratings newest first.
func (s *SQLiteSink) List(ctx context.Context, limit, offset int) ([]Rating, error) {
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT session_id, message_id, rating, role, mode, question, ip, created_at
		 FROM ratings ORDER BY created_at DESC, rowid DESC LIMIT ? OFFSET ?`,
		limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("feedback: list: %w", err)
	}
	defer rows.Close()

	out := []Rating{}
	for rows.Next() {
		var r Rating
		if err := rows.Scan(&r.SessionID, &r.MessageID, &r.Rating, &r.Role, &r.Mode, &r.Question, &r.IP, &r.Timestamp); err != nil {
			return nil, fmt.Errorf("feedback: scan: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *SQLiteSink) Close() error { return s.db.Close() }
