package project

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

type Dialect string

const (
	Postgres Dialect = "postgres"
	SQLite   Dialect = "sqlite"
)

// SQLStore keeps projects in PostgreSQL or SQLite. Queries are written with
// $n placeholders and rewritten to ?n for SQLite.
type SQLStore struct {
	db      *sql.DB
	dialect Dialect

	schemaOnce sync.Once
	schemaErr  error
}

var _ Repository = (*SQLStore)(nil)

// Open connects to dsn. postgres:// and postgresql:// URLs use pgx;
// sqlite:<path> uses the pure-Go SQLite driver.
func Open(ctx context.Context, dsn string) (*SQLStore, error) {
	dsn = strings.TrimSpace(dsn)
	var (
		driver  string
		source  string
		dialect Dialect
	)
	switch {
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		driver, source, dialect = "pgx", dsn, Postgres
	case strings.HasPrefix(dsn, "sqlite:"):
		driver, source, dialect = "sqlite", strings.TrimPrefix(strings.TrimPrefix(dsn, "sqlite:"), "//"), SQLite
	default:
		return nil, fmt.Errorf("unsupported project store dsn %q", dsn)
	}
	db, err := sql.Open(driver, source)
	if err != nil {
		return nil, err
	}
	if dialect == SQLite {
		// one writer at a time; also keeps ":memory:" on a single database
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping project store: %w", err)
	}
	return NewSQLStore(db, dialect), nil
}

func NewSQLStore(db *sql.DB, dialect Dialect) *SQLStore {
	return &SQLStore{db: db, dialect: dialect}
}

func (s *SQLStore) Dialect() Dialect { return s.dialect }

func (s *SQLStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

var placeholder = regexp.MustCompile(`\$(\d+)`)

func (s *SQLStore) q(query string) string {
	if s.dialect == SQLite {
		return placeholder.ReplaceAllString(query, "?$1")
	}
	return query
}

func (s *SQLStore) ensureSchema(ctx context.Context) error {
	s.schemaOnce.Do(func() {
		for _, stmt := range []string{
			`CREATE TABLE IF NOT EXISTS imported_projects (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  repo_id BIGINT NOT NULL,
  branch TEXT NOT NULL,
  repository TEXT NOT NULL,
  imported_at BIGINT NOT NULL,
  status TEXT NOT NULL DEFAULT 'importing',
  error TEXT NOT NULL DEFAULT ''
)`,
			`CREATE UNIQUE INDEX IF NOT EXISTS idx_imported_projects_user_repo_branch
  ON imported_projects (user_id, repo_id, branch)`,
			`CREATE INDEX IF NOT EXISTS idx_imported_projects_user_imported_at
  ON imported_projects (user_id, imported_at DESC)`,
		} {
			if _, err := s.db.ExecContext(ctx, stmt); err != nil {
				s.schemaErr = fmt.Errorf("create project schema: %w", err)
				return
			}
		}
	})
	return s.schemaErr
}

const projectColumns = `id, user_id, repository, branch, imported_at, status, error`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProject(row rowScanner) (ImportedProject, error) {
	var (
		p        ImportedProject
		repoJSON string
		millis   int64
		status   string
	)
	if err := row.Scan(&p.ID, &p.UserID, &repoJSON, &p.Branch, &millis, &status, &p.Error); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ImportedProject{}, ErrNotFound
		}
		return ImportedProject{}, err
	}
	if err := json.Unmarshal([]byte(repoJSON), &p.Repository); err != nil {
		return ImportedProject{}, fmt.Errorf("decode repository of %s: %w", p.ID, err)
	}
	p.ImportedAt = time.UnixMilli(millis).UTC()
	p.Status = Status(status)
	return p, nil
}

func (s *SQLStore) Add(ctx context.Context, p ImportedProject) (string, bool, error) {
	if err := s.ensureSchema(ctx); err != nil {
		return "", false, err
	}
	p = normalize(p)
	if p.ID == "" {
		return "", false, fmt.Errorf("add project: empty id")
	}
	repoJSON, err := json.Marshal(p.Repository)
	if err != nil {
		return "", false, err
	}
	res, err := s.db.ExecContext(ctx, s.q(`
INSERT INTO imported_projects (id, user_id, repo_id, branch, repository, imported_at, status, error)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
ON CONFLICT (user_id, repo_id, branch) DO NOTHING`),
		p.ID, p.UserID, p.Repository.ID, p.Branch, string(repoJSON), p.ImportedAt.UnixMilli(), string(p.Status), p.Error)
	if err != nil {
		return "", false, fmt.Errorf("insert project: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n > 0 {
		return p.ID, true, nil
	}

	var existing string
	err = s.db.QueryRowContext(ctx, s.q(`
SELECT id FROM imported_projects WHERE user_id = $1 AND repo_id = $2 AND branch = $3`),
		p.UserID, p.Repository.ID, p.Branch).Scan(&existing)
	if err != nil {
		return "", false, fmt.Errorf("find existing project: %w", err)
	}
	return existing, false, nil
}

func (s *SQLStore) Get(ctx context.Context, userID, id string) (ImportedProject, error) {
	if err := s.ensureSchema(ctx); err != nil {
		return ImportedProject{}, err
	}
	row := s.db.QueryRowContext(ctx, s.q(`SELECT `+projectColumns+`
FROM imported_projects WHERE id = $1 AND user_id = $2`), strings.TrimSpace(id), userID)
	return scanProject(row)
}

func (s *SQLStore) List(ctx context.Context, userID string) ([]ImportedProject, error) {
	if err := s.ensureSchema(ctx); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, s.q(`SELECT `+projectColumns+`
FROM imported_projects WHERE user_id = $1 ORDER BY imported_at DESC, id DESC`), userID)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer rows.Close()

	out := make([]ImportedProject, 0, 16)
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *SQLStore) Remove(ctx context.Context, userID, id string) error {
	if err := s.ensureSchema(ctx); err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, s.q(`DELETE FROM imported_projects WHERE id = $1 AND user_id = $2`), id, userID)
	if err != nil {
		return fmt.Errorf("delete project: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLStore) Update(ctx context.Context, id string, update func(*ImportedProject)) (ImportedProject, error) {
	if err := s.ensureSchema(ctx); err != nil {
		return ImportedProject{}, err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return ImportedProject{}, err
	}
	defer func() { _ = tx.Rollback() }()

	query := `SELECT ` + projectColumns + ` FROM imported_projects WHERE id = $1`
	if s.dialect == Postgres {
		query += ` FOR UPDATE`
	}
	cur, err := scanProject(tx.QueryRowContext(ctx, s.q(query), id))
	if err != nil {
		return ImportedProject{}, err
	}
	next := cur
	update(&next)
	next.ID = cur.ID
	next.UserID = cur.UserID
	next = normalize(next)

	repoJSON, err := json.Marshal(next.Repository)
	if err != nil {
		return ImportedProject{}, err
	}
	_, err = tx.ExecContext(ctx, s.q(`
UPDATE imported_projects
SET repo_id = $2, branch = $3, repository = $4, imported_at = $5, status = $6, error = $7
WHERE id = $1`),
		next.ID, next.Repository.ID, next.Branch, string(repoJSON), next.ImportedAt.UnixMilli(), string(next.Status), next.Error)
	if err != nil {
		return ImportedProject{}, fmt.Errorf("update project: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return ImportedProject{}, err
	}
	return next, nil
}
