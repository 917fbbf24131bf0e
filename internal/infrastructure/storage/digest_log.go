package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"nudge/internal/domain"
	"nudge/internal/ports"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"

	publishedTable = "published_digests"
)

// DigestLog persists published weekly digests in SQLite or Postgres.
type DigestLog struct {
	db      *sql.DB
	builder sq.StatementBuilderType
}

var _ ports.DigestLog = (*DigestLog)(nil)

// Open connects to driver/dsn, applies pragmas for SQLite and ensures the
// schema exists.
func Open(ctx context.Context, driver, dsn string) (*DigestLog, error) {
	switch driver {
	case "", DriverSQLite:
		driver = DriverSQLite
		if dir := filepath.Dir(dsn); dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create db dir: %w", err)
			}
		}
	case DriverPostgres:
	default:
		return nil, fmt.Errorf("unsupported storage driver %q", driver)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}

	if driver == DriverSQLite {
		for _, p := range []string{"PRAGMA journal_mode=WAL", "PRAGMA busy_timeout=5000"} {
			if _, err := db.ExecContext(ctx, p); err != nil {
				_ = db.Close()
				return nil, fmt.Errorf("sqlite pragma %q: %w", p, err)
			}
		}
	}

	log := NewDigestLog(db, driver)
	if err := log.EnsureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return log, nil
}

// NewDigestLog wires an existing sql.DB; driver picks the placeholder style.
func NewDigestLog(db *sql.DB, driver string) *DigestLog {
	placeholder := sq.Question
	if driver == DriverPostgres {
		placeholder = sq.Dollar
	}
	return &DigestLog{db: db, builder: sq.StatementBuilder.PlaceholderFormat(placeholder)}
}

// EnsureSchema creates the publish table when missing.
func (r *DigestLog) EnsureSchema(ctx context.Context) error {
	if r.db == nil {
		return nil
	}
	_, err := r.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS `+publishedTable+` (
		week_key TEXT PRIMARY KEY,
		topics INTEGER NOT NULL,
		items INTEGER NOT NULL,
		published_at TEXT NOT NULL
	)`)
	if err != nil {
		return fmt.Errorf("create %s: %w", publishedTable, err)
	}
	return nil
}

// AlreadyPublished reports whether the week identified by weekKey was sent.
func (r *DigestLog) AlreadyPublished(ctx context.Context, weekKey string) (bool, error) {
	if r.db == nil {
		return false, nil
	}

	query, args, err := r.builder.
		Select("1").
		From(publishedTable).
		Where(sq.Eq{"week_key": weekKey}).
		Limit(1).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("build query: %w", err)
	}

	var one int
	err = r.db.QueryRowContext(ctx, query, args...).Scan(&one)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return false, nil
	case err != nil:
		return false, fmt.Errorf("query published: %w", err)
	}
	return true, nil
}

// SavePublished records a sent digest; a second save for the same week is ignored.
func (r *DigestLog) SavePublished(ctx context.Context, rec domain.PublishedDigest) error {
	if r.db == nil {
		return nil
	}

	query, args, err := r.builder.
		Insert(publishedTable).
		Columns("week_key", "topics", "items", "published_at").
		Values(rec.WeekKey, rec.Topics, rec.Items, rec.PublishedAt.UTC().Format(time.RFC3339Nano)).
		Suffix("ON CONFLICT (week_key) DO NOTHING").
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert published: %w", err)
	}
	return nil
}

// History lists the most recent publications, newest week first.
func (r *DigestLog) History(ctx context.Context, limit int) ([]domain.PublishedDigest, error) {
	if r.db == nil {
		return nil, nil
	}
	if limit <= 0 {
		limit = 10
	}

	query, args, err := r.builder.
		Select("week_key", "topics", "items", "published_at").
		From(publishedTable).
		OrderBy("week_key DESC").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var out []domain.PublishedDigest
	for rows.Next() {
		var (
			rec domain.PublishedDigest
			at  string
		)
		if err := rows.Scan(&rec.WeekKey, &rec.Topics, &rec.Items, &at); err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}
		if rec.PublishedAt, err = time.Parse(time.RFC3339Nano, at); err != nil {
			return nil, fmt.Errorf("parse published_at %q: %w", at, err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return out, nil
}

// Close releases the connection pool.
func (r *DigestLog) Close() error {
	if r.db == nil {
		return nil
	}
	return r.db.Close()
}
