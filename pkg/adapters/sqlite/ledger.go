// Package sqlite keeps the cycle ledger in a SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"

	"github.com/aretw0/releasebot/pkg/adapters/sqlite/migrations"
	"github.com/aretw0/releasebot/pkg/domain"
	"github.com/aretw0/releasebot/pkg/version"
)

// ErrDuplicateCycle is returned when a cycle ID was already recorded.
var ErrDuplicateCycle = errors.New("cycle already recorded")

// Ledger implements ports.Ledger.
type Ledger struct {
	db *sql.DB
}

func toMillis(t time.Time) int64 {
	return t.UTC().UnixMilli()
}

// Open opens (creating if needed) the ledger at path and applies migrations.
func Open(ctx context.Context, path string) (*Ledger, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("ledger path is required")
	}
	clean := filepath.Clean(path)
	if dir := filepath.Dir(clean); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create ledger dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", clean+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := applyMigrations(ctx, db, migrations.FS); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Ledger{db: db}, nil
}

// Close closes the database handle.
func (l *Ledger) Close() error {
	if l == nil || l.db == nil {
		return nil
	}
	return l.db.Close()
}

// RecordCycle stores the full report.
func (l *Ledger) RecordCycle(ctx context.Context, report *domain.CycleReport) error {
	data, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("encode cycle %s: %w", report.ID, err)
	}
	var v string
	if report.Intent != nil {
		v = report.Intent.Version
	}
	_, err = l.db.ExecContext(ctx,
		`INSERT INTO cycles (id, repository, trigger_kind, version, outcome, report, started_at, finished_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		report.ID, report.Repository, string(report.Trigger), v, report.Outcome(), string(data),
		toMillis(report.StartedAt), toMillis(report.FinishedAt),
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: %s", ErrDuplicateCycle, report.ID)
	}
	if err != nil {
		return fmt.Errorf("insert cycle %s: %w", report.ID, err)
	}
	return nil
}

// RecentCycles returns up to limit cycles of repository, newest first.
// An empty repository lists every repository.
func (l *Ledger) RecentCycles(ctx context.Context, repository string, limit int) ([]domain.CycleReport, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := l.db.QueryContext(ctx,
		`SELECT report FROM cycles
		 WHERE ? = '' OR repository = ?
		 ORDER BY started_at DESC, rowid DESC
		 LIMIT ?`,
		repository, repository, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query cycles: %w", err)
	}
	defer rows.Close()

	var out []domain.CycleReport
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan cycle: %w", err)
		}
		var report domain.CycleReport
		if err := json.Unmarshal([]byte(raw), &report); err != nil {
			return nil, fmt.Errorf("decode cycle: %w", err)
		}
		out = append(out, report)
	}
	return out, rows.Err()
}

// LastDistributionVersion returns version.None when nothing was recorded.
func (l *Ledger) LastDistributionVersion(ctx context.Context, repository string) (string, error) {
	var v string
	err := l.db.QueryRowContext(ctx,
		`SELECT version FROM distribution_releases WHERE repository = ?`, repository,
	).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return version.None, nil
	}
	if err != nil {
		return "", fmt.Errorf("query distribution release: %w", err)
	}
	return v, nil
}

// MarkDistributionReleased records v as the last distribution-released version.
func (l *Ledger) MarkDistributionReleased(ctx context.Context, repository, v string) error {
	_, err := l.db.ExecContext(ctx,
		`INSERT INTO distribution_releases (repository, version, released_at) VALUES (?, ?, ?)
		 ON CONFLICT(repository) DO UPDATE SET version = excluded.version, released_at = excluded.released_at`,
		repository, v, toMillis(time.Now()),
	)
	if err != nil {
		return fmt.Errorf("upsert distribution release: %w", err)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3lib.SQLITE_CONSTRAINT_UNIQUE:
			return true
		}
	}
	return strings.Contains(strings.ToLower(err.Error()), "unique constraint failed")
}
