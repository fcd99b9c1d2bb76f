package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	// Registers the "sqlite3" database/sql driver.
	_ "github.com/mattn/go-sqlite3"

	"github.com/followledger/followledger/internal/models"
)

// Table selects one of the ledger's relation tables.
type Table string

const (
	// TableFollowers accumulates every follower ever observed.
	TableFollowers Table = "followers"
	// TableFollowing accumulates every account ever followed.
	TableFollowing Table = "followed"
)

var errUnknownTable = errors.New("unknown ledger table")

func (t Table) valid() bool {
	return t == TableFollowers || t == TableFollowing
}

// SQLiteLedger persists relations across runs, keyed by identity. The first
// observation of an identity wins; later observations are ignored.
type SQLiteLedger struct {
	db     *sql.DB
	logger *slog.Logger
}

// OpenSQLiteLedger opens (creating if needed) the ledger database at path and
// makes sure both tables exist.
func OpenSQLiteLedger(ctx context.Context, path string, logger *slog.Logger) (*SQLiteLedger, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create ledger dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open ledger: %w", err)
	}
	// SQLite allows a single writer; one connection avoids SQLITE_BUSY between
	// our own transactions.
	db.SetMaxOpenConns(1)

	l := &SQLiteLedger{db: db, logger: logger}
	if err := l.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return l, nil
}

func (l *SQLiteLedger) migrate(ctx context.Context) error {
	for _, t := range []Table{TableFollowers, TableFollowing} {
		stmt := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			name TEXT PRIMARY KEY,
			timestamp INTEGER NOT NULL
		)`, t)
		if _, err := l.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("create table %s: %w", t, err)
		}
	}
	return nil
}

// Record inserts relations into table, skipping identities already present.
// It returns how many rows were newly inserted. All inserts of one call share
// a transaction.
func (l *SQLiteLedger) Record(ctx context.Context, table Table, relations []models.Relation) (int, error) {
	if !table.valid() {
		return 0, fmt.Errorf("%w: %q", errUnknownTable, table)
	}

	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf("INSERT OR IGNORE INTO %s (name, timestamp) VALUES (?, ?)", table))
	if err != nil {
		return 0, fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	inserted := 0
	for _, r := range relations {
		res, err := stmt.ExecContext(ctx, r.Identity(), r.Timestamp())
		if err != nil {
			return 0, fmt.Errorf("insert %s: %w", r.Identity(), err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("rows affected: %w", err)
		}
		inserted += int(n)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}

	l.logger.Debug("ledger recorded",
		slog.String("table", string(table)),
		slog.Int("offered", len(relations)),
		slog.Int("inserted", inserted),
	)
	return inserted, nil
}

// List returns every relation in table ordered by first-seen timestamp, ties
// broken by name.
func (l *SQLiteLedger) List(ctx context.Context, table Table) ([]models.Relation, error) {
	if !table.valid() {
		return nil, fmt.Errorf("%w: %q", errUnknownTable, table)
	}

	rows, err := l.db.QueryContext(ctx, fmt.Sprintf("SELECT name, timestamp FROM %s ORDER BY timestamp, name", table))
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", table, err)
	}
	defer rows.Close()

	var out []models.Relation
	for rows.Next() {
		var (
			name string
			ts   int64
		)
		if err := rows.Scan(&name, &ts); err != nil {
			return nil, fmt.Errorf("scan %s: %w", table, err)
		}
		r, err := models.NewRelation(name, ts)
		if err != nil {
			return nil, fmt.Errorf("ledger row %s: %w", name, err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", table, err)
	}
	return out, nil
}

// Close releases the database handle.
func (l *SQLiteLedger) Close() error {
	return l.db.Close()
}
