package ledger

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"sync"

	_ "github.com/mattn/go-sqlite3"

	"github.com/roach88/grainrank/internal/grain"
)

//go:embed schema.sql
var schemaSQL string

// Schema version tracking:
// 1 - ledger_events + receipts
const currentSchemaVersion = 1

// Ledger is a handle on one ledger database.
type Ledger struct {
	db *sql.DB
	mu sync.Mutex
}

// Open creates or opens the ledger database at path, applying pragmas and
// schema. Safe to call on an existing ledger.
func Open(path string) (*Ledger, error) {
	db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?_txlock=immediate", path))
	if err != nil {
		return nil, fmt.Errorf("open ledger: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("open ledger: connect: %w", err)
	}

	// One connection: SQLite has a single writer and Exclusive relies on
	// the transaction owning it.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("open ledger: %w", err)
	}
	if err := applySchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("open ledger: %w", err)
	}
	return &Ledger{db: db}, nil
}

// Close closes the database.
func (l *Ledger) Close() error {
	if l.db == nil {
		return nil
	}
	return l.db.Close()
}

func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("execute %q: %w", pragma, err)
		}
	}
	return nil
}

func applySchema(db *sql.DB) error {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("get user_version: %w", err)
	}
	if version > currentSchemaVersion {
		return fmt.Errorf("ledger schema version %d is newer than supported version %d", version, currentSchemaVersion)
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("execute schema: %w", err)
	}
	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
		return fmt.Errorf("set user_version: %w", err)
	}
	return nil
}

// querier is the subset of *sql.DB and *sql.Tx the ledger queries use.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

var (
	_ querier = (*sql.DB)(nil)
	_ querier = (*sql.Tx)(nil)
)

// Tx is the view of the ledger inside Exclusive. It must not be used after
// the callback returns.
type Tx struct {
	tx *sql.Tx
}

// PaidTotals returns the total grain received per identity so far.
func (t *Tx) PaidTotals(ctx context.Context) (map[string]grain.Grain, error) {
	return paidTotals(ctx, t.tx)
}

// Distributions replays every distribution in append order.
func (t *Tx) Distributions(ctx context.Context) ([]Distribution, error) {
	return distributions(ctx, t.tx)
}

// AppendDistribution appends d. It reports false if a distribution with
// the same ID and content is already recorded.
func (t *Tx) AppendDistribution(ctx context.Context, d Distribution) (bool, error) {
	return appendDistribution(ctx, t.tx, d)
}

// Exclusive runs fn with exclusive write access to the ledger. fn's writes
// are committed if it returns nil and rolled back otherwise, including on
// panic. The lock is released on every path.
func (l *Ledger) Exclusive(ctx context.Context, fn func(*Tx) error) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("ledger: begin: %w", err)
	}
	defer tx.Rollback() // no-op after commit

	if err := fn(&Tx{tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("ledger: commit: %w", err)
	}
	return nil
}

// PaidTotals returns the total grain received per identity so far.
func (l *Ledger) PaidTotals(ctx context.Context) (map[string]grain.Grain, error) {
	return paidTotals(ctx, l.db)
}

// Distributions replays every distribution in append order.
func (l *Ledger) Distributions(ctx context.Context) ([]Distribution, error) {
	return distributions(ctx, l.db)
}

// AppendDistribution appends d in its own transaction.
func (l *Ledger) AppendDistribution(ctx context.Context, d Distribution) (bool, error) {
	var inserted bool
	err := l.Exclusive(ctx, func(tx *Tx) error {
		var err error
		inserted, err = tx.AppendDistribution(ctx, d)
		return err
	})
	return inserted, err
}
