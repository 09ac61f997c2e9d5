// Package ledger provides the SQLite-backed append-only record of grain
// distributions.
//
// Each distribution is stored once as a canonical JSON event in
// ledger_events, and its receipts are indexed in a receipts table so that
// paid totals per identity are a single query. Events are never updated
// or deleted; replay is ORDER BY seq.
//
// # Exclusive access
//
// A distribution run reads paid totals, computes receipts and appends them.
// Exclusive serializes that sequence: it holds an in-process mutex and an
// IMMEDIATE SQLite transaction (so other processes block on the write
// lock), and commits only if the callback succeeds. Nothing is visible to
// other readers until commit.
//
// # Database Configuration
//
//   - WAL mode: concurrent reads during writes
//   - synchronous=NORMAL
//   - busy_timeout=5000: wait for locks up to 5 seconds
//   - foreign_keys=ON
//   - _txlock=immediate: every transaction takes the write lock up front
package ledger
