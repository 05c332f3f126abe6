package db

import (
	"context"
	"database/sql"
	"fmt"
)

// Entry is one row of the entries table.
type Entry struct {
	Section   string
	Key       string
	Value     string
	UpdatedAt int64
}

// HistoryRow is one row of the processing_history table.
type HistoryRow struct {
	Seq         int64
	RunID       string
	CommandLine string
	RecordedAt  int64
}

const (
	upsertEntrySQL = `INSERT INTO entries (section, key, value, updated_at)
VALUES (?, ?, ?, ?)
ON CONFLICT (section, key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`
	selectSectionSQL = `SELECT section, key, value, updated_at FROM entries WHERE section = ? ORDER BY key`
	selectEntriesSQL = `SELECT section, key, value, updated_at FROM entries ORDER BY section, key`
	insertHistorySQL = `INSERT INTO processing_history (run_id, command_line, recorded_at) VALUES (?, ?, ?)`
	selectHistorySQL = `SELECT seq, run_id, command_line, recorded_at FROM processing_history ORDER BY seq`
)

// Queries holds prepared statements for the metadata store.
type Queries struct {
	upsertEntry   *sql.Stmt
	selectSection *sql.Stmt
	selectEntries *sql.Stmt
	insertHistory *sql.Stmt
	selectHistory *sql.Stmt
}

// Prepare prepares every statement used by the metadata store.
func Prepare(ctx context.Context, db *sql.DB) (*Queries, error) {
	q := &Queries{}
	stmts := []struct {
		dst   **sql.Stmt
		query string
	}{
		{&q.upsertEntry, upsertEntrySQL},
		{&q.selectSection, selectSectionSQL},
		{&q.selectEntries, selectEntriesSQL},
		{&q.insertHistory, insertHistorySQL},
		{&q.selectHistory, selectHistorySQL},
	}
	for _, s := range stmts {
		stmt, err := db.PrepareContext(ctx, s.query)
		if err != nil {
			q.Close()
			return nil, fmt.Errorf("prepare %q: %w", s.query, err)
		}
		*s.dst = stmt
	}
	return q, nil
}

// Close releases all prepared statements.
func (q *Queries) Close() error {
	var firstErr error
	for _, stmt := range []*sql.Stmt{q.upsertEntry, q.selectSection, q.selectEntries, q.insertHistory, q.selectHistory} {
		if stmt == nil {
			continue
		}
		if err := stmt.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// WithTx returns Queries whose statements run inside tx. The returned
// statements are released when tx commits or rolls back; do not Close them.
func (q *Queries) WithTx(ctx context.Context, tx *sql.Tx) *Queries {
	return &Queries{
		upsertEntry:   tx.StmtContext(ctx, q.upsertEntry),
		selectSection: tx.StmtContext(ctx, q.selectSection),
		selectEntries: tx.StmtContext(ctx, q.selectEntries),
		insertHistory: tx.StmtContext(ctx, q.insertHistory),
		selectHistory: tx.StmtContext(ctx, q.selectHistory),
	}
}

// UpsertEntry inserts or replaces the value stored at section/key.
func (q *Queries) UpsertEntry(ctx context.Context, e Entry) error {
	_, err := q.upsertEntry.ExecContext(ctx, e.Section, e.Key, e.Value, e.UpdatedAt)
	return err
}

// SectionEntries returns the entries of one section ordered by key.
func (q *Queries) SectionEntries(ctx context.Context, section string) ([]Entry, error) {
	rows, err := q.selectSection.QueryContext(ctx, section)
	if err != nil {
		return nil, err
	}
	return scanEntries(rows)
}

// AllEntries returns every entry ordered by section and key.
func (q *Queries) AllEntries(ctx context.Context) ([]Entry, error) {
	rows, err := q.selectEntries.QueryContext(ctx)
	if err != nil {
		return nil, err
	}
	return scanEntries(rows)
}

// InsertHistory appends a processing history row and returns its sequence number.
func (q *Queries) InsertHistory(ctx context.Context, h HistoryRow) (int64, error) {
	res, err := q.insertHistory.ExecContext(ctx, h.RunID, h.CommandLine, h.RecordedAt)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// History returns the processing history in insertion order.
func (q *Queries) History(ctx context.Context) ([]HistoryRow, error) {
	rows, err := q.selectHistory.QueryContext(ctx)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []HistoryRow
	for rows.Next() {
		var h HistoryRow
		if err := rows.Scan(&h.Seq, &h.RunID, &h.CommandLine, &h.RecordedAt); err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

func scanEntries(rows *sql.Rows) ([]Entry, error) {
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.Section, &e.Key, &e.Value, &e.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
