package metadata

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ecohydro/rhessysflow/internal/ctxlog"
	"github.com/ecohydro/rhessysflow/internal/db"
	"github.com/ecohydro/rhessysflow/internal/paths"
)

// Store reads and appends to a project's metadata.
type Store interface {
	// ReadSection returns every entry of section, including keys this
	// package does not declare.
	ReadSection(ctx context.Context, section Section) (Entries, error)
	// WriteEntry sets k to value, replacing any previous value.
	WriteEntry(ctx context.Context, k Key, value string) error
	// AppendHistory records a command line in the processing history.
	AppendHistory(ctx context.Context, commandLine string) (HistoryEntry, error)
	// History returns the processing history oldest first.
	History(ctx context.Context) ([]HistoryEntry, error)
	// CommitRun stores entries and records commandLine in the processing
	// history as one unit. On error nothing is stored.
	CommitRun(ctx context.Context, entries []Assignment, commandLine string) (HistoryEntry, error)
}

// Assignment is a value to store under Key.
type Assignment struct {
	Key   Key
	Value string
}

// HistoryEntry is one processing history record.
type HistoryEntry struct {
	Seq         int64
	RunID       string
	CommandLine string
	RecordedAt  time.Time
}

// SQLiteStore is the Store backed by the project's metadata database.
type SQLiteStore struct {
	db      *sql.DB
	queries *db.Queries
	path    string

	// Now stamps written entries; tests may replace it.
	Now func() time.Time
}

var _ Store = (*SQLiteStore)(nil)

// Open opens (creating if needed) the metadata store of projectDir.
func Open(ctx context.Context, projectDir string) (*SQLiteStore, error) {
	return OpenPath(ctx, paths.MetadataDB(projectDir))
}

// OpenPath opens the metadata store at an explicit database path.
func OpenPath(ctx context.Context, dbPath string) (*SQLiteStore, error) {
	conn, queries, err := db.ConnectWithQueries(ctx, dbPath)
	if err != nil {
		return nil, fmt.Errorf("open metadata store: %w", err)
	}
	return &SQLiteStore{db: conn, queries: queries, path: dbPath, Now: time.Now}, nil
}

// Path returns the database file backing the store.
func (s *SQLiteStore) Path() string { return s.path }

// Close releases the prepared statements and the database handle.
func (s *SQLiteStore) Close() error {
	qErr := s.queries.Close()
	if err := s.db.Close(); err != nil {
		return err
	}
	return qErr
}

func (s *SQLiteStore) ReadSection(ctx context.Context, section Section) (Entries, error) {
	rows, err := s.queries.SectionEntries(ctx, string(section))
	if err != nil {
		return nil, fmt.Errorf("read section %s: %w", section, err)
	}
	out := make(Entries, len(rows))
	for _, r := range rows {
		out[r.Key] = r.Value
	}
	return out, nil
}

// ReadAll returns the entries of every section, keyed by section.
func (s *SQLiteStore) ReadAll(ctx context.Context) (map[Section]Entries, error) {
	rows, err := s.queries.AllEntries(ctx)
	if err != nil {
		return nil, fmt.Errorf("read metadata: %w", err)
	}
	out := make(map[Section]Entries)
	for _, r := range rows {
		sec := Section(r.Section)
		if out[sec] == nil {
			out[sec] = make(Entries)
		}
		out[sec][r.Key] = r.Value
	}
	return out, nil
}

func (s *SQLiteStore) WriteEntry(ctx context.Context, k Key, value string) error {
	return s.writeEntry(ctx, s.queries, k, value)
}

func (s *SQLiteStore) writeEntry(ctx context.Context, q *db.Queries, k Key, value string) error {
	if k.Section == "" || k.Name == "" {
		return fmt.Errorf("write entry: incomplete key %q", k)
	}
	err := q.UpsertEntry(ctx, db.Entry{
		Section:   string(k.Section),
		Key:       k.Name,
		Value:     value,
		UpdatedAt: s.Now().Unix(),
	})
	if err != nil {
		return fmt.Errorf("write %s: %w", k, err)
	}
	return nil
}

func (s *SQLiteStore) AppendHistory(ctx context.Context, commandLine string) (HistoryEntry, error) {
	return s.appendHistory(ctx, s.queries, commandLine)
}

func (s *SQLiteStore) appendHistory(ctx context.Context, q *db.Queries, commandLine string) (HistoryEntry, error) {
	h := HistoryEntry{
		RunID:       uuid.NewString(),
		CommandLine: commandLine,
		RecordedAt:  s.Now().UTC().Truncate(time.Second),
	}
	seq, err := q.InsertHistory(ctx, db.HistoryRow{
		RunID:       h.RunID,
		CommandLine: h.CommandLine,
		RecordedAt:  h.RecordedAt.Unix(),
	})
	if err != nil {
		return HistoryEntry{}, fmt.Errorf("append processing history: %w", err)
	}
	h.Seq = seq
	return h, nil
}

func (s *SQLiteStore) CommitRun(ctx context.Context, entries []Assignment, commandLine string) (HistoryEntry, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return HistoryEntry{}, fmt.Errorf("begin commit: %w", err)
	}
	defer func() {
		if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			ctxlog.FromContext(ctx).Warn("rollback metadata commit", "err", err)
		}
	}()

	q := s.queries.WithTx(ctx, tx)
	for _, a := range entries {
		if err := s.writeEntry(ctx, q, a.Key, a.Value); err != nil {
			return HistoryEntry{}, err
		}
	}
	h, err := s.appendHistory(ctx, q, commandLine)
	if err != nil {
		return HistoryEntry{}, err
	}

	if err := tx.Commit(); err != nil {
		return HistoryEntry{}, fmt.Errorf("commit metadata: %w", err)
	}
	return h, nil
}

func (s *SQLiteStore) History(ctx context.Context) ([]HistoryEntry, error) {
	rows, err := s.queries.History(ctx)
	if err != nil {
		return nil, fmt.Errorf("read processing history: %w", err)
	}
	out := make([]HistoryEntry, 0, len(rows))
	for _, r := range rows {
		out = append(out, HistoryEntry{
			Seq:         r.Seq,
			RunID:       r.RunID,
			CommandLine: r.CommandLine,
			RecordedAt:  time.Unix(r.RecordedAt, 0).UTC(),
		})
	}
	return out, nil
}
