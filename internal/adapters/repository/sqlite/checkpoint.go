// Package sqlite stores run snapshots in an embedded SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/nickthelegend/cashlabs-flow-sub000/internal/core/checkpoint"
	"github.com/nickthelegend/cashlabs-flow-sub000/pkg/serialization"
)

const defaultTable = "run_snapshots"

// SnapshotSaver implements checkpoint.Saver for SQLite
type SnapshotSaver struct {
	db         *sql.DB
	serializer *serialization.Serializer
	tableName  string
}

// Open opens (or creates) the database at dsn and prepares the table.
func Open(ctx context.Context, dsn string) (*SnapshotSaver, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	s := NewSnapshotSaver(db, serialization.SnapshotSerializer())
	if err := s.CreateTables(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// NewSnapshotSaver creates a saver over an open database
func NewSnapshotSaver(db *sql.DB, serializer *serialization.Serializer) *SnapshotSaver {
	if serializer == nil {
		serializer = serialization.SnapshotSerializer()
	}
	return &SnapshotSaver{db: db, serializer: serializer, tableName: defaultTable}
}

// WithTableName overrides the table name. Only alphanumerics and
// underscore are accepted since the name is spliced into SQL.
func (s *SnapshotSaver) WithTableName(name string) *SnapshotSaver {
	if isSafeIdent(name) {
		s.tableName = name
	}
	return s
}

func isSafeIdent(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') || c == '_' {
			continue
		}
		return false
	}
	return true
}

// Save upserts a snapshot
func (s *SnapshotSaver) Save(ctx context.Context, snap *checkpoint.Snapshot) error {
	if snap == nil {
		return checkpoint.ErrNilSnapshot
	}
	if err := snap.Validate(); err != nil {
		return err
	}
	state, err := s.serializer.Serialize(snap.State)
	if err != nil {
		return fmt.Errorf("serialize snapshot state: %w", err)
	}

	query := fmt.Sprintf(`
		INSERT OR REPLACE INTO %s (id, graph_id, run_id, node_id, step, state, timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, s.tableName)
	if _, err := s.db.ExecContext(ctx, query,
		snap.ID, snap.GraphID, snap.RunID, snap.NodeID, snap.Step, state, snap.Timestamp.UnixNano()); err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	return nil
}

// Load retrieves a snapshot by ID
func (s *SnapshotSaver) Load(ctx context.Context, id string) (*checkpoint.Snapshot, error) {
	if id == "" {
		return nil, checkpoint.ErrInvalidSnapshotID
	}
	query := fmt.Sprintf(`SELECT id, graph_id, run_id, node_id, step, state, timestamp FROM %s WHERE id = ?`, s.tableName)
	snap, err := s.scan(s.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, checkpoint.ErrSnapshotNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load snapshot: %w", err)
	}
	return snap, nil
}

// List retrieves snapshots based on filter criteria, newest first
func (s *SnapshotSaver) List(ctx context.Context, filter checkpoint.Filter) ([]*checkpoint.Snapshot, error) {
	if err := filter.Validate(); err != nil {
		return nil, err
	}
	query, args := s.buildListQuery(filter)
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	defer rows.Close()

	var out []*checkpoint.Snapshot
	for rows.Next() {
		snap, err := s.scan(rows)
		if err != nil {
			return nil, fmt.Errorf("scan snapshot row: %w", err)
		}
		out = append(out, snap)
	}
	return out, rows.Err()
}

// Delete removes a snapshot by ID
func (s *SnapshotSaver) Delete(ctx context.Context, id string) error {
	if id == "" {
		return checkpoint.ErrInvalidSnapshotID
	}
	result, err := s.db.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s WHERE id = ?", s.tableName), id)
	if err != nil {
		return fmt.Errorf("delete snapshot: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return checkpoint.ErrSnapshotNotFound
	}
	return nil
}

// CreateTables creates the snapshot table and its indexes
func (s *SnapshotSaver) CreateTables(ctx context.Context) error {
	t := s.tableName
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			graph_id TEXT NOT NULL,
			run_id TEXT NOT NULL,
			node_id TEXT NOT NULL DEFAULT '',
			step INTEGER NOT NULL,
			state BLOB NOT NULL,
			timestamp INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_%s_run_id ON %s (run_id);
		CREATE INDEX IF NOT EXISTS idx_%s_graph_id ON %s (graph_id);
	`, t, t, t, t, t)
	if _, err := s.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("create tables: %w", err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func (s *SnapshotSaver) scan(row scanner) (*checkpoint.Snapshot, error) {
	var snap checkpoint.Snapshot
	var state []byte
	var ts int64
	if err := row.Scan(&snap.ID, &snap.GraphID, &snap.RunID, &snap.NodeID, &snap.Step, &state, &ts); err != nil {
		return nil, err
	}
	snap.Timestamp = time.Unix(0, ts).UTC()
	if err := s.serializer.Deserialize(state, &snap.State); err != nil {
		return nil, fmt.Errorf("deserialize snapshot state: %w", err)
	}
	return &snap, nil
}

func (s *SnapshotSaver) buildListQuery(filter checkpoint.Filter) (string, []interface{}) {
	query := fmt.Sprintf("SELECT id, graph_id, run_id, node_id, step, state, timestamp FROM %s WHERE 1=1", s.tableName)
	var args []interface{}

	if filter.GraphID != "" {
		query += " AND graph_id = ?"
		args = append(args, filter.GraphID)
	}
	if filter.RunID != "" {
		query += " AND run_id = ?"
		args = append(args, filter.RunID)
	}
	if filter.Since != nil {
		query += " AND timestamp > ?"
		args = append(args, filter.Since.UnixNano())
	}
	if filter.Before != nil {
		query += " AND timestamp < ?"
		args = append(args, filter.Before.UnixNano())
	}
	query += " ORDER BY timestamp DESC, step DESC"

	// SQLite needs LIMIT before OFFSET; -1 means unbounded.
	if filter.Limit > 0 || filter.Offset > 0 {
		limit := filter.Limit
		if limit == 0 {
			limit = -1
		}
		query += " LIMIT ? OFFSET ?"
		args = append(args, limit, filter.Offset)
	}
	return query, args
}

// Close closes the database connection
func (s *SnapshotSaver) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
