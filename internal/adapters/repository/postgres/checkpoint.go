// Package postgres stores run snapshots in PostgreSQL through pgx.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nickthelegend/cashlabs-flow-sub000/internal/core/checkpoint"
	"github.com/nickthelegend/cashlabs-flow-sub000/pkg/serialization"
)

const tableName = "run_snapshots"

// SnapshotSaver implements checkpoint.Saver for PostgreSQL
type SnapshotSaver struct {
	pool       *pgxpool.Pool
	serializer *serialization.Serializer
}

// Open connects to dsn and prepares the table.
func Open(ctx context.Context, dsn string) (*SnapshotSaver, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	s := NewSnapshotSaver(pool, serialization.SnapshotSerializer())
	if err := s.CreateTables(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

// NewSnapshotSaver creates a saver over a pool
func NewSnapshotSaver(pool *pgxpool.Pool, serializer *serialization.Serializer) *SnapshotSaver {
	if serializer == nil {
		serializer = serialization.SnapshotSerializer()
	}
	return &SnapshotSaver{pool: pool, serializer: serializer}
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

	query := `
		INSERT INTO ` + tableName + ` (id, graph_id, run_id, node_id, step, state, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			node_id = EXCLUDED.node_id,
			step = EXCLUDED.step,
			state = EXCLUDED.state,
			created_at = EXCLUDED.created_at`
	if _, err := s.pool.Exec(ctx, query,
		snap.ID, snap.GraphID, snap.RunID, snap.NodeID, snap.Step, state, snap.Timestamp); err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	return nil
}

// Load retrieves a snapshot by ID
func (s *SnapshotSaver) Load(ctx context.Context, id string) (*checkpoint.Snapshot, error) {
	if id == "" {
		return nil, checkpoint.ErrInvalidSnapshotID
	}
	query := `SELECT id, graph_id, run_id, node_id, step, state, created_at FROM ` + tableName + ` WHERE id = $1`
	snap, err := s.scan(s.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
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
	query, args := buildListQuery(filter)
	rows, err := s.pool.Query(ctx, query, args...)
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
	tag, err := s.pool.Exec(ctx, `DELETE FROM `+tableName+` WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete snapshot: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return checkpoint.ErrSnapshotNotFound
	}
	return nil
}

// CreateTables creates the snapshot table and its indexes
func (s *SnapshotSaver) CreateTables(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS ` + tableName + ` (
			id TEXT PRIMARY KEY,
			graph_id TEXT NOT NULL,
			run_id TEXT NOT NULL,
			node_id TEXT NOT NULL DEFAULT '',
			step INTEGER NOT NULL,
			state BYTEA NOT NULL,
			created_at TIMESTAMPTZ NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_run_snapshots_run_id ON ` + tableName + ` (run_id);
		CREATE INDEX IF NOT EXISTS idx_run_snapshots_graph_id ON ` + tableName + ` (graph_id);`
	if _, err := s.pool.Exec(ctx, query); err != nil {
		return fmt.Errorf("create tables: %w", err)
	}
	return nil
}

// Close closes the pool
func (s *SnapshotSaver) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

func (s *SnapshotSaver) scan(row pgx.Row) (*checkpoint.Snapshot, error) {
	var snap checkpoint.Snapshot
	var state []byte
	var ts time.Time
	if err := row.Scan(&snap.ID, &snap.GraphID, &snap.RunID, &snap.NodeID, &snap.Step, &state, &ts); err != nil {
		return nil, err
	}
	snap.Timestamp = ts
	if err := s.serializer.Deserialize(state, &snap.State); err != nil {
		return nil, fmt.Errorf("deserialize snapshot state: %w", err)
	}
	return &snap, nil
}

func buildListQuery(filter checkpoint.Filter) (string, []interface{}) {
	query := `SELECT id, graph_id, run_id, node_id, step, state, created_at FROM ` + tableName + ` WHERE 1=1`
	var args []interface{}
	arg := func(v interface{}) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}

	if filter.GraphID != "" {
		query += " AND graph_id = " + arg(filter.GraphID)
	}
	if filter.RunID != "" {
		query += " AND run_id = " + arg(filter.RunID)
	}
	if filter.Since != nil {
		query += " AND created_at > " + arg(*filter.Since)
	}
	if filter.Before != nil {
		query += " AND created_at < " + arg(*filter.Before)
	}
	query += " ORDER BY created_at DESC, step DESC"
	if filter.Limit > 0 {
		query += " LIMIT " + arg(filter.Limit)
	}
	if filter.Offset > 0 {
		query += " OFFSET " + arg(filter.Offset)
	}
	return query, args
}
