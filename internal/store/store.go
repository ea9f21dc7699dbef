// Package store persists the mirrored did:plc operation log in
// PostgreSQL. It is a thin collaborator around internal/plccore: it
// never validates, never computes a CID, and never decides
// nullification — it only appends rows the importer hands it and
// replays them in order for plccore.ValidateLog to fold over.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/primal-host/plcmirror/internal/plccore"
)

// Store wraps a pgx connection pool with operation-log persistence.
type Store struct {
	Pool *pgxpool.Pool
}

// Open connects to PostgreSQL, verifies the connection, and bootstraps
// the schema.
func Open(ctx context.Context, connString string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("store: parse config: %w", err)
	}

	cfg.MaxConns = 10
	cfg.MinConns = 1
	cfg.MaxConnLifetime = 30 * time.Minute
	cfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("store: connect: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("store: ping: %w", err)
	}

	if _, err := pool.Exec(ctx, Schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("store: bootstrap schema: %w", err)
	}

	return &Store{Pool: pool}, nil
}

// Close shuts down the connection pool.
func (s *Store) Close() {
	s.Pool.Close()
}

// AppendOp inserts one operation into the log. It is idempotent on
// (did, cid): re-importing an already-seen operation is a no-op and
// reports ok=false rather than an error.
func (s *Store) AppendOp(ctx context.Context, did, cidStr string, op *plccore.Op, createdAt time.Time) (ok bool, err error) {
	payload, err := json.Marshal(op)
	if err != nil {
		return false, fmt.Errorf("store: marshal op: %w", err)
	}

	tag, err := s.Pool.Exec(ctx,
		`INSERT INTO plc_ops (did, cid, op_json, created_at)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (did, cid) DO NOTHING`,
		did, cidStr, payload, createdAt,
	)
	if err != nil {
		return false, fmt.Errorf("store: append op %s/%s: %w", did, cidStr, err)
	}
	return tag.RowsAffected() > 0, nil
}

// OpsForDID loads the full ordered operation log for one DID, the only
// read path plccore.ValidateLog needs.
func (s *Store) OpsForDID(ctx context.Context, did string) ([]plccore.IndexedOperation, error) {
	rows, err := s.Pool.Query(ctx,
		`SELECT cid, op_json, created_at FROM plc_ops
		 WHERE did = $1 ORDER BY seq ASC`, did)
	if err != nil {
		return nil, fmt.Errorf("store: ops for %s: %w", did, err)
	}
	defer rows.Close()

	var ops []plccore.IndexedOperation
	for rows.Next() {
		var cidStr string
		var payload []byte
		var createdAt time.Time
		if err := rows.Scan(&cidStr, &payload, &createdAt); err != nil {
			return nil, fmt.Errorf("store: scan op: %w", err)
		}
		var op plccore.Op
		if err := json.Unmarshal(payload, &op); err != nil {
			return nil, fmt.Errorf("store: unmarshal op %s: %w", cidStr, err)
		}
		ops = append(ops, plccore.IndexedOperation{Op: op, CID: cidStr, CreatedAt: createdAt})
	}
	return ops, rows.Err()
}

// ExportRow is a single row of the on-wire jsonlines export format.
type ExportRow struct {
	DID       string      `json:"did"`
	Operation *plccore.Op `json:"operation"`
	CID       string      `json:"cid"`
	Nullified bool        `json:"nullified"`
	CreatedAt time.Time   `json:"createdAt"`
}

// ExportStream streams rows in created_at ascending order for the
// /export route. did and after are optional filters ("" / zero time
// disables them); count caps the number of rows returned.
func (s *Store) ExportStream(ctx context.Context, after time.Time, count int, did string) ([]ExportRow, error) {
	query := `SELECT did, cid, op_json, created_at FROM plc_ops WHERE created_at > $1`
	args := []any{after}
	if did != "" {
		query += ` AND did = $2`
		args = append(args, did)
	}
	query += ` ORDER BY created_at ASC LIMIT ` + fmt.Sprintf("%d", count)

	rows, err := s.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("store: export stream: %w", err)
	}
	defer rows.Close()

	var out []ExportRow
	for rows.Next() {
		var row ExportRow
		var payload []byte
		if err := rows.Scan(&row.DID, &row.CID, &payload, &row.CreatedAt); err != nil {
			return nil, fmt.Errorf("store: export scan: %w", err)
		}
		var op plccore.Op
		if err := json.Unmarshal(payload, &op); err != nil {
			return nil, fmt.Errorf("store: export unmarshal %s: %w", row.CID, err)
		}
		row.Operation = &op
		out = append(out, row)
	}
	return out, rows.Err()
}

// Cursor returns the last createdAt the importer has durably recorded,
// or the zero time if no cursor has been written yet.
func (s *Store) Cursor(ctx context.Context) (time.Time, error) {
	var after time.Time
	err := s.Pool.QueryRow(ctx, `SELECT after FROM import_cursor WHERE id = 1`).Scan(&after)
	if err == pgx.ErrNoRows {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("store: read cursor: %w", err)
	}
	return after, nil
}

// SetCursor durably records the importer's resume point.
func (s *Store) SetCursor(ctx context.Context, after time.Time) error {
	_, err := s.Pool.Exec(ctx,
		`INSERT INTO import_cursor (id, after, updated_at) VALUES (1, $1, NOW())
		 ON CONFLICT (id) DO UPDATE SET after = EXCLUDED.after, updated_at = NOW()`,
		after,
	)
	if err != nil {
		return fmt.Errorf("store: set cursor: %w", err)
	}
	return nil
}
