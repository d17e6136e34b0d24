// ABOUTME: SQLite implementation of store.Backend over the records table
// ABOUTME: Stores each entity as a JSON document keyed by kind and id
package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/harperreed/salesdesk/store"
)

// RecordBackend persists store records in SQLite.
type RecordBackend struct {
	db *sql.DB
}

func NewRecordBackend(db *sql.DB) *RecordBackend {
	return &RecordBackend{db: db}
}

// recordTimes pulls the timestamps out of a record document so they can be
// indexed alongside it.
func recordTimes(data []byte) (time.Time, time.Time, error) {
	var meta struct {
		CreatedAt time.Time `json:"createdAt"`
		UpdatedAt time.Time `json:"updatedAt"`
	}
	if err := json.Unmarshal(data, &meta); err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("failed to read record timestamps: %w", err)
	}
	return meta.CreatedAt, meta.UpdatedAt, nil
}

func (r *RecordBackend) Insert(ctx context.Context, kind string, id uuid.UUID, data []byte) error {
	createdAt, updatedAt, err := recordTimes(data)
	if err != nil {
		return err
	}

	var exists int
	err = r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM records WHERE kind = ? AND id = ?`, kind, id.String()).Scan(&exists)
	if err != nil {
		return fmt.Errorf("failed to check record: %w", err)
	}
	if exists > 0 {
		return fmt.Errorf("%s %s: %w", kind, id, store.ErrRecordExists)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO records (kind, id, data, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
	`, kind, id.String(), string(data), createdAt, updatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert record: %w", err)
	}
	return nil
}

func (r *RecordBackend) Update(ctx context.Context, kind string, id uuid.UUID, fn store.Mutator) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var current string
	err = tx.QueryRowContext(ctx, `SELECT data FROM records WHERE kind = ? AND id = ?`, kind, id.String()).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrRecordNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to read record: %w", err)
	}

	next, err := fn([]byte(current))
	if err != nil {
		return err
	}
	_, updatedAt, err := recordTimes(next)
	if err != nil {
		return err
	}

	result, err := tx.ExecContext(ctx, `
		UPDATE records SET data = ?, updated_at = ?
		WHERE kind = ? AND id = ?
	`, string(next), updatedAt, kind, id.String())
	if err != nil {
		return fmt.Errorf("failed to update record: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return store.ErrRecordNotFound
	}

	return tx.Commit()
}

func (r *RecordBackend) Get(ctx context.Context, kind string, id uuid.UUID) ([]byte, error) {
	var data string
	err := r.db.QueryRowContext(ctx, `SELECT data FROM records WHERE kind = ? AND id = ?`, kind, id.String()).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrRecordNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get record: %w", err)
	}
	return []byte(data), nil
}

func (r *RecordBackend) List(ctx context.Context, kind string) ([][]byte, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT data FROM records
		WHERE kind = ?
		ORDER BY created_at, id
	`, kind)
	if err != nil {
		return nil, fmt.Errorf("failed to list records: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out [][]byte
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		out = append(out, []byte(data))
	}
	return out, rows.Err()
}

func (r *RecordBackend) Close() error {
	return r.db.Close()
}
