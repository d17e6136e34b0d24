// ABOUTME: Import bookkeeping for external inquiry sources in sync_state and sync_log
// ABOUTME: Tracks which source messages became records and the last sync per service
package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Sync statuses.
const (
	SyncIdle    = "idle"
	SyncRunning = "syncing"
	SyncError   = "error"
)

// SyncState represents the sync state for a service.
type SyncState struct {
	Service       string
	LastSyncTime  *time.Time
	LastSyncToken *string
	Status        string
	ErrorMessage  *string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// ImportLog records imported source messages so a re-run skips them.
type ImportLog struct {
	db *sql.DB
}

func NewImportLog(db *sql.DB) *ImportLog {
	return &ImportLog{db: db}
}

// Seen checks if a source message has already been imported.
func (l *ImportLog) Seen(ctx context.Context, service, sourceID string) (bool, error) {
	var count int
	err := l.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM sync_log
		WHERE source_service = ? AND source_id = ?
	`, service, sourceID).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check sync log: %w", err)
	}
	return count > 0, nil
}

// Record creates a sync log entry for an imported record.
func (l *ImportLog) Record(ctx context.Context, service, sourceID, kind string, recordID uuid.UUID) error {
	_, err := l.db.ExecContext(ctx, `
		INSERT INTO sync_log (id, source_service, source_id, entity_type, entity_id, imported_at)
		VALUES (?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(source_service, source_id) DO NOTHING
	`, uuid.NewString(), service, sourceID, kind, recordID.String())
	if err != nil {
		return fmt.Errorf("failed to create sync log: %w", err)
	}
	return nil
}

// SetStatus updates the sync status for a service. An empty errMsg clears it.
func (l *ImportLog) SetStatus(ctx context.Context, service, status, errMsg string) error {
	var errorMsgVal sql.NullString
	if errMsg != "" {
		errorMsgVal = sql.NullString{String: errMsg, Valid: true}
	}

	_, err := l.db.ExecContext(ctx, `
		INSERT INTO sync_state (service, status, error_message, created_at, updated_at)
		VALUES (?, ?, ?, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
		ON CONFLICT(service) DO UPDATE SET
			status = excluded.status,
			error_message = excluded.error_message,
			updated_at = CURRENT_TIMESTAMP
	`, service, status, errorMsgVal)
	if err != nil {
		return fmt.Errorf("failed to update sync status: %w", err)
	}
	return nil
}

// MarkSynced stores the sync token and sets the service back to idle.
func (l *ImportLog) MarkSynced(ctx context.Context, service, token string) error {
	_, err := l.db.ExecContext(ctx, `
		INSERT INTO sync_state (service, last_sync_time, last_sync_token, status, created_at, updated_at)
		VALUES (?, CURRENT_TIMESTAMP, ?, 'idle', CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
		ON CONFLICT(service) DO UPDATE SET
			last_sync_time = CURRENT_TIMESTAMP,
			last_sync_token = excluded.last_sync_token,
			status = 'idle',
			error_message = NULL,
			updated_at = CURRENT_TIMESTAMP
	`, service, token)
	if err != nil {
		return fmt.Errorf("failed to update sync token: %w", err)
	}
	return nil
}

// State retrieves the sync state for a service, or nil if it never ran.
func (l *ImportLog) State(ctx context.Context, service string) (*SyncState, error) {
	rows, err := l.query(ctx, `WHERE service = ?`, service)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

// States retrieves the sync state for all services.
func (l *ImportLog) States(ctx context.Context) ([]SyncState, error) {
	return l.query(ctx, `ORDER BY service`)
}

func (l *ImportLog) query(ctx context.Context, clause string, args ...any) ([]SyncState, error) {
	rows, err := l.db.QueryContext(ctx, `
		SELECT service, last_sync_time, last_sync_token, status, error_message, created_at, updated_at
		FROM sync_state `+clause, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query sync states: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var states []SyncState
	for rows.Next() {
		var state SyncState
		var lastSyncTime sql.NullTime
		var lastSyncToken sql.NullString
		var errorMessage sql.NullString

		err := rows.Scan(
			&state.Service,
			&lastSyncTime,
			&lastSyncToken,
			&state.Status,
			&errorMessage,
			&state.CreatedAt,
			&state.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan sync state: %w", err)
		}

		if lastSyncTime.Valid {
			state.LastSyncTime = &lastSyncTime.Time
		}
		if lastSyncToken.Valid {
			state.LastSyncToken = &lastSyncToken.String
		}
		if errorMessage.Valid {
			state.ErrorMessage = &errorMessage.String
		}

		states = append(states, state)
	}

	if err := rows.Err(); err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("error iterating sync states: %w", err)
	}
	return states, nil
}
