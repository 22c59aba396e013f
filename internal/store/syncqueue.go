package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/larder-app/larder/internal/model"
)

type SyncStore struct {
	db *sql.DB
}

func NewSyncStore(db *sql.DB) *SyncStore {
	return &SyncStore{db: db}
}

func scanSyncEntry(scanner interface{ Scan(...any) error }) (*model.SyncEntry, error) {
	var e model.SyncEntry
	var payload sql.NullString
	var op string

	err := scanner.Scan(
		&e.ID, &e.TableName, &e.RecordID, &op, &payload,
		&e.Status, &e.Attempts, &e.LastError, &e.NextAttemptAt, &e.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	e.Op = model.SyncOp(op)
	if payload.Valid {
		e.Payload = json.RawMessage(payload.String)
	}
	return &e, nil
}

const syncCols = `id, table_name, record_id, operation, payload, status, attempts, last_error, next_attempt_at, created_at`

// Enqueue appends a pending mutation. A storage fault here propagates to the
// caller: losing a queue entry silently would lose the change on restart.
func (s *SyncStore) Enqueue(table, recordID string, op model.SyncOp, payload json.RawMessage) (*model.SyncEntry, error) {
	if !KnownTable(table) {
		return nil, fmt.Errorf("enqueue: unknown table %q", table)
	}

	var p any
	if payload != nil {
		p = string(payload)
	}
	now := time.Now().UTC()
	result, err := s.db.Exec(
		`INSERT INTO sync_queue (table_name, record_id, operation, payload, status, next_attempt_at, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		table, recordID, string(op), p, model.SyncStatusPending, now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("enqueue sync entry: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *SyncStore) GetByID(id int64) (*model.SyncEntry, error) {
	row := s.db.QueryRow(`SELECT `+syncCols+` FROM sync_queue WHERE id = ?`, id)
	e, err := scanSyncEntry(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get sync entry: %w", err)
	}
	return e, nil
}

// ListPending returns pending entries due at or before now, in FIFO order.
func (s *SyncStore) ListPending(now time.Time) ([]model.SyncEntry, error) {
	rows, err := s.db.Query(
		`SELECT `+syncCols+` FROM sync_queue WHERE status = ? AND next_attempt_at <= ? ORDER BY id ASC`,
		model.SyncStatusPending, now.UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("list pending: %w", err)
	}
	defer rows.Close()
	return collectSyncEntries(rows)
}

// ListDead returns dead-lettered entries awaiting manual resolution.
func (s *SyncStore) ListDead() ([]model.SyncEntry, error) {
	rows, err := s.db.Query(
		`SELECT `+syncCols+` FROM sync_queue WHERE status = ? ORDER BY id ASC`,
		model.SyncStatusDead,
	)
	if err != nil {
		return nil, fmt.Errorf("list dead: %w", err)
	}
	defer rows.Close()
	return collectSyncEntries(rows)
}

// CountPending returns the number of entries still waiting for sync,
// including ones deferred by backoff.
func (s *SyncStore) CountPending() (int, error) {
	var n int
	err := s.db.QueryRow(
		`SELECT COUNT(*) FROM sync_queue WHERE status = ?`, model.SyncStatusPending,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count pending: %w", err)
	}
	return n, nil
}

// Delete removes an entry. Called only after its remote operation is
// confirmed, or on explicit discard.
func (s *SyncStore) Delete(id int64) error {
	if _, err := s.db.Exec(`DELETE FROM sync_queue WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete sync entry: %w", err)
	}
	return nil
}

// RecordFailure bumps the attempt counter, stores the error, and defers the
// entry until nextAttempt. dead moves the entry to the dead-letter state
// instead.
func (s *SyncStore) RecordFailure(id int64, errMsg string, nextAttempt time.Time, dead bool) error {
	status := model.SyncStatusPending
	if dead {
		status = model.SyncStatusDead
	}
	_, err := s.db.Exec(
		`UPDATE sync_queue SET attempts = attempts + 1, last_error = ?, next_attempt_at = ?, status = ? WHERE id = ?`,
		errMsg, nextAttempt.UTC(), status, id,
	)
	if err != nil {
		return fmt.Errorf("record failure: %w", err)
	}
	return nil
}

// Requeue returns a dead entry to the pending state with a reset attempt
// counter, making it immediately due.
func (s *SyncStore) Requeue(id int64) error {
	_, err := s.db.Exec(
		`UPDATE sync_queue SET status = ?, attempts = 0, last_error = '', next_attempt_at = ? WHERE id = ?`,
		model.SyncStatusPending, time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("requeue sync entry: %w", err)
	}
	return nil
}

func collectSyncEntries(rows *sql.Rows) ([]model.SyncEntry, error) {
	var entries []model.SyncEntry
	for rows.Next() {
		e, err := scanSyncEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan sync entry: %w", err)
		}
		entries = append(entries, *e)
	}
	return entries, rows.Err()
}
