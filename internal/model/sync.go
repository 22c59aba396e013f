package model

import (
	"encoding/json"
	"time"
)

// SyncOp is the remote operation a queue entry represents.
type SyncOp string

const (
	OpInsert SyncOp = "INSERT"
	OpUpdate SyncOp = "UPDATE"
	OpDelete SyncOp = "DELETE"
)

// Sync queue entry states. Pending entries are retried with backoff; dead
// entries failed too many times and wait for manual requeue or discard.
const (
	SyncStatusPending = "pending"
	SyncStatusDead    = "dead"
)

// SyncEntry is one pending local mutation awaiting remote confirmation.
// Entries are processed in id order (FIFO) and removed only after the remote
// operation succeeds.
type SyncEntry struct {
	ID            int64           `json:"id"`
	TableName     string          `json:"table_name"`
	RecordID      string          `json:"record_id"`
	Op            SyncOp          `json:"operation"`
	Payload       json.RawMessage `json:"payload,omitempty"`
	Status        string          `json:"status"`
	Attempts      int             `json:"attempts"`
	LastError     string          `json:"last_error,omitempty"`
	NextAttemptAt time.Time       `json:"next_attempt_at"`
	CreatedAt     time.Time       `json:"created_at"`
}
