// Package syncq drains the local mutation queue against the remote backend.
package syncq

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/larder-app/larder/internal/model"
	"github.com/larder-app/larder/internal/remote"
	"github.com/larder-app/larder/internal/store"
)

const (
	// DefaultMaxAttempts is the failure count after which an entry is
	// dead-lettered instead of retried.
	DefaultMaxAttempts = 10

	baseBackoff = 2 * time.Second
	maxBackoff  = 10 * time.Minute
)

// Result summarizes one queue pass.
type Result struct {
	Processed int
	Failed    int
	Skipped   int
}

// Processor replays queued mutations in FIFO order. At most one pass runs at
// a time; a Process call while another pass is active returns immediately.
type Processor struct {
	mu          sync.Mutex
	queue       *store.SyncStore
	mirror      *store.Mirror
	api         remote.API
	maxAttempts int
	logger      *slog.Logger

	// notify, when set, is called after any pass that changed queue state.
	notify func()
}

func NewProcessor(queue *store.SyncStore, mirror *store.Mirror, api remote.API, logger *slog.Logger) *Processor {
	return &Processor{
		queue:       queue,
		mirror:      mirror,
		api:         api,
		maxAttempts: DefaultMaxAttempts,
		logger:      logger,
	}
}

// SetMaxAttempts overrides the dead-letter threshold. Values below 1 are
// ignored.
func (p *Processor) SetMaxAttempts(n int) {
	if n >= 1 {
		p.maxAttempts = n
	}
}

// OnChange registers a callback fired after a pass that modified the queue.
func (p *Processor) OnChange(fn func()) {
	p.notify = fn
}

// Gate returns a lock that excludes queue passes while held. Multi-step local
// writes hold it so a pass cannot rewrite identifiers they still carry in
// memory between steps.
func (p *Processor) Gate() sync.Locker {
	return &p.mu
}

// Process drains every due pending entry. Entries fail independently: a
// failing entry is recorded and the pass moves on, so one poisoned mutation
// cannot wedge the queue behind it.
func (p *Processor) Process(ctx context.Context) (Result, error) {
	if !p.mu.TryLock() {
		return Result{}, nil
	}
	defer p.mu.Unlock()

	entries, err := p.queue.ListPending(time.Now())
	if err != nil {
		return Result{}, fmt.Errorf("list pending: %w", err)
	}

	var res Result
	for _, entry := range entries {
		if ctx.Err() != nil {
			break
		}

		// A mutation addressing a row that still has a temporary id cannot
		// be applied until the insert ahead of it succeeds and rewrites it.
		if entry.Op != model.OpInsert && model.IsTempID(entry.RecordID) {
			res.Skipped++
			continue
		}

		if err := p.apply(ctx, entry); err != nil {
			res.Failed++
			p.recordFailure(entry, err)
			continue
		}
		res.Processed++

		if err := p.queue.Delete(entry.ID); err != nil {
			p.logger.Error("remove completed sync entry", "id", entry.ID, "error", err)
		}
	}

	if (res.Processed > 0 || res.Failed > 0) && p.notify != nil {
		p.notify()
	}
	if res.Processed > 0 || res.Failed > 0 {
		p.logger.Info("sync pass complete",
			"processed", res.Processed, "failed", res.Failed, "skipped", res.Skipped)
	}
	return res, nil
}

func (p *Processor) apply(ctx context.Context, entry model.SyncEntry) error {
	switch entry.Op {
	case model.OpInsert:
		newID, err := p.api.Insert(ctx, entry.TableName, remote.StripLocalFields(entry.Payload))
		if err != nil {
			return err
		}
		// Swap the temporary id for the canonical one everywhere it appears,
		// including payloads of entries still behind this one in the queue.
		if err := p.mirror.RewriteID(entry.TableName, entry.RecordID, newID); err != nil {
			return fmt.Errorf("rewrite %s id: %w", entry.TableName, err)
		}
		if entry.RecordID == newID {
			return p.mirror.MarkSynced(entry.TableName, newID)
		}
		return nil

	case model.OpUpdate:
		if err := p.api.Update(ctx, entry.TableName, entry.RecordID, remote.StripLocalFields(entry.Payload)); err != nil {
			return err
		}
		return p.mirror.MarkSynced(entry.TableName, entry.RecordID)

	case model.OpDelete:
		if err := p.api.Delete(ctx, entry.TableName, entry.RecordID); err != nil {
			return err
		}
		// The local row is normally gone already; this covers flows that
		// defer local deletion until the remote confirms.
		return p.mirror.DeleteRow(entry.TableName, entry.RecordID)

	default:
		return fmt.Errorf("unknown sync operation %q", entry.Op)
	}
}

func (p *Processor) recordFailure(entry model.SyncEntry, cause error) {
	attempts := entry.Attempts + 1
	dead := attempts >= p.maxAttempts
	next := time.Now().UTC().Add(backoffFor(attempts))

	if err := p.queue.RecordFailure(entry.ID, cause.Error(), next, dead); err != nil {
		p.logger.Error("record sync failure", "id", entry.ID, "error", err)
		return
	}
	if dead {
		p.logger.Warn("sync entry dead-lettered",
			"id", entry.ID, "table", entry.TableName, "record", entry.RecordID,
			"attempts", attempts, "error", cause)
	} else {
		p.logger.Warn("sync entry failed",
			"id", entry.ID, "table", entry.TableName, "record", entry.RecordID,
			"attempts", attempts, "retry_at", next, "error", cause)
	}
}

// backoffFor returns the delay before the given attempt number, following an
// exponential schedule capped at maxBackoff.
func backoffFor(attempts int) time.Duration {
	b := retry.WithCappedDuration(maxBackoff, retry.NewExponential(baseBackoff))
	d := baseBackoff
	for i := 0; i < attempts; i++ {
		next, stopped := b.Next()
		if stopped {
			break
		}
		d = next
	}
	return d
}
