// Package barcode resolves scanned product barcodes to food items through an
// ordered chain of lookup tiers.
package barcode

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/singleflight"

	"github.com/larder-app/larder/internal/model"
	"github.com/larder-app/larder/internal/openfood"
	"github.com/larder-app/larder/internal/remote"
	"github.com/larder-app/larder/internal/store"
)

// MinLength is the shortest barcode accepted for resolution. EAN-8 is the
// shortest real retail symbology.
const MinLength = 8

var (
	// ErrInvalidBarcode means the code is too short to be a product barcode.
	ErrInvalidBarcode = errors.New("invalid barcode")

	// ErrNotFound means no tier could resolve the barcode.
	ErrNotFound = errors.New("barcode not found")
)

// Tier is one stage of the lookup chain. A (nil, nil) return means the tier
// had no match and the next tier should be tried; an error means the tier
// itself failed.
type Tier interface {
	Name() string
	Resolve(ctx context.Context, code string) (*model.FoodItem, error)
}

// Resolver runs the tiers in order until one produces a match. Concurrent
// lookups for the same barcode share a single execution.
type Resolver struct {
	tiers  []Tier
	group  singleflight.Group
	logger *slog.Logger
}

func NewResolver(logger *slog.Logger, tiers ...Tier) *Resolver {
	return &Resolver{tiers: tiers, logger: logger}
}

// Resolve looks up a barcode. Tier failures are logged and fall through to
// the next tier; only an exhausted chain yields ErrNotFound.
func (r *Resolver) Resolve(ctx context.Context, code string) (*model.FoodItem, error) {
	if len(code) < MinLength {
		return nil, fmt.Errorf("%w: %q", ErrInvalidBarcode, code)
	}

	v, err, _ := r.group.Do(code, func() (any, error) {
		return r.resolve(ctx, code)
	})
	if err != nil {
		return nil, err
	}
	return v.(*model.FoodItem), nil
}

func (r *Resolver) resolve(ctx context.Context, code string) (*model.FoodItem, error) {
	for _, tier := range r.tiers {
		item, err := tier.Resolve(ctx, code)
		if err != nil {
			r.logger.Warn("barcode tier failed", "tier", tier.Name(), "barcode", code, "error", err)
			continue
		}
		if item != nil {
			r.logger.Debug("barcode resolved", "tier", tier.Name(), "barcode", code)
			return item, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrNotFound, code)
}

// LocalTier answers from the local mirror.
type LocalTier struct {
	foods *store.FoodStore
}

func NewLocalTier(foods *store.FoodStore) *LocalTier {
	return &LocalTier{foods: foods}
}

func (t *LocalTier) Name() string { return "local" }

func (t *LocalTier) Resolve(_ context.Context, code string) (*model.FoodItem, error) {
	return t.foods.GetByBarcode(code)
}

// RemoteTier queries the shared backend and caches hits into the local
// mirror. Skipped entirely while offline.
type RemoteTier struct {
	api    remote.API
	foods  *store.FoodStore
	online func() bool
}

func NewRemoteTier(api remote.API, foods *store.FoodStore, online func() bool) *RemoteTier {
	return &RemoteTier{api: api, foods: foods, online: online}
}

func (t *RemoteTier) Name() string { return "remote" }

func (t *RemoteTier) Resolve(ctx context.Context, code string) (*model.FoodItem, error) {
	if !t.online() {
		return nil, nil
	}
	item, err := t.api.FoodByBarcode(ctx, code)
	if errors.Is(err, remote.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	item.Synced = true
	cached, err := t.foods.Upsert(*item)
	if err != nil {
		return nil, fmt.Errorf("cache remote food: %w", err)
	}
	return cached, nil
}

// ExternalTier falls back to Open Food Facts. A hit is persisted remote
// first so the canonical id lands immediately; while offline, or when the
// remote write fails, the item is stored under a temporary id and an insert
// is queued.
type ExternalTier struct {
	off    *openfood.Client
	api    remote.API
	foods  *store.FoodStore
	queue  *store.SyncStore
	online func() bool
	userID string
	logger *slog.Logger
}

func NewExternalTier(off *openfood.Client, api remote.API, foods *store.FoodStore, queue *store.SyncStore, online func() bool, userID string, logger *slog.Logger) *ExternalTier {
	return &ExternalTier{
		off:    off,
		api:    api,
		foods:  foods,
		queue:  queue,
		online: online,
		userID: userID,
		logger: logger,
	}
}

func (t *ExternalTier) Name() string { return "openfoodfacts" }

func (t *ExternalTier) Resolve(ctx context.Context, code string) (*model.FoodItem, error) {
	if !t.online() {
		return nil, nil
	}

	item, err := t.off.Lookup(ctx, code)
	if errors.Is(err, openfood.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	item.UserID = t.userID

	if canonical, err := t.api.InsertFood(ctx, *item); err == nil {
		canonical.Synced = true
		return t.foods.Upsert(*canonical)
	} else {
		t.logger.Warn("remote persist failed, queueing", "barcode", code, "error", err)
	}

	// Offline-style fallback: temporary id now, canonical id when the queue
	// drains.
	item.ID = model.NewTempID()
	stored, err := t.foods.Create(*item)
	if err != nil {
		return nil, fmt.Errorf("store external food: %w", err)
	}
	payload, err := json.Marshal(stored)
	if err != nil {
		return nil, fmt.Errorf("encode food payload: %w", err)
	}
	if _, err := t.queue.Enqueue("food_items", stored.ID, model.OpInsert, payload); err != nil {
		return nil, err
	}
	return stored, nil
}
