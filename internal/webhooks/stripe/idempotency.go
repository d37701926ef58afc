package stripewebhook

import (
	"context"
	"time"

	pkgerrors "github.com/avalogan/silkstrands-backend/pkg/errors"
	"github.com/avalogan/silkstrands-backend/pkg/redis"
)

// IdempotencyGuard deduplicates webhook deliveries. Stripe retries events
// until acknowledged, so the first writer wins and every later delivery of
// the same event ID is dropped.
type IdempotencyGuard struct {
	store redis.IdempotencyStore
	ttl   time.Duration
	scope string
}

func NewIdempotencyGuard(store redis.IdempotencyStore, ttl time.Duration, scope string) (*IdempotencyGuard, error) {
	if store == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "idempotency store is required")
	}
	if ttl < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "ttl must be non-negative")
	}
	if scope == "" {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "scope is required")
	}
	return &IdempotencyGuard{store: store, ttl: ttl, scope: scope}, nil
}

// CheckAndMark reports whether the event was already processed, marking it
// as processed atomically when it was not.
func (g *IdempotencyGuard) CheckAndMark(ctx context.Context, eventID string) (bool, error) {
	if eventID == "" {
		return false, pkgerrors.New(pkgerrors.CodeValidation, "event id is required")
	}
	key := g.store.IdempotencyKey(g.scope, eventID)
	set, err := g.store.SetNX(ctx, key, "1", g.ttl)
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "set idempotency key")
	}
	return !set, nil
}

// Delete releases the mark so a failed event can be retried by Stripe.
func (g *IdempotencyGuard) Delete(ctx context.Context, eventID string) error {
	if eventID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "event id is required")
	}
	return g.store.Del(ctx, g.store.IdempotencyKey(g.scope, eventID))
}
