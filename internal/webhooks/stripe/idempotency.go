package stripewebhook

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/angelmondragon/boardpro-billing/pkg/redis"
)

// DefaultScope namespaces Stripe event ids inside the idempotency keyspace.
const DefaultScope = "stripe-webhook"

// Stripe keeps redelivering an unacknowledged event for up to three days.
const defaultMarkerTTL = 72 * time.Hour

// IdempotencyGuard remembers Stripe event ids whose reconciliation has
// committed, so a redelivery can be acknowledged without calling Stripe.
// The marker is only a shortcut: reconciliation itself is idempotent, and
// an event without a marker is always reconciled again.
type IdempotencyGuard struct {
	store redis.IdempotencyStore
	ttl   time.Duration
	scope string
	now   func() time.Time
}

// NewIdempotencyGuard builds a guard; a zero ttl means three days.
func NewIdempotencyGuard(store redis.IdempotencyStore, ttl time.Duration, scope string) (*IdempotencyGuard, error) {
	switch {
	case store == nil:
		return nil, errors.New("idempotency store is required")
	case ttl < 0:
		return nil, errors.New("ttl must be non-negative")
	case ttl == 0:
		ttl = defaultMarkerTTL
	}
	if scope = strings.TrimSpace(scope); scope == "" {
		scope = DefaultScope
	}
	return &IdempotencyGuard{store: store, ttl: ttl, scope: scope, now: time.Now}, nil
}

// Processed reports whether eventID was already reconciled and committed.
func (g *IdempotencyGuard) Processed(ctx context.Context, eventID string) (bool, error) {
	key, err := g.key(eventID)
	if err != nil {
		return false, err
	}
	_, err = g.store.Get(ctx, key)
	switch {
	case errors.Is(err, goredis.Nil):
		return false, nil
	case err != nil:
		return false, fmt.Errorf("lookup %s: %w", eventID, err)
	}
	return true, nil
}

// MarkProcessed records eventID after its transaction committed. The marker
// value is the commit timestamp; an existing marker is left untouched.
func (g *IdempotencyGuard) MarkProcessed(ctx context.Context, eventID string) error {
	key, err := g.key(eventID)
	if err != nil {
		return err
	}
	if _, err := g.store.SetNX(ctx, key, g.now().UTC().Format(time.RFC3339), g.ttl); err != nil {
		return fmt.Errorf("mark %s: %w", eventID, err)
	}
	return nil
}

func (g *IdempotencyGuard) key(eventID string) (string, error) {
	if eventID = strings.TrimSpace(eventID); eventID == "" {
		return "", errors.New("event id is required")
	}
	return g.store.IdempotencyKey(g.scope, eventID), nil
}
