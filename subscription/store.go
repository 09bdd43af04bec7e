package subscription

import (
	"context"
	"time"
)

// Store is the subscription persistence interface. Get backs the hot
// isActive read path, so implementations index the (subscriber, creator)
// pair.
type Store interface {
	// Upsert inserts or replaces the row for (s.SubscriberID, s.CreatorID).
	Upsert(ctx context.Context, s *Subscription) error
	Get(ctx context.Context, subscriberID, creatorID string) (*Subscription, error)
	// Cancel flips the pair's status to canceled. Returns false when no
	// subscription exists.
	Cancel(ctx context.Context, subscriberID, creatorID string, canceledAt time.Time) (bool, error)
	ListByCreator(ctx context.Context, creatorID string, opts ListOpts) ([]*Subscription, error)
	// Expire flips active rows whose term lapsed before now to expired and
	// returns them, so lifecycle hooks can fire.
	Expire(ctx context.Context, now time.Time) ([]*Subscription, error)
}

// ListOpts filters subscription listings.
type ListOpts struct {
	Status Status
	Limit  int
	Offset int
}
