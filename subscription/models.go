// Package subscription models the time-boxed subscriber-to-creator
// relationship.
package subscription

import (
	"time"

	"github.com/xraph/paywall/id"
	"github.com/xraph/paywall/types"
)

// Status is the lifecycle state of a subscription.
type Status string

const (
	StatusActive   Status = "active"
	StatusCanceled Status = "canceled"
	// StatusExpired is set by the expiry sweeper for bookkeeping; ActiveAt
	// never depends on it, a lapsed term denies entitlement on its own.
	StatusExpired Status = "expired"
)

// Term is the fixed subscription length. There is no partial-period logic
// and no auto-renew: renewal is re-invoking subscribe, which upserts the
// (subscriber, creator) pair with a fresh term.
const Term = 30 * 24 * time.Hour

// Subscription links a subscriber to a creator for one prepaid term.
// The (SubscriberID, CreatorID) pair is unique; subscribing again replaces
// the existing row rather than adding a second one.
type Subscription struct {
	types.Entity
	ID           id.SubscriptionID `json:"id"`
	SubscriberID string            `json:"subscriber_id"`
	CreatorID    string            `json:"creator_id"`
	Status       Status            `json:"status"`
	StartsAt     time.Time         `json:"starts_at"`
	EndsAt       time.Time         `json:"ends_at"`
	CanceledAt   *time.Time        `json:"canceled_at,omitempty"`
}

// ActiveAt reports whether the subscription entitles the subscriber at the
// given instant. Both conditions must hold: the status is active AND the
// term has not lapsed. Cancellation therefore revokes entitlement
// immediately, not at the end of the prepaid term. That is deliberate
// policy, not an accident of the boolean AND.
func (s *Subscription) ActiveAt(now time.Time) bool {
	return s.Status == StatusActive && now.Before(s.EndsAt)
}
