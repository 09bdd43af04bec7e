// Package unlock models the one-time pay-per-view purchase record.
package unlock

import (
	"time"

	"github.com/xraph/paywall/id"
	"github.com/xraph/paywall/types"
)

// Unlock records that a user paid for a pay-per-view post. The
// (UserID, PostID) pair is unique; that uniqueness constraint is the
// idempotency anchor for the whole unlock flow. Rows are immutable and never
// deleted; they are financial records.
type Unlock struct {
	ID     id.UnlockID `json:"id"`
	UserID string      `json:"user_id"`
	PostID id.PostID   `json:"post_id"`
	// Price is the amount actually paid, captured at unlock time.
	Price types.Money `json:"price"`
	// EventID ties the unlock to its paired fan-debit and creator-credit
	// ledger rows.
	EventID   id.EventID `json:"event_id"`
	CreatedAt time.Time  `json:"created_at"`
}

// Status is the outcome class of an unlock attempt.
type Status string

const (
	// StatusUnlocked: this call charged the wallet and created the record.
	StatusUnlocked Status = "unlocked"
	// StatusAlreadyUnlocked: the record already existed; nothing was charged.
	// This is a successful idempotent no-op, not an error.
	StatusAlreadyUnlocked Status = "already_unlocked"
	// StatusInsufficientBalance: the wallet could not cover the price; no
	// state changed. Callers redirect the user to a top-up flow.
	StatusInsufficientBalance Status = "insufficient_balance"
	// StatusInvalid: missing post, wrong tier, or stale/tampered price; no
	// state changed.
	StatusInvalid Status = "invalid"
)

// Result is the tagged outcome of an unlock attempt. Expected outcomes are
// values, not errors: only datastore/infra failure surfaces as an error.
type Result struct {
	Status Status  `json:"status"`
	Unlock *Unlock `json:"unlock,omitempty"`
	Reason string  `json:"reason,omitempty"`
}

// Granted reports whether the viewer may see the post after this attempt,
// i.e. the unlock exists regardless of which call created it.
func (r *Result) Granted() bool {
	return r.Status == StatusUnlocked || r.Status == StatusAlreadyUnlocked
}
