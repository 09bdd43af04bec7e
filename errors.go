package paywall

import (
	"errors"
	"fmt"
)

// Sentinel errors for common failure scenarios.
//
// Expected business outcomes (insufficient balance, already unlocked, access
// denied) are modeled as return values wherever possible; the sentinels below
// exist so stores and callers can classify conditions without string matching.
var (
	// General errors
	ErrNotFound        = errors.New("paywall: not found")
	ErrAlreadyExists   = errors.New("paywall: already exists")
	ErrInvalidInput    = errors.New("paywall: invalid input")
	ErrUnauthenticated = errors.New("paywall: unauthenticated")
	ErrForbidden       = errors.New("paywall: forbidden")

	// Post errors
	ErrPostNotFound   = errors.New("paywall: post not found")
	ErrPostDeleted    = errors.New("paywall: post deleted")
	ErrNotPayPerView  = errors.New("paywall: post is not pay-per-view")
	ErrPriceMismatch  = errors.New("paywall: price does not match post price")
	ErrImmutableField = errors.New("paywall: visibility and price are immutable after creation")

	// Profile errors
	ErrProfileNotFound = errors.New("paywall: profile not found")
	ErrCreatorBanned   = errors.New("paywall: creator is banned")

	// Subscription errors
	ErrSubscriptionNotFound = errors.New("paywall: subscription not found")
	ErrNoActiveSubscription = errors.New("paywall: no active subscription")
	ErrSelfSubscription     = errors.New("paywall: cannot subscribe to yourself")

	// Wallet and unlock errors
	ErrAccountNotFound     = errors.New("paywall: wallet account not found")
	ErrInsufficientBalance = errors.New("paywall: insufficient available balance")
	ErrAlreadyUnlocked     = errors.New("paywall: post already unlocked")
	ErrUnlockNotFound      = errors.New("paywall: unlock not found")
	ErrInvalidAmount       = errors.New("paywall: invalid transaction amount")
	ErrCurrencyMismatch    = errors.New("paywall: currency mismatch")

	// Store errors
	ErrConstraintConflict = errors.New("paywall: datastore constraint conflict")
	ErrStoreNotReady      = errors.New("paywall: store not ready")
	ErrStoreClosed        = errors.New("paywall: store is closed")
	ErrTransactionFailed  = errors.New("paywall: transaction failed")
	ErrMigrationFailed    = errors.New("paywall: migration failed")
)

// ValidationError represents a validation failure with details.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("paywall: validation failed for %s: %s", e.Field, e.Message)
}

// IsNotFound returns true if the error is a not found error. Geo-blocked and
// soft-deleted content is surfaced through this class as well, so callers
// cannot distinguish "hidden from you" from "does not exist".
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrPostNotFound) ||
		errors.Is(err, ErrPostDeleted) ||
		errors.Is(err, ErrProfileNotFound) ||
		errors.Is(err, ErrSubscriptionNotFound) ||
		errors.Is(err, ErrUnlockNotFound) ||
		errors.Is(err, ErrAccountNotFound)
}

// IsExpectedOutcome returns true for conditions that are normal results of
// the unlock flow rather than faults: they are logged, never alerted, and
// must not surface as internal errors.
func IsExpectedOutcome(err error) bool {
	return errors.Is(err, ErrInsufficientBalance) ||
		errors.Is(err, ErrAlreadyUnlocked) ||
		errors.Is(err, ErrNoActiveSubscription)
}

// IsInvalid returns true if the error represents a client mistake
// (bad price, wrong visibility for the operation, malformed input).
func IsInvalid(err error) bool {
	return errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrNotPayPerView) ||
		errors.Is(err, ErrPriceMismatch) ||
		errors.Is(err, ErrImmutableField) ||
		errors.Is(err, ErrInvalidAmount) ||
		errors.Is(err, ErrCurrencyMismatch) ||
		errors.Is(err, ErrSelfSubscription)
}

// IsRetryable returns true if the error is temporary and the operation can be
// retried. A retried unlock that lost its race resolves to AlreadyUnlocked on
// the next attempt, so constraint conflicts are retryable by definition.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrConstraintConflict) ||
		errors.Is(err, ErrStoreNotReady) ||
		errors.Is(err, ErrTransactionFailed)
}
