// Package store defines the unified storage interface for all Paywall
// entities. Correctness under concurrent requests, possibly from multiple
// processes, comes from the datastore's constraint and transaction
// guarantees, never from in-process locks, so the constraint-bearing
// operations live here rather than in application code.
package store

import (
	"context"
	"time"

	"github.com/xraph/paywall/id"
	"github.com/xraph/paywall/post"
	"github.com/xraph/paywall/profile"
	"github.com/xraph/paywall/subscription"
	"github.com/xraph/paywall/unlock"
	"github.com/xraph/paywall/wallet"
)

// Store is the unified storage interface. Instead of embedding the
// per-entity sub-interfaces, all methods are declared explicitly to avoid
// naming conflicts.
//
// Error contract: implementations return the paywall sentinel errors
// (ErrPostNotFound, ErrInsufficientBalance, ErrAlreadyUnlocked,
// ErrConstraintConflict, ...) so that callers never match on driver errors.
type Store interface {
	// Post methods
	CreatePost(ctx context.Context, p *post.Post) error
	GetPost(ctx context.Context, postID id.PostID) (*post.Post, error)
	UpdatePost(ctx context.Context, p *post.Post) error
	SoftDeletePost(ctx context.Context, postID id.PostID) error
	ListPostsByCreator(ctx context.Context, creatorID string, opts post.ListOpts) ([]*post.Post, error)

	// Profile methods
	GetProfile(ctx context.Context, userID string) (*profile.Profile, error)
	UpsertProfile(ctx context.Context, p *profile.Profile) error

	// Subscription methods
	UpsertSubscription(ctx context.Context, s *subscription.Subscription) error
	GetSubscription(ctx context.Context, subscriberID, creatorID string) (*subscription.Subscription, error)
	CancelSubscription(ctx context.Context, subscriberID, creatorID string, canceledAt time.Time) (bool, error)
	ListSubscriptionsByCreator(ctx context.Context, creatorID string, opts subscription.ListOpts) ([]*subscription.Subscription, error)
	ExpireSubscriptions(ctx context.Context, now time.Time) ([]*subscription.Subscription, error)

	// Unlock methods
	GetUnlock(ctx context.Context, userID string, postID id.PostID) (*unlock.Unlock, error)
	ListUnlocksByUser(ctx context.Context, userID string, opts unlock.ListOpts) ([]*unlock.Unlock, error)

	// ApplyUnlock executes the paid unlock as one atomic unit: insert the
	// unlock row, apply the fan debit against the available balance, apply
	// the creator credit to pending, and append both ledger rows. The
	// (user, post) uniqueness constraint resolves concurrent duplicates:
	// the loser observes ErrAlreadyUnlocked; a balance that cannot cover the
	// debit yields ErrInsufficientBalance. Either way the datastore is left
	// exactly as it was: no orphaned unlock row without its debit, and vice
	// versa.
	ApplyUnlock(ctx context.Context, u *unlock.Unlock, debit, credit *wallet.Transaction) error

	// Wallet methods
	GetOrCreateAccount(ctx context.Context, userID string, currency string) (*wallet.Account, error)
	GetBalance(ctx context.Context, userID string) (wallet.Balance, error)
	// ApplyTransaction mutates a balance and appends the ledger row as one
	// atomic operation. Debits use a conditional update and fail with
	// ErrInsufficientBalance instead of driving the balance negative.
	ApplyTransaction(ctx context.Context, txn *wallet.Transaction) error
	ListTransactions(ctx context.Context, userID string, opts wallet.ListOpts) ([]*wallet.Transaction, error)

	// Core methods
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}
