// Package plugin provides an extensible plugin system for Paywall.
// Plugins can hook into various lifecycle events to extend functionality.
package plugin

import (
	"context"

	"github.com/xraph/paywall/types"
)

// Plugin is the base interface that all plugins must implement.
type Plugin interface {
	Name() string
}

// ──────────────────────────────────────────────────
// Lifecycle hooks
// ──────────────────────────────────────────────────

// OnInit is called when the plugin is initialized.
type OnInit interface {
	Plugin
	OnInit(ctx context.Context, engine interface{}) error
}

// OnShutdown is called when the plugin is shutting down.
type OnShutdown interface {
	Plugin
	OnShutdown(ctx context.Context) error
}

// ──────────────────────────────────────────────────
// Post lifecycle hooks
// ──────────────────────────────────────────────────

// OnPostCreated is called when a creator publishes a post.
type OnPostCreated interface {
	Plugin
	OnPostCreated(ctx context.Context, post interface{}) error
}

// OnPostDeleted is called when a post is soft-deleted.
type OnPostDeleted interface {
	Plugin
	OnPostDeleted(ctx context.Context, postID string) error
}

// ──────────────────────────────────────────────────
// Subscription lifecycle hooks
// ──────────────────────────────────────────────────

// OnSubscriptionCreated is called when a subscription is created or renewed.
type OnSubscriptionCreated interface {
	Plugin
	OnSubscriptionCreated(ctx context.Context, sub interface{}) error
}

// OnSubscriptionCanceled is called when a subscription is canceled.
type OnSubscriptionCanceled interface {
	Plugin
	OnSubscriptionCanceled(ctx context.Context, sub interface{}) error
}

// OnSubscriptionExpired is called when the sweeper marks a lapsed term.
type OnSubscriptionExpired interface {
	Plugin
	OnSubscriptionExpired(ctx context.Context, sub interface{}) error
}

// ──────────────────────────────────────────────────
// Unlock and wallet hooks
// ──────────────────────────────────────────────────

// OnPostUnlocked is called after a successful paid unlock. It fires exactly
// once per (user, post): the AlreadyUnlocked path does not re-emit.
type OnPostUnlocked interface {
	Plugin
	OnPostUnlocked(ctx context.Context, ulk interface{}) error
}

// OnUnlockRejected is called when an unlock attempt ends in an expected
// non-success (insufficient balance, invalid request).
type OnUnlockRejected interface {
	Plugin
	OnUnlockRejected(ctx context.Context, userID, postID string, status string) error
}

// OnDeposited is called after a wallet top-up.
type OnDeposited interface {
	Plugin
	OnDeposited(ctx context.Context, txn interface{}) error
}

// ──────────────────────────────────────────────────
// Entitlement hooks
// ──────────────────────────────────────────────────

// OnAccessChecked is called for every access decision.
type OnAccessChecked interface {
	Plugin
	OnAccessChecked(ctx context.Context, decision interface{}) error
}

// OnAccessDenied is called when an access check denies.
type OnAccessDenied interface {
	Plugin
	OnAccessDenied(ctx context.Context, viewerID, postID string, reason string) error
}

// OnGeoBlocked is called when a visitor is filtered by a creator's country
// list. The caller still surfaces not-found, never this event.
type OnGeoBlocked interface {
	Plugin
	OnGeoBlocked(ctx context.Context, creatorID, country string) error
}

// ──────────────────────────────────────────────────
// Fee policies
// ──────────────────────────────────────────────────

// FeePolicy computes the platform's cut of a pay-per-view price. The
// creator credit is price minus fee. At most one policy is consulted; when
// none is registered the engine's configured basis points apply.
type FeePolicy interface {
	Plugin
	PolicyName() string
	Fee(price types.Money) types.Money
}

// ──────────────────────────────────────────────────
// Country resolvers
// ──────────────────────────────────────────────────

// CountryResolver supplies a best-effort visitor country when none was put
// on the context. Returning "" means unknown, which fails open.
type CountryResolver interface {
	Plugin
	ResolveCountry(ctx context.Context) string
}
