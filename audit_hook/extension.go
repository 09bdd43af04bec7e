// Package audithook bridges Paywall lifecycle events to an audit trail
// backend.
//
// It defines a local Recorder interface so the package does not import
// Chronicle directly. Callers inject a RecorderFunc adapter that bridges
// to Chronicle at wiring time.
package audithook

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/xraph/paywall/plugin"
	"github.com/xraph/paywall/post"
	"github.com/xraph/paywall/subscription"
	"github.com/xraph/paywall/unlock"
	"github.com/xraph/paywall/wallet"
)

// Compile-time interface checks.
var (
	_ plugin.Plugin                 = (*Extension)(nil)
	_ plugin.OnPostCreated          = (*Extension)(nil)
	_ plugin.OnPostDeleted          = (*Extension)(nil)
	_ plugin.OnSubscriptionCreated  = (*Extension)(nil)
	_ plugin.OnSubscriptionCanceled = (*Extension)(nil)
	_ plugin.OnSubscriptionExpired  = (*Extension)(nil)
	_ plugin.OnPostUnlocked         = (*Extension)(nil)
	_ plugin.OnUnlockRejected       = (*Extension)(nil)
	_ plugin.OnDeposited            = (*Extension)(nil)
	_ plugin.OnAccessDenied         = (*Extension)(nil)
	_ plugin.OnGeoBlocked           = (*Extension)(nil)
)

// Recorder is the interface that audit backends must implement.
// This matches chronicle.Emitter but is defined locally so that the
// audit_hook package does not import Chronicle directly — callers inject
// the concrete *chronicle.Chronicle at wiring time.
type Recorder interface {
	Record(ctx context.Context, event *AuditEvent) error
}

// AuditEvent is a local representation of an audit event.
// It mirrors chronicle/audit.Event but avoids a module dependency.
type AuditEvent struct {
	Action     string         `json:"action"`
	Resource   string         `json:"resource"`
	Category   string         `json:"category"`
	ResourceID string         `json:"resource_id,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	Outcome    string         `json:"outcome"`
	Severity   string         `json:"severity"`
	Reason     string         `json:"reason,omitempty"`
}

// RecorderFunc is an adapter to use a plain function as a Recorder.
type RecorderFunc func(ctx context.Context, event *AuditEvent) error

// Record implements Recorder.
func (f RecorderFunc) Record(ctx context.Context, event *AuditEvent) error {
	return f(ctx, event)
}

// Extension bridges Paywall lifecycle events to an audit trail backend.
// Financial events (unlocks, deposits) are the primary audience; access
// denials round out the trail for abuse investigations.
type Extension struct {
	recorder Recorder
	enabled  map[string]bool // nil = all enabled
	logger   *slog.Logger
}

// New creates an Extension that emits audit events through the provided Recorder.
func New(r Recorder, opts ...Option) *Extension {
	e := &Extension{
		recorder: r,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Name implements plugin.Plugin.
func (e *Extension) Name() string { return "audit-hook" }

// ──────────────────────────────────────────────────
// Post lifecycle hooks
// ──────────────────────────────────────────────────

// OnPostCreated implements plugin.OnPostCreated.
func (e *Extension) OnPostCreated(ctx context.Context, v interface{}) error {
	var resourceID, creatorID, visibility string
	if p, ok := v.(*post.Post); ok {
		resourceID = p.ID.String()
		creatorID = p.CreatorID
		visibility = string(p.Visibility)
	}
	return e.record(ctx, ActionPostCreated, SeverityInfo, OutcomeSuccess,
		ResourcePost, resourceID, CategoryContent, nil,
		"creator_id", creatorID,
		"visibility", visibility,
	)
}

// OnPostDeleted implements plugin.OnPostDeleted.
func (e *Extension) OnPostDeleted(ctx context.Context, postID string) error {
	return e.record(ctx, ActionPostDeleted, SeverityInfo, OutcomeSuccess,
		ResourcePost, postID, CategoryContent, nil,
		"post_id", postID,
	)
}

// ──────────────────────────────────────────────────
// Subscription lifecycle hooks
// ──────────────────────────────────────────────────

// OnSubscriptionCreated implements plugin.OnSubscriptionCreated.
func (e *Extension) OnSubscriptionCreated(ctx context.Context, v interface{}) error {
	return e.record(ctx, ActionSubscriptionCreated, SeverityInfo, OutcomeSuccess,
		ResourceSubscription, subscriptionID(v), CategorySubscription, nil,
		subscriptionPairs(v)...,
	)
}

// OnSubscriptionCanceled implements plugin.OnSubscriptionCanceled.
func (e *Extension) OnSubscriptionCanceled(ctx context.Context, v interface{}) error {
	return e.record(ctx, ActionSubscriptionCanceled, SeverityInfo, OutcomeSuccess,
		ResourceSubscription, subscriptionID(v), CategorySubscription, nil,
		subscriptionPairs(v)...,
	)
}

// OnSubscriptionExpired implements plugin.OnSubscriptionExpired.
func (e *Extension) OnSubscriptionExpired(ctx context.Context, v interface{}) error {
	return e.record(ctx, ActionSubscriptionExpired, SeverityInfo, OutcomeSuccess,
		ResourceSubscription, subscriptionID(v), CategorySubscription, nil,
		subscriptionPairs(v)...,
	)
}

// ──────────────────────────────────────────────────
// Unlock and wallet hooks
// ──────────────────────────────────────────────────

// OnPostUnlocked implements plugin.OnPostUnlocked.
func (e *Extension) OnPostUnlocked(ctx context.Context, v interface{}) error {
	var resourceID string
	pairs := []any{}
	if u, ok := v.(*unlock.Unlock); ok {
		resourceID = u.ID.String()
		pairs = append(pairs,
			"user_id", u.UserID,
			"post_id", u.PostID.String(),
			"price", u.Price.String(),
			"event_id", u.EventID.String(),
		)
	}
	return e.record(ctx, ActionPostUnlocked, SeverityInfo, OutcomeSuccess,
		ResourceUnlock, resourceID, CategoryPayment, nil,
		pairs...,
	)
}

// OnUnlockRejected implements plugin.OnUnlockRejected.
func (e *Extension) OnUnlockRejected(ctx context.Context, userID, postID, status string) error {
	return e.record(ctx, ActionUnlockRejected, SeverityWarning, OutcomeFailure,
		ResourceUnlock, postID, CategoryPayment, nil,
		"user_id", userID,
		"post_id", postID,
		"status", status,
	)
}

// OnDeposited implements plugin.OnDeposited.
func (e *Extension) OnDeposited(ctx context.Context, v interface{}) error {
	var resourceID string
	pairs := []any{}
	if t, ok := v.(*wallet.Transaction); ok {
		resourceID = t.ID.String()
		pairs = append(pairs,
			"user_id", t.UserID,
			"amount", t.Amount.String(),
		)
	}
	return e.record(ctx, ActionDeposited, SeverityInfo, OutcomeSuccess,
		ResourceWallet, resourceID, CategoryPayment, nil,
		pairs...,
	)
}

// ──────────────────────────────────────────────────
// Access hooks
// ──────────────────────────────────────────────────

// OnAccessDenied implements plugin.OnAccessDenied.
func (e *Extension) OnAccessDenied(ctx context.Context, viewerID, postID, reason string) error {
	return e.record(ctx, ActionAccessDenied, SeverityInfo, OutcomeFailure,
		ResourceAccess, postID, CategoryAccess, nil,
		"viewer_id", viewerID,
		"post_id", postID,
		"reason", reason,
	)
}

// OnGeoBlocked implements plugin.OnGeoBlocked.
func (e *Extension) OnGeoBlocked(ctx context.Context, creatorID, country string) error {
	return e.record(ctx, ActionGeoBlocked, SeverityInfo, OutcomeFailure,
		ResourceAccess, creatorID, CategoryAccess, nil,
		"creator_id", creatorID,
		"country", country,
	)
}

// ──────────────────────────────────────────────────
// Internal helpers
// ──────────────────────────────────────────────────

func subscriptionID(v interface{}) string {
	if s, ok := v.(*subscription.Subscription); ok {
		return s.ID.String()
	}
	return ""
}

func subscriptionPairs(v interface{}) []any {
	if s, ok := v.(*subscription.Subscription); ok {
		return []any{
			"subscriber_id", s.SubscriberID,
			"creator_id", s.CreatorID,
			"status", string(s.Status),
		}
	}
	return nil
}

// record builds and sends an audit event if the action is enabled.
func (e *Extension) record(
	ctx context.Context,
	action, severity, outcome string,
	resource, resourceID, category string,
	err error,
	kvPairs ...any,
) error {
	if e.enabled != nil && !e.enabled[action] {
		return nil
	}

	meta := make(map[string]any, len(kvPairs)/2+1)
	for i := 0; i+1 < len(kvPairs); i += 2 {
		key, ok := kvPairs[i].(string)
		if !ok {
			key = fmt.Sprintf("%v", kvPairs[i])
		}
		meta[key] = kvPairs[i+1]
	}

	var reason string
	if err != nil {
		reason = err.Error()
		meta["error"] = err.Error()
	}

	evt := &AuditEvent{
		Action:     action,
		Resource:   resource,
		Category:   category,
		ResourceID: resourceID,
		Metadata:   meta,
		Outcome:    outcome,
		Severity:   severity,
		Reason:     reason,
	}

	if recErr := e.recorder.Record(ctx, evt); recErr != nil {
		e.logger.Warn("audit_hook: failed to record audit event",
			"action", action,
			"resource_id", resourceID,
			"error", recErr,
		)
	}
	return nil
}
