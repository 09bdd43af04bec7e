// Package observability provides a metrics extension for Paywall that
// records lifecycle event counts via a MetricFactory.
package observability

import (
	"context"

	"github.com/xraph/paywall/plugin"
	"github.com/xraph/paywall/unlock"
	"github.com/xraph/paywall/wallet"
)

// Ensure MetricsExtension implements required interfaces.
var (
	_ plugin.Plugin                 = (*MetricsExtension)(nil)
	_ plugin.OnInit                 = (*MetricsExtension)(nil)
	_ plugin.OnPostCreated          = (*MetricsExtension)(nil)
	_ plugin.OnPostDeleted          = (*MetricsExtension)(nil)
	_ plugin.OnSubscriptionCreated  = (*MetricsExtension)(nil)
	_ plugin.OnSubscriptionCanceled = (*MetricsExtension)(nil)
	_ plugin.OnSubscriptionExpired  = (*MetricsExtension)(nil)
	_ plugin.OnPostUnlocked         = (*MetricsExtension)(nil)
	_ plugin.OnUnlockRejected       = (*MetricsExtension)(nil)
	_ plugin.OnDeposited            = (*MetricsExtension)(nil)
	_ plugin.OnAccessChecked        = (*MetricsExtension)(nil)
	_ plugin.OnAccessDenied         = (*MetricsExtension)(nil)
	_ plugin.OnGeoBlocked           = (*MetricsExtension)(nil)
)

// Counter interface for metric counters.
type Counter interface {
	Inc()
	Add(float64)
}

// Histogram interface for metric histograms.
type Histogram interface {
	Observe(float64)
}

// MetricFactory creates metrics.
type MetricFactory interface {
	Counter(name string) Counter
	Histogram(name string) Histogram
}

// MetricsExtension records system-wide lifecycle metrics.
// Register it as a Paywall plugin to automatically track monetization
// metrics.
type MetricsExtension struct {
	factory MetricFactory

	// Post metrics
	PostCreated Counter
	PostDeleted Counter

	// Subscription metrics
	SubscriptionCreated  Counter
	SubscriptionCanceled Counter
	SubscriptionExpired  Counter

	// Unlock metrics
	UnlocksGranted       Counter
	UnlocksIdempotent    Counter
	UnlocksInsufficient  Counter
	UnlocksInvalid       Counter
	UnlockPrice          Histogram

	// Wallet metrics
	Deposits      Counter
	DepositAmount Histogram

	// Access metrics
	AccessChecks Counter
	AccessDenied Counter
	GeoBlocked   Counter
}

// NewMetricsExtension creates a MetricsExtension with the provided MetricFactory.
// Use app.Metrics() in forge extensions.
func NewMetricsExtension(factory MetricFactory) *MetricsExtension {
	return &MetricsExtension{
		factory: factory,

		// Post metrics
		PostCreated: factory.Counter("paywall.post.created"),
		PostDeleted: factory.Counter("paywall.post.deleted"),

		// Subscription metrics
		SubscriptionCreated:  factory.Counter("paywall.subscription.created"),
		SubscriptionCanceled: factory.Counter("paywall.subscription.canceled"),
		SubscriptionExpired:  factory.Counter("paywall.subscription.expired"),

		// Unlock metrics
		UnlocksGranted:      factory.Counter("paywall.unlock.granted"),
		UnlocksIdempotent:   factory.Counter("paywall.unlock.idempotent"),
		UnlocksInsufficient: factory.Counter("paywall.unlock.insufficient_balance"),
		UnlocksInvalid:      factory.Counter("paywall.unlock.invalid"),
		UnlockPrice:         factory.Histogram("paywall.unlock.price_minor_units"),

		// Wallet metrics
		Deposits:      factory.Counter("paywall.wallet.deposits"),
		DepositAmount: factory.Histogram("paywall.wallet.deposit_minor_units"),

		// Access metrics
		AccessChecks: factory.Counter("paywall.access.checks"),
		AccessDenied: factory.Counter("paywall.access.denied"),
		GeoBlocked:   factory.Counter("paywall.access.geo_blocked"),
	}
}

// Name implements plugin.Plugin.
func (m *MetricsExtension) Name() string { return "observability-metrics" }

// OnInit implements plugin.OnInit.
func (m *MetricsExtension) OnInit(_ context.Context, _ interface{}) error {
	// No initialization needed
	return nil
}

// ──────────────────────────────────────────────────
// Post lifecycle hooks
// ──────────────────────────────────────────────────

// OnPostCreated implements plugin.OnPostCreated.
func (m *MetricsExtension) OnPostCreated(_ context.Context, _ interface{}) error {
	m.PostCreated.Inc()
	return nil
}

// OnPostDeleted implements plugin.OnPostDeleted.
func (m *MetricsExtension) OnPostDeleted(_ context.Context, _ string) error {
	m.PostDeleted.Inc()
	return nil
}

// ──────────────────────────────────────────────────
// Subscription lifecycle hooks
// ──────────────────────────────────────────────────

// OnSubscriptionCreated implements plugin.OnSubscriptionCreated.
func (m *MetricsExtension) OnSubscriptionCreated(_ context.Context, _ interface{}) error {
	m.SubscriptionCreated.Inc()
	return nil
}

// OnSubscriptionCanceled implements plugin.OnSubscriptionCanceled.
func (m *MetricsExtension) OnSubscriptionCanceled(_ context.Context, _ interface{}) error {
	m.SubscriptionCanceled.Inc()
	return nil
}

// OnSubscriptionExpired implements plugin.OnSubscriptionExpired.
func (m *MetricsExtension) OnSubscriptionExpired(_ context.Context, _ interface{}) error {
	m.SubscriptionExpired.Inc()
	return nil
}

// ──────────────────────────────────────────────────
// Unlock lifecycle hooks
// ──────────────────────────────────────────────────

// OnPostUnlocked implements plugin.OnPostUnlocked.
func (m *MetricsExtension) OnPostUnlocked(_ context.Context, v interface{}) error {
	m.UnlocksGranted.Inc()
	if u, ok := v.(*unlock.Unlock); ok {
		m.UnlockPrice.Observe(float64(u.Price.Amount))
	}
	return nil
}

// OnUnlockRejected implements plugin.OnUnlockRejected.
func (m *MetricsExtension) OnUnlockRejected(_ context.Context, _, _, status string) error {
	switch unlock.Status(status) {
	case unlock.StatusAlreadyUnlocked:
		m.UnlocksIdempotent.Inc()
	case unlock.StatusInsufficientBalance:
		m.UnlocksInsufficient.Inc()
	default:
		m.UnlocksInvalid.Inc()
	}
	return nil
}

// ──────────────────────────────────────────────────
// Wallet lifecycle hooks
// ──────────────────────────────────────────────────

// OnDeposited implements plugin.OnDeposited.
func (m *MetricsExtension) OnDeposited(_ context.Context, v interface{}) error {
	m.Deposits.Inc()
	if t, ok := v.(*wallet.Transaction); ok {
		m.DepositAmount.Observe(float64(t.Amount.Amount))
	}
	return nil
}

// ──────────────────────────────────────────────────
// Access lifecycle hooks
// ──────────────────────────────────────────────────

// OnAccessChecked implements plugin.OnAccessChecked.
func (m *MetricsExtension) OnAccessChecked(_ context.Context, _ interface{}) error {
	m.AccessChecks.Inc()
	return nil
}

// OnAccessDenied implements plugin.OnAccessDenied.
func (m *MetricsExtension) OnAccessDenied(_ context.Context, _, _, _ string) error {
	m.AccessDenied.Inc()
	return nil
}

// OnGeoBlocked implements plugin.OnGeoBlocked.
func (m *MetricsExtension) OnGeoBlocked(_ context.Context, _, _ string) error {
	m.GeoBlocked.Inc()
	return nil
}
