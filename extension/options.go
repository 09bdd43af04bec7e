package extension

import (
	"time"

	paywall "github.com/xraph/paywall"
	"github.com/xraph/paywall/plugin"
	"github.com/xraph/paywall/store"
)

// Option configures the Paywall Forge extension.
type Option func(*Extension)

// WithStore sets the store for the paywall engine.
func WithStore(s store.Store) Option {
	return func(e *Extension) {
		e.store = s
	}
}

// WithPaywallOption passes a paywall.Option through to the underlying engine.
func WithPaywallOption(opt paywall.Option) Option {
	return func(e *Extension) {
		e.paywallOpts = append(e.paywallOpts, opt)
	}
}

// WithPlugin registers a paywall plugin.
func WithPlugin(p plugin.Plugin) Option {
	return func(e *Extension) {
		e.paywallOpts = append(e.paywallOpts, paywall.WithPlugin(p))
	}
}

// WithConfig sets the Forge extension configuration.
func WithConfig(cfg Config) Option {
	return func(e *Extension) { e.config = cfg }
}

// WithDisableRoutes prevents HTTP route registration.
func WithDisableRoutes() Option {
	return func(e *Extension) { e.config.DisableRoutes = true }
}

// WithDisableMigrate prevents auto-migration on start.
func WithDisableMigrate() Option {
	return func(e *Extension) { e.config.DisableMigrate = true }
}

// WithBasePath sets the URL prefix for paywall routes.
func WithBasePath(path string) Option {
	return func(e *Extension) { e.config.BasePath = path }
}

// WithRequireConfig requires config to be present in YAML files.
// If true and no config is found, Register returns an error.
func WithRequireConfig(require bool) Option {
	return func(e *Extension) { e.config.RequireConfig = require }
}

// WithCurrency sets the wallet currency.
func WithCurrency(currency string) Option {
	return func(e *Extension) { e.config.Currency = currency }
}

// WithSubscriptionTermDays sets the fixed subscription length in days.
func WithSubscriptionTermDays(days int) Option {
	return func(e *Extension) { e.config.SubscriptionTermDays = days }
}

// WithPlatformFeeBps sets the platform fee in basis points.
func WithPlatformFeeBps(bps int64) Option {
	return func(e *Extension) { e.config.PlatformFeeBps = bps }
}

// WithExpirySweepInterval sets how often lapsed subscriptions are swept.
func WithExpirySweepInterval(d time.Duration) Option {
	return func(e *Extension) { e.config.ExpirySweepInterval = d }
}
