package extension

import "time"

// Config holds the Paywall extension configuration.
// Fields can be set programmatically via Option functions or loaded from
// YAML configuration files (under "extensions.paywall" or "paywall" keys).
type Config struct {
	// DisableRoutes prevents HTTP route registration.
	DisableRoutes bool `json:"disable_routes" mapstructure:"disable_routes" yaml:"disable_routes"`

	// DisableMigrate prevents auto-migration on start.
	DisableMigrate bool `json:"disable_migrate" mapstructure:"disable_migrate" yaml:"disable_migrate"`

	// BasePath is the URL prefix for paywall routes (default: "/paywall").
	BasePath string `json:"base_path" mapstructure:"base_path" yaml:"base_path"`

	// Currency is the single wallet currency in ISO code form
	// (default: "usd").
	Currency string `json:"currency" mapstructure:"currency" yaml:"currency"`

	// SubscriptionTermDays is the fixed subscription length in days
	// (default: 30).
	SubscriptionTermDays int `json:"subscription_term_days" mapstructure:"subscription_term_days" yaml:"subscription_term_days"`

	// PlatformFeeBps is the platform fee in basis points deducted from
	// creator earnings on each unlock (default: 0, pass-through).
	PlatformFeeBps int64 `json:"platform_fee_bps" mapstructure:"platform_fee_bps" yaml:"platform_fee_bps"`

	// ExpirySweepInterval is how often lapsed subscriptions are flipped to
	// expired for bookkeeping (default: 1h; 0 disables the sweeper).
	ExpirySweepInterval time.Duration `json:"expiry_sweep_interval" mapstructure:"expiry_sweep_interval" yaml:"expiry_sweep_interval"`

	// RequireConfig requires config to be present in YAML files.
	// If true and no config is found, Register returns an error.
	RequireConfig bool `json:"-" yaml:"-"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Currency:             "usd",
		SubscriptionTermDays: 30,
		ExpirySweepInterval:  time.Hour,
	}
}
