// Package extension provides the Forge extension adapter for Paywall.
//
// It implements the forge.Extension interface to integrate Paywall
// into a Forge application with automatic dependency discovery,
// DI registration, and lifecycle management.
//
// Configuration can be provided programmatically via Option functions
// or via YAML configuration files under "extensions.paywall" or "paywall" keys.
package extension

import (
	"context"
	"errors"
	"time"

	"github.com/xraph/forge"
	"github.com/xraph/vessel"

	paywall "github.com/xraph/paywall"
	"github.com/xraph/paywall/store"
	"github.com/xraph/paywall/store/memory"
)

// ExtensionName is the name registered with Forge.
const ExtensionName = "paywall"

// ExtensionDescription is the human-readable description.
const ExtensionDescription = "Entitlement and monetization engine for paid content"

// ExtensionVersion is the semantic version.
const ExtensionVersion = "0.1.0"

// Ensure Extension implements forge.Extension at compile time.
var _ forge.Extension = (*Extension)(nil)

// Extension adapts Paywall as a Forge extension.
type Extension struct {
	*forge.BaseExtension

	config      Config
	engine      *paywall.Paywall
	store       store.Store
	paywallOpts []paywall.Option
}

// New creates a new Paywall Forge extension with the given options.
func New(opts ...Option) *Extension {
	e := &Extension{
		BaseExtension: forge.NewBaseExtension(ExtensionName, ExtensionVersion, ExtensionDescription),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Engine returns the underlying Paywall instance.
// This is nil until Register is called.
func (e *Extension) Engine() *paywall.Paywall { return e.engine }

// Register implements [forge.Extension]. It loads configuration,
// initializes the paywall engine, and registers it in the DI container.
func (e *Extension) Register(fapp forge.App) error {
	if err := e.BaseExtension.Register(fapp); err != nil {
		return err
	}

	if err := e.loadConfiguration(); err != nil {
		return err
	}

	// Use memory store if no store was provided programmatically.
	if e.store == nil {
		e.store = memory.New()
	}

	// Build paywall options from resolved config.
	opts := e.buildPaywallOpts()

	eng := paywall.New(e.store, opts...)
	e.engine = eng

	return vessel.Provide(fapp.Container(), func() (*paywall.Paywall, error) {
		return e.engine, nil
	})
}

// Start implements [forge.Extension].
func (e *Extension) Start(ctx context.Context) error {
	if e.engine == nil {
		return errors.New("paywall: extension not initialized")
	}

	if err := e.engine.Start(ctx); err != nil {
		return err
	}

	e.MarkStarted()
	return nil
}

// Stop implements [forge.Extension].
func (e *Extension) Stop(_ context.Context) error {
	if e.engine != nil {
		if err := e.engine.Stop(); err != nil {
			e.MarkStopped()
			return err
		}
	}
	e.MarkStopped()
	return nil
}

// Health implements [forge.Extension].
func (e *Extension) Health(ctx context.Context) error {
	if e.store == nil {
		return errors.New("paywall: store not initialized")
	}
	return e.store.Ping(ctx)
}

// buildPaywallOpts constructs paywall.Option values from the resolved config.
func (e *Extension) buildPaywallOpts() []paywall.Option {
	opts := make([]paywall.Option, 0, len(e.paywallOpts)+5)

	if e.config.Currency != "" {
		opts = append(opts, paywall.WithCurrency(e.config.Currency))
	}
	if e.config.SubscriptionTermDays > 0 {
		term := time.Duration(e.config.SubscriptionTermDays) * 24 * time.Hour
		opts = append(opts, paywall.WithSubscriptionTerm(term))
	}
	if e.config.PlatformFeeBps > 0 {
		opts = append(opts, paywall.WithPlatformFee(e.config.PlatformFeeBps))
	}
	opts = append(opts, paywall.WithExpirySweepInterval(e.config.ExpirySweepInterval))
	if e.config.DisableMigrate {
		opts = append(opts, paywall.WithoutMigrate())
	}

	// Append any pass-through paywall options.
	opts = append(opts, e.paywallOpts...)

	return opts
}

// --- Config Loading (mirrors grove/shield extension pattern) ---

// loadConfiguration loads config from YAML files or programmatic sources.
func (e *Extension) loadConfiguration() error {
	programmaticConfig := e.config

	// Try loading from config file.
	fileConfig, configLoaded := e.tryLoadFromConfigFile()

	if !configLoaded {
		if programmaticConfig.RequireConfig {
			return errors.New("paywall: configuration is required but not found in config files; " +
				"ensure 'extensions.paywall' or 'paywall' key exists in your config")
		}

		// Use programmatic config merged with defaults.
		e.config = e.mergeWithDefaults(programmaticConfig)
	} else {
		// Config loaded from YAML -- merge with programmatic options.
		e.config = e.mergeConfigurations(fileConfig, programmaticConfig)
	}

	e.Logger().Debug("paywall: configuration loaded",
		forge.F("disable_routes", e.config.DisableRoutes),
		forge.F("disable_migrate", e.config.DisableMigrate),
		forge.F("base_path", e.config.BasePath),
		forge.F("currency", e.config.Currency),
		forge.F("subscription_term_days", e.config.SubscriptionTermDays),
		forge.F("platform_fee_bps", e.config.PlatformFeeBps),
		forge.F("expiry_sweep_interval", e.config.ExpirySweepInterval),
	)

	return nil
}

// tryLoadFromConfigFile attempts to load config from YAML files.
func (e *Extension) tryLoadFromConfigFile() (Config, bool) {
	cm := e.App().Config()
	var cfg Config

	// Try "extensions.paywall" first (namespaced pattern).
	if cm.IsSet("extensions.paywall") {
		if err := cm.Bind("extensions.paywall", &cfg); err == nil {
			e.Logger().Debug("paywall: loaded config from file",
				forge.F("key", "extensions.paywall"),
			)
			return cfg, true
		}
		e.Logger().Warn("paywall: failed to bind extensions.paywall config",
			forge.F("error", "bind failed"),
		)
	}

	// Try legacy "paywall" key.
	if cm.IsSet("paywall") {
		if err := cm.Bind("paywall", &cfg); err == nil {
			e.Logger().Debug("paywall: loaded config from file",
				forge.F("key", "paywall"),
			)
			return cfg, true
		}
		e.Logger().Warn("paywall: failed to bind paywall config",
			forge.F("error", "bind failed"),
		)
	}

	return Config{}, false
}

// mergeWithDefaults fills zero-valued fields with defaults.
func (e *Extension) mergeWithDefaults(cfg Config) Config {
	defaults := DefaultConfig()
	if cfg.Currency == "" {
		cfg.Currency = defaults.Currency
	}
	if cfg.SubscriptionTermDays == 0 {
		cfg.SubscriptionTermDays = defaults.SubscriptionTermDays
	}
	if cfg.ExpirySweepInterval == 0 {
		cfg.ExpirySweepInterval = defaults.ExpirySweepInterval
	}
	return cfg
}

// mergeConfigurations merges YAML config with programmatic options.
// YAML config takes precedence for most fields; programmatic bool flags fill gaps.
func (e *Extension) mergeConfigurations(yamlConfig, programmaticConfig Config) Config {
	// Programmatic bool flags override when true.
	if programmaticConfig.DisableRoutes {
		yamlConfig.DisableRoutes = true
	}
	if programmaticConfig.DisableMigrate {
		yamlConfig.DisableMigrate = true
	}

	// String fields: YAML takes precedence.
	if yamlConfig.BasePath == "" && programmaticConfig.BasePath != "" {
		yamlConfig.BasePath = programmaticConfig.BasePath
	}
	if yamlConfig.Currency == "" && programmaticConfig.Currency != "" {
		yamlConfig.Currency = programmaticConfig.Currency
	}

	// Duration/int fields: YAML takes precedence, programmatic fills gaps.
	if yamlConfig.SubscriptionTermDays == 0 && programmaticConfig.SubscriptionTermDays != 0 {
		yamlConfig.SubscriptionTermDays = programmaticConfig.SubscriptionTermDays
	}
	if yamlConfig.PlatformFeeBps == 0 && programmaticConfig.PlatformFeeBps != 0 {
		yamlConfig.PlatformFeeBps = programmaticConfig.PlatformFeeBps
	}
	if yamlConfig.ExpirySweepInterval == 0 && programmaticConfig.ExpirySweepInterval != 0 {
		yamlConfig.ExpirySweepInterval = programmaticConfig.ExpirySweepInterval
	}

	// Fill remaining zeros with defaults.
	return e.mergeWithDefaults(yamlConfig)
}
