package plugin

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"sync"
	"time"

	"github.com/xraph/paywall/types"
)

// Registry manages all registered plugins and provides efficient dispatch.
// It uses type-cached discovery for O(1) dispatch performance.
type Registry struct {
	mu      sync.RWMutex
	plugins []Plugin
	logger  *slog.Logger

	// Type-cached plugin lists for efficient dispatch
	onInit                 []OnInit
	onShutdown             []OnShutdown
	onPostCreated          []OnPostCreated
	onPostDeleted          []OnPostDeleted
	onSubscriptionCreated  []OnSubscriptionCreated
	onSubscriptionCanceled []OnSubscriptionCanceled
	onSubscriptionExpired  []OnSubscriptionExpired
	onPostUnlocked         []OnPostUnlocked
	onUnlockRejected       []OnUnlockRejected
	onDeposited            []OnDeposited
	onAccessChecked        []OnAccessChecked
	onAccessDenied         []OnAccessDenied
	onGeoBlocked           []OnGeoBlocked
	feePolicies            map[string]FeePolicy
	countryResolvers       []CountryResolver
}

// NewRegistry creates a new plugin registry.
func NewRegistry() *Registry {
	return &Registry{
		logger:      slog.Default(),
		feePolicies: make(map[string]FeePolicy),
	}
}

// WithLogger sets the logger for the registry.
func (r *Registry) WithLogger(logger *slog.Logger) *Registry {
	r.logger = logger
	return r
}

// Register adds a plugin to the registry and caches its interfaces.
func (r *Registry) Register(p Plugin) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Check for duplicate
	for _, existing := range r.plugins {
		if existing.Name() == p.Name() {
			return fmt.Errorf("plugin: duplicate registration: %s", p.Name())
		}
	}

	r.plugins = append(r.plugins, p)

	// Type-switch to cache interfaces
	if v, ok := p.(OnInit); ok {
		r.onInit = append(r.onInit, v)
	}
	if v, ok := p.(OnShutdown); ok {
		r.onShutdown = append(r.onShutdown, v)
	}
	if v, ok := p.(OnPostCreated); ok {
		r.onPostCreated = append(r.onPostCreated, v)
	}
	if v, ok := p.(OnPostDeleted); ok {
		r.onPostDeleted = append(r.onPostDeleted, v)
	}
	if v, ok := p.(OnSubscriptionCreated); ok {
		r.onSubscriptionCreated = append(r.onSubscriptionCreated, v)
	}
	if v, ok := p.(OnSubscriptionCanceled); ok {
		r.onSubscriptionCanceled = append(r.onSubscriptionCanceled, v)
	}
	if v, ok := p.(OnSubscriptionExpired); ok {
		r.onSubscriptionExpired = append(r.onSubscriptionExpired, v)
	}
	if v, ok := p.(OnPostUnlocked); ok {
		r.onPostUnlocked = append(r.onPostUnlocked, v)
	}
	if v, ok := p.(OnUnlockRejected); ok {
		r.onUnlockRejected = append(r.onUnlockRejected, v)
	}
	if v, ok := p.(OnDeposited); ok {
		r.onDeposited = append(r.onDeposited, v)
	}
	if v, ok := p.(OnAccessChecked); ok {
		r.onAccessChecked = append(r.onAccessChecked, v)
	}
	if v, ok := p.(OnAccessDenied); ok {
		r.onAccessDenied = append(r.onAccessDenied, v)
	}
	if v, ok := p.(OnGeoBlocked); ok {
		r.onGeoBlocked = append(r.onGeoBlocked, v)
	}
	if v, ok := p.(FeePolicy); ok {
		r.feePolicies[v.PolicyName()] = v
	}
	if v, ok := p.(CountryResolver); ok {
		r.countryResolvers = append(r.countryResolvers, v)
	}

	r.logger.Info("plugin registered",
		"name", p.Name(),
		"interfaces", r.getImplementedInterfaces(p),
	)

	return nil
}

// getImplementedInterfaces returns a list of interfaces implemented by the plugin.
func (r *Registry) getImplementedInterfaces(p Plugin) []string {
	var interfaces []string
	v := reflect.TypeOf(p)

	// Check each interface
	checkInterface := func(iface reflect.Type, name string) {
		if v.Implements(iface) {
			interfaces = append(interfaces, name)
		}
	}

	// List all interfaces to check
	checkInterface(reflect.TypeOf((*OnInit)(nil)).Elem(), "OnInit")
	checkInterface(reflect.TypeOf((*OnShutdown)(nil)).Elem(), "OnShutdown")
	checkInterface(reflect.TypeOf((*OnPostCreated)(nil)).Elem(), "OnPostCreated")
	checkInterface(reflect.TypeOf((*OnSubscriptionCreated)(nil)).Elem(), "OnSubscriptionCreated")
	checkInterface(reflect.TypeOf((*OnPostUnlocked)(nil)).Elem(), "OnPostUnlocked")
	checkInterface(reflect.TypeOf((*OnAccessChecked)(nil)).Elem(), "OnAccessChecked")
	checkInterface(reflect.TypeOf((*OnDeposited)(nil)).Elem(), "OnDeposited")
	checkInterface(reflect.TypeOf((*FeePolicy)(nil)).Elem(), "FeePolicy")
	checkInterface(reflect.TypeOf((*CountryResolver)(nil)).Elem(), "CountryResolver")

	return interfaces
}

// Get returns a plugin by name.
func (r *Registry) Get(name string) Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, p := range r.plugins {
		if p.Name() == name {
			return p
		}
	}
	return nil
}

// List returns all registered plugins.
func (r *Registry) List() []Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Plugin, len(r.plugins))
	copy(result, r.plugins)
	return result
}

// Count returns the number of registered plugins.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.plugins)
}

// ──────────────────────────────────────────────────
// Event emission methods
// ──────────────────────────────────────────────────

// EmitInit calls OnInit for all plugins that implement it.
func (r *Registry) EmitInit(ctx context.Context, engine interface{}) {
	r.mu.RLock()
	plugins := r.onInit
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnInit(ctx, engine)
		}); err != nil {
			r.logger.Warn("plugin OnInit failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitShutdown calls OnShutdown for all plugins that implement it.
func (r *Registry) EmitShutdown(ctx context.Context) {
	r.mu.RLock()
	plugins := r.onShutdown
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnShutdown(ctx)
		}); err != nil {
			r.logger.Warn("plugin OnShutdown failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitPostCreated emits a post created event.
func (r *Registry) EmitPostCreated(ctx context.Context, post interface{}) {
	r.mu.RLock()
	plugins := r.onPostCreated
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnPostCreated(ctx, post)
		}); err != nil {
			r.logger.Warn("plugin OnPostCreated failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitPostDeleted emits a post deleted event.
func (r *Registry) EmitPostDeleted(ctx context.Context, postID string) {
	r.mu.RLock()
	plugins := r.onPostDeleted
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnPostDeleted(ctx, postID)
		}); err != nil {
			r.logger.Warn("plugin OnPostDeleted failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitSubscriptionCreated emits a subscription created event.
func (r *Registry) EmitSubscriptionCreated(ctx context.Context, sub interface{}) {
	r.mu.RLock()
	plugins := r.onSubscriptionCreated
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnSubscriptionCreated(ctx, sub)
		}); err != nil {
			r.logger.Warn("plugin OnSubscriptionCreated failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitSubscriptionCanceled emits a subscription canceled event.
func (r *Registry) EmitSubscriptionCanceled(ctx context.Context, sub interface{}) {
	r.mu.RLock()
	plugins := r.onSubscriptionCanceled
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnSubscriptionCanceled(ctx, sub)
		}); err != nil {
			r.logger.Warn("plugin OnSubscriptionCanceled failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitSubscriptionExpired emits a subscription expired event.
func (r *Registry) EmitSubscriptionExpired(ctx context.Context, sub interface{}) {
	r.mu.RLock()
	plugins := r.onSubscriptionExpired
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnSubscriptionExpired(ctx, sub)
		}); err != nil {
			r.logger.Warn("plugin OnSubscriptionExpired failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitPostUnlocked emits a post unlocked event.
func (r *Registry) EmitPostUnlocked(ctx context.Context, ulk interface{}) {
	r.mu.RLock()
	plugins := r.onPostUnlocked
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnPostUnlocked(ctx, ulk)
		}); err != nil {
			r.logger.Warn("plugin OnPostUnlocked failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitUnlockRejected emits an unlock rejected event.
func (r *Registry) EmitUnlockRejected(ctx context.Context, userID, postID, status string) {
	r.mu.RLock()
	plugins := r.onUnlockRejected
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnUnlockRejected(ctx, userID, postID, status)
		}); err != nil {
			r.logger.Warn("plugin OnUnlockRejected failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitDeposited emits a wallet deposit event.
func (r *Registry) EmitDeposited(ctx context.Context, txn interface{}) {
	r.mu.RLock()
	plugins := r.onDeposited
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnDeposited(ctx, txn)
		}); err != nil {
			r.logger.Warn("plugin OnDeposited failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitAccessChecked emits an access checked event.
func (r *Registry) EmitAccessChecked(ctx context.Context, decision interface{}) {
	r.mu.RLock()
	plugins := r.onAccessChecked
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnAccessChecked(ctx, decision)
		}); err != nil {
			r.logger.Warn("plugin OnAccessChecked failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitAccessDenied emits an access denied event.
func (r *Registry) EmitAccessDenied(ctx context.Context, viewerID, postID, reason string) {
	r.mu.RLock()
	plugins := r.onAccessDenied
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnAccessDenied(ctx, viewerID, postID, reason)
		}); err != nil {
			r.logger.Warn("plugin OnAccessDenied failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitGeoBlocked emits a geo blocked event.
func (r *Registry) EmitGeoBlocked(ctx context.Context, creatorID, country string) {
	r.mu.RLock()
	plugins := r.onGeoBlocked
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnGeoBlocked(ctx, creatorID, country)
		}); err != nil {
			r.logger.Warn("plugin OnGeoBlocked failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// ComputeFee consults the registered fee policies. The first registered
// policy wins; ok is false when none is registered.
func (r *Registry) ComputeFee(price types.Money) (fee types.Money, ok bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, p := range r.feePolicies {
		return p.Fee(price), true
	}
	return types.Zero(price.Currency), false
}

// ResolveCountry consults registered country resolvers in order until one
// returns a non-empty code.
func (r *Registry) ResolveCountry(ctx context.Context) string {
	r.mu.RLock()
	resolvers := r.countryResolvers
	r.mu.RUnlock()

	for _, res := range resolvers {
		if cc := res.ResolveCountry(ctx); cc != "" {
			return cc
		}
	}
	return ""
}

// callWithTimeout calls a plugin function with a timeout.
// Plugins should never block the unlock pipeline.
func (r *Registry) callWithTimeout(ctx context.Context, pluginName string, fn func() error) error {
	done := make(chan error, 1)

	go func() {
		done <- fn()
	}()

	select {
	case err := <-done:
		return err
	case <-time.After(5 * time.Second):
		return fmt.Errorf("plugin timeout: %s", pluginName)
	case <-ctx.Done():
		return ctx.Err()
	}
}
