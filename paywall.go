package paywall

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/xraph/paywall/entitlement"
	"github.com/xraph/paywall/id"
	"github.com/xraph/paywall/plugin"
	"github.com/xraph/paywall/post"
	"github.com/xraph/paywall/store"
	"github.com/xraph/paywall/subscription"
	"github.com/xraph/paywall/types"
	"github.com/xraph/paywall/unlock"
	"github.com/xraph/paywall/wallet"
)

// Paywall is the entitlement and monetization engine.
type Paywall struct {
	store   store.Store
	plugins *plugin.Registry
	logger  *slog.Logger

	// Background workers
	stopChan chan struct{}
	wg       sync.WaitGroup

	// Configuration
	currency         string
	subscriptionTerm time.Duration
	platformFeeBps   int64
	expirySweep      time.Duration
	skipMigrate      bool
}

// New creates a new Paywall instance.
func New(s store.Store, opts ...Option) *Paywall {
	p := &Paywall{
		store:            s,
		plugins:          plugin.NewRegistry(),
		logger:           slog.Default(),
		stopChan:         make(chan struct{}),
		currency:         "usd",
		subscriptionTerm: subscription.Term,
		platformFeeBps:   0,
		expirySweep:      time.Hour,
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// Option configures a Paywall instance.
type Option func(*Paywall)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Paywall) {
		p.logger = logger
		p.plugins.WithLogger(logger)
	}
}

// WithPlugin registers a plugin.
func WithPlugin(pl plugin.Plugin) Option {
	return func(p *Paywall) {
		_ = p.plugins.Register(pl) //nolint:errcheck // best-effort plugin registration during init
	}
}

// WithCurrency sets the wallet currency. All prices, deposits and balances
// use this single currency.
func WithCurrency(currency string) Option {
	return func(p *Paywall) {
		p.currency = strings.ToLower(currency)
	}
}

// WithSubscriptionTerm overrides the fixed subscription length.
func WithSubscriptionTerm(term time.Duration) Option {
	return func(p *Paywall) {
		p.subscriptionTerm = term
	}
}

// WithPlatformFee sets the platform fee in basis points, deducted from the
// creator's earning on every unlock. A FeePolicy plugin takes precedence.
func WithPlatformFee(bps int64) Option {
	return func(p *Paywall) {
		p.platformFeeBps = bps
	}
}

// WithExpirySweepInterval sets how often lapsed subscriptions are flipped to
// expired for bookkeeping. Zero disables the sweeper; entitlement never
// depends on it since ActiveAt checks EndsAt directly.
func WithExpirySweepInterval(interval time.Duration) Option {
	return func(p *Paywall) {
		p.expirySweep = interval
	}
}

// WithoutMigrate skips schema migration on Start, for deployments that run
// migrations out of band.
func WithoutMigrate() Option {
	return func(p *Paywall) {
		p.skipMigrate = true
	}
}

// Start migrates the store, initializes plugins and begins background
// workers.
func (p *Paywall) Start(ctx context.Context) error {
	if !p.skipMigrate {
		if err := p.store.Migrate(ctx); err != nil {
			return err
		}
	}

	p.plugins.EmitInit(ctx, p)

	if p.expirySweep > 0 {
		p.wg.Add(1)
		go p.expirySweeper(ctx)
	}

	p.logger.Info("paywall started",
		"currency", p.currency,
		"subscription_term", p.subscriptionTerm,
		"platform_fee_bps", p.platformFeeBps,
		"expiry_sweep", p.expirySweep,
	)

	return nil
}

// Stop shuts down the Paywall.
func (p *Paywall) Stop() error {
	close(p.stopChan)
	p.wg.Wait()

	ctx := context.Background()
	p.plugins.EmitShutdown(ctx)

	return p.store.Close()
}

// Plugins returns the plugin registry.
func (p *Paywall) Plugins() *plugin.Registry {
	return p.plugins
}

// ──────────────────────────────────────────────────
// Access Checks
// ──────────────────────────────────────────────────

// CheckAccess resolves whether viewerID may see the full content of postID.
// Denial is a normal return value; the error channel is reserved for
// datastore failure. The visitor's country is read from the context (see
// WithCountry) and the geo filter runs before entitlement, so a blocked
// visitor observes the same decision as a missing post.
func (p *Paywall) CheckAccess(ctx context.Context, viewerID string, postID id.PostID) (entitlement.Decision, error) {
	pst, err := p.store.GetPost(ctx, postID)
	if err != nil {
		if IsNotFound(err) {
			return entitlement.Decision{Allowed: false, Reason: entitlement.ReasonPostMissing}, nil
		}
		return entitlement.Decision{}, err
	}

	if viewerID == "" || viewerID != pst.CreatorID {
		if d, blocked, err := p.creatorPolicy(ctx, pst.CreatorID); err != nil {
			return entitlement.Decision{}, err
		} else if blocked {
			p.plugins.EmitAccessDenied(ctx, viewerID, postID.String(), string(d.Reason))
			return d, nil
		}
	}

	hasActiveSub := false
	if viewerID != "" && pst.Visibility == post.VisibilitySubscribers {
		hasActiveSub, err = p.IsSubscribed(ctx, viewerID, pst.CreatorID)
		if err != nil {
			return entitlement.Decision{}, err
		}
	}

	hasUnlock := false
	if viewerID != "" && pst.IsPPV() {
		if _, err := p.store.GetUnlock(ctx, viewerID, pst.ID); err == nil {
			hasUnlock = true
		} else if !IsNotFound(err) {
			return entitlement.Decision{}, err
		}
	}

	d := entitlement.CanView(viewerID, pst, hasActiveSub, hasUnlock)

	p.plugins.EmitAccessChecked(ctx, d)
	if !d.Allowed {
		p.plugins.EmitAccessDenied(ctx, viewerID, postID.String(), string(d.Reason))
	}

	return d, nil
}

// CreatorFeed lists a creator's posts for a given viewer. A geo-blocked or
// banned creator yields an empty feed, indistinguishable from a creator
// with no posts. Soft-deleted posts are included only for the creator
// themselves. Per-post entitlement is not resolved here; feeds render
// locked previews and callers use CheckAccess for the full content.
func (p *Paywall) CreatorFeed(ctx context.Context, viewerID, creatorID string) ([]*post.Post, error) {
	if viewerID == "" || viewerID != creatorID {
		if _, blocked, err := p.creatorPolicy(ctx, creatorID); err != nil {
			return nil, err
		} else if blocked {
			return []*post.Post{}, nil
		}
	}

	opts := post.ListOpts{IncludeDeleted: viewerID != "" && viewerID == creatorID}
	return p.store.ListPostsByCreator(ctx, creatorID, opts)
}

// creatorPolicy applies the account-level gates that run before any
// post-level check: a banned creator and a geo-blocked visitor both resolve
// to a deny that callers surface as not-found. Missing profiles fail open.
func (p *Paywall) creatorPolicy(ctx context.Context, creatorID string) (entitlement.Decision, bool, error) {
	prof, err := p.store.GetProfile(ctx, creatorID)
	if err != nil {
		if IsNotFound(err) {
			return entitlement.Decision{}, false, nil
		}
		return entitlement.Decision{}, false, err
	}

	if prof.Banned {
		return entitlement.Decision{Allowed: false, Reason: entitlement.ReasonCreatorBanned}, true, nil
	}

	country := CountryFrom(ctx)
	if country == "" {
		country = p.plugins.ResolveCountry(ctx)
	}
	if entitlement.GeoBlocked(prof.BlockedCountries, country) {
		p.plugins.EmitGeoBlocked(ctx, creatorID, country)
		return entitlement.Decision{Allowed: false, Reason: entitlement.ReasonGeoBlocked}, true, nil
	}

	return entitlement.Decision{}, false, nil
}

// ──────────────────────────────────────────────────
// Post Management
// ──────────────────────────────────────────────────

// CreatePost publishes a new post. Visibility and price are fixed from this
// point on.
func (p *Paywall) CreatePost(ctx context.Context, pst *post.Post) error {
	if pst.ID.IsNil() {
		pst.ID = id.NewPostID()
	}
	pst.Entity = types.NewEntity()

	if pst.Price.Currency == "" {
		pst.Price.Currency = p.currency
	}
	if err := pst.Validate(); err != nil {
		return err
	}
	if !strings.EqualFold(pst.Price.Currency, p.currency) {
		return ErrCurrencyMismatch
	}

	if err := p.store.CreatePost(ctx, pst); err != nil {
		return err
	}

	p.plugins.EmitPostCreated(ctx, pst)
	return nil
}

// GetPost retrieves a post by ID.
func (p *Paywall) GetPost(ctx context.Context, postID id.PostID) (*post.Post, error) {
	return p.store.GetPost(ctx, postID)
}

// UpdatePost edits a post's mutable fields (title, body, media URL). The
// immutable fields are pinned to their stored values, so a client that
// sends a different visibility or price gets ErrImmutableField.
func (p *Paywall) UpdatePost(ctx context.Context, next *post.Post) error {
	current, err := p.store.GetPost(ctx, next.ID)
	if err != nil {
		return err
	}

	if next.Visibility != "" && next.Visibility != current.Visibility {
		return ErrImmutableField
	}
	if !next.Price.IsZero() && !next.Price.Equal(current.Price) {
		return ErrImmutableField
	}

	edited := current.Editable(next)
	edited.Entity = current.Entity
	edited.Touch()

	return p.store.UpdatePost(ctx, edited)
}

// DeletePost soft-deletes a post. The row survives so existing unlock
// records keep a valid target; the creator continues to see the post.
func (p *Paywall) DeletePost(ctx context.Context, postID id.PostID) error {
	if err := p.store.SoftDeletePost(ctx, postID); err != nil {
		return err
	}

	p.plugins.EmitPostDeleted(ctx, postID.String())
	return nil
}

// ──────────────────────────────────────────────────
// Subscription Management
// ──────────────────────────────────────────────────

// Subscribe creates or renews a subscription from subscriberID to
// creatorID. The (subscriber, creator) pair is unique, so re-subscribing
// replaces the existing row with a fresh active term rather than stacking a
// second one.
func (p *Paywall) Subscribe(ctx context.Context, subscriberID, creatorID string) (*subscription.Subscription, error) {
	if subscriberID == "" {
		return nil, ErrUnauthenticated
	}
	if creatorID == "" {
		return nil, ErrInvalidInput
	}
	if subscriberID == creatorID {
		return nil, ErrSelfSubscription
	}

	prof, err := p.store.GetProfile(ctx, creatorID)
	if err != nil {
		if IsNotFound(err) {
			return nil, ErrProfileNotFound
		}
		return nil, err
	}
	if prof.Banned {
		return nil, ErrCreatorBanned
	}

	now := time.Now()
	sub := &subscription.Subscription{
		Entity:       types.NewEntity(),
		ID:           id.NewSubscriptionID(),
		SubscriberID: subscriberID,
		CreatorID:    creatorID,
		Status:       subscription.StatusActive,
		StartsAt:     now,
		EndsAt:       now.Add(p.subscriptionTerm),
	}

	if err := p.store.UpsertSubscription(ctx, sub); err != nil {
		return nil, err
	}

	p.plugins.EmitSubscriptionCreated(ctx, sub)
	return sub, nil
}

// CancelSubscription cancels the subscription from subscriberID to
// creatorID. Cancellation revokes entitlement immediately, not at the end
// of the prepaid term. Returns false when no active subscription exists.
func (p *Paywall) CancelSubscription(ctx context.Context, subscriberID, creatorID string) (bool, error) {
	if subscriberID == "" {
		return false, ErrUnauthenticated
	}

	ok, err := p.store.CancelSubscription(ctx, subscriberID, creatorID, time.Now())
	if err != nil || !ok {
		return ok, err
	}

	if sub, err := p.store.GetSubscription(ctx, subscriberID, creatorID); err == nil {
		p.plugins.EmitSubscriptionCanceled(ctx, sub)
	}

	return true, nil
}

// IsSubscribed reports whether subscriberID holds an active, unlapsed
// subscription to creatorID. This is the hot read path gating every
// subscriber-tier post on every feed render.
func (p *Paywall) IsSubscribed(ctx context.Context, subscriberID, creatorID string) (bool, error) {
	sub, err := p.store.GetSubscription(ctx, subscriberID, creatorID)
	if err != nil {
		if IsNotFound(err) {
			return false, nil
		}
		return false, err
	}
	return sub.ActiveAt(time.Now()), nil
}

// ──────────────────────────────────────────────────
// Atomic Unlock
// ──────────────────────────────────────────────────

// Unlock charges userID once for the pay-per-view post and records the
// unlock. Expected outcomes (already unlocked, insufficient balance, bad
// request) come back as Result statuses, never as errors; the error channel
// is reserved for datastore failure. For N concurrent calls on the same
// (user, post), exactly one debits the wallet; the rest observe
// AlreadyUnlocked with zero ledger mutations.
//
// price is the client-supplied amount and must match the post's recorded
// price, defending against stale or tampered clients.
func (p *Paywall) Unlock(ctx context.Context, userID string, postID id.PostID, price types.Money) (*unlock.Result, error) {
	if userID == "" {
		return p.rejectUnlock(ctx, userID, postID, unlock.StatusInvalid, "unauthenticated"), nil
	}

	pst, err := p.store.GetPost(ctx, postID)
	if err != nil {
		if IsNotFound(err) {
			return p.rejectUnlock(ctx, userID, postID, unlock.StatusInvalid, "post not found"), nil
		}
		return nil, err
	}

	switch {
	case pst.Deleted:
		return p.rejectUnlock(ctx, userID, postID, unlock.StatusInvalid, "post not found"), nil
	case !pst.IsPPV():
		return p.rejectUnlock(ctx, userID, postID, unlock.StatusInvalid, "post is not pay-per-view"), nil
	case userID == pst.CreatorID:
		return p.rejectUnlock(ctx, userID, postID, unlock.StatusInvalid, "creators own their content"), nil
	case pst.Price.Amount != price.Amount || !pst.Price.SameCurrency(price):
		return p.rejectUnlock(ctx, userID, postID, unlock.StatusInvalid, "price mismatch"), nil
	}

	// Same predicate the resolver uses: an existing unlock short-circuits
	// before any ledger work. The uniqueness constraint below still covers
	// the race where two calls pass this check together.
	if existing, err := p.store.GetUnlock(ctx, userID, postID); err == nil {
		return &unlock.Result{Status: unlock.StatusAlreadyUnlocked, Unlock: existing}, nil
	} else if !IsNotFound(err) {
		return nil, err
	}

	if _, err := p.store.GetOrCreateAccount(ctx, userID, p.currency); err != nil {
		return nil, err
	}
	if _, err := p.store.GetOrCreateAccount(ctx, pst.CreatorID, p.currency); err != nil {
		return nil, err
	}

	fee, ok := p.plugins.ComputeFee(pst.Price)
	if !ok {
		fee = pst.Price.ApplyBasisPoints(p.platformFeeBps)
	}
	earning := pst.Price.Subtract(fee)

	now := time.Now()
	eventID := id.NewEventID()

	ulk := &unlock.Unlock{
		ID:        id.NewUnlockID(),
		UserID:    userID,
		PostID:    pst.ID,
		Price:     pst.Price,
		EventID:   eventID,
		CreatedAt: now,
	}
	debit := &wallet.Transaction{
		ID:      id.NewTransactionID(),
		UserID:  userID,
		Kind:    wallet.KindPPVDebit,
		Amount:  pst.Price.Negate(),
		Status:  wallet.TxCompleted,
		EventID: eventID,
		Meta:    map[string]string{"post_id": pst.ID.String(), "unlock_id": ulk.ID.String()},
	}
	credit := &wallet.Transaction{
		ID:      id.NewTransactionID(),
		UserID:  pst.CreatorID,
		Kind:    wallet.KindCreatorEarning,
		Amount:  earning,
		Status:  wallet.TxPending,
		EventID: eventID,
		Meta:    map[string]string{"post_id": pst.ID.String(), "unlock_id": ulk.ID.String()},
	}

	switch err := p.store.ApplyUnlock(ctx, ulk, debit, credit); {
	case err == nil:
		// success path continues below

	case errors.Is(err, ErrAlreadyUnlocked), errors.Is(err, ErrConstraintConflict):
		// Lost the insert race. The winner's row is the grant; this call is
		// a successful no-op, never a 500.
		existing, getErr := p.store.GetUnlock(ctx, userID, postID)
		if getErr != nil {
			return nil, getErr
		}
		return &unlock.Result{Status: unlock.StatusAlreadyUnlocked, Unlock: existing}, nil

	case errors.Is(err, ErrInsufficientBalance):
		p.logger.Info("unlock declined",
			"user_id", userID,
			"post_id", pst.ID,
			"price", pst.Price,
		)
		return p.rejectUnlock(ctx, userID, postID, unlock.StatusInsufficientBalance, "available balance below price"), nil

	default:
		return nil, err
	}

	p.logger.Info("post unlocked",
		"user_id", userID,
		"post_id", pst.ID,
		"price", pst.Price,
		"creator_earning", earning,
		"event_id", eventID,
	)

	p.plugins.EmitPostUnlocked(ctx, ulk)
	return &unlock.Result{Status: unlock.StatusUnlocked, Unlock: ulk}, nil
}

func (p *Paywall) rejectUnlock(ctx context.Context, userID string, postID id.PostID, status unlock.Status, reason string) *unlock.Result {
	p.plugins.EmitUnlockRejected(ctx, userID, postID.String(), string(status))
	return &unlock.Result{Status: status, Reason: reason}
}

// ──────────────────────────────────────────────────
// Wallet
// ──────────────────────────────────────────────────

// Deposit credits a pre-authorized top-up to userID's available balance,
// creating the wallet lazily on first use.
func (p *Paywall) Deposit(ctx context.Context, userID string, amount types.Money) (*wallet.Transaction, error) {
	if userID == "" {
		return nil, ErrUnauthenticated
	}
	if !amount.IsPositive() {
		return nil, ErrInvalidAmount
	}
	if !strings.EqualFold(amount.Currency, p.currency) {
		return nil, ErrCurrencyMismatch
	}

	if _, err := p.store.GetOrCreateAccount(ctx, userID, p.currency); err != nil {
		return nil, err
	}

	txn := &wallet.Transaction{
		ID:      id.NewTransactionID(),
		UserID:  userID,
		Kind:    wallet.KindDeposit,
		Amount:  amount,
		Status:  wallet.TxCompleted,
		EventID: id.NewEventID(),
	}

	if err := p.store.ApplyTransaction(ctx, txn); err != nil {
		return nil, err
	}

	p.plugins.EmitDeposited(ctx, txn)
	return txn, nil
}

// WalletBalance returns userID's available and pending balances. A user
// with no wallet yet reads as zero rather than not-found, matching lazy
// wallet creation.
func (p *Paywall) WalletBalance(ctx context.Context, userID string) (wallet.Balance, error) {
	bal, err := p.store.GetBalance(ctx, userID)
	if err != nil {
		if IsNotFound(err) {
			return wallet.Balance{
				Available: types.Zero(p.currency),
				Pending:   types.Zero(p.currency),
			}, nil
		}
		return wallet.Balance{}, err
	}
	return bal, nil
}

// Transactions returns userID's ledger history, newest first.
func (p *Paywall) Transactions(ctx context.Context, userID string, opts wallet.ListOpts) ([]*wallet.Transaction, error) {
	return p.store.ListTransactions(ctx, userID, opts)
}

// ──────────────────────────────────────────────────
// Background Workers
// ──────────────────────────────────────────────────

// expirySweeper flips lapsed active subscriptions to expired. Pure
// bookkeeping: ActiveAt already denies a lapsed term on its own, so access
// control never waits on a sweep.
func (p *Paywall) expirySweeper(ctx context.Context) {
	defer p.wg.Done()

	ticker := time.NewTicker(p.expirySweep)
	defer ticker.Stop()

	for {
		select {
		case <-p.stopChan:
			return

		case <-ticker.C:
			expired, err := p.store.ExpireSubscriptions(ctx, time.Now())
			if err != nil {
				p.logger.Error("failed to sweep expired subscriptions",
					"error", err,
				)
				continue
			}

			for _, sub := range expired {
				p.plugins.EmitSubscriptionExpired(ctx, sub)
			}

			if len(expired) > 0 {
				p.logger.Debug("swept expired subscriptions",
					"count", len(expired),
				)
			}
		}
	}
}

// ──────────────────────────────────────────────────
// Context Helpers
// ──────────────────────────────────────────────────

type ctxKey int

const countryKey ctxKey = iota

// WithCountry attaches the visitor's best-effort country code to the
// context. The geolocation collaborator supplies the code; an absent or
// empty code fails open in the geo filter.
func WithCountry(ctx context.Context, countryCode string) context.Context {
	return context.WithValue(ctx, countryKey, countryCode)
}

// CountryFrom returns the visitor country attached by WithCountry, or the
// empty string.
func CountryFrom(ctx context.Context) string {
	if v := ctx.Value(countryKey); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}
