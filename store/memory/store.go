// Package memory provides an in-memory Store, primarily for tests and
// examples. It mirrors the constraint semantics the SQL backends get from
// the datastore (unique (user, post) unlocks, unique wallet per user, a
// conditional debit) under a single mutex, so it is a faithful reference
// for the atomicity contract.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	paywall "github.com/xraph/paywall"
	"github.com/xraph/paywall/id"
	"github.com/xraph/paywall/post"
	"github.com/xraph/paywall/profile"
	"github.com/xraph/paywall/store"
	"github.com/xraph/paywall/subscription"
	"github.com/xraph/paywall/types"
	"github.com/xraph/paywall/unlock"
	"github.com/xraph/paywall/wallet"
)

// compile-time interface check
var _ store.Store = (*Store)(nil)

type Store struct {
	mu sync.RWMutex

	posts    map[string]*post.Post                 // post id → post
	profiles map[string]*profile.Profile           // user id → profile
	subs     map[string]*subscription.Subscription // pair key → subscription
	unlocks  map[string]*unlock.Unlock             // pair key → unlock
	accounts map[string]*wallet.Account            // user id → account
	ledger   []*wallet.Transaction                 // append-only, oldest first

	closed bool
}

func New() *Store {
	return &Store{
		posts:    make(map[string]*post.Post),
		profiles: make(map[string]*profile.Profile),
		subs:     make(map[string]*subscription.Subscription),
		unlocks:  make(map[string]*unlock.Unlock),
		accounts: make(map[string]*wallet.Account),
		ledger:   make([]*wallet.Transaction, 0),
	}
}

func pairKey(a, b string) string { return a + "\x00" + b }

// Post Store implementation

func (s *Store) CreatePost(_ context.Context, p *post.Post) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return paywall.ErrStoreClosed
	}
	if _, exists := s.posts[p.ID.String()]; exists {
		return paywall.ErrAlreadyExists
	}
	cp := *p
	s.posts[p.ID.String()] = &cp
	return nil
}

func (s *Store) GetPost(_ context.Context, postID id.PostID) (*post.Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if p, ok := s.posts[postID.String()]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, paywall.ErrPostNotFound
}

func (s *Store) UpdatePost(_ context.Context, p *post.Post) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.posts[p.ID.String()]
	if !ok {
		return paywall.ErrPostNotFound
	}
	// Immutable fields stay pinned regardless of what the caller passes.
	s.posts[p.ID.String()] = cur.Editable(p)
	return nil
}

func (s *Store) SoftDeletePost(_ context.Context, postID id.PostID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.posts[postID.String()]
	if !ok {
		return paywall.ErrPostNotFound
	}
	p.Deleted = true
	p.Touch()
	return nil
}

func (s *Store) ListPostsByCreator(_ context.Context, creatorID string, opts post.ListOpts) ([]*post.Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*post.Post, 0)
	for _, p := range s.posts {
		if p.CreatorID != creatorID {
			continue
		}
		if p.Deleted && !opts.IncludeDeleted {
			continue
		}
		if opts.Visibility != "" && p.Visibility != opts.Visibility {
			continue
		}
		cp := *p
		result = append(result, &cp)
	}
	// Newest first, by TypeID's K-sortable ordering.
	sort.Slice(result, func(i, j int) bool {
		return strings.Compare(result[i].ID.String(), result[j].ID.String()) > 0
	})
	return window(result, opts.Offset, opts.Limit), nil
}

// Profile Store implementation

func (s *Store) GetProfile(_ context.Context, userID string) (*profile.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if p, ok := s.profiles[userID]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, paywall.ErrProfileNotFound
}

func (s *Store) UpsertProfile(_ context.Context, p *profile.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return paywall.ErrStoreClosed
	}
	cp := *p
	s.profiles[p.UserID] = &cp
	return nil
}

// Subscription Store implementation

func (s *Store) UpsertSubscription(_ context.Context, sub *subscription.Subscription) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return paywall.ErrStoreClosed
	}
	cp := *sub
	s.subs[pairKey(sub.SubscriberID, sub.CreatorID)] = &cp
	return nil
}

func (s *Store) GetSubscription(_ context.Context, subscriberID, creatorID string) (*subscription.Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if sub, ok := s.subs[pairKey(subscriberID, creatorID)]; ok {
		cp := *sub
		return &cp, nil
	}
	return nil, paywall.ErrSubscriptionNotFound
}

func (s *Store) CancelSubscription(_ context.Context, subscriberID, creatorID string, canceledAt time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sub, ok := s.subs[pairKey(subscriberID, creatorID)]
	if !ok {
		return false, nil
	}
	sub.Status = subscription.StatusCanceled
	sub.CanceledAt = &canceledAt
	sub.Touch()
	return true, nil
}

func (s *Store) ListSubscriptionsByCreator(_ context.Context, creatorID string, opts subscription.ListOpts) ([]*subscription.Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*subscription.Subscription, 0)
	for _, sub := range s.subs {
		if sub.CreatorID != creatorID {
			continue
		}
		if opts.Status != "" && sub.Status != opts.Status {
			continue
		}
		cp := *sub
		result = append(result, &cp)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].StartsAt.After(result[j].StartsAt)
	})
	return window(result, opts.Offset, opts.Limit), nil
}

func (s *Store) ExpireSubscriptions(_ context.Context, now time.Time) ([]*subscription.Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	expired := make([]*subscription.Subscription, 0)
	for _, sub := range s.subs {
		if sub.Status == subscription.StatusActive && !now.Before(sub.EndsAt) {
			sub.Status = subscription.StatusExpired
			sub.Touch()
			cp := *sub
			expired = append(expired, &cp)
		}
	}
	return expired, nil
}

// Unlock Store implementation

func (s *Store) GetUnlock(_ context.Context, userID string, postID id.PostID) (*unlock.Unlock, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if u, ok := s.unlocks[pairKey(userID, postID.String())]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, paywall.ErrUnlockNotFound
}

func (s *Store) ListUnlocksByUser(_ context.Context, userID string, opts unlock.ListOpts) ([]*unlock.Unlock, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*unlock.Unlock, 0)
	for _, u := range s.unlocks {
		if u.UserID == userID {
			cp := *u
			result = append(result, &cp)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return window(result, opts.Offset, opts.Limit), nil
}

func (s *Store) ApplyUnlock(_ context.Context, u *unlock.Unlock, debit, credit *wallet.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return paywall.ErrStoreClosed
	}

	// Idempotency anchor: the unique (user, post) pair. Under the single
	// lock this is exactly the constraint check the SQL backends get from
	// their unique index.
	key := pairKey(u.UserID, u.PostID.String())
	if _, exists := s.unlocks[key]; exists {
		return paywall.ErrAlreadyUnlocked
	}

	fan := s.getOrCreateAccountLocked(debit.UserID, debit.Amount.Currency)
	if fan.Available.LessThan(debit.Amount.Abs()) {
		return paywall.ErrInsufficientBalance
	}
	creator := s.getOrCreateAccountLocked(credit.UserID, credit.Amount.Currency)

	// Past this point nothing can fail; all mutations commit together.
	fan.Available = fan.Available.Add(debit.Amount)
	fan.Touch()
	creator.Pending = creator.Pending.Add(credit.Amount)
	creator.Touch()

	cu := *u
	if cu.CreatedAt.IsZero() {
		cu.CreatedAt = time.Now().UTC()
	}
	s.unlocks[key] = &cu

	cd, cc := *debit, *credit
	s.ledger = append(s.ledger, &cd, &cc)
	return nil
}

// Wallet Store implementation

func (s *Store) GetOrCreateAccount(_ context.Context, userID string, currency string) (*wallet.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, paywall.ErrStoreClosed
	}
	acct := s.getOrCreateAccountLocked(userID, currency)
	cp := *acct
	return &cp, nil
}

func (s *Store) GetBalance(_ context.Context, userID string) (wallet.Balance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if acct, ok := s.accounts[userID]; ok {
		return wallet.Balance{Available: acct.Available, Pending: acct.Pending}, nil
	}
	return wallet.Balance{}, paywall.ErrAccountNotFound
}

func (s *Store) ApplyTransaction(_ context.Context, txn *wallet.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return paywall.ErrStoreClosed
	}

	acct := s.getOrCreateAccountLocked(txn.UserID, txn.Amount.Currency)

	if txn.Kind.CreditsAvailable() {
		next := acct.Available.Add(txn.Amount)
		if next.IsNegative() {
			return paywall.ErrInsufficientBalance
		}
		acct.Available = next
	} else {
		acct.Pending = acct.Pending.Add(txn.Amount)
	}
	acct.Touch()

	cp := *txn
	s.ledger = append(s.ledger, &cp)
	return nil
}

func (s *Store) ListTransactions(_ context.Context, userID string, opts wallet.ListOpts) ([]*wallet.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*wallet.Transaction, 0)
	// Ledger is append-only oldest first; walk backwards for newest first.
	for i := len(s.ledger) - 1; i >= 0; i-- {
		t := s.ledger[i]
		if t.UserID != userID {
			continue
		}
		if opts.Kind != "" && t.Kind != opts.Kind {
			continue
		}
		cp := *t
		result = append(result, &cp)
	}
	return window(result, opts.Offset, opts.Limit), nil
}

// Core methods

func (s *Store) Migrate(_ context.Context) error { return nil }

func (s *Store) Ping(_ context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return paywall.ErrStoreClosed
	}
	return nil
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// getOrCreateAccountLocked assumes s.mu is held for writing.
func (s *Store) getOrCreateAccountLocked(userID, currency string) *wallet.Account {
	if acct, ok := s.accounts[userID]; ok {
		return acct
	}
	acct := &wallet.Account{
		Entity:    types.NewEntity(),
		ID:        id.NewAccountID(),
		UserID:    userID,
		Available: types.Zero(currency),
		Pending:   types.Zero(currency),
	}
	s.accounts[userID] = acct
	return acct
}

// window applies offset/limit to a slice.
func window[T any](items []T, offset, limit int) []T {
	start := offset
	if start > len(items) {
		start = len(items)
	}
	end := start + limit
	if limit == 0 || end > len(items) {
		end = len(items)
	}
	return items[start:end]
}
