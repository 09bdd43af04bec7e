package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	paywall "github.com/xraph/paywall"
	"github.com/xraph/paywall/id"
	"github.com/xraph/paywall/post"
	"github.com/xraph/paywall/subscription"
	"github.com/xraph/paywall/types"
	"github.com/xraph/paywall/unlock"
	"github.com/xraph/paywall/wallet"
)

func seedAccount(t *testing.T, s *Store, userID string, cents int64) {
	t.Helper()
	ctx := context.Background()

	if _, err := s.GetOrCreateAccount(ctx, userID, "usd"); err != nil {
		t.Fatalf("create account: %v", err)
	}
	if cents == 0 {
		return
	}
	err := s.ApplyTransaction(ctx, &wallet.Transaction{
		ID:      id.NewTransactionID(),
		UserID:  userID,
		Kind:    wallet.KindDeposit,
		Amount:  types.USD(cents),
		Status:  wallet.TxCompleted,
		EventID: id.NewEventID(),
	})
	if err != nil {
		t.Fatalf("seed deposit: %v", err)
	}
}

func unlockAttempt(userID string, postID id.PostID, price types.Money) (*unlock.Unlock, *wallet.Transaction, *wallet.Transaction) {
	eventID := id.NewEventID()
	u := &unlock.Unlock{
		ID:        id.NewUnlockID(),
		UserID:    userID,
		PostID:    postID,
		Price:     price,
		EventID:   eventID,
		CreatedAt: time.Now().UTC(),
	}
	debit := &wallet.Transaction{
		ID:      id.NewTransactionID(),
		UserID:  userID,
		Kind:    wallet.KindPPVDebit,
		Amount:  price.Negate(),
		Status:  wallet.TxCompleted,
		EventID: eventID,
	}
	credit := &wallet.Transaction{
		ID:      id.NewTransactionID(),
		UserID:  "creator-1",
		Kind:    wallet.KindCreatorEarning,
		Amount:  price,
		Status:  wallet.TxPending,
		EventID: eventID,
	}
	return u, debit, credit
}

func TestApplyUnlockConcurrent(t *testing.T) {
	s := New()
	ctx := context.Background()
	postID := id.NewPostID()
	price := types.USD(500)

	seedAccount(t, s, "fan-1", 500)
	seedAccount(t, s, "creator-1", 0)

	const attempts = 16
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		duplicate int
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			u, debit, credit := unlockAttempt("fan-1", postID, price)
			err := s.ApplyUnlock(ctx, u, debit, credit)

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case errors.Is(err, paywall.ErrAlreadyUnlocked):
				duplicate++
			case errors.Is(err, paywall.ErrInsufficientBalance):
				t.Errorf("insufficient balance before any unlock succeeded")
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if succeeded != 1 {
		t.Fatalf("succeeded = %d, want exactly 1", succeeded)
	}
	if duplicate != attempts-1 {
		t.Fatalf("duplicate = %d, want %d", duplicate, attempts-1)
	}

	bal, err := s.GetBalance(ctx, "fan-1")
	if err != nil {
		t.Fatalf("get balance: %v", err)
	}
	if bal.Available.Amount != 0 {
		t.Errorf("fan available = %d, want 0", bal.Available.Amount)
	}

	creatorBal, err := s.GetBalance(ctx, "creator-1")
	if err != nil {
		t.Fatalf("get creator balance: %v", err)
	}
	if creatorBal.Pending.Amount != 500 {
		t.Errorf("creator pending = %d, want 500", creatorBal.Pending.Amount)
	}

	unlocks, err := s.ListUnlocksByUser(ctx, "fan-1", unlock.ListOpts{})
	if err != nil {
		t.Fatalf("list unlocks: %v", err)
	}
	if len(unlocks) != 1 {
		t.Errorf("unlocks = %d, want 1", len(unlocks))
	}
}

func TestApplyUnlockInsufficientBalance(t *testing.T) {
	s := New()
	ctx := context.Background()
	postID := id.NewPostID()

	seedAccount(t, s, "fan-1", 300)
	seedAccount(t, s, "creator-1", 0)

	u, debit, credit := unlockAttempt("fan-1", postID, types.USD(500))
	err := s.ApplyUnlock(ctx, u, debit, credit)
	if !errors.Is(err, paywall.ErrInsufficientBalance) {
		t.Fatalf("err = %v, want ErrInsufficientBalance", err)
	}

	// Nothing may have moved.
	bal, err := s.GetBalance(ctx, "fan-1")
	if err != nil {
		t.Fatalf("get balance: %v", err)
	}
	if bal.Available.Amount != 300 {
		t.Errorf("fan available = %d, want 300", bal.Available.Amount)
	}
	if _, err := s.GetUnlock(ctx, "fan-1", postID); !errors.Is(err, paywall.ErrUnlockNotFound) {
		t.Errorf("unlock err = %v, want ErrUnlockNotFound", err)
	}
	txns, err := s.ListTransactions(ctx, "fan-1", wallet.ListOpts{Kind: wallet.KindPPVDebit})
	if err != nil {
		t.Fatalf("list transactions: %v", err)
	}
	if len(txns) != 0 {
		t.Errorf("debit rows = %d, want 0", len(txns))
	}
}

func TestApplyUnlockLedgerPair(t *testing.T) {
	s := New()
	ctx := context.Background()
	postID := id.NewPostID()

	seedAccount(t, s, "fan-1", 1000)
	seedAccount(t, s, "creator-1", 0)

	u, debit, credit := unlockAttempt("fan-1", postID, types.USD(500))
	if err := s.ApplyUnlock(ctx, u, debit, credit); err != nil {
		t.Fatalf("apply unlock: %v", err)
	}

	debits, err := s.ListTransactions(ctx, "fan-1", wallet.ListOpts{Kind: wallet.KindPPVDebit})
	if err != nil {
		t.Fatalf("list debits: %v", err)
	}
	credits, err := s.ListTransactions(ctx, "creator-1", wallet.ListOpts{Kind: wallet.KindCreatorEarning})
	if err != nil {
		t.Fatalf("list credits: %v", err)
	}
	if len(debits) != 1 || len(credits) != 1 {
		t.Fatalf("ledger rows = %d debits, %d credits, want 1 and 1", len(debits), len(credits))
	}
	if debits[0].EventID.String() != credits[0].EventID.String() {
		t.Errorf("event ids differ: %s vs %s", debits[0].EventID, credits[0].EventID)
	}
	if debits[0].Amount.Amount != -500 {
		t.Errorf("debit amount = %d, want -500", debits[0].Amount.Amount)
	}
}

func TestSubscriptionLifecycle(t *testing.T) {
	s := New()
	ctx := context.Background()
	now := time.Now().UTC()

	sub := &subscription.Subscription{
		Entity:       types.NewEntity(),
		ID:           id.NewSubscriptionID(),
		SubscriberID: "fan-1",
		CreatorID:    "creator-1",
		Status:       subscription.StatusActive,
		StartsAt:     now,
		EndsAt:       now.Add(subscription.Term),
	}
	if err := s.UpsertSubscription(ctx, sub); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	got, err := s.GetSubscription(ctx, "fan-1", "creator-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !got.ActiveAt(now) {
		t.Error("fresh subscription not active")
	}

	// Re-subscribing replaces the row; one subscription per pair.
	renewed := *sub
	renewed.ID = id.NewSubscriptionID()
	renewed.EndsAt = now.Add(2 * subscription.Term)
	if err := s.UpsertSubscription(ctx, &renewed); err != nil {
		t.Fatalf("renew: %v", err)
	}
	got, err = s.GetSubscription(ctx, "fan-1", "creator-1")
	if err != nil {
		t.Fatalf("get renewed: %v", err)
	}
	if got.ID.String() != renewed.ID.String() {
		t.Errorf("renewal kept old id %s", got.ID)
	}

	canceled, err := s.CancelSubscription(ctx, "fan-1", "creator-1", now)
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if !canceled {
		t.Fatal("cancel reported no change")
	}
	got, err = s.GetSubscription(ctx, "fan-1", "creator-1")
	if err != nil {
		t.Fatalf("get canceled: %v", err)
	}
	if got.ActiveAt(now) {
		t.Error("canceled subscription still active")
	}
	if got.CanceledAt == nil {
		t.Error("canceled_at not set")
	}

	unknown, err := s.CancelSubscription(ctx, "fan-1", "nobody", now)
	if err != nil {
		t.Fatalf("cancel unknown: %v", err)
	}
	if unknown {
		t.Error("cancel of unknown pair reported a change")
	}
}

func TestExpireSubscriptions(t *testing.T) {
	s := New()
	ctx := context.Background()
	now := time.Now().UTC()

	mk := func(subscriber string, endsAt time.Time) {
		t.Helper()
		err := s.UpsertSubscription(ctx, &subscription.Subscription{
			Entity:       types.NewEntity(),
			ID:           id.NewSubscriptionID(),
			SubscriberID: subscriber,
			CreatorID:    "creator-1",
			Status:       subscription.StatusActive,
			StartsAt:     endsAt.Add(-subscription.Term),
			EndsAt:       endsAt,
		})
		if err != nil {
			t.Fatalf("upsert %s: %v", subscriber, err)
		}
	}
	mk("lapsed-1", now.Add(-time.Hour))
	mk("lapsed-2", now.Add(-time.Minute))
	mk("current", now.Add(time.Hour))

	expired, err := s.ExpireSubscriptions(ctx, now)
	if err != nil {
		t.Fatalf("expire: %v", err)
	}
	if len(expired) != 2 {
		t.Fatalf("expired = %d, want 2", len(expired))
	}
	for _, sub := range expired {
		if sub.Status != subscription.StatusExpired {
			t.Errorf("%s status = %s, want expired", sub.SubscriberID, sub.Status)
		}
	}

	got, err := s.GetSubscription(ctx, "current", "creator-1")
	if err != nil {
		t.Fatalf("get current: %v", err)
	}
	if got.Status != subscription.StatusActive {
		t.Errorf("current subscription status = %s, want active", got.Status)
	}

	// Second sweep finds nothing.
	again, err := s.ExpireSubscriptions(ctx, now)
	if err != nil {
		t.Fatalf("second expire: %v", err)
	}
	if len(again) != 0 {
		t.Errorf("second sweep expired %d, want 0", len(again))
	}
}

func TestGetOrCreateAccountIdempotent(t *testing.T) {
	s := New()
	ctx := context.Background()

	first, err := s.GetOrCreateAccount(ctx, "fan-1", "usd")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	second, err := s.GetOrCreateAccount(ctx, "fan-1", "usd")
	if err != nil {
		t.Fatalf("second create: %v", err)
	}
	if first.ID.String() != second.ID.String() {
		t.Errorf("account recreated: %s vs %s", first.ID, second.ID)
	}
	if !first.Available.IsZero() {
		t.Errorf("fresh account available = %d, want 0", first.Available.Amount)
	}
}

func TestApplyTransactionDebitGuard(t *testing.T) {
	s := New()
	ctx := context.Background()
	seedAccount(t, s, "fan-1", 200)

	err := s.ApplyTransaction(ctx, &wallet.Transaction{
		ID:      id.NewTransactionID(),
		UserID:  "fan-1",
		Kind:    wallet.KindPPVDebit,
		Amount:  types.USD(300).Negate(),
		Status:  wallet.TxCompleted,
		EventID: id.NewEventID(),
	})
	if !errors.Is(err, paywall.ErrInsufficientBalance) {
		t.Fatalf("err = %v, want ErrInsufficientBalance", err)
	}

	bal, err := s.GetBalance(ctx, "fan-1")
	if err != nil {
		t.Fatalf("get balance: %v", err)
	}
	if bal.Available.Amount != 200 {
		t.Errorf("available = %d, want 200", bal.Available.Amount)
	}
}

func TestSoftDeletePostHidesFromListing(t *testing.T) {
	s := New()
	ctx := context.Background()

	p := &post.Post{
		Entity:     types.NewEntity(),
		ID:         id.NewPostID(),
		CreatorID:  "creator-1",
		Title:      "hello",
		Visibility: post.VisibilityFree,
		Price:      types.Zero("usd"),
	}
	if err := s.CreatePost(ctx, p); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := s.SoftDeletePost(ctx, p.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	visible, err := s.ListPostsByCreator(ctx, "creator-1", post.ListOpts{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(visible) != 0 {
		t.Errorf("visible posts = %d, want 0", len(visible))
	}

	all, err := s.ListPostsByCreator(ctx, "creator-1", post.ListOpts{IncludeDeleted: true})
	if err != nil {
		t.Fatalf("list all: %v", err)
	}
	if len(all) != 1 || !all[0].Deleted {
		t.Errorf("creator view = %d posts, want 1 soft-deleted", len(all))
	}

	// The row survives; the resolver still sees it when asked directly.
	got, err := s.GetPost(ctx, p.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !got.Deleted {
		t.Error("deleted flag not set")
	}
}
