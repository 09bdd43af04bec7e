package paywall_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	paywall "github.com/xraph/paywall"
	"github.com/xraph/paywall/entitlement"
	"github.com/xraph/paywall/id"
	"github.com/xraph/paywall/post"
	"github.com/xraph/paywall/profile"
	"github.com/xraph/paywall/store/memory"
	"github.com/xraph/paywall/types"
	"github.com/xraph/paywall/unlock"
	"github.com/xraph/paywall/wallet"
)

// harness wires an engine over the in-memory store with profiles seeded.
type harness struct {
	engine *paywall.Paywall
	store  *memory.Store
}

func newHarness(t *testing.T, opts ...paywall.Option) *harness {
	t.Helper()
	ctx := context.Background()

	s := memory.New()
	for _, prof := range []*profile.Profile{
		{Entity: types.NewEntity(), UserID: "creator-1", Role: profile.RoleCreator},
		{Entity: types.NewEntity(), UserID: "fan-1", Role: profile.RoleFan},
		{Entity: types.NewEntity(), UserID: "fan-2", Role: profile.RoleFan},
	} {
		if err := s.UpsertProfile(ctx, prof); err != nil {
			t.Fatalf("seed profile %s: %v", prof.UserID, err)
		}
	}

	engine := paywall.New(s, opts...)
	if err := engine.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	t.Cleanup(func() {
		if err := engine.Stop(); err != nil {
			t.Errorf("stop: %v", err)
		}
	})
	return &harness{engine: engine, store: s}
}

func (h *harness) createPost(t *testing.T, visibility post.Visibility, price types.Money) *post.Post {
	t.Helper()
	p := &post.Post{
		CreatorID:  "creator-1",
		Title:      "a post",
		Body:       "body",
		Visibility: visibility,
		Price:      price,
	}
	if err := h.engine.CreatePost(context.Background(), p); err != nil {
		t.Fatalf("create post: %v", err)
	}
	return p
}

func (h *harness) deposit(t *testing.T, userID string, cents int64) {
	t.Helper()
	if _, err := h.engine.Deposit(context.Background(), userID, types.USD(cents)); err != nil {
		t.Fatalf("deposit %d to %s: %v", cents, userID, err)
	}
}

func TestCheckAccessTiers(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	free := h.createPost(t, post.VisibilityFree, types.Zero("usd"))
	subOnly := h.createPost(t, post.VisibilitySubscribers, types.Zero("usd"))
	ppv := h.createPost(t, post.VisibilityPPV, types.USD(500))

	tests := []struct {
		name    string
		viewer  string
		post    id.PostID
		allowed bool
		reason  entitlement.Reason
	}{
		{"anonymous sees free", "", free.ID, true, entitlement.ReasonFree},
		{"anonymous denied subscribers tier", "", subOnly.ID, false, entitlement.ReasonAnonymous},
		{"anonymous denied ppv", "", ppv.ID, false, entitlement.ReasonAnonymous},
		{"fan sees free", "fan-1", free.ID, true, entitlement.ReasonFree},
		{"non-subscriber denied", "fan-1", subOnly.ID, false, entitlement.ReasonNoSubscription},
		{"fan without unlock denied ppv", "fan-1", ppv.ID, false, entitlement.ReasonNotUnlocked},
		{"creator sees own ppv", "creator-1", ppv.ID, true, entitlement.ReasonOwnContent},
		{"creator sees own subscribers tier", "creator-1", subOnly.ID, true, entitlement.ReasonOwnContent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := h.engine.CheckAccess(ctx, tt.viewer, tt.post)
			if err != nil {
				t.Fatalf("check access: %v", err)
			}
			if d.Allowed != tt.allowed || d.Reason != tt.reason {
				t.Errorf("decision = (%v, %s), want (%v, %s)", d.Allowed, d.Reason, tt.allowed, tt.reason)
			}
		})
	}
}

func TestCheckAccessMissingAndDeletedPost(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	d, err := h.engine.CheckAccess(ctx, "fan-1", id.NewPostID())
	if err != nil {
		t.Fatalf("check missing: %v", err)
	}
	if d.Allowed || d.Reason != entitlement.ReasonPostMissing {
		t.Errorf("missing post decision = (%v, %s)", d.Allowed, d.Reason)
	}

	p := h.createPost(t, post.VisibilityFree, types.Zero("usd"))
	if err := h.engine.DeletePost(ctx, p.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	d, err = h.engine.CheckAccess(ctx, "fan-1", p.ID)
	if err != nil {
		t.Fatalf("check deleted: %v", err)
	}
	if d.Allowed || d.Reason != entitlement.ReasonPostDeleted {
		t.Errorf("deleted post decision = (%v, %s)", d.Allowed, d.Reason)
	}
}

func TestSubscribeGrantsAndCancelRevokesImmediately(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	subOnly := h.createPost(t, post.VisibilitySubscribers, types.Zero("usd"))

	sub, err := h.engine.Subscribe(ctx, "fan-1", "creator-1")
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	if sub.EndsAt.Before(time.Now().Add(29 * 24 * time.Hour)) {
		t.Errorf("term too short: ends %s", sub.EndsAt)
	}

	d, err := h.engine.CheckAccess(ctx, "fan-1", subOnly.ID)
	if err != nil {
		t.Fatalf("check access: %v", err)
	}
	if !d.Allowed || d.Reason != entitlement.ReasonActiveSub {
		t.Fatalf("subscriber decision = (%v, %s)", d.Allowed, d.Reason)
	}

	ok, err := h.engine.CancelSubscription(ctx, "fan-1", "creator-1")
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if !ok {
		t.Fatal("cancel reported no change")
	}

	// Revoked right away, not at the end of the prepaid term.
	d, err = h.engine.CheckAccess(ctx, "fan-1", subOnly.ID)
	if err != nil {
		t.Fatalf("check after cancel: %v", err)
	}
	if d.Allowed {
		t.Errorf("access still allowed after cancel: %s", d.Reason)
	}

	// Cancel is not idempotent in its return value.
	ok, err = h.engine.CancelSubscription(ctx, "fan-1", "creator-1")
	if err != nil {
		t.Fatalf("second cancel: %v", err)
	}
	if ok {
		t.Error("second cancel reported a change")
	}
}

func TestSubscribeValidation(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	if _, err := h.engine.Subscribe(ctx, "", "creator-1"); !errors.Is(err, paywall.ErrUnauthenticated) {
		t.Errorf("anonymous subscribe err = %v", err)
	}
	if _, err := h.engine.Subscribe(ctx, "creator-1", "creator-1"); !errors.Is(err, paywall.ErrSelfSubscription) {
		t.Errorf("self subscribe err = %v", err)
	}
	if _, err := h.engine.Subscribe(ctx, "fan-1", "nobody"); !errors.Is(err, paywall.ErrProfileNotFound) {
		t.Errorf("unknown creator err = %v", err)
	}
}

func TestUnlockHappyPathAndIdempotency(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	ppv := h.createPost(t, post.VisibilityPPV, types.USD(500))
	h.deposit(t, "fan-1", 500)

	res, err := h.engine.Unlock(ctx, "fan-1", ppv.ID, ppv.Price)
	if err != nil {
		t.Fatalf("unlock: %v", err)
	}
	if res.Status != unlock.StatusUnlocked {
		t.Fatalf("status = %s, want unlocked", res.Status)
	}
	if res.Unlock == nil || res.Unlock.Price.Amount != 500 {
		t.Fatal("unlock record missing or wrong price")
	}

	bal, err := h.engine.WalletBalance(ctx, "fan-1")
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if bal.Available.Amount != 0 {
		t.Errorf("available = %d, want 0", bal.Available.Amount)
	}

	d, err := h.engine.CheckAccess(ctx, "fan-1", ppv.ID)
	if err != nil {
		t.Fatalf("check access: %v", err)
	}
	if !d.Allowed || d.Reason != entitlement.ReasonUnlocked {
		t.Errorf("post-unlock decision = (%v, %s)", d.Allowed, d.Reason)
	}

	// Repeat purchase charges nothing and returns the original record.
	again, err := h.engine.Unlock(ctx, "fan-1", ppv.ID, ppv.Price)
	if err != nil {
		t.Fatalf("repeat unlock: %v", err)
	}
	if again.Status != unlock.StatusAlreadyUnlocked {
		t.Fatalf("repeat status = %s, want already_unlocked", again.Status)
	}
	if again.Unlock == nil || again.Unlock.ID.String() != res.Unlock.ID.String() {
		t.Error("repeat did not return the original unlock record")
	}
	bal, _ = h.engine.WalletBalance(ctx, "fan-1")
	if bal.Available.Amount != 0 {
		t.Errorf("balance moved on repeat: %d", bal.Available.Amount)
	}
}

func TestUnlockConcurrentChargesOnce(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	ppv := h.createPost(t, post.VisibilityPPV, types.USD(500))
	h.deposit(t, "fan-1", 500)

	const attempts = 8
	results := make([]*unlock.Result, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := h.engine.Unlock(ctx, "fan-1", ppv.ID, ppv.Price)
			if err != nil {
				t.Errorf("unlock %d: %v", i, err)
				return
			}
			results[i] = res
		}(i)
	}
	wg.Wait()

	var charged, idempotent int
	for _, res := range results {
		if res == nil {
			continue
		}
		switch res.Status {
		case unlock.StatusUnlocked:
			charged++
		case unlock.StatusAlreadyUnlocked:
			idempotent++
		default:
			t.Errorf("unexpected status %s", res.Status)
		}
	}
	if charged != 1 {
		t.Errorf("charged = %d, want exactly 1", charged)
	}
	if charged+idempotent != attempts {
		t.Errorf("resolved = %d, want %d", charged+idempotent, attempts)
	}

	bal, err := h.engine.WalletBalance(ctx, "fan-1")
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if bal.Available.Amount != 0 {
		t.Errorf("available = %d, want 0", bal.Available.Amount)
	}
}

func TestUnlockRejections(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	ppv := h.createPost(t, post.VisibilityPPV, types.USD(500))
	free := h.createPost(t, post.VisibilityFree, types.Zero("usd"))
	h.deposit(t, "fan-1", 100)

	tests := []struct {
		name   string
		user   string
		post   id.PostID
		price  types.Money
		status unlock.Status
	}{
		{"anonymous", "", ppv.ID, types.USD(500), unlock.StatusInvalid},
		{"missing post", "fan-1", id.NewPostID(), types.USD(500), unlock.StatusInvalid},
		{"not ppv", "fan-1", free.ID, types.Zero("usd"), unlock.StatusInvalid},
		{"own post", "creator-1", ppv.ID, types.USD(500), unlock.StatusInvalid},
		{"stale price", "fan-1", ppv.ID, types.USD(300), unlock.StatusInvalid},
		{"insufficient balance", "fan-1", ppv.ID, types.USD(500), unlock.StatusInsufficientBalance},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := h.engine.Unlock(ctx, tt.user, tt.post, tt.price)
			if err != nil {
				t.Fatalf("unlock: %v", err)
			}
			if res.Status != tt.status {
				t.Errorf("status = %s (%s), want %s", res.Status, res.Reason, tt.status)
			}
			if res.Unlock != nil {
				t.Error("rejected attempt carries an unlock record")
			}
		})
	}

	// The failed attempts must not have touched the wallet.
	bal, err := h.engine.WalletBalance(ctx, "fan-1")
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if bal.Available.Amount != 100 {
		t.Errorf("available = %d, want 100", bal.Available.Amount)
	}
}

func TestUnlockPlatformFeeSplit(t *testing.T) {
	h := newHarness(t, paywall.WithPlatformFee(1000)) // 10%
	ctx := context.Background()
	ppv := h.createPost(t, post.VisibilityPPV, types.USD(1000))
	h.deposit(t, "fan-1", 1000)

	res, err := h.engine.Unlock(ctx, "fan-1", ppv.ID, ppv.Price)
	if err != nil {
		t.Fatalf("unlock: %v", err)
	}
	if res.Status != unlock.StatusUnlocked {
		t.Fatalf("status = %s", res.Status)
	}

	// Fan pays full price; creator earns price minus the fee, on pending.
	fanBal, _ := h.engine.WalletBalance(ctx, "fan-1")
	if fanBal.Available.Amount != 0 {
		t.Errorf("fan available = %d, want 0", fanBal.Available.Amount)
	}
	creatorBal, _ := h.engine.WalletBalance(ctx, "creator-1")
	if creatorBal.Pending.Amount != 900 {
		t.Errorf("creator pending = %d, want 900", creatorBal.Pending.Amount)
	}

	txns, err := h.engine.Transactions(ctx, "creator-1", wallet.ListOpts{Kind: wallet.KindCreatorEarning})
	if err != nil {
		t.Fatalf("transactions: %v", err)
	}
	if len(txns) != 1 || txns[0].Status != wallet.TxPending {
		t.Fatalf("earning rows = %d, want 1 pending", len(txns))
	}
	if txns[0].EventID.String() != res.Unlock.EventID.String() {
		t.Error("earning not linked to the unlock's event")
	}
}

func TestGeoBlockedCreator(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	err := h.store.UpsertProfile(ctx, &profile.Profile{
		Entity:           types.NewEntity(),
		UserID:           "creator-1",
		Role:             profile.RoleCreator,
		BlockedCountries: []string{"DE", "FR"},
	})
	if err != nil {
		t.Fatalf("seed profile: %v", err)
	}
	free := h.createPost(t, post.VisibilityFree, types.Zero("usd"))

	// Visitor from a blocked country: content does not exist for them.
	blocked := paywall.WithCountry(ctx, "de")
	d, err := h.engine.CheckAccess(blocked, "fan-1", free.ID)
	if err != nil {
		t.Fatalf("check access: %v", err)
	}
	if d.Allowed || d.Reason != entitlement.ReasonGeoBlocked {
		t.Errorf("blocked decision = (%v, %s)", d.Allowed, d.Reason)
	}

	feed, err := h.engine.CreatorFeed(blocked, "fan-1", "creator-1")
	if err != nil {
		t.Fatalf("feed: %v", err)
	}
	if len(feed) != 0 {
		t.Errorf("blocked feed = %d posts, want 0", len(feed))
	}

	// Unknown origin fails open.
	d, err = h.engine.CheckAccess(ctx, "fan-1", free.ID)
	if err != nil {
		t.Fatalf("check access no country: %v", err)
	}
	if !d.Allowed {
		t.Errorf("fail-open decision = (%v, %s)", d.Allowed, d.Reason)
	}

	// The creator is never blocked from their own content.
	d, err = h.engine.CheckAccess(paywall.WithCountry(ctx, "DE"), "creator-1", free.ID)
	if err != nil {
		t.Fatalf("creator self access: %v", err)
	}
	if !d.Allowed {
		t.Errorf("creator blocked from own content: %s", d.Reason)
	}
}

func TestBannedCreatorHidden(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	free := h.createPost(t, post.VisibilityFree, types.Zero("usd"))

	err := h.store.UpsertProfile(ctx, &profile.Profile{
		Entity: types.NewEntity(),
		UserID: "creator-1",
		Role:   profile.RoleCreator,
		Banned: true,
	})
	if err != nil {
		t.Fatalf("ban creator: %v", err)
	}

	d, err := h.engine.CheckAccess(ctx, "fan-1", free.ID)
	if err != nil {
		t.Fatalf("check access: %v", err)
	}
	if d.Allowed || d.Reason != entitlement.ReasonCreatorBanned {
		t.Errorf("decision = (%v, %s)", d.Allowed, d.Reason)
	}
}

func TestDeposit(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	txn, err := h.engine.Deposit(ctx, "fan-1", types.USD(2500))
	if err != nil {
		t.Fatalf("deposit: %v", err)
	}
	if txn.Kind != wallet.KindDeposit || txn.Status != wallet.TxCompleted {
		t.Errorf("txn = %s/%s", txn.Kind, txn.Status)
	}

	bal, err := h.engine.WalletBalance(ctx, "fan-1")
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if bal.Available.Amount != 2500 {
		t.Errorf("available = %d, want 2500", bal.Available.Amount)
	}

	if _, err := h.engine.Deposit(ctx, "", types.USD(100)); !errors.Is(err, paywall.ErrUnauthenticated) {
		t.Errorf("anonymous deposit err = %v", err)
	}
	if _, err := h.engine.Deposit(ctx, "fan-1", types.USD(0)); !errors.Is(err, paywall.ErrInvalidAmount) {
		t.Errorf("zero deposit err = %v", err)
	}
	if _, err := h.engine.Deposit(ctx, "fan-1", types.USD(-100)); !errors.Is(err, paywall.ErrInvalidAmount) {
		t.Errorf("negative deposit err = %v", err)
	}
	if _, err := h.engine.Deposit(ctx, "fan-1", types.EUR(100)); !errors.Is(err, paywall.ErrCurrencyMismatch) {
		t.Errorf("foreign currency deposit err = %v", err)
	}
}

func TestWalletBalanceWithoutAccount(t *testing.T) {
	h := newHarness(t)

	bal, err := h.engine.WalletBalance(context.Background(), "fan-1")
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if bal.Available.Amount != 0 || bal.Pending.Amount != 0 {
		t.Errorf("fresh balance = %d/%d, want 0/0", bal.Available.Amount, bal.Pending.Amount)
	}
}

func TestUpdatePostKeepsImmutableFields(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	ppv := h.createPost(t, post.VisibilityPPV, types.USD(500))

	edit := *ppv
	edit.Title = "new title"
	if err := h.engine.UpdatePost(ctx, &edit); err != nil {
		t.Fatalf("update: %v", err)
	}

	got, err := h.engine.GetPost(ctx, ppv.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Title != "new title" {
		t.Errorf("title = %q", got.Title)
	}

	repriced := *ppv
	repriced.Price = types.USD(900)
	if err := h.engine.UpdatePost(ctx, &repriced); !errors.Is(err, paywall.ErrImmutableField) {
		t.Errorf("reprice err = %v, want ErrImmutableField", err)
	}

	retiered := *ppv
	retiered.Visibility = post.VisibilityFree
	if err := h.engine.UpdatePost(ctx, &retiered); !errors.Is(err, paywall.ErrImmutableField) {
		t.Errorf("retier err = %v, want ErrImmutableField", err)
	}
}

func TestCreatorFeedVisibility(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	h.createPost(t, post.VisibilityFree, types.Zero("usd"))
	deleted := h.createPost(t, post.VisibilityFree, types.Zero("usd"))
	if err := h.engine.DeletePost(ctx, deleted.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	feed, err := h.engine.CreatorFeed(ctx, "fan-1", "creator-1")
	if err != nil {
		t.Fatalf("feed: %v", err)
	}
	if len(feed) != 1 {
		t.Errorf("fan feed = %d posts, want 1", len(feed))
	}

	own, err := h.engine.CreatorFeed(ctx, "creator-1", "creator-1")
	if err != nil {
		t.Fatalf("own feed: %v", err)
	}
	if len(own) != 2 {
		t.Errorf("creator feed = %d posts, want 2 including deleted", len(own))
	}
}
