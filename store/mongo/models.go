package mongo

import (
	"time"

	"github.com/xraph/paywall/id"
	"github.com/xraph/paywall/post"
	"github.com/xraph/paywall/profile"
	"github.com/xraph/paywall/subscription"
	"github.com/xraph/paywall/types"
	"github.com/xraph/paywall/unlock"
	"github.com/xraph/paywall/wallet"
)

// ==================== Post models ====================

type postModel struct {
	ID            string    `bson:"_id"`
	CreatorID     string    `bson:"creator_id"`
	Title         string    `bson:"title"`
	Body          string    `bson:"body"`
	MediaURL      string    `bson:"media_url"`
	Visibility    string    `bson:"visibility"`
	PriceCents    int64     `bson:"price_cents"`
	PriceCurrency string    `bson:"price_currency"`
	Deleted       bool      `bson:"deleted"`
	CreatedAt     time.Time `bson:"created_at"`
	UpdatedAt     time.Time `bson:"updated_at"`
}

func toPostModel(p *post.Post) *postModel {
	return &postModel{
		ID:            p.ID.String(),
		CreatorID:     p.CreatorID,
		Title:         p.Title,
		Body:          p.Body,
		MediaURL:      p.MediaURL,
		Visibility:    string(p.Visibility),
		PriceCents:    p.Price.Amount,
		PriceCurrency: p.Price.Currency,
		Deleted:       p.Deleted,
		CreatedAt:     p.CreatedAt,
		UpdatedAt:     p.UpdatedAt,
	}
}

func fromPostModel(m *postModel) (*post.Post, error) {
	postID, err := id.ParsePostID(m.ID)
	if err != nil {
		return nil, err
	}
	return &post.Post{
		Entity: types.Entity{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		ID:         postID,
		CreatorID:  m.CreatorID,
		Title:      m.Title,
		Body:       m.Body,
		MediaURL:   m.MediaURL,
		Visibility: post.Visibility(m.Visibility),
		Price:      types.New(m.PriceCents, m.PriceCurrency),
		Deleted:    m.Deleted,
	}, nil
}

// ==================== Profile models ====================

type profileModel struct {
	UserID           string    `bson:"_id"`
	Role             string    `bson:"role"`
	BlockedCountries []string  `bson:"blocked_countries,omitempty"`
	Banned           bool      `bson:"banned"`
	AgeVerified      bool      `bson:"age_verified"`
	CreatedAt        time.Time `bson:"created_at"`
	UpdatedAt        time.Time `bson:"updated_at"`
}

func toProfileModel(p *profile.Profile) *profileModel {
	return &profileModel{
		UserID:           p.UserID,
		Role:             string(p.Role),
		BlockedCountries: p.BlockedCountries,
		Banned:           p.Banned,
		AgeVerified:      p.AgeVerified,
		CreatedAt:        p.CreatedAt,
		UpdatedAt:        p.UpdatedAt,
	}
}

func fromProfileModel(m *profileModel) *profile.Profile {
	return &profile.Profile{
		Entity: types.Entity{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		UserID:           m.UserID,
		Role:             profile.Role(m.Role),
		BlockedCountries: m.BlockedCountries,
		Banned:           m.Banned,
		AgeVerified:      m.AgeVerified,
	}
}

// ==================== Subscription models ====================

// subscriptionModel carries the subscription ID as a plain field rather
// than _id: the upsert on (subscriber_id, creator_id) replaces the ID for
// each fresh term, and Mongo forbids mutating _id in place.
type subscriptionModel struct {
	ID           string     `bson:"sub_id"`
	SubscriberID string     `bson:"subscriber_id"`
	CreatorID    string     `bson:"creator_id"`
	Status       string     `bson:"status"`
	StartsAt     time.Time  `bson:"starts_at"`
	EndsAt       time.Time  `bson:"ends_at"`
	CanceledAt   *time.Time `bson:"canceled_at,omitempty"`
	CreatedAt    time.Time  `bson:"created_at"`
	UpdatedAt    time.Time  `bson:"updated_at"`
}

func toSubscriptionModel(sub *subscription.Subscription) *subscriptionModel {
	return &subscriptionModel{
		ID:           sub.ID.String(),
		SubscriberID: sub.SubscriberID,
		CreatorID:    sub.CreatorID,
		Status:       string(sub.Status),
		StartsAt:     sub.StartsAt,
		EndsAt:       sub.EndsAt,
		CanceledAt:   sub.CanceledAt,
		CreatedAt:    sub.CreatedAt,
		UpdatedAt:    sub.UpdatedAt,
	}
}

func fromSubscriptionModel(m *subscriptionModel) (*subscription.Subscription, error) {
	subID, err := id.ParseSubscriptionID(m.ID)
	if err != nil {
		return nil, err
	}
	return &subscription.Subscription{
		Entity: types.Entity{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		ID:           subID,
		SubscriberID: m.SubscriberID,
		CreatorID:    m.CreatorID,
		Status:       subscription.Status(m.Status),
		StartsAt:     m.StartsAt,
		EndsAt:       m.EndsAt,
		CanceledAt:   m.CanceledAt,
	}, nil
}

// ==================== Unlock models ====================

type unlockModel struct {
	ID            string    `bson:"_id"`
	UserID        string    `bson:"user_id"`
	PostID        string    `bson:"post_id"`
	PriceCents    int64     `bson:"price_cents"`
	PriceCurrency string    `bson:"price_currency"`
	EventID       string    `bson:"event_id"`
	CreatedAt     time.Time `bson:"created_at"`
}

func toUnlockModel(u *unlock.Unlock) *unlockModel {
	return &unlockModel{
		ID:            u.ID.String(),
		UserID:        u.UserID,
		PostID:        u.PostID.String(),
		PriceCents:    u.Price.Amount,
		PriceCurrency: u.Price.Currency,
		EventID:       u.EventID.String(),
		CreatedAt:     u.CreatedAt,
	}
}

func fromUnlockModel(m *unlockModel) (*unlock.Unlock, error) {
	unlockID, err := id.ParseUnlockID(m.ID)
	if err != nil {
		return nil, err
	}
	postID, err := id.ParsePostID(m.PostID)
	if err != nil {
		return nil, err
	}
	eventID, err := id.ParseEventID(m.EventID)
	if err != nil {
		return nil, err
	}
	return &unlock.Unlock{
		ID:        unlockID,
		UserID:    m.UserID,
		PostID:    postID,
		Price:     types.New(m.PriceCents, m.PriceCurrency),
		EventID:   eventID,
		CreatedAt: m.CreatedAt,
	}, nil
}

// ==================== Wallet models ====================

type accountModel struct {
	UserID         string    `bson:"_id"`
	ID             string    `bson:"account_id"`
	Currency       string    `bson:"currency"`
	AvailableCents int64     `bson:"available_cents"`
	PendingCents   int64     `bson:"pending_cents"`
	CreatedAt      time.Time `bson:"created_at"`
	UpdatedAt      time.Time `bson:"updated_at"`
}

func fromAccountModel(m *accountModel) (*wallet.Account, error) {
	acctID, err := id.ParseAccountID(m.ID)
	if err != nil {
		return nil, err
	}
	return &wallet.Account{
		Entity: types.Entity{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		ID:        acctID,
		UserID:    m.UserID,
		Available: types.New(m.AvailableCents, m.Currency),
		Pending:   types.New(m.PendingCents, m.Currency),
	}, nil
}

type transactionModel struct {
	ID             string            `bson:"_id"`
	UserID         string            `bson:"user_id"`
	Kind           string            `bson:"kind"`
	AmountCents    int64             `bson:"amount_cents"`
	AmountCurrency string            `bson:"amount_currency"`
	Status         string            `bson:"status"`
	EventID        string            `bson:"event_id,omitempty"`
	Meta           map[string]string `bson:"meta,omitempty"`
	CreatedAt      time.Time         `bson:"created_at"`
}

func toTransactionModel(txn *wallet.Transaction) *transactionModel {
	return &transactionModel{
		ID:             txn.ID.String(),
		UserID:         txn.UserID,
		Kind:           string(txn.Kind),
		AmountCents:    txn.Amount.Amount,
		AmountCurrency: txn.Amount.Currency,
		Status:         string(txn.Status),
		EventID:        txn.EventID.String(),
		Meta:           txn.Meta,
		CreatedAt:      time.Now(),
	}
}

func fromTransactionModel(m *transactionModel) (*wallet.Transaction, error) {
	txnID, err := id.ParseTransactionID(m.ID)
	if err != nil {
		return nil, err
	}
	txn := &wallet.Transaction{
		ID:     txnID,
		UserID: m.UserID,
		Kind:   wallet.Kind(m.Kind),
		Amount: types.New(m.AmountCents, m.AmountCurrency),
		Status: wallet.TxStatus(m.Status),
		Meta:   m.Meta,
	}
	if m.EventID != "" {
		txn.EventID, err = id.ParseEventID(m.EventID)
		if err != nil {
			return nil, err
		}
	}
	return txn, nil
}
