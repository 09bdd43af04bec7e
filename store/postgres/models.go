package postgres

import (
	"encoding/json"
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

type postRow struct {
	ID            string
	CreatorID     string
	Title         string
	Body          string
	MediaURL      string
	Visibility    string
	PriceCents    int64
	PriceCurrency string
	Deleted       bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (r *postRow) toDomain() (*post.Post, error) {
	postID, err := id.ParsePostID(r.ID)
	if err != nil {
		return nil, err
	}

	return &post.Post{
		Entity: types.Entity{
			CreatedAt: r.CreatedAt,
			UpdatedAt: r.UpdatedAt,
		},
		ID:         postID,
		CreatorID:  r.CreatorID,
		Title:      r.Title,
		Body:       r.Body,
		MediaURL:   r.MediaURL,
		Visibility: post.Visibility(r.Visibility),
		Price:      types.New(r.PriceCents, r.PriceCurrency),
		Deleted:    r.Deleted,
	}, nil
}

// ==================== Profile models ====================

type profileRow struct {
	UserID           string
	Role             string
	BlockedCountries []string
	Banned           bool
	AgeVerified      bool
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

func (r *profileRow) toDomain() *profile.Profile {
	return &profile.Profile{
		Entity: types.Entity{
			CreatedAt: r.CreatedAt,
			UpdatedAt: r.UpdatedAt,
		},
		UserID:           r.UserID,
		Role:             profile.Role(r.Role),
		BlockedCountries: r.BlockedCountries,
		Banned:           r.Banned,
		AgeVerified:      r.AgeVerified,
	}
}

// ==================== Subscription models ====================

type subscriptionRow struct {
	ID           string
	SubscriberID string
	CreatorID    string
	Status       string
	StartsAt     time.Time
	EndsAt       time.Time
	CanceledAt   *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (r *subscriptionRow) toDomain() (*subscription.Subscription, error) {
	subID, err := id.ParseSubscriptionID(r.ID)
	if err != nil {
		return nil, err
	}

	return &subscription.Subscription{
		Entity: types.Entity{
			CreatedAt: r.CreatedAt,
			UpdatedAt: r.UpdatedAt,
		},
		ID:           subID,
		SubscriberID: r.SubscriberID,
		CreatorID:    r.CreatorID,
		Status:       subscription.Status(r.Status),
		StartsAt:     r.StartsAt,
		EndsAt:       r.EndsAt,
		CanceledAt:   r.CanceledAt,
	}, nil
}

// ==================== Unlock models ====================

type unlockRow struct {
	ID            string
	UserID        string
	PostID        string
	PriceCents    int64
	PriceCurrency string
	EventID       string
	CreatedAt     time.Time
}

func (r *unlockRow) toDomain() (*unlock.Unlock, error) {
	unlockID, err := id.ParseUnlockID(r.ID)
	if err != nil {
		return nil, err
	}
	postID, err := id.ParsePostID(r.PostID)
	if err != nil {
		return nil, err
	}
	eventID, err := id.ParseEventID(r.EventID)
	if err != nil {
		return nil, err
	}

	return &unlock.Unlock{
		ID:        unlockID,
		UserID:    r.UserID,
		PostID:    postID,
		Price:     types.New(r.PriceCents, r.PriceCurrency),
		EventID:   eventID,
		CreatedAt: r.CreatedAt,
	}, nil
}

// ==================== Wallet models ====================

type accountRow struct {
	ID             string
	UserID         string
	Currency       string
	AvailableCents int64
	PendingCents   int64
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (r *accountRow) toDomain() (*wallet.Account, error) {
	acctID, err := id.ParseAccountID(r.ID)
	if err != nil {
		return nil, err
	}

	return &wallet.Account{
		Entity: types.Entity{
			CreatedAt: r.CreatedAt,
			UpdatedAt: r.UpdatedAt,
		},
		ID:        acctID,
		UserID:    r.UserID,
		Available: types.New(r.AvailableCents, r.Currency),
		Pending:   types.New(r.PendingCents, r.Currency),
	}, nil
}

type transactionRow struct {
	ID             string
	UserID         string
	Kind           string
	AmountCents    int64
	AmountCurrency string
	Status         string
	EventID        string
	Metadata       []byte
}

func (r *transactionRow) toDomain() (*wallet.Transaction, error) {
	txnID, err := id.ParseTransactionID(r.ID)
	if err != nil {
		return nil, err
	}

	var eventID id.EventID
	if r.EventID != "" {
		eventID, err = id.ParseEventID(r.EventID)
		if err != nil {
			return nil, err
		}
	}

	var meta map[string]string
	if len(r.Metadata) > 0 {
		_ = json.Unmarshal(r.Metadata, &meta) //nolint:errcheck // best-effort
	}

	return &wallet.Transaction{
		ID:      txnID,
		UserID:  r.UserID,
		Kind:    wallet.Kind(r.Kind),
		Amount:  types.New(r.AmountCents, r.AmountCurrency),
		Status:  wallet.TxStatus(r.Status),
		EventID: eventID,
		Meta:    meta,
	}, nil
}

func marshalMeta(meta map[string]string) []byte {
	if meta == nil {
		return []byte("{}")
	}
	data, err := json.Marshal(meta)
	if err != nil {
		return []byte("{}")
	}
	return data
}
