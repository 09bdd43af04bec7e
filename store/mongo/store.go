// Package mongo implements the Paywall store on MongoDB using the official
// driver. The unlock transaction runs inside a causally consistent session
// transaction, so it requires a replica set (or a sharded cluster).
//
// Uniqueness guarantees live in unique indexes created by Migrate: one
// unlock per (user_id, post_id) and one subscription per (subscriber_id,
// creator_id). Wallet accounts key on user_id as _id.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	paywall "github.com/xraph/paywall"
	"github.com/xraph/paywall/id"
	"github.com/xraph/paywall/post"
	"github.com/xraph/paywall/profile"
	paywallstore "github.com/xraph/paywall/store"
	"github.com/xraph/paywall/subscription"
	"github.com/xraph/paywall/unlock"
	"github.com/xraph/paywall/wallet"
)

// Collection name constants.
const (
	colPosts         = "paywall_posts"
	colProfiles      = "paywall_profiles"
	colSubscriptions = "paywall_subscriptions"
	colUnlocks       = "paywall_unlocks"
	colAccounts      = "paywall_accounts"
	colTransactions  = "paywall_transactions"
)

// compile-time interface check
var _ paywallstore.Store = (*Store)(nil)

// Store implements store.Store using MongoDB.
type Store struct {
	client *mongo.Client
	db     *mongo.Database
}

// New connects to MongoDB at uri and uses the named database.
func New(uri, dbName string) (*Store, error) {
	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("paywall/mongo: connect: %w", err)
	}
	return &Store{client: client, db: client.Database(dbName)}, nil
}

// NewWithClient wraps an existing client and database name.
func NewWithClient(client *mongo.Client, dbName string) *Store {
	return &Store{client: client, db: client.Database(dbName)}
}

// Database returns the underlying database handle for direct access.
func (s *Store) Database() *mongo.Database { return s.db }

// Migrate creates the indexes for all paywall collections.
func (s *Store) Migrate(ctx context.Context) error {
	for col, models := range migrationIndexes() {
		if len(models) == 0 {
			continue
		}
		if _, err := s.db.Collection(col).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("paywall/mongo: migrate %s indexes: %w", col, err)
		}
	}
	return nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, nil)
}

// Close disconnects the client.
func (s *Store) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

// ==================== Post Store ====================

func (s *Store) CreatePost(ctx context.Context, p *post.Post) error {
	_, err := s.db.Collection(colPosts).InsertOne(ctx, toPostModel(p))
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return paywall.ErrAlreadyExists
		}
		return fmt.Errorf("paywall/mongo: create post: %w", err)
	}
	return nil
}

func (s *Store) GetPost(ctx context.Context, postID id.PostID) (*post.Post, error) {
	var m postModel
	err := s.db.Collection(colPosts).
		FindOne(ctx, bson.M{"_id": postID.String()}).
		Decode(&m)
	if err != nil {
		if isNoDocuments(err) {
			return nil, paywall.ErrPostNotFound
		}
		return nil, fmt.Errorf("paywall/mongo: get post: %w", err)
	}
	return fromPostModel(&m)
}

func (s *Store) UpdatePost(ctx context.Context, p *post.Post) error {
	res, err := s.db.Collection(colPosts).UpdateOne(ctx,
		bson.M{"_id": p.ID.String()},
		bson.M{"$set": bson.M{
			"title":      p.Title,
			"body":       p.Body,
			"media_url":  p.MediaURL,
			"updated_at": p.UpdatedAt,
		}},
	)
	if err != nil {
		return fmt.Errorf("paywall/mongo: update post: %w", err)
	}
	if res.MatchedCount == 0 {
		return paywall.ErrPostNotFound
	}
	return nil
}

func (s *Store) SoftDeletePost(ctx context.Context, postID id.PostID) error {
	res, err := s.db.Collection(colPosts).UpdateOne(ctx,
		bson.M{"_id": postID.String(), "deleted": false},
		bson.M{"$set": bson.M{"deleted": true, "updated_at": time.Now()}},
	)
	if err != nil {
		return fmt.Errorf("paywall/mongo: delete post: %w", err)
	}
	if res.MatchedCount == 0 {
		return paywall.ErrPostNotFound
	}
	return nil
}

func (s *Store) ListPostsByCreator(ctx context.Context, creatorID string, opts post.ListOpts) ([]*post.Post, error) {
	filter := bson.M{"creator_id": creatorID}
	if !opts.IncludeDeleted {
		filter["deleted"] = false
	}
	if opts.Visibility != "" {
		filter["visibility"] = string(opts.Visibility)
	}

	findOpts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	if opts.Limit > 0 {
		findOpts = findOpts.SetLimit(int64(opts.Limit))
	}
	if opts.Offset > 0 {
		findOpts = findOpts.SetSkip(int64(opts.Offset))
	}

	cursor, err := s.db.Collection(colPosts).Find(ctx, filter, findOpts)
	if err != nil {
		return nil, fmt.Errorf("paywall/mongo: list posts: %w", err)
	}
	defer cursor.Close(ctx)

	var result []*post.Post
	for cursor.Next(ctx) {
		var m postModel
		if err := cursor.Decode(&m); err != nil {
			return nil, fmt.Errorf("paywall/mongo: decode post: %w", err)
		}
		p, err := fromPostModel(&m)
		if err != nil {
			return nil, err
		}
		result = append(result, p)
	}
	return result, cursor.Err()
}

// ==================== Profile Store ====================

func (s *Store) GetProfile(ctx context.Context, userID string) (*profile.Profile, error) {
	var m profileModel
	err := s.db.Collection(colProfiles).
		FindOne(ctx, bson.M{"_id": userID}).
		Decode(&m)
	if err != nil {
		if isNoDocuments(err) {
			return nil, paywall.ErrProfileNotFound
		}
		return nil, fmt.Errorf("paywall/mongo: get profile: %w", err)
	}
	return fromProfileModel(&m), nil
}

func (s *Store) UpsertProfile(ctx context.Context, p *profile.Profile) error {
	now := time.Now()
	_, err := s.db.Collection(colProfiles).UpdateOne(ctx,
		bson.M{"_id": p.UserID},
		bson.M{
			"$set": bson.M{
				"role":              string(p.Role),
				"blocked_countries": p.BlockedCountries,
				"banned":            p.Banned,
				"age_verified":      p.AgeVerified,
				"updated_at":        now,
			},
			"$setOnInsert": bson.M{"created_at": now},
		},
		options.UpdateOne().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("paywall/mongo: upsert profile: %w", err)
	}
	return nil
}

// ==================== Subscription Store ====================

func (s *Store) UpsertSubscription(ctx context.Context, sub *subscription.Subscription) error {
	m := toSubscriptionModel(sub)
	_, err := s.db.Collection(colSubscriptions).UpdateOne(ctx,
		bson.M{"subscriber_id": sub.SubscriberID, "creator_id": sub.CreatorID},
		bson.M{"$set": bson.M{
			"sub_id":      m.ID,
			"status":      m.Status,
			"starts_at":   m.StartsAt,
			"ends_at":     m.EndsAt,
			"canceled_at": m.CanceledAt,
			"created_at":  m.CreatedAt,
			"updated_at":  m.UpdatedAt,
		}},
		options.UpdateOne().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("paywall/mongo: upsert subscription: %w", err)
	}
	return nil
}

func (s *Store) GetSubscription(ctx context.Context, subscriberID, creatorID string) (*subscription.Subscription, error) {
	var m subscriptionModel
	err := s.db.Collection(colSubscriptions).
		FindOne(ctx, bson.M{"subscriber_id": subscriberID, "creator_id": creatorID}).
		Decode(&m)
	if err != nil {
		if isNoDocuments(err) {
			return nil, paywall.ErrSubscriptionNotFound
		}
		return nil, fmt.Errorf("paywall/mongo: get subscription: %w", err)
	}
	return fromSubscriptionModel(&m)
}

func (s *Store) CancelSubscription(ctx context.Context, subscriberID, creatorID string, canceledAt time.Time) (bool, error) {
	res, err := s.db.Collection(colSubscriptions).UpdateOne(ctx,
		bson.M{
			"subscriber_id": subscriberID,
			"creator_id":    creatorID,
			"status":        string(subscription.StatusActive),
		},
		bson.M{"$set": bson.M{
			"status":      string(subscription.StatusCanceled),
			"canceled_at": canceledAt,
			"updated_at":  canceledAt,
		}},
	)
	if err != nil {
		return false, fmt.Errorf("paywall/mongo: cancel subscription: %w", err)
	}
	return res.ModifiedCount > 0, nil
}

func (s *Store) ListSubscriptionsByCreator(ctx context.Context, creatorID string, opts subscription.ListOpts) ([]*subscription.Subscription, error) {
	filter := bson.M{"creator_id": creatorID}
	if opts.Status != "" {
		filter["status"] = string(opts.Status)
	}

	findOpts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	if opts.Limit > 0 {
		findOpts = findOpts.SetLimit(int64(opts.Limit))
	}
	if opts.Offset > 0 {
		findOpts = findOpts.SetSkip(int64(opts.Offset))
	}

	cursor, err := s.db.Collection(colSubscriptions).Find(ctx, filter, findOpts)
	if err != nil {
		return nil, fmt.Errorf("paywall/mongo: list subscriptions: %w", err)
	}
	defer cursor.Close(ctx)

	var result []*subscription.Subscription
	for cursor.Next(ctx) {
		var m subscriptionModel
		if err := cursor.Decode(&m); err != nil {
			return nil, fmt.Errorf("paywall/mongo: decode subscription: %w", err)
		}
		sub, err := fromSubscriptionModel(&m)
		if err != nil {
			return nil, err
		}
		result = append(result, sub)
	}
	return result, cursor.Err()
}

func (s *Store) ExpireSubscriptions(ctx context.Context, now time.Time) ([]*subscription.Subscription, error) {
	filter := bson.M{
		"status":  string(subscription.StatusActive),
		"ends_at": bson.M{"$lte": now},
	}

	cursor, err := s.db.Collection(colSubscriptions).Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("paywall/mongo: find lapsed subscriptions: %w", err)
	}

	var lapsed []*subscription.Subscription
	for cursor.Next(ctx) {
		var m subscriptionModel
		if err := cursor.Decode(&m); err != nil {
			cursor.Close(ctx)
			return nil, fmt.Errorf("paywall/mongo: decode subscription: %w", err)
		}
		sub, err := fromSubscriptionModel(&m)
		if err != nil {
			cursor.Close(ctx)
			return nil, err
		}
		lapsed = append(lapsed, sub)
	}
	if err := cursor.Err(); err != nil {
		cursor.Close(ctx)
		return nil, err
	}
	cursor.Close(ctx)

	if len(lapsed) == 0 {
		return nil, nil
	}

	_, err = s.db.Collection(colSubscriptions).UpdateMany(ctx, filter,
		bson.M{"$set": bson.M{
			"status":     string(subscription.StatusExpired),
			"updated_at": now,
		}},
	)
	if err != nil {
		return nil, fmt.Errorf("paywall/mongo: expire subscriptions: %w", err)
	}

	for _, sub := range lapsed {
		sub.Status = subscription.StatusExpired
	}
	return lapsed, nil
}

// ==================== Unlock Store ====================

func (s *Store) GetUnlock(ctx context.Context, userID string, postID id.PostID) (*unlock.Unlock, error) {
	var m unlockModel
	err := s.db.Collection(colUnlocks).
		FindOne(ctx, bson.M{"user_id": userID, "post_id": postID.String()}).
		Decode(&m)
	if err != nil {
		if isNoDocuments(err) {
			return nil, paywall.ErrUnlockNotFound
		}
		return nil, fmt.Errorf("paywall/mongo: get unlock: %w", err)
	}
	return fromUnlockModel(&m)
}

func (s *Store) ListUnlocksByUser(ctx context.Context, userID string, opts unlock.ListOpts) ([]*unlock.Unlock, error) {
	findOpts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	if opts.Limit > 0 {
		findOpts = findOpts.SetLimit(int64(opts.Limit))
	}
	if opts.Offset > 0 {
		findOpts = findOpts.SetSkip(int64(opts.Offset))
	}

	cursor, err := s.db.Collection(colUnlocks).Find(ctx, bson.M{"user_id": userID}, findOpts)
	if err != nil {
		return nil, fmt.Errorf("paywall/mongo: list unlocks: %w", err)
	}
	defer cursor.Close(ctx)

	var result []*unlock.Unlock
	for cursor.Next(ctx) {
		var m unlockModel
		if err := cursor.Decode(&m); err != nil {
			return nil, fmt.Errorf("paywall/mongo: decode unlock: %w", err)
		}
		u, err := fromUnlockModel(&m)
		if err != nil {
			return nil, err
		}
		result = append(result, u)
	}
	return result, cursor.Err()
}

// ApplyUnlock runs the unlock inside a session transaction with the same
// ordering as the SQL stores: unlock insert first (the unique index on
// user_id, post_id resolves duplicate races), then the conditional debit
// checked by modified-count, then the pending credit and both ledger rows.
func (s *Store) ApplyUnlock(ctx context.Context, u *unlock.Unlock, debit, credit *wallet.Transaction) error {
	session, err := s.client.StartSession()
	if err != nil {
		return fmt.Errorf("paywall/mongo: start session: %w", err)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(ctx context.Context) (interface{}, error) {
		if _, err := s.db.Collection(colUnlocks).InsertOne(ctx, toUnlockModel(u)); err != nil {
			if mongo.IsDuplicateKeyError(err) {
				return nil, paywall.ErrAlreadyUnlocked
			}
			return nil, fmt.Errorf("paywall/mongo: insert unlock: %w", err)
		}

		res, err := s.db.Collection(colAccounts).UpdateOne(ctx,
			bson.M{
				"_id":             debit.UserID,
				"available_cents": bson.M{"$gte": -debit.Amount.Amount},
			},
			bson.M{
				"$inc": bson.M{"available_cents": debit.Amount.Amount},
				"$set": bson.M{"updated_at": time.Now()},
			},
		)
		if err != nil {
			return nil, fmt.Errorf("paywall/mongo: debit account: %w", err)
		}
		if res.ModifiedCount == 0 {
			return nil, paywall.ErrInsufficientBalance
		}

		if _, err := s.db.Collection(colAccounts).UpdateOne(ctx,
			bson.M{"_id": credit.UserID},
			bson.M{
				"$inc": bson.M{"pending_cents": credit.Amount.Amount},
				"$set": bson.M{"updated_at": time.Now()},
			},
		); err != nil {
			return nil, fmt.Errorf("paywall/mongo: credit account: %w", err)
		}

		for _, txn := range []*wallet.Transaction{debit, credit} {
			if _, err := s.db.Collection(colTransactions).InsertOne(ctx, toTransactionModel(txn)); err != nil {
				return nil, fmt.Errorf("paywall/mongo: insert transaction: %w", err)
			}
		}
		return nil, nil
	})
	return err
}

// ==================== Wallet Store ====================

func (s *Store) GetOrCreateAccount(ctx context.Context, userID string, currency string) (*wallet.Account, error) {
	now := time.Now()
	_, err := s.db.Collection(colAccounts).UpdateOne(ctx,
		bson.M{"_id": userID},
		bson.M{"$setOnInsert": bson.M{
			"account_id":      id.NewAccountID().String(),
			"currency":        currency,
			"available_cents": int64(0),
			"pending_cents":   int64(0),
			"created_at":      now,
			"updated_at":      now,
		}},
		options.UpdateOne().SetUpsert(true),
	)
	if err != nil {
		return nil, fmt.Errorf("paywall/mongo: ensure account: %w", err)
	}

	var m accountModel
	err = s.db.Collection(colAccounts).
		FindOne(ctx, bson.M{"_id": userID}).
		Decode(&m)
	if err != nil {
		return nil, fmt.Errorf("paywall/mongo: get account: %w", err)
	}
	return fromAccountModel(&m)
}

func (s *Store) GetBalance(ctx context.Context, userID string) (wallet.Balance, error) {
	var m accountModel
	err := s.db.Collection(colAccounts).
		FindOne(ctx, bson.M{"_id": userID}).
		Decode(&m)
	if err != nil {
		if isNoDocuments(err) {
			return wallet.Balance{}, paywall.ErrAccountNotFound
		}
		return wallet.Balance{}, fmt.Errorf("paywall/mongo: get balance: %w", err)
	}

	acct, err := fromAccountModel(&m)
	if err != nil {
		return wallet.Balance{}, err
	}
	return wallet.Balance{Available: acct.Available, Pending: acct.Pending}, nil
}

func (s *Store) ApplyTransaction(ctx context.Context, txn *wallet.Transaction) error {
	session, err := s.client.StartSession()
	if err != nil {
		return fmt.Errorf("paywall/mongo: start session: %w", err)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(ctx context.Context) (interface{}, error) {
		column := "pending_cents"
		if txn.Kind.CreditsAvailable() {
			column = "available_cents"
		}

		filter := bson.M{"_id": txn.UserID}
		if txn.Debit() && column == "available_cents" {
			filter[column] = bson.M{"$gte": -txn.Amount.Amount}
		}

		res, err := s.db.Collection(colAccounts).UpdateOne(ctx, filter,
			bson.M{
				"$inc": bson.M{column: txn.Amount.Amount},
				"$set": bson.M{"updated_at": time.Now()},
			},
		)
		if err != nil {
			return nil, fmt.Errorf("paywall/mongo: apply transaction: %w", err)
		}
		if res.ModifiedCount == 0 {
			if txn.Debit() {
				return nil, paywall.ErrInsufficientBalance
			}
			return nil, paywall.ErrAccountNotFound
		}

		if _, err := s.db.Collection(colTransactions).InsertOne(ctx, toTransactionModel(txn)); err != nil {
			return nil, fmt.Errorf("paywall/mongo: insert transaction: %w", err)
		}
		return nil, nil
	})
	return err
}

func (s *Store) ListTransactions(ctx context.Context, userID string, opts wallet.ListOpts) ([]*wallet.Transaction, error) {
	filter := bson.M{"user_id": userID}
	if opts.Kind != "" {
		filter["kind"] = string(opts.Kind)
	}

	findOpts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	if opts.Limit > 0 {
		findOpts = findOpts.SetLimit(int64(opts.Limit))
	}
	if opts.Offset > 0 {
		findOpts = findOpts.SetSkip(int64(opts.Offset))
	}

	cursor, err := s.db.Collection(colTransactions).Find(ctx, filter, findOpts)
	if err != nil {
		return nil, fmt.Errorf("paywall/mongo: list transactions: %w", err)
	}
	defer cursor.Close(ctx)

	var result []*wallet.Transaction
	for cursor.Next(ctx) {
		var m transactionModel
		if err := cursor.Decode(&m); err != nil {
			return nil, fmt.Errorf("paywall/mongo: decode transaction: %w", err)
		}
		txn, err := fromTransactionModel(&m)
		if err != nil {
			return nil, err
		}
		result = append(result, txn)
	}
	return result, cursor.Err()
}

// ==================== Helpers ====================

// isNoDocuments checks if an error wraps mongo.ErrNoDocuments.
func isNoDocuments(err error) bool {
	return errors.Is(err, mongo.ErrNoDocuments)
}

// migrationIndexes returns the index definitions for all paywall
// collections. The unique indexes are load-bearing: they resolve the
// unlock and subscription races. Accounts key on user_id as _id, so
// their uniqueness needs no extra index.
func migrationIndexes() map[string][]mongo.IndexModel {
	return map[string][]mongo.IndexModel{
		colPosts: {
			{Keys: bson.D{{Key: "creator_id", Value: 1}, {Key: "created_at", Value: -1}}},
		},
		colSubscriptions: {
			{
				Keys:    bson.D{{Key: "subscriber_id", Value: 1}, {Key: "creator_id", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
			{Keys: bson.D{{Key: "creator_id", Value: 1}, {Key: "status", Value: 1}}},
			{Keys: bson.D{{Key: "status", Value: 1}, {Key: "ends_at", Value: 1}}},
		},
		colUnlocks: {
			{
				Keys:    bson.D{{Key: "user_id", Value: 1}, {Key: "post_id", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
			{Keys: bson.D{{Key: "post_id", Value: 1}}},
		},
		colTransactions: {
			{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}}},
			{Keys: bson.D{{Key: "event_id", Value: 1}}},
		},
	}
}
