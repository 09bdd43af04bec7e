// Package postgres implements the Paywall store on PostgreSQL via pgx.
//
// The constraint-bearing operations lean on the database directly: unique
// primary keys resolve unlock and wallet-creation races, and the debit is a
// conditional UPDATE checked by rows-affected, never a read followed by a
// write.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	paywall "github.com/xraph/paywall"
	"github.com/xraph/paywall/id"
	"github.com/xraph/paywall/post"
	"github.com/xraph/paywall/profile"
	paywallstore "github.com/xraph/paywall/store"
	"github.com/xraph/paywall/subscription"
	"github.com/xraph/paywall/unlock"
	"github.com/xraph/paywall/wallet"
)

// compile-time interface check
var _ paywallstore.Store = (*Store)(nil)

// uniqueViolation is the PostgreSQL error code for a unique constraint hit.
const uniqueViolation = "23505"

// Store implements store.Store using PostgreSQL via pgx.
type Store struct {
	pool *pgxpool.Pool
}

// New creates a new PostgreSQL store from a connection string.
func New(ctx context.Context, dsn string) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("paywall/postgres: connect: %w", err)
	}
	return &Store{pool: pool}, nil
}

// NewWithPool wraps an existing pgx pool.
func NewWithPool(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Pool returns the underlying connection pool for direct access.
func (s *Store) Pool() *pgxpool.Pool { return s.pool }

// Migrate creates the required tables and indexes. Applied versions are
// recorded in paywall_schema_migrations, so repeated calls are no-ops.
func (s *Store) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
CREATE TABLE IF NOT EXISTS paywall_schema_migrations (
    version    TEXT PRIMARY KEY,
    name       TEXT NOT NULL DEFAULT '',
    applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`)
	if err != nil {
		return fmt.Errorf("paywall/postgres: create migrations table: %w", err)
	}

	for _, m := range migrations {
		var exists bool
		err := s.pool.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM paywall_schema_migrations WHERE version = $1)`,
			m.Version,
		).Scan(&exists)
		if err != nil {
			return fmt.Errorf("paywall/postgres: check migration %s: %w", m.Version, err)
		}
		if exists {
			continue
		}

		tx, err := s.pool.Begin(ctx)
		if err != nil {
			return fmt.Errorf("paywall/postgres: begin migration %s: %w", m.Version, err)
		}
		if _, err := tx.Exec(ctx, m.Up); err != nil {
			_ = tx.Rollback(ctx) //nolint:errcheck // rollback on failed migration
			return fmt.Errorf("paywall/postgres: apply migration %s (%s): %w", m.Version, m.Name, err)
		}
		if _, err := tx.Exec(ctx,
			`INSERT INTO paywall_schema_migrations (version, name) VALUES ($1, $2)`,
			m.Version, m.Name,
		); err != nil {
			_ = tx.Rollback(ctx) //nolint:errcheck // rollback on failed migration
			return fmt.Errorf("paywall/postgres: record migration %s: %w", m.Version, err)
		}
		if err := tx.Commit(ctx); err != nil {
			return fmt.Errorf("paywall/postgres: commit migration %s: %w", m.Version, err)
		}
	}

	return nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close closes the connection pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

// ==================== Post Store ====================

func (s *Store) CreatePost(ctx context.Context, p *post.Post) error {
	_, err := s.pool.Exec(ctx, `
INSERT INTO paywall_posts (id, creator_id, title, body, media_url, visibility, price_cents, price_currency, deleted, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		p.ID.String(), p.CreatorID, p.Title, p.Body, p.MediaURL,
		string(p.Visibility), p.Price.Amount, p.Price.Currency, p.Deleted,
		p.CreatedAt, p.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return paywall.ErrAlreadyExists
	}
	return err
}

func (s *Store) GetPost(ctx context.Context, postID id.PostID) (*post.Post, error) {
	var r postRow
	err := s.pool.QueryRow(ctx, `
SELECT id, creator_id, title, body, media_url, visibility, price_cents, price_currency, deleted, created_at, updated_at
FROM paywall_posts WHERE id = $1`,
		postID.String(),
	).Scan(&r.ID, &r.CreatorID, &r.Title, &r.Body, &r.MediaURL,
		&r.Visibility, &r.PriceCents, &r.PriceCurrency, &r.Deleted,
		&r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, paywall.ErrPostNotFound
		}
		return nil, err
	}
	return r.toDomain()
}

func (s *Store) UpdatePost(ctx context.Context, p *post.Post) error {
	tag, err := s.pool.Exec(ctx, `
UPDATE paywall_posts SET title = $2, body = $3, media_url = $4, updated_at = $5
WHERE id = $1`,
		p.ID.String(), p.Title, p.Body, p.MediaURL, p.UpdatedAt,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return paywall.ErrPostNotFound
	}
	return nil
}

func (s *Store) SoftDeletePost(ctx context.Context, postID id.PostID) error {
	tag, err := s.pool.Exec(ctx, `
UPDATE paywall_posts SET deleted = TRUE, updated_at = NOW()
WHERE id = $1 AND deleted = FALSE`,
		postID.String(),
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return paywall.ErrPostNotFound
	}
	return nil
}

func (s *Store) ListPostsByCreator(ctx context.Context, creatorID string, opts post.ListOpts) ([]*post.Post, error) {
	q := `
SELECT id, creator_id, title, body, media_url, visibility, price_cents, price_currency, deleted, created_at, updated_at
FROM paywall_posts WHERE creator_id = $1`
	args := []any{creatorID}

	if !opts.IncludeDeleted {
		q += ` AND deleted = FALSE`
	}
	if opts.Visibility != "" {
		args = append(args, string(opts.Visibility))
		q += fmt.Sprintf(` AND visibility = $%d`, len(args))
	}
	q += ` ORDER BY created_at DESC`
	if opts.Limit > 0 {
		args = append(args, opts.Limit)
		q += fmt.Sprintf(` LIMIT $%d`, len(args))
	}
	if opts.Offset > 0 {
		args = append(args, opts.Offset)
		q += fmt.Sprintf(` OFFSET $%d`, len(args))
	}

	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*post.Post
	for rows.Next() {
		var r postRow
		if err := rows.Scan(&r.ID, &r.CreatorID, &r.Title, &r.Body, &r.MediaURL,
			&r.Visibility, &r.PriceCents, &r.PriceCurrency, &r.Deleted,
			&r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, err
		}
		p, err := r.toDomain()
		if err != nil {
			return nil, err
		}
		result = append(result, p)
	}
	return result, rows.Err()
}

// ==================== Profile Store ====================

func (s *Store) GetProfile(ctx context.Context, userID string) (*profile.Profile, error) {
	var r profileRow
	err := s.pool.QueryRow(ctx, `
SELECT user_id, role, blocked_countries, banned, age_verified, created_at, updated_at
FROM paywall_profiles WHERE user_id = $1`,
		userID,
	).Scan(&r.UserID, &r.Role, &r.BlockedCountries, &r.Banned, &r.AgeVerified,
		&r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, paywall.ErrProfileNotFound
		}
		return nil, err
	}
	return r.toDomain(), nil
}

func (s *Store) UpsertProfile(ctx context.Context, p *profile.Profile) error {
	_, err := s.pool.Exec(ctx, `
INSERT INTO paywall_profiles (user_id, role, blocked_countries, banned, age_verified, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
ON CONFLICT (user_id) DO UPDATE SET
    role = EXCLUDED.role,
    blocked_countries = EXCLUDED.blocked_countries,
    banned = EXCLUDED.banned,
    age_verified = EXCLUDED.age_verified,
    updated_at = NOW()`,
		p.UserID, string(p.Role), p.BlockedCountries, p.Banned, p.AgeVerified,
	)
	return err
}

// ==================== Subscription Store ====================

func (s *Store) UpsertSubscription(ctx context.Context, sub *subscription.Subscription) error {
	_, err := s.pool.Exec(ctx, `
INSERT INTO paywall_subscriptions (id, subscriber_id, creator_id, status, starts_at, ends_at, canceled_at, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
ON CONFLICT (subscriber_id, creator_id) DO UPDATE SET
    id = EXCLUDED.id,
    status = EXCLUDED.status,
    starts_at = EXCLUDED.starts_at,
    ends_at = EXCLUDED.ends_at,
    canceled_at = EXCLUDED.canceled_at,
    updated_at = EXCLUDED.updated_at`,
		sub.ID.String(), sub.SubscriberID, sub.CreatorID, string(sub.Status),
		sub.StartsAt, sub.EndsAt, sub.CanceledAt, sub.CreatedAt, sub.UpdatedAt,
	)
	return err
}

func (s *Store) GetSubscription(ctx context.Context, subscriberID, creatorID string) (*subscription.Subscription, error) {
	var r subscriptionRow
	err := s.pool.QueryRow(ctx, `
SELECT id, subscriber_id, creator_id, status, starts_at, ends_at, canceled_at, created_at, updated_at
FROM paywall_subscriptions WHERE subscriber_id = $1 AND creator_id = $2`,
		subscriberID, creatorID,
	).Scan(&r.ID, &r.SubscriberID, &r.CreatorID, &r.Status,
		&r.StartsAt, &r.EndsAt, &r.CanceledAt, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, paywall.ErrSubscriptionNotFound
		}
		return nil, err
	}
	return r.toDomain()
}

func (s *Store) CancelSubscription(ctx context.Context, subscriberID, creatorID string, canceledAt time.Time) (bool, error) {
	tag, err := s.pool.Exec(ctx, `
UPDATE paywall_subscriptions
SET status = $3, canceled_at = $4, updated_at = $4
WHERE subscriber_id = $1 AND creator_id = $2 AND status = $5`,
		subscriberID, creatorID, string(subscription.StatusCanceled), canceledAt,
		string(subscription.StatusActive),
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (s *Store) ListSubscriptionsByCreator(ctx context.Context, creatorID string, opts subscription.ListOpts) ([]*subscription.Subscription, error) {
	q := `
SELECT id, subscriber_id, creator_id, status, starts_at, ends_at, canceled_at, created_at, updated_at
FROM paywall_subscriptions WHERE creator_id = $1`
	args := []any{creatorID}

	if opts.Status != "" {
		args = append(args, string(opts.Status))
		q += fmt.Sprintf(` AND status = $%d`, len(args))
	}
	q += ` ORDER BY created_at DESC`
	if opts.Limit > 0 {
		args = append(args, opts.Limit)
		q += fmt.Sprintf(` LIMIT $%d`, len(args))
	}
	if opts.Offset > 0 {
		args = append(args, opts.Offset)
		q += fmt.Sprintf(` OFFSET $%d`, len(args))
	}

	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*subscription.Subscription
	for rows.Next() {
		var r subscriptionRow
		if err := rows.Scan(&r.ID, &r.SubscriberID, &r.CreatorID, &r.Status,
			&r.StartsAt, &r.EndsAt, &r.CanceledAt, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, err
		}
		sub, err := r.toDomain()
		if err != nil {
			return nil, err
		}
		result = append(result, sub)
	}
	return result, rows.Err()
}

func (s *Store) ExpireSubscriptions(ctx context.Context, now time.Time) ([]*subscription.Subscription, error) {
	rows, err := s.pool.Query(ctx, `
UPDATE paywall_subscriptions
SET status = $1, updated_at = $2
WHERE status = $3 AND ends_at <= $2
RETURNING id, subscriber_id, creator_id, status, starts_at, ends_at, canceled_at, created_at, updated_at`,
		string(subscription.StatusExpired), now, string(subscription.StatusActive),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*subscription.Subscription
	for rows.Next() {
		var r subscriptionRow
		if err := rows.Scan(&r.ID, &r.SubscriberID, &r.CreatorID, &r.Status,
			&r.StartsAt, &r.EndsAt, &r.CanceledAt, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, err
		}
		sub, err := r.toDomain()
		if err != nil {
			return nil, err
		}
		result = append(result, sub)
	}
	return result, rows.Err()
}

// ==================== Unlock Store ====================

func (s *Store) GetUnlock(ctx context.Context, userID string, postID id.PostID) (*unlock.Unlock, error) {
	var r unlockRow
	err := s.pool.QueryRow(ctx, `
SELECT id, user_id, post_id, price_cents, price_currency, event_id, created_at
FROM paywall_unlocks WHERE user_id = $1 AND post_id = $2`,
		userID, postID.String(),
	).Scan(&r.ID, &r.UserID, &r.PostID, &r.PriceCents, &r.PriceCurrency,
		&r.EventID, &r.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, paywall.ErrUnlockNotFound
		}
		return nil, err
	}
	return r.toDomain()
}

func (s *Store) ListUnlocksByUser(ctx context.Context, userID string, opts unlock.ListOpts) ([]*unlock.Unlock, error) {
	q := `
SELECT id, user_id, post_id, price_cents, price_currency, event_id, created_at
FROM paywall_unlocks WHERE user_id = $1 ORDER BY created_at DESC`
	args := []any{userID}

	if opts.Limit > 0 {
		args = append(args, opts.Limit)
		q += fmt.Sprintf(` LIMIT $%d`, len(args))
	}
	if opts.Offset > 0 {
		args = append(args, opts.Offset)
		q += fmt.Sprintf(` OFFSET $%d`, len(args))
	}

	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*unlock.Unlock
	for rows.Next() {
		var r unlockRow
		if err := rows.Scan(&r.ID, &r.UserID, &r.PostID, &r.PriceCents,
			&r.PriceCurrency, &r.EventID, &r.CreatedAt); err != nil {
			return nil, err
		}
		u, err := r.toDomain()
		if err != nil {
			return nil, err
		}
		result = append(result, u)
	}
	return result, rows.Err()
}

// ApplyUnlock executes the paid unlock as one database transaction. The
// unlock insert goes first so the (user_id, post_id) primary key resolves
// concurrent duplicates before any balance is touched; the debit is a
// conditional UPDATE whose rows-affected count distinguishes success from an
// insufficient balance.
func (s *Store) ApplyUnlock(ctx context.Context, u *unlock.Unlock, debit, credit *wallet.Transaction) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }() //nolint:errcheck // no-op after commit

	_, err = tx.Exec(ctx, `
INSERT INTO paywall_unlocks (id, user_id, post_id, price_cents, price_currency, event_id, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		u.ID.String(), u.UserID, u.PostID.String(),
		u.Price.Amount, u.Price.Currency, u.EventID.String(), u.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return paywall.ErrAlreadyUnlocked
		}
		return err
	}

	// debit.Amount is negative; adding it decrements. The WHERE clause is
	// the whole balance check.
	tag, err := tx.Exec(ctx, `
UPDATE paywall_accounts
SET available_cents = available_cents + $2, updated_at = NOW()
WHERE user_id = $1 AND available_cents >= $3`,
		debit.UserID, debit.Amount.Amount, -debit.Amount.Amount,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return paywall.ErrInsufficientBalance
	}

	if _, err := tx.Exec(ctx, `
UPDATE paywall_accounts
SET pending_cents = pending_cents + $2, updated_at = NOW()
WHERE user_id = $1`,
		credit.UserID, credit.Amount.Amount,
	); err != nil {
		return err
	}

	for _, txn := range []*wallet.Transaction{debit, credit} {
		if _, err := tx.Exec(ctx, `
INSERT INTO paywall_transactions (id, user_id, kind, amount_cents, amount_currency, status, event_id, metadata)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			txn.ID.String(), txn.UserID, string(txn.Kind),
			txn.Amount.Amount, txn.Amount.Currency, string(txn.Status),
			txn.EventID.String(), marshalMeta(txn.Meta),
		); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

// ==================== Wallet Store ====================

func (s *Store) GetOrCreateAccount(ctx context.Context, userID string, currency string) (*wallet.Account, error) {
	// Insert-then-select: the user_id primary key makes concurrent creation
	// collapse onto one row.
	_, err := s.pool.Exec(ctx, `
INSERT INTO paywall_accounts (id, user_id, currency)
VALUES ($1, $2, $3)
ON CONFLICT (user_id) DO NOTHING`,
		id.NewAccountID().String(), userID, currency,
	)
	if err != nil {
		return nil, err
	}

	var r accountRow
	err = s.pool.QueryRow(ctx, `
SELECT id, user_id, currency, available_cents, pending_cents, created_at, updated_at
FROM paywall_accounts WHERE user_id = $1`,
		userID,
	).Scan(&r.ID, &r.UserID, &r.Currency, &r.AvailableCents, &r.PendingCents,
		&r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return r.toDomain()
}

func (s *Store) GetBalance(ctx context.Context, userID string) (wallet.Balance, error) {
	var r accountRow
	err := s.pool.QueryRow(ctx, `
SELECT id, user_id, currency, available_cents, pending_cents, created_at, updated_at
FROM paywall_accounts WHERE user_id = $1`,
		userID,
	).Scan(&r.ID, &r.UserID, &r.Currency, &r.AvailableCents, &r.PendingCents,
		&r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return wallet.Balance{}, paywall.ErrAccountNotFound
		}
		return wallet.Balance{}, err
	}

	acct, err := r.toDomain()
	if err != nil {
		return wallet.Balance{}, err
	}
	return wallet.Balance{Available: acct.Available, Pending: acct.Pending}, nil
}

func (s *Store) ApplyTransaction(ctx context.Context, txn *wallet.Transaction) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }() //nolint:errcheck // no-op after commit

	column := "pending_cents"
	if txn.Kind.CreditsAvailable() {
		column = "available_cents"
	}

	var tag pgconn.CommandTag
	if txn.Debit() && column == "available_cents" {
		tag, err = tx.Exec(ctx, fmt.Sprintf(`
UPDATE paywall_accounts
SET %s = %s + $2, updated_at = NOW()
WHERE user_id = $1 AND %s >= $3`, column, column, column),
			txn.UserID, txn.Amount.Amount, -txn.Amount.Amount,
		)
	} else {
		tag, err = tx.Exec(ctx, fmt.Sprintf(`
UPDATE paywall_accounts
SET %s = %s + $2, updated_at = NOW()
WHERE user_id = $1`, column, column),
			txn.UserID, txn.Amount.Amount,
		)
	}
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		if txn.Debit() {
			return paywall.ErrInsufficientBalance
		}
		return paywall.ErrAccountNotFound
	}

	if _, err := tx.Exec(ctx, `
INSERT INTO paywall_transactions (id, user_id, kind, amount_cents, amount_currency, status, event_id, metadata)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		txn.ID.String(), txn.UserID, string(txn.Kind),
		txn.Amount.Amount, txn.Amount.Currency, string(txn.Status),
		txn.EventID.String(), marshalMeta(txn.Meta),
	); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func (s *Store) ListTransactions(ctx context.Context, userID string, opts wallet.ListOpts) ([]*wallet.Transaction, error) {
	q := `
SELECT id, user_id, kind, amount_cents, amount_currency, status, event_id, metadata
FROM paywall_transactions WHERE user_id = $1`
	args := []any{userID}

	if opts.Kind != "" {
		args = append(args, string(opts.Kind))
		q += fmt.Sprintf(` AND kind = $%d`, len(args))
	}
	q += ` ORDER BY created_at DESC`
	if opts.Limit > 0 {
		args = append(args, opts.Limit)
		q += fmt.Sprintf(` LIMIT $%d`, len(args))
	}
	if opts.Offset > 0 {
		args = append(args, opts.Offset)
		q += fmt.Sprintf(` OFFSET $%d`, len(args))
	}

	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*wallet.Transaction
	for rows.Next() {
		var r transactionRow
		if err := rows.Scan(&r.ID, &r.UserID, &r.Kind, &r.AmountCents,
			&r.AmountCurrency, &r.Status, &r.EventID, &r.Metadata); err != nil {
			return nil, err
		}
		txn, err := r.toDomain()
		if err != nil {
			return nil, err
		}
		result = append(result, txn)
	}
	return result, rows.Err()
}

// ==================== Helpers ====================

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
