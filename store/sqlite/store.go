// Package sqlite implements the Paywall store on SQLite via database/sql
// and the modernc.org/sqlite driver (pure Go, no cgo).
//
// It carries the same constraint semantics as the PostgreSQL store: the
// composite primary keys resolve unlock and wallet-creation races, and
// debits are conditional updates checked by rows-affected. Suited to tests,
// single-node deployments and embedded use.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	sqlite "modernc.org/sqlite"

	paywall "github.com/xraph/paywall"
	"github.com/xraph/paywall/id"
	"github.com/xraph/paywall/post"
	"github.com/xraph/paywall/profile"
	paywallstore "github.com/xraph/paywall/store"
	"github.com/xraph/paywall/subscription"
	"github.com/xraph/paywall/types"
	"github.com/xraph/paywall/unlock"
	"github.com/xraph/paywall/wallet"
)

// compile-time interface check
var _ paywallstore.Store = (*Store)(nil)

// sqliteConstraint is the primary SQLite result code for constraint
// violations; extended codes carry it in the low byte.
const sqliteConstraint = 19

// Store implements store.Store using SQLite.
type Store struct {
	db *sql.DB
}

// New opens (or creates) a SQLite database at path. WAL mode and a busy
// timeout keep concurrent readers from tripping over the single writer.
func New(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(ON)")
	if err != nil {
		return nil, fmt.Errorf("paywall/sqlite: open: %w", err)
	}
	// SQLite allows one writer; a larger pool only produces busy errors.
	db.SetMaxOpenConns(1)
	return &Store{db: db}, nil
}

// NewWithDB wraps an existing database handle.
func NewWithDB(db *sql.DB) *Store {
	return &Store{db: db}
}

// DB returns the underlying database handle for direct access.
func (s *Store) DB() *sql.DB { return s.db }

// Migrate creates the required tables and indexes.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS paywall_schema_migrations (
    version    TEXT PRIMARY KEY,
    name       TEXT NOT NULL DEFAULT '',
    applied_at TIMESTAMP NOT NULL
)`); err != nil {
		return fmt.Errorf("paywall/sqlite: create migrations table: %w", err)
	}

	for _, m := range migrations {
		var exists bool
		err := s.db.QueryRowContext(ctx,
			`SELECT EXISTS (SELECT 1 FROM paywall_schema_migrations WHERE version = ?)`,
			m.Version,
		).Scan(&exists)
		if err != nil {
			return fmt.Errorf("paywall/sqlite: check migration %s: %w", m.Version, err)
		}
		if exists {
			continue
		}

		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("paywall/sqlite: begin migration %s: %w", m.Version, err)
		}
		if _, err := tx.ExecContext(ctx, m.Up); err != nil {
			_ = tx.Rollback() //nolint:errcheck // rollback on failed migration
			return fmt.Errorf("paywall/sqlite: apply migration %s (%s): %w", m.Version, m.Name, err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO paywall_schema_migrations (version, name, applied_at) VALUES (?, ?, ?)`,
			m.Version, m.Name, time.Now(),
		); err != nil {
			_ = tx.Rollback() //nolint:errcheck // rollback on failed migration
			return fmt.Errorf("paywall/sqlite: record migration %s: %w", m.Version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("paywall/sqlite: commit migration %s: %w", m.Version, err)
		}
	}

	return nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// ==================== Post Store ====================

func (s *Store) CreatePost(ctx context.Context, p *post.Post) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO paywall_posts (id, creator_id, title, body, media_url, visibility, price_cents, price_currency, deleted, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID.String(), p.CreatorID, p.Title, p.Body, p.MediaURL,
		string(p.Visibility), p.Price.Amount, p.Price.Currency, p.Deleted,
		p.CreatedAt, p.UpdatedAt,
	)
	if isConstraintViolation(err) {
		return paywall.ErrAlreadyExists
	}
	return err
}

func (s *Store) GetPost(ctx context.Context, postID id.PostID) (*post.Post, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT id, creator_id, title, body, media_url, visibility, price_cents, price_currency, deleted, created_at, updated_at
FROM paywall_posts WHERE id = ?`,
		postID.String(),
	)
	p, err := scanPost(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, paywall.ErrPostNotFound
	}
	return p, err
}

func (s *Store) UpdatePost(ctx context.Context, p *post.Post) error {
	res, err := s.db.ExecContext(ctx, `
UPDATE paywall_posts SET title = ?, body = ?, media_url = ?, updated_at = ?
WHERE id = ?`,
		p.Title, p.Body, p.MediaURL, p.UpdatedAt, p.ID.String(),
	)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return paywall.ErrPostNotFound
	}
	return nil
}

func (s *Store) SoftDeletePost(ctx context.Context, postID id.PostID) error {
	res, err := s.db.ExecContext(ctx, `
UPDATE paywall_posts SET deleted = 1, updated_at = ?
WHERE id = ? AND deleted = 0`,
		time.Now(), postID.String(),
	)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return paywall.ErrPostNotFound
	}
	return nil
}

func (s *Store) ListPostsByCreator(ctx context.Context, creatorID string, opts post.ListOpts) ([]*post.Post, error) {
	q := `
SELECT id, creator_id, title, body, media_url, visibility, price_cents, price_currency, deleted, created_at, updated_at
FROM paywall_posts WHERE creator_id = ?`
	args := []any{creatorID}

	if !opts.IncludeDeleted {
		q += ` AND deleted = 0`
	}
	if opts.Visibility != "" {
		q += ` AND visibility = ?`
		args = append(args, string(opts.Visibility))
	}
	q += ` ORDER BY created_at DESC`
	q, args = applyWindow(q, args, opts.Limit, opts.Offset)

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*post.Post
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, p)
	}
	return result, rows.Err()
}

// ==================== Profile Store ====================

func (s *Store) GetProfile(ctx context.Context, userID string) (*profile.Profile, error) {
	var (
		p       profile.Profile
		role    string
		blocked string
	)
	err := s.db.QueryRowContext(ctx, `
SELECT user_id, role, blocked_countries, banned, age_verified, created_at, updated_at
FROM paywall_profiles WHERE user_id = ?`,
		userID,
	).Scan(&p.UserID, &role, &blocked, &p.Banned, &p.AgeVerified,
		&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, paywall.ErrProfileNotFound
		}
		return nil, err
	}

	p.Role = profile.Role(role)
	if blocked != "" {
		_ = json.Unmarshal([]byte(blocked), &p.BlockedCountries) //nolint:errcheck // best-effort
	}
	return &p, nil
}

func (s *Store) UpsertProfile(ctx context.Context, p *profile.Profile) error {
	blocked, err := json.Marshal(p.BlockedCountries)
	if err != nil {
		return err
	}

	now := time.Now()
	_, err = s.db.ExecContext(ctx, `
INSERT INTO paywall_profiles (user_id, role, blocked_countries, banned, age_verified, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (user_id) DO UPDATE SET
    role = excluded.role,
    blocked_countries = excluded.blocked_countries,
    banned = excluded.banned,
    age_verified = excluded.age_verified,
    updated_at = excluded.updated_at`,
		p.UserID, string(p.Role), string(blocked), p.Banned, p.AgeVerified, now, now,
	)
	return err
}

// ==================== Subscription Store ====================

func (s *Store) UpsertSubscription(ctx context.Context, sub *subscription.Subscription) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO paywall_subscriptions (id, subscriber_id, creator_id, status, starts_at, ends_at, canceled_at, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (subscriber_id, creator_id) DO UPDATE SET
    id = excluded.id,
    status = excluded.status,
    starts_at = excluded.starts_at,
    ends_at = excluded.ends_at,
    canceled_at = excluded.canceled_at,
    updated_at = excluded.updated_at`,
		sub.ID.String(), sub.SubscriberID, sub.CreatorID, string(sub.Status),
		sub.StartsAt, sub.EndsAt, sub.CanceledAt, sub.CreatedAt, sub.UpdatedAt,
	)
	return err
}

func (s *Store) GetSubscription(ctx context.Context, subscriberID, creatorID string) (*subscription.Subscription, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT id, subscriber_id, creator_id, status, starts_at, ends_at, canceled_at, created_at, updated_at
FROM paywall_subscriptions WHERE subscriber_id = ? AND creator_id = ?`,
		subscriberID, creatorID,
	)
	sub, err := scanSubscription(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, paywall.ErrSubscriptionNotFound
	}
	return sub, err
}

func (s *Store) CancelSubscription(ctx context.Context, subscriberID, creatorID string, canceledAt time.Time) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
UPDATE paywall_subscriptions
SET status = ?, canceled_at = ?, updated_at = ?
WHERE subscriber_id = ? AND creator_id = ? AND status = ?`,
		string(subscription.StatusCanceled), canceledAt, canceledAt,
		subscriberID, creatorID, string(subscription.StatusActive),
	)
	if err != nil {
		return false, err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows > 0, nil
}

func (s *Store) ListSubscriptionsByCreator(ctx context.Context, creatorID string, opts subscription.ListOpts) ([]*subscription.Subscription, error) {
	q := `
SELECT id, subscriber_id, creator_id, status, starts_at, ends_at, canceled_at, created_at, updated_at
FROM paywall_subscriptions WHERE creator_id = ?`
	args := []any{creatorID}

	if opts.Status != "" {
		q += ` AND status = ?`
		args = append(args, string(opts.Status))
	}
	q += ` ORDER BY created_at DESC`
	q, args = applyWindow(q, args, opts.Limit, opts.Offset)

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*subscription.Subscription
	for rows.Next() {
		sub, err := scanSubscription(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, sub)
	}
	return result, rows.Err()
}

func (s *Store) ExpireSubscriptions(ctx context.Context, now time.Time) ([]*subscription.Subscription, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }() //nolint:errcheck // no-op after commit

	rows, err := tx.QueryContext(ctx, `
SELECT id, subscriber_id, creator_id, status, starts_at, ends_at, canceled_at, created_at, updated_at
FROM paywall_subscriptions WHERE status = ? AND ends_at <= ?`,
		string(subscription.StatusActive), now,
	)
	if err != nil {
		return nil, err
	}

	var lapsed []*subscription.Subscription
	for rows.Next() {
		sub, err := scanSubscription(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		lapsed = append(lapsed, sub)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	if len(lapsed) == 0 {
		return nil, tx.Commit()
	}

	if _, err := tx.ExecContext(ctx, `
UPDATE paywall_subscriptions SET status = ?, updated_at = ?
WHERE status = ? AND ends_at <= ?`,
		string(subscription.StatusExpired), now,
		string(subscription.StatusActive), now,
	); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	for _, sub := range lapsed {
		sub.Status = subscription.StatusExpired
	}
	return lapsed, nil
}

// ==================== Unlock Store ====================

func (s *Store) GetUnlock(ctx context.Context, userID string, postID id.PostID) (*unlock.Unlock, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT id, user_id, post_id, price_cents, price_currency, event_id, created_at
FROM paywall_unlocks WHERE user_id = ? AND post_id = ?`,
		userID, postID.String(),
	)
	u, err := scanUnlock(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, paywall.ErrUnlockNotFound
	}
	return u, err
}

func (s *Store) ListUnlocksByUser(ctx context.Context, userID string, opts unlock.ListOpts) ([]*unlock.Unlock, error) {
	q := `
SELECT id, user_id, post_id, price_cents, price_currency, event_id, created_at
FROM paywall_unlocks WHERE user_id = ? ORDER BY created_at DESC`
	args := []any{userID}
	q, args = applyWindow(q, args, opts.Limit, opts.Offset)

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*unlock.Unlock
	for rows.Next() {
		u, err := scanUnlock(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, u)
	}
	return result, rows.Err()
}

// ApplyUnlock executes the paid unlock as one database transaction, with
// the same ordering as the PostgreSQL store: unlock insert first (the
// primary key resolves duplicate races), then the conditional debit checked
// by rows-affected, then the pending credit and both ledger rows.
func (s *Store) ApplyUnlock(ctx context.Context, u *unlock.Unlock, debit, credit *wallet.Transaction) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }() //nolint:errcheck // no-op after commit

	_, err = tx.ExecContext(ctx, `
INSERT INTO paywall_unlocks (id, user_id, post_id, price_cents, price_currency, event_id, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?)`,
		u.ID.String(), u.UserID, u.PostID.String(),
		u.Price.Amount, u.Price.Currency, u.EventID.String(), u.CreatedAt,
	)
	if err != nil {
		if isConstraintViolation(err) {
			return paywall.ErrAlreadyUnlocked
		}
		return err
	}

	res, err := tx.ExecContext(ctx, `
UPDATE paywall_accounts
SET available_cents = available_cents + ?, updated_at = ?
WHERE user_id = ? AND available_cents >= ?`,
		debit.Amount.Amount, time.Now(), debit.UserID, -debit.Amount.Amount,
	)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return paywall.ErrInsufficientBalance
	}

	if _, err := tx.ExecContext(ctx, `
UPDATE paywall_accounts
SET pending_cents = pending_cents + ?, updated_at = ?
WHERE user_id = ?`,
		credit.Amount.Amount, time.Now(), credit.UserID,
	); err != nil {
		return err
	}

	for _, txn := range []*wallet.Transaction{debit, credit} {
		if _, err := tx.ExecContext(ctx, `
INSERT INTO paywall_transactions (id, user_id, kind, amount_cents, amount_currency, status, event_id, metadata, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			txn.ID.String(), txn.UserID, string(txn.Kind),
			txn.Amount.Amount, txn.Amount.Currency, string(txn.Status),
			txn.EventID.String(), marshalMeta(txn.Meta), time.Now(),
		); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// ==================== Wallet Store ====================

func (s *Store) GetOrCreateAccount(ctx context.Context, userID string, currency string) (*wallet.Account, error) {
	now := time.Now()
	_, err := s.db.ExecContext(ctx, `
INSERT INTO paywall_accounts (id, user_id, currency, created_at, updated_at)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT (user_id) DO NOTHING`,
		id.NewAccountID().String(), userID, currency, now, now,
	)
	if err != nil {
		return nil, err
	}

	var (
		acct   wallet.Account
		acctID string
		cur    string
		avail  int64
		pend   int64
	)
	err = s.db.QueryRowContext(ctx, `
SELECT id, user_id, currency, available_cents, pending_cents, created_at, updated_at
FROM paywall_accounts WHERE user_id = ?`,
		userID,
	).Scan(&acctID, &acct.UserID, &cur, &avail, &pend,
		&acct.CreatedAt, &acct.UpdatedAt)
	if err != nil {
		return nil, err
	}

	acct.ID, err = id.ParseAccountID(acctID)
	if err != nil {
		return nil, err
	}
	acct.Available = types.New(avail, cur)
	acct.Pending = types.New(pend, cur)
	return &acct, nil
}

func (s *Store) GetBalance(ctx context.Context, userID string) (wallet.Balance, error) {
	var (
		cur   string
		avail int64
		pend  int64
	)
	err := s.db.QueryRowContext(ctx, `
SELECT currency, available_cents, pending_cents
FROM paywall_accounts WHERE user_id = ?`,
		userID,
	).Scan(&cur, &avail, &pend)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return wallet.Balance{}, paywall.ErrAccountNotFound
		}
		return wallet.Balance{}, err
	}
	return wallet.Balance{
		Available: types.New(avail, cur),
		Pending:   types.New(pend, cur),
	}, nil
}

func (s *Store) ApplyTransaction(ctx context.Context, txn *wallet.Transaction) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }() //nolint:errcheck // no-op after commit

	column := "pending_cents"
	if txn.Kind.CreditsAvailable() {
		column = "available_cents"
	}

	var res sql.Result
	if txn.Debit() && column == "available_cents" {
		res, err = tx.ExecContext(ctx, fmt.Sprintf(`
UPDATE paywall_accounts
SET %s = %s + ?, updated_at = ?
WHERE user_id = ? AND %s >= ?`, column, column, column),
			txn.Amount.Amount, time.Now(), txn.UserID, -txn.Amount.Amount,
		)
	} else {
		res, err = tx.ExecContext(ctx, fmt.Sprintf(`
UPDATE paywall_accounts
SET %s = %s + ?, updated_at = ?
WHERE user_id = ?`, column, column),
			txn.Amount.Amount, time.Now(), txn.UserID,
		)
	}
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		if txn.Debit() {
			return paywall.ErrInsufficientBalance
		}
		return paywall.ErrAccountNotFound
	}

	if _, err := tx.ExecContext(ctx, `
INSERT INTO paywall_transactions (id, user_id, kind, amount_cents, amount_currency, status, event_id, metadata, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		txn.ID.String(), txn.UserID, string(txn.Kind),
		txn.Amount.Amount, txn.Amount.Currency, string(txn.Status),
		txn.EventID.String(), marshalMeta(txn.Meta), time.Now(),
	); err != nil {
		return err
	}

	return tx.Commit()
}

func (s *Store) ListTransactions(ctx context.Context, userID string, opts wallet.ListOpts) ([]*wallet.Transaction, error) {
	q := `
SELECT id, user_id, kind, amount_cents, amount_currency, status, event_id, metadata
FROM paywall_transactions WHERE user_id = ?`
	args := []any{userID}

	if opts.Kind != "" {
		q += ` AND kind = ?`
		args = append(args, string(opts.Kind))
	}
	q += ` ORDER BY created_at DESC`
	q, args = applyWindow(q, args, opts.Limit, opts.Offset)

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*wallet.Transaction
	for rows.Next() {
		var (
			txnID, eventID, kind, status, cur, meta string
			amount                                  int64
			txn                                     wallet.Transaction
		)
		if err := rows.Scan(&txnID, &txn.UserID, &kind, &amount, &cur,
			&status, &eventID, &meta); err != nil {
			return nil, err
		}

		txn.ID, err = id.ParseTransactionID(txnID)
		if err != nil {
			return nil, err
		}
		if eventID != "" {
			txn.EventID, err = id.ParseEventID(eventID)
			if err != nil {
				return nil, err
			}
		}
		txn.Kind = wallet.Kind(kind)
		txn.Status = wallet.TxStatus(status)
		txn.Amount = types.New(amount, cur)
		if meta != "" && meta != "{}" {
			_ = json.Unmarshal([]byte(meta), &txn.Meta) //nolint:errcheck // best-effort
		}
		result = append(result, &txn)
	}
	return result, rows.Err()
}

// ==================== Helpers ====================

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanPost(row scanner) (*post.Post, error) {
	var (
		p          post.Post
		postID     string
		visibility string
		amount     int64
		cur        string
	)
	err := row.Scan(&postID, &p.CreatorID, &p.Title, &p.Body, &p.MediaURL,
		&visibility, &amount, &cur, &p.Deleted, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}

	p.ID, err = id.ParsePostID(postID)
	if err != nil {
		return nil, err
	}
	p.Visibility = post.Visibility(visibility)
	p.Price = types.New(amount, cur)
	return &p, nil
}

func scanSubscription(row scanner) (*subscription.Subscription, error) {
	var (
		sub        subscription.Subscription
		subID      string
		status     string
		canceledAt sql.NullTime
	)
	err := row.Scan(&subID, &sub.SubscriberID, &sub.CreatorID, &status,
		&sub.StartsAt, &sub.EndsAt, &canceledAt, &sub.CreatedAt, &sub.UpdatedAt)
	if err != nil {
		return nil, err
	}

	sub.ID, err = id.ParseSubscriptionID(subID)
	if err != nil {
		return nil, err
	}
	sub.Status = subscription.Status(status)
	if canceledAt.Valid {
		t := canceledAt.Time
		sub.CanceledAt = &t
	}
	return &sub, nil
}

func scanUnlock(row scanner) (*unlock.Unlock, error) {
	var (
		u        unlock.Unlock
		unlockID string
		postID   string
		eventID  string
		amount   int64
		cur      string
	)
	err := row.Scan(&unlockID, &u.UserID, &postID, &amount, &cur,
		&eventID, &u.CreatedAt)
	if err != nil {
		return nil, err
	}

	u.ID, err = id.ParseUnlockID(unlockID)
	if err != nil {
		return nil, err
	}
	u.PostID, err = id.ParsePostID(postID)
	if err != nil {
		return nil, err
	}
	u.EventID, err = id.ParseEventID(eventID)
	if err != nil {
		return nil, err
	}
	u.Price = types.New(amount, cur)
	return &u, nil
}

func marshalMeta(meta map[string]string) string {
	if meta == nil {
		return "{}"
	}
	data, err := json.Marshal(meta)
	if err != nil {
		return "{}"
	}
	return string(data)
}

func applyWindow(q string, args []any, limit, offset int) (string, []any) {
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}
	if offset > 0 {
		if limit <= 0 {
			// SQLite requires LIMIT before OFFSET; -1 means unbounded.
			q += ` LIMIT -1`
		}
		q += ` OFFSET ?`
		args = append(args, offset)
	}
	return q, args
}

func isConstraintViolation(err error) bool {
	var se *sqlite.Error
	if errors.As(err, &se) {
		return se.Code()&0xff == sqliteConstraint
	}
	return false
}
