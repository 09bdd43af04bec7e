package wallet

import "context"

// Store is the wallet persistence interface.
//
// Apply is the only way a balance changes. Implementations must make the
// balance check and mutation one atomic datastore operation (a conditional
// update checked by rows-affected, not a read followed by a write): a debit
// that would drive the available balance negative fails with
// ErrInsufficientBalance and writes nothing, including its ledger row.
type Store interface {
	// GetOrCreate returns the user's account, creating it lazily. Creation
	// racing with another request resolves to the existing row.
	GetOrCreate(ctx context.Context, userID string, currency string) (*Account, error)
	GetBalance(ctx context.Context, userID string) (Balance, error)
	// Apply atomically mutates the balance and appends the ledger row.
	Apply(ctx context.Context, txn *Transaction) error
	ListTransactions(ctx context.Context, userID string, opts ListOpts) ([]*Transaction, error)
}

// ListOpts bounds transaction history reads, newest first.
type ListOpts struct {
	Kind   Kind
	Limit  int
	Offset int
}
