// Package wallet models the per-user balance and its append-only
// transaction ledger.
package wallet

import (
	"github.com/xraph/paywall/id"
	"github.com/xraph/paywall/types"
)

// Account is a user's wallet. One row per user, created lazily on the first
// financial event; the user_id uniqueness constraint makes that creation
// race-free. Balances are mutated only through ledger transactions.
type Account struct {
	types.Entity
	ID     id.AccountID `json:"id"`
	UserID string       `json:"user_id"`
	// Available is spendable. The store guarantees it never goes negative.
	Available types.Money `json:"available"`
	// Pending holds creator earnings awaiting settlement.
	Pending types.Money `json:"pending"`
}

// Balance is the read-model pair returned to callers.
type Balance struct {
	Available types.Money `json:"available"`
	Pending   types.Money `json:"pending"`
}

// Kind classifies a ledger transaction.
type Kind string

const (
	// KindDeposit is a pre-authorized top-up credited to available balance.
	KindDeposit Kind = "deposit"
	// KindPPVDebit is a fan's charge for a pay-per-view unlock. Amount is
	// the exact negation of the post price.
	KindPPVDebit Kind = "ppv_debit"
	// KindCreatorEarning is the creator-side credit paired with a ppv_debit,
	// price minus the platform fee, landing on pending balance.
	KindCreatorEarning Kind = "creator_earning"
	// KindRefund returns a previous debit to available balance.
	KindRefund Kind = "refund"
)

// TxStatus is a transaction's settlement state.
type TxStatus string

const (
	TxCompleted TxStatus = "completed"
	TxPending   TxStatus = "pending"
	TxReversed  TxStatus = "reversed"
)

// Transaction is one append-only ledger row. Every balance mutation has
// exactly one Transaction, and the debit/credit pair produced by a single
// business event shares one EventID so the pair can be reconciled.
type Transaction struct {
	ID     id.TransactionID `json:"id"`
	UserID string           `json:"user_id"`
	Kind   Kind             `json:"kind"`
	// Amount is signed: negative for debits, positive for credits.
	Amount  types.Money       `json:"amount"`
	Status  TxStatus          `json:"status"`
	EventID id.EventID        `json:"event_id,omitempty"`
	Meta    map[string]string `json:"meta,omitempty"`
}

// Debit reports whether the transaction reduces a balance.
func (t *Transaction) Debit() bool { return t.Amount.IsNegative() }

// CreditsAvailable reports whether the kind lands on the available balance;
// creator earnings land on pending instead.
func (k Kind) CreditsAvailable() bool {
	return k == KindDeposit || k == KindRefund || k == KindPPVDebit
}
