/**
 * @description
 * This file defines the core ledger domain models: accounts, ledger
 * transactions, and the closed set of transaction kinds. These structs map
 * directly to the `accounts` and `ledger_transactions` tables and are used
 * throughout the service's business logic, database interactions, and API
 * layers.
 *
 * @notes
 * - Amounts are stored as `int64` in the smallest coin unit (1 coin = 100
 *   units), which avoids floating-point inaccuracies with financial data.
 * - Every kind carries an explicit credit/debit classification via Sign().
 *   An unclassified kind is a defect and Sign() fails loudly instead of
 *   defaulting, so a bad kind can never silently corrupt a balance.
 */

package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// TransactionKind is the closed set of ledger transaction kinds.
type TransactionKind string

const (
	KindAward                TransactionKind = "award"
	KindTransferSent         TransactionKind = "transfer_sent"
	KindTransferReceived     TransactionKind = "transfer_received"
	KindWellnessReward       TransactionKind = "wellness_reward"
	KindAdjustment           TransactionKind = "adjustment"
	KindStorePurchase        TransactionKind = "store_purchase"
	KindWagerBet             TransactionKind = "wager_bet"
	KindWagerWin             TransactionKind = "wager_win"
	KindWagerRefund          TransactionKind = "wager_refund"
	KindJackpotContribution  TransactionKind = "jackpot_contribution"
	KindJackpotWin           TransactionKind = "jackpot_win"
	KindDailyBonus           TransactionKind = "daily_bonus"
	KindBulkImport           TransactionKind = "bulk_import"
	KindAllotmentDeposit     TransactionKind = "allotment_deposit"
)

// ErrUnknownTransactionKind indicates a kind with no credit/debit
// classification. It is treated as an internal defect, never a user error.
var ErrUnknownTransactionKind = errors.New("unknown transaction kind")

// Sign returns the balance delta direction for a kind: +1 for credits, -1 for
// debits. The switch is exhaustive over the kind constants above; any other
// value returns ErrUnknownTransactionKind so posting aborts instead of
// guessing.
func (k TransactionKind) Sign() (int64, error) {
	switch k {
	case KindAward, KindTransferReceived, KindWellnessReward, KindAdjustment,
		KindWagerWin, KindWagerRefund, KindJackpotWin, KindDailyBonus,
		KindBulkImport, KindAllotmentDeposit:
		return 1, nil
	case KindTransferSent, KindStorePurchase, KindWagerBet, KindJackpotContribution:
		return -1, nil
	default:
		return 0, ErrUnknownTransactionKind
	}
}

// Valid reports whether k belongs to the closed kind set.
func (k TransactionKind) Valid() bool {
	_, err := k.Sign()
	return err == nil
}

// TransactionStatus is the lifecycle state of a ledger transaction.
// pending -> posted and pending -> rejected are the only legal transitions;
// posted and rejected are terminal.
type TransactionStatus string

const (
	StatusPending  TransactionStatus = "pending"
	StatusPosted   TransactionStatus = "posted"
	StatusRejected TransactionStatus = "rejected"
)

// LedgerTransaction is the central append-only record for any coin movement.
// This struct maps directly to the `ledger_transactions` table.
type LedgerTransaction struct {
	ID               uuid.UUID         `json:"id"`
	AccountID        uuid.UUID         `json:"account_id"`
	Kind             TransactionKind   `json:"kind"`
	Amount           int64             `json:"amount"` // in coin units, always >= 0; direction comes from Kind
	Status           TransactionStatus `json:"status"`
	Description      string            `json:"description"`
	SourceEmployeeID *uuid.UUID        `json:"source_employee_id,omitempty"`
	TargetEmployeeID *uuid.UUID        `json:"target_employee_id,omitempty"`
	LinkID           *uuid.UUID        `json:"link_id,omitempty"` // game, transfer, or import this row belongs to
	CreatedAt        time.Time         `json:"created_at"`
	PostedAt         *time.Time        `json:"posted_at,omitempty"`
}

// Account is a per-employee coin wallet. The balance column caches the signed
// sum of the account's posted transactions and is only ever mutated in the
// same unit of work that posts a transaction.
type Account struct {
	ID         uuid.UUID `json:"id"`
	EmployeeID uuid.UUID `json:"employee_id"`
	Balance    int64     `json:"balance"` // posted total only
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Employee is the slice of the employee directory this service reads. The
// directory itself is owned by the identity subsystem.
type Employee struct {
	ID    uuid.UUID `json:"id"`
	Email string    `json:"email"`
}

// AccountBalance is the balance view returned to callers. Pending is
// re-summed from pending transactions on every read rather than cached.
type AccountBalance struct {
	Posted  int64 `json:"posted"`
	Pending int64 `json:"pending"` // signed sum of pending transactions
	Total   int64 `json:"total"`
}

// TransactionFilter controls history pagination and filtering.
type TransactionFilter struct {
	Kind   *TransactionKind
	Status *TransactionStatus
	Limit  int
	Offset int
}
