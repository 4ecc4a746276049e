/**
 * @description
 * This file defines the `Repository` interface, which specifies the contract
 * for all data access operations required by the ledger service. By defining
 * an interface, the application layer is decoupled from the concrete
 * PostgreSQL implementation, which also makes the service logic testable
 * with lightweight stubs.
 *
 * WithinTx is the unit-of-work boundary: the callback receives a Repository
 * view bound to one serializable database transaction, so every financial
 * flow is all-or-nothing and concurrent read-then-write sequences against
 * the same account or pool cannot interleave.
 */

package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/meritmint/ledger-service/internal/domain"
)

var (
	ErrEmployeeNotFound      = errors.New("employee not found")
	ErrAccountNotFound       = errors.New("account not found")
	ErrTransactionNotFound   = errors.New("transaction not found")
	ErrTransactionNotPending = errors.New("transaction is not pending")
	ErrInsufficientFunds     = errors.New("insufficient funds")
	ErrGameConfigNotFound    = errors.New("game configuration not found")
	ErrJackpotNotFound       = errors.New("jackpot not found")
	ErrBonusAlreadyClaimed   = errors.New("daily bonus already claimed")
	ErrTransferNotFound      = errors.New("pending transfer not found")
	ErrTransferNotPending    = errors.New("pending transfer is not pending")
)

// Repository is the data access contract for the ledger service.
type Repository interface {
	// WithinTx runs fn inside one serializable database transaction and
	// hands it a Repository bound to that transaction. Nested calls join
	// the ambient transaction instead of opening a new one. Serialization
	// conflicts are retried a bounded number of times before surfacing.
	WithinTx(ctx context.Context, fn func(Repository) error) error

	// Employee directory (read-only; owned by the identity subsystem).
	FindEmployeeByEmail(ctx context.Context, email string) (*domain.Employee, error)

	// Accounts.
	FetchOrCreateAccount(ctx context.Context, employeeID uuid.UUID) (*domain.Account, error)
	FindAccountByEmployeeID(ctx context.Context, employeeID uuid.UUID) (*domain.Account, error)
	GetAccountForUpdate(ctx context.Context, accountID uuid.UUID) (*domain.Account, error)
	ApplyBalanceDelta(ctx context.Context, accountID uuid.UUID, delta int64) (int64, error)

	// Ledger transactions.
	CreateLedgerTransaction(ctx context.Context, tx *domain.LedgerTransaction) error
	FindLedgerTransactionByID(ctx context.Context, id uuid.UUID) (*domain.LedgerTransaction, error)
	GetLedgerTransactionForUpdate(ctx context.Context, id uuid.UUID) (*domain.LedgerTransaction, error)
	MarkTransactionPosted(ctx context.Context, id uuid.UUID, postedAt time.Time) error
	MarkTransactionRejected(ctx context.Context, id uuid.UUID) error
	ListPendingTransactions(ctx context.Context, accountID uuid.UUID) ([]domain.LedgerTransaction, error)
	ListTransactions(ctx context.Context, accountID uuid.UUID, filter domain.TransactionFilter) ([]domain.LedgerTransaction, error)

	// Wagering.
	NextWagerNonce(ctx context.Context, employeeID uuid.UUID) (int64, error)
	FindGameConfigByKind(ctx context.Context, kind domain.GameKind) (*domain.GameConfig, error)
	ListGameConfigs(ctx context.Context) ([]domain.GameConfig, error)
	SetGameEnabled(ctx context.Context, kind domain.GameKind, enabled bool) error
	DisableAllGames(ctx context.Context) error
	CreateGame(ctx context.Context, game *domain.Game) error
	RecordGameStats(ctx context.Context, employeeID uuid.UUID, bet, payout int64, won bool) error
	IncrementJackpotWins(ctx context.Context, employeeID uuid.UUID) error
	GetGameStats(ctx context.Context, employeeID uuid.UUID) (*domain.GameStats, error)
	InsertDailyBonusClaim(ctx context.Context, employeeID uuid.UUID, day time.Time) error

	// Bank and jackpots.
	GetBankForUpdate(ctx context.Context) (*domain.Bank, error)
	GetBank(ctx context.Context) (*domain.Bank, error)
	AddToBankBalance(ctx context.Context, delta int64) (int64, error)
	SetGamesDisabled(ctx context.Context, disabled bool) error
	FindActiveJackpot(ctx context.Context) (*domain.Jackpot, error)
	GetJackpotForUpdate(ctx context.Context, jackpotID uuid.UUID) (*domain.Jackpot, error)
	ListJackpots(ctx context.Context) ([]domain.Jackpot, error)
	AddJackpotContribution(ctx context.Context, jackpotID, employeeID uuid.UUID, amount int64) error
	SetJackpotActive(ctx context.Context, jackpotID uuid.UUID, active bool) error
	AdjustJackpotBalance(ctx context.Context, jackpotID uuid.UUID, delta int64) (int64, error)
	ListJackpotContributorTotals(ctx context.Context, jackpotID uuid.UUID) ([]domain.ContributorTotal, error)
	ResetJackpotAfterWin(ctx context.Context, jackpotID, winnerID uuid.UUID, amount int64, wonAt time.Time) error

	// Allotments.
	FetchOrCreateAllotment(ctx context.Context, employeeID uuid.UUID, periodType domain.PeriodType, start, end time.Time, defaultAmount int64) (*domain.AllotmentBudget, error)
	SumPostedAwardsBySource(ctx context.Context, employeeID uuid.UUID, start, end time.Time) (int64, error)
	ListAwardsBySource(ctx context.Context, employeeID uuid.UUID, limit, offset int) ([]domain.LedgerTransaction, error)

	// Pending transfers.
	CreatePendingTransfer(ctx context.Context, transfer *domain.PendingTransfer) error
	GetPendingTransferForUpdate(ctx context.Context, id uuid.UUID) (*domain.PendingTransfer, error)
	ListPendingTransfersByEmail(ctx context.Context, email string) ([]domain.PendingTransfer, error)
	ListPendingTransfersOlderThan(ctx context.Context, cutoff time.Time) ([]domain.PendingTransfer, error)
	MarkTransferResolved(ctx context.Context, id uuid.UUID, status domain.PendingTransferStatus, resolvedAt time.Time) error
}
