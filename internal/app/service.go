/**
 * @description
 * This file contains the core ledger logic for the ledger-service. The `Service`
 * struct orchestrates all coin movement operations, coordinating between the
 * database repository, the Redis rate limiter, and the message broker.
 *
 * Key features:
 * - Every transaction is an immutable row whose direction comes from its kind.
 * - Lifecycle transitions (pending -> posted/rejected) run in one serializable
 *   unit of work with the account row locked.
 * - The cached account balance reflects posted rows only; pending amounts are
 *   re-summed from the pending rows on every balance read.
 *
 * @dependencies
 * - context, errors, fmt, log, time: Standard Go libraries.
 * - github.com/google/uuid: For UUID generation.
 * - internal/domain, internal/store: For domain models and data access.
 * - pkg/rabbitmq: For event publishing.
 */

package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/meritmint/ledger-service/internal/domain"
	"github.com/meritmint/ledger-service/internal/store"
	"github.com/meritmint/ledger-service/pkg/rabbitmq"
)

var (
	ErrInvalidAmount     = errors.New("amount must be a positive number of coin units")
	ErrSelfTransfer      = errors.New("cannot transfer coins to yourself")
	ErrGamesDisabled     = errors.New("wagering is currently disabled")
	ErrGameNotEnabled    = errors.New("this game is not enabled")
	ErrBetOutOfRange     = errors.New("bet is outside the configured range")
	ErrRateLimited       = errors.New("too many plays; slow down")
	ErrAllotmentExceeded = errors.New("award exceeds the remaining allotment for this period")
	ErrNotTransferOwner  = errors.New("transfer does not belong to this sender")
)

// Options carries the tunables the service needs beyond its collaborators.
type Options struct {
	EventExchange          string
	AllotmentPeriod        domain.PeriodType
	AllotmentDefaultUnits  int64
	JackpotContributionBps int64
	PlayRateLimitPerMinute int
	TransferExpiryDays     int
}

// Service provides the core business logic for the rewards ledger.
type Service struct {
	repo          store.Repository
	eventProducer rabbitmq.Publisher
	rateLimiter   *RedisPlayRateLimiter
	opts          Options
}

// NewService creates a new ledger service instance.
func NewService(repo store.Repository, producer rabbitmq.Publisher, limiter *RedisPlayRateLimiter, opts Options) *Service {
	if opts.EventExchange == "" {
		opts.EventExchange = "ledger_events"
	}
	if opts.AllotmentPeriod == "" {
		opts.AllotmentPeriod = domain.PeriodMonthly
	}
	if opts.TransferExpiryDays <= 0 {
		opts.TransferExpiryDays = 30
	}
	return &Service{
		repo:          repo,
		eventProducer: producer,
		rateLimiter:   limiter,
		opts:          opts,
	}
}

// publish sends an event without letting broker trouble fail the committed
// operation.
func (s *Service) publish(ctx context.Context, routingKey string, body interface{}) {
	if s.eventProducer == nil {
		return
	}
	if err := s.eventProducer.Publish(ctx, s.opts.EventExchange, routingKey, body); err != nil {
		log.Printf("level=warn component=service msg=\"event publish failed\" routing_key=%s err=%v", routingKey, err)
	}
}

// CreatePendingTransaction records a new transaction in pending state. The
// amount is validated here and the kind must be one the ledger knows how to
// sign; nothing moves on the account until the row is posted.
func (s *Service) CreatePendingTransaction(ctx context.Context, employeeID uuid.UUID, kind domain.TransactionKind, amount int64, description string, linkID *uuid.UUID) (*domain.LedgerTransaction, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}
	if _, err := kind.Sign(); err != nil {
		return nil, err
	}

	var created *domain.LedgerTransaction
	err := s.repo.WithinTx(ctx, func(repo store.Repository) error {
		account, err := repo.FetchOrCreateAccount(ctx, employeeID)
		if err != nil {
			return fmt.Errorf("failed to resolve account: %w", err)
		}
		tx := &domain.LedgerTransaction{
			ID:          uuid.New(),
			AccountID:   account.ID,
			Kind:        kind,
			Amount:      amount,
			Status:      domain.StatusPending,
			Description: description,
			LinkID:      linkID,
		}
		if err := repo.CreateLedgerTransaction(ctx, tx); err != nil {
			return fmt.Errorf("failed to create transaction record: %w", err)
		}
		created = tx
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// PostTransaction transitions a pending transaction to posted and applies it
// to the cached balance. For debits the account must cover the amount at the
// moment of posting; if it cannot, the row is rejected instead and
// ErrInsufficientFunds is returned.
func (s *Service) PostTransaction(ctx context.Context, transactionID uuid.UUID) (*domain.LedgerTransaction, error) {
	var posted *domain.LedgerTransaction
	var rejected bool
	err := s.repo.WithinTx(ctx, func(repo store.Repository) error {
		// 1. Lock the transaction row and check its state
		tx, err := repo.GetLedgerTransactionForUpdate(ctx, transactionID)
		if err != nil {
			return err
		}
		if tx.Status != domain.StatusPending {
			return store.ErrTransactionNotPending
		}

		// 2. Direction comes from the kind; an unknown kind aborts loudly
		sign, err := tx.Kind.Sign()
		if err != nil {
			return fmt.Errorf("cannot post transaction %s: %w", tx.ID, err)
		}

		// 3. Lock the account and, for debits, verify coverage
		account, err := repo.GetAccountForUpdate(ctx, tx.AccountID)
		if err != nil {
			return err
		}
		if sign < 0 && account.Balance < tx.Amount {
			// The rejection must survive the commit, so the unit of work
			// returns nil here and the sentinel is surfaced outside it.
			if rejErr := repo.MarkTransactionRejected(ctx, tx.ID); rejErr != nil {
				return fmt.Errorf("failed to reject uncovered debit: %w", rejErr)
			}
			tx.Status = domain.StatusRejected
			posted = tx
			rejected = true
			return nil
		}

		// 4. Apply the delta and stamp the row
		if _, err := repo.ApplyBalanceDelta(ctx, account.ID, sign*tx.Amount); err != nil {
			return fmt.Errorf("failed to apply balance delta: %w", err)
		}
		now := time.Now().UTC()
		if err := repo.MarkTransactionPosted(ctx, tx.ID, now); err != nil {
			return err
		}
		tx.Status = domain.StatusPosted
		tx.PostedAt = &now
		posted = tx
		return nil
	})
	if err != nil {
		return nil, err
	}
	if rejected {
		return posted, store.ErrInsufficientFunds
	}
	return posted, nil
}

// RejectTransaction transitions a pending transaction to rejected. The
// cached balance never moved for a pending row, so nothing is reversed.
func (s *Service) RejectTransaction(ctx context.Context, transactionID uuid.UUID) error {
	return s.repo.WithinTx(ctx, func(repo store.Repository) error {
		tx, err := repo.GetLedgerTransactionForUpdate(ctx, transactionID)
		if err != nil {
			return err
		}
		if tx.Status != domain.StatusPending {
			return store.ErrTransactionNotPending
		}
		return repo.MarkTransactionRejected(ctx, tx.ID)
	})
}

// GetAccountBalance returns the posted balance alongside the signed sum of
// the account's pending rows, re-summed on every read.
func (s *Service) GetAccountBalance(ctx context.Context, employeeID uuid.UUID) (*domain.AccountBalance, error) {
	account, err := s.repo.FetchOrCreateAccount(ctx, employeeID)
	if err != nil {
		return nil, err
	}
	pending, err := s.repo.ListPendingTransactions(ctx, account.ID)
	if err != nil {
		return nil, err
	}

	var pendingSum int64
	for _, tx := range pending {
		sign, err := tx.Kind.Sign()
		if err != nil {
			return nil, fmt.Errorf("pending transaction %s has unknown kind: %w", tx.ID, err)
		}
		pendingSum += sign * tx.Amount
	}

	return &domain.AccountBalance{
		Posted:  account.Balance,
		Pending: pendingSum,
		Total:   account.Balance + pendingSum,
	}, nil
}

// GetTransactionHistory returns a filtered page of the employee's ledger,
// newest first.
func (s *Service) GetTransactionHistory(ctx context.Context, employeeID uuid.UUID, filter domain.TransactionFilter) ([]domain.LedgerTransaction, error) {
	account, err := s.repo.FindAccountByEmployeeID(ctx, employeeID)
	if err != nil {
		if errors.Is(err, store.ErrAccountNotFound) {
			return []domain.LedgerTransaction{}, nil
		}
		return nil, err
	}
	return s.repo.ListTransactions(ctx, account.ID, filter)
}

// GetPendingTransactions returns the employee's pending rows, oldest first.
func (s *Service) GetPendingTransactions(ctx context.Context, employeeID uuid.UUID) ([]domain.LedgerTransaction, error) {
	account, err := s.repo.FindAccountByEmployeeID(ctx, employeeID)
	if err != nil {
		if errors.Is(err, store.ErrAccountNotFound) {
			return []domain.LedgerTransaction{}, nil
		}
		return nil, err
	}
	return s.repo.ListPendingTransactions(ctx, account.ID)
}

// grantPosted creates and immediately posts a credit inside the caller's
// ambient unit of work. Used by flows that settle synchronously, like bulk
// imports and escrow claims.
func grantPosted(ctx context.Context, repo store.Repository, accountID uuid.UUID, kind domain.TransactionKind, amount int64, description string, sourceEmployeeID, linkID *uuid.UUID) (*domain.LedgerTransaction, error) {
	sign, err := kind.Sign()
	if err != nil {
		return nil, err
	}
	if sign <= 0 {
		return nil, fmt.Errorf("grantPosted requires a credit kind, got %s", kind)
	}
	now := time.Now().UTC()
	tx := &domain.LedgerTransaction{
		ID:               uuid.New(),
		AccountID:        accountID,
		Kind:             kind,
		Amount:           amount,
		Status:           domain.StatusPending,
		Description:      description,
		SourceEmployeeID: sourceEmployeeID,
		LinkID:           linkID,
	}
	if err := repo.CreateLedgerTransaction(ctx, tx); err != nil {
		return nil, fmt.Errorf("failed to create credit record: %w", err)
	}
	if _, err := repo.ApplyBalanceDelta(ctx, accountID, amount); err != nil {
		return nil, fmt.Errorf("failed to apply credit: %w", err)
	}
	if err := repo.MarkTransactionPosted(ctx, tx.ID, now); err != nil {
		return nil, err
	}
	tx.Status = domain.StatusPosted
	tx.PostedAt = &now
	return tx, nil
}

// debitPosted creates and immediately posts a debit inside the caller's
// ambient unit of work. The account row must already be locked; the caller
// sees ErrInsufficientFunds when the balance cannot cover the amount.
func debitPosted(ctx context.Context, repo store.Repository, account *domain.Account, kind domain.TransactionKind, amount int64, description string, targetEmployeeID, linkID *uuid.UUID) (*domain.LedgerTransaction, error) {
	sign, err := kind.Sign()
	if err != nil {
		return nil, err
	}
	if sign >= 0 {
		return nil, fmt.Errorf("debitPosted requires a debit kind, got %s", kind)
	}
	if account.Balance < amount {
		return nil, store.ErrInsufficientFunds
	}
	now := time.Now().UTC()
	tx := &domain.LedgerTransaction{
		ID:               uuid.New(),
		AccountID:        account.ID,
		Kind:             kind,
		Amount:           amount,
		Status:           domain.StatusPending,
		Description:      description,
		TargetEmployeeID: targetEmployeeID,
		LinkID:           linkID,
	}
	if err := repo.CreateLedgerTransaction(ctx, tx); err != nil {
		return nil, fmt.Errorf("failed to create debit record: %w", err)
	}
	newBalance, err := repo.ApplyBalanceDelta(ctx, account.ID, -amount)
	if err != nil {
		return nil, fmt.Errorf("failed to apply debit: %w", err)
	}
	account.Balance = newBalance
	if err := repo.MarkTransactionPosted(ctx, tx.ID, now); err != nil {
		return nil, err
	}
	tx.Status = domain.StatusPosted
	tx.PostedAt = &now
	return tx, nil
}

// BulkImport posts one import credit per row in a single unit of work, so a
// half-loaded spreadsheet never commits.
func (s *Service) BulkImport(ctx context.Context, rows []domain.AwardRequest, batchDescription string) (int, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	batchID := uuid.New()
	imported := 0
	err := s.repo.WithinTx(ctx, func(repo store.Repository) error {
		imported = 0
		for i, row := range rows {
			if row.Amount <= 0 {
				return fmt.Errorf("row %d: %w", i+1, ErrInvalidAmount)
			}
			employee, err := repo.FindEmployeeByEmail(ctx, row.RecipientEmail)
			if err != nil {
				return fmt.Errorf("row %d (%s): %w", i+1, row.RecipientEmail, err)
			}
			account, err := repo.FetchOrCreateAccount(ctx, employee.ID)
			if err != nil {
				return fmt.Errorf("row %d: failed to resolve account: %w", i+1, err)
			}
			description := row.Description
			if description == "" {
				description = batchDescription
			}
			if _, err := grantPosted(ctx, repo, account.ID, domain.KindBulkImport, row.Amount, description, nil, &batchID); err != nil {
				return fmt.Errorf("row %d: %w", i+1, err)
			}
			imported++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	log.Printf("level=info component=service msg=\"bulk import posted\" batch_id=%s rows=%d", batchID, imported)
	return imported, nil
}
