/**
 * @description
 * Peer transfers. A transfer between two registered employees settles both
 * legs in one unit of work. A transfer to an email with no account yet
 * records a held debit on the sender (a pending ledger row with no balance
 * effect) alongside an escrow row; when the recipient registers, the held
 * debit posts and a matching credit posts atomically. Cancelling or expiring
 * the escrow rejects the held debit, so the funds return without ever having
 * moved.
 *
 * @dependencies
 * - internal/domain, internal/store: Domain models and data access.
 */

package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/meritmint/ledger-service/internal/domain"
	"github.com/meritmint/ledger-service/internal/store"
	"github.com/meritmint/ledger-service/pkg/rabbitmq"
)

// TransferResult reports how a transfer settled: directly into the
// recipient's account or escrowed for a recipient who has not registered.
type TransferResult struct {
	Transaction       *domain.LedgerTransaction `json:"transaction"`
	Escrowed          bool                      `json:"escrowed"`
	PendingTransferID *uuid.UUID                `json:"pending_transfer_id,omitempty"`
}

// TransferCoins moves coins from the sender to the recipient email. The
// registered path debits and credits in the same unit of work; the escrow
// path holds the sender's debit pending until the recipient claims it.
func (s *Service) TransferCoins(ctx context.Context, senderID uuid.UUID, req domain.TransferRequest) (*TransferResult, error) {
	if req.Amount <= 0 {
		return nil, ErrInvalidAmount
	}
	email := strings.ToLower(strings.TrimSpace(req.RecipientEmail))
	if email == "" {
		return nil, store.ErrEmployeeNotFound
	}

	var result *TransferResult
	err := s.repo.WithinTx(ctx, func(repo store.Repository) error {
		// 1. Lock the sender's account
		senderAccount, err := repo.FetchOrCreateAccount(ctx, senderID)
		if err != nil {
			return err
		}
		senderAccount, err = repo.GetAccountForUpdate(ctx, senderAccount.ID)
		if err != nil {
			return err
		}

		// 2. Resolve the recipient; absence routes to escrow, any other
		// lookup failure aborts
		recipient, err := repo.FindEmployeeByEmail(ctx, email)
		switch {
		case err == nil:
			if recipient.ID == senderID {
				return ErrSelfTransfer
			}
			result, err = settleDirectTransfer(ctx, repo, senderAccount, recipient, req)
			return err
		case errors.Is(err, store.ErrEmployeeNotFound):
			result, err = escrowTransfer(ctx, repo, senderAccount, senderID, email, req)
			return err
		default:
			return err
		}
	})
	if err != nil {
		return nil, err
	}

	if result.Escrowed {
		log.Printf("level=info component=transfers msg=\"transfer escrowed\" sender_id=%s recipient_email=%s amount=%d", senderID, email, req.Amount)
	}
	s.publish(ctx, rabbitmq.RouteTransferSent, map[string]interface{}{
		"sender_id":       senderID,
		"recipient_email": email,
		"amount":          req.Amount,
		"escrowed":        result.Escrowed,
		"timestamp":       time.Now().UTC(),
	})
	return result, nil
}

func settleDirectTransfer(ctx context.Context, repo store.Repository, senderAccount *domain.Account, recipient *domain.Employee, req domain.TransferRequest) (*TransferResult, error) {
	linkID := uuid.New()
	recipientRef := recipient.ID

	sentTx, err := debitPosted(ctx, repo, senderAccount, domain.KindTransferSent, req.Amount, req.Description, &recipientRef, &linkID)
	if err != nil {
		return nil, err
	}

	recipientAccount, err := repo.FetchOrCreateAccount(ctx, recipient.ID)
	if err != nil {
		return nil, err
	}
	senderRef := senderAccount.EmployeeID
	if _, err := grantPosted(ctx, repo, recipientAccount.ID, domain.KindTransferReceived, req.Amount, req.Description, &senderRef, &linkID); err != nil {
		return nil, err
	}

	return &TransferResult{Transaction: sentTx}, nil
}

// escrowTransfer records the sender's debit in pending state and the escrow
// row referencing it. The balance is untouched until the debit posts at
// claim time; the coverage check here only rejects an escrow the sender
// plainly cannot fund right now.
func escrowTransfer(ctx context.Context, repo store.Repository, senderAccount *domain.Account, senderID uuid.UUID, email string, req domain.TransferRequest) (*TransferResult, error) {
	if senderAccount.Balance < req.Amount {
		return nil, store.ErrInsufficientFunds
	}

	transferID := uuid.New()
	heldTx := &domain.LedgerTransaction{
		ID:          uuid.New(),
		AccountID:   senderAccount.ID,
		Kind:        domain.KindTransferSent,
		Amount:      req.Amount,
		Status:      domain.StatusPending,
		Description: fmt.Sprintf("transfer to %s (unregistered)", email),
		LinkID:      &transferID,
	}
	if err := repo.CreateLedgerTransaction(ctx, heldTx); err != nil {
		return nil, fmt.Errorf("failed to create held debit: %w", err)
	}

	transfer := &domain.PendingTransfer{
		ID:                  transferID,
		SenderID:            senderID,
		RecipientEmail:      email,
		Amount:              req.Amount,
		Status:              domain.TransferPending,
		SenderTransactionID: heldTx.ID,
		Description:         req.Description,
	}
	if err := repo.CreatePendingTransfer(ctx, transfer); err != nil {
		return nil, err
	}

	return &TransferResult{
		Transaction:       heldTx,
		Escrowed:          true,
		PendingTransferID: &transferID,
	}, nil
}

// postHeldDebit posts the sender's held escrow debit inside the caller's
// ambient unit of work. An uncovered debit is rejected on the spot and
// reported as ErrInsufficientFunds.
func postHeldDebit(ctx context.Context, repo store.Repository, transfer *domain.PendingTransfer) error {
	heldTx, err := repo.GetLedgerTransactionForUpdate(ctx, transfer.SenderTransactionID)
	if err != nil {
		return err
	}
	if heldTx.Status != domain.StatusPending {
		return store.ErrTransactionNotPending
	}

	account, err := repo.GetAccountForUpdate(ctx, heldTx.AccountID)
	if err != nil {
		return err
	}
	if account.Balance < heldTx.Amount {
		if rejErr := repo.MarkTransactionRejected(ctx, heldTx.ID); rejErr != nil {
			return fmt.Errorf("failed to reject uncovered held debit: %w", rejErr)
		}
		return store.ErrInsufficientFunds
	}

	if _, err := repo.ApplyBalanceDelta(ctx, account.ID, -heldTx.Amount); err != nil {
		return fmt.Errorf("failed to apply held debit: %w", err)
	}
	return repo.MarkTransactionPosted(ctx, heldTx.ID, time.Now().UTC())
}

// revokeEscrow rejects the held debit and marks the escrow row cancelled,
// inside the caller's ambient unit of work. The funds never moved, so there
// is nothing to credit back.
func revokeEscrow(ctx context.Context, repo store.Repository, transfer *domain.PendingTransfer) error {
	heldTx, err := repo.GetLedgerTransactionForUpdate(ctx, transfer.SenderTransactionID)
	if err != nil {
		return err
	}
	if heldTx.Status == domain.StatusPending {
		if err := repo.MarkTransactionRejected(ctx, heldTx.ID); err != nil {
			return err
		}
	}
	return repo.MarkTransferResolved(ctx, transfer.ID, domain.TransferCancelled, time.Now().UTC())
}

// ClaimPendingTransfers settles every unclaimed escrow row addressed to the
// employee's email: the sender's held debit posts and a matching credit
// posts in the same unit of work. A held debit the sender can no longer
// cover cancels that escrow row instead of blocking the rest.
func (s *Service) ClaimPendingTransfers(ctx context.Context, employeeID uuid.UUID, email string) (int64, error) {
	var (
		claimedTotal int64
		events       []domain.TransferClaimedPayload
	)

	err := s.repo.WithinTx(ctx, func(repo store.Repository) error {
		claimedTotal = 0
		events = events[:0]

		transfers, err := repo.ListPendingTransfersByEmail(ctx, email)
		if err != nil {
			return err
		}
		if len(transfers) == 0 {
			return nil
		}

		account, err := repo.FetchOrCreateAccount(ctx, employeeID)
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		for _, transfer := range transfers {
			t := transfer
			if err := postHeldDebit(ctx, repo, &t); err != nil {
				if errors.Is(err, store.ErrInsufficientFunds) {
					log.Printf("level=warn component=transfers msg=\"held debit uncovered, escrow cancelled\" transfer_id=%s sender_id=%s amount=%d", t.ID, t.SenderID, t.Amount)
					if cancelErr := repo.MarkTransferResolved(ctx, t.ID, domain.TransferCancelled, now); cancelErr != nil {
						return fmt.Errorf("cancel uncovered transfer %s: %w", t.ID, cancelErr)
					}
					continue
				}
				return fmt.Errorf("claim transfer %s: %w", t.ID, err)
			}

			senderRef := t.SenderID
			transferRef := t.ID
			if _, err := grantPosted(ctx, repo, account.ID, domain.KindTransferReceived, t.Amount, t.Description, &senderRef, &transferRef); err != nil {
				return fmt.Errorf("claim transfer %s: %w", t.ID, err)
			}
			if err := repo.MarkTransferResolved(ctx, t.ID, domain.TransferClaimed, now); err != nil {
				return fmt.Errorf("claim transfer %s: %w", t.ID, err)
			}
			claimedTotal += t.Amount
			events = append(events, domain.TransferClaimedPayload{
				TransferID:  t.ID,
				SenderID:    t.SenderID,
				RecipientID: employeeID,
				Amount:      t.Amount,
				Timestamp:   now,
			})
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	for _, event := range events {
		s.publish(ctx, rabbitmq.RouteTransferFound, event)
	}
	if claimedTotal > 0 {
		log.Printf("level=info component=transfers msg=\"escrowed transfers claimed\" employee_id=%s count=%d total=%d", employeeID, len(events), claimedTotal)
	}
	return claimedTotal, nil
}

// CancelPendingTransfer revokes an escrowed transfer. Only the sender may
// cancel, and only while the row is still pending.
func (s *Service) CancelPendingTransfer(ctx context.Context, senderID, transferID uuid.UUID) error {
	return s.repo.WithinTx(ctx, func(repo store.Repository) error {
		transfer, err := repo.GetPendingTransferForUpdate(ctx, transferID)
		if err != nil {
			return err
		}
		if transfer.SenderID != senderID {
			return ErrNotTransferOwner
		}
		if transfer.Status != domain.TransferPending {
			return store.ErrTransferNotPending
		}
		return revokeEscrow(ctx, repo, transfer)
	})
}

// ExpireStalePendingTransfers revokes every escrow row that outlived the
// configured expiry window. Called from the scheduler; returns how many
// rows were revoked.
func (s *Service) ExpireStalePendingTransfers(ctx context.Context) (int, error) {
	cutoff := time.Now().UTC().AddDate(0, 0, -s.opts.TransferExpiryDays)

	expired := 0
	err := s.repo.WithinTx(ctx, func(repo store.Repository) error {
		expired = 0
		transfers, err := repo.ListPendingTransfersOlderThan(ctx, cutoff)
		if err != nil {
			return err
		}
		for _, transfer := range transfers {
			t := transfer
			if err := revokeEscrow(ctx, repo, &t); err != nil {
				return fmt.Errorf("expire transfer %s: %w", transfer.ID, err)
			}
			expired++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	if expired > 0 {
		log.Printf("level=info component=transfers msg=\"stale escrow revoked\" count=%d cutoff=%s", expired, cutoff.Format(time.RFC3339))
	}
	return expired, nil
}
