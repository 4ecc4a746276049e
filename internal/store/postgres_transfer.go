/**
 * @description
 * Pending transfer persistence: escrow rows created when coins are sent to
 * an email address that has no account yet.
 *
 * @dependencies
 * - github.com/jackc/pgx/v5: The PostgreSQL driver for database operations.
 * - internal/domain: Contains the domain models used for data transfer.
 */

package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/meritmint/ledger-service/internal/domain"
)

const pendingTransferColumns = `
	id, sender_id, lower(btrim(recipient_email)), amount, status,
	sender_transaction_id, description, created_at, resolved_at`

func scanPendingTransfer(row pgx.Row) (*domain.PendingTransfer, error) {
	var t domain.PendingTransfer
	err := row.Scan(&t.ID, &t.SenderID, &t.RecipientEmail, &t.Amount, &t.Status,
		&t.SenderTransactionID, &t.Description, &t.CreatedAt, &t.ResolvedAt)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// CreatePendingTransfer inserts a new escrow row in pending state.
func (r *PostgresRepository) CreatePendingTransfer(ctx context.Context, transfer *domain.PendingTransfer) error {
	query := `
		INSERT INTO pending_transfers (
			id, sender_id, recipient_email, amount, status,
			sender_transaction_id, description
		)
		VALUES ($1, $2, lower(btrim($3)), $4, $5, $6, $7)
		RETURNING created_at
	`
	return r.db.QueryRow(ctx, query,
		transfer.ID, transfer.SenderID, transfer.RecipientEmail, transfer.Amount,
		transfer.Status, transfer.SenderTransactionID, transfer.Description,
	).Scan(&transfer.CreatedAt)
}

// GetPendingTransferForUpdate locks one escrow row so claim, cancel, and
// expiry cannot race each other on the same transfer.
func (r *PostgresRepository) GetPendingTransferForUpdate(ctx context.Context, id uuid.UUID) (*domain.PendingTransfer, error) {
	query := `SELECT ` + pendingTransferColumns + ` FROM pending_transfers WHERE id = $1 FOR UPDATE`
	t, err := scanPendingTransfer(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrTransferNotFound
		}
		return nil, err
	}
	return t, nil
}

// ListPendingTransfersByEmail returns the unclaimed escrow rows addressed to
// an email, oldest first, each locked for the ambient transaction.
func (r *PostgresRepository) ListPendingTransfersByEmail(ctx context.Context, email string) ([]domain.PendingTransfer, error) {
	query := `
		SELECT ` + pendingTransferColumns + `
		FROM pending_transfers
		WHERE lower(btrim(recipient_email)) = lower(btrim($1)) AND status = $2
		ORDER BY created_at ASC
		FOR UPDATE
	`
	return r.queryPendingTransfers(ctx, query, email, domain.TransferPending)
}

// ListPendingTransfersOlderThan returns unclaimed escrow rows created before
// the cutoff, locked for expiry processing.
func (r *PostgresRepository) ListPendingTransfersOlderThan(ctx context.Context, cutoff time.Time) ([]domain.PendingTransfer, error) {
	query := `
		SELECT ` + pendingTransferColumns + `
		FROM pending_transfers
		WHERE status = $2 AND created_at < $1
		ORDER BY created_at ASC
		FOR UPDATE
	`
	return r.queryPendingTransfers(ctx, query, cutoff, domain.TransferPending)
}

func (r *PostgresRepository) queryPendingTransfers(ctx context.Context, query string, args ...any) ([]domain.PendingTransfer, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var transfers []domain.PendingTransfer
	for rows.Next() {
		t, err := scanPendingTransfer(rows)
		if err != nil {
			return nil, err
		}
		transfers = append(transfers, *t)
	}
	return transfers, rows.Err()
}

// MarkTransferResolved transitions pending -> claimed or cancelled. Rows
// already resolved are left untouched.
func (r *PostgresRepository) MarkTransferResolved(ctx context.Context, id uuid.UUID, status domain.PendingTransferStatus, resolvedAt time.Time) error {
	query := `UPDATE pending_transfers SET status = $1, resolved_at = $2 WHERE id = $3 AND status = $4`
	result, err := r.db.Exec(ctx, query, status, resolvedAt, id, domain.TransferPending)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrTransferNotPending
	}
	return nil
}
