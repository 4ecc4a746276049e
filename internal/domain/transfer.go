/**
 * @description
 * Domain models for peer transfers, including the escrow bridge for value
 * sent to a recipient who has not registered yet. A PendingTransfer always
 * references the sender's held debit transaction, which stays pending until
 * the escrow resolves; the two rows are created in one unit of work and
 * resolved in one unit of work.
 */

package domain

import (
	"time"

	"github.com/google/uuid"
)

// PendingTransferStatus is the lifecycle of an escrowed transfer.
type PendingTransferStatus string

const (
	TransferPending   PendingTransferStatus = "pending"
	TransferClaimed   PendingTransferStatus = "claimed"
	TransferCancelled PendingTransferStatus = "cancelled"
)

// PendingTransfer bridges a sender's held debit to a not-yet-existing
// recipient account, keyed by the recipient's email address.
type PendingTransfer struct {
	ID                  uuid.UUID             `json:"id"`
	SenderID            uuid.UUID             `json:"sender_id"`
	RecipientEmail      string                `json:"recipient_email"`
	Amount              int64                 `json:"amount"`
	Status              PendingTransferStatus `json:"status"`
	SenderTransactionID uuid.UUID             `json:"sender_transaction_id"`
	Description         string                `json:"description"`
	CreatedAt           time.Time             `json:"created_at"`
	ResolvedAt          *time.Time            `json:"resolved_at,omitempty"`
}

// TransferRequest is the DTO for sending coins to another employee by email.
type TransferRequest struct {
	RecipientEmail string `json:"recipient_email"`
	Amount         int64  `json:"amount"`
	Description    string `json:"description"`
}
