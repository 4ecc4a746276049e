/**
 * @description
 * Message payloads published to RabbitMQ after a financial unit of work has
 * committed. Notification dispatch is best-effort and fire-and-forget; a
 * publish failure is logged and never rolls back a posted transaction.
 */

package domain

import (
	"time"

	"github.com/google/uuid"
)

// WagerResolvedPayload is published after a wager settles.
type WagerResolvedPayload struct {
	EmployeeID uuid.UUID `json:"employee_id"`
	GameID     uuid.UUID `json:"game_id"`
	Game       GameKind  `json:"game"`
	Won        bool      `json:"won"`
	Bet        int64     `json:"bet"`
	Payout     int64     `json:"payout"`
	Timestamp  time.Time `json:"timestamp"`
}

// JackpotWonPayload is published after a jackpot drawing pays out.
type JackpotWonPayload struct {
	JackpotID uuid.UUID `json:"jackpot_id"`
	WinnerID  uuid.UUID `json:"winner_id"`
	Amount    int64     `json:"amount"`
	Timestamp time.Time `json:"timestamp"`
}

// TransferClaimedPayload is published when an escrowed transfer is claimed.
type TransferClaimedPayload struct {
	TransferID  uuid.UUID `json:"transfer_id"`
	SenderID    uuid.UUID `json:"sender_id"`
	RecipientID uuid.UUID `json:"recipient_id"`
	Amount      int64     `json:"amount"`
	Timestamp   time.Time `json:"timestamp"`
}

// AwardGrantedPayload is published when a manager award posts.
type AwardGrantedPayload struct {
	ManagerID   uuid.UUID `json:"manager_id"`
	RecipientID uuid.UUID `json:"recipient_id"`
	Amount      int64     `json:"amount"`
	Description string    `json:"description"`
	Timestamp   time.Time `json:"timestamp"`
}

// EmployeeRegisteredEvent is consumed from the identity service when a new
// employee account is created.
type EmployeeRegisteredEvent struct {
	EmployeeID uuid.UUID `json:"employee_id"`
	Email      string    `json:"email"`
	Timestamp  time.Time `json:"timestamp"`
}

// WellnessCompletedEvent is consumed from the wellness service when an
// activity finishes and its coin reward should post.
type WellnessCompletedEvent struct {
	EmployeeID uuid.UUID  `json:"employee_id"`
	ActivityID *uuid.UUID `json:"activity_id,omitempty"`
	Activity   string     `json:"activity"`
	Reward     int64      `json:"reward"`
	Timestamp  time.Time  `json:"timestamp"`
}
