/**
 * @description
 * Domain models for the shared liquidity pool (the bank) and jackpots. The
 * bank is a single contended row that nets the variance of every wager; each
 * jackpot accumulates a slice of losing bets and is paid out by a weighted
 * drawing over its contributors.
 */

package domain

import (
	"time"

	"github.com/google/uuid"
)

// Bank is the singleton liquidity pool row. GamesDisabled is a one-way safety
// brake: it is set inside the unit of work that depletes the bank and only an
// explicit operator action clears it, never a deposit.
type Bank struct {
	Balance       int64     `json:"balance"`
	GamesDisabled bool      `json:"games_disabled"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Jackpot is one named prize pool funded by a fraction of losing bets.
type Jackpot struct {
	ID              uuid.UUID  `json:"id"`
	Type            string     `json:"type"`
	Balance         int64      `json:"balance"`
	IsActive        bool       `json:"is_active"`
	ContributionBps int64      `json:"contribution_bps"` // share of each losing bet routed here
	LastWonAt       *time.Time `json:"last_won_at,omitempty"`
	LastWonBy       *uuid.UUID `json:"last_won_by,omitempty"`
	LastWonAmount   *int64     `json:"last_won_amount,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
}

// JackpotContribution is the append-only record of one employee's funding of
// a jackpot; cumulative totals double as drawing weights.
type JackpotContribution struct {
	ID         uuid.UUID `json:"id"`
	JackpotID  uuid.UUID `json:"jackpot_id"`
	EmployeeID uuid.UUID `json:"employee_id"`
	Amount     int64     `json:"amount"`
	CreatedAt  time.Time `json:"created_at"`
}

// ContributorTotal is one contributor's cumulative stake in a jackpot.
type ContributorTotal struct {
	EmployeeID uuid.UUID `json:"employee_id"`
	Total      int64     `json:"total"`
}

// DrawingResult describes the outcome of one jackpot drawing.
type DrawingResult struct {
	JackpotID uuid.UUID `json:"jackpot_id"`
	WinnerID  uuid.UUID `json:"winner_id"`
	Amount    int64     `json:"amount"`
	DrawnAt   time.Time `json:"drawn_at"`
}
