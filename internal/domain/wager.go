/**
 * @description
 * Domain models for the wagering engine: game configurations, immutable game
 * records, per-employee statistics, and the request/response DTOs for plays.
 *
 * @notes
 * - Payout multipliers are expressed in basis points (10000 = 1.0x) so that
 *   applying a multiplier to a bet never leaves int64 arithmetic.
 * - A Game row is written exactly once, after the wager has fully resolved,
 *   and is never mutated afterwards. It carries the RNG seeds and nonce so a
 *   player can independently re-derive the outcome.
 */

package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// GameKind identifies one of the supported wager games.
type GameKind string

const (
	GameCoinflip   GameKind = "coinflip"
	GameNumberPick GameKind = "number_pick"
	GameWheel      GameKind = "wheel"
	GameHighLow    GameKind = "highlow"
	GameSlots      GameKind = "slots"
	GameDailyBonus GameKind = "daily_bonus"
)

// WheelSegment is one weighted slice of a prize wheel. Weight is relative to
// the sum of all segment weights; MultiplierBps may be zero (a losing slice).
type WheelSegment struct {
	Label         string `json:"label"`
	Weight        int64  `json:"weight"`
	MultiplierBps int64  `json:"multiplier_bps"`
}

// SlotSymbol is one weighted symbol on the slots reel. The blank symbol has
// MultiplierBps zero and never forms a winning line.
type SlotSymbol struct {
	Symbol        string `json:"symbol"`
	Weight        int64  `json:"weight"`
	MultiplierBps int64  `json:"multiplier_bps"`
}

// BonusPrize is one weighted entry of the daily bonus prize table. Amount is
// a fixed credit in coin units, not a multiplier.
type BonusPrize struct {
	Label  string `json:"label"`
	Weight int64  `json:"weight"`
	Amount int64  `json:"amount"`
}

// GameConfigPayload holds per-game tuning that does not warrant its own
// columns. Only the slice relevant to the game kind is populated.
type GameConfigPayload struct {
	RangeMax     int64          `json:"range_max,omitempty"` // number_pick: picks are 1..RangeMax
	Segments     []WheelSegment `json:"segments,omitempty"`
	Symbols      []SlotSymbol   `json:"symbols,omitempty"`
	BonusPrizes  []BonusPrize   `json:"bonus_prizes,omitempty"`
}

// GameConfig is the operator-owned configuration for one game kind.
type GameConfig struct {
	ID           uuid.UUID         `json:"id"`
	Kind         GameKind          `json:"kind"`
	Enabled      bool              `json:"enabled"`
	MinBet       int64             `json:"min_bet"`
	MaxBet       int64             `json:"max_bet"`
	HouseEdgeBps int64             `json:"house_edge_bps"`
	Payload      GameConfigPayload `json:"payload"`
	UpdatedAt    time.Time         `json:"updated_at"`
}

// Game is the immutable record of one resolved wager.
type Game struct {
	ID               uuid.UUID       `json:"id"`
	EmployeeID       uuid.UUID       `json:"employee_id"`
	Kind             GameKind        `json:"kind"`
	Bet              int64           `json:"bet"`
	Payout           int64           `json:"payout"`
	Won              bool            `json:"won"`
	Outcome          json.RawMessage `json:"outcome"`
	ServerSeed       string          `json:"server_seed"`
	ServerSeedHash   string          `json:"server_seed_hash"`
	ClientSeed       string          `json:"client_seed"`
	Nonce            int64           `json:"nonce"`
	BetTransactionID *uuid.UUID      `json:"bet_transaction_id,omitempty"`
	WinTransactionID *uuid.UUID      `json:"win_transaction_id,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
}

// GameStats is the rolling per-employee aggregate, updated in the same unit
// of work as each wager.
type GameStats struct {
	EmployeeID    uuid.UUID `json:"employee_id"`
	GamesPlayed   int64     `json:"games_played"`
	GamesWon      int64     `json:"games_won"`
	TotalWagered  int64     `json:"total_wagered"`
	TotalWon      int64     `json:"total_won"`
	CurrentStreak int64     `json:"current_streak"`
	BestStreak    int64     `json:"best_streak"`
	JackpotWins   int64     `json:"jackpot_wins"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// PlayRequest is the DTO for incoming play API requests.
type PlayRequest struct {
	Game       GameKind `json:"game"`
	Bet        int64    `json:"bet"` // in coin units
	Prediction string   `json:"prediction,omitempty"`
	ClientSeed string   `json:"client_seed,omitempty"`
}

// PlayResult is returned to the caller after a wager resolves. ServerSeed is
// disclosed so the outcome is verifiable against the pre-committed hash.
type PlayResult struct {
	GameID         uuid.UUID       `json:"game_id"`
	Game           GameKind        `json:"game"`
	Won            bool            `json:"won"`
	Bet            int64           `json:"bet"`
	Payout         int64           `json:"payout"`
	Outcome        json.RawMessage `json:"outcome"`
	ServerSeed     string          `json:"server_seed"`
	ServerSeedHash string          `json:"server_seed_hash"`
	ClientSeed     string          `json:"client_seed"`
	Nonce          int64           `json:"nonce"`
	NewBalance     int64           `json:"new_balance"`
}

// VerifyRequest is the DTO for the public outcome-verification endpoint.
type VerifyRequest struct {
	ServerSeed     string `json:"server_seed"`
	ClientSeed     string `json:"client_seed"`
	Nonce          int64  `json:"nonce"`
	ClaimedOutcome uint32 `json:"claimed_outcome"`
	Modulus        uint32 `json:"modulus"`
}
