/**
 * @description
 * Wagering persistence: nonce counters, game catalog, immutable game records,
 * per-player statistics, and daily bonus claim uniqueness.
 *
 * @dependencies
 * - github.com/jackc/pgx/v5: The PostgreSQL driver for database operations.
 * - internal/domain: Contains the domain models used for data transfer.
 */

package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/meritmint/ledger-service/internal/domain"
)

// NextWagerNonce increments and returns the player's nonce counter. The
// counter is its own row updated atomically, so the value is strictly
// monotonic per player even when game records are later purged.
func (r *PostgresRepository) NextWagerNonce(ctx context.Context, employeeID uuid.UUID) (int64, error) {
	var nonce int64
	query := `
		INSERT INTO wager_nonces (employee_id, nonce)
		VALUES ($1, 1)
		ON CONFLICT (employee_id) DO UPDATE SET nonce = wager_nonces.nonce + 1
		RETURNING nonce
	`
	if err := r.db.QueryRow(ctx, query, employeeID).Scan(&nonce); err != nil {
		return 0, fmt.Errorf("advance wager nonce: %w", err)
	}
	return nonce, nil
}

const gameConfigColumns = `id, kind, enabled, min_bet, max_bet, house_edge_bps, payload, updated_at`

func scanGameConfig(row pgx.Row) (*domain.GameConfig, error) {
	var cfg domain.GameConfig
	var payload []byte
	err := row.Scan(&cfg.ID, &cfg.Kind, &cfg.Enabled, &cfg.MinBet, &cfg.MaxBet,
		&cfg.HouseEdgeBps, &payload, &cfg.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &cfg.Payload); err != nil {
			return nil, fmt.Errorf("decode game config payload for %s: %w", cfg.Kind, err)
		}
	}
	return &cfg, nil
}

// FindGameConfigByKind fetches the catalog entry for one game.
func (r *PostgresRepository) FindGameConfigByKind(ctx context.Context, kind domain.GameKind) (*domain.GameConfig, error) {
	query := `SELECT ` + gameConfigColumns + ` FROM game_configs WHERE kind = $1`
	cfg, err := scanGameConfig(r.db.QueryRow(ctx, query, kind))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrGameConfigNotFound
		}
		return nil, err
	}
	return cfg, nil
}

// ListGameConfigs returns the full game catalog.
func (r *PostgresRepository) ListGameConfigs(ctx context.Context) ([]domain.GameConfig, error) {
	query := `SELECT ` + gameConfigColumns + ` FROM game_configs ORDER BY kind ASC`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var configs []domain.GameConfig
	for rows.Next() {
		cfg, err := scanGameConfig(rows)
		if err != nil {
			return nil, err
		}
		configs = append(configs, *cfg)
	}
	return configs, rows.Err()
}

// SetGameEnabled toggles a single game on or off.
func (r *PostgresRepository) SetGameEnabled(ctx context.Context, kind domain.GameKind, enabled bool) error {
	query := `UPDATE game_configs SET enabled = $1, updated_at = NOW() WHERE kind = $2`
	result, err := r.db.Exec(ctx, query, enabled, kind)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrGameConfigNotFound
	}
	return nil
}

// DisableAllGames switches off every game in the catalog at once. Used when
// the bank can no longer cover payouts.
func (r *PostgresRepository) DisableAllGames(ctx context.Context) error {
	_, err := r.db.Exec(ctx, `UPDATE game_configs SET enabled = FALSE, updated_at = NOW()`)
	return err
}

// CreateGame inserts the immutable record of one resolved play.
func (r *PostgresRepository) CreateGame(ctx context.Context, game *domain.Game) error {
	query := `
		INSERT INTO games (
			id, employee_id, kind, bet, payout, won, outcome,
			server_seed, server_seed_hash, client_seed, nonce,
			bet_transaction_id, win_transaction_id
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING created_at
	`
	return r.db.QueryRow(ctx, query,
		game.ID, game.EmployeeID, game.Kind, game.Bet, game.Payout, game.Won, game.Outcome,
		game.ServerSeed, game.ServerSeedHash, game.ClientSeed, game.Nonce,
		game.BetTransactionID, game.WinTransactionID,
	).Scan(&game.CreatedAt)
}

// RecordGameStats folds one resolved play into the player's running stats.
// The streak counter resets on a loss and the best streak only ever grows.
func (r *PostgresRepository) RecordGameStats(ctx context.Context, employeeID uuid.UUID, bet, payout int64, won bool) error {
	query := `
		INSERT INTO game_stats (employee_id, games_played, games_won, total_wagered, total_won, current_streak, best_streak)
		VALUES ($1, 1, CASE WHEN $4 THEN 1 ELSE 0 END, $2, $3, CASE WHEN $4 THEN 1 ELSE 0 END, CASE WHEN $4 THEN 1 ELSE 0 END)
		ON CONFLICT (employee_id) DO UPDATE SET
			games_played   = game_stats.games_played + 1,
			games_won      = game_stats.games_won + CASE WHEN $4 THEN 1 ELSE 0 END,
			total_wagered  = game_stats.total_wagered + $2,
			total_won      = game_stats.total_won + $3,
			current_streak = CASE WHEN $4 THEN game_stats.current_streak + 1 ELSE 0 END,
			best_streak    = GREATEST(game_stats.best_streak, CASE WHEN $4 THEN game_stats.current_streak + 1 ELSE 0 END),
			updated_at     = NOW()
	`
	_, err := r.db.Exec(ctx, query, employeeID, bet, payout, won)
	return err
}

// IncrementJackpotWins bumps the player's jackpot win counter.
func (r *PostgresRepository) IncrementJackpotWins(ctx context.Context, employeeID uuid.UUID) error {
	query := `
		INSERT INTO game_stats (employee_id, jackpot_wins)
		VALUES ($1, 1)
		ON CONFLICT (employee_id) DO UPDATE SET
			jackpot_wins = game_stats.jackpot_wins + 1,
			updated_at   = NOW()
	`
	_, err := r.db.Exec(ctx, query, employeeID)
	return err
}

// GetGameStats returns a player's lifetime stats, zero-valued when the
// player has never wagered.
func (r *PostgresRepository) GetGameStats(ctx context.Context, employeeID uuid.UUID) (*domain.GameStats, error) {
	stats := domain.GameStats{EmployeeID: employeeID}
	query := `
		SELECT games_played, games_won, total_wagered, total_won,
		       current_streak, best_streak, jackpot_wins, updated_at
		FROM game_stats WHERE employee_id = $1
	`
	err := r.db.QueryRow(ctx, query, employeeID).Scan(
		&stats.GamesPlayed, &stats.GamesWon, &stats.TotalWagered, &stats.TotalWon,
		&stats.CurrentStreak, &stats.BestStreak, &stats.JackpotWins, &stats.UpdatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			stats.UpdatedAt = time.Time{}
			return &stats, nil
		}
		return nil, err
	}
	return &stats, nil
}

// InsertDailyBonusClaim records one calendar-day claim. The unique index on
// (employee_id, claim_date) makes the second claim of a day fail, which is
// how once-per-day is enforced under concurrency.
func (r *PostgresRepository) InsertDailyBonusClaim(ctx context.Context, employeeID uuid.UUID, day time.Time) error {
	query := `INSERT INTO daily_bonus_claims (id, employee_id, claim_date) VALUES ($1, $2, $3)`
	_, err := r.db.Exec(ctx, query, uuid.New(), employeeID, day.Format("2006-01-02"))
	if err != nil {
		if isUniqueViolation(err) {
			return ErrBonusAlreadyClaimed
		}
		return err
	}
	return nil
}
