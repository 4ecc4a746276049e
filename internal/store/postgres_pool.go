/**
 * @description
 * Liquidity pool persistence: the singleton bank row and the jackpot pools
 * with their contribution records.
 *
 * @dependencies
 * - github.com/jackc/pgx/v5: The PostgreSQL driver for database operations.
 * - internal/domain: Contains the domain models used for data transfer.
 */

package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/meritmint/ledger-service/internal/domain"
)

const bankQuery = `SELECT balance, games_disabled, updated_at FROM bank WHERE id = 1`

// GetBankForUpdate fetches the singleton bank row locked for the ambient
// transaction, creating it at zero on first touch. Every wager settlement
// goes through this lock, which serializes bank mutations.
func (r *PostgresRepository) GetBankForUpdate(ctx context.Context) (*domain.Bank, error) {
	insert := `INSERT INTO bank (id, balance) VALUES (1, 0) ON CONFLICT (id) DO NOTHING`
	if _, err := r.db.Exec(ctx, insert); err != nil {
		return nil, fmt.Errorf("ensure bank row: %w", err)
	}

	var bank domain.Bank
	err := r.db.QueryRow(ctx, bankQuery+` FOR UPDATE`).Scan(
		&bank.Balance, &bank.GamesDisabled, &bank.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("lock bank row: %w", err)
	}
	return &bank, nil
}

// GetBank reads the bank without locking, for status views.
func (r *PostgresRepository) GetBank(ctx context.Context) (*domain.Bank, error) {
	var bank domain.Bank
	err := r.db.QueryRow(ctx, bankQuery).Scan(&bank.Balance, &bank.GamesDisabled, &bank.UpdatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return &domain.Bank{}, nil
		}
		return nil, err
	}
	return &bank, nil
}

// AddToBankBalance applies a signed delta to the bank and returns the new
// balance. Callers must hold the row lock.
func (r *PostgresRepository) AddToBankBalance(ctx context.Context, delta int64) (int64, error) {
	var balance int64
	query := `UPDATE bank SET balance = balance + $1, updated_at = NOW() WHERE id = 1 RETURNING balance`
	if err := r.db.QueryRow(ctx, query, delta).Scan(&balance); err != nil {
		return 0, fmt.Errorf("adjust bank balance: %w", err)
	}
	return balance, nil
}

// SetGamesDisabled flips the bank-level kill switch for all wagering.
func (r *PostgresRepository) SetGamesDisabled(ctx context.Context, disabled bool) error {
	query := `UPDATE bank SET games_disabled = $1, updated_at = NOW() WHERE id = 1`
	_, err := r.db.Exec(ctx, query, disabled)
	return err
}

const jackpotColumns = `
	id, type, balance, is_active, contribution_bps,
	last_won_at, last_won_by, last_won_amount, created_at`

func scanJackpot(row pgx.Row) (*domain.Jackpot, error) {
	var j domain.Jackpot
	err := row.Scan(&j.ID, &j.Type, &j.Balance, &j.IsActive, &j.ContributionBps,
		&j.LastWonAt, &j.LastWonBy, &j.LastWonAmount, &j.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &j, nil
}

// FindActiveJackpot returns the currently active jackpot pool, if any.
func (r *PostgresRepository) FindActiveJackpot(ctx context.Context) (*domain.Jackpot, error) {
	query := `SELECT ` + jackpotColumns + ` FROM jackpots WHERE is_active = TRUE ORDER BY created_at ASC LIMIT 1`
	j, err := scanJackpot(r.db.QueryRow(ctx, query))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrJackpotNotFound
		}
		return nil, err
	}
	return j, nil
}

// GetJackpotForUpdate locks one jackpot row for the ambient transaction.
func (r *PostgresRepository) GetJackpotForUpdate(ctx context.Context, jackpotID uuid.UUID) (*domain.Jackpot, error) {
	query := `SELECT ` + jackpotColumns + ` FROM jackpots WHERE id = $1 FOR UPDATE`
	j, err := scanJackpot(r.db.QueryRow(ctx, query, jackpotID))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrJackpotNotFound
		}
		return nil, err
	}
	return j, nil
}

// ListJackpots returns every jackpot pool, active or not.
func (r *PostgresRepository) ListJackpots(ctx context.Context) ([]domain.Jackpot, error) {
	query := `SELECT ` + jackpotColumns + ` FROM jackpots ORDER BY created_at ASC`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jackpots []domain.Jackpot
	for rows.Next() {
		j, err := scanJackpot(rows)
		if err != nil {
			return nil, err
		}
		jackpots = append(jackpots, *j)
	}
	return jackpots, rows.Err()
}

// AddJackpotContribution grows the pool and records who fed it. The
// contribution rows are what weight the eventual drawing.
func (r *PostgresRepository) AddJackpotContribution(ctx context.Context, jackpotID, employeeID uuid.UUID, amount int64) error {
	query := `UPDATE jackpots SET balance = balance + $1 WHERE id = $2`
	result, err := r.db.Exec(ctx, query, amount, jackpotID)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrJackpotNotFound
	}

	insert := `INSERT INTO jackpot_contributions (id, jackpot_id, employee_id, amount) VALUES ($1, $2, $3, $4)`
	_, err = r.db.Exec(ctx, insert, uuid.New(), jackpotID, employeeID, amount)
	return err
}

// SetJackpotActive toggles a jackpot pool.
func (r *PostgresRepository) SetJackpotActive(ctx context.Context, jackpotID uuid.UUID, active bool) error {
	query := `UPDATE jackpots SET is_active = $1 WHERE id = $2`
	result, err := r.db.Exec(ctx, query, active, jackpotID)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrJackpotNotFound
	}
	return nil
}

// AdjustJackpotBalance applies a signed admin delta and returns the new
// balance.
func (r *PostgresRepository) AdjustJackpotBalance(ctx context.Context, jackpotID uuid.UUID, delta int64) (int64, error) {
	var balance int64
	query := `UPDATE jackpots SET balance = balance + $1 WHERE id = $2 RETURNING balance`
	err := r.db.QueryRow(ctx, query, delta, jackpotID).Scan(&balance)
	if err != nil {
		if err == pgx.ErrNoRows {
			return 0, ErrJackpotNotFound
		}
		return 0, err
	}
	return balance, nil
}

// ListJackpotContributorTotals sums each contributor's total since the last
// reset, in a stable order so weighted drawings are reproducible from the
// same roll.
func (r *PostgresRepository) ListJackpotContributorTotals(ctx context.Context, jackpotID uuid.UUID) ([]domain.ContributorTotal, error) {
	query := `
		SELECT employee_id, SUM(amount) AS total
		FROM jackpot_contributions
		WHERE jackpot_id = $1
		GROUP BY employee_id
		ORDER BY employee_id ASC
	`
	rows, err := r.db.Query(ctx, query, jackpotID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var totals []domain.ContributorTotal
	for rows.Next() {
		var t domain.ContributorTotal
		if err := rows.Scan(&t.EmployeeID, &t.Total); err != nil {
			return nil, err
		}
		totals = append(totals, t)
	}
	return totals, rows.Err()
}

// ResetJackpotAfterWin zeroes the pool, stamps the win, and clears the
// contribution records so the next cycle starts fresh.
func (r *PostgresRepository) ResetJackpotAfterWin(ctx context.Context, jackpotID, winnerID uuid.UUID, amount int64, wonAt time.Time) error {
	query := `
		UPDATE jackpots
		SET balance = 0, last_won_at = $1, last_won_by = $2, last_won_amount = $3
		WHERE id = $4
	`
	result, err := r.db.Exec(ctx, query, wonAt, winnerID, amount, jackpotID)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrJackpotNotFound
	}

	_, err = r.db.Exec(ctx, `DELETE FROM jackpot_contributions WHERE jackpot_id = $1`, jackpotID)
	return err
}
