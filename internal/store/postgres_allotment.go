/**
 * @description
 * Allotment budget persistence: per-manager period budgets and the posted
 * award sums they are checked against.
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
	"github.com/meritmint/ledger-service/internal/domain"
)

// FetchOrCreateAllotment returns the manager's budget row for the given
// period, creating it at the default amount on first use. The unique index
// on (employee_id, period_type, period_start) makes concurrent first touches
// converge on one row.
func (r *PostgresRepository) FetchOrCreateAllotment(ctx context.Context, employeeID uuid.UUID, periodType domain.PeriodType, start, end time.Time, defaultAmount int64) (*domain.AllotmentBudget, error) {
	insert := `
		INSERT INTO allotment_budgets (id, employee_id, period_type, period_start, period_end, amount)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (employee_id, period_type, period_start) DO NOTHING
	`
	if _, err := r.db.Exec(ctx, insert, uuid.New(), employeeID, periodType, start, end, defaultAmount); err != nil {
		return nil, fmt.Errorf("create allotment budget: %w", err)
	}

	var budget domain.AllotmentBudget
	query := `
		SELECT id, employee_id, period_type, period_start, period_end, amount, created_at
		FROM allotment_budgets
		WHERE employee_id = $1 AND period_type = $2 AND period_start = $3
	`
	err := r.db.QueryRow(ctx, query, employeeID, periodType, start).Scan(
		&budget.ID, &budget.EmployeeID, &budget.PeriodType,
		&budget.PeriodStart, &budget.PeriodEnd, &budget.Amount, &budget.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &budget, nil
}

// SumPostedAwardsBySource totals the awards a manager has granted within the
// window. Only posted rows count against the budget; rejected awards give
// the budget back.
func (r *PostgresRepository) SumPostedAwardsBySource(ctx context.Context, employeeID uuid.UUID, start, end time.Time) (int64, error) {
	var total int64
	query := `
		SELECT COALESCE(SUM(amount), 0)
		FROM ledger_transactions
		WHERE source_employee_id = $1
		  AND kind = $2
		  AND status = $3
		  AND created_at >= $4 AND created_at < $5
	`
	err := r.db.QueryRow(ctx, query, employeeID, domain.KindAward, domain.StatusPosted, start, end).Scan(&total)
	if err != nil {
		return 0, err
	}
	return total, nil
}

// ListAwardsBySource pages through the awards a manager has granted, newest
// first.
func (r *PostgresRepository) ListAwardsBySource(ctx context.Context, employeeID uuid.UUID, limit, offset int) ([]domain.LedgerTransaction, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}

	query := `
		SELECT ` + ledgerTransactionColumns + `
		FROM ledger_transactions
		WHERE source_employee_id = $1 AND kind = $2
		ORDER BY created_at DESC
		LIMIT $3 OFFSET $4
	`
	rows, err := r.db.Query(ctx, query, employeeID, domain.KindAward, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	awards := make([]domain.LedgerTransaction, 0, limit)
	for rows.Next() {
		tx, err := scanLedgerTransaction(rows)
		if err != nil {
			return nil, err
		}
		awards = append(awards, *tx)
	}
	return awards, rows.Err()
}
