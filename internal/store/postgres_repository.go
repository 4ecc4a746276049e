/**
 * @description
 * PostgreSQL implementation of the `Repository` interface: the unit-of-work
 * helper plus accounts and ledger transaction access. Wagering, pool,
 * allotment, and transfer queries live in sibling files of this package.
 *
 * @dependencies
 * - github.com/jackc/pgx/v5: The PostgreSQL driver for database operations.
 * - internal/domain: Contains the domain models used for data transfer.
 */

package store

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/meritmint/ledger-service/internal/domain"
)

// serializationRetries bounds how many times a serializable unit of work is
// re-run after a 40001 conflict abort before the error surfaces.
const serializationRetries = 3

// querier is the subset of pgx satisfied by both *pgxpool.Pool and pgx.Tx,
// so every query method runs transparently on the ambient transaction when
// one is open.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresRepository is a concrete implementation of the Repository
// interface for PostgreSQL.
type PostgresRepository struct {
	db   querier
	pool *pgxpool.Pool // nil when this view is bound to a transaction
}

// NewPostgresRepository creates a new instance of PostgresRepository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: pool, pool: pool}
}

func isSerializationFailure(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "40001"
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// WithinTx runs fn inside one serializable transaction. A view already bound
// to a transaction joins it, so composite flows nest without opening a
// second transaction. Serialization conflicts are retried with the whole
// callback re-run from scratch, which is safe because no partial state ever
// escapes a rolled-back attempt.
func (r *PostgresRepository) WithinTx(ctx context.Context, fn func(Repository) error) error {
	if r.pool == nil {
		return fn(r)
	}

	var lastErr error
	for attempt := 0; attempt <= serializationRetries; attempt++ {
		tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
		if err != nil {
			return fmt.Errorf("begin unit of work: %w", err)
		}

		txRepo := &PostgresRepository{db: tx}
		err = fn(txRepo)
		if err == nil {
			err = tx.Commit(ctx)
			if err == nil {
				return nil
			}
		}
		_ = tx.Rollback(ctx)

		if !isSerializationFailure(err) {
			return err
		}
		lastErr = err
		log.Printf("level=warn component=store msg=\"serialization conflict; retrying unit of work\" attempt=%d err=%v", attempt+1, err)
	}
	return fmt.Errorf("unit of work failed after %d serialization retries: %w", serializationRetries, lastErr)
}

// FindEmployeeByEmail resolves an employee from the directory by email. The
// employees table is owned by the identity subsystem; this service only
// reads it.
func (r *PostgresRepository) FindEmployeeByEmail(ctx context.Context, email string) (*domain.Employee, error) {
	var employee domain.Employee
	query := `SELECT id, lower(btrim(email)) FROM employees WHERE lower(btrim(email)) = lower(btrim($1))`
	err := r.db.QueryRow(ctx, query, email).Scan(&employee.ID, &employee.Email)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrEmployeeNotFound
		}
		return nil, err
	}
	return &employee, nil
}

// FetchOrCreateAccount returns the employee's wallet, creating it at zero on
// first touch.
func (r *PostgresRepository) FetchOrCreateAccount(ctx context.Context, employeeID uuid.UUID) (*domain.Account, error) {
	insert := `
		INSERT INTO accounts (id, employee_id, balance)
		VALUES ($1, $2, 0)
		ON CONFLICT (employee_id) DO NOTHING
	`
	if _, err := r.db.Exec(ctx, insert, uuid.New(), employeeID); err != nil {
		return nil, fmt.Errorf("create account: %w", err)
	}
	return r.FindAccountByEmployeeID(ctx, employeeID)
}

// FindAccountByEmployeeID retrieves an employee's wallet.
func (r *PostgresRepository) FindAccountByEmployeeID(ctx context.Context, employeeID uuid.UUID) (*domain.Account, error) {
	var account domain.Account
	query := `SELECT id, employee_id, balance, created_at, updated_at FROM accounts WHERE employee_id = $1`
	err := r.db.QueryRow(ctx, query, employeeID).Scan(
		&account.ID, &account.EmployeeID, &account.Balance, &account.CreatedAt, &account.UpdatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}
	return &account, nil
}

// GetAccountForUpdate locks the account row for the remainder of the ambient
// transaction, preventing concurrent balance read-then-write races.
func (r *PostgresRepository) GetAccountForUpdate(ctx context.Context, accountID uuid.UUID) (*domain.Account, error) {
	var account domain.Account
	query := `SELECT id, employee_id, balance, created_at, updated_at FROM accounts WHERE id = $1 FOR UPDATE`
	err := r.db.QueryRow(ctx, query, accountID).Scan(
		&account.ID, &account.EmployeeID, &account.Balance, &account.CreatedAt, &account.UpdatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}
	return &account, nil
}

// ApplyBalanceDelta mutates the cached balance and returns the new value.
// Callers must hold the row lock and have validated the delta in the same
// unit of work.
func (r *PostgresRepository) ApplyBalanceDelta(ctx context.Context, accountID uuid.UUID, delta int64) (int64, error) {
	var balance int64
	query := `UPDATE accounts SET balance = balance + $1, updated_at = NOW() WHERE id = $2 RETURNING balance`
	err := r.db.QueryRow(ctx, query, delta, accountID).Scan(&balance)
	if err != nil {
		if err == pgx.ErrNoRows {
			return 0, ErrAccountNotFound
		}
		return 0, err
	}
	return balance, nil
}

const ledgerTransactionColumns = `
	id, account_id, kind, amount, status, description,
	source_employee_id, target_employee_id, link_id, created_at, posted_at`

func scanLedgerTransaction(row pgx.Row) (*domain.LedgerTransaction, error) {
	var tx domain.LedgerTransaction
	err := row.Scan(
		&tx.ID, &tx.AccountID, &tx.Kind, &tx.Amount, &tx.Status, &tx.Description,
		&tx.SourceEmployeeID, &tx.TargetEmployeeID, &tx.LinkID, &tx.CreatedAt, &tx.PostedAt,
	)
	if err != nil {
		return nil, err
	}
	return &tx, nil
}

// CreateLedgerTransaction inserts a new pending transaction record.
func (r *PostgresRepository) CreateLedgerTransaction(ctx context.Context, tx *domain.LedgerTransaction) error {
	query := `
		INSERT INTO ledger_transactions (
			id, account_id, kind, amount, status, description,
			source_employee_id, target_employee_id, link_id
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at
	`
	return r.db.QueryRow(ctx, query,
		tx.ID, tx.AccountID, tx.Kind, tx.Amount, tx.Status, tx.Description,
		tx.SourceEmployeeID, tx.TargetEmployeeID, tx.LinkID,
	).Scan(&tx.CreatedAt)
}

// FindLedgerTransactionByID retrieves one ledger transaction.
func (r *PostgresRepository) FindLedgerTransactionByID(ctx context.Context, id uuid.UUID) (*domain.LedgerTransaction, error) {
	query := `SELECT ` + ledgerTransactionColumns + ` FROM ledger_transactions WHERE id = $1`
	tx, err := scanLedgerTransaction(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrTransactionNotFound
		}
		return nil, err
	}
	return tx, nil
}

// GetLedgerTransactionForUpdate locks one transaction row so its lifecycle
// transition cannot race another post/reject of the same row.
func (r *PostgresRepository) GetLedgerTransactionForUpdate(ctx context.Context, id uuid.UUID) (*domain.LedgerTransaction, error) {
	query := `SELECT ` + ledgerTransactionColumns + ` FROM ledger_transactions WHERE id = $1 FOR UPDATE`
	tx, err := scanLedgerTransaction(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrTransactionNotFound
		}
		return nil, err
	}
	return tx, nil
}

// MarkTransactionPosted transitions pending -> posted. The WHERE clause
// guards the state machine at the database as well: a terminal row is never
// updated.
func (r *PostgresRepository) MarkTransactionPosted(ctx context.Context, id uuid.UUID, postedAt time.Time) error {
	query := `UPDATE ledger_transactions SET status = $1, posted_at = $2 WHERE id = $3 AND status = $4`
	result, err := r.db.Exec(ctx, query, domain.StatusPosted, postedAt, id, domain.StatusPending)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrTransactionNotPending
	}
	return nil
}

// MarkTransactionRejected transitions pending -> rejected.
func (r *PostgresRepository) MarkTransactionRejected(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE ledger_transactions SET status = $1 WHERE id = $2 AND status = $3`
	result, err := r.db.Exec(ctx, query, domain.StatusRejected, id, domain.StatusPending)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return ErrTransactionNotPending
	}
	return nil
}

// ListPendingTransactions returns an account's pending transactions, oldest
// first. The pending balance view is re-summed from these rows on every
// read instead of being cached.
func (r *PostgresRepository) ListPendingTransactions(ctx context.Context, accountID uuid.UUID) ([]domain.LedgerTransaction, error) {
	query := `
		SELECT ` + ledgerTransactionColumns + `
		FROM ledger_transactions
		WHERE account_id = $1 AND status = $2
		ORDER BY created_at ASC
	`
	rows, err := r.db.Query(ctx, query, accountID, domain.StatusPending)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var transactions []domain.LedgerTransaction
	for rows.Next() {
		tx, err := scanLedgerTransaction(rows)
		if err != nil {
			return nil, err
		}
		transactions = append(transactions, *tx)
	}
	return transactions, rows.Err()
}

// ListTransactions returns a filtered, paginated page of an account's
// transaction history, newest first.
func (r *PostgresRepository) ListTransactions(ctx context.Context, accountID uuid.UUID, filter domain.TransactionFilter) ([]domain.LedgerTransaction, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := `SELECT ` + ledgerTransactionColumns + ` FROM ledger_transactions WHERE account_id = $1`
	args := []any{accountID}
	argPos := 2
	if filter.Kind != nil {
		query += fmt.Sprintf(" AND kind = $%d", argPos)
		args = append(args, *filter.Kind)
		argPos++
	}
	if filter.Status != nil {
		query += fmt.Sprintf(" AND status = $%d", argPos)
		args = append(args, *filter.Status)
		argPos++
	}
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", argPos, argPos+1)
	args = append(args, limit, offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	transactions := make([]domain.LedgerTransaction, 0, limit)
	for rows.Next() {
		tx, err := scanLedgerTransaction(rows)
		if err != nil {
			return nil, err
		}
		transactions = append(transactions, *tx)
	}
	return transactions, rows.Err()
}
