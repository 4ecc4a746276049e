/**
 * @description
 * Database schema for the ledger-service. Migrate applies the full DDL in
 * order on startup; every statement is idempotent so repeated boots against
 * the same database are safe. Seed rows cover the singleton bank row, a
 * default jackpot pool, and a playable game catalog so a fresh environment
 * works without manual SQL.
 *
 * @dependencies
 * - github.com/jackc/pgx/v5/pgxpool: Connection pool the DDL runs on.
 *
 * @notes
 * - The employees table is owned by the employee-service; the definition
 *   here exists so standalone deployments and local development have the
 *   lookup target the escrow and award flows join against.
 */

package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS employees (
		id UUID PRIMARY KEY,
		email TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_employees_email ON employees (lower(btrim(email)))`,

	`CREATE TABLE IF NOT EXISTS accounts (
		id UUID PRIMARY KEY,
		employee_id UUID NOT NULL UNIQUE,
		balance BIGINT NOT NULL DEFAULT 0,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,

	`CREATE TABLE IF NOT EXISTS ledger_transactions (
		id UUID PRIMARY KEY,
		account_id UUID NOT NULL REFERENCES accounts (id),
		kind TEXT NOT NULL,
		amount BIGINT NOT NULL CHECK (amount > 0),
		status TEXT NOT NULL DEFAULT 'pending',
		description TEXT NOT NULL DEFAULT '',
		source_employee_id UUID,
		target_employee_id UUID,
		link_id UUID,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		posted_at TIMESTAMPTZ
	)`,
	`CREATE INDEX IF NOT EXISTS idx_ledger_transactions_account
		ON ledger_transactions (account_id, created_at DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_ledger_transactions_award_source
		ON ledger_transactions (source_employee_id, created_at)
		WHERE kind = 'award' AND status = 'posted'`,

	`CREATE TABLE IF NOT EXISTS bank (
		id INT PRIMARY KEY CHECK (id = 1),
		balance BIGINT NOT NULL DEFAULT 0,
		games_disabled BOOLEAN NOT NULL DEFAULT FALSE,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,

	`CREATE TABLE IF NOT EXISTS jackpots (
		id UUID PRIMARY KEY,
		type TEXT NOT NULL,
		balance BIGINT NOT NULL DEFAULT 0,
		is_active BOOLEAN NOT NULL DEFAULT FALSE,
		contribution_bps BIGINT NOT NULL DEFAULT 0,
		last_won_at TIMESTAMPTZ,
		last_won_by UUID,
		last_won_amount BIGINT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,

	`CREATE TABLE IF NOT EXISTS jackpot_contributions (
		id UUID PRIMARY KEY,
		jackpot_id UUID NOT NULL REFERENCES jackpots (id) ON DELETE CASCADE,
		employee_id UUID NOT NULL,
		amount BIGINT NOT NULL CHECK (amount > 0),
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_jackpot_contributions_pool
		ON jackpot_contributions (jackpot_id, employee_id)`,

	`CREATE TABLE IF NOT EXISTS game_configs (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		kind TEXT NOT NULL UNIQUE,
		enabled BOOLEAN NOT NULL DEFAULT TRUE,
		min_bet BIGINT NOT NULL DEFAULT 0,
		max_bet BIGINT NOT NULL DEFAULT 0,
		house_edge_bps BIGINT NOT NULL DEFAULT 0,
		payload JSONB NOT NULL DEFAULT '{}',
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,

	`CREATE TABLE IF NOT EXISTS games (
		id UUID PRIMARY KEY,
		employee_id UUID NOT NULL,
		kind TEXT NOT NULL,
		bet BIGINT NOT NULL,
		payout BIGINT NOT NULL,
		won BOOLEAN NOT NULL,
		outcome JSONB NOT NULL,
		server_seed TEXT NOT NULL,
		server_seed_hash TEXT NOT NULL,
		client_seed TEXT NOT NULL,
		nonce BIGINT NOT NULL,
		bet_transaction_id UUID,
		win_transaction_id UUID,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_games_employee ON games (employee_id, created_at DESC)`,

	`CREATE TABLE IF NOT EXISTS game_stats (
		employee_id UUID PRIMARY KEY,
		games_played BIGINT NOT NULL DEFAULT 0,
		games_won BIGINT NOT NULL DEFAULT 0,
		total_wagered BIGINT NOT NULL DEFAULT 0,
		total_won BIGINT NOT NULL DEFAULT 0,
		current_streak BIGINT NOT NULL DEFAULT 0,
		best_streak BIGINT NOT NULL DEFAULT 0,
		jackpot_wins BIGINT NOT NULL DEFAULT 0,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,

	`CREATE TABLE IF NOT EXISTS wager_nonces (
		employee_id UUID PRIMARY KEY,
		nonce BIGINT NOT NULL DEFAULT 0
	)`,

	`CREATE TABLE IF NOT EXISTS daily_bonus_claims (
		id UUID PRIMARY KEY,
		employee_id UUID NOT NULL,
		claim_date DATE NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		UNIQUE (employee_id, claim_date)
	)`,

	`CREATE TABLE IF NOT EXISTS allotment_budgets (
		id UUID PRIMARY KEY,
		employee_id UUID NOT NULL,
		period_type TEXT NOT NULL,
		period_start TIMESTAMPTZ NOT NULL,
		period_end TIMESTAMPTZ NOT NULL,
		amount BIGINT NOT NULL DEFAULT 0,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		UNIQUE (employee_id, period_type, period_start)
	)`,

	`CREATE TABLE IF NOT EXISTS pending_transfers (
		id UUID PRIMARY KEY,
		sender_id UUID NOT NULL,
		recipient_email TEXT NOT NULL,
		amount BIGINT NOT NULL CHECK (amount > 0),
		status TEXT NOT NULL DEFAULT 'pending',
		sender_transaction_id UUID,
		description TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		resolved_at TIMESTAMPTZ
	)`,
	`CREATE INDEX IF NOT EXISTS idx_pending_transfers_recipient
		ON pending_transfers (lower(btrim(recipient_email)))
		WHERE status = 'pending'`,
}

var seedStatements = []string{
	`INSERT INTO bank (id, balance) VALUES (1, 0) ON CONFLICT (id) DO NOTHING`,

	`INSERT INTO jackpots (id, type, is_active, contribution_bps)
	 SELECT gen_random_uuid(), 'weekly', TRUE, 100
	 WHERE NOT EXISTS (SELECT 1 FROM jackpots)`,

	`INSERT INTO game_configs (kind, enabled, min_bet, max_bet, house_edge_bps, payload)
	 VALUES ('coinflip', TRUE, 100, 100000, 500, '{}')
	 ON CONFLICT (kind) DO NOTHING`,

	`INSERT INTO game_configs (kind, enabled, min_bet, max_bet, house_edge_bps, payload)
	 VALUES ('number_pick', TRUE, 100, 50000, 500, '{"range_max": 10}')
	 ON CONFLICT (kind) DO NOTHING`,

	`INSERT INTO game_configs (kind, enabled, min_bet, max_bet, house_edge_bps, payload)
	 VALUES ('wheel', TRUE, 100, 50000, 500, '{"segments": [
		{"label": "miss", "weight": 40, "multiplier_bps": 0},
		{"label": "1.5x", "weight": 30, "multiplier_bps": 15000},
		{"label": "2x", "weight": 20, "multiplier_bps": 20000},
		{"label": "5x", "weight": 9, "multiplier_bps": 50000},
		{"label": "10x", "weight": 1, "multiplier_bps": 100000}
	 ]}')
	 ON CONFLICT (kind) DO NOTHING`,

	`INSERT INTO game_configs (kind, enabled, min_bet, max_bet, house_edge_bps, payload)
	 VALUES ('highlow', TRUE, 100, 100000, 500, '{}')
	 ON CONFLICT (kind) DO NOTHING`,

	`INSERT INTO game_configs (kind, enabled, min_bet, max_bet, house_edge_bps, payload)
	 VALUES ('slots', TRUE, 100, 20000, 500, '{"symbols": [
		{"symbol": "cherry", "weight": 5, "multiplier_bps": 30000},
		{"symbol": "lemon", "weight": 4, "multiplier_bps": 50000},
		{"symbol": "bell", "weight": 3, "multiplier_bps": 100000},
		{"symbol": "diamond", "weight": 2, "multiplier_bps": 250000},
		{"symbol": "seven", "weight": 1, "multiplier_bps": 500000}
	 ]}')
	 ON CONFLICT (kind) DO NOTHING`,

	`INSERT INTO game_configs (kind, enabled, min_bet, max_bet, house_edge_bps, payload)
	 VALUES ('daily_bonus', TRUE, 0, 0, 0, '{"bonus_prizes": [
		{"label": "5 coins", "weight": 50, "amount": 500},
		{"label": "10 coins", "weight": 30, "amount": 1000},
		{"label": "25 coins", "weight": 15, "amount": 2500},
		{"label": "100 coins", "weight": 5, "amount": 10000}
	 ]}')
	 ON CONFLICT (kind) DO NOTHING`,
}

// Migrate applies the schema and seed data. Statements run one at a time so
// a failure reports exactly which statement broke.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	for i, stmt := range schemaStatements {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("schema statement %d failed: %w", i, err)
		}
	}
	for i, stmt := range seedStatements {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("seed statement %d failed: %w", i, err)
		}
	}
	return nil
}
