/**
 * @description
 * Liquidity pool operations: the bank that backs every payout and the
 * jackpot pools fed by losing bets. The periodic drawing picks a winner
 * weighted by contribution since the last reset.
 *
 * @dependencies
 * - crypto/rand, math/big: Unbiased roll for the drawing.
 * - internal/domain, internal/store: Domain models and data access.
 */

package app

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log"
	"math/big"
	"time"

	"github.com/google/uuid"
	"github.com/meritmint/ledger-service/internal/domain"
	"github.com/meritmint/ledger-service/internal/store"
	"github.com/meritmint/ledger-service/pkg/rabbitmq"
)

// GetBankStatus returns the bank's balance and kill-switch state.
func (s *Service) GetBankStatus(ctx context.Context) (*domain.Bank, error) {
	return s.repo.GetBank(ctx)
}

// DepositToBank credits house liquidity. Admin only; the deposit is house
// money, not attributed to any player.
func (s *Service) DepositToBank(ctx context.Context, amount int64) (int64, error) {
	if amount <= 0 {
		return 0, ErrInvalidAmount
	}
	var balance int64
	err := s.repo.WithinTx(ctx, func(repo store.Repository) error {
		if _, err := repo.GetBankForUpdate(ctx); err != nil {
			return err
		}
		var err error
		balance, err = repo.AddToBankBalance(ctx, amount)
		return err
	})
	if err != nil {
		return 0, err
	}
	log.Printf("level=info component=pool msg=\"bank deposit\" amount=%d new_balance=%d", amount, balance)
	return balance, nil
}

// ReenableGames clears the depletion kill switch and re-enables the full
// catalog. The bank must hold liquidity again first; depletion is never
// undone automatically.
func (s *Service) ReenableGames(ctx context.Context) error {
	return s.repo.WithinTx(ctx, func(repo store.Repository) error {
		bank, err := repo.GetBankForUpdate(ctx)
		if err != nil {
			return err
		}
		if bank.Balance <= 0 {
			return fmt.Errorf("bank holds %d units: %w", bank.Balance, store.ErrInsufficientFunds)
		}
		if err := repo.SetGamesDisabled(ctx, false); err != nil {
			return err
		}
		configs, err := repo.ListGameConfigs(ctx)
		if err != nil {
			return err
		}
		for _, cfg := range configs {
			if !cfg.Enabled {
				if err := repo.SetGameEnabled(ctx, cfg.Kind, true); err != nil {
					return err
				}
			}
		}
		return nil
	})
}

// TransferBankToJackpot moves house liquidity into a jackpot pool. House
// money grows the pot without weighting the drawing.
func (s *Service) TransferBankToJackpot(ctx context.Context, jackpotID uuid.UUID, amount int64) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	return s.repo.WithinTx(ctx, func(repo store.Repository) error {
		bank, err := repo.GetBankForUpdate(ctx)
		if err != nil {
			return err
		}
		if bank.Balance < amount {
			return store.ErrInsufficientFunds
		}
		if _, err := repo.GetJackpotForUpdate(ctx, jackpotID); err != nil {
			return err
		}
		if _, err := repo.AddToBankBalance(ctx, -amount); err != nil {
			return err
		}
		_, err = repo.AdjustJackpotBalance(ctx, jackpotID, amount)
		return err
	})
}

// TransferJackpotToBank moves liquidity back from a jackpot pool into the
// bank, for restoring a depleted house pool. Only house money can move;
// amounts beyond the pot are refused.
func (s *Service) TransferJackpotToBank(ctx context.Context, jackpotID uuid.UUID, amount int64) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	return s.repo.WithinTx(ctx, func(repo store.Repository) error {
		if _, err := repo.GetBankForUpdate(ctx); err != nil {
			return err
		}
		jackpot, err := repo.GetJackpotForUpdate(ctx, jackpotID)
		if err != nil {
			return err
		}
		if jackpot.Balance < amount {
			return store.ErrInsufficientFunds
		}
		if _, err := repo.AdjustJackpotBalance(ctx, jackpotID, -amount); err != nil {
			return err
		}
		_, err = repo.AddToBankBalance(ctx, amount)
		return err
	})
}

// ListJackpots returns every jackpot pool.
func (s *Service) ListJackpots(ctx context.Context) ([]domain.Jackpot, error) {
	return s.repo.ListJackpots(ctx)
}

// SetJackpotActive toggles a jackpot pool on or off.
func (s *Service) SetJackpotActive(ctx context.Context, jackpotID uuid.UUID, active bool) error {
	return s.repo.SetJackpotActive(ctx, jackpotID, active)
}

// AdjustJackpot applies a signed admin correction to a jackpot balance. The
// balance can never be driven negative.
func (s *Service) AdjustJackpot(ctx context.Context, jackpotID uuid.UUID, delta int64) (int64, error) {
	if delta == 0 {
		return 0, ErrInvalidAmount
	}
	var balance int64
	err := s.repo.WithinTx(ctx, func(repo store.Repository) error {
		jackpot, err := repo.GetJackpotForUpdate(ctx, jackpotID)
		if err != nil {
			return err
		}
		if jackpot.Balance+delta < 0 {
			return store.ErrInsufficientFunds
		}
		balance, err = repo.AdjustJackpotBalance(ctx, jackpotID, delta)
		return err
	})
	if err != nil {
		return 0, err
	}
	return balance, nil
}

// pickWeightedContributor maps a roll in [0, totalWeight) onto the
// contributor whose cumulative bucket contains it. Kept pure so the
// selection can be tested without a database or entropy source.
func pickWeightedContributor(totals []domain.ContributorTotal, roll int64) (uuid.UUID, error) {
	cumulative := int64(0)
	for _, t := range totals {
		if t.Total <= 0 {
			continue
		}
		cumulative += t.Total
		if roll < cumulative {
			return t.EmployeeID, nil
		}
	}
	return uuid.Nil, fmt.Errorf("drawing roll %d outside contribution space %d", roll, cumulative)
}

func contributionSpace(totals []domain.ContributorTotal) int64 {
	sum := int64(0)
	for _, t := range totals {
		if t.Total > 0 {
			sum += t.Total
		}
	}
	return sum
}

// TriggerJackpotDrawing settles one jackpot cycle: it picks a winner
// weighted by contribution, credits the full pot, and resets the pool. A
// pool with no balance or no contributors is left untouched.
func (s *Service) TriggerJackpotDrawing(ctx context.Context, jackpotID uuid.UUID) (*domain.DrawingResult, error) {
	var (
		result   *domain.DrawingResult
		wonEvent domain.JackpotWonPayload
	)

	err := s.repo.WithinTx(ctx, func(repo store.Repository) error {
		jackpot, err := repo.GetJackpotForUpdate(ctx, jackpotID)
		if err != nil {
			return err
		}
		if jackpot.Balance <= 0 {
			log.Printf("level=info component=pool msg=\"drawing skipped; empty pot\" jackpot_id=%s", jackpotID)
			return nil
		}

		totals, err := repo.ListJackpotContributorTotals(ctx, jackpotID)
		if err != nil {
			return err
		}
		space := contributionSpace(totals)
		if space == 0 {
			log.Printf("level=info component=pool msg=\"drawing skipped; no contributors\" jackpot_id=%s balance=%d", jackpotID, jackpot.Balance)
			return nil
		}

		rollBig, err := rand.Int(rand.Reader, big.NewInt(space))
		if err != nil {
			return fmt.Errorf("drawing roll: %w", err)
		}
		winnerID, err := pickWeightedContributor(totals, rollBig.Int64())
		if err != nil {
			return err
		}

		account, err := repo.FetchOrCreateAccount(ctx, winnerID)
		if err != nil {
			return err
		}
		amount := jackpot.Balance
		now := time.Now().UTC()
		if _, err := grantPosted(ctx, repo, account.ID, domain.KindJackpotWin, amount,
			fmt.Sprintf("%s jackpot", jackpot.Type), nil, &jackpot.ID); err != nil {
			return err
		}
		if err := repo.ResetJackpotAfterWin(ctx, jackpot.ID, winnerID, amount, now); err != nil {
			return err
		}
		if err := repo.IncrementJackpotWins(ctx, winnerID); err != nil {
			return err
		}

		result = &domain.DrawingResult{
			JackpotID: jackpot.ID,
			WinnerID:  winnerID,
			Amount:    amount,
			DrawnAt:   now,
		}
		wonEvent = domain.JackpotWonPayload{
			JackpotID: jackpot.ID,
			WinnerID:  winnerID,
			Amount:    amount,
			Timestamp: now,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if result != nil {
		log.Printf("level=info component=pool msg=\"jackpot drawn\" jackpot_id=%s winner_id=%s amount=%d", result.JackpotID, result.WinnerID, result.Amount)
		s.publish(ctx, rabbitmq.RouteJackpotWon, wonEvent)
	}
	return result, nil
}

// DrawActiveJackpot runs the periodic drawing against whichever pool is
// active. Called from the scheduler.
func (s *Service) DrawActiveJackpot(ctx context.Context) (*domain.DrawingResult, error) {
	jackpot, err := s.repo.FindActiveJackpot(ctx)
	if err != nil {
		if errors.Is(err, store.ErrJackpotNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return s.TriggerJackpotDrawing(ctx, jackpot.ID)
}
