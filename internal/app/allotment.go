/**
 * @description
 * Allotment budget operations: each manager gets a recurring per-period
 * budget of coins to award. The budget is re-checked inside the award's own
 * unit of work, so two racing awards cannot both squeeze through a nearly
 * spent budget.
 *
 * @dependencies
 * - internal/domain, internal/store: Domain models and data access.
 */

package app

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/meritmint/ledger-service/internal/domain"
	"github.com/meritmint/ledger-service/internal/store"
	"github.com/meritmint/ledger-service/pkg/rabbitmq"
)

// periodBounds returns the half-open [start, end) window containing now for
// the configured period type. Quarters start in January, April, July, and
// October.
func periodBounds(now time.Time, periodType domain.PeriodType) (time.Time, time.Time) {
	now = now.UTC()
	if periodType == domain.PeriodQuarterly {
		quarterStartMonth := time.Month(((int(now.Month())-1)/3)*3 + 1)
		start := time.Date(now.Year(), quarterStartMonth, 1, 0, 0, 0, 0, time.UTC)
		return start, start.AddDate(0, 3, 0)
	}
	start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 1, 0)
}

// GetCurrentAllotment returns the manager's budget for the period containing
// now, alongside how much of it posted awards have already used.
func (s *Service) GetCurrentAllotment(ctx context.Context, managerID uuid.UUID) (*domain.AllotmentStatus, error) {
	start, end := periodBounds(time.Now(), s.opts.AllotmentPeriod)

	budget, err := s.repo.FetchOrCreateAllotment(ctx, managerID, s.opts.AllotmentPeriod, start, end, s.opts.AllotmentDefaultUnits)
	if err != nil {
		return nil, err
	}
	used, err := s.repo.SumPostedAwardsBySource(ctx, managerID, start, end)
	if err != nil {
		return nil, err
	}

	remaining := budget.Amount - used
	if remaining < 0 {
		remaining = 0
	}
	return &domain.AllotmentStatus{
		Budget:    *budget,
		Used:      used,
		Remaining: remaining,
	}, nil
}

// AwardCoins grants coins from a manager's allotment to a registered
// recipient. The remaining budget is recomputed inside the same unit of
// work that posts the award.
func (s *Service) AwardCoins(ctx context.Context, managerID uuid.UUID, req domain.AwardRequest) (*domain.LedgerTransaction, error) {
	if req.Amount <= 0 {
		return nil, ErrInvalidAmount
	}

	var (
		awarded     *domain.LedgerTransaction
		recipientID uuid.UUID
	)
	err := s.repo.WithinTx(ctx, func(repo store.Repository) error {
		// 1. Resolve the recipient; awards require a registered employee
		recipient, err := repo.FindEmployeeByEmail(ctx, req.RecipientEmail)
		if err != nil {
			return err
		}
		if recipient.ID == managerID {
			return ErrSelfTransfer
		}
		recipientID = recipient.ID

		// 2. Re-check the budget under serializable isolation
		start, end := periodBounds(time.Now(), s.opts.AllotmentPeriod)
		budget, err := repo.FetchOrCreateAllotment(ctx, managerID, s.opts.AllotmentPeriod, start, end, s.opts.AllotmentDefaultUnits)
		if err != nil {
			return err
		}
		used, err := repo.SumPostedAwardsBySource(ctx, managerID, start, end)
		if err != nil {
			return err
		}
		if used+req.Amount > budget.Amount {
			return fmt.Errorf("%d of %d units used: %w", used, budget.Amount, ErrAllotmentExceeded)
		}

		// 3. Post the award
		account, err := repo.FetchOrCreateAccount(ctx, recipient.ID)
		if err != nil {
			return err
		}
		description := req.Description
		if description == "" {
			description = "recognition award"
		}
		managerRef := managerID
		awarded, err = grantPosted(ctx, repo, account.ID, domain.KindAward, req.Amount, description, &managerRef, nil)
		return err
	})
	if err != nil {
		return nil, err
	}

	log.Printf("level=info component=allotment msg=\"award granted\" manager_id=%s recipient_id=%s amount=%d", managerID, recipientID, req.Amount)
	s.publish(ctx, rabbitmq.RouteAwardGranted, domain.AwardGrantedPayload{
		ManagerID:   managerID,
		RecipientID: recipientID,
		Amount:      req.Amount,
		Description: req.Description,
		Timestamp:   time.Now().UTC(),
	})
	return awarded, nil
}

// GetAwardHistory pages through the awards a manager has granted.
func (s *Service) GetAwardHistory(ctx context.Context, managerID uuid.UUID, limit, offset int) ([]domain.LedgerTransaction, error) {
	return s.repo.ListAwardsBySource(ctx, managerID, limit, offset)
}
