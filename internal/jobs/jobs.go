/**
 * @description
 * Scheduled job implementations for the ledger-service.
 */
package jobs

import (
	"context"
	"log/slog"

	"github.com/meritmint/ledger-service/internal/domain"
)

// LedgerService defines the service operations the jobs drive.
type LedgerService interface {
	DrawActiveJackpot(ctx context.Context) (*domain.DrawingResult, error)
	ExpireStalePendingTransfers(ctx context.Context) (int, error)
}

// Jobs contains the logic for all scheduled tasks.
type Jobs struct {
	service LedgerService
	logger  *slog.Logger
}

// NewJobs creates a new Jobs runner.
func NewJobs(service LedgerService, logger *slog.Logger) *Jobs {
	return &Jobs{
		service: service,
		logger:  logger,
	}
}

// RunJackpotDrawing settles the active jackpot's current cycle.
func (j *Jobs) RunJackpotDrawing() {
	j.logger.Info("starting jackpot drawing job")
	ctx := context.Background()

	result, err := j.service.DrawActiveJackpot(ctx)
	if err != nil {
		j.logger.Error("jackpot drawing failed", "error", err)
		return
	}
	if result == nil {
		j.logger.Info("jackpot drawing job finished", "outcome", "skipped")
		return
	}

	j.logger.Info("jackpot drawing job finished",
		"jackpot_id", result.JackpotID,
		"winner_id", result.WinnerID,
		"amount", result.Amount)
}

// RunTransferExpiry revokes escrowed transfers that outlived the expiry
// window, releasing each sender's held debit.
func (j *Jobs) RunTransferExpiry() {
	j.logger.Info("starting transfer expiry job")
	ctx := context.Background()

	expired, err := j.service.ExpireStalePendingTransfers(ctx)
	if err != nil {
		j.logger.Error("transfer expiry failed", "error", err)
		return
	}

	j.logger.Info("transfer expiry job finished", "revoked", expired)
}
