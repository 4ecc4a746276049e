/**
 * @description
 * The wagering engine. One play is one serializable unit of work covering
 * the pool check, the config check, the nonce advance, the bet debit, the
 * provably-fair draw, the central house edge, the payout credit, and the
 * bank/jackpot settlement. Nothing about a play is visible until the whole
 * unit commits.
 *
 * Key features:
 * - House edge is applied exactly once, after the fair resolution, so the
 *   fairness proof covers the raw outcome.
 * - Losing bets feed the bank; a configured slice of each losing bet feeds
 *   the active jackpot, attributed to the player for the eventual drawing.
 * - When a payout empties the bank, all games switch off in the same commit.
 *
 * @dependencies
 * - internal/fair: Seed commitment and HMAC draw derivation.
 * - internal/games: Pure per-game resolvers.
 * - internal/domain, internal/store: Domain models and data access.
 */

package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/meritmint/ledger-service/internal/domain"
	"github.com/meritmint/ledger-service/internal/fair"
	"github.com/meritmint/ledger-service/internal/games"
	"github.com/meritmint/ledger-service/internal/store"
	"github.com/meritmint/ledger-service/pkg/rabbitmq"
)

// payoutAfterEdge computes the credited payout for a won bet: the fair
// multiplier scaled down once by the configured house edge. All factors are
// in basis points, so the double division restores coin units exactly.
func payoutAfterEdge(bet, fairMultiplierBps, houseEdgeBps int64) int64 {
	if fairMultiplierBps <= 0 {
		return 0
	}
	edge := houseEdgeBps
	if edge < 0 {
		edge = 0
	}
	if edge > 10000 {
		edge = 10000
	}
	return bet * fairMultiplierBps * (10000 - edge) / 10000 / 10000
}

// resolveWager runs the game-specific resolver for one play. Multi-draw
// games derive their extra draws from the same seed triple via the draw
// index.
func resolveWager(kind domain.GameKind, cfg *domain.GameConfig, prediction, serverSeed, clientSeed string, nonce int64) (games.Resolution, error) {
	switch kind {
	case domain.GameCoinflip:
		return games.ResolveCoinflip(fair.Draw(serverSeed, clientSeed, nonce), prediction)
	case domain.GameNumberPick:
		pick, err := strconv.ParseInt(strings.TrimSpace(prediction), 10, 64)
		if err != nil {
			return games.Resolution{}, fmt.Errorf("%w: %q is not a number", games.ErrInvalidPrediction, prediction)
		}
		return games.ResolveNumberPick(fair.Draw(serverSeed, clientSeed, nonce), cfg.Payload.RangeMax, pick)
	case domain.GameWheel:
		return games.ResolveWheel(fair.Draw(serverSeed, clientSeed, nonce), cfg.Payload.Segments)
	case domain.GameHighLow:
		return games.ResolveHighLow(fair.Draw(serverSeed, clientSeed, nonce), prediction)
	case domain.GameSlots:
		var draws [9]uint32
		for i := range draws {
			draws[i] = fair.DrawAt(serverSeed, clientSeed, nonce, i)
		}
		return games.ResolveSlots(draws, cfg.Payload.Symbols)
	default:
		return games.Resolution{}, fmt.Errorf("%w: no resolver for game %s", games.ErrBadGameConfig, kind)
	}
}

// PlayGame executes one wager end to end. The entire play settles in one
// serializable unit of work; the resolved result and new balance are only
// returned once that unit has committed.
func (s *Service) PlayGame(ctx context.Context, employeeID uuid.UUID, req domain.PlayRequest) (*domain.PlayResult, error) {
	if req.Bet <= 0 {
		return nil, ErrInvalidAmount
	}
	if req.Game == domain.GameDailyBonus {
		return nil, fmt.Errorf("%w: daily bonus is claimed, not wagered", games.ErrInvalidPrediction)
	}

	// Throttle before touching the database at all.
	if s.rateLimiter != nil && s.opts.PlayRateLimitPerMinute > 0 {
		count, retryAfter, err := s.rateLimiter.ConsumePlay(ctx, employeeID.String(), s.opts.PlayRateLimitPerMinute, time.Minute)
		if err != nil {
			log.Printf("level=warn component=wagering msg=\"rate limiter unavailable; allowing play\" employee_id=%s err=%v", employeeID, err)
		} else if count > s.opts.PlayRateLimitPerMinute {
			log.Printf("level=info component=wagering msg=\"play rate limited\" employee_id=%s count=%d retry_after=%d", employeeID, count, retryAfter)
			return nil, ErrRateLimited
		}
	}

	var (
		result        *domain.PlayResult
		bankDepleted  bool
		resolvedEvent domain.WagerResolvedPayload
	)

	err := s.repo.WithinTx(ctx, func(repo store.Repository) error {
		bankDepleted = false

		// 1. Lock the bank; the kill switch and the depletion check happen
		// under the same lock that settlement will use. A non-positive pool
		// refuses play before any player funds move.
		bank, err := repo.GetBankForUpdate(ctx)
		if err != nil {
			return err
		}
		if bank.GamesDisabled || bank.Balance <= 0 {
			return ErrGamesDisabled
		}

		// 2. Game catalog checks
		cfg, err := repo.FindGameConfigByKind(ctx, req.Game)
		if err != nil {
			return err
		}
		if !cfg.Enabled {
			return ErrGameNotEnabled
		}
		if req.Bet < cfg.MinBet || (cfg.MaxBet > 0 && req.Bet > cfg.MaxBet) {
			return ErrBetOutOfRange
		}

		// 3. Lock the player's account
		account, err := repo.FetchOrCreateAccount(ctx, employeeID)
		if err != nil {
			return err
		}
		account, err = repo.GetAccountForUpdate(ctx, account.ID)
		if err != nil {
			return err
		}

		// 4. Advance the player's nonce and commit to fresh seeds
		nonce, err := repo.NextWagerNonce(ctx, employeeID)
		if err != nil {
			return err
		}
		seeds, err := fair.Commit()
		if err != nil {
			return err
		}
		clientSeed := strings.TrimSpace(req.ClientSeed)
		if clientSeed == "" {
			clientSeed, err = fair.NewClientSeed()
			if err != nil {
				return err
			}
		}

		// 5. Resolve before any money moves so a bad prediction costs nothing
		resolution, err := resolveWager(req.Game, cfg, strings.TrimSpace(req.Prediction), seeds.ServerSeed, clientSeed, nonce)
		if err != nil {
			return err
		}
		outcomeJSON, err := json.Marshal(resolution.Outcome)
		if err != nil {
			return fmt.Errorf("failed to encode outcome: %w", err)
		}

		// 6. Debit the bet; the bank absorbs it
		gameID := uuid.New()
		betTx, err := debitPosted(ctx, repo, account, domain.KindWagerBet, req.Bet,
			fmt.Sprintf("%s bet", req.Game), nil, &gameID)
		if err != nil {
			return err
		}
		bankBalance, err := repo.AddToBankBalance(ctx, req.Bet)
		if err != nil {
			return err
		}

		// 7. Settle
		var payout int64
		var winTx *domain.LedgerTransaction
		if resolution.Won {
			payout = payoutAfterEdge(req.Bet, resolution.FairMultiplierBps, cfg.HouseEdgeBps)
			if payout > 0 {
				bankBalance, err = repo.AddToBankBalance(ctx, -payout)
				if err != nil {
					return err
				}
				winTx, err = grantPosted(ctx, repo, account.ID, domain.KindWagerWin, payout,
					fmt.Sprintf("%s win", req.Game), nil, &gameID)
				if err != nil {
					return err
				}
				if bankBalance <= 0 {
					if err := repo.SetGamesDisabled(ctx, true); err != nil {
						return err
					}
					if err := repo.DisableAllGames(ctx); err != nil {
						return err
					}
					bankDepleted = true
				}
			}
		} else {
			// A slice of the losing bet seeds the active jackpot,
			// attributed to the loser for the eventual drawing.
			if jackpot, jErr := repo.FindActiveJackpot(ctx); jErr == nil {
				bps := jackpot.ContributionBps
				if bps <= 0 {
					bps = s.opts.JackpotContributionBps
				}
				// The bank just absorbed the full bet, so a bps slice of
				// that bet is always covered.
				if contribution := req.Bet * bps / 10000; contribution > 0 {
					if _, err := repo.AddToBankBalance(ctx, -contribution); err != nil {
						return err
					}
					if err := repo.AddJackpotContribution(ctx, jackpot.ID, employeeID, contribution); err != nil {
						return err
					}
				}
			} else if !errors.Is(jErr, store.ErrJackpotNotFound) {
				return jErr
			}
		}

		// 8. Immutable game record and running stats
		game := &domain.Game{
			ID:               gameID,
			EmployeeID:       employeeID,
			Kind:             req.Game,
			Bet:              req.Bet,
			Payout:           payout,
			Won:              resolution.Won,
			Outcome:          outcomeJSON,
			ServerSeed:       seeds.ServerSeed,
			ServerSeedHash:   seeds.Hash,
			ClientSeed:       clientSeed,
			Nonce:            nonce,
			BetTransactionID: &betTx.ID,
		}
		if winTx != nil {
			game.WinTransactionID = &winTx.ID
		}
		if err := repo.CreateGame(ctx, game); err != nil {
			return err
		}
		if err := repo.RecordGameStats(ctx, employeeID, req.Bet, payout, resolution.Won); err != nil {
			return err
		}

		result = &domain.PlayResult{
			GameID:         gameID,
			Game:           req.Game,
			Won:            resolution.Won,
			Bet:            req.Bet,
			Payout:         payout,
			Outcome:        outcomeJSON,
			ServerSeed:     seeds.ServerSeed,
			ServerSeedHash: seeds.Hash,
			ClientSeed:     clientSeed,
			Nonce:          nonce,
			NewBalance:     account.Balance + payout,
		}
		resolvedEvent = domain.WagerResolvedPayload{
			EmployeeID: employeeID,
			GameID:     gameID,
			Game:       req.Game,
			Won:        resolution.Won,
			Bet:        req.Bet,
			Payout:     payout,
			Timestamp:  time.Now().UTC(),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, rabbitmq.RouteWagerResolved, resolvedEvent)
	if bankDepleted {
		log.Printf("level=warn component=wagering msg=\"bank depleted; all games disabled\" game_id=%s payout=%d", result.GameID, result.Payout)
		s.publish(ctx, rabbitmq.RouteGamesDisabled, map[string]interface{}{
			"game_id":   result.GameID,
			"payout":    result.Payout,
			"timestamp": time.Now().UTC(),
		})
	}
	return result, nil
}

// PlayDailyBonus claims the once-per-calendar-day free prize. The prize is a
// fixed credit from a published weighted table; no bet, no house edge. An
// optional caller seed is honored the same way PlayGame honors one.
func (s *Service) PlayDailyBonus(ctx context.Context, employeeID uuid.UUID, clientSeed string) (*domain.PlayResult, error) {
	var (
		result       *domain.PlayResult
		bankDepleted bool
	)

	err := s.repo.WithinTx(ctx, func(repo store.Repository) error {
		bankDepleted = false

		bank, err := repo.GetBankForUpdate(ctx)
		if err != nil {
			return err
		}
		if bank.GamesDisabled || bank.Balance <= 0 {
			return ErrGamesDisabled
		}

		cfg, err := repo.FindGameConfigByKind(ctx, domain.GameDailyBonus)
		if err != nil {
			return err
		}
		if !cfg.Enabled {
			return ErrGameNotEnabled
		}

		// The unique claim row is what enforces once per day under
		// concurrent claims.
		now := time.Now().UTC()
		if err := repo.InsertDailyBonusClaim(ctx, employeeID, now); err != nil {
			return err
		}

		account, err := repo.FetchOrCreateAccount(ctx, employeeID)
		if err != nil {
			return err
		}

		nonce, err := repo.NextWagerNonce(ctx, employeeID)
		if err != nil {
			return err
		}
		seeds, err := fair.Commit()
		if err != nil {
			return err
		}
		if clientSeed == "" {
			clientSeed, err = fair.NewClientSeed()
			if err != nil {
				return err
			}
		}

		prize, err := games.ResolveBonusPrize(fair.Draw(seeds.ServerSeed, clientSeed, nonce), cfg.Payload.BonusPrizes)
		if err != nil {
			return err
		}
		outcomeJSON, err := json.Marshal(games.BonusOutcome{Label: prize.Label, Amount: prize.Amount})
		if err != nil {
			return fmt.Errorf("failed to encode outcome: %w", err)
		}

		gameID := uuid.New()
		var winTx *domain.LedgerTransaction
		if prize.Amount > 0 {
			bankBalance, err := repo.AddToBankBalance(ctx, -prize.Amount)
			if err != nil {
				return err
			}
			winTx, err = grantPosted(ctx, repo, account.ID, domain.KindDailyBonus, prize.Amount,
				fmt.Sprintf("daily bonus: %s", prize.Label), nil, &gameID)
			if err != nil {
				return err
			}
			// A prize drawn from the shared pool depletes it the same way a
			// wager win does, so the same kill switch applies.
			if bankBalance <= 0 {
				if err := repo.SetGamesDisabled(ctx, true); err != nil {
					return err
				}
				if err := repo.DisableAllGames(ctx); err != nil {
					return err
				}
				bankDepleted = true
			}
		}

		game := &domain.Game{
			ID:             gameID,
			EmployeeID:     employeeID,
			Kind:           domain.GameDailyBonus,
			Bet:            0,
			Payout:         prize.Amount,
			Won:            prize.Amount > 0,
			Outcome:        outcomeJSON,
			ServerSeed:     seeds.ServerSeed,
			ServerSeedHash: seeds.Hash,
			ClientSeed:     clientSeed,
			Nonce:          nonce,
		}
		if winTx != nil {
			game.WinTransactionID = &winTx.ID
		}
		if err := repo.CreateGame(ctx, game); err != nil {
			return err
		}
		if err := repo.RecordGameStats(ctx, employeeID, 0, prize.Amount, prize.Amount > 0); err != nil {
			return err
		}

		result = &domain.PlayResult{
			GameID:         gameID,
			Game:           domain.GameDailyBonus,
			Won:            prize.Amount > 0,
			Payout:         prize.Amount,
			Outcome:        outcomeJSON,
			ServerSeed:     seeds.ServerSeed,
			ServerSeedHash: seeds.Hash,
			ClientSeed:     clientSeed,
			Nonce:          nonce,
			NewBalance:     account.Balance + prize.Amount,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if bankDepleted {
		log.Printf("level=warn component=wagering msg=\"bank depleted by daily bonus; all games disabled\" game_id=%s payout=%d", result.GameID, result.Payout)
		s.publish(ctx, rabbitmq.RouteGamesDisabled, map[string]interface{}{
			"game_id":   result.GameID,
			"payout":    result.Payout,
			"timestamp": time.Now().UTC(),
		})
	}
	return result, nil
}

// VerifyResult is the public audit of one past outcome.
type VerifyResult struct {
	Valid           bool   `json:"valid"`
	CommitmentValid bool   `json:"commitment_valid,omitempty"`
	Derived         uint32 `json:"derived"`
}

// VerifyOutcome lets anyone recompute a past draw from its revealed seeds
// and nonce, independent of this service's database.
func (s *Service) VerifyOutcome(req domain.VerifyRequest, publishedHash string) VerifyResult {
	derived := fair.Draw(req.ServerSeed, req.ClientSeed, req.Nonce)
	res := VerifyResult{
		Valid:   fair.Verify(req.ServerSeed, req.ClientSeed, req.Nonce, req.ClaimedOutcome, req.Modulus),
		Derived: derived,
	}
	if publishedHash != "" {
		res.CommitmentValid = fair.VerifyCommitment(req.ServerSeed, publishedHash)
	}
	return res
}

// ListGameConfigs returns the catalog for players and admins.
func (s *Service) ListGameConfigs(ctx context.Context) ([]domain.GameConfig, error) {
	return s.repo.ListGameConfigs(ctx)
}

// SetGameEnabled toggles a single game.
func (s *Service) SetGameEnabled(ctx context.Context, kind domain.GameKind, enabled bool) error {
	return s.repo.SetGameEnabled(ctx, kind, enabled)
}

// GetGameStats returns a player's lifetime wagering stats.
func (s *Service) GetGameStats(ctx context.Context, employeeID uuid.UUID) (*domain.GameStats, error) {
	return s.repo.GetGameStats(ctx, employeeID)
}
