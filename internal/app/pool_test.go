package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/meritmint/ledger-service/internal/domain"
	"github.com/meritmint/ledger-service/internal/store"
)

func TestPickWeightedContributor(t *testing.T) {
	alice := uuid.New()
	bob := uuid.New()
	totals := []domain.ContributorTotal{
		{EmployeeID: alice, Total: 100},
		{EmployeeID: bob, Total: 50},
	}

	tests := []struct {
		name string
		roll int64
		want uuid.UUID
	}{
		{"first unit of the first bucket", 0, alice},
		{"last unit of the first bucket", 99, alice},
		{"first unit of the second bucket", 100, bob},
		{"last unit of the second bucket", 149, bob},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := pickWeightedContributor(totals, tt.roll)
			if err != nil {
				t.Fatalf("expected a winner for roll=%d, got %v", tt.roll, err)
			}
			if got != tt.want {
				t.Fatalf("expected winner %s for roll=%d, got %s", tt.want, tt.roll, got)
			}
		})
	}
}

func TestPickWeightedContributorRejectsRollOutsideSpace(t *testing.T) {
	totals := []domain.ContributorTotal{{EmployeeID: uuid.New(), Total: 10}}
	if _, err := pickWeightedContributor(totals, 10); err == nil {
		t.Fatal("expected an error for a roll outside the contribution space")
	}
}

func TestContributionSpaceIgnoresNonPositiveTotals(t *testing.T) {
	totals := []domain.ContributorTotal{
		{EmployeeID: uuid.New(), Total: 100},
		{EmployeeID: uuid.New(), Total: 0},
		{EmployeeID: uuid.New(), Total: -5},
		{EmployeeID: uuid.New(), Total: 25},
	}
	if got := contributionSpace(totals); got != 125 {
		t.Fatalf("expected contribution space=125, got %d", got)
	}
}

// drawingRepoStub drives TriggerJackpotDrawing through an in-memory unit of
// work with one jackpot pool.
type drawingRepoStub struct {
	store.Repository

	jackpot domain.Jackpot
	totals  []domain.ContributorTotal
	balance int64

	resetCalled       bool
	resetWinnerID     uuid.UUID
	resetAmount       int64
	jackpotWinsBumped bool
	transactions      []domain.LedgerTransaction
}

func (s *drawingRepoStub) WithinTx(ctx context.Context, fn func(store.Repository) error) error {
	return fn(s)
}

func (s *drawingRepoStub) GetJackpotForUpdate(ctx context.Context, jackpotID uuid.UUID) (*domain.Jackpot, error) {
	if jackpotID != s.jackpot.ID {
		return nil, store.ErrJackpotNotFound
	}
	jackpot := s.jackpot
	return &jackpot, nil
}

func (s *drawingRepoStub) ListJackpotContributorTotals(ctx context.Context, jackpotID uuid.UUID) ([]domain.ContributorTotal, error) {
	return s.totals, nil
}

func (s *drawingRepoStub) FetchOrCreateAccount(ctx context.Context, employeeID uuid.UUID) (*domain.Account, error) {
	return &domain.Account{ID: uuid.New(), EmployeeID: employeeID, Balance: s.balance}, nil
}

func (s *drawingRepoStub) ApplyBalanceDelta(ctx context.Context, accountID uuid.UUID, delta int64) (int64, error) {
	s.balance += delta
	return s.balance, nil
}

func (s *drawingRepoStub) CreateLedgerTransaction(ctx context.Context, tx *domain.LedgerTransaction) error {
	s.transactions = append(s.transactions, *tx)
	return nil
}

func (s *drawingRepoStub) MarkTransactionPosted(ctx context.Context, id uuid.UUID, postedAt time.Time) error {
	return nil
}

func (s *drawingRepoStub) ResetJackpotAfterWin(ctx context.Context, jackpotID, winnerID uuid.UUID, amount int64, wonAt time.Time) error {
	s.resetCalled = true
	s.resetWinnerID = winnerID
	s.resetAmount = amount
	return nil
}

func (s *drawingRepoStub) IncrementJackpotWins(ctx context.Context, employeeID uuid.UUID) error {
	s.jackpotWinsBumped = true
	return nil
}

func TestTriggerJackpotDrawing_SingleContributorWinsPot(t *testing.T) {
	contributor := uuid.New()
	repo := &drawingRepoStub{
		jackpot: domain.Jackpot{ID: uuid.New(), Type: "weekly", Balance: 5000, IsActive: true},
		totals:  []domain.ContributorTotal{{EmployeeID: contributor, Total: 250}},
	}
	service := NewService(repo, nil, nil, Options{})

	result, err := service.TriggerJackpotDrawing(context.Background(), repo.jackpot.ID)
	if err != nil {
		t.Fatalf("expected drawing to settle, got %v", err)
	}
	if result == nil {
		t.Fatal("expected a drawing result")
	}
	if result.WinnerID != contributor {
		t.Fatalf("expected the only contributor to win, got %s", result.WinnerID)
	}
	if result.Amount != 5000 {
		t.Fatalf("expected the full pot of 5000, got %d", result.Amount)
	}
	if repo.balance != 5000 {
		t.Fatalf("expected winner credited 5000, got %d", repo.balance)
	}
	if !repo.resetCalled || repo.resetWinnerID != contributor || repo.resetAmount != 5000 {
		t.Fatal("expected the pool reset with the win stamped")
	}
	if !repo.jackpotWinsBumped {
		t.Fatal("expected the winner's jackpot win counter bumped")
	}
	if len(repo.transactions) != 1 || repo.transactions[0].Kind != domain.KindJackpotWin {
		t.Fatalf("expected one jackpot_win ledger row, got %v", repo.transactions)
	}
}

func TestTriggerJackpotDrawing_SkipsEmptyPot(t *testing.T) {
	repo := &drawingRepoStub{
		jackpot: domain.Jackpot{ID: uuid.New(), Type: "weekly", Balance: 0, IsActive: true},
		totals:  []domain.ContributorTotal{{EmployeeID: uuid.New(), Total: 250}},
	}
	service := NewService(repo, nil, nil, Options{})

	result, err := service.TriggerJackpotDrawing(context.Background(), repo.jackpot.ID)
	if err != nil {
		t.Fatalf("expected empty pot to be skipped cleanly, got %v", err)
	}
	if result != nil {
		t.Fatal("expected no drawing result for an empty pot")
	}
	if repo.resetCalled {
		t.Fatal("expected the pool left untouched")
	}
}

func TestTriggerJackpotDrawing_SkipsWithoutContributors(t *testing.T) {
	repo := &drawingRepoStub{
		jackpot: domain.Jackpot{ID: uuid.New(), Type: "weekly", Balance: 5000, IsActive: true},
	}
	service := NewService(repo, nil, nil, Options{})

	result, err := service.TriggerJackpotDrawing(context.Background(), repo.jackpot.ID)
	if err != nil {
		t.Fatalf("expected contributor-less pot to be skipped cleanly, got %v", err)
	}
	if result != nil {
		t.Fatal("expected no drawing result without contributors")
	}
	if repo.resetCalled {
		t.Fatal("expected the pool left untouched")
	}
}

type noActiveJackpotRepoStub struct {
	store.Repository
}

func (s *noActiveJackpotRepoStub) FindActiveJackpot(ctx context.Context) (*domain.Jackpot, error) {
	return nil, store.ErrJackpotNotFound
}

func TestDrawActiveJackpot_NoActivePoolIsNotAnError(t *testing.T) {
	service := NewService(&noActiveJackpotRepoStub{}, nil, nil, Options{})

	result, err := service.DrawActiveJackpot(context.Background())
	if err != nil {
		t.Fatalf("expected a missing active pool to be a no-op, got %v", err)
	}
	if result != nil {
		t.Fatal("expected no drawing result without an active pool")
	}
}

type bankRepoStub struct {
	store.Repository

	bank domain.Bank

	setGamesDisabledTo *bool
	reenabledKinds     []domain.GameKind
}

func (s *bankRepoStub) WithinTx(ctx context.Context, fn func(store.Repository) error) error {
	return fn(s)
}

func (s *bankRepoStub) GetBankForUpdate(ctx context.Context) (*domain.Bank, error) {
	bank := s.bank
	return &bank, nil
}

func (s *bankRepoStub) SetGamesDisabled(ctx context.Context, disabled bool) error {
	s.setGamesDisabledTo = &disabled
	return nil
}

func (s *bankRepoStub) ListGameConfigs(ctx context.Context) ([]domain.GameConfig, error) {
	return []domain.GameConfig{
		{Kind: domain.GameCoinflip, Enabled: false},
		{Kind: domain.GameWheel, Enabled: true},
		{Kind: domain.GameSlots, Enabled: false},
	}, nil
}

func (s *bankRepoStub) SetGameEnabled(ctx context.Context, kind domain.GameKind, enabled bool) error {
	s.reenabledKinds = append(s.reenabledKinds, kind)
	return nil
}

// poolTransferRepoStub tracks the bank and one jackpot as plain balances so
// the liquidity transfer operations can be observed end to end.
type poolTransferRepoStub struct {
	store.Repository

	bank    domain.Bank
	jackpot domain.Jackpot
}

func (s *poolTransferRepoStub) WithinTx(ctx context.Context, fn func(store.Repository) error) error {
	return fn(s)
}

func (s *poolTransferRepoStub) GetBankForUpdate(ctx context.Context) (*domain.Bank, error) {
	bank := s.bank
	return &bank, nil
}

func (s *poolTransferRepoStub) AddToBankBalance(ctx context.Context, delta int64) (int64, error) {
	s.bank.Balance += delta
	return s.bank.Balance, nil
}

func (s *poolTransferRepoStub) GetJackpotForUpdate(ctx context.Context, jackpotID uuid.UUID) (*domain.Jackpot, error) {
	if jackpotID != s.jackpot.ID {
		return nil, store.ErrJackpotNotFound
	}
	jackpot := s.jackpot
	return &jackpot, nil
}

func (s *poolTransferRepoStub) AdjustJackpotBalance(ctx context.Context, jackpotID uuid.UUID, delta int64) (int64, error) {
	s.jackpot.Balance += delta
	return s.jackpot.Balance, nil
}

func TestTransferBankToJackpot_MovesLiquidity(t *testing.T) {
	repo := &poolTransferRepoStub{
		bank:    domain.Bank{Balance: 10000},
		jackpot: domain.Jackpot{ID: uuid.New(), Type: "weekly", Balance: 500},
	}
	service := NewService(repo, nil, nil, Options{})

	if err := service.TransferBankToJackpot(context.Background(), repo.jackpot.ID, 3000); err != nil {
		t.Fatalf("expected funding to settle, got %v", err)
	}
	if repo.bank.Balance != 7000 {
		t.Fatalf("expected bank balance=7000, got %d", repo.bank.Balance)
	}
	if repo.jackpot.Balance != 3500 {
		t.Fatalf("expected jackpot balance=3500, got %d", repo.jackpot.Balance)
	}
}

func TestTransferJackpotToBank_RestoresLiquidity(t *testing.T) {
	repo := &poolTransferRepoStub{
		bank:    domain.Bank{Balance: 0},
		jackpot: domain.Jackpot{ID: uuid.New(), Type: "weekly", Balance: 5000},
	}
	service := NewService(repo, nil, nil, Options{})

	if err := service.TransferJackpotToBank(context.Background(), repo.jackpot.ID, 2000); err != nil {
		t.Fatalf("expected restore to settle, got %v", err)
	}
	if repo.bank.Balance != 2000 {
		t.Fatalf("expected bank balance=2000, got %d", repo.bank.Balance)
	}
	if repo.jackpot.Balance != 3000 {
		t.Fatalf("expected jackpot balance=3000, got %d", repo.jackpot.Balance)
	}
}

func TestTransferJackpotToBank_RefusesOverdraw(t *testing.T) {
	repo := &poolTransferRepoStub{
		bank:    domain.Bank{Balance: 0},
		jackpot: domain.Jackpot{ID: uuid.New(), Type: "weekly", Balance: 1000},
	}
	service := NewService(repo, nil, nil, Options{})

	err := service.TransferJackpotToBank(context.Background(), repo.jackpot.ID, 1500)
	if !errors.Is(err, store.ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}
	if repo.bank.Balance != 0 || repo.jackpot.Balance != 1000 {
		t.Fatalf("expected both pools untouched, got bank=%d jackpot=%d", repo.bank.Balance, repo.jackpot.Balance)
	}

	if err := service.TransferJackpotToBank(context.Background(), repo.jackpot.ID, 0); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount for a zero amount, got %v", err)
	}
}

func TestReenableGames_RequiresLiquidity(t *testing.T) {
	repo := &bankRepoStub{bank: domain.Bank{Balance: 0, GamesDisabled: true}}
	service := NewService(repo, nil, nil, Options{})

	err := service.ReenableGames(context.Background())
	if !errors.Is(err, store.ErrInsufficientFunds) {
		t.Fatalf("expected an empty bank to block re-enable, got %v", err)
	}
	if repo.setGamesDisabledTo != nil {
		t.Fatal("expected the kill switch left untouched")
	}
}

func TestReenableGames_ClearsSwitchAndRestoresCatalog(t *testing.T) {
	repo := &bankRepoStub{bank: domain.Bank{Balance: 10000, GamesDisabled: true}}
	service := NewService(repo, nil, nil, Options{})

	if err := service.ReenableGames(context.Background()); err != nil {
		t.Fatalf("expected re-enable to succeed, got %v", err)
	}
	if repo.setGamesDisabledTo == nil || *repo.setGamesDisabledTo {
		t.Fatal("expected the kill switch cleared")
	}
	if len(repo.reenabledKinds) != 2 {
		t.Fatalf("expected only the two disabled games re-enabled, got %v", repo.reenabledKinds)
	}
}
