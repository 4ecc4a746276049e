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

func TestPeriodBounds(t *testing.T) {
	tests := []struct {
		name       string
		now        time.Time
		periodType domain.PeriodType
		wantStart  time.Time
		wantEnd    time.Time
	}{
		{
			name:       "monthly mid-month",
			now:        time.Date(2026, time.August, 15, 13, 45, 0, 0, time.UTC),
			periodType: domain.PeriodMonthly,
			wantStart:  time.Date(2026, time.August, 1, 0, 0, 0, 0, time.UTC),
			wantEnd:    time.Date(2026, time.September, 1, 0, 0, 0, 0, time.UTC),
		},
		{
			name:       "monthly december rolls into next year",
			now:        time.Date(2026, time.December, 31, 23, 59, 59, 0, time.UTC),
			periodType: domain.PeriodMonthly,
			wantStart:  time.Date(2026, time.December, 1, 0, 0, 0, 0, time.UTC),
			wantEnd:    time.Date(2027, time.January, 1, 0, 0, 0, 0, time.UTC),
		},
		{
			name:       "quarterly q3",
			now:        time.Date(2026, time.August, 15, 0, 0, 0, 0, time.UTC),
			periodType: domain.PeriodQuarterly,
			wantStart:  time.Date(2026, time.July, 1, 0, 0, 0, 0, time.UTC),
			wantEnd:    time.Date(2026, time.October, 1, 0, 0, 0, 0, time.UTC),
		},
		{
			name:       "quarterly q4 rolls into next year",
			now:        time.Date(2026, time.November, 2, 0, 0, 0, 0, time.UTC),
			periodType: domain.PeriodQuarterly,
			wantStart:  time.Date(2026, time.October, 1, 0, 0, 0, 0, time.UTC),
			wantEnd:    time.Date(2027, time.January, 1, 0, 0, 0, 0, time.UTC),
		},
		{
			name:       "quarterly first day of quarter",
			now:        time.Date(2026, time.April, 1, 0, 0, 0, 0, time.UTC),
			periodType: domain.PeriodQuarterly,
			wantStart:  time.Date(2026, time.April, 1, 0, 0, 0, 0, time.UTC),
			wantEnd:    time.Date(2026, time.July, 1, 0, 0, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start, end := periodBounds(tt.now, tt.periodType)
			if !start.Equal(tt.wantStart) {
				t.Fatalf("expected start=%s, got %s", tt.wantStart, start)
			}
			if !end.Equal(tt.wantEnd) {
				t.Fatalf("expected end=%s, got %s", tt.wantEnd, end)
			}
		})
	}
}

// awardRepoStub drives AwardCoins through an in-memory unit of work with a
// fixed budget and spent amount.
type awardRepoStub struct {
	store.Repository

	recipient    *domain.Employee
	budgetAmount int64
	usedAmount   int64
	balance      int64

	transactions []domain.LedgerTransaction
}

func (s *awardRepoStub) WithinTx(ctx context.Context, fn func(store.Repository) error) error {
	return fn(s)
}

func (s *awardRepoStub) FindEmployeeByEmail(ctx context.Context, email string) (*domain.Employee, error) {
	if s.recipient == nil {
		return nil, store.ErrEmployeeNotFound
	}
	recipient := *s.recipient
	return &recipient, nil
}

func (s *awardRepoStub) FetchOrCreateAllotment(ctx context.Context, employeeID uuid.UUID, periodType domain.PeriodType, start, end time.Time, defaultAmount int64) (*domain.AllotmentBudget, error) {
	return &domain.AllotmentBudget{
		ID:          uuid.New(),
		EmployeeID:  employeeID,
		PeriodType:  periodType,
		PeriodStart: start,
		PeriodEnd:   end,
		Amount:      s.budgetAmount,
	}, nil
}

func (s *awardRepoStub) SumPostedAwardsBySource(ctx context.Context, employeeID uuid.UUID, start, end time.Time) (int64, error) {
	return s.usedAmount, nil
}

func (s *awardRepoStub) FetchOrCreateAccount(ctx context.Context, employeeID uuid.UUID) (*domain.Account, error) {
	return &domain.Account{ID: uuid.New(), EmployeeID: employeeID, Balance: s.balance}, nil
}

func (s *awardRepoStub) ApplyBalanceDelta(ctx context.Context, accountID uuid.UUID, delta int64) (int64, error) {
	s.balance += delta
	return s.balance, nil
}

func (s *awardRepoStub) CreateLedgerTransaction(ctx context.Context, tx *domain.LedgerTransaction) error {
	s.transactions = append(s.transactions, *tx)
	return nil
}

func (s *awardRepoStub) MarkTransactionPosted(ctx context.Context, id uuid.UUID, postedAt time.Time) error {
	return nil
}

func TestAwardCoins_PostsWithinBudget(t *testing.T) {
	managerID := uuid.New()
	repo := &awardRepoStub{
		recipient:    &domain.Employee{ID: uuid.New(), Email: "pat@example.com"},
		budgetAmount: 10000,
		usedAmount:   9000,
	}
	service := NewService(repo, nil, nil, Options{})

	awarded, err := service.AwardCoins(context.Background(), managerID, domain.AwardRequest{
		RecipientEmail: "pat@example.com",
		Amount:         1000,
		Description:    "great sprint",
	})
	if err != nil {
		t.Fatalf("expected award within budget to post, got %v", err)
	}
	if awarded.Kind != domain.KindAward || awarded.Amount != 1000 {
		t.Fatalf("expected a 1000 unit award row, got kind=%s amount=%d", awarded.Kind, awarded.Amount)
	}
	if awarded.Status != domain.StatusPosted {
		t.Fatalf("expected award posted, got %s", awarded.Status)
	}
	if awarded.SourceEmployeeID == nil || *awarded.SourceEmployeeID != managerID {
		t.Fatal("expected the award attributed to the manager")
	}
	if repo.balance != 1000 {
		t.Fatalf("expected recipient credited 1000, got %d", repo.balance)
	}
}

func TestAwardCoins_BudgetRecheckBlocksOverspend(t *testing.T) {
	repo := &awardRepoStub{
		recipient:    &domain.Employee{ID: uuid.New(), Email: "pat@example.com"},
		budgetAmount: 10000,
		usedAmount:   9500,
	}
	service := NewService(repo, nil, nil, Options{})

	_, err := service.AwardCoins(context.Background(), uuid.New(), domain.AwardRequest{
		RecipientEmail: "pat@example.com",
		Amount:         1000,
	})
	if !errors.Is(err, ErrAllotmentExceeded) {
		t.Fatalf("expected ErrAllotmentExceeded, got %v", err)
	}
	if len(repo.transactions) != 0 {
		t.Fatal("expected no ledger row for an over-budget award")
	}
}

func TestAwardCoins_ExactBudgetBoundaryPosts(t *testing.T) {
	repo := &awardRepoStub{
		recipient:    &domain.Employee{ID: uuid.New(), Email: "pat@example.com"},
		budgetAmount: 10000,
		usedAmount:   9000,
	}
	service := NewService(repo, nil, nil, Options{})

	// Using the budget exactly to the last unit is allowed.
	if _, err := service.AwardCoins(context.Background(), uuid.New(), domain.AwardRequest{
		RecipientEmail: "pat@example.com",
		Amount:         1000,
	}); err != nil {
		t.Fatalf("expected the boundary award to post, got %v", err)
	}
}

func TestAwardCoins_RejectsSelfAward(t *testing.T) {
	managerID := uuid.New()
	repo := &awardRepoStub{
		recipient:    &domain.Employee{ID: managerID, Email: "self@example.com"},
		budgetAmount: 10000,
	}
	service := NewService(repo, nil, nil, Options{})

	_, err := service.AwardCoins(context.Background(), managerID, domain.AwardRequest{
		RecipientEmail: "self@example.com",
		Amount:         100,
	})
	if !errors.Is(err, ErrSelfTransfer) {
		t.Fatalf("expected ErrSelfTransfer, got %v", err)
	}
}

func TestAwardCoins_RequiresRegisteredRecipient(t *testing.T) {
	repo := &awardRepoStub{budgetAmount: 10000}
	service := NewService(repo, nil, nil, Options{})

	_, err := service.AwardCoins(context.Background(), uuid.New(), domain.AwardRequest{
		RecipientEmail: "ghost@example.com",
		Amount:         100,
	})
	if !errors.Is(err, store.ErrEmployeeNotFound) {
		t.Fatalf("expected ErrEmployeeNotFound, got %v", err)
	}
}

// allotmentStatusRepoStub serves the read-side allotment view.
type allotmentStatusRepoStub struct {
	store.Repository

	budgetAmount int64
	usedAmount   int64
}

func (s *allotmentStatusRepoStub) FetchOrCreateAllotment(ctx context.Context, employeeID uuid.UUID, periodType domain.PeriodType, start, end time.Time, defaultAmount int64) (*domain.AllotmentBudget, error) {
	return &domain.AllotmentBudget{EmployeeID: employeeID, PeriodType: periodType, PeriodStart: start, PeriodEnd: end, Amount: s.budgetAmount}, nil
}

func (s *allotmentStatusRepoStub) SumPostedAwardsBySource(ctx context.Context, employeeID uuid.UUID, start, end time.Time) (int64, error) {
	return s.usedAmount, nil
}

func TestGetCurrentAllotment_RemainingIsClamped(t *testing.T) {
	repo := &allotmentStatusRepoStub{budgetAmount: 5000, usedAmount: 7000}
	service := NewService(repo, nil, nil, Options{})

	status, err := service.GetCurrentAllotment(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("expected allotment status, got %v", err)
	}
	if status.Used != 7000 {
		t.Fatalf("expected used=7000, got %d", status.Used)
	}
	if status.Remaining != 0 {
		t.Fatalf("expected remaining clamped to zero, got %d", status.Remaining)
	}
}
