package app

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/meritmint/ledger-service/internal/domain"
)

func TestHandleRegistered_MalformedPayloadIsAcknowledged(t *testing.T) {
	consumer := NewEmployeeEventConsumer(NewService(newTransferStub(), nil, nil, Options{}))

	if !consumer.HandleRegistered([]byte("{not json")) {
		t.Fatal("expected malformed payloads dropped, not re-queued")
	}
}

func TestHandleRegistered_IncompleteEventIsAcknowledged(t *testing.T) {
	consumer := NewEmployeeEventConsumer(NewService(newTransferStub(), nil, nil, Options{}))

	body, _ := json.Marshal(domain.EmployeeRegisteredEvent{Email: "newhire@example.com"})
	if !consumer.HandleRegistered(body) {
		t.Fatal("expected an event without an employee id dropped")
	}
}

func TestHandleRegistered_ClaimsEscrowedTransfers(t *testing.T) {
	repo := newTransferStub()
	employeeID := uuid.New()
	account := repo.addAccount(employeeID, 0)
	senderID := uuid.New()
	senderAccount := repo.addAccount(senderID, 800)
	repo.addEscrow(senderID, senderAccount, "newhire@example.com", 800, time.Now().UTC())
	consumer := NewEmployeeEventConsumer(NewService(repo, nil, nil, Options{}))

	body, _ := json.Marshal(domain.EmployeeRegisteredEvent{
		EmployeeID: employeeID,
		Email:      "newhire@example.com",
		Timestamp:  time.Now().UTC(),
	})
	if !consumer.HandleRegistered(body) {
		t.Fatal("expected a successful claim to acknowledge")
	}
	if repo.balances[account] != 800 {
		t.Fatalf("expected escrowed 800 credited on registration, got %d", repo.balances[account])
	}
	if repo.balances[senderAccount] != 0 {
		t.Fatalf("expected the sender's held debit posted, balance=0, got %d", repo.balances[senderAccount])
	}
	if repo.pending[0].Status != domain.TransferClaimed {
		t.Fatalf("expected the escrow row claimed, got %s", repo.pending[0].Status)
	}
}

func TestHandleWellnessCompleted_PostsReward(t *testing.T) {
	repo := newTransferStub()
	employeeID := uuid.New()
	account := repo.addAccount(employeeID, 0)
	consumer := NewEmployeeEventConsumer(NewService(repo, nil, nil, Options{}))

	activityID := uuid.New()
	body, _ := json.Marshal(domain.WellnessCompletedEvent{
		EmployeeID: employeeID,
		ActivityID: &activityID,
		Activity:   "step challenge",
		Reward:     250,
		Timestamp:  time.Now().UTC(),
	})
	if !consumer.HandleWellnessCompleted(body) {
		t.Fatal("expected a successful reward to acknowledge")
	}
	if repo.balances[account] != 250 {
		t.Fatalf("expected reward of 250 credited, got %d", repo.balances[account])
	}
	if len(repo.transactions) != 1 || repo.transactions[0].Kind != domain.KindWellnessReward {
		t.Fatalf("expected one wellness_reward row, got %v", repo.transactions)
	}
	if repo.transactions[0].LinkID == nil || *repo.transactions[0].LinkID != activityID {
		t.Fatal("expected the reward linked to the activity")
	}
}

func TestHandleWellnessCompleted_NonPositiveRewardIsDropped(t *testing.T) {
	repo := newTransferStub()
	consumer := NewEmployeeEventConsumer(NewService(repo, nil, nil, Options{}))

	body, _ := json.Marshal(domain.WellnessCompletedEvent{
		EmployeeID: uuid.New(),
		Reward:     0,
	})
	if !consumer.HandleWellnessCompleted(body) {
		t.Fatal("expected a zero reward dropped")
	}
	if len(repo.transactions) != 0 {
		t.Fatal("expected no ledger rows")
	}
}
