package app

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/meritmint/ledger-service/internal/domain"
	"github.com/meritmint/ledger-service/internal/store"
)

// EmployeeEventConsumer reacts to events from the identity and wellness
// services: a registration claims any coins escrowed to the new employee's
// email, and a completed wellness activity posts its reward.
type EmployeeEventConsumer struct {
	service *Service
}

func NewEmployeeEventConsumer(service *Service) *EmployeeEventConsumer {
	return &EmployeeEventConsumer{service: service}
}

// HandleRegistered processes one employee.registered message. Returning
// true acknowledges the message; false re-queues it.
func (c *EmployeeEventConsumer) HandleRegistered(body []byte) bool {
	var event domain.EmployeeRegisteredEvent
	if err := json.Unmarshal(body, &event); err != nil {
		log.Printf("employee-consumer: failed to unmarshal registration payload: %v", err)
		return true
	}

	email := strings.TrimSpace(event.Email)
	if event.EmployeeID == uuid.Nil || email == "" {
		log.Printf("employee-consumer: incomplete registration event %+v; acknowledging to drop", event)
		return true
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := c.claimEscrow(ctx, event.EmployeeID, email); err != nil {
		log.Printf("employee-consumer: escrow claim error for %s: %v", event.EmployeeID, err)
		return false
	}
	return true
}

func (c *EmployeeEventConsumer) claimEscrow(ctx context.Context, employeeID uuid.UUID, email string) error {
	total, err := c.service.ClaimPendingTransfers(ctx, employeeID, email)
	if err != nil {
		return fmt.Errorf("claim pending transfers: %w", err)
	}
	if total > 0 {
		log.Printf("employee-consumer: released %d escrowed units to new employee %s", total, employeeID)
	}
	return nil
}

// HandleWellnessCompleted processes one wellness.completed message by
// posting the activity's reward to the employee's account.
func (c *EmployeeEventConsumer) HandleWellnessCompleted(body []byte) bool {
	var event domain.WellnessCompletedEvent
	if err := json.Unmarshal(body, &event); err != nil {
		log.Printf("employee-consumer: failed to unmarshal wellness payload: %v", err)
		return true
	}

	if event.EmployeeID == uuid.Nil || event.Reward <= 0 {
		log.Printf("employee-consumer: incomplete wellness event %+v; acknowledging to drop", event)
		return true
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	description := event.Activity
	if description == "" {
		description = "wellness activity"
	}

	err := c.service.repo.WithinTx(ctx, func(repo store.Repository) error {
		account, err := repo.FetchOrCreateAccount(ctx, event.EmployeeID)
		if err != nil {
			return err
		}
		_, err = grantPosted(ctx, repo, account.ID, domain.KindWellnessReward, event.Reward, description, nil, event.ActivityID)
		return err
	})
	if err != nil {
		log.Printf("employee-consumer: wellness reward error for %s: %v", event.EmployeeID, err)
		return false
	}
	return true
}
