/**
 * @description
 * Domain models for manager award allotments: a period-bounded budget whose
 * spent portion is derived from posted award transactions rather than stored,
 * so the ledger stays the single source of truth.
 */

package domain

import (
	"time"

	"github.com/google/uuid"
)

// PeriodType is the granularity of an allotment budget period.
type PeriodType string

const (
	PeriodMonthly   PeriodType = "monthly"
	PeriodQuarterly PeriodType = "quarterly"
)

// AllotmentBudget is one manager's budget for one period. Used amounts are
// never written here; they are summed from posted award transactions inside
// the period bounds.
type AllotmentBudget struct {
	ID          uuid.UUID  `json:"id"`
	EmployeeID  uuid.UUID  `json:"employee_id"`
	PeriodType  PeriodType `json:"period_type"`
	PeriodStart time.Time  `json:"period_start"`
	PeriodEnd   time.Time  `json:"period_end"`
	Amount      int64      `json:"amount"`
	CreatedAt   time.Time  `json:"created_at"`
}

// AllotmentStatus is the derived view returned to callers.
type AllotmentStatus struct {
	Budget    AllotmentBudget `json:"budget"`
	Used      int64           `json:"used"`
	Remaining int64           `json:"remaining"`
}

// AwardRequest is the DTO for a manager awarding coins to an employee.
type AwardRequest struct {
	RecipientEmail string `json:"recipient_email"`
	Amount         int64  `json:"amount"`
	Description    string `json:"description"`
}
