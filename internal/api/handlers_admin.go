/**
 * @description
 * Admin and service-to-service handlers: bank liquidity, jackpot management,
 * game catalog toggles, transaction lifecycle control, and the bulk import.
 *
 * @dependencies
 * - encoding/json, net/http: Standard Go libraries.
 * - internal/app, internal/domain: For service logic and models.
 */

package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/meritmint/ledger-service/internal/domain"
)

// BankStatusHandler returns the bank balance and kill-switch state.
func (h *LedgerHandlers) BankStatusHandler(w http.ResponseWriter, r *http.Request) {
	bank, err := h.service.GetBankStatus(r.Context())
	if err != nil {
		h.writeServiceError(w, "bank_status", err)
		return
	}
	h.writeJSON(w, http.StatusOK, bank)
}

// BankDepositHandler credits house liquidity.
func (h *LedgerHandlers) BankDepositHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Amount int64 `json:"amount"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid request body: %v", err))
		return
	}
	balance, err := h.service.DepositToBank(r.Context(), req.Amount)
	if err != nil {
		h.writeServiceError(w, "bank_deposit", err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]int64{"balance": balance})
}

// ReenableGamesHandler clears the depletion kill switch.
func (h *LedgerHandlers) ReenableGamesHandler(w http.ResponseWriter, r *http.Request) {
	if err := h.service.ReenableGames(r.Context()); err != nil {
		h.writeServiceError(w, "reenable_games", err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "enabled"})
}

func (h *LedgerHandlers) jackpotID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "jackpotID"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid jackpot ID")
		return uuid.Nil, false
	}
	return id, true
}

// FundJackpotHandler moves house liquidity from the bank into a jackpot.
func (h *LedgerHandlers) FundJackpotHandler(w http.ResponseWriter, r *http.Request) {
	jackpotID, ok := h.jackpotID(w, r)
	if !ok {
		return
	}
	var req struct {
		Amount int64 `json:"amount"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid request body: %v", err))
		return
	}
	if err := h.service.TransferBankToJackpot(r.Context(), jackpotID, req.Amount); err != nil {
		h.writeServiceError(w, "fund_jackpot", err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "funded"})
}

// WithdrawJackpotHandler moves liquidity from a jackpot back into the bank.
func (h *LedgerHandlers) WithdrawJackpotHandler(w http.ResponseWriter, r *http.Request) {
	jackpotID, ok := h.jackpotID(w, r)
	if !ok {
		return
	}
	var req struct {
		Amount int64 `json:"amount"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid request body: %v", err))
		return
	}
	if err := h.service.TransferJackpotToBank(r.Context(), jackpotID, req.Amount); err != nil {
		h.writeServiceError(w, "withdraw_jackpot", err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "withdrawn"})
}

// SetJackpotActiveHandler toggles a jackpot pool.
func (h *LedgerHandlers) SetJackpotActiveHandler(w http.ResponseWriter, r *http.Request) {
	jackpotID, ok := h.jackpotID(w, r)
	if !ok {
		return
	}
	var req struct {
		Active bool `json:"active"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid request body: %v", err))
		return
	}
	if err := h.service.SetJackpotActive(r.Context(), jackpotID, req.Active); err != nil {
		h.writeServiceError(w, "set_jackpot_active", err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]bool{"active": req.Active})
}

// AdjustJackpotHandler applies a signed admin correction to a jackpot.
func (h *LedgerHandlers) AdjustJackpotHandler(w http.ResponseWriter, r *http.Request) {
	jackpotID, ok := h.jackpotID(w, r)
	if !ok {
		return
	}
	var req struct {
		Delta int64 `json:"delta"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid request body: %v", err))
		return
	}
	balance, err := h.service.AdjustJackpot(r.Context(), jackpotID, req.Delta)
	if err != nil {
		h.writeServiceError(w, "adjust_jackpot", err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]int64{"balance": balance})
}

// DrawJackpotHandler runs the weighted drawing for one jackpot.
func (h *LedgerHandlers) DrawJackpotHandler(w http.ResponseWriter, r *http.Request) {
	jackpotID, ok := h.jackpotID(w, r)
	if !ok {
		return
	}
	result, err := h.service.TriggerJackpotDrawing(r.Context(), jackpotID)
	if err != nil {
		h.writeServiceError(w, "draw_jackpot", err)
		return
	}
	if result == nil {
		h.writeJSON(w, http.StatusOK, map[string]string{"status": "skipped"})
		return
	}
	h.writeJSON(w, http.StatusOK, result)
}

// SetGameEnabledHandler toggles one game in the catalog.
func (h *LedgerHandlers) SetGameEnabledHandler(w http.ResponseWriter, r *http.Request) {
	kind := domain.GameKind(chi.URLParam(r, "kind"))
	var req struct {
		Enabled bool `json:"enabled"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid request body: %v", err))
		return
	}
	if err := h.service.SetGameEnabled(r.Context(), kind, req.Enabled); err != nil {
		h.writeServiceError(w, "set_game_enabled", err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]bool{"enabled": req.Enabled})
}

// CreateTransactionHandler records a pending transaction for an employee.
// Used by operators for manual adjustments and by sibling services.
func (h *LedgerHandlers) CreateTransactionHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		EmployeeID  uuid.UUID              `json:"employee_id"`
		Kind        domain.TransactionKind `json:"kind"`
		Amount      int64                  `json:"amount"`
		Description string                 `json:"description"`
		LinkID      *uuid.UUID             `json:"link_id,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid request body: %v", err))
		return
	}
	if req.EmployeeID == uuid.Nil {
		h.writeError(w, http.StatusBadRequest, "employee_id is required")
		return
	}

	tx, err := h.service.CreatePendingTransaction(r.Context(), req.EmployeeID, req.Kind, req.Amount, req.Description, req.LinkID)
	if err != nil {
		if errors.Is(err, domain.ErrUnknownTransactionKind) {
			h.writeError(w, http.StatusBadRequest, fmt.Sprintf("Unknown transaction kind %q", req.Kind))
			return
		}
		h.writeServiceError(w, "create_transaction", err)
		return
	}
	h.writeJSON(w, http.StatusCreated, tx)
}

// PostTransactionHandler posts a pending transaction.
func (h *LedgerHandlers) PostTransactionHandler(w http.ResponseWriter, r *http.Request) {
	transactionID, err := uuid.Parse(chi.URLParam(r, "transactionID"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid transaction ID")
		return
	}
	tx, err := h.service.PostTransaction(r.Context(), transactionID)
	if err != nil {
		h.writeServiceError(w, "post_transaction", err)
		return
	}
	h.writeJSON(w, http.StatusOK, tx)
}

// RejectTransactionHandler rejects a pending transaction.
func (h *LedgerHandlers) RejectTransactionHandler(w http.ResponseWriter, r *http.Request) {
	transactionID, err := uuid.Parse(chi.URLParam(r, "transactionID"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid transaction ID")
		return
	}
	if err := h.service.RejectTransaction(r.Context(), transactionID); err != nil {
		h.writeServiceError(w, "reject_transaction", err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "rejected"})
}

// BulkImportHandler posts an all-or-nothing batch of import credits.
func (h *LedgerHandlers) BulkImportHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Description string                `json:"description"`
		Rows        []domain.AwardRequest `json:"rows"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid request body: %v", err))
		return
	}
	imported, err := h.service.BulkImport(r.Context(), req.Rows, req.Description)
	if err != nil {
		h.writeServiceError(w, "bulk_import", err)
		return
	}
	h.writeJSON(w, http.StatusCreated, map[string]int{"imported": imported})
}

// ClaimTransfersHandler releases escrowed transfers to a newly registered
// employee. Called by the identity service.
func (h *LedgerHandlers) ClaimTransfersHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		EmployeeID uuid.UUID `json:"employee_id"`
		Email      string    `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid request body: %v", err))
		return
	}
	if req.EmployeeID == uuid.Nil || req.Email == "" {
		h.writeError(w, http.StatusBadRequest, "employee_id and email are required")
		return
	}

	total, err := h.service.ClaimPendingTransfers(r.Context(), req.EmployeeID, req.Email)
	if err != nil {
		h.writeServiceError(w, "claim_transfers", err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]int64{"claimed_total": total})
}
