/**
 * @description
 * This file contains the HTTP handlers for the ledger-service's API endpoints.
 * Handlers are responsible for parsing incoming requests, calling the appropriate
 * methods on the application service, and writing the HTTP response. They act as the
 * bridge between the web layer and the business logic layer.
 *
 * @dependencies
 * - encoding/json, log, net/http: Standard Go libraries.
 * - internal/app, internal/domain, internal/store: For service logic, models, and custom errors.
 */

package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/meritmint/ledger-service/internal/app"
	"github.com/meritmint/ledger-service/internal/domain"
	"github.com/meritmint/ledger-service/internal/games"
	"github.com/meritmint/ledger-service/internal/store"
)

// LedgerHandlers holds the application service that handlers will use.
type LedgerHandlers struct {
	service *app.Service
}

// NewLedgerHandlers creates a new instance of LedgerHandlers.
func NewLedgerHandlers(service *app.Service) *LedgerHandlers {
	return &LedgerHandlers{service: service}
}

func (h *LedgerHandlers) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// writeError is a helper for writing JSON error responses.
func (h *LedgerHandlers) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}

// callerID extracts the authenticated employee, failing the request when the
// auth middleware did not run.
func (h *LedgerHandlers) callerID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	employeeID, ok := GetEmployeeID(r.Context())
	if !ok {
		h.writeError(w, http.StatusInternalServerError, "Could not get employee ID from context")
		return uuid.Nil, false
	}
	return employeeID, true
}

// writeServiceError maps the service's sentinel errors onto HTTP statuses.
func (h *LedgerHandlers) writeServiceError(w http.ResponseWriter, endpoint string, err error) {
	switch {
	case errors.Is(err, store.ErrInsufficientFunds):
		h.writeError(w, http.StatusPaymentRequired, "Insufficient coins")
	case errors.Is(err, store.ErrEmployeeNotFound):
		h.writeError(w, http.StatusNotFound, "Employee not found")
	case errors.Is(err, store.ErrTransactionNotFound),
		errors.Is(err, store.ErrTransferNotFound),
		errors.Is(err, store.ErrJackpotNotFound),
		errors.Is(err, store.ErrGameConfigNotFound):
		h.writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, store.ErrTransactionNotPending),
		errors.Is(err, store.ErrTransferNotPending):
		h.writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, store.ErrBonusAlreadyClaimed):
		h.writeError(w, http.StatusConflict, "Daily bonus already claimed today")
	case errors.Is(err, app.ErrInvalidAmount),
		errors.Is(err, app.ErrSelfTransfer),
		errors.Is(err, app.ErrBetOutOfRange),
		errors.Is(err, games.ErrInvalidPrediction):
		h.writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, app.ErrGamesDisabled),
		errors.Is(err, app.ErrGameNotEnabled):
		h.writeError(w, http.StatusServiceUnavailable, err.Error())
	case errors.Is(err, app.ErrRateLimited):
		h.writeError(w, http.StatusTooManyRequests, err.Error())
	case errors.Is(err, app.ErrAllotmentExceeded):
		h.writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, app.ErrNotTransferOwner):
		h.writeError(w, http.StatusForbidden, err.Error())
	default:
		log.Printf("level=error component=api endpoint=%s msg=\"unhandled service error\" err=%v", endpoint, err)
		h.writeError(w, http.StatusInternalServerError, "Internal server error")
	}
}

// GetBalanceHandler returns the caller's posted, pending, and total balance.
func (h *LedgerHandlers) GetBalanceHandler(w http.ResponseWriter, r *http.Request) {
	employeeID, ok := h.callerID(w, r)
	if !ok {
		return
	}
	balance, err := h.service.GetAccountBalance(r.Context(), employeeID)
	if err != nil {
		h.writeServiceError(w, "get_balance", err)
		return
	}
	h.writeJSON(w, http.StatusOK, balance)
}

// ListTransactionsHandler returns a filtered page of the caller's ledger.
func (h *LedgerHandlers) ListTransactionsHandler(w http.ResponseWriter, r *http.Request) {
	employeeID, ok := h.callerID(w, r)
	if !ok {
		return
	}

	filter := domain.TransactionFilter{}
	if kind := strings.TrimSpace(r.URL.Query().Get("kind")); kind != "" {
		k := domain.TransactionKind(kind)
		if _, err := k.Sign(); err != nil {
			h.writeError(w, http.StatusBadRequest, fmt.Sprintf("Unknown transaction kind %q", kind))
			return
		}
		filter.Kind = &k
	}
	if status := strings.TrimSpace(r.URL.Query().Get("status")); status != "" {
		st := domain.TransactionStatus(status)
		filter.Status = &st
	}
	filter.Limit, _ = strconv.Atoi(r.URL.Query().Get("limit"))
	filter.Offset, _ = strconv.Atoi(r.URL.Query().Get("offset"))

	transactions, err := h.service.GetTransactionHistory(r.Context(), employeeID, filter)
	if err != nil {
		h.writeServiceError(w, "list_transactions", err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{"transactions": transactions})
}

// ListPendingTransactionsHandler returns the caller's pending rows.
func (h *LedgerHandlers) ListPendingTransactionsHandler(w http.ResponseWriter, r *http.Request) {
	employeeID, ok := h.callerID(w, r)
	if !ok {
		return
	}
	pending, err := h.service.GetPendingTransactions(r.Context(), employeeID)
	if err != nil {
		h.writeServiceError(w, "list_pending_transactions", err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{"transactions": pending})
}

// TransferHandler moves coins to another employee, escrowing when the
// recipient has not registered yet.
func (h *LedgerHandlers) TransferHandler(w http.ResponseWriter, r *http.Request) {
	employeeID, ok := h.callerID(w, r)
	if !ok {
		return
	}

	var req domain.TransferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid request body: %v", err))
		return
	}

	result, err := h.service.TransferCoins(r.Context(), employeeID, req)
	if err != nil {
		h.writeServiceError(w, "transfer", err)
		return
	}
	h.writeJSON(w, http.StatusCreated, result)
}

// CancelPendingTransferHandler revokes one of the caller's escrowed
// transfers, releasing the held debit.
func (h *LedgerHandlers) CancelPendingTransferHandler(w http.ResponseWriter, r *http.Request) {
	employeeID, ok := h.callerID(w, r)
	if !ok {
		return
	}
	transferID, err := uuid.Parse(chi.URLParam(r, "transferID"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid transfer ID")
		return
	}
	if err := h.service.CancelPendingTransfer(r.Context(), employeeID, transferID); err != nil {
		h.writeServiceError(w, "cancel_pending_transfer", err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "cancelled"})
}

// PlayHandler runs one wager.
func (h *LedgerHandlers) PlayHandler(w http.ResponseWriter, r *http.Request) {
	employeeID, ok := h.callerID(w, r)
	if !ok {
		return
	}

	var req domain.PlayRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid request body: %v", err))
		return
	}

	result, err := h.service.PlayGame(r.Context(), employeeID, req)
	if err != nil {
		h.writeServiceError(w, "play", err)
		return
	}
	h.writeJSON(w, http.StatusOK, result)
}

// DailyBonusHandler claims the once-per-day free prize. The body is
// optional; a caller who wants to pin the client seed may supply one.
func (h *LedgerHandlers) DailyBonusHandler(w http.ResponseWriter, r *http.Request) {
	employeeID, ok := h.callerID(w, r)
	if !ok {
		return
	}

	var req struct {
		ClientSeed string `json:"client_seed"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		h.writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid request body: %v", err))
		return
	}

	result, err := h.service.PlayDailyBonus(r.Context(), employeeID, req.ClientSeed)
	if err != nil {
		h.writeServiceError(w, "daily_bonus", err)
		return
	}
	h.writeJSON(w, http.StatusOK, result)
}

// VerifyHandler recomputes a past outcome from its revealed seeds. It needs
// no authentication: the whole point is that anyone can check.
func (h *LedgerHandlers) VerifyHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		domain.VerifyRequest
		ServerSeedHash string `json:"server_seed_hash,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid request body: %v", err))
		return
	}
	if req.ServerSeed == "" || req.ClientSeed == "" {
		h.writeError(w, http.StatusBadRequest, "server_seed and client_seed are required")
		return
	}
	h.writeJSON(w, http.StatusOK, h.service.VerifyOutcome(req.VerifyRequest, req.ServerSeedHash))
}

// ListGamesHandler returns the game catalog.
func (h *LedgerHandlers) ListGamesHandler(w http.ResponseWriter, r *http.Request) {
	configs, err := h.service.ListGameConfigs(r.Context())
	if err != nil {
		h.writeServiceError(w, "list_games", err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{"games": configs})
}

// GameStatsHandler returns the caller's lifetime wagering stats.
func (h *LedgerHandlers) GameStatsHandler(w http.ResponseWriter, r *http.Request) {
	employeeID, ok := h.callerID(w, r)
	if !ok {
		return
	}
	stats, err := h.service.GetGameStats(r.Context(), employeeID)
	if err != nil {
		h.writeServiceError(w, "game_stats", err)
		return
	}
	h.writeJSON(w, http.StatusOK, stats)
}

// GetAllotmentHandler returns the caller's current award budget.
func (h *LedgerHandlers) GetAllotmentHandler(w http.ResponseWriter, r *http.Request) {
	employeeID, ok := h.callerID(w, r)
	if !ok {
		return
	}
	status, err := h.service.GetCurrentAllotment(r.Context(), employeeID)
	if err != nil {
		h.writeServiceError(w, "get_allotment", err)
		return
	}
	h.writeJSON(w, http.StatusOK, status)
}

// AwardHandler grants coins from the caller's allotment.
func (h *LedgerHandlers) AwardHandler(w http.ResponseWriter, r *http.Request) {
	employeeID, ok := h.callerID(w, r)
	if !ok {
		return
	}

	var req domain.AwardRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid request body: %v", err))
		return
	}

	tx, err := h.service.AwardCoins(r.Context(), employeeID, req)
	if err != nil {
		h.writeServiceError(w, "award", err)
		return
	}
	h.writeJSON(w, http.StatusCreated, tx)
}

// AwardHistoryHandler pages through the caller's granted awards.
func (h *LedgerHandlers) AwardHistoryHandler(w http.ResponseWriter, r *http.Request) {
	employeeID, ok := h.callerID(w, r)
	if !ok {
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	awards, err := h.service.GetAwardHistory(r.Context(), employeeID, limit, offset)
	if err != nil {
		h.writeServiceError(w, "award_history", err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{"awards": awards})
}

// ListJackpotsHandler returns every jackpot pool.
func (h *LedgerHandlers) ListJackpotsHandler(w http.ResponseWriter, r *http.Request) {
	jackpots, err := h.service.ListJackpots(r.Context())
	if err != nil {
		h.writeServiceError(w, "list_jackpots", err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{"jackpots": jackpots})
}
