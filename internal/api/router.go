/**
 * @description
 * This file sets up the HTTP router for the ledger-service. It defines the API
 * endpoints, associates them with their corresponding handlers, and applies any
 * necessary middleware, such as for authentication.
 *
 * @dependencies
 * - net/http: Standard Go library for HTTP functionality.
 * - github.com/go-chi/chi/v5: A lightweight and idiomatic router for Go.
 */

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// LedgerRoutes creates and returns a new router for the ledger service.
func LedgerRoutes(h *LedgerHandlers, jwtSecret, internalAPIKey string) http.Handler {
	r := chi.NewRouter()

	// Add standard middleware for logging, panic recovery, and timeouts.
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	// Health check endpoint
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("healthy"))
	})

	// Anyone can audit a past outcome; no token required.
	r.Post("/wager/verify", h.VerifyHandler)

	// Group routes that require authentication.
	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(jwtSecret))

		// Ledger
		r.Get("/balance", h.GetBalanceHandler)
		r.Get("/transactions", h.ListTransactionsHandler)
		r.Get("/transactions/pending", h.ListPendingTransactionsHandler)

		// Transfers
		r.Post("/transfers", h.TransferHandler)
		r.Delete("/transfers/pending/{transferID}", h.CancelPendingTransferHandler)

		// Wagering
		r.Get("/wager/games", h.ListGamesHandler)
		r.Post("/wager/play", h.PlayHandler)
		r.Post("/wager/daily-bonus", h.DailyBonusHandler)
		r.Get("/wager/stats", h.GameStatsHandler)
		r.Get("/jackpots", h.ListJackpotsHandler)

		// Allotments and awards
		r.Get("/allotment", h.GetAllotmentHandler)
		r.Post("/awards", h.AwardHandler)
		r.Get("/awards/history", h.AwardHistoryHandler)

		// Admin surface
		r.Group(func(r chi.Router) {
			r.Use(RequireAdmin)

			r.Get("/admin/bank", h.BankStatusHandler)
			r.Post("/admin/bank/deposit", h.BankDepositHandler)
			r.Post("/admin/bank/reenable", h.ReenableGamesHandler)

			r.Post("/admin/jackpots/{jackpotID}/fund", h.FundJackpotHandler)
			r.Post("/admin/jackpots/{jackpotID}/withdraw", h.WithdrawJackpotHandler)
			r.Put("/admin/jackpots/{jackpotID}/active", h.SetJackpotActiveHandler)
			r.Put("/admin/jackpots/{jackpotID}/adjust", h.AdjustJackpotHandler)
			r.Post("/admin/jackpots/{jackpotID}/draw", h.DrawJackpotHandler)

			r.Put("/admin/games/{kind}/enabled", h.SetGameEnabledHandler)

			r.Post("/admin/transactions", h.CreateTransactionHandler)
			r.Post("/admin/transactions/{transactionID}/post", h.PostTransactionHandler)
			r.Post("/admin/transactions/{transactionID}/reject", h.RejectTransactionHandler)
			r.Post("/admin/bulk-import", h.BulkImportHandler)
		})
	})

	// Service-to-service endpoints guarded by the shared key.
	r.Group(func(r chi.Router) {
		r.Use(InternalAPIKeyMiddleware(internalAPIKey))

		r.Post("/internal/transfers/claim", h.ClaimTransfersHandler)
	})

	return r
}
