package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/wakala/status-reconciler/internal/repository"
)

// NewRouter creates the Chi router for the read-only status API. Nothing
// here changes state or triggers a reconciliation cycle.
func NewRouter(txnRepo *repository.TransactionRepo, cycleRepo *repository.CycleRepo) http.Handler {
	h := &Handlers{
		txnRepo:   txnRepo,
		cycleRepo: cycleRepo,
	}

	r := chi.NewRouter()

	// Middleware.
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.SetHeader("Content-Type", "application/json"))

	r.Get("/healthz", h.Health)

	r.Route("/api/v1", func(r chi.Router) {
		// Transactions.
		r.Get("/transactions", h.ListTransactions)
		r.Get("/transactions/summary", h.GetTransactionSummary)
		r.Get("/transactions/{id}", h.GetTransaction)

		// Reconciliation cycles.
		r.Get("/cycles", h.ListCycles)
		r.Get("/cycles/latest", h.GetLatestCycle)
	})

	return r
}
