package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/wakala/status-reconciler/internal/currency"
	"github.com/wakala/status-reconciler/internal/domain"
	"github.com/wakala/status-reconciler/internal/repository"
)

// Handlers groups all HTTP handler methods and their dependencies.
type Handlers struct {
	txnRepo   *repository.TransactionRepo
	cycleRepo *repository.CycleRepo
}

// --- helpers ---

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[api] encode error: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil || v < 1 {
		return def
	}
	return v
}

// --- Health ---

func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	if _, err := h.txnRepo.Count(); err != nil {
		writeError(w, http.StatusServiceUnavailable, "database unavailable: "+err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// --- ListTransactions ---

func (h *Handlers) ListTransactions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := repository.TransactionFilter{
		Status:    q.Get("status"),
		Direction: q.Get("direction"),
		Page:      parseIntDefault(q.Get("page"), 1),
		Limit:     parseIntDefault(q.Get("limit"), 50),
	}

	txns, total, err := h.txnRepo.List(filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if txns == nil {
		txns = []domain.Transaction{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"transactions": txns,
		"total":        total,
		"page":         filter.Page,
		"limit":        filter.Limit,
	})
}

// --- GetTransaction ---

func (h *Handlers) GetTransaction(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	txn, err := h.txnRepo.GetByID(id)
	if errors.Is(err, domain.ErrNotFound) {
		writeError(w, http.StatusNotFound, "transaction not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, txn)
}

// --- GetTransactionSummary ---

func (h *Handlers) GetTransactionSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.txnRepo.StatusSummary()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	type statusSummary struct {
		repository.StatusTotal
		USDEquivalent decimal.Decimal `json:"usd_equivalent"`
		Unconverted   []string        `json:"unconverted_currencies,omitempty"`
	}

	total := 0
	byStatus := make([]statusSummary, 0, len(summary))
	for _, s := range summary {
		total += s.Count
		usd, unsupported := currency.TotalUSD(s.Amounts)
		byStatus = append(byStatus, statusSummary{StatusTotal: s, USDEquivalent: usd, Unconverted: unsupported})
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"total":     total,
		"by_status": byStatus,
	})
}

// --- ListCycles ---

func (h *Handlers) ListCycles(w http.ResponseWriter, r *http.Request) {
	limit := parseIntDefault(r.URL.Query().Get("limit"), 20)

	cycles, err := h.cycleRepo.List(limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if cycles == nil {
		cycles = []domain.Cycle{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"cycles": cycles,
		"limit":  limit,
	})
}

// --- GetLatestCycle ---

func (h *Handlers) GetLatestCycle(w http.ResponseWriter, r *http.Request) {
	cycle, err := h.cycleRepo.Latest()
	if errors.Is(err, domain.ErrNotFound) {
		writeError(w, http.StatusNotFound, "no reconciliation cycle has run yet")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, cycle)
}
