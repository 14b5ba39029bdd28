package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"wallet/internal/middleware"
	"wallet/internal/money"

	"github.com/go-chi/chi/v5"
)

// GetBalance returns the ledger-derived balance: sum of credits minus
// sum of debits, never the cached column.
func (h *Handler) GetBalance(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	balance, err := h.ledger.Balance(r.Context(), userID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"user_id": userID,
		"balance": money.FormatMinor(balance),
	})
}

func (h *Handler) Reconcile(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	h.reconcileUser(w, r, userID)
}

func (h *Handler) AdminReconcile(w http.ResponseWriter, r *http.Request) {
	h.reconcileUser(w, r, chi.URLParam(r, "id"))
}

func (h *Handler) reconcileUser(w http.ResponseWriter, r *http.Request, userID string) {
	summary, err := h.ledger.Reconcile(r.Context(), userID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"user_id":          summary.UserID,
		"computed_balance": money.FormatMinor(summary.Computed),
		"cached_balance":   money.FormatMinor(summary.Cached),
		"consistent":       summary.Consistent,
	})
}

type walletAdjustRequest struct {
	UserID      string `json:"user_id"`
	Amount      string `json:"amount"`
	Description string `json:"description"`
}

func (h *Handler) AdminAddMoney(w http.ResponseWriter, r *http.Request) {
	h.adminAdjustWallet(w, r, h.ledger.AddMoney)
}

func (h *Handler) AdminRemoveMoney(w http.ResponseWriter, r *http.Request) {
	h.adminAdjustWallet(w, r, h.ledger.RemoveMoney)
}

func (h *Handler) adminAdjustWallet(w http.ResponseWriter, r *http.Request, adjust func(ctx context.Context, userID, actorID string, amountMinor int64, description string) (string, error)) {
	actorID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req walletAdjustRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	if req.UserID == "" {
		respondError(w, http.StatusBadRequest, "user_id is required")
		return
	}
	amountMinor, err := parseAmountMinor(req.Amount)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_amount")
		return
	}
	transactionID, err := adjust(r.Context(), req.UserID, actorID, amountMinor, req.Description)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]string{
		"transaction_id": transactionID,
	})
}
