package handlers

import (
	"encoding/json"
	"net/http"

	"wallet/internal/middleware"
	"wallet/internal/models"
	"wallet/internal/money"

	"github.com/go-chi/chi/v5"
)

func (h *Handler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	limit, offset := parsePagination(r)
	txType := r.URL.Query().Get("type")
	if txType != "" && txType != models.TransactionTypeCredit && txType != models.TransactionTypeDebit {
		respondError(w, http.StatusBadRequest, "invalid type filter")
		return
	}
	if search := r.URL.Query().Get("search"); search != "" {
		txns, err := h.transactions.Search(r.Context(), search, userID, limit, offset)
		if err != nil {
			respondServiceError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, transactionListJSON(txns))
		return
	}
	txns, err := h.transactions.ListByUser(r.Context(), userID, txType, limit, offset)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, transactionListJSON(txns))
}

func (h *Handler) GetTransaction(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	txn, err := h.transactions.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	if txn.UserID != userID {
		user, err := h.users.GetByID(r.Context(), userID)
		if err != nil || !user.IsAdmin() {
			respondError(w, http.StatusForbidden, "access denied")
			return
		}
	}
	respondJSON(w, http.StatusOK, transactionJSON(txn))
}

func (h *Handler) TransactionStats(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	ctx := r.Context()
	credits, err := h.transactions.SumByType(ctx, nil, userID, models.TransactionTypeCredit)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	debits, err := h.transactions.SumByType(ctx, nil, userID, models.TransactionTypeDebit)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	count, err := h.transactions.CountByUser(ctx, userID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"user_id":       userID,
		"total_credits": money.FormatMinor(credits),
		"total_debits":  money.FormatMinor(debits),
		"balance":       money.FormatMinor(credits - debits),
		"count":         count,
	})
}

type transferRequest struct {
	ToUserID    string `json:"to_user_id"`
	ToEmail     string `json:"to_email"`
	Amount      string `json:"amount"`
	Description string `json:"description"`
}

func (h *Handler) Transfer(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req transferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	amountMinor, err := parseAmountMinor(req.Amount)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_amount")
		return
	}
	toUserID := req.ToUserID
	if toUserID == "" {
		if req.ToEmail == "" {
			respondError(w, http.StatusBadRequest, "to_user_id or to_email is required")
			return
		}
		recipient, err := h.users.GetByEmail(r.Context(), req.ToEmail)
		if err != nil {
			respondError(w, http.StatusNotFound, "recipient not found")
			return
		}
		toUserID = recipient.ID
	}
	result, err := h.ledger.TransferMoney(r.Context(), userID, toUserID, userID, amountMinor, req.Description)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]any{
		"debit_transaction_id":  result.DebitTransactionID,
		"credit_transaction_id": result.CreditTransactionID,
		"balance":               money.FormatMinor(result.FromBalanceAfter),
	})
}

func (h *Handler) AdminListTransactions(w http.ResponseWriter, r *http.Request) {
	limit, offset := parsePagination(r)
	if refType := r.URL.Query().Get("reference_type"); refType != "" {
		kind := models.ReferenceKind(refType)
		if kind != models.ReferenceOrder && kind != models.ReferenceTransfer {
			respondError(w, http.StatusBadRequest, "invalid reference_type filter")
			return
		}
		refID := r.URL.Query().Get("reference_id")
		if refID == "" {
			respondError(w, http.StatusBadRequest, "reference_id is required")
			return
		}
		txns, err := h.transactions.ListByReference(r.Context(), models.Reference{Kind: kind, ID: refID})
		if err != nil {
			respondServiceError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, transactionListJSON(txns))
		return
	}
	if search := r.URL.Query().Get("search"); search != "" {
		txns, err := h.transactions.Search(r.Context(), search, r.URL.Query().Get("user_id"), limit, offset)
		if err != nil {
			respondServiceError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, transactionListJSON(txns))
		return
	}
	txns, err := h.transactions.ListAll(r.Context(), limit, offset)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, transactionListJSON(txns))
}
