package handlers

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"wallet/internal/db"
	"wallet/internal/models"
	"wallet/internal/money"
	"wallet/internal/services"
	"wallet/internal/store"
)

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// respondServiceError maps domain errors onto the API's error contract.
func respondServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrInvalidAmount):
		respondError(w, http.StatusBadRequest, "invalid_amount")
	case errors.Is(err, services.ErrInsufficientFunds):
		respondError(w, http.StatusBadRequest, "insufficient_funds")
	case errors.Is(err, services.ErrSelfTransfer):
		respondError(w, http.StatusBadRequest, "self_transfer")
	case errors.Is(err, services.ErrRefundExceedsOrder):
		respondError(w, http.StatusBadRequest, "refund_exceeds_order")
	case errors.Is(err, services.ErrInvalidOrderState):
		respondError(w, http.StatusConflict, "invalid_order_state")
	case errors.Is(err, services.ErrEmailTaken):
		respondError(w, http.StatusConflict, "email_taken")
	case errors.Is(err, services.ErrUserHasOrders):
		respondError(w, http.StatusConflict, "user_has_orders")
	case errors.Is(err, store.ErrTransactionTypeImmutable):
		respondError(w, http.StatusConflict, "transaction_type_immutable")
	case errors.Is(err, sql.ErrNoRows):
		respondError(w, http.StatusNotFound, "not_found")
	case errors.Is(err, db.ErrRetryLimit):
		respondError(w, http.StatusServiceUnavailable, "transient_conflict")
	default:
		respondError(w, http.StatusInternalServerError, "internal_error")
	}
}

func parseInt(raw string, fallback int) int {
	value, err := strconv.Atoi(raw)
	if err != nil || value <= 0 {
		return fallback
	}
	return value
}

func parsePagination(r *http.Request) (limit, offset int) {
	query := r.URL.Query()
	page := parseInt(query.Get("page"), 1)
	limit = parseInt(query.Get("limit"), 20)
	if limit > 100 {
		limit = 100
	}
	return limit, (page - 1) * limit
}

func parseAmountMinor(raw string) (int64, error) {
	amount, err := money.ParseMinor(raw)
	if err != nil || amount <= 0 {
		return 0, services.ErrInvalidAmount
	}
	return amount, nil
}

func userJSON(user models.User) map[string]any {
	return map[string]any{
		"id":         user.ID,
		"name":       user.Name,
		"email":      user.Email,
		"role":       user.Role,
		"balance":    money.FormatMinor(user.Balance),
		"created_at": user.CreatedAt,
	}
}

func orderJSON(order models.Order) map[string]any {
	resp := map[string]any{
		"id":         order.ID,
		"user_id":    order.UserID,
		"title":      order.Title,
		"amount":     money.FormatMinor(order.Amount),
		"status":     order.Status,
		"created_at": order.CreatedAt,
		"updated_at": order.UpdatedAt,
	}
	if order.Description != nil {
		resp["description"] = *order.Description
	}
	if order.ExternalReference != nil {
		resp["external_reference"] = *order.ExternalReference
	}
	if len(order.Metadata) > 0 {
		resp["metadata"] = json.RawMessage(order.Metadata)
	}
	return resp
}

func transactionJSON(txn models.Transaction) map[string]any {
	resp := map[string]any{
		"id":             txn.ID,
		"user_id":        txn.UserID,
		"created_by":     txn.CreatedBy,
		"type":           txn.Type,
		"amount":         money.FormatMinor(txn.Amount),
		"description":    txn.Description,
		"balance_before": money.FormatMinor(txn.BalanceBefore),
		"balance_after":  money.FormatMinor(txn.BalanceAfter),
		"created_at":     txn.CreatedAt,
	}
	if ref := txn.Reference(); !ref.IsZero() {
		resp["reference"] = map[string]string{
			"type": string(ref.Kind),
			"id":   ref.ID,
		}
	}
	if len(txn.Metadata) > 0 {
		resp["metadata"] = json.RawMessage(txn.Metadata)
	}
	return resp
}

func eventJSON(event models.Event) map[string]any {
	resp := map[string]any{
		"id":             event.ID,
		"aggregate_type": event.AggregateType,
		"aggregate_id":   event.AggregateID,
		"event_type":     event.EventType,
		"version":        event.Version,
		"occurred_at":    event.OccurredAt,
	}
	if len(event.EventData) > 0 {
		resp["event_data"] = json.RawMessage(event.EventData)
	}
	if len(event.Metadata) > 0 {
		resp["metadata"] = json.RawMessage(event.Metadata)
	}
	return resp
}

func transactionListJSON(txns []models.Transaction) []map[string]any {
	out := make([]map[string]any, 0, len(txns))
	for _, txn := range txns {
		out = append(out, transactionJSON(txn))
	}
	return out
}

func orderListJSON(orders []models.Order) []map[string]any {
	out := make([]map[string]any, 0, len(orders))
	for _, order := range orders {
		out = append(out, orderJSON(order))
	}
	return out
}

func eventListJSON(events []models.Event) []map[string]any {
	out := make([]map[string]any, 0, len(events))
	for _, event := range events {
		out = append(out, eventJSON(event))
	}
	return out
}
