package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"wallet/internal/middleware"
	"wallet/internal/money"
	"wallet/internal/services"

	"github.com/go-chi/chi/v5"
)

func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	limit, offset := parsePagination(r)
	if search := r.URL.Query().Get("search"); search != "" {
		orders, err := h.orders.Search(r.Context(), search, userID, limit, offset)
		if err != nil {
			respondServiceError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, orderListJSON(orders))
		return
	}
	orders, err := h.orders.ListByUser(r.Context(), userID, limit, offset)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, orderListJSON(orders))
}

type createOrderRequest struct {
	Title             string          `json:"title"`
	Description       *string         `json:"description"`
	Amount            string          `json:"amount"`
	ExternalReference *string         `json:"external_reference"`
	Metadata          json.RawMessage `json:"metadata"`
}

func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	amountMinor, err := parseAmountMinor(req.Amount)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_amount")
		return
	}
	order, err := h.orderSvc.Create(r.Context(), services.CreateOrderRequest{
		UserID:            userID,
		Title:             req.Title,
		Description:       req.Description,
		AmountMinor:       amountMinor,
		ExternalReference: req.ExternalReference,
		Metadata:          req.Metadata,
	})
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, orderJSON(order))
}

func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	order, err := h.orders.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	if order.UserID != userID {
		user, err := h.users.GetByID(r.Context(), userID)
		if err != nil || !user.IsAdmin() {
			respondError(w, http.StatusForbidden, "access denied")
			return
		}
	}
	resp := orderJSON(order)
	resp["available_transitions"] = order.AvailableTransitions()
	respondJSON(w, http.StatusOK, resp)
}

// CancelOrder lets an owner abort their own pending order.
func (h *Handler) CancelOrder(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	orderID := chi.URLParam(r, "id")
	order, err := h.orders.GetByID(r.Context(), orderID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	if order.UserID != userID {
		respondError(w, http.StatusForbidden, "access denied")
		return
	}
	if err := h.orderSvc.Cancel(r.Context(), orderID, userID); err != nil {
		respondServiceError(w, err)
		return
	}
	order, err = h.orders.GetByID(r.Context(), orderID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, orderJSON(order))
}

func (h *Handler) AdminListOrders(w http.ResponseWriter, r *http.Request) {
	limit, offset := parsePagination(r)
	if search := r.URL.Query().Get("search"); search != "" {
		orders, err := h.orders.Search(r.Context(), search, r.URL.Query().Get("user_id"), limit, offset)
		if err != nil {
			respondServiceError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, orderListJSON(orders))
		return
	}
	orders, err := h.orders.ListAll(r.Context(), limit, offset)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, orderListJSON(orders))
}

func (h *Handler) AdminOrderStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.orderSvc.Stats(r.Context(), r.URL.Query().Get("user_id"))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"total_orders":     stats.TotalOrders,
		"pending_orders":   stats.PendingOrders,
		"completed_orders": stats.CompletedOrders,
		"cancelled_orders": stats.CancelledOrders,
		"refunded_orders":  stats.RefundedOrders,
		"completed_amount": money.FormatMinor(stats.CompletedAmount),
	})
}

func (h *Handler) AdminProcessOrder(w http.ResponseWriter, r *http.Request) {
	actorID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	result, err := h.orderSvc.Process(r.Context(), chi.URLParam(r, "id"), actorID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"order_id":       result.OrderID,
		"transaction_id": result.TransactionID,
		"balance":        money.FormatMinor(result.BalanceAfter),
	})
}

func (h *Handler) AdminCancelOrder(w http.ResponseWriter, r *http.Request) {
	actorID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	orderID := chi.URLParam(r, "id")
	if err := h.orderSvc.Cancel(r.Context(), orderID, actorID); err != nil {
		respondServiceError(w, err)
		return
	}
	order, err := h.orders.GetByID(r.Context(), orderID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, orderJSON(order))
}

type refundRequest struct {
	Amount string `json:"amount"`
}

// AdminRefundOrder reverses a completed order. An omitted or empty amount
// refunds the full order amount.
func (h *Handler) AdminRefundOrder(w http.ResponseWriter, r *http.Request) {
	actorID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req refundRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		respondError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	var amountMinor int64
	if req.Amount != "" {
		parsed, err := parseAmountMinor(req.Amount)
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid_amount")
			return
		}
		amountMinor = parsed
	}
	result, err := h.orderSvc.Refund(r.Context(), chi.URLParam(r, "id"), actorID, amountMinor)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"order_id":       result.OrderID,
		"transaction_id": result.TransactionID,
		"amount":         money.FormatMinor(result.AmountMinor),
		"balance":        money.FormatMinor(result.BalanceAfter),
	})
}
