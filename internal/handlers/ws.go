package handlers

import (
	"net/http"
	"strings"

	"wallet/internal/auth"
	"wallet/internal/money"
	"wallet/internal/websocket"
)

// WSBalance upgrades to a websocket that streams balance updates for the
// authenticated user. Browsers cannot set headers on websocket requests,
// so the token may also arrive as a query parameter.
func (h *Handler) WSBalance(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		authHeader := r.Header.Get("Authorization")
		if strings.HasPrefix(authHeader, "Bearer ") {
			token = strings.TrimPrefix(authHeader, "Bearer ")
		}
	}
	if token == "" {
		respondError(w, http.StatusUnauthorized, "missing token")
		return
	}
	claims, err := auth.ParseToken(h.cfg.JWTSecret, token)
	if err != nil {
		respondError(w, http.StatusUnauthorized, "invalid token")
		return
	}
	balance, err := h.ledger.Balance(r.Context(), claims.UserID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to load balance")
		return
	}
	websocket.ServeWS(w, r, h.hub, claims.UserID, websocket.BalanceUpdate{
		UserID:  claims.UserID,
		Balance: money.FormatMinor(balance),
	})
}
