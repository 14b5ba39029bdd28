package handlers

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"wallet/internal/auth"
	"wallet/internal/models"
	"wallet/internal/services"
)

func bearerToken(t *testing.T, userID string) string {
	t.Helper()
	token, err := auth.GenerateToken("secret", userID, time.Minute)
	if err != nil {
		t.Fatalf("token: %v", err)
	}
	return "Bearer " + token
}

func TestLoginInvalidCredentials(t *testing.T) {
	hash, _ := auth.HashPassword("correct-password")
	handler := newTestHandler(handlerStubs{
		users: stubUserStore{
			getByEmailFn: func(_ context.Context, email string) (models.User, error) {
				if email != "alice@example.com" {
					return models.User{}, sql.ErrNoRows
				}
				return models.User{ID: "user-1", Email: email, PasswordHash: hash}, nil
			},
		},
	})
	router := handler.Routes()

	body := []byte(`{"email":"alice@example.com","password":"wrong"}`)
	req := httptest.NewRequest(http.MethodPost, "/auth/login", bytes.NewReader(body))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rr.Code)
	}

	body = []byte(`{"email":"alice@example.com","password":"correct-password"}`)
	req = httptest.NewRequest(http.MethodPost, "/auth/login", bytes.NewReader(body))
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if !strings.Contains(rr.Body.String(), "token") {
		t.Fatalf("expected token in response: %s", rr.Body.String())
	}
}

func TestGetBalanceUsesLedger(t *testing.T) {
	handler := newTestHandler(handlerStubs{
		ledger: stubLedgerService{
			balanceFn: func(_ context.Context, userID string) (int64, error) {
				if userID != "user-1" {
					t.Fatalf("unexpected user: %s", userID)
				}
				return 12345, nil
			},
		},
	})
	req := httptest.NewRequest(http.MethodGet, "/wallet/balance", nil)
	req.Header.Set("Authorization", bearerToken(t, "user-1"))
	rr := httptest.NewRecorder()
	handler.Routes().ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var resp map[string]string
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("bad response: %v", err)
	}
	if resp["balance"] != "123.45" {
		t.Fatalf("unexpected balance: %s", resp["balance"])
	}
}

func TestTransferRejectsBadAmount(t *testing.T) {
	handler := newTestHandler(handlerStubs{
		ledger: stubLedgerService{
			transferFn: func(context.Context, string, string, string, int64, string) (services.TransferResult, error) {
				t.Fatalf("transfer must not run")
				return services.TransferResult{}, nil
			},
		},
	})
	for _, amount := range []string{"0", "-5", "10.555", "abc", ""} {
		body, _ := json.Marshal(map[string]string{"to_user_id": "user-2", "amount": amount})
		req := httptest.NewRequest(http.MethodPost, "/transactions/transfer", bytes.NewReader(body))
		req.Header.Set("Authorization", bearerToken(t, "user-1"))
		rr := httptest.NewRecorder()
		handler.Routes().ServeHTTP(rr, req)
		if rr.Code != http.StatusBadRequest {
			t.Fatalf("amount %q: expected 400, got %d", amount, rr.Code)
		}
	}
}

func TestTransferInsufficientFundsMapsTo400(t *testing.T) {
	handler := newTestHandler(handlerStubs{
		ledger: stubLedgerService{
			transferFn: func(context.Context, string, string, string, int64, string) (services.TransferResult, error) {
				return services.TransferResult{}, services.ErrInsufficientFunds
			},
		},
	})
	body := []byte(`{"to_user_id":"user-2","amount":"50.00"}`)
	req := httptest.NewRequest(http.MethodPost, "/transactions/transfer", bytes.NewReader(body))
	req.Header.Set("Authorization", bearerToken(t, "user-1"))
	rr := httptest.NewRecorder()
	handler.Routes().ServeHTTP(rr, req)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "insufficient_funds") {
		t.Fatalf("unexpected body: %s", rr.Body.String())
	}
}

func TestCancelOrderEnforcesOwnership(t *testing.T) {
	handler := newTestHandler(handlerStubs{
		orders: stubOrderStore{
			getByIDFn: func(_ context.Context, orderID string) (models.Order, error) {
				return models.Order{ID: orderID, UserID: "someone-else", Status: models.OrderStatusPendingPayment}, nil
			},
		},
		orderSvc: stubOrderService{
			cancelFn: func(context.Context, string, string) error {
				t.Fatalf("cancel must not run")
				return nil
			},
		},
	})
	req := httptest.NewRequest(http.MethodPost, "/orders/order-1/cancel", nil)
	req.Header.Set("Authorization", bearerToken(t, "user-1"))
	rr := httptest.NewRecorder()
	handler.Routes().ServeHTTP(rr, req)
	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rr.Code)
	}
}

func TestCancelOrderReturnsOrderBody(t *testing.T) {
	handler := newTestHandler(handlerStubs{
		orders: stubOrderStore{
			getByIDFn: func(_ context.Context, orderID string) (models.Order, error) {
				return models.Order{ID: orderID, UserID: "user-1", Amount: 5500, Status: models.OrderStatusCancelled}, nil
			},
		},
	})
	req := httptest.NewRequest(http.MethodPost, "/orders/order-1/cancel", nil)
	req.Header.Set("Authorization", bearerToken(t, "user-1"))
	rr := httptest.NewRecorder()
	handler.Routes().ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var resp map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("bad response: %v", err)
	}
	if resp["id"] != "order-1" || resp["status"] != models.OrderStatusCancelled {
		t.Fatalf("expected the order back, got %#v", resp)
	}
	if resp["amount"] != "55.00" {
		t.Fatalf("unexpected amount: %v", resp["amount"])
	}
}

func TestInvalidOrderStateMapsTo409(t *testing.T) {
	handler := newTestHandler(handlerStubs{
		users: stubUserStore{
			getByIDFn: func(_ context.Context, userID string) (models.User, error) {
				return models.User{ID: userID, Role: models.RoleAdmin}, nil
			},
		},
		orderSvc: stubOrderService{
			processFn: func(context.Context, string, string) (services.ProcessResult, error) {
				return services.ProcessResult{}, services.ErrInvalidOrderState
			},
		},
	})
	req := httptest.NewRequest(http.MethodPost, "/admin/orders/order-1/process", nil)
	req.Header.Set("Authorization", bearerToken(t, "admin-1"))
	rr := httptest.NewRecorder()
	handler.Routes().ServeHTTP(rr, req)
	if rr.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d: %s", rr.Code, rr.Body.String())
	}
}

func TestAdminRoutesForbiddenForMerchant(t *testing.T) {
	handler := newTestHandler(handlerStubs{
		users: stubUserStore{
			getByIDFn: func(_ context.Context, userID string) (models.User, error) {
				return models.User{ID: userID, Role: models.RoleMerchant}, nil
			},
		},
	})
	router := handler.Routes()
	for _, route := range []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/admin/users"},
		{http.MethodGet, "/admin/orders"},
		{http.MethodPost, "/admin/wallet/add"},
		{http.MethodGet, "/admin/events"},
	} {
		req := httptest.NewRequest(route.method, route.path, bytes.NewReader([]byte(`{}`)))
		req.Header.Set("Authorization", bearerToken(t, "user-1"))
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		if rr.Code != http.StatusForbidden {
			t.Fatalf("%s %s: expected 403, got %d", route.method, route.path, rr.Code)
		}
	}
}

func TestAdminDeleteUserWithOrdersConflicts(t *testing.T) {
	handler := newTestHandler(handlerStubs{
		users: stubUserStore{
			getByIDFn: func(_ context.Context, userID string) (models.User, error) {
				return models.User{ID: userID, Role: models.RoleAdmin}, nil
			},
		},
		userSvc: stubUserService{
			deleteFn: func(context.Context, string) error {
				return services.ErrUserHasOrders
			},
		},
	})
	req := httptest.NewRequest(http.MethodDelete, "/admin/users/user-2", nil)
	req.Header.Set("Authorization", bearerToken(t, "admin-1"))
	rr := httptest.NewRecorder()
	handler.Routes().ServeHTTP(rr, req)
	if rr.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rr.Code)
	}
}

func TestEventHistoryRejectsUnknownAggregate(t *testing.T) {
	handler := newTestHandler(handlerStubs{
		users: stubUserStore{
			getByIDFn: func(_ context.Context, userID string) (models.User, error) {
				return models.User{ID: userID, Role: models.RoleAdmin}, nil
			},
		},
		events: stubEventStore{
			historyFn: func(context.Context, string, string) ([]models.Event, error) {
				t.Fatalf("history must not be queried")
				return nil, nil
			},
		},
	})
	req := httptest.NewRequest(http.MethodGet, "/admin/events/widget/widget-1", nil)
	req.Header.Set("Authorization", bearerToken(t, "admin-1"))
	rr := httptest.NewRecorder()
	handler.Routes().ServeHTTP(rr, req)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
}

func TestWSBalanceMissingToken(t *testing.T) {
	handler := newTestHandler(handlerStubs{})
	req := httptest.NewRequest(http.MethodGet, "/ws/balance", nil)
	rr := httptest.NewRecorder()
	handler.WSBalance(rr, req)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rr.Code)
	}
}

func TestWSBalanceInvalidToken(t *testing.T) {
	handler := newTestHandler(handlerStubs{})
	req := httptest.NewRequest(http.MethodGet, "/ws/balance?token=garbage", nil)
	rr := httptest.NewRecorder()
	handler.WSBalance(rr, req)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rr.Code)
	}
}

func TestRefundHandlerPassesZeroForFullRefund(t *testing.T) {
	var gotAmount int64 = -1
	handler := newTestHandler(handlerStubs{
		users: stubUserStore{
			getByIDFn: func(_ context.Context, userID string) (models.User, error) {
				return models.User{ID: userID, Role: models.RoleAdmin}, nil
			},
		},
		orderSvc: stubOrderService{
			refundFn: func(_ context.Context, orderID, _ string, amountMinor int64) (services.RefundResult, error) {
				gotAmount = amountMinor
				return services.RefundResult{OrderID: orderID, AmountMinor: 5500}, nil
			},
		},
	})
	req := httptest.NewRequest(http.MethodPost, "/admin/orders/order-1/refund", bytes.NewReader(nil))
	req.Header.Set("Authorization", bearerToken(t, "admin-1"))
	rr := httptest.NewRecorder()
	handler.Routes().ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if gotAmount != 0 {
		t.Fatalf("expected full refund request, got amount %d", gotAmount)
	}
}
