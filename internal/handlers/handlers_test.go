package handlers

import (
	"context"
	"time"

	"wallet/internal/config"
	"wallet/internal/models"
	"wallet/internal/services"
	"wallet/internal/store"
	"wallet/internal/websocket"
)

type stubUserStore struct {
	getByIDFn    func(ctx context.Context, userID string) (models.User, error)
	getByEmailFn func(ctx context.Context, email string) (models.User, error)
	listFn       func(ctx context.Context, limit, offset int) ([]models.User, error)
	searchFn     func(ctx context.Context, query string, limit, offset int) ([]models.User, error)
}

func (s stubUserStore) GetByID(ctx context.Context, userID string) (models.User, error) {
	if s.getByIDFn == nil {
		return models.User{ID: userID, Role: models.RoleMerchant}, nil
	}
	return s.getByIDFn(ctx, userID)
}

func (s stubUserStore) GetByEmail(ctx context.Context, email string) (models.User, error) {
	if s.getByEmailFn == nil {
		return models.User{}, nil
	}
	return s.getByEmailFn(ctx, email)
}

func (s stubUserStore) List(ctx context.Context, limit, offset int) ([]models.User, error) {
	if s.listFn == nil {
		return nil, nil
	}
	return s.listFn(ctx, limit, offset)
}

func (s stubUserStore) Search(ctx context.Context, query string, limit, offset int) ([]models.User, error) {
	if s.searchFn == nil {
		return nil, nil
	}
	return s.searchFn(ctx, query, limit, offset)
}

type stubOrderStore struct {
	getByIDFn func(ctx context.Context, orderID string) (models.Order, error)
}

func (s stubOrderStore) GetByID(ctx context.Context, orderID string) (models.Order, error) {
	if s.getByIDFn == nil {
		return models.Order{ID: orderID}, nil
	}
	return s.getByIDFn(ctx, orderID)
}

func (s stubOrderStore) ListByUser(context.Context, string, int, int) ([]models.Order, error) {
	return nil, nil
}

func (s stubOrderStore) ListAll(context.Context, int, int) ([]models.Order, error) {
	return nil, nil
}

func (s stubOrderStore) Search(context.Context, string, string, int, int) ([]models.Order, error) {
	return nil, nil
}

type stubTransactionStore struct {
	getByIDFn   func(ctx context.Context, transactionID string) (models.Transaction, error)
	sumByTypeFn func(ctx context.Context, q store.Getter, userID, txType string) (int64, error)
}

func (s stubTransactionStore) GetByID(ctx context.Context, transactionID string) (models.Transaction, error) {
	if s.getByIDFn == nil {
		return models.Transaction{ID: transactionID}, nil
	}
	return s.getByIDFn(ctx, transactionID)
}

func (s stubTransactionStore) ListByUser(context.Context, string, string, int, int) ([]models.Transaction, error) {
	return nil, nil
}

func (s stubTransactionStore) ListAll(context.Context, int, int) ([]models.Transaction, error) {
	return nil, nil
}

func (s stubTransactionStore) Search(context.Context, string, string, int, int) ([]models.Transaction, error) {
	return nil, nil
}

func (s stubTransactionStore) ListByReference(context.Context, models.Reference) ([]models.Transaction, error) {
	return nil, nil
}

func (s stubTransactionStore) SumByType(ctx context.Context, q store.Getter, userID, txType string) (int64, error) {
	if s.sumByTypeFn == nil {
		return 0, nil
	}
	return s.sumByTypeFn(ctx, q, userID, txType)
}

func (s stubTransactionStore) CountByUser(context.Context, string) (int64, error) {
	return 0, nil
}

type stubEventStore struct {
	historyFn func(ctx context.Context, aggregateType, aggregateID string) ([]models.Event, error)
}

func (s stubEventStore) History(ctx context.Context, aggregateType, aggregateID string) ([]models.Event, error) {
	if s.historyFn == nil {
		return nil, nil
	}
	return s.historyFn(ctx, aggregateType, aggregateID)
}

func (s stubEventStore) ReplayFrom(context.Context, string, string, int64) ([]models.Event, error) {
	return nil, nil
}

func (s stubEventStore) ListByEventType(context.Context, string, int, int) ([]models.Event, error) {
	return nil, nil
}

func (s stubEventStore) ListRecent(context.Context, int, int) ([]models.Event, error) {
	return nil, nil
}

type stubLedgerService struct {
	addFn      func(ctx context.Context, userID, actorID string, amountMinor int64, description string) (string, error)
	removeFn   func(ctx context.Context, userID, actorID string, amountMinor int64, description string) (string, error)
	transferFn func(ctx context.Context, fromUserID, toUserID, actorID string, amountMinor int64, description string) (services.TransferResult, error)
	balanceFn  func(ctx context.Context, userID string) (int64, error)
}

func (s stubLedgerService) AddMoney(ctx context.Context, userID, actorID string, amountMinor int64, description string) (string, error) {
	if s.addFn == nil {
		return "txn-1", nil
	}
	return s.addFn(ctx, userID, actorID, amountMinor, description)
}

func (s stubLedgerService) RemoveMoney(ctx context.Context, userID, actorID string, amountMinor int64, description string) (string, error) {
	if s.removeFn == nil {
		return "txn-1", nil
	}
	return s.removeFn(ctx, userID, actorID, amountMinor, description)
}

func (s stubLedgerService) TransferMoney(ctx context.Context, fromUserID, toUserID, actorID string, amountMinor int64, description string) (services.TransferResult, error) {
	if s.transferFn == nil {
		return services.TransferResult{}, nil
	}
	return s.transferFn(ctx, fromUserID, toUserID, actorID, amountMinor, description)
}

func (s stubLedgerService) Balance(ctx context.Context, userID string) (int64, error) {
	if s.balanceFn == nil {
		return 0, nil
	}
	return s.balanceFn(ctx, userID)
}

func (s stubLedgerService) Reconcile(ctx context.Context, userID string) (services.BalanceSummary, error) {
	return services.BalanceSummary{UserID: userID, Consistent: true}, nil
}

type stubOrderService struct {
	createFn  func(ctx context.Context, req services.CreateOrderRequest) (models.Order, error)
	processFn func(ctx context.Context, orderID, actorID string) (services.ProcessResult, error)
	cancelFn  func(ctx context.Context, orderID, actorID string) error
	refundFn  func(ctx context.Context, orderID, actorID string, amountMinor int64) (services.RefundResult, error)
}

func (s stubOrderService) Create(ctx context.Context, req services.CreateOrderRequest) (models.Order, error) {
	if s.createFn == nil {
		return models.Order{ID: "order-1", UserID: req.UserID, Amount: req.AmountMinor}, nil
	}
	return s.createFn(ctx, req)
}

func (s stubOrderService) Process(ctx context.Context, orderID, actorID string) (services.ProcessResult, error) {
	if s.processFn == nil {
		return services.ProcessResult{OrderID: orderID}, nil
	}
	return s.processFn(ctx, orderID, actorID)
}

func (s stubOrderService) Cancel(ctx context.Context, orderID, actorID string) error {
	if s.cancelFn == nil {
		return nil
	}
	return s.cancelFn(ctx, orderID, actorID)
}

func (s stubOrderService) Refund(ctx context.Context, orderID, actorID string, amountMinor int64) (services.RefundResult, error) {
	if s.refundFn == nil {
		return services.RefundResult{OrderID: orderID, AmountMinor: amountMinor}, nil
	}
	return s.refundFn(ctx, orderID, actorID, amountMinor)
}

func (s stubOrderService) Stats(context.Context, string) (store.OrderStats, error) {
	return store.OrderStats{}, nil
}

type stubUserService struct {
	registerFn func(ctx context.Context, name, email, password string) (models.User, error)
	deleteFn   func(ctx context.Context, userID string) error
}

func (s stubUserService) Register(ctx context.Context, name, email, password string) (models.User, error) {
	if s.registerFn == nil {
		return models.User{ID: "user-1", Name: name, Email: email, Role: models.RoleMerchant}, nil
	}
	return s.registerFn(ctx, name, email, password)
}

func (s stubUserService) Update(_ context.Context, req services.UpdateUserRequest) (models.User, error) {
	return models.User{ID: req.UserID, Name: req.Name, Email: req.Email, Role: req.Role}, nil
}

func (s stubUserService) Delete(ctx context.Context, userID string) error {
	if s.deleteFn == nil {
		return nil
	}
	return s.deleteFn(ctx, userID)
}

type handlerStubs struct {
	users        stubUserStore
	orders       stubOrderStore
	transactions stubTransactionStore
	events       stubEventStore
	ledger       stubLedgerService
	orderSvc     stubOrderService
	userSvc      stubUserService
}

func newTestHandler(stubs handlerStubs) *Handler {
	cfg := config.Config{
		JWTSecret:      "secret",
		TokenTTL:       time.Minute,
		AllowedOrigins: "*",
	}
	return New(cfg, stubs.users, stubs.orders, stubs.transactions, stubs.events,
		stubs.ledger, stubs.orderSvc, stubs.userSvc, websocket.NewHub())
}
