package handlers

import (
	"context"

	"wallet/internal/models"
	"wallet/internal/services"
	"wallet/internal/store"
)

type UserStore interface {
	GetByID(ctx context.Context, userID string) (models.User, error)
	GetByEmail(ctx context.Context, email string) (models.User, error)
	List(ctx context.Context, limit, offset int) ([]models.User, error)
	Search(ctx context.Context, query string, limit, offset int) ([]models.User, error)
}

type OrderStore interface {
	GetByID(ctx context.Context, orderID string) (models.Order, error)
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]models.Order, error)
	ListAll(ctx context.Context, limit, offset int) ([]models.Order, error)
	Search(ctx context.Context, query, userID string, limit, offset int) ([]models.Order, error)
}

type TransactionStore interface {
	GetByID(ctx context.Context, transactionID string) (models.Transaction, error)
	ListByUser(ctx context.Context, userID, txType string, limit, offset int) ([]models.Transaction, error)
	ListAll(ctx context.Context, limit, offset int) ([]models.Transaction, error)
	Search(ctx context.Context, query, userID string, limit, offset int) ([]models.Transaction, error)
	ListByReference(ctx context.Context, ref models.Reference) ([]models.Transaction, error)
	SumByType(ctx context.Context, q store.Getter, userID, txType string) (int64, error)
	CountByUser(ctx context.Context, userID string) (int64, error)
}

type EventStore interface {
	History(ctx context.Context, aggregateType, aggregateID string) ([]models.Event, error)
	ReplayFrom(ctx context.Context, aggregateType, aggregateID string, fromVersion int64) ([]models.Event, error)
	ListByEventType(ctx context.Context, eventType string, limit, offset int) ([]models.Event, error)
	ListRecent(ctx context.Context, limit, offset int) ([]models.Event, error)
}

type LedgerService interface {
	AddMoney(ctx context.Context, userID, actorID string, amountMinor int64, description string) (string, error)
	RemoveMoney(ctx context.Context, userID, actorID string, amountMinor int64, description string) (string, error)
	TransferMoney(ctx context.Context, fromUserID, toUserID, actorID string, amountMinor int64, description string) (services.TransferResult, error)
	Balance(ctx context.Context, userID string) (int64, error)
	Reconcile(ctx context.Context, userID string) (services.BalanceSummary, error)
}

type OrderService interface {
	Create(ctx context.Context, req services.CreateOrderRequest) (models.Order, error)
	Process(ctx context.Context, orderID, actorID string) (services.ProcessResult, error)
	Cancel(ctx context.Context, orderID, actorID string) error
	Refund(ctx context.Context, orderID, actorID string, amountMinor int64) (services.RefundResult, error)
	Stats(ctx context.Context, userID string) (store.OrderStats, error)
}

type UserService interface {
	Register(ctx context.Context, name, email, password string) (models.User, error)
	Update(ctx context.Context, req services.UpdateUserRequest) (models.User, error)
	Delete(ctx context.Context, userID string) error
}
