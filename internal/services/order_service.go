package services

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"wallet/internal/db"
	"wallet/internal/models"
	"wallet/internal/money"
	"wallet/internal/store"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

var (
	ErrInvalidOrderState  = errors.New("order state does not allow this operation")
	ErrRefundExceedsOrder = errors.New("refund exceeds order amount")
)

const defaultOrderTitle = "Add money to wallet"

type OrderStore interface {
	Create(ctx context.Context, tx store.Execer, input store.OrderInput) error
	GetByID(ctx context.Context, orderID string) (models.Order, error)
	GetForUpdate(ctx context.Context, tx store.Getter, orderID string) (models.Order, error)
	UpdateStatus(ctx context.Context, tx store.Execer, orderID, status string, metadata []byte) error
	Stats(ctx context.Context, userID string) (store.OrderStats, error)
}

// OrderService drives the order state machine. Transitions lock the
// order row first and the owner's user row second; every transition and
// its ledger writes commit atomically.
type OrderService struct {
	txRunner db.TxRunner
	orders   OrderStore
	users    UserStore
	ledger   *LedgerService
	events   EventStore
}

func NewOrderService(txRunner db.TxRunner, orders OrderStore, users UserStore, ledger *LedgerService, events EventStore) *OrderService {
	return &OrderService{
		txRunner: txRunner,
		orders:   orders,
		users:    users,
		ledger:   ledger,
		events:   events,
	}
}

type CreateOrderRequest struct {
	UserID            string
	Title             string
	Description       *string
	AmountMinor       int64
	ExternalReference *string
	Metadata          json.RawMessage
}

func (s *OrderService) Create(ctx context.Context, req CreateOrderRequest) (models.Order, error) {
	if req.AmountMinor <= 0 {
		return models.Order{}, ErrInvalidAmount
	}
	title := req.Title
	if title == "" {
		title = defaultOrderTitle
	}
	orderID := uuid.NewString()
	err := s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		if err := s.orders.Create(ctx, tx, store.OrderInput{
			ID:                orderID,
			UserID:            req.UserID,
			Title:             title,
			Description:       req.Description,
			Amount:            req.AmountMinor,
			Status:            models.OrderStatusPendingPayment,
			ExternalReference: req.ExternalReference,
			Metadata:          req.Metadata,
		}); err != nil {
			return err
		}
		return appendEvent(ctx, tx, s.events, models.AggregateOrder, orderID, EventOrderCreated, OrderCreatedPayload{
			OrderID: orderID,
			UserID:  req.UserID,
			Title:   title,
			Amount:  money.FormatMinor(req.AmountMinor),
			Status:  models.OrderStatusPendingPayment,
		}, nil)
	})
	if err != nil {
		return models.Order{}, err
	}
	return s.orders.GetByID(ctx, orderID)
}

type ProcessResult struct {
	OrderID       string
	TransactionID string
	BalanceAfter  int64
}

// Process completes a pending order: credits the owner's wallet with the
// order amount and marks the order completed.
func (s *OrderService) Process(ctx context.Context, orderID, actorID string) (ProcessResult, error) {
	var result ProcessResult
	var ownerID string
	err := s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		order, err := s.orders.GetForUpdate(ctx, tx, orderID)
		if err != nil {
			return err
		}
		if !order.IsPendingPayment() {
			return ErrInvalidOrderState
		}
		ownerID = order.UserID
		user, err := s.users.GetForUpdate(ctx, tx, order.UserID)
		if err != nil {
			return err
		}
		entry, err := s.ledger.recordEntry(ctx, tx, user, actorID, models.TransactionTypeCredit,
			order.Amount, "Payment for order "+order.ID, models.OrderReference(order.ID), nil)
		if err != nil {
			return err
		}
		now := time.Now().UTC()
		metadata := mustJSON(map[string]string{
			"transaction_id": entry.transactionID,
			"processed_at":   now.Format(time.RFC3339),
		})
		if err := s.orders.UpdateStatus(ctx, tx, order.ID, models.OrderStatusCompleted, metadata); err != nil {
			return err
		}
		if err := appendEvent(ctx, tx, s.events, models.AggregateOrder, order.ID, EventOrderStatusChanged, OrderStatusChangedPayload{
			OrderID:   order.ID,
			OldStatus: models.OrderStatusPendingPayment,
			NewStatus: models.OrderStatusCompleted,
			ChangedBy: actorID,
		}, nil); err != nil {
			return err
		}
		if err := appendEvent(ctx, tx, s.events, models.AggregateOrder, order.ID, EventOrderCompleted, OrderCompletedPayload{
			OrderID:       order.ID,
			UserID:        order.UserID,
			Amount:        money.FormatMinor(order.Amount),
			TransactionID: entry.transactionID,
		}, nil); err != nil {
			return err
		}
		if err := appendEvent(ctx, tx, s.events, models.AggregateOrder, order.ID, EventPaymentReceived, PaymentReceivedPayload{
			OrderID:       order.ID,
			UserID:        order.UserID,
			Amount:        money.FormatMinor(order.Amount),
			TransactionID: entry.transactionID,
		}, nil); err != nil {
			return err
		}
		result = ProcessResult{
			OrderID:       order.ID,
			TransactionID: entry.transactionID,
			BalanceAfter:  entry.balanceAfter,
		}
		return nil
	})
	if err != nil {
		return ProcessResult{}, err
	}
	s.ledger.broadcast(ownerID, result.BalanceAfter)
	return result, nil
}

// Cancel aborts a pending order. Cancelling an already cancelled order is
// a no-op; completed and refunded orders cannot be cancelled.
func (s *OrderService) Cancel(ctx context.Context, orderID, actorID string) error {
	return s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		order, err := s.orders.GetForUpdate(ctx, tx, orderID)
		if err != nil {
			return err
		}
		if order.IsCancelled() {
			return nil
		}
		if !order.IsPendingPayment() {
			return ErrInvalidOrderState
		}
		metadata := mustJSON(map[string]string{
			"cancelled_at": time.Now().UTC().Format(time.RFC3339),
			"cancelled_by": actorID,
		})
		if err := s.orders.UpdateStatus(ctx, tx, order.ID, models.OrderStatusCancelled, metadata); err != nil {
			return err
		}
		return appendEvent(ctx, tx, s.events, models.AggregateOrder, order.ID, EventOrderStatusChanged, OrderStatusChangedPayload{
			OrderID:   order.ID,
			OldStatus: models.OrderStatusPendingPayment,
			NewStatus: models.OrderStatusCancelled,
			ChangedBy: actorID,
		}, nil)
	})
}

type RefundResult struct {
	OrderID       string
	TransactionID string
	AmountMinor   int64
	BalanceAfter  int64
}

// Refund reverses a completed order by debiting the owner's wallet. An
// amount of zero refunds the full order; partial refunds still move the
// order to refunded, so an order is refunded at most once.
func (s *OrderService) Refund(ctx context.Context, orderID, actorID string, amountMinor int64) (RefundResult, error) {
	if amountMinor < 0 {
		return RefundResult{}, ErrInvalidAmount
	}
	var result RefundResult
	var ownerID string
	err := s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		order, err := s.orders.GetForUpdate(ctx, tx, orderID)
		if err != nil {
			return err
		}
		if !order.IsCompleted() {
			return ErrInvalidOrderState
		}
		refundAmount := amountMinor
		if refundAmount == 0 {
			refundAmount = order.Amount
		}
		if refundAmount > order.Amount {
			return ErrRefundExceedsOrder
		}
		ownerID = order.UserID
		user, err := s.users.GetForUpdate(ctx, tx, order.UserID)
		if err != nil {
			return err
		}
		entry, err := s.ledger.recordEntry(ctx, tx, user, actorID, models.TransactionTypeDebit,
			refundAmount, "Refund for order "+order.ID, models.OrderReference(order.ID), nil)
		if err != nil {
			return err
		}
		metadata := mustJSON(map[string]string{
			"refund_transaction_id": entry.transactionID,
			"refund_amount":         money.FormatMinor(refundAmount),
			"refunded_at":           time.Now().UTC().Format(time.RFC3339),
			"refunded_by":           actorID,
		})
		if err := s.orders.UpdateStatus(ctx, tx, order.ID, models.OrderStatusRefunded, metadata); err != nil {
			return err
		}
		if err := appendEvent(ctx, tx, s.events, models.AggregateOrder, order.ID, EventOrderStatusChanged, OrderStatusChangedPayload{
			OrderID:   order.ID,
			OldStatus: models.OrderStatusCompleted,
			NewStatus: models.OrderStatusRefunded,
			ChangedBy: actorID,
		}, nil); err != nil {
			return err
		}
		if err := appendEvent(ctx, tx, s.events, models.AggregateOrder, order.ID, EventRefundProcessed, RefundProcessedPayload{
			OrderID:       order.ID,
			UserID:        order.UserID,
			Amount:        money.FormatMinor(refundAmount),
			TransactionID: entry.transactionID,
			RefundedBy:    actorID,
		}, nil); err != nil {
			return err
		}
		result = RefundResult{
			OrderID:       order.ID,
			TransactionID: entry.transactionID,
			AmountMinor:   refundAmount,
			BalanceAfter:  entry.balanceAfter,
		}
		return nil
	})
	if err != nil {
		return RefundResult{}, err
	}
	s.ledger.broadcast(ownerID, result.BalanceAfter)
	return result, nil
}

func (s *OrderService) Stats(ctx context.Context, userID string) (store.OrderStats, error) {
	return s.orders.Stats(ctx, userID)
}
