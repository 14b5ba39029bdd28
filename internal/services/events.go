package services

import (
	"context"
	"encoding/json"
	"time"

	"wallet/internal/store"

	"github.com/google/uuid"
)

// Event types recorded in the event store. Payload shapes below are the
// public contract of the event history endpoints; amounts are formatted
// decimal strings, not minor units.
const (
	EventUserCreated        = "UserCreated"
	EventUserRoleChanged    = "UserRoleChanged"
	EventOrderCreated       = "OrderCreated"
	EventOrderStatusChanged = "OrderStatusChanged"
	EventOrderCompleted     = "OrderCompleted"
	EventPaymentReceived    = "PaymentReceived"
	EventRefundProcessed    = "RefundProcessed"
	EventTransactionCreated = "TransactionCreated"
	EventBalanceUpdated     = "BalanceUpdated"
	EventMoneyTransferred   = "MoneyTransferred"
)

type EventStore interface {
	NextVersion(ctx context.Context, tx store.Getter, aggregateType, aggregateID string) (int64, error)
	Append(ctx context.Context, tx store.Execer, input store.EventInput) error
}

type UserCreatedPayload struct {
	UserID string `json:"user_id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	Role   string `json:"role"`
}

type UserRoleChangedPayload struct {
	UserID    string `json:"user_id"`
	OldRole   string `json:"old_role"`
	NewRole   string `json:"new_role"`
	ChangedBy string `json:"changed_by"`
}

type OrderCreatedPayload struct {
	OrderID string `json:"order_id"`
	UserID  string `json:"user_id"`
	Title   string `json:"title"`
	Amount  string `json:"amount"`
	Status  string `json:"status"`
}

type OrderStatusChangedPayload struct {
	OrderID   string `json:"order_id"`
	OldStatus string `json:"old_status"`
	NewStatus string `json:"new_status"`
	ChangedBy string `json:"changed_by"`
}

type OrderCompletedPayload struct {
	OrderID       string `json:"order_id"`
	UserID        string `json:"user_id"`
	Amount        string `json:"amount"`
	TransactionID string `json:"transaction_id"`
}

type PaymentReceivedPayload struct {
	OrderID       string `json:"order_id"`
	UserID        string `json:"user_id"`
	Amount        string `json:"amount"`
	TransactionID string `json:"transaction_id"`
}

type RefundProcessedPayload struct {
	OrderID       string `json:"order_id"`
	UserID        string `json:"user_id"`
	Amount        string `json:"amount"`
	TransactionID string `json:"transaction_id"`
	RefundedBy    string `json:"refunded_by"`
}

type TransactionCreatedPayload struct {
	TransactionID string    `json:"transaction_id"`
	UserID        string    `json:"user_id"`
	Type          string    `json:"type"`
	Amount        string    `json:"amount"`
	Description   string    `json:"description"`
	ReferenceType string    `json:"reference_type,omitempty"`
	ReferenceID   string    `json:"reference_id,omitempty"`
	BalanceBefore string    `json:"balance_before"`
	BalanceAfter  string    `json:"balance_after"`
	BalanceChange string    `json:"balance_change"`
	CreatedBy     string    `json:"created_by"`
	CreatedAt     time.Time `json:"created_at"`
}

type BalanceUpdatedPayload struct {
	UserID        string `json:"user_id"`
	BalanceBefore string `json:"balance_before"`
	BalanceAfter  string `json:"balance_after"`
	TransactionID string `json:"transaction_id"`
}

type MoneyTransferredPayload struct {
	FromUserID          string `json:"from_user_id"`
	ToUserID            string `json:"to_user_id"`
	Amount              string `json:"amount"`
	DebitTransactionID  string `json:"debit_transaction_id"`
	CreditTransactionID string `json:"credit_transaction_id"`
}

// appendEvent versions and stores one event against an aggregate. It must
// run inside the same transaction as the mutation it describes so the
// version read and the insert commit or roll back together.
func appendEvent(ctx context.Context, tx store.Tx, events EventStore, aggregateType, aggregateID, eventType string, payload any, metadata []byte) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	version, err := events.NextVersion(ctx, tx, aggregateType, aggregateID)
	if err != nil {
		return err
	}
	return events.Append(ctx, tx, store.EventInput{
		ID:            uuid.NewString(),
		AggregateType: aggregateType,
		AggregateID:   aggregateID,
		EventType:     eventType,
		EventData:     data,
		Metadata:      metadata,
		Version:       version,
		OccurredAt:    time.Now().UTC(),
	})
}
