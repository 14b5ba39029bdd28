package models

import "time"

// User roles.
const (
	RoleAdmin    = "admin"
	RoleMerchant = "merchant"
)

// Order lifecycle statuses.
const (
	OrderStatusPendingPayment = "pending_payment"
	OrderStatusCompleted      = "completed"
	OrderStatusCancelled      = "cancelled"
	OrderStatusRefunded       = "refunded"
)

// Transaction types.
const (
	TransactionTypeCredit = "credit"
	TransactionTypeDebit  = "debit"
)

// Aggregate types recorded in the event store.
const (
	AggregateUser        = "user"
	AggregateOrder       = "order"
	AggregateTransaction = "transaction"
)

type User struct {
	ID           string     `db:"id" json:"id"`
	Name         string     `db:"name" json:"name"`
	Email        string     `db:"email" json:"email"`
	PasswordHash string     `db:"password_hash" json:"-"`
	Role         string     `db:"role" json:"role"`
	Balance      int64      `db:"balance" json:"balance"`
	Version      int64      `db:"version" json:"version"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at"`
	DeletedAt    *time.Time `db:"deleted_at" json:"deleted_at,omitempty"`
}

func (u User) IsAdmin() bool { return u.Role == RoleAdmin }

type Order struct {
	ID                string     `db:"id" json:"id"`
	UserID            string     `db:"user_id" json:"user_id"`
	Title             string     `db:"title" json:"title"`
	Description       *string    `db:"description" json:"description,omitempty"`
	Amount            int64      `db:"amount" json:"amount"`
	Status            string     `db:"status" json:"status"`
	ExternalReference *string    `db:"external_reference" json:"external_reference,omitempty"`
	Metadata          []byte     `db:"metadata" json:"-"`
	CreatedAt         time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time  `db:"updated_at" json:"updated_at"`
	DeletedAt         *time.Time `db:"deleted_at" json:"deleted_at,omitempty"`
}

func (o Order) IsPendingPayment() bool { return o.Status == OrderStatusPendingPayment }
func (o Order) IsCompleted() bool      { return o.Status == OrderStatusCompleted }
func (o Order) IsCancelled() bool      { return o.Status == OrderStatusCancelled }
func (o Order) IsRefunded() bool       { return o.Status == OrderStatusRefunded }

// AvailableTransitions lists the statuses reachable from the order's
// current status. Cancelled and refunded are terminal.
func (o Order) AvailableTransitions() []string {
	switch o.Status {
	case OrderStatusPendingPayment:
		return []string{OrderStatusCompleted, OrderStatusCancelled}
	case OrderStatusCompleted:
		return []string{OrderStatusRefunded}
	default:
		return nil
	}
}

type Transaction struct {
	ID            string    `db:"id" json:"id"`
	UserID        string    `db:"user_id" json:"user_id"`
	CreatedBy     string    `db:"created_by" json:"created_by"`
	Type          string    `db:"type" json:"type"`
	Amount        int64     `db:"amount" json:"amount"`
	Description   string    `db:"description" json:"description"`
	ReferenceType *string   `db:"reference_type" json:"reference_type,omitempty"`
	ReferenceID   *string   `db:"reference_id" json:"reference_id,omitempty"`
	BalanceBefore int64     `db:"balance_before" json:"balance_before"`
	BalanceAfter  int64     `db:"balance_after" json:"balance_after"`
	Metadata      []byte    `db:"metadata" json:"-"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}

func (t Transaction) IsCredit() bool { return t.Type == TransactionTypeCredit }
func (t Transaction) IsDebit() bool  { return t.Type == TransactionTypeDebit }

// BalanceChange is positive for credits and negative for debits.
func (t Transaction) BalanceChange() int64 {
	if t.IsCredit() {
		return t.Amount
	}
	return -t.Amount
}

// ReferenceKind tags what a transaction points at. The zero value means
// the transaction stands alone (manual adjustment).
type ReferenceKind string

const (
	ReferenceNone     ReferenceKind = ""
	ReferenceOrder    ReferenceKind = "order"
	ReferenceTransfer ReferenceKind = "transfer"
)

type Reference struct {
	Kind ReferenceKind
	ID   string
}

func OrderReference(orderID string) Reference {
	return Reference{Kind: ReferenceOrder, ID: orderID}
}

func TransferReference(transactionID string) Reference {
	return Reference{Kind: ReferenceTransfer, ID: transactionID}
}

func (r Reference) IsZero() bool {
	return r.Kind == ReferenceNone
}

// Reference returns the transaction's reference columns as a typed variant.
func (t Transaction) Reference() Reference {
	if t.ReferenceType == nil {
		return Reference{}
	}
	ref := Reference{Kind: ReferenceKind(*t.ReferenceType)}
	if t.ReferenceID != nil {
		ref.ID = *t.ReferenceID
	}
	return ref
}

type Event struct {
	ID            string    `db:"id" json:"id"`
	AggregateType string    `db:"aggregate_type" json:"aggregate_type"`
	AggregateID   string    `db:"aggregate_id" json:"aggregate_id"`
	EventType     string    `db:"event_type" json:"event_type"`
	EventData     []byte    `db:"event_data" json:"-"`
	Metadata      []byte    `db:"metadata" json:"-"`
	Version       int64     `db:"version" json:"version"`
	OccurredAt    time.Time `db:"occurred_at" json:"occurred_at"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}
