package store

import (
	"context"

	"wallet/internal/models"
)

type OrderStore struct {
	db DB
}

func NewOrderStore(db DB) *OrderStore {
	return &OrderStore{db: db}
}

const orderColumns = `id, user_id, title, description, amount, status, external_reference, metadata, created_at, updated_at, deleted_at`

type OrderInput struct {
	ID                string
	UserID            string
	Title             string
	Description       *string
	Amount            int64
	Status            string
	ExternalReference *string
	Metadata          []byte
}

func (s *OrderStore) Create(ctx context.Context, tx Execer, input OrderInput) error {
	query := `
		INSERT INTO orders (id, user_id, title, description, amount, status, external_reference, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := tx.ExecContext(ctx, query,
		input.ID, input.UserID, input.Title, input.Description, input.Amount,
		input.Status, input.ExternalReference, input.Metadata,
	)
	return err
}

func (s *OrderStore) GetByID(ctx context.Context, orderID string) (models.Order, error) {
	var row models.Order
	err := s.db.GetContext(ctx, &row, `
		SELECT `+orderColumns+`
		FROM orders
		WHERE id = $1 AND deleted_at IS NULL
	`, orderID)
	if err != nil {
		return models.Order{}, err
	}
	return row, nil
}

// GetForUpdate locks the order row so concurrent state transitions on the
// same order serialize.
func (s *OrderStore) GetForUpdate(ctx context.Context, tx Getter, orderID string) (models.Order, error) {
	var row models.Order
	err := tx.GetContext(ctx, &row, `
		SELECT `+orderColumns+`
		FROM orders
		WHERE id = $1 AND deleted_at IS NULL
		FOR UPDATE
	`, orderID)
	if err != nil {
		return models.Order{}, err
	}
	return row, nil
}

// UpdateStatus transitions the order and merges the new metadata stamps
// into the existing document. Stamps from earlier transitions survive.
func (s *OrderStore) UpdateStatus(ctx context.Context, tx Execer, orderID, status string, metadata []byte) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE orders
		SET status = $1,
		    metadata = COALESCE(metadata, '{}'::jsonb) || COALESCE($2::jsonb, '{}'::jsonb),
		    updated_at = NOW()
		WHERE id = $3 AND deleted_at IS NULL
	`, status, metadata, orderID)
	return err
}

func (s *OrderStore) ListByUser(ctx context.Context, userID string, limit, offset int) ([]models.Order, error) {
	var rows []models.Order
	err := s.db.SelectContext(ctx, &rows, `
		SELECT `+orderColumns+`
		FROM orders
		WHERE user_id = $1 AND deleted_at IS NULL
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *OrderStore) ListAll(ctx context.Context, limit, offset int) ([]models.Order, error) {
	var rows []models.Order
	err := s.db.SelectContext(ctx, &rows, `
		SELECT `+orderColumns+`
		FROM orders
		WHERE deleted_at IS NULL
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// Search matches the query against title, description and external
// reference. An empty userID searches across all users.
func (s *OrderStore) Search(ctx context.Context, query, userID string, limit, offset int) ([]models.Order, error) {
	var rows []models.Order
	err := s.db.SelectContext(ctx, &rows, `
		SELECT `+orderColumns+`
		FROM orders
		WHERE deleted_at IS NULL
		  AND ($2 = '' OR user_id = $2)
		  AND (title ILIKE '%' || $1 || '%'
		       OR description ILIKE '%' || $1 || '%'
		       OR external_reference ILIKE '%' || $1 || '%')
		ORDER BY created_at DESC
		LIMIT $3 OFFSET $4
	`, query, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

type OrderStats struct {
	TotalOrders     int64 `db:"total_orders"`
	PendingOrders   int64 `db:"pending_orders"`
	CompletedOrders int64 `db:"completed_orders"`
	CancelledOrders int64 `db:"cancelled_orders"`
	RefundedOrders  int64 `db:"refunded_orders"`
	CompletedAmount int64 `db:"completed_amount"`
}

// Stats counts orders per status. An empty userID aggregates all users.
func (s *OrderStore) Stats(ctx context.Context, userID string) (OrderStats, error) {
	var row OrderStats
	err := s.db.GetContext(ctx, &row, `
		SELECT COUNT(*) AS total_orders,
		       COUNT(*) FILTER (WHERE status = 'pending_payment') AS pending_orders,
		       COUNT(*) FILTER (WHERE status = 'completed') AS completed_orders,
		       COUNT(*) FILTER (WHERE status = 'cancelled') AS cancelled_orders,
		       COUNT(*) FILTER (WHERE status = 'refunded') AS refunded_orders,
		       COALESCE(SUM(amount) FILTER (WHERE status = 'completed'), 0) AS completed_amount
		FROM orders
		WHERE deleted_at IS NULL AND ($1 = '' OR user_id = $1)
	`, userID)
	if err != nil {
		return OrderStats{}, err
	}
	return row, nil
}

// CountActiveByUser counts orders that block user deletion.
func (s *OrderStore) CountActiveByUser(ctx context.Context, q Getter, userID string) (int64, error) {
	var count int64
	err := q.GetContext(ctx, &count, `
		SELECT COUNT(*)
		FROM orders
		WHERE user_id = $1
		  AND status IN ('pending_payment', 'completed')
		  AND deleted_at IS NULL
	`, userID)
	return count, err
}
