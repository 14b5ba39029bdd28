package store

import (
	"context"
	"errors"

	"wallet/internal/models"
)

// ErrTransactionTypeImmutable guards the ledger's append-only contract:
// a persisted transaction never changes its type.
var ErrTransactionTypeImmutable = errors.New("transaction type cannot be changed after creation")

type TransactionStore struct {
	db DB
}

func NewTransactionStore(db DB) *TransactionStore {
	return &TransactionStore{db: db}
}

const transactionColumns = `id, user_id, created_by, type, amount, description, reference_type, reference_id, balance_before, balance_after, metadata, created_at`

type TransactionInput struct {
	ID            string
	UserID        string
	CreatedBy     string
	Type          string
	Amount        int64
	Description   string
	Reference     models.Reference
	BalanceBefore int64
	BalanceAfter  int64
	Metadata      []byte
}

func (s *TransactionStore) Create(ctx context.Context, tx Execer, input TransactionInput) error {
	var referenceType, referenceID *string
	if !input.Reference.IsZero() {
		kind := string(input.Reference.Kind)
		referenceType = &kind
		if input.Reference.ID != "" {
			referenceID = &input.Reference.ID
		}
	}
	query := `
		INSERT INTO transactions (id, user_id, created_by, type, amount, description, reference_type, reference_id, balance_before, balance_after, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err := tx.ExecContext(ctx, query,
		input.ID, input.UserID, input.CreatedBy, input.Type, input.Amount, input.Description,
		referenceType, referenceID, input.BalanceBefore, input.BalanceAfter, input.Metadata,
	)
	return err
}

func (s *TransactionStore) GetByID(ctx context.Context, transactionID string) (models.Transaction, error) {
	var row models.Transaction
	err := s.db.GetContext(ctx, &row, `
		SELECT `+transactionColumns+`
		FROM transactions
		WHERE id = $1
	`, transactionID)
	if err != nil {
		return models.Transaction{}, err
	}
	return row, nil
}

// TransactionUpdate is the only mutation a persisted transaction accepts:
// attaching the reciprocal transfer reference and merged metadata. A
// non-empty Type that differs from the stored one is refused.
type TransactionUpdate struct {
	Type      string
	Reference models.Reference
	Metadata  []byte
}

func (s *TransactionStore) Update(ctx context.Context, tx Tx, transactionID string, update TransactionUpdate) error {
	var existingType string
	if err := tx.GetContext(ctx, &existingType, `SELECT type FROM transactions WHERE id = $1`, transactionID); err != nil {
		return err
	}
	if update.Type != "" && update.Type != existingType {
		return ErrTransactionTypeImmutable
	}
	var referenceType, referenceID *string
	if !update.Reference.IsZero() {
		kind := string(update.Reference.Kind)
		referenceType = &kind
		if update.Reference.ID != "" {
			referenceID = &update.Reference.ID
		}
	}
	_, err := tx.ExecContext(ctx, `
		UPDATE transactions
		SET reference_type = $1, reference_id = $2, metadata = COALESCE($3, metadata)
		WHERE id = $4
	`, referenceType, referenceID, update.Metadata, transactionID)
	return err
}

// SetTransferReference cross-links a transfer leg to its sibling.
func (s *TransactionStore) SetTransferReference(ctx context.Context, tx Tx, transactionID, siblingID string, metadata []byte) error {
	return s.Update(ctx, tx, transactionID, TransactionUpdate{
		Reference: models.TransferReference(siblingID),
		Metadata:  metadata,
	})
}

// SumByType sums transaction amounts of one type for a user. The ledger
// is the source of truth for balances: credits minus debits. Pass the
// enclosing transaction as q when the caller holds the user's row lock;
// a nil q reads through the store's own connection.
func (s *TransactionStore) SumByType(ctx context.Context, q Getter, userID, txType string) (int64, error) {
	if q == nil {
		q = s.db
	}
	var sum int64
	err := q.GetContext(ctx, &sum, `
		SELECT COALESCE(SUM(amount), 0)
		FROM transactions
		WHERE user_id = $1 AND type = $2
	`, userID, txType)
	return sum, err
}

func (s *TransactionStore) CountByUser(ctx context.Context, userID string) (int64, error) {
	var count int64
	err := s.db.GetContext(ctx, &count, `
		SELECT COUNT(*)
		FROM transactions
		WHERE user_id = $1
	`, userID)
	return count, err
}

func (s *TransactionStore) ListByUser(ctx context.Context, userID, txType string, limit, offset int) ([]models.Transaction, error) {
	var rows []models.Transaction
	err := s.db.SelectContext(ctx, &rows, `
		SELECT `+transactionColumns+`
		FROM transactions
		WHERE user_id = $1 AND ($2 = '' OR type = $2)
		ORDER BY created_at DESC
		LIMIT $3 OFFSET $4
	`, userID, txType, limit, offset)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *TransactionStore) ListAll(ctx context.Context, limit, offset int) ([]models.Transaction, error) {
	var rows []models.Transaction
	err := s.db.SelectContext(ctx, &rows, `
		SELECT `+transactionColumns+`
		FROM transactions
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *TransactionStore) Search(ctx context.Context, query, userID string, limit, offset int) ([]models.Transaction, error) {
	var rows []models.Transaction
	err := s.db.SelectContext(ctx, &rows, `
		SELECT `+transactionColumns+`
		FROM transactions
		WHERE ($2 = '' OR user_id = $2)
		  AND description ILIKE '%' || $1 || '%'
		ORDER BY created_at DESC
		LIMIT $3 OFFSET $4
	`, query, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// ListByReference finds the transactions attached to an order or a
// transfer sibling.
func (s *TransactionStore) ListByReference(ctx context.Context, ref models.Reference) ([]models.Transaction, error) {
	var rows []models.Transaction
	err := s.db.SelectContext(ctx, &rows, `
		SELECT `+transactionColumns+`
		FROM transactions
		WHERE reference_type = $1 AND reference_id = $2
		ORDER BY created_at
	`, string(ref.Kind), ref.ID)
	if err != nil {
		return nil, err
	}
	return rows, nil
}
