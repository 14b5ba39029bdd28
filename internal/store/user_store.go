package store

import (
	"context"

	"wallet/internal/models"
)

type UserStore struct {
	db DB
}

func NewUserStore(db DB) *UserStore {
	return &UserStore{db: db}
}

const userColumns = `id, name, email, password_hash, role, balance, version, created_at, updated_at, deleted_at`

func (s *UserStore) Create(ctx context.Context, tx Execer, id, name, email, passwordHash, role string) error {
	query := `
		INSERT INTO users (id, name, email, password_hash, role, balance, version)
		VALUES ($1, $2, $3, $4, $5, 0, 1)
	`
	_, err := tx.ExecContext(ctx, query, id, name, email, passwordHash, role)
	return err
}

func (s *UserStore) GetByID(ctx context.Context, userID string) (models.User, error) {
	var row models.User
	err := s.db.GetContext(ctx, &row, `
		SELECT `+userColumns+`
		FROM users
		WHERE id = $1 AND deleted_at IS NULL
	`, userID)
	if err != nil {
		return models.User{}, err
	}
	return row, nil
}

func (s *UserStore) GetByEmail(ctx context.Context, email string) (models.User, error) {
	var row models.User
	err := s.db.GetContext(ctx, &row, `
		SELECT `+userColumns+`
		FROM users
		WHERE email = $1 AND deleted_at IS NULL
	`, email)
	if err != nil {
		return models.User{}, err
	}
	return row, nil
}

// GetForUpdate locks the user row until the enclosing transaction
// commits. Every balance-affecting operation must read through this.
func (s *UserStore) GetForUpdate(ctx context.Context, tx Getter, userID string) (models.User, error) {
	var row models.User
	err := tx.GetContext(ctx, &row, `
		SELECT `+userColumns+`
		FROM users
		WHERE id = $1 AND deleted_at IS NULL
		FOR UPDATE
	`, userID)
	if err != nil {
		return models.User{}, err
	}
	return row, nil
}

// UpdateBalance writes the materialized balance and bumps the user's
// version counter. Callers must hold the row lock taken by GetForUpdate.
func (s *UserStore) UpdateBalance(ctx context.Context, tx Execer, userID string, balance int64) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE users
		SET balance = $1, version = version + 1, updated_at = NOW()
		WHERE id = $2
	`, balance, userID)
	return err
}

func (s *UserStore) Update(ctx context.Context, tx Execer, userID, name, email, role string) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE users
		SET name = $1, email = $2, role = $3, updated_at = NOW()
		WHERE id = $4 AND deleted_at IS NULL
	`, name, email, role, userID)
	return err
}

func (s *UserStore) SoftDelete(ctx context.Context, tx Execer, userID string) (int64, error) {
	res, err := tx.ExecContext(ctx, `
		UPDATE users
		SET deleted_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL
	`, userID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *UserStore) List(ctx context.Context, limit, offset int) ([]models.User, error) {
	var rows []models.User
	err := s.db.SelectContext(ctx, &rows, `
		SELECT `+userColumns+`
		FROM users
		WHERE deleted_at IS NULL
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *UserStore) Search(ctx context.Context, query string, limit, offset int) ([]models.User, error) {
	var rows []models.User
	err := s.db.SelectContext(ctx, &rows, `
		SELECT `+userColumns+`
		FROM users
		WHERE deleted_at IS NULL
		  AND (name ILIKE '%' || $1 || '%' OR email ILIKE '%' || $1 || '%')
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, query, limit, offset)
	if err != nil {
		return nil, err
	}
	return rows, nil
}
