package services

import (
	"context"
	"database/sql"
	"errors"

	"wallet/internal/auth"
	"wallet/internal/db"
	"wallet/internal/models"
	"wallet/internal/store"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

var (
	ErrEmailTaken    = errors.New("email already registered")
	ErrUserHasOrders = errors.New("user has pending or completed orders")
)

type UserAdminStore interface {
	Create(ctx context.Context, tx store.Execer, id, name, email, passwordHash, role string) error
	GetByID(ctx context.Context, userID string) (models.User, error)
	GetByEmail(ctx context.Context, email string) (models.User, error)
	Update(ctx context.Context, tx store.Execer, userID, name, email, role string) error
	SoftDelete(ctx context.Context, tx store.Execer, userID string) (int64, error)
}

type OrderCounter interface {
	CountActiveByUser(ctx context.Context, q store.Getter, userID string) (int64, error)
}

type UserService struct {
	txRunner db.TxRunner
	users    UserAdminStore
	orders   OrderCounter
	events   EventStore
}

func NewUserService(txRunner db.TxRunner, users UserAdminStore, orders OrderCounter, events EventStore) *UserService {
	return &UserService{
		txRunner: txRunner,
		users:    users,
		orders:   orders,
		events:   events,
	}
}

// Register creates a merchant account with a zero balance.
func (s *UserService) Register(ctx context.Context, name, email, password string) (models.User, error) {
	passwordHash, err := auth.HashPassword(password)
	if err != nil {
		return models.User{}, err
	}
	userID := uuid.NewString()
	err = s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		if err := s.users.Create(ctx, tx, userID, name, email, passwordHash, models.RoleMerchant); err != nil {
			if isUniqueViolation(err) {
				return ErrEmailTaken
			}
			return err
		}
		return appendEvent(ctx, tx, s.events, models.AggregateUser, userID, EventUserCreated, UserCreatedPayload{
			UserID: userID,
			Name:   name,
			Email:  email,
			Role:   models.RoleMerchant,
		}, nil)
	})
	if err != nil {
		return models.User{}, err
	}
	return s.users.GetByID(ctx, userID)
}

type UpdateUserRequest struct {
	UserID  string
	Name    string
	Email   string
	Role    string
	ActorID string
}

func (s *UserService) Update(ctx context.Context, req UpdateUserRequest) (models.User, error) {
	current, err := s.users.GetByID(ctx, req.UserID)
	if err != nil {
		return models.User{}, err
	}
	name := req.Name
	if name == "" {
		name = current.Name
	}
	email := req.Email
	if email == "" {
		email = current.Email
	}
	role := req.Role
	if role == "" {
		role = current.Role
	}
	err = s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		if err := s.users.Update(ctx, tx, req.UserID, name, email, role); err != nil {
			if isUniqueViolation(err) {
				return ErrEmailTaken
			}
			return err
		}
		if role == current.Role {
			return nil
		}
		return appendEvent(ctx, tx, s.events, models.AggregateUser, req.UserID, EventUserRoleChanged, UserRoleChangedPayload{
			UserID:    req.UserID,
			OldRole:   current.Role,
			NewRole:   role,
			ChangedBy: req.ActorID,
		}, nil)
	})
	if err != nil {
		return models.User{}, err
	}
	return s.users.GetByID(ctx, req.UserID)
}

// Delete soft-deletes a user. Users with pending or completed orders are
// kept; their ledger history must stay reachable.
func (s *UserService) Delete(ctx context.Context, userID string) error {
	return s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		count, err := s.orders.CountActiveByUser(ctx, tx, userID)
		if err != nil {
			return err
		}
		if count > 0 {
			return ErrUserHasOrders
		}
		affected, err := s.users.SoftDelete(ctx, tx, userID)
		if err != nil {
			return err
		}
		if affected == 0 {
			return sql.ErrNoRows
		}
		return nil
	})
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
