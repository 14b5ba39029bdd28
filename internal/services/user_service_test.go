package services

import (
	"context"
	"database/sql"
	"testing"

	"wallet/internal/auth"
	"wallet/internal/models"
	"wallet/internal/store"

	"github.com/lib/pq"
)

type stubUserAdminStore struct {
	createFn     func(ctx context.Context, tx store.Execer, id, name, email, passwordHash, role string) error
	getByIDFn    func(ctx context.Context, userID string) (models.User, error)
	getByEmailFn func(ctx context.Context, email string) (models.User, error)
	updateFn     func(ctx context.Context, tx store.Execer, userID, name, email, role string) error
	softDeleteFn func(ctx context.Context, tx store.Execer, userID string) (int64, error)
}

func (s stubUserAdminStore) Create(ctx context.Context, tx store.Execer, id, name, email, passwordHash, role string) error {
	if s.createFn == nil {
		return nil
	}
	return s.createFn(ctx, tx, id, name, email, passwordHash, role)
}

func (s stubUserAdminStore) GetByID(ctx context.Context, userID string) (models.User, error) {
	if s.getByIDFn == nil {
		return models.User{ID: userID}, nil
	}
	return s.getByIDFn(ctx, userID)
}

func (s stubUserAdminStore) GetByEmail(ctx context.Context, email string) (models.User, error) {
	if s.getByEmailFn == nil {
		return models.User{}, sql.ErrNoRows
	}
	return s.getByEmailFn(ctx, email)
}

func (s stubUserAdminStore) Update(ctx context.Context, tx store.Execer, userID, name, email, role string) error {
	if s.updateFn == nil {
		return nil
	}
	return s.updateFn(ctx, tx, userID, name, email, role)
}

func (s stubUserAdminStore) SoftDelete(ctx context.Context, tx store.Execer, userID string) (int64, error) {
	if s.softDeleteFn == nil {
		return 1, nil
	}
	return s.softDeleteFn(ctx, tx, userID)
}

type stubOrderCounter struct {
	count int64
}

func (s stubOrderCounter) CountActiveByUser(context.Context, store.Getter, string) (int64, error) {
	return s.count, nil
}

func TestRegisterHashesPasswordAndEmitsEvent(t *testing.T) {
	var storedHash, storedRole string
	events := &stubEventStore{}
	service := NewUserService(fakeTxRunner{}, stubUserAdminStore{
		createFn: func(_ context.Context, _ store.Execer, _, _, _, passwordHash, role string) error {
			storedHash = passwordHash
			storedRole = role
			return nil
		},
	}, stubOrderCounter{}, events)

	user, err := service.Register(context.Background(), "Alice", "alice@example.com", "s3cret-pass")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if user.ID == "" {
		t.Fatalf("expected user back")
	}
	if storedRole != models.RoleMerchant {
		t.Fatalf("unexpected role: %s", storedRole)
	}
	if storedHash == "s3cret-pass" {
		t.Fatalf("password stored in plaintext")
	}
	if !auth.CheckPassword(storedHash, "s3cret-pass") {
		t.Fatalf("stored hash does not verify")
	}
	if len(events.ofType(EventUserCreated)) != 1 {
		t.Fatalf("expected UserCreated event, got %#v", events.appended)
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	service := NewUserService(fakeTxRunner{}, stubUserAdminStore{
		createFn: func(context.Context, store.Execer, string, string, string, string, string) error {
			return &pq.Error{Code: "23505"}
		},
	}, stubOrderCounter{}, &stubEventStore{})
	if _, err := service.Register(context.Background(), "Alice", "alice@example.com", "pass"); err != ErrEmailTaken {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}
}

func TestUpdateRoleChangeEmitsEvent(t *testing.T) {
	events := &stubEventStore{}
	service := NewUserService(fakeTxRunner{}, stubUserAdminStore{
		getByIDFn: func(_ context.Context, userID string) (models.User, error) {
			return models.User{ID: userID, Name: "Alice", Email: "alice@example.com", Role: models.RoleMerchant}, nil
		},
	}, stubOrderCounter{}, events)

	_, err := service.Update(context.Background(), UpdateUserRequest{
		UserID: "user-1", Role: models.RoleAdmin, ActorID: "admin-1",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	roleEvents := events.ofType(EventUserRoleChanged)
	if len(roleEvents) != 1 {
		t.Fatalf("expected UserRoleChanged event, got %#v", events.appended)
	}
}

func TestUpdateSameRoleEmitsNothing(t *testing.T) {
	events := &stubEventStore{}
	service := NewUserService(fakeTxRunner{}, stubUserAdminStore{
		getByIDFn: func(_ context.Context, userID string) (models.User, error) {
			return models.User{ID: userID, Name: "Alice", Email: "alice@example.com", Role: models.RoleMerchant}, nil
		},
	}, stubOrderCounter{}, events)

	if _, err := service.Update(context.Background(), UpdateUserRequest{UserID: "user-1", Name: "Alicia"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(events.appended) != 0 {
		t.Fatalf("no events expected, got %#v", events.appended)
	}
}

func TestDeleteRefusedWithActiveOrders(t *testing.T) {
	service := NewUserService(fakeTxRunner{}, stubUserAdminStore{
		softDeleteFn: func(context.Context, store.Execer, string) (int64, error) {
			t.Fatalf("user must not be deleted")
			return 0, nil
		},
	}, stubOrderCounter{count: 2}, &stubEventStore{})
	if err := service.Delete(context.Background(), "user-1"); err != ErrUserHasOrders {
		t.Fatalf("expected ErrUserHasOrders, got %v", err)
	}
}

func TestDeleteSoftDeletes(t *testing.T) {
	deleted := false
	service := NewUserService(fakeTxRunner{}, stubUserAdminStore{
		softDeleteFn: func(_ context.Context, _ store.Execer, userID string) (int64, error) {
			deleted = true
			if userID != "user-1" {
				t.Fatalf("unexpected user: %s", userID)
			}
			return 1, nil
		},
	}, stubOrderCounter{}, &stubEventStore{})
	if err := service.Delete(context.Background(), "user-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !deleted {
		t.Fatalf("expected soft delete")
	}
}

func TestDeleteMissingUser(t *testing.T) {
	service := NewUserService(fakeTxRunner{}, stubUserAdminStore{
		softDeleteFn: func(context.Context, store.Execer, string) (int64, error) {
			return 0, nil
		},
	}, stubOrderCounter{}, &stubEventStore{})
	if err := service.Delete(context.Background(), "missing"); err != sql.ErrNoRows {
		t.Fatalf("expected sql.ErrNoRows, got %v", err)
	}
}
