package store

import (
	"context"
	"database/sql"
)

// Stores depend on these narrow interfaces instead of *sqlx.DB / *sqlx.Tx
// so transactional and non-transactional callers share one code path.

type Execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

type Getter interface {
	GetContext(ctx context.Context, dest any, query string, args ...any) error
}

type Selecter interface {
	SelectContext(ctx context.Context, dest any, query string, args ...any) error
}

type DB interface {
	Execer
	Getter
	Selecter
}

type Tx interface {
	Execer
	Getter
}
