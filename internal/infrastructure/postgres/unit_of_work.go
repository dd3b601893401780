package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// txKey is the context key for storing transaction.
type txKey struct{}

var errNoTransaction = errors.New("no transaction in context")

// UnitOfWork implements application.UnitOfWork using pgx transactions.
// the transaction travels in the context, repositories pick it up via GetQuerier.
type UnitOfWork struct {
	pool *pgxpool.Pool
}

// NewUnitOfWork creates a new UnitOfWork.
func NewUnitOfWork(pool *pgxpool.Pool) *UnitOfWork {
	return &UnitOfWork{pool: pool}
}

// Begin starts a new transaction and stores it in context.
// beginning inside an open transaction opens a savepoint.
func (u *UnitOfWork) Begin(ctx context.Context) (context.Context, error) {
	var (
		tx  pgx.Tx
		err error
	)
	if outer, ok := txFrom(ctx); ok {
		tx, err = outer.Begin(ctx)
	} else {
		tx, err = u.pool.Begin(ctx)
	}
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	return context.WithValue(ctx, txKey{}, tx), nil
}

// Commit commits the transaction stored in context.
func (u *UnitOfWork) Commit(ctx context.Context) error {
	tx, ok := txFrom(ctx)
	if !ok {
		return errNoTransaction
	}
	return tx.Commit(ctx)
}

// Rollback rolls back the transaction stored in context.
// a no-op after commit.
func (u *UnitOfWork) Rollback(ctx context.Context) error {
	tx, ok := txFrom(ctx)
	if !ok {
		return nil
	}
	err := tx.Rollback(ctx)
	if errors.Is(err, pgx.ErrTxClosed) {
		return nil
	}
	return err
}

func txFrom(ctx context.Context) (pgx.Tx, bool) {
	tx, ok := ctx.Value(txKey{}).(pgx.Tx)
	return tx, ok
}

// Querier is an interface that both pgxpool.Pool and pgx.Tx satisfy.
type Querier interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// GetQuerier returns the transaction in ctx, or the pool when there is none.
func GetQuerier(ctx context.Context, pool *pgxpool.Pool) Querier {
	if tx, ok := txFrom(ctx); ok {
		return tx
	}
	return pool
}

// beginner is satisfied by both the pool and an open transaction.
type beginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// beginOrNest starts a transaction, nested as a savepoint when ctx already has one.
func beginOrNest(ctx context.Context, pool *pgxpool.Pool) (pgx.Tx, error) {
	var b beginner = pool
	if tx, ok := txFrom(ctx); ok {
		b = tx
	}
	return b.Begin(ctx)
}
