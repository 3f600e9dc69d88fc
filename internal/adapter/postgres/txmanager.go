package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// TxManager manages database transactions using the context pattern.
type TxManager struct {
	pool *pgxpool.Pool
}

// NewTxManager creates a new TxManager.
func NewTxManager(pool *pgxpool.Pool) *TxManager {
	return &TxManager{pool: pool}
}

// RunInTx executes fn within a database transaction (Read Committed).
// If ctx already carries a transaction, fn joins it and the outer call
// decides the outcome. An error from fn rolls back; a panic rolls back and
// re-panics.
func (m *TxManager) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txCtxKey{}).(pgx.Tx); ok {
		return fn(ctx)
	}
	return m.run(ctx, "", fn)
}

// RunInTxLocked is RunInTx holding a transaction-scoped advisory lock on
// key, so concurrent writers for the same key are serialised.
func (m *TxManager) RunInTxLocked(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	if tx, ok := ctx.Value(txCtxKey{}).(pgx.Tx); ok {
		if err := advisoryLock(ctx, tx, key); err != nil {
			return err
		}
		return fn(ctx)
	}
	return m.run(ctx, key, fn)
}

func (m *TxManager) run(ctx context.Context, lockKey string, fn func(ctx context.Context) error) (err error) {
	tx, err := m.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	defer func() {
		if r := recover(); r != nil {
			_ = tx.Rollback(ctx)
			panic(r)
		}
	}()

	if lockKey != "" {
		if err := advisoryLock(ctx, tx, lockKey); err != nil {
			_ = tx.Rollback(ctx)
			return err
		}
	}

	if err := fn(withTx(ctx, tx)); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil {
			return fmt.Errorf("rollback failed: %w (original error: %v)", rbErr, err)
		}
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	return nil
}

func advisoryLock(ctx context.Context, tx pgx.Tx, key string) error {
	if _, err := tx.Exec(ctx, "SELECT pg_advisory_xact_lock(hashtext($1))", key); err != nil {
		return fmt.Errorf("advisory lock %q: %w", key, err)
	}
	return nil
}
