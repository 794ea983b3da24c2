package composables

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/crowd-dev/crowd-api/pkg/configuration"
	"github.com/crowd-dev/crowd-api/pkg/constants"
	"github.com/crowd-dev/crowd-api/pkg/repo"
)

const rlsEnforce = "enforce"

var ErrRLSRequiresTx = errors.New("rls enforced: tenant queries require an explicit transaction")

// InTenantTx joins the transaction already in ctx, or opens a new one on the
// pool. RLS is applied in both cases.
func InTenantTx(ctx context.Context, fn func(context.Context) error) error {
	if existing, ok := ctx.Value(constants.TxKey).(pgx.Tx); ok && existing != nil {
		if err := ApplyTenantRLS(ctx, existing); err != nil {
			return err
		}
		return fn(ctx)
	}

	pool, err := UsePool(ctx)
	if err != nil {
		return err
	}
	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}
	return runInTx(ctx, tx, fn)
}

func InTenantTxResult[T any](ctx context.Context, fn func(context.Context) (T, error)) (T, error) {
	var out T
	err := InTenantTx(ctx, func(txCtx context.Context) error {
		var innerErr error
		out, innerErr = fn(txCtx)
		return innerErr
	})
	return out, err
}

// InTxResult runs fn through m and returns its result.
func InTxResult[T any](ctx context.Context, m TxManager, fn func(context.Context) (T, error)) (T, error) {
	var out T
	err := m.InTx(ctx, func(txCtx context.Context) error {
		var innerErr error
		out, innerErr = fn(txCtx)
		return innerErr
	})
	return out, err
}

// InTxPage runs a list query through m and returns the page with its total.
func InTxPage[T any](ctx context.Context, m TxManager, fn func(context.Context) ([]T, int64, error)) ([]T, int64, error) {
	var (
		rows  []T
		count int64
	)
	err := m.InTx(ctx, func(txCtx context.Context) error {
		var innerErr error
		rows, count, innerErr = fn(txCtx)
		return innerErr
	})
	if err != nil {
		return nil, 0, err
	}
	return rows, count, nil
}

// HasTx reports whether ctx carries an open transaction.
func HasTx(ctx context.Context) bool {
	tx, ok := ctx.Value(constants.TxKey).(pgx.Tx)
	return ok && tx != nil
}

// UseTenantTx returns the executor and tenant id used by tenant scoped
// repositories. With RLS enforced an explicit transaction is required.
func UseTenantTx(ctx context.Context) (repo.Tx, uuid.UUID, error) {
	tenantID, err := UseTenantID(ctx)
	if err != nil {
		return nil, uuid.Nil, fmt.Errorf("failed to get tenant from context: %w", err)
	}
	if err := requireTenantTx(ctx, configuration.Use().RLSEnforce); err != nil {
		return nil, uuid.Nil, err
	}
	tx, err := UseTx(ctx)
	if err != nil {
		return nil, uuid.Nil, err
	}
	return tx, tenantID, nil
}

func requireTenantTx(ctx context.Context, mode string) error {
	if mode == rlsEnforce && !HasTx(ctx) {
		return ErrRLSRequiresTx
	}
	return nil
}

// ApplyTenantRLS binds app.current_tenant for the rest of tx when RLS is
// enforced.
func ApplyTenantRLS(ctx context.Context, tx pgx.Tx) error {
	return applyTenantRLS(ctx, tx, configuration.Use().RLSEnforce)
}

func applyTenantRLS(ctx context.Context, tx pgx.Tx, mode string) error {
	if mode != rlsEnforce {
		return nil
	}
	tenantID, err := UseTenantID(ctx)
	if err != nil {
		return fmt.Errorf("rls requires tenant in context: %w", err)
	}
	if _, err := tx.Exec(ctx, "SELECT set_config('app.current_tenant', $1, true)", tenantID.String()); err != nil {
		return fmt.Errorf("failed to set rls tenant context: %w", err)
	}
	return nil
}
