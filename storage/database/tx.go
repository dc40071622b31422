package database

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/quizbank/core"
)

// Executor is what repositories run their queries on: the db or an open transaction.
type Executor interface {
	sqlx.ExtContext
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
}

type txKey struct{}

// Transactor opens one sql transaction per outermost Atomic call and carries it in the context.
type Transactor struct {
	db *sqlx.DB
}

var (
	_ core.Transactor = (*Transactor)(nil) // interface compliance check
	_ Executor        = (*sqlx.DB)(nil)
	_ Executor        = (*sqlx.Tx)(nil)
)

func NewTransactor(db *sqlx.DB) *Transactor {
	return &Transactor{db: db}
}

func (t *Transactor) Atomic(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	if _, ok := ctx.Value(txKey{}).(*sqlx.Tx); ok {
		return fn(ctx)
	}

	tx, err := t.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "beginning transaction")
	}
	txCtx, hooks, _ := core.WithCommitHooks(context.WithValue(ctx, txKey{}, tx))

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			hooks.Discard()
			panic(p)
		}
	}()

	if err = fn(txCtx); err != nil {
		hooks.Discard()
		if rbErr := tx.Rollback(); rbErr != nil {
			return errors.Wrapf(err, "rolling back transaction: %v", rbErr)
		}
		return err
	}
	if err = tx.Commit(); err != nil {
		hooks.Discard()
		return errors.Wrap(err, "committing transaction")
	}

	hooks.Run(ctx)
	return nil
}

// Exec returns the transaction open on ctx, or the db itself.
func (t *Transactor) Exec(ctx context.Context) Executor {
	if tx, ok := ctx.Value(txKey{}).(*sqlx.Tx); ok {
		return tx
	}
	return t.db
}
