package core

import (
	"context"
	"sync"
)

type (
	// Transactor runs fn atomically. Work done through ctx inside fn is committed
	// together or not at all; hooks queued with AfterCommit run only once it is durable.
	Transactor interface {
		Atomic(ctx context.Context, fn func(ctx context.Context) error) error
	}

	// ContextRef identifies the owning container (course, group, question...) of a record.
	ContextRef struct {
		Type string `json:"context_type"`
		ID   int64  `json:"context_id"`
	}
)

func (ref ContextRef) IsZero() bool { return ref.Type == "" || ref.ID == 0 }

type DBOrdering struct {
	Field     string
	Ascending bool
}

func (ord DBOrdering) String() string {
	direction := "DESC"
	if ord.Ascending {
		direction = "ASC"
	}
	return ord.Field + " " + direction
}

// CommitHooks collects the callbacks queued during one transaction.
type CommitHooks struct {
	mu  sync.Mutex
	fns []func(ctx context.Context)
}

type commitHooksKey struct{}

// WithCommitHooks attaches a fresh hook list to ctx, unless one is already attached
// (nested Atomic calls join the outer transaction). owner is false when joining.
func WithCommitHooks(ctx context.Context) (_ context.Context, hooks *CommitHooks, owner bool) {
	if hooks, ok := ctx.Value(commitHooksKey{}).(*CommitHooks); ok {
		return ctx, hooks, false
	}
	hooks = new(CommitHooks)
	return context.WithValue(ctx, commitHooksKey{}, hooks), hooks, true
}

// AfterCommit queues fn to run after the transaction open on ctx commits.
// Without an open transaction the work is already durable and fn runs right away.
func AfterCommit(ctx context.Context, fn func(ctx context.Context)) {
	if hooks, ok := ctx.Value(commitHooksKey{}).(*CommitHooks); ok {
		hooks.mu.Lock()
		hooks.fns = append(hooks.fns, fn)
		hooks.mu.Unlock()
		return
	}
	fn(ctx)
}

// Run calls the queued hooks in order with ctx, which must not carry the finished transaction.
func (h *CommitHooks) Run(ctx context.Context) {
	h.mu.Lock()
	fns := h.fns
	h.fns = nil
	h.mu.Unlock()

	for _, fn := range fns {
		fn(ctx)
	}
}

// Discard drops the queued hooks (rollback).
func (h *CommitHooks) Discard() {
	h.mu.Lock()
	h.fns = nil
	h.mu.Unlock()
}
