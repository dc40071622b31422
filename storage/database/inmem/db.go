// Package inmemdb is a process-local store for development and tests.
package inmemdb

import (
	"context"
	"sync"

	"github.com/trezcool/quizbank/core"
	"github.com/trezcool/quizbank/core/attachment"
	"github.com/trezcool/quizbank/core/question"
)

type (
	bankTable struct {
		table map[int64]*question.Bank
	}

	questionTable struct {
		table map[int64]*question.Question
	}

	attachmentTable struct {
		table map[int64]*attachment.Attachment
	}

	// DB holds every table behind one lock. Transactions are serialized and
	// restored from a snapshot on error.
	DB struct {
		mutex sync.RWMutex
		txMu  sync.Mutex
		pk    int64

		bank       bankTable
		question   questionTable
		attachment attachmentTable
	}
)

var _ core.Transactor = (*DB)(nil) // interface compliance check

func NewDB() *DB {
	return &DB{
		bank:       bankTable{table: make(map[int64]*question.Bank)},
		question:   questionTable{table: make(map[int64]*question.Question)},
		attachment: attachmentTable{table: make(map[int64]*attachment.Attachment)},
	}
}

// nextPK must be called with the write lock held.
func (db *DB) nextPK() int64 {
	db.pk++
	return db.pk
}

type txKey struct{}

func (db *DB) Atomic(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	if ctx.Value(txKey{}) == db {
		return fn(ctx)
	}

	db.txMu.Lock()
	snap := db.snapshot()
	txCtx, hooks, _ := core.WithCommitHooks(context.WithValue(ctx, txKey{}, db))

	committed := false
	func() {
		defer func() {
			if !committed {
				db.restore(snap)
				hooks.Discard()
			}
			db.txMu.Unlock()
		}()
		if err = fn(txCtx); err == nil {
			committed = true
		}
	}()
	if err != nil {
		return err
	}

	hooks.Run(ctx)
	return nil
}

type snapshot struct {
	pk          int64
	banks       map[int64]question.Bank
	questions   map[int64]question.Question
	attachments map[int64]attachment.Attachment
}

func (db *DB) snapshot() snapshot {
	db.mutex.RLock()
	defer db.mutex.RUnlock()

	s := snapshot{
		pk:          db.pk,
		banks:       make(map[int64]question.Bank, len(db.bank.table)),
		questions:   make(map[int64]question.Question, len(db.question.table)),
		attachments: make(map[int64]attachment.Attachment, len(db.attachment.table)),
	}
	for id, b := range db.bank.table {
		s.banks[id] = *b
	}
	for id, q := range db.question.table {
		s.questions[id] = copyQuestion(*q)
	}
	for id, a := range db.attachment.table {
		s.attachments[id] = *a
	}
	return s
}

func (db *DB) restore(s snapshot) {
	db.mutex.Lock()
	defer db.mutex.Unlock()

	db.pk = s.pk
	db.bank.table = make(map[int64]*question.Bank, len(s.banks))
	for id, b := range s.banks {
		b := b
		db.bank.table[id] = &b
	}
	db.question.table = make(map[int64]*question.Question, len(s.questions))
	for id, q := range s.questions {
		q := q
		db.question.table[id] = &q
	}
	db.attachment.table = make(map[int64]*attachment.Attachment, len(s.attachments))
	for id, a := range s.attachments {
		a := a
		db.attachment.table[id] = &a
	}
}

// Reset empties every table.
func (db *DB) Reset() {
	db.mutex.Lock()
	defer db.mutex.Unlock()

	db.pk = 0
	db.bank.table = make(map[int64]*question.Bank)
	db.question.table = make(map[int64]*question.Question)
	db.attachment.table = make(map[int64]*attachment.Attachment)
}

func copyQuestion(q question.Question) question.Question {
	q.Data = q.Data.Clone()
	if q.DeletedAt != nil {
		at := *q.DeletedAt
		q.DeletedAt = &at
	}
	return q
}
