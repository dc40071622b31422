package inmemdb

import (
	"context"
	"time"

	"github.com/trezcool/quizbank/core"
	"github.com/trezcool/quizbank/core/question"
)

type bankRepository struct {
	db *DB
}

var _ question.BankRepository = (*bankRepository)(nil) // interface compliance check

func NewBankRepository(db *DB) *bankRepository {
	return &bankRepository{db: db}
}

func (repo *bankRepository) create(b question.Bank) question.Bank {
	now := time.Now().UTC()
	b.ID = repo.db.nextPK()
	if b.WorkflowState == "" {
		b.WorkflowState = question.StateActive
	}
	b.CreatedAt, b.UpdatedAt = now, now
	repo.db.bank.table[b.ID] = &b
	return b
}

func (repo *bankRepository) CreateBank(_ context.Context, b question.Bank) (question.Bank, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()
	return repo.create(b), nil
}

func (repo *bankRepository) GetBank(_ context.Context, id int64) (question.Bank, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if b, ok := repo.db.bank.table[id]; ok {
		return *b, nil
	}
	return question.Bank{}, question.ErrBankNotFound
}

func (repo *bankRepository) GetOrCreateUnfiledBank(_ context.Context, ref core.ContextRef) (question.Bank, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	for _, b := range repo.db.bank.table {
		if b.Context == ref && b.Title == question.UnfiledBankTitle && b.WorkflowState != question.StateDeleted {
			return *b, nil
		}
	}
	return repo.create(question.Bank{Context: ref, Title: question.UnfiledBankTitle}), nil
}

func (repo *bankRepository) TouchBank(_ context.Context, id int64) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	b, ok := repo.db.bank.table[id]
	if !ok {
		return question.ErrBankNotFound
	}
	b.UpdatedAt = time.Now().UTC()
	return nil
}
