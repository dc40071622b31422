package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/quizbank/core"
	"github.com/trezcool/quizbank/core/question"
	"github.com/trezcool/quizbank/storage/database"
)

const bankColumns = "id, context_type, context_id, title, workflow_state, created_at, updated_at"

type bankRow struct {
	ID            int64     `db:"id"`
	ContextType   string    `db:"context_type"`
	ContextID     int64     `db:"context_id"`
	Title         string    `db:"title"`
	WorkflowState string    `db:"workflow_state"`
	CreatedAt     time.Time `db:"created_at"`
	UpdatedAt     time.Time `db:"updated_at"`
}

func (r bankRow) bank() question.Bank {
	return question.Bank{
		ID:            r.ID,
		Context:       core.ContextRef{Type: r.ContextType, ID: r.ContextID},
		Title:         r.Title,
		WorkflowState: r.WorkflowState,
		CreatedAt:     r.CreatedAt.UTC(),
		UpdatedAt:     r.UpdatedAt.UTC(),
	}
}

type bankRepository struct {
	tx *database.Transactor
}

var _ question.BankRepository = (*bankRepository)(nil) // interface compliance check

func NewBankRepository(tx *database.Transactor) *bankRepository {
	return &bankRepository{tx: tx}
}

func (repo *bankRepository) CreateBank(ctx context.Context, b question.Bank) (question.Bank, error) {
	if b.WorkflowState == "" {
		b.WorkflowState = question.StateActive
	}
	var row bankRow
	err := repo.tx.Exec(ctx).GetContext(ctx, &row, `
		INSERT INTO question_banks (context_type, context_id, title, workflow_state)
		VALUES ($1, $2, $3, $4)
		RETURNING `+bankColumns,
		b.Context.Type, b.Context.ID, b.Title, b.WorkflowState,
	)
	if err != nil {
		return question.Bank{}, errors.Wrap(err, "inserting question bank")
	}
	return row.bank(), nil
}

func (repo *bankRepository) GetBank(ctx context.Context, id int64) (question.Bank, error) {
	var row bankRow
	err := repo.tx.Exec(ctx).GetContext(ctx, &row, "SELECT "+bankColumns+" FROM question_banks WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return question.Bank{}, question.ErrBankNotFound
	}
	if err != nil {
		return question.Bank{}, errors.Wrapf(err, "selecting question bank %d", id)
	}
	return row.bank(), nil
}

func (repo *bankRepository) GetOrCreateUnfiledBank(ctx context.Context, ref core.ContextRef) (question.Bank, error) {
	var row bankRow
	err := repo.tx.Exec(ctx).GetContext(ctx, &row, `
		SELECT `+bankColumns+` FROM question_banks
		WHERE context_type = $1 AND context_id = $2 AND title = $3 AND workflow_state <> $4
		ORDER BY id LIMIT 1`,
		ref.Type, ref.ID, question.UnfiledBankTitle, question.StateDeleted,
	)
	switch {
	case err == sql.ErrNoRows:
		return repo.CreateBank(ctx, question.Bank{Context: ref, Title: question.UnfiledBankTitle})
	case err != nil:
		return question.Bank{}, errors.Wrap(err, "selecting unfiled question bank")
	}
	return row.bank(), nil
}

func (repo *bankRepository) TouchBank(ctx context.Context, id int64) error {
	res, err := repo.tx.Exec(ctx).ExecContext(ctx, "UPDATE question_banks SET updated_at = now() WHERE id = $1", id)
	if err != nil {
		return errors.Wrapf(err, "touching question bank %d", id)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return question.ErrBankNotFound
	}
	return nil
}
