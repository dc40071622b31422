package sqlxrepos

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/quizbank/core"
	"github.com/trezcool/quizbank/core/qdata"
	"github.com/trezcool/quizbank/core/question"
	"github.com/trezcool/quizbank/storage/database"
)

const questionColumns = "id, assessment_question_bank_id, name, position, question_data, workflow_state, deleted_at, created_at, updated_at"

// orderable maps the accepted ordering fields to their column.
var orderable = map[string]string{
	"id":         "id",
	"position":   "position",
	"name":       "lower(name)",
	"created_at": "created_at",
	"updated_at": "updated_at",
}

type questionRow struct {
	ID            int64         `db:"id"`
	BankID        int64         `db:"assessment_question_bank_id"`
	Name          string        `db:"name"`
	Position      int           `db:"position"`
	Data          qdata.Mapping `db:"question_data"`
	WorkflowState string        `db:"workflow_state"`
	DeletedAt     null.Time     `db:"deleted_at"`
	CreatedAt     time.Time     `db:"created_at"`
	UpdatedAt     time.Time     `db:"updated_at"`
}

func (r questionRow) question() question.Question {
	q := question.Question{
		ID:            r.ID,
		BankID:        r.BankID,
		Name:          r.Name,
		Position:      r.Position,
		Data:          r.Data,
		WorkflowState: r.WorkflowState,
		CreatedAt:     r.CreatedAt.UTC(),
		UpdatedAt:     r.UpdatedAt.UTC(),
	}
	if r.DeletedAt.Valid {
		at := r.DeletedAt.Time.UTC()
		q.DeletedAt = &at
	}
	return q
}

type questionRepository struct {
	tx *database.Transactor
}

var _ question.Repository = (*questionRepository)(nil) // interface compliance check

func NewQuestionRepository(tx *database.Transactor) *questionRepository {
	return &questionRepository{tx: tx}
}

func (repo *questionRepository) CreateQuestion(ctx context.Context, q question.Question) (question.Question, error) {
	var row questionRow
	err := repo.tx.Exec(ctx).GetContext(ctx, &row, `
		INSERT INTO assessment_questions
			(assessment_question_bank_id, name, position, question_data, workflow_state, deleted_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING `+questionColumns,
		q.BankID, q.Name, q.Position, q.Data, q.WorkflowState, null.TimeFromPtr(q.DeletedAt), q.CreatedAt, q.UpdatedAt,
	)
	if err != nil {
		return question.Question{}, errors.Wrap(err, "inserting question")
	}
	return row.question(), nil
}

func (repo *questionRepository) GetQuestion(ctx context.Context, id int64) (question.Question, error) {
	var row questionRow
	err := repo.tx.Exec(ctx).GetContext(ctx, &row, "SELECT "+questionColumns+" FROM assessment_questions WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return question.Question{}, question.ErrNotFound
	}
	if err != nil {
		return question.Question{}, errors.Wrapf(err, "selecting question %d", id)
	}
	return row.question(), nil
}

func (repo *questionRepository) QueryQuestions(ctx context.Context, filter question.QueryFilter, ordering []core.DBOrdering) ([]question.Question, error) {
	query, args := buildQuestionQuery(filter, ordering)
	var rows []questionRow
	if err := repo.tx.Exec(ctx).SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "selecting questions")
	}

	questions := make([]question.Question, 0, len(rows))
	for _, row := range rows {
		questions = append(questions, row.question())
	}
	return questions, nil
}

// likeEscaper makes a search term match literally inside an ILIKE pattern.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func buildQuestionQuery(filter question.QueryFilter, ordering []core.DBOrdering) (string, []interface{}) {
	var (
		where []string
		args  []interface{}
	)
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.BankID != 0 {
		where = append(where, "assessment_question_bank_id = "+arg(filter.BankID))
	}
	if !filter.IncludeDeleted {
		where = append(where, "workflow_state <> "+arg(question.StateDeleted))
	}
	if filter.Search != "" {
		where = append(where, "name ILIKE '%' || "+arg(likeEscaper.Replace(filter.Search))+` || '%' ESCAPE '\'`)
	}
	if len(filter.States) > 0 {
		where = append(where, "workflow_state = ANY("+arg(pq.Array(filter.States))+")")
	}
	if len(filter.Types) > 0 {
		where = append(where, "question_data->>'question_type' = ANY("+arg(pq.Array(filter.Types))+")")
	}

	var b strings.Builder
	b.WriteString("SELECT " + questionColumns + " FROM assessment_questions")
	if len(where) > 0 {
		b.WriteString(" WHERE " + strings.Join(where, " AND "))
	}

	order := make([]string, 0, len(ordering)+1)
	for _, ord := range ordering {
		if col, ok := orderable[ord.Field]; ok {
			order = append(order, core.DBOrdering{Field: col, Ascending: ord.Ascending}.String())
		}
	}
	order = append(order, "id ASC")
	b.WriteString(" ORDER BY " + strings.Join(order, ", "))
	return b.String(), args
}

func (repo *questionRepository) UpdateQuestion(ctx context.Context, q question.Question) (question.Question, error) {
	var row questionRow
	err := repo.tx.Exec(ctx).GetContext(ctx, &row, `
		UPDATE assessment_questions
		SET assessment_question_bank_id = $2, name = $3, position = $4, question_data = $5,
			workflow_state = $6, deleted_at = $7, updated_at = $8
		WHERE id = $1
		RETURNING `+questionColumns,
		q.ID, q.BankID, q.Name, q.Position, q.Data, q.WorkflowState, null.TimeFromPtr(q.DeletedAt), q.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return question.Question{}, question.ErrNotFound
	}
	if err != nil {
		return question.Question{}, errors.Wrapf(err, "updating question %d", q.ID)
	}
	return row.question(), nil
}

func (repo *questionRepository) NextPosition(ctx context.Context, bankID int64) (int, error) {
	var pos int
	err := repo.tx.Exec(ctx).GetContext(ctx, &pos,
		"SELECT COALESCE(MAX(position), 0) + 1 FROM assessment_questions WHERE assessment_question_bank_id = $1", bankID)
	if err != nil {
		return 0, errors.Wrapf(err, "selecting next position in bank %d", bankID)
	}
	return pos, nil
}
