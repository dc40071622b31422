package inmemdb

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/trezcool/quizbank/core"
	"github.com/trezcool/quizbank/core/question"
)

type questionRepository struct {
	db *DB
}

var _ question.Repository = (*questionRepository)(nil) // interface compliance check

func NewQuestionRepository(db *DB) *questionRepository {
	return &questionRepository{db: db}
}

func (repo *questionRepository) CreateQuestion(_ context.Context, q question.Question) (question.Question, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	q.ID = repo.db.nextPK()
	q = copyQuestion(q)
	repo.db.question.table[q.ID] = &q
	return copyQuestion(q), nil
}

func (repo *questionRepository) GetQuestion(_ context.Context, id int64) (question.Question, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if q, ok := repo.db.question.table[id]; ok {
		return copyQuestion(*q), nil
	}
	return question.Question{}, question.ErrNotFound
}

func (repo *questionRepository) QueryQuestions(_ context.Context, filter question.QueryFilter, ordering []core.DBOrdering) ([]question.Question, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	search := strings.ToLower(filter.Search)
	questions := make([]question.Question, 0)
	for _, q := range repo.db.question.table {
		switch {
		case filter.BankID != 0 && q.BankID != filter.BankID:
			continue
		case q.IsDeleted() && !filter.IncludeDeleted:
			continue
		case search != "" && !strings.Contains(strings.ToLower(q.Name), search):
			continue
		case len(filter.States) > 0 && !contains(filter.States, q.WorkflowState):
			continue
		case len(filter.Types) > 0 && !contains(filter.Types, q.Data.GetString("question_type")):
			continue
		}
		questions = append(questions, copyQuestion(*q))
	}

	sort.SliceStable(questions, func(i, j int) bool {
		return less(questions[i], questions[j], ordering)
	})
	return questions, nil
}

func (repo *questionRepository) UpdateQuestion(_ context.Context, q question.Question) (question.Question, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.question.table[q.ID]; !ok {
		return question.Question{}, question.ErrNotFound
	}
	q = copyQuestion(q)
	repo.db.question.table[q.ID] = &q
	return copyQuestion(q), nil
}

func (repo *questionRepository) NextPosition(_ context.Context, bankID int64) (int, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	var max int
	for _, q := range repo.db.question.table {
		if q.BankID == bankID && q.Position > max {
			max = q.Position
		}
	}
	return max + 1, nil
}

func contains(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}

// less compares two questions on the ordering fields, falling back to ids.
func less(a, b question.Question, ordering []core.DBOrdering) bool {
	for _, ord := range ordering {
		var c int
		switch ord.Field {
		case "id":
			c = compareInt(a.ID, b.ID)
		case "position":
			c = compareInt(int64(a.Position), int64(b.Position))
		case "name":
			c = strings.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name))
		case "created_at":
			c = compareTime(a.CreatedAt, b.CreatedAt)
		case "updated_at":
			c = compareTime(a.UpdatedAt, b.UpdatedAt)
		}
		if c == 0 {
			continue
		}
		if ord.Ascending {
			return c < 0
		}
		return c > 0
	}
	return a.ID < b.ID
}

func compareInt(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func compareTime(a, b time.Time) int {
	switch {
	case a.Before(b):
		return -1
	case a.After(b):
		return 1
	}
	return 0
}
