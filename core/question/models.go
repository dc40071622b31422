package question

import (
	"crypto/md5"
	"encoding/hex"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/quizbank/core"
	"github.com/trezcool/quizbank/core/qdata"
)

// Workflow states
const (
	StateActive              = "active"
	StateIndependentlyEdited = "independently_edited"
	StateDeleted             = "deleted"
)

const (
	// ContextType is the owner type given to files cloned into a question.
	ContextType = "AssessmentQuestion"

	UnfiledBankTitle = "Unfiled Questions"
	DefaultName      = "Question"

	variableSalt = "instructure-key"
)

var (
	// errors
	ErrNotFound          = errors.New("question not found")
	ErrBankNotFound      = errors.New("question bank not found")
	ErrInvalidTransition = errors.New("invalid workflow state transition")

	AllQuestionTypes = []string{
		"multiple_answers_question",
		"fill_in_multiple_blanks_question",
		"matching_question",
		"missing_word_question",
		"multiple_choice_question",
		"numerical_question",
		"text_only_question",
		"short_answer_question",
		"multiple_dropdowns_question",
		"calculated_question",
		"essay_question",
		"true_false_question",
		"file_upload_question",
	}

	NowFunc = time.Now // mockable
)

type (
	Question struct {
		ID            int64         `json:"id"`
		BankID        int64         `json:"assessment_question_bank_id" validate:"required"`
		Name          string        `json:"name" validate:"max=255"`
		Position      int           `json:"position"`
		Data          qdata.Mapping `json:"question_data"`
		WorkflowState string        `json:"workflow_state" validate:"required,oneof=active independently_edited deleted"`
		DeletedAt     *time.Time    `json:"deleted_at,omitempty"` // UTC
		CreatedAt     time.Time     `json:"created_at"`           // UTC
		UpdatedAt     time.Time     `json:"updated_at"`           // UTC
	}

	Bank struct {
		ID            int64           `json:"id"`
		Context       core.ContextRef `json:"context"`
		Title         string          `json:"title"`
		WorkflowState string          `json:"workflow_state"`
		CreatedAt     time.Time       `json:"created_at"`
		UpdatedAt     time.Time       `json:"updated_at"`
	}

	// NewQuestion is the create form. Without a BankID the question is filed into
	// the unfiled bank of Context.
	NewQuestion struct {
		BankID  int64           `json:"bank_id"`
		Context core.ContextRef `json:"-"`
		Data    qdata.Mapping   `json:"question" validate:"required"`
	}

	UpdateQuestion struct {
		Data qdata.Mapping `json:"question" validate:"required"`
	}

	NewBank struct {
		Context core.ContextRef `json:"context"`
		Title   string          `json:"title" validate:"notblank,max=255"`
	}

	QueryFilter struct {
		BankID         int64
		Search         string
		States         []string `validate:"dive,oneof=active independently_edited deleted"`
		Types          []string `validate:"dive,question_type"`
		IncludeDeleted bool
	}
)

// Owner is the context that files cloned for this question belong to.
func (q Question) Owner() core.ContextRef {
	return core.ContextRef{Type: ContextType, ID: q.ID}
}

func (q Question) IsDeleted() bool { return q.WorkflowState == StateDeleted }

// InferDefaults makes sure the payload carries a display name, mirrors it under
// "name" and copies it to q.Name.
func (q *Question) InferDefaults(defaultName string) {
	if defaultName == "" {
		defaultName = DefaultName
	}
	if q.Data == nil {
		q.Data = qdata.Mapping{}
	}
	if q.WorkflowState == "" {
		q.WorkflowState = StateActive
	}

	name := q.Data.GetString("question_name")
	if core.IsBlank(name) {
		name = defaultName
		q.Data.Set("question_name", qdata.String(name))
	}
	q.Data.Set("name", qdata.String(name))
	q.Name = name
}

// DataView returns a copy of the payload stamped with the record id, as served to clients.
func (q Question) DataView(defaultName string) qdata.Mapping {
	if defaultName == "" {
		defaultName = DefaultName
	}
	res := q.Data.Clone()
	id := qdata.Number(strconv.FormatInt(q.ID, 10))
	res.Set("assessment_question_id", id)
	if qdata.IsBlank(res["question_name"]) {
		res.Set("question_name", qdata.String(defaultName))
	}
	res.Set("id", id)
	return res
}

// MarkIndependentlyEdited moves an active question to independently_edited.
// It is a no-op on an already independently edited question.
func (q *Question) MarkIndependentlyEdited() error {
	switch q.WorkflowState {
	case StateActive:
		q.WorkflowState = StateIndependentlyEdited
		return nil
	case StateIndependentlyEdited:
		return nil
	default:
		return errors.Wrapf(ErrInvalidTransition, "%s -> %s", q.WorkflowState, StateIndependentlyEdited)
	}
}

// MarkDeleted soft deletes the question. Deleted is terminal.
func (q *Question) MarkDeleted(at time.Time) error {
	switch q.WorkflowState {
	case StateActive, StateIndependentlyEdited:
		at = at.UTC()
		q.WorkflowState = StateDeleted
		q.DeletedAt = &at
		return nil
	default:
		return errors.Wrapf(ErrInvalidTransition, "%s -> %s", q.WorkflowState, StateDeleted)
	}
}

// CloneFor copies name, payload and state into a new, unsaved question of bank.
func (q Question) CloneFor(bank Bank) Question {
	return Question{
		BankID:        bank.ID,
		Name:          q.Name,
		Data:          q.Data.Clone(),
		WorkflowState: q.WorkflowState,
	}
}

// Scrub strips a trailing UTF-8 byte order mark left behind by some imports.
func Scrub(text string) string {
	return strings.TrimSuffix(text, "\xef\xbb\xbf")
}

// VariableID derives the stable identifier of a dropdown variable.
func VariableID(variable string) string {
	sum := md5.Sum([]byte(strings.Join([]string{"dropdown", variable, variableSalt}, ",")))
	return hex.EncodeToString(sum[:])
}

func IsQuestionType(typ string) bool {
	for _, t := range AllQuestionTypes {
		if t == typ {
			return true
		}
	}
	return false
}
