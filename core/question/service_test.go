package question_test

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/quizbank/core"
	"github.com/trezcool/quizbank/core/attachment"
	"github.com/trezcool/quizbank/core/qdata"
	"github.com/trezcool/quizbank/core/question"
	"github.com/trezcool/quizbank/tests"
)

type passRecorder struct {
	mu     sync.Mutex
	passes []question.PassStats
}

func (r *passRecorder) ObservePass(stats question.PassStats) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.passes = append(r.passes, stats)
}

func (r *passRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.passes)
}

func downloadURL(q question.Question, clone attachment.Attachment) string {
	return fmt.Sprintf("/assessment_questions/%d/files/%d/download?verifier=%s", q.ID, clone.ID, clone.UUID)
}

// cloneOwnedBy returns the single attachment owned by q.
func cloneOwnedBy(t *testing.T, env *testutil.Env, q question.Question) attachment.Attachment {
	t.Helper()
	var found []attachment.Attachment
	for id := int64(1); id < 200; id++ {
		if a, err := env.AttRepo.GetAttachment(context.Background(), id); err == nil && a.Context == q.Owner() {
			found = append(found, a)
		}
	}
	require.Len(t, found, 1, "attachments owned by question %d", q.ID)
	return found[0]
}

func TestService_Create_translatesLinksAfterCommit(t *testing.T) {
	rec := new(passRecorder)
	env := testutil.NewEnv(t, rec)
	ctx := context.Background()

	bank := testutil.CreateBank(t, env.Banks, testutil.Course, "Geography")
	file := testutil.CreateAttachment(t, env.AttRepo, testutil.Course, "course files/unfiled/map.png")
	link := fmt.Sprintf("/courses/15395/files/%d/download?verifier=%s", file.ID, file.UUID)

	q, err := env.Svc.Create(ctx, question.NewQuestion{
		BankID: bank.ID,
		Data: qdata.Mapping{
			"question_name": qdata.String("Where?"),
			"question_type": qdata.String("multiple_choice_question"),
			"question_text": qdata.String(`<img src="` + link + `">`),
		},
	})
	require.NoError(t, err)

	stored, err := env.Svc.Get(ctx, q.ID)
	require.NoError(t, err)

	clone := cloneOwnedBy(t, env, stored)
	assert.Equal(t, file.ID, *clone.RootAttachmentID)
	assert.NotEqual(t, file.UUID, clone.UUID)

	want := `<img src="` + downloadURL(stored, clone) + "&verifier=" + file.UUID + `">`
	assert.Equal(t, want, stored.Data.GetString("question_text"))
	assert.Equal(t, "Where?", stored.Name)
	assert.Equal(t, 1, stored.Position)

	// the pass saved its result without scheduling another one
	assert.Equal(t, 1, rec.count())
}

func TestService_Create_pathLink(t *testing.T) {
	env := testutil.NewEnv(t)
	bank := testutil.CreateBank(t, env.Banks, testutil.Course, "Images")
	testutil.CreateAttachment(t, env.AttRepo, testutil.Course, "course files/unfiled/test.jpg")

	q := testutil.CreateQuestion(t, env.Svc, bank.ID, qdata.Mapping{
		"question_text": qdata.String(`<img src="/courses/15395/file_contents/course%20files/unfiled/test.jpg">`),
	})

	stored, err := env.Svc.Get(context.Background(), q.ID)
	require.NoError(t, err)
	clone := cloneOwnedBy(t, env, stored)
	assert.Equal(t, "test.jpg", clone.DisplayName)
	assert.Equal(t, `<img src="`+downloadURL(stored, clone)+`">`, stored.Data.GetString("question_text"))
}

func TestService_Create_overwrittenFile(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()
	bank := testutil.CreateBank(t, env.Banks, testutil.Course, "Bank")
	current := testutil.CreateAttachment(t, env.AttRepo, testutil.Course, "course files/chart.png")
	old, err := attachment.NewService(env.AttRepo).Create(ctx, attachment.Attachment{
		Context:                 testutil.Course,
		FolderPath:              "course files",
		DisplayName:             "chart.png",
		WorkflowState:           attachment.StateDeleted,
		ReplacementAttachmentID: &current.ID,
	})
	require.NoError(t, err)

	q := testutil.CreateQuestion(t, env.Svc, bank.ID, qdata.Mapping{
		"question_text": qdata.String(fmt.Sprintf("/courses/15395/files/%d/download", old.ID)),
	})

	stored, err := env.Svc.Get(ctx, q.ID)
	require.NoError(t, err)
	clone := cloneOwnedBy(t, env, stored)
	if assert.NotNil(t, clone.ClonedFromID) {
		assert.Equal(t, current.ID, *clone.ClonedFromID)
	}
	assert.Equal(t, downloadURL(stored, clone), stored.Data.GetString("question_text"))
	assert.Empty(t, env.Logger.Reports)
}

func TestService_translationWaitsForCommit(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()
	bank := testutil.CreateBank(t, env.Banks, testutil.Course, "Bank")
	file := testutil.CreateAttachment(t, env.AttRepo, testutil.Course, "course files/a.png")
	data := qdata.Mapping{"question_text": qdata.String(fmt.Sprintf("/courses/15395/files/%d/preview", file.ID))}

	err := env.DB.Atomic(ctx, func(ctx context.Context) error {
		if _, err := env.Svc.Create(ctx, question.NewQuestion{BankID: bank.ID, Data: data}); err != nil {
			return err
		}
		if env.Files.Clones != 0 {
			t.Errorf("a file was cloned before the question was committed")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, env.Files.Clones)

	// rolled back: nothing stored, nothing cloned
	boom := errors.New("boom")
	err = env.DB.Atomic(ctx, func(ctx context.Context) error {
		if _, err := env.Svc.Create(ctx, question.NewQuestion{BankID: bank.ID, Data: data}); err != nil {
			return err
		}
		return boom
	})
	assert.Equal(t, boom, err)
	assert.Equal(t, 1, env.Files.Clones)

	questions, err := env.Svc.Query(ctx, question.QueryFilter{BankID: bank.ID})
	require.NoError(t, err)
	assert.Len(t, questions, 1)
}

func TestService_Save_skipRelink(t *testing.T) {
	rec := new(passRecorder)
	env := testutil.NewEnv(t, rec)
	ctx := context.Background()
	bank := testutil.CreateBank(t, env.Banks, testutil.Course, "Bank")
	file := testutil.CreateAttachment(t, env.AttRepo, testutil.Course, "course files/a.png")
	link := fmt.Sprintf("/courses/15395/files/%d/download", file.ID)

	q, err := env.Svc.Save(ctx, question.Question{
		BankID: bank.ID,
		Data:   qdata.Mapping{"question_text": qdata.String(link)},
	}, question.SaveOptions{SkipRelink: true})
	require.NoError(t, err)
	assert.Equal(t, 0, rec.count())
	assert.Equal(t, link, q.Data.GetString("question_text"))

	// explicit second phase
	q, err = env.Svc.TranslateLinks(ctx, q.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, rec.count())
	assert.Equal(t, downloadURL(q, cloneOwnedBy(t, env, q)), q.Data.GetString("question_text"))

	// unchanged payload: no pass
	_, err = env.Svc.Save(ctx, q, question.SaveOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, rec.count())

	// translating again is a fixed point
	again, err := env.Svc.TranslateLinks(ctx, q.ID)
	require.NoError(t, err)
	assert.True(t, qdata.Equal(q.Data, again.Data))
	assert.Equal(t, 1, env.Files.Clones)
}

func TestService_cloneFailureKeepsQuestion(t *testing.T) {
	env := testutil.NewEnv(t)
	env.Files.CloneErr = errors.New("storage unavailable")
	bank := testutil.CreateBank(t, env.Banks, testutil.Course, "Bank")
	file := testutil.CreateAttachment(t, env.AttRepo, testutil.Course, "course files/a.png")
	link := fmt.Sprintf("/courses/15395/files/%d/download", file.ID)

	q := testutil.CreateQuestion(t, env.Svc, bank.ID, qdata.Mapping{"question_text": qdata.String(link)})

	stored, err := env.Svc.Get(context.Background(), q.ID)
	require.NoError(t, err)
	assert.Equal(t, link, stored.Data.GetString("question_text"))
	require.Len(t, env.Logger.Reports, 1)
	assert.Equal(t, question.CloneErrorTag, env.Logger.Reports[0].Tag)
}

func TestService_Create_unfiledBank(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()

	q1, err := env.Svc.Create(ctx, question.NewQuestion{Context: testutil.Course, Data: qdata.Mapping{}})
	require.NoError(t, err)
	q2, err := env.Svc.Create(ctx, question.NewQuestion{Context: testutil.Course, Data: qdata.Mapping{"question_name": qdata.String("Two")}})
	require.NoError(t, err)

	assert.Equal(t, q1.BankID, q2.BankID)
	bank, err := env.Banks.GetBank(ctx, q1.BankID)
	require.NoError(t, err)
	assert.Equal(t, question.UnfiledBankTitle, bank.Title)
	assert.Equal(t, testutil.Course, bank.Context)

	assert.Equal(t, question.DefaultName, q1.Name)
	assert.Equal(t, qdata.String(question.DefaultName), q1.Data["name"])
	assert.Equal(t, 1, q1.Position)
	assert.Equal(t, 2, q2.Position)
}

func TestService_Create_validation(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()
	bank := testutil.CreateBank(t, env.Banks, testutil.Course, "Bank")

	tests := []struct {
		name    string
		nq      question.NewQuestion
		wantErr func(error) bool
	}{
		{
			name: "missing payload",
			nq:   question.NewQuestion{BankID: bank.ID},
			wantErr: func(err error) bool {
				_, ok := errors.Cause(err).(validator.ValidationErrors)
				return ok
			},
		},
		{
			name: "unknown question type",
			nq:   question.NewQuestion{BankID: bank.ID, Data: qdata.Mapping{"question_type": qdata.String("riddle")}},
			wantErr: func(err error) bool {
				vErrs, ok := errors.Cause(err).(validator.ValidationErrors)
				return ok && vErrs[0].Tag() == "question_type"
			},
		},
		{
			name: "no bank and no context",
			nq:   question.NewQuestion{Data: qdata.Mapping{}},
			wantErr: func(err error) bool {
				_, ok := errors.Cause(err).(*core.ValidationError)
				return ok
			},
		},
		{
			name: "unknown bank",
			nq:   question.NewQuestion{BankID: 404, Data: qdata.Mapping{}},
			wantErr: func(err error) bool {
				return errors.Cause(err) == question.ErrBankNotFound
			},
		},
		{
			name: "name too long",
			nq:   question.NewQuestion{BankID: bank.ID, Data: qdata.Mapping{"question_name": qdata.String(strings.Repeat("é", 256))}},
			wantErr: func(err error) bool {
				vErrs, ok := errors.Cause(err).(validator.ValidationErrors)
				return ok && vErrs[0].Field() == "name" && vErrs[0].Tag() == "max"
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.Svc.Create(ctx, tt.nq)
			if err == nil || !tt.wantErr(err) {
				t.Errorf("Create() error = %v", err)
			}
		})
	}
}

func TestService_Update(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()
	bank := testutil.CreateBank(t, env.Banks, testutil.Course, "Bank")
	q := testutil.CreateQuestion(t, env.Svc, bank.ID, qdata.Mapping{
		"question_name":         qdata.String("Old"),
		"question_text":         qdata.String("2+2?"),
		"correct_comments":      qdata.String("yes"),
		"correct_comments_html": qdata.String("<b>yes</b>"),
	})

	updated, err := env.Svc.Update(ctx, q.ID, question.UpdateQuestion{Data: qdata.Mapping{
		"question_name":         qdata.String("New"),
		"correct_comments_html": qdata.String(""),
		"junk":                  qdata.Bool(true),
	}})
	require.NoError(t, err)

	assert.Equal(t, "New", updated.Name)
	assert.Equal(t, "2+2?", updated.Data.GetString("question_text"))
	assert.NotContains(t, updated.Data, "correct_comments")
	assert.NotContains(t, updated.Data, "junk")
	assert.Equal(t, qdata.Number(fmt.Sprint(q.ID)), updated.Data["assessment_question_id"])

	_, err = env.Svc.Update(ctx, 999, question.UpdateQuestion{Data: qdata.Mapping{}})
	assert.Equal(t, question.ErrNotFound, errors.Cause(err))
}

func TestService_Delete(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()
	bank := testutil.CreateBank(t, env.Banks, testutil.Course, "Bank")
	q := testutil.CreateQuestion(t, env.Svc, bank.ID, qdata.Mapping{"question_name": qdata.String("Gone")})
	keep := testutil.CreateQuestion(t, env.Svc, bank.ID, qdata.Mapping{"question_name": qdata.String("Kept")})

	before, err := env.Banks.GetBank(ctx, bank.ID)
	require.NoError(t, err)

	require.NoError(t, env.Svc.Delete(ctx, q.ID))

	_, err = env.Svc.Get(ctx, q.ID)
	assert.Equal(t, question.ErrNotFound, errors.Cause(err))
	assert.Equal(t, question.ErrNotFound, errors.Cause(env.Svc.Delete(ctx, q.ID)))

	// retained, flagged and timestamped
	stored, err := env.Repo.GetQuestion(ctx, q.ID)
	require.NoError(t, err)
	assert.Equal(t, question.StateDeleted, stored.WorkflowState)
	assert.NotNil(t, stored.DeletedAt)

	after, err := env.Banks.GetBank(ctx, bank.ID)
	require.NoError(t, err)
	assert.False(t, after.UpdatedAt.Before(before.UpdatedAt))

	active, err := env.Svc.Query(ctx, question.QueryFilter{BankID: bank.ID})
	require.NoError(t, err)
	if assert.Len(t, active, 1) {
		assert.Equal(t, keep.ID, active[0].ID)
	}

	all, err := env.Svc.Query(ctx, question.QueryFilter{BankID: bank.ID, IncludeDeleted: true})
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestService_MarkIndependentlyEdited(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()
	bank := testutil.CreateBank(t, env.Banks, testutil.Course, "Bank")
	q := testutil.CreateQuestion(t, env.Svc, bank.ID, qdata.Mapping{})

	q, err := env.Svc.MarkIndependentlyEdited(ctx, q.ID)
	require.NoError(t, err)
	assert.Equal(t, question.StateIndependentlyEdited, q.WorkflowState)

	edited, err := env.Svc.Query(ctx, question.QueryFilter{States: []string{question.StateIndependentlyEdited}})
	require.NoError(t, err)
	assert.Len(t, edited, 1)

	require.NoError(t, env.Svc.Delete(ctx, q.ID))
	_, err = env.Svc.MarkIndependentlyEdited(ctx, q.ID)
	assert.Equal(t, question.ErrNotFound, errors.Cause(err))
}

func TestService_CloneToBank(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()
	src := testutil.CreateBank(t, env.Banks, testutil.Course, "Source")
	dst := testutil.CreateBank(t, env.Banks, testutil.Course, "Target")
	testutil.CreateQuestion(t, env.Svc, dst.ID, qdata.Mapping{})
	q := testutil.CreateQuestion(t, env.Svc, src.ID, qdata.Mapping{
		"question_name": qdata.String("Copy me"),
		"answers":       qdata.Sequence{qdata.Mapping{"text": qdata.String("a")}},
	})

	clone, err := env.Svc.CloneToBank(ctx, q.ID, dst.ID)
	require.NoError(t, err)
	assert.NotEqual(t, q.ID, clone.ID)
	assert.Equal(t, dst.ID, clone.BankID)
	assert.Equal(t, 2, clone.Position)
	assert.Equal(t, "Copy me", clone.Name)
	assert.True(t, qdata.Equal(q.Data["answers"], clone.Data["answers"]))

	_, err = env.Svc.CloneToBank(ctx, q.ID, 404)
	assert.Equal(t, question.ErrBankNotFound, errors.Cause(err))
}

func TestService_TranslateLinksByIDs(t *testing.T) {
	rec := new(passRecorder)
	env := testutil.NewEnv(t, rec)
	bank := testutil.CreateBank(t, env.Banks, testutil.Course, "Bank")
	file := testutil.CreateAttachment(t, env.AttRepo, testutil.Course, "course files/a.png")
	link := qdata.String(fmt.Sprintf("/courses/15395/files/%d/download", file.ID))

	// stored without going through Save, as an import would
	q1 := testutil.StoreQuestion(t, env.Repo, bank.ID, qdata.Mapping{"question_text": link})
	q2 := testutil.StoreQuestion(t, env.Repo, bank.ID, qdata.Mapping{"answers": qdata.Sequence{link}})

	n, err := env.Svc.TranslateLinksByIDs(context.Background(), q1.ID, 12345, q2.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, 2, rec.count())
	assert.Equal(t, 2, env.Files.Clones)

	// each question got its own clone
	c1, c2 := cloneOwnedBy(t, env, q1), cloneOwnedBy(t, env, q2)
	assert.NotEqual(t, c1.ID, c2.ID)
}

func TestService_Query(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()
	bank := testutil.CreateBank(t, env.Banks, testutil.Course, "Bank")
	a := testutil.CreateQuestion(t, env.Svc, bank.ID, qdata.Mapping{"question_name": qdata.String("Alpha"), "question_type": qdata.String("essay_question")})
	b := testutil.CreateQuestion(t, env.Svc, bank.ID, qdata.Mapping{"question_name": qdata.String("Beta"), "question_type": qdata.String("true_false_question")})
	other := testutil.CreateBank(t, env.Banks, testutil.Course, "Other")
	testutil.CreateQuestion(t, env.Svc, other.ID, qdata.Mapping{"question_name": qdata.String("Alphabet")})

	ids := func(qs []question.Question) []int64 {
		out := make([]int64, 0, len(qs))
		for _, q := range qs {
			out = append(out, q.ID)
		}
		return out
	}

	tests := []struct {
		name     string
		filter   question.QueryFilter
		ordering []core.DBOrdering
		want     []int64
		wantErr  bool
	}{
		{name: "bank, default ordering", filter: question.QueryFilter{BankID: bank.ID}, want: []int64{a.ID, b.ID}},
		{name: "descending name", filter: question.QueryFilter{BankID: bank.ID}, ordering: []core.DBOrdering{{Field: "name"}}, want: []int64{b.ID, a.ID}},
		{name: "search", filter: question.QueryFilter{BankID: bank.ID, Search: "alp"}, want: []int64{a.ID}},
		{name: "type", filter: question.QueryFilter{BankID: bank.ID, Types: []string{"true_false_question"}}, want: []int64{b.ID}},
		{name: "invalid type", filter: question.QueryFilter{Types: []string{"riddle"}}, wantErr: true},
		{name: "invalid state", filter: question.QueryFilter{States: []string{"archived"}}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := env.Svc.Query(ctx, tt.filter, tt.ordering...)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, ids(got))
		})
	}
}
