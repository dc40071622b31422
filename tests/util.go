package testutil

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/quizbank/core"
	"github.com/trezcool/quizbank/core/attachment"
	"github.com/trezcool/quizbank/core/qdata"
	"github.com/trezcool/quizbank/core/question"
	"github.com/trezcool/quizbank/storage/database/inmem"
)

// Course is the context most fixtures live in.
var Course = core.ContextRef{Type: "Course", ID: 15395}

// Report is one captured exception.
type Report struct {
	ID  string
	Tag string
	Err error
}

// LoggerMock records log lines and captured exceptions.
type LoggerMock struct {
	mu      sync.Mutex
	Lines   []string
	Reports []Report
}

var (
	_ core.Logger        = (*LoggerMock)(nil)
	_ core.ErrorReporter = (*LoggerMock)(nil)
)

func (l *LoggerMock) log(level, msg string, args []interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Lines = append(l.Lines, fmt.Sprintf("%s: %s %v", level, msg, args))
}

func (l *LoggerMock) Debug(msg string, args ...interface{}) { l.log("DEBUG", msg, args) }
func (l *LoggerMock) Info(msg string, args ...interface{})  { l.log("INFO", msg, args) }
func (l *LoggerMock) Warn(msg string, args ...interface{})  { l.log("WARN", msg, args) }
func (l *LoggerMock) Error(msg string, args ...interface{}) { l.log("ERROR", msg, args) }
func (l *LoggerMock) Fatal(msg string, args ...interface{}) { l.log("FATAL", msg, args) }

func (l *LoggerMock) CaptureException(tag string, err error) string {
	l.mu.Lock()
	defer l.mu.Unlock()
	id := fmt.Sprintf("report-%d", len(l.Reports)+1)
	l.Reports = append(l.Reports, Report{ID: id, Tag: tag, Err: err})
	return id
}

// FilesMock wraps the attachment service; CloneErr, when set, makes every clone fail.
type FilesMock struct {
	*attachment.Service

	mu       sync.Mutex
	CloneErr error
	Clones   int
}

func (f *FilesMock) CloneFor(ctx context.Context, att attachment.Attachment, owner core.ContextRef) (attachment.Attachment, error) {
	f.mu.Lock()
	f.Clones++
	cloneErr := f.CloneErr
	f.mu.Unlock()

	if cloneErr != nil {
		return attachment.Attachment{}, cloneErr
	}
	return f.Service.CloneFor(ctx, att, owner)
}

// Env is an in-memory question service with its collaborators.
type Env struct {
	DB       *inmemdb.DB
	Logger   *LoggerMock
	Files    *FilesMock
	Banks    question.BankRepository
	Repo     question.Repository
	AttRepo  attachment.Repository
	Svc      *question.Service
	Validate *validator.Validate
}

func NewValidator() *validator.Validate {
	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	question.RegisterValidators(validate, translator)
	return validate
}

func NewEnv(t *testing.T, observer ...question.Observer) *Env {
	t.Helper()

	db := inmemdb.NewDB()
	env := &Env{
		DB:       db,
		Logger:   new(LoggerMock),
		Banks:    inmemdb.NewBankRepository(db),
		Repo:     inmemdb.NewQuestionRepository(db),
		AttRepo:  inmemdb.NewAttachmentRepository(db),
		Validate: NewValidator(),
	}
	env.Files = &FilesMock{Service: attachment.NewService(env.AttRepo)}

	var obs question.Observer
	if len(observer) > 0 {
		obs = observer[0]
	}
	env.Svc = question.NewService(
		core.QuestionsConfig{DefaultName: question.DefaultName, MatcherCacheSize: 8},
		question.Deps{
			Tx:       db,
			Repo:     env.Repo,
			Banks:    env.Banks,
			Files:    env.Files,
			Reporter: env.Logger,
			Logger:   env.Logger,
			Observer: obs,
			Validate: env.Validate,
		},
	)
	return env
}

func CreateBank(t *testing.T, repo question.BankRepository, ref core.ContextRef, title string) question.Bank {
	t.Helper()
	bank, err := repo.CreateBank(context.Background(), question.Bank{Context: ref, Title: title})
	if err != nil {
		t.Fatalf("CreateBank() failed: %v", err)
	}
	return bank
}

// CreateAttachment stores a file of ref at fullPath, e.g. "course files/unfiled/test.jpg".
func CreateAttachment(t *testing.T, repo attachment.Repository, ref core.ContextRef, fullPath string, replacement ...int64) attachment.Attachment {
	t.Helper()
	folder, name := attachment.SplitPath(fullPath)
	att := attachment.Attachment{
		Context:     ref,
		FolderPath:  folder,
		DisplayName: name,
		ContentType: "image/jpeg",
	}
	if len(replacement) > 0 {
		att.ReplacementAttachmentID = &replacement[0]
	}
	att, err := attachment.NewService(repo).Create(context.Background(), att)
	if err != nil {
		t.Fatalf("CreateAttachment() failed: %v", err)
	}
	return att
}

// CreateQuestion creates a question through the service, so links get translated.
func CreateQuestion(t *testing.T, svc *question.Service, bankID int64, data qdata.Mapping) question.Question {
	t.Helper()
	q, err := svc.Create(context.Background(), question.NewQuestion{BankID: bankID, Data: data})
	if err != nil {
		t.Fatalf("CreateQuestion() failed: %v", err)
	}
	return q
}

// StoreQuestion writes a question straight to the repository, skipping translation.
func StoreQuestion(t *testing.T, repo question.Repository, bankID int64, data qdata.Mapping) question.Question {
	t.Helper()
	q := question.Question{BankID: bankID, Data: data, WorkflowState: question.StateActive, Position: 1}
	q.InferDefaults(question.DefaultName)
	q, err := repo.CreateQuestion(context.Background(), q)
	if err != nil {
		t.Fatalf("StoreQuestion() failed: %v", err)
	}
	return q
}
