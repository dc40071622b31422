package question

import (
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/pkg/errors"

	"github.com/trezcool/quizbank/core"
	"github.com/trezcool/quizbank/core/qdata"
)

const defaultMatcherCacheSize = 128

type (
	Repository interface {
		CreateQuestion(ctx context.Context, q Question) (Question, error)
		GetQuestion(ctx context.Context, id int64) (Question, error)
		// QueryQuestions applies AND on the set QueryFilter fields. Search is a case-insensitive
		// match on the name. Deleted questions are left out unless IncludeDeleted is set.
		QueryQuestions(ctx context.Context, filter QueryFilter, ordering []core.DBOrdering) ([]Question, error)
		UpdateQuestion(ctx context.Context, q Question) (Question, error)
		// NextPosition is one past the highest position used in the bank.
		NextPosition(ctx context.Context, bankID int64) (int, error)
	}

	BankRepository interface {
		CreateBank(ctx context.Context, b Bank) (Bank, error)
		GetBank(ctx context.Context, id int64) (Bank, error)
		// GetOrCreateUnfiledBank returns the bank holding the questions of ref that were
		// created without a bank.
		GetOrCreateUnfiledBank(ctx context.Context, ref core.ContextRef) (Bank, error)
		TouchBank(ctx context.Context, id int64) error
	}

	// SaveOptions tunes a single Save.
	SaveOptions struct {
		// SkipRelink stops Save from scheduling a link translation pass, as the pass
		// itself does when it stores its result.
		SkipRelink bool
	}

	Deps struct {
		Tx       core.Transactor
		Repo     Repository
		Banks    BankRepository
		Files    Files
		Reporter core.ErrorReporter
		Logger   core.Logger
		Observer Observer // optional
		Validate *validator.Validate
	}

	Service struct {
		conf     core.QuestionsConfig
		tx       core.Transactor
		repo     Repository
		banks    BankRepository
		files    Files
		reporter core.ErrorReporter
		log      core.Logger
		observer Observer
		validate *validator.Validate
		matchers *lru.Cache[core.ContextRef, *LinkMatcher]
	}
)

func NewService(conf core.QuestionsConfig, deps Deps) *Service {
	size := conf.MatcherCacheSize
	if size <= 0 {
		size = defaultMatcherCacheSize
	}
	matchers, _ := lru.New[core.ContextRef, *LinkMatcher](size) // only fails on size <= 0

	obs := deps.Observer
	if obs == nil {
		obs = nopObserver{}
	}
	return &Service{
		conf:     conf,
		tx:       deps.Tx,
		repo:     deps.Repo,
		banks:    deps.Banks,
		files:    deps.Files,
		reporter: deps.Reporter,
		log:      deps.Logger,
		observer: obs,
		validate: deps.Validate,
		matchers: matchers,
	}
}

type nopObserver struct{}

func (nopObserver) ObservePass(PassStats) {}

func (svc *Service) Create(ctx context.Context, nq NewQuestion) (Question, error) {
	if err := svc.validate.Struct(nq); err != nil {
		return Question{}, err
	}

	var q Question
	err := svc.tx.Atomic(ctx, func(ctx context.Context) error {
		bank, err := svc.bankFor(ctx, nq)
		if err != nil {
			return err
		}
		q, err = svc.Save(ctx, Question{BankID: bank.ID, Data: ParseQuestion(nq.Data, nil)}, SaveOptions{})
		return err
	})
	if err != nil {
		return Question{}, err
	}
	return q, nil
}

func (svc *Service) bankFor(ctx context.Context, nq NewQuestion) (Bank, error) {
	if nq.BankID != 0 {
		return svc.banks.GetBank(ctx, nq.BankID)
	}
	if nq.Context.IsZero() {
		return Bank{}, core.NewValidationError(nil, core.FieldError{Field: "bank_id", Error: "this field is required"})
	}
	return svc.banks.GetOrCreateUnfiledBank(ctx, nq.Context)
}

func (svc *Service) CreateBank(ctx context.Context, nb NewBank) (Bank, error) {
	if err := svc.validate.Struct(nb); err != nil {
		return Bank{}, err
	}
	if nb.Context.IsZero() {
		return Bank{}, core.NewValidationError(nil, core.FieldError{Field: "context", Error: "this field is required"})
	}
	return svc.banks.CreateBank(ctx, Bank{Context: nb.Context, Title: core.CleanString(nb.Title)})
}

func (svc *Service) GetBank(ctx context.Context, id int64) (Bank, error) {
	return svc.banks.GetBank(ctx, id)
}

// Get returns a question that is not deleted.
func (svc *Service) Get(ctx context.Context, id int64) (Question, error) {
	q, err := svc.repo.GetQuestion(ctx, id)
	if err != nil {
		return Question{}, err
	}
	if q.IsDeleted() {
		return Question{}, ErrNotFound
	}
	return q, nil
}

func (svc *Service) Query(ctx context.Context, filter QueryFilter, ordering ...core.DBOrdering) ([]Question, error) {
	if err := svc.validate.Struct(filter); err != nil {
		return nil, err
	}
	if ordering == nil {
		ordering = []core.DBOrdering{{Field: "position", Ascending: true}, {Field: "id", Ascending: true}}
	}
	return svc.repo.QueryQuestions(ctx, filter, ordering)
}

// Update merges the form into the stored payload and saves the question.
func (svc *Service) Update(ctx context.Context, id int64, uq UpdateQuestion) (Question, error) {
	if err := svc.validate.Struct(uq); err != nil {
		return Question{}, err
	}

	var q Question
	err := svc.tx.Atomic(ctx, func(ctx context.Context) error {
		prior, err := svc.Get(ctx, id)
		if err != nil {
			return err
		}
		q = prior
		q.Data = ParseQuestion(uq.Data, &prior)
		q, err = svc.Save(ctx, q, SaveOptions{})
		return err
	})
	if err != nil {
		return Question{}, err
	}
	return q, nil
}

// Save persists q, creating it when it has no id yet, and touches its bank. When the
// stored payload changed and opts.SkipRelink is unset, a link translation pass over
// q is scheduled to run once the save is committed.
func (svc *Service) Save(ctx context.Context, q Question, opts SaveOptions) (Question, error) {
	var saved Question
	err := svc.tx.Atomic(ctx, func(ctx context.Context) error {
		var (
			prior  qdata.Mapping
			exists = q.ID != 0
		)
		if exists {
			stored, err := svc.repo.GetQuestion(ctx, q.ID)
			if err != nil {
				return err
			}
			prior = stored.Data
		}

		q.InferDefaults(svc.conf.DefaultName)
		if err := svc.validate.Struct(q); err != nil {
			return err
		}

		var err error
		now := NowFunc().UTC()
		q.UpdatedAt = now
		if !exists {
			q.CreatedAt = now
			if q.Position == 0 {
				if q.Position, err = svc.repo.NextPosition(ctx, q.BankID); err != nil {
					return err
				}
			}
			saved, err = svc.repo.CreateQuestion(ctx, q)
		} else {
			saved, err = svc.repo.UpdateQuestion(ctx, q)
		}
		if err != nil {
			return err
		}
		if err = svc.banks.TouchBank(ctx, saved.BankID); err != nil {
			return errors.Wrap(err, "touching question bank")
		}

		if !opts.SkipRelink && (!exists || !qdata.Equal(prior, saved.Data)) {
			id := saved.ID
			core.AfterCommit(ctx, func(ctx context.Context) {
				if _, err := svc.TranslateLinks(ctx, id); err != nil {
					svc.log.Error(fmt.Sprintf("translating links of question %d", id), err)
				}
			})
		}
		return nil
	})
	if err != nil {
		return Question{}, err
	}
	return saved, nil
}

// Delete soft deletes a question.
func (svc *Service) Delete(ctx context.Context, id int64) error {
	return svc.tx.Atomic(ctx, func(ctx context.Context) error {
		q, err := svc.Get(ctx, id)
		if err != nil {
			return err
		}
		if err = q.MarkDeleted(NowFunc()); err != nil {
			return err
		}
		_, err = svc.Save(ctx, q, SaveOptions{SkipRelink: true})
		return err
	})
}

func (svc *Service) MarkIndependentlyEdited(ctx context.Context, id int64) (Question, error) {
	var q Question
	err := svc.tx.Atomic(ctx, func(ctx context.Context) error {
		var err error
		if q, err = svc.Get(ctx, id); err != nil {
			return err
		}
		if err = q.MarkIndependentlyEdited(); err != nil {
			return err
		}
		q, err = svc.Save(ctx, q, SaveOptions{SkipRelink: true})
		return err
	})
	if err != nil {
		return Question{}, err
	}
	return q, nil
}

// CloneToBank copies a question at the end of another bank.
func (svc *Service) CloneToBank(ctx context.Context, id, bankID int64) (Question, error) {
	var clone Question
	err := svc.tx.Atomic(ctx, func(ctx context.Context) error {
		q, err := svc.Get(ctx, id)
		if err != nil {
			return err
		}
		bank, err := svc.banks.GetBank(ctx, bankID)
		if err != nil {
			return err
		}
		clone, err = svc.Save(ctx, q.CloneFor(bank), SaveOptions{})
		return err
	})
	if err != nil {
		return Question{}, err
	}
	return clone, nil
}

// TranslateLinks runs one link translation pass over the stored question: links to
// files of the bank's context are replaced by links to clones owned by the question.
// The question must already be committed. A changed payload is saved without
// scheduling another pass.
func (svc *Service) TranslateLinks(ctx context.Context, id int64) (Question, error) {
	q, err := svc.repo.GetQuestion(ctx, id)
	if err != nil {
		return Question{}, err
	}
	bank, err := svc.banks.GetBank(ctx, q.BankID)
	if err != nil {
		if errors.Cause(err) == ErrBankNotFound {
			return q, nil
		}
		return Question{}, err
	}
	if bank.Context.IsZero() {
		return q, nil
	}

	tr := newTranslation(&q, bank, svc.matcher(bank.Context), svc.files, svc.reporter, svc.log)
	data := tr.run(ctx)
	svc.observer.ObservePass(tr.stats)
	if !tr.stats.Changed {
		return q, nil
	}

	q.Data = data
	return svc.Save(ctx, q, SaveOptions{SkipRelink: true})
}

// TranslateLinksByIDs runs a pass over each question in ids, skipping the ones that
// do not exist. It returns the number of questions processed.
func (svc *Service) TranslateLinksByIDs(ctx context.Context, ids ...int64) (int, error) {
	var n int
	for _, id := range ids {
		if _, err := svc.TranslateLinks(ctx, id); err != nil {
			if errors.Cause(err) == ErrNotFound {
				continue
			}
			return n, errors.Wrapf(err, "translating links of question %d", id)
		}
		n++
	}
	return n, nil
}

// DataView is the payload served to clients.
func (svc *Service) DataView(q Question) qdata.Mapping {
	return q.DataView(svc.conf.DefaultName)
}

func (svc *Service) matcher(ref core.ContextRef) *LinkMatcher {
	if m, ok := svc.matchers.Get(ref); ok {
		return m
	}
	m := NewLinkMatcher(ref.Type, ref.ID)
	svc.matchers.Add(ref, m)
	return m
}
