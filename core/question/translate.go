package question

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/quizbank/core"
	"github.com/trezcool/quizbank/core/attachment"
	"github.com/trezcool/quizbank/core/qdata"
)

// CloneErrorTag is the reporter tag of clone failures during a translation pass.
const CloneErrorTag = "file_clone_during_translate_links"

type (
	// Files is what a translation pass needs from file storage.
	Files interface {
		Get(ctx context.Context, id int64) (attachment.Attachment, error)
		FindInContext(ctx context.Context, ref core.ContextRef, id int64) (attachment.Attachment, error)
		FindByPath(ctx context.Context, ref core.ContextRef, fullPath string) (attachment.Attachment, error)
		CloneFor(ctx context.Context, att attachment.Attachment, owner core.ContextRef) (attachment.Attachment, error)
	}

	// PassStats describes one translation pass.
	PassStats struct {
		QuestionID    int64
		Links         int
		Rewritten     int
		Unresolved    int
		Cloned        int
		CloneFailures int
		CacheHits     int
		Changed       bool
		Duration      time.Duration
	}

	// Observer is told about every finished translation pass.
	Observer interface {
		ObservePass(stats PassStats)
	}
)

// translation holds everything one pass over one question needs. It is built per
// pass and dropped afterwards, together with its reference cache.
type translation struct {
	question *Question
	bankCtx  core.ContextRef
	matcher  *LinkMatcher
	files    Files
	reporter core.ErrorReporter
	log      core.Logger

	// resolved clones by reference; a nil entry records a reference that did not resolve
	cache map[refKey]*attachment.Attachment
	stats PassStats
}

func newTranslation(q *Question, bank Bank, matcher *LinkMatcher, files Files, reporter core.ErrorReporter, log core.Logger) *translation {
	return &translation{
		question: q,
		bankCtx:  bank.Context,
		matcher:  matcher,
		files:    files,
		reporter: reporter,
		log:      log,
		cache:    make(map[refKey]*attachment.Attachment),
		stats:    PassStats{QuestionID: q.ID},
	}
}

// run returns the rewritten payload. The question itself is left untouched.
func (tr *translation) run(ctx context.Context) qdata.Mapping {
	start := time.Now()
	data := qdata.WalkMapping(tr.question.Data, func(s string) string {
		return tr.matcher.ReplaceAll(s, func(m Match) string {
			return tr.translateLink(ctx, m)
		})
	})
	tr.stats.Changed = !qdata.Equal(data, tr.question.Data)
	tr.stats.Duration = time.Since(start)
	return data
}

func (tr *translation) translateLink(ctx context.Context, m Match) string {
	tr.stats.Links++

	clone := tr.resolve(ctx, m)
	if clone == nil {
		tr.stats.Unresolved++
		return m.Full
	}
	tr.stats.Rewritten++
	return downloadURL(tr.question.ID, *clone, m)
}

// resolve returns the clone standing in for the file m refers to, or nil.
// Each reference is looked up and cloned at most once per pass.
func (tr *translation) resolve(ctx context.Context, m Match) *attachment.Attachment {
	key := m.key()
	if clone, ok := tr.cache[key]; ok {
		tr.stats.CacheHits++
		return clone
	}

	var clone *attachment.Attachment
	if file := tr.lookup(ctx, m); file != nil {
		c, err := tr.files.CloneFor(ctx, *file, tr.question.Owner())
		if err != nil {
			tr.stats.CloneFailures++
			reportID := tr.reporter.CaptureException(CloneErrorTag, err)
			tr.log.Error(fmt.Sprintf(
				"Error while cloning attachment during question link translation: id: %d error_report: %s",
				tr.question.ID, reportID), err)
		} else {
			tr.stats.Cloned++
			clone = &c
		}
	}
	tr.cache[key] = clone
	return clone
}

// lookup finds the file m refers to in the bank's context. A file that was replaced
// is swapped for its replacement, one hop only. A deleted file left after that is unresolved.
func (tr *translation) lookup(ctx context.Context, m Match) *attachment.Attachment {
	var (
		file attachment.Attachment
		err  error
	)
	switch {
	case m.HasFileID:
		file, err = tr.files.FindInContext(ctx, tr.bankCtx, m.FileID)
	case m.Path != "":
		file, err = tr.files.FindByPath(ctx, tr.bankCtx, m.Path)
	default:
		return nil
	}
	if err != nil {
		tr.logLookupErr(err, m)
		return nil
	}

	if file.ReplacementAttachmentID != nil {
		if file, err = tr.files.Get(ctx, *file.ReplacementAttachmentID); err != nil {
			tr.logLookupErr(err, m)
			return nil
		}
	}
	if file.WorkflowState == attachment.StateDeleted {
		return nil
	}
	return &file
}

func (tr *translation) logLookupErr(err error, m Match) {
	if errors.Cause(err) == attachment.ErrNotFound {
		return
	}
	tr.log.Warn(fmt.Sprintf("question %d: looking up %q", tr.question.ID, m.Full), err)
}

func downloadURL(questionID int64, file attachment.Attachment, m Match) string {
	u := fmt.Sprintf("/assessment_questions/%d/files/%d/download?verifier=%s", questionID, file.ID, file.UUID)
	if m.HasQuery {
		u += "&" + m.Query
	}
	return u
}
