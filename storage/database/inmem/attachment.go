package inmemdb

import (
	"context"

	"github.com/trezcool/quizbank/core"
	"github.com/trezcool/quizbank/core/attachment"
)

type attachmentRepository struct {
	db *DB
}

var _ attachment.Repository = (*attachmentRepository)(nil) // interface compliance check

func NewAttachmentRepository(db *DB) *attachmentRepository {
	return &attachmentRepository{db: db}
}

func (repo *attachmentRepository) GetAttachment(_ context.Context, id int64) (attachment.Attachment, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if a, ok := repo.db.attachment.table[id]; ok {
		return *a, nil
	}
	return attachment.Attachment{}, attachment.ErrNotFound
}

func (repo *attachmentRepository) FindInContext(_ context.Context, ref core.ContextRef, id int64) (attachment.Attachment, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if a, ok := repo.db.attachment.table[id]; ok && a.Context == ref {
		return *a, nil
	}
	return attachment.Attachment{}, attachment.ErrNotFound
}

func (repo *attachmentRepository) FindInContextByPath(_ context.Context, ref core.ContextRef, folder, name string) (attachment.Attachment, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	var found *attachment.Attachment
	for _, a := range repo.db.attachment.table {
		if a.Context != ref || a.FolderPath != folder || a.DisplayName != name || a.WorkflowState == attachment.StateDeleted {
			continue
		}
		// oldest first, like the id ordering of the sql store
		if found == nil || a.ID < found.ID {
			found = a
		}
	}
	if found == nil {
		return attachment.Attachment{}, attachment.ErrNotFound
	}
	return *found, nil
}

func (repo *attachmentRepository) CreateAttachment(_ context.Context, a attachment.Attachment) (attachment.Attachment, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	a.ID = repo.db.nextPK()
	repo.db.attachment.table[a.ID] = &a
	return a, nil
}
