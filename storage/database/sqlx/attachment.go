package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/quizbank/core"
	"github.com/trezcool/quizbank/core/attachment"
	"github.com/trezcool/quizbank/storage/database"
)

const attachmentColumns = `id, context_type, context_id, folder_path, display_name, content_type, size, uuid,
	root_attachment_id, replacement_attachment_id, cloned_from_id, workflow_state, created_at, updated_at`

type attachmentRow struct {
	ID                      int64      `db:"id"`
	ContextType             string     `db:"context_type"`
	ContextID               int64      `db:"context_id"`
	FolderPath              string     `db:"folder_path"`
	DisplayName             string     `db:"display_name"`
	ContentType             string     `db:"content_type"`
	Size                    int64      `db:"size"`
	UUID                    string     `db:"uuid"`
	RootAttachmentID        null.Int64 `db:"root_attachment_id"`
	ReplacementAttachmentID null.Int64 `db:"replacement_attachment_id"`
	ClonedFromID            null.Int64 `db:"cloned_from_id"`
	WorkflowState           string     `db:"workflow_state"`
	CreatedAt               time.Time  `db:"created_at"`
	UpdatedAt               time.Time  `db:"updated_at"`
}

func (r attachmentRow) attachment() attachment.Attachment {
	return attachment.Attachment{
		ID:                      r.ID,
		Context:                 core.ContextRef{Type: r.ContextType, ID: r.ContextID},
		FolderPath:              r.FolderPath,
		DisplayName:             r.DisplayName,
		ContentType:             r.ContentType,
		Size:                    r.Size,
		UUID:                    r.UUID,
		RootAttachmentID:        r.RootAttachmentID.Ptr(),
		ReplacementAttachmentID: r.ReplacementAttachmentID.Ptr(),
		ClonedFromID:            r.ClonedFromID.Ptr(),
		WorkflowState:           r.WorkflowState,
		CreatedAt:               r.CreatedAt.UTC(),
		UpdatedAt:               r.UpdatedAt.UTC(),
	}
}

type attachmentRepository struct {
	tx *database.Transactor
}

var _ attachment.Repository = (*attachmentRepository)(nil) // interface compliance check

func NewAttachmentRepository(tx *database.Transactor) *attachmentRepository {
	return &attachmentRepository{tx: tx}
}

func (repo *attachmentRepository) get(ctx context.Context, query string, args ...interface{}) (attachment.Attachment, error) {
	var row attachmentRow
	err := repo.tx.Exec(ctx).GetContext(ctx, &row, "SELECT "+attachmentColumns+" FROM attachments "+query, args...)
	if err == sql.ErrNoRows {
		return attachment.Attachment{}, attachment.ErrNotFound
	}
	if err != nil {
		return attachment.Attachment{}, errors.Wrap(err, "selecting attachment")
	}
	return row.attachment(), nil
}

func (repo *attachmentRepository) GetAttachment(ctx context.Context, id int64) (attachment.Attachment, error) {
	return repo.get(ctx, "WHERE id = $1", id)
}

func (repo *attachmentRepository) FindInContext(ctx context.Context, ref core.ContextRef, id int64) (attachment.Attachment, error) {
	return repo.get(ctx, "WHERE id = $1 AND context_type = $2 AND context_id = $3", id, ref.Type, ref.ID)
}

func (repo *attachmentRepository) FindInContextByPath(ctx context.Context, ref core.ContextRef, folder, name string) (attachment.Attachment, error) {
	return repo.get(ctx, `
		WHERE context_type = $1 AND context_id = $2 AND folder_path = $3 AND display_name = $4 AND workflow_state <> $5
		ORDER BY id LIMIT 1`,
		ref.Type, ref.ID, folder, name, attachment.StateDeleted)
}

func (repo *attachmentRepository) CreateAttachment(ctx context.Context, a attachment.Attachment) (attachment.Attachment, error) {
	var row attachmentRow
	err := repo.tx.Exec(ctx).GetContext(ctx, &row, `
		INSERT INTO attachments (context_type, context_id, folder_path, display_name, content_type, size, uuid,
			root_attachment_id, replacement_attachment_id, cloned_from_id, workflow_state, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING `+attachmentColumns,
		a.Context.Type, a.Context.ID, a.FolderPath, a.DisplayName, a.ContentType, a.Size, a.UUID,
		null.Int64FromPtr(a.RootAttachmentID), null.Int64FromPtr(a.ReplacementAttachmentID), null.Int64FromPtr(a.ClonedFromID),
		a.WorkflowState, a.CreatedAt, a.UpdatedAt,
	)
	if err != nil {
		return attachment.Attachment{}, errors.Wrap(err, "inserting attachment")
	}
	return row.attachment(), nil
}
