package attachment

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/quizbank/core"
)

var (
	// errors
	ErrNotFound = errors.New("attachment not found")

	NowFunc = time.Now // mockable
)

type (
	Repository interface {
		GetAttachment(ctx context.Context, id int64) (Attachment, error)
		// FindInContext returns the attachment with that id, provided it belongs to ref.
		// Deleted attachments are returned too: an overwritten file points at its replacement.
		FindInContext(ctx context.Context, ref core.ContextRef, id int64) (Attachment, error)
		// FindInContextByPath looks up a non-deleted attachment of ref by folder path and display name.
		FindInContextByPath(ctx context.Context, ref core.ContextRef, folder, name string) (Attachment, error)
		CreateAttachment(ctx context.Context, att Attachment) (Attachment, error)
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) Create(ctx context.Context, att Attachment) (Attachment, error) {
	now := NowFunc().UTC()
	att.CreatedAt, att.UpdatedAt = now, now
	if att.UUID == "" {
		att.UUID = uuid.New().String()
	}
	if att.WorkflowState == "" {
		att.WorkflowState = StateAvailable
	}
	return svc.repo.CreateAttachment(ctx, att)
}

func (svc *Service) Get(ctx context.Context, id int64) (Attachment, error) {
	return svc.repo.GetAttachment(ctx, id)
}

func (svc *Service) FindInContext(ctx context.Context, ref core.ContextRef, id int64) (Attachment, error) {
	return svc.repo.FindInContext(ctx, ref, id)
}

// FindByPath resolves a full path such as "course files/unfiled/test.jpg" inside ref.
func (svc *Service) FindByPath(ctx context.Context, ref core.ContextRef, fullPath string) (Attachment, error) {
	folder, name := SplitPath(fullPath)
	if name == "" {
		return Attachment{}, ErrNotFound
	}
	return svc.repo.FindInContextByPath(ctx, ref, folder, name)
}

// CloneFor copies the metadata of att into owner. The clone gets a fresh access token
// and points at the same root content as att.
func (svc *Service) CloneFor(ctx context.Context, att Attachment, owner core.ContextRef) (Attachment, error) {
	if owner.IsZero() {
		return Attachment{}, errors.New("cloning attachment: missing owner")
	}
	if att.WorkflowState == StateDeleted {
		return Attachment{}, errors.Errorf("cloning attachment %d: attachment is deleted", att.ID)
	}

	root := att.ID
	if att.RootAttachmentID != nil {
		root = *att.RootAttachmentID
	}
	src := att.ID

	clone := Attachment{
		Context:          owner,
		FolderPath:       att.FolderPath,
		DisplayName:      att.DisplayName,
		ContentType:      att.ContentType,
		Size:             att.Size,
		RootAttachmentID: &root,
		ClonedFromID:     &src,
		WorkflowState:    StateAvailable,
	}
	clone, err := svc.Create(ctx, clone)
	if err != nil {
		return Attachment{}, errors.Wrapf(err, "cloning attachment %d", att.ID)
	}
	return clone, nil
}
