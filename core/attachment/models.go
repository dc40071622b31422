package attachment

import (
	"path"
	"strings"
	"time"

	"github.com/trezcool/quizbank/core"
)

const (
	StateAvailable = "processed"
	StateDeleted   = "deleted"

	// RootFolder is the top-level folder of every course file tree.
	RootFolder = "course files"
)

type (
	// Attachment is the metadata row of a stored file. The binary content itself
	// lives outside this service and is shared between clones.
	Attachment struct {
		ID                      int64           `json:"id"`
		Context                 core.ContextRef `json:"context"`
		FolderPath              string          `json:"folder_path"`
		DisplayName             string          `json:"display_name" validate:"required,max=255"`
		ContentType             string          `json:"content_type"`
		Size                    int64           `json:"size"`
		UUID                    string          `json:"uuid"`
		RootAttachmentID        *int64          `json:"root_attachment_id,omitempty"`
		ReplacementAttachmentID *int64          `json:"replacement_attachment_id,omitempty"`
		ClonedFromID            *int64          `json:"cloned_from_id,omitempty"`
		WorkflowState           string          `json:"workflow_state"`
		CreatedAt               time.Time       `json:"created_at"`
		UpdatedAt               time.Time       `json:"updated_at"`
	}
)

// FullPath is the folder path joined with the display name, e.g. "course files/unfiled/test.jpg".
func (a Attachment) FullPath() string {
	if a.FolderPath == "" {
		return a.DisplayName
	}
	return a.FolderPath + "/" + a.DisplayName
}

// SplitPath splits a full path into its folder and display name at the last slash.
func SplitPath(fullPath string) (folder, name string) {
	fullPath = strings.Trim(fullPath, "/")
	folder, name = path.Split(fullPath)
	return strings.TrimSuffix(folder, "/"), name
}
