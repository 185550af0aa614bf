// Package attachments tracks encrypted file blobs linked to notes. The
// blob bytes live in object storage; this store only keeps the bookkeeping
// rows driving upload.
package attachments

import (
	"context"

	"github.com/dmitrijs2005/notekeeper/internal/client/models"
)

type Repository interface {
	// Create inserts a new attachment row and returns its id.
	Create(ctx context.Context, a *models.Attachment) (int64, error)

	// GetByNote lists attachments of a note, oldest first.
	GetByNote(ctx context.Context, noteLocalID int64) ([]models.Attachment, error)

	// GetPendingUploads lists attachments not yet uploaded.
	GetPendingUploads(ctx context.Context) ([]models.Attachment, error)

	// MarkUploaded flips an attachment to uploaded.
	MarkUploaded(ctx context.Context, id int64) error

	// UpdateStorageKey repoints an attachment at a new object key; used
	// when a failed upload is retried under a fresh presigned URL.
	UpdateStorageKey(ctx context.Context, id int64, key string) error

	// DeleteByNote removes all attachment rows of a note.
	DeleteByNote(ctx context.Context, noteLocalID int64) error
}
