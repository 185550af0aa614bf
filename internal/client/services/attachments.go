package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/dmitrijs2005/notekeeper/internal/client/client"
	"github.com/dmitrijs2005/notekeeper/internal/client/models"
	"github.com/dmitrijs2005/notekeeper/internal/client/repositories/attachments"
	"github.com/dmitrijs2005/notekeeper/internal/cryptox"
	"github.com/dmitrijs2005/notekeeper/internal/logging"
	"github.com/dmitrijs2005/notekeeper/internal/netx"
)

// AttachmentService uploads encrypted note attachments through presigned
// URLs and tracks them in the local store. Encrypted blobs are staged on
// disk until their upload confirms, so an offline Attach can complete later
// via RetryPendingUploads.
type AttachmentService interface {
	Attach(ctx context.Context, noteLocalID int64, path string, password string) (*models.Attachment, error)
	List(ctx context.Context, noteLocalID int64) ([]models.Attachment, error)
	Download(ctx context.Context, a *models.Attachment, destDir string, password string) (string, error)
	RetryPendingUploads(ctx context.Context) error
}

type attachmentService struct {
	client     client.Client
	db         *sql.DB
	stagingDir string
	logger     logging.Logger
}

func NewAttachmentService(c client.Client, db *sql.DB, stagingDir string, logger logging.Logger) AttachmentService {
	return &attachmentService{client: c, db: db, stagingDir: stagingDir, logger: logger}
}

func (s *attachmentService) repo() attachments.Repository {
	return attachments.NewSQLiteRepository(s.db)
}

func (s *attachmentService) stagedPath(id int64) string {
	return filepath.Join(s.stagingDir, strconv.FormatInt(id, 10)+".bin")
}

// Attach encrypts the file, records the attachment and uploads the blob
// through a presigned PUT URL. On upload failure the row and the staged
// blob stay behind for RetryPendingUploads.
func (s *attachmentService) Attach(ctx context.Context, noteLocalID int64, path, password string) (*models.Attachment, error) {
	blob, err := cryptox.EncryptFile(path, password)
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt attachment: %w", err)
	}

	url, key, err := s.client.GetPresignedPutURL(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get upload url: %w", err)
	}

	a := &models.Attachment{
		NoteLocalID: noteLocalID,
		FileName:    filepath.Base(path),
		StorageKey:  key,
		Status:      models.AttachmentPending,
		CreatedAt:   time.Now().UTC(),
	}
	if _, err := s.repo().Create(ctx, a); err != nil {
		return nil, err
	}
	if err := os.WriteFile(s.stagedPath(a.ID), blob, 0o600); err != nil {
		return nil, fmt.Errorf("failed to stage attachment: %w", err)
	}

	if err := netx.UploadToPresignedURL(ctx, url, blob); err != nil {
		return a, fmt.Errorf("upload failed, attachment kept pending: %w", err)
	}
	if err := s.settle(ctx, a.ID); err != nil {
		return a, err
	}
	a.Status = models.AttachmentUploaded
	return a, nil
}

// settle marks an attachment uploaded and drops its staged blob.
func (s *attachmentService) settle(ctx context.Context, id int64) error {
	if err := s.repo().MarkUploaded(ctx, id); err != nil {
		return err
	}
	if err := os.Remove(s.stagedPath(id)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		s.logger.Warn(ctx, "failed to remove staged attachment", "id", id, "error", err)
	}
	return nil
}

func (s *attachmentService) List(ctx context.Context, noteLocalID int64) ([]models.Attachment, error) {
	return s.repo().GetByNote(ctx, noteLocalID)
}

// Download fetches the encrypted blob, decrypts it and writes the plaintext
// into destDir under the original file name.
func (s *attachmentService) Download(ctx context.Context, a *models.Attachment, destDir, password string) (string, error) {
	url, err := s.client.GetPresignedGetURL(ctx, a.StorageKey)
	if err != nil {
		return "", fmt.Errorf("failed to get download url: %w", err)
	}

	blob, err := netx.DownloadFromPresignedURL(ctx, url)
	if err != nil {
		return "", fmt.Errorf("download failed: %w", err)
	}

	plaintext, err := cryptox.DecryptBytes(blob, password)
	if err != nil {
		return "", err
	}

	dest := filepath.Join(destDir, a.FileName)
	if err := os.WriteFile(dest, plaintext, 0o600); err != nil {
		return "", fmt.Errorf("failed to write attachment: %w", err)
	}
	return dest, nil
}

// RetryPendingUploads re-uploads staged blobs whose original upload never
// completed, under fresh presigned URLs. Rows whose staged blob disappeared
// are logged and skipped.
func (s *attachmentService) RetryPendingUploads(ctx context.Context) error {
	pending, err := s.repo().GetPendingUploads(ctx)
	if err != nil {
		return err
	}

	for _, a := range pending {
		blob, err := os.ReadFile(s.stagedPath(a.ID))
		if errors.Is(err, fs.ErrNotExist) {
			s.logger.Warn(ctx, "staged attachment blob missing, skipping", "id", a.ID)
			continue
		}
		if err != nil {
			return err
		}

		url, key, err := s.client.GetPresignedPutURL(ctx)
		if err != nil {
			return fmt.Errorf("failed to get upload url: %w", err)
		}
		if err := netx.UploadToPresignedURL(ctx, url, blob); err != nil {
			return fmt.Errorf("retry upload failed: %w", err)
		}
		if err := s.repo().UpdateStorageKey(ctx, a.ID, key); err != nil {
			return err
		}
		if err := s.settle(ctx, a.ID); err != nil {
			return err
		}
	}
	return nil
}
