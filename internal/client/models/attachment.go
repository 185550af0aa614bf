package models

import "time"

// AttachmentStatus tracks the upload lifecycle of an attachment blob.
type AttachmentStatus string

const (
	AttachmentPending  AttachmentStatus = "pending"
	AttachmentUploaded AttachmentStatus = "uploaded"
)

// Attachment is an encrypted file linked to a note. The blob itself lives
// in object storage under StorageKey; only this row syncs through SQLite.
type Attachment struct {
	ID          int64
	NoteLocalID int64
	FileName    string
	StorageKey  string
	Status      AttachmentStatus
	CreatedAt   time.Time
}
