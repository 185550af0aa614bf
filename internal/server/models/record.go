package models

import "time"

// Record is the server-side note document. The payload stays opaque to the
// server (clients encrypt locked bodies before pushing). Deletes keep the
// row as a tombstone so other devices can observe them.
type Record struct {
	ID        string
	UserID    string
	LocalID   int64
	Payload   []byte
	UpdatedAt time.Time
	Deleted   bool
	DeletedAt *time.Time
}
