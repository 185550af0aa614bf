// Package models defines client-side data models used by the notekeeper CLI.
package models

import (
	"encoding/json"
	"time"
)

// Note is the unit of synchronization: a titled text document persisted in
// the local SQLite store and mirrored to the remote document store.
type Note struct {
	// LocalID is the local SQLite primary key. It never leaves the device;
	// the remote identity is tracked separately in the sync ledger.
	LocalID int64

	// Title is always stored in plaintext for list views.
	Title string

	// Body holds the note text; when Locked is set it holds the
	// codec-encrypted form instead.
	Body string

	// Locked marks Body as encrypted with the vault password.
	Locked bool

	// CreatedAt and UpdatedAt are UTC. The client clock is authoritative
	// while offline; UpdatedAt drives last-writer-wins conflict resolution.
	CreatedAt time.Time
	UpdatedAt time.Time
}

// notePayload is the remote wire form of the domain fields. Timestamps and
// identity travel on the record envelope, not in the payload.
type notePayload struct {
	Title  string `json:"title"`
	Body   string `json:"body"`
	Locked bool   `json:"locked,omitempty"`
}

// MarshalPayload serializes the note's domain fields for a remote record.
func (n *Note) MarshalPayload() ([]byte, error) {
	return json.Marshal(notePayload{Title: n.Title, Body: n.Body, Locked: n.Locked})
}

// ApplyPayload overwrites the note's domain fields from a remote payload.
func (n *Note) ApplyPayload(data []byte) error {
	var p notePayload
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	n.Title = p.Title
	n.Body = p.Body
	n.Locked = p.Locked
	return nil
}

// NoteEventType classifies a note lifecycle event.
type NoteEventType string

const (
	NoteCreated NoteEventType = "created"
	NoteUpdated NoteEventType = "updated"
	NoteDeleted NoteEventType = "deleted"
)

// NoteEvent is published on the client event bus after every local mutation,
// including those applied by the pull reconciler. Remote marks events that
// originated on another device.
type NoteEvent struct {
	Type    NoteEventType
	LocalID int64
	Remote  bool
}
