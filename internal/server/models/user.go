// Package models defines server-side data models persisted in the database.
package models

import "time"

type User struct {
	ID        string
	Login     string
	Salt      []byte
	Verifier  []byte
	Plan      string
	CreatedAt time.Time
}
