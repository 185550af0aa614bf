// Package remote defines the wire types and the store contract the sync
// engine talks to. The concrete implementation lives in
// internal/client/client; tests substitute fakes.
package remote

import (
	"context"
	"encoding/json"
	"time"
)

// MaxBatchWrites caps the number of mutations accepted in a single
// atomic Write call.
const MaxBatchWrites = 500

// Record is one synchronized document as stored remotely. Deleted records
// are tombstones: the payload is gone but the id and timestamps remain so
// other devices can observe the deletion.
type Record struct {
	ID        string          `json:"id"`
	LocalID   int64           `json:"local_id,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	UpdatedAt time.Time       `json:"updated_at"`
	Deleted   bool            `json:"deleted,omitempty"`
	DeletedAt *time.Time      `json:"deleted_at,omitempty"`
}

// MutationOp discriminates the two kinds of remote write.
type MutationOp string

const (
	OpPut       MutationOp = "put"
	OpTombstone MutationOp = "tombstone"
)

// Mutation is one element of an atomic batch write. Put carries the full
// record; Tombstone carries the id and the deletion timestamp.
type Mutation struct {
	Op        MutationOp `json:"op"`
	Record    *Record    `json:"record,omitempty"`
	ID        string     `json:"id,omitempty"`
	DeletedAt time.Time  `json:"deleted_at,omitempty"`
}

// Put builds a put mutation for r.
func Put(r Record) Mutation {
	return Mutation{Op: OpPut, Record: &r}
}

// Tombstone builds a tombstone mutation for the record with the given id.
func Tombstone(id string, at time.Time) Mutation {
	return Mutation{Op: OpTombstone, ID: id, DeletedAt: at}
}

// Store is the remote document store the sync engine runs against.
//
// Get returns (nil, nil) when no record with that id exists. Write applies
// all mutations atomically or none; batches larger than MaxBatchWrites are
// rejected. Subscribe delivers batches of changed records newer than since
// until ctx is cancelled; the channel is closed when the feed drops.
type Store interface {
	Get(ctx context.Context, id string) (*Record, error)
	QueryUpdatedSince(ctx context.Context, since time.Time) ([]Record, error)
	Write(ctx context.Context, muts []Mutation) error
	Subscribe(ctx context.Context, since time.Time) (<-chan []Record, error)
}
