package client

import (
	"context"

	"github.com/dmitrijs2005/notekeeper/internal/remote"
)

// Client is the full remote surface the CLI and the sync engine use:
// account operations, the synchronized record store and presigned file URLs.
type Client interface {
	remote.Store

	Close() error
	Register(ctx context.Context, username string, salt []byte, verifier []byte) error
	GetSalt(ctx context.Context, username string) ([]byte, error)
	Login(ctx context.Context, username string, verifier []byte) error
	Ping(ctx context.Context) error
	GetPresignedPutURL(ctx context.Context) (string, string, error)
	GetPresignedGetURL(ctx context.Context, key string) (string, error)
}
