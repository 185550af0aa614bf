// Package common defines shared constants and sentinel errors used across
// client and server layers of NoteKeeper. Callers should use errors.Is to
// match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Service-level errors (generic/internal flow control).
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")

	// Crypto errors. ErrDecryptionFailed means a wrong password or corrupted
	// ciphertext; it is surfaced to the user and never retried automatically.
	ErrDecryptionFailed = errors.New("decryption failed")
	ErrInvalidArgument  = errors.New("invalid argument")

	// Auth errors (invalid or malformed token).
	ErrInvalidToken = errors.New("invalid token")

	// Token lifecycle errors.
	ErrTokenExpired        = errors.New("token expired")
	ErrRefreshTokenExpired = errors.New("refresh token expired")

	// ErrPushForbidden is returned by the server when an account without an
	// active paid plan attempts a batch write. Receiving stays available.
	ErrPushForbidden = errors.New("push not allowed for this plan")
)
