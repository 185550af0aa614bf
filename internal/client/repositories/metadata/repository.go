// Package metadata stores small key/value items in the client database:
// cached auth material, the sync watermark, device settings.
package metadata

import "context"

// Keys used by the sync engine and the auth service.
const (
	KeySyncWatermark = "sync_watermark"
	KeyAuthSalt      = "auth_salt"
	KeyAuthVerifier  = "auth_verifier"
	KeyAuthLogin     = "auth_login"
)

type Repository interface {
	// Get returns (nil, nil) when the key is absent.
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	List(ctx context.Context) (map[string][]byte, error)
	Clear(ctx context.Context) error
}
