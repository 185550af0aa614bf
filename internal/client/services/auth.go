package services

import (
	"context"
	"crypto/subtle"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/notekeeper/internal/client/client"
	"github.com/dmitrijs2005/notekeeper/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/notekeeper/internal/common"
	"github.com/dmitrijs2005/notekeeper/internal/cryptox"
	"github.com/dmitrijs2005/notekeeper/internal/dbx"
)

// AuthService defines authentication operations for the CLI.
//
// Contract:
//   - OnlineLogin: authenticate against the server and persist offline auth data.
//   - OfflineLogin: derive and verify credentials against locally cached data.
//   - Register: create a new user on the server.
//   - Ping: check server liveness.
//   - ClearOfflineData: wipe locally cached auth metadata.
//
// All methods must honor context cancellation/timeouts.
type AuthService interface {
	OfflineLogin(ctx context.Context, username string, password []byte) ([]byte, error)
	OnlineLogin(ctx context.Context, username string, password []byte) ([]byte, error)
	Register(ctx context.Context, username string, password []byte) error
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
	ClearOfflineData(ctx context.Context) error
}

type authService struct {
	client client.Client
	db     *sql.DB
}

// NewAuthService constructs an AuthService bound to the given API client and DB.
func NewAuthService(client client.Client, db *sql.DB) AuthService {
	return &authService{client: client, db: db}
}

func (a *authService) getMetadataRepo() metadata.Repository {
	return metadata.NewSQLiteRepository(a.db)
}

// OfflineLogin derives a master key from (password, salt) stored locally and
// verifies it against the cached verifier. Returns the master key on
// success. Missing local data yields client.ErrLocalDataNotAvailable, a
// failed verification client.ErrUnauthorized.
func (a *authService) OfflineLogin(ctx context.Context, username string, password []byte) ([]byte, error) {
	metadataRepo := a.getMetadataRepo()

	savedLogin, err := metadataRepo.Get(ctx, metadata.KeyAuthLogin)
	if err != nil {
		return nil, err
	}
	if savedLogin == nil {
		return nil, client.ErrLocalDataNotAvailable
	}
	if string(savedLogin) != username {
		return nil, client.ErrUnauthorized
	}

	savedSalt, err := metadataRepo.Get(ctx, metadata.KeyAuthSalt)
	if err != nil {
		return nil, err
	}
	savedVerifier, err := metadataRepo.Get(ctx, metadata.KeyAuthVerifier)
	if err != nil {
		return nil, err
	}
	if savedSalt == nil || savedVerifier == nil {
		return nil, client.ErrLocalDataNotAvailable
	}

	masterKeyCandidate := cryptox.DeriveMasterKey(password, savedSalt)
	verifierCandidate := cryptox.MakeVerifier(masterKeyCandidate)

	if subtle.ConstantTimeCompare(savedVerifier, verifierCandidate) == 0 {
		return nil, client.ErrUnauthorized
	}
	return masterKeyCandidate, nil
}

// OnlineLogin authenticates against the server, saves offline metadata
// (login, salt, verifier) and returns the derived master key.
func (a *authService) OnlineLogin(ctx context.Context, username string, password []byte) ([]byte, error) {
	salt, err := a.client.GetSalt(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("get salt error: %w", err)
	}

	masterKeyCandidate := cryptox.DeriveMasterKey(password, salt)
	verifierCandidate := cryptox.MakeVerifier(masterKeyCandidate)

	if err := a.client.Login(ctx, username, verifierCandidate); err != nil {
		return nil, fmt.Errorf("login error: %w", err)
	}

	if err := a.saveOfflineData(ctx, username, salt, verifierCandidate); err != nil {
		return nil, fmt.Errorf("offline data saving error: %w", err)
	}
	return masterKeyCandidate, nil
}

// saveOfflineData persists the auth metadata required for offline login in
// a single transaction.
func (a *authService) saveOfflineData(ctx context.Context, username string, salt, verifier []byte) error {
	return dbx.WithTx(ctx, a.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		metadataRepo := metadata.NewSQLiteRepository(tx)
		if err := metadataRepo.Set(ctx, metadata.KeyAuthLogin, []byte(username)); err != nil {
			return err
		}
		if err := metadataRepo.Set(ctx, metadata.KeyAuthSalt, salt); err != nil {
			return err
		}
		return metadataRepo.Set(ctx, metadata.KeyAuthVerifier, verifier)
	})
}

// Register creates a new account on the server: it generates a random salt,
// derives the master key from the password and sends salt plus verifier.
func (a *authService) Register(ctx context.Context, username string, password []byte) error {
	salt := common.GenerateRandByteArray(32)
	key := cryptox.DeriveMasterKey(password, salt)
	verifier := cryptox.MakeVerifier(key)

	return a.client.Register(ctx, username, salt, verifier)
}

// Ping proxies a liveness check to the underlying client.
func (a *authService) Ping(ctx context.Context) error {
	return a.client.Ping(ctx)
}

// Close releases resources held by the underlying client.
func (a *authService) Close(ctx context.Context) error {
	return a.client.Close()
}

// ClearOfflineData wipes locally cached auth metadata (e.g. on logout).
func (a *authService) ClearOfflineData(ctx context.Context) error {
	return a.getMetadataRepo().Clear(ctx)
}
