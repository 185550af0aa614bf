// Package cli implements the interactive notekeeper client: a small REPL
// over the note, auth and attachment services with background sync.
package cli

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/dmitrijs2005/notekeeper/internal/client/client"
	"github.com/dmitrijs2005/notekeeper/internal/client/config"
	"github.com/dmitrijs2005/notekeeper/internal/client/services"
	enginesync "github.com/dmitrijs2005/notekeeper/internal/client/sync"
	"github.com/dmitrijs2005/notekeeper/internal/filex"
	"github.com/dmitrijs2005/notekeeper/internal/logging"
)

type Mode string

const (
	ModeOffline  Mode = "offline"
	ModeOnline   Mode = "online"
	ModeDisabled Mode = "disabled"
)

// capSource feeds the sync gate from the app state. Entitlement transitions
// are forwarded to notify so a regained plan drains parked changes.
type capSource struct {
	mu        sync.Mutex
	valid     bool
	sandboxed bool
	entitled  bool
	notify    func(entitled bool)
}

func (c *capSource) AccountValid() bool { c.mu.Lock(); defer c.mu.Unlock(); return c.valid }
func (c *capSource) Sandboxed() bool    { c.mu.Lock(); defer c.mu.Unlock(); return c.sandboxed }
func (c *capSource) Entitled() bool     { c.mu.Lock(); defer c.mu.Unlock(); return c.entitled }

func (c *capSource) setValid(v bool) { c.mu.Lock(); c.valid = v; c.mu.Unlock() }

func (c *capSource) setEntitled(v bool) {
	c.mu.Lock()
	changed := c.entitled != v
	c.entitled = v
	notify := c.notify
	c.mu.Unlock()
	if changed && notify != nil {
		notify(v)
	}
}

type App struct {
	config        *config.Config
	repos         *client.Repositories
	authService   services.AuthService
	noteService   services.NoteService
	attachService services.AttachmentService
	caps          *capSource
	session       *enginesync.Session
	coordinator   *enginesync.Coordinator
	logger        logging.Logger

	reader    *bufio.Reader
	masterKey []byte
	password  string
	userName  string

	modeMu sync.Mutex
	mode   Mode
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger := logging.NewSlogLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn})))

	repos, err := client.InitDatabase(ctx, c.DatabaseFile)
	if err != nil {
		return nil, err
	}

	api := client.NewHTTPClient(c.ServerEndpointAddr, logger)

	stagingDir, err := filex.EnsureSubDir("attachments")
	if err != nil {
		return nil, err
	}

	noteSvc := services.NewNoteService(repos.DB)
	caps := &capSource{entitled: true}
	session := enginesync.NewSession(api, repos.Ledger, noteSvc, repos.Metadata, enginesync.NewGate(caps), logger)
	coordinator := enginesync.NewCoordinator(session, c.PushDebounce)
	noteSvc.SetOnChange(coordinator.RequestPush)
	caps.notify = coordinator.OnEntitlementChanged

	return &App{
		config:        c,
		repos:         repos,
		authService:   services.NewAuthService(api, repos.DB),
		noteService:   noteSvc,
		attachService: services.NewAttachmentService(api, repos.DB, stagingDir, logger),
		caps:          caps,
		session:       session,
		coordinator:   coordinator,
		logger:        logger,
		reader:        bufio.NewReader(os.Stdin),
		mode:          ModeDisabled,
	}, nil
}

func (a *App) isLoggedIn() bool {
	return a.masterKey != nil
}

func (a *App) getMode() Mode {
	a.modeMu.Lock()
	defer a.modeMu.Unlock()
	return a.mode
}

func (a *App) setMode(mode Mode) {
	a.modeMu.Lock()
	changed := a.mode != mode
	a.mode = mode
	a.modeMu.Unlock()
	if changed {
		fmt.Printf("Switched to %s mode\n", mode)
	}
}

// StartOnlineStatusWatcher probes the server periodically and flips the app
// between online and offline mode.
func (a *App) StartOnlineStatusWatcher(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
			err := a.authService.Ping(pingCtx)
			cancel()

			if err != nil {
				if a.getMode() == ModeOnline {
					a.setMode(ModeOffline)
				}
			} else {
				if a.getMode() == ModeOffline {
					a.setMode(ModeOnline)
				}
			}

		case <-ctx.Done():
			return
		}
	}
}
