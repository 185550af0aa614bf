package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/dmitrijs2005/notekeeper/internal/common"
	"github.com/dmitrijs2005/notekeeper/internal/logging"
	"github.com/dmitrijs2005/notekeeper/internal/remote"
	"github.com/dmitrijs2005/notekeeper/internal/server/models"
	"github.com/dmitrijs2005/notekeeper/internal/server/services"
	"github.com/go-chi/chi/v5"
)

// UserService is the authentication surface the handlers consume.
type UserService interface {
	Register(ctx context.Context, login string, salt, verifier []byte) (*models.User, error)
	GetSalt(ctx context.Context, login string) ([]byte, error)
	Login(ctx context.Context, login string, verifier []byte) (*services.TokenPair, error)
	RefreshToken(ctx context.Context, refreshToken string) (*services.TokenPair, error)
}

// RecordService serves record reads and the atomic batch write.
type RecordService interface {
	Get(ctx context.Context, userID, id string) (*models.Record, error)
	QueryUpdatedSince(ctx context.Context, userID string, since time.Time) ([]models.Record, error)
	BatchWrite(ctx context.Context, userID string, mutations []remote.Mutation) ([]models.Record, error)
}

// PresignService issues presigned object-storage URLs for attachments.
type PresignService interface {
	GetPresignedPutURL(ctx context.Context) (string, string, error)
	GetPresignedGetURL(ctx context.Context, key string) (string, error)
}

type Handlers struct {
	users   UserService
	records RecordService
	presign PresignService
	hub     *Hub
	logger  logging.Logger
}

func NewHandlers(users UserService, records RecordService, presign PresignService, hub *Hub, logger logging.Logger) *Handlers {
	return &Handlers{users: users, records: records, presign: presign, hub: hub, logger: logger}
}

func statusFromError(err error) int {
	switch {
	case errors.Is(err, common.ErrInvalidArgument):
		return http.StatusBadRequest
	case errors.Is(err, common.ErrorUnauthorized),
		errors.Is(err, common.ErrInvalidToken),
		errors.Is(err, common.ErrTokenExpired),
		errors.Is(err, common.ErrRefreshTokenExpired):
		return http.StatusUnauthorized
	case errors.Is(err, common.ErrPushForbidden):
		return http.StatusForbidden
	case errors.Is(err, common.ErrorNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(remote.ErrorResponse{Error: err.Error()})
}

func respondJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func decodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return common.ErrInvalidArgument
	}
	return nil
}

// toWire converts a stored record to its wire representation.
func toWire(rec models.Record) remote.Record {
	return remote.Record{
		ID:        rec.ID,
		LocalID:   rec.LocalID,
		Payload:   rec.Payload,
		UpdatedAt: rec.UpdatedAt,
		Deleted:   rec.Deleted,
		DeletedAt: rec.DeletedAt,
	}
}

func (h *Handlers) handleError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFromError(err)
	if status == http.StatusInternalServerError {
		h.logger.Error(r.Context(), "request failed", "path", r.URL.Path, "error", err)
	}
	writeError(w, status, err)
}

func (h *Handlers) Ping(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func (h *Handlers) Register(w http.ResponseWriter, r *http.Request) {
	var req remote.RegisterRequest
	if err := decodeJSON(r, &req); err != nil {
		h.handleError(w, r, err)
		return
	}
	if req.Login == "" || len(req.Salt) == 0 || len(req.Verifier) == 0 {
		h.handleError(w, r, common.ErrInvalidArgument)
		return
	}

	if _, err := h.users.Register(r.Context(), req.Login, req.Salt, req.Verifier); err != nil {
		h.handleError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (h *Handlers) GetSalt(w http.ResponseWriter, r *http.Request) {
	login := r.URL.Query().Get("login")
	if login == "" {
		h.handleError(w, r, common.ErrInvalidArgument)
		return
	}

	salt, err := h.users.GetSalt(r.Context(), login)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	respondJSON(w, remote.SaltResponse{Salt: salt})
}

func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	var req remote.LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		h.handleError(w, r, err)
		return
	}

	pair, err := h.users.Login(r.Context(), req.Login, req.Verifier)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	respondJSON(w, remote.TokenPair{AccessToken: pair.AccessToken, RefreshToken: pair.RefreshToken})
}

func (h *Handlers) Refresh(w http.ResponseWriter, r *http.Request) {
	var req remote.RefreshRequest
	if err := decodeJSON(r, &req); err != nil {
		h.handleError(w, r, err)
		return
	}

	pair, err := h.users.RefreshToken(r.Context(), req.RefreshToken)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	respondJSON(w, remote.TokenPair{AccessToken: pair.AccessToken, RefreshToken: pair.RefreshToken})
}

func (h *Handlers) GetRecord(w http.ResponseWriter, r *http.Request) {
	rec, err := h.records.Get(r.Context(), userIDFromContext(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	respondJSON(w, toWire(*rec))
}

func (h *Handlers) QueryRecords(w http.ResponseWriter, r *http.Request) {
	var since time.Time
	if raw := r.URL.Query().Get("updated_since"); raw != "" {
		t, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			h.handleError(w, r, common.ErrInvalidArgument)
			return
		}
		since = t
	}

	recs, err := h.records.QueryUpdatedSince(r.Context(), userIDFromContext(r.Context()), since)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	out := make([]remote.Record, 0, len(recs))
	for _, rec := range recs {
		out = append(out, toWire(rec))
	}
	respondJSON(w, out)
}

// BatchWrite applies the client's mutations in one transaction and, on
// success, broadcasts the committed state to the owner's feed subscribers.
func (h *Handlers) BatchWrite(w http.ResponseWriter, r *http.Request) {
	var req remote.BatchWriteRequest
	if err := decodeJSON(r, &req); err != nil {
		h.handleError(w, r, err)
		return
	}

	userID := userIDFromContext(r.Context())
	committed, err := h.records.BatchWrite(r.Context(), userID, req.Mutations)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	if len(committed) > 0 {
		batch := make([]remote.Record, 0, len(committed))
		for _, rec := range committed {
			batch = append(batch, toWire(rec))
		}
		h.hub.Broadcast(userID, batch)
	}

	w.WriteHeader(http.StatusOK)
}

func (h *Handlers) PresignPut(w http.ResponseWriter, r *http.Request) {
	key, url, err := h.presign.GetPresignedPutURL(r.Context())
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	respondJSON(w, remote.PresignPutResponse{URL: url, Key: key})
}

func (h *Handlers) PresignGet(w http.ResponseWriter, r *http.Request) {
	key := r.URL.Query().Get("key")
	if key == "" {
		h.handleError(w, r, common.ErrInvalidArgument)
		return
	}

	url, err := h.presign.GetPresignedGetURL(r.Context(), key)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	respondJSON(w, remote.PresignGetResponse{URL: url})
}
