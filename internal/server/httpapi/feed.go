package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/dmitrijs2005/notekeeper/internal/common"
	"github.com/dmitrijs2005/notekeeper/internal/remote"
)

// Feed upgrades the request to a websocket and streams record batches:
// first a catch-up of everything newer than updated_since, then live
// batches as other devices commit writes. The subscription is taken before
// the catch-up query so nothing committed in between is missed.
func (h *Handlers) Feed(w http.ResponseWriter, r *http.Request) {
	userID := userIDFromContext(r.Context())

	var since time.Time
	if raw := r.URL.Query().Get("updated_since"); raw != "" {
		t, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			h.handleError(w, r, common.ErrInvalidArgument)
			return
		}
		since = t
	}

	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		h.logger.Warn(r.Context(), "feed upgrade failed", "error", err)
		return
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	// The feed is write-only; CloseRead cancels ctx when the peer goes away
	// so the subscription is released even for idle accounts.
	ctx := conn.CloseRead(r.Context())

	live, cancel := h.hub.Subscribe(userID)
	defer cancel()

	backlog, err := h.records.QueryUpdatedSince(ctx, userID, since)
	if err != nil {
		h.logger.Error(ctx, "feed catch-up failed", "error", err)
		conn.Close(websocket.StatusInternalError, "catch-up failed")
		return
	}
	if len(backlog) > 0 {
		batch := make([]remote.Record, 0, len(backlog))
		for _, rec := range backlog {
			batch = append(batch, toWire(rec))
		}
		if err := writeBatch(ctx, conn, batch); err != nil {
			return
		}
	}

	for {
		select {
		case batch, ok := <-live:
			if !ok {
				return
			}
			if err := writeBatch(ctx, conn, batch); err != nil {
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

func writeBatch(ctx context.Context, conn *websocket.Conn, batch []remote.Record) error {
	data, err := json.Marshal(batch)
	if err != nil {
		return err
	}
	return conn.Write(ctx, websocket.MessageText, data)
}
