package client

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/dmitrijs2005/notekeeper/internal/common"
	"github.com/dmitrijs2005/notekeeper/internal/logging"
	"github.com/dmitrijs2005/notekeeper/internal/remote"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() logging.Logger {
	return logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestLogin_StoresTokensAndSendsBearer(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/user/login":
			_ = json.NewEncoder(w).Encode(remote.TokenPair{AccessToken: "acc", RefreshToken: "ref"})
		case "/api/ping":
			gotAuth = r.Header.Get("Authorization")
			w.WriteHeader(http.StatusOK)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL, testLogger())
	ctx := context.Background()

	require.NoError(t, c.Login(ctx, "alice", []byte("verifier")))
	require.NoError(t, c.Ping(ctx))
	assert.Equal(t, "Bearer acc", gotAuth)
}

func TestGet_MissingRecordIsNilNil(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL, testLogger())
	rec, err := c.Get(context.Background(), "nope")
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestQueryUpdatedSince_SendsWatermark(t *testing.T) {
	at := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, at.Format(time.RFC3339Nano), r.URL.Query().Get("updated_since"))
		_ = json.NewEncoder(w).Encode([]remote.Record{{ID: "r1", UpdatedAt: at}})
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL, testLogger())
	recs, err := c.QueryUpdatedSince(context.Background(), at)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "r1", recs[0].ID)
}

func TestWrite_RejectsOversizedBatch(t *testing.T) {
	c := NewHTTPClient("http://127.0.0.1:0", testLogger())

	muts := make([]remote.Mutation, remote.MaxBatchWrites+1)
	for i := range muts {
		muts[i] = remote.Tombstone("id", time.Now())
	}
	err := c.Write(context.Background(), muts)
	assert.ErrorIs(t, err, common.ErrInvalidArgument)
}

func TestWrite_EmptyBatchIsNoop(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL, testLogger())
	require.NoError(t, c.Write(context.Background(), nil))
	assert.False(t, called)
}

func TestDo_RefreshesTokenOn401(t *testing.T) {
	pings := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/ping":
			pings++
			if r.Header.Get("Authorization") != "Bearer fresh" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			w.WriteHeader(http.StatusOK)
		case "/api/user/refresh":
			var req remote.RefreshRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, "old-refresh", req.RefreshToken)
			_ = json.NewEncoder(w).Encode(remote.TokenPair{AccessToken: "fresh", RefreshToken: "fresh-refresh"})
		}
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL, testLogger())
	c.setTokens("stale", "old-refresh")

	require.NoError(t, c.Ping(context.Background()))
	assert.Equal(t, 2, pings)

	access, refresh := c.tokens()
	assert.Equal(t, "fresh", access)
	assert.Equal(t, "fresh-refresh", refresh)
}

func TestDo_UnauthorizedWithoutRefreshToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL, testLogger())
	assert.ErrorIs(t, c.Ping(context.Background()), ErrUnauthorized)
}

func TestDo_ForbiddenMapsToPushForbidden(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL, testLogger())
	err := c.Write(context.Background(), []remote.Mutation{remote.Tombstone("id", time.Now())})
	assert.ErrorIs(t, err, common.ErrPushForbidden)
}

func TestDo_ServerErrorMapsToUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL, testLogger())
	assert.ErrorIs(t, c.Ping(context.Background()), ErrUnavailable)
}

func TestSubscribe_DeliversBatchesUntilClose(t *testing.T) {
	at := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/sync/feed", r.URL.Path)
		conn, err := websocket.Accept(w, r, nil)
		require.NoError(t, err)

		data, _ := json.Marshal([]remote.Record{{ID: "r1", UpdatedAt: at}})
		require.NoError(t, conn.Write(r.Context(), websocket.MessageText, data))
		conn.Close(websocket.StatusNormalClosure, "")
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	c := NewHTTPClient(srv.URL, testLogger())
	ch, err := c.Subscribe(ctx, at)
	require.NoError(t, err)

	batch, ok := <-ch
	require.True(t, ok)
	require.Len(t, batch, 1)
	assert.Equal(t, "r1", batch[0].ID)

	// server closed the socket, channel drains and closes
	_, ok = <-ch
	assert.False(t, ok)
}
