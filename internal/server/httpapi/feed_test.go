package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/dmitrijs2005/notekeeper/internal/common"
	"github.com/dmitrijs2005/notekeeper/internal/remote"
	"github.com/dmitrijs2005/notekeeper/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dialFeed(t *testing.T, a *testAPI, token, query string) *websocket.Conn {
	t.Helper()

	u := strings.Replace(a.server.URL, "http", "ws", 1) + "/api/sync/feed" + query
	hdr := http.Header{}
	hdr.Set(common.AccessTokenHeaderName, "Bearer "+token)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)

	conn, _, err := websocket.Dial(ctx, u, &websocket.DialOptions{HTTPHeader: hdr})
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close(websocket.StatusNormalClosure, "") })
	return conn
}

func readBatch(t *testing.T, conn *websocket.Conn) []remote.Record {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, data, err := conn.Read(ctx)
	require.NoError(t, err)

	var batch []remote.Record
	require.NoError(t, json.Unmarshal(data, &batch))
	return batch
}

func TestFeed_CatchUpThenLive(t *testing.T) {
	a := newTestAPI(t)
	base := time.Now().UTC()
	a.records.query = []models.Record{
		{ID: "backlog", UserID: "u1", UpdatedAt: base.Add(time.Minute)},
	}

	conn := dialFeed(t, a, accessToken(t, "u1"),
		"?updated_since="+base.Format(time.RFC3339Nano))

	batch := readBatch(t, conn)
	require.Len(t, batch, 1)
	assert.Equal(t, "backlog", batch[0].ID)

	a.hub.Broadcast("u1", []remote.Record{{ID: "live", UpdatedAt: base.Add(2 * time.Minute)}})

	batch = readBatch(t, conn)
	require.Len(t, batch, 1)
	assert.Equal(t, "live", batch[0].ID)
}

func TestFeed_OtherUsersInvisible(t *testing.T) {
	a := newTestAPI(t)

	conn := dialFeed(t, a, accessToken(t, "u1"), "")
	require.Eventually(t, func() bool { return a.hub.subscriberCount("u1") == 1 },
		2*time.Second, 10*time.Millisecond)

	a.hub.Broadcast("someone-else", []remote.Record{{ID: "theirs"}})
	a.hub.Broadcast("u1", []remote.Record{{ID: "mine"}})

	batch := readBatch(t, conn)
	require.Len(t, batch, 1)
	assert.Equal(t, "mine", batch[0].ID)
}

func TestFeed_UnsubscribesOnDisconnect(t *testing.T) {
	a := newTestAPI(t)

	conn := dialFeed(t, a, accessToken(t, "u1"), "")
	require.Eventually(t, func() bool { return a.hub.subscriberCount("u1") == 1 },
		2*time.Second, 10*time.Millisecond)

	conn.Close(websocket.StatusNormalClosure, "")

	require.Eventually(t, func() bool { return a.hub.subscriberCount("u1") == 0 },
		2*time.Second, 10*time.Millisecond)
}

func TestFeed_RequiresAuth(t *testing.T) {
	a := newTestAPI(t)

	u := strings.Replace(a.server.URL, "http", "ws", 1) + "/api/sync/feed"
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, resp, err := websocket.Dial(ctx, u, nil)
	require.Error(t, err)
	if resp != nil {
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	}
}
