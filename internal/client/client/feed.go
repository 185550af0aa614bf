package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/coder/websocket"
	"github.com/dmitrijs2005/notekeeper/internal/common"
	"github.com/dmitrijs2005/notekeeper/internal/remote"
)

// Subscribe opens the server change feed over a websocket and delivers
// record batches until ctx is cancelled or the connection drops, at which
// point the channel is closed. Reconnecting is the caller's job.
func (c *HTTPClient) Subscribe(ctx context.Context, since time.Time) (<-chan []remote.Record, error) {
	u := strings.Replace(c.baseURL, "http", "ws", 1) + "/api/sync/feed"
	if !since.IsZero() {
		u += "?" + url.Values{"updated_since": {since.UTC().Format(time.RFC3339Nano)}}.Encode()
	}

	access, _ := c.tokens()
	hdr := http.Header{}
	if access != "" {
		hdr.Set(common.AccessTokenHeaderName, "Bearer "+access)
	}

	conn, _, err := websocket.Dial(ctx, u, &websocket.DialOptions{HTTPHeader: hdr})
	if err != nil {
		return nil, fmt.Errorf("%w: feed dial: %v", ErrUnavailable, err)
	}

	ch := make(chan []remote.Record)
	go func() {
		defer close(ch)
		defer conn.Close(websocket.StatusNormalClosure, "")

		for {
			_, data, err := conn.Read(ctx)
			if err != nil {
				if ctx.Err() == nil {
					c.logger.Debug(ctx, "feed connection dropped", "error", err)
				}
				return
			}
			var batch []remote.Record
			if err := json.Unmarshal(data, &batch); err != nil {
				c.logger.Warn(ctx, "skipping malformed feed message", "error", err)
				continue
			}
			if len(batch) == 0 {
				continue
			}
			select {
			case ch <- batch:
			case <-ctx.Done():
				return
			}
		}
	}()

	return ch, nil
}
