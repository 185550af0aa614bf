package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/dmitrijs2005/notekeeper/internal/common"
	"github.com/dmitrijs2005/notekeeper/internal/logging"
	"github.com/dmitrijs2005/notekeeper/internal/remote"
)

// HTTPClient talks JSON over HTTP to the notekeeper server and implements
// the Client interface. Tokens are refreshed transparently: a 401 response
// triggers one refresh attempt and a retry of the original request.
type HTTPClient struct {
	baseURL string
	http    *http.Client
	logger  logging.Logger

	mu           sync.Mutex
	accessToken  string
	refreshToken string
}

func NewHTTPClient(baseURL string, logger logging.Logger) *HTTPClient {
	return &HTTPClient{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 30 * time.Second},
		logger:  logger,
	}
}

func (c *HTTPClient) Close() error {
	c.http.CloseIdleConnections()
	return nil
}

func (c *HTTPClient) tokens() (string, string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.accessToken, c.refreshToken
}

func (c *HTTPClient) setTokens(access, refresh string) {
	c.mu.Lock()
	c.accessToken = access
	c.refreshToken = refresh
	c.mu.Unlock()
}

// do performs one JSON request. A 401 with a refresh token on hand is
// retried once after refreshing the token pair.
func (c *HTTPClient) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	resp, err := c.send(ctx, method, path, query, body)
	if err != nil {
		return err
	}

	if resp.StatusCode == http.StatusUnauthorized {
		drain(resp)
		if _, refresh := c.tokens(); refresh == "" {
			return ErrUnauthorized
		}
		if err := c.refresh(ctx); err != nil {
			return err
		}
		if resp, err = c.send(ctx, method, path, query, body); err != nil {
			return err
		}
	}

	defer drain(resp)
	if err := mapStatus(resp); err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func (c *HTTPClient) send(ctx context.Context, method, path string, query url.Values, body any) (*http.Response, error) {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var rd io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request: %w", err)
		}
		rd = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, rd)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if access, _ := c.tokens(); access != "" {
		req.Header.Set(common.AccessTokenHeaderName, "Bearer "+access)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return resp, nil
}

func (c *HTTPClient) refresh(ctx context.Context) error {
	_, refreshToken := c.tokens()

	resp, err := c.send(ctx, http.MethodPost, "/api/user/refresh", nil,
		&remote.RefreshRequest{RefreshToken: refreshToken})
	if err != nil {
		return err
	}
	defer drain(resp)

	if err := mapStatus(resp); err != nil {
		return err
	}
	var pair remote.TokenPair
	if err := json.NewDecoder(resp.Body).Decode(&pair); err != nil {
		return fmt.Errorf("failed to decode token pair: %w", err)
	}
	c.setTokens(pair.AccessToken, pair.RefreshToken)
	c.logger.Debug(ctx, "access token refreshed")
	return nil
}

func mapStatus(resp *http.Response) error {
	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusUnauthorized:
		return ErrUnauthorized
	case resp.StatusCode == http.StatusForbidden:
		return common.ErrPushForbidden
	case resp.StatusCode == http.StatusNotFound:
		return common.ErrorNotFound
	case resp.StatusCode == http.StatusBadRequest:
		return fmt.Errorf("%w: %s", common.ErrInvalidArgument, errorBody(resp))
	default:
		return fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}
}

func errorBody(resp *http.Response) string {
	var e remote.ErrorResponse
	if err := json.NewDecoder(resp.Body).Decode(&e); err != nil {
		return resp.Status
	}
	return e.Error
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
}

func (c *HTTPClient) Register(ctx context.Context, username string, salt, verifier []byte) error {
	return c.do(ctx, http.MethodPost, "/api/user/register", nil,
		&remote.RegisterRequest{Login: username, Salt: salt, Verifier: verifier}, nil)
}

func (c *HTTPClient) GetSalt(ctx context.Context, username string) ([]byte, error) {
	var out remote.SaltResponse
	q := url.Values{"login": {username}}
	if err := c.do(ctx, http.MethodGet, "/api/user/salt", q, nil, &out); err != nil {
		return nil, err
	}
	return out.Salt, nil
}

func (c *HTTPClient) Login(ctx context.Context, username string, verifier []byte) error {
	var pair remote.TokenPair
	err := c.do(ctx, http.MethodPost, "/api/user/login", nil,
		&remote.LoginRequest{Login: username, Verifier: verifier}, &pair)
	if err != nil {
		return err
	}
	c.setTokens(pair.AccessToken, pair.RefreshToken)
	return nil
}

func (c *HTTPClient) Ping(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/api/ping", nil, nil, nil)
}

func (c *HTTPClient) Get(ctx context.Context, id string) (*remote.Record, error) {
	var rec remote.Record
	err := c.do(ctx, http.MethodGet, "/api/records/"+url.PathEscape(id), nil, nil, &rec)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &rec, nil
}

func (c *HTTPClient) QueryUpdatedSince(ctx context.Context, since time.Time) ([]remote.Record, error) {
	q := url.Values{}
	if !since.IsZero() {
		q.Set("updated_since", since.UTC().Format(time.RFC3339Nano))
	}
	var recs []remote.Record
	if err := c.do(ctx, http.MethodGet, "/api/records", q, nil, &recs); err != nil {
		return nil, err
	}
	return recs, nil
}

func (c *HTTPClient) Write(ctx context.Context, muts []remote.Mutation) error {
	if len(muts) == 0 {
		return nil
	}
	if len(muts) > remote.MaxBatchWrites {
		return fmt.Errorf("%w: batch of %d exceeds limit %d",
			common.ErrInvalidArgument, len(muts), remote.MaxBatchWrites)
	}
	return c.do(ctx, http.MethodPost, "/api/records/batch", nil,
		&remote.BatchWriteRequest{Mutations: muts}, nil)
}

func (c *HTTPClient) GetPresignedPutURL(ctx context.Context) (string, string, error) {
	var out remote.PresignPutResponse
	if err := c.do(ctx, http.MethodPost, "/api/files/presign-put", nil, nil, &out); err != nil {
		return "", "", err
	}
	return out.URL, out.Key, nil
}

func (c *HTTPClient) GetPresignedGetURL(ctx context.Context, key string) (string, error) {
	var out remote.PresignGetResponse
	q := url.Values{"key": {key}}
	if err := c.do(ctx, http.MethodGet, "/api/files/presign-get", q, nil, &out); err != nil {
		return "", err
	}
	return out.URL, nil
}
