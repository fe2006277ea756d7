package wechat

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"
)

const defaultAPIBase = "https://api.weixin.qq.com"

// tokenSafety is shaved off the advertised expiry so a token is refreshed
// before the platform actually rejects it.
const tokenSafety = 200 * time.Second

// Client talks to the messaging-platform HTTP API: access-token issuance
// and transient media retrieval by id. Tokens are cached until expiry.
type Client struct {
	appID     string
	appSecret string
	apiBase   string
	http      *http.Client

	mu          sync.Mutex
	token       string
	tokenExpiry time.Time
}

type ClientOption func(*Client)

// WithAPIBase overrides the platform endpoint, used by tests.
func WithAPIBase(base string) ClientOption {
	return func(c *Client) {
		c.apiBase = base
	}
}

func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) {
		c.http = client
	}
}

func NewClient(appID, appSecret string, opts ...ClientOption) *Client {
	c := &Client{
		appID:     appID,
		appSecret: appSecret,
		apiBase:   defaultAPIBase,
		http:      &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// AccessToken returns a cached platform credential, fetching a fresh one
// once the previous is near expiry.
func (c *Client) AccessToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.token != "" && time.Now().Before(c.tokenExpiry) {
		return c.token, nil
	}
	endpoint := fmt.Sprintf("%s/cgi-bin/token?grant_type=client_credential&appid=%s&secret=%s",
		c.apiBase, url.QueryEscape(c.appID), url.QueryEscape(c.appSecret))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch access token: %w", err)
	}
	defer resp.Body.Close()
	var payload struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int64  `json:"expires_in"`
		ErrCode     int    `json:"errcode"`
		ErrMsg      string `json:"errmsg"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("decode access token: %w", err)
	}
	if payload.AccessToken == "" {
		return "", fmt.Errorf("fetch access token: errcode=%d errmsg=%s", payload.ErrCode, payload.ErrMsg)
	}
	expiresIn := time.Duration(payload.ExpiresIn) * time.Second
	if expiresIn <= 0 {
		expiresIn = 7000 * time.Second
	}
	c.token = payload.AccessToken
	c.tokenExpiry = time.Now().Add(expiresIn - tokenSafety)
	return c.token, nil
}

// FetchMedia resolves a transient media id to its content type and byte
// stream. The caller owns the returned reader.
func (c *Client) FetchMedia(ctx context.Context, mediaID string) (string, io.ReadCloser, error) {
	token, err := c.AccessToken(ctx)
	if err != nil {
		return "", nil, err
	}
	endpoint := fmt.Sprintf("%s/cgi-bin/media/get?access_token=%s&media_id=%s",
		c.apiBase, url.QueryEscape(token), url.QueryEscape(mediaID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return "", nil, fmt.Errorf("fetch media %s: %w", mediaID, err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return "", nil, fmt.Errorf("fetch media %s: status %d", mediaID, resp.StatusCode)
	}
	return resp.Header.Get("Content-Type"), resp.Body, nil
}
