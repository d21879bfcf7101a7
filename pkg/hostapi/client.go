package hostapi

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
)

// DefaultTimeout bounds a single host request.
const DefaultTimeout = 10 * time.Second

// Client talks to the host application over HTTP. Requests are never
// retried: a failed persistence call is rolled back by the caller.
type Client struct {
	base    *url.URL
	http    *http.Client
	headers map[string]string
	queries singleflight.Group
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.http = hc }
}

// WithHeader adds a header sent with every request, e.g. a CSRF token.
func WithHeader(key, value string) ClientOption {
	return func(c *Client) { c.headers[key] = value }
}

// NewClient returns a client for the host rooted at baseURL.
func NewClient(baseURL string, opts ...ClientOption) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse host url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("host url %q: scheme must be http or https", baseURL)
	}
	c := &Client{
		base:    u,
		http:    &http.Client{Timeout: DefaultTimeout},
		headers: map[string]string{"Accept": "application/json"},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// PersistTypeColor saves the color of a node type, or the color and mode
// of an edge type.
func (c *Client) PersistTypeColor(ctx context.Context, tc TypeColor) error {
	path := "/nodetypes/color"
	if tc.Kind == KindEdge {
		path = "/reltypes/color"
	}
	return c.post(ctx, path, tc, nil)
}

// PersistEveryEdgeTypeColor resubmits the current color of every edge type.
func (c *Client) PersistEveryEdgeTypeColor(ctx context.Context, cs []TypeColor) error {
	return c.post(ctx, "/reltypes/color", struct {
		Types []TypeColor `json:"types"`
	}{cs}, nil)
}

// PersistSelectionQuery runs a stored query or a search and returns the
// matching node ids. Identical concurrent calls share one request.
func (c *Client) PersistSelectionQuery(ctx context.Context, q Query) ([]string, error) {
	path := "/search"
	key := "search:" + q.Terms
	if q.Terms == "" {
		if q.ID == "" {
			return nil, fmt.Errorf("selection query: empty query")
		}
		path = "/queries/" + url.PathEscape(q.ID) + "/run"
		key = "query:" + q.ID
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	// The shared request is detached from the first caller's context; each
	// caller stops waiting on its own.
	ch := c.queries.DoChan(key, func() (any, error) {
		qctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), DefaultTimeout)
		defer cancel()
		var resp struct {
			NodeIDs []string `json:"nodeIds"`
		}
		if err := c.post(qctx, path, q, &resp); err != nil {
			return nil, err
		}
		return resp.NodeIDs, nil
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-ch:
		if r.Err != nil {
			return nil, r.Err
		}
		ids := r.Val.([]string)
		out := make([]string, len(ids))
		copy(out, ids)
		return out, nil
	}
}

// PersistBoxLayout saves the side panel positions.
func (c *Client) PersistBoxLayout(ctx context.Context, l BoxLayout) error {
	return c.post(ctx, "/boxes/positions", l, nil)
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base.String()+path, bytes.NewReader(data))
	if err != nil {
		return err
	}
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-Id", uuid.NewString())

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("post %s: %w", path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("post %s: %w: %d %s", path, ErrStatus, resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}
