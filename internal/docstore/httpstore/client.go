package httpstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/04shr/petzy/internal/docstore"
)

// DefaultTimeout bounds every request made by a Client built without an http.Client.
const DefaultTimeout = 10 * time.Second

// Client is a docstore.Store talking to a docd server.
type Client struct {
	base string
	http *http.Client
}

var _ docstore.Store = (*Client)(nil)

// NewClient returns a client for the server at baseURL. A nil hc uses a client with
// DefaultTimeout.
func NewClient(baseURL string, hc *http.Client) (*Client, error) {
	u, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("document server URL %q must be http(s)://host", baseURL)
	}
	if hc == nil {
		hc = &http.Client{Timeout: DefaultTimeout}
	}
	return &Client{base: strings.TrimRight(u.String(), "/"), http: hc}, nil
}

func (c *Client) docURL(collection, id string) string {
	return c.base + "/v1/docs/" + url.PathEscape(collection) + "/" + url.PathEscape(id)
}

// Get implements docstore.Store.
func (c *Client) Get(ctx context.Context, collection, id string) (json.RawMessage, error) {
	if err := docstore.ValidateKey(collection, id); err != nil {
		return nil, err
	}
	body, err := c.do(ctx, http.MethodGet, c.docURL(collection, id), nil)
	if err != nil {
		return nil, err
	}
	return body, nil
}

// Set implements docstore.Store.
func (c *Client) Set(ctx context.Context, collection, id string, doc json.RawMessage) error {
	if err := docstore.ValidateKey(collection, id); err != nil {
		return err
	}
	_, err := c.do(ctx, http.MethodPut, c.docURL(collection, id), doc)
	return err
}

// Update implements docstore.Store.
func (c *Client) Update(ctx context.Context, collection, id string, fields map[string]json.RawMessage) error {
	if err := docstore.ValidateKey(collection, id); err != nil {
		return err
	}
	payload, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("encode fields: %w", err)
	}
	_, err = c.do(ctx, http.MethodPatch, c.docURL(collection, id), payload)
	return err
}

func (c *Client) do(ctx context.Context, method, target string, payload []byte) ([]byte, error) {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, target, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, docstore.ErrNotFound
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, fmt.Errorf("%s %s: %s: %s", method, target, resp.Status, strings.TrimSpace(string(data)))
	}
	return data, nil
}
