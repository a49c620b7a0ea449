// Package rtdb talks to a Firebase Realtime Database over its REST API.
//
// Every node is addressable as {base}/{path}.json. Reads, PUT, PATCH and
// DELETE map one-to-one onto docstore.Store; conditional writes use the
// X-Firebase-ETag / if-match protocol.
package rtdb

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Couziii/Test-Charity-Event-Manager/internal/docstore"
)

const maxBodyBytes = 32 << 20

// Client implements docstore.Store, docstore.Conditional and docstore.Pinger.
type Client struct {
	baseURL   string
	authToken string
	http      *http.Client
}

var (
	_ docstore.Store       = (*Client)(nil)
	_ docstore.Conditional = (*Client)(nil)
	_ docstore.Pinger      = (*Client)(nil)
)

// New returns a client for the database at baseURL. authToken, when set, is
// sent as the auth query parameter (database secret or ID token). A nil
// httpClient gets a client with a 10 second timeout.
func New(baseURL, authToken string, httpClient *http.Client) (*Client, error) {
	parsed, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("rtdb: invalid database url %q", baseURL)
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{
		baseURL:   strings.TrimRight(parsed.String(), "/"),
		authToken: authToken,
		http:      httpClient,
	}, nil
}

func (c *Client) Get(ctx context.Context, p docstore.Path) (json.RawMessage, error) {
	raw, _, err := c.get(ctx, p, false)
	return raw, err
}

func (c *Client) GetWithETag(ctx context.Context, p docstore.Path) (json.RawMessage, string, error) {
	return c.get(ctx, p, true)
}

func (c *Client) Set(ctx context.Context, p docstore.Path, value any) error {
	if value == nil {
		return c.Remove(ctx, p)
	}
	_, err := c.send(ctx, "set", http.MethodPut, p, value, nil)
	return err
}

func (c *Client) Update(ctx context.Context, p docstore.Path, fields map[string]any) error {
	for k := range fields {
		if !docstore.ValidKey(k) {
			return docstore.Wrap("update", p.Child(k), docstore.ErrInvalidPath, false)
		}
	}
	_, err := c.send(ctx, "update", http.MethodPatch, p, fields, nil)
	return err
}

func (c *Client) Remove(ctx context.Context, p docstore.Path) error {
	_, err := c.send(ctx, "remove", http.MethodDelete, p, nil, nil)
	return err
}

func (c *Client) SetIfMatch(ctx context.Context, p docstore.Path, value any, etag string) error {
	method := http.MethodPut
	if value == nil {
		method = http.MethodDelete
	}
	_, err := c.send(ctx, "set", method, p, value, http.Header{"if-match": []string{etag}})
	return err
}

// Ping issues a shallow read of the admin code collection.
func (c *Client) Ping(ctx context.Context) error {
	u, err := c.url(docstore.P(docstore.AdminCodes))
	if err != nil {
		return docstore.Wrap("ping", nil, err, false)
	}
	q := u.Query()
	q.Set("shallow", "true")
	u.RawQuery = q.Encode()
	_, _, err = c.do(ctx, "ping", http.MethodGet, u, nil, nil)
	return err
}

func (c *Client) get(ctx context.Context, p docstore.Path, withETag bool) (json.RawMessage, string, error) {
	u, err := c.url(p)
	if err != nil {
		return nil, "", docstore.Wrap("get", p, err, false)
	}
	var header http.Header
	if withETag {
		header = http.Header{"X-Firebase-ETag": []string{"true"}}
	}
	body, respHeader, err := c.do(ctx, "get", http.MethodGet, u, nil, header)
	if err != nil {
		return nil, "", err
	}
	if isNull(body) {
		body = nil
	}
	etag := ""
	if withETag {
		etag = respHeader.Get("ETag")
	}
	return body, etag, nil
}

func (c *Client) send(ctx context.Context, op, method string, p docstore.Path, value any, header http.Header) (json.RawMessage, error) {
	u, err := c.url(p)
	if err != nil {
		return nil, docstore.Wrap(op, p, err, false)
	}
	var payload []byte
	if method != http.MethodDelete {
		payload, err = json.Marshal(value)
		if err != nil {
			return nil, docstore.Wrap(op, p, err, false)
		}
	}
	body, _, err := c.do(ctx, op, method, u, payload, header)
	return body, err
}

func (c *Client) url(p docstore.Path) (*url.URL, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	escaped := make([]string, len(p))
	for i, seg := range p {
		escaped[i] = url.PathEscape(seg)
	}
	u, err := url.Parse(c.baseURL + "/" + strings.Join(escaped, "/") + ".json")
	if err != nil {
		return nil, err
	}
	if c.authToken != "" {
		q := u.Query()
		q.Set("auth", c.authToken)
		u.RawQuery = q.Encode()
	}
	return u, nil
}

// redact drops the query, and with it the auth token, from a *url.Error.
func redact(err error) error {
	var ue *url.Error
	if !errors.As(err, &ue) {
		return err
	}
	u := ue.URL
	if i := strings.IndexByte(u, '?'); i >= 0 {
		u = u[:i]
	}
	return &url.Error{Op: ue.Op, URL: u, Err: ue.Err}
}

type errorBody struct {
	Error string `json:"error"`
}

func (c *Client) do(ctx context.Context, op, method string, u *url.URL, payload []byte, header http.Header) (json.RawMessage, http.Header, error) {
	path := strings.TrimSuffix(strings.TrimPrefix(u.Path, "/"), ".json")

	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return nil, nil, &docstore.StoreError{Op: op, Path: path, Err: redact(err)}
	}
	for k, values := range header {
		for _, v := range values {
			req.Header.Add(k, v)
		}
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, nil, &docstore.StoreError{Op: op, Path: path, Err: redact(err), Temporary: ctx.Err() == nil}
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, nil, &docstore.StoreError{Op: op, Path: path, Err: err, Temporary: true}
	}

	switch {
	case resp.StatusCode == http.StatusPreconditionFailed:
		return nil, nil, docstore.ErrETagMismatch
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return json.RawMessage(body), resp.Header, nil
	default:
		return nil, nil, &docstore.StoreError{
			Op:        op,
			Path:      path,
			Err:       statusError(resp.StatusCode, body),
			Temporary: resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests,
		}
	}
}

func statusError(status int, body []byte) error {
	var eb errorBody
	if err := json.Unmarshal(body, &eb); err == nil && eb.Error != "" {
		return fmt.Errorf("status %d: %s", status, eb.Error)
	}
	return errors.New(http.StatusText(status))
}

func isNull(raw []byte) bool {
	s := strings.TrimSpace(string(raw))
	return s == "" || s == "null"
}
