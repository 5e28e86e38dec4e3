package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"arsflow/pkg/schema"
)

// Session carries the caller's credentials. It is passed explicitly to the
// client instead of living in shared mutable state.
type Session struct {
	Token string
	User  string
}

// Client is the HTTP client for the scenario admin backend. The http.Client
// is injected so callers control timeouts and transports.
type Client struct {
	baseURL string
	session Session
	http    *http.Client
}

// New creates a Client. httpClient may be nil to use http.DefaultClient.
func New(baseURL string, session Session, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		session: session,
		http:    httpClient,
	}
}

// do performs a JSON request. Transport failures become TRANSPORT_ERROR;
// non-2xx responses are decoded into the server's structured error.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reqBody io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return schema.NewErrorf(schema.ErrCodeTransport, "encode request body for %s %s", method, path).WithCause(err)
		}
		reqBody = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return schema.NewErrorf(schema.ErrCodeTransport, "build request %s %s", method, path).WithCause(err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.session.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.session.Token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return schema.NewErrorf(schema.ErrCodeTransport, "%s %s failed", method, path).WithCause(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeErrorBody(resp, method, path)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return schema.NewErrorf(schema.ErrCodeTransport, "decode response of %s %s", method, path).WithCause(err)
	}
	return nil
}

// doRaw performs a GET returning the raw response bytes (audio payloads).
func (c *Client) doRaw(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, schema.NewErrorf(schema.ErrCodeTransport, "build request GET %s", path).WithCause(err)
	}
	if c.session.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.session.Token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, schema.NewErrorf(schema.ErrCodeTransport, "GET %s failed", path).WithCause(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, decodeErrorBody(resp, http.MethodGet, path)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, schema.NewErrorf(schema.ErrCodeTransport, "read response of GET %s", path).WithCause(err)
	}
	return data, nil
}

// decodeErrorBody turns a non-2xx response into a FlowError, preserving the
// server's structured code when the body carries one.
func decodeErrorBody(resp *http.Response, method, path string) error {
	var body struct {
		Error *schema.FlowError `json:"error"`
	}
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err := json.Unmarshal(data, &body); err == nil && body.Error != nil && body.Error.Code != "" {
		return body.Error
	}

	code := schema.ErrCodeTransport
	switch resp.StatusCode {
	case http.StatusUnauthorized:
		code = schema.ErrCodeUnauthorized
	case http.StatusNotFound:
		code = schema.ErrCodeNotFound
	case http.StatusConflict:
		code = schema.ErrCodeConflict
	}
	return schema.NewError(code, fmt.Sprintf("%s %s: HTTP %d", method, path, resp.StatusCode))
}
