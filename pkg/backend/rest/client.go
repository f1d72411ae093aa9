// Package rest talks to a Supabase-compatible hosted backend over HTTP:
// GoTrue for auth, PostgREST for tables and the storage API for blobs.
package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/sethvargo/go-retry"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/iota-uz/portal/pkg/backend"
)

type Options struct {
	URL        string
	AnonKey    string
	Timeout    time.Duration
	MaxRetries uint64
	HTTPClient *http.Client
}

type Client struct {
	baseURL *url.URL
	anonKey string
	http    *http.Client
	retries uint64
}

var (
	_ backend.Auth    = (*Client)(nil)
	_ backend.Tables  = (*Client)(nil)
	_ backend.Storage = (*Client)(nil)
)

func New(opts Options) (*Client, error) {
	if opts.URL == "" {
		return nil, errors.New("rest: URL is required")
	}
	u, err := url.Parse(strings.TrimRight(opts.URL, "/"))
	if err != nil {
		return nil, errors.Wrap(err, "rest: invalid URL")
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		httpClient = &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		}
	}
	return &Client{
		baseURL: u,
		anonKey: opts.AnonKey,
		http:    httpClient,
		retries: opts.MaxRetries,
	}, nil
}

type request struct {
	method      string
	path        string
	query       url.Values
	body        any
	rawBody     []byte
	contentType string
	token       string
	headers     map[string]string
	// GET requests are retried on transport errors and 5xx responses.
	idempotent bool
}

type response struct {
	status int
	header http.Header
	body   []byte
}

func (c *Client) endpoint(path string, query url.Values) string {
	u := *c.baseURL
	u.Path = u.Path + path
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	return u.String()
}

func (c *Client) bearer(ctx context.Context, explicit string) string {
	if explicit != "" {
		return explicit
	}
	if token, ok := backend.AccessToken(ctx); ok {
		return token
	}
	return c.anonKey
}

func (c *Client) do(ctx context.Context, req request) (*response, error) {
	var payload []byte
	switch {
	case req.rawBody != nil:
		payload = req.rawBody
	case req.body != nil:
		b, err := json.Marshal(req.body)
		if err != nil {
			return nil, errors.Wrap(err, "rest: marshal request")
		}
		payload = b
		if req.contentType == "" {
			req.contentType = "application/json"
		}
	}

	attempt := func(ctx context.Context) (*response, error) {
		var body io.Reader
		if payload != nil {
			body = bytes.NewReader(payload)
		}
		httpReq, err := http.NewRequestWithContext(ctx, req.method, c.endpoint(req.path, req.query), body)
		if err != nil {
			return nil, errors.Wrap(err, "rest: build request")
		}
		httpReq.Header.Set("apikey", c.anonKey)
		httpReq.Header.Set("Authorization", "Bearer "+c.bearer(ctx, req.token))
		if req.contentType != "" {
			httpReq.Header.Set("Content-Type", req.contentType)
		}
		for k, v := range req.headers {
			httpReq.Header.Set(k, v)
		}

		resp, err := c.http.Do(httpReq)
		if err != nil {
			return nil, errors.Wrapf(err, "rest: %s %s", req.method, req.path)
		}
		defer resp.Body.Close()
		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, errors.Wrap(err, "rest: read response")
		}
		return &response{status: resp.StatusCode, header: resp.Header, body: data}, nil
	}

	if !req.idempotent || c.retries == 0 {
		return attempt(ctx)
	}

	var out *response
	backoff := retry.WithMaxRetries(c.retries, retry.NewExponential(100*time.Millisecond))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		resp, err := attempt(ctx)
		if err != nil {
			out = nil
			return retry.RetryableError(err)
		}
		if resp.status >= http.StatusInternalServerError {
			out = resp
			return retry.RetryableError(errors.Errorf("rest: %s %s: status %d", req.method, req.path, resp.status))
		}
		out = resp
		return nil
	})
	if err != nil && out == nil {
		return nil, err
	}
	return out, nil
}

type errorBody struct {
	Code             any    `json:"code"`
	ErrorCode        string `json:"error_code"`
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
	Msg              string `json:"msg"`
	Message          string `json:"message"`
	StatusCode       string `json:"statusCode"`
}

func decodeAPIError(resp *response) *backend.APIError {
	apiErr := &backend.APIError{Status: resp.status}
	var body errorBody
	if err := json.Unmarshal(resp.body, &body); err != nil {
		apiErr.Message = strings.TrimSpace(string(resp.body))
		if apiErr.Message == "" {
			apiErr.Message = http.StatusText(resp.status)
		}
		return apiErr
	}
	switch {
	case body.ErrorCode != "":
		apiErr.Code = body.ErrorCode
	case body.Error != "":
		apiErr.Code = body.Error
	default:
		if s, ok := body.Code.(string); ok {
			apiErr.Code = s
		}
	}
	for _, m := range []string{body.ErrorDescription, body.Msg, body.Message, body.Error} {
		if m != "" {
			apiErr.Message = m
			break
		}
	}
	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(resp.status)
	}
	if body.StatusCode == "404" {
		apiErr.Status = http.StatusNotFound
	}
	return apiErr
}

func decodeJSON(resp *response, v any) error {
	if err := json.Unmarshal(resp.body, v); err != nil {
		return errors.Wrap(err, "rest: decode response")
	}
	return nil
}

func ok(status int) bool {
	return status >= 200 && status < 300
}
