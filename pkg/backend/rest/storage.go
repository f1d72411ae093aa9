package rest

import (
	"context"
	"io"
	"net/http"
	"strings"

	"github.com/pkg/errors"

	"github.com/iota-uz/portal/pkg/backend"
)

func objectPath(bucket, path string) string {
	return "/storage/v1/object/" + bucket + "/" + strings.TrimLeft(path, "/")
}

func (c *Client) Upload(ctx context.Context, bucket, path string, data io.Reader, contentType string) error {
	raw, err := io.ReadAll(data)
	if err != nil {
		return errors.Wrap(err, "rest: read upload")
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	resp, err := c.do(ctx, request{
		method:      http.MethodPost,
		path:        objectPath(bucket, path),
		rawBody:     raw,
		contentType: contentType,
		headers: map[string]string{
			"x-upsert":      "false",
			"cache-control": "max-age=3600",
		},
	})
	if err != nil {
		return err
	}
	if !ok(resp.status) {
		return decodeAPIError(resp)
	}
	return nil
}

func (c *Client) Download(ctx context.Context, bucket, path string) (*backend.Object, error) {
	resp, err := c.do(ctx, request{
		method:     http.MethodGet,
		path:       objectPath(bucket, path),
		idempotent: true,
	})
	if err != nil {
		return nil, err
	}
	if !ok(resp.status) {
		apiErr := decodeAPIError(resp)
		if apiErr.Status == http.StatusNotFound {
			return nil, errors.Wrap(backend.ErrNotFound, apiErr.Message)
		}
		return nil, apiErr
	}
	return &backend.Object{
		Data:        resp.body,
		ContentType: resp.header.Get("Content-Type"),
	}, nil
}
