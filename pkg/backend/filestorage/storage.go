// Package filestorage keeps blobs on the local filesystem, one directory per bucket.
package filestorage

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-faster/errors"

	"github.com/iota-uz/portal/pkg/backend"
)

var ErrInvalidPath = errors.New("invalid object path")

type Storage struct {
	root string
}

var _ backend.Storage = (*Storage)(nil)

func New(root string) *Storage {
	return &Storage{root: root}
}

func (s *Storage) resolve(bucket, path string) (string, error) {
	clean := filepath.Clean("/" + strings.TrimLeft(path, "/"))
	if bucket == "" || strings.ContainsAny(bucket, `/\`) || clean == "/" {
		return "", errors.Wrapf(ErrInvalidPath, "%s/%s", bucket, path)
	}
	return filepath.Join(s.root, bucket, clean), nil
}

func (s *Storage) Upload(ctx context.Context, bucket, path string, data io.Reader, contentType string) error {
	full, err := s.resolve(bucket, path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return errors.Wrap(err, "create bucket dir")
	}
	f, err := os.OpenFile(full, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		if os.IsExist(err) {
			return &backend.APIError{Status: 409, Code: "Duplicate", Message: "The resource already exists"}
		}
		return errors.Wrap(err, "create object")
	}
	if _, err := io.Copy(f, data); err != nil {
		_ = f.Close()
		_ = os.Remove(full)
		return errors.Wrap(err, "write object")
	}
	return f.Close()
}

func (s *Storage) Download(ctx context.Context, bucket, path string) (*backend.Object, error) {
	full, err := s.resolve(bucket, path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(full)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, backend.ErrNotFound
		}
		return nil, errors.Wrap(err, "read object")
	}
	return &backend.Object{Data: data, ContentType: mimetype.Detect(data).String()}, nil
}
