package filestorage

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/iota-uz/portal/pkg/backend"
)

func pngBytes(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 1, 1))))
	return buf.Bytes()
}

func TestStorage_UploadDownload(t *testing.T) {
	s := New(t.TempDir())
	ctx := context.Background()
	data := pngBytes(t)

	require.NoError(t, s.Upload(ctx, "avatars", "u1-a.png", bytes.NewReader(data), "image/png"))

	obj, err := s.Download(ctx, "avatars", "u1-a.png")
	require.NoError(t, err)
	require.Equal(t, data, obj.Data)
	require.Equal(t, "image/png", obj.ContentType)
}

func TestStorage_RejectsOverwrite(t *testing.T) {
	s := New(t.TempDir())
	ctx := context.Background()

	require.NoError(t, s.Upload(ctx, "avatars", "a.png", bytes.NewReader(pngBytes(t)), "image/png"))
	err := s.Upload(ctx, "avatars", "a.png", bytes.NewReader(pngBytes(t)), "image/png")
	var apiErr *backend.APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, 409, apiErr.Status)
}

func TestStorage_PathsStayInsideBucket(t *testing.T) {
	root := t.TempDir()
	s := New(root)

	full, err := s.resolve("avatars", "../../etc/passwd")
	require.NoError(t, err)
	require.Contains(t, full, root)

	_, err = s.resolve("../avatars", "a.png")
	require.ErrorIs(t, err, ErrInvalidPath)
}

func TestStorage_DownloadMissing(t *testing.T) {
	_, err := New(t.TempDir()).Download(context.Background(), "avatars", "missing.png")
	require.ErrorIs(t, err, backend.ErrNotFound)
}
