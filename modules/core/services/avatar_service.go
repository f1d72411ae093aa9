package services

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-faster/errors"
	"github.com/google/uuid"

	"github.com/iota-uz/portal/modules/core/domain/entities/profile"
	"github.com/iota-uz/portal/modules/logging/domain/entities/logrecord"
	"github.com/iota-uz/portal/pkg/backend"
)

const (
	DefaultAvatarBucket  = "avatars"
	DefaultMaxAvatarSize = 5 << 20
)

var (
	ErrNoFile                = errors.New("You must select an image to upload.")
	ErrUnsupportedAvatarType = errors.New("Only PNG, JPEG, GIF and WebP images are allowed.")
	ErrAvatarTooLarge        = errors.New("The image is too large.")
	ErrNoAvatar              = errors.New("no avatar uploaded")
)

var avatarTypes = []string{"image/png", "image/jpeg", "image/gif", "image/webp"}

type AvatarService struct {
	storage  backend.Storage
	profiles *ProfileService
	logger   ActionLogger
	bucket   string
	maxSize  int64
}

func NewAvatarService(storage backend.Storage, profiles *ProfileService, logger ActionLogger, bucket string, maxSize int64) *AvatarService {
	if bucket == "" {
		bucket = DefaultAvatarBucket
	}
	if maxSize <= 0 {
		maxSize = DefaultMaxAvatarSize
	}
	if logger == nil {
		logger = nopActionLogger{}
	}
	return &AvatarService{
		storage:  storage,
		profiles: profiles,
		logger:   logger,
		bucket:   bucket,
		maxSize:  maxSize,
	}
}

func detectAvatar(data []byte) (*mimetype.MIME, error) {
	mt := mimetype.Detect(data)
	for _, allowed := range avatarTypes {
		if mt.Is(allowed) {
			return mt, nil
		}
	}
	return nil, ErrUnsupportedAvatarType
}

// Upload stores the image under a fresh name and points the profile at it.
// The returned path is relative to the avatar bucket.
func (s *AvatarService) Upload(ctx context.Context, userID string, file io.Reader) (string, error) {
	if file == nil {
		return "", ErrNoFile
	}
	data, err := io.ReadAll(io.LimitReader(file, s.maxSize+1))
	if err != nil {
		return "", errors.Wrap(err, "read avatar")
	}
	if len(data) == 0 {
		return "", ErrNoFile
	}
	if int64(len(data)) > s.maxSize {
		return "", ErrAvatarTooLarge
	}
	mt, err := detectAvatar(data)
	if err != nil {
		return "", err
	}

	path := fmt.Sprintf("%s-%s%s", userID, uuid.NewString(), mt.Extension())
	if err := s.storage.Upload(ctx, s.bucket, path, bytes.NewReader(data), mt.String()); err != nil {
		s.logger.Error(ctx, "Error uploading avatar", logrecord.Metadata{
			"userId": userID,
			"error":  err.Error(),
		})
		return "", errors.Wrap(err, "upload avatar")
	}
	if _, err := s.profiles.SetAvatar(ctx, userID, path); err != nil {
		// The stored blob stays behind; its path is logged so it can be cleaned up.
		s.logger.Error(ctx, "Error saving avatar to profile", logrecord.Metadata{
			"userId": userID,
			"path":   path,
			"bucket": s.bucket,
			"error":  err.Error(),
		})
		return "", err
	}
	return path, nil
}

func (s *AvatarService) Download(ctx context.Context, userID string) (*backend.Object, error) {
	p, err := s.profiles.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.download(ctx, p)
}

func (s *AvatarService) download(ctx context.Context, p *profile.Profile) (*backend.Object, error) {
	if p.AvatarURL == "" {
		return nil, ErrNoAvatar
	}
	obj, err := s.storage.Download(ctx, s.bucket, p.AvatarURL)
	if errors.Is(err, backend.ErrNotFound) {
		return nil, ErrNoAvatar
	}
	if err != nil {
		return nil, errors.Wrap(err, "download avatar")
	}
	return obj, nil
}
