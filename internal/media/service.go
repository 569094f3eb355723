package media

import (
	"context"
	"errors"
	"io"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/atlasparts/backend-parts/internal/common"
	"github.com/atlasparts/backend-parts/internal/db"
)

const keyPrefix = "parts/"

// DefaultPresignTTL limits how long a photo URL stays valid.
const DefaultPresignTTL = 15 * time.Minute

var extByContentType = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
}

// Querier is the subset of db.Queries the media service needs.
type Querier interface {
	GetPartByID(ctx context.Context, id string) (db.Part, error)
	AppendPartPhoto(ctx context.Context, id, key string) (int64, error)
	RemovePartPhoto(ctx context.Context, id, key string) (int64, error)
}

// Invalidator drops stale catalog cache entries after photo changes.
type Invalidator interface {
	InvalidateListing(ctx context.Context, partIDs ...string)
}

// Photo is the response for a stored or presigned photo.
type Photo struct {
	Key string `json:"key"`
	URL string `json:"url"`
}

// Service stores part photos in an object bucket and keeps the part's
// photo key list in sync.
type Service struct {
	Q           Querier
	Store       ObjectStore
	Invalidator Invalidator
	PresignTTL  time.Duration
}

func (s *Service) ttl() time.Duration {
	if s.PresignTTL > 0 {
		return s.PresignTTL
	}
	return DefaultPresignTTL
}

// UploadPartPhoto stores the photo and attaches its key to the part.
func (s *Service) UploadPartPhoto(ctx context.Context, partID, contentType string, body io.Reader) (Photo, error) {
	if s.Q == nil || s.Store == nil {
		return Photo{}, errors.New("media: service not configured")
	}
	ext, ok := extByContentType[strings.ToLower(strings.TrimSpace(contentType))]
	if !ok {
		return Photo{}, common.BadRequest("file", "photo must be JPEG, PNG, or WebP", nil)
	}
	if _, err := s.Q.GetPartByID(ctx, partID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Photo{}, common.NotFound("part")
		}
		return Photo{}, err
	}

	key := keyPrefix + partID + "/" + uuid.NewString() + ext
	if err := s.Store.Put(ctx, key, contentType, body); err != nil {
		return Photo{}, err
	}
	if _, err := s.Q.AppendPartPhoto(ctx, partID, key); err != nil {
		return Photo{}, err
	}
	s.invalidate(ctx, partID)

	url, err := s.Store.PresignGet(ctx, key, s.ttl())
	if err != nil {
		return Photo{}, err
	}
	return Photo{Key: key, URL: url}, nil
}

// PresignPhoto returns a temporary URL for a stored photo key.
func (s *Service) PresignPhoto(ctx context.Context, key string) (Photo, error) {
	if s.Store == nil {
		return Photo{}, errors.New("media: service not configured")
	}
	key = path.Clean(strings.TrimSpace(key))
	if !strings.HasPrefix(key, keyPrefix) || strings.Contains(key, "..") {
		return Photo{}, common.BadRequest("key", "key must reference a part photo", nil)
	}
	url, err := s.Store.PresignGet(ctx, key, s.ttl())
	if err != nil {
		return Photo{}, err
	}
	return Photo{Key: key, URL: url}, nil
}

// DeletePartPhoto removes a photo from the bucket and the part.
func (s *Service) DeletePartPhoto(ctx context.Context, partID, key string) error {
	if s.Q == nil || s.Store == nil {
		return errors.New("media: service not configured")
	}
	part, err := s.Q.GetPartByID(ctx, partID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return common.NotFound("part")
		}
		return err
	}
	if !hasKey(part.PhotoKeys, key) {
		return common.NotFound("photo")
	}

	if err := s.Store.Delete(ctx, key); err != nil {
		return err
	}
	if _, err := s.Q.RemovePartPhoto(ctx, partID, key); err != nil {
		return err
	}
	s.invalidate(ctx, partID)
	return nil
}

func (s *Service) invalidate(ctx context.Context, partID string) {
	if s.Invalidator != nil {
		s.Invalidator.InvalidateListing(ctx, partID)
	}
}

func hasKey(keys []string, key string) bool {
	for _, k := range keys {
		if k == key {
			return true
		}
	}
	return false
}
