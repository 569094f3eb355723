package media

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/atlasparts/backend-parts/internal/common"
	"github.com/atlasparts/backend-parts/internal/db"
)

type stubStore struct {
	objects map[string]string
	deleted []string
}

func newStubStore() *stubStore {
	return &stubStore{objects: map[string]string{}}
}

func (s *stubStore) Put(_ context.Context, key, contentType string, body io.Reader) error {
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	s.objects[key] = contentType + ":" + string(data)
	return nil
}

func (s *stubStore) Delete(_ context.Context, key string) error {
	delete(s.objects, key)
	s.deleted = append(s.deleted, key)
	return nil
}

func (s *stubStore) PresignGet(_ context.Context, key string, _ time.Duration) (string, error) {
	return "https://bucket.example/" + key + "?sig=abc", nil
}

type stubQueries struct {
	parts map[string]db.Part
}

func (s *stubQueries) GetPartByID(_ context.Context, id string) (db.Part, error) {
	part, ok := s.parts[id]
	if !ok {
		return db.Part{}, pgx.ErrNoRows
	}
	return part, nil
}

func (s *stubQueries) AppendPartPhoto(_ context.Context, id, key string) (int64, error) {
	part, ok := s.parts[id]
	if !ok {
		return 0, nil
	}
	part.PhotoKeys = append(part.PhotoKeys, key)
	s.parts[id] = part
	return 1, nil
}

func (s *stubQueries) RemovePartPhoto(_ context.Context, id, key string) (int64, error) {
	part, ok := s.parts[id]
	if !ok {
		return 0, nil
	}
	var keep []string
	for _, k := range part.PhotoKeys {
		if k != key {
			keep = append(keep, k)
		}
	}
	part.PhotoKeys = keep
	s.parts[id] = part
	return 1, nil
}

type recordingInvalidator struct {
	ids []string
}

func (r *recordingInvalidator) InvalidateListing(_ context.Context, partIDs ...string) {
	r.ids = append(r.ids, partIDs...)
}

func TestUploadPartPhotoStoresAndAttachesKey(t *testing.T) {
	q := &stubQueries{parts: map[string]db.Part{"p1": {ID: "p1", Title: "Alternator"}}}
	store := newStubStore()
	inv := &recordingInvalidator{}
	svc := &Service{Q: q, Store: store, Invalidator: inv}

	photo, err := svc.UploadPartPhoto(context.Background(), "p1", "image/jpeg", strings.NewReader("jpegdata"))
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if !strings.HasPrefix(photo.Key, "parts/p1/") || !strings.HasSuffix(photo.Key, ".jpg") {
		t.Fatalf("unexpected key: %q", photo.Key)
	}
	if photo.URL == "" {
		t.Fatal("expected presigned URL")
	}
	if _, ok := store.objects[photo.Key]; !ok {
		t.Fatal("expected object stored")
	}
	if got := q.parts["p1"].PhotoKeys; len(got) != 1 || got[0] != photo.Key {
		t.Fatalf("expected key attached to part, got %v", got)
	}
	if len(inv.ids) != 1 || inv.ids[0] != "p1" {
		t.Fatalf("expected cache invalidation for p1, got %v", inv.ids)
	}
}

func TestUploadPartPhotoRejectsUnknownContentType(t *testing.T) {
	q := &stubQueries{parts: map[string]db.Part{"p1": {ID: "p1"}}}
	svc := &Service{Q: q, Store: newStubStore()}

	_, err := svc.UploadPartPhoto(context.Background(), "p1", "application/pdf", strings.NewReader("x"))
	var appErr *common.AppError
	if !errors.As(err, &appErr) || appErr.Code != "BAD_REQUEST" {
		t.Fatalf("expected BAD_REQUEST, got %v", err)
	}
}

func TestUploadPartPhotoMissingPart(t *testing.T) {
	svc := &Service{Q: &stubQueries{parts: map[string]db.Part{}}, Store: newStubStore()}

	_, err := svc.UploadPartPhoto(context.Background(), "nope", "image/png", strings.NewReader("x"))
	var appErr *common.AppError
	if !errors.As(err, &appErr) || appErr.Code != "NOT_FOUND" {
		t.Fatalf("expected NOT_FOUND, got %v", err)
	}
}

func TestPresignPhotoRejectsForeignKeys(t *testing.T) {
	svc := &Service{Store: newStubStore()}

	for _, key := range []string{"secrets/creds.txt", "../etc/passwd", ""} {
		_, err := svc.PresignPhoto(context.Background(), key)
		var appErr *common.AppError
		if !errors.As(err, &appErr) || appErr.Code != "BAD_REQUEST" {
			t.Fatalf("key %q: expected BAD_REQUEST, got %v", key, err)
		}
	}
}

func TestDeletePartPhotoRemovesKeyAndObject(t *testing.T) {
	key := "parts/p1/abc.jpg"
	q := &stubQueries{parts: map[string]db.Part{"p1": {ID: "p1", PhotoKeys: []string{key}}}}
	store := newStubStore()
	store.objects[key] = "image/jpeg:data"
	svc := &Service{Q: q, Store: store}

	if err := svc.DeletePartPhoto(context.Background(), "p1", key); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if len(store.deleted) != 1 || store.deleted[0] != key {
		t.Fatalf("expected object deleted, got %v", store.deleted)
	}
	if len(q.parts["p1"].PhotoKeys) != 0 {
		t.Fatalf("expected key detached, got %v", q.parts["p1"].PhotoKeys)
	}
}

func TestDeletePartPhotoUnknownKeyNotFound(t *testing.T) {
	q := &stubQueries{parts: map[string]db.Part{"p1": {ID: "p1"}}}
	svc := &Service{Q: q, Store: newStubStore()}

	err := svc.DeletePartPhoto(context.Background(), "p1", "parts/p1/ghost.jpg")
	var appErr *common.AppError
	if !errors.As(err, &appErr) || appErr.Code != "NOT_FOUND" {
		t.Fatalf("expected NOT_FOUND, got %v", err)
	}
}
