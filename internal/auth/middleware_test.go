package auth_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alexedwards/argon2id"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/require"

	"github.com/atlasparts/backend-parts/internal/auth"
	"github.com/atlasparts/backend-parts/internal/common"
	"github.com/atlasparts/backend-parts/internal/db"
)

type singleAdmin struct {
	admin db.Admin
}

func (s singleAdmin) GetAdminByEmail(_ context.Context, email string) (db.Admin, error) {
	if email == s.admin.Email {
		return s.admin, nil
	}
	return db.Admin{}, pgx.ErrNoRows
}

func (s singleAdmin) GetAdminByID(_ context.Context, id string) (db.Admin, error) {
	if id == s.admin.ID {
		return s.admin, nil
	}
	return db.Admin{}, pgx.ErrNoRows
}

func TestRequireAdmin(t *testing.T) {
	hash, err := argon2id.CreateHash("pw000000", argon2id.DefaultParams)
	require.NoError(t, err)
	svc, err := auth.NewService(auth.Config{
		Queries:        singleAdmin{admin: db.Admin{ID: "a1", Email: "owner@example.com", PasswordHash: hash}},
		Secret:         "test-secret",
		AccessTokenTTL: time.Hour,
	})
	require.NoError(t, err)

	var seenAdminID string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenAdminID, _ = common.AdminID(r.Context())
		w.WriteHeader(http.StatusOK)
	})
	guarded := auth.Middleware{Service: svc}.RequireAdmin(next)

	t.Run("missing token", func(t *testing.T) {
		rec := httptest.NewRecorder()
		guarded.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin/parts", nil))
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("garbage token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/admin/parts", nil)
		req.Header.Set("Authorization", "Bearer not.a.token")
		rec := httptest.NewRecorder()
		guarded.ServeHTTP(rec, req)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("valid token", func(t *testing.T) {
		result, err := svc.Login(context.Background(), "owner@example.com", "pw000000")
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/admin/parts", nil)
		req.Header.Set("Authorization", "Bearer "+result.AccessToken)
		rec := httptest.NewRecorder()
		guarded.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
		require.Equal(t, "a1", seenAdminID)
	})
}
