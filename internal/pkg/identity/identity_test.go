package identity

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/armonyco/armonyco/app/repository/memrepo"
)

const (
	createdID = "9b2f6f7e-1111-4c8e-9a51-000000000001"
	missingID = "9b2f6f7e-1111-4c8e-9a51-0000000000ff"
)

func newSupabase(srv *httptest.Server) *SupabaseClient {
	return NewSupabaseClient(srv.URL, "service-key", time.Second)
}

func TestSupabaseCreateUser(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/auth/v1/admin/users", r.URL.Path)
		assert.Equal(t, "service-key", r.Header.Get("apikey"))
		assert.Equal(t, "Bearer service-key", r.Header.Get("Authorization"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "a@b.com", body["email"])
		assert.Equal(t, "abcdef", body["password"])
		assert.Equal(t, true, body["email_confirm"])

		_, _ = w.Write([]byte(`{"id":"` + createdID + `","email":"a@b.com"}`))
	}))
	defer srv.Close()

	u, err := newSupabase(srv).CreateUser(context.Background(), " A@B.com ", "abcdef")
	require.NoError(t, err)
	assert.Equal(t, createdID, u.ID)
	assert.Equal(t, "a@b.com", u.Email)
}

func TestSupabaseCreateUserExists(t *testing.T) {
	bodies := []string{
		`{"code":422,"error_code":"email_exists","msg":"A user with this email address has already been registered"}`,
		`{"code":422,"msg":"A user with this email address has already been registered"}`,
	}
	for _, b := range bodies {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnprocessableEntity)
			_, _ = w.Write([]byte(b))
		}))

		_, err := newSupabase(srv).CreateUser(context.Background(), "a@b.com", "abcdef")
		assert.ErrorIs(t, err, ErrUserExists)
		srv.Close()
	}
}

func TestSupabaseCreateUserServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"msg":"database error"}`))
	}))
	defer srv.Close()

	_, err := newSupabase(srv).CreateUser(context.Background(), "a@b.com", "abcdef")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrUserExists)
	assert.Contains(t, err.Error(), "database error")
}

func TestSupabaseDeleteUser(t *testing.T) {
	var paths []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		paths = append(paths, r.URL.Path)
		if strings.HasSuffix(r.URL.Path, missingID) {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"msg":"User not found"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := newSupabase(srv)
	require.NoError(t, c.DeleteUser(context.Background(), createdID))
	require.NoError(t, c.DeleteUser(context.Background(), missingID))
	assert.Equal(t, []string{"/auth/v1/admin/users/" + createdID, "/auth/v1/admin/users/" + missingID}, paths)
	assert.Error(t, c.DeleteUser(context.Background(), ""))
}

func TestSupabaseGetUser(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		if strings.HasSuffix(r.URL.Path, missingID) {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"msg":"User not found"}`))
			return
		}
		_, _ = w.Write([]byte(`{"id":"` + createdID + `","email":"a@b.com"}`))
	}))
	defer srv.Close()

	c := newSupabase(srv)
	u, err := c.GetUser(context.Background(), createdID)
	require.NoError(t, err)
	assert.Equal(t, "a@b.com", u.Email)

	_, err = c.GetUser(context.Background(), missingID)
	assert.ErrorIs(t, err, ErrUserNotFound)

	_, err = c.GetUser(context.Background(), "not-a-uuid")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestSupabaseRequiresConfig(t *testing.T) {
	c := NewSupabaseClient("", "", time.Second)
	assert.Empty(t, c.BaseURL)
	_, err := c.CreateUser(context.Background(), "a@b.com", "abcdef")
	assert.Error(t, err)
}

func TestLocalProvider(t *testing.T) {
	store := memrepo.New()
	p := NewLocalProvider(store.Repositories().User)
	ctx := context.Background()

	u, err := p.CreateUser(ctx, "A@b.com", "abcdef")
	require.NoError(t, err)
	assert.NotEmpty(t, u.ID)
	assert.Equal(t, "a@b.com", u.Email)

	_, err = p.CreateUser(ctx, "a@b.com", "other-pass")
	assert.ErrorIs(t, err, ErrUserExists)

	found, err := p.GetUser(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "a@b.com", found.Email)

	require.NoError(t, p.DeleteUser(ctx, u.ID))
	_, err = p.GetUser(ctx, u.ID)
	assert.ErrorIs(t, err, ErrUserNotFound)

	_, err = p.CreateUser(ctx, "not-an-email", "abcdef")
	assert.Error(t, err)
}
