package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"go-tasklist/internal/model"
	"go-tasklist/internal/service"
)

type memoryUsers struct {
	users  map[int64]model.User
	nextID int64
}

func newMemoryUsers() *memoryUsers {
	return &memoryUsers{users: map[int64]model.User{}, nextID: 1}
}

func (m *memoryUsers) FindByID(_ context.Context, id int64) (model.User, error) {
	user, ok := m.users[id]
	if !ok {
		return model.User{}, model.ErrUserNotFound
	}
	return user, nil
}

func (m *memoryUsers) FindByUsername(_ context.Context, username string) (model.User, error) {
	for _, user := range m.users {
		if user.Username == username {
			return user, nil
		}
	}
	return model.User{}, model.ErrUserNotFound
}

func (m *memoryUsers) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	_, err := m.FindByUsername(ctx, username)
	return err == nil, nil
}

func (m *memoryUsers) Create(_ context.Context, u model.User) (int64, error) {
	id := m.nextID
	m.nextID++
	u.ID = id
	m.users[id] = u
	return id, nil
}

func (m *memoryUsers) Update(_ context.Context, u model.User) error {
	if _, ok := m.users[u.ID]; !ok {
		return model.ErrUserNotFound
	}
	m.users[u.ID] = u
	return nil
}

func (m *memoryUsers) Delete(_ context.Context, id int64) error {
	if _, ok := m.users[id]; !ok {
		return model.ErrUserNotFound
	}
	delete(m.users, id)
	return nil
}

func (m *memoryUsers) FindTaskAuthor(context.Context, int64) (model.User, error) {
	return model.User{}, model.ErrUserNotFound
}

func (m *memoryUsers) seed(t *testing.T, username string, password string) model.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)

	user := model.User{
		Name:         "John Doe",
		Username:     username,
		PasswordHash: string(hash),
		Roles:        []model.Role{model.RoleUser},
	}
	id, err := m.Create(context.Background(), user)
	require.NoError(t, err)
	user.ID = id
	m.users[id] = user
	return user
}

func newAuthHandler(store *memoryUsers) *AuthHandler {
	tokens := service.NewTokenService("test-secret")
	auth := service.NewAuthService(tokens, store, time.Hour, 720*time.Hour)
	users := service.NewUserService(store, nil)
	return NewAuthHandler(auth, users)
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) model.APIResponse {
	t.Helper()
	var resp model.APIResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return resp
}

func TestAuthHandlerLogin(t *testing.T) {
	t.Parallel()

	t.Run("valid credentials return a token pair", func(t *testing.T) {
		store := newMemoryUsers()
		store.seed(t, "johndoe@gmail.com", "12345")
		h := newAuthHandler(store)

		body := `{"username":"johndoe@gmail.com","password":"12345"}`
		req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(body))
		rec := httptest.NewRecorder()

		h.Login(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		resp := decodeResponse(t, rec)
		require.True(t, resp.Success)

		data, ok := resp.Data.(map[string]any)
		require.True(t, ok)
		require.Equal(t, "johndoe@gmail.com", data["username"])
		require.NotEmpty(t, data["accessToken"])
		require.NotEmpty(t, data["refreshToken"])
	})

	t.Run("wrong password is a 401", func(t *testing.T) {
		store := newMemoryUsers()
		store.seed(t, "johndoe@gmail.com", "12345")
		h := newAuthHandler(store)

		body := `{"username":"johndoe@gmail.com","password":"wrong"}`
		req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(body))
		rec := httptest.NewRecorder()

		h.Login(rec, req)

		require.Equal(t, http.StatusUnauthorized, rec.Code)
		resp := decodeResponse(t, rec)
		require.False(t, resp.Success)
		require.Equal(t, "UNAUTHORIZED", resp.Error.Code)
	})

	t.Run("malformed JSON is a 400", func(t *testing.T) {
		h := newAuthHandler(newMemoryUsers())

		req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader("{not json"))
		rec := httptest.NewRecorder()

		h.Login(rec, req)

		require.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestAuthHandlerRegister(t *testing.T) {
	t.Parallel()

	t.Run("registration returns the created user without secrets", func(t *testing.T) {
		store := newMemoryUsers()
		h := newAuthHandler(store)

		body := `{
			"name": "John Doe",
			"username": "johndoe@gmail.com",
			"password": "12345",
			"passwordConfirmation": "12345"
		}`
		req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/register", strings.NewReader(body))
		rec := httptest.NewRecorder()

		h.Register(rec, req)

		require.Equal(t, http.StatusCreated, rec.Code)
		resp := decodeResponse(t, rec)
		require.True(t, resp.Success)

		data, ok := resp.Data.(map[string]any)
		require.True(t, ok)
		require.Equal(t, "johndoe@gmail.com", data["username"])
		require.NotContains(t, rec.Body.String(), "password")
	})

	t.Run("duplicate username is a 409", func(t *testing.T) {
		store := newMemoryUsers()
		store.seed(t, "johndoe@gmail.com", "12345")
		h := newAuthHandler(store)

		body := `{
			"name": "John Doe",
			"username": "johndoe@gmail.com",
			"password": "12345",
			"passwordConfirmation": "12345"
		}`
		req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/register", strings.NewReader(body))
		rec := httptest.NewRecorder()

		h.Register(rec, req)

		require.Equal(t, http.StatusConflict, rec.Code)
	})
}

func TestAuthHandlerRefresh(t *testing.T) {
	t.Parallel()

	t.Run("a bare token body rotates the pair", func(t *testing.T) {
		store := newMemoryUsers()
		user := store.seed(t, "johndoe@gmail.com", "12345")
		h := newAuthHandler(store)

		tokens := service.NewTokenService("test-secret")
		auth := service.NewAuthService(tokens, store, time.Hour, 720*time.Hour)
		refresh, err := auth.IssueRefreshToken(user)
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/refresh", strings.NewReader(refresh))
		rec := httptest.NewRecorder()

		h.Refresh(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		resp := decodeResponse(t, rec)
		data, ok := resp.Data.(map[string]any)
		require.True(t, ok)
		require.NotEmpty(t, data["accessToken"])
		require.NotEmpty(t, data["refreshToken"])
	})

	t.Run("a JSON string body is accepted too", func(t *testing.T) {
		store := newMemoryUsers()
		user := store.seed(t, "johndoe@gmail.com", "12345")
		h := newAuthHandler(store)

		tokens := service.NewTokenService("test-secret")
		auth := service.NewAuthService(tokens, store, time.Hour, 720*time.Hour)
		refresh, err := auth.IssueRefreshToken(user)
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/refresh", strings.NewReader(`"`+refresh+`"`))
		rec := httptest.NewRecorder()

		h.Refresh(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("empty body is a 400", func(t *testing.T) {
		h := newAuthHandler(newMemoryUsers())

		req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/refresh", strings.NewReader("  "))
		rec := httptest.NewRecorder()

		h.Refresh(rec, req)

		require.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("garbage token is a 403", func(t *testing.T) {
		h := newAuthHandler(newMemoryUsers())

		req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/refresh", strings.NewReader("garbage"))
		rec := httptest.NewRecorder()

		h.Refresh(rec, req)

		require.Equal(t, http.StatusForbidden, rec.Code)
		resp := decodeResponse(t, rec)
		require.Equal(t, "FORBIDDEN", resp.Error.Code)
	})
}
