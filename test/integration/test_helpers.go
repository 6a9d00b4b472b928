//go:build integration

package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"go-tasklist/internal/config"
	"go-tasklist/internal/handler"
	"go-tasklist/internal/middleware"
	"go-tasklist/internal/model"
	"go-tasklist/internal/router"
	"go-tasklist/internal/service"
)

// memoryStore backs the whole service layer for integration tests, replacing
// the Postgres repositories with maps.
type memoryStore struct {
	mu         sync.Mutex
	users      map[int64]model.User
	tasks      map[int64]model.Task
	taskOwners map[int64]int64
	nextUserID int64
	nextTaskID int64
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		users:      map[int64]model.User{},
		tasks:      map[int64]model.Task{},
		taskOwners: map[int64]int64{},
		nextUserID: 1,
		nextTaskID: 1,
	}
}

func (s *memoryStore) FindByID(_ context.Context, id int64) (model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[id]
	if !ok {
		return model.User{}, model.ErrUserNotFound
	}
	return user, nil
}

func (s *memoryStore) FindByUsername(_ context.Context, username string) (model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, user := range s.users {
		if user.Username == username {
			return user, nil
		}
	}
	return model.User{}, model.ErrUserNotFound
}

func (s *memoryStore) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	_, err := s.FindByUsername(ctx, username)
	return err == nil, nil
}

func (s *memoryStore) Create(_ context.Context, user model.User) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextUserID
	s.nextUserID++
	user.ID = id
	s.users[id] = user
	return id, nil
}

func (s *memoryStore) Update(_ context.Context, user model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[user.ID]; !ok {
		return model.ErrUserNotFound
	}
	s.users[user.ID] = user
	return nil
}

func (s *memoryStore) Delete(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[id]; !ok {
		return model.ErrUserNotFound
	}
	delete(s.users, id)
	return nil
}

func (s *memoryStore) FindTaskAuthor(_ context.Context, taskID int64) (model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ownerID, ok := s.taskOwners[taskID]
	if !ok {
		return model.User{}, model.ErrUserNotFound
	}
	user, ok := s.users[ownerID]
	if !ok {
		return model.User{}, model.ErrUserNotFound
	}
	return user, nil
}

func (s *memoryStore) IsTaskOwner(_ context.Context, userID int64, taskID int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.taskOwners[taskID] == userID, nil
}

type memoryTasks struct {
	store *memoryStore
}

func (t memoryTasks) FindByID(_ context.Context, id int64) (model.Task, error) {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()

	task, ok := t.store.tasks[id]
	if !ok {
		return model.Task{}, model.ErrTaskNotFound
	}
	return task, nil
}

func (t memoryTasks) FindAllByUserID(_ context.Context, userID int64) ([]model.Task, error) {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()

	out := []model.Task{}
	for id, task := range t.store.tasks {
		if t.store.taskOwners[id] == userID {
			out = append(out, task)
		}
	}
	return out, nil
}

func (t memoryTasks) Create(_ context.Context, task model.Task, userID int64) (int64, error) {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()

	id := t.store.nextTaskID
	t.store.nextTaskID++
	task.ID = id
	t.store.tasks[id] = task
	t.store.taskOwners[id] = userID
	return id, nil
}

func (t memoryTasks) Update(_ context.Context, task model.Task) error {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()

	if _, ok := t.store.tasks[task.ID]; !ok {
		return model.ErrTaskNotFound
	}
	t.store.tasks[task.ID] = task
	return nil
}

func (t memoryTasks) Delete(_ context.Context, id int64) error {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()

	if _, ok := t.store.tasks[id]; !ok {
		return model.ErrTaskNotFound
	}
	delete(t.store.tasks, id)
	delete(t.store.taskOwners, id)
	return nil
}

func (t memoryTasks) AddImage(_ context.Context, taskID int64, image string) error {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()

	task, ok := t.store.tasks[taskID]
	if !ok {
		return model.ErrTaskNotFound
	}
	task.Images = append(task.Images, image)
	t.store.tasks[taskID] = task
	return nil
}

func (t memoryTasks) FindAllSoon(_ context.Context, start time.Time, end time.Time) ([]model.Task, error) {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()

	out := []model.Task{}
	for _, task := range t.store.tasks {
		if task.ExpirationDate == nil {
			continue
		}
		if !task.ExpirationDate.Before(start) && task.ExpirationDate.Before(end) {
			out = append(out, task)
		}
	}
	return out, nil
}

func newServer(t *testing.T) (*httptest.Server, *memoryStore) {
	t.Helper()

	store := newMemoryStore()

	cfg := &config.Config{
		ServerPort:       "8080",
		RequestTimeout:   30 * time.Second,
		JWTSecret:        "test-secret",
		JWTAccessTTL:     time.Hour,
		JWTRefreshTTL:    720 * time.Hour,
		CORSOrigins:      []string{"*"},
		RateLimitRPM:     0,
		AuthRateLimitRPM: 0,
	}

	tokens := service.NewTokenService(cfg.JWTSecret)
	auth := service.NewAuthService(tokens, store, cfg.JWTAccessTTL, cfg.JWTRefreshTTL)
	access := service.NewAccessService(store)
	users := service.NewUserService(store, nil)
	tasks := service.NewTaskService(memoryTasks{store: store}, nil)

	authMiddleware := middleware.NewAuthMiddleware(auth)
	handlers := router.Handlers{
		Auth: handler.NewAuthHandler(auth, users),
		User: handler.NewUserHandler(users, tasks, access),
		Task: handler.NewTaskHandler(tasks, access),
	}

	server := httptest.NewServer(router.New(cfg, authMiddleware, handlers))
	t.Cleanup(server.Close)

	return server, store
}

func doJSONRequest(t *testing.T, method string, url string, payload any, accessToken string) *http.Response {
	t.Helper()

	var body *bytes.Buffer
	if payload != nil {
		raw, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewBuffer(raw)
	} else {
		body = &bytes.Buffer{}
	}

	req, err := http.NewRequest(method, url, body)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+accessToken)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })

	return resp
}

func decodeEnvelope(t *testing.T, resp *http.Response, data any) {
	t.Helper()

	var envelope struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
		Error   *model.APIError `json:"error"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&envelope))
	require.True(t, envelope.Success, "error: %+v", envelope.Error)
	if data != nil {
		require.NoError(t, json.Unmarshal(envelope.Data, data))
	}
}
