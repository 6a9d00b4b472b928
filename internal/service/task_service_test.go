package service

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"go-tasklist/internal/model"
)

type fakeTaskStore struct {
	tasks     map[int64]model.Task
	nextID    int64
	images    map[int64][]string
	soonStart time.Time
	soonEnd   time.Time
}

func newFakeTaskStore() *fakeTaskStore {
	return &fakeTaskStore{tasks: map[int64]model.Task{}, nextID: 1, images: map[int64][]string{}}
}

func (f *fakeTaskStore) FindByID(_ context.Context, id int64) (model.Task, error) {
	task, ok := f.tasks[id]
	if !ok {
		return model.Task{}, model.ErrTaskNotFound
	}
	return task, nil
}

func (f *fakeTaskStore) FindAllByUserID(context.Context, int64) ([]model.Task, error) {
	out := make([]model.Task, 0, len(f.tasks))
	for _, task := range f.tasks {
		out = append(out, task)
	}
	return out, nil
}

func (f *fakeTaskStore) Create(_ context.Context, task model.Task, _ int64) (int64, error) {
	id := f.nextID
	f.nextID++
	task.ID = id
	f.tasks[id] = task
	return id, nil
}

func (f *fakeTaskStore) Update(_ context.Context, task model.Task) error {
	if _, ok := f.tasks[task.ID]; !ok {
		return model.ErrTaskNotFound
	}
	f.tasks[task.ID] = task
	return nil
}

func (f *fakeTaskStore) Delete(_ context.Context, id int64) error {
	if _, ok := f.tasks[id]; !ok {
		return model.ErrTaskNotFound
	}
	delete(f.tasks, id)
	return nil
}

func (f *fakeTaskStore) AddImage(_ context.Context, taskID int64, image string) error {
	if _, ok := f.tasks[taskID]; !ok {
		return model.ErrTaskNotFound
	}
	f.images[taskID] = append(f.images[taskID], image)
	return nil
}

func (f *fakeTaskStore) FindAllSoon(_ context.Context, start time.Time, end time.Time) ([]model.Task, error) {
	f.soonStart = start
	f.soonEnd = end
	return nil, nil
}

type fakeImageUploader struct {
	name  string
	calls int
}

func (f *fakeImageUploader) Upload(_ context.Context, _ string, r io.Reader) (string, error) {
	f.calls++
	_, _ = io.Copy(io.Discard, r)
	return f.name, nil
}

func TestTaskServiceCreate(t *testing.T) {
	t.Parallel()

	t.Run("status defaults to TODO", func(t *testing.T) {
		tasks := NewTaskService(newFakeTaskStore(), nil)

		task, err := tasks.Create(context.Background(), model.TaskRequest{Title: "write report"}, 1)
		require.NoError(t, err)
		require.Equal(t, model.StatusTodo, task.Status)
		require.NotZero(t, task.ID)
	})

	t.Run("explicit status is kept", func(t *testing.T) {
		tasks := NewTaskService(newFakeTaskStore(), nil)

		task, err := tasks.Create(context.Background(), model.TaskRequest{
			Title:  "write report",
			Status: model.StatusInProgress,
		}, 1)
		require.NoError(t, err)
		require.Equal(t, model.StatusInProgress, task.Status)
	})

	t.Run("unknown status is rejected", func(t *testing.T) {
		tasks := NewTaskService(newFakeTaskStore(), nil)

		_, err := tasks.Create(context.Background(), model.TaskRequest{Title: "x", Status: "WAITING"}, 1)
		requireAPIErrorCode(t, err, "BAD_REQUEST")
	})

	t.Run("title is required", func(t *testing.T) {
		tasks := NewTaskService(newFakeTaskStore(), nil)

		_, err := tasks.Create(context.Background(), model.TaskRequest{Title: "   "}, 1)
		requireAPIErrorCode(t, err, "BAD_REQUEST")
	})
}

func TestTaskServiceUpdate(t *testing.T) {
	t.Parallel()

	store := newFakeTaskStore()
	tasks := NewTaskService(store, nil)

	created, err := tasks.Create(context.Background(), model.TaskRequest{Title: "write report"}, 1)
	require.NoError(t, err)

	updated, err := tasks.Update(context.Background(), created.ID, model.TaskRequest{
		Title:  "write final report",
		Status: model.StatusDone,
	})
	require.NoError(t, err)
	require.Equal(t, created.ID, updated.ID)
	require.Equal(t, model.StatusDone, updated.Status)

	_, err = tasks.Update(context.Background(), 99, model.TaskRequest{Title: "x"})
	require.ErrorIs(t, err, model.ErrTaskNotFound)
}

func TestTaskServiceUploadImage(t *testing.T) {
	t.Parallel()

	t.Run("stored object name is linked to the task", func(t *testing.T) {
		store := newFakeTaskStore()
		uploader := &fakeImageUploader{name: "abc123.png"}
		tasks := NewTaskService(store, uploader)

		created, err := tasks.Create(context.Background(), model.TaskRequest{Title: "x"}, 1)
		require.NoError(t, err)

		name, err := tasks.UploadImage(context.Background(), created.ID, "photo.png", strings.NewReader("data"))
		require.NoError(t, err)
		require.Equal(t, "abc123.png", name)
		require.Equal(t, []string{"abc123.png"}, store.images[created.ID])
	})

	t.Run("unknown task fails before uploading", func(t *testing.T) {
		uploader := &fakeImageUploader{name: "abc123.png"}
		tasks := NewTaskService(newFakeTaskStore(), uploader)

		_, err := tasks.UploadImage(context.Background(), 99, "photo.png", strings.NewReader("data"))
		require.ErrorIs(t, err, model.ErrTaskNotFound)
		require.Zero(t, uploader.calls)
	})

	t.Run("upload is rejected when storage is not configured", func(t *testing.T) {
		store := newFakeTaskStore()
		tasks := NewTaskService(store, nil)

		created, err := tasks.Create(context.Background(), model.TaskRequest{Title: "x"}, 1)
		require.NoError(t, err)

		_, err = tasks.UploadImage(context.Background(), created.ID, "photo.png", strings.NewReader("data"))
		requireAPIErrorCode(t, err, "NOT_IMPLEMENTED")
	})
}

func TestTaskServiceFindAllSoon(t *testing.T) {
	t.Parallel()

	store := newFakeTaskStore()
	tasks := NewTaskService(store, nil)

	before := time.Now().UTC()
	_, err := tasks.FindAllSoon(context.Background(), time.Hour)
	require.NoError(t, err)
	after := time.Now().UTC()

	require.False(t, store.soonStart.Before(before))
	require.False(t, store.soonStart.After(after))
	require.Equal(t, time.Hour, store.soonEnd.Sub(store.soonStart))
}
