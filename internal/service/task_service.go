package service

import (
	"context"
	"io"
	"strings"
	"time"

	"go-tasklist/internal/model"
	"go-tasklist/pkg/apierror"
)

type taskStore interface {
	FindByID(ctx context.Context, id int64) (model.Task, error)
	FindAllByUserID(ctx context.Context, userID int64) ([]model.Task, error)
	Create(ctx context.Context, task model.Task, userID int64) (int64, error)
	Update(ctx context.Context, task model.Task) error
	Delete(ctx context.Context, id int64) error
	AddImage(ctx context.Context, taskID int64, image string) error
	FindAllSoon(ctx context.Context, start time.Time, end time.Time) ([]model.Task, error)
}

type imageUploader interface {
	Upload(ctx context.Context, filename string, r io.Reader) (string, error)
}

type TaskService struct {
	tasks  taskStore
	images imageUploader
}

// NewTaskService accepts a nil uploader; image upload then reports that the
// feature is disabled.
func NewTaskService(tasks taskStore, images imageUploader) *TaskService {
	return &TaskService{tasks: tasks, images: images}
}

func (s *TaskService) GetByID(ctx context.Context, id int64) (model.Task, error) {
	return s.tasks.FindByID(ctx, id)
}

func (s *TaskService) GetAllByUserID(ctx context.Context, userID int64) ([]model.Task, error) {
	return s.tasks.FindAllByUserID(ctx, userID)
}

func (s *TaskService) Create(ctx context.Context, req model.TaskRequest, userID int64) (model.Task, error) {
	task, err := taskFromRequest(req)
	if err != nil {
		return model.Task{}, err
	}

	now := time.Now().UTC()
	task.CreatedAt = now
	task.UpdatedAt = now

	id, err := s.tasks.Create(ctx, task, userID)
	if err != nil {
		return model.Task{}, err
	}
	task.ID = id

	return task, nil
}

func (s *TaskService) Update(ctx context.Context, id int64, req model.TaskRequest) (model.Task, error) {
	existing, err := s.tasks.FindByID(ctx, id)
	if err != nil {
		return model.Task{}, err
	}

	updated, err := taskFromRequest(req)
	if err != nil {
		return model.Task{}, err
	}

	updated.ID = existing.ID
	updated.Images = existing.Images
	updated.CreatedAt = existing.CreatedAt
	updated.UpdatedAt = time.Now().UTC()

	if err := s.tasks.Update(ctx, updated); err != nil {
		return model.Task{}, err
	}

	return updated, nil
}

func (s *TaskService) Delete(ctx context.Context, id int64) error {
	return s.tasks.Delete(ctx, id)
}

// UploadImage stores the file in object storage and links the stored name
// to the task.
func (s *TaskService) UploadImage(ctx context.Context, taskID int64, filename string, r io.Reader) (string, error) {
	if s.images == nil {
		return "", apierror.New("NOT_IMPLEMENTED", "image upload is not configured", "", 501)
	}

	if _, err := s.tasks.FindByID(ctx, taskID); err != nil {
		return "", err
	}

	name, err := s.images.Upload(ctx, filename, r)
	if err != nil {
		return "", err
	}

	if err := s.tasks.AddImage(ctx, taskID, name); err != nil {
		return "", err
	}

	return name, nil
}

// FindAllSoon returns tasks expiring within the given horizon from now.
func (s *TaskService) FindAllSoon(ctx context.Context, horizon time.Duration) ([]model.Task, error) {
	now := time.Now().UTC()
	return s.tasks.FindAllSoon(ctx, now, now.Add(horizon))
}

func taskFromRequest(req model.TaskRequest) (model.Task, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return model.Task{}, apierror.BadRequest("title is required", "")
	}

	status := req.Status
	if status == "" {
		status = model.StatusTodo
	}
	if !status.Valid() {
		return model.Task{}, apierror.BadRequest("invalid status", string(status))
	}

	return model.Task{
		Title:          title,
		Description:    strings.TrimSpace(req.Description),
		Status:         status,
		ExpirationDate: req.ExpirationDate,
	}, nil
}
