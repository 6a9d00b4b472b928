package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"go-tasklist/internal/model"
)

type TaskRepository struct {
	pool *pgxpool.Pool
}

func NewTaskRepository(pool *pgxpool.Pool) *TaskRepository {
	return &TaskRepository{pool: pool}
}

const taskSelect = `
	SELECT t.id, t.title, t.description, t.status, t.expiration_date, t.created_at, t.updated_at,
	       COALESCE(array_agg(i.image ORDER BY i.image) FILTER (WHERE i.image IS NOT NULL), '{}')
	FROM tasks t
	LEFT JOIN tasks_images i ON i.task_id = t.id`

func (r *TaskRepository) FindByID(ctx context.Context, id int64) (model.Task, error) {
	row := r.pool.QueryRow(ctx, taskSelect+` WHERE t.id = $1 GROUP BY t.id`, id)
	task, err := scanTask(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Task{}, model.ErrTaskNotFound
	}
	if err != nil {
		return model.Task{}, fmt.Errorf("find task by id: %w", err)
	}
	return task, nil
}

func (r *TaskRepository) FindAllByUserID(ctx context.Context, userID int64) ([]model.Task, error) {
	rows, err := r.pool.Query(ctx, taskSelect+`
		JOIN users_tasks ut ON ut.task_id = t.id
		WHERE ut.user_id = $1
		GROUP BY t.id
		ORDER BY t.id`, userID)
	if err != nil {
		return nil, fmt.Errorf("list tasks by user: %w", err)
	}
	defer rows.Close()

	return collectTasks(rows)
}

// Create inserts the task and assigns it to its author in one transaction,
// so a task row never exists without an owner.
func (r *TaskRepository) Create(ctx context.Context, task model.Task, userID int64) (int64, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin create task: %w", err)
	}
	defer tx.Rollback(ctx)

	var id int64
	err = tx.QueryRow(ctx,
		`INSERT INTO tasks (title, description, status, expiration_date, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id`,
		task.Title, task.Description, task.Status, task.ExpirationDate, task.CreatedAt, task.UpdatedAt).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("create task: %w", err)
	}

	if _, err := tx.Exec(ctx,
		`INSERT INTO users_tasks (user_id, task_id) VALUES ($1, $2)`,
		userID, id); err != nil {
		return 0, fmt.Errorf("assign task: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit create task: %w", err)
	}
	return id, nil
}

func (r *TaskRepository) Update(ctx context.Context, task model.Task) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE tasks SET title = $2, description = $3, status = $4, expiration_date = $5, updated_at = $6
		 WHERE id = $1`,
		task.ID, task.Title, task.Description, task.Status, task.ExpirationDate, task.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update task: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrTaskNotFound
	}
	return nil
}

func (r *TaskRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM tasks WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrTaskNotFound
	}
	return nil
}

func (r *TaskRepository) AddImage(ctx context.Context, taskID int64, image string) error {
	tag, err := r.pool.Exec(ctx, `
		INSERT INTO tasks_images (task_id, image)
		SELECT id, $2 FROM tasks WHERE id = $1`, taskID, image)
	if err != nil {
		return fmt.Errorf("add task image: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrTaskNotFound
	}
	return nil
}

// FindAllSoon returns tasks whose expiration falls inside [start, end).
// Used by the reminder loop.
func (r *TaskRepository) FindAllSoon(ctx context.Context, start time.Time, end time.Time) ([]model.Task, error) {
	rows, err := r.pool.Query(ctx, taskSelect+`
		WHERE t.expiration_date IS NOT NULL
		  AND t.expiration_date >= $1
		  AND t.expiration_date < $2
		GROUP BY t.id
		ORDER BY t.expiration_date`, start, end)
	if err != nil {
		return nil, fmt.Errorf("list soon tasks: %w", err)
	}
	defer rows.Close()

	return collectTasks(rows)
}

func scanTask(row pgx.Row) (model.Task, error) {
	var t model.Task
	var images []string
	err := row.Scan(&t.ID, &t.Title, &t.Description, &t.Status, &t.ExpirationDate,
		&t.CreatedAt, &t.UpdatedAt, &images)
	if err != nil {
		return model.Task{}, err
	}
	t.Images = images
	return t, nil
}

func collectTasks(rows pgx.Rows) ([]model.Task, error) {
	tasks := make([]model.Task, 0)
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		tasks = append(tasks, task)
	}
	return tasks, rows.Err()
}
