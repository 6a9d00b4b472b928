package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"go-tasklist/internal/model"
)

type UserRepository struct {
	pool *pgxpool.Pool
}

func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

const userSelect = `
	SELECT u.id, u.name, u.username, u.password_hash, u.created_at, u.updated_at,
	       COALESCE(array_agg(r.role ORDER BY r.role) FILTER (WHERE r.role IS NOT NULL), '{}')
	FROM users u
	LEFT JOIN users_roles r ON r.user_id = u.id`

func (r *UserRepository) FindByID(ctx context.Context, id int64) (model.User, error) {
	row := r.pool.QueryRow(ctx, userSelect+` WHERE u.id = $1 GROUP BY u.id`, id)
	return scanUser(row, "find user by id")
}

func (r *UserRepository) FindByUsername(ctx context.Context, username string) (model.User, error) {
	row := r.pool.QueryRow(ctx,
		userSelect+` WHERE lower(u.username) = lower($1) GROUP BY u.id`,
		strings.TrimSpace(username))
	return scanUser(row, "find user by username")
}

func (r *UserRepository) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM users WHERE lower(username) = lower($1))`,
		strings.TrimSpace(username)).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check username exists: %w", err)
	}
	return exists, nil
}

func (r *UserRepository) Create(ctx context.Context, u model.User) (int64, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin create user: %w", err)
	}
	defer tx.Rollback(ctx)

	var id int64
	err = tx.QueryRow(ctx,
		`INSERT INTO users (name, username, password_hash, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id`,
		u.Name, u.Username, u.PasswordHash, u.CreatedAt, u.UpdatedAt).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("create user: %w", err)
	}

	if _, err := tx.Exec(ctx,
		`INSERT INTO users_roles (user_id, role) SELECT $1, unnest($2::text[])`,
		id, roleNames(u.Roles)); err != nil {
		return 0, fmt.Errorf("assign roles: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit create user: %w", err)
	}
	return id, nil
}

func (r *UserRepository) Update(ctx context.Context, u model.User) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE users SET name = $2, username = $3, password_hash = $4, updated_at = $5
		 WHERE id = $1`,
		u.ID, u.Name, u.Username, u.PasswordHash, u.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrUserNotFound
	}
	return nil
}

func (r *UserRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrUserNotFound
	}
	return nil
}

func (r *UserRepository) IsTaskOwner(ctx context.Context, userID int64, taskID int64) (bool, error) {
	var owner bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM users_tasks WHERE user_id = $1 AND task_id = $2)`,
		userID, taskID).Scan(&owner)
	if err != nil {
		return false, fmt.Errorf("check task owner: %w", err)
	}
	return owner, nil
}

func (r *UserRepository) FindTaskAuthor(ctx context.Context, taskID int64) (model.User, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT u.id, u.name, u.username, u.password_hash, u.created_at, u.updated_at,
		       COALESCE(array_agg(r.role ORDER BY r.role) FILTER (WHERE r.role IS NOT NULL), '{}')
		FROM users_tasks ut
		JOIN users u ON ut.user_id = u.id
		LEFT JOIN users_roles r ON r.user_id = u.id
		WHERE ut.task_id = $1
		GROUP BY u.id`, taskID)
	return scanUser(row, "find task author")
}

func scanUser(row pgx.Row, op string) (model.User, error) {
	var u model.User
	var roles []string
	err := row.Scan(&u.ID, &u.Name, &u.Username, &u.PasswordHash, &u.CreatedAt, &u.UpdatedAt, &roles)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.User{}, model.ErrUserNotFound
	}
	if err != nil {
		return model.User{}, fmt.Errorf("%s: %w", op, err)
	}

	u.Roles = make([]model.Role, 0, len(roles))
	for _, role := range roles {
		u.Roles = append(u.Roles, model.Role(role))
	}
	return u, nil
}

func roleNames(roles []model.Role) []string {
	names := make([]string, 0, len(roles))
	for _, role := range roles {
		names = append(names, string(role))
	}
	return names
}
