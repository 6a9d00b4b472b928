package service

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"go-tasklist/internal/model"
	"go-tasklist/pkg/apierror"
)

const bcryptCost = 12

type userStore interface {
	FindByID(ctx context.Context, id int64) (model.User, error)
	FindByUsername(ctx context.Context, username string) (model.User, error)
	ExistsByUsername(ctx context.Context, username string) (bool, error)
	Create(ctx context.Context, u model.User) (int64, error)
	Update(ctx context.Context, u model.User) error
	Delete(ctx context.Context, id int64) error
	FindTaskAuthor(ctx context.Context, taskID int64) (model.User, error)
}

type registrationMailer interface {
	SendRegistrationEmail(user model.User) error
}

type UserService struct {
	users userStore
	mail  registrationMailer
}

// NewUserService accepts a nil mailer; registration then skips the welcome
// email entirely.
func NewUserService(users userStore, mail registrationMailer) *UserService {
	return &UserService{users: users, mail: mail}
}

func (s *UserService) GetByID(ctx context.Context, id int64) (model.User, error) {
	return s.users.FindByID(ctx, id)
}

func (s *UserService) GetByUsername(ctx context.Context, username string) (model.User, error) {
	return s.users.FindByUsername(ctx, username)
}

// Create registers a new user with the USER role. The welcome email is best
// effort: a mail failure is logged, never surfaced to the registering client.
func (s *UserService) Create(ctx context.Context, req model.RegisterRequest) (model.User, error) {
	name := strings.TrimSpace(req.Name)
	username := strings.TrimSpace(req.Username)

	if name == "" || username == "" || req.Password == "" {
		return model.User{}, apierror.BadRequest("name, username and password are required", "")
	}

	if req.Password != req.PasswordConfirmation {
		return model.User{}, apierror.BadRequest("password and password confirmation do not match", "")
	}

	exists, err := s.users.ExistsByUsername(ctx, username)
	if err != nil {
		return model.User{}, err
	}
	if exists {
		return model.User{}, apierror.Conflict("username already exists", username)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcryptCost)
	if err != nil {
		return model.User{}, err
	}

	now := time.Now().UTC()
	user := model.User{
		Name:         name,
		Username:     username,
		PasswordHash: string(hash),
		Roles:        []model.Role{model.RoleUser},
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	id, err := s.users.Create(ctx, user)
	if err != nil {
		return model.User{}, err
	}
	user.ID = id

	if s.mail != nil {
		if err := s.mail.SendRegistrationEmail(user); err != nil {
			slog.Warn("registration email failed", "user_id", user.ID, "error", err)
		}
	}

	return user, nil
}

// Update changes name, username and password. Roles are not touched here;
// they only change through explicit administration.
func (s *UserService) Update(ctx context.Context, id int64, req model.UpdateUserRequest) (model.User, error) {
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		return model.User{}, err
	}

	if name := strings.TrimSpace(req.Name); name != "" {
		user.Name = name
	}

	if username := strings.TrimSpace(req.Username); username != "" && !strings.EqualFold(username, user.Username) {
		exists, err := s.users.ExistsByUsername(ctx, username)
		if err != nil {
			return model.User{}, err
		}
		if exists {
			return model.User{}, apierror.Conflict("username already exists", username)
		}
		user.Username = username
	}

	if req.Password != "" {
		if req.Password != req.PasswordConfirmation {
			return model.User{}, apierror.BadRequest("password and password confirmation do not match", "")
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcryptCost)
		if err != nil {
			return model.User{}, err
		}
		user.PasswordHash = string(hash)
	}

	user.UpdatedAt = time.Now().UTC()
	if err := s.users.Update(ctx, user); err != nil {
		return model.User{}, err
	}

	return user, nil
}

func (s *UserService) Delete(ctx context.Context, id int64) error {
	return s.users.Delete(ctx, id)
}

// TaskAuthor returns the owner of a task, used by the reminder loop to know
// whom to mail.
func (s *UserService) TaskAuthor(ctx context.Context, taskID int64) (model.User, error) {
	return s.users.FindTaskAuthor(ctx, taskID)
}
