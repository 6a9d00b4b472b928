package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"go-tasklist/internal/model"
)

type reminderMailer interface {
	SendReminderEmail(user model.User, task model.Task) error
}

// ReminderService periodically scans for tasks expiring within the horizon
// and emails each task's author once. Sent task ids are remembered in
// memory, so a restart may re-send reminders for tasks still inside the
// window; that is acceptable for this job.
type ReminderService struct {
	tasks   *TaskService
	users   *UserService
	mail    reminderMailer
	horizon time.Duration

	mu   sync.Mutex
	sent map[int64]time.Time
}

func NewReminderService(tasks *TaskService, users *UserService, mail reminderMailer, horizon time.Duration) *ReminderService {
	return &ReminderService{
		tasks:   tasks,
		users:   users,
		mail:    mail,
		horizon: horizon,
		sent:    map[int64]time.Time{},
	}
}

// Start blocks until ctx is cancelled. Run it in its own goroutine.
func (s *ReminderService) Start(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	slog.Info("reminder loop started", "interval", interval, "horizon", s.horizon)
	for {
		select {
		case <-ctx.Done():
			slog.Info("reminder loop stopped")
			return
		case <-ticker.C:
			s.run(ctx)
		}
	}
}

func (s *ReminderService) run(ctx context.Context) {
	tasks, err := s.tasks.FindAllSoon(ctx, s.horizon)
	if err != nil {
		slog.Error("reminder scan failed", "error", err)
		return
	}

	for _, task := range tasks {
		if s.alreadySent(task.ID) {
			continue
		}

		author, err := s.users.TaskAuthor(ctx, task.ID)
		if err != nil {
			slog.Warn("reminder author lookup failed", "task_id", task.ID, "error", err)
			continue
		}

		if err := s.mail.SendReminderEmail(author, task); err != nil {
			slog.Warn("reminder email failed", "task_id", task.ID, "user_id", author.ID, "error", err)
			continue
		}

		s.markSent(task.ID)
		slog.Info("reminder sent", "task_id", task.ID, "user_id", author.ID)
	}

	s.prune()
}

func (s *ReminderService) alreadySent(taskID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.sent[taskID]
	return ok
}

func (s *ReminderService) markSent(taskID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent[taskID] = time.Now()
}

// prune drops entries old enough that the task has left the reminder
// window, keeping the map bounded.
func (s *ReminderService) prune() {
	cutoff := time.Now().Add(-2 * s.horizon)

	s.mu.Lock()
	defer s.mu.Unlock()
	for id, at := range s.sent {
		if at.Before(cutoff) {
			delete(s.sent, id)
		}
	}
}
