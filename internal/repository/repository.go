package repository

import (
	"context"
	"time"

	"github.com/taskhive/api/internal/domain"
)

// UserRepository persists accounts.
type UserRepository interface {
	CreateUser(ctx context.Context, user *domain.User) error
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)
	GetUserByID(ctx context.Context, id string) (*domain.User, error)
}

// TaskQuery narrows and pages a task listing. A zero Priority or Search
// means no filter; DueFrom/DueTo bound the due date as a half-open
// [DueFrom, DueTo) range, either side optional.
type TaskQuery struct {
	Priority domain.Priority
	DueFrom  *time.Time
	DueTo    *time.Time
	Search   string
	Offset   int
	Limit    int
}

// TaskUpdate carries the merged field values for a task mutation.
type TaskUpdate struct {
	Title       string
	Description string
	DueDate     time.Time
	Priority    domain.Priority
}

// TaskRepository persists tasks. Every mutation is conditional on the
// owning user so an ownership check and the write happen as one
// statement against the store.
type TaskRepository interface {
	CreateTask(ctx context.Context, task *domain.Task) error
	GetTaskByID(ctx context.Context, id string) (*domain.Task, error)
	ListTasks(ctx context.Context, userID string, q TaskQuery) ([]domain.Task, int, error)
	UpdateTask(ctx context.Context, id, userID string, update TaskUpdate) (*domain.Task, error)
	DeleteTask(ctx context.Context, id, userID string) error
	SetTaskSummary(ctx context.Context, id, userID, summary string) (*domain.Task, error)
}
