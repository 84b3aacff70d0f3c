package task

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"log/slog"

	"github.com/google/uuid"

	"github.com/taskhive/api/internal/domain"
	"github.com/taskhive/api/internal/repository"
)

var (
	// ErrMissingDescription rejects summarization of a task without text.
	ErrMissingDescription = errors.New("task must have a description to generate a summary")
	// ErrSummarizeFailed wraps upstream gateway failures; the stored task
	// is left untouched when it occurs.
	ErrSummarizeFailed = errors.New("failed to generate summary")
)

const (
	defaultPage  = 1
	defaultLimit = 10
	maxLimit     = 100
)

// Summarizer produces a one-sentence summary of free-form text.
type Summarizer interface {
	Summarize(ctx context.Context, text string) (string, error)
}

// Service orchestrates owner-scoped task CRUD and summarization.
type Service struct {
	tasks      repository.TaskRepository
	summarizer Summarizer
	logger     *slog.Logger
}

// New constructs a Service.
func New(tasks repository.TaskRepository, summarizer Summarizer, logger *slog.Logger) Service {
	return Service{tasks: tasks, summarizer: summarizer, logger: logger}
}

// CreateInput holds attributes for a new task.
type CreateInput struct {
	Title       string
	Description string
	DueDate     time.Time
	Priority    domain.Priority
}

// UpdateInput carries a partial mutation; nil fields keep their stored value.
type UpdateInput struct {
	Title       *string
	Description *string
	DueDate     *time.Time
	Priority    *domain.Priority
}

// ListFilter narrows and pages a task listing. Priority and DueDate
// accept "all" or empty for no filtering.
type ListFilter struct {
	Priority string
	DueDate  string
	Search   string
	Page     int
	Limit    int
}

// Page is one slice of a filtered listing plus pagination metadata.
type Page struct {
	Tasks []domain.Task
	Page  int
	Limit int
	Total int
}

// SummaryResult pairs a task with its freshly generated summary.
type SummaryResult struct {
	TaskID  string
	Summary string
}

// Create validates input and persists a new task for ownerID. Priority
// defaults to medium; the summary starts absent.
func (s Service) Create(ctx context.Context, ownerID string, input CreateInput) (*domain.Task, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, fmt.Errorf("%w: title is required", domain.ErrValidation)
	}
	if input.DueDate.IsZero() {
		return nil, fmt.Errorf("%w: due date is required", domain.ErrValidation)
	}
	priority := input.Priority
	if priority == "" {
		priority = domain.PriorityMedium
	}
	if !priority.Valid() {
		return nil, fmt.Errorf("%w: priority must be low, medium or high", domain.ErrValidation)
	}

	now := time.Now().UTC()
	task := &domain.Task{
		ID:          uuid.NewString(),
		UserID:      ownerID,
		Title:       title,
		Description: strings.TrimSpace(input.Description),
		DueDate:     input.DueDate,
		Priority:    priority,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.tasks.CreateTask(ctx, task); err != nil {
		return nil, err
	}
	s.logger.Info("task created", "task_id", task.ID, "user_id", ownerID)
	return task, nil
}

// List returns the owner's tasks matching filter, sorted by ascending
// due date and paginated.
func (s Service) List(ctx context.Context, ownerID string, filter ListFilter) (*Page, error) {
	query := repository.TaskQuery{Search: strings.TrimSpace(filter.Search)}

	switch filter.Priority {
	case "", windowAll:
	default:
		priority := domain.Priority(filter.Priority)
		if !priority.Valid() {
			return nil, fmt.Errorf("%w: unknown priority filter %q", domain.ErrValidation, filter.Priority)
		}
		query.Priority = priority
	}

	from, to, err := dueWindow(filter.DueDate, time.Now())
	if err != nil {
		return nil, err
	}
	query.DueFrom, query.DueTo = from, to

	page := filter.Page
	if page == 0 {
		page = defaultPage
	}
	if page < 1 {
		return nil, fmt.Errorf("%w: page must be positive", domain.ErrValidation)
	}
	limit := filter.Limit
	if limit == 0 {
		limit = defaultLimit
	}
	if limit < 1 || limit > maxLimit {
		return nil, fmt.Errorf("%w: limit must be between 1 and %d", domain.ErrValidation, maxLimit)
	}
	query.Offset = (page - 1) * limit
	query.Limit = limit

	tasks, total, err := s.tasks.ListTasks(ctx, ownerID, query)
	if err != nil {
		return nil, err
	}
	return &Page{Tasks: tasks, Page: page, Limit: limit, Total: total}, nil
}

// Get fetches a single task. A missing id yields repository.ErrNotFound;
// an id owned by someone else yields domain.ErrForbidden before any
// content is returned.
func (s Service) Get(ctx context.Context, ownerID, taskID string) (*domain.Task, error) {
	task, err := s.tasks.GetTaskByID(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if task.UserID != ownerID {
		return nil, domain.ErrForbidden
	}
	return task, nil
}

// Update applies a partial mutation. The owner reference is immutable;
// the write itself is conditional on the owner so a concurrent delete
// cannot race the check.
func (s Service) Update(ctx context.Context, ownerID, taskID string, input UpdateInput) (*domain.Task, error) {
	current, err := s.Get(ctx, ownerID, taskID)
	if err != nil {
		return nil, err
	}

	merged := repository.TaskUpdate{
		Title:       current.Title,
		Description: current.Description,
		DueDate:     current.DueDate,
		Priority:    current.Priority,
	}
	if input.Title != nil {
		merged.Title = strings.TrimSpace(*input.Title)
	}
	if input.Description != nil {
		merged.Description = strings.TrimSpace(*input.Description)
	}
	if input.DueDate != nil {
		merged.DueDate = *input.DueDate
	}
	if input.Priority != nil {
		merged.Priority = *input.Priority
	}

	if merged.Title == "" {
		return nil, fmt.Errorf("%w: title is required", domain.ErrValidation)
	}
	if merged.DueDate.IsZero() {
		return nil, fmt.Errorf("%w: due date is required", domain.ErrValidation)
	}
	if !merged.Priority.Valid() {
		return nil, fmt.Errorf("%w: priority must be low, medium or high", domain.ErrValidation)
	}

	updated, err := s.tasks.UpdateTask(ctx, taskID, ownerID, merged)
	if err != nil {
		return nil, err
	}
	s.logger.Info("task updated", "task_id", taskID, "user_id", ownerID)
	return updated, nil
}

// Delete removes the owner's task.
func (s Service) Delete(ctx context.Context, ownerID, taskID string) error {
	if _, err := s.Get(ctx, ownerID, taskID); err != nil {
		return err
	}
	if err := s.tasks.DeleteTask(ctx, taskID, ownerID); err != nil {
		return err
	}
	s.logger.Info("task deleted", "task_id", taskID, "user_id", ownerID)
	return nil
}

// Summarize asks the gateway for a one-sentence summary of the task's
// description and persists it. Gateway failures leave the stored task
// unchanged; each success overwrites the previous summary.
func (s Service) Summarize(ctx context.Context, ownerID, taskID string) (*SummaryResult, error) {
	task, err := s.Get(ctx, ownerID, taskID)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(task.Description) == "" {
		return nil, ErrMissingDescription
	}
	summary, err := s.summarizer.Summarize(ctx, task.Description)
	if err != nil {
		s.logger.Warn("summarization failed", "task_id", taskID, "error", err)
		return nil, fmt.Errorf("%w: %v", ErrSummarizeFailed, err)
	}
	if _, err := s.tasks.SetTaskSummary(ctx, taskID, ownerID, summary); err != nil {
		return nil, err
	}
	s.logger.Info("task summarized", "task_id", taskID, "user_id", ownerID)
	return &SummaryResult{TaskID: taskID, Summary: summary}, nil
}
