package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/taskhive/api/internal/domain"
	"github.com/taskhive/api/internal/repository"
)

const taskColumns = `id, user_id, title, description, due_date, priority, summary, created_at, updated_at`

// CreateTask inserts a task.
func (r *Repository) CreateTask(ctx context.Context, task *domain.Task) error {
	const query = `INSERT INTO tasks (id, user_id, title, description, due_date, priority, summary, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err := r.pool.Exec(ctx, query,
		task.ID, task.UserID, task.Title, task.Description, task.DueDate,
		task.Priority, task.Summary, task.CreatedAt, task.UpdatedAt)
	return err
}

// GetTaskByID fetches a task regardless of owner. Ownership is decided
// by the caller before any content leaves the service layer.
func (r *Repository) GetTaskByID(ctx context.Context, id string) (*domain.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE id = $1`
	return scanTask(r.pool.QueryRow(ctx, query, id))
}

// ListTasks returns the owner's tasks matching q sorted by ascending due
// date, plus the total match count for pagination.
func (r *Repository) ListTasks(ctx context.Context, userID string, q repository.TaskQuery) ([]domain.Task, int, error) {
	conditions := []string{"user_id = $1"}
	args := []any{userID}

	if q.Priority != "" {
		args = append(args, q.Priority)
		conditions = append(conditions, fmt.Sprintf("priority = $%d", len(args)))
	}
	if q.DueFrom != nil {
		args = append(args, *q.DueFrom)
		conditions = append(conditions, fmt.Sprintf("due_date >= $%d", len(args)))
	}
	if q.DueTo != nil {
		args = append(args, *q.DueTo)
		conditions = append(conditions, fmt.Sprintf("due_date < $%d", len(args)))
	}
	if q.Search != "" {
		args = append(args, "%"+escapeLike(q.Search)+"%")
		conditions = append(conditions, fmt.Sprintf(
			`(title ILIKE $%d ESCAPE '\' OR description ILIKE $%d ESCAPE '\')`, len(args), len(args)))
	}
	where := strings.Join(conditions, " AND ")

	var total int
	countQuery := `SELECT COUNT(1) FROM tasks WHERE ` + where
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, q.Limit, q.Offset)
	pageQuery := fmt.Sprintf(`SELECT %s FROM tasks WHERE %s ORDER BY due_date ASC, created_at ASC LIMIT $%d OFFSET $%d`,
		taskColumns, where, len(args)-1, len(args))
	rows, err := r.pool.Query(ctx, pageQuery, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	tasks := make([]domain.Task, 0)
	for rows.Next() {
		var t domain.Task
		if err := rows.Scan(&t.ID, &t.UserID, &t.Title, &t.Description, &t.DueDate, &t.Priority, &t.Summary, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, 0, err
		}
		tasks = append(tasks, t)
	}
	return tasks, total, rows.Err()
}

// UpdateTask overwrites mutable fields in one statement conditional on
// the owner, closing the ownership-check-then-mutate race.
func (r *Repository) UpdateTask(ctx context.Context, id, userID string, update repository.TaskUpdate) (*domain.Task, error) {
	query := `UPDATE tasks
		SET title = $3, description = $4, due_date = $5, priority = $6, updated_at = now()
		WHERE id = $1 AND user_id = $2
		RETURNING ` + taskColumns
	return scanTask(r.pool.QueryRow(ctx, query, id, userID,
		update.Title, update.Description, update.DueDate, update.Priority))
}

// DeleteTask removes the task if it belongs to userID.
func (r *Repository) DeleteTask(ctx context.Context, id, userID string) error {
	const query = `DELETE FROM tasks WHERE id = $1 AND user_id = $2`
	tag, err := r.pool.Exec(ctx, query, id, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// SetTaskSummary stores a generated summary, conditional on the owner.
func (r *Repository) SetTaskSummary(ctx context.Context, id, userID, summary string) (*domain.Task, error) {
	query := `UPDATE tasks SET summary = $3, updated_at = now()
		WHERE id = $1 AND user_id = $2
		RETURNING ` + taskColumns
	return scanTask(r.pool.QueryRow(ctx, query, id, userID, summary))
}

func scanTask(row pgx.Row) (*domain.Task, error) {
	var t domain.Task
	if err := row.Scan(&t.ID, &t.UserID, &t.Title, &t.Description, &t.DueDate, &t.Priority, &t.Summary, &t.CreatedAt, &t.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &t, nil
}

// escapeLike neutralises LIKE metacharacters in user-provided search text.
func escapeLike(s string) string {
	replacer := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return replacer.Replace(s)
}
