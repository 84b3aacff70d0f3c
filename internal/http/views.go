package httpx

import (
	"time"

	"github.com/taskhive/api/internal/domain"
	"github.com/taskhive/api/internal/service/task"
)

// JSON views keep the wire shape (including the _id key) decoupled from
// the domain structs. The password hash never appears here.

type userResponse struct {
	ID        string     `json:"_id"`
	Name      string     `json:"name"`
	Email     string     `json:"email"`
	CreatedAt *time.Time `json:"createdAt,omitempty"`
	Token     string     `json:"token,omitempty"`
}

type taskResponse struct {
	ID          string          `json:"_id"`
	Title       string          `json:"title"`
	Description string          `json:"description,omitempty"`
	DueDate     time.Time       `json:"dueDate"`
	Priority    domain.Priority `json:"priority"`
	UserID      string          `json:"userId"`
	Summary     string          `json:"summary,omitempty"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

type paginationResponse struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total"`
}

type taskPageResponse struct {
	Tasks      []taskResponse     `json:"tasks"`
	Pagination paginationResponse `json:"pagination"`
}

func taskView(t *domain.Task) taskResponse {
	return taskResponse{
		ID:          t.ID,
		Title:       t.Title,
		Description: t.Description,
		DueDate:     t.DueDate,
		Priority:    t.Priority,
		UserID:      t.UserID,
		Summary:     t.Summary,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}

func taskPageView(page *task.Page) taskPageResponse {
	items := make([]taskResponse, 0, len(page.Tasks))
	for i := range page.Tasks {
		items = append(items, taskView(&page.Tasks[i]))
	}
	return taskPageResponse{
		Tasks:      items,
		Pagination: paginationResponse{Page: page.Page, Limit: page.Limit, Total: page.Total},
	}
}
