package domain

import "time"

// Priority classifies task urgency.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Valid reports whether p is one of the known priority levels.
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

// Task represents a single to-do item owned by exactly one user.
// Description and Summary use the empty string for "absent".
type Task struct {
	ID          string
	UserID      string
	Title       string
	Description string
	DueDate     time.Time
	Priority    Priority
	Summary     string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
