package tasks

import "time"

// Status enumerates the lifecycle of a task.
type Status string

const (
	StatusTodo       Status = "todo"
	StatusInProgress Status = "in_progress"
	StatusDone       Status = "done"
)

// Statuses lists all valid task statuses in display order.
func Statuses() []Status {
	return []Status{StatusTodo, StatusInProgress, StatusDone}
}

// Valid reports whether the status is one of the known values.
func (s Status) Valid() bool {
	switch s {
	case StatusTodo, StatusInProgress, StatusDone:
		return true
	}
	return false
}

// Task represents a unit of work inside a project. A zero AssigneeID means
// unassigned; a zero DueAt means no due date.
type Task struct {
	ID           int64
	Title        string
	ProjectID    int64
	ProjectName  string
	AssigneeID   int64
	AssigneeName string
	Status       Status
	DueAt        time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// TaskInput carries validated form input for create and update.
type TaskInput struct {
	Title      string `validate:"required,min=2"`
	ProjectID  int64  `validate:"required,gt=0"`
	AssigneeID int64
	Status     Status
	DueAt      time.Time
}
