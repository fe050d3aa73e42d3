package projects

import "time"

// Status enumerates the lifecycle of a project.
type Status string

const (
	StatusPlanned Status = "planned"
	StatusActive  Status = "active"
	StatusOnHold  Status = "on_hold"
	StatusDone    Status = "done"
)

// Statuses lists all valid project statuses in display order.
func Statuses() []Status {
	return []Status{StatusPlanned, StatusActive, StatusOnHold, StatusDone}
}

// Valid reports whether the status is one of the known values.
func (s Status) Valid() bool {
	switch s {
	case StatusPlanned, StatusActive, StatusOnHold, StatusDone:
		return true
	}
	return false
}

// Project represents a unit of client work.
type Project struct {
	ID           int64
	Name         string
	Description  string
	CustomerID   int64
	CustomerName string
	Status       Status
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// ProjectInput carries validated form input for create and update.
type ProjectInput struct {
	Name        string `validate:"required,min=2"`
	Description string
	CustomerID  int64 `validate:"required,gt=0"`
	Status      Status
}
