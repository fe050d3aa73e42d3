package employees

import "time"

// Employee represents a staff member.
type Employee struct {
	ID        int64
	Name      string
	Email     string
	Position  string
	HiredAt   time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

// EmployeeInput carries validated form input for create and update.
type EmployeeInput struct {
	Name     string `validate:"required,min=2"`
	Email    string `validate:"required,email"`
	Position string `validate:"omitempty,min=2"`
}
