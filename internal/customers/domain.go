package customers

import "time"

// Customer represents a client organisation or contact.
type Customer struct {
	ID        int64
	Name      string
	Email     string
	Phone     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// CustomerInput carries validated form input for create and update.
type CustomerInput struct {
	Name  string `validate:"required,min=2"`
	Email string `validate:"omitempty,email"`
	Phone string `validate:"omitempty,min=5"`
}
