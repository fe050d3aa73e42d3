package employees

import (
	"context"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Service wraps employee business rules.
type Service struct {
	repo     RepositoryPort
	validate *validator.Validate
}

// NewService constructs a Service.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo, validate: validator.New()}
}

// List returns all employees.
func (s *Service) List(ctx context.Context) ([]Employee, error) {
	return s.repo.List(ctx)
}

// Get fetches an employee.
func (s *Service) Get(ctx context.Context, id int64) (Employee, error) {
	return s.repo.Get(ctx, id)
}

// Create validates and inserts an employee.
func (s *Service) Create(ctx context.Context, input EmployeeInput) (Employee, map[string]string, error) {
	input = normalize(input)
	if errs := s.fieldErrors(input); len(errs) > 0 {
		return Employee{}, errs, nil
	}
	e, err := s.repo.Create(ctx, input)
	return e, nil, err
}

// Update validates and rewrites an employee.
func (s *Service) Update(ctx context.Context, id int64, input EmployeeInput) (Employee, map[string]string, error) {
	input = normalize(input)
	if errs := s.fieldErrors(input); len(errs) > 0 {
		return Employee{}, errs, nil
	}
	e, err := s.repo.Update(ctx, id, input)
	return e, nil, err
}

func normalize(input EmployeeInput) EmployeeInput {
	input.Name = strings.TrimSpace(input.Name)
	input.Email = strings.TrimSpace(input.Email)
	input.Position = strings.TrimSpace(input.Position)
	return input
}

func (s *Service) fieldErrors(input EmployeeInput) map[string]string {
	err := s.validate.Struct(input)
	if err == nil {
		return nil
	}
	errs := make(map[string]string)
	for _, fieldErr := range err.(validator.ValidationErrors) {
		switch fieldErr.Field() {
		case "Name":
			errs["name"] = "Employee name is required."
		case "Email":
			errs["email"] = "Enter a valid email address."
		case "Position":
			errs["position"] = "Position is too short."
		}
	}
	return errs
}
