package customers

import (
	"context"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Service wraps customer business rules.
type Service struct {
	repo     RepositoryPort
	validate *validator.Validate
}

// NewService constructs a Service.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo, validate: validator.New()}
}

// List returns all customers.
func (s *Service) List(ctx context.Context) ([]Customer, error) {
	return s.repo.List(ctx)
}

// Get fetches a customer.
func (s *Service) Get(ctx context.Context, id int64) (Customer, error) {
	return s.repo.Get(ctx, id)
}

// Create validates and inserts a customer.
func (s *Service) Create(ctx context.Context, input CustomerInput) (Customer, map[string]string, error) {
	input = normalize(input)
	if errs := s.fieldErrors(input); len(errs) > 0 {
		return Customer{}, errs, nil
	}
	c, err := s.repo.Create(ctx, input)
	return c, nil, err
}

// Update validates and rewrites a customer.
func (s *Service) Update(ctx context.Context, id int64, input CustomerInput) (Customer, map[string]string, error) {
	input = normalize(input)
	if errs := s.fieldErrors(input); len(errs) > 0 {
		return Customer{}, errs, nil
	}
	c, err := s.repo.Update(ctx, id, input)
	return c, nil, err
}

func normalize(input CustomerInput) CustomerInput {
	input.Name = strings.TrimSpace(input.Name)
	input.Email = strings.TrimSpace(input.Email)
	input.Phone = strings.TrimSpace(input.Phone)
	return input
}

func (s *Service) fieldErrors(input CustomerInput) map[string]string {
	err := s.validate.Struct(input)
	if err == nil {
		return nil
	}
	errs := make(map[string]string)
	for _, fieldErr := range err.(validator.ValidationErrors) {
		switch fieldErr.Field() {
		case "Name":
			errs["name"] = "Customer name is required."
		case "Email":
			errs["email"] = "Enter a valid email address."
		case "Phone":
			errs["phone"] = "Enter a valid phone number."
		}
	}
	return errs
}
