package projects

import (
	"context"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Service wraps project business rules.
type Service struct {
	repo     RepositoryPort
	validate *validator.Validate
}

// NewService constructs a Service.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo, validate: validator.New()}
}

// List returns all projects.
func (s *Service) List(ctx context.Context) ([]Project, error) {
	return s.repo.List(ctx)
}

// Get fetches a project.
func (s *Service) Get(ctx context.Context, id int64) (Project, error) {
	return s.repo.Get(ctx, id)
}

// Create validates and inserts a project. New projects without an explicit
// status start as planned.
func (s *Service) Create(ctx context.Context, input ProjectInput) (Project, map[string]string, error) {
	input = normalize(input)
	if errs := s.fieldErrors(input); len(errs) > 0 {
		return Project{}, errs, nil
	}
	p, err := s.repo.Create(ctx, input)
	return p, nil, err
}

// Update validates and rewrites a project.
func (s *Service) Update(ctx context.Context, id int64, input ProjectInput) (Project, map[string]string, error) {
	input = normalize(input)
	if errs := s.fieldErrors(input); len(errs) > 0 {
		return Project{}, errs, nil
	}
	p, err := s.repo.Update(ctx, id, input)
	return p, nil, err
}

// CountByStatus exposes project counts for dashboard statistics.
func (s *Service) CountByStatus(ctx context.Context) (map[Status]int64, error) {
	return s.repo.CountByStatus(ctx)
}

func normalize(input ProjectInput) ProjectInput {
	input.Name = strings.TrimSpace(input.Name)
	input.Description = strings.TrimSpace(input.Description)
	if input.Status == "" {
		input.Status = StatusPlanned
	}
	return input
}

func (s *Service) fieldErrors(input ProjectInput) map[string]string {
	errs := make(map[string]string)
	if err := s.validate.Struct(input); err != nil {
		for _, fieldErr := range err.(validator.ValidationErrors) {
			switch fieldErr.Field() {
			case "Name":
				errs["name"] = "Project name is required."
			case "CustomerID":
				errs["customer"] = "Select a customer."
			}
		}
	}
	if !input.Status.Valid() {
		errs["status"] = "Unknown project status."
	}
	if len(errs) == 0 {
		return nil
	}
	return errs
}
