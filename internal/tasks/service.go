package tasks

import (
	"context"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Service wraps task business rules.
type Service struct {
	repo     RepositoryPort
	validate *validator.Validate
}

// NewService constructs a Service.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo, validate: validator.New()}
}

// List returns all tasks.
func (s *Service) List(ctx context.Context) ([]Task, error) {
	return s.repo.List(ctx)
}

// Get fetches a task.
func (s *Service) Get(ctx context.Context, id int64) (Task, error) {
	return s.repo.Get(ctx, id)
}

// Create validates and inserts a task. New tasks without an explicit status
// start as todo.
func (s *Service) Create(ctx context.Context, input TaskInput) (Task, map[string]string, error) {
	input = normalize(input)
	if errs := s.fieldErrors(input); len(errs) > 0 {
		return Task{}, errs, nil
	}
	task, err := s.repo.Create(ctx, input)
	return task, nil, err
}

// Update validates and rewrites a task.
func (s *Service) Update(ctx context.Context, id int64, input TaskInput) (Task, map[string]string, error) {
	input = normalize(input)
	if errs := s.fieldErrors(input); len(errs) > 0 {
		return Task{}, errs, nil
	}
	task, err := s.repo.Update(ctx, id, input)
	return task, nil, err
}

// CountOpen exposes the open task count for dashboard statistics.
func (s *Service) CountOpen(ctx context.Context) (int64, error) {
	return s.repo.CountOpen(ctx)
}

func normalize(input TaskInput) TaskInput {
	input.Title = strings.TrimSpace(input.Title)
	if input.Status == "" {
		input.Status = StatusTodo
	}
	return input
}

func (s *Service) fieldErrors(input TaskInput) map[string]string {
	errs := make(map[string]string)
	if err := s.validate.Struct(input); err != nil {
		for _, fieldErr := range err.(validator.ValidationErrors) {
			switch fieldErr.Field() {
			case "Title":
				errs["title"] = "Task title is required."
			case "ProjectID":
				errs["project"] = "Select a project."
			}
		}
	}
	if !input.Status.Valid() {
		errs["status"] = "Unknown task status."
	}
	if len(errs) == 0 {
		return nil
	}
	return errs
}
