package tasks

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubRepo struct {
	created []TaskInput
}

func (s *stubRepo) List(context.Context) ([]Task, error)     { return nil, nil }
func (s *stubRepo) Get(context.Context, int64) (Task, error) { return Task{}, nil }
func (s *stubRepo) CountOpen(context.Context) (int64, error) { return 0, nil }

func (s *stubRepo) Create(_ context.Context, input TaskInput) (Task, error) {
	s.created = append(s.created, input)
	return Task{ID: int64(len(s.created)), Title: input.Title, Status: input.Status}, nil
}

func (s *stubRepo) Update(_ context.Context, id int64, input TaskInput) (Task, error) {
	return Task{ID: id, Title: input.Title, Status: input.Status}, nil
}

func TestCreateTaskDefaultsToTodo(t *testing.T) {
	repo := &stubRepo{}
	svc := NewService(repo)

	task, errs, err := svc.Create(context.Background(), TaskInput{Title: "Write proposal", ProjectID: 1})
	require.NoError(t, err)
	require.Empty(t, errs)
	assert.Equal(t, StatusTodo, task.Status)
}

func TestCreateTaskRequiresProject(t *testing.T) {
	repo := &stubRepo{}
	svc := NewService(repo)

	_, errs, err := svc.Create(context.Background(), TaskInput{Title: "Write proposal"})
	require.NoError(t, err)
	assert.Contains(t, errs, "project")
	assert.Empty(t, repo.created)
}

func TestCreateTaskRejectsUnknownStatus(t *testing.T) {
	svc := NewService(&stubRepo{})

	_, errs, err := svc.Create(context.Background(), TaskInput{Title: "Write proposal", ProjectID: 1, Status: "blocked"})
	require.NoError(t, err)
	assert.Contains(t, errs, "status")
}
