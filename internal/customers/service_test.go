package customers

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubRepo struct {
	created []CustomerInput
}

func (s *stubRepo) List(context.Context) ([]Customer, error) { return nil, nil }
func (s *stubRepo) Get(context.Context, int64) (Customer, error) {
	return Customer{}, nil
}

func (s *stubRepo) Create(_ context.Context, input CustomerInput) (Customer, error) {
	s.created = append(s.created, input)
	return Customer{ID: int64(len(s.created)), Name: input.Name, Email: input.Email, Phone: input.Phone}, nil
}

func (s *stubRepo) Update(_ context.Context, id int64, input CustomerInput) (Customer, error) {
	return Customer{ID: id, Name: input.Name, Email: input.Email, Phone: input.Phone}, nil
}

func TestCreateCustomerTrimsAndValidates(t *testing.T) {
	repo := &stubRepo{}
	svc := NewService(repo)

	c, errs, err := svc.Create(context.Background(), CustomerInput{Name: "  Acme Corp  ", Email: " sales@acme.test "})
	require.NoError(t, err)
	require.Empty(t, errs)
	assert.Equal(t, "Acme Corp", c.Name)
	assert.Equal(t, "sales@acme.test", c.Email)
}

func TestCreateCustomerRequiresName(t *testing.T) {
	repo := &stubRepo{}
	svc := NewService(repo)

	_, errs, err := svc.Create(context.Background(), CustomerInput{Name: " "})
	require.NoError(t, err)
	assert.Contains(t, errs, "name")
	assert.Empty(t, repo.created)
}

func TestCreateCustomerRejectsBadEmail(t *testing.T) {
	svc := NewService(&stubRepo{})

	_, errs, err := svc.Create(context.Background(), CustomerInput{Name: "Acme", Email: "not-an-email"})
	require.NoError(t, err)
	assert.Contains(t, errs, "email")
}
