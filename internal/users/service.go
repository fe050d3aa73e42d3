package users

import (
	"context"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/atlas-hq/atlas-admin/internal/rbac"
)

// ListerPort provides the user rows the service decorates with roles.
type ListerPort interface {
	ListUsers(ctx context.Context) ([]User, error)
	GetUser(ctx context.Context, id int64) (User, error)
	UserRoleIDs(ctx context.Context) (map[int64][]int64, error)
}

// RoleNotifier enqueues role-change notification emails. jobs.Client
// implements it; a nil notifier disables notifications.
type RoleNotifier interface {
	EnqueueRoleChangeEmail(ctx context.Context, to, roleName, action string) (*asynq.TaskInfo, error)
}

// Service composes user listings with role membership from the role store.
type Service struct {
	logger   *slog.Logger
	repo     ListerPort
	store    *rbac.Store
	notifier RoleNotifier
}

// NewService constructs a Service.
func NewService(logger *slog.Logger, repo ListerPort, store *rbac.Store, notifier RoleNotifier) *Service {
	return &Service{logger: logger, repo: repo, store: store, notifier: notifier}
}

// ListUsers returns users with their assigned roles resolved.
func (s *Service) ListUsers(ctx context.Context) ([]User, error) {
	list, err := s.repo.ListUsers(ctx)
	if err != nil {
		return nil, err
	}
	membership, err := s.repo.UserRoleIDs(ctx)
	if err != nil {
		return nil, err
	}
	roles, err := s.store.ListRoles(ctx)
	if err != nil {
		return nil, err
	}
	byID := make(map[int64]rbac.Role, len(roles))
	for _, role := range roles {
		byID[role.ID] = role
	}
	for i := range list {
		for _, roleID := range membership[list[i].ID] {
			if role, ok := byID[roleID]; ok {
				list[i].Roles = append(list[i].Roles, role)
			}
		}
	}
	return list, nil
}

// AssignRole grants a role to a user and notifies them by email.
func (s *Service) AssignRole(ctx context.Context, userID, roleID int64) error {
	if err := s.store.AssignRole(ctx, userID, roleID); err != nil {
		return err
	}
	s.notifyRoleChange(ctx, userID, roleID, "granted to")
	return nil
}

// RemoveRole revokes a role from a user and notifies them by email.
func (s *Service) RemoveRole(ctx context.Context, userID, roleID int64) error {
	if err := s.store.RemoveRole(ctx, userID, roleID); err != nil {
		return err
	}
	s.notifyRoleChange(ctx, userID, roleID, "removed from")
	return nil
}

// Roles lists all assignable roles.
func (s *Service) Roles(ctx context.Context) ([]rbac.Role, error) {
	return s.store.ListRoles(ctx)
}

// notifyRoleChange enqueues the notification email. The grant itself has
// already committed, so failures here are logged and swallowed.
func (s *Service) notifyRoleChange(ctx context.Context, userID, roleID int64, action string) {
	if s.notifier == nil {
		return
	}
	user, err := s.repo.GetUser(ctx, userID)
	if err != nil {
		s.logger.Warn("role change notification skipped", slog.Int64("user_id", userID), slog.Any("error", err))
		return
	}
	role, err := s.store.GetRole(ctx, roleID)
	if err != nil {
		s.logger.Warn("role change notification skipped", slog.Int64("role_id", roleID), slog.Any("error", err))
		return
	}
	if _, err := s.notifier.EnqueueRoleChangeEmail(ctx, user.Email, role.Name, action); err != nil {
		s.logger.Warn("enqueue role change email", slog.String("to", user.Email), slog.Any("error", err))
	}
}
