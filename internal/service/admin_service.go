package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/maintenance-service/internal/domain"
	"github.com/spec-kit/maintenance-service/internal/events"
	"github.com/spec-kit/maintenance-service/internal/policy"
	"github.com/spec-kit/maintenance-service/internal/repository"
	apperrors "github.com/spec-kit/maintenance-service/pkg/util"
)

// AdminService covers operator-facing user management and reporting.
type AdminService struct {
	users      repository.UserRepository
	requests   repository.RequestRepository
	dispatcher events.Dispatcher
}

// AdminDependencies bundles repositories for the admin service.
type AdminDependencies struct {
	UserRepo    repository.UserRepository
	RequestRepo repository.RequestRepository
	Dispatcher  events.Dispatcher
}

// NewAdminService constructs the service.
func NewAdminService(deps AdminDependencies) *AdminService {
	return &AdminService{
		users:      deps.UserRepo,
		requests:   deps.RequestRepo,
		dispatcher: deps.Dispatcher,
	}
}

// ListUsers returns all accounts for the admin console.
func (s *AdminService) ListUsers(ctx context.Context, actor *domain.User) ([]domain.User, error) {
	if err := policy.Authorize(actor, policy.OpListUsers, policy.Target{}); err != nil {
		return nil, err
	}
	result, err := s.users.List(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return result, nil
}

// ChangeRole updates a user's tier. super_admin targets and the actor's own
// account are protected by policy; promotion to super_admin only happens via
// the startup bootstrap, never through this path.
func (s *AdminService) ChangeRole(ctx context.Context, actor *domain.User, targetID string, newRole domain.UserRole) (*domain.User, error) {
	if !domain.ValidRole(newRole) {
		return nil, apperrors.NewValidationError("invalid role", map[string]any{"role": string(newRole)})
	}
	if !domain.AssignableRole(newRole) {
		return nil, apperrors.NewForbidden(apperrors.ReasonProtectedRole, "super admin role cannot be assigned")
	}

	target, err := s.users.GetByID(ctx, targetID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("user", map[string]any{"id": targetID})
		}
		return nil, apperrors.MapError(err)
	}

	if err := policy.Authorize(actor, policy.OpChangeRole, policy.UserTarget(target)); err != nil {
		return nil, err
	}

	oldRole := target.Role
	if err := s.users.UpdateRole(ctx, targetID, newRole); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("user", map[string]any{"id": targetID})
		}
		return nil, apperrors.MapError(err)
	}
	target.Role = newRole

	if s.dispatcher != nil {
		_ = s.dispatcher.Publish(ctx, events.Event{
			ID:        uuid.NewString(),
			Type:      events.EventUserRoleChanged,
			ActorID:   &actor.ID,
			Timestamp: time.Now(),
			Payload: events.UserRoleChangedPayload{
				TargetID: targetID,
				OldRole:  oldRole,
				NewRole:  newRole,
			},
		})
	}
	return target, nil
}

// Stats aggregates request counts by status, category and priority.
func (s *AdminService) Stats(ctx context.Context, actor *domain.User) (*repository.StatusCounts, error) {
	if err := policy.Authorize(actor, policy.OpViewStats, policy.Target{}); err != nil {
		return nil, err
	}
	counts, err := s.requests.Counts(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return counts, nil
}
