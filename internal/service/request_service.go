package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/maintenance-service/internal/domain"
	"github.com/spec-kit/maintenance-service/internal/events"
	"github.com/spec-kit/maintenance-service/internal/policy"
	"github.com/spec-kit/maintenance-service/internal/queue"
	"github.com/spec-kit/maintenance-service/internal/repository"
	apperrors "github.com/spec-kit/maintenance-service/pkg/util"
)

// ClassificationEnqueuer hands freshly created requests to the pipeline.
type ClassificationEnqueuer interface {
	Enqueue(ctx context.Context, job queue.Job) error
}

// RequestService coordinates the maintenance request lifecycle and the
// role-scoped query paths.
type RequestService struct {
	requests   repository.RequestRepository
	enqueuer   ClassificationEnqueuer
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// RequestDependencies bundles collaborators for the request service.
type RequestDependencies struct {
	RequestRepo repository.RequestRepository
	Enqueuer    ClassificationEnqueuer
	Dispatcher  events.Dispatcher
	Logger      *zap.Logger
}

// RequestCreateInput describes a submission payload.
type RequestCreateInput struct {
	Description string
	Location    *string
	ContactInfo *string
}

// NewRequestService constructs the service.
func NewRequestService(deps RequestDependencies) *RequestService {
	return &RequestService{
		requests:   deps.RequestRepo,
		enqueuer:   deps.Enqueuer,
		dispatcher: deps.Dispatcher,
		logger:     deps.Logger,
	}
}

// Create validates and stores a new request, then enqueues it for
// classification exactly once. The classifier runs on its own timeline:
// the created record returns immediately with category/priority pending.
func (s *RequestService) Create(ctx context.Context, actor *domain.User, input RequestCreateInput) (*domain.MaintenanceRequest, error) {
	if err := policy.Authorize(actor, policy.OpCreateRequest, policy.Target{}); err != nil {
		return nil, err
	}

	description := strings.TrimSpace(input.Description)
	if description == "" {
		return nil, apperrors.NewValidationError("description is required", nil)
	}

	req := &domain.MaintenanceRequest{
		Description: description,
		Location:    input.Location,
		ContactInfo: input.ContactInfo,
		Category:    domain.CategoryPending,
		Priority:    domain.PriorityPending,
		Status:      domain.RequestStatusPending,
	}
	if actor != nil {
		ownerID := actor.ID
		req.OwnerID = &ownerID
	}

	if err := s.requests.Create(ctx, req); err != nil {
		return nil, apperrors.MapError(err)
	}

	// A failed enqueue must not fail the accepted submission; the record
	// stays pending and the alert path surfaces it to operators.
	if err := s.enqueuer.Enqueue(ctx, queue.Job{RequestID: req.ID, Description: req.Description, Attempt: 1}); err != nil {
		s.logger.Error("failed to enqueue classification job",
			zap.String("request_id", req.ID), zap.Error(err))
	}

	s.publishEvent(ctx, events.Event{
		Type:      events.EventRequestCreated,
		RequestID: req.ID,
		ActorID:   req.OwnerID,
		Payload: events.RequestCreatedPayload{
			OwnerID:  req.OwnerID,
			Location: req.Location,
		},
	})
	return req, nil
}

// List returns requests visible to the actor, most recent first. Admin-tier
// actors see everything; a plain user only their own records. The status
// filter accepts "all" (or empty) as the identity filter.
func (s *RequestService) List(ctx context.Context, actor *domain.User, statusFilter string) ([]domain.MaintenanceRequest, error) {
	if err := policy.Authorize(actor, policy.OpListRequests, policy.Target{}); err != nil {
		return nil, err
	}

	filter := repository.RequestFilter{}
	if !actor.AdminTier() {
		ownerID := actor.ID
		filter.OwnerID = &ownerID
	}
	return s.listFiltered(ctx, filter, statusFilter)
}

// ListAll returns every request for the operator console, newest first.
func (s *RequestService) ListAll(ctx context.Context, actor *domain.User, statusFilter string) ([]domain.MaintenanceRequest, error) {
	if err := policy.Authorize(actor, policy.OpListAllRequests, policy.Target{}); err != nil {
		return nil, err
	}
	return s.listFiltered(ctx, repository.RequestFilter{}, statusFilter)
}

func (s *RequestService) listFiltered(ctx context.Context, filter repository.RequestFilter, statusFilter string) ([]domain.MaintenanceRequest, error) {
	statusFilter = strings.TrimSpace(statusFilter)
	if statusFilter != "" && statusFilter != "all" {
		status := domain.RequestStatus(statusFilter)
		if !domain.ValidStatus(status) {
			return nil, apperrors.NewValidationError("invalid status filter", map[string]any{"status": statusFilter})
		}
		filter.Statuses = []domain.RequestStatus{status}
	}

	result, err := s.requests.ListWithFilter(ctx, filter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return result, nil
}

// Get fetches one request. Records a plain user does not own surface as
// NOT_FOUND rather than FORBIDDEN so existence is not leaked.
func (s *RequestService) Get(ctx context.Context, actor *domain.User, id string) (*domain.MaintenanceRequest, error) {
	req, err := s.requests.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("request", map[string]any{"id": id})
		}
		return nil, apperrors.MapError(err)
	}
	if !policy.CanViewRequest(actor, req) {
		return nil, apperrors.NewNotFound("request", map[string]any{"id": id})
	}
	return req, nil
}

// TransitionStatus moves a request forward in its lifecycle. The repository
// performs the final ordering check under a row lock so a concurrent writer
// cannot slip a backward transition through.
func (s *RequestService) TransitionStatus(ctx context.Context, actor *domain.User, id string, next domain.RequestStatus) (*domain.MaintenanceRequest, error) {
	if !domain.ValidStatus(next) {
		return nil, apperrors.NewValidationError("invalid status", map[string]any{"status": string(next)})
	}

	req, err := s.requests.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("request", map[string]any{"id": id})
		}
		return nil, apperrors.MapError(err)
	}

	if err := policy.Authorize(actor, policy.OpUpdateStatus, policy.RequestTarget(req)); err != nil {
		return nil, err
	}

	oldStatus := req.Status
	updated, err := s.requests.TransitionStatus(ctx, id, next)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Deleted between the policy check and the locked update.
			return nil, apperrors.NewNotFound("request", map[string]any{"id": id})
		}
		return nil, apperrors.MapError(err)
	}

	var actorID *string
	if actor != nil {
		actorID = &actor.ID
	}
	s.publishEvent(ctx, events.Event{
		Type:      events.EventRequestStatusChanged,
		RequestID: updated.ID,
		ActorID:   actorID,
		Payload: events.RequestStatusChangedPayload{
			OldStatus: oldStatus,
			NewStatus: updated.Status,
		},
	})
	return updated, nil
}

// ApplyClassification is the pipeline's write-back. First successful
// classification wins; duplicates surface as ALREADY_CLASSIFIED, which the
// worker logs and drops.
func (s *RequestService) ApplyClassification(ctx context.Context, id string, category domain.RequestCategory, priority domain.RequestPriority) (*domain.MaintenanceRequest, error) {
	if !domain.ValidCategory(category) || !domain.ValidPriority(priority) {
		return nil, apperrors.NewValidationError("invalid classification result",
			map[string]any{"category": string(category), "priority": string(priority)})
	}

	updated, err := s.requests.ApplyClassification(ctx, id, category, priority)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("request", map[string]any{"id": id})
		}
		return nil, apperrors.MapError(err)
	}

	s.publishEvent(ctx, events.Event{
		Type:      events.EventRequestClassified,
		RequestID: updated.ID,
		Payload: events.RequestClassifiedPayload{
			Category: updated.Category,
			Priority: updated.Priority,
		},
	})
	return updated, nil
}

// Delete hard-removes a request. Owners and admin-tier actors only; unlike
// reads this denial is a visible 403, matching the delete contract.
func (s *RequestService) Delete(ctx context.Context, actor *domain.User, id string) error {
	req, err := s.requests.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("request", map[string]any{"id": id})
		}
		return apperrors.MapError(err)
	}

	if err := policy.Authorize(actor, policy.OpDeleteRequest, policy.RequestTarget(req)); err != nil {
		return err
	}

	if err := s.requests.Delete(ctx, id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("request", map[string]any{"id": id})
		}
		return apperrors.MapError(err)
	}

	var actorID *string
	if actor != nil {
		actorID = &actor.ID
	}
	s.publishEvent(ctx, events.Event{
		Type:      events.EventRequestDeleted,
		RequestID: id,
		ActorID:   actorID,
	})
	return nil
}

// PurgeCompleted removes completed requests last touched before the cutoff.
// Invoked by the janitor schedule.
func (s *RequestService) PurgeCompleted(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoff := time.Now().Add(-olderThan)
	deleted, err := s.requests.PurgeCompletedBefore(ctx, cutoff)
	if err != nil {
		return 0, apperrors.MapError(err)
	}
	if deleted > 0 {
		s.logger.Info("purged completed requests",
			zap.Int64("deleted", deleted), zap.Time("cutoff", cutoff))
	}
	return deleted, nil
}

func (s *RequestService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	_ = s.dispatcher.Publish(ctx, event)
}
