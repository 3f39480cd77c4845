package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/maintenance-service/internal/domain"
	"github.com/spec-kit/maintenance-service/internal/events"
	"github.com/spec-kit/maintenance-service/internal/queue"
	"github.com/spec-kit/maintenance-service/internal/repository"
	apperrors "github.com/spec-kit/maintenance-service/pkg/util"
)

type mockRequestRepo struct {
	createFn         func(ctx context.Context, req *domain.MaintenanceRequest) error
	getByIDFn        func(ctx context.Context, id string) (*domain.MaintenanceRequest, error)
	listFn           func(ctx context.Context, filter repository.RequestFilter) ([]domain.MaintenanceRequest, error)
	transitionFn     func(ctx context.Context, id string, next domain.RequestStatus) (*domain.MaintenanceRequest, error)
	applyFn          func(ctx context.Context, id string, category domain.RequestCategory, priority domain.RequestPriority) (*domain.MaintenanceRequest, error)
	deleteFn         func(ctx context.Context, id string) error
	countsFn         func(ctx context.Context) (*repository.StatusCounts, error)
	purgeFn          func(ctx context.Context, cutoff time.Time) (int64, error)
	lastCreated      *domain.MaintenanceRequest
	lastListFilter   repository.RequestFilter
	transitionCalled bool
}

func (m *mockRequestRepo) Create(ctx context.Context, req *domain.MaintenanceRequest) error {
	m.lastCreated = req
	if m.createFn != nil {
		return m.createFn(ctx, req)
	}
	req.ID = "req-1"
	req.CreatedAt = time.Now()
	req.UpdatedAt = req.CreatedAt
	return nil
}

func (m *mockRequestRepo) GetByID(ctx context.Context, id string) (*domain.MaintenanceRequest, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return nil, pgx.ErrNoRows
}

func (m *mockRequestRepo) ListWithFilter(ctx context.Context, filter repository.RequestFilter) ([]domain.MaintenanceRequest, error) {
	m.lastListFilter = filter
	if m.listFn != nil {
		return m.listFn(ctx, filter)
	}
	return nil, nil
}

func (m *mockRequestRepo) TransitionStatus(ctx context.Context, id string, next domain.RequestStatus) (*domain.MaintenanceRequest, error) {
	m.transitionCalled = true
	if m.transitionFn != nil {
		return m.transitionFn(ctx, id, next)
	}
	return nil, pgx.ErrNoRows
}

func (m *mockRequestRepo) ApplyClassification(ctx context.Context, id string, category domain.RequestCategory, priority domain.RequestPriority) (*domain.MaintenanceRequest, error) {
	if m.applyFn != nil {
		return m.applyFn(ctx, id, category, priority)
	}
	return nil, pgx.ErrNoRows
}

func (m *mockRequestRepo) Delete(ctx context.Context, id string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, id)
	}
	return nil
}

func (m *mockRequestRepo) Counts(ctx context.Context) (*repository.StatusCounts, error) {
	if m.countsFn != nil {
		return m.countsFn(ctx)
	}
	return &repository.StatusCounts{}, nil
}

func (m *mockRequestRepo) PurgeCompletedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	if m.purgeFn != nil {
		return m.purgeFn(ctx, cutoff)
	}
	return 0, nil
}

type mockEnqueuer struct {
	jobs []queue.Job
	err  error
}

func (m *mockEnqueuer) Enqueue(ctx context.Context, job queue.Job) error {
	if m.err != nil {
		return m.err
	}
	m.jobs = append(m.jobs, job)
	return nil
}

type recordingDispatcher struct {
	published []events.Event
}

func (d *recordingDispatcher) Publish(ctx context.Context, event events.Event) error {
	d.published = append(d.published, event)
	return nil
}

func (d *recordingDispatcher) Subscribe(eventType events.EventType, handler events.EventHandler) {}

func (d *recordingDispatcher) typesSeen() []events.EventType {
	out := make([]events.EventType, 0, len(d.published))
	for _, e := range d.published {
		out = append(out, e.Type)
	}
	return out
}

func newTestRequestService(repo *mockRequestRepo, enqueuer *mockEnqueuer, dispatcher *recordingDispatcher) *RequestService {
	return NewRequestService(RequestDependencies{
		RequestRepo: repo,
		Enqueuer:    enqueuer,
		Dispatcher:  dispatcher,
		Logger:      zap.NewNop(),
	})
}

func plainUser(id string) *domain.User {
	return &domain.User{ID: id, Email: id + "@example.com", Role: domain.RoleUser}
}

func adminUser(id string) *domain.User {
	return &domain.User{ID: id, Email: id + "@example.com", Role: domain.RoleAdmin}
}

func strPtr(s string) *string { return &s }

func TestCreateStoresPendingRecordAndEnqueuesOnce(t *testing.T) {
	repo := &mockRequestRepo{}
	enqueuer := &mockEnqueuer{}
	dispatcher := &recordingDispatcher{}
	svc := newTestRequestService(repo, enqueuer, dispatcher)

	actor := plainUser("user-1")
	req, err := svc.Create(context.Background(), actor, RequestCreateInput{
		Description: "2층 화장실 누수",
		Location:    strPtr("2F restroom"),
	})
	require.NoError(t, err)

	require.Equal(t, domain.CategoryPending, req.Category)
	require.Equal(t, domain.PriorityPending, req.Priority)
	require.Equal(t, domain.RequestStatusPending, req.Status)
	require.NotNil(t, req.OwnerID)
	require.Equal(t, "user-1", *req.OwnerID)

	require.Len(t, enqueuer.jobs, 1)
	require.Equal(t, req.ID, enqueuer.jobs[0].RequestID)
	require.Equal(t, "2층 화장실 누수", enqueuer.jobs[0].Description)
	require.Equal(t, 1, enqueuer.jobs[0].Attempt)

	require.Equal(t, []events.EventType{events.EventRequestCreated}, dispatcher.typesSeen())
}

func TestCreateAnonymousHasNoOwner(t *testing.T) {
	repo := &mockRequestRepo{}
	svc := newTestRequestService(repo, &mockEnqueuer{}, &recordingDispatcher{})

	req, err := svc.Create(context.Background(), nil, RequestCreateInput{Description: "broken heater"})
	require.NoError(t, err)
	require.Nil(t, req.OwnerID)
}

func TestCreateRejectsBlankDescription(t *testing.T) {
	repo := &mockRequestRepo{}
	svc := newTestRequestService(repo, &mockEnqueuer{}, &recordingDispatcher{})

	_, err := svc.Create(context.Background(), nil, RequestCreateInput{Description: "   "})
	require.Error(t, err)
	require.True(t, apperrors.IsCode(err, "VALIDATION_FAILED"))
	require.Nil(t, repo.lastCreated)
}

func TestCreateSurvivesEnqueueFailure(t *testing.T) {
	repo := &mockRequestRepo{}
	enqueuer := &mockEnqueuer{err: errors.New("redis down")}
	svc := newTestRequestService(repo, enqueuer, &recordingDispatcher{})

	req, err := svc.Create(context.Background(), nil, RequestCreateInput{Description: "flickering lights"})
	require.NoError(t, err)
	require.Equal(t, domain.CategoryPending, req.Category)
}

func TestListScopesPlainUserToOwnRecords(t *testing.T) {
	repo := &mockRequestRepo{}
	svc := newTestRequestService(repo, &mockEnqueuer{}, &recordingDispatcher{})

	_, err := svc.List(context.Background(), plainUser("user-7"), "")
	require.NoError(t, err)
	require.NotNil(t, repo.lastListFilter.OwnerID)
	require.Equal(t, "user-7", *repo.lastListFilter.OwnerID)
}

func TestListAdminTierIsUnscoped(t *testing.T) {
	repo := &mockRequestRepo{}
	svc := newTestRequestService(repo, &mockEnqueuer{}, &recordingDispatcher{})

	_, err := svc.List(context.Background(), adminUser("admin-1"), "completed")
	require.NoError(t, err)
	require.Nil(t, repo.lastListFilter.OwnerID)
	require.Equal(t, []domain.RequestStatus{domain.RequestStatusCompleted}, repo.lastListFilter.Statuses)
}

func TestListRejectsUnknownStatusFilter(t *testing.T) {
	svc := newTestRequestService(&mockRequestRepo{}, &mockEnqueuer{}, &recordingDispatcher{})

	_, err := svc.List(context.Background(), adminUser("admin-1"), "archived")
	require.True(t, apperrors.IsCode(err, "VALIDATION_FAILED"))
}

func TestListAllRequiresAdminTier(t *testing.T) {
	svc := newTestRequestService(&mockRequestRepo{}, &mockEnqueuer{}, &recordingDispatcher{})

	_, err := svc.ListAll(context.Background(), plainUser("user-1"), "")
	require.True(t, apperrors.IsCode(err, "FORBIDDEN"))
	require.Equal(t, apperrors.ReasonAdminOnly, apperrors.ForbiddenReason(err))
}

func TestGetHidesUnownedRecordFromPlainUser(t *testing.T) {
	owner := "someone-else"
	repo := &mockRequestRepo{
		getByIDFn: func(ctx context.Context, id string) (*domain.MaintenanceRequest, error) {
			return &domain.MaintenanceRequest{ID: id, OwnerID: &owner, Description: "x"}, nil
		},
	}
	svc := newTestRequestService(repo, &mockEnqueuer{}, &recordingDispatcher{})

	_, err := svc.Get(context.Background(), plainUser("user-1"), "req-9")
	require.True(t, apperrors.IsCode(err, "NOT_FOUND"))

	// The same record is visible to an admin.
	got, err := svc.Get(context.Background(), adminUser("admin-1"), "req-9")
	require.NoError(t, err)
	require.Equal(t, "req-9", got.ID)
}

func TestGetOwnerSeesOwnRecord(t *testing.T) {
	owner := "user-1"
	repo := &mockRequestRepo{
		getByIDFn: func(ctx context.Context, id string) (*domain.MaintenanceRequest, error) {
			return &domain.MaintenanceRequest{ID: id, OwnerID: &owner}, nil
		},
	}
	svc := newTestRequestService(repo, &mockEnqueuer{}, &recordingDispatcher{})

	got, err := svc.Get(context.Background(), plainUser("user-1"), "req-3")
	require.NoError(t, err)
	require.Equal(t, "req-3", got.ID)
}

func TestTransitionStatusRequiresAdminTier(t *testing.T) {
	owner := "user-1"
	repo := &mockRequestRepo{
		getByIDFn: func(ctx context.Context, id string) (*domain.MaintenanceRequest, error) {
			return &domain.MaintenanceRequest{ID: id, OwnerID: &owner, Status: domain.RequestStatusPending}, nil
		},
	}
	svc := newTestRequestService(repo, &mockEnqueuer{}, &recordingDispatcher{})

	// Even the owner cannot move status; triage is an operator action.
	_, err := svc.TransitionStatus(context.Background(), plainUser("user-1"), "req-1", domain.RequestStatusInProgress)
	require.True(t, apperrors.IsCode(err, "FORBIDDEN"))
	require.False(t, repo.transitionCalled)
}

func TestTransitionStatusRejectsUnknownStatus(t *testing.T) {
	svc := newTestRequestService(&mockRequestRepo{}, &mockEnqueuer{}, &recordingDispatcher{})

	_, err := svc.TransitionStatus(context.Background(), adminUser("admin-1"), "req-1", domain.RequestStatus("archived"))
	require.True(t, apperrors.IsCode(err, "VALIDATION_FAILED"))
}

func TestTransitionStatusSurfacesOrderingViolation(t *testing.T) {
	repo := &mockRequestRepo{
		getByIDFn: func(ctx context.Context, id string) (*domain.MaintenanceRequest, error) {
			return &domain.MaintenanceRequest{ID: id, Status: domain.RequestStatusCompleted}, nil
		},
		transitionFn: func(ctx context.Context, id string, next domain.RequestStatus) (*domain.MaintenanceRequest, error) {
			return nil, apperrors.NewInvalidTransition(string(domain.RequestStatusCompleted), string(next))
		},
	}
	svc := newTestRequestService(repo, &mockEnqueuer{}, &recordingDispatcher{})

	_, err := svc.TransitionStatus(context.Background(), adminUser("admin-1"), "req-1", domain.RequestStatusPending)
	require.True(t, apperrors.IsCode(err, "INVALID_TRANSITION"))
}

func TestTransitionStatusPublishesChange(t *testing.T) {
	repo := &mockRequestRepo{
		getByIDFn: func(ctx context.Context, id string) (*domain.MaintenanceRequest, error) {
			return &domain.MaintenanceRequest{ID: id, Status: domain.RequestStatusPending}, nil
		},
		transitionFn: func(ctx context.Context, id string, next domain.RequestStatus) (*domain.MaintenanceRequest, error) {
			return &domain.MaintenanceRequest{ID: id, Status: next}, nil
		},
	}
	dispatcher := &recordingDispatcher{}
	svc := newTestRequestService(repo, &mockEnqueuer{}, dispatcher)

	updated, err := svc.TransitionStatus(context.Background(), adminUser("admin-1"), "req-1", domain.RequestStatusInProgress)
	require.NoError(t, err)
	require.Equal(t, domain.RequestStatusInProgress, updated.Status)

	require.Len(t, dispatcher.published, 1)
	payload, ok := dispatcher.published[0].Payload.(events.RequestStatusChangedPayload)
	require.True(t, ok)
	require.Equal(t, domain.RequestStatusPending, payload.OldStatus)
	require.Equal(t, domain.RequestStatusInProgress, payload.NewStatus)
}

func TestApplyClassificationRejectsPendingVocabulary(t *testing.T) {
	svc := newTestRequestService(&mockRequestRepo{}, &mockEnqueuer{}, &recordingDispatcher{})

	_, err := svc.ApplyClassification(context.Background(), "req-1", domain.CategoryPending, domain.PriorityHigh)
	require.True(t, apperrors.IsCode(err, "VALIDATION_FAILED"))
}

func TestApplyClassificationDuplicateSurfacesAsConflict(t *testing.T) {
	repo := &mockRequestRepo{
		applyFn: func(ctx context.Context, id string, category domain.RequestCategory, priority domain.RequestPriority) (*domain.MaintenanceRequest, error) {
			return nil, apperrors.NewAlreadyClassified(id)
		},
	}
	dispatcher := &recordingDispatcher{}
	svc := newTestRequestService(repo, &mockEnqueuer{}, dispatcher)

	_, err := svc.ApplyClassification(context.Background(), "req-1", domain.CategoryPlumbing, domain.PriorityHigh)
	require.True(t, apperrors.IsCode(err, "ALREADY_CLASSIFIED"))
	require.Empty(t, dispatcher.published)
}

func TestApplyClassificationPublishesResult(t *testing.T) {
	repo := &mockRequestRepo{
		applyFn: func(ctx context.Context, id string, category domain.RequestCategory, priority domain.RequestPriority) (*domain.MaintenanceRequest, error) {
			return &domain.MaintenanceRequest{ID: id, Category: category, Priority: priority}, nil
		},
	}
	dispatcher := &recordingDispatcher{}
	svc := newTestRequestService(repo, &mockEnqueuer{}, dispatcher)

	updated, err := svc.ApplyClassification(context.Background(), "req-1", domain.CategoryPlumbing, domain.PriorityHigh)
	require.NoError(t, err)
	require.True(t, updated.Classified())
	require.Equal(t, []events.EventType{events.EventRequestClassified}, dispatcher.typesSeen())
}

func TestDeleteByNonOwnerIsForbidden(t *testing.T) {
	owner := "someone-else"
	repo := &mockRequestRepo{
		getByIDFn: func(ctx context.Context, id string) (*domain.MaintenanceRequest, error) {
			return &domain.MaintenanceRequest{ID: id, OwnerID: &owner}, nil
		},
	}
	svc := newTestRequestService(repo, &mockEnqueuer{}, &recordingDispatcher{})

	err := svc.Delete(context.Background(), plainUser("user-1"), "req-1")
	require.True(t, apperrors.IsCode(err, "FORBIDDEN"))
	require.Equal(t, apperrors.ReasonOwnerOnly, apperrors.ForbiddenReason(err))
}

func TestDeleteByOwnerSucceeds(t *testing.T) {
	owner := "user-1"
	repo := &mockRequestRepo{
		getByIDFn: func(ctx context.Context, id string) (*domain.MaintenanceRequest, error) {
			return &domain.MaintenanceRequest{ID: id, OwnerID: &owner}, nil
		},
	}
	dispatcher := &recordingDispatcher{}
	svc := newTestRequestService(repo, &mockEnqueuer{}, dispatcher)

	require.NoError(t, svc.Delete(context.Background(), plainUser("user-1"), "req-1"))
	require.Equal(t, []events.EventType{events.EventRequestDeleted}, dispatcher.typesSeen())
}

func TestDeleteMissingRecordIsNotFound(t *testing.T) {
	svc := newTestRequestService(&mockRequestRepo{}, &mockEnqueuer{}, &recordingDispatcher{})

	err := svc.Delete(context.Background(), adminUser("admin-1"), "req-404")
	require.True(t, apperrors.IsCode(err, "NOT_FOUND"))
}

func TestPurgeCompletedUsesCutoff(t *testing.T) {
	var gotCutoff time.Time
	repo := &mockRequestRepo{
		purgeFn: func(ctx context.Context, cutoff time.Time) (int64, error) {
			gotCutoff = cutoff
			return 3, nil
		},
	}
	svc := newTestRequestService(repo, &mockEnqueuer{}, &recordingDispatcher{})

	deleted, err := svc.PurgeCompleted(context.Background(), 90*24*time.Hour)
	require.NoError(t, err)
	require.Equal(t, int64(3), deleted)
	require.WithinDuration(t, time.Now().Add(-90*24*time.Hour), gotCutoff, 5*time.Second)
}
