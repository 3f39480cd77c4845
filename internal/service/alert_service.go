package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/maintenance-service/internal/events"
	"github.com/spec-kit/maintenance-service/internal/observability"
)

// AlertService surfaces pipeline outcomes to operators. Requests whose
// classification retries are exhausted must stay visible: they remain
// queryable in the pending state and show up here as needing manual
// classification.
type AlertService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
	metrics    *observability.Metrics
}

// NewAlertService creates the service.
func NewAlertService(dispatcher events.Dispatcher, logger *zap.Logger, metrics *observability.Metrics) *AlertService {
	return &AlertService{
		dispatcher: dispatcher,
		logger:     logger,
		metrics:    metrics,
	}
}

// RegisterHandlers subscribes to pipeline and lifecycle events.
func (a *AlertService) RegisterHandlers() {
	if a.dispatcher == nil {
		return
	}
	a.dispatcher.Subscribe(events.EventClassificationFailed, a.handleClassificationFailed)
	a.dispatcher.Subscribe(events.EventRequestClassified, a.handleRequestClassified)
	a.dispatcher.Subscribe(events.EventRequestStatusChanged, a.handleStatusChanged)
	a.dispatcher.Subscribe(events.EventUserRoleChanged, a.handleRoleChanged)
}

func (a *AlertService) handleClassificationFailed(ctx context.Context, event events.Event) error {
	a.metrics.RecordPipeline("exhausted")
	a.logger.Error("request needs manual classification",
		zap.String("request_id", event.RequestID),
		zap.Any("payload", event.Payload))
	return nil
}

func (a *AlertService) handleRequestClassified(ctx context.Context, event events.Event) error {
	a.metrics.RecordPipeline("classified")
	a.logger.Info("request classified",
		zap.String("request_id", event.RequestID),
		zap.Any("payload", event.Payload))
	return nil
}

func (a *AlertService) handleStatusChanged(ctx context.Context, event events.Event) error {
	a.logger.Info("request status changed",
		zap.String("request_id", event.RequestID),
		zap.Any("payload", event.Payload))
	return nil
}

func (a *AlertService) handleRoleChanged(ctx context.Context, event events.Event) error {
	a.logger.Info("user role changed", zap.Any("payload", event.Payload))
	return nil
}
