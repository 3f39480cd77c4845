package worker

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/maintenance-service/internal/classifier"
	"github.com/spec-kit/maintenance-service/internal/domain"
	"github.com/spec-kit/maintenance-service/internal/events"
	"github.com/spec-kit/maintenance-service/internal/observability"
	"github.com/spec-kit/maintenance-service/internal/queue"
	apperrors "github.com/spec-kit/maintenance-service/pkg/util"
)

const dequeueWait = 5 * time.Second

// JobQueue is the slice of the queue the worker needs.
type JobQueue interface {
	Enqueue(ctx context.Context, job queue.Job) error
	Dequeue(ctx context.Context, wait time.Duration) (*queue.Job, error)
}

// ClassificationApplier writes classifier results back to a request.
type ClassificationApplier interface {
	ApplyClassification(ctx context.Context, id string, category domain.RequestCategory, priority domain.RequestPriority) (*domain.MaintenanceRequest, error)
}

// ClassificationWorker drains the job queue, calls the external classifier
// and applies results. Failed attempts are re-enqueued with backoff up to
// MaxAttempts; exhaustion leaves the request pending and raises a
// classification_failed event so operators see it.
type ClassificationWorker struct {
	jobs        JobQueue
	classifier  classifier.Classifier
	applier     ClassificationApplier
	dispatcher  events.Dispatcher
	logger      *zap.Logger
	metrics     *observability.Metrics
	maxAttempts int
	baseBackoff time.Duration
}

// WorkerDependencies bundles collaborators for the worker.
type WorkerDependencies struct {
	Jobs        JobQueue
	Classifier  classifier.Classifier
	Applier     ClassificationApplier
	Dispatcher  events.Dispatcher
	Logger      *zap.Logger
	Metrics     *observability.Metrics
	MaxAttempts int
	BaseBackoff time.Duration
}

// NewClassificationWorker constructs the worker.
func NewClassificationWorker(deps WorkerDependencies) *ClassificationWorker {
	maxAttempts := deps.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 5
	}
	baseBackoff := deps.BaseBackoff
	if baseBackoff <= 0 {
		baseBackoff = 2 * time.Second
	}
	return &ClassificationWorker{
		jobs:        deps.Jobs,
		classifier:  deps.Classifier,
		applier:     deps.Applier,
		dispatcher:  deps.Dispatcher,
		logger:      deps.Logger,
		metrics:     deps.Metrics,
		maxAttempts: maxAttempts,
		baseBackoff: baseBackoff,
	}
}

// Run consumes jobs until the context is cancelled.
func (w *ClassificationWorker) Run(ctx context.Context) error {
	w.logger.Info("classification worker started",
		zap.Int("max_attempts", w.maxAttempts))

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		job, err := w.jobs.Dequeue(ctx, dequeueWait)
		if err != nil {
			if err == queue.ErrEmpty || ctx.Err() != nil {
				continue
			}
			w.logger.Error("dequeue failed", zap.Error(err))
			time.Sleep(2 * time.Second)
			continue
		}

		w.Process(ctx, *job)
	}
}

// Process handles one delivery of a job. Exported so tests drive deliveries
// directly without the consume loop.
func (w *ClassificationWorker) Process(ctx context.Context, job queue.Job) {
	result, err := w.classifier.Classify(ctx, job.Description)
	if err != nil {
		w.handleFailure(ctx, job, err)
		return
	}

	if _, err := w.applier.ApplyClassification(ctx, job.RequestID, result.Category, result.Priority); err != nil {
		switch {
		case apperrors.IsCode(err, "ALREADY_CLASSIFIED"):
			// At-least-once delivery: a duplicate lost the race. First
			// result stands; this one is logged and dropped.
			w.metrics.RecordPipeline("duplicate")
			w.logger.Warn("duplicate classification ignored",
				zap.String("request_id", job.RequestID),
				zap.Int("attempt", job.Attempt))
		case apperrors.IsCode(err, "NOT_FOUND"):
			w.logger.Info("request deleted before classification",
				zap.String("request_id", job.RequestID))
		default:
			w.handleFailure(ctx, job, err)
		}
		return
	}

	w.logger.Info("request classified",
		zap.String("request_id", job.RequestID),
		zap.String("category", string(result.Category)),
		zap.String("priority", string(result.Priority)),
		zap.Int("attempt", job.Attempt))
}

func (w *ClassificationWorker) handleFailure(ctx context.Context, job queue.Job, cause error) {
	if job.Attempt >= w.maxAttempts {
		// Terminal but visible: the record stays pending and the alert
		// path tells operators to classify it by hand.
		w.publishExhausted(ctx, job, cause)
		return
	}

	backoff := w.backoffFor(job.Attempt)
	w.metrics.RecordPipeline("retried")
	w.logger.Warn("classification attempt failed; retrying",
		zap.String("request_id", job.RequestID),
		zap.Int("attempt", job.Attempt),
		zap.Duration("backoff", backoff),
		zap.Error(cause))

	time.Sleep(backoff)

	job.Attempt++
	if err := w.jobs.Enqueue(ctx, job); err != nil {
		w.publishExhausted(ctx, job, err)
	}
}

func (w *ClassificationWorker) publishExhausted(ctx context.Context, job queue.Job, cause error) {
	w.logger.Error("classification retries exhausted",
		zap.String("request_id", job.RequestID),
		zap.Int("attempts", job.Attempt),
		zap.Error(cause))

	if w.dispatcher == nil {
		return
	}
	_ = w.dispatcher.Publish(ctx, events.Event{
		ID:        uuid.NewString(),
		Type:      events.EventClassificationFailed,
		RequestID: job.RequestID,
		Timestamp: time.Now(),
		Payload: events.ClassificationFailedPayload{
			Attempts:  job.Attempt,
			LastError: cause.Error(),
		},
	})
}

// backoffFor doubles the delay per attempt: base, 2x, 4x, ...
func (w *ClassificationWorker) backoffFor(attempt int) time.Duration {
	backoff := w.baseBackoff
	for i := 1; i < attempt; i++ {
		backoff *= 2
	}
	return backoff
}
