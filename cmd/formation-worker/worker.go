package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/dukex/formation/pkg/eventbus"
	"github.com/dukex/formation/pkg/events"
	"github.com/dukex/formation/pkg/metrics"
	"github.com/dukex/formation/pkg/services"
	"github.com/robfig/cron/v3"
)

// Worker completes DOC_UPLOAD steps. Uploads are handled as they are announced on the
// event bus; the cron sweep catches instances whose events were missed.
type Worker struct {
	id        string
	logger    *slog.Logger
	formation *services.Formation
	eventBus  eventbus.EventBus
	schedule  string

	cron *cron.Cron
	ctx  context.Context
}

func NewWorker(
	id string,
	formation *services.Formation,
	eventBus eventbus.EventBus,
	logger *slog.Logger,
	schedule string,
) *Worker {
	return &Worker{
		id:        id,
		logger:    logger,
		formation: formation,
		eventBus:  eventBus,
		schedule:  schedule,
	}
}

// Run starts the worker and blocks until SIGINT or SIGTERM.
func (w *Worker) Run(ctx context.Context) error {
	err := w.Start(ctx)
	if err != nil {
		return err
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigChan:
	case <-ctx.Done():
	}

	w.logger.InfoContext(ctx, "Shutting down worker...")
	w.Stop()

	return nil
}

// Start registers the event handler, subscribes and schedules the sweep.
func (w *Worker) Start(ctx context.Context) error {
	w.logger.InfoContext(ctx, "Starting worker", "worker_id", w.id, "sweep_schedule", w.schedule)
	w.ctx = ctx

	err := w.eventBus.Handle(events.DocumentUploadedEvent, w.handleDocumentUploaded)
	if err != nil {
		return err
	}

	err = w.eventBus.Subscribe(ctx)
	if err != nil {
		w.logger.ErrorContext(ctx, "Failed to subscribe to event bus", "error", err)

		return err
	}

	w.cron = cron.New(cron.WithChain(
		cron.SkipIfStillRunning(cron.DefaultLogger),
		cron.Recover(cron.DefaultLogger),
	))

	entryID, err := w.cron.AddFunc(w.schedule, w.sweep)
	if err != nil {
		return fmt.Errorf("invalid sweep schedule %q: %w", w.schedule, err)
	}

	w.cron.Start()
	w.logger.InfoContext(ctx, "Worker started successfully", "entry_id", entryID)

	return nil
}

// Stop halts the sweep and waits for a running one to finish.
func (w *Worker) Stop() {
	if w.cron == nil {
		return
	}

	<-w.cron.Stop().Done()
}

func (w *Worker) handleDocumentUploaded(ctx context.Context, event any) error {
	uploaded, ok := event.(*events.DocumentUploaded)
	if !ok {
		w.logger.ErrorContext(ctx, "Invalid event type for DocumentUploaded")

		return nil
	}

	logger := w.logger.With(
		"instance_id", uploaded.InstanceID,
		"step_number", uploaded.StepNumber,
		"document_type", uploaded.DocumentType,
		"event_id", uploaded.ID,
	)
	logger.InfoContext(ctx, "Processing document uploaded event")

	completed, err := w.formation.AutoCompleteDocumentStep(ctx, uploaded.InstanceID, uploaded.StepNumber, metrics.OriginEvent)
	if err != nil {
		if services.IsNotFoundError(err) || services.IsConflictError(err) {
			logger.WarnContext(ctx, "Dropping document uploaded event", "error", err)

			return nil
		}

		logger.ErrorContext(ctx, "Failed to auto-complete document step", "error", err)

		return err
	}

	if completed {
		logger.InfoContext(ctx, "Document step completed")
	}

	return nil
}

func (w *Worker) sweep() {
	ctx := w.ctx
	if ctx == nil {
		ctx = context.Background()
	}

	completed, err := w.formation.SweepDocumentSteps(ctx)
	if err != nil {
		w.logger.ErrorContext(ctx, "Document step sweep failed", "error", err)

		return
	}

	w.logger.InfoContext(ctx, "Document step sweep finished", "completed", completed)
}
