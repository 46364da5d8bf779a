package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/docuvoice/backend/internal/event"
	"github.com/docuvoice/backend/internal/ledger"
	"github.com/docuvoice/backend/internal/workflow"
)

// Ledger is the slice of the job ledger the routers need for task-id
// correlation.
type Ledger interface {
	FindByOcrTaskID(ctx context.Context, taskID string) (*ledger.Record, error)
	FindBySpeechTaskID(ctx context.Context, taskID string) (*ledger.Record, error)
}

// Publisher forwards workflow starts onto the run queue
type Publisher interface {
	PublishWithRetry(ctx context.Context, routingKey string, body []byte, contentType string) error
}

// Notifier pushes status text over the live per-user channel
type Notifier interface {
	Push(ctx context.Context, connectionID, message string) error
}

// Runner executes one workflow
type Runner interface {
	Run(ctx context.Context, in workflow.RunInput) error
}

// Routers holds the per-queue message handlers. Each completion queue gets
// its own router; the workflow queue gets the engine itself.
type Routers struct {
	logger             *slog.Logger
	ledger             Ledger
	publisher          Publisher
	notifier           Notifier
	runner             Runner
	workflowRoutingKey string
}

// RoutersConfig holds router dependencies
type RoutersConfig struct {
	Logger             *slog.Logger
	Ledger             Ledger
	Publisher          Publisher
	Notifier           Notifier
	Runner             Runner
	WorkflowRoutingKey string
}

// NewRouters creates the message routers
func NewRouters(cfg *RoutersConfig) *Routers {
	return &Routers{
		logger:             cfg.Logger,
		ledger:             cfg.Ledger,
		publisher:          cfg.Publisher,
		notifier:           cfg.Notifier,
		runner:             cfg.Runner,
		workflowRoutingKey: cfg.WorkflowRoutingKey,
	}
}

// HandleOcrCompletion correlates an OCR completion back to its job and
// publishes a workflow start for it. Fire-and-forget: the workflow itself
// runs from the run queue, not inline here.
func (r *Routers) HandleOcrCompletion(ctx context.Context, body []byte) error {
	n, err := event.DecodeTextract(body)
	if err != nil {
		return err
	}

	if n.Status != "SUCCEEDED" {
		return fmt.Errorf("%w: task %s status %s", workflow.ErrTextDetectionFailed, n.JobID, n.Status)
	}

	rec, err := r.ledger.FindByOcrTaskID(ctx, n.JobID)
	if err != nil {
		return fmt.Errorf("failed to correlate ocr task %s: %w", n.JobID, err)
	}

	in := workflow.RunInput{
		OcrTaskID:    n.JobID,
		JobID:        rec.JobID,
		ConnectionID: rec.ConnectionID,
		UserID:       rec.UserID,
		InputFile:    rec.InputFile,
	}

	payload, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("failed to encode workflow input: %w", err)
	}

	if err := r.publisher.PublishWithRetry(ctx, r.workflowRoutingKey, payload, "application/json"); err != nil {
		return fmt.Errorf("failed to publish workflow start for job %s: %w", rec.JobID, err)
	}

	r.logger.Info("Workflow start published",
		slog.String("job_id", rec.JobID),
		slog.String("ocr_task_id", n.JobID),
	)

	r.notify(ctx, rec.ConnectionID, fmt.Sprintf("Textract output is ready for App Job %s", rec.JobID))

	return nil
}

// HandleWorkflowRun executes one workflow from the run queue
func (r *Routers) HandleWorkflowRun(ctx context.Context, body []byte) error {
	var in workflow.RunInput
	if err := json.Unmarshal(body, &in); err != nil {
		return fmt.Errorf("%w: %v", event.ErrInvalidEvent, err)
	}

	if in.JobID == "" || in.OcrTaskID == "" {
		return fmt.Errorf("%w: workflow input missing job or task id", event.ErrInvalidEvent)
	}

	return r.runner.Run(ctx, in)
}

// HandleSpeechCompletion correlates a finished synthesis task back to its
// job and tells the user where the audio landed.
func (r *Routers) HandleSpeechCompletion(ctx context.Context, body []byte) error {
	n, err := event.DecodePolly(body)
	if err != nil {
		return err
	}

	rec, err := r.ledger.FindBySpeechTaskID(ctx, n.TaskID)
	if err != nil {
		return fmt.Errorf("failed to correlate speech task %s: %w", n.TaskID, err)
	}

	r.logger.Info("Speech synthesis completed",
		slog.String("job_id", rec.JobID),
		slog.String("speech_task_id", n.TaskID),
		slog.String("task_status", n.TaskStatus),
		slog.String("output_uri", n.OutputURI),
	)

	r.notify(ctx, rec.ConnectionID, fmt.Sprintf("Polly output is ready for App Job %s", rec.JobID))
	r.notify(ctx, rec.ConnectionID, n.OutputURI)

	return nil
}

func (r *Routers) notify(ctx context.Context, connectionID, message string) {
	if err := r.notifier.Push(ctx, connectionID, message); err != nil {
		r.logger.Warn("Failed to push status notification",
			slog.String("connection_id", connectionID),
			slog.Any("error", err),
		)
	}
}
