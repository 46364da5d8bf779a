// Package workflow drives a completed OCR job through the remaining
// pipeline stages: retrieve the extracted text, store and moderate it in
// parallel, then submit speech synthesis. One Run call is one workflow
// execution; ordering between stages is enforced by the sequential code
// path, and the two parallel branches share only the input text.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/docuvoice/backend/internal/clients"
	"github.com/docuvoice/backend/internal/ledger"
)

// ConfidenceLimit is the minimum per-line detection confidence (0-100
// scale). Lines below it are dropped, not errored.
const ConfidenceLimit = 80.0

var (
	// ErrTextDetectionFailed is returned when the OCR task finished with a
	// non-success status. There is no partial-credit path.
	ErrTextDetectionFailed = errors.New("text detection job failed")

	// ErrModerationRejected is returned when the extracted text intersects
	// the configured denylist.
	ErrModerationRejected = errors.New("text moderation failed")
)

// RunInput is the workflow initiation record, published to the run queue by
// the OCR completion router.
type RunInput struct {
	OcrTaskID    string `json:"ocr_task_id"`
	JobID        string `json:"job_id"`
	ConnectionID string `json:"connection_id"`
	UserID       string `json:"user_id"`
	InputFile    string `json:"input_file"`
}

// Ledger is the slice of the job ledger the engine mutates.
type Ledger interface {
	SetSpeechTaskID(ctx context.Context, jobID, taskID string, policy ledger.UpdatePolicy) error
}

// Config holds engine dependencies and policy
type Config struct {
	Logger             *slog.Logger
	OCR                clients.OCR
	Store              clients.ObjectStore
	Speech             clients.Speech
	Notifier           clients.Notifier
	Ledger             Ledger
	Bucket             string
	Denylist           []string
	SpeechUpdatePolicy ledger.UpdatePolicy
}

// Engine executes workflow runs
type Engine struct {
	logger   *slog.Logger
	ocr      clients.OCR
	store    clients.ObjectStore
	speech   clients.Speech
	notifier clients.Notifier
	ledger   Ledger
	bucket   string
	denylist map[string]struct{}
	policy   ledger.UpdatePolicy
}

// NewEngine creates a workflow engine
func NewEngine(cfg *Config) *Engine {
	denylist := make(map[string]struct{}, len(cfg.Denylist))
	for _, word := range cfg.Denylist {
		denylist[strings.ToLower(word)] = struct{}{}
	}

	policy := cfg.SpeechUpdatePolicy
	if policy == "" {
		policy = ledger.PolicyStrict
	}

	return &Engine{
		logger:   cfg.Logger,
		ocr:      cfg.OCR,
		store:    cfg.Store,
		speech:   cfg.Speech,
		notifier: cfg.Notifier,
		ledger:   cfg.Ledger,
		bucket:   cfg.Bucket,
		denylist: denylist,
		policy:   policy,
	}
}

// Run executes one workflow end to end
func (e *Engine) Run(ctx context.Context, in RunInput) error {
	e.logger.Info("Workflow run started",
		slog.String("job_id", in.JobID),
		slog.String("ocr_task_id", in.OcrTaskID),
	)

	text, err := e.retrieveText(ctx, in)
	if err != nil {
		return err
	}

	if err := e.runParallel(ctx, in, text); err != nil {
		return err
	}

	if err := e.submitSpeech(ctx, in, text); err != nil {
		return err
	}

	e.logger.Info("Workflow run completed",
		slog.String("job_id", in.JobID),
	)

	return nil
}

// retrieveText fetches the OCR result, keeps lines at or above the
// confidence limit in their original order, and joins them with newlines.
func (e *Engine) retrieveText(ctx context.Context, in RunInput) (string, error) {
	result, err := e.ocr.GetTextDetection(ctx, in.OcrTaskID)
	if err != nil {
		return "", fmt.Errorf("failed to retrieve text for task %s: %w", in.OcrTaskID, err)
	}

	if result.Status != "SUCCEEDED" {
		return "", fmt.Errorf("%w: task %s status %s", ErrTextDetectionFailed, in.OcrTaskID, result.Status)
	}

	var lines []string
	for _, line := range result.Lines {
		if line.Confidence >= ConfidenceLimit {
			lines = append(lines, line.Text)
		}
	}

	e.logger.Info("Text retrieved",
		slog.String("job_id", in.JobID),
		slog.Int("lines_kept", len(lines)),
		slog.Int("lines_total", len(result.Lines)),
	)

	e.notify(ctx, in.ConnectionID, "Text retrieved from Textract")

	return strings.Join(lines, "\n"), nil
}

// runParallel fans out into the store and moderate branches. Both always
// run to completion; either failing fails the state as a whole. A text
// object committed by the store branch is not retracted when moderation
// rejects afterwards.
func (e *Engine) runParallel(ctx context.Context, in RunInput, text string) error {
	var wg sync.WaitGroup
	var storeErr, moderateErr error

	wg.Add(2)
	go func() {
		defer wg.Done()
		storeErr = e.storeText(ctx, in, text)
	}()
	go func() {
		defer wg.Done()
		moderateErr = e.moderateText(ctx, in, text)
	}()
	wg.Wait()

	return errors.Join(storeErr, moderateErr)
}

func (e *Engine) storeText(ctx context.Context, in RunInput, text string) error {
	key := fmt.Sprintf("%s/%s/text/text.txt", in.UserID, in.JobID)

	if err := e.store.PutObject(ctx, e.bucket, key, []byte(text), "text/plain"); err != nil {
		return fmt.Errorf("failed to store text for job %s: %w", in.JobID, err)
	}

	e.notify(ctx, in.ConnectionID, "Text stored to S3")

	return nil
}

func (e *Engine) moderateText(ctx context.Context, in RunInput, text string) error {
	if err := Moderate(text, e.denylist); err != nil {
		e.notify(ctx, in.ConnectionID, "ERROR - Text moderation failed")
		return err
	}

	e.notify(ctx, in.ConnectionID, "Text moderation succeeded")

	return nil
}

// submitSpeech starts the synthesis task and records its id on the ledger
// entry. This is the workflow's terminal action; completion is observed
// asynchronously by the speech completion router.
func (e *Engine) submitSpeech(ctx context.Context, in RunInput, text string) error {
	e.notify(ctx, in.ConnectionID, "Invoking Polly")

	keyPrefix := fmt.Sprintf("%s/%s/audio/audio", in.UserID, in.JobID)
	taskID, err := e.speech.StartSynthesis(ctx, text, e.bucket, keyPrefix)
	if err != nil {
		return fmt.Errorf("failed to submit speech synthesis for job %s: %w", in.JobID, err)
	}

	if err := e.ledger.SetSpeechTaskID(ctx, in.JobID, taskID, e.policy); err != nil {
		return fmt.Errorf("failed to record speech task id for job %s: %w", in.JobID, err)
	}

	e.notify(ctx, in.ConnectionID, fmt.Sprintf("Polly task submitted: %s", taskID))

	return nil
}

// notify pushes a status message over the live channel; failures are logged
// and never propagated in place of the primary error.
func (e *Engine) notify(ctx context.Context, connectionID, message string) {
	if err := e.notifier.Push(ctx, connectionID, message); err != nil {
		e.logger.Warn("Failed to push status notification",
			slog.String("connection_id", connectionID),
			slog.String("message", message),
			slog.Any("error", err),
		)
	}
}
