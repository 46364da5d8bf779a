package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docuvoice/backend/internal/event"
	"github.com/docuvoice/backend/internal/ledger"
	"github.com/docuvoice/backend/internal/workflow"
)

type fakeLedger struct {
	byOcrTask    map[string]*ledger.Record
	bySpeechTask map[string]*ledger.Record
}

func newRouterFakeLedger() *fakeLedger {
	return &fakeLedger{
		byOcrTask:    make(map[string]*ledger.Record),
		bySpeechTask: make(map[string]*ledger.Record),
	}
}

func (f *fakeLedger) FindByOcrTaskID(_ context.Context, taskID string) (*ledger.Record, error) {
	rec, ok := f.byOcrTask[taskID]
	if !ok {
		return nil, ledger.ErrNotFound
	}
	return rec, nil
}

func (f *fakeLedger) FindBySpeechTaskID(_ context.Context, taskID string) (*ledger.Record, error) {
	rec, ok := f.bySpeechTask[taskID]
	if !ok {
		return nil, ledger.ErrNotFound
	}
	return rec, nil
}

type fakePublisher struct {
	routingKeys []string
	bodies      [][]byte
	err         error
}

func (f *fakePublisher) PublishWithRetry(_ context.Context, routingKey string, body []byte, _ string) error {
	if f.err != nil {
		return f.err
	}
	f.routingKeys = append(f.routingKeys, routingKey)
	f.bodies = append(f.bodies, body)
	return nil
}

type fakeNotifier struct {
	messages []string
}

func (f *fakeNotifier) Push(_ context.Context, _, message string) error {
	f.messages = append(f.messages, message)
	return nil
}

type fakeRunner struct {
	inputs []workflow.RunInput
	err    error
}

func (f *fakeRunner) Run(_ context.Context, in workflow.RunInput) error {
	f.inputs = append(f.inputs, in)
	return f.err
}

func testRouters(t *testing.T) (*Routers, *fakeLedger, *fakePublisher, *fakeNotifier, *fakeRunner) {
	t.Helper()
	led := newRouterFakeLedger()
	publisher := &fakePublisher{}
	notifier := &fakeNotifier{}
	runner := &fakeRunner{}
	r := NewRouters(&RoutersConfig{
		Logger:             slog.New(slog.NewTextHandler(io.Discard, nil)),
		Ledger:             led,
		Publisher:          publisher,
		Notifier:           notifier,
		Runner:             runner,
		WorkflowRoutingKey: "workflow.run",
	})
	return r, led, publisher, notifier, runner
}

func envelope(t *testing.T, inner string) []byte {
	t.Helper()
	body, err := event.NewEnvelope([]byte(inner))
	require.NoError(t, err)
	return body
}

func TestHandleOcrCompletion(t *testing.T) {
	r, led, publisher, notifier, _ := testRouters(t)
	led.byOcrTask["ocr-task-1"] = &ledger.Record{
		JobID:        "job-1",
		UserID:       "user-1",
		ConnectionID: "conn-1",
		InputFile:    "report.pdf",
	}

	body := envelope(t, `{"JobId":"ocr-task-1","Status":"SUCCEEDED","DocumentLocation":{"S3Bucket":"uploads","S3ObjectName":"user-1/report.pdf"}}`)
	err := r.HandleOcrCompletion(context.Background(), body)

	require.NoError(t, err)
	require.Len(t, publisher.bodies, 1)
	assert.Equal(t, []string{"workflow.run"}, publisher.routingKeys)

	var in workflow.RunInput
	require.NoError(t, json.Unmarshal(publisher.bodies[0], &in))
	assert.Equal(t, "job-1", in.JobID)
	assert.Equal(t, "ocr-task-1", in.OcrTaskID)
	assert.Equal(t, "conn-1", in.ConnectionID)
	assert.Equal(t, "user-1", in.UserID)
	assert.Equal(t, "report.pdf", in.InputFile)

	assert.Contains(t, notifier.messages, "Textract output is ready for App Job job-1")
}

func TestHandleOcrCompletionFailedStatus(t *testing.T) {
	r, _, publisher, _, _ := testRouters(t)

	body := envelope(t, `{"JobId":"ocr-task-1","Status":"FAILED","DocumentLocation":{"S3ObjectName":"user-1/report.pdf"}}`)
	err := r.HandleOcrCompletion(context.Background(), body)

	require.Error(t, err)
	assert.True(t, errors.Is(err, workflow.ErrTextDetectionFailed))
	assert.Empty(t, publisher.bodies)
	assert.False(t, shouldRequeue(err))
}

func TestHandleOcrCompletionUnknownTask(t *testing.T) {
	r, _, _, _, _ := testRouters(t)

	body := envelope(t, `{"JobId":"ocr-task-unknown","Status":"SUCCEEDED","DocumentLocation":{"S3ObjectName":"x"}}`)
	err := r.HandleOcrCompletion(context.Background(), body)

	require.Error(t, err)
	assert.True(t, errors.Is(err, ledger.ErrNotFound))
	assert.False(t, shouldRequeue(err))
}

func TestHandleOcrCompletionBatchCardinality(t *testing.T) {
	r, _, _, _, _ := testRouters(t)

	body := []byte(`{"records":[{"JobId":"a"},{"JobId":"b"}]}`)
	err := r.HandleOcrCompletion(context.Background(), body)

	require.Error(t, err)
	assert.True(t, errors.Is(err, event.ErrBatchCardinality))
	assert.False(t, shouldRequeue(err))
}

func TestHandleWorkflowRun(t *testing.T) {
	r, _, _, _, runner := testRouters(t)

	in := workflow.RunInput{
		OcrTaskID:    "ocr-task-1",
		JobID:        "job-1",
		ConnectionID: "conn-1",
		UserID:       "user-1",
		InputFile:    "report.pdf",
	}
	body, err := json.Marshal(in)
	require.NoError(t, err)

	require.NoError(t, r.HandleWorkflowRun(context.Background(), body))
	require.Len(t, runner.inputs, 1)
	assert.Equal(t, in, runner.inputs[0])
}

func TestHandleWorkflowRunInvalidInput(t *testing.T) {
	r, _, _, _, runner := testRouters(t)

	err := r.HandleWorkflowRun(context.Background(), []byte(`{"job_id":""}`))

	require.Error(t, err)
	assert.True(t, errors.Is(err, event.ErrInvalidEvent))
	assert.Empty(t, runner.inputs)
	assert.False(t, shouldRequeue(err))
}

func TestHandleSpeechCompletion(t *testing.T) {
	r, led, _, notifier, _ := testRouters(t)
	led.bySpeechTask["speech-task-9"] = &ledger.Record{
		JobID:        "job-1",
		ConnectionID: "conn-1",
	}

	uri := "s3://uploads/user-1/job-1/audio/audio.speech-task-9.mp3"
	body := envelope(t, fmt.Sprintf(`{"taskId":"speech-task-9","taskStatus":"COMPLETED","outputUri":%q}`, uri))
	err := r.HandleSpeechCompletion(context.Background(), body)

	require.NoError(t, err)
	assert.Equal(t, []string{
		"Polly output is ready for App Job job-1",
		uri,
	}, notifier.messages)
}

func TestHandleSpeechCompletionUnknownTask(t *testing.T) {
	r, _, _, notifier, _ := testRouters(t)

	body := envelope(t, `{"taskId":"speech-task-unknown","taskStatus":"COMPLETED","outputUri":"s3://x"}`)
	err := r.HandleSpeechCompletion(context.Background(), body)

	require.Error(t, err)
	assert.True(t, errors.Is(err, ledger.ErrNotFound))
	assert.Empty(t, notifier.messages)
}

func TestShouldRequeueTransient(t *testing.T) {
	assert.True(t, shouldRequeue(errors.New("dial tcp: connection refused")))
	assert.False(t, shouldRequeue(ledger.ErrAmbiguousResult))
	assert.False(t, shouldRequeue(ledger.ErrTaskIDConflict))
	assert.False(t, shouldRequeue(workflow.ErrModerationRejected))
}
