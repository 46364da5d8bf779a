package workflow

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docuvoice/backend/internal/clients"
	"github.com/docuvoice/backend/internal/ledger"
	"github.com/docuvoice/backend/shared/logger"
)

type fakeOCR struct {
	result *clients.TextDetectionResult
	err    error
}

func (f *fakeOCR) StartTextDetection(ctx context.Context, bucket, key string) (string, error) {
	return "", errors.New("not used")
}

func (f *fakeOCR) GetTextDetection(ctx context.Context, taskID string) (*clients.TextDetectionResult, error) {
	return f.result, f.err
}

type fakeStore struct {
	mu   sync.Mutex
	puts map[string][]byte
	err  error
}

func (f *fakeStore) GetObject(ctx context.Context, bucket, key string) ([]byte, error) {
	return nil, errors.New("not used")
}

func (f *fakeStore) PutObject(ctx context.Context, bucket, key string, data []byte, contentType string) error {
	if f.err != nil {
		return f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.puts == nil {
		f.puts = make(map[string][]byte)
	}
	f.puts[fmt.Sprintf("%s/%s", bucket, key)] = data
	return nil
}

type fakeSpeech struct {
	taskID string
	err    error
	calls  int
	text   string
}

func (f *fakeSpeech) StartSynthesis(ctx context.Context, text, bucket, keyPrefix string) (string, error) {
	f.calls++
	f.text = text
	return f.taskID, f.err
}

type fakeNotifier struct {
	mu       sync.Mutex
	messages []string
}

func (f *fakeNotifier) Push(ctx context.Context, connectionID, message string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = append(f.messages, message)
	return nil
}

type fakeLedger struct {
	jobID  string
	taskID string
	calls  int
	err    error
}

func (f *fakeLedger) SetSpeechTaskID(ctx context.Context, jobID, taskID string, policy ledger.UpdatePolicy) error {
	f.calls++
	f.jobID = jobID
	f.taskID = taskID
	return f.err
}

func testInput() RunInput {
	return RunInput{
		OcrTaskID:    "ocr-1",
		JobID:        "job-1",
		ConnectionID: "conn-1",
		UserID:       "user-1",
		InputFile:    "scan.pdf",
	}
}

func newTestEngine(ocr *fakeOCR, store *fakeStore, speech *fakeSpeech, notifier *fakeNotifier, led *fakeLedger, denylist []string) *Engine {
	return NewEngine(&Config{
		Logger:   logger.NewDefault().Logger,
		OCR:      ocr,
		Store:    store,
		Speech:   speech,
		Notifier: notifier,
		Ledger:   led,
		Bucket:   "uploads",
		Denylist: denylist,
	})
}

func TestRunHappyPath(t *testing.T) {
	ocr := &fakeOCR{result: &clients.TextDetectionResult{
		Status: "SUCCEEDED",
		Lines: []clients.Line{
			{Text: "A", Confidence: 90},
			{Text: "B", Confidence: 70},
			{Text: "C", Confidence: 80},
		},
	}}
	store := &fakeStore{}
	speech := &fakeSpeech{taskID: "speech-1"}
	notifier := &fakeNotifier{}
	led := &fakeLedger{}

	engine := newTestEngine(ocr, store, speech, notifier, led, nil)
	require.NoError(t, engine.Run(context.Background(), testInput()))

	// threshold is inclusive: 70 dropped, 80 and 90 kept in order
	assert.Equal(t, []byte("A\nC"), store.puts["uploads/user-1/job-1/text/text.txt"])
	assert.Equal(t, "A\nC", speech.text)
	assert.Equal(t, 1, speech.calls)
	assert.Equal(t, 1, led.calls)
	assert.Equal(t, "job-1", led.jobID)
	assert.Equal(t, "speech-1", led.taskID)

	assert.Contains(t, notifier.messages, "Text retrieved from Textract")
	assert.Contains(t, notifier.messages, "Text stored to S3")
	assert.Contains(t, notifier.messages, "Text moderation succeeded")
	assert.Contains(t, notifier.messages, "Invoking Polly")
}

func TestRunDetectionFailed(t *testing.T) {
	ocr := &fakeOCR{result: &clients.TextDetectionResult{Status: "FAILED"}}
	store := &fakeStore{}
	speech := &fakeSpeech{taskID: "speech-1"}
	led := &fakeLedger{}

	engine := newTestEngine(ocr, store, speech, &fakeNotifier{}, led, nil)
	err := engine.Run(context.Background(), testInput())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTextDetectionFailed)
	assert.Empty(t, store.puts)
	assert.Zero(t, speech.calls)
	assert.Zero(t, led.calls)
}

func TestRunModerationRejected(t *testing.T) {
	ocr := &fakeOCR{result: &clients.TextDetectionResult{
		Status: "SUCCEEDED",
		Lines:  []clients.Line{{Text: "This badword here", Confidence: 99}},
	}}
	store := &fakeStore{}
	speech := &fakeSpeech{taskID: "speech-1"}
	notifier := &fakeNotifier{}
	led := &fakeLedger{}

	engine := newTestEngine(ocr, store, speech, notifier, led, []string{"badword"})
	err := engine.Run(context.Background(), testInput())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrModerationRejected)

	// the store branch committed before moderation failed and is not
	// rolled back
	assert.Len(t, store.puts, 1)
	assert.Zero(t, speech.calls)
	assert.Zero(t, led.calls)
	assert.Contains(t, notifier.messages, "ERROR - Text moderation failed")
}

func TestRunStoreFailureBlocksSpeech(t *testing.T) {
	ocr := &fakeOCR{result: &clients.TextDetectionResult{
		Status: "SUCCEEDED",
		Lines:  []clients.Line{{Text: "fine", Confidence: 95}},
	}}
	store := &fakeStore{err: errors.New("bucket unavailable")}
	speech := &fakeSpeech{taskID: "speech-1"}
	led := &fakeLedger{}

	engine := newTestEngine(ocr, store, speech, &fakeNotifier{}, led, nil)
	err := engine.Run(context.Background(), testInput())
	require.Error(t, err)
	assert.Zero(t, speech.calls)
	assert.Zero(t, led.calls)
}

func TestRunLedgerConflictSurfaces(t *testing.T) {
	ocr := &fakeOCR{result: &clients.TextDetectionResult{
		Status: "SUCCEEDED",
		Lines:  []clients.Line{{Text: "fine", Confidence: 95}},
	}}
	led := &fakeLedger{err: ledger.ErrTaskIDConflict}

	engine := newTestEngine(ocr, &fakeStore{}, &fakeSpeech{taskID: "speech-2"}, &fakeNotifier{}, led, nil)
	err := engine.Run(context.Background(), testInput())
	require.Error(t, err)
	assert.ErrorIs(t, err, ledger.ErrTaskIDConflict)
}
