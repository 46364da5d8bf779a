package handler

import (
	"context"
	"log/slog"

	"github.com/docuvoice/backend/internal/clients"
	"github.com/docuvoice/backend/internal/ledger"
)

// Ledger is the slice of the job ledger the API needs
type Ledger interface {
	Create(ctx context.Context, rec *ledger.Record) error
	Get(ctx context.Context, jobID string) (*ledger.Record, error)
}

// Publisher forwards completion notifications onto the internal queues
type Publisher interface {
	PublishWithRetry(ctx context.Context, routingKey string, body []byte, contentType string) error
}

// Dependencies holds all dependencies needed by handlers
type Dependencies struct {
	Logger           *slog.Logger
	Ledger           Ledger
	Store            clients.ObjectStore
	OCR              clients.OCR
	Notifier         clients.Notifier
	Publisher        Publisher
	UploadBucket     string
	OcrRoutingKey    string
	SpeechRoutingKey string
}

// JobHandler handles job submission and lookup
type JobHandler struct {
	logger       *slog.Logger
	ledger       Ledger
	store        clients.ObjectStore
	ocr          clients.OCR
	notifier     clients.Notifier
	uploadBucket string
}

// NewJobHandler creates a JobHandler from the shared dependencies
func NewJobHandler(deps *Dependencies) *JobHandler {
	return &JobHandler{
		logger:       deps.Logger,
		ledger:       deps.Ledger,
		store:        deps.Store,
		ocr:          deps.OCR,
		notifier:     deps.Notifier,
		uploadBucket: deps.UploadBucket,
	}
}

// FileHandler proxies uploads and downloads to object storage
type FileHandler struct {
	logger       *slog.Logger
	store        clients.ObjectStore
	uploadBucket string
}

// NewFileHandler creates a FileHandler from the shared dependencies
func NewFileHandler(deps *Dependencies) *FileHandler {
	return &FileHandler{
		logger:       deps.Logger,
		store:        deps.Store,
		uploadBucket: deps.UploadBucket,
	}
}

// CallbackHandler bridges SNS completion notifications onto the queues
type CallbackHandler struct {
	logger           *slog.Logger
	publisher        Publisher
	ocrRoutingKey    string
	speechRoutingKey string
}

// NewCallbackHandler creates a CallbackHandler from the shared dependencies
func NewCallbackHandler(deps *Dependencies) *CallbackHandler {
	return &CallbackHandler{
		logger:           deps.Logger,
		publisher:        deps.Publisher,
		ocrRoutingKey:    deps.OcrRoutingKey,
		speechRoutingKey: deps.SpeechRoutingKey,
	}
}
