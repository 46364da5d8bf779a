// Package clients defines the narrow interfaces the pipeline needs from its
// managed-service collaborators, plus the AWS implementations. Handlers and
// the workflow engine depend on the interfaces only, so tests substitute
// fakes.
package clients

import (
	"context"
	"errors"
)

// ErrObjectNotFound is returned by ObjectStore.GetObject when the key does
// not exist, as opposed to the storage service failing.
var ErrObjectNotFound = errors.New("object not found")

// ObjectStore is the object storage collaborator (S3).
type ObjectStore interface {
	GetObject(ctx context.Context, bucket, key string) ([]byte, error)
	PutObject(ctx context.Context, bucket, key string, data []byte, contentType string) error
}

// Line is one extracted text line with its detection confidence (0-100).
type Line struct {
	Text       string
	Confidence float64
}

// TextDetectionResult is the outcome of an async text-detection task.
type TextDetectionResult struct {
	Status string
	Lines  []Line
}

// OCR is the document-understanding collaborator (Textract).
type OCR interface {
	// StartTextDetection submits an async job against an object in storage
	// and returns the service task id. Completion arrives via the
	// notification topic.
	StartTextDetection(ctx context.Context, bucket, key string) (string, error)
	GetTextDetection(ctx context.Context, taskID string) (*TextDetectionResult, error)
}

// Speech is the speech-synthesis collaborator (Polly).
type Speech interface {
	// StartSynthesis submits an async synthesis task writing MP3 audio
	// under the given output prefix and returns the task id.
	StartSynthesis(ctx context.Context, text, bucket, keyPrefix string) (string, error)
}

// Notifier pushes status text over the live per-user channel. Delivery is
// best effort; callers log failures and move on.
type Notifier interface {
	Push(ctx context.Context, connectionID, message string) error
}
