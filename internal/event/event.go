// Package event parses the completion notifications the OCR and speech
// services push through the topic bridge. Payloads are validated against a
// JSON schema at the boundary so a malformed message fails as
// ErrInvalidEvent instead of an unclassified missing-field fault.
package event

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

var (
	// ErrBatchCardinality is returned when a notification envelope does not
	// contain exactly one record. Delivery is configured one message per
	// invocation; anything else means the topic wiring is wrong.
	ErrBatchCardinality = errors.New("notification batch must contain exactly one record")

	// ErrInvalidEvent is returned when a record does not match the expected
	// notification shape.
	ErrInvalidEvent = errors.New("invalid notification payload")
)

// Envelope is the wire format the callback bridge publishes onto the
// completion queues: a batch of raw service messages.
type Envelope struct {
	Records []json.RawMessage `json:"records"`
}

// TextractNotification is the message Textract publishes to its SNS topic
// when an async text-detection job finishes. Field names follow the service.
type TextractNotification struct {
	JobID            string `json:"JobId"`
	Status           string `json:"Status"`
	DocumentLocation struct {
		S3Bucket     string `json:"S3Bucket"`
		S3ObjectName string `json:"S3ObjectName"`
	} `json:"DocumentLocation"`
}

// PollyNotification is the message Polly publishes when a speech synthesis
// task finishes.
type PollyNotification struct {
	TaskID     string `json:"taskId"`
	TaskStatus string `json:"taskStatus"`
	OutputURI  string `json:"outputUri"`
}

var textractSchema = jsonschema.MustCompileString("textract-notification.json", `{
	"type": "object",
	"required": ["JobId", "Status", "DocumentLocation"],
	"properties": {
		"JobId": {"type": "string", "minLength": 1},
		"Status": {"type": "string", "minLength": 1},
		"DocumentLocation": {
			"type": "object",
			"required": ["S3ObjectName"],
			"properties": {
				"S3Bucket": {"type": "string"},
				"S3ObjectName": {"type": "string", "minLength": 1}
			}
		}
	}
}`)

var pollySchema = jsonschema.MustCompileString("polly-notification.json", `{
	"type": "object",
	"required": ["taskId", "taskStatus", "outputUri"],
	"properties": {
		"taskId": {"type": "string", "minLength": 1},
		"taskStatus": {"type": "string", "minLength": 1},
		"outputUri": {"type": "string"}
	}
}`)

// NewEnvelope wraps a single raw service message into the queue wire format.
func NewEnvelope(message []byte) ([]byte, error) {
	return json.Marshal(Envelope{Records: []json.RawMessage{message}})
}

// DecodeTextract parses a completion envelope from the OCR topic.
func DecodeTextract(body []byte) (*TextractNotification, error) {
	record, err := singleRecord(body)
	if err != nil {
		return nil, err
	}

	if err := validate(textractSchema, record); err != nil {
		return nil, err
	}

	var n TextractNotification
	if err := json.Unmarshal(record, &n); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidEvent, err)
	}

	return &n, nil
}

// DecodePolly parses a completion envelope from the speech topic.
func DecodePolly(body []byte) (*PollyNotification, error) {
	record, err := singleRecord(body)
	if err != nil {
		return nil, err
	}

	if err := validate(pollySchema, record); err != nil {
		return nil, err
	}

	var n PollyNotification
	if err := json.Unmarshal(record, &n); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidEvent, err)
	}

	return &n, nil
}

func singleRecord(body []byte) (json.RawMessage, error) {
	var env Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidEvent, err)
	}

	if len(env.Records) != 1 {
		return nil, fmt.Errorf("%w: got %d", ErrBatchCardinality, len(env.Records))
	}

	return env.Records[0], nil
}

func validate(schema *jsonschema.Schema, record json.RawMessage) error {
	var v any
	if err := json.Unmarshal(record, &v); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidEvent, err)
	}

	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidEvent, err)
	}

	return nil
}
