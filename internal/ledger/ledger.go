// Package ledger persists the job-correlation table that threads the
// pipeline together: one record per submitted document, looked up by job id
// or by the task ids handed back from the OCR and speech services.
package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// UpdatePolicy controls how SetSpeechTaskID treats a record whose speech
// task id is already set to a different value.
type UpdatePolicy string

const (
	// PolicyStrict surfaces a conflict instead of overwriting. A repeated
	// update with the same task id still succeeds (redelivery tolerance).
	PolicyStrict UpdatePolicy = "strict"
	// PolicyOverwrite unconditionally replaces the stored task id.
	PolicyOverwrite UpdatePolicy = "overwrite"
)

// Record is the sole persisted entity: one row per job.
type Record struct {
	JobID        string    `db:"job_id"`
	UserID       string    `db:"user_id"`
	ConnectionID string    `db:"connection_id"`
	StartTime    time.Time `db:"start_time"`
	InputFile    string    `db:"input_file"`
	OcrTaskID    string    `db:"ocr_task_id"`
	SpeechTaskID *string   `db:"speech_task_id"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
}

// Store handles all database operations against the jobs table
type Store struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// NewStore creates a new Store instance
func NewStore(db *sqlx.DB, logger *slog.Logger) *Store {
	return &Store{
		db:     db,
		logger: logger,
	}
}

const recordColumns = `job_id, user_id, connection_id, start_time, input_file, ocr_task_id, speech_task_id, created_at, updated_at`

// Create inserts a new record. It fails with ErrDuplicateJob if the job id
// is already present.
func (s *Store) Create(ctx context.Context, rec *Record) error {
	now := time.Now().UTC()
	rec.CreatedAt = now
	rec.UpdatedAt = now

	query := s.db.Rebind(`
		INSERT INTO jobs (` + recordColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)

	_, err := s.db.ExecContext(
		ctx,
		query,
		rec.JobID,
		rec.UserID,
		rec.ConnectionID,
		rec.StartTime,
		rec.InputFile,
		rec.OcrTaskID,
		rec.SpeechTaskID,
		rec.CreatedAt,
		rec.UpdatedAt,
	)

	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %s", ErrDuplicateJob, rec.JobID)
		}
		return fmt.Errorf("failed to create ledger record: %w", err)
	}

	s.logger.Info("Ledger record created",
		slog.String("job_id", rec.JobID),
		slog.String("ocr_task_id", rec.OcrTaskID),
	)

	return nil
}

// Get retrieves a record by its primary job id
func (s *Store) Get(ctx context.Context, jobID string) (*Record, error) {
	query := s.db.Rebind(`SELECT ` + recordColumns + ` FROM jobs WHERE job_id = ?`)

	var rec Record
	if err := s.db.GetContext(ctx, &rec, query, jobID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, jobID)
		}
		return nil, fmt.Errorf("failed to get ledger record: %w", err)
	}

	return &rec, nil
}

// FindByOcrTaskID resolves a record via the OCR task id secondary index.
// Zero matches is ErrNotFound; more than one is ErrAmbiguousResult.
func (s *Store) FindByOcrTaskID(ctx context.Context, taskID string) (*Record, error) {
	return s.findByTaskID(ctx, "ocr_task_id", taskID)
}

// FindBySpeechTaskID resolves a record via the speech task id secondary index.
func (s *Store) FindBySpeechTaskID(ctx context.Context, taskID string) (*Record, error) {
	return s.findByTaskID(ctx, "speech_task_id", taskID)
}

func (s *Store) findByTaskID(ctx context.Context, column, taskID string) (*Record, error) {
	// LIMIT 2 is enough to tell "exactly one" from "too many"
	query := s.db.Rebind(`SELECT ` + recordColumns + ` FROM jobs WHERE ` + column + ` = ? LIMIT 2`)

	var recs []Record
	if err := s.db.SelectContext(ctx, &recs, query, taskID); err != nil {
		return nil, fmt.Errorf("failed to query ledger by %s: %w", column, err)
	}

	switch len(recs) {
	case 0:
		return nil, fmt.Errorf("%w: %s=%s", ErrNotFound, column, taskID)
	case 1:
		return &recs[0], nil
	default:
		return nil, fmt.Errorf("%w: %s=%s", ErrAmbiguousResult, column, taskID)
	}
}

// SetSpeechTaskID records the speech task id on an existing job. Under
// PolicyStrict a repeated call with the same task id is a no-op success,
// while a different value fails with ErrTaskIDConflict. PolicyOverwrite
// replaces whatever is stored.
func (s *Store) SetSpeechTaskID(ctx context.Context, jobID, taskID string, policy UpdatePolicy) error {
	var query string
	var args []any

	switch policy {
	case PolicyOverwrite:
		query = `UPDATE jobs SET speech_task_id = ?, updated_at = ? WHERE job_id = ?`
		args = []any{taskID, time.Now().UTC(), jobID}
	default:
		query = `
			UPDATE jobs SET speech_task_id = ?, updated_at = ?
			WHERE job_id = ? AND (speech_task_id IS NULL OR speech_task_id = ?)
		`
		args = []any{taskID, time.Now().UTC(), jobID, taskID}
	}

	result, err := s.db.ExecContext(ctx, s.db.Rebind(query), args...)
	if err != nil {
		return fmt.Errorf("failed to set speech task id: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rows == 0 {
		// Either the job is missing or, under strict policy, the stored
		// task id differs. Disambiguate with a point read.
		if _, getErr := s.Get(ctx, jobID); getErr != nil {
			return getErr
		}
		return fmt.Errorf("%w: job_id=%s task_id=%s", ErrTaskIDConflict, jobID, taskID)
	}

	s.logger.Info("Speech task id recorded",
		slog.String("job_id", jobID),
		slog.String("speech_task_id", taskID),
	)

	return nil
}

// isUniqueViolation reports whether err is a primary-key/unique violation
// from either lib/pq or the sqlite driver used in tests.
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
