package ledger

import "errors"

var (
	// ErrNotFound is returned when no record matches the lookup key
	ErrNotFound = errors.New("job not found in ledger")

	// ErrDuplicateJob is returned when creating a record whose job id already exists
	ErrDuplicateJob = errors.New("job id already exists in ledger")

	// ErrAmbiguousResult is returned when a secondary-index lookup matches more
	// than one record, which is a data-consistency fault
	ErrAmbiguousResult = errors.New("task id matches more than one ledger record")

	// ErrTaskIDConflict is returned under the strict update policy when a
	// speech task id is already set to a different value
	ErrTaskIDConflict = errors.New("speech task id already set to a different value")
)
