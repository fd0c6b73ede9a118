package core

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrAuthRequired is returned when an operation needs a signed-in owner.
	ErrAuthRequired = errors.New("authentication required")

	// ErrDuplicateParty is returned when a party with the same trimmed name
	// already exists in its directory. Callers treat it as a silent no-op.
	ErrDuplicateParty = errors.New("party already exists")

	// ErrRecordNotFound is returned by stores for unknown record ids.
	ErrRecordNotFound = errors.New("record not found")
)

// ValidationError reports every missing or invalid required field of a save
// attempt in one shot, so a batch fails atomically with a consolidated list.
type ValidationError struct {
	Missing []string
}

func (e *ValidationError) Add(field string) {
	e.Missing = append(e.Missing, field)
}

func (e *ValidationError) HasErrors() bool {
	return len(e.Missing) > 0
}

func (e *ValidationError) Error() string {
	return "missing required fields: " + strings.Join(e.Missing, ", ")
}

// StoreReadError wraps a failed list/read call against the record store.
type StoreReadError struct {
	Err error
}

func (e *StoreReadError) Error() string { return fmt.Sprintf("store read: %v", e.Err) }
func (e *StoreReadError) Unwrap() error { return e.Err }

// StoreWriteError wraps a failed create/delete call against the record store.
// FailedItems holds the zero-based indexes of the batch items that failed,
// so callers can retry just those.
type StoreWriteError struct {
	Err         error
	FailedItems []int
}

func (e *StoreWriteError) Error() string {
	if len(e.FailedItems) > 0 {
		return fmt.Sprintf("store write: %d item(s) failed: %v", len(e.FailedItems), e.Err)
	}
	return fmt.Sprintf("store write: %v", e.Err)
}

func (e *StoreWriteError) Unwrap() error { return e.Err }
