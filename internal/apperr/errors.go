// Package apperr defines the error vocabulary shared by the repository and
// every transport. Transports render these errors as text.
package apperr

import "errors"

var (
	ErrNotConnected = errors.New("database not connected")
	ErrInvalidID    = errors.New("invalid note id")
	ErrNotFound     = errors.New("note not found")
	ErrInvalidInput = errors.New("invalid input")

	// ErrStore matches any *StoreError via errors.Is.
	ErrStore = errors.New("store error")
)

// StoreError carries an opaque failure reported by the document store.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return "store error: " + e.Op + ": " + e.Err.Error()
}

func (e *StoreError) Unwrap() error { return e.Err }

// Is reports whether target is ErrStore.
func (e *StoreError) Is(target error) bool { return target == ErrStore }

// Store wraps err as a StoreError for op. A nil err yields nil.
func Store(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StoreError{Op: op, Err: err}
}
