package repositories

import "fmt"

// Error is the concrete RepositoryError used by the bundled implementations.
type Error struct {
	Op          string
	Msg         string
	Err         error
	NotFound    bool
	Unavailable bool
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) IsNotFound() bool { return e.NotFound }

func (e *Error) IsUnavailable() bool { return e.Unavailable }

// NewNotFound builds a not-found repository error.
func NewNotFound(op, msg string) *Error {
	return &Error{Op: op, Msg: msg, NotFound: true}
}

// NewUnavailable builds an unavailable repository error wrapping the cause.
func NewUnavailable(op, msg string, err error) *Error {
	return &Error{Op: op, Msg: msg, Err: err, Unavailable: true}
}
