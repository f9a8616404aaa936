package matchmaking

import "fmt"

// Kind is the closed set of failure classes an operation can report.
// Callers branch on Kind (or Code for the finer-grained cases) instead of
// matching on ad hoc strings.
type Kind int

const (
	KindValidation Kind = iota + 1
	KindConflict
	KindInsufficientFunds
	KindNotFound
	KindTimeout
	KindInternal
)

// Error is the typed result every matchmaking operation returns on failure.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Status  int // HTTP status for the API edge
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func errValidation(code, msg string) *Error {
	return &Error{Kind: KindValidation, Code: code, Message: msg, Status: 400}
}

func errConflict(code, msg string, status int) *Error {
	return &Error{Kind: KindConflict, Code: code, Message: msg, Status: status}
}

func errInsufficient(code, msg string) *Error {
	return &Error{Kind: KindInsufficientFunds, Code: code, Message: msg, Status: 400}
}

func errNotFound(code, msg string) *Error {
	return &Error{Kind: KindNotFound, Code: code, Message: msg, Status: 404}
}

func errInternal(msg string, err error) *Error {
	return &Error{Kind: KindInternal, Code: "internal_error", Message: msg, Status: 500, Err: err}
}

// AsError returns err as a *Error, wrapping unexpected failures as internal.
func AsError(err error) *Error {
	if err == nil {
		return nil
	}
	if e, ok := err.(*Error); ok {
		return e
	}
	return errInternal("unexpected error", err)
}
