package hound

import "errors"

// Code is a stable, API-facing error identifier. It is a string newtype,
// comparable, allocation-free, and implements error.
type Code string

func (c Code) Error() string { return string(c) }

// Canonical codes. The zero Code is never returned by a public call; absence
// of error is a nil error, not Code("").
const (
	ErrOOM         Code = "oom"
	ErrIOError     Code = "io_error"
	ErrInterrupted Code = "interrupted"

	ErrNullValue              Code = "null_value"
	ErrInvalidValue           Code = "invalid_value"
	ErrInvalidString          Code = "invalid_string"
	ErrQueueTooSmall          Code = "queue_too_small"
	ErrTooMuchDataRequested   Code = "too_much_data_requested"
	ErrDuplicateDataRequested Code = "duplicate_data_requested"

	ErrAlreadyRegistered Code = "driver_already_registered"
	ErrNotRegistered     Code = "driver_not_registered"
	ErrDriverInUse       Code = "driver_in_use"
	ErrAlreadyPresent    Code = "driver_already_present"
	ErrDriverUnsupported Code = "driver_unsupported"
	ErrDriverFail        Code = "driver_fail"
	ErrConflict          Code = "conflicting_drivers"
	ErrMissingDeviceIDs  Code = "missing_device_ids"
	ErrDevDoesNotExist   Code = "dev_does_not_exist"

	ErrNoDataRequested   Code = "no_data_requested"
	ErrDoesNotExist      Code = "data_id_does_not_exist"
	ErrPeriodUnsupported Code = "period_unsupported"
	ErrIDNotInSchema     Code = "id_not_in_schema"
	ErrDescDuplicate     Code = "desc_duplicate"

	ErrCtxActive      Code = "ctx_active"
	ErrCtxNotActive   Code = "ctx_not_active"
	ErrEmptyQueue     Code = "empty_queue"
	ErrMissingCB      Code = "missing_callback"
)

// Error wraps a Code with an operation name and an optional underlying
// cause, mirroring the Code-plus-wrapper idiom used for identifiers
// elsewhere in this stack.
type Error struct {
	Code Code
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Op + ": " + string(e.Code) + ": " + e.Err.Error()
	}
	return e.Op + ": " + string(e.Code)
}

func (e *Error) Unwrap() error { return e.Err }

// Is lets errors.Is(err, hound.ErrConflict) match a *Error carrying that
// code, not just a bare Code value.
func (e *Error) Is(target error) bool {
	c, ok := target.(Code)
	return ok && e.Code == c
}

// CodeOf extracts the Code from err, defaulting to "" when err is nil and
// to ErrDriverFail when err carries no recognizable code.
func CodeOf(err error) Code {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	var c Code
	if errors.As(err, &c) {
		return c
	}
	return ErrDriverFail
}

func newErr(op string, code Code) error {
	return &Error{Code: code, Op: op}
}

func wrapErr(op string, code Code, cause error) error {
	return &Error{Code: code, Op: op, Err: cause}
}
