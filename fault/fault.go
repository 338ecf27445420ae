package fault

import (
	"errors"
	"fmt"

	extErrors "github.com/pkg/errors"
)

// Kind tags a Fault with the failure category the caller should react to
type Kind string

const (
	KindValidation Kind = "Validation"
	KindNotFound   Kind = "NotFound"
	KindConflict   Kind = "Conflict"
	KindStore      Kind = "Store"
)

// Fault is the single error type crossing component boundaries.
// It propagates unchanged from manager to caller.
type Fault struct {
	Kind    Kind
	Message string
	cause   error
}

func (f *Fault) Error() string {
	if f.cause != nil {
		return fmt.Sprintf("%s: %s: %v", f.Kind, f.Message, f.cause)
	}
	return fmt.Sprintf("%s: %s", f.Kind, f.Message)
}

func (f *Fault) Unwrap() error {
	return f.cause
}

// Validationf reports a caller-supplied argument violating a precondition
func Validationf(format string, args ...interface{}) *Fault {
	return &Fault{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

// NotFoundf reports a referenced entity that does not exist
func NotFoundf(format string, args ...interface{}) *Fault {
	return &Fault{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

// Conflictf reports an operation that would violate an invariant
func Conflictf(format string, args ...interface{}) *Fault {
	return &Fault{Kind: KindConflict, Message: fmt.Sprintf(format, args...)}
}

// Store wraps an underlying store failure with context
func Store(err error, msg string) *Fault {
	return &Fault{Kind: KindStore, Message: msg, cause: extErrors.Wrap(err, msg)}
}

// IsKind reports whether err is a Fault of the given kind
func IsKind(err error, kind Kind) bool {
	var f *Fault
	if errors.As(err, &f) {
		return f.Kind == kind
	}
	return false
}
