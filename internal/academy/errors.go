package academy

import (
	"errors"
	"fmt"
)

// Kind classifies failures the core reports to its callers.
type Kind int

const (
	KindUnknown Kind = iota
	KindNotFound
	KindValidation
	KindPermissionDenied
	KindConfigurationGap
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindValidation:
		return "validation_failure"
	case KindPermissionDenied:
		return "permission_denied"
	case KindConfigurationGap:
		return "configuration_gap"
	default:
		return "unknown"
	}
}

// ErrNotFound is returned by Store lookups that match no row.
var ErrNotFound = errors.New("not found")

type Error struct {
	Kind Kind
	Code string
	Err  error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	if e.Code != "" {
		return e.Code
	}
	return e.Kind.String()
}

func (e *Error) Unwrap() error { return e.Err }

// NotFound wraps ErrNotFound so errors.Is(err, ErrNotFound) keeps working.
func NotFound(format string, args ...any) error {
	return &Error{Kind: KindNotFound, Code: "not_found", Err: fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrNotFound)}
}

func Invalid(format string, args ...any) error {
	return &Error{Kind: KindValidation, Code: "invalid", Err: fmt.Errorf(format, args...)}
}

func Denied(code, format string, args ...any) error {
	return &Error{Kind: KindPermissionDenied, Code: code, Err: fmt.Errorf(format, args...)}
}

func Gap(code, format string, args ...any) error {
	return &Error{Kind: KindConfigurationGap, Code: code, Err: fmt.Errorf(format, args...)}
}

// KindOf reports the kind of err. Bare ErrNotFound from a store counts as NotFound.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	if errors.Is(err, ErrNotFound) {
		return KindNotFound
	}
	return KindUnknown
}

// CodeOf returns the machine-readable code carried by err, if any.
func CodeOf(err error) string {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Code
	}
	return ""
}
