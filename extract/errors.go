package extract

import (
	"errors"
	"fmt"
)

// Kind classifies an extraction failure.
type Kind int

const (
	// KindValidation covers rejected inputs: empty data, bad config.
	KindValidation Kind = iota
	// KindParsing covers malformed documents.
	KindParsing
	// KindUnsupportedFormat covers formats no extractor handles.
	KindUnsupportedFormat
	// KindOCR covers recognition engine failures.
	KindOCR
	// KindRendering covers page rasterization failures.
	KindRendering
	// KindCache covers durable store failures.
	KindCache
	// KindIO covers file system failures.
	KindIO
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindParsing:
		return "parsing"
	case KindUnsupportedFormat:
		return "unsupported format"
	case KindOCR:
		return "ocr"
	case KindRendering:
		return "rendering"
	case KindCache:
		return "cache"
	case KindIO:
		return "io"
	default:
		return "unknown"
	}
}

// Error is the failure type returned by every operation in this package.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

// newError builds an *Error with a formatted message.
func newError(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// wrapError wraps err unless it already carries a Kind.
func wrapError(kind Kind, err error, format string, args ...any) *Error {
	var ee *Error
	if errors.As(err, &ee) {
		return ee
	}
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...), Err: err}
}

// KindOf reports the Kind carried by err, or KindParsing when err is
// not an *Error.
func KindOf(err error) Kind {
	var ee *Error
	if errors.As(err, &ee) {
		return ee.Kind
	}
	return KindParsing
}

// IsKind reports whether err is an *Error of the given kind.
func IsKind(err error, kind Kind) bool {
	var ee *Error
	return errors.As(err, &ee) && ee.Kind == kind
}
