// Package fault defines the error taxonomy shared across the extraction
// pipeline. Every fatal error that crosses the pipeline boundary carries a
// machine-readable Kind alongside its human-readable message.
package fault

import (
	"context"
	"errors"
	"fmt"
)

// Kind classifies an extraction failure.
type Kind int

const (
	// KindUnknown is the zero value; errors without a taxonomy entry.
	KindUnknown Kind = iota

	// KindInputRejected covers unsupported document kinds, empty blobs,
	// and password-protected PDFs.
	KindInputRejected

	// KindExtractionEmpty means no text or no records were produced by
	// any branch.
	KindExtractionEmpty

	// KindTransport covers LLM/OCR/storage network errors and timeouts.
	KindTransport

	// KindUpstreamQuota covers provider rate-limit and quota errors.
	KindUpstreamQuota

	// KindCacheUnavailable means the persistent cache is configured but
	// unreachable. Non-fatal: the pipeline proceeds without cache.
	KindCacheUnavailable

	// KindCancelled means the caller aborted the extraction.
	KindCancelled

	// KindInternal covers assertion violations such as a schema
	// redeclaration attempt.
	KindInternal
)

// String returns the kind identifier used in logs and API responses.
func (k Kind) String() string {
	switch k {
	case KindInputRejected:
		return "input_rejected"
	case KindExtractionEmpty:
		return "extraction_empty"
	case KindTransport:
		return "transport_failure"
	case KindUpstreamQuota:
		return "upstream_quota"
	case KindCacheUnavailable:
		return "cache_unavailable"
	case KindCancelled:
		return "cancelled"
	case KindInternal:
		return "internal"
	default:
		return "unknown"
	}
}

// Error is a classified pipeline error.
type Error struct {
	Kind Kind
	Msg  string

	// PasswordProtected distinguishes encrypted PDFs within
	// KindInputRejected.
	PasswordProtected bool

	wrapped error
}

func (e *Error) Error() string {
	if e.wrapped != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.wrapped)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.wrapped }

// New creates a classified error.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// Wrap classifies an existing error. The wrapped error remains reachable
// via errors.Is/errors.As.
func Wrap(kind Kind, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...), wrapped: err}
}

// KindOf extracts the Kind from an error chain. Bare context errors map
// to KindCancelled even when they were never wrapped.
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return KindCancelled
	}
	return KindUnknown
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}
