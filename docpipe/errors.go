package docpipe

import (
	"context"
	"errors"
	"fmt"

	"github.com/hazyhaar/docforge/guard"
)

// Kind classifies a pipeline failure. Mapping kinds to transport status
// codes is the caller's responsibility.
type Kind string

const (
	// Fatal failures: the whole call aborts with no partial output.
	KindDocumentLoad           Kind = "DocumentLoadError"
	KindUnsupportedImageFormat Kind = "UnsupportedImageFormat"
	KindEmptyInputSet          Kind = "EmptyInputSet"

	// Guardrail rejections, raised before or during processing.
	KindPageLimitExceeded        Kind = "PageLimitExceeded"
	KindPayloadTooLarge          Kind = "PayloadTooLarge"
	KindConcurrencyLimitExceeded Kind = "ConcurrencyLimitExceeded"
	KindRequestTimeout           Kind = "RequestTimeout"
	KindFileTypeMismatch         Kind = "FileTypeMismatch"

	// Per-resource failures. Recovered locally during extraction and
	// reconstruction; fatal during reverse composition.
	KindImageResolutionFailure Kind = "ImageResolutionFailure"
	KindImageEmbedFailure      Kind = "ImageEmbedFailure"

	KindInternal Kind = "Internal"
)

// Error is the structured failure returned by every pipeline operation.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf returns the Kind carried by err, or KindInternal for errors that
// did not originate in the pipeline.
func KindOf(err error) Kind {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return KindInternal
}

func failf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func fail(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// classifyGuard translates guard sentinel errors into structured kinds.
func classifyGuard(err error) *Error {
	switch {
	case errors.Is(err, guard.ErrPayloadTooLarge):
		return fail(KindPayloadTooLarge, "payload rejected", err)
	case errors.Is(err, guard.ErrPageLimitExceeded):
		return fail(KindPageLimitExceeded, "complexity pre-scan rejected", err)
	case errors.Is(err, guard.ErrConcurrencyLimitExceeded):
		return fail(KindConcurrencyLimitExceeded, "client over concurrency cap", err)
	case errors.Is(err, guard.ErrFileTypeMismatch):
		return fail(KindFileTypeMismatch, "format cross-validation failed", err)
	default:
		return fail(KindInternal, "guardrail failure", err)
	}
}

// classifyCtx maps a context error to the timeout kind when the deadline
// fired, so callers see RequestTimeout rather than a bare context error.
func classifyCtx(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fail(KindRequestTimeout, "wall-clock deadline exceeded", err)
	}
	return err
}
