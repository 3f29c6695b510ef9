package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors tag failures with a stable kind. Collaborator wrappers and
// stage handlers classify everything they return with one of these so the
// job record and client-facing status always carry a finite error vocabulary.
var (
	ErrValidation        = errors.New("validation error")
	ErrSourceInvalid     = errors.New("source invalid")
	ErrRenderUnavailable = errors.New("rendering unavailable")
	ErrMux               = errors.New("mux error")
	ErrAuth              = errors.New("auth error")
	ErrInvalidVoice      = errors.New("invalid voice")
	ErrTransient         = errors.New("transient failure")
	ErrRateLimited       = errors.New("rate limited")
	ErrTimeout           = errors.New("timeout")
	ErrInterrupted       = errors.New("interrupted")
	ErrInternal          = errors.New("internal error")
)

// Kind is the persisted identifier for an error class.
type Kind string

const (
	KindValidation        Kind = "validation"
	KindSourceInvalid     Kind = "source_invalid"
	KindRenderUnavailable Kind = "render_unavailable"
	KindMux               Kind = "mux_error"
	KindAuth              Kind = "auth"
	KindInvalidVoice      Kind = "invalid_voice"
	KindTransient         Kind = "transient"
	KindRateLimited       Kind = "rate_limited"
	KindTimeout           Kind = "timeout"
	KindInterrupted       Kind = "interrupted"
	KindInternal          Kind = "internal"
)

// Wrap builds an error message that includes stage context while tagging it
// with the provided marker for later classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrInternal
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// KindOf maps an error to its persisted kind. Context deadline errors count
// as timeouts even when unwrapped; anything unrecognized is internal rather
// than propagated raw.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrValidation):
		return KindValidation
	case errors.Is(err, ErrSourceInvalid):
		return KindSourceInvalid
	case errors.Is(err, ErrRenderUnavailable):
		return KindRenderUnavailable
	case errors.Is(err, ErrMux):
		return KindMux
	case errors.Is(err, ErrAuth):
		return KindAuth
	case errors.Is(err, ErrInvalidVoice):
		return KindInvalidVoice
	case errors.Is(err, ErrRateLimited):
		return KindRateLimited
	case errors.Is(err, ErrTransient):
		return KindTransient
	case errors.Is(err, ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return KindTimeout
	case errors.Is(err, ErrInterrupted):
		return KindInterrupted
	default:
		return KindInternal
	}
}

// Retryable reports whether an error may succeed on another attempt.
// Only transient and rate-limit failures qualify; everything else recurs.
func Retryable(err error) bool {
	return errors.Is(err, ErrTransient) || errors.Is(err, ErrRateLimited)
}

// Message extracts the human-readable portion of a classified error,
// stripping the sentinel prefix when present.
func Message(err error) string {
	if err == nil {
		return ""
	}
	msg := err.Error()
	for _, marker := range []error{
		ErrValidation, ErrSourceInvalid, ErrRenderUnavailable, ErrMux,
		ErrAuth, ErrInvalidVoice, ErrTransient, ErrRateLimited,
		ErrTimeout, ErrInterrupted, ErrInternal,
	} {
		prefix := marker.Error() + ": "
		if strings.HasPrefix(msg, prefix) {
			return strings.TrimPrefix(msg, prefix)
		}
	}
	return msg
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
