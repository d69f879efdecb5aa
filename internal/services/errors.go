package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrPreconditionNotMet marks an advance attempted before every
	// preceding stage produced its artifact.
	ErrPreconditionNotMet = errors.New("precondition not met")
	// ErrOperationInProgress marks a second collaborator call while one is
	// already in flight for the same project.
	ErrOperationInProgress = errors.New("operation in progress")
	// ErrCollaboratorFailed marks a terminal failure reported by an
	// external collaborator operation.
	ErrCollaboratorFailed = errors.New("collaborator failed")
	// ErrPartialVariantFailure marks a render run where at least one
	// variant failed while others completed.
	ErrPartialVariantFailure = errors.New("partial variant failure")

	ErrExternalTool  = errors.New("external tool error")
	ErrValidation    = errors.New("validation error")
	ErrConfiguration = errors.New("configuration error")
	ErrNotFound      = errors.New("not found")
	ErrTimeout       = errors.New("timeout")
	ErrTransient     = errors.New("transient failure")
)

// Wrap builds an error message that includes stage context while tagging it
// with the provided marker for later classification. The marker should be
// one of the exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Retryable reports whether the failure is one the user can resolve by
// issuing a regenerate call, as opposed to fixing configuration first.
func Retryable(err error) bool {
	if err == nil {
		return false
	}
	switch {
	case errors.Is(err, ErrConfiguration), errors.Is(err, ErrValidation):
		return false
	default:
		return true
	}
}

// Message extracts the human-readable portion of a wrapped error, stripping
// the sentinel prefix when present.
func Message(err error) string {
	if err == nil {
		return ""
	}
	msg := err.Error()
	for _, marker := range []error{
		ErrPreconditionNotMet, ErrOperationInProgress, ErrCollaboratorFailed,
		ErrPartialVariantFailure, ErrExternalTool, ErrValidation,
		ErrConfiguration, ErrNotFound, ErrTimeout, ErrTransient,
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
