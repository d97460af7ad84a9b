package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrTransient marks infrastructure failures expected to resolve on retry.
	ErrTransient = errors.New("transient failure")
	// ErrInput marks permanent input problems (missing or unusable audio).
	ErrInput = errors.New("input error")
	// ErrBackend marks transcription engine failures.
	ErrBackend = errors.New("backend error")
	// ErrExternalTool marks failures of external helper commands.
	ErrExternalTool = errors.New("external tool error")
	// ErrConfiguration marks unusable configuration discovered at runtime.
	ErrConfiguration = errors.New("configuration error")
)

// Wrap builds an error message that includes step context while tagging it
// with the provided marker for later classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, step, operation, message string, err error) error {
	detail := buildDetail(step, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// IsTransient reports whether an error should be surfaced to the task queue
// for redelivery instead of failing the job permanently.
func IsTransient(err error) bool {
	return errors.Is(err, ErrTransient)
}

func buildDetail(step, operation, message string) string {
	parts := make([]string, 0, 3)
	if step = strings.TrimSpace(step); step != "" {
		parts = append(parts, step)
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

// FailureMessage extracts a human-readable cause from a pipeline error,
// stripping the classification marker prefix when present.
func FailureMessage(err error) string {
	if err == nil {
		return ""
	}
	msg := strings.TrimSpace(err.Error())
	for _, marker := range []error{ErrTransient, ErrInput, ErrBackend, ErrExternalTool, ErrConfiguration} {
		prefix := marker.Error() + ": "
		if strings.HasPrefix(msg, prefix) {
			return strings.TrimPrefix(msg, prefix)
		}
	}
	return msg
}
