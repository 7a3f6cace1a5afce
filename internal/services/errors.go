package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrExternalTool  = errors.New("external tool error")
	ErrValidation    = errors.New("validation error")
	ErrConfiguration = errors.New("configuration error")
	ErrNotFound      = errors.New("not found")
	ErrTimeout       = errors.New("timeout")
	ErrTransient     = errors.New("transient failure")
)

// Wrap builds an error message that includes stage context while tagging it with
// the provided marker for later classification. The marker should be one of the
// exported sentinel errors above.
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

// ErrorDetails classifies err into a short kind label and an operator hint
// suitable for job messages and WARN/ERROR log fields.
func ErrorDetails(err error) (kind, hint string) {
	switch {
	case err == nil:
		return "", ""
	case errors.Is(err, ErrValidation):
		return "validation", "check the request input"
	case errors.Is(err, ErrConfiguration):
		return "configuration", "check storyreel config and credentials"
	case errors.Is(err, ErrNotFound):
		return "not_found", "check the referenced job or file exists"
	case errors.Is(err, ErrTimeout):
		return "timeout", "the collaborator did not answer in time; retry or raise the timeout"
	case errors.Is(err, ErrExternalTool):
		return "external_tool", "check the collaborator service or ffmpeg output"
	default:
		return "transient", "retry the job"
	}
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
