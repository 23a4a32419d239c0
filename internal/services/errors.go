package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrConfig  = errors.New("configuration error")
	ErrIO      = errors.New("io error")
	ErrBackend = errors.New("backend error")
	ErrData    = errors.New("data error")
)

// Wrap builds an error message that includes stage context while tagging it with
// the provided marker for later classification. The marker should be one of the
// exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrIO
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Kind maps an error to the short taxonomy label used in logs and CLI output.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrConfig):
		return "config"
	case errors.Is(err, ErrIO):
		return "io"
	case errors.Is(err, ErrBackend):
		return "backend"
	case errors.Is(err, ErrData):
		return "data"
	default:
		return "unknown"
	}
}

// ExitCode returns the process exit status for a failed command. Every failure
// is non-zero; the value distinguishes the error class for calling scripts.
func ExitCode(err error) int {
	switch Kind(err) {
	case "":
		return 0
	case "config":
		return 2
	case "io":
		return 3
	case "backend":
		return 4
	case "data":
		return 5
	default:
		return 1
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
