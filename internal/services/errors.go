package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrParse         = errors.New("parse error")
	ErrValidation    = errors.New("validation error")
	ErrNotFound      = errors.New("not found")
	ErrExternalTool  = errors.New("external tool error")
	ErrTimeout       = errors.New("timeout")
	ErrCatalog       = errors.New("catalog error")
	ErrAuth          = errors.New("authentication error")
	ErrConfiguration = errors.New("configuration error")
	ErrStorage       = errors.New("storage error")
)

// domainMarkers are the failures a caller can act on (bad input, unknown id,
// tool or catalog rejection). ErrStorage and unmarked errors are internal.
var domainMarkers = []error{
	ErrParse,
	ErrValidation,
	ErrNotFound,
	ErrExternalTool,
	ErrTimeout,
	ErrCatalog,
	ErrAuth,
	ErrConfiguration,
}

// Wrap builds an error message that includes stage context while tagging it with
// the provided marker for later classification. The marker should be one of the
// exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrStorage
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// IsDomain reports whether err carries one of the domain markers. Front ends
// map domain errors to client faults and everything else to server faults.
func IsDomain(err error) bool {
	if err == nil {
		return false
	}
	for _, marker := range domainMarkers {
		if errors.Is(err, marker) {
			return true
		}
	}
	return false
}

// Kind returns a short classification label for logs and JSON responses.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrParse):
		return "parse"
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrTimeout):
		return "timeout"
	case errors.Is(err, ErrExternalTool):
		return "external_tool"
	case errors.Is(err, ErrAuth):
		return "auth"
	case errors.Is(err, ErrCatalog):
		return "catalog"
	case errors.Is(err, ErrConfiguration):
		return "configuration"
	case errors.Is(err, ErrStorage):
		return "storage"
	default:
		return "internal"
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
