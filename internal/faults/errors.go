package faults

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrDecode          = errors.New("decode error")
	ErrEmptyChannelSet = errors.New("no channels decoded")
	ErrExportWrite     = errors.New("export write failed")
	ErrEnumeration     = errors.New("folder enumeration failed")
	ErrNoDirectory     = errors.New("no target folder selected")
	ErrNoDataset       = errors.New("no dataset loaded")
	ErrBusy            = errors.New("capture already running")
	ErrInvalidInput    = errors.New("invalid input")
	ErrConfiguration   = errors.New("configuration error")
)

// Wrap builds an error message that includes component context while tagging
// it with marker for later classification. The marker should be one of the
// exported sentinels above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrInvalidInput
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Fatal reports whether err should interrupt the operation the user asked for
// rather than being logged and skipped.
func Fatal(err error) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, ErrDecode), errors.Is(err, ErrEmptyChannelSet):
		return true
	case errors.Is(err, ErrEnumeration), errors.Is(err, ErrNoDirectory):
		return true
	default:
		return false
	}
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "capture failure"
	}
	return strings.Join(parts, ": ")
}
