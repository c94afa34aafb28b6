package errors

import (
	"strings"
	"unicode"
)

// ValidateRunID validates a run identifier before it is joined to the
// workspace path. Run ids come from the command line and from MCP tool
// arguments, so they must never be able to escape the workspace directory.
//
// The validation rules are intentionally conservative:
//   - No empty ids
//   - No control characters
//   - No path separators or traversal sequences
//   - Maximum length of 128 characters
func ValidateRunID(runID string) error {
	if runID == "" {
		return New(ErrCodeInvalidInput, "run id cannot be empty")
	}

	if len(runID) > 128 {
		return New(ErrCodeInvalidInput, "run id too long (max 128 characters)")
	}

	for _, r := range runID {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidInput, "run id contains invalid control characters")
		}
	}

	dangerousPatterns := []string{
		"..",   // Parent directory
		"/",    // Path separator
		"\\",   // Backslash (Windows path)
		"\x00", // Null byte
	}

	for _, pattern := range dangerousPatterns {
		if strings.Contains(runID, pattern) {
			return New(ErrCodeInvalidInput, "run id contains invalid characters: %q", pattern)
		}
	}

	return nil
}
