package errors

import (
	"math"
	"regexp"
	"strings"
	"unicode"
)

// ValidateKey validates a hierarchy key (region, group or cluster name).
// Keys are free text but must not carry control characters, which would
// corrupt SVG output and key paths.
//
// The validation rules are intentionally conservative:
//   - Maximum length of 256 characters
//   - No control characters (newlines are allowed for manual line breaks)
//   - No null bytes
func ValidateKey(key string) error {
	if len(key) > 256 {
		return New(ErrCodeInvalidInput, "key too long (max 256 characters)")
	}
	for _, r := range key {
		if r == '\n' {
			continue
		}
		if r == '\x00' || unicode.IsControl(r) {
			return New(ErrCodeInvalidInput, "key %q contains invalid control characters", key)
		}
	}
	return nil
}

// ValidatePath validates an output path for safety.
// It prevents path traversal and ensures reasonable path length.
//
// Validation rules:
//   - Path cannot be empty
//   - Maximum length of 500 characters
//   - No null bytes or control characters
//   - No path traversal sequences (..)
func ValidatePath(path string) error {
	if path == "" {
		return New(ErrCodeInvalidPath, "path cannot be empty")
	}

	const maxPathLength = 500
	if len(path) > maxPathLength {
		return New(ErrCodeInvalidPath, "path too long (max %d characters)", maxPathLength)
	}

	// Check for null bytes and control characters
	for _, r := range path {
		if r == '\x00' || unicode.IsControl(r) {
			return New(ErrCodeInvalidPath, "path contains invalid characters")
		}
	}

	// Check for path traversal
	for _, part := range strings.FieldsFunc(path, func(r rune) bool { return r == '/' || r == '\\' }) {
		if part == ".." {
			return New(ErrCodeInvalidPath, "path cannot contain path traversal sequences (..)")
		}
	}

	return nil
}

// ValidateRange checks that v is a finite number in [lo, hi].
func ValidateRange(field string, v, lo, hi float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return New(ErrCodeInvalidOptions, "%s must be a finite number", field)
	}
	if v < lo || v > hi {
		return New(ErrCodeInvalidOptions, "%s must be between %g and %g, got %g", field, lo, hi, v)
	}
	return nil
}

// ValidatePositive checks that v is a finite number greater than zero.
func ValidatePositive(field string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
		return New(ErrCodeInvalidOptions, "%s must be positive, got %g", field, v)
	}
	return nil
}

// hexColorRegex matches #rgb and #rrggbb colors.
var hexColorRegex = regexp.MustCompile(`^#([0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)

// ValidateColor validates a hex color string.
func ValidateColor(color string) error {
	if !hexColorRegex.MatchString(color) {
		return New(ErrCodeInvalidOptions, "invalid color %q (want #rgb or #rrggbb)", color)
	}
	return nil
}

// layoutIDRegex matches the UUIDs issued by the API.
var layoutIDRegex = regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$`)

// ValidateLayoutID validates a stored layout identifier.
func ValidateLayoutID(id string) error {
	if !layoutIDRegex.MatchString(id) {
		return New(ErrCodeInvalidInput, "invalid layout id: %q", id)
	}
	return nil
}
