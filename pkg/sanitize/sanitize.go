package sanitize

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"bharatconnect/pkg/constants"
	apperrors "bharatconnect/pkg/errors"
)

// ValidateID checks a user or conversation ID before it becomes part of a
// Redis key, a Firestore document path or a Cassandra partition key. kind names
// the field in the error message.
func ValidateID(kind, id string) error {
	if strings.TrimSpace(id) == "" {
		return apperrors.ValidationError(fmt.Sprintf("%s is required", kind))
	}
	if len(id) > constants.MaxIDLength {
		return apperrors.ValidationError(fmt.Sprintf("%s must be at most %d bytes", kind, constants.MaxIDLength))
	}
	if !utf8.ValidString(id) {
		return apperrors.ValidationError(fmt.Sprintf("%s is not valid UTF-8", kind))
	}
	// Firestore reserves these as document IDs
	if id == "." || id == ".." || (strings.HasPrefix(id, "__") && strings.HasSuffix(id, "__")) {
		return apperrors.ValidationError(fmt.Sprintf("%s is reserved", kind))
	}
	for _, r := range id {
		if r == '/' || unicode.IsControl(r) || unicode.IsSpace(r) {
			return apperrors.ValidationError(fmt.Sprintf("%s contains invalid characters", kind))
		}
	}
	return nil
}

// StripControlCharacters removes control characters from string
func StripControlCharacters(input string) string {
	var result strings.Builder
	for _, r := range input {
		if !unicode.IsControl(r) {
			result.WriteRune(r)
		}
	}
	return result.String()
}
