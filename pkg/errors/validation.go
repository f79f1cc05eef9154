package errors

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/google/uuid"
)

// ValidatePipelineName validates the name given to a compiled pipeline.
//
// The rules are conservative because names end up in file names and URLs of the
// execution service:
//   - No empty names
//   - No control characters
//   - No path separators or traversal sequences
//   - Maximum length of 128 characters
func ValidatePipelineName(name string) error {
	if strings.TrimSpace(name) == "" {
		return New(ErrCodeInvalidInput, "pipeline name cannot be empty")
	}

	if len(name) > 128 {
		return New(ErrCodeInvalidInput, "pipeline name too long (max 128 characters)")
	}

	for _, r := range name {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidInput, "pipeline name contains invalid control characters")
		}
	}

	for _, pattern := range []string{"..", "/", "\\", "\x00"} {
		if strings.Contains(name, pattern) {
			return New(ErrCodeInvalidInput, "pipeline name contains invalid characters: %q", pattern)
		}
	}

	return nil
}

// nodeIDRegex matches "<Kind>_<n>" with a positive integer suffix.
var nodeIDRegex = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]*_[0-9]+$`)

// ValidateNodeID validates a node ID received from a client.
func ValidateNodeID(id string) error {
	if id == "" {
		return New(ErrCodeInvalidNode, "node ID cannot be empty")
	}
	if !nodeIDRegex.MatchString(id) {
		return New(ErrCodeInvalidNode, "invalid node ID %q (want <Kind>_<n>)", id)
	}
	return nil
}

// ValidateSessionID validates an editing session ID.
func ValidateSessionID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return Wrap(ErrCodeInvalidInput, err, "invalid session ID %q", id)
	}
	return nil
}

// ValidateURL validates a URL string for safety.
// It ensures the URL has a safe scheme (http or https).
func ValidateURL(rawURL string) error {
	if rawURL == "" {
		return New(ErrCodeInvalidInput, "URL cannot be empty")
	}

	if !strings.HasPrefix(rawURL, "http://") && !strings.HasPrefix(rawURL, "https://") {
		return New(ErrCodeInvalidInput, "URL must use http or https scheme")
	}

	return nil
}

// ValidateMongoURI validates a MongoDB connection string scheme.
func ValidateMongoURI(uri string) error {
	if uri == "" {
		return New(ErrCodeInvalidInput, "MongoDB URI cannot be empty")
	}
	if !strings.HasPrefix(uri, "mongodb://") && !strings.HasPrefix(uri, "mongodb+srv://") {
		return New(ErrCodeInvalidInput, "MongoDB URI must use mongodb or mongodb+srv scheme")
	}
	return nil
}
