package validation

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/sinekal/Taxiye-EIMS-Integration/src/logger"
)

var ErrUnsupportedFile = errors.New("unsupported file type")

// allowedClientContentTypes are the declared types accepted for trip CSV uploads.
var allowedClientContentTypes = map[string]bool{
	"text/csv":                 true,
	"application/csv":          true,
	"application/vnd.ms-excel": true,
	"text/plain":               true,
	"application/octet-stream": true,
}

// allowedDetectedTypes are what http.DetectContentType reports for CSV text.
var allowedDetectedTypes = map[string]bool{
	"text/plain":               true,
	"text/csv":                 true,
	"application/csv":          true,
	"application/octet-stream": true,
}

// ValidateClientContentType checks the Content-Type the client declared for the file part.
// An empty value is accepted; the content check below still applies.
func ValidateClientContentType(contentType string) error {
	ct := strings.ToLower(strings.TrimSpace(strings.Split(contentType, ";")[0]))
	if ct == "" || allowedClientContentTypes[ct] {
		return nil
	}
	logger.L.Warn("Disallowed client-declared Content-Type", "contentType", contentType)
	return fmt.Errorf("%w: declared type %q is not allowed for trip imports", ErrUnsupportedFile, contentType)
}

// ValidateFileContent sniffs the first 512 bytes of file and rewinds it.
func ValidateFileContent(file io.ReadSeeker) (string, error) {
	buffer := make([]byte, 512)
	n, err := file.Read(buffer)
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read file for content type check: %w", err)
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return "", fmt.Errorf("rewind file: %w", err)
	}

	detected := strings.ToLower(strings.Split(http.DetectContentType(buffer[:n]), ";")[0])
	if !allowedDetectedTypes[detected] {
		logger.L.Warn("Disallowed detected file content type", "detectedContentType", detected)
		return detected, fmt.Errorf("%w: content looks like %s, not CSV", ErrUnsupportedFile, detected)
	}
	return detected, nil
}
