package ingest

import (
	"fmt"
	"strings"

	"studybuddy/internal/extract"
	"studybuddy/internal/service"
)

// ValidateUpload checks an uploaded file against the format allow-list
// and the size cap before any processing happens. Returns a
// service.ValidationError describing the first problem found.
func ValidateUpload(filename string, size, maxSize int64) error {
	if strings.TrimSpace(filename) == "" {
		return &service.ValidationError{Field: "filename", Message: "filename is required"}
	}
	if !extract.Supported(filename) {
		return &service.ValidationError{
			Field:   "filename",
			Message: fmt.Sprintf("unsupported file type, allowed: %s", strings.Join(extract.Extensions(), ", ")),
		}
	}
	if size <= 0 {
		return &service.ValidationError{Field: "file", Message: "file is empty"}
	}
	if size > maxSize {
		return &service.ValidationError{
			Field:   "file",
			Message: fmt.Sprintf("file exceeds the %d byte limit", maxSize),
		}
	}
	return nil
}
