// Package extract converts raw uploaded file bytes into plain text.
//
// Each supported format has its own extractor. Parse failures inside an
// extractor are not fatal: they surface as an empty-text result so the
// caller can report "no text extracted" uniformly, regardless of which
// parser choked. Only an unrecognized format is an error.
package extract

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// ErrUnsupportedFormat is returned when the file extension is not in the
// set of supported document formats.
var ErrUnsupportedFormat = errors.New("unsupported file format")

// Supported extensions, lowercased, including the leading dot.
var supportedExtensions = map[string]struct{}{
	".pdf":  {},
	".docx": {},
	".txt":  {},
	".md":   {},
}

// Supported reports whether the filename's extension maps to a known format.
func Supported(filename string) bool {
	_, ok := supportedExtensions[normalizeExt(filename)]
	return ok
}

// Extensions returns the supported extensions in stable order, for
// user-facing validation messages.
func Extensions() []string {
	return []string{".pdf", ".docx", ".txt", ".md"}
}

// Extract converts file bytes into plain text based on the filename's
// extension. An unknown extension fails with ErrUnsupportedFormat; any
// other extraction problem yields ("", nil) so callers can treat all
// unreadable files as "no text extracted".
func Extract(data []byte, filename string) (text string, err error) {
	ext := normalizeExt(filename)
	if _, ok := supportedExtensions[ext]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}

	// The PDF parser panics on some malformed cross-reference tables;
	// a corrupt upload must not take the request down.
	defer func() {
		if r := recover(); r != nil {
			text, err = "", nil
		}
	}()

	switch ext {
	case ".pdf":
		text, err = extractPDF(data)
	case ".docx":
		text, err = extractDOCX(data)
	case ".txt":
		text, err = extractPlainText(data)
	case ".md":
		text, err = extractMarkdown(data)
	}
	if err != nil {
		return "", nil
	}
	return text, nil
}

func normalizeExt(filename string) string {
	return strings.ToLower(filepath.Ext(filename))
}
