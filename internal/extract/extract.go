// Package extract pulls plain text out of uploaded assignment documents.
// Supported formats are plain text and PDF.
package extract

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
)

// ErrUnsupportedFormat marks a document the extractor cannot handle. Callers
// distinguish it from extraction failures to pick the right user message.
var ErrUnsupportedFormat = errors.New("unsupported document format")

// FromDocument extracts text from the document body, dispatching on the file
// extension. An empty result with a nil error means the document held no
// extractable text.
func FromDocument(data []byte, filename string) (string, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".txt":
		return fromPlainText(data)
	case ".pdf":
		return fromPDF(data)
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, filename)
	}
}

func fromPlainText(data []byte) (string, error) {
	if !utf8.Valid(data) {
		return "", fmt.Errorf("text file is not valid UTF-8")
	}
	return strings.TrimSpace(string(data)), nil
}

func fromPDF(data []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("failed to open PDF: %w", err)
	}

	textReader, err := reader.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("failed to extract PDF text: %w", err)
	}

	text, err := io.ReadAll(textReader)
	if err != nil {
		return "", fmt.Errorf("failed to read PDF text: %w", err)
	}

	return strings.TrimSpace(string(text)), nil
}
