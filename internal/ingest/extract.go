// Package ingest turns uploaded case-file documents into plain text for the
// document store. The text is treated as opaque downstream; no structure
// parsing or chunking happens here.
package ingest

import (
	"bytes"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"

	logx "github.com/neurosync-os/server/pkg/logger"
)

// ErrUnreadable wraps any extraction failure. There is no partial-text
// fallback: a document either reads fully or not at all.
type ErrUnreadable struct {
	Filename string
	Err      error
}

func (e *ErrUnreadable) Error() string {
	return fmt.Sprintf("could not read document %q: %v", e.Filename, e.Err)
}

func (e *ErrUnreadable) Unwrap() error {
	return e.Err
}

// ExtractText produces the plain text of an uploaded document. PDFs are
// parsed page by page; anything else must be valid UTF-8 text.
func ExtractText(filename string, data []byte) (string, error) {
	if len(data) == 0 {
		return "", &ErrUnreadable{Filename: filename, Err: fmt.Errorf("empty file")}
	}

	if strings.EqualFold(filepath.Ext(filename), ".pdf") {
		return extractPDF(filename, data)
	}

	if !utf8.Valid(data) {
		return "", &ErrUnreadable{Filename: filename, Err: fmt.Errorf("not valid UTF-8 text")}
	}
	return string(data), nil
}

func extractPDF(filename string, data []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		logx.Warn().Err(err).Str("filename", filename).Msg("failed to open pdf")
		return "", &ErrUnreadable{Filename: filename, Err: err}
	}

	plain, err := reader.GetPlainText()
	if err != nil {
		logx.Warn().Err(err).Str("filename", filename).Msg("failed to extract pdf text")
		return "", &ErrUnreadable{Filename: filename, Err: err}
	}

	var sb strings.Builder
	if _, err := io.Copy(&sb, plain); err != nil {
		return "", &ErrUnreadable{Filename: filename, Err: err}
	}

	text := strings.TrimSpace(sb.String())
	if text == "" {
		return "", &ErrUnreadable{Filename: filename, Err: fmt.Errorf("no extractable text")}
	}
	return text, nil
}
