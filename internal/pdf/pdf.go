// Package pdf validates uploaded PDF files and extracts their text.
package pdf

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"regexp"
	"strings"

	lpdf "github.com/ledongthuc/pdf"

	"github.com/starford/snapnotes/internal/apperr"
)

// DefaultMaxBytes is the upload limit used when none is configured.
const DefaultMaxBytes int64 = 10 << 20

// ContentType is the only media type accepted for upload.
const ContentType = "application/pdf"

var pdfMagic = []byte("%PDF-")

var whitespaceRun = regexp.MustCompile(`\s+`)

// Validate checks the declared media type and size of an upload before any
// extraction is attempted.
func Validate(filename, contentType string, size, maxBytes int64) error {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	if filename == "" && size == 0 {
		return apperr.NewValidation("file", "no file provided")
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil || mediaType != ContentType {
		return apperr.NewValidation("file", "file must be a PDF")
	}
	if size > maxBytes {
		return apperr.NewValidation("file", fmt.Sprintf("file size must be less than %dMB", maxBytes>>20))
	}
	return nil
}

// ProgressFunc is called after each successfully extracted page.
type ProgressFunc func(page, total int)

// document is the slice of a parsed PDF the extractor needs.
type document interface {
	NumPage() int
	PageText(n int) (string, error)
}

type openFunc func(data []byte) (document, error)

// Extractor turns PDF bytes into plain text, page by page.
type Extractor struct {
	open openFunc
	log  *slog.Logger
}

// NewExtractor creates an Extractor backed by github.com/ledongthuc/pdf.
func NewExtractor(logger *slog.Logger) *Extractor {
	return &Extractor{open: openLedongthuc, log: logger.With("adapter", "pdf")}
}

// ExtractText returns the text of every readable page. Whitespace inside a
// page collapses to single spaces and trimmed pages are separated by a
// blank line.
// Unreadable pages are skipped. Document-level failures are returned as
// *apperr.ExtractionError.
func (e *Extractor) ExtractText(ctx context.Context, data []byte, progress ProgressFunc) (string, error) {
	if !bytes.HasPrefix(bytes.TrimLeft(data, " \t\r\n"), pdfMagic) {
		return "", &apperr.ExtractionError{Kind: apperr.ExtractionNotPDF}
	}

	doc, err := e.open(data)
	if err != nil {
		if errors.Is(err, lpdf.ErrInvalidPassword) || strings.Contains(strings.ToLower(err.Error()), "encrypt") {
			return "", &apperr.ExtractionError{Kind: apperr.ExtractionPasswordProtected, Err: err}
		}
		return "", &apperr.ExtractionError{Kind: apperr.ExtractionCorrupt, Err: err}
	}

	total := doc.NumPage()
	var b strings.Builder
	for n := 1; n <= total; n++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		text, err := pageText(doc, n)
		if err != nil {
			e.log.WarnContext(ctx, "page extraction failed",
				slog.Int("page", n),
				slog.String("error", err.Error()))
			continue
		}

		b.WriteString(strings.TrimSpace(whitespaceRun.ReplaceAllString(text, " ")))
		b.WriteString("\n\n")

		if progress != nil {
			progress(n, total)
		}
	}

	out := strings.TrimSpace(b.String())
	if out == "" {
		return "", &apperr.ExtractionError{Kind: apperr.ExtractionNoText}
	}
	e.log.DebugContext(ctx, "pdf extracted", slog.Int("pages", total), slog.Int("chars", len(out)))
	return out, nil
}

// pageText guards against panics the parser raises on malformed content streams.
func pageText(doc document, n int) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("page %d: %v", n, r)
		}
	}()
	return doc.PageText(n)
}
