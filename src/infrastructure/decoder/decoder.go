// Package decoder extracts page text from uploaded documents without
// external services.
package decoder

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"

	"docqa/src/core/docqa"
)

// PDF reads the text layer of a PDF. Scanned pages without text come back
// empty and are skipped by the chunker.
type PDF struct{}

func (PDF) Decode(ctx context.Context, name string, data []byte) (pages []docqa.Page, err error) {
	defer func() {
		if r := recover(); r != nil {
			pages, err = nil, fmt.Errorf("%w: %s is malformed: %v", docqa.ErrDecode, name, r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open %s: %w", docqa.ErrDecode, name, err)
	}

	for i := 1; i <= r.NumPage(); i++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("%w: decoding %s: %w", docqa.ErrBackendUnavailable, name, err)
		}
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		text, err := p.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("%w: failed to read page %d of %s: %w", docqa.ErrDecode, i, name, err)
		}
		pages = append(pages, docqa.Page{Number: i, Text: text})
	}
	return pages, nil
}

// PlainText treats the upload as UTF-8 text. Form feeds separate pages.
type PlainText struct{}

func (PlainText) Decode(_ context.Context, name string, data []byte) ([]docqa.Page, error) {
	if !utf8.Valid(data) {
		return nil, fmt.Errorf("%w: %s is not valid UTF-8", docqa.ErrDecode, name)
	}
	parts := strings.Split(string(data), "\f")
	pages := make([]docqa.Page, len(parts))
	for i, p := range parts {
		pages[i] = docqa.Page{Number: i + 1, Text: p}
	}
	return pages, nil
}

// ByExtension picks a decoder from the file extension. PDFs go to pdf,
// .txt and .md to PlainText.
type ByExtension struct {
	pdf docqa.Decoder
}

func NewByExtension(pdfDecoder docqa.Decoder) *ByExtension {
	if pdfDecoder == nil {
		pdfDecoder = PDF{}
	}
	return &ByExtension{pdf: pdfDecoder}
}

func (d *ByExtension) Decode(ctx context.Context, name string, data []byte) ([]docqa.Page, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".pdf":
		return d.pdf.Decode(ctx, name, data)
	case ".txt", ".md", ".text":
		return PlainText{}.Decode(ctx, name, data)
	default:
		return nil, fmt.Errorf("%w: unsupported file type %q", docqa.ErrDecode, filepath.Ext(name))
	}
}

// Supported reports whether name has an extension ByExtension accepts.
func Supported(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".pdf", ".txt", ".md", ".text":
		return true
	}
	return false
}
