package extractor

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// AutoReader dispatches on content: PDFs by their magic bytes, anything
// else through the HTML reader.
type AutoReader struct {
	pdf  *PDFReader
	html *HTMLReader
}

func NewAutoReader() *AutoReader {
	return &AutoReader{pdf: NewPDFReader(), html: NewHTMLReader()}
}

func (r *AutoReader) ReadPages(ctx context.Context, data []byte) ([]string, error) {
	if bytes.HasPrefix(data, []byte("%PDF")) {
		return r.pdf.ReadPages(ctx, data)
	}
	return r.html.ReadPages(ctx, data)
}

// HTMLReader treats an HTML document as a single page, extracting the main
// content area's text. Used for HTML uploads alongside PDFs.
type HTMLReader struct{}

func NewHTMLReader() *HTMLReader {
	return &HTMLReader{}
}

func (r *HTMLReader) ReadPages(ctx context.Context, data []byte) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	doc.Find("script, style, nav, footer").Remove()

	// Prefer the main content area, falling back to body.
	selectors := []string{"main", "article", ".content", "#content"}

	var content string
	for _, selector := range selectors {
		if selected := doc.Find(selector); selected.Length() > 0 {
			content = selected.Text()
			break
		}
	}
	if content == "" {
		content = doc.Find("body").Text()
	}

	return []string{strings.TrimSpace(content)}, nil
}
