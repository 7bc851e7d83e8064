package extractor

import (
	"bytes"
	"context"
	"fmt"

	"github.com/ledongthuc/pdf"
)

// PDFReader reads the native text layer of a PDF, one string per page.
// Pages without a usable text layer (scanned images, broken streams) come
// back empty so the extractor can decide to OCR them.
type PDFReader struct{}

func NewPDFReader() *PDFReader {
	return &PDFReader{}
}

func (r *PDFReader) ReadPages(ctx context.Context, data []byte) ([]string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("parse pdf: %w", err)
	}

	pageCount := reader.NumPage()
	texts := make([]string, 0, pageCount)

	for i := 1; i <= pageCount; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		page := reader.Page(i)
		if page.V.IsNull() {
			texts = append(texts, "")
			continue
		}

		text, err := page.GetPlainText(nil)
		if err != nil {
			// Broken page streams degrade to empty; OCR gets a shot at them.
			texts = append(texts, "")
			continue
		}
		texts = append(texts, text)
	}

	return texts, nil
}
