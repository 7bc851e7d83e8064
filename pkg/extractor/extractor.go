package extractor

import (
	"context"
	"fmt"
	"log"
	"regexp"
	"strings"
	"unicode"

	"github.com/haydenk/askpdf/internal/models"
	"github.com/haydenk/askpdf/internal/types"
)

type ExtractorConfig struct {
	// MinNativeChars is the minimum count of non-whitespace characters a
	// page's native text layer must have before OCR is skipped.
	MinNativeChars int

	// ScrubPatterns are regexes matched against individual lines; matching
	// lines (watermarks, license footers) are dropped from page text.
	ScrubPatterns []string
}

// Extractor converts raw PDF bytes into ordered pages, running OCR on pages
// whose native text layer is too thin to be useful.
type Extractor struct {
	config ExtractorConfig
	reader types.PageReader
	ocr    types.OCREngine
	scrub  []*regexp.Regexp
}

func NewWithConfig(config ExtractorConfig, reader types.PageReader, ocr types.OCREngine) (*Extractor, error) {
	if config.MinNativeChars == 0 {
		config.MinNativeChars = 20
	}

	scrub := make([]*regexp.Regexp, 0, len(config.ScrubPatterns))
	for _, p := range config.ScrubPatterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("invalid scrub pattern %q: %w", p, err)
		}
		scrub = append(scrub, re)
	}

	return &Extractor{
		config: config,
		reader: reader,
		ocr:    ocr,
		scrub:  scrub,
	}, nil
}

// Extract reads every page of data. A document that cannot be parsed at all
// fails with ErrExtraction; a single page whose OCR breaks degrades to empty
// text so one bad page never blocks the rest.
func (e *Extractor) Extract(ctx context.Context, data []byte, docID, filename string) (models.Document, error) {
	texts, err := e.reader.ReadPages(ctx, data)
	if err != nil {
		return models.Document{}, fmt.Errorf("%w: %s: %v", models.ErrExtraction, filename, err)
	}

	doc := models.Document{
		ID:       docID,
		Filename: filename,
		Pages:    make([]models.Page, 0, len(texts)),
	}

	for i, text := range texts {
		page := models.Page{
			Number: i + 1,
			Text:   e.cleanText(text),
			Method: models.ExtractionNative,
		}

		if nonSpaceLen(page.Text) < e.config.MinNativeChars && e.ocr != nil {
			if err := ctx.Err(); err != nil {
				return models.Document{}, err
			}
			ocrText, err := e.ocr.RecognizePage(ctx, data, page.Number)
			if err != nil {
				log.Printf("ocr failed for %s page %d: %v", docID, page.Number, err)
				page.Text = ""
				page.Method = models.ExtractionOCR
				page.Failed = true
			} else {
				page.Text = e.cleanText(ocrText)
				page.Method = models.ExtractionOCR
				page.LowConfidence = true
			}
		}

		doc.Pages = append(doc.Pages, page)
	}

	return doc, nil
}

// cleanText normalises whitespace per line and drops scrubbed lines.
func (e *Extractor) cleanText(text string) string {
	lines := strings.Split(text, "\n")
	cleaned := make([]string, 0, len(lines))
outer:
	for _, line := range lines {
		line = strings.Join(strings.Fields(line), " ")
		if line == "" {
			continue
		}
		for _, re := range e.scrub {
			if re.MatchString(line) {
				continue outer
			}
		}
		cleaned = append(cleaned, line)
	}
	return strings.Join(cleaned, "\n")
}

func nonSpaceLen(s string) int {
	n := 0
	for _, r := range s {
		if !unicode.IsSpace(r) {
			n++
		}
	}
	return n
}
