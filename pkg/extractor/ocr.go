package extractor

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
)

// CommandRunner executes an external command and returns its stdout.
// It exists so OCR can be exercised in tests without poppler or tesseract
// installed.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	out, err := exec.CommandContext(ctx, name, args...).Output()
	if err != nil {
		if ee, ok := err.(*exec.ExitError); ok && len(ee.Stderr) > 0 {
			return nil, fmt.Errorf("%s: %v: %s", name, err, ee.Stderr)
		}
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return out, nil
}

type TesseractConfig struct {
	PdftoppmPath  string
	TesseractPath string
	DPI           int
	Language      string
}

// Tesseract renders a single PDF page to an image with pdftoppm and runs the
// tesseract binary over it.
type Tesseract struct {
	config TesseractConfig
	runner CommandRunner
}

func NewTesseract(config TesseractConfig) *Tesseract {
	return newTesseractWithRunner(config, execRunner{})
}

func newTesseractWithRunner(config TesseractConfig, runner CommandRunner) *Tesseract {
	if config.PdftoppmPath == "" {
		config.PdftoppmPath = "pdftoppm"
	}
	if config.TesseractPath == "" {
		config.TesseractPath = "tesseract"
	}
	if config.DPI == 0 {
		config.DPI = 300
	}
	if config.Language == "" {
		config.Language = "eng"
	}
	return &Tesseract{config: config, runner: runner}
}

func (t *Tesseract) RecognizePage(ctx context.Context, pdfData []byte, page int) (string, error) {
	dir, err := os.MkdirTemp("", "askpdf-ocr-")
	if err != nil {
		return "", err
	}
	defer os.RemoveAll(dir)

	pdfPath := filepath.Join(dir, "page.pdf")
	if err := os.WriteFile(pdfPath, pdfData, 0o600); err != nil {
		return "", err
	}

	// pdftoppm writes <prefix>-<page>.png for the requested page range.
	prefix := filepath.Join(dir, "render")
	_, err = t.runner.Run(ctx, t.config.PdftoppmPath,
		"-f", fmt.Sprint(page),
		"-l", fmt.Sprint(page),
		"-r", fmt.Sprint(t.config.DPI),
		"-png", pdfPath, prefix)
	if err != nil {
		return "", fmt.Errorf("render page %d: %w", page, err)
	}

	image, err := renderedImage(dir, "render")
	if err != nil {
		return "", fmt.Errorf("render page %d: %w", page, err)
	}

	out, err := t.runner.Run(ctx, t.config.TesseractPath,
		image, "stdout", "-l", t.config.Language)
	if err != nil {
		return "", fmt.Errorf("ocr page %d: %w", page, err)
	}
	return string(out), nil
}

// renderedImage finds the single PNG pdftoppm produced; the page-number
// suffix is zero-padded differently depending on the document length.
func renderedImage(dir, prefix string) (string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, prefix+"-*.png"))
	if err != nil {
		return "", err
	}
	if len(matches) == 0 {
		return "", fmt.Errorf("no rendered image produced")
	}
	return matches[0], nil
}
