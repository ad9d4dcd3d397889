// Package pdf extracts per-page text from platform PDFs, reading the native
// text layer with ledongthuc/pdf and falling back to OCR for scanned files.
package pdf

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"

	"github.com/custodia-labs/plataformas/internal/core/domain"
	"github.com/custodia-labs/plataformas/internal/core/ports/driven"
	"github.com/custodia-labs/plataformas/internal/logger"
)

// Ensure Extractor implements the interface.
var _ driven.TextExtractor = (*Extractor)(nil)

// document is an open PDF.
type document interface {
	NumPage() int
	PageText(n int) (string, error)
	Close() error
}

// Extractor implements driven.TextExtractor.
type Extractor struct {
	open     func(path string) (document, error)
	runner   CommandRunner
	lookPath func(file string) (string, error)
	dpi      int
	langs    string

	once   sync.Once
	ocr    *ocrEngine
	ocrErr error
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithRunner sets the runner used for OCR commands.
func WithRunner(r CommandRunner) Option {
	return func(e *Extractor) { e.runner = r }
}

// WithLookPath sets how OCR binaries are located.
func WithLookPath(f func(string) (string, error)) Option {
	return func(e *Extractor) { e.lookPath = f }
}

// WithDPI sets the OCR render resolution.
func WithDPI(dpi int) Option {
	return func(e *Extractor) {
		if dpi > 0 {
			e.dpi = dpi
		}
	}
}

// WithLanguages sets the tesseract language list, e.g. "spa+eng".
func WithLanguages(langs string) Option {
	return func(e *Extractor) {
		if langs != "" {
			e.langs = langs
		}
	}
}

// New creates an extractor. The OCR engine is not started until a scanned
// PDF needs it.
func New(opts ...Option) *Extractor {
	e := &Extractor{
		open:     openPDF,
		runner:   ExecRunner{},
		lookPath: defaultLookPath,
		dpi:      DefaultDPI,
		langs:    DefaultLanguages,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract reads every page. When the native text is too short the pages are
// re-read with OCR and NeedsFallback is set.
func (e *Extractor) Extract(ctx context.Context, path string) (*domain.ExtractionResult, error) {
	doc, err := e.open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", domain.ErrExtractionFailed, path, err)
	}
	defer doc.Close()

	n := doc.NumPage()
	result := &domain.ExtractionResult{Pages: make([]domain.ExtractedPage, 0, n)}
	texts := make([]string, 0, n)
	for i := 1; i <= n; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		raw, err := doc.PageText(i)
		if err != nil {
			return nil, fmt.Errorf("%w: %s page %d: %w", domain.ErrExtractionFailed, path, i, err)
		}
		text := CleanText(raw)
		texts = append(texts, text)
		result.Pages = append(result.Pages, domain.ExtractedPage{
			PageNumber: i,
			Text:       text,
			Method:     domain.ExtractionNative,
		})
	}

	if !NeedsOCR(texts) {
		return result, nil
	}

	logger.Info("%s has little native text, using OCR", path)
	result.NeedsFallback = true

	engine, err := e.engine()
	if err != nil {
		return nil, err
	}
	for i := range result.Pages {
		text, err := engine.recognise(ctx, path, i+1)
		if err != nil {
			return nil, fmt.Errorf("%w: OCR %s page %d: %w", domain.ErrExtractionFailed, path, i+1, err)
		}
		result.Pages[i].Text = CleanText(text)
		result.Pages[i].Method = domain.ExtractionOCR
	}
	return result, nil
}

// PageCount opens the PDF and returns its page count.
func (e *Extractor) PageCount(path string) (int, error) {
	doc, err := e.open(path)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %w", domain.ErrExtractionFailed, path, err)
	}
	defer doc.Close()
	return doc.NumPage(), nil
}

// Close releases the OCR work directory if the engine was started.
func (e *Extractor) Close() error {
	if e.ocr != nil {
		return e.ocr.close()
	}
	return nil
}

func (e *Extractor) engine() (*ocrEngine, error) {
	e.once.Do(func() {
		e.ocr, e.ocrErr = startOCR(e.runner, e.lookPath, e.dpi, e.langs)
	})
	return e.ocr, e.ocrErr
}

// NeedsOCR reports whether the joined page texts are below the native
// text threshold.
func NeedsOCR(pages []string) bool {
	joined := strings.TrimSpace(strings.Join(pages, "\n\n"))
	return utf8.RuneCountInString(joined) < domain.MinNativeTextLength
}

type pdfDocument struct {
	file   *os.File
	reader *pdf.Reader
}

func openPDF(path string) (doc document, err error) {
	// ledongthuc/pdf panics on some malformed files.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("malformed PDF: %v", r)
		}
	}()
	f, r, err := pdf.Open(path)
	if err != nil {
		if f != nil {
			f.Close()
		}
		return nil, err
	}
	return &pdfDocument{file: f, reader: r}, nil
}

func (d *pdfDocument) NumPage() int {
	return d.reader.NumPage()
}

func (d *pdfDocument) PageText(n int) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("malformed page: %v", r)
		}
	}()
	page := d.reader.Page(n)
	if page.V.IsNull() {
		return "", nil
	}
	return page.GetPlainText(nil)
}

func (d *pdfDocument) Close() error {
	return d.file.Close()
}
