package domain

import (
	"strings"
	"time"
)

// ExtractionMethod records how a page's text was obtained.
type ExtractionMethod string

// Available extraction methods.
const (
	// ExtractionNative reads the PDF text layer.
	ExtractionNative ExtractionMethod = "native"

	// ExtractionOCR renders the page and runs optical character recognition.
	ExtractionOCR ExtractionMethod = "ocr"
)

// IsValid returns true if the method is recognised.
func (m ExtractionMethod) IsValid() bool {
	return m == ExtractionNative || m == ExtractionOCR
}

// String returns the string representation.
func (m ExtractionMethod) String() string {
	return string(m)
}

// PageText is the cached extracted text of one page.
// Page text is written once per document and only replaced on a forced re-extract.
type PageText struct {
	// ID is the store-assigned identifier.
	ID int64

	// DocumentID links to the Document.
	DocumentID int64

	// PageNumber is 1-based.
	PageNumber int

	// Text is the cleaned page text.
	Text string

	// Method records native or OCR extraction.
	Method ExtractionMethod

	// ExtractedAt is when the page was stored.
	ExtractedAt time.Time
}

// ExtractedPage is one page returned by a TextExtractor.
type ExtractedPage struct {
	PageNumber int
	Text       string
	Method     ExtractionMethod
}

// ExtractionResult is what a TextExtractor returns for a document.
type ExtractionResult struct {
	// Pages holds the text per page in page order.
	Pages []ExtractedPage

	// NeedsFallback is true when native extraction produced too little text
	// and the pages come from OCR (or OCR was required but unavailable).
	NeedsFallback bool
}

// WordCount counts whitespace-separated words across all pages.
func (r ExtractionResult) WordCount() int {
	n := 0
	for _, p := range r.Pages {
		n += len(strings.Fields(p.Text))
	}
	return n
}

// MinNativeTextLength is the trimmed character count below which a PDF
// is treated as scanned and routed to OCR.
const MinNativeTextLength = 100
