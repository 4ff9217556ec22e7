// Package triage classifies an incoming blob so the pipeline can pick an
// extraction branch. Classification is cheap: extension tables first,
// then a text sample of the first few PDF pages.
package triage

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/ledgerlens/ledgerlens/internal/fault"
	"github.com/ledgerlens/ledgerlens/internal/pdf"
)

// Kind is the document classification.
type Kind int

const (
	KindUnknown Kind = iota
	KindTextPDF
	KindImagePDF
	KindImage
	KindSpreadsheet
)

func (k Kind) String() string {
	switch k {
	case KindTextPDF:
		return "text_pdf"
	case KindImagePDF:
		return "image_pdf"
	case KindImage:
		return "image"
	case KindSpreadsheet:
		return "spreadsheet"
	default:
		return "unknown"
	}
}

// Classification thresholds for the PDF text sample.
const (
	samplePages   = 3
	minAvgChars   = 100
	minTextRatio  = 0.7
	pageCharFloor = 50
)

var spreadsheetExts = map[string]struct{}{
	".xlsx": {}, ".xls": {}, ".csv": {},
}

var imageExts = map[string]struct{}{
	".png": {}, ".jpg": {}, ".jpeg": {}, ".webp": {},
	".bmp": {}, ".tif": {}, ".tiff": {},
}

// Result carries the classification and its diagnostics.
type Result struct {
	Kind      Kind
	PageCount int     // PDFs only
	AvgChars  float64 // PDF sample diagnostics
	TextRatio float64
	Class     string // estimated processing class: fast|standard|heavy
}

// Classify determines the document kind from filename and content.
// Unknown kinds are a typed input rejection.
func Classify(ctx context.Context, data []byte, filename string) (Result, error) {
	if len(data) == 0 {
		return Result{}, fault.New(fault.KindInputRejected, "empty document")
	}

	ext := strings.ToLower(filepath.Ext(filename))
	if _, ok := spreadsheetExts[ext]; ok {
		return Result{Kind: KindSpreadsheet, Class: "fast"}, nil
	}
	if _, ok := imageExts[ext]; ok {
		return Result{Kind: KindImage, Class: "standard"}, nil
	}
	if ext == ".pdf" {
		return classifyPDF(ctx, data)
	}

	return Result{}, fault.New(fault.KindInputRejected, "unsupported document type %q", ext)
}

// classifyPDF samples text from the first pages. A PDF is a text-PDF iff
// the sampled pages average >= 100 extractable characters AND at least
// 70% of them carry >= 50 characters.
func classifyPDF(ctx context.Context, data []byte) (Result, error) {
	pageCount, err := pdf.PageCount(data)
	if err != nil {
		return Result{}, err
	}

	texts, err := pdf.PageTexts(ctx, data, samplePages)
	if err != nil {
		return Result{}, err
	}
	if len(texts) == 0 {
		return Result{}, fault.New(fault.KindInputRejected, "PDF with no pages")
	}

	totalChars := 0
	pagesWithText := 0
	for _, t := range texts {
		n := len(strings.TrimSpace(t))
		totalChars += n
		if n >= pageCharFloor {
			pagesWithText++
		}
	}
	sampled := len(texts)
	avg := float64(totalChars) / float64(sampled)
	ratio := float64(pagesWithText) / float64(sampled)

	res := Result{
		PageCount: pageCount,
		AvgChars:  avg,
		TextRatio: ratio,
	}
	if avg >= minAvgChars && ratio >= minTextRatio {
		res.Kind = KindTextPDF
		res.Class = "standard"
	} else {
		res.Kind = KindImagePDF
		res.Class = processingClass(pageCount)
	}
	return res, nil
}

func processingClass(pages int) string {
	switch {
	case pages <= 3:
		return "standard"
	default:
		return "heavy"
	}
}
