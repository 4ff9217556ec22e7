// Package pdf wraps PDF decoding for the pipeline: structured text
// extraction, per-page sampling for triage, page rasterization, and
// password detection.
package pdf

import (
	"bytes"
	"context"
	"strings"

	gpdf "github.com/Geek0x0/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"

	"github.com/ledgerlens/ledgerlens/internal/fault"
)

// PageCount returns the number of pages in the document.
func PageCount(data []byte) (int, error) {
	n, err := api.PageCount(bytes.NewReader(data), nil)
	if err != nil {
		if IsPasswordError(err) {
			return 0, passwordFault(err)
		}
		return 0, fault.Wrap(fault.KindInputRejected, err, "unreadable PDF")
	}
	return n, nil
}

// Text extracts structured text from every page, pages separated by a
// paragraph break. Intended for text-PDFs only.
func Text(ctx context.Context, data []byte) (string, error) {
	pages, err := PageTexts(ctx, data, 0)
	if err != nil {
		return "", err
	}
	return strings.Join(pages, "\n\n"), nil
}

// PageTexts extracts text for up to maxPages pages (0 = all). Used both
// by the full extractor and by triage sampling.
func PageTexts(ctx context.Context, data []byte, maxPages int) ([]string, error) {
	r, err := gpdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		if IsPasswordError(err) {
			return nil, passwordFault(err)
		}
		return nil, fault.Wrap(fault.KindInputRejected, err, "unreadable PDF")
	}
	defer r.Close()

	n := r.NumPage()
	if maxPages > 0 && n > maxPages {
		n = maxPages
	}

	fonts := make(map[string]*gpdf.Font)
	texts := make([]string, 0, n)
	for i := 1; i <= n; i++ {
		if err := ctx.Err(); err != nil {
			return nil, fault.Wrap(fault.KindCancelled, err, "text extraction cancelled")
		}
		page := r.Page(i)
		if page.V.IsNull() {
			texts = append(texts, "")
			continue
		}
		txt, err := page.GetPlainText(ctx, fonts)
		if err != nil {
			// A single broken page should not sink the document.
			texts = append(texts, "")
			continue
		}
		texts = append(texts, txt)
	}
	return texts, nil
}

// IsPasswordError reports whether err comes from an encrypted or
// password-protected PDF. Both pdfcpu and the reader signal this through
// the error message.
func IsPasswordError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "password") || strings.Contains(msg, "encrypt")
}

func passwordFault(err error) error {
	fe := fault.Wrap(fault.KindInputRejected, err, "password-protected PDF")
	fe.PasswordProtected = true
	return fe
}
