package pdf

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/ledgerlens/ledgerlens/internal/fault"
)

// DefaultMaxPages caps how many pages one document may rasterize.
const DefaultMaxPages = 50

// baseDPI is the PDF unit resolution; the raster scale multiplies it.
const baseDPI = 72

// Page is one rasterized page.
type Page struct {
	Index int // 0-based
	PNG   []byte
}

// RasterOptions tune rasterization.
type RasterOptions struct {
	Scale    float64 // default 1.5
	MaxPages int     // default DefaultMaxPages
	Logger   *slog.Logger
}

// Rasterize renders each page to PNG at the requested scale using
// pdftoppm (poppler-utils). Rendering is sequential within one document;
// the PDF handle is not shared across goroutines. Pages beyond MaxPages
// are silently truncated and the event logged.
func Rasterize(ctx context.Context, data []byte, opts RasterOptions) ([]Page, error) {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	scale := opts.Scale
	if scale <= 0 {
		scale = 1.5
	}
	maxPages := opts.MaxPages
	if maxPages <= 0 {
		maxPages = DefaultMaxPages
	}

	total, err := PageCount(data)
	if err != nil {
		return nil, err
	}
	n := total
	if n > maxPages {
		log.Warn("truncating rasterization", "pages", total, "max_pages", maxPages)
		n = maxPages
	}

	tmpDir, err := os.MkdirTemp("", "ledgerlens-raster-*")
	if err != nil {
		return nil, fmt.Errorf("create temp dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	pdfPath := filepath.Join(tmpDir, "doc.pdf")
	if err := os.WriteFile(pdfPath, data, 0o600); err != nil {
		return nil, fmt.Errorf("write temp PDF: %w", err)
	}

	dpi := int(math.Round(baseDPI * scale))
	pages := make([]Page, 0, n)
	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			return nil, fault.Wrap(fault.KindCancelled, err, "rasterization cancelled")
		}
		png, err := renderPage(ctx, pdfPath, tmpDir, i+1, dpi)
		if err != nil {
			if IsPasswordError(err) {
				return nil, passwordFault(err)
			}
			return nil, fmt.Errorf("render page %d: %w", i+1, err)
		}
		pages = append(pages, Page{Index: i, PNG: png})
	}
	return pages, nil
}

// renderPage renders a single page with pdftoppm.
func renderPage(ctx context.Context, pdfPath, tmpDir string, pageNum, dpi int) ([]byte, error) {
	outputPrefix := filepath.Join(tmpDir, fmt.Sprintf("page_%04d", pageNum))
	pageStr := fmt.Sprintf("%d", pageNum)

	cmd := exec.CommandContext(ctx, "pdftoppm",
		"-png",
		"-f", pageStr,
		"-l", pageStr,
		"-r", fmt.Sprintf("%d", dpi),
		"-singlefile",
		pdfPath,
		outputPrefix,
	)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return nil, fmt.Errorf("pdftoppm failed: %w (output: %s)", err, string(output))
	}

	pngPath := outputPrefix + ".png"
	data, err := os.ReadFile(pngPath)
	if err != nil {
		return nil, fmt.Errorf("pdftoppm produced no output: %w", err)
	}
	os.Remove(pngPath)
	return data, nil
}
