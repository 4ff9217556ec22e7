// Package ocr adapts the Google Cloud Vision document-text API for the
// pipeline's optional OCR path. The pipeline prefers LLM vision for
// image documents; this client exists as the text-based fallback and may
// be absent at runtime.
package ocr

import (
	"context"
	"log/slog"

	vision "cloud.google.com/go/vision/apiv1"
	"cloud.google.com/go/vision/v2/apiv1/visionpb"
	"google.golang.org/api/option"

	"github.com/ledgerlens/ledgerlens/internal/fault"
)

// Client wraps the Vision image annotator.
type Client struct {
	annotator *vision.ImageAnnotatorClient
	log       *slog.Logger
}

// New creates the Vision client. Pass option.WithCredentialsFile or let
// application default credentials apply.
func New(ctx context.Context, log *slog.Logger, opts ...option.ClientOption) (*Client, error) {
	if log == nil {
		log = slog.Default()
	}
	annotator, err := vision.NewImageAnnotatorClient(ctx, opts...)
	if err != nil {
		return nil, fault.Wrap(fault.KindTransport, err, "create vision client")
	}
	return &Client{annotator: annotator, log: log}, nil
}

// OCRImage extracts text from a single PNG. Language hints are BCP-47
// tags; an empty list lets the service autodetect.
func (c *Client) OCRImage(ctx context.Context, png []byte, languageHints []string) (string, error) {
	img := &visionpb.Image{Content: png}
	var ictx *visionpb.ImageContext
	if len(languageHints) > 0 {
		ictx = &visionpb.ImageContext{LanguageHints: languageHints}
	}

	annotation, err := c.annotator.DetectDocumentText(ctx, img, ictx)
	if err != nil {
		if ctx.Err() != nil {
			return "", fault.Wrap(fault.KindCancelled, ctx.Err(), "ocr cancelled")
		}
		return "", fault.Wrap(fault.KindTransport, err, "vision document text detection")
	}
	if annotation == nil {
		return "", nil
	}
	return annotation.GetText(), nil
}

// Close releases the underlying connection.
func (c *Client) Close() error {
	return c.annotator.Close()
}
