// Package ocr defines the pluggable interface for recognizing text in
// rendered page images. No engine ships in-process; callers register an
// implementation backed by an external engine or service.
package ocr

import (
	"context"
	"errors"
	"image"
	"time"
)

// ErrDeadlineExceeded reports that recognition ran out of time. It is
// distinct from a recognition failure so callers can fall back to
// non-OCR text rather than fail the whole extraction.
var ErrDeadlineExceeded = errors.New("ocr: deadline exceeded")

// RecognizedText is the output for one page image.
type RecognizedText struct {
	Text       string
	Confidence float64
	Language   string
}

// Engine recognizes text in a page image. Implementations must honor
// ctx cancellation.
type Engine interface {
	Recognize(ctx context.Context, img image.Image, languages []string) (RecognizedText, error)
}

// Renderer rasterizes one page of a document for recognition.
type Renderer interface {
	RenderPage(ctx context.Context, doc []byte, pageIndex int) (image.Image, error)
}

// RecognizeWithDeadline runs engine.Recognize bounded by deadline. A
// zero deadline means no limit. Timeouts map to ErrDeadlineExceeded.
func RecognizeWithDeadline(ctx context.Context, engine Engine, img image.Image, languages []string, deadline time.Duration) (RecognizedText, error) {
	if deadline > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, deadline)
		defer cancel()
	}
	out, err := engine.Recognize(ctx, img, languages)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return RecognizedText{}, ErrDeadlineExceeded
		}
		return RecognizedText{}, err
	}
	return out, nil
}
