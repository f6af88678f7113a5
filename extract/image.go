package extract

import (
	"bytes"
	"context"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"strings"

	"doc-extract/ocr"
)

// ImageExtractor handles standalone images. Without OCR there is no
// text to extract, so a missing engine is a validation failure rather
// than an empty success.
type ImageExtractor struct{}

func (e *ImageExtractor) CanHandle(f Format) bool { return f == FormatImage }

func (e *ImageExtractor) Extract(ctx context.Context, req *Request) (*Result, error) {
	if !req.Config.OCREnabled || req.OCREngine == nil {
		return nil, newError(KindValidation, "image input requires ocr")
	}

	img, _, err := image.Decode(bytes.NewReader(req.Data))
	if err != nil {
		return nil, wrapError(KindParsing, err, "decode image")
	}

	text, err := ocr.RecognizeWithDeadline(ctx, req.OCREngine, img, req.Config.OCRLanguages, req.Config.OCRDeadline)
	if err != nil {
		return nil, wrapError(KindOCR, err, "recognize image")
	}

	res := &Result{
		Content:  strings.TrimSpace(text.Text),
		MimeType: req.MimeType,
	}
	if text.Language != "" {
		res.Metadata.Languages = []string{text.Language}
	}
	return res, nil
}
