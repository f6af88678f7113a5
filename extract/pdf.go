package extract

import (
	"bytes"
	"context"
	"errors"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"

	"doc-extract/ocr"
)

// PDFExtractor handles PDF documents. Text layers are read directly;
// pages without a text layer fall back to OCR when an engine is
// configured.
type PDFExtractor struct{}

func (e *PDFExtractor) CanHandle(f Format) bool { return f == FormatPDF }

func (e *PDFExtractor) Extract(ctx context.Context, req *Request) (*Result, error) {
	pageCount, err := api.PageCount(bytes.NewReader(req.Data), nil)
	if err != nil {
		return nil, wrapError(KindParsing, err, "read pdf")
	}

	content := pdfTextLayer(req.Data, pageCount)
	usedOCR := false

	if strings.TrimSpace(content) == "" && req.Config.OCREnabled && req.OCREngine != nil && req.Renderer != nil {
		recognized, err := e.recognizePages(ctx, req, pageCount)
		if err != nil {
			return nil, err
		}
		content = recognized
		usedOCR = true
	}

	res := &Result{Content: content, MimeType: req.MimeType}
	res.Metadata.Format = &FormatMetadata{
		Kind: FormatPDF,
		PDF:  &PDFMetadata{PageCount: pageCount, UsedOCR: usedOCR},
	}
	if usedOCR {
		res.Metadata.Languages = append([]string(nil), req.Config.OCRLanguages...)
	}
	return res, nil
}

// pdfTextLayer reads the embedded text layer page by page. The reader
// library panics on some malformed files, so every call into it is
// guarded; a page that cannot be read contributes nothing.
func pdfTextLayer(data []byte, pageCount int) (out string) {
	defer func() {
		if r := recover(); r != nil {
			out = ""
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return ""
	}

	pages := 0
	func() {
		defer func() { _ = recover() }()
		pages = reader.NumPage()
	}()
	if pages <= 0 || (pageCount > 0 && pages > pageCount) {
		pages = pageCount
	}
	if pages <= 0 {
		return ""
	}

	var b strings.Builder
	for i := 1; i <= pages; i++ {
		func() {
			defer func() { _ = recover() }()
			page := reader.Page(i)
			if page.V.IsNull() {
				return
			}
			content := page.Content()
			for _, item := range content.Text {
				b.WriteString(item.S)
				b.WriteString(" ")
			}
			b.WriteString("\n")
		}()
	}
	return collapseWhitespace(b.String())
}

// recognizePages renders and OCRs every page. A deadline on one page
// aborts the whole document; other recognition failures skip the page.
func (e *PDFExtractor) recognizePages(ctx context.Context, req *Request, pageCount int) (string, error) {
	var parts []string
	for i := 0; i < pageCount; i++ {
		img, err := req.Renderer.RenderPage(ctx, req.Data, i)
		if err != nil {
			return "", wrapError(KindRendering, err, "render page %d", i+1)
		}
		text, err := ocr.RecognizeWithDeadline(ctx, req.OCREngine, img, req.Config.OCRLanguages, req.Config.OCRDeadline)
		if err != nil {
			if errors.Is(err, ocr.ErrDeadlineExceeded) {
				return "", wrapError(KindOCR, err, "page %d", i+1)
			}
			continue
		}
		if strings.TrimSpace(text.Text) != "" {
			parts = append(parts, strings.TrimSpace(text.Text))
		}
	}
	return strings.Join(parts, "\n\n"), nil
}
