package extract

import (
	"context"
	"regexp"
	"strings"
)

// TextExtractor handles plain text families: txt, markdown, csv, json,
// xml. Content is decoded to UTF-8 and returned verbatim.
type TextExtractor struct{}

func (e *TextExtractor) CanHandle(f Format) bool {
	switch f {
	case FormatPlainText, FormatMarkdown, FormatCSV, FormatJSON, FormatXML:
		return true
	}
	return false
}

func (e *TextExtractor) Extract(_ context.Context, req *Request) (*Result, error) {
	return &Result{
		Content:  decodeText(req.Data),
		MimeType: req.MimeType,
	}, nil
}

// HTMLExtractor converts HTML documents to plain text, honoring the
// sanitization setting.
type HTMLExtractor struct{}

func (e *HTMLExtractor) CanHandle(f Format) bool { return f == FormatHTML }

func (e *HTMLExtractor) Extract(_ context.Context, req *Request) (*Result, error) {
	markup := decodeText(req.Data)
	res := &Result{
		Content:  htmlToText(markup, req.Config.HTMLSanitize),
		MimeType: req.MimeType,
	}
	if title := htmlTitle(markup); title != "" {
		res.Metadata.Title = title
	}
	return res, nil
}

var htmlTitleRegex = regexp.MustCompile(`(?is)<title[^>]*>(.*?)</title>`)

// htmlTitle pulls the document title out of raw markup.
func htmlTitle(markup string) string {
	m := htmlTitleRegex.FindStringSubmatch(markup)
	if m == nil {
		return ""
	}
	title := htmlEntityRegex.ReplaceAllString(m[1], " ")
	return strings.TrimSpace(whitespaceRegex.ReplaceAllString(title, " "))
}
