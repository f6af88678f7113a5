package extract

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"
)

// OfficeExtractor handles the zip-based office families: OOXML (docx,
// xlsx, pptx) and OpenDocument (odt, ods, odp). Text lives in known
// XML parts inside the archive.
type OfficeExtractor struct{}

func (e *OfficeExtractor) CanHandle(f Format) bool {
	switch f {
	case FormatDocx, FormatXlsx, FormatPptx, FormatODT, FormatODS, FormatODP:
		return true
	}
	return false
}

func (e *OfficeExtractor) Extract(_ context.Context, req *Request) (*Result, error) {
	zr, err := zip.NewReader(bytes.NewReader(req.Data), int64(len(req.Data)))
	if err != nil {
		return nil, wrapError(KindParsing, err, "open archive")
	}

	var content string
	switch req.Format {
	case FormatDocx:
		content, err = wordText(zr)
	case FormatXlsx:
		content, err = sheetText(zr)
	case FormatPptx:
		content, err = slideText(zr)
	case FormatODT, FormatODS, FormatODP:
		content, err = openDocumentText(zr)
	}
	if err != nil {
		return nil, wrapError(KindParsing, err, "extract %s", req.Format)
	}

	res := &Result{Content: content, MimeType: req.MimeType}
	fillOfficeMetadata(zr, req.Format, &res.Metadata)
	return res, nil
}

func wordText(zr *zip.Reader) (string, error) {
	data, err := zipPart(zr, "word/document.xml")
	if err != nil {
		return "", err
	}
	return xmlText(data), nil
}

func sheetText(zr *zip.Reader) (string, error) {
	// Shared strings first: cells reference them by index, but for
	// text extraction concatenating parts in order is sufficient.
	var parts []string
	if data, err := zipPart(zr, "xl/sharedStrings.xml"); err == nil {
		if s := xmlText(data); s != "" {
			parts = append(parts, s)
		}
	}
	for _, name := range sortedParts(zr, "xl/worksheets/sheet") {
		data, err := zipPart(zr, name)
		if err != nil {
			continue
		}
		if s := xmlInlineText(data); s != "" {
			parts = append(parts, s)
		}
	}
	if len(parts) == 0 {
		return "", errMissingPart("xl/sharedStrings.xml")
	}
	return strings.Join(parts, "\n"), nil
}

func slideText(zr *zip.Reader) (string, error) {
	names := sortedParts(zr, "ppt/slides/slide")
	if len(names) == 0 {
		return "", errMissingPart("ppt/slides")
	}
	var parts []string
	for _, name := range names {
		data, err := zipPart(zr, name)
		if err != nil {
			continue
		}
		if s := xmlText(data); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, "\n\n"), nil
}

func openDocumentText(zr *zip.Reader) (string, error) {
	data, err := zipPart(zr, "content.xml")
	if err != nil {
		return "", err
	}
	return xmlText(data), nil
}

// fillOfficeMetadata reads document properties from docProps/core.xml
// (OOXML) or meta.xml (OpenDocument). Absence is not an error.
func fillOfficeMetadata(zr *zip.Reader, f Format, meta *Metadata) {
	part := "docProps/core.xml"
	switch f {
	case FormatODT, FormatODS, FormatODP:
		part = "meta.xml"
	}
	data, err := zipPart(zr, part)
	if err != nil {
		return
	}

	props := xmlElementMap(data, map[string]bool{
		"title": true, "subject": true, "creator": true,
		"created": true, "modified": true, "creation-date": true, "date": true,
	})
	meta.Title = props["title"]
	meta.Subject = props["subject"]
	if creator := props["creator"]; creator != "" {
		meta.Authors = []string{creator}
	}
	if t := parseOfficeTime(props["created"], props["creation-date"]); t != nil {
		meta.CreatedAt = t
	}
	if t := parseOfficeTime(props["modified"], props["date"]); t != nil {
		meta.ModifiedAt = t
	}
}

func parseOfficeTime(candidates ...string) *time.Time {
	for _, s := range candidates {
		if s == "" {
			continue
		}
		for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05"} {
			if t, err := time.Parse(layout, s); err == nil {
				return &t
			}
		}
	}
	return nil
}

func zipPart(zr *zip.Reader, name string) ([]byte, error) {
	for _, f := range zr.File {
		if f.Name == name {
			rc, err := f.Open()
			if err != nil {
				return nil, err
			}
			defer rc.Close()
			return io.ReadAll(rc)
		}
	}
	return nil, errMissingPart(name)
}

func errMissingPart(name string) error {
	return newError(KindParsing, "archive part %s not found", name)
}

// sortedParts lists archive entries with the given prefix in numeric
// order of their trailing index.
func sortedParts(zr *zip.Reader, prefix string) []string {
	var names []string
	for _, f := range zr.File {
		if strings.HasPrefix(f.Name, prefix) && strings.HasSuffix(f.Name, ".xml") {
			names = append(names, f.Name)
		}
	}
	sort.Slice(names, func(i, j int) bool {
		return partIndex(names[i], prefix) < partIndex(names[j], prefix)
	})
	return names
}

func partIndex(name, prefix string) int {
	s := strings.TrimSuffix(strings.TrimPrefix(name, prefix), ".xml")
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}

// paragraphElements are XML elements whose close emits a line break.
var paragraphElements = map[string]bool{
	"p": true, "h": true, "br": true, "row": true, "tr": true,
}

// xmlText collects character data from an XML part, breaking lines at
// paragraph boundaries. Parse errors truncate rather than fail: text
// gathered before the error is still returned.
func xmlText(data []byte) string {
	return xmlTextWith(data, paragraphElements)
}

// xmlInlineText joins all character data with spaces, for parts whose
// structure carries no paragraphs.
func xmlInlineText(data []byte) string {
	return xmlTextWith(data, nil)
}

func xmlTextWith(data []byte, breaks map[string]bool) string {
	dec := xml.NewDecoder(bytes.NewReader(data))
	var b strings.Builder
	lastBreak := true

	for {
		tok, err := dec.Token()
		if err != nil {
			break
		}
		switch t := tok.(type) {
		case xml.CharData:
			s := string(t)
			if strings.TrimSpace(s) == "" {
				continue
			}
			if !lastBreak && b.Len() > 0 {
				b.WriteByte(' ')
			}
			b.WriteString(s)
			lastBreak = false
		case xml.EndElement:
			if breaks[t.Name.Local] && !lastBreak {
				b.WriteByte('\n')
				lastBreak = true
			}
		case xml.StartElement:
			// Tab and cell markers separate runs without a newline.
			if t.Name.Local == "tab" && !lastBreak {
				b.WriteByte('\t')
			}
		}
	}
	return strings.TrimSpace(b.String())
}

// xmlElementMap returns the first character data found under each of
// the wanted local element names.
func xmlElementMap(data []byte, wanted map[string]bool) map[string]string {
	dec := xml.NewDecoder(bytes.NewReader(data))
	out := make(map[string]string)
	var current string

	for {
		tok, err := dec.Token()
		if err != nil {
			break
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if wanted[t.Name.Local] {
				current = t.Name.Local
			}
		case xml.EndElement:
			current = ""
		case xml.CharData:
			if current != "" && out[current] == "" {
				out[current] = strings.TrimSpace(string(t))
			}
		}
	}
	return out
}
