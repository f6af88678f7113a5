package extract

import (
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"doc-extract/config"
)

// formatByMime maps MIME types to the dispatch format. Looked up after
// sniffing, walking the detected type's parents when the exact type is
// not listed.
var formatByMime = map[string]Format{
	"text/plain":               FormatPlainText,
	"text/markdown":            FormatMarkdown,
	"text/csv":                 FormatCSV,
	"text/tab-separated-values": FormatCSV,
	"text/html":                FormatHTML,
	"text/xml":                 FormatXML,
	"application/xml":          FormatXML,
	"application/json":         FormatJSON,
	"application/yaml":         FormatPlainText,
	"message/rfc822":           FormatEML,
	"application/mbox":         FormatMbox,
	"application/vnd.ms-outlook": FormatMsg,
	"application/x-ole-storage":  FormatMsg,
	"application/pdf":            FormatPDF,
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document":   FormatDocx,
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet":         FormatXlsx,
	"application/vnd.openxmlformats-officedocument.presentationml.presentation": FormatPptx,
	"application/vnd.oasis.opendocument.text":         FormatODT,
	"application/vnd.oasis.opendocument.spreadsheet":  FormatODS,
	"application/vnd.oasis.opendocument.presentation": FormatODP,
	"application/rtf": FormatRTF,
	"text/rtf":        FormatRTF,
	"application/zip": FormatZip,
	"image/png":       FormatImage,
	"image/jpeg":      FormatImage,
	"image/tiff":      FormatImage,
	"image/bmp":       FormatImage,
	"image/webp":      FormatImage,
	"image/gif":       FormatImage,
}

// ResolveFormat determines the dispatch format for data. Content
// sniffing wins; the declared MIME type (or filename extension) breaks
// ties when sniffing lands on a generic container or plain text.
func ResolveFormat(data []byte, declaredMime, filename string) (Format, string) {
	if declaredMime == "" && filename != "" {
		declaredMime = config.MimeForFilename(filename)
	}
	declaredFmt := formatByMime[normalizeMime(declaredMime)]

	detected := mimetype.Detect(data)
	sniffedFmt, sniffedMime := sniffedFormat(detected)

	switch sniffedFmt {
	case FormatUnknown:
		if declaredFmt != FormatUnknown {
			return declaredFmt, declaredMime
		}
		return FormatUnknown, sniffedMime
	case FormatPlainText, FormatZip, FormatMsg:
		// Generic results defer to a more specific declared type.
		// OLE storage holds both Outlook messages and legacy Office
		// files; zip holds OOXML and OpenDocument.
		if declaredFmt != FormatUnknown && declaredFmt != sniffedFmt && refines(sniffedFmt, declaredFmt) {
			return declaredFmt, declaredMime
		}
	}
	return sniffedFmt, sniffedMime
}

// sniffedFormat walks the detected type and its parents until one maps
// to a dispatch format.
func sniffedFormat(m *mimetype.MIME) (Format, string) {
	mime := normalizeMime(m.String())
	for cur := m; cur != nil; cur = cur.Parent() {
		if f, ok := formatByMime[normalizeMime(cur.String())]; ok {
			return f, mime
		}
	}
	return FormatUnknown, mime
}

// refines reports whether declared is a plausible specialization of the
// sniffed generic format.
func refines(sniffed, declared Format) bool {
	switch sniffed {
	case FormatPlainText:
		switch declared {
		case FormatMarkdown, FormatCSV, FormatEML, FormatMbox, FormatHTML, FormatXML, FormatJSON:
			return true
		}
	case FormatZip:
		switch declared {
		case FormatDocx, FormatXlsx, FormatPptx, FormatODT, FormatODS, FormatODP:
			return true
		}
	case FormatMsg:
		return false
	}
	return false
}

func normalizeMime(mime string) string {
	if i := strings.IndexByte(mime, ';'); i >= 0 {
		mime = mime[:i]
	}
	return strings.ToLower(strings.TrimSpace(mime))
}
