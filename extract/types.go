// Package extract turns document bytes into plain text and metadata.
// A Service dispatches on the detected format, caches results by
// content fingerprint, and deduplicates concurrent work on identical
// inputs.
package extract

import (
	"time"
)

// Format identifies a document family the dispatcher can handle.
type Format string

const (
	FormatPlainText Format = "text"
	FormatMarkdown  Format = "markdown"
	FormatCSV       Format = "csv"
	FormatHTML      Format = "html"
	FormatXML       Format = "xml"
	FormatJSON      Format = "json"
	FormatEML       Format = "eml"
	FormatMbox      Format = "mbox"
	FormatMsg       Format = "msg"
	FormatPDF       Format = "pdf"
	FormatDocx      Format = "docx"
	FormatXlsx      Format = "xlsx"
	FormatPptx      Format = "pptx"
	FormatODT       Format = "odt"
	FormatODS       Format = "ods"
	FormatODP       Format = "odp"
	FormatRTF       Format = "rtf"
	FormatZip       Format = "zip"
	FormatImage     Format = "image"
	FormatUnknown   Format = ""
)

// Result is the outcome of one successful extraction.
type Result struct {
	// Content is the extracted text, always valid UTF-8.
	Content string `json:"content"`
	// MimeType is the resolved MIME type of the input.
	MimeType string `json:"mime_type"`
	// Metadata holds document properties when the format carries any.
	Metadata Metadata `json:"metadata"`
}

// clone deep-copies a result so cached values stay immutable.
func (r *Result) clone() *Result {
	out := *r
	out.Metadata = *r.Metadata.clone()
	return &out
}

// Metadata holds document properties common across formats, plus a
// format-specific extension.
type Metadata struct {
	Title      string     `json:"title,omitempty"`
	Subject    string     `json:"subject,omitempty"`
	Authors    []string   `json:"authors,omitempty"`
	CreatedAt  *time.Time `json:"created_at,omitempty"`
	ModifiedAt *time.Time `json:"modified_at,omitempty"`
	Languages  []string   `json:"languages,omitempty"`

	Format *FormatMetadata `json:"format,omitempty"`
}

func (m *Metadata) clone() *Metadata {
	out := *m
	out.Authors = append([]string(nil), m.Authors...)
	out.Languages = append([]string(nil), m.Languages...)
	if m.CreatedAt != nil {
		t := *m.CreatedAt
		out.CreatedAt = &t
	}
	if m.ModifiedAt != nil {
		t := *m.ModifiedAt
		out.ModifiedAt = &t
	}
	if m.Format != nil {
		f := *m.Format
		if m.Format.Email != nil {
			e := *m.Format.Email
			e.ToEmails = append([]string(nil), e.ToEmails...)
			e.CcEmails = append([]string(nil), e.CcEmails...)
			e.BccEmails = append([]string(nil), e.BccEmails...)
			e.Attachments = append([]AttachmentInfo(nil), e.Attachments...)
			f.Email = &e
		}
		if m.Format.PDF != nil {
			p := *m.Format.PDF
			f.PDF = &p
		}
		out.Format = &f
	}
	return &out
}

// FormatMetadata carries format-specific properties. Exactly one of
// the pointer fields is set, matching Kind.
type FormatMetadata struct {
	Kind  Format         `json:"kind"`
	Email *EmailMetadata `json:"email,omitempty"`
	PDF   *PDFMetadata   `json:"pdf,omitempty"`
}

// EmailMetadata describes a parsed email message.
type EmailMetadata struct {
	FromEmail   string           `json:"from_email,omitempty"`
	ToEmails    []string         `json:"to_emails,omitempty"`
	CcEmails    []string         `json:"cc_emails,omitempty"`
	BccEmails   []string         `json:"bcc_emails,omitempty"`
	MessageID   string           `json:"message_id,omitempty"`
	Attachments []AttachmentInfo `json:"attachments,omitempty"`
}

// AttachmentInfo describes one attachment without re-encoding its
// content in text output.
type AttachmentInfo struct {
	Filename  string `json:"filename"`
	MimeType  string `json:"mime_type"`
	SizeBytes int64  `json:"size_bytes"`
	Content   []byte `json:"-"`
}

// PDFMetadata describes a parsed PDF document.
type PDFMetadata struct {
	PageCount int  `json:"page_count"`
	UsedOCR   bool `json:"used_ocr,omitempty"`
}
