package extract

import (
	"bytes"
	"context"
	"net/mail"
	"strings"
	"time"

	"github.com/jhillyerd/enmime"
)

// emailParts is the format-independent shape of a parsed message,
// shared by the EML, MSG, and mbox extractors.
type emailParts struct {
	subject   string
	from      string
	to        []string
	cc        []string
	bcc       []string
	messageID string
	date      *time.Time

	body       string
	bodyIsHTML bool

	attachments []AttachmentInfo
}

// render assembles the canonical text form: header lines, blank line,
// body, then an attachment summary. The body is kept verbatim when it
// is already plain text.
func (p *emailParts) render(sanitize bool) string {
	var b strings.Builder
	b.WriteString("Subject: " + p.subject + "\n")
	if p.from != "" {
		b.WriteString("From: " + p.from + "\n")
	}
	if len(p.to) > 0 {
		b.WriteString("To: " + strings.Join(p.to, ", ") + "\n")
	}
	if len(p.cc) > 0 {
		b.WriteString("Cc: " + strings.Join(p.cc, ", ") + "\n")
	}

	body := p.body
	if p.bodyIsHTML {
		body = htmlToText(body, sanitize)
	}
	if strings.TrimSpace(body) != "" {
		b.WriteString("\n")
		b.WriteString(body)
	}

	if len(p.attachments) > 0 {
		names := make([]string, len(p.attachments))
		for i, a := range p.attachments {
			names[i] = a.Filename
		}
		b.WriteString("\n\nAttachments: " + strings.Join(names, ", "))
	}
	return strings.TrimRight(b.String(), "\n")
}

// result builds the extraction result shared by the email extractors.
func (p *emailParts) result(mimeType string, sanitize bool) *Result {
	res := &Result{
		Content:  p.render(sanitize),
		MimeType: mimeType,
	}
	res.Metadata.Subject = p.subject
	res.Metadata.Title = p.subject
	res.Metadata.CreatedAt = p.date
	res.Metadata.Format = &FormatMetadata{
		Kind: FormatEML,
		Email: &EmailMetadata{
			FromEmail:   addressOnly(p.from),
			ToEmails:    addressesOnly(p.to),
			CcEmails:    addressesOnly(p.cc),
			BccEmails:   addressesOnly(p.bcc),
			MessageID:   p.messageID,
			Attachments: p.attachments,
		},
	}
	return res
}

// EmailExtractor parses RFC 822 messages with MIME bodies.
type EmailExtractor struct{}

func (e *EmailExtractor) CanHandle(f Format) bool { return f == FormatEML }

func (e *EmailExtractor) Extract(_ context.Context, req *Request) (*Result, error) {
	parts, err := parseEnvelope(req.Data)
	if err != nil {
		return nil, wrapError(KindParsing, err, "parse email")
	}
	return parts.result(req.MimeType, req.Config.HTMLSanitize), nil
}

func parseEnvelope(data []byte) (*emailParts, error) {
	env, err := enmime.ReadEnvelope(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}

	p := &emailParts{
		subject:   env.GetHeader("Subject"),
		from:      env.GetHeader("From"),
		to:        splitAddressHeader(env.GetHeader("To")),
		cc:        splitAddressHeader(env.GetHeader("Cc")),
		bcc:       splitAddressHeader(env.GetHeader("Bcc")),
		messageID: strings.Trim(env.GetHeader("Message-ID"), "<>"),
	}
	if t, err := mail.ParseDate(env.GetHeader("Date")); err == nil {
		p.date = &t
	}

	// Prefer the text part; fall back to HTML.
	if strings.TrimSpace(env.Text) != "" {
		p.body = env.Text
	} else if strings.TrimSpace(env.HTML) != "" {
		p.body = env.HTML
		p.bodyIsHTML = true
	}

	for _, att := range env.Attachments {
		p.attachments = append(p.attachments, AttachmentInfo{
			Filename:  att.FileName,
			MimeType:  att.ContentType,
			SizeBytes: int64(len(att.Content)),
			Content:   att.Content,
		})
	}
	return p, nil
}

// splitAddressHeader breaks a recipient header into display strings,
// preserving the original rendering of each mailbox.
func splitAddressHeader(header string) []string {
	if strings.TrimSpace(header) == "" {
		return nil
	}
	addrs, err := mail.ParseAddressList(header)
	if err != nil {
		// Keep the raw header as one entry rather than dropping it.
		return []string{strings.TrimSpace(header)}
	}
	out := make([]string, 0, len(addrs))
	for _, a := range addrs {
		if a.Name != "" {
			out = append(out, a.Name+" <"+a.Address+">")
		} else {
			out = append(out, a.Address)
		}
	}
	return out
}

// addressOnly reduces a mailbox rendering to the bare address.
func addressOnly(s string) string {
	if s == "" {
		return ""
	}
	if a, err := mail.ParseAddress(s); err == nil {
		return a.Address
	}
	return strings.TrimSpace(s)
}

func addressesOnly(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = addressOnly(s)
	}
	return out
}
