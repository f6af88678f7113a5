package extract

import (
	"bytes"
	"context"
	"io"
	"strings"

	"github.com/emersion/go-mbox"
)

// MboxExtractor handles Unix mailbox files: every contained message is
// extracted and the renderings concatenated in mailbox order.
type MboxExtractor struct{}

func (e *MboxExtractor) CanHandle(f Format) bool { return f == FormatMbox }

func (e *MboxExtractor) Extract(_ context.Context, req *Request) (*Result, error) {
	mr := mbox.NewReader(bytes.NewReader(req.Data))

	var sections []string
	var first *emailParts
	count := 0

	for {
		msg, err := mr.NextMessage()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, wrapError(KindParsing, err, "read mbox message %d", count)
		}
		raw, err := io.ReadAll(msg)
		if err != nil {
			return nil, wrapError(KindParsing, err, "read mbox message %d", count)
		}
		parts, err := parseEnvelope(raw)
		if err != nil {
			// A single damaged message does not fail the mailbox.
			count++
			continue
		}
		sections = append(sections, parts.render(req.Config.HTMLSanitize))
		if first == nil {
			first = parts
		}
		count++
	}

	if count == 0 {
		return nil, newError(KindParsing, "mbox contains no messages")
	}

	res := &Result{
		Content:  strings.Join(sections, "\n\n---\n\n"),
		MimeType: req.MimeType,
	}
	if first != nil {
		res.Metadata.Subject = first.subject
		res.Metadata.Title = first.subject
		res.Metadata.CreatedAt = first.date
	}
	return res, nil
}
