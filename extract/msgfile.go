package extract

import (
	"context"

	"doc-extract/cfb"
	"doc-extract/config"
	"doc-extract/msg"
)

// MsgExtractor handles Outlook .msg compound files.
type MsgExtractor struct{}

func (e *MsgExtractor) CanHandle(f Format) bool { return f == FormatMsg }

func (e *MsgExtractor) Extract(_ context.Context, req *Request) (*Result, error) {
	mode := cfb.Strict
	if req.Config.CFBMode == config.CFBLenient {
		mode = cfb.Lenient
	}

	container, err := cfb.Parse(req.Data, mode)
	if err != nil {
		return nil, wrapError(KindParsing, err, "parse compound file")
	}
	m, err := msg.Decode(container)
	if err != nil {
		return nil, wrapError(KindParsing, err, "decode message")
	}

	body, isHTML := m.BestBody()
	p := &emailParts{
		subject:    m.Subject,
		from:       m.From,
		to:         m.To,
		cc:         m.Cc,
		bcc:        m.Bcc,
		messageID:  m.MessageID,
		body:       body,
		bodyIsHTML: isHTML,
	}
	if m.HasDate {
		d := m.Date
		p.date = &d
	}
	for _, a := range m.Attachments {
		p.attachments = append(p.attachments, AttachmentInfo{
			Filename:  a.Filename,
			MimeType:  a.MimeType,
			SizeBytes: a.Size,
			Content:   a.Data,
		})
	}

	res := p.result(req.MimeType, req.Config.HTMLSanitize)
	res.Metadata.Format.Kind = FormatMsg
	return res, nil
}

// RTFExtractor handles standalone .rtf documents.
type RTFExtractor struct{}

func (e *RTFExtractor) CanHandle(f Format) bool { return f == FormatRTF }

func (e *RTFExtractor) Extract(_ context.Context, req *Request) (*Result, error) {
	text := msg.RTFToText(req.Data)
	if text == "" {
		return nil, newError(KindParsing, "rtf document yielded no text")
	}
	return &Result{Content: text, MimeType: req.MimeType}, nil
}
