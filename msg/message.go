package msg

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"doc-extract/cfb"
)

// Recipient classification per PR_RECIPIENT_TYPE.
const (
	recipientTo  = 1
	recipientCc  = 2
	recipientBcc = 3
)

// Message is the decoded content of an Outlook message container.
type Message struct {
	Subject   string
	From      string
	To        []string
	Cc        []string
	Bcc       []string
	MessageID string
	Date      time.Time
	HasDate   bool

	// Body variants in their raw decoded form. Precedence (HTML, then
	// decompressed RTF, then plain text) is applied by BestBody.
	BodyText string
	BodyHTML string
	rtf      []byte

	Attachments []Attachment

	// IgnoredProperties counts property streams whose type code the
	// decoder does not recognize. They are skipped, never fatal.
	IgnoredProperties int
}

// Attachment is one attachment storage decoded into metadata plus content.
// Size always equals len(Data).
type Attachment struct {
	Filename string
	MimeType string
	Size     int64
	Data     []byte
}

// BestBody returns the body text by precedence: the HTML body when present
// and non-empty, else RTF decompressed to plain text, else the plain-text
// body. The second result reports whether the returned body is HTML markup
// that still needs sanitizing.
func (m *Message) BestBody() (body string, isHTML bool) {
	if strings.TrimSpace(m.BodyHTML) != "" {
		return m.BodyHTML, true
	}
	if len(m.rtf) > 0 {
		if raw, err := decompressRTF(m.rtf); err == nil {
			if text := rtfToText(raw); text != "" {
				return text, false
			}
		}
	}
	return m.BodyText, false
}

// Decode interprets a parsed compound file as an Outlook message.
func Decode(c *cfb.Container) (*Message, error) {
	bag, numbered, err := readBag(c, c.Root(), 32)
	if err != nil {
		return nil, err
	}

	// Code page for ANSI string properties, shared by the sub-storages.
	codepage := 1252
	if cp, ok := bag.int32(tagInternetCPID); ok && cp > 0 {
		codepage = int(cp)
	} else if cp, ok := bag.int32(tagMessageCodepage); ok && cp > 0 {
		codepage = int(cp)
	}
	bag.codepage = codepage

	m := &Message{
		Subject:           bag.str(tagSubject),
		MessageID:         bag.str(tagMessageID),
		BodyText:          bag.str(tagBody),
		BodyHTML:          htmlBody(bag),
		rtf:               bag.bytes(tagRTFCompressed),
		IgnoredProperties: bag.ignored,
	}
	m.From = firstNonEmpty(bag.str(tagSenderSMTP), bag.str(tagSenderEmail), bag.str(tagSenderName))
	if t, ok := bag.time(tagClientSubmitTime); ok {
		m.Date, m.HasDate = t, true
	} else if t, ok := bag.time(tagMessageDeliveryTime); ok {
		m.Date, m.HasDate = t, true
	}

	for _, storage := range numbered {
		sub, _, err := readBag(c, storage, 8)
		if err != nil {
			return nil, err
		}
		sub.codepage = codepage
		m.IgnoredProperties += sub.ignored

		switch {
		case strings.HasPrefix(storage.Name, recipPrefix):
			m.addRecipient(sub)
		case strings.HasPrefix(storage.Name, attachPrefix):
			m.addAttachment(sub)
		}
	}
	return m, nil
}

func (m *Message) addRecipient(bag *propertyBag) {
	addr := firstNonEmpty(bag.str(tagSMTPAddress), bag.str(tagEmailAddress), bag.str(tagDisplayName))
	if addr == "" {
		return
	}
	rtype := int32(recipientTo)
	if v, ok := bag.int32(tagRecipientType); ok {
		rtype = v
	}
	switch rtype {
	case recipientCc:
		m.Cc = append(m.Cc, addr)
	case recipientBcc:
		m.Bcc = append(m.Bcc, addr)
	default:
		m.To = append(m.To, addr)
	}
}

func (m *Message) addAttachment(bag *propertyBag) {
	data := bag.bytes(tagAttachDataBinary)
	att := Attachment{
		Filename: firstNonEmpty(bag.str(tagAttachLongFilename), bag.str(tagAttachFilename)),
		MimeType: bag.str(tagAttachMimeTag),
		Size:     int64(len(data)),
		Data:     data,
	}
	if att.MimeType == "" {
		att.MimeType = "application/octet-stream"
	}
	m.Attachments = append(m.Attachments, att)
}

// htmlBody resolves PR_HTML, which Outlook writes as either a binary blob
// in the message code page or a Unicode string.
func htmlBody(bag *propertyBag) string {
	p, ok := bag.props[tagHTMLBody]
	if !ok {
		return ""
	}
	switch p.typ {
	case typeUnicode:
		return decodeUTF16LE(p.raw)
	default:
		return strings.TrimRight(transcode(bag.codepage, p.raw), "\x00")
	}
}

// readBag decodes the property streams directly under a storage entry and
// collects its numbered recipient/attachment sub-storages in ascending
// numeric order. headerSkip is the fixed-record header size for this
// storage level.
func readBag(c *cfb.Container, e *cfb.DirEntry, headerSkip int) (*propertyBag, []*cfb.DirEntry, error) {
	bag := newBag()
	var numbered []*cfb.DirEntry

	for _, ch := range c.Children(e) {
		switch {
		case ch.Type == cfb.TypeStream && strings.HasPrefix(ch.Name, substgPrefix):
			tag, typ, ok := parseSubstgName(ch.Name)
			if !ok || !knownType(typ) {
				bag.ignored++
				continue
			}
			data, err := c.Stream(ch)
			if err != nil {
				return nil, nil, fmt.Errorf("property stream %s: %w", ch.Name, err)
			}
			bag.set(tag, typ, data)

		case ch.Type == cfb.TypeStream && ch.Name == propertiesStream:
			data, err := c.Stream(ch)
			if err != nil {
				return nil, nil, fmt.Errorf("properties stream: %w", err)
			}
			bag.readFixed(data, headerSkip)

		case ch.Type == cfb.TypeStorage &&
			(strings.HasPrefix(ch.Name, recipPrefix) || strings.HasPrefix(ch.Name, attachPrefix)):
			numbered = append(numbered, ch)
		}
	}

	sort.SliceStable(numbered, func(i, j int) bool {
		return storageOrdinal(numbered[i].Name) < storageOrdinal(numbered[j].Name)
	})
	return bag, numbered, nil
}

// storageOrdinal extracts the hex ordinal from a numbered storage name.
func storageOrdinal(name string) uint64 {
	i := strings.LastIndexByte(name, '#')
	if i < 0 || i+1 >= len(name) {
		return 0
	}
	v, err := strconv.ParseUint(name[i+1:], 16, 64)
	if err != nil {
		return 0
	}
	return v
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
