// Package msg decodes Outlook message content from a parsed compound file:
// typed MAPI properties, recipient and attachment sub-storages, and the
// message body in its several encodings.
//
// Properties are self-describing: variable-length values live in streams
// named "__substg1.0_TTTTYYYY" where TTTT is the property tag and YYYY the
// type code, and fixed-width values sit in 16-byte records inside the
// "__properties_version1.0" stream. No external schema is required.
package msg

import (
	"strconv"
	"strings"
	"time"
	"unicode/utf16"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/encoding/korean"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/encoding/traditionalchinese"

	"doc-extract/cfb"
)

// MAPI property type codes (the closed set this decoder understands).
const (
	typeShort   = 0x0002
	typeLong    = 0x0003
	typeDouble  = 0x0005
	typeBoolean = 0x000B
	typeI8      = 0x0014
	typeString8 = 0x001E
	typeUnicode = 0x001F
	typeSystime = 0x0040
	typeBinary  = 0x0102

	// Multi-valued variants carry this flag on top of the base type.
	typeMVFlag = 0x1000
)

// MAPI property tags used by the decoder.
const (
	tagTransportHeaders    = 0x007D
	tagSubject             = 0x0037
	tagClientSubmitTime    = 0x0039
	tagSenderName          = 0x0C1A
	tagSenderEmail         = 0x0C1F
	tagRecipientType       = 0x0C15
	tagMessageDeliveryTime = 0x0E06
	tagBody                = 0x1000
	tagRTFCompressed       = 0x1009
	tagHTMLBody            = 0x1013
	tagMessageID           = 0x1035
	tagDisplayName         = 0x3001
	tagEmailAddress        = 0x3003
	tagAttachDataBinary    = 0x3701
	tagAttachFilename      = 0x3704
	tagAttachLongFilename  = 0x3707
	tagAttachMimeTag       = 0x370E
	tagInternetCPID        = 0x3FDE
	tagMessageCodepage     = 0x3FFD
	tagSMTPAddress         = 0x39FE
	tagSenderSMTP          = 0x5D01
)

const (
	substgPrefix     = "__substg1.0_"
	propertiesStream = "__properties_version1.0"
	recipPrefix      = "__recip_version1.0_#"
	attachPrefix     = "__attach_version1.0_#"
)

// prop holds one decoded property: either the raw stream content
// (variable-length types) or the 8-byte fixed value.
type prop struct {
	typ uint16
	raw []byte
}

// propertyBag collects the properties of one storage (message, recipient,
// or attachment). Unknown type codes are counted, never fatal.
type propertyBag struct {
	props    map[uint16]prop
	mv       map[uint16][][]byte
	codepage int
	ignored  int
}

func newBag() *propertyBag {
	return &propertyBag{
		props:    make(map[uint16]prop),
		mv:       make(map[uint16][][]byte),
		codepage: 1252,
	}
}

func knownType(typ uint16) bool {
	switch typ &^ typeMVFlag {
	case typeShort, typeLong, typeDouble, typeBoolean, typeI8,
		typeString8, typeUnicode, typeSystime, typeBinary:
		return true
	}
	return false
}

// set records a property value. The Unicode variant of a string property
// wins over its ANSI twin when both are present.
func (b *propertyBag) set(tag, typ uint16, raw []byte) {
	if typ&typeMVFlag != 0 {
		b.mv[tag] = append(b.mv[tag], raw)
		return
	}
	if existing, ok := b.props[tag]; ok {
		if existing.typ == typeUnicode && typ == typeString8 {
			return
		}
	}
	b.props[tag] = prop{typ: typ, raw: raw}
}

// readFixed decodes the 16-byte records of a __properties_version1.0
// stream. skip is the storage-dependent header size (32 for the message
// itself, 8 for recipient and attachment storages). Variable-length types
// are listed there too but carry only sizes; their values come from the
// substg streams, so those records are passed over without counting.
func (b *propertyBag) readFixed(data []byte, skip int) {
	r := cfb.NewReader(data)
	if err := r.Skip(skip); err != nil {
		return
	}
	for r.Remaining() >= 16 {
		tagTyp, _ := r.U32()
		r.Skip(4) // flags
		value, _ := r.Bytes(8)
		typ := uint16(tagTyp & 0xFFFF)
		tag := uint16(tagTyp >> 16)
		switch typ {
		case typeShort, typeLong, typeDouble, typeBoolean, typeI8, typeSystime:
			b.set(tag, typ, append([]byte(nil), value...))
		case typeString8, typeUnicode, typeBinary:
			// size-only record, value lives in a substg stream
		default:
			b.ignored++
		}
	}
}

// parseSubstgName recovers (tag, type) from a property stream name.
// Multi-valued value streams append "-NNNNNNNN"; the suffix is ignored
// here, ordering is the traversal order.
func parseSubstgName(name string) (tag, typ uint16, ok bool) {
	rest, found := strings.CutPrefix(name, substgPrefix)
	if !found {
		return 0, 0, false
	}
	if i := strings.IndexByte(rest, '-'); i >= 0 {
		rest = rest[:i]
	}
	if len(rest) != 8 {
		return 0, 0, false
	}
	v, err := strconv.ParseUint(rest, 16, 32)
	if err != nil {
		return 0, 0, false
	}
	return uint16(v >> 16), uint16(v & 0xFFFF), true
}

// str returns a property as UTF-8 text: UTF-16LE for Unicode values,
// code-page transcoding for ANSI values. Untranscodable bytes are
// replaced, never fatal.
func (b *propertyBag) str(tag uint16) string {
	p, ok := b.props[tag]
	if !ok {
		return ""
	}
	switch p.typ {
	case typeUnicode:
		return decodeUTF16LE(p.raw)
	case typeString8:
		return strings.TrimRight(transcode(b.codepage, p.raw), "\x00")
	case typeBinary:
		return strings.TrimRight(transcode(b.codepage, p.raw), "\x00")
	}
	return ""
}

// bytes returns the raw value of a binary property.
func (b *propertyBag) bytes(tag uint16) []byte {
	p, ok := b.props[tag]
	if !ok {
		return nil
	}
	return p.raw
}

// int32 returns a fixed integer property (PT_SHORT or PT_LONG).
func (b *propertyBag) int32(tag uint16) (int32, bool) {
	p, ok := b.props[tag]
	if !ok || len(p.raw) < 4 {
		return 0, false
	}
	switch p.typ {
	case typeShort:
		return int32(int16(uint16(p.raw[0]) | uint16(p.raw[1])<<8)), true
	case typeLong:
		return int32(uint32(p.raw[0]) | uint32(p.raw[1])<<8 | uint32(p.raw[2])<<16 | uint32(p.raw[3])<<24), true
	}
	return 0, false
}

// time returns a PT_SYSTIME property as UTC time.
func (b *propertyBag) time(tag uint16) (time.Time, bool) {
	p, ok := b.props[tag]
	if !ok || p.typ != typeSystime || len(p.raw) < 8 {
		return time.Time{}, false
	}
	var ft uint64
	for i := 7; i >= 0; i-- {
		ft = ft<<8 | uint64(p.raw[i])
	}
	return filetimeToTime(ft), true
}

// filetimeToTime converts a Windows FILETIME (100ns intervals since
// 1601-01-01) to a time.Time.
func filetimeToTime(ft uint64) time.Time {
	const epochDiff = 116444736000000000 // 1601..1970 in 100ns units
	return time.Unix(0, (int64(ft)-epochDiff)*100).UTC()
}

func decodeUTF16LE(b []byte) string {
	u16s := make([]uint16, 0, len(b)/2)
	for i := 0; i+1 < len(b); i += 2 {
		u16s = append(u16s, uint16(b[i])|uint16(b[i+1])<<8)
	}
	return strings.TrimRight(string(utf16.Decode(u16s)), "\x00")
}

// codepageEncodings maps Windows code page identifiers to decoders.
// Anything absent falls back to windows-1252.
var codepageEncodings = map[int]encoding.Encoding{
	874:  charmap.Windows874,
	932:  japanese.ShiftJIS,
	936:  simplifiedchinese.GBK,
	949:  korean.EUCKR,
	950:  traditionalchinese.Big5,
	1250: charmap.Windows1250,
	1251: charmap.Windows1251,
	1252: charmap.Windows1252,
	1253: charmap.Windows1253,
	1254: charmap.Windows1254,
	1255: charmap.Windows1255,
	1256: charmap.Windows1256,
	1257: charmap.Windows1257,
	1258: charmap.Windows1258,

	28591: charmap.ISO8859_1,
	28592: charmap.ISO8859_2,
	28595: charmap.ISO8859_5,
	28605: charmap.ISO8859_15,
	20866: charmap.KOI8R,
}

// transcode converts code-page text to UTF-8, best effort. A failed
// multibyte decode degrades to replacement characters rather than aborting
// the extraction.
func transcode(codepage int, b []byte) string {
	if codepage == 65001 { // already UTF-8
		return strings.ToValidUTF8(string(b), "�")
	}
	enc, ok := codepageEncodings[codepage]
	if !ok {
		enc = charmap.Windows1252
	}
	out, err := enc.NewDecoder().Bytes(b)
	if err != nil {
		return strings.ToValidUTF8(string(b), "�")
	}
	return string(out)
}
