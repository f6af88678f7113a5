package msg

import (
	"fmt"
	"strings"

	"doc-extract/cfb"
)

// Compressed RTF (PR_RTF_COMPRESSED) container types.
const (
	compTypeLZFu = 0x75465A4C // "LZFu": LZ77 against a seeded dictionary
	compTypeMELA = 0x414C454D // "MELA": stored uncompressed
)

// lzfuDict is the 207-byte dictionary prefix every compressed RTF stream
// is coded against.
const lzfuDict = "{\\rtf1\\ansi\\mac\\deff0\\deftab720{\\fonttbl;}" +
	"{\\f0\\fnil \\froman \\fswiss \\fmodern \\fscript \\fdecor " +
	"MS Sans SerifSymbolArialTimes New RomanCourier{\\colortbl\\red0\\green0\\blue0" +
	"\r\n\\par \\pard\\plain\\f0\\fs20\\b\\i\\u\\tab\\tx"

// decompressRTF expands a PR_RTF_COMPRESSED value to plain RTF bytes.
func decompressRTF(data []byte) ([]byte, error) {
	r := cfb.NewReader(data)
	if _, err := r.U32(); err != nil { // compressed size, unused
		return nil, fmt.Errorf("compressed rtf: %w", err)
	}
	rawSize, err := r.U32()
	if err != nil {
		return nil, fmt.Errorf("compressed rtf: %w", err)
	}
	compType, err := r.U32()
	if err != nil {
		return nil, fmt.Errorf("compressed rtf: %w", err)
	}
	if err := r.Skip(4); err != nil { // crc
		return nil, fmt.Errorf("compressed rtf: %w", err)
	}

	// A 2-byte reference expands to at most 17 bytes; anything beyond that
	// ratio is a hostile size field, not a real stream.
	if int64(rawSize) > int64(len(data))*9 {
		return nil, fmt.Errorf("compressed rtf: declared size %d implausible for %d input bytes", rawSize, len(data))
	}

	if compType == compTypeMELA {
		out, err := r.Bytes(int(rawSize))
		if err != nil {
			return nil, fmt.Errorf("compressed rtf: %w", err)
		}
		return append([]byte(nil), out...), nil
	}
	if compType != compTypeLZFu {
		return nil, fmt.Errorf("compressed rtf: unknown container type %#x", compType)
	}

	dict := make([]byte, 4096)
	copy(dict, lzfuDict)
	wp := len(lzfuDict)

	out := make([]byte, 0, rawSize)
	for {
		ctrl, err := r.Bytes(1)
		if err != nil {
			break
		}
		for bit := 0; bit < 8; bit++ {
			if len(out) >= int(rawSize) {
				return out[:rawSize], nil
			}
			if ctrl[0]>>bit&1 == 0 {
				lit, err := r.Bytes(1)
				if err != nil {
					return out, nil
				}
				out = append(out, lit[0])
				dict[wp] = lit[0]
				wp = (wp + 1) & 0xFFF
				continue
			}
			ref, err := r.Bytes(2)
			if err != nil {
				return out, nil
			}
			// References are big-endian: 12 bits offset, 4 bits length.
			v := uint16(ref[0])<<8 | uint16(ref[1])
			offset := int(v >> 4)
			length := int(v&0xF) + 2
			if offset == wp {
				// A reference to the current write position terminates the stream.
				return out, nil
			}
			for i := 0; i < length && len(out) < int(rawSize); i++ {
				ch := dict[(offset+i)&0xFFF]
				out = append(out, ch)
				dict[wp] = ch
				wp = (wp + 1) & 0xFFF
			}
		}
	}
	return out, nil
}

// rtf group destinations whose content is formatting data, not body text.
var rtfSkipGroups = map[string]bool{
	"fonttbl":    true,
	"colortbl":   true,
	"stylesheet": true,
	"pict":       true,
	"info":       true,
	"themedata":  true,
	"generator":  true,
}

// RTFToText converts an RTF document to plain text. This is salvage, not
// rendering: control words are dropped, escapes and \par/\tab are honored,
// formatting destinations are skipped wholesale.
func RTFToText(rtf []byte) string { return rtfToText(rtf) }

func rtfToText(rtf []byte) string {
	var out strings.Builder
	var pending []byte // code-page bytes awaiting transcoding
	codepage := 1252
	depth := 0
	skipDepth := 0

	flush := func() {
		if len(pending) > 0 {
			out.WriteString(transcode(codepage, pending))
			pending = pending[:0]
		}
	}
	emit := func(b byte) {
		if skipDepth == 0 {
			pending = append(pending, b)
		}
	}

	i := 0
	for i < len(rtf) {
		switch c := rtf[i]; c {
		case '{':
			depth++
			i++
		case '}':
			depth--
			if skipDepth > 0 && depth < skipDepth {
				skipDepth = 0
			}
			i++
		case '\r', '\n':
			i++
		case '\\':
			i++
			if i >= len(rtf) {
				break
			}
			sym := rtf[i]
			// Escaped literals and the hex escape.
			switch sym {
			case '\\', '{', '}':
				emit(sym)
				i++
				continue
			case '\'':
				if i+2 < len(rtf) {
					if v, ok := hexByte(rtf[i+1], rtf[i+2]); ok {
						emit(v)
					}
					i += 3
				} else {
					i = len(rtf)
				}
				continue
			case '*':
				// Unknown destination: skip the enclosing group.
				if skipDepth == 0 {
					skipDepth = depth
				}
				i++
				continue
			case '~':
				emit(' ')
				i++
				continue
			}

			word, param, hasParam, next := rtfControlWord(rtf, i)
			i = next
			switch word {
			case "par", "line", "sect", "page":
				emit('\n')
			case "tab", "cell":
				emit('\t')
			case "u":
				// \uN is a 16-bit signed scalar followed by a fallback char.
				if skipDepth == 0 && hasParam {
					n := param
					if n < 0 {
						n += 65536
					}
					flush()
					out.WriteRune(rune(n))
				}
				if i < len(rtf) && rtf[i] != '\\' && rtf[i] != '{' && rtf[i] != '}' {
					i++ // consume the fallback character
				}
			case "ansicpg":
				if hasParam && param > 0 {
					flush()
					codepage = param
				}
			case "bin":
				if hasParam && param > 0 && i+param <= len(rtf) {
					i += param
				}
			default:
				if rtfSkipGroups[word] && skipDepth == 0 {
					skipDepth = depth
				}
			}
		default:
			emit(c)
			i++
		}
	}

	flush()
	return strings.TrimSpace(out.String())
}

// rtfControlWord parses a control word at rtf[i] (the first letter after
// the backslash) and returns the word, its numeric parameter, and the
// index after the word and its optional trailing space.
func rtfControlWord(rtf []byte, i int) (word string, param int, hasParam bool, next int) {
	start := i
	for i < len(rtf) && isASCIILetter(rtf[i]) {
		i++
	}
	word = string(rtf[start:i])

	neg := false
	if i < len(rtf) && rtf[i] == '-' {
		neg = true
		i++
	}
	for i < len(rtf) && rtf[i] >= '0' && rtf[i] <= '9' {
		param = param*10 + int(rtf[i]-'0')
		hasParam = true
		i++
	}
	if neg {
		param = -param
	}
	if i < len(rtf) && rtf[i] == ' ' {
		i++
	}
	return word, param, hasParam, i
}

func isASCIILetter(b byte) bool {
	return b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z'
}

func hexByte(hi, lo byte) (byte, bool) {
	h, ok1 := hexNibble(hi)
	l, ok2 := hexNibble(lo)
	return h<<4 | l, ok1 && ok2
}

func hexNibble(b byte) (byte, bool) {
	switch {
	case b >= '0' && b <= '9':
		return b - '0', true
	case b >= 'a' && b <= 'f':
		return b - 'a' + 10, true
	case b >= 'A' && b <= 'F':
		return b - 'A' + 10, true
	}
	return 0, false
}
