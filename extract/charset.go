package extract

import (
	"bytes"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/gogs/chardet"
	"github.com/ssor/bom"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/transform"
)

// decodeText converts raw bytes to UTF-8. A byte order mark wins,
// then valid UTF-8 passes through, then statistical detection picks
// an encoding. Undecodable bytes degrade to replacement runes rather
// than failing the extraction.
func decodeText(data []byte) string {
	if reader, err := bom.NewReaderWithoutBom(bytes.NewReader(data)); err == nil {
		if stripped, err := io.ReadAll(reader); err == nil {
			data = stripped
		}
	}
	if utf8.Valid(data) {
		return string(data)
	}

	detector := chardet.NewTextDetector()
	if res, err := detector.DetectBest(data); err == nil && res.Charset != "" {
		if decoded, ok := decodeAs(data, res.Charset); ok {
			return decoded
		}
	}
	// Latin-1 maps every byte, so this cannot fail.
	if decoded, ok := decodeAs(data, "ISO-8859-1"); ok {
		return decoded
	}
	return strings.ToValidUTF8(string(data), "�")
}

func decodeAs(data []byte, charset string) (string, bool) {
	enc, err := htmlindex.Get(strings.ToLower(charset))
	if err != nil {
		return "", false
	}
	decoded, _, err := transform.Bytes(enc.NewDecoder(), data)
	if err != nil {
		return "", false
	}
	if !utf8.Valid(decoded) {
		return "", false
	}
	return string(decoded), true
}
