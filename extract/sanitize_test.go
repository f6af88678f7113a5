package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTMLToTextStripsScriptAndStyle(t *testing.T) {
	markup := `<html><head>
		<style>body { color: red; }</style>
		<script>alert("evil payload")</script>
	</head><body><p>Visible text</p></body></html>`

	for _, sanitize := range []bool{true, false} {
		text := htmlToText(markup, sanitize)
		assert.Contains(t, text, "Visible text")
		assert.NotContains(t, text, "evil payload")
		assert.NotContains(t, text, "color: red")
	}
}

func TestHTMLToTextKeepsStructure(t *testing.T) {
	markup := `<html><body><h1>Heading</h1><p>First paragraph.</p><p>Second paragraph.</p></body></html>`
	text := htmlToText(markup, true)
	assert.Contains(t, text, "Heading")
	assert.Contains(t, text, "First paragraph.")
	assert.Contains(t, text, "Second paragraph.")
}

func TestHTMLToTextMalformedInput(t *testing.T) {
	text := htmlToText("<p>unclosed <b>nested <i>tags", true)
	assert.Contains(t, text, "unclosed")
	assert.Contains(t, text, "tags")
}

func TestHTMLTitle(t *testing.T) {
	assert.Equal(t, "Page Title",
		htmlTitle(`<html><head><title>  Page   Title </title></head></html>`))
	assert.Equal(t, "", htmlTitle(`<html><body>no title</body></html>`))
}

func TestCollapseWhitespace(t *testing.T) {
	in := "a   b\t\tc\r\n\n\n\n\nd   \n"
	assert.Equal(t, "a b c\n\nd", collapseWhitespace(in))
}

func TestDecodeTextUTF8BOM(t *testing.T) {
	data := append([]byte{0xEF, 0xBB, 0xBF}, []byte("hello")...)
	assert.Equal(t, "hello", decodeText(data))
}

func TestDecodeTextLatin1Fallback(t *testing.T) {
	// "café" in ISO-8859-1, invalid as UTF-8.
	data := []byte{'c', 'a', 'f', 0xE9}
	got := decodeText(data)
	assert.Contains(t, got, "caf")
	assert.NotContains(t, got, "\x00")
}
