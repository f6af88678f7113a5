package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolveFormat(t *testing.T) {
	cfbSig := []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}

	tests := []struct {
		name     string
		data     []byte
		declared string
		filename string
		want     Format
	}{
		{
			name: "pdf by content",
			data: []byte("%PDF-1.4\n%fake content"),
			want: FormatPDF,
		},
		{
			name: "html by content",
			data: []byte("<!DOCTYPE html><html><body>hi</body></html>"),
			want: FormatHTML,
		},
		{
			name: "plain text",
			data: []byte("just some words\n"),
			want: FormatPlainText,
		},
		{
			name:     "text refined to eml by extension",
			data:     []byte("From: a@b.c\r\nSubject: Hi\r\n\r\nbody\r\n"),
			filename: "mail.eml",
			want:     FormatEML,
		},
		{
			name:     "text refined to markdown by declared type",
			data:     []byte("# Heading\n\nparagraph\n"),
			declared: "text/markdown",
			want:     FormatMarkdown,
		},
		{
			name: "ole storage dispatches to msg",
			data: append(append([]byte{}, cfbSig...), make([]byte, 504)...),
			want: FormatMsg,
		},
		{
			name:     "declared type cannot override ole storage",
			data:     append(append([]byte{}, cfbSig...), make([]byte, 504)...),
			declared: "text/plain",
			want:     FormatMsg,
		},
		{
			name: "unknown binary",
			data: []byte{0x00, 0x01, 0x02, 0x03, 0xFF, 0xFE},
			want: FormatUnknown,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, _ := ResolveFormat(tt.data, tt.declared, tt.filename)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalizeMime(t *testing.T) {
	assert.Equal(t, "text/html", normalizeMime("text/html; charset=utf-8"))
	assert.Equal(t, "text/plain", normalizeMime(" TEXT/PLAIN "))
	assert.Equal(t, "", normalizeMime(""))
}
