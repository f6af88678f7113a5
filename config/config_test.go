package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMimeForFilename(t *testing.T) {
	assert.Equal(t, "application/pdf", MimeForFilename("report.pdf"))
	assert.Equal(t, "application/vnd.ms-outlook", MimeForFilename("MAIL.MSG"))
	assert.Equal(t, "message/rfc822", MimeForFilename("a/b/mail.eml"))
	assert.Equal(t, "", MimeForFilename("noext"))
	assert.Equal(t, "", MimeForFilename("weird.xyz"))
	assert.Equal(t, "", MimeForFilename("trailing."))
}

func TestIsSupportedFile(t *testing.T) {
	assert.True(t, IsSupportedFile("doc.docx"))
	assert.False(t, IsSupportedFile("prog.exe"))
}

func TestShouldSkipDirectory(t *testing.T) {
	assert.True(t, ShouldSkipDirectory(".git"))
	assert.True(t, ShouldSkipDirectory("node_modules"))
	assert.True(t, ShouldSkipDirectory(".anything-hidden"))
	assert.False(t, ShouldSkipDirectory("documents"))
}

func TestNormalized(t *testing.T) {
	cfg := ExtractionConfig{}.Normalized()
	assert.Equal(t, []string{"eng"}, cfg.OCRLanguages)
	assert.Equal(t, CFBStrict, cfg.CFBMode)
	assert.NotNil(t, cfg.Logger)
	assert.Positive(t, cfg.CacheCapacity)

	lenient := ExtractionConfig{CFBMode: CFBLenient}.Normalized()
	assert.Equal(t, CFBLenient, lenient.CFBMode)
}
