package config

import (
	"strings"
)

// MimeByExtension maps lowercase file extensions to the MIME type the
// dispatcher assumes when content sniffing is inconclusive.
var MimeByExtension = map[string]string{
	"txt":  "text/plain",
	"md":   "text/markdown",
	"log":  "text/plain",
	"csv":  "text/csv",
	"tsv":  "text/tab-separated-values",
	"html": "text/html",
	"htm":  "text/html",
	"xml":  "application/xml",
	"json": "application/json",
	"yaml": "application/yaml",
	"yml":  "application/yaml",
	"eml":  "message/rfc822",
	"mbox": "application/mbox",
	"msg":  "application/vnd.ms-outlook",
	"pdf":  "application/pdf",
	"docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	"xlsx": "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	"pptx": "application/vnd.openxmlformats-officedocument.presentationml.presentation",
	"odt":  "application/vnd.oasis.opendocument.text",
	"ods":  "application/vnd.oasis.opendocument.spreadsheet",
	"odp":  "application/vnd.oasis.opendocument.presentation",
	"rtf":  "application/rtf",
	"zip":  "application/zip",
	"png":  "image/png",
	"jpg":  "image/jpeg",
	"jpeg": "image/jpeg",
	"tiff": "image/tiff",
	"tif":  "image/tiff",
	"bmp":  "image/bmp",
	"webp": "image/webp",
}

// MimeForFilename resolves the declared MIME type from a filename
// extension. Returns "" when the extension is unknown.
func MimeForFilename(filename string) string {
	ext := strings.ToLower(strings.TrimPrefix(fileExtension(filename), "."))
	return MimeByExtension[ext]
}

// IsSupportedFile checks whether a filename maps to an extractable type.
func IsSupportedFile(filename string) bool {
	return MimeForFilename(filename) != ""
}

// SupportedExtensions returns the extensions the dispatcher recognizes,
// without leading dots.
func SupportedExtensions() []string {
	exts := make([]string, 0, len(MimeByExtension))
	for ext := range MimeByExtension {
		exts = append(exts, ext)
	}
	return exts
}

// fileExtension extracts the extension including the dot.
func fileExtension(filename string) string {
	lastDot := strings.LastIndex(filename, ".")
	if lastDot == -1 || lastDot == len(filename)-1 {
		return ""
	}
	return filename[lastDot:]
}

// IsHiddenFile checks if a file should be treated as hidden.
func IsHiddenFile(filename string) bool {
	return strings.HasPrefix(filename, ".")
}

// ShouldSkipDirectory determines if a directory should be skipped during
// batch traversal.
func ShouldSkipDirectory(dirName string) bool {
	skipDirs := map[string]bool{
		".git":         true,
		".svn":         true,
		".hg":          true,
		"node_modules": true,
		"__pycache__":  true,
		"vendor":       true,
		"target":       true,
		"build":        true,
		"dist":         true,
		"tmp":          true,
		"temp":         true,
	}

	return skipDirs[dirName] || strings.HasPrefix(dirName, ".")
}

// BatchProfile returns worker and queue sizes based on input count.
func BatchProfile(fileCount int) (workers int, bufferSize int) {
	switch {
	case fileCount < 100:
		return 2, 50
	case fileCount < 1000:
		return 4, 200
	case fileCount < 10000:
		return 8, 500
	default:
		return 16, 1000
	}
}
