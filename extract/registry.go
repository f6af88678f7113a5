package extract

import (
	"context"
	"sync"

	"doc-extract/config"
	"doc-extract/ocr"
)

// Request carries one extraction input through the dispatcher.
type Request struct {
	Data     []byte
	Format   Format
	MimeType string
	Filename string
	Config   config.ExtractionConfig

	// OCREngine and Renderer are set by the Service when OCR is
	// enabled and an engine is registered.
	OCREngine ocr.Engine
	Renderer  ocr.Renderer
}

// Extractor converts one document family to text and metadata.
type Extractor interface {
	CanHandle(f Format) bool
	Extract(ctx context.Context, req *Request) (*Result, error)
}

// Registry maps formats to extractors. The zero value is empty; use
// NewRegistry for the full built-in set.
type Registry struct {
	mu         sync.RWMutex
	extractors map[Format]Extractor
}

// NewRegistry returns a registry with all built-in extractors wired.
func NewRegistry() *Registry {
	r := &Registry{extractors: make(map[Format]Extractor)}

	text := &TextExtractor{}
	for _, f := range []Format{FormatPlainText, FormatMarkdown, FormatCSV, FormatJSON, FormatXML} {
		r.Register(f, text)
	}
	r.Register(FormatHTML, &HTMLExtractor{})
	r.Register(FormatEML, &EmailExtractor{})
	r.Register(FormatMbox, &MboxExtractor{})
	r.Register(FormatMsg, &MsgExtractor{})
	r.Register(FormatPDF, &PDFExtractor{})

	office := &OfficeExtractor{}
	for _, f := range []Format{FormatDocx, FormatXlsx, FormatPptx, FormatODT, FormatODS, FormatODP} {
		r.Register(f, office)
	}
	r.Register(FormatRTF, &RTFExtractor{})
	r.Register(FormatZip, &ArchiveExtractor{})
	r.Register(FormatImage, &ImageExtractor{})
	return r
}

// Register installs an extractor for a format, replacing any existing
// one. Safe for concurrent use.
func (r *Registry) Register(f Format, e Extractor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.extractors == nil {
		r.extractors = make(map[Format]Extractor)
	}
	r.extractors[f] = e
}

// Lookup returns the extractor for a format.
func (r *Registry) Lookup(f Format) (Extractor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.extractors[f]
	return e, ok
}

// Formats lists the registered formats.
func (r *Registry) Formats() []Format {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Format, 0, len(r.extractors))
	for f := range r.extractors {
		out = append(out, f)
	}
	return out
}
