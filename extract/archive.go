package extract

import (
	"archive/zip"
	"bytes"
	"context"
	"io"
	"path"
	"strings"

	"doc-extract/config"
)

// ArchiveExtractor handles generic zip archives that are not office
// documents: each supported member is extracted recursively and the
// results are concatenated with member headers.
type ArchiveExtractor struct{}

// archiveMemberLimit caps per-member extraction so one hostile archive
// cannot balloon memory.
const archiveMemberLimit = 64 << 20

func (e *ArchiveExtractor) CanHandle(f Format) bool { return f == FormatZip }

func (e *ArchiveExtractor) Extract(ctx context.Context, req *Request) (*Result, error) {
	zr, err := zip.NewReader(bytes.NewReader(req.Data), int64(len(req.Data)))
	if err != nil {
		return nil, wrapError(KindParsing, err, "open archive")
	}

	registry := NewRegistry()
	var sections []string

	for _, f := range zr.File {
		if f.FileInfo().IsDir() || config.IsHiddenFile(path.Base(f.Name)) {
			continue
		}
		format := formatByMime[normalizeMime(config.MimeForFilename(f.Name))]
		if format == FormatUnknown || format == FormatZip {
			continue
		}
		ext, ok := registry.Lookup(format)
		if !ok {
			continue
		}

		rc, err := f.Open()
		if err != nil {
			continue
		}
		data, err := io.ReadAll(io.LimitReader(rc, archiveMemberLimit))
		rc.Close()
		if err != nil {
			continue
		}

		sub := *req
		sub.Data = data
		sub.Format = format
		sub.Filename = f.Name
		sub.MimeType = config.MimeForFilename(f.Name)

		res, err := ext.Extract(ctx, &sub)
		if err != nil || strings.TrimSpace(res.Content) == "" {
			// Damaged members do not fail the archive.
			continue
		}
		sections = append(sections, "=== "+f.Name+" ===\n"+res.Content)
	}

	if len(sections) == 0 {
		return nil, newError(KindParsing, "archive contains no extractable members")
	}
	return &Result{
		Content:  strings.Join(sections, "\n\n"),
		MimeType: req.MimeType,
	}, nil
}
