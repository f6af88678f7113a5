package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"unicode/utf8"

	"doc-extract/cache"
	"doc-extract/config"
	"doc-extract/ocr"
)

// Service is the extraction entry point. It resolves formats,
// dispatches to extractors, deduplicates concurrent identical inputs,
// and caches results by content fingerprint.
type Service struct {
	cfg      config.ExtractionConfig
	registry *Registry
	memory   *cache.Cache[*Result]
	store    cache.Store
	engine   ocr.Engine
	renderer ocr.Renderer
	log      *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithOCR installs the recognition engine and page renderer used for
// image inputs and image-only PDFs.
func WithOCR(engine ocr.Engine, renderer ocr.Renderer) Option {
	return func(s *Service) {
		s.engine = engine
		s.renderer = renderer
	}
}

// WithStore installs a durable result store consulted between the
// in-memory cache and a fresh extraction.
func WithStore(store cache.Store) Option {
	return func(s *Service) { s.store = store }
}

// WithRegistry replaces the built-in extractor registry.
func WithRegistry(r *Registry) Option {
	return func(s *Service) { s.registry = r }
}

// NewService builds a Service from cfg, filling unset fields with
// defaults.
func NewService(cfg config.ExtractionConfig, opts ...Option) (*Service, error) {
	cfg = cfg.Normalized()
	s := &Service{
		cfg:      cfg,
		registry: NewRegistry(),
		memory:   cache.New[*Result](cfg.CacheCapacity, cfg.CacheTTL),
		log:      cfg.Logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.store == nil && cfg.CachePath != "" {
		store, err := cache.OpenSQLiteStore(cfg.CachePath)
		if err != nil {
			return nil, wrapError(KindCache, err, "open durable cache")
		}
		s.store = store
	}
	return s, nil
}

// Close releases the durable store if the service owns one.
func (s *Service) Close() error {
	if s.store != nil {
		return s.store.Close()
	}
	return nil
}

// Extract converts document bytes to text and metadata. declaredMime
// and filename are hints for format resolution; either may be empty.
func (s *Service) Extract(ctx context.Context, data []byte, declaredMime, filename string) (*Result, error) {
	if len(data) == 0 {
		return nil, newError(KindValidation, "empty input")
	}

	format, mimeType := ResolveFormat(data, declaredMime, filename)
	if format == FormatUnknown {
		return nil, newError(KindUnsupportedFormat, "no extractor for %s", mimeType)
	}
	extractor, ok := s.registry.Lookup(format)
	if !ok {
		return nil, newError(KindUnsupportedFormat, "no extractor for %s", mimeType)
	}

	key := s.fingerprint(data, format)
	res, err := s.memory.Fetch(ctx, key, func() (*Result, error) {
		if cached, ok := s.storeGet(key); ok {
			return cached, nil
		}
		req := &Request{
			Data:      data,
			Format:    format,
			MimeType:  mimeType,
			Filename:  filename,
			Config:    s.cfg,
			OCREngine: s.engine,
			Renderer:  s.renderer,
		}
		out, err := extractor.Extract(ctx, req)
		if err != nil {
			s.log.Debug("extraction failed",
				"format", string(format), "size", len(data), "error", err)
			return nil, err
		}
		s.normalize(out)
		s.storePut(key, out)
		return out, nil
	})
	if err != nil {
		return nil, err
	}
	return res.clone(), nil
}

// ExtractFile reads and extracts one file from disk.
func (s *Service) ExtractFile(ctx context.Context, path string) (*Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, wrapError(KindIO, err, "read %s", path)
	}
	return s.Extract(ctx, data, "", path)
}

// fingerprint keys a result by everything that affects it: content,
// resolved format, and the output-affecting config fields.
func (s *Service) fingerprint(data []byte, format Format) string {
	cfgKey := fmt.Sprintf("%v|%v|%d|%s|%v",
		s.cfg.OCREnabled, s.cfg.OCRLanguages, s.cfg.MaxContentLength,
		s.cfg.CFBMode, s.cfg.HTMLSanitize)
	return cache.Key(data, []byte(format), []byte(cfgKey))
}

// normalize enforces the output contract: valid UTF-8 and the content
// length limit, truncated at a rune boundary.
func (s *Service) normalize(res *Result) {
	if !utf8.ValidString(res.Content) {
		res.Content = strings.ToValidUTF8(res.Content, "�")
	}
	if max := s.cfg.MaxContentLength; max > 0 && len(res.Content) > max {
		cut := max
		for cut > 0 && !utf8.RuneStart(res.Content[cut]) {
			cut--
		}
		res.Content = res.Content[:cut]
	}
	if res.Metadata.Title == "" && res.Metadata.Subject != "" {
		res.Metadata.Title = res.Metadata.Subject
	}
}

func (s *Service) storeGet(key string) (*Result, bool) {
	if s.store == nil {
		return nil, false
	}
	raw, ok, err := s.store.Get(key)
	if err != nil {
		s.log.Warn("durable cache read failed", "error", err)
		return nil, false
	}
	if !ok {
		return nil, false
	}
	var res Result
	if err := json.Unmarshal(raw, &res); err != nil {
		return nil, false
	}
	return &res, true
}

func (s *Service) storePut(key string, res *Result) {
	if s.store == nil {
		return
	}
	raw, err := json.Marshal(res)
	if err != nil {
		return
	}
	if err := s.store.Put(key, raw); err != nil {
		s.log.Warn("durable cache write failed", "error", err)
	}
}
