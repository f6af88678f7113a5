package extract_test

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"doc-extract/config"
	"doc-extract/extract"
)

const sampleEML = "From: Alice Sender <alice@example.com>\r\n" +
	"To: bob@example.com\r\n" +
	"Cc: carol@example.com\r\n" +
	"Subject: Test Email Subject\r\n" +
	"Message-ID: <abc123@example.com>\r\n" +
	"Date: Fri, 15 Mar 2024 09:30:00 +0000\r\n" +
	"Content-Type: text/plain; charset=utf-8\r\n" +
	"\r\n" +
	"This is the body text.\r\nIt has two lines.\r\n"

func newService(t *testing.T, mutate func(*config.ExtractionConfig)) *extract.Service {
	t.Helper()
	cfg := config.Default()
	cfg.Logger = discardLogger()
	if mutate != nil {
		mutate(&cfg)
	}
	svc, err := extract.NewService(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { svc.Close() })
	return svc
}

func TestExtractEmailBasic(t *testing.T) {
	svc := newService(t, nil)

	res, err := svc.Extract(context.Background(), []byte(sampleEML), "", "mail.eml")
	require.NoError(t, err)

	assert.Contains(t, res.Content, "Subject: Test Email Subject")
	assert.Contains(t, res.Content, "From: Alice Sender <alice@example.com>")
	assert.Contains(t, res.Content, "To: bob@example.com")
	assert.Contains(t, res.Content, "Cc: carol@example.com")
	assert.Contains(t, res.Content, "This is the body text.\r\nIt has two lines.")

	assert.Equal(t, "Test Email Subject", res.Metadata.Subject)
	require.NotNil(t, res.Metadata.Format)
	require.NotNil(t, res.Metadata.Format.Email)
	assert.Equal(t, "alice@example.com", res.Metadata.Format.Email.FromEmail)
	assert.Equal(t, []string{"bob@example.com"}, res.Metadata.Format.Email.ToEmails)
	assert.Equal(t, "abc123@example.com", res.Metadata.Format.Email.MessageID)
	require.NotNil(t, res.Metadata.CreatedAt)
}

func TestExtractEmailWithAttachment(t *testing.T) {
	eml := "From: a@example.com\r\n" +
		"To: b@example.com\r\n" +
		"Subject: With Attachment\r\n" +
		"MIME-Version: 1.0\r\n" +
		"Content-Type: multipart/mixed; boundary=\"BOUND\"\r\n" +
		"\r\n" +
		"--BOUND\r\n" +
		"Content-Type: text/plain\r\n" +
		"\r\n" +
		"See attached.\r\n" +
		"--BOUND\r\n" +
		"Content-Type: text/csv\r\n" +
		"Content-Disposition: attachment; filename=\"data.csv\"\r\n" +
		"\r\n" +
		"a,b,c\r\n" +
		"--BOUND--\r\n"

	svc := newService(t, nil)
	res, err := svc.Extract(context.Background(), []byte(eml), "message/rfc822", "")
	require.NoError(t, err)

	assert.Contains(t, res.Content, "See attached.")
	assert.Contains(t, res.Content, "Attachments: data.csv")
	require.Len(t, res.Metadata.Format.Email.Attachments, 1)
	assert.Equal(t, "data.csv", res.Metadata.Format.Email.Attachments[0].Filename)
}

func TestExtractHTMLSanitizes(t *testing.T) {
	html := `<html><head><title>Doc</title><script>evil()</script></head>` +
		`<body><p>Hello world</p></body></html>`

	svc := newService(t, nil)
	res, err := svc.Extract(context.Background(), []byte(html), "", "page.html")
	require.NoError(t, err)

	assert.Contains(t, res.Content, "Hello world")
	assert.NotContains(t, res.Content, "evil")
	assert.Equal(t, "Doc", res.Metadata.Title)
}

func TestExtractIdempotent(t *testing.T) {
	svc := newService(t, nil)

	first, err := svc.Extract(context.Background(), []byte(sampleEML), "", "mail.eml")
	require.NoError(t, err)
	second, err := svc.Extract(context.Background(), []byte(sampleEML), "", "mail.eml")
	require.NoError(t, err)

	assert.Equal(t, first.Content, second.Content)
	assert.Equal(t, first.Metadata, second.Metadata)
}

func TestExtractValidation(t *testing.T) {
	svc := newService(t, nil)

	_, err := svc.Extract(context.Background(), nil, "", "")
	assert.True(t, extract.IsKind(err, extract.KindValidation))

	_, err = svc.Extract(context.Background(), []byte{0x00, 0x01, 0x02, 0xFF}, "", "")
	assert.True(t, extract.IsKind(err, extract.KindUnsupportedFormat))
}

func TestExtractCorruptCompoundFile(t *testing.T) {
	// A compound file signature with a severed body parses as MSG and
	// must fail cleanly, never panic.
	data := []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1, 0x00, 0x01, 0x02, 0x03, 0x04, 0x05, 0x06}

	svc := newService(t, nil)
	_, err := svc.Extract(context.Background(), data, "", "broken.msg")
	require.Error(t, err)
	assert.True(t, extract.IsKind(err, extract.KindParsing), "got %v", err)
}

// failingExtractor counts invocations and always fails.
type failingExtractor struct {
	extract.TextExtractor
	calls atomic.Int64
}

func (f *failingExtractor) Extract(context.Context, *extract.Request) (*extract.Result, error) {
	f.calls.Add(1)
	return nil, errors.New("deliberate failure")
}

func TestExtractFailuresNotCached(t *testing.T) {
	failing := &failingExtractor{}
	registry := extract.NewRegistry()
	registry.Register(extract.FormatPlainText, failing)

	cfg := config.Default()
	cfg.Logger = discardLogger()
	svc, err := extract.NewService(cfg, extract.WithRegistry(registry))
	require.NoError(t, err)
	defer svc.Close()

	data := []byte("same input both times\n")

	_, err1 := svc.Extract(context.Background(), data, "", "note.txt")
	_, err2 := svc.Extract(context.Background(), data, "", "note.txt")
	require.Error(t, err1)
	require.Error(t, err2)

	// The second call recomputes; a memoized failure would stop at one.
	assert.Equal(t, int64(2), failing.calls.Load())
}

// countingExtractor wraps TextExtractor and counts invocations.
type countingExtractor struct {
	extract.TextExtractor
	calls atomic.Int64
	gate  chan struct{}
}

func (c *countingExtractor) Extract(ctx context.Context, req *extract.Request) (*extract.Result, error) {
	c.calls.Add(1)
	if c.gate != nil {
		<-c.gate
	}
	return c.TextExtractor.Extract(ctx, req)
}

func TestExtractDeduplicatesConcurrentCalls(t *testing.T) {
	counting := &countingExtractor{gate: make(chan struct{})}
	registry := extract.NewRegistry()
	registry.Register(extract.FormatPlainText, counting)

	cfg := config.Default()
	cfg.Logger = discardLogger()
	svc, err := extract.NewService(cfg, extract.WithRegistry(registry))
	require.NoError(t, err)
	defer svc.Close()

	data := []byte("identical input for every caller\n")

	const callers = 6
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := svc.Extract(context.Background(), data, "", "note.txt")
			assert.NoError(t, err)
			if err == nil {
				assert.Contains(t, res.Content, "identical input")
			}
		}()
	}

	// Allow every caller to join the in-flight extraction, then release.
	waitForCalls(t, &counting.calls)
	close(counting.gate)
	wg.Wait()

	assert.Equal(t, int64(1), counting.calls.Load())

	// A later call is served from the cache.
	_, err = svc.Extract(context.Background(), data, "", "note.txt")
	require.NoError(t, err)
	assert.Equal(t, int64(1), counting.calls.Load())
}

func TestExtractMaxContentLength(t *testing.T) {
	svc := newService(t, func(c *config.ExtractionConfig) { c.MaxContentLength = 10 })

	text := "héllo wörld this is long"
	res, err := svc.Extract(context.Background(), []byte(text), "text/plain", "")
	require.NoError(t, err)

	assert.LessOrEqual(t, len(res.Content), 10)
	assert.True(t, strings.HasPrefix(text, res.Content))
}

func TestExtractFileAndDurableStore(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "doc.txt")
	require.NoError(t, writeFile(path, "file contents here\n"))

	svc := newService(t, func(c *config.ExtractionConfig) {
		c.CachePath = filepath.Join(dir, "cache.db")
	})

	res, err := svc.ExtractFile(context.Background(), path)
	require.NoError(t, err)
	assert.Contains(t, res.Content, "file contents here")

	_, err = svc.ExtractFile(context.Background(), filepath.Join(dir, "missing.txt"))
	assert.True(t, extract.IsKind(err, extract.KindIO), "got %v", err)
}

func TestExtractMbox(t *testing.T) {
	mbox := "From alice@example.com Fri Mar 15 09:30:00 2024\r\n" +
		"From: alice@example.com\r\n" +
		"Subject: First\r\n" +
		"\r\n" +
		"first body\r\n" +
		"\r\n" +
		"From bob@example.com Fri Mar 15 10:00:00 2024\r\n" +
		"From: bob@example.com\r\n" +
		"Subject: Second\r\n" +
		"\r\n" +
		"second body\r\n"

	svc := newService(t, nil)
	res, err := svc.Extract(context.Background(), []byte(mbox), "application/mbox", "inbox.mbox")
	require.NoError(t, err)

	assert.Contains(t, res.Content, "Subject: First")
	assert.Contains(t, res.Content, "first body")
	assert.Contains(t, res.Content, "Subject: Second")
	assert.Contains(t, res.Content, "second body")
	assert.Equal(t, "First", res.Metadata.Subject)
}

func waitForCalls(t *testing.T, calls *atomic.Int64) {
	t.Helper()
	require.Eventually(t, func() bool { return calls.Load() >= 1 }, waitTimeout, pollInterval,
		"extraction never started")
	// Give the remaining callers time to join the flight.
	sleepBriefly()
}
