package extract_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"doc-extract/extract"
)

func TestExtractAll(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, writeFile(filepath.Join(dir, "a.txt"), "alpha content"))
	require.NoError(t, writeFile(filepath.Join(dir, "b.html"), "<p>beta content</p>"))
	require.NoError(t, writeFile(filepath.Join(dir, "c.txt"), "gamma content"))

	svc := newService(t, nil)
	paths := []string{
		filepath.Join(dir, "a.txt"),
		filepath.Join(dir, "b.html"),
		filepath.Join(dir, "c.txt"),
	}

	results, stats, err := svc.ExtractAll(context.Background(), paths)
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, int64(3), stats.FilesProcessed)
	assert.Equal(t, int64(0), stats.FilesFailed)

	// Results come back in input order regardless of completion order.
	assert.Equal(t, paths[0], results[0].Path)
	assert.Contains(t, results[0].Result.Content, "alpha content")
	assert.Contains(t, results[1].Result.Content, "beta content")
	assert.Contains(t, results[2].Result.Content, "gamma content")
}

func TestExtractAllRecordsFailures(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, writeFile(filepath.Join(dir, "good.txt"), "fine"))

	svc := newService(t, nil)
	paths := []string{
		filepath.Join(dir, "good.txt"),
		filepath.Join(dir, "missing.txt"),
	}

	results, stats, err := svc.ExtractAll(context.Background(), paths)
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.NoError(t, results[0].Err)
	assert.Error(t, results[1].Err)
	assert.Equal(t, int64(1), stats.FilesFailed)
}

func TestExtractAllCancelledFillsOutcomes(t *testing.T) {
	dir := t.TempDir()
	var paths []string
	for _, name := range []string{"a.txt", "b.txt", "c.txt"} {
		p := filepath.Join(dir, name)
		require.NoError(t, writeFile(p, "content"))
		paths = append(paths, p)
	}

	svc := newService(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results, _, err := svc.ExtractAll(ctx, paths)
	require.ErrorIs(t, err, context.Canceled)
	require.Len(t, results, len(paths))

	// Every slot carries an outcome even when the workers never ran it.
	for i, r := range results {
		assert.Equal(t, paths[i], r.Path)
		if r.Result == nil {
			assert.Error(t, r.Err)
		}
	}
}

func TestExtractAllEmpty(t *testing.T) {
	svc := newService(t, nil)
	results, stats, err := svc.ExtractAll(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, results)
	assert.Equal(t, int64(0), stats.FilesProcessed)
}

func TestDiscoverFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, writeFile(filepath.Join(dir, "doc.txt"), "x"))
	require.NoError(t, writeFile(filepath.Join(dir, ".hidden.txt"), "x"))
	require.NoError(t, writeFile(filepath.Join(dir, "binary.xyz"), "x"))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "node_modules"), 0o755))
	require.NoError(t, writeFile(filepath.Join(dir, "node_modules", "skip.txt"), "x"))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "sub"), 0o755))
	require.NoError(t, writeFile(filepath.Join(dir, "sub", "nested.md"), "x"))

	files, err := extract.DiscoverFiles(dir)
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{
		filepath.Join(dir, "doc.txt"),
		filepath.Join(dir, "sub", "nested.md"),
	}, files)
}
