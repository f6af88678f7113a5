package extract

import (
	"context"
	"io/fs"
	"path/filepath"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"doc-extract/config"
)

// BatchJob is one file queued for extraction.
type BatchJob struct {
	Path  string
	Index int
}

// BatchResult pairs one input with its outcome. Exactly one of Result
// and Err is set.
type BatchResult struct {
	Path        string
	Index       int
	Result      *Result
	Err         error
	ProcessTime time.Duration
}

// BatchStats tracks a batch run.
type BatchStats struct {
	FilesProcessed int64
	FilesFailed    int64
	TotalBytes     int64
	ElapsedTime    time.Duration
}

// ExtractAll extracts every path concurrently and returns results in
// input order. Per-file failures are recorded, not fatal; cancellation
// of ctx stops the batch early.
func (s *Service) ExtractAll(ctx context.Context, paths []string) ([]BatchResult, *BatchStats, error) {
	startTime := time.Now()
	stats := &BatchStats{}

	if len(paths) == 0 {
		return nil, stats, nil
	}

	workers, bufferSize := config.BatchProfile(len(paths))
	if max := runtime.NumCPU() * 2; workers > max {
		workers = max
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	jobChan := make(chan BatchJob, bufferSize)
	results := make([]BatchResult, len(paths))

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case job, ok := <-jobChan:
					if !ok {
						return
					}
					start := time.Now()
					res, err := s.ExtractFile(ctx, job.Path)
					br := BatchResult{
						Path:        job.Path,
						Index:       job.Index,
						Result:      res,
						Err:         err,
						ProcessTime: time.Since(start),
					}
					if err != nil {
						atomic.AddInt64(&stats.FilesFailed, 1)
					} else {
						atomic.AddInt64(&stats.TotalBytes, int64(len(res.Content)))
					}
					atomic.AddInt64(&stats.FilesProcessed, 1)
					results[job.Index] = br
				case <-ctx.Done():
					return
				}
			}
		}()
	}

	go func() {
		defer close(jobChan)
		for i, path := range paths {
			select {
			case jobChan <- BatchJob{Path: path, Index: i}:
			case <-ctx.Done():
				return
			}
		}
	}()

	wg.Wait()
	stats.ElapsedTime = time.Since(startTime)

	if err := ctx.Err(); err != nil {
		// Slots the workers never reached still get an outcome.
		for i := range results {
			if results[i].Result == nil && results[i].Err == nil {
				results[i] = BatchResult{Path: paths[i], Index: i, Err: err}
			}
		}
		return results, stats, err
	}
	return results, stats, nil
}

// DiscoverFiles walks root and returns the supported files in
// deterministic order, skipping hidden files and ignored directories.
func DiscoverFiles(root string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if path != root && config.ShouldSkipDirectory(d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}
		if config.IsHiddenFile(d.Name()) || !config.IsSupportedFile(d.Name()) {
			return nil
		}
		files = append(files, path)
		return nil
	})
	if err != nil {
		return nil, wrapError(KindIO, err, "walk %s", root)
	}
	return files, nil
}
