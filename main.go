package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"golang.org/x/term"

	"doc-extract/config"
	"doc-extract/extract"
)

// Color codes for terminal output
var (
	RED    = "\033[31m"
	GREEN  = "\033[32m"
	YELLOW = "\033[33m"
	BLUE   = "\033[34m"
	GRAY   = "\033[90m"
	BOLD   = "\033[1m"
	NC     = "\033[0m" // No Color
)

// disableColors clears the escape codes when stdout is not a terminal
func disableColors() {
	if term.IsTerminal(int(os.Stdout.Fd())) {
		return
	}
	RED, GREEN, YELLOW, BLUE, GRAY, BOLD, NC = "", "", "", "", "", "", ""
}

func main() {
	disableColors()
	args := parseArguments(os.Args[1:])

	if len(args.Paths) == 0 {
		showUsage()
		os.Exit(1)
	}

	logLevel := slog.LevelWarn
	if args.Verbose {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))

	cfg := config.Default()
	cfg.OCREnabled = args.OCREnabled
	if len(args.OCRLanguages) > 0 {
		cfg.OCRLanguages = args.OCRLanguages
	}
	if args.Lenient {
		cfg.CFBMode = config.CFBLenient
	}
	cfg.HTMLSanitize = !args.NoSanitize
	cfg.MaxContentLength = args.MaxContent
	cfg.CachePath = args.CachePath
	cfg.Logger = logger

	svc, err := extract.NewService(cfg)
	if err != nil {
		fmt.Printf("%sError: %v%s\n", RED, err, NC)
		os.Exit(1)
	}
	defer svc.Close()

	paths, err := resolvePaths(args.Paths)
	if err != nil {
		fmt.Printf("%sError: %v%s\n", RED, err, NC)
		os.Exit(1)
	}
	if len(paths) == 0 {
		fmt.Printf("%sNo supported files found%s\n", YELLOW, NC)
		os.Exit(1)
	}

	ctx := context.Background()
	startTime := time.Now()

	if len(paths) == 1 {
		runSingle(ctx, svc, paths[0], args)
		return
	}
	runBatch(ctx, svc, paths, args, startTime)
}

// resolvePaths expands directories into their supported files.
func resolvePaths(inputs []string) ([]string, error) {
	var paths []string
	for _, p := range inputs {
		info, err := os.Stat(p)
		if err != nil {
			return nil, err
		}
		if info.IsDir() {
			found, err := extract.DiscoverFiles(p)
			if err != nil {
				return nil, err
			}
			paths = append(paths, found...)
			continue
		}
		paths = append(paths, p)
	}
	return paths, nil
}

func runSingle(ctx context.Context, svc *extract.Service, path string, args *Arguments) {
	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Printf("%sError: %v%s\n", RED, err, NC)
		os.Exit(1)
	}

	res, err := svc.Extract(ctx, data, args.MimeType, path)
	if err != nil {
		fmt.Printf("%sError: %s: %v%s\n", RED, path, err, NC)
		os.Exit(1)
	}

	if args.JSONOutput {
		emitJSON(os.Stdout, res)
		return
	}
	fmt.Println(res.Content)
}

func runBatch(ctx context.Context, svc *extract.Service, paths []string, args *Arguments, startTime time.Time) {
	results, stats, err := svc.ExtractAll(ctx, paths)
	if err != nil {
		fmt.Printf("%sError: %v%s\n", RED, err, NC)
		os.Exit(1)
	}

	if args.JSONOutput {
		type jsonEntry struct {
			Path   string          `json:"path"`
			Result *extract.Result `json:"result,omitempty"`
			Error  string          `json:"error,omitempty"`
		}
		out := make([]jsonEntry, 0, len(results))
		for _, r := range results {
			entry := jsonEntry{Path: r.Path, Result: r.Result}
			if r.Err != nil {
				entry.Error = r.Err.Error()
			}
			out = append(out, entry)
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		enc.Encode(out)
	} else {
		for _, r := range results {
			if r.Err != nil {
				fmt.Printf("%s=== %s (failed: %v) ===%s\n", RED, r.Path, r.Err, NC)
				continue
			}
			fmt.Printf("%s=== %s ===%s\n", BLUE, r.Path, NC)
			fmt.Println(r.Result.Content)
			fmt.Println()
		}
	}

	fmt.Fprintf(os.Stderr, "%s%d files processed, %d failed in %s%s\n",
		GRAY, stats.FilesProcessed, stats.FilesFailed, formatDuration(time.Since(startTime)), NC)
}

func emitJSON(w io.Writer, res *extract.Result) {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.Encode(res)
}
