package main

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

var version = "0.1"

// Arguments holds parsed command line arguments
type Arguments struct {
	Paths        []string
	MimeType     string
	OCREnabled   bool
	OCRLanguages []string
	Lenient      bool
	NoSanitize   bool
	MaxContent   int
	CachePath    string
	JSONOutput   bool
	Verbose      bool
}

// parseArguments parses command line args
func parseArguments(args []string) *Arguments {
	result := &Arguments{
		Paths:      []string{},
		JSONOutput: false,
	}

	expectMime := false
	expectLangs := false
	expectMax := false
	expectCache := false

	for _, a := range args {
		if expectMime {
			result.MimeType = a
			expectMime = false
			continue
		}
		if expectLangs {
			result.OCRLanguages = append(result.OCRLanguages, a)
			expectLangs = false
			continue
		}
		if expectMax {
			if n, err := strconv.Atoi(a); err == nil && n > 0 {
				result.MaxContent = n
			}
			expectMax = false
			continue
		}
		if expectCache {
			result.CachePath = a
			expectCache = false
			continue
		}
		switch a {
		case "--mime":
			expectMime = true
		case "--ocr":
			result.OCREnabled = true
		case "--ocr-lang":
			expectLangs = true
		case "--lenient":
			result.Lenient = true
		case "--no-sanitize":
			result.NoSanitize = true
		case "--max-content":
			expectMax = true
		case "--cache":
			expectCache = true
		case "--json":
			result.JSONOutput = true
		case "--verbose":
			result.Verbose = true
		case "--help", "-h":
			showUsage()
			os.Exit(0)
		case "--version", "-v":
			showVersion()
			os.Exit(0)
		default:
			result.Paths = append(result.Paths, a)
		}
	}

	return result
}

// showUsage displays usage information
func showUsage() {
	fmt.Printf("%s%sdoc-extract%s - Document Text and Metadata Extraction\n", BOLD, BLUE, NC)
	fmt.Println()
	fmt.Printf("%sUSAGE:%s\n", BOLD, NC)
	fmt.Printf("  doc-extract %sfile.pdf%s [file2.msg ...]\n", YELLOW, NC)
	fmt.Printf("  doc-extract %s--json%s directory/\n", YELLOW, NC)
	fmt.Println()
	fmt.Printf("%sOPTIONS:%s\n", BOLD, NC)
	fmt.Printf("  %s--mime TYPE%s      Declared MIME type hint for format resolution\n", YELLOW, NC)
	fmt.Printf("  %s--ocr%s            Enable OCR fallback for images and scanned PDFs\n", YELLOW, NC)
	fmt.Printf("  %s--ocr-lang LANG%s  OCR language hint (repeatable)\n", YELLOW, NC)
	fmt.Printf("  %s--lenient%s        Recover truncated Outlook .msg containers\n", YELLOW, NC)
	fmt.Printf("  %s--no-sanitize%s    Keep unsafe HTML markup before text conversion\n", YELLOW, NC)
	fmt.Printf("  %s--max-content N%s  Truncate extracted text at N bytes\n", YELLOW, NC)
	fmt.Printf("  %s--cache PATH%s     Durable result cache (SQLite file)\n", YELLOW, NC)
	fmt.Printf("  %s--json%s           Emit results as JSON\n", YELLOW, NC)
	fmt.Printf("  %s--verbose%s        Structured diagnostics on stderr\n", YELLOW, NC)
	fmt.Printf("  %s--help%s           Show this help message\n", YELLOW, NC)
	fmt.Printf("  %s--version%s        Show version information\n", YELLOW, NC)
	fmt.Println()
	fmt.Printf("%sEXAMPLES:%s\n", BOLD, NC)
	fmt.Printf("  doc-extract report.pdf\n")
	fmt.Printf("  doc-extract --lenient --json mailbox.msg\n")
	fmt.Printf("  doc-extract --json --cache results.db documents/\n")
}

// showVersion displays version information
func showVersion() {
	fmt.Printf("%sdoc-extract%s v%s\n", BOLD, NC, version)
	fmt.Printf("Document Text and Metadata Extraction\n")
}

// formatDuration renders an elapsed time for the summary line
func formatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	return fmt.Sprintf("%.2fs", d.Seconds())
}
