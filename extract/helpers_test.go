package extract_test

import (
	"io"
	"log/slog"
	"os"
	"time"
)

const (
	waitTimeout  = 2 * time.Second
	pollInterval = 5 * time.Millisecond
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func writeFile(path, content string) error {
	return os.WriteFile(path, []byte(content), 0o644)
}

func sleepBriefly() {
	time.Sleep(20 * time.Millisecond)
}
