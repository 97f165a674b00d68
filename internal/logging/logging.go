package logging

import (
	"io"
	"log"
	"os"
	"path/filepath"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Setup sends the standard logger to stdout and, when file is set, to a
// rotated log file as well. The returned closer flushes the file.
func Setup(file string) io.Closer {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)
	if file == "" {
		log.SetOutput(os.Stdout)
		return nopCloser{}
	}

	if err := os.MkdirAll(filepath.Dir(file), 0o755); err != nil {
		log.Printf("[Logging] Cannot create log directory, logging to stdout only: %v", err)
		log.SetOutput(os.Stdout)
		return nopCloser{}
	}

	rot := &lumberjack.Logger{
		Filename:   file,
		MaxSize:    50, // MB
		MaxBackups: 3,
		MaxAge:     7, // days
	}
	log.SetOutput(io.MultiWriter(os.Stdout, rot))
	return rot
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
