package util

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/bytedance/sonic"
)

// WriterOutput writes log lines to an io.Writer (stderr, a file, a test buffer).
type WriterOutput struct {
	mu     sync.Mutex
	writer io.Writer
	closer io.Closer
	format LogFormat
}

// NewConsoleOutput creates an output that writes to the given writer.
func NewConsoleOutput(writer io.Writer, format LogFormat) Output {
	return &WriterOutput{writer: writer, format: format}
}

// NewFileOutput opens (or creates) path in append mode, creating parent directories.
func NewFileOutput(path string, format LogFormat) (Output, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, err
	}
	return &WriterOutput{writer: file, closer: file, format: format}, nil
}

func (w *WriterOutput) Write(entry LogEntry) error {
	var line string
	if w.format == FormatJSON {
		data, err := sonic.Marshal(entry)
		if err != nil {
			return err
		}
		line = string(data)
	} else {
		line = formatText(entry)
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	_, err := fmt.Fprintln(w.writer, line)
	return err
}

func (w *WriterOutput) Close() error {
	if w.closer == nil {
		return nil
	}
	return w.closer.Close()
}
