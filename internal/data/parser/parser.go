package parser

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/bytedance/sonic"

	"github.com/penwyp/go-claude-usage/internal/core/model"
	"github.com/penwyp/go-claude-usage/internal/data/scanner"
	"github.com/penwyp/go-claude-usage/internal/util"
)

// Parser decodes session log files. Files are independent, so ParseUsageFiles
// reads several of them at once, bounded by concurrency.
type Parser struct {
	concurrency int
}

// UsageResult is the outcome of extracting usage from a single file. Entries
// read before a read error are still reported alongside Error.
type UsageResult struct {
	File    string
	Entries []model.UsageEntry
	Error   error
}

// NewParser creates a new Parser instance.
func NewParser(concurrency int) *Parser {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Parser{concurrency: concurrency}
}

// usageRecord is the subset of a log line needed for billing.
type usageRecord struct {
	Type      string   `json:"type"`
	Timestamp string   `json:"timestamp"`
	SessionId string   `json:"sessionId"`
	Version   string   `json:"version"`
	CostUSD   *float64 `json:"costUSD"`
	Message   struct {
		Model string       `json:"model"`
		Usage *model.Usage `json:"usage"`
	} `json:"message"`
}

// ParseFile decodes every well-formed line of a transcript. Blank and
// malformed lines are skipped.
func (p *Parser) ParseFile(path string) ([]model.ConversationLog, error) {
	var logs []model.ConversationLog
	err := eachLine(path, func(line []byte, lineNo int) {
		var log model.ConversationLog
		if err := sonic.Unmarshal(line, &log); err != nil {
			util.LogDebugf("Skip invalid JSON line %s:%d - %v", path, lineNo, err)
			return
		}
		logs = append(logs, log)
	})
	return logs, err
}

// ParseUsageFile extracts one entry per assistant record carrying non-zero
// token usage and a valid timestamp.
func (p *Parser) ParseUsageFile(path string) ([]model.UsageEntry, error) {
	sessionFallback := scanner.SessionID(path)
	project := scanner.ProjectFolder(path)

	var entries []model.UsageEntry
	err := eachLine(path, func(line []byte, lineNo int) {
		var rec usageRecord
		if err := sonic.Unmarshal(line, &rec); err != nil {
			util.LogDebugf("Skip invalid JSON line %s:%d - %v", path, lineNo, err)
			return
		}
		entry, ok := toUsageEntry(&rec, sessionFallback, project)
		if !ok {
			return
		}
		entries = append(entries, entry)
	})
	return entries, err
}

func toUsageEntry(rec *usageRecord, sessionFallback, project string) (model.UsageEntry, bool) {
	if rec.Type != model.EntryAssistant || rec.Message.Usage == nil {
		return model.UsageEntry{}, false
	}

	tokens := rec.Message.Usage.Tokens()
	if tokens.IsZero() {
		return model.UsageEntry{}, false
	}

	ts, err := ParseTimestamp(rec.Timestamp)
	if err != nil {
		return model.UsageEntry{}, false
	}

	modelName := rec.Message.Model
	if modelName == "" {
		modelName = model.ModelUnknown
	}
	sessionID := rec.SessionId
	if sessionID == "" {
		sessionID = sessionFallback
	}

	return model.UsageEntry{
		Timestamp:   ts,
		TokenCounts: tokens,
		CostUSD:     rec.CostUSD,
		Model:       modelName,
		SessionID:   sessionID,
		Version:     rec.Version,
		ProjectPath: project,
	}, true
}

var naiveLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02",
}

// ParseTimestamp accepts RFC 3339 timestamps, keeping their offset. Timestamps
// without an offset are read as UTC.
func ParseTimestamp(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, fmt.Errorf("empty timestamp")
	}
	if ts, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return ts, nil
	}
	for _, layout := range naiveLayouts {
		if ts, err := time.ParseInLocation(layout, value, time.UTC); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid timestamp %q", value)
}

// eachLine calls fn with every non-blank line of path. A partially written
// final line is passed through like any other and rejected by the decoder.
func eachLine(path string, fn func(line []byte, lineNo int)) error {
	file, err := os.Open(path)
	if err != nil {
		util.LogDebugf("Failed to open file: %s - %v", path, err)
		return err
	}
	defer file.Close()

	reader := bufio.NewReaderSize(file, 64*1024)
	lineNo := 0
	for {
		line, err := reader.ReadBytes('\n')
		if len(line) > 0 {
			lineNo++
			if trimmed := bytes.TrimSpace(line); len(trimmed) > 0 {
				fn(trimmed, lineNo)
			}
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			util.LogDebugf("Error reading file: %s - %v", path, err)
			return err
		}
	}
}

// ParseUsageFiles parses multiple files concurrently and returns a channel of
// results that is closed once every file has been processed.
func (p *Parser) ParseUsageFiles(files []string) <-chan UsageResult {
	return fanOut(files, p.concurrency, func(f string) UsageResult {
		entries, err := p.ParseUsageFile(f)
		return UsageResult{File: f, Entries: entries, Error: err}
	})
}

// LogResult is the outcome of decoding a whole transcript.
type LogResult struct {
	File  string
	Logs  []model.ConversationLog
	Error error
}

// ParseFiles decodes whole transcripts concurrently, like ParseUsageFiles.
func (p *Parser) ParseFiles(files []string) <-chan LogResult {
	return fanOut(files, p.concurrency, func(f string) LogResult {
		logs, err := p.ParseFile(f)
		return LogResult{File: f, Logs: logs, Error: err}
	})
}

// fanOut runs parse over files with at most concurrency calls in flight.
func fanOut[R any](files []string, concurrency int, parse func(string) R) <-chan R {
	start := time.Now()
	results := make(chan R, len(files))
	var wg sync.WaitGroup

	util.LogDebugf("Start concurrent parsing of %d files, concurrency: %d", len(files), concurrency)

	semaphore := make(chan struct{}, concurrency)

	for _, file := range files {
		wg.Add(1)
		go func(f string) {
			defer wg.Done()

			semaphore <- struct{}{}
			defer func() { <-semaphore }()

			results <- parse(f)
		}(file)
	}

	go func() {
		wg.Wait()
		close(results)
		util.LogDebugf("Concurrent parsing finished, total duration: %v", time.Since(start))
	}()

	return results
}
