package loader

import (
	"context"
	"sort"
	"time"

	"github.com/penwyp/go-claude-usage/internal/core/model"
	"github.com/penwyp/go-claude-usage/internal/data/parser"
	"github.com/penwyp/go-claude-usage/internal/data/scanner"
	"github.com/penwyp/go-claude-usage/internal/telemetry"
	"github.com/penwyp/go-claude-usage/internal/util"
)

// Loader reads usage entries straight from the session logs on every call.
type Loader struct {
	scanner *scanner.FileScanner
	parser  *parser.Parser
	metrics *telemetry.Metrics
}

func NewLoader(fileScanner *scanner.FileScanner, p *parser.Parser, metrics *telemetry.Metrics) *Loader {
	return &Loader{
		scanner: fileScanner,
		parser:  p,
		metrics: metrics,
	}
}

// Load returns the usage entries of one project, or of all projects when
// project is empty, sorted by timestamp. Unreadable files are skipped.
func (l *Loader) Load(ctx context.Context, project string) ([]model.UsageEntry, error) {
	start := time.Now()

	files, err := l.scanner.ScanProject(project)
	if err != nil {
		return nil, err
	}

	var entries []model.UsageEntry
	parsed := 0
	for result := range l.parser.ParseUsageFiles(files) {
		if result.Error != nil {
			util.LogDebug("Skip unreadable log", util.F("file", result.File), util.F("error", result.Error))
		} else {
			parsed++
		}
		entries = append(entries, result.Entries...)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sort.SliceStable(entries, func(i, j int) bool {
		if !entries[i].Timestamp.Equal(entries[j].Timestamp) {
			return entries[i].Timestamp.Before(entries[j].Timestamp)
		}
		if entries[i].ProjectPath != entries[j].ProjectPath {
			return entries[i].ProjectPath < entries[j].ProjectPath
		}
		return entries[i].SessionID < entries[j].SessionID
	})

	duration := time.Since(start)
	l.metrics.FilesParsed(ctx, parsed)
	l.metrics.EntriesLoaded(ctx, project, len(entries))
	l.metrics.LoadDuration(ctx, duration)

	util.LogDebug("Loaded usage entries",
		util.F("project", project),
		util.F("files", len(files)),
		util.F("entries", len(entries)),
		util.F("duration", duration))

	return entries, nil
}
