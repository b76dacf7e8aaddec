package sessions

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/penwyp/go-claude-usage/internal/core/constants"
	"github.com/penwyp/go-claude-usage/internal/core/model"
	"github.com/penwyp/go-claude-usage/internal/core/project"
	"github.com/penwyp/go-claude-usage/internal/data/cache"
	"github.com/penwyp/go-claude-usage/internal/data/parser"
	"github.com/penwyp/go-claude-usage/internal/data/scanner"
	"github.com/penwyp/go-claude-usage/internal/util"
)

var ErrSessionNotFound = errors.New("session not found")

// Sort keys and orders accepted by ListSessions.
const (
	SortByDate = "date"
	SortBySize = "size"

	OrderDesc = "desc"
	OrderAsc  = "asc"
)

// ListQuery selects and orders session summaries. Zero values mean every
// project, DefaultSessionLimit, newest first.
type ListQuery struct {
	Project string
	Limit   int
	SortBy  string
	Order   string
}

// Service browses session transcripts. Per-file summaries are served from
// the session cache while the file is unchanged.
type Service struct {
	scanner *scanner.FileScanner
	parser  *parser.Parser
	cache   *cache.SessionCache
	names   *project.NameResolver
	clock   util.Clock
}

// NewService wires the transcript browser. sessionCache may be nil.
func NewService(fileScanner *scanner.FileScanner, p *parser.Parser, sessionCache *cache.SessionCache, names *project.NameResolver, clock util.Clock) *Service {
	if names == nil {
		names = project.NewNameResolver()
	}
	if clock == nil {
		clock = util.SystemClock
	}
	return &Service{
		scanner: fileScanner,
		parser:  p,
		cache:   sessionCache,
		names:   names,
		clock:   clock,
	}
}

// ListProjects reports every project folder holding at least one session,
// most recently modified first.
func (s *Service) ListProjects(ctx context.Context) (*model.SessionProjectList, error) {
	folders, err := s.scanner.Projects()
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}

	result := &model.SessionProjectList{Projects: []model.SessionProject{}}
	for _, folder := range folders {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		files, err := s.scanner.ScanProject(folder)
		if err != nil || len(files) == 0 {
			continue
		}

		var latest int64
		for _, f := range files {
			info, err := util.GetFileInfo(f)
			if err != nil {
				continue
			}
			if info.ModTime > latest {
				latest = info.ModTime
			}
		}

		result.Projects = append(result.Projects, model.SessionProject{
			Folder:       folder,
			Name:         s.names.DisplayName(folder),
			SessionCount: len(files),
			MostRecent:   time.Unix(0, latest).UTC(),
		})
		result.TotalSessions += len(files)
	}

	sort.SliceStable(result.Projects, func(i, j int) bool {
		a, b := result.Projects[i], result.Projects[j]
		if !a.MostRecent.Equal(b.MostRecent) {
			return a.MostRecent.After(b.MostRecent)
		}
		return a.Folder < b.Folder
	})
	return result, nil
}

// ListSessions summarizes the sessions selected by q. Total counts every
// matching session before the limit is applied.
func (s *Service) ListSessions(ctx context.Context, q ListQuery) (*model.SessionList, error) {
	summaries, err := s.summaries(ctx, q.Project)
	if err != nil {
		return nil, err
	}

	sortSummaries(summaries, q.SortBy, q.Order)

	limit := q.Limit
	if limit <= 0 {
		limit = constants.DefaultSessionLimit
	}
	total := len(summaries)
	if len(summaries) > limit {
		summaries = summaries[:limit]
	}
	return &model.SessionList{Sessions: summaries, Total: total}, nil
}

type pendingFile struct {
	id     string
	folder string
	info   *util.FileInfo
}

// summaries returns one summary per session file, parsing only the files
// whose cached summary is missing or stale.
func (s *Service) summaries(ctx context.Context, projectFolder string) ([]model.SessionSummary, error) {
	files, err := s.scanner.ScanProject(projectFolder)
	if err != nil {
		return nil, fmt.Errorf("scan sessions: %w", err)
	}

	summaries := make([]model.SessionSummary, 0, len(files))
	pending := make(map[string]pendingFile)
	var toParse []string

	for _, path := range files {
		id, folder := scanner.SessionID(path), scanner.ProjectFolder(path)
		if cached, ok := s.cache.Get(ctx, id, folder, path); ok {
			summaries = append(summaries, *cached)
			continue
		}
		// Hash before parsing: an append during the parse must fail the next lookup.
		info, err := util.GetFileInfo(path)
		if err != nil {
			util.LogDebug("Skip unreadable session", util.F("file", path), util.F("error", err))
			continue
		}
		pending[path] = pendingFile{id: id, folder: folder, info: info}
		toParse = append(toParse, path)
	}

	for result := range s.parser.ParseFiles(toParse) {
		if result.Error != nil {
			util.LogDebug("Skip unreadable session", util.F("file", result.File), util.F("error", result.Error))
			continue
		}
		meta := pending[result.File]
		summary := s.summarize(meta, result.Logs)
		s.cache.Put(ctx, summary, meta.info.Hash())
		summaries = append(summaries, summary)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	util.LogDebug("Summarized sessions",
		util.F("project", projectFolder),
		util.F("files", len(files)),
		util.F("parsed", len(toParse)))
	return summaries, nil
}

func (s *Service) summarize(meta pendingFile, logs []model.ConversationLog) model.SessionSummary {
	for _, log := range logs {
		if log.Cwd != "" {
			s.names.Remember(meta.folder, log.Cwd)
			break
		}
	}

	messages, toolCalls := countMessages(logs)
	return model.SessionSummary{
		ID:             meta.id,
		ProjectFolder:  meta.folder,
		ProjectName:    s.names.DisplayName(meta.folder),
		Summary:        summaryText(logs),
		ModifiedAt:     time.Unix(0, meta.info.ModTime).UTC(),
		SizeBytes:      meta.info.Size,
		TotalMessages:  messages,
		TotalToolCalls: toolCalls,
	}
}

// summaryText picks the first summary record, else the first real user
// prompt, else NoSummary.
func summaryText(logs []model.ConversationLog) string {
	for _, log := range logs {
		if log.Type == model.EntrySummary && log.Summary != "" {
			return clip(log.Summary, constants.SummaryMaxLength, constants.SummaryMaxLength-3)
		}
	}
	for _, log := range logs {
		if log.Type != model.EntryUser || log.IsMeta {
			continue
		}
		text := log.Message.Content.Text()
		if text != "" && !strings.HasPrefix(text, "<") {
			return clip(text, constants.SummaryMaxLength, constants.SummaryMaxLength-3)
		}
	}
	return constants.NoSummary
}

func countMessages(logs []model.ConversationLog) (messages, toolCalls int) {
	for _, log := range logs {
		switch log.Type {
		case model.EntryUser:
			messages++
		case model.EntryAssistant:
			messages++
			toolCalls += log.Message.Content.CountType(model.ContentToolUse)
		}
	}
	return messages, toolCalls
}

// clip cuts s to keep runes plus "..." when it is longer than limit runes.
func clip(s string, limit, keep int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:keep]) + "..."
}

func sortSummaries(summaries []model.SessionSummary, sortBy, order string) {
	asc := order == OrderAsc
	sort.SliceStable(summaries, func(i, j int) bool {
		a, b := summaries[i], summaries[j]
		if sortBy == SortBySize {
			if a.SizeBytes != b.SizeBytes {
				return (a.SizeBytes < b.SizeBytes) == asc
			}
		} else if !a.ModifiedAt.Equal(b.ModifiedAt) {
			return a.ModifiedAt.Before(b.ModifiedAt) == asc
		}
		if a.ProjectFolder != b.ProjectFolder {
			return a.ProjectFolder < b.ProjectFolder
		}
		return a.ID < b.ID
	})
}

// GetSessionDetail returns one page of a session's conversations. Pages
// start at 1; a page past the end is empty.
func (s *Service) GetSessionDetail(ctx context.Context, sessionID, projectFolder string, page int) (*model.SessionDetailPage, error) {
	path, ok := s.scanner.SessionPath(projectFolder, sessionID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
		}
		return nil, err
	}

	logs, err := s.parser.ParseFile(path)
	if err != nil {
		return nil, fmt.Errorf("read session %s: %w", sessionID, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if page < 1 {
		page = 1
	}
	conversations := buildConversations(logs)
	perPage := constants.PromptsPerPage
	totalPages := (len(conversations) + perPage - 1) / perPage

	from := (page - 1) * perPage
	if from > len(conversations) {
		from = len(conversations)
	}
	to := from + perPage
	if to > len(conversations) {
		to = len(conversations)
	}

	messages, toolCalls := countMessages(logs)
	return &model.SessionDetailPage{
		Session: model.SessionDetail{
			ID:             sessionID,
			ProjectFolder:  projectFolder,
			ProjectName:    s.names.DisplayName(projectFolder),
			Conversations:  conversations[from:to],
			TotalMessages:  messages,
			TotalToolCalls: toolCalls,
			ModelsUsed:     modelsUsed(logs),
		},
		CurrentPage:    page,
		TotalPages:     totalPages,
		PromptsPerPage: perPage,
	}, nil
}

// buildConversations starts a conversation at every non-meta user record and
// attaches the assistant records that follow it. Assistant records before the
// first prompt are dropped.
func buildConversations(logs []model.ConversationLog) []model.Conversation {
	conversations := []model.Conversation{}
	current := -1
	for _, log := range logs {
		switch {
		case log.Type == model.EntryUser && !log.IsMeta:
			conversations = append(conversations, model.Conversation{
				UserText:  clip(log.Message.Content.Text(), constants.PromptPreviewSize, constants.PromptPreviewSize),
				Timestamp: log.Timestamp,
				Messages:  []model.SessionMessage{toMessage(log)},
			})
			current = len(conversations) - 1
		case log.Type == model.EntryAssistant && current >= 0:
			conversations[current].Messages = append(conversations[current].Messages, toMessage(log))
		}
	}
	return conversations
}

func toMessage(log model.ConversationLog) model.SessionMessage {
	content := []model.ContentItem(log.Message.Content)
	if content == nil {
		content = []model.ContentItem{}
	}
	return model.SessionMessage{
		Type:      log.Type,
		Timestamp: log.Timestamp,
		Content:   content,
		Model:     log.Message.Model,
		Usage:     log.Message.Usage,
	}
}

func modelsUsed(logs []model.ConversationLog) []string {
	seen := make(map[string]struct{})
	models := []string{}
	for _, log := range logs {
		if log.Type != model.EntryAssistant || log.Message.Model == "" {
			continue
		}
		if _, ok := seen[log.Message.Model]; ok {
			continue
		}
		seen[log.Message.Model] = struct{}{}
		models = append(models, log.Message.Model)
	}
	sort.Strings(models)
	return models
}

// GetDashboardStats counts sessions across every project. "Today" starts at
// UTC midnight and the week covers the seven days before it.
func (s *Service) GetDashboardStats(ctx context.Context) (*model.DashboardStats, error) {
	summaries, err := s.summaries(ctx, "")
	if err != nil {
		return nil, err
	}

	now := s.clock.Now().UTC()
	todayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	weekStart := todayStart.AddDate(0, 0, -7)

	stats := &model.DashboardStats{TotalSessions: len(summaries)}
	perProject := make(map[string]int)
	for _, summary := range summaries {
		if !summary.ModifiedAt.Before(todayStart) {
			stats.SessionsToday++
		}
		if !summary.ModifiedAt.Before(weekStart) {
			stats.SessionsThisWeek++
		}
		perProject[summary.ProjectName]++
		stats.TotalMessages += summary.TotalMessages
	}

	best := 0
	for name, count := range perProject {
		if count > best || (count == best && name < stats.MostActiveProject) {
			best = count
			stats.MostActiveProject = name
		}
	}
	return stats, nil
}
