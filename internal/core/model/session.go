package model

import "time"

// SessionSummary describes one transcript file for listings.
type SessionSummary struct {
	ID             string    `json:"id"`
	ProjectFolder  string    `json:"project_folder"`
	ProjectName    string    `json:"project_name"`
	Summary        string    `json:"summary"`
	ModifiedAt     time.Time `json:"modified_at"`
	SizeBytes      int64     `json:"size_bytes"`
	TotalMessages  int       `json:"total_messages"`
	TotalToolCalls int       `json:"total_tool_calls"`
}

type SessionProject struct {
	Folder       string    `json:"folder"`
	Name         string    `json:"name"`
	SessionCount int       `json:"session_count"`
	MostRecent   time.Time `json:"most_recent"`
}

type SessionProjectList struct {
	Projects      []SessionProject `json:"projects"`
	TotalSessions int              `json:"total_sessions"`
}

type SessionList struct {
	Sessions []SessionSummary `json:"sessions"`
	Total    int              `json:"total"`
}

// SessionMessage is a user or assistant record inside a conversation.
type SessionMessage struct {
	Type      string        `json:"type"`
	Timestamp string        `json:"timestamp"`
	Content   []ContentItem `json:"content"`
	Model     string        `json:"model,omitempty"`
	Usage     *Usage        `json:"usage,omitempty"`
}

// Conversation is one user prompt followed by the assistant records answering it.
type Conversation struct {
	UserText       string           `json:"user_text"`
	Timestamp      string           `json:"timestamp"`
	Messages       []SessionMessage `json:"messages"`
	IsContinuation bool             `json:"is_continuation"`
}

type SessionDetail struct {
	ID             string         `json:"id"`
	ProjectFolder  string         `json:"project_folder"`
	ProjectName    string         `json:"project_name"`
	Conversations  []Conversation `json:"conversations"`
	TotalMessages  int            `json:"total_messages"`
	TotalToolCalls int            `json:"total_tool_calls"`
	ModelsUsed     []string       `json:"models_used"`
}

type SessionDetailPage struct {
	Session        SessionDetail `json:"session"`
	CurrentPage    int           `json:"current_page"`
	TotalPages     int           `json:"total_pages"`
	PromptsPerPage int           `json:"prompts_per_page"`
}

type DashboardStats struct {
	TotalSessions     int    `json:"total_sessions"`
	SessionsToday     int    `json:"sessions_today"`
	SessionsThisWeek  int    `json:"sessions_this_week"`
	MostActiveProject string `json:"most_active_project,omitempty"`
	TotalMessages     int    `json:"total_messages"`
}
