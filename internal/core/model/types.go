package model

import (
	"fmt"
	"strings"

	"github.com/bytedance/sonic"
)

// ConversationLog is one line of a session transcript.
type ConversationLog struct {
	Cwd         string   `json:"cwd,omitempty"`
	IsMeta      bool     `json:"isMeta,omitempty"`
	IsSidechain bool     `json:"isSidechain,omitempty"`
	Message     Message  `json:"message"`
	CostUSD     *float64 `json:"costUSD,omitempty"`
	SessionId   string   `json:"sessionId,omitempty"`
	Summary     string   `json:"summary,omitempty"`
	Timestamp   string   `json:"timestamp"`
	Type        string   `json:"type"`
	Uuid        string   `json:"uuid,omitempty"`
	Version     string   `json:"version,omitempty"`
}

type Message struct {
	Content FlexibleContent `json:"content,omitempty"`
	Id      string          `json:"id,omitempty"`
	Model   string          `json:"model,omitempty"`
	Role    string          `json:"role,omitempty"`
	Usage   *Usage          `json:"usage,omitempty"`
}

// FlexibleContent accepts either a plain string or an array of content items.
type FlexibleContent []ContentItem

func (fc *FlexibleContent) UnmarshalJSON(data []byte) error {
	var items []ContentItem
	if err := sonic.Unmarshal(data, &items); err == nil {
		*fc = items
		return nil
	}

	var str string
	if err := sonic.Unmarshal(data, &str); err == nil {
		*fc = []ContentItem{{Type: ContentText, Text: str}}
		return nil
	}

	return fmt.Errorf("content must be either string or array of ContentItem")
}

// Text joins the non-empty text items with a space.
func (fc FlexibleContent) Text() string {
	texts := make([]string, 0, len(fc))
	for _, item := range fc {
		if item.Type == ContentText && item.Text != "" {
			texts = append(texts, item.Text)
		}
	}
	return strings.TrimSpace(strings.Join(texts, " "))
}

// CountType returns how many items have the given type.
func (fc FlexibleContent) CountType(itemType string) int {
	n := 0
	for _, item := range fc {
		if item.Type == itemType {
			n++
		}
	}
	return n
}

type ContentItem struct {
	Content   any    `json:"content,omitempty"`
	Id        string `json:"id,omitempty"`
	Input     any    `json:"input,omitempty"`
	IsError   bool   `json:"is_error,omitempty"`
	Name      string `json:"name,omitempty"`
	Text      string `json:"text,omitempty"`
	Thinking  string `json:"thinking,omitempty"`
	ToolUseId string `json:"tool_use_id,omitempty"`
	Type      string `json:"type"`
}

type Usage struct {
	CacheCreationInputTokens int    `json:"cache_creation_input_tokens"`
	CacheReadInputTokens     int    `json:"cache_read_input_tokens"`
	InputTokens              int    `json:"input_tokens"`
	OutputTokens             int    `json:"output_tokens"`
	ServiceTier              string `json:"service_tier,omitempty"`
}

// Tokens converts the raw usage object into billed token counts.
func (u Usage) Tokens() TokenCounts {
	return TokenCounts{
		InputTokens:         u.InputTokens,
		OutputTokens:        u.OutputTokens,
		CacheCreationTokens: u.CacheCreationInputTokens,
		CacheReadTokens:     u.CacheReadInputTokens,
	}
}
