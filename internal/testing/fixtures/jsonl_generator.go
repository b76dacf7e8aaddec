package fixtures

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bytedance/sonic"
)

// Entry is a single transcript line in Claude Code format
type Entry struct {
	Type      string   `json:"type"`
	Timestamp string   `json:"timestamp,omitempty"`
	Uuid      string   `json:"uuid,omitempty"`
	SessionId string   `json:"sessionId,omitempty"`
	Version   string   `json:"version,omitempty"`
	IsMeta    bool     `json:"isMeta,omitempty"`
	Summary   string   `json:"summary,omitempty"`
	CostUSD   *float64 `json:"costUSD,omitempty"`
	Message   *Message `json:"message,omitempty"`
}

// Message is the message body of a user or assistant line
type Message struct {
	Role    string `json:"role"`
	Model   string `json:"model,omitempty"`
	Content any    `json:"content,omitempty"`
	Usage   *Usage `json:"usage,omitempty"`
}

// Block is one element of an array-valued content field
type Block struct {
	Type  string         `json:"type"`
	Text  string         `json:"text,omitempty"`
	ID    string         `json:"id,omitempty"`
	Name  string         `json:"name,omitempty"`
	Input map[string]any `json:"input,omitempty"`
}

// Usage represents token usage in Claude Code logs
type Usage struct {
	InputTokens              int    `json:"input_tokens"`
	OutputTokens             int    `json:"output_tokens"`
	CacheCreationInputTokens int    `json:"cache_creation_input_tokens"`
	CacheReadInputTokens     int    `json:"cache_read_input_tokens"`
	ServiceTier              string `json:"service_tier,omitempty"`
}

// Assistant builds an assistant line with usage.
func Assistant(ts time.Time, modelName string, usage Usage, blocks ...Block) Entry {
	if len(blocks) == 0 {
		blocks = []Block{Text("ok")}
	}
	return Entry{
		Type:      "assistant",
		Timestamp: ts.UTC().Format(time.RFC3339Nano),
		Version:   "1.0.30",
		Message: &Message{
			Role:    "assistant",
			Model:   modelName,
			Content: blocks,
			Usage:   &usage,
		},
	}
}

// User builds a user prompt line with string content.
func User(ts time.Time, text string) Entry {
	return Entry{
		Type:      "user",
		Timestamp: ts.UTC().Format(time.RFC3339Nano),
		Version:   "1.0.30",
		Message:   &Message{Role: "user", Content: text},
	}
}

// Summary builds a transcript summary line.
func Summary(text string) Entry {
	return Entry{Type: "summary", Summary: text}
}

func Text(text string) Block {
	return Block{Type: "text", Text: text}
}

func ToolUse(name string) Block {
	return Block{Type: "tool_use", ID: "toolu_" + strings.ToLower(name), Name: name, Input: map[string]any{}}
}

// Generator writes transcript trees laid out as <baseDir>/<project>/<session>.jsonl.
type Generator struct {
	baseDir string
}

func NewGenerator(baseDir string) *Generator {
	return &Generator{baseDir: baseDir}
}

func (g *Generator) BaseDir() string {
	return g.baseDir
}

// WriteSession writes entries to a new session file, filling in sessionId
// where the entry leaves it empty, and returns the file path.
func (g *Generator) WriteSession(project, sessionID string, entries ...Entry) (string, error) {
	lines := make([]string, 0, len(entries))
	for i, entry := range entries {
		if entry.SessionId == "" && entry.Type != "summary" {
			entry.SessionId = sessionID
		}
		if entry.Uuid == "" && entry.Type != "summary" {
			entry.Uuid = fmt.Sprintf("%s-%d", sessionID, i)
		}
		data, err := sonic.Marshal(entry)
		if err != nil {
			return "", err
		}
		lines = append(lines, string(data))
	}
	return g.WriteRaw(project, sessionID, lines...)
}

// WriteRaw writes lines verbatim, one per line, replacing any existing file.
func (g *Generator) WriteRaw(project, sessionID string, lines ...string) (string, error) {
	dir := filepath.Join(g.baseDir, project)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}
	path := filepath.Join(dir, sessionID+".jsonl")
	content := strings.Join(lines, "\n")
	if len(lines) > 0 {
		content += "\n"
	}
	return path, os.WriteFile(path, []byte(content), 0644)
}

// Append adds entries to the end of an existing session file.
func (g *Generator) Append(project, sessionID string, entries ...Entry) error {
	path := filepath.Join(g.baseDir, project, sessionID+".jsonl")
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY|os.O_CREATE, 0644)
	if err != nil {
		return err
	}
	defer f.Close()

	for _, entry := range entries {
		if entry.SessionId == "" && entry.Type != "summary" {
			entry.SessionId = sessionID
		}
		data, err := sonic.Marshal(entry)
		if err != nil {
			return err
		}
		if _, err := f.Write(append(data, '\n')); err != nil {
			return err
		}
	}
	return nil
}
