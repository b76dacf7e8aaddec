package project

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// NameResolver turns an encoded project folder name (the working directory
// with every separator replaced by '-', e.g. "-Users-me-src-my-app") into a
// short human-readable label.
type NameResolver struct {
	home string
	stat func(string) (os.FileInfo, error)

	mu    sync.RWMutex
	names map[string]string
}

func NewNameResolver() *NameResolver {
	home, _ := os.UserHomeDir()
	return &NameResolver{home: home, stat: os.Stat, names: make(map[string]string)}
}

// Remember records the real working directory seen inside a project's logs.
// It takes precedence over decoding the folder name.
func (r *NameResolver) Remember(folder, cwd string) {
	if folder == "" || cwd == "" {
		return
	}
	r.mu.Lock()
	r.names[folder] = filepath.Base(filepath.Clean(cwd))
	r.mu.Unlock()
}

// DisplayName returns the label for folder.
func (r *NameResolver) DisplayName(folder string) string {
	r.mu.RLock()
	name, ok := r.names[folder]
	r.mu.RUnlock()
	if ok {
		return name
	}

	name = r.decode(folder)

	r.mu.Lock()
	r.names[folder] = name
	r.mu.Unlock()
	return name
}

func (r *NameResolver) decode(folder string) string {
	trimmed := strings.TrimLeft(folder, "-")
	if trimmed == "" {
		return folder
	}

	if path, ok := r.probe(strings.Split(trimmed, "-")); ok {
		return filepath.Base(path)
	}

	if prefix := encode(r.home); prefix != "" {
		prefix = strings.TrimLeft(prefix, "-") + "-"
		if rest := strings.TrimPrefix(trimmed, prefix); rest != trimmed && rest != "" {
			return rest
		}
	}
	return trimmed
}

// probe rebuilds the original path by walking the filesystem: at each step
// the next token either starts a new path element or extends the current one
// with a literal '-'. The first full reconstruction that exists wins.
func (r *NameResolver) probe(tokens []string) (string, bool) {
	if r.stat == nil || len(tokens) == 0 {
		return "", false
	}

	var walk func(base, current string, rest []string) (string, bool)
	walk = func(base, current string, rest []string) (string, bool) {
		candidate := filepath.Join(base, current)
		if len(rest) == 0 {
			if _, err := r.stat(candidate); err == nil {
				return candidate, true
			}
			return "", false
		}
		if _, err := r.stat(candidate); err == nil {
			if p, ok := walk(candidate, rest[0], rest[1:]); ok {
				return p, true
			}
		}
		return walk(base, current+"-"+rest[0], rest[1:])
	}
	return walk(string(filepath.Separator), tokens[0], tokens[1:])
}

func encode(path string) string {
	if path == "" {
		return ""
	}
	return strings.NewReplacer("/", "-", "\\", "-", ".", "-", ":", "-").Replace(path)
}
