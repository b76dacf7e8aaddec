package scanner

import (
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/penwyp/go-claude-usage/internal/util"
)

const logExtension = ".jsonl"

// FileScanner discovers session logs laid out as <baseDir>/<project>/<session>.jsonl.
// Only the first level below each project folder is considered.
type FileScanner struct {
	baseDir string
}

// NewFileScanner creates a new FileScanner instance
func NewFileScanner(baseDir string) *FileScanner {
	return &FileScanner{baseDir: baseDir}
}

func (s *FileScanner) BaseDir() string {
	return s.baseDir
}

// Projects returns the names of the project folders, sorted. A missing base
// directory yields no projects and no error.
func (s *FileScanner) Projects() ([]string, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			util.LogDebug("Projects directory does not exist", util.F("dir", s.baseDir))
			return nil, nil
		}
		return nil, err
	}

	var projects []string
	for _, entry := range entries {
		if entry.IsDir() {
			projects = append(projects, entry.Name())
		}
	}
	return projects, nil
}

// Scan returns every session log across all projects.
func (s *FileScanner) Scan() ([]string, error) {
	return s.ScanProject("")
}

// ScanProject returns the session logs of one project folder, or of every
// project when project is empty. Unknown projects yield no files.
func (s *FileScanner) ScanProject(project string) ([]string, error) {
	start := time.Now()

	var projects []string
	if project != "" {
		if !validProjectName(project) {
			util.LogDebug("Rejecting project name", util.F("project", project))
			return nil, nil
		}
		projects = []string{project}
	} else {
		var err error
		if projects, err = s.Projects(); err != nil {
			return nil, err
		}
	}

	var files []string
	for _, name := range projects {
		found, err := s.scanDir(filepath.Join(s.baseDir, name))
		if err != nil {
			util.LogDebug("Skip project folder", util.F("project", name), util.F("error", err))
			continue
		}
		files = append(files, found...)
	}

	util.LogDebugf("File scan completed: duration %v, scanned %d project folders, found %d JSONL files",
		time.Since(start), len(projects), len(files))

	return files, nil
}

func (s *FileScanner) scanDir(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(strings.ToLower(entry.Name()), logExtension) {
			continue
		}
		files = append(files, filepath.Join(dir, entry.Name()))
	}
	sort.Strings(files)
	return files, nil
}

// SessionPath returns where the log of sessionID in project would live.
func (s *FileScanner) SessionPath(project, sessionID string) (string, bool) {
	if !validProjectName(project) || !validProjectName(sessionID) {
		return "", false
	}
	return filepath.Join(s.baseDir, project, sessionID+logExtension), true
}

// SessionID returns the file stem of a session log path.
func SessionID(path string) string {
	base := filepath.Base(path)
	return base[:len(base)-len(filepath.Ext(base))]
}

// ProjectFolder returns the name of the folder containing path.
func ProjectFolder(path string) string {
	return filepath.Base(filepath.Dir(path))
}

func validProjectName(name string) bool {
	return name != "" && name != "." && name != ".." && !strings.ContainsAny(name, `/\`)
}
