package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/penwyp/go-claude-usage/internal/util"
)

// Change describes a write to a session log under the data directory.
type Change struct {
	Project string
	Path    string
	Op      string
}

// Watcher reports JSONL changes under <root>/<project>/. Project folders
// created after start are picked up automatically.
type Watcher struct {
	root    string
	watcher *fsnotify.Watcher
	events  chan Change
	done    chan struct{}
	once    sync.Once
}

func New(root string) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		root:    filepath.Clean(root),
		watcher: fw,
		events:  make(chan Change, 100),
		done:    make(chan struct{}),
	}

	if err := fw.Add(w.root); err != nil {
		fw.Close()
		return nil, err
	}
	entries, err := os.ReadDir(w.root)
	if err != nil {
		fw.Close()
		return nil, err
	}
	for _, entry := range entries {
		if entry.IsDir() {
			w.addProject(filepath.Join(w.root, entry.Name()))
		}
	}

	go w.processEvents()
	return w, nil
}

func (w *Watcher) addProject(dir string) {
	if err := w.watcher.Add(dir); err != nil {
		util.LogWarn("failed to watch project directory", util.F("dir", dir), util.F("error", err))
	}
}

func (w *Watcher) processEvents() {
	defer close(w.events)

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handle(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			util.LogError("file watcher error", util.F("error", err))

		case <-w.done:
			return
		}
	}
}

func (w *Watcher) handle(event fsnotify.Event) {
	rel, err := filepath.Rel(w.root, event.Name)
	if err != nil || strings.HasPrefix(rel, "..") {
		return
	}
	parts := strings.Split(rel, string(filepath.Separator))

	if len(parts) == 1 && event.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			w.addProject(event.Name)
		}
		return
	}

	if len(parts) != 2 || !strings.EqualFold(filepath.Ext(parts[1]), ".jsonl") {
		return
	}
	if event.Op == fsnotify.Chmod {
		return
	}

	change := Change{Project: parts[0], Path: event.Name, Op: event.Op.String()}
	select {
	case w.events <- change:
	case <-w.done:
	}
}

// Events delivers changes until Close. The channel is closed afterwards.
func (w *Watcher) Events() <-chan Change {
	return w.events
}

func (w *Watcher) Close() error {
	var err error
	w.once.Do(func() {
		close(w.done)
		err = w.watcher.Close()
	})
	return err
}

// Coalesce groups changes arriving within window into one sorted, distinct
// list of project folders. The output closes when in closes or ctx ends.
func Coalesce(ctx context.Context, in <-chan Change, window time.Duration) <-chan []string {
	out := make(chan []string)

	go func() {
		defer close(out)

		pending := make(map[string]struct{})
		var timer *time.Timer
		var fire <-chan time.Time

		flush := func() bool {
			if len(pending) == 0 {
				return true
			}
			projects := make([]string, 0, len(pending))
			for p := range pending {
				projects = append(projects, p)
			}
			sort.Strings(projects)
			pending = make(map[string]struct{})

			select {
			case out <- projects:
				return true
			case <-ctx.Done():
				return false
			}
		}

		for {
			select {
			case change, ok := <-in:
				if !ok {
					flush()
					return
				}
				pending[change.Project] = struct{}{}
				if timer == nil {
					timer = time.NewTimer(window)
					fire = timer.C
				}

			case <-fire:
				timer, fire = nil, nil
				if !flush() {
					return
				}

			case <-ctx.Done():
				if timer != nil {
					timer.Stop()
				}
				return
			}
		}
	}()

	return out
}
