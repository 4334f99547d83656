// internal/prompt/template.go
package prompt

import (
	_ "embed"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

//go:embed default_prompt.txt
var defaultTemplate string

// treePlaceholder is replaced with the rendered knowledge tree when the
// system prompt is built.
const treePlaceholder = "{kb_tree}"

// Template holds the system prompt template. When backed by a file it watches
// the file and reloads on change, so prompt edits take effect without a
// restart.
type Template struct {
	path    string
	log     *slog.Logger
	mu      sync.RWMutex
	text    string
	watcher *fsnotify.Watcher
	done    chan struct{}

	debounceMu sync.Mutex
	debouncer  *time.Timer
}

// Load creates a Template from the file at path, falling back to the
// compiled-in default when path is empty or the file does not exist. A file
// that exists but cannot be read is an error.
func Load(path string) (*Template, error) {
	t := &Template{
		path: path,
		log:  slog.Default(),
		text: defaultTemplate,
		done: make(chan struct{}),
	}

	if path == "" {
		return t, nil
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return t, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read prompt template: %w", err)
	}
	t.text = string(data)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	if err := watcher.Add(path); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to watch prompt template %s: %w", path, err)
	}
	t.watcher = watcher

	go t.watch()

	return t, nil
}

// Render substitutes the knowledge tree into the current template text.
func (t *Template) Render(kbTree string) string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return strings.ReplaceAll(t.text, treePlaceholder, kbTree)
}

// Close stops the file watcher, if any.
func (t *Template) Close() error {
	t.debounceMu.Lock()
	if t.debouncer != nil {
		t.debouncer.Stop()
	}
	t.debounceMu.Unlock()

	if t.watcher == nil {
		return nil
	}
	close(t.done)
	return t.watcher.Close()
}

// watch is the reload loop.
func (t *Template) watch() {
	for {
		select {
		case event, ok := <-t.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
				t.scheduleReload()
			}

		case err, ok := <-t.watcher.Errors:
			if !ok {
				return
			}
			t.log.Warn("prompt watcher error", "path", t.path, "error", err)

		case <-t.done:
			return
		}
	}
}

// scheduleReload debounces bursts of write events into a single reload.
func (t *Template) scheduleReload() {
	t.debounceMu.Lock()
	defer t.debounceMu.Unlock()

	if t.debouncer != nil {
		t.debouncer.Stop()
	}
	t.debouncer = time.AfterFunc(100*time.Millisecond, t.reload)
}

func (t *Template) reload() {
	data, err := os.ReadFile(t.path)
	if err != nil {
		// Keep serving the previous text; the file may be mid-replace.
		t.log.Warn("failed to reload prompt template", "path", t.path, "error", err)
		return
	}

	t.mu.Lock()
	t.text = string(data)
	t.mu.Unlock()
}
