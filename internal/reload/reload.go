// Package reload keeps the live route table in step with the files on disk.
//
// File system events arrive from the watcher as debounced batches and are
// handed to a single reconciling goroutine over a channel. Reconciliation
// either re-derives the keys of the changed files or, when the
// configuration or a partial changed, rebuilds the whole table. A failed
// reconciliation is logged and leaves the previously installed records in
// place.
package reload

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/conneroisu/binserve/internal/logging"
	"github.com/conneroisu/binserve/internal/routes"
	"github.com/conneroisu/binserve/internal/site"
	"github.com/conneroisu/binserve/internal/watcher"
)

// DefaultDebounce coalesces bursts of writes from editors and build tools.
const DefaultDebounce = time.Second

// State is the lifecycle state of a HotReloader.
type State int32

const (
	StateDisabled State = iota
	StateWatching
	StateReconciling
)

func (s State) String() string {
	switch s {
	case StateDisabled:
		return "disabled"
	case StateWatching:
		return "watching"
	case StateReconciling:
		return "reconciling"
	default:
		return "unknown"
	}
}

// Loader produces a fresh site from the configuration on disk.
type Loader func() (*site.Site, error)

// WatchMapping maps the absolute path of a tracked file to the route keys
// built from it.
type WatchMapping map[string][]string

// MappingFor derives the watch mapping from the records in table.
func MappingFor(table *routes.Table) WatchMapping {
	mapping := make(WatchMapping)
	for key, rec := range table.Snapshot() {
		if rec.SourcePath == "" {
			continue
		}
		path := absPath(rec.SourcePath)
		mapping[path] = append(mapping[path], key)
	}
	for _, keys := range mapping {
		sort.Strings(keys)
	}
	return mapping
}

// Paths returns the tracked paths in sorted order.
func (m WatchMapping) Paths() []string {
	paths := make([]string, 0, len(m))
	for p := range m {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// Outcome describes one successful reconciliation.
type Outcome struct {
	// Full is set when the whole table was rebuilt.
	Full bool
	// Keys lists the keys that were re-derived. Empty for a full rebuild.
	Keys []string
	// Removed lists keys a full rebuild dropped.
	Removed []string
}

// Option configures a HotReloader.
type Option func(*HotReloader)

// WithDebounce sets the quiet period before a batch is reconciled.
func WithDebounce(d time.Duration) Option {
	return func(h *HotReloader) { h.debounce = d }
}

// WithLogger sets the logger.
func WithLogger(l logging.Logger) Option {
	return func(h *HotReloader) { h.logger = l }
}

// HotReloader applies file changes to a route table.
type HotReloader struct {
	table    *routes.Table
	load     Loader
	logger   logging.Logger
	debounce time.Duration
	state    atomic.Int32

	mutex   sync.Mutex
	site    *site.Site
	mapping WatchMapping
	watcher *watcher.FileWatcher

	listenersMu sync.RWMutex
	listeners   []func(Outcome)
}

// New creates a reloader for table, which must already hold the records
// built from current. A site with hot reload turned off yields a reloader
// in the Disabled state whose Run returns immediately.
func New(table *routes.Table, current *site.Site, load Loader, opts ...Option) *HotReloader {
	h := &HotReloader{
		table:    table,
		load:     load,
		logger:   logging.Nop(),
		debounce: DefaultDebounce,
		site:     current,
		mapping:  MappingFor(table),
	}
	for _, opt := range opts {
		opt(h)
	}
	h.logger = h.logger.WithComponent("reload")

	if current.Config.Toggles.EnableHotReload {
		h.state.Store(int32(StateWatching))
	} else {
		h.state.Store(int32(StateDisabled))
	}
	return h
}

// State returns the current lifecycle state.
func (h *HotReloader) State() State {
	return State(h.state.Load())
}

// OnReconcile registers fn to be called after every successful
// reconciliation.
func (h *HotReloader) OnReconcile(fn func(Outcome)) {
	h.listenersMu.Lock()
	defer h.listenersMu.Unlock()
	h.listeners = append(h.listeners, fn)
}

// Mapping returns a copy of the current watch mapping.
func (h *HotReloader) Mapping() WatchMapping {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	out := make(WatchMapping, len(h.mapping))
	for p, keys := range h.mapping {
		out[p] = append([]string(nil), keys...)
	}
	return out
}

// Run watches the configuration, the partials and every tracked file until
// ctx is done.
func (h *HotReloader) Run(ctx context.Context) error {
	if h.State() == StateDisabled {
		return nil
	}

	fw, err := watcher.NewFileWatcher(h.debounce, h.logger)
	if err != nil {
		return fmt.Errorf("starting hot reload: %w", err)
	}
	defer fw.Stop()

	fw.AddFilter(h.keepEvent)
	fw.AddFilter(watcher.NoGitFilter)

	batches := make(chan []watcher.ChangeEvent)
	fw.AddHandler(func(events []watcher.ChangeEvent) error {
		select {
		case batches <- events:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	})

	h.mutex.Lock()
	h.watcher = fw
	h.mutex.Unlock()
	h.watchAll(ctx)

	if err := fw.Start(ctx); err != nil {
		return fmt.Errorf("starting hot reload: %w", err)
	}
	h.logger.Info(ctx, "hot reload enabled", "tracked", len(h.Mapping()))

	for {
		select {
		case <-ctx.Done():
			return nil
		case events := <-batches:
			h.Apply(ctx, events)
		}
	}
}

// Apply reconciles one batch of changes. It is what Run calls for every
// debounced batch.
func (h *HotReloader) Apply(ctx context.Context, events []watcher.ChangeEvent) {
	if len(events) == 0 {
		return
	}

	h.state.Store(int32(StateReconciling))
	defer h.state.Store(int32(StateWatching))

	h.mutex.Lock()
	full, keys := h.classify(events)
	h.mutex.Unlock()

	if full {
		h.rebuild(ctx)
		return
	}
	if len(keys) > 0 {
		h.rederive(ctx, keys)
	}
}

// keepEvent drops dotfiles and editor scratch files unless the site reads
// them, as with a route serving public/.nojekyll.
func (h *HotReloader) keepEvent(path string) bool {
	if watcher.NoHiddenFilter(path) {
		return true
	}
	return h.tracks(absPath(path))
}

func (h *HotReloader) tracks(path string) bool {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	if _, ok := h.mapping[path]; ok {
		return true
	}
	if path == absPath(h.site.ConfigFile()) {
		return true
	}
	for _, p := range h.site.PartialFiles() {
		if p == path {
			return true
		}
	}
	return false
}

// classify decides between a full rebuild and re-deriving single keys.
// It returns the affected key to path pairs for the latter.
func (h *HotReloader) classify(events []watcher.ChangeEvent) (bool, map[string]string) {
	configFile := absPath(h.site.ConfigFile())
	partials := make(map[string]struct{})
	for _, p := range h.site.PartialFiles() {
		partials[p] = struct{}{}
	}
	roots := h.site.DirectoryRoots()

	keys := make(map[string]string)
	for _, ev := range events {
		path := absPath(ev.Path)
		if path == configFile {
			return true, nil
		}
		if _, ok := partials[path]; ok {
			return true, nil
		}
		if tracked, ok := h.mapping[path]; ok {
			for _, key := range tracked {
				keys[key] = path
			}
			continue
		}
		// A file appearing under a directory route gives the route a new key.
		if ev.Type != watcher.EventTypeDeleted && underAny(path, roots) {
			return true, nil
		}
	}
	return false, keys
}

func (h *HotReloader) rederive(ctx context.Context, keys map[string]string) {
	h.mutex.Lock()
	s := h.site
	h.mutex.Unlock()

	sorted := make([]string, 0, len(keys))
	for key := range keys {
		sorted = append(sorted, key)
	}
	sort.Strings(sorted)

	var updated []string
	for _, key := range sorted {
		path := keys[key]
		rec, err := s.BuildKey(key, path)
		if err != nil {
			h.logger.Error(ctx, err, "reload failed, keeping previous content", "route", key, "path", path)
			continue
		}
		if rec.IsSentinel() {
			h.logger.Warn(ctx, nil, "reload skipped symlink, keeping previous content", "route", key, "path", path)
			continue
		}
		h.table.Set(key, rec)
		updated = append(updated, key)
		h.logger.Info(ctx, "route reloaded", "route", key, "etag", rec.ETag)
	}

	if len(updated) > 0 {
		h.notify(Outcome{Keys: updated})
	}
}

func (h *HotReloader) rebuild(ctx context.Context) {
	s, err := h.load()
	if err != nil {
		h.logger.Error(ctx, err, "reloading configuration failed, keeping previous routes")
		return
	}

	op := logging.StartOperation(h.logger, "full rebuild")
	removed, err := s.Build(h.table)
	if err != nil {
		op.EndWithError(ctx, err)
		h.logger.Warn(ctx, nil, "keeping previous routes")
		return
	}
	op.End(ctx, "routes", h.table.Len(), "removed", len(removed))

	h.mutex.Lock()
	h.site = s
	h.mapping = MappingFor(h.table)
	h.mutex.Unlock()
	h.watchAll(ctx)

	h.notify(Outcome{Full: true, Removed: removed})
}

// watchAll subscribes to every input of the current site. Directories
// already watched are skipped by the watcher.
func (h *HotReloader) watchAll(ctx context.Context) {
	h.mutex.Lock()
	fw := h.watcher
	s := h.site
	paths := h.mapping.Paths()
	h.mutex.Unlock()

	if fw == nil {
		return
	}

	files := append([]string{s.ConfigFile()}, s.PartialFiles()...)
	files = append(files, paths...)
	for _, f := range files {
		if err := fw.AddFile(f); err != nil {
			h.logger.Warn(ctx, err, "cannot watch file", "path", f)
		}
	}
	for _, root := range s.DirectoryRoots() {
		if err := fw.AddRecursive(root); err != nil {
			h.logger.Warn(ctx, err, "cannot watch directory", "path", root)
		}
	}
}

func (h *HotReloader) notify(o Outcome) {
	h.listenersMu.RLock()
	listeners := h.listeners
	h.listenersMu.RUnlock()

	for _, fn := range listeners {
		fn(o)
	}
}

func underAny(path string, roots []string) bool {
	for _, root := range roots {
		if path == root || strings.HasPrefix(path, root+string(filepath.Separator)) {
			return true
		}
	}
	return false
}

func absPath(p string) string {
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return filepath.Clean(p)
}
