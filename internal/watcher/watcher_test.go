package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventTypeString(t *testing.T) {
	testCases := []struct {
		eventType EventType
		expected  string
	}{
		{EventTypeCreated, "created"},
		{EventTypeModified, "modified"},
		{EventTypeDeleted, "deleted"},
		{EventTypeRenamed, "renamed"},
		{EventType(42), "unknown"},
	}

	for _, tc := range testCases {
		t.Run(tc.expected, func(t *testing.T) {
			assert.Equal(t, tc.expected, tc.eventType.String())
		})
	}
}

func TestNewFileWatcher(t *testing.T) {
	watcher, err := NewFileWatcher(100*time.Millisecond, nil)
	require.NoError(t, err)
	defer watcher.Stop()

	assert.NotNil(t, watcher.watcher)
	assert.NotNil(t, watcher.debouncer)
	assert.NotNil(t, watcher.logger)
	assert.Empty(t, watcher.filters)
	assert.Empty(t, watcher.handlers)
}

func TestFileWatcherAddPath(t *testing.T) {
	watcher, err := NewFileWatcher(100*time.Millisecond, nil)
	require.NoError(t, err)
	defer watcher.Stop()

	dir := t.TempDir()
	require.NoError(t, watcher.AddPath(dir))
	require.NoError(t, watcher.AddPath(dir))
	assert.Len(t, watcher.WatchedPaths(), 1)

	assert.Error(t, watcher.AddPath("/non/existent/path"))
	assert.Error(t, watcher.AddPath(""))
}

func TestFileWatcherAddFileWatchesParent(t *testing.T) {
	watcher, err := NewFileWatcher(100*time.Millisecond, nil)
	require.NoError(t, err)
	defer watcher.Stop()

	dir := t.TempDir()
	file := filepath.Join(dir, "binserve.json")
	require.NoError(t, os.WriteFile(file, []byte("{}"), 0o644))

	require.NoError(t, watcher.AddFile(file))
	assert.Equal(t, []string{dir}, watcher.WatchedPaths())
}

func TestFileWatcherAddRecursive(t *testing.T) {
	watcher, err := NewFileWatcher(100*time.Millisecond, nil)
	require.NoError(t, err)
	defer watcher.Stop()

	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "a", "b"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(root, ".git", "objects"), 0o755))

	require.NoError(t, watcher.AddRecursive(root))
	assert.Equal(t, []string{
		root,
		filepath.Join(root, "a"),
		filepath.Join(root, "a", "b"),
	}, watcher.WatchedPaths())
}

func TestFileWatcherStartStop(t *testing.T) {
	watcher, err := NewFileWatcher(50*time.Millisecond, nil)
	require.NoError(t, err)

	dir := t.TempDir()
	require.NoError(t, watcher.AddPath(dir))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	received := make(chan []ChangeEvent, 4)
	watcher.AddHandler(func(events []ChangeEvent) error {
		received <- events
		return nil
	})

	require.NoError(t, watcher.Start(ctx))
	time.Sleep(50 * time.Millisecond)

	testFile := filepath.Join(dir, "index.html")
	require.NoError(t, os.WriteFile(testFile, []byte("<h1>hi</h1>"), 0o644))

	select {
	case events := <-received:
		require.NotEmpty(t, events)
		assert.Equal(t, testFile, events[0].Path)
	case <-time.After(2 * time.Second):
		t.Fatal("no change event delivered")
	}

	cancel()
	assert.NoError(t, watcher.Stop())
	assert.NoError(t, watcher.Stop())
}

func TestFileWatcherFiltersEvents(t *testing.T) {
	watcher, err := NewFileWatcher(50*time.Millisecond, nil)
	require.NoError(t, err)
	defer watcher.Stop()

	dir := t.TempDir()
	require.NoError(t, watcher.AddPath(dir))
	watcher.AddFilter(NoHiddenFilter)

	var mu sync.Mutex
	var paths []string
	watcher.AddHandler(func(events []ChangeEvent) error {
		mu.Lock()
		defer mu.Unlock()
		for _, e := range events {
			paths = append(paths, filepath.Base(e.Path))
		}
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, watcher.Start(ctx))
	time.Sleep(50 * time.Millisecond)

	require.NoError(t, os.WriteFile(filepath.Join(dir, ".index.html.swp"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "page.html"), []byte("x"), 0o644))

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(paths) > 0
	}, 2*time.Second, 20*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.NotContains(t, paths, ".index.html.swp")
	assert.Contains(t, paths, "page.html")
}

func TestNoHiddenFilter(t *testing.T) {
	testCases := []struct {
		path     string
		expected bool
	}{
		{"public/index.html", true},
		{"public/.index.html.swp", false},
		{"public/index.html~", false},
		{"public/.DS_Store", false},
		{"public/usage.hbs", true},
	}

	for _, tc := range testCases {
		t.Run(tc.path, func(t *testing.T) {
			assert.Equal(t, tc.expected, NoHiddenFilter(tc.path))
		})
	}
}

func TestNoGitFilter(t *testing.T) {
	testCases := []struct {
		path     string
		expected bool
	}{
		{"public/index.html", true},
		{".git/config", false},
		{"public/.git/HEAD", false},
		{"index.html", true},
	}

	for _, tc := range testCases {
		t.Run(tc.path, func(t *testing.T) {
			assert.Equal(t, tc.expected, NoGitFilter(tc.path))
		})
	}
}

func TestDebouncer(t *testing.T) {
	debouncer := NewDebouncer(50 * time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go debouncer.start(ctx)

	debouncer.Push(ChangeEvent{Path: "b.html", Type: EventTypeCreated})
	debouncer.Push(ChangeEvent{Path: "a.html", Type: EventTypeModified})
	debouncer.Push(ChangeEvent{Path: "b.html", Type: EventTypeModified})

	select {
	case events := <-debouncer.Output():
		require.Len(t, events, 2)
		assert.Equal(t, "a.html", events[0].Path)
		assert.Equal(t, "b.html", events[1].Path)
		assert.Equal(t, EventTypeModified, events[1].Type)
	case <-time.After(time.Second):
		t.Fatal("debouncer never flushed")
	}
}

func TestDebouncerQuietPeriod(t *testing.T) {
	debouncer := NewDebouncer(100 * time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go debouncer.start(ctx)

	debouncer.Push(ChangeEvent{Path: "a.html"})

	select {
	case <-debouncer.Output():
		t.Fatal("flushed before the quiet period elapsed")
	case <-time.After(30 * time.Millisecond):
	}

	select {
	case events := <-debouncer.Output():
		assert.Len(t, events, 1)
	case <-time.After(time.Second):
		t.Fatal("debouncer never flushed")
	}
}
