package testutils

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// CreateTempSite creates a temporary site with a root page, a directory
// route and a template with a partial. It returns the site directory.
func CreateTempSite(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	files := map[string]string{
		"public/index.html":       "<h1>home</h1>",
		"public/404.html":         "<h1>missing</h1>",
		"public/docs/index.html":  "<h1>docs</h1>",
		"public/docs/guide.html":  "<h1>guide</h1>",
		"public/usage.hbs":        "{{> header}}<p>{{app_name}}</p>",
		"public/header.hbs":       "<header>{{app_name}}</header>",
		"public/assets/style.css": "body{}",
	}
	for rel, content := range files {
		WriteFile(t, dir, rel, content)
	}

	return dir
}

// SiteConfig is a binserve.json matching CreateTempSite, with paths
// relative to the site directory.
const SiteConfig = `{
    "server": {"host": "127.0.0.1:0"},
    "routes": {"/": "public/index.html", "/docs": "public/docs/", "/usage": "public/usage.hbs"},
    "static": {"directory": "public/assets", "served_from": "/assets",
               "error_pages": {"404": "public/404.html"}},
    "template": {"partials": {"header": "public/header.hbs"},
                 "variables": {"app_name": "Binserve"}}
}`

// WriteFile writes content to rel under dir, creating parent directories,
// and returns the full path.
func WriteFile(t *testing.T, dir, rel, content string) string {
	t.Helper()
	path := filepath.Join(dir, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// WriteSparseFile creates a file of the given size without writing its
// contents.
func WriteSparseFile(t *testing.T, path string, size int64) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, f.Truncate(size))
	require.NoError(t, f.Close())
}

// SetModTime changes the modification time of path.
func SetModTime(t *testing.T, path string, mod time.Time) {
	t.Helper()
	require.NoError(t, os.Chtimes(path, mod, mod))
}

// Chdir switches the working directory for the duration of the test.
func Chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() {
		_ = os.Chdir(prev)
	})
}

// WaitForFileChange waits for a file to be modified (useful for testing file watchers)
func WaitForFileChange(
	t *testing.T,
	filePath string,
	originalModTime time.Time,
	timeout time.Duration,
) {
	t.Helper()
	deadline := time.Now().Add(timeout)

	for time.Now().Before(deadline) {
		info, err := os.Stat(filePath)
		if err == nil && info.ModTime().After(originalModTime) {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}

	t.Fatalf("File %s was not modified within %v", filePath, timeout)
}
