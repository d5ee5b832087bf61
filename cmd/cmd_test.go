package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conneroisu/binserve/internal/config"
	"github.com/conneroisu/binserve/internal/testutils"
	"github.com/conneroisu/binserve/internal/version"
)

// syncBuffer lets a test read output while a command is still writing.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func execute(t *testing.T, ctx context.Context, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(ctx)
	return out.String(), err
}

func siteDir(t *testing.T) {
	t.Helper()
	dir := testutils.CreateTempSite(t)
	testutils.WriteFile(t, dir, config.DefaultFile, testutils.SiteConfig)
	testutils.Chdir(t, dir)
}

func TestRoutesCommand(t *testing.T) {
	siteDir(t)

	t.Run("json", func(t *testing.T) {
		out, err := execute(t, context.Background(), "routes", "--output", "json")
		require.NoError(t, err)

		var infos []routeInfo
		require.NoError(t, json.Unmarshal([]byte(out), &infos))

		keys := make([]string, 0, len(infos))
		for _, ri := range infos {
			keys = append(keys, ri.Key)
		}
		assert.Equal(t, []string{"/", "/docs", "/docs/guide.html", "/usage", "{{404}}"}, keys)

		for _, ri := range infos {
			if ri.Key == "/usage" {
				assert.True(t, ri.Template)
				assert.Equal(t, "text/html; charset=utf-8", ri.MIME)
			}
		}
	})

	t.Run("table", func(t *testing.T) {
		out, err := execute(t, context.Background(), "routes")
		require.NoError(t, err)
		lines := strings.Split(strings.TrimSpace(out), "\n")
		require.Len(t, lines, 6)
		assert.True(t, strings.HasPrefix(lines[0], "KEY"))
		assert.Contains(t, out, "memory+template")
	})

	t.Run("tree", func(t *testing.T) {
		out, err := execute(t, context.Background(), "routes", "-o", "tree")
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(out, "/ [memory, text/html; charset=utf-8]"))
		assert.Contains(t, out, "docs [memory")
		assert.Contains(t, out, "guide.html [memory")
		assert.Contains(t, out, "{{404}}")
	})

	t.Run("unknown format", func(t *testing.T) {
		_, err := execute(t, context.Background(), "routes", "-o", "xml")
		assert.ErrorContains(t, err, "unsupported output format")
	})
}

func TestRoutesCommandBadConfig(t *testing.T) {
	dir := t.TempDir()
	testutils.WriteFile(t, dir, config.DefaultFile, `{"routes": {"/": "index.html"}}`)
	testutils.Chdir(t, dir)

	_, err := execute(t, context.Background(), "routes")
	assert.ErrorContains(t, err, "loading configuration")
}

func TestRouteTree(t *testing.T) {
	infos := []routeInfo{
		{Key: "/a/b/c.html", Storage: "disk", MIME: "text/html"},
		{Key: "/blog", Storage: "memory", MIME: "text/html"},
		{Key: "/blog/post.html", Storage: "memory", MIME: "text/html"},
		{Key: "{{404}}", Storage: "memory", MIME: "text/html"},
	}

	out := routeTree(infos)
	assert.True(t, strings.HasPrefix(out, "/\n"))
	assert.Contains(t, out, "a\n")
	assert.Contains(t, out, "b\n")
	assert.Contains(t, out, "c.html [disk, text/html]")
	assert.Contains(t, out, "blog [memory, text/html]")
	assert.Contains(t, out, "post.html [memory, text/html]")
	assert.Equal(t, 1, strings.Count(out, "blog ["))
}

func TestInitCommand(t *testing.T) {
	dir := t.TempDir()
	testutils.Chdir(t, dir)

	out, err := execute(t, context.Background(), "init", "site")
	require.NoError(t, err)
	assert.Contains(t, out, "[INFO] Created "+config.DefaultFile)
	assert.Contains(t, out, "[SUCCESS] Starter site ready")
	assert.FileExists(t, "site/"+config.DefaultFile)
	assert.FileExists(t, "site/public/index.html")

	out, err = execute(t, context.Background(), "init", "site")
	require.NoError(t, err)
	assert.Contains(t, out, "Nothing to do")
}

func TestVersionCommand(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{name: "default", args: []string{"version"}, want: version.Name + " " + version.GetVersion()},
		{name: "short", args: []string{"version", "--short"}, want: version.GetShortVersion()},
		{name: "detailed", args: []string{"version", "--detailed"}, want: "Platform: "},
		{name: "json", args: []string{"version", "-f", "json"}, want: `"go_version"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := execute(t, context.Background(), tt.args...)
			require.NoError(t, err)
			assert.Contains(t, out, tt.want)
		})
	}

	_, err := execute(t, context.Background(), "version", "-f", "xml")
	assert.Error(t, err)
}

func TestConfigPath(t *testing.T) {
	t.Cleanup(func() { cfgFile = "" })

	cfgFile = ""
	t.Setenv(ConfigFileEnv, "")
	assert.Equal(t, config.DefaultFile, configPath())

	t.Setenv(ConfigFileEnv, "env.yaml")
	assert.Equal(t, "env.yaml", configPath())

	cfgFile = "flag.json"
	assert.Equal(t, "flag.json", configPath())
}

func TestHumanDuration(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{291 * time.Microsecond, "291 μs"},
		{42 * time.Millisecond, "42 ms"},
		{1500 * time.Millisecond, "1.50 s"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, humanDuration(tt.in))
		})
	}
}

func TestBuildSummaryGroupsDigits(t *testing.T) {
	var out bytes.Buffer
	printBuildSummary(&out, 12345, 3*time.Millisecond)
	assert.Equal(t, "[INFO] Build finished in 3 ms with 12,345 routes\n", out.String())
}

func TestServeCommand(t *testing.T) {
	siteDir(t)

	root := newRootCmd()
	out := &syncBuffer{}
	root.SetOut(out)
	root.SetErr(out)
	root.SetArgs([]string{"--log-level", "error"})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- root.ExecuteContext(ctx) }()

	require.Eventually(t, func() bool {
		return strings.Contains(out.String(), "[SUCCESS] Your server is up and running at http://127.0.0.1:0")
	}, 5*time.Second, 10*time.Millisecond)
	assert.Contains(t, out.String(), "with 5 routes")

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("serve did not stop")
	}
}

func TestStarterRoutes(t *testing.T) {
	dir := t.TempDir()
	testutils.Chdir(t, dir)

	require.True(t, config.StarterNeeded("."))
	created, err := config.WriteStarter(".")
	require.NoError(t, err)
	assert.NotEmpty(t, created)

	out, err := execute(t, context.Background(), "routes", "-o", "json")
	require.NoError(t, err)
	assert.Contains(t, out, `"key": "/usage"`)
	assert.Contains(t, out, `"key": "/blog/hello.html"`)
}

func TestUnderscoreFlags(t *testing.T) {
	out, err := execute(t, context.Background(), "version", "--log_level", "debug", "--short")
	require.NoError(t, err)
	assert.Equal(t, version.GetShortVersion()+"\n", out)
}
