package version

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func withVersion(t *testing.T, version, commit, built string) {
	t.Helper()
	prevV, prevC, prevB := Version, GitCommit, BuildTime
	Version, GitCommit, BuildTime = version, commit, built
	t.Cleanup(func() { Version, GitCommit, BuildTime = prevV, prevC, prevB })
}

func TestServerName(t *testing.T) {
	withVersion(t, "v1.2.0", "unknown", "unknown")
	assert.Equal(t, "binserve/1.2.0", ServerName())
}

func TestShortVersion(t *testing.T) {
	withVersion(t, "1.2.0", "0123456789abcdef", "unknown")
	assert.Equal(t, "1.2.0 (0123456)", GetShortVersion())
}

func TestDetailedVersion(t *testing.T) {
	withVersion(t, "1.2.0", "0123456789abcdef", "2024-03-01T10:00:00Z")

	out := GetDetailedVersion()
	assert.True(t, strings.HasPrefix(out, "binserve 1.2.0"))
	assert.Contains(t, out, "Commit: 0123456789abcdef")
	assert.Contains(t, out, "Built: 2024-03-01T10:00:00Z")
	assert.Contains(t, out, "Go: ")
}

func TestParseBuildTime(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
	}{
		{"unknown", time.Time{}},
		{"", time.Time{}},
		{"garbage", time.Time{}},
		{"2024-03-01T10:00:00Z", time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)},
		{"2024-03-01 10:00:00", time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.True(t, tt.want.Equal(parseBuildTime(tt.in)))
		})
	}
}
