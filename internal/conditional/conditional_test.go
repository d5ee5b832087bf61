package conditional

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

const (
	etag    = `W/"1651820889.123-8"`
	lastMod = "Fri, 06 May 2022 07:08:09 GMT"
	oldMod  = "Thu, 05 May 2022 07:08:09 GMT"
)

func header(pairs ...string) http.Header {
	h := http.Header{}
	for i := 0; i+1 < len(pairs); i += 2 {
		h.Set(pairs[i], pairs[i+1])
	}
	return h
}

func TestIsClientCachedTruthTable(t *testing.T) {
	tests := []struct {
		name   string
		header http.Header
		want   bool
	}{
		{"no validators", header(), false},
		{"etag matches", header("If-None-Match", etag), true},
		{"etag differs", header("If-None-Match", `W/"other"`), false},
		{"date matches", header("If-Modified-Since", lastMod), true},
		{"date differs", header("If-Modified-Since", oldMod), false},
		{"both match", header("If-None-Match", etag, "If-Modified-Since", lastMod), true},
		{"only etag matches", header("If-None-Match", etag, "If-Modified-Since", oldMod), true},
		{"only date matches", header("If-None-Match", `W/"other"`, "If-Modified-Since", lastMod), true},
		{"neither matches", header("If-None-Match", `W/"other"`, "If-Modified-Since", oldMod), false},
		{"empty etag header", header("If-None-Match", ""), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsClientCached(FromHeader(tt.header), etag, lastMod))
		})
	}
}

func TestIsClientCachedWithoutStoredValidators(t *testing.T) {
	v := FromHeader(header("If-None-Match", etag))
	assert.False(t, IsClientCached(v, "", ""))
}

func TestFromHeader(t *testing.T) {
	v := FromHeader(header("If-None-Match", etag))
	assert.True(t, v.HasIfNoneMatch)
	assert.False(t, v.HasIfModifiedSince)
	assert.Equal(t, etag, v.IfNoneMatch)

	v = FromHeader(http.Header{})
	assert.Equal(t, Validators{}, v)
}
