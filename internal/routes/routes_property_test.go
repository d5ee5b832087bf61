//go:build property

package routes

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// TestRouteKeyProperties validates the key normalization rules
func TestRouteKeyProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.Rng.Seed(4242)
	parameters.MinSuccessfulTests = 200

	properties := gopter.NewProperties(parameters)

	segment := gen.RegexMatch(`[a-z0-9_.-]{0,8}`)
	rawPath := gen.SliceOf(gen.OneGenOf(segment, gen.Const(""), gen.Const("/"))).Map(func(parts []string) string {
		return strings.Join(parts, "/")
	})

	// Property: normalization is idempotent
	properties.Property("normalize is idempotent", prop.ForAll(
		func(p string) bool {
			once := NormalizeKey(p)
			return NormalizeKey(once) == once
		},
		rawPath,
	))

	// Property: a normalized key has one leading slash and no empty segments
	properties.Property("normalized keys are well formed", prop.ForAll(
		func(p string) bool {
			key := NormalizeKey(p)
			if !strings.HasPrefix(key, "/") || strings.Contains(key, "//") {
				return false
			}
			return key == "/" || !strings.HasSuffix(key, "/")
		},
		rawPath,
	))

	// Property: adding leading slashes never changes the key
	properties.Property("leading slashes are stripped", prop.ForAll(
		func(p string, n int) bool {
			return NormalizeKey(strings.Repeat("/", n)+p) == NormalizeKey(p)
		},
		rawPath,
		gen.IntRange(0, 5),
	))

	// Property: directory keys round trip to the relative file path
	properties.Property("directory keys round trip", prop.ForAll(
		func(parts []string) bool {
			rel := strings.Join(parts, "/")
			base := parts[len(parts)-1]
			if base == "index" || base == "index.html" || base == "index.htm" {
				return true
			}

			dir := filepath.Join("site", "root")
			key := DirectoryKey("/prefix", dir, filepath.Join(dir, filepath.FromSlash(rel)))
			return strings.TrimPrefix(key, "/prefix/") == rel
		},
		gen.SliceOfN(3, gen.RegexMatch(`[a-z][a-z0-9]{0,6}(\.[a-z]{1,4})?`)),
	))

	properties.TestingRun(t)
}
