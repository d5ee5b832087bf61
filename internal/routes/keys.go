package routes

import "strings"

var indexSuffixes = []string{"/index.html", "/index.htm", "/index"}

// NormalizeKey turns a URL path into a table key: exactly one leading
// slash, no repeated slashes and no trailing slash except for the root.
func NormalizeKey(p string) string {
	var b strings.Builder
	b.Grow(len(p) + 1)
	b.WriteByte('/')

	prevSlash := true
	for i := 0; i < len(p); i++ {
		c := p[i]
		if c == '/' {
			if prevSlash {
				continue
			}
			prevSlash = true
		} else {
			prevSlash = false
		}
		b.WriteByte(c)
	}

	key := b.String()
	if len(key) > 1 {
		key = strings.TrimSuffix(key, "/")
	}
	return key
}

// FoldIndex maps a key ending in an index file name to the key of its
// directory, so a directory's index is reachable at the directory itself.
func FoldIndex(key string) string {
	for _, suffix := range indexSuffixes {
		if strings.HasSuffix(key, suffix) {
			return NormalizeKey(strings.TrimSuffix(key, suffix))
		}
	}
	return key
}
