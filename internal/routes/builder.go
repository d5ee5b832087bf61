package routes

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/conneroisu/binserve/internal/content"
	berrors "github.com/conneroisu/binserve/internal/errors"
	"github.com/conneroisu/binserve/internal/renderer"
)

// Definition maps a URL to a file, or to a directory whose files are all
// mirrored under the URL.
type Definition struct {
	URL  string
	Path string
}

// DefinitionsFrom converts the configured routes, ordered by URL so that
// later definitions win on a key collision in a stable way.
func DefinitionsFrom(routes map[string]string) []Definition {
	defs := make([]Definition, 0, len(routes))
	for url, path := range routes {
		defs = append(defs, Definition{URL: url, Path: path})
	}
	sort.Slice(defs, func(i, j int) bool { return defs[i].URL < defs[j].URL })
	return defs
}

// Builder populates a Table from route definitions.
type Builder struct {
	table        *Table
	content      *content.Builder
	notFoundPage string
	fallback     []byte
}

// NewBuilder creates a Builder writing into table. notFoundPage is the
// user's error page, or empty to install fallback.
func NewBuilder(table *Table, cb *content.Builder, notFoundPage string, fallback []byte) *Builder {
	if notFoundPage != "" {
		if abs, err := filepath.Abs(notFoundPage); err == nil {
			notFoundPage = abs
		}
	}
	return &Builder{
		table:        table,
		content:      cb,
		notFoundPage: notFoundPage,
		fallback:     fallback,
	}
}

// Content returns the record builder used for single routes.
func (b *Builder) Content() *content.Builder {
	return b.content
}

// AddRoutes builds a record for every file named by defs plus the
// not-found record, then installs them. Nothing is installed when any
// record fails to build. Keys left over from a previous run that defs no
// longer produce are removed, so repeated runs replace rather than
// accumulate.
func (b *Builder) AddRoutes(defs []Definition, rctx *renderer.Context) ([]string, error) {
	records, err := b.Collect(defs, rctx)
	if err != nil {
		return nil, err
	}

	notFound, err := b.content.BuildNotFound(b.notFoundPage, rctx, b.fallback)
	if err != nil {
		return nil, fmt.Errorf("building not-found page: %w", err)
	}
	records[NotFoundKey] = notFound

	return b.table.Replace(records), nil
}

// Collect builds the records for defs without touching the table.
// Symlink sentinels are left out.
func (b *Builder) Collect(defs []Definition, rctx *renderer.Context) (map[string]content.Record, error) {
	records := make(map[string]content.Record)

	for _, def := range defs {
		files, err := b.expand(def)
		if err != nil {
			return nil, err
		}

		for _, f := range files {
			rec, err := b.content.Build(f.path, rctx)
			if err != nil {
				return nil, fmt.Errorf("route %s: %w", f.key, err)
			}
			if rec.IsSentinel() {
				continue
			}
			records[f.key] = rec
		}
	}

	return records, nil
}

type routeFile struct {
	key  string
	path string
}

// expand lists the files a definition covers together with their keys.
// Paths are absolute so that records match those re-derived on reload.
func (b *Builder) expand(def Definition) ([]routeFile, error) {
	src, err := filepath.Abs(def.Path)
	if err != nil {
		return nil, fmt.Errorf("route %s: %w", def.URL, berrors.ErrFileRead(def.Path, err))
	}

	info, err := os.Stat(src)
	if err != nil {
		return nil, fmt.Errorf("route %s: %w", def.URL, berrors.ErrFileRead(def.Path, err))
	}

	if !info.IsDir() {
		return []routeFile{{key: NormalizeKey(def.URL), path: src}}, nil
	}

	root := src
	follow := b.content.Options().FollowSymlinks

	var files []routeFile
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if d.Type()&fs.ModeSymlink != 0 {
			if !follow {
				return nil
			}
			target, err := os.Stat(path)
			if err != nil || !target.Mode().IsRegular() {
				return nil
			}
		} else if !d.Type().IsRegular() {
			return nil
		}

		files = append(files, routeFile{key: DirectoryKey(def.URL, root, path), path: path})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("route %s: walking %s: %w", def.URL, def.Path, berrors.ErrFileRead(def.Path, err))
	}

	return files, nil
}

// DirectoryKey derives the key of file found under dir for a directory
// route mounted at url.
func DirectoryKey(url, dir, file string) string {
	rel, err := filepath.Rel(dir, file)
	if err != nil {
		rel = file
	}
	return FoldIndex(NormalizeKey(url + "/" + filepath.ToSlash(rel)))
}
