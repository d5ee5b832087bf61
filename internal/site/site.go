// Package site turns one configuration snapshot into the inputs of a route
// table build.
package site

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/conneroisu/binserve/internal/config"
	"github.com/conneroisu/binserve/internal/content"
	"github.com/conneroisu/binserve/internal/renderer"
	"github.com/conneroisu/binserve/internal/routes"
)

// Site is everything derived from one configuration snapshot.
type Site struct {
	Config      *config.Config
	Definitions []routes.Definition
	Context     *renderer.Context
	Content     *content.Builder

	notFoundPage string
	fallback     []byte
}

// New reads the partials named by cfg and prepares the builders. fallback
// is the not-found page used when cfg configures none. A nil r selects
// Handlebars.
func New(cfg *config.Config, r renderer.Renderer, fallback []byte) (*Site, error) {
	rctx, err := renderer.LoadContext(cfg.Template.Variables, cfg.Template.Partials)
	if err != nil {
		return nil, fmt.Errorf("loading template partials: %w", err)
	}

	page, _ := cfg.NotFoundPage()

	return &Site{
		Config:      cfg,
		Definitions: routes.DefinitionsFrom(cfg.Routes),
		Context:     rctx,
		Content: content.NewBuilder(r, content.Options{
			FollowSymlinks: cfg.Toggles.FollowSymlinks,
			FastMemCache:   cfg.Toggles.FastMemCache,
			MinifyHTML:     cfg.Toggles.MinifyHTML,
		}),
		notFoundPage: page,
		fallback:     fallback,
	}, nil
}

// Routes returns a route builder writing into table.
func (s *Site) Routes(table *routes.Table) *routes.Builder {
	return routes.NewBuilder(table, s.Content, s.notFoundPage, s.fallback)
}

// Build populates table from the site's definitions and returns the keys
// that were dropped from a previous build.
func (s *Site) Build(table *routes.Table) ([]string, error) {
	return s.Routes(table).AddRoutes(s.Definitions, s.Context)
}

// BuildKey re-derives the record for one route key from path.
func (s *Site) BuildKey(key, path string) (content.Record, error) {
	if key == routes.NotFoundKey {
		return s.Content.BuildNotFound(path, s.Context, s.fallback)
	}
	return s.Content.Build(path, s.Context)
}

// ConfigFile returns the absolute path of the configuration file.
func (s *Site) ConfigFile() string {
	return s.Config.File
}

// PartialFiles returns the absolute paths of every partial template.
func (s *Site) PartialFiles() []string {
	files := make([]string, 0, len(s.Context.PartialFiles))
	for _, p := range s.Context.PartialFiles {
		files = append(files, absPath(p))
	}
	sort.Strings(files)
	return files
}

// DirectoryRoots returns the absolute paths of the directories mirrored by
// directory routes.
func (s *Site) DirectoryRoots() []string {
	var roots []string
	for _, def := range s.Definitions {
		if isDir(def.Path) {
			roots = append(roots, absPath(def.Path))
		}
	}
	sort.Strings(roots)
	return roots
}

func absPath(p string) string {
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return filepath.Clean(p)
}

func isDir(p string) bool {
	info, err := os.Stat(p)
	return err == nil && info.IsDir()
}
