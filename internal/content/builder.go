package content

import (
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/net/http/httpguts"

	berrors "github.com/conneroisu/binserve/internal/errors"
	"github.com/conneroisu/binserve/internal/renderer"
)

// HTMLMIME is the content type of rendered templates and error pages.
const HTMLMIME = "text/html; charset=utf-8"

// Options are the configuration toggles that affect record building.
type Options struct {
	FollowSymlinks bool
	FastMemCache   bool
	MinifyHTML     bool
}

// Builder turns source files into records.
type Builder struct {
	renderer renderer.Renderer
	minifier *renderer.Minifier
	opts     Options
}

// NewBuilder creates a Builder. A nil renderer selects Handlebars.
func NewBuilder(r renderer.Renderer, opts Options) *Builder {
	if r == nil {
		r = renderer.NewHandlebars()
	}

	b := &Builder{renderer: r, opts: opts}
	if opts.MinifyHTML {
		b.minifier = renderer.NewMinifier()
	}

	return b
}

// Options returns the toggles the builder was created with.
func (b *Builder) Options() Options {
	return b.opts
}

// Build produces the record for the file at path. Templates are rendered
// with rctx. A symlink is returned as an empty sentinel record when
// following symlinks is disabled. Any failure fails the whole build.
func (b *Builder) Build(path string, rctx *renderer.Context) (Record, error) {
	link, err := os.Lstat(path)
	if err != nil {
		return Record{}, berrors.ErrFileRead(path, err)
	}
	if link.Mode()&os.ModeSymlink != 0 && !b.opts.FollowSymlinks {
		return Record{SourcePath: path}, nil
	}

	info, err := os.Stat(path)
	if err != nil {
		return Record{}, berrors.ErrFileRead(path, err)
	}
	if info.IsDir() {
		return Record{}, berrors.NewIOError(berrors.ErrCodeFileRead, "is a directory", nil).WithPath(path)
	}

	contentType := MIMEFor(path)
	template := renderer.IsTemplate(path)
	if template {
		contentType = HTMLMIME
	}

	inMemory := info.Size() < MaxMemorySize && b.opts.FastMemCache

	var body, rendered []byte
	if inMemory || template {
		data, err := os.ReadFile(path)
		if err != nil {
			return Record{}, berrors.ErrFileRead(path, err)
		}
		body = data

		if template {
			out, err := b.renderer.Render(data, rctx)
			if err != nil {
				return Record{}, fmt.Errorf("rendering %s: %w", path, err)
			}
			body = out
		}

		if b.minifier != nil && isHTML(contentType) {
			// A document the minifier rejects is served as written.
			if small, err := b.minifier.HTML(body); err == nil {
				body = small
			}
		}

		if template {
			rendered = body
		}
	}

	record := Record{
		MIME:         contentType,
		SourcePath:   path,
		ETag:         ETagFor(info),
		LastModified: LastModifiedFor(info),
		Template:     template,
		Rendered:     rendered,
		Size:         info.Size(),
	}
	if err := checkHeaders(record); err != nil {
		return Record{}, err
	}

	if inMemory {
		record.Body = MemoryBody{Bytes: body}
	} else {
		record.Body = DiskBody{Path: path}
	}

	return record, nil
}

// BuildNotFound produces the not-found record from the page at path, or
// from fallback when path is empty. The record carries no validators.
func (b *Builder) BuildNotFound(path string, rctx *renderer.Context, fallback []byte) (Record, error) {
	if path == "" {
		return Record{MIME: HTMLMIME, Body: MemoryBody{Bytes: fallback}}, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Record{}, berrors.ErrFileRead(path, err)
	}

	if renderer.IsTemplate(path) {
		out, err := b.renderer.Render(data, rctx)
		if err != nil {
			return Record{}, fmt.Errorf("rendering %s: %w", path, err)
		}
		data = out
	}
	if b.minifier != nil {
		if small, err := b.minifier.HTML(data); err == nil {
			data = small
		}
	}

	return Record{MIME: HTMLMIME, Body: MemoryBody{Bytes: data}, SourcePath: path}, nil
}

// MIMEFor resolves the content type from the extension of path.
func MIMEFor(path string) string {
	if t := mime.TypeByExtension(strings.ToLower(filepath.Ext(path))); t != "" {
		return t
	}
	return DefaultMIME
}

func isHTML(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	return err == nil && mediaType == "text/html"
}

func checkHeaders(r Record) error {
	for _, h := range [][2]string{
		{"Content-Type", r.MIME},
		{"ETag", r.ETag},
		{"Last-Modified", r.LastModified},
	} {
		if !httpguts.ValidHeaderFieldValue(h[1]) {
			return berrors.ErrInvalidHeader(h[0], h[1]).WithPath(r.SourcePath)
		}
	}
	return nil
}
