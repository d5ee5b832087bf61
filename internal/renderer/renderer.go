// Package renderer turns template sources into HTML.
//
// Templates use the Handlebars grammar: variables come from the
// configuration's template.variables section and partials are loaded from
// the files named in template.partials. Rendered HTML can optionally be
// passed through a minifier before it is cached.
package renderer

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/aymerick/raymond"

	berrors "github.com/conneroisu/binserve/internal/errors"
)

// TemplateExt is the file extension that marks a source as a template.
const TemplateExt = ".hbs"

// IsTemplate reports whether path names a template source.
func IsTemplate(path string) bool {
	return filepath.Ext(path) == TemplateExt
}

// Renderer renders a template source with a context.
type Renderer interface {
	Render(source []byte, ctx *Context) ([]byte, error)
}

// Context is the immutable input shared by every render of one build.
type Context struct {
	Variables map[string]interface{}
	// Partials maps partial names to their template source.
	Partials map[string]string
	// PartialFiles maps partial names to the files they were read from.
	PartialFiles map[string]string
}

// LoadContext reads every partial file and returns the render context.
func LoadContext(variables map[string]interface{}, partialFiles map[string]string) (*Context, error) {
	ctx := &Context{
		Variables:    make(map[string]interface{}, len(variables)),
		Partials:     make(map[string]string, len(partialFiles)),
		PartialFiles: make(map[string]string, len(partialFiles)),
	}

	for k, v := range variables {
		ctx.Variables[k] = v
	}

	names := make([]string, 0, len(partialFiles))
	for name := range partialFiles {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		path := partialFiles[name]
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, berrors.NewRenderError(berrors.ErrCodePartial,
				fmt.Sprintf("cannot load partial %q", name), err).WithPath(path)
		}
		ctx.Partials[name] = string(data)
		ctx.PartialFiles[name] = path
	}

	return ctx, nil
}

// Handlebars renders templates with raymond.
type Handlebars struct{}

// NewHandlebars creates a Handlebars renderer.
func NewHandlebars() *Handlebars {
	return &Handlebars{}
}

// Render parses source, registers the context's partials and executes it
// against the context's variables.
func (h *Handlebars) Render(source []byte, ctx *Context) ([]byte, error) {
	tpl, err := raymond.Parse(string(source))
	if err != nil {
		return nil, berrors.NewRenderError(berrors.ErrCodeTemplateParse, "template parse failed", err)
	}

	var data interface{}
	if ctx != nil {
		if len(ctx.Partials) > 0 {
			tpl.RegisterPartials(ctx.Partials)
		}
		data = ctx.Variables
	}

	out, err := tpl.Exec(data)
	if err != nil {
		return nil, berrors.NewRenderError(berrors.ErrCodeTemplateExec, "template execution failed", err)
	}

	return []byte(out), nil
}
