package renderer

import (
	"github.com/tdewolff/minify/v2"
	"github.com/tdewolff/minify/v2/css"
	"github.com/tdewolff/minify/v2/html"
	"github.com/tdewolff/minify/v2/js"
)

// Minifier shrinks HTML documents, including inline styles and scripts.
type Minifier struct {
	m *minify.M
}

// NewMinifier creates a Minifier for text/html.
func NewMinifier() *Minifier {
	m := minify.New()
	m.AddFunc("text/html", html.Minify)
	m.AddFunc("text/css", css.Minify)
	m.AddFunc("application/javascript", js.Minify)
	m.AddFunc("text/javascript", js.Minify)

	return &Minifier{m: m}
}

// HTML returns the minified document. On failure the input is returned
// unchanged together with the error.
func (mf *Minifier) HTML(b []byte) ([]byte, error) {
	out, err := mf.m.Bytes("text/html", b)
	if err != nil {
		return b, err
	}
	return out, nil
}
