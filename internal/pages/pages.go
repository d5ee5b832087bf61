// Package pages holds the HTML pages binserve renders itself: the default
// not-found page and the directory listing.
package pages

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"time"

	"github.com/a-h/templ"
)

const style = `body{font-family:system-ui,sans-serif;margin:3rem auto;max-width:48rem;color:#222}` +
	`h1{font-weight:600}table{border-collapse:collapse;width:100%}` +
	`td{padding:.25rem .75rem .25rem 0}a{color:#0645ad;text-decoration:none}` +
	`.muted{color:#777}`

// Entry is one row of a directory listing.
type Entry struct {
	Name    string
	IsDir   bool
	Size    int64
	ModTime time.Time
}

func layout(title string, body templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if _, err := fmt.Fprintf(w,
			`<!DOCTYPE html><html lang="en"><head><meta charset="utf-8">`+
				`<meta name="viewport" content="width=device-width, initial-scale=1">`+
				`<title>%s</title><style>%s</style></head><body>`,
			templ.EscapeString(title), style); err != nil {
			return err
		}
		if err := body.Render(ctx, w); err != nil {
			return err
		}
		_, err := io.WriteString(w, `</body></html>`)
		return err
	})
}

// NotFound is the page served for unknown routes when no error page is
// configured.
func NotFound(serverName string) templ.Component {
	body := templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		_, err := fmt.Fprintf(w,
			`<h1>404 Not Found</h1><p>The requested resource could not be found.</p>`+
				`<hr><p class="muted">%s</p>`,
			templ.EscapeString(serverName))
		return err
	})
	return layout("404 Not Found", body)
}

// Listing renders the contents of the directory served at urlPath.
func Listing(urlPath string, entries []Entry) templ.Component {
	title := "Index of " + urlPath
	body := templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		if _, err := fmt.Fprintf(w, `<h1>%s</h1><table>`, templ.EscapeString(title)); err != nil {
			return err
		}
		if urlPath != "/" {
			parent := path.Dir(path.Clean(urlPath)) + "/"
			if parent == "//" {
				parent = "/"
			}
			if _, err := fmt.Fprintf(w, `<tr><td><a href="%s">../</a></td><td></td><td></td></tr>`,
				templ.EscapeString(string(templ.URL(parent)))); err != nil {
				return err
			}
		}
		for _, e := range entries {
			name := e.Name
			size := fmt.Sprintf("%d", e.Size)
			if e.IsDir {
				name += "/"
				size = "-"
			}
			href := templ.URL(path.Join(urlPath, name) + trailing(e.IsDir))
			if _, err := fmt.Fprintf(w,
				`<tr><td><a href="%s">%s</a></td><td class="muted">%s</td><td class="muted">%s</td></tr>`,
				templ.EscapeString(string(href)), templ.EscapeString(name), size,
				e.ModTime.UTC().Format("2006-01-02 15:04")); err != nil {
				return err
			}
		}
		_, err := io.WriteString(w, `</table>`)
		return err
	})
	return layout(title, body)
}

func trailing(dir bool) string {
	if dir {
		return "/"
	}
	return ""
}

// Render renders c into a byte slice.
func Render(ctx context.Context, c templ.Component) ([]byte, error) {
	var buf bytes.Buffer
	if err := c.Render(ctx, &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
