// Package dispatch answers requests from the route table.
package dispatch

import (
	"net/http"
	"strconv"

	"github.com/conneroisu/binserve/internal/conditional"
	"github.com/conneroisu/binserve/internal/content"
	"github.com/conneroisu/binserve/internal/routes"
)

// FileServer streams a file from disk, computing its own validators and
// handling ranges.
type FileServer interface {
	ServeFile(w http.ResponseWriter, r *http.Request, path string)
}

// Dispatcher looks up the request path in the route table and writes the
// matching record. It never writes to the table.
type Dispatcher struct {
	table *routes.Table
	files FileServer
}

// New creates a Dispatcher reading from table and delegating plain
// disk-resident files to files.
func New(table *routes.Table, files FileServer) *Dispatcher {
	return &Dispatcher{table: table, files: files}
}

// ServeHTTP implements http.Handler.
func (d *Dispatcher) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}

	// Normalization drops a trailing slash, so "/docs/" resolves to "/docs".
	rec, ok := d.table.Get(routes.NormalizeKey(r.URL.Path))
	if !ok || rec.IsSentinel() {
		d.ServeNotFound(w, r)
		return
	}

	switch body := rec.Body.(type) {
	case content.MemoryBody:
		d.respond(w, r, rec, body.Bytes)
	case content.DiskBody:
		if rec.IsTemplate() {
			d.respond(w, r, rec, rec.Rendered)
			return
		}
		d.files.ServeFile(w, r, body.Path)
	}
}

// respond writes a 304 when the client's copy is current, or the record
// with its validators otherwise.
func (d *Dispatcher) respond(w http.ResponseWriter, r *http.Request, rec content.Record, data []byte) {
	h := w.Header()
	if rec.ETag != "" {
		h.Set("ETag", rec.ETag)
	}
	if rec.LastModified != "" {
		h.Set("Last-Modified", rec.LastModified)
	}

	if conditional.IsClientCached(conditional.FromHeader(r.Header), rec.ETag, rec.LastModified) {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	h.Set("Content-Type", rec.MIME)
	h.Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	if r.Method != http.MethodHead {
		_, _ = w.Write(data)
	}
}

// ServeNotFound writes the reserved not-found record without validators.
func (d *Dispatcher) ServeNotFound(w http.ResponseWriter, r *http.Request) {
	rec, ok := d.table.NotFound()
	if !ok {
		http.NotFound(w, r)
		return
	}

	data := rec.Bytes()
	h := w.Header()
	h.Set("Content-Type", content.HTMLMIME)
	h.Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusNotFound)
	if r.Method != http.MethodHead {
		_, _ = w.Write(data)
	}
}
