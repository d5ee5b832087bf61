// Package content builds the immutable records that back every route: the
// body (kept in memory or left on disk), its MIME type and the HTTP
// validators derived from the source file's metadata.
package content

// MaxMemorySize is the size ceiling for memory-resident bodies (100 MiB).
// Files of this size or larger are always served from disk.
const MaxMemorySize int64 = 104_857_600

// DefaultMIME is used when the extension does not resolve to a type.
const DefaultMIME = "application/octet-stream"

// Kind tells where a record's body lives.
type Kind int

const (
	KindNone Kind = iota
	KindMemory
	KindDisk
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindMemory:
		return "memory"
	case KindDisk:
		return "disk"
	default:
		return "none"
	}
}

// Body is the storage variant of a record: MemoryBody or DiskBody.
type Body interface {
	Kind() Kind
	isBody()
}

// MemoryBody holds the bytes served for the route.
type MemoryBody struct {
	Bytes []byte
}

// Kind implements Body.
func (MemoryBody) Kind() Kind { return KindMemory }
func (MemoryBody) isBody()    {}

// DiskBody points at the file served for the route.
type DiskBody struct {
	Path string
}

// Kind implements Body.
func (DiskBody) Kind() Kind { return KindDisk }
func (DiskBody) isBody()    {}

// Record is a snapshot of one servable resource. Records are never mutated
// after they are built; a change on disk produces a new Record.
type Record struct {
	MIME string
	// Body is nil only for the symlink sentinel.
	Body Body
	// SourcePath is the file the record was built from. Empty for the
	// built-in not-found page.
	SourcePath   string
	ETag         string
	LastModified string
	// Template marks records that went through a rendering pass. Their
	// Rendered output is kept whatever the body kind.
	Template bool
	Rendered []byte
	Size     int64
}

// Kind returns the storage kind of the record.
func (r Record) Kind() Kind {
	if r.Body == nil {
		return KindNone
	}
	return r.Body.Kind()
}

// IsTemplate reports whether the record went through a rendering pass.
func (r Record) IsTemplate() bool {
	return r.Template
}

// IsSentinel reports whether the record is the empty placeholder returned
// for symlinks that must not be followed.
func (r Record) IsSentinel() bool {
	return r.Body == nil
}

// Bytes returns the in-memory body, or nil for disk-resident records.
func (r Record) Bytes() []byte {
	if mb, ok := r.Body.(MemoryBody); ok {
		return mb.Bytes
	}
	return nil
}

// DiskPath returns the file to stream for disk-resident records.
func (r Record) DiskPath() (string, bool) {
	if db, ok := r.Body.(DiskBody); ok {
		return db.Path, true
	}
	return "", false
}
