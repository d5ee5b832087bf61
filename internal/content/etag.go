package content

import (
	"fmt"
	"io/fs"
	"net/http"
)

// ETagFor derives a weak entity tag from file metadata. The same size,
// modification time and file identity always produce the same tag.
func ETagFor(info fs.FileInfo) string {
	mod := info.ModTime()
	tag := fmt.Sprintf("%d.%d-%d", mod.Unix(), mod.Nanosecond(), info.Size())
	if id, ok := fileID(info); ok {
		tag = fmt.Sprintf("%s-%x", tag, id)
	}
	return `W/"` + tag + `"`
}

// LastModifiedFor formats the modification time as an HTTP-date.
func LastModifiedFor(info fs.FileInfo) string {
	return info.ModTime().UTC().Format(http.TimeFormat)
}
