// Package routes holds the route table: the mapping from normalized URL
// path to content record that the dispatcher reads and the builder and
// reloader write.
package routes

import (
	"sort"
	"sync"

	"github.com/conneroisu/binserve/internal/content"
)

// NotFoundKey is the reserved key of the not-found record. It can never
// collide with a request path because normalized paths start with "/".
const NotFoundKey = "{{404}}"

// Table is a concurrent map from route key to record. Records are values
// that are replaced whole; a reader never sees a partially built record.
type Table struct {
	entries map[string]content.Record
	mutex   sync.RWMutex
}

// NewTable creates an empty table.
func NewTable() *Table {
	return &Table{
		entries: make(map[string]content.Record),
	}
}

// Get returns the record stored under key.
func (t *Table) Get(key string) (content.Record, bool) {
	t.mutex.RLock()
	defer t.mutex.RUnlock()

	rec, ok := t.entries[key]
	return rec, ok
}

// NotFound returns the reserved not-found record.
func (t *Table) NotFound() (content.Record, bool) {
	return t.Get(NotFoundKey)
}

// Set installs rec under key, replacing any previous record.
func (t *Table) Set(key string, rec content.Record) {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	t.entries[key] = rec
}

// Delete removes key from the table.
func (t *Table) Delete(key string) {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	delete(t.entries, key)
}

// Replace installs every record in records and removes keys that are not
// in records. The not-found record is only replaced, never removed.
func (t *Table) Replace(records map[string]content.Record) (removed []string) {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	for key, rec := range records {
		t.entries[key] = rec
	}

	for key := range t.entries {
		if key == NotFoundKey {
			continue
		}
		if _, ok := records[key]; !ok {
			delete(t.entries, key)
			removed = append(removed, key)
		}
	}
	sort.Strings(removed)

	return removed
}

// Len returns the number of entries, the not-found record included.
func (t *Table) Len() int {
	t.mutex.RLock()
	defer t.mutex.RUnlock()

	return len(t.entries)
}

// Keys returns every key in sorted order.
func (t *Table) Keys() []string {
	t.mutex.RLock()
	keys := make([]string, 0, len(t.entries))
	for key := range t.entries {
		keys = append(keys, key)
	}
	t.mutex.RUnlock()

	sort.Strings(keys)
	return keys
}

// Snapshot returns a copy of the table.
func (t *Table) Snapshot() map[string]content.Record {
	t.mutex.RLock()
	defer t.mutex.RUnlock()

	out := make(map[string]content.Record, len(t.entries))
	for key, rec := range t.entries {
		out[key] = rec
	}
	return out
}
