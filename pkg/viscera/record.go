package viscera

import (
	"reflect"
	"sort"
)

// Record tracks changes to an object's wire data. The original data and
// the staged changes are kept apart so that a failed or cancelled save
// leaves the object exactly as the server last described it; nothing is
// folded into the original until Commit.
type Record struct {
	orig    map[string]any
	changed map[string]any
}

// NewRecord builds a record over the given wire data. The map is copied.
func NewRecord(data map[string]any) *Record {
	orig := make(map[string]any, len(data))
	for key, value := range data {
		orig[key] = value
	}
	return &Record{orig: orig, changed: make(map[string]any)}
}

// Get returns the effective value for a key: a staged change when one
// exists, the original otherwise.
func (r *Record) Get(key string) (any, bool) {
	if value, ok := r.changed[key]; ok {
		return value, true
	}
	value, ok := r.orig[key]
	return value, ok
}

// Has reports whether the key has an effective value.
func (r *Record) Has(key string) bool {
	_, ok := r.Get(key)
	return ok
}

// Original returns the key's value as last committed, ignoring staged
// changes.
func (r *Record) Original(key string) (any, bool) {
	value, ok := r.orig[key]
	return value, ok
}

// Set stages a change. Setting a key back to its original value removes
// it from the diff entirely.
func (r *Record) Set(key string, value any) {
	if orig, ok := r.orig[key]; ok && reflect.DeepEqual(orig, value) {
		delete(r.changed, key)
		return
	}
	r.changed[key] = value
}

// Dirty reports whether any changes are staged.
func (r *Record) Dirty() bool {
	return len(r.changed) > 0
}

// Diff returns a copy of the staged changes.
func (r *Record) Diff() map[string]any {
	diff := make(map[string]any, len(r.changed))
	for key, value := range r.changed {
		diff[key] = value
	}
	return diff
}

// Keys returns the sorted keys with effective values.
func (r *Record) Keys() []string {
	seen := make(map[string]struct{}, len(r.orig)+len(r.changed))
	for key := range r.orig {
		seen[key] = struct{}{}
	}
	for key := range r.changed {
		seen[key] = struct{}{}
	}
	keys := make([]string, 0, len(seen))
	for key := range seen {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// Snapshot returns the effective data: originals overlaid with staged
// changes.
func (r *Record) Snapshot() map[string]any {
	merged := make(map[string]any, len(r.orig)+len(r.changed))
	for key, value := range r.orig {
		merged[key] = value
	}
	for key, value := range r.changed {
		merged[key] = value
	}
	return merged
}

// Commit replaces the original data wholesale and clears the diff. Called
// only after the server has acknowledged a change.
func (r *Record) Commit(data map[string]any) {
	orig := make(map[string]any, len(data))
	for key, value := range data {
		orig[key] = value
	}
	r.orig = orig
	r.changed = make(map[string]any)
}

// Revert discards all staged changes.
func (r *Record) Revert() {
	r.changed = make(map[string]any)
}
