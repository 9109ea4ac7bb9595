// Package changelog records what changed in the term set between reloads.
// Documents are compared by the fingerprint of their raw bytes, keyed by
// file name.
package changelog

import (
	"context"
	"sort"
	"time"
)

// Diff lists the document file names added, updated and removed by a
// reload. Each list is sorted.
type Diff struct {
	Added   []string `json:"added"`
	Updated []string `json:"updated"`
	Removed []string `json:"removed"`
}

// Empty reports whether nothing changed.
func (d Diff) Empty() bool {
	return len(d.Added) == 0 && len(d.Updated) == 0 && len(d.Removed) == 0
}

// Compute diffs two file->fingerprint snapshots.
func Compute(prev, next map[string]string) Diff {
	d := Diff{Added: []string{}, Updated: []string{}, Removed: []string{}}
	for file, hash := range next {
		old, ok := prev[file]
		switch {
		case !ok:
			d.Added = append(d.Added, file)
		case old != hash:
			d.Updated = append(d.Updated, file)
		}
	}
	for file := range prev {
		if _, ok := next[file]; !ok {
			d.Removed = append(d.Removed, file)
		}
	}
	sort.Strings(d.Added)
	sort.Strings(d.Updated)
	sort.Strings(d.Removed)
	return d
}

// Entry is one recorded reload.
type Entry struct {
	Generation uint64    `json:"generation"`
	At         time.Time `json:"at"`
	Terms      int       `json:"terms"`
	Diff       Diff      `json:"diff"`
}

// Store persists reload entries.
type Store interface {
	Record(ctx context.Context, e Entry) error
	// Latest returns the most recent entries, newest first.
	Latest(ctx context.Context, limit int) ([]Entry, error)
	Close() error
}

// Nop discards entries.
type Nop struct{}

func (Nop) Record(context.Context, Entry) error          { return nil }
func (Nop) Latest(context.Context, int) ([]Entry, error) { return []Entry{}, nil }
func (Nop) Close() error                                 { return nil }
