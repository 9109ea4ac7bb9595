package term

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"
)

// Store is an immutable snapshot of the decoded glossary, ordered by load
// order (sorted file name).
type Store struct {
	terms []*Term
	byID  map[string]*Term
}

// NewStore builds a Store from terms in load order. A term whose id is
// already taken is rejected with a LoadError; the first one wins.
func NewStore(terms []*Term) (*Store, []LoadError) {
	s := &Store{
		terms: make([]*Term, 0, len(terms)),
		byID:  make(map[string]*Term, len(terms)),
	}
	var errs []LoadError
	for _, t := range terms {
		if prev, dup := s.byID[t.ID]; dup {
			errs = append(errs, LoadError{
				File:   t.File,
				Reason: fmt.Sprintf("duplicate id %q (already defined by %s)", t.ID, prev.File),
			})
			continue
		}
		s.byID[t.ID] = t
		s.terms = append(s.terms, t)
	}
	return s, errs
}

// Terms returns the terms in load order. The slice must not be modified.
func (s *Store) Terms() []*Term {
	return s.terms
}

// Get looks a term up by id.
func (s *Store) Get(id string) (*Term, bool) {
	t, ok := s.byID[id]
	return t, ok
}

// Len is the number of accepted terms.
func (s *Store) Len() int {
	return len(s.terms)
}

// Fingerprints maps each accepted document's file name to its content hash.
func (s *Store) Fingerprints() map[string]string {
	out := make(map[string]string, len(s.terms))
	for _, t := range s.terms {
		out[t.File] = t.Hash
	}
	return out
}

// Load reads every term document in dir. Malformed documents are skipped
// and reported; only I/O failures on the directory itself or context
// cancellation return an error. A missing directory yields an empty store.
func Load(ctx context.Context, dir string) (*Store, []LoadError, error) {
	logger := slog.Default().With("component", "term-loader", "dir", dir)

	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			logger.Warn("terms directory does not exist, starting empty")
			s, _ := NewStore(nil)
			return s, nil, nil
		}
		return nil, nil, fmt.Errorf("reading terms directory: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ".") || !IsDocument(name) {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)

	type result struct {
		term *Term
		err  *LoadError
	}
	results := make([]result, len(names))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, name := range names {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			raw, err := os.ReadFile(filepath.Join(dir, name))
			if err != nil {
				results[i] = result{err: &LoadError{File: name, Reason: err.Error()}}
				return nil
			}
			t, err := Decode(name, raw)
			if err != nil {
				results[i] = result{err: &LoadError{File: name, Reason: err.Error()}}
				return nil
			}
			results[i] = result{term: t}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, fmt.Errorf("loading terms: %w", err)
	}

	terms := make([]*Term, 0, len(results))
	var loadErrs []LoadError
	for _, r := range results {
		if r.err != nil {
			loadErrs = append(loadErrs, *r.err)
			continue
		}
		terms = append(terms, r.term)
	}
	store, dupErrs := NewStore(terms)
	loadErrs = append(loadErrs, dupErrs...)

	for _, le := range loadErrs {
		logger.Warn("term document skipped", "file", le.File, "reason", le.Reason)
	}
	logger.Info("terms loaded", "accepted", store.Len(), "skipped", len(loadErrs))
	return store, loadErrs, nil
}
