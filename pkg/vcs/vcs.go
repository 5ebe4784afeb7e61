// Package vcs provides the batch clone/update collaborator: given an
// ordered set of named repository locations and a target directory, it
// clones or refreshes a working copy per name using go-git. The local
// copies are non-authoritative; in force mode local changes are
// discarded to match the requested ref.
package vcs

import (
	"context"

	"github.com/rkent/distroclone/pkg/manifest"
)

// CloneSet is an ordered mapping from working-copy name to location.
// Iteration follows insertion order; duplicate names are ignored so a
// package declared by several manifest entries is requested once.
type CloneSet struct {
	names     []string
	locations map[string]manifest.Location
}

// NewCloneSet returns an empty CloneSet.
func NewCloneSet() *CloneSet {
	return &CloneSet{locations: make(map[string]manifest.Location)}
}

// Add registers a location under name. It reports false when the name
// was already present, in which case the existing location is kept.
func (s *CloneSet) Add(name string, loc manifest.Location) bool {
	if _, ok := s.locations[name]; ok {
		return false
	}
	s.names = append(s.names, name)
	s.locations[name] = loc
	return true
}

// Get returns the location registered under name.
func (s *CloneSet) Get(name string) (manifest.Location, bool) {
	loc, ok := s.locations[name]
	return loc, ok
}

// Names returns the registered names in insertion order.
func (s *CloneSet) Names() []string {
	out := make([]string, len(s.names))
	copy(out, s.names)
	return out
}

// Len returns the number of registered names.
func (s *CloneSet) Len() int {
	return len(s.names)
}

// Importer is the batch clone/update collaborator. Import materializes
// each entry of the set as dir/<name>; Pull refreshes every working copy
// already present under dir to its branch head.
type Importer interface {
	Import(ctx context.Context, dir string, set *CloneSet, force bool) error
	Pull(ctx context.Context, dir string) error
}
