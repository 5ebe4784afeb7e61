package manifest

// Location identifies a version-controlled source: a VCS kind, a URL,
// and a branch, tag, or ref. Locations are immutable once resolved.
type Location struct {
	Type    string `yaml:"type"`
	URL     string `yaml:"url"`
	Version string `yaml:"version"`
}

// Release describes the release-control repository declared for a
// manifest entry: where released packages live, the version template
// used for release tags, and the ordered list of package names the
// release is declared to contain.
type Release struct {
	URL      string
	Version  string
	Packages []string
}

// Entry is one repository in the manifest. Any of the location blocks
// may be absent.
type Entry struct {
	Name    string
	Source  *Location
	Doc     *Location
	Release *Release
}

// CloneLocation returns the location used for the primary clone pass:
// source when present, doc otherwise, nil when the entry is not
// clone-able.
func (e *Entry) CloneLocation() *Location {
	if e.Source != nil {
		return e.Source
	}
	return e.Doc
}

// RepositorySet is an ordered mapping from repository name to Entry.
// Insertion order is preserved through merge and truncation so that
// processing order is deterministic.
type RepositorySet struct {
	names   []string
	entries map[string]*Entry
}

// NewRepositorySet returns an empty RepositorySet.
func NewRepositorySet() *RepositorySet {
	return &RepositorySet{entries: make(map[string]*Entry)}
}

// Add inserts or replaces the entry under its name.
func (s *RepositorySet) Add(e *Entry) {
	if _, ok := s.entries[e.Name]; !ok {
		s.names = append(s.names, e.Name)
	}
	s.entries[e.Name] = e
}

// Get returns the entry for name, or nil when absent.
func (s *RepositorySet) Get(name string) *Entry {
	return s.entries[name]
}

// Has reports whether name is present.
func (s *RepositorySet) Has(name string) bool {
	_, ok := s.entries[name]
	return ok
}

// Names returns the repository names in insertion order.
func (s *RepositorySet) Names() []string {
	out := make([]string, len(s.names))
	copy(out, s.names)
	return out
}

// Len returns the number of entries.
func (s *RepositorySet) Len() int {
	return len(s.names)
}

// repositorySetFromValue derives typed entries from the raw manifest
// tree, preserving key order.
func repositorySetFromValue(v *Value) (*RepositorySet, error) {
	m, err := v.Mapping()
	if err != nil {
		return nil, err
	}
	set := NewRepositorySet()
	for _, name := range m.Keys() {
		ev, _ := m.Get(name)
		set.Add(entryFromValue(name, ev))
	}
	return set, nil
}

// entryFromValue decodes one repository entry. Malformed or missing
// blocks yield an entry without the corresponding location, not an
// error: such entries are simply not clone-able.
func entryFromValue(name string, v *Value) *Entry {
	entry := &Entry{Name: name}
	if v == nil || v.Kind() != KindMapping {
		return entry
	}
	if sv, ok := v.Get("source"); ok {
		entry.Source = locationFromValue(sv)
	}
	if dv, ok := v.Get("doc"); ok {
		entry.Doc = locationFromValue(dv)
	}
	if rv, ok := v.Get("release"); ok {
		entry.Release = releaseFromValue(rv)
	}
	return entry
}

func locationFromValue(v *Value) *Location {
	if v == nil || v.Kind() != KindMapping {
		return nil
	}
	return &Location{
		Type:    v.StringAt("type"),
		URL:     v.StringAt("url"),
		Version: v.StringAt("version"),
	}
}

func releaseFromValue(v *Value) *Release {
	if v == nil || v.Kind() != KindMapping {
		return nil
	}
	release := &Release{
		URL:     v.StringAt("url"),
		Version: v.StringAt("version"),
	}
	if pv, ok := v.Get("packages"); ok && pv.Kind() == KindSequence {
		for _, elem := range pv.Sequence() {
			if elem.Kind() != KindScalar || elem.Scalar() == nil {
				continue
			}
			release.Packages = append(release.Packages, elem.String())
		}
	}
	return release
}
