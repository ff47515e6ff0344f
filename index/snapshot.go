package index

import (
	"path/filepath"
	"slices"
	"strings"
	"time"
)

// Kind selects files, directories, or both.
type Kind int

const (
	Any Kind = iota
	File
	Dir
)

func (k Kind) String() string {
	switch k {
	case File:
		return "file"
	case Dir:
		return "directory"
	default:
		return "any"
	}
}

// Entry is one indexed filesystem object.
type Entry struct {
	Kind     Kind
	Path     string
	Name     string // file name without extension, or directory name
	Ext      string // lower-cased, with leading dot; empty for directories
	Parent   string
	Size     int64
	Modified time.Time
}

// FullName returns the base name as it appears on disk.
func (e Entry) FullName() string {
	return e.Name + e.Ext
}

// Snapshot is an immutable in-memory view of the index.
// A rebuild produces a new Snapshot; existing ones are never modified.
type Snapshot struct {
	files []Entry
	dirs  []Entry

	// lower-cased name (and, for files, name with extension) -> positions
	fileNames map[string][]int
	dirNames  map[string][]int
}

// NewSnapshot copies the given entries, sorts each kind by path and builds
// the name lookup tables.
func NewSnapshot(files, dirs []Entry) *Snapshot {
	s := &Snapshot{
		files:     slices.Clone(files),
		dirs:      slices.Clone(dirs),
		fileNames: make(map[string][]int),
		dirNames:  make(map[string][]int),
	}
	byPath := func(a, b Entry) int { return strings.Compare(a.Path, b.Path) }
	slices.SortStableFunc(s.files, byPath)
	slices.SortStableFunc(s.dirs, byPath)

	for i := range s.files {
		s.files[i].Kind = File
		name := strings.ToLower(s.files[i].Name)
		full := strings.ToLower(s.files[i].FullName())
		s.fileNames[name] = append(s.fileNames[name], i)
		if full != name {
			s.fileNames[full] = append(s.fileNames[full], i)
		}
	}
	for i := range s.dirs {
		s.dirs[i].Kind = Dir
		name := strings.ToLower(s.dirs[i].Name)
		s.dirNames[name] = append(s.dirNames[name], i)
	}
	return s
}

// LookupByName returns every entry whose name equals name, ignoring case.
// Files also match on their name with extension. With kind Any, files come
// before directories.
func (s *Snapshot) LookupByName(name string, kind Kind) []Entry {
	if s == nil {
		return nil
	}
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" {
		return nil
	}
	var out []Entry
	if kind == Any || kind == File {
		for _, i := range s.fileNames[key] {
			out = append(out, s.files[i])
		}
	}
	if kind == Any || kind == Dir {
		for _, i := range s.dirNames[key] {
			out = append(out, s.dirs[i])
		}
	}
	return out
}

// AllNames returns the distinct lower-cased names in first-encounter order.
// For files both the bare name and the name with extension are included.
func (s *Snapshot) AllNames(kind Kind) []string {
	if s == nil {
		return nil
	}
	seen := make(map[string]struct{})
	var names []string
	add := func(n string) {
		n = strings.ToLower(n)
		if n == "" {
			return
		}
		if _, ok := seen[n]; ok {
			return
		}
		seen[n] = struct{}{}
		names = append(names, n)
	}
	if kind == Any || kind == File {
		for _, e := range s.files {
			add(e.Name)
			add(e.FullName())
		}
	}
	if kind == Any || kind == Dir {
		for _, e := range s.dirs {
			add(e.Name)
		}
	}
	return names
}

// Entries returns a copy of the entries of the given kind.
func (s *Snapshot) Entries(kind Kind) []Entry {
	if s == nil {
		return nil
	}
	switch kind {
	case File:
		return slices.Clone(s.files)
	case Dir:
		return slices.Clone(s.dirs)
	default:
		out := make([]Entry, 0, len(s.files)+len(s.dirs))
		out = append(out, s.files...)
		return append(out, s.dirs...)
	}
}

// Len returns the number of entries of the given kind.
func (s *Snapshot) Len(kind Kind) int {
	if s == nil {
		return 0
	}
	switch kind {
	case File:
		return len(s.files)
	case Dir:
		return len(s.dirs)
	default:
		return len(s.files) + len(s.dirs)
	}
}

// splitExt splits a base name into name and lower-cased extension.
// Leading dots do not start an extension, so ".bashrc" has none.
func splitExt(base string) (string, string) {
	i := strings.LastIndexByte(base, '.')
	if i <= 0 || strings.TrimLeft(base[:i], ".") == "" {
		return base, ""
	}
	return base[:i], strings.ToLower(base[i:])
}

func parentOf(path string) string {
	return filepath.Dir(path)
}
