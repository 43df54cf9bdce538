package store

import (
	"cmp"
	"slices"
)

// RestrictedLabel is the formatted size shown for inaccessible entries
const RestrictedLabel = "Access Denied"

// FileEntry is one file or folder with its on-disk size
type FileEntry struct {
	Path          string `json:"path" yaml:"path"`
	Name          string `json:"name" yaml:"name"`
	Bytes         uint64 `json:"bytes" yaml:"bytes"`
	FormattedSize string `json:"formattedSize" yaml:"formatted_size"`
}

// DirectorySnapshot holds the largest children of one directory.
// Accessible is sorted by size, largest first; Restricted keeps insertion order.
type DirectorySnapshot struct {
	Accessible []FileEntry `json:"accessible"`
	Restricted []FileEntry `json:"restricted"`
}

// Metadata is persisted once per cache generation
type Metadata struct {
	Version int `json:"version"`
}

// SortBySize orders entries largest first. Ties keep their relative order.
func SortBySize(entries []FileEntry) {
	slices.SortStableFunc(entries, func(a, b FileEntry) int {
		return cmp.Compare(b.Bytes, a.Bytes)
	})
}

func emptySnapshot() *DirectorySnapshot {
	return &DirectorySnapshot{Accessible: []FileEntry{}, Restricted: []FileEntry{}}
}

// normalize replaces nil lists so the JSON always carries arrays
func (s *DirectorySnapshot) normalize() {
	if s.Accessible == nil {
		s.Accessible = []FileEntry{}
	}
	if s.Restricted == nil {
		s.Restricted = []FileEntry{}
	}
}
