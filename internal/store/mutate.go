package store

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/fenilsonani/diskindex/pkg/utils"
	"go.uber.org/zap"
)

// RemoveItem drops path from its parent's snapshot and from the global index
// after the path was deleted outside the scanner. It returns the bytes the
// entry accounted for (zero for restricted or unknown entries).
func (s *Store) RemoveItem(path string) (uint64, error) {
	if !s.isReady() {
		return 0, ErrNotInitialized
	}

	path = filepath.Clean(path)
	removed, err := s.removeFromSnapshot(path)
	if err != nil {
		return 0, err
	}

	// The deleted path's own snapshot (if it was a directory) is now stale
	own := s.snapshotPath(path)
	unlock := s.locks.Lock(own)
	if err := os.Remove(own); err != nil && !errors.Is(err, fs.ErrNotExist) {
		s.log.Debug("stale snapshot not removed", zap.String("path", path), zap.Error(err))
	}
	unlock()

	if err := s.updateGlobal(func(entries []FileEntry) ([]FileEntry, bool) {
		kept := entries[:0]
		for _, e := range entries {
			if e.Path == path || isBelow(e.Path, path) {
				continue
			}
			kept = append(kept, e)
		}
		return kept, len(kept) != len(entries)
	}); err != nil {
		return removed, err
	}

	return removed, nil
}

func (s *Store) removeFromSnapshot(path string) (uint64, error) {
	file := s.snapshotPath(filepath.Dir(path))
	unlock := s.locks.Lock(file)
	defer unlock()

	snap := s.readSnapshot(file)
	if snap == nil {
		return 0, nil
	}

	var removed uint64
	found := false
	keep := func(entries []FileEntry) []FileEntry {
		out := make([]FileEntry, 0, len(entries))
		for _, e := range entries {
			if e.Path == path {
				removed += e.Bytes
				found = true
				continue
			}
			out = append(out, e)
		}
		return out
	}

	next := &DirectorySnapshot{
		Accessible: keep(snap.Accessible),
		Restricted: keep(snap.Restricted),
	}
	if !found {
		return 0, nil
	}
	return removed, writeJSONAtomic(file, next)
}

// DecreaseEntrySize shrinks the entry for path inside parentDir's snapshot by
// bytes (never below zero), re-sorts and re-persists it.
func (s *Store) DecreaseEntrySize(parentDir, path string, bytes uint64) error {
	if !s.isReady() {
		return ErrNotInitialized
	}

	file := s.snapshotPath(parentDir)
	unlock := s.locks.Lock(file)
	defer unlock()

	snap := s.readSnapshot(file)
	if snap == nil {
		return nil
	}

	changed := false
	update := func(entries []FileEntry) {
		for i := range entries {
			if entries[i].Path != path {
				continue
			}
			if shrunk := subSaturating(entries[i].Bytes, bytes); shrunk != entries[i].Bytes {
				entries[i].Bytes = shrunk
				entries[i].FormattedSize = utils.FormatBytes(shrunk)
				changed = true
			}
		}
	}
	update(snap.Accessible)
	update(snap.Restricted)

	if !changed {
		return nil
	}
	SortBySize(snap.Accessible)
	return writeJSONAtomic(file, snap)
}

// ForgetPath removes a deleted path and subtracts its size from every
// ancestor entry up to and including root. path must lie strictly below
// root; nothing outside root is touched.
func (s *Store) ForgetPath(path, root string) (uint64, error) {
	path = filepath.Clean(path)
	root = filepath.Clean(root)

	if !isBelow(path, root) {
		return 0, fmt.Errorf("%s is not under %s", path, root)
	}

	removed, err := s.RemoveItem(path)
	if err != nil || removed == 0 {
		return removed, err
	}

	var ancestors []string
	for cur := filepath.Dir(path); cur == root || isBelow(cur, root); cur = filepath.Dir(cur) {
		ancestors = append(ancestors, cur)
		if err := s.DecreaseEntrySize(filepath.Dir(cur), cur, removed); err != nil {
			return removed, err
		}
		if cur == root {
			break
		}
	}

	err = s.updateGlobal(func(entries []FileEntry) ([]FileEntry, bool) {
		changed := false
		for i := range entries {
			for _, a := range ancestors {
				if entries[i].Path == a {
					entries[i].Bytes = subSaturating(entries[i].Bytes, removed)
					entries[i].FormattedSize = utils.FormatBytes(entries[i].Bytes)
					changed = true
				}
			}
		}
		if changed {
			SortBySize(entries)
		}
		return entries, changed
	})
	return removed, err
}

// isBelow reports whether path is a strict descendant of dir, comparing
// whole path segments. Both must be clean.
func isBelow(path, dir string) bool {
	prefix := dir
	if !strings.HasSuffix(prefix, string(filepath.Separator)) {
		prefix += string(filepath.Separator)
	}
	return path != dir && strings.HasPrefix(path, prefix)
}

// updateGlobal applies fn to the global index under its lock and persists
// the result when fn reports a change.
func (s *Store) updateGlobal(fn func([]FileEntry) ([]FileEntry, bool)) error {
	if !s.HasIndex() {
		return nil
	}

	unlock := s.locks.Lock(s.globalPath)
	defer unlock()

	next, changed := fn(s.GlobalIndex())
	if !changed {
		return nil
	}
	return writeJSONAtomic(s.globalPath, next)
}

// SearchGlobal returns global index entries whose name contains query,
// case-insensitively, largest first. A limit <= 0 returns every match.
func (s *Store) SearchGlobal(query string, limit int) []FileEntry {
	query = strings.ToLower(strings.TrimSpace(query))

	var out []FileEntry
	for _, e := range s.GlobalIndex() {
		if query != "" && !strings.Contains(strings.ToLower(e.Name), query) {
			continue
		}
		out = append(out, e)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}

func subSaturating(a, b uint64) uint64 {
	if b >= a {
		return 0
	}
	return a - b
}
