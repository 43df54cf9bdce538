package scanner

import (
	"container/heap"
	"path/filepath"

	"github.com/fenilsonani/diskindex/internal/store"
	"github.com/fenilsonani/diskindex/pkg/utils"
)

// sizedName is the buffered form of an entry; the parent is the map key
type sizedName struct {
	name  string
	bytes uint64
}

// ScanState is the in-memory side of one scan. It is owned by a single
// goroutine and never persisted as-is.
type ScanState struct {
	buffer     map[string][]sizedName
	items      int
	restricted map[string][]store.FileEntry
	top        *topN
}

// NewScanState creates an empty state whose global list keeps the
// globalCap largest entries.
func NewScanState(globalCap int) *ScanState {
	return &ScanState{
		buffer:     make(map[string][]sizedName),
		restricted: make(map[string][]store.FileEntry),
		top:        newTopN(globalCap),
	}
}

// Ingest buffers e under its parent directory and offers it to the global
// list.
func (s *ScanState) Ingest(e Entry) {
	parent := filepath.Dir(e.Path)
	item := sizedName{name: filepath.Base(e.Path), bytes: e.Bytes()}

	s.buffer[parent] = append(s.buffer[parent], item)
	s.items++
	s.top.offer(e.Path, item)
}

// Restrict records r in its parent's restricted bucket
func (s *ScanState) Restrict(r Restriction) {
	s.restricted[r.Parent] = append(s.restricted[r.Parent], r.Entry)
}

// BufferedDirs is the number of directories with buffered entries
func (s *ScanState) BufferedDirs() int { return len(s.buffer) }

// BufferedItems is the number of entries buffered since the last flush
func (s *ScanState) BufferedItems() int { return s.items }

// Top returns the global candidates largest first
func (s *ScanState) Top() []store.FileEntry {
	return s.top.sorted()
}

// topN keeps the n largest entries seen so far. The root of the heap is the
// smallest kept entry, so admission is a single comparison.
type topN struct {
	limit int
	h     entryHeap
}

func newTopN(limit int) *topN {
	return &topN{limit: limit}
}

func (t *topN) offer(path string, item sizedName) {
	if t.limit <= 0 {
		return
	}
	if len(t.h) < t.limit {
		heap.Push(&t.h, candidate{path: path, sizedName: item})
		return
	}
	if item.bytes <= t.h[0].bytes {
		return
	}
	t.h[0] = candidate{path: path, sizedName: item}
	heap.Fix(&t.h, 0)
}

func (t *topN) sorted() []store.FileEntry {
	out := make([]store.FileEntry, len(t.h))
	for i, c := range t.h {
		out[i] = store.FileEntry{
			Path:          c.path,
			Name:          c.name,
			Bytes:         c.bytes,
			FormattedSize: utils.FormatBytes(c.bytes),
		}
	}
	store.SortBySize(out)
	return out
}

type candidate struct {
	path string
	sizedName
}

type entryHeap []candidate

func (h entryHeap) Len() int           { return len(h) }
func (h entryHeap) Less(i, j int) bool { return h[i].bytes < h[j].bytes }
func (h entryHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }

func (h *entryHeap) Push(x any) { *h = append(*h, x.(candidate)) }

func (h *entryHeap) Pop() any {
	old := *h
	n := len(old)
	c := old[n-1]
	*h = old[:n-1]
	return c
}
