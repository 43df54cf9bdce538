package scanner

import (
	"cmp"
	"fmt"
	"path/filepath"
	"slices"
	"time"

	"github.com/fenilsonani/diskindex/internal/config"
	"github.com/fenilsonani/diskindex/internal/metrics"
	"github.com/fenilsonani/diskindex/internal/store"
	"github.com/fenilsonani/diskindex/pkg/utils"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// SnapshotWriter is the part of the store a flush needs
type SnapshotWriter interface {
	MergeWrite(dir string, incoming store.DirectorySnapshot) error
}

// Flusher moves buffered scan state into the snapshot store once enough has
// accumulated, and unconditionally at the end of a scan.
type Flusher struct {
	writer        SnapshotWriter
	dirThreshold  int
	itemThreshold int
	perDir        int

	log     *zap.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

// NewFlusher creates a flusher with the default thresholds
func NewFlusher(w SnapshotWriter) *Flusher {
	return &Flusher{
		writer:        w,
		dirThreshold:  config.DefaultFlushDirs,
		itemThreshold: config.DefaultFlushItems,
		perDir:        config.DefaultTopFilesPerDir,
		log:           zap.NewNop(),
		now:           time.Now,
	}
}

type pendingWrite struct {
	dir      string
	snapshot store.DirectorySnapshot
}

// MaybeFlush writes state through when a threshold is reached or force is
// set. With force, directories that only collected restricted entries are
// written too. The buffer is only released once every write succeeded, so a
// failed batch is retried by the next flush.
func (f *Flusher) MaybeFlush(state *ScanState, force bool) (bool, error) {
	if !force && state.BufferedDirs() < f.dirThreshold && state.BufferedItems() < f.itemThreshold {
		return false, nil
	}

	batch := f.collect(state, force)
	if len(batch) == 0 {
		return false, nil
	}

	start := f.now()
	var g errgroup.Group
	for _, w := range batch {
		g.Go(func() error {
			if err := f.writer.MergeWrite(w.dir, w.snapshot); err != nil {
				return fmt.Errorf("failed to write snapshot for %s: %w", w.dir, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return false, err
	}

	for _, w := range batch {
		delete(state.restricted, w.dir)
	}
	clear(state.buffer)
	state.items = 0

	elapsed := f.now().Sub(start)
	f.metrics.Flushed(elapsed)
	f.log.Debug("flushed scan buffer",
		zap.Int("dirs", len(batch)),
		zap.Bool("force", force),
		zap.Duration("took", elapsed))
	return true, nil
}

func (f *Flusher) collect(state *ScanState, force bool) []pendingWrite {
	batch := make([]pendingWrite, 0, len(state.buffer))

	for dir, items := range state.buffer {
		slices.SortStableFunc(items, func(a, b sizedName) int {
			return cmp.Compare(b.bytes, a.bytes)
		})
		if f.perDir > 0 && len(items) > f.perDir {
			items = items[:f.perDir]
		}

		accessible := make([]store.FileEntry, len(items))
		for i, it := range items {
			accessible[i] = store.FileEntry{
				Path:          filepath.Join(dir, it.name),
				Name:          it.name,
				Bytes:         it.bytes,
				FormattedSize: utils.FormatBytes(it.bytes),
			}
		}

		restricted := state.restricted[dir]
		if restricted == nil {
			restricted = []store.FileEntry{}
		}
		batch = append(batch, pendingWrite{
			dir:      dir,
			snapshot: store.DirectorySnapshot{Accessible: accessible, Restricted: restricted},
		})
	}

	if !force {
		return batch
	}

	for dir, restricted := range state.restricted {
		if _, buffered := state.buffer[dir]; buffered {
			continue
		}
		batch = append(batch, pendingWrite{
			dir:      dir,
			snapshot: store.DirectorySnapshot{Accessible: []store.FileEntry{}, Restricted: restricted},
		})
	}
	return batch
}
