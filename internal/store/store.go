// Package store persists directory snapshots and the global search index.
//
// Layout under the data directory:
//
//	metadata.json            {"version": N}
//	fs-cache/<md5(dir)>.json DirectorySnapshot
//	global-search.json       []FileEntry
//
// Every write goes through a per-file lock and an atomic rename, so
// concurrent writers to one key never lose updates and readers never see a
// partially written file. Reads take no lock.
package store

import (
	"crypto/md5"
	"encoding/hex"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/fenilsonani/diskindex/internal/logging"
	"github.com/fenilsonani/diskindex/internal/metrics"
	"go.uber.org/zap"
)

const (
	snapshotDirName  = "fs-cache"
	globalIndexName  = "global-search.json"
	metadataFileName = "metadata.json"

	DefaultVersion  = 1
	DefaultMaxItems = 200
)

// ErrNotInitialized is returned by writes issued before Init has completed.
var ErrNotInitialized = errors.New("store: not initialized")

// Store is a durable snapshot cache rooted at one data directory.
type Store struct {
	dataDir      string
	cacheDir     string
	globalPath   string
	metadataPath string

	version  int
	maxItems int

	log     *zap.Logger
	metrics *metrics.Metrics
	locks   *keyedMutex

	initMu sync.Mutex
	ready  bool
}

// Option configures a Store
type Option func(*Store)

// WithVersion sets the expected cache version. A persisted cache with any
// other version is discarded on Init.
func WithVersion(v int) Option {
	return func(s *Store) { s.version = v }
}

// WithMaxItems caps both lists of every snapshot.
func WithMaxItems(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.maxItems = n
		}
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(s *Store) { s.log = logging.OrNop(l) }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Store) { s.metrics = m }
}

// New creates a Store. Nothing touches the disk until Init.
func New(dataDir string, opts ...Option) *Store {
	s := &Store{
		dataDir:      dataDir,
		cacheDir:     filepath.Join(dataDir, snapshotDirName),
		globalPath:   filepath.Join(dataDir, globalIndexName),
		metadataPath: filepath.Join(dataDir, metadataFileName),
		version:      DefaultVersion,
		maxItems:     DefaultMaxItems,
		log:          zap.NewNop(),
		locks:        newKeyedMutex(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// DataDir returns the root of the persisted cache
func (s *Store) DataDir() string {
	return s.dataDir
}

// Init provisions the cache once per process lifetime (or once after each
// Clear). When metadata is missing, unreadable or from another version, the
// snapshot directory and global index are deleted and recreated.
func (s *Store) Init() error {
	s.initMu.Lock()
	defer s.initMu.Unlock()

	if s.ready {
		return nil
	}
	if err := s.provision(); err != nil {
		return err
	}
	s.ready = true
	return nil
}

func (s *Store) provision() error {
	var meta Metadata
	err := readJSON(s.metadataPath, &meta)
	if err == nil && meta.Version == s.version {
		return os.MkdirAll(s.cacheDir, 0755)
	}

	if err != nil {
		s.log.Info("provisioning snapshot cache", zap.String("dir", s.dataDir), zap.NamedError("reason", err))
	} else {
		s.log.Info("cache version changed, discarding snapshots",
			zap.Int("found", meta.Version), zap.Int("expected", s.version))
	}

	if err := os.RemoveAll(s.cacheDir); err != nil {
		return err
	}
	if err := os.Remove(s.globalPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	if err := os.MkdirAll(s.cacheDir, 0755); err != nil {
		return err
	}
	return writeJSONAtomic(s.metadataPath, Metadata{Version: s.version})
}

// Clear deletes all persisted state. The next Init provisions from scratch.
func (s *Store) Clear() error {
	s.initMu.Lock()
	defer s.initMu.Unlock()

	s.ready = false

	var errs []error
	if err := os.RemoveAll(s.cacheDir); err != nil {
		errs = append(errs, err)
	}
	for _, path := range []string{s.globalPath, s.metadataPath} {
		if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (s *Store) isReady() bool {
	s.initMu.Lock()
	defer s.initMu.Unlock()
	return s.ready
}

func (s *Store) snapshotPath(dir string) string {
	sum := md5.Sum([]byte(filepath.Clean(dir)))
	return filepath.Join(s.cacheDir, hex.EncodeToString(sum[:])+".json")
}

// Get returns the stored snapshot for dir, or nil when there is none yet.
// A corrupt file reads as absent.
func (s *Store) Get(dir string) *DirectorySnapshot {
	return s.readSnapshot(s.snapshotPath(dir))
}

func (s *Store) readSnapshot(path string) *DirectorySnapshot {
	var snap DirectorySnapshot
	if err := readJSON(path, &snap); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			s.log.Debug("unreadable snapshot treated as absent", zap.String("file", path), zap.Error(err))
		}
		return nil
	}
	snap.normalize()
	return &snap
}

// HasSnapshot reports whether dir has a stored snapshot without reading it.
func (s *Store) HasSnapshot(dir string) bool {
	_, err := os.Stat(s.snapshotPath(dir))
	return err == nil
}

// MergeWrite unions incoming into the stored snapshot for dir (incoming wins
// on equal paths), re-sorts, truncates and atomically replaces the file.
func (s *Store) MergeWrite(dir string, incoming DirectorySnapshot) error {
	if !s.isReady() {
		return ErrNotInitialized
	}

	path := s.snapshotPath(dir)
	unlock := s.locks.Lock(path)
	defer unlock()

	existing := s.readSnapshot(path)
	if existing == nil {
		existing = emptySnapshot()
	}

	merged := mergeSnapshots(existing, &incoming, s.maxItems)
	err := writeJSONAtomic(path, merged)
	s.metrics.SnapshotWritten(err)
	if err != nil {
		s.log.Warn("snapshot write failed", zap.String("dir", dir), zap.Error(err))
	}
	return err
}

func mergeSnapshots(existing, incoming *DirectorySnapshot, limit int) *DirectorySnapshot {
	merged := &DirectorySnapshot{
		Accessible: unionByPath(existing.Accessible, incoming.Accessible),
		Restricted: unionByPath(existing.Restricted, incoming.Restricted),
	}
	SortBySize(merged.Accessible)
	merged.Accessible = truncate(merged.Accessible, limit)
	merged.Restricted = truncate(merged.Restricted, limit)
	return merged
}

// unionByPath keeps first-seen order; a later entry with the same path
// replaces the earlier one in place.
func unionByPath(base, overlay []FileEntry) []FileEntry {
	out := make([]FileEntry, 0, len(base)+len(overlay))
	index := make(map[string]int, len(base)+len(overlay))
	for _, list := range [][]FileEntry{base, overlay} {
		for _, e := range list {
			if i, ok := index[e.Path]; ok {
				out[i] = e
				continue
			}
			index[e.Path] = len(out)
			out = append(out, e)
		}
	}
	return out
}

func truncate(entries []FileEntry, limit int) []FileEntry {
	if limit > 0 && len(entries) > limit {
		return entries[:limit]
	}
	return entries
}

// SaveGlobalIndex replaces the global search index.
func (s *Store) SaveGlobalIndex(entries []FileEntry) error {
	if !s.isReady() {
		return ErrNotInitialized
	}

	unlock := s.locks.Lock(s.globalPath)
	defer unlock()

	if entries == nil {
		entries = []FileEntry{}
	}
	return writeJSONAtomic(s.globalPath, entries)
}

// GlobalIndex returns the persisted global index, or an empty list.
func (s *Store) GlobalIndex() []FileEntry {
	var entries []FileEntry
	if err := readJSON(s.globalPath, &entries); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			s.log.Debug("unreadable global index treated as empty", zap.Error(err))
		}
		return []FileEntry{}
	}
	if entries == nil {
		return []FileEntry{}
	}
	return entries
}

// HasIndex reports whether a completed scan has written a global index.
func (s *Store) HasIndex() bool {
	_, err := os.Stat(s.globalPath)
	return err == nil
}
