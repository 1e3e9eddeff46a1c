// Package diskstore implements a durable cache store that persists each
// value in its own file named by the hex form of its digest key.
//
// Values are staged through the canonical encoder before being written, so
// a later Get returns the canonical shape of what was set: numbers come
// back as int64/float64 and structs as map[string]any. Writes go to a
// temporary file and are renamed into place so readers never observe a
// partial blob. Clear removes only the files this instance has touched;
// concurrent instances sharing a directory are not synchronized with each
// other.
package diskstore

import (
	"bytes"
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync/atomic"

	"github.com/goliatone/go-memoize/canonical"
	"github.com/goliatone/go-memoize/memo"
	"github.com/puzpuzpuz/xsync/v3"
	"github.com/vmihailenco/msgpack/v5"
	"go.uber.org/zap"
)

// FileExt is the extension of every blob file, denoting the durable
// serialization format.
const FileExt = ".msgpack"

// Store is a disk-backed memo.Store. It is safe for concurrent use within
// one process; instances sharing a base directory across processes are not
// synchronized.
type Store struct {
	baseDir string
	logger  *zap.Logger
	encoder *canonical.Encoder

	// known tracks every file path this instance has written or read, the
	// set Clear operates on.
	known *xsync.MapOf[string, struct{}]

	// createdBase records whether Init created the base directory, which
	// decides if Clear may remove it once empty.
	createdBase atomic.Bool
}

var _ memo.Store = (*Store)(nil)

// Option configures a Store.
type Option func(*Store)

// WithEncoder replaces the default canonical encoder used to stage values.
func WithEncoder(enc *canonical.Encoder) Option {
	return func(s *Store) {
		s.encoder = enc
	}
}

// New creates a disk-backed store. The base directory is not touched until
// Init runs.
func New(cfg Config, opts ...Option) (*Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Store{
		baseDir: expandHome(cfg.BaseDir),
		logger:  logger.With(zap.String("component", "diskstore")),
		encoder: canonical.NewEncoder(),
		known:   xsync.NewMapOf[string, struct{}](),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// BaseDir returns the resolved base directory.
func (s *Store) BaseDir() string {
	return s.baseDir
}

// Init creates the base directory if needed. Idempotent.
func (s *Store) Init(ctx context.Context) error {
	if _, err := os.Stat(s.baseDir); errors.Is(err, fs.ErrNotExist) {
		if err := os.MkdirAll(s.baseDir, 0o755); err != nil {
			return &memo.StorageError{Op: "init", Path: s.baseDir, Err: err}
		}
		s.createdBase.Store(true)
		return nil
	} else if err != nil {
		return &memo.StorageError{Op: "init", Path: s.baseDir, Err: err}
	}
	return nil
}

// path returns the blob file for a key.
func (s *Store) path(key canonical.DigestKey) string {
	return filepath.Join(s.baseDir, key.Hex()+FileExt)
}

// Get reads the blob stored under key. A missing file is an absent entry;
// an unreadable or corrupt blob is a StorageError, never a silent miss.
func (s *Store) Get(ctx context.Context, key canonical.DigestKey) (any, bool, error) {
	p := s.path(key)
	raw, err := os.ReadFile(p)
	if errors.Is(err, fs.ErrNotExist) {
		s.logger.Debug("cache miss", zap.String("key", key.Hex()))
		return nil, false, nil
	}
	if err != nil {
		return nil, false, &memo.StorageError{Op: "get", Path: p, Err: err}
	}

	value, err := decodeBlob(raw)
	if err != nil {
		return nil, false, &memo.StorageError{Op: "get", Path: p, Err: err}
	}

	s.known.Store(p, struct{}{})
	s.logger.Debug("cache hit", zap.String("key", key.Hex()), zap.String("path", p))
	return value, true, nil
}

// Set stages value through the canonical encoder, encodes it, and writes
// it atomically under the key's file.
func (s *Store) Set(ctx context.Context, key canonical.DigestKey, value any) error {
	staged, err := s.encoder.Canonicalize(value)
	if err != nil {
		return err
	}
	raw, err := msgpack.Marshal(staged)
	if err != nil {
		return &memo.StorageError{Op: "set", Path: s.path(key), Err: err}
	}

	p := s.path(key)
	if err := writeAtomic(p, raw); err != nil {
		return &memo.StorageError{Op: "set", Path: p, Err: err}
	}

	s.known.Store(p, struct{}{})
	s.logger.Debug("cache store", zap.String("key", key.Hex()), zap.String("path", p), zap.Int("bytes", len(raw)))
	return nil
}

// Clear deletes every file this instance has touched, then removes any
// directory left empty from the bottom up. The base directory itself is
// removed only when Init created it. Returns the number of files deleted.
func (s *Store) Clear(ctx context.Context) (int, error) {
	var paths []string
	s.known.Range(func(p string, _ struct{}) bool {
		paths = append(paths, p)
		return true
	})

	removed := 0
	for _, p := range paths {
		switch err := os.Remove(p); {
		case err == nil:
			removed++
		case !errors.Is(err, fs.ErrNotExist):
			return removed, &memo.StorageError{Op: "clear", Path: p, Err: err}
		}
		s.known.Delete(p)
	}

	if err := s.pruneEmptyDirs(); err != nil {
		return removed, err
	}

	s.logger.Debug("cache cleared", zap.Int("removed", removed))
	return removed, nil
}

// pruneEmptyDirs walks the base directory bottom-up removing directories
// left empty, including the base directory when this instance created it.
func (s *Store) pruneEmptyDirs() error {
	var dirs []string
	err := filepath.WalkDir(s.baseDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			dirs = append(dirs, path)
		}
		return nil
	})
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return &memo.StorageError{Op: "clear", Path: s.baseDir, Err: err}
	}

	// Deepest first.
	sort.Slice(dirs, func(i, j int) bool { return len(dirs[i]) > len(dirs[j]) })

	for _, dir := range dirs {
		if dir == s.baseDir && !s.createdBase.Load() {
			continue
		}
		entries, err := os.ReadDir(dir)
		if err != nil || len(entries) > 0 {
			continue
		}
		if err := os.Remove(dir); err != nil {
			return &memo.StorageError{Op: "clear", Path: dir, Err: err}
		}
	}
	return nil
}

// writeAtomic writes data to a temporary file in the target directory and
// renames it into place, so concurrent readers never see a partial blob.
func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}

// decodeBlob decodes a stored blob with loose interface decoding so
// numbers round-trip as int64/float64 regardless of their wire width.
func decodeBlob(raw []byte) (any, error) {
	dec := msgpack.NewDecoder(bytes.NewReader(raw))
	dec.UseLooseInterfaceDecoding(true)
	var value any
	if err := dec.Decode(&value); err != nil {
		return nil, err
	}
	return value, nil
}
