// Package yamlstore implements a cache store backed by a single YAML file
// keyed by caller-supplied text keys.
//
// Every operation reads the whole document, mutates it, and writes it
// back, so the store is single-writer-only: concurrent writers to the same
// file can lose updates. Values are staged through the canonical encoder
// when persisting and again when loading, so reads always return the
// canonical shape regardless of how the parser types them. Repeated parses
// of unchanged file content are served from an explicitly owned parse
// cache keyed by the content digest.
package yamlstore

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/goliatone/go-memoize/canonical"
	"github.com/goliatone/go-memoize/memo"
	"github.com/viccon/sturdyc"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// parse cache sizing; the cache holds whole parsed documents, so it stays
// deliberately small.
const (
	parseCacheCapacity = 64
	parseCacheShards   = 2
	parseCacheTTL      = time.Hour
	parseCacheEviction = 25
)

// Config holds the configuration for the YAML-backed store.
type Config struct {
	// Path is the YAML document the store persists to.
	Path string

	// Logger receives hit/miss events. Nil disables logging.
	Logger *zap.Logger
}

// Validate checks whether the configuration values are valid.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Path) == "" {
		return &memo.ConfigError{Field: "Path", Message: "must not be empty"}
	}
	return nil
}

// Store is a single-file YAML key/value store. Keys are explicit caller
// text, not derived hashes.
type Store struct {
	path    string
	logger  *zap.Logger
	encoder *canonical.Encoder

	// parseCache memoizes parsed documents by content digest, replacing a
	// process-global memo table with state owned by this instance.
	parseCache *sturdyc.Client[map[string]any]
}

// Option configures a Store.
type Option func(*Store)

// WithEncoder replaces the default canonical encoder used to stage values.
func WithEncoder(enc *canonical.Encoder) Option {
	return func(s *Store) {
		s.encoder = enc
	}
}

// New creates a YAML-backed store. The file is not touched until Init runs.
func New(cfg Config, opts ...Option) (*Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Store{
		path:       cfg.Path,
		logger:     logger.With(zap.String("component", "yamlstore")),
		encoder:    canonical.NewEncoder(),
		parseCache: sturdyc.New[map[string]any](parseCacheCapacity, parseCacheShards, parseCacheTTL, parseCacheEviction),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Path returns the backing file path.
func (s *Store) Path() string {
	return s.path
}

// Init creates the backing file with an empty document when it does not
// exist or is empty. Idempotent.
func (s *Store) Init(ctx context.Context) error {
	raw, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return s.save(map[string]any{})
	}
	if err != nil {
		return &memo.StorageError{Op: "init", Path: s.path, Err: err}
	}
	if len(raw) == 0 {
		return s.save(map[string]any{})
	}
	return nil
}

// Get returns the value stored under key and whether it was present.
func (s *Store) Get(ctx context.Context, key string) (any, bool, error) {
	doc, err := s.load(ctx)
	if err != nil {
		return nil, false, err
	}
	value, ok := doc[key]
	if !ok {
		s.logger.Debug("cache miss", zap.String("key", key), zap.Int("entries", len(doc)))
		return nil, false, nil
	}
	s.logger.Debug("cache hit", zap.String("key", key), zap.Int("entries", len(doc)))
	return value, true, nil
}

// Set stages value through the canonical encoder and persists the whole
// updated document. Read-modify-write with no locking: single writer only.
func (s *Store) Set(ctx context.Context, key string, value any) error {
	doc, err := s.load(ctx)
	if err != nil {
		return err
	}
	staged, err := s.encoder.Canonicalize(value)
	if err != nil {
		return err
	}
	doc[key] = staged
	if err := s.save(doc); err != nil {
		return err
	}
	s.logger.Debug("cache store", zap.String("key", key), zap.Int("entries", len(doc)))
	return nil
}

// Clear truncates the document to empty and returns the number of entries
// it held.
func (s *Store) Clear(ctx context.Context) (int, error) {
	doc, err := s.load(ctx)
	if err != nil {
		return 0, err
	}
	removed := len(doc)
	if err := s.save(map[string]any{}); err != nil {
		return 0, err
	}
	return removed, nil
}

// load reads and parses the backing document, consulting the parse cache
// for unchanged content. Every value is staged through the canonical
// encoder on the way out, so numbers come back as int64/float64 and the
// returned document is a fresh deep copy the caller may mutate without
// poisoning the cached parse.
func (s *Store) load(ctx context.Context) (map[string]any, error) {
	raw, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return map[string]any{}, nil
	}
	if err != nil {
		return nil, &memo.StorageError{Op: "get", Path: s.path, Err: err}
	}
	if len(raw) == 0 {
		return map[string]any{}, nil
	}

	contentKey, err := canonical.Digest(string(raw))
	if err != nil {
		return nil, err
	}

	doc, err := s.parseCache.GetOrFetch(ctx, contentKey.Hex(), func(ctx context.Context) (map[string]any, error) {
		var parsed map[string]any
		if err := yaml.Unmarshal(raw, &parsed); err != nil {
			return nil, &memo.StorageError{Op: "get", Path: s.path, Err: err}
		}
		if parsed == nil {
			parsed = map[string]any{}
		}
		return parsed, nil
	})
	if err != nil {
		return nil, err
	}

	// Keys stay verbatim; values canonicalize, which also allocates
	// fresh containers at every level.
	out := make(map[string]any, len(doc))
	for k, v := range doc {
		staged, err := s.encoder.Canonicalize(v)
		if err != nil {
			return nil, err
		}
		out[k] = staged
	}
	return out, nil
}

// save writes the whole document back to the backing file.
func (s *Store) save(doc map[string]any) error {
	raw, err := yaml.Marshal(doc)
	if err != nil {
		return &memo.StorageError{Op: "set", Path: s.path, Err: err}
	}
	if err := os.WriteFile(s.path, raw, 0o644); err != nil {
		return &memo.StorageError{Op: "set", Path: s.path, Err: err}
	}
	return nil
}
