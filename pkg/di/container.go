// Package di wires the canonical encoder, cache stores, and memoizers
// together for consumers that want a single assembly point.
package di

import (
	"github.com/goliatone/go-memoize/canonical"
	"github.com/goliatone/go-memoize/diskstore"
	"github.com/goliatone/go-memoize/memo"
	"github.com/goliatone/go-memoize/yamlstore"
)

// Container provides dependency injection for memoization components.
// It manages a singleton canonical encoder so every store and memoizer it
// produces derives identical keys for identical inputs.
type Container struct {
	encoder    *canonical.Encoder
	diskConfig diskstore.Config
}

// NewContainer creates a DI container with the provided disk store
// configuration. The encoder, and with it the conversion strategy, is
// selected here once.
func NewContainer(cfg diskstore.Config, opts ...canonical.Option) (*Container, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Container{
		encoder:    canonical.NewEncoder(opts...),
		diskConfig: cfg,
	}, nil
}

// NewContainerWithDefaults creates a DI container using the default disk
// store configuration.
func NewContainerWithDefaults() (*Container, error) {
	return NewContainer(diskstore.DefaultConfig())
}

// Encoder returns the singleton canonical encoder.
func (c *Container) Encoder() *canonical.Encoder {
	return c.encoder
}

// DiskConfig returns a copy of the disk store configuration.
func (c *Container) DiskConfig() diskstore.Config {
	return c.diskConfig
}

// NewDiskStore constructs a disk-backed store sharing the container's
// encoder.
func (c *Container) NewDiskStore() (*diskstore.Store, error) {
	return diskstore.New(c.diskConfig, diskstore.WithEncoder(c.encoder))
}

// NewMemoryStore constructs an in-memory store.
func (c *Container) NewMemoryStore() *memo.MemoryStore {
	return memo.NewMemoryStore()
}

// NewYAMLStore constructs a YAML file store sharing the container's
// encoder.
func (c *Container) NewYAMLStore(path string) (*yamlstore.Store, error) {
	return yamlstore.New(yamlstore.Config{Path: path, Logger: c.diskConfig.Logger}, yamlstore.WithEncoder(c.encoder))
}

// NewMemoizer binds an arbitrary store to the container's encoder.
func (c *Container) NewMemoizer(store memo.Store) *memo.Memoizer {
	return memo.New(store, memo.WithEncoder(c.encoder))
}

// NewDiskMemoizer constructs a memoizer backed by a disk store built from
// the container's configuration.
func (c *Container) NewDiskMemoizer() (*memo.Memoizer, error) {
	store, err := c.NewDiskStore()
	if err != nil {
		return nil, err
	}
	return c.NewMemoizer(store), nil
}
