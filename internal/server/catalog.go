package server

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/kiesman99/rasterpipe/internal/logging"
	"github.com/kiesman99/rasterpipe/pkg/loader"
)

// ErrNotFound is returned for names that do not refer to a file in the
// catalog root.
var ErrNotFound = errors.New("image not found")

// Catalog serves the raster files of one directory. Images are opened on
// first use and stay open until Close.
type Catalog struct {
	root   string
	loader *loader.Loader

	mu     sync.Mutex
	images map[string]*loader.Image
	closed bool
}

// NewCatalog creates a catalog of the files in root.
func NewCatalog(root string, l *loader.Loader) *Catalog {
	return &Catalog{
		root:   root,
		loader: l,
		images: make(map[string]*loader.Image),
	}
}

// path resolves name to a file directly inside the root.
func (c *Catalog) path(name string) (string, error) {
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		return "", fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	p := filepath.Join(c.root, name)
	info, err := os.Stat(p)
	if err != nil || !info.Mode().IsRegular() {
		return "", fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	return p, nil
}

// Get returns the open image called name, opening it if needed. Failed
// opens are not remembered.
func (c *Catalog) Get(name string) (*loader.Image, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, errors.New("catalog closed")
	}
	if img, ok := c.images[name]; ok {
		return img, nil
	}

	p, err := c.path(name)
	if err != nil {
		return nil, err
	}
	img, err := c.loader.Open(p)
	if err != nil {
		return nil, err
	}
	c.images[name] = img
	logging.Logger().Info("catalog image opened", "name", name, "open", len(c.images))
	return img, nil
}

// Names lists the files in the root that a driver can open.
func (c *Catalog) Names() ([]string, error) {
	entries, err := os.ReadDir(c.root)
	if err != nil {
		return nil, err
	}

	names := []string{}
	for _, e := range entries {
		if !e.Type().IsRegular() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		if c.loader.Probe(filepath.Join(c.root, e.Name())) {
			names = append(names, e.Name())
		}
	}
	return names, nil
}

// Close closes every open image. Later calls to Get fail.
func (c *Catalog) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var errs []error
	for name, img := range c.images {
		if err := img.Close(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		}
		delete(c.images, name)
	}
	c.closed = true
	return errors.Join(errs...)
}
