// Package loader opens block-oriented rasters and serves them as packed
// 8-bit RGB tiles decoded on demand.
//
// A typical consumer opens an image, reads its metadata, then pulls tiles:
//
//	img, err := loader.Open("scene.jp2")
//	if err != nil {
//		return err
//	}
//	defer img.Close()
//
//	v, err := img.FetchTile(ctx, tile.Address{Col: 0, Row: 0})
//	if err != nil {
//		return err
//	}
//	defer v.Release()
//	pix := v.Bytes()
package loader

import (
	"log/slog"

	"github.com/kiesman99/rasterpipe/internal/drivers"
	"github.com/kiesman99/rasterpipe/internal/logging"
	"github.com/kiesman99/rasterpipe/internal/source"
	"github.com/kiesman99/rasterpipe/internal/tilegen"
	"github.com/kiesman99/rasterpipe/pkg/raster"
	"github.com/kiesman99/rasterpipe/pkg/tile"
	"github.com/kiesman99/rasterpipe/pkg/tilecache"
)

// Options configures a Loader.
type Options struct {
	// Drivers are tried in order. Nil selects the built-in drivers.
	Drivers []raster.Driver

	// BlockSize is the virtual block edge for the built-in drivers of
	// formats without a native tile grid. Zero selects 256.
	BlockSize int

	// BandMap lists the 0-based source band for red, green and blue.
	// Nil selects the first three bands.
	BandMap []int

	// MaxTiles overrides the resident tile budget of every opened image.
	// Zero derives it from the image and tile width.
	MaxTiles int
}

// Loader opens rasters through a fixed driver list.
type Loader struct {
	registry *drivers.Registry
	bandMap  []int
	maxTiles int
}

// New creates a Loader.
func New(opts Options) *Loader {
	reg := drivers.Default(opts.BlockSize)
	if opts.Drivers != nil {
		reg = drivers.NewRegistry(opts.Drivers...)
	}
	return &Loader{
		registry: reg,
		bandMap:  opts.BandMap,
		maxTiles: opts.MaxTiles,
	}
}

// Drivers returns the driver names in the order they are tried.
func (l *Loader) Drivers() []string {
	return l.registry.Names()
}

// Probe reports whether any driver can open identifier. The dataset is
// closed again; a format that opens may still fail ReadHeader.
func (l *Loader) Probe(identifier string) bool {
	ds, driver, err := l.registry.Open(identifier)
	if err != nil {
		logging.Logger().Debug("probe rejected", "identifier", identifier, "error", err)
		return false
	}
	if err := ds.Close(); err != nil {
		logging.Logger().Warn("probe close failed", "identifier", identifier, "driver", driver, "error", err)
	}
	return true
}

// ReadHeader opens identifier, validates it and returns its metadata
// without decoding any pixels.
func (l *Loader) ReadHeader(identifier string) (tile.Meta, error) {
	h, err := source.Open(l.registry, identifier, l.bandMap)
	if err != nil {
		return tile.Meta{}, err
	}
	defer h.Close()
	return h.Meta(), nil
}

// Open opens identifier for tile reads. The caller must Close the image.
func (l *Loader) Open(identifier string) (*Image, error) {
	h, err := source.Open(l.registry, identifier, l.bandMap)
	if err != nil {
		return nil, err
	}

	g := h.Grid()
	cache, err := tilecache.New(tilecache.Config{
		ImageWidth:  g.ImageWidth,
		ImageHeight: g.ImageHeight,
		TileWidth:   g.TileWidth,
		TileHeight:  g.TileHeight,
		MaxTiles:    l.maxTiles,
	}, tilegen.New(h))
	if err != nil {
		h.Close()
		return nil, err
	}

	return &Image{
		identifier: identifier,
		src:        h,
		cache:      cache,
	}, nil
}

var std = New(Options{})

// Probe reports whether the built-in drivers can open identifier.
func Probe(identifier string) bool { return std.Probe(identifier) }

// ReadHeader returns the metadata of identifier using the built-in drivers.
func ReadHeader(identifier string) (tile.Meta, error) { return std.ReadHeader(identifier) }

// Open opens identifier for tile reads using the built-in drivers.
func Open(identifier string) (*Image, error) { return std.Open(identifier) }

// SetLogger directs the library's log output to l. The library is silent
// until a logger is set; nil silences it again.
func SetLogger(l *slog.Logger) { logging.SetLogger(l) }
