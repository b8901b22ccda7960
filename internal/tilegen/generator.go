// Package tilegen fills tile buffers from a validated source by reading one
// block per mapped band and interleaving the samples.
package tilegen

import (
	"fmt"
	"image"

	"github.com/kiesman99/rasterpipe/internal/source"
	"github.com/kiesman99/rasterpipe/pkg/raster"
	"github.com/kiesman99/rasterpipe/pkg/tile"
)

// ErrMisaligned is returned for a rectangle that does not name a single
// tile, or a destination buffer that cannot hold it.
var ErrMisaligned = tile.ErrMisaligned

// Generator produces interleaved RGB tiles from a source handle.
//
// Generate is not safe for concurrent use: the scratch buffer and the
// source are shared between calls. The tile cache serializes decodes.
type Generator struct {
	src     *source.Handle
	grid    tile.Grid
	scratch []byte
}

// New returns a Generator reading from src.
func New(src *source.Handle) *Generator {
	tw, th := src.TileSize()
	return &Generator{
		src:     src,
		grid:    src.Grid(),
		scratch: make([]byte, tw*th),
	}
}

// Grid returns the tile grid the generator accepts rectangles from.
func (g *Generator) Grid() tile.Grid { return g.grid }

// Generate reads rect from every mapped band and writes the samples to dst
// as packed RGB, row-major with stride rect.Dx()*3. On error the contents
// of dst are undefined.
func (g *Generator) Generate(rect image.Rectangle, dst []byte) error {
	if err := g.check(rect, dst); err != nil {
		return err
	}

	n := rect.Dx() * rect.Dy()
	scratch := g.scratch[:n]

	for c := 0; c < g.src.Channels(); c++ {
		got, err := g.src.ReadChannel(c, rect, scratch)
		if err != nil {
			return &raster.ReadError{Rect: rect, Band: g.src.SourceBand(c) + 1, Got: got, Want: n, Err: err}
		}
		if got != n {
			return &raster.ReadError{Rect: rect, Band: g.src.SourceBand(c) + 1, Got: got, Want: n}
		}
		for i, v := range scratch {
			dst[i*tile.Bands+c] = v
		}
	}
	return nil
}

func (g *Generator) check(rect image.Rectangle, dst []byte) error {
	if _, err := g.grid.AddressOf(rect); err != nil {
		return violation(err)
	}
	if need := rect.Dx() * rect.Dy() * tile.Bands; len(dst) < need {
		return violation(fmt.Errorf("%w: buffer holds %d bytes, tile %v needs %d",
			ErrMisaligned, len(dst), rect, need))
	}
	return nil
}
