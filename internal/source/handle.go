// Package source owns an open raster dataset and validates it for the tile
// pipeline.
package source

import (
	"fmt"
	"image"
	"sync"

	"github.com/kiesman99/rasterpipe/internal/logging"
	"github.com/kiesman99/rasterpipe/pkg/raster"
	"github.com/kiesman99/rasterpipe/pkg/tile"
)

// DefaultBandMap reads the first three bands as red, green and blue.
var DefaultBandMap = []int{0, 1, 2}

// Opener opens an identifier and names the driver that accepted it.
type Opener interface {
	Open(identifier string) (raster.Dataset, string, error)
}

// Handle is an open dataset that passed validation: it has every band the
// band map asks for, a usable block grid, and 8-bit unsigned samples in
// every mapped band.
//
// A Handle is not safe for concurrent reads. Close may be called any number
// of times; the dataset is released once.
type Handle struct {
	ds       raster.Dataset
	driver   string
	width    int
	height   int
	count    int
	tileW    int
	tileH    int
	sample   raster.SampleType
	bandMap  []int
	channels []raster.Band

	closeOnce sync.Once
	closeErr  error
}

// Open opens identifier through opener and validates it against bandMap
// (nil selects DefaultBandMap). The dataset is closed again on any error.
func Open(opener Opener, identifier string, bandMap []int) (*Handle, error) {
	if bandMap == nil {
		bandMap = DefaultBandMap
	}
	if len(bandMap) != tile.Bands {
		return nil, fmt.Errorf("band map needs %d entries, got %d", tile.Bands, len(bandMap))
	}

	ds, driver, err := opener.Open(identifier)
	if err != nil {
		return nil, err
	}

	h, err := newHandle(ds, driver, bandMap)
	if err != nil {
		ds.Close()
		return nil, fmt.Errorf("%s: %w", identifier, err)
	}

	logging.Logger().Info("raster opened",
		"identifier", identifier,
		"driver", driver,
		"width", h.width,
		"height", h.height,
		"bands", h.count,
		"tile", fmt.Sprintf("%dx%d", h.tileW, h.tileH))
	return h, nil
}

func newHandle(ds raster.Dataset, driver string, bandMap []int) (*Handle, error) {
	h := &Handle{
		ds:      ds,
		driver:  driver,
		count:   ds.BandCount(),
		bandMap: append([]int(nil), bandMap...),
	}
	h.width, h.height = ds.Size()
	if h.width <= 0 || h.height <= 0 {
		return nil, fmt.Errorf("%w: raster is %dx%d", raster.ErrUnsupportedFormat, h.width, h.height)
	}

	// The first band defines the tile grid.
	if h.count < 1 {
		return nil, fmt.Errorf("%w: no raster band", raster.ErrMissingBand)
	}
	first, err := ds.Band(0)
	if err != nil {
		return nil, fmt.Errorf("%w: band 1: %w", raster.ErrMissingBand, err)
	}
	h.tileW, h.tileH = first.BlockSize()
	if h.tileW <= 0 || h.tileH <= 0 {
		return nil, fmt.Errorf("%w: block size %dx%d", raster.ErrUnsupportedFormat, h.tileW, h.tileH)
	}
	h.sample = first.SampleType()

	h.channels = make([]raster.Band, len(bandMap))
	for c, idx := range bandMap {
		if idx < 0 || idx >= h.count {
			return nil, fmt.Errorf("%w: channel %d wants band %d, source has %d",
				raster.ErrMissingBand, c, idx+1, h.count)
		}
		b, err := ds.Band(idx)
		if err != nil {
			return nil, fmt.Errorf("%w: band %d: %w", raster.ErrMissingBand, idx+1, err)
		}
		if st := b.SampleType(); st != raster.Byte {
			return nil, fmt.Errorf("%w: band %d is %s", raster.ErrUnsupportedPixelDepth, idx+1, st)
		}
		h.channels[c] = b
	}

	return h, nil
}

// Size returns the raster size in pixels.
func (h *Handle) Size() (int, int) { return h.width, h.height }

// TileSize returns the native block size of the first band.
func (h *Handle) TileSize() (int, int) { return h.tileW, h.tileH }

// BandCount returns the number of bands in the source.
func (h *Handle) BandCount() int { return h.count }

// SampleType returns the sample type of the first band.
func (h *Handle) SampleType() raster.SampleType { return h.sample }

// Driver returns the name of the driver that opened the source.
func (h *Handle) Driver() string { return h.driver }

// BandMap returns the source band index of every output channel.
func (h *Handle) BandMap() []int { return append([]int(nil), h.bandMap...) }

// Channels returns the number of output channels.
func (h *Handle) Channels() int { return len(h.channels) }

// Grid returns the tile grid of the source.
func (h *Handle) Grid() tile.Grid {
	return tile.Grid{
		ImageWidth:  h.width,
		ImageHeight: h.height,
		TileWidth:   h.tileW,
		TileHeight:  h.tileH,
	}
}

// Meta returns the published description of the source.
func (h *Handle) Meta() tile.Meta {
	return tile.Meta{
		Width:          h.width,
		Height:         h.height,
		Bands:          tile.Bands,
		Format:         "uchar",
		Interpretation: "rgb",
		XRes:           1.0,
		YRes:           1.0,
		TileWidth:      h.tileW,
		TileHeight:     h.tileH,
		SourceBands:    h.count,
		SampleType:     h.sample.String(),
		Driver:         h.driver,
		Partial:        true,
	}
}

// ReadChannel reads rect of the band mapped to output channel c.
func (h *Handle) ReadChannel(c int, rect image.Rectangle, dst []byte) (int, error) {
	return h.channels[c].ReadBlock(rect, dst)
}

// SourceBand returns the 0-based source band feeding output channel c.
func (h *Handle) SourceBand(c int) int { return h.bandMap[c] }

// Close releases the dataset. Only the first call reaches the driver.
func (h *Handle) Close() error {
	h.closeOnce.Do(func() {
		h.closeErr = h.ds.Close()
		if h.closeErr != nil {
			logging.Logger().Warn("raster close failed", "driver", h.driver, "error", h.closeErr)
		}
	})
	return h.closeErr
}
