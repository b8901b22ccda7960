// Package rastertest provides an in-memory raster source for tests.
package rastertest

import (
	"fmt"
	"image"
	"sync"
	"sync/atomic"
	"time"

	"github.com/kiesman99/rasterpipe/pkg/raster"
)

// Pattern is the default pixel function: a value that differs per band,
// column and row.
func Pattern(band, x, y int) byte {
	return byte(x*7 + y*13 + band*61)
}

// Dataset is a synthetic raster whose pixels come from a function.
// It counts block reads and closes and can inject failures.
type Dataset struct {
	Width, Height         int
	Bands                 int
	TileWidth, TileHeight int
	Type                  raster.SampleType

	// Value returns the sample of band at (x, y). Defaults to Pattern.
	Value func(band, x, y int) byte

	// Fail, when set, is consulted before each read; a non-nil result is
	// returned as the read error.
	Fail func(band int, rect image.Rectangle) error

	// Short makes every read stop one pixel early.
	Short bool

	// Delay is slept inside every read to widen race windows.
	Delay time.Duration

	reads       atomic.Int64
	closes      atomic.Int64
	inFlight    atomic.Int64
	maxInFlight atomic.Int64

	mu        sync.Mutex
	readRects []image.Rectangle
}

// New returns an 8-bit dataset using Pattern.
func New(width, height, bands, tileWidth, tileHeight int) *Dataset {
	return &Dataset{
		Width:      width,
		Height:     height,
		Bands:      bands,
		TileWidth:  tileWidth,
		TileHeight: tileHeight,
		Type:       raster.Byte,
	}
}

// Reads returns the number of block reads issued so far.
func (d *Dataset) Reads() int64 { return d.reads.Load() }

// Closes returns the number of Close calls.
func (d *Dataset) Closes() int64 { return d.closes.Load() }

// MaxInFlight returns the highest number of reads that ran at once.
func (d *Dataset) MaxInFlight() int64 { return d.maxInFlight.Load() }

// ReadRects returns every rectangle read, in order.
func (d *Dataset) ReadRects() []image.Rectangle {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]image.Rectangle, len(d.readRects))
	copy(out, d.readRects)
	return out
}

// Expected returns the interleaved bytes a 3-channel tile over rect must
// contain, reading bands 0, 1 and 2.
func (d *Dataset) Expected(rect image.Rectangle) []byte {
	value := d.value()
	out := make([]byte, 0, rect.Dx()*rect.Dy()*3)
	for y := rect.Min.Y; y < rect.Max.Y; y++ {
		for x := rect.Min.X; x < rect.Max.X; x++ {
			out = append(out, value(0, x, y), value(1, x, y), value(2, x, y))
		}
	}
	return out
}

func (d *Dataset) value() func(band, x, y int) byte {
	if d.Value != nil {
		return d.Value
	}
	return Pattern
}

func (d *Dataset) Size() (int, int) { return d.Width, d.Height }

func (d *Dataset) BandCount() int { return d.Bands }

func (d *Dataset) Band(i int) (raster.Band, error) {
	if i < 0 || i >= d.Bands {
		return nil, fmt.Errorf("band %d: %w", i, raster.ErrMissingBand)
	}
	return &band{ds: d, index: i}, nil
}

func (d *Dataset) Close() error {
	d.closes.Add(1)
	return nil
}

type band struct {
	ds    *Dataset
	index int
}

func (b *band) BlockSize() (int, int) { return b.ds.TileWidth, b.ds.TileHeight }

func (b *band) SampleType() raster.SampleType { return b.ds.Type }

func (b *band) ReadBlock(rect image.Rectangle, dst []byte) (int, error) {
	d := b.ds
	d.reads.Add(1)

	n := d.inFlight.Add(1)
	defer d.inFlight.Add(-1)
	for {
		peak := d.maxInFlight.Load()
		if n <= peak || d.maxInFlight.CompareAndSwap(peak, n) {
			break
		}
	}

	d.mu.Lock()
	d.readRects = append(d.readRects, rect)
	d.mu.Unlock()

	if d.Delay > 0 {
		time.Sleep(d.Delay)
	}

	if d.Fail != nil {
		if err := d.Fail(b.index, rect); err != nil {
			return 0, err
		}
	}

	if !rect.In(image.Rect(0, 0, d.Width, d.Height)) {
		return 0, fmt.Errorf("rect %v outside %dx%d raster", rect, d.Width, d.Height)
	}

	want := rect.Dx() * rect.Dy()
	if d.Short {
		want--
	}
	if want > len(dst) {
		want = len(dst)
	}

	value := d.value()
	i := 0
	for y := rect.Min.Y; y < rect.Max.Y && i < want; y++ {
		for x := rect.Min.X; x < rect.Max.X && i < want; x++ {
			dst[i] = value(b.index, x, y)
			i++
		}
	}
	return i, nil
}

// Driver serves Datasets by identifier.
type Driver struct {
	DriverName string
	Datasets   map[string]*Dataset
}

func (d *Driver) Name() string {
	if d.DriverName == "" {
		return "synthetic"
	}
	return d.DriverName
}

func (d *Driver) Open(identifier string) (raster.Dataset, error) {
	ds, ok := d.Datasets[identifier]
	if !ok {
		return nil, fmt.Errorf("%s: %w", identifier, raster.ErrUnsupportedFormat)
	}
	return ds, nil
}
