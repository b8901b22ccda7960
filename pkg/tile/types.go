package tile

import (
	"errors"
	"fmt"
	"image"
)

// Bands is the number of interleaved output channels of every tile.
const Bands = 3

// Output format constants
const (
	FormatPNG = iota
	FormatJPEG
	FormatRaw
)

// Errors returned when a rectangle does not name a tile.
var (
	ErrMisaligned  = errors.New("rectangle is not tile aligned")
	ErrOutOfBounds = errors.New("tile outside image")
)

// Address identifies a tile by column and row in the tile grid.
type Address struct {
	Col, Row int
}

func (a Address) String() string {
	return fmt.Sprintf("%d/%d", a.Col, a.Row)
}

// Grid maps tile addresses to pixel rectangles of an image.
type Grid struct {
	ImageWidth, ImageHeight int
	TileWidth, TileHeight   int
}

// Bounds returns the image rectangle.
func (g Grid) Bounds() image.Rectangle {
	return image.Rect(0, 0, g.ImageWidth, g.ImageHeight)
}

// Cols returns the number of tile columns, counting a partial edge column.
func (g Grid) Cols() int {
	return (g.ImageWidth + g.TileWidth - 1) / g.TileWidth
}

// Rows returns the number of tile rows, counting a partial edge row.
func (g Grid) Rows() int {
	return (g.ImageHeight + g.TileHeight - 1) / g.TileHeight
}

// Contains reports whether a lies inside the grid.
func (g Grid) Contains(a Address) bool {
	return a.Col >= 0 && a.Row >= 0 && a.Col < g.Cols() && a.Row < g.Rows()
}

// Rect returns the pixel rectangle of a, clipped at the image edges.
func (g Grid) Rect(a Address) image.Rectangle {
	r := image.Rect(
		a.Col*g.TileWidth,
		a.Row*g.TileHeight,
		(a.Col+1)*g.TileWidth,
		(a.Row+1)*g.TileHeight,
	)
	return r.Intersect(g.Bounds())
}

// AddressOf returns the tile whose origin is r.Min. r must start on a tile
// boundary and must not extend past that tile.
func (g Grid) AddressOf(r image.Rectangle) (Address, error) {
	if r.Empty() {
		return Address{}, fmt.Errorf("%w: empty rectangle %v", ErrMisaligned, r)
	}
	if r.Min.X < 0 || r.Min.Y < 0 || r.Min.X%g.TileWidth != 0 || r.Min.Y%g.TileHeight != 0 {
		return Address{}, fmt.Errorf("%w: origin %v not on %dx%d grid",
			ErrMisaligned, r.Min, g.TileWidth, g.TileHeight)
	}
	a := Address{Col: r.Min.X / g.TileWidth, Row: r.Min.Y / g.TileHeight}
	if !g.Contains(a) {
		return Address{}, fmt.Errorf("%w: tile %v of %dx%d grid", ErrOutOfBounds, a, g.Cols(), g.Rows())
	}
	if !r.In(g.Rect(a)) {
		return Address{}, fmt.Errorf("%w: %v exceeds tile %v", ErrMisaligned, r, g.Rect(a))
	}
	return a, nil
}

// Span returns the inclusive range of tile addresses covering r, which is
// first clipped to the image.
func (g Grid) Span(r image.Rectangle) (first, last Address, ok bool) {
	r = r.Intersect(g.Bounds())
	if r.Empty() {
		return Address{}, Address{}, false
	}
	first = Address{Col: r.Min.X / g.TileWidth, Row: r.Min.Y / g.TileHeight}
	last = Address{Col: (r.Max.X - 1) / g.TileWidth, Row: (r.Max.Y - 1) / g.TileHeight}
	return first, last, true
}

// Meta is the externally visible description of an opened image.
type Meta struct {
	Width          int     `json:"width"`
	Height         int     `json:"height"`
	Bands          int     `json:"bands"`
	Format         string  `json:"format"`
	Interpretation string  `json:"interpretation"`
	XRes           float64 `json:"xres"`
	YRes           float64 `json:"yres"`
	TileWidth      int     `json:"tile_width"`
	TileHeight     int     `json:"tile_height"`
	SourceBands    int     `json:"source_bands"`
	SampleType     string  `json:"sample_type"`
	Driver         string  `json:"driver"`
	Partial        bool    `json:"partial"`
}

// Grid returns the tile grid described by m.
func (m Meta) Grid() Grid {
	return Grid{
		ImageWidth:  m.Width,
		ImageHeight: m.Height,
		TileWidth:   m.TileWidth,
		TileHeight:  m.TileHeight,
	}
}
