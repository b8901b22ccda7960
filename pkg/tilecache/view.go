package tilecache

import (
	"image"
	"sync/atomic"

	"github.com/kiesman99/rasterpipe/pkg/tile"
)

// View is a read-only window on a resident tile. The tile cannot be evicted
// until Release is called.
type View struct {
	Address tile.Address
	Rect    image.Rectangle

	// Stride is the number of bytes per pixel row.
	Stride int

	pix      []byte
	cache    *Cache
	entry    *entry
	released atomic.Bool
}

// Bytes returns the packed RGB pixels of the tile, Rect.Dy() rows of
// Stride bytes. The slice is shared with the cache and must not be
// modified, nor used after Release.
func (v *View) Bytes() []byte { return v.pix }

// Pixel returns the RGB sample at image coordinates (x, y), which must lie
// inside Rect.
func (v *View) Pixel(x, y int) (r, g, b byte) {
	i := (y-v.Rect.Min.Y)*v.Stride + (x-v.Rect.Min.X)*tile.Bands
	return v.pix[i], v.pix[i+1], v.pix[i+2]
}

// Release unpins the tile. Calls after the first do nothing.
func (v *View) Release() {
	if v.released.Swap(true) {
		return
	}
	v.cache.unpin(v.entry)
}
