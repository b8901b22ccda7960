package loader

import (
	"context"
	"image"
	"sync"

	"github.com/kiesman99/rasterpipe/internal/logging"
	"github.com/kiesman99/rasterpipe/internal/source"
	"github.com/kiesman99/rasterpipe/pkg/tile"
	"github.com/kiesman99/rasterpipe/pkg/tilecache"
)

// Image is an open raster serving packed RGB tiles. It is safe for
// concurrent use.
type Image struct {
	identifier string
	src        *source.Handle
	cache      *tilecache.Cache

	closeOnce sync.Once
	closeErr  error
}

// Identifier returns the identifier the image was opened with.
func (im *Image) Identifier() string { return im.identifier }

// Meta returns the published image description.
func (im *Image) Meta() tile.Meta { return im.src.Meta() }

// TileGeometry returns the tile width and height.
func (im *Image) TileGeometry() (int, int) { return im.src.TileSize() }

// Grid returns the tile grid.
func (im *Image) Grid() tile.Grid { return im.cache.Grid() }

// Fetch returns the tile whose rectangle is rect. See tilecache.Cache.Fetch.
func (im *Image) Fetch(ctx context.Context, rect image.Rectangle) (*tilecache.View, error) {
	return im.cache.Fetch(ctx, rect)
}

// FetchTile returns the tile at a. The view must be released.
func (im *Image) FetchTile(ctx context.Context, a tile.Address) (*tilecache.View, error) {
	return im.cache.FetchTile(ctx, a)
}

// Stats returns the tile cache counters.
func (im *Image) Stats() tilecache.Stats { return im.cache.Stats() }

// Close stops tile reads and releases the source. It is safe to call more
// than once.
func (im *Image) Close() error {
	im.closeOnce.Do(func() {
		im.cache.Close()
		im.closeErr = im.src.Close()
		logging.Logger().Debug("image closed", "identifier", im.identifier)
	})
	return im.closeErr
}
