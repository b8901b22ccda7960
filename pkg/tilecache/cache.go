// Package tilecache holds decoded tiles in memory so that every tile of an
// image is produced at most once while it stays resident.
//
// Decodes are serialized through a single slot; hits on resident tiles
// never wait for it. Tiles handed out as views are pinned and survive
// eviction until released.
package tilecache

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sync"
	"sync/atomic"

	"github.com/kiesman99/rasterpipe/internal/logging"
	"github.com/kiesman99/rasterpipe/pkg/tile"
)

// ErrClosed is returned by fetches on a closed cache.
var ErrClosed = errors.New("tile cache closed")

// Generator fills dst with the packed RGB pixels of rect. rect always comes
// from the cache's tile grid and dst always holds rect.Dx()*rect.Dy()*3
// bytes.
type Generator interface {
	Generate(rect image.Rectangle, dst []byte) error
}

// Config describes the tile grid and the resident tile budget.
type Config struct {
	ImageWidth, ImageHeight int
	TileWidth, TileHeight   int

	// MaxTiles bounds the unpinned resident tiles. Zero selects
	// MaxTilesFor(ImageWidth, TileWidth).
	MaxTiles int
}

// MaxTilesFor returns ceil(1.5 * (1 + imageWidth/tileWidth)): enough
// tiles for one and a half rows of the grid.
func MaxTilesFor(imageWidth, tileWidth int) int {
	n := 1 + imageWidth/tileWidth
	return (3*n + 1) / 2
}

// Grid returns the tile grid described by c.
func (c Config) Grid() tile.Grid {
	return tile.Grid{
		ImageWidth:  c.ImageWidth,
		ImageHeight: c.ImageHeight,
		TileWidth:   c.TileWidth,
		TileHeight:  c.TileHeight,
	}
}

// Stats is a snapshot of cache activity.
type Stats struct {
	Hits      int64 `json:"hits"`
	Misses    int64 `json:"misses"`
	Decodes   int64 `json:"decodes"`
	Failures  int64 `json:"failures"`
	Evictions int64 `json:"evictions"`
	Resident  int   `json:"resident"`
	Pinned    int   `json:"pinned"`
	Capacity  int   `json:"capacity"`
}

// entry is a resident or pending tile. Everything but buf, err and done is
// guarded by Cache.mu; buf and err are written once before done closes.
type entry struct {
	addr tile.Address
	rect image.Rectangle

	buf  []byte
	err  error
	done chan struct{}

	ready     bool
	abandoned bool
	pins      int

	prev, next *entry
}

// Cache is a bounded set of decoded tiles. It is safe for concurrent use.
type Cache struct {
	grid     tile.Grid
	maxTiles int
	gen      Generator

	// slot admits one decode at a time.
	slot chan struct{}

	mu      sync.Mutex
	entries map[tile.Address]*entry
	lru     lruList
	closed  bool

	hits      atomic.Int64
	misses    atomic.Int64
	decodes   atomic.Int64
	failures  atomic.Int64
	evictions atomic.Int64
}

// New returns a cache that produces missing tiles with gen.
func New(cfg Config, gen Generator) (*Cache, error) {
	if cfg.TileWidth <= 0 || cfg.TileHeight <= 0 {
		return nil, fmt.Errorf("invalid tile size %dx%d", cfg.TileWidth, cfg.TileHeight)
	}
	if cfg.ImageWidth <= 0 || cfg.ImageHeight <= 0 {
		return nil, fmt.Errorf("invalid image size %dx%d", cfg.ImageWidth, cfg.ImageHeight)
	}
	if gen == nil {
		return nil, errors.New("nil tile generator")
	}
	if cfg.MaxTiles <= 0 {
		cfg.MaxTiles = MaxTilesFor(cfg.ImageWidth, cfg.TileWidth)
	}

	return &Cache{
		grid:     cfg.Grid(),
		maxTiles: cfg.MaxTiles,
		gen:      gen,
		slot:     make(chan struct{}, 1),
		entries:  make(map[tile.Address]*entry),
	}, nil
}

// Grid returns the tile grid of the cache.
func (c *Cache) Grid() tile.Grid { return c.grid }

// Capacity returns the resident tile budget.
func (c *Cache) Capacity() int { return c.maxTiles }

// Fetch returns the tile whose pixel rectangle is rect. rect must start on
// the tile grid and lie within a single tile; anything else fails with
// tile.ErrMisaligned or tile.ErrOutOfBounds before the source is touched.
//
// A rect smaller than its tile is served from the whole tile; the view
// still covers the full tile.
func (c *Cache) Fetch(ctx context.Context, rect image.Rectangle) (*View, error) {
	a, err := c.grid.AddressOf(rect)
	if err != nil {
		return nil, err
	}
	return c.FetchTile(ctx, a)
}

// FetchTile returns the tile at a, decoding it if it is not resident. The
// returned view pins the tile until Release.
//
// ctx bounds only the wait for the decode slot or for another caller's
// decode of the same tile. A decode that has started runs to completion.
func (c *Cache) FetchTile(ctx context.Context, a tile.Address) (*View, error) {
	if !c.grid.Contains(a) {
		return nil, fmt.Errorf("%w: tile %v of %dx%d grid", tile.ErrOutOfBounds, a, c.grid.Cols(), c.grid.Rows())
	}

	for {
		c.mu.Lock()
		if c.closed {
			c.mu.Unlock()
			return nil, ErrClosed
		}

		e, ok := c.entries[a]
		if !ok {
			e = &entry{
				addr: a,
				rect: c.grid.Rect(a),
				done: make(chan struct{}),
				pins: 1,
			}
			c.entries[a] = e
			c.lru.PushFront(e)
			c.mu.Unlock()

			c.misses.Add(1)
			return c.decode(ctx, e)
		}

		e.pins++
		c.lru.MoveToFront(e)
		c.mu.Unlock()

		select {
		case <-e.done:
		case <-ctx.Done():
			c.unpin(e)
			return nil, ctx.Err()
		}

		if e.abandoned {
			// The decoding caller gave up before starting; try again.
			c.unpin(e)
			continue
		}
		if e.err != nil {
			c.unpin(e)
			return nil, fmt.Errorf("tile %v: %w", a, e.err)
		}

		c.hits.Add(1)
		return c.view(e), nil
	}
}

// decode produces e, which the caller inserted pending and pinned.
func (c *Cache) decode(ctx context.Context, e *entry) (*View, error) {
	select {
	case c.slot <- struct{}{}:
	case <-ctx.Done():
		c.finish(e, ctx.Err(), true)
		return nil, ctx.Err()
	}

	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		<-c.slot
		c.finish(e, ErrClosed, false)
		return nil, ErrClosed
	}

	buf := make([]byte, e.rect.Dx()*e.rect.Dy()*tile.Bands)
	err := c.gen.Generate(e.rect, buf)
	<-c.slot

	if err != nil {
		c.failures.Add(1)
		logging.Logger().Warn("tile decode failed", "tile", e.addr.String(), "error", err)
		c.finish(e, err, false)
		return nil, fmt.Errorf("tile %v: %w", e.addr, err)
	}

	c.decodes.Add(1)
	logging.Logger().Debug("tile decoded", "tile", e.addr.String(), "rect", e.rect.String())

	e.buf = buf
	c.mu.Lock()
	e.ready = true
	close(e.done)
	c.evictLocked()
	c.mu.Unlock()

	return c.view(e), nil
}

// finish drops a pending entry that will never become ready and wakes its
// waiters.
func (c *Cache) finish(e *entry, err error, abandoned bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e.err = err
	e.abandoned = abandoned
	e.pins--
	c.removeLocked(e)
	close(e.done)
}

func (c *Cache) view(e *entry) *View {
	return &View{
		Address: e.addr,
		Rect:    e.rect,
		Stride:  e.rect.Dx() * tile.Bands,
		pix:     e.buf,
		cache:   c,
		entry:   e,
	}
}

func (c *Cache) unpin(e *entry) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e.pins--
	if e.pins < 0 {
		panic("tilecache: tile " + e.addr.String() + " released more often than fetched")
	}
	c.evictLocked()
}

// removeLocked takes e out of the index if it is still the entry for its
// address.
func (c *Cache) removeLocked(e *entry) {
	if c.entries[e.addr] != e {
		return
	}
	delete(c.entries, e.addr)
	c.lru.Remove(e)
}

// evictLocked drops least recently used tiles that are ready and unpinned
// until the cache is within budget. Pinned and pending tiles are skipped,
// so the cache may stay above budget while views are outstanding.
func (c *Cache) evictLocked() {
	limit := c.maxTiles
	if c.closed {
		limit = 0
	}

	for e := c.lru.Back(); e != nil && c.lru.Len() > limit; {
		prev := e.prev
		if e.ready && e.pins == 0 {
			c.removeLocked(e)
			c.evictions.Add(1)
			logging.Logger().Debug("tile evicted", "tile", e.addr.String())
		}
		e = prev
	}
}

// Stats returns a snapshot of the cache counters.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	resident, pinned := 0, 0
	for _, e := range c.entries {
		if e.ready {
			resident++
		}
		if e.pins > 0 {
			pinned++
		}
	}
	c.mu.Unlock()

	return Stats{
		Hits:      c.hits.Load(),
		Misses:    c.misses.Load(),
		Decodes:   c.decodes.Load(),
		Failures:  c.failures.Load(),
		Evictions: c.evictions.Load(),
		Resident:  resident,
		Pinned:    pinned,
		Capacity:  c.maxTiles,
	}
}

// Close drops every unpinned tile and fails later fetches with ErrClosed.
// It waits for a running decode to finish. Outstanding views stay valid
// until released.
func (c *Cache) Close() {
	c.mu.Lock()
	c.closed = true
	c.evictLocked()
	c.mu.Unlock()

	c.slot <- struct{}{}
	<-c.slot
}
