// Package stitch assembles arbitrary regions of an image from its tiles.
package stitch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"sync"

	"golang.org/x/image/draw"

	"github.com/kiesman99/rasterpipe/internal/logging"
	"github.com/kiesman99/rasterpipe/pkg/tile"
	"github.com/kiesman99/rasterpipe/pkg/tilecache"
)

// MaxPixels bounds the size of an assembled region.
const MaxPixels = 10000 * 10000

// DefaultWorkers is the number of concurrent tile fetches per row.
const DefaultWorkers = 4

// ErrEmptyRegion is returned when the requested region does not overlap
// the image.
var ErrEmptyRegion = errors.New("region does not overlap image")

// Fetcher serves the tiles of one image.
type Fetcher interface {
	Grid() tile.Grid
	FetchTile(ctx context.Context, a tile.Address) (*tilecache.View, error)
}

// Options contains all stitching parameters
type Options struct {
	// Region in image pixels. The zero rectangle selects the whole image;
	// anything else is clipped to it.
	Region image.Rectangle

	// Scale resizes the assembled region. Zero and one keep it as is.
	Scale float64

	OutputFormat      int
	Quality           int
	Workers           int
	GenerateWorldFile bool
}

// Result contains the stitching result
type Result struct {
	ImageData     []byte
	WorldFileData []byte
	Width         int
	Height        int
	Region        image.Rectangle
	PixelSizeX    float64
	PixelSizeY    float64
}

// TileError reports tiles that could not be fetched. No image is produced
// when any tile fails.
type TileError struct {
	Message         string
	FailedTiles     []FailedTile
	SuccessfulTiles int
	TotalTiles      int
}

func (e *TileError) Error() string {
	return e.Message
}

// Unwrap returns the errors of the failed tiles.
func (e *TileError) Unwrap() []error {
	errs := make([]error, len(e.FailedTiles))
	for i, f := range e.FailedTiles {
		errs[i] = f.Err
	}
	return errs
}

// FailedTile represents a single failed tile fetch
type FailedTile struct {
	Address tile.Address
	Err     error
}

// Stitcher performs region assembly over a tile source
type Stitcher struct {
	src Fetcher
}

// New creates a new stitcher reading tiles from src
func New(src Fetcher) *Stitcher {
	return &Stitcher{src: src}
}

// Stitch assembles, scales and encodes a region.
func (s *Stitcher) Stitch(ctx context.Context, opts *Options) (*Result, error) {
	img, region, err := s.Assemble(ctx, opts.Region, opts.Workers)
	if err != nil {
		return nil, err
	}

	out := img
	if opts.Scale > 0 && opts.Scale != 1 {
		out, err = scale(img, opts.Scale)
		if err != nil {
			return nil, err
		}
	}

	data, err := tile.Encode(out, opts.OutputFormat, opts.Quality)
	if err != nil {
		return nil, fmt.Errorf("failed to encode output image: %w", err)
	}

	width, height := out.Rect.Dx(), out.Rect.Dy()
	px := float64(region.Dx()) / float64(width)
	py := float64(region.Dy()) / float64(height)

	result := &Result{
		ImageData:  data,
		Width:      width,
		Height:     height,
		Region:     region,
		PixelSizeX: px,
		PixelSizeY: py,
	}

	if opts.GenerateWorldFile {
		// Pixel space with y growing downwards: row 0 sits at -Min.Y.
		result.WorldFileData = generateWorldFile(px, py, float64(region.Min.X), -float64(region.Min.Y))
	}

	return result, nil
}

// Assemble copies the tiles covering region into an RGBA canvas whose
// origin is region.Min. Rows of tiles are fetched top to bottom; within a
// row up to workers tiles are fetched at once.
func (s *Stitcher) Assemble(ctx context.Context, region image.Rectangle, workers int) (*image.RGBA, image.Rectangle, error) {
	g := s.src.Grid()
	if region == (image.Rectangle{}) {
		region = g.Bounds()
	}
	region = region.Canon().Intersect(g.Bounds())

	first, last, ok := g.Span(region)
	if !ok {
		return nil, region, ErrEmptyRegion
	}
	if dim := int64(region.Dx()) * int64(region.Dy()); dim > MaxPixels {
		return nil, region, fmt.Errorf("requested image size too large: %dx%d", region.Dx(), region.Dy())
	}
	if workers <= 0 {
		workers = DefaultWorkers
	}

	canvas := image.NewRGBA(image.Rect(0, 0, region.Dx(), region.Dy()))

	var (
		mu     sync.Mutex
		failed []FailedTile
	)
	cols := last.Col - first.Col + 1
	total := cols * (last.Row - first.Row + 1)

	for row := first.Row; row <= last.Row; row++ {
		if err := ctx.Err(); err != nil {
			return nil, region, err
		}

		jobs := make(chan tile.Address)
		var wg sync.WaitGroup
		for i := 0; i < min(workers, cols); i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for a := range jobs {
					if err := s.copyTile(ctx, a, region, canvas); err != nil {
						mu.Lock()
						failed = append(failed, FailedTile{Address: a, Err: err})
						mu.Unlock()
					}
				}
			}()
		}
		for col := first.Col; col <= last.Col; col++ {
			jobs <- tile.Address{Col: col, Row: row}
		}
		close(jobs)
		wg.Wait()
	}

	if len(failed) > 0 {
		logging.Logger().Warn("region assembly failed", "region", region.String(), "failed", len(failed), "total", total)
		return nil, region, &TileError{
			Message:         fmt.Sprintf("%d/%d tiles failed, first: %v: %v", len(failed), total, failed[0].Address, failed[0].Err),
			FailedTiles:     failed,
			SuccessfulTiles: total - len(failed),
			TotalTiles:      total,
		}
	}

	return canvas, region, nil
}

// copyTile fetches a and writes the part of it inside region to canvas.
// Distinct tiles never overlap, so concurrent copies touch disjoint pixels.
func (s *Stitcher) copyTile(ctx context.Context, a tile.Address, region image.Rectangle, canvas *image.RGBA) error {
	v, err := s.src.FetchTile(ctx, a)
	if err != nil {
		return err
	}
	defer v.Release()

	origin := v.Rect.Min.Sub(region.Min)
	tile.CopyInto(canvas, origin, v.Bytes(), v.Rect.Dx(), v.Rect.Dy())
	return nil
}

// scale resizes img by factor with bilinear interpolation.
func scale(img *image.RGBA, factor float64) (*image.RGBA, error) {
	w := int(float64(img.Rect.Dx())*factor + 0.5)
	h := int(float64(img.Rect.Dy())*factor + 0.5)
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("scale %g leaves no pixels of %dx%d region", factor, img.Rect.Dx(), img.Rect.Dy())
	}
	if int64(w)*int64(h) > MaxPixels {
		return nil, fmt.Errorf("scaled image size too large: %dx%d", w, h)
	}

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.ApproxBiLinear.Scale(dst, dst.Rect, img, img.Rect, draw.Src, nil)
	return dst, nil
}

// generateWorldFile generates world file data
func generateWorldFile(px, py, minx, maxy float64) []byte {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "%24.10f\n", px)
	fmt.Fprintf(&buf, "%24.10f\n", 0.0)
	fmt.Fprintf(&buf, "%24.10f\n", 0.0)
	fmt.Fprintf(&buf, "%24.10f\n", -py)
	fmt.Fprintf(&buf, "%24.10f\n", minx)
	fmt.Fprintf(&buf, "%24.10f\n", maxy)
	return buf.Bytes()
}
