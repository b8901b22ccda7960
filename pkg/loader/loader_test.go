package loader

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/kiesman99/rasterpipe/pkg/raster"
	"github.com/kiesman99/rasterpipe/pkg/raster/rastertest"
	"github.com/kiesman99/rasterpipe/pkg/tile"
	"github.com/kiesman99/rasterpipe/pkg/tilecache"
)

func syntheticLoader(datasets map[string]*rastertest.Dataset) *Loader {
	return New(Options{
		Drivers: []raster.Driver{&rastertest.Driver{Datasets: datasets}},
	})
}

func TestEndToEnd(t *testing.T) {
	ds := rastertest.New(128, 128, 3, 32, 32)
	l := syntheticLoader(map[string]*rastertest.Dataset{"scene": ds})

	img, err := l.Open("scene")
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer img.Close()

	m := img.Meta()
	if m.Width != 128 || m.Height != 128 || m.Bands != 3 {
		t.Errorf("unexpected meta %+v", m)
	}
	if tw, th := img.TileGeometry(); tw != 32 || th != 32 {
		t.Errorf("expected 32x32 tiles, got %dx%d", tw, th)
	}

	rect := image.Rect(32, 32, 64, 64)
	v, err := img.Fetch(context.Background(), rect)
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if len(v.Bytes()) != 3072 {
		t.Errorf("expected 3072 bytes, got %d", len(v.Bytes()))
	}
	if !bytes.Equal(v.Bytes(), ds.Expected(rect)) {
		t.Error("tile pixels do not match source")
	}
	v.Release()

	reads := ds.Reads()
	v, err = img.Fetch(context.Background(), rect)
	if err != nil {
		t.Fatalf("second Fetch failed: %v", err)
	}
	v.Release()
	if ds.Reads() != reads {
		t.Errorf("second fetch read the source again: %d -> %d reads", reads, ds.Reads())
	}

	s := img.Stats()
	if s.Misses != 1 || s.Hits != 1 || s.Capacity != 8 {
		t.Errorf("unexpected stats %+v", s)
	}
}

func TestConcurrentTileReads(t *testing.T) {
	ds := rastertest.New(128, 128, 3, 32, 32)
	l := syntheticLoader(map[string]*rastertest.Dataset{"scene": ds})

	img, err := l.Open("scene")
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer img.Close()

	g := img.Grid()
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		for row := 0; row < g.Rows(); row++ {
			for col := 0; col < g.Cols(); col++ {
				wg.Add(1)
				go func(a tile.Address) {
					defer wg.Done()
					v, err := img.FetchTile(context.Background(), a)
					if err != nil {
						t.Errorf("FetchTile(%v) failed: %v", a, err)
						return
					}
					defer v.Release()
					if !bytes.Equal(v.Bytes(), ds.Expected(v.Rect)) {
						t.Errorf("tile %v does not match source", a)
					}
				}(tile.Address{Col: col, Row: row})
			}
		}
	}
	wg.Wait()

	if ds.MaxInFlight() != 1 {
		t.Errorf("expected serialized source reads, saw %d at once", ds.MaxInFlight())
	}
	// Each read is one band of one decode; tiles may be evicted and
	// decoded again, but every decode reads exactly three bands.
	if ds.Reads()%3 != 0 || ds.Reads() < 16*3 {
		t.Errorf("unexpected read count %d", ds.Reads())
	}
}

func TestProbe(t *testing.T) {
	ds := rastertest.New(16, 16, 1, 16, 16)
	l := syntheticLoader(map[string]*rastertest.Dataset{"gray": ds})

	// Probe only asks whether a driver opens the source.
	if !l.Probe("gray") {
		t.Error("expected probe to accept gray")
	}
	if ds.Closes() != 1 {
		t.Errorf("expected probe to close the dataset, got %d closes", ds.Closes())
	}
	if l.Probe("unknown") {
		t.Error("expected probe to reject unknown identifier")
	}
}

func TestReadHeaderErrors(t *testing.T) {
	deep := rastertest.New(16, 16, 3, 16, 16)
	deep.Type = raster.Int16
	datasets := map[string]*rastertest.Dataset{
		"gray": rastertest.New(16, 16, 1, 16, 16),
		"deep": deep,
	}
	l := syntheticLoader(datasets)

	testCases := []struct {
		id      string
		wantErr error
	}{
		{"gray", raster.ErrMissingBand},
		{"deep", raster.ErrUnsupportedPixelDepth},
		{"unknown", raster.ErrUnsupportedFormat},
	}

	for _, tc := range testCases {
		t.Run(tc.id, func(t *testing.T) {
			if _, err := l.ReadHeader(tc.id); !errors.Is(err, tc.wantErr) {
				t.Errorf("expected %v, got %v", tc.wantErr, err)
			}
			if _, err := l.Open(tc.id); !errors.Is(err, tc.wantErr) {
				t.Errorf("Open: expected %v, got %v", tc.wantErr, err)
			}
		})
	}

	for id, ds := range datasets {
		if ds.Closes() != 2 {
			t.Errorf("%s: expected 2 closes, got %d", id, ds.Closes())
		}
	}
}

func TestGrayscaleBandMap(t *testing.T) {
	ds := rastertest.New(16, 16, 1, 16, 16)
	l := New(Options{
		Drivers: []raster.Driver{&rastertest.Driver{Datasets: map[string]*rastertest.Dataset{"gray": ds}}},
		BandMap: []int{0, 0, 0},
	})

	m, err := l.ReadHeader("gray")
	if err != nil {
		t.Fatalf("ReadHeader failed: %v", err)
	}
	if m.Bands != 3 || m.SourceBands != 1 {
		t.Errorf("unexpected meta %+v", m)
	}
}

func TestReadErrorSurfaces(t *testing.T) {
	ds := rastertest.New(64, 64, 3, 32, 32)
	ds.Fail = func(band int, r image.Rectangle) error {
		if r.Min.X == 32 {
			return errors.New("bad sector")
		}
		return nil
	}
	l := syntheticLoader(map[string]*rastertest.Dataset{"scene": ds})

	img, err := l.Open("scene")
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer img.Close()

	if _, err := img.FetchTile(context.Background(), tile.Address{Col: 1}); !errors.Is(err, raster.ErrIORead) {
		t.Errorf("expected ErrIORead, got %v", err)
	}
	v, err := img.FetchTile(context.Background(), tile.Address{Col: 0})
	if err != nil {
		t.Fatalf("healthy tile failed: %v", err)
	}
	v.Release()
}

func TestCloseIsIdempotent(t *testing.T) {
	ds := rastertest.New(32, 32, 3, 16, 16)
	l := syntheticLoader(map[string]*rastertest.Dataset{"scene": ds})

	img, err := l.Open("scene")
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	img.Close()
	img.Close()

	if ds.Closes() != 1 {
		t.Errorf("expected one close, got %d", ds.Closes())
	}
	if _, err := img.FetchTile(context.Background(), tile.Address{}); !errors.Is(err, tilecache.ErrClosed) {
		t.Errorf("expected ErrClosed, got %v", err)
	}
}

func TestPNGFile(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 70, 50))
	for y := 0; y < 50; y++ {
		for x := 0; x < 70; x++ {
			src.SetNRGBA(x, y, color.NRGBA{R: uint8(x), G: uint8(y), B: 200, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, src); err != nil {
		t.Fatalf("Failed to encode PNG: %v", err)
	}
	path := filepath.Join(t.TempDir(), "scene.png")
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("Failed to write PNG: %v", err)
	}

	l := New(Options{BlockSize: 32})
	if !l.Probe(path) {
		t.Fatal("expected probe to accept PNG")
	}

	img, err := l.Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer img.Close()

	if m := img.Meta(); m.Driver != "png" || m.Width != 70 || m.Height != 50 {
		t.Errorf("unexpected meta %+v", m)
	}

	v, err := img.FetchTile(context.Background(), tile.Address{Col: 2, Row: 1})
	if err != nil {
		t.Fatalf("FetchTile failed: %v", err)
	}
	defer v.Release()

	if v.Rect != image.Rect(64, 32, 70, 50) {
		t.Errorf("expected clipped edge tile, got %v", v.Rect)
	}
	if r, g, b := v.Pixel(69, 49); r != 69 || g != 49 || b != 200 {
		t.Errorf("expected 69,49,200, got %d,%d,%d", r, g, b)
	}
}
