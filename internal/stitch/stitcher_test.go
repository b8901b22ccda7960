package stitch

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"strings"
	"testing"

	"github.com/kiesman99/rasterpipe/pkg/loader"
	"github.com/kiesman99/rasterpipe/pkg/raster"
	"github.com/kiesman99/rasterpipe/pkg/raster/rastertest"
)

func openSynthetic(t *testing.T, ds *rastertest.Dataset) *loader.Image {
	t.Helper()
	l := loader.New(loader.Options{
		Drivers: []raster.Driver{&rastertest.Driver{Datasets: map[string]*rastertest.Dataset{"scene": ds}}},
	})
	img, err := l.Open("scene")
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { img.Close() })
	return img
}

func checkCanvas(t *testing.T, canvas *image.RGBA, region image.Rectangle) {
	t.Helper()
	for y := 0; y < canvas.Rect.Dy(); y++ {
		for x := 0; x < canvas.Rect.Dx(); x++ {
			c := canvas.RGBAAt(x, y)
			sx, sy := region.Min.X+x, region.Min.Y+y
			if c.R != rastertest.Pattern(0, sx, sy) || c.G != rastertest.Pattern(1, sx, sy) ||
				c.B != rastertest.Pattern(2, sx, sy) || c.A != 255 {
				t.Fatalf("pixel %d,%d (source %d,%d): got %v", x, y, sx, sy, c)
			}
		}
	}
}

func TestAssembleWholeImage(t *testing.T) {
	ds := rastertest.New(128, 128, 3, 32, 32)
	s := New(openSynthetic(t, ds))

	canvas, region, err := s.Assemble(context.Background(), image.Rectangle{}, 3)
	if err != nil {
		t.Fatalf("Assemble failed: %v", err)
	}
	if region != image.Rect(0, 0, 128, 128) {
		t.Errorf("expected whole image region, got %v", region)
	}
	checkCanvas(t, canvas, region)

	// Row-ordered assembly decodes every tile exactly once.
	if ds.Reads() != 16*3 {
		t.Errorf("expected %d reads, got %d", 16*3, ds.Reads())
	}
}

func TestAssembleRegion(t *testing.T) {
	testCases := []struct {
		name   string
		region image.Rectangle
		want   image.Rectangle
	}{
		{"inside one tile", image.Rect(4, 4, 20, 20), image.Rect(4, 4, 20, 20)},
		{"across tiles", image.Rect(10, 10, 70, 50), image.Rect(10, 10, 70, 50)},
		{"clipped at edge", image.Rect(90, 90, 200, 200), image.Rect(90, 90, 100, 100)},
		{"reversed corners", image.Rect(70, 50, 10, 10), image.Rect(10, 10, 70, 50)},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			s := New(openSynthetic(t, rastertest.New(100, 100, 3, 32, 32)))

			canvas, region, err := s.Assemble(context.Background(), tc.region, 2)
			if err != nil {
				t.Fatalf("Assemble failed: %v", err)
			}
			if region != tc.want {
				t.Errorf("expected region %v, got %v", tc.want, region)
			}
			if canvas.Rect.Dx() != tc.want.Dx() || canvas.Rect.Dy() != tc.want.Dy() {
				t.Errorf("expected %dx%d canvas, got %v", tc.want.Dx(), tc.want.Dy(), canvas.Rect)
			}
			checkCanvas(t, canvas, region)
		})
	}
}

func TestAssembleEmptyRegion(t *testing.T) {
	s := New(openSynthetic(t, rastertest.New(64, 64, 3, 32, 32)))

	if _, _, err := s.Assemble(context.Background(), image.Rect(100, 100, 120, 120), 1); !errors.Is(err, ErrEmptyRegion) {
		t.Errorf("expected ErrEmptyRegion, got %v", err)
	}
}

func TestAssembleReportsFailedTiles(t *testing.T) {
	ds := rastertest.New(64, 64, 3, 32, 32)
	ds.Fail = func(band int, r image.Rectangle) error {
		if r.Min == image.Pt(32, 32) {
			return errors.New("bad block")
		}
		return nil
	}
	s := New(openSynthetic(t, ds))

	_, _, err := s.Assemble(context.Background(), image.Rectangle{}, 2)

	var tileErr *TileError
	if !errors.As(err, &tileErr) {
		t.Fatalf("expected *TileError, got %v", err)
	}
	if tileErr.TotalTiles != 4 || tileErr.SuccessfulTiles != 3 || len(tileErr.FailedTiles) != 1 {
		t.Errorf("unexpected tile error %+v", tileErr)
	}
	if got := tileErr.FailedTiles[0].Address.String(); got != "1/1" {
		t.Errorf("expected tile 1/1 to fail, got %s", got)
	}
	if !errors.Is(err, raster.ErrIORead) {
		t.Errorf("expected ErrIORead in chain, got %v", err)
	}
}

func TestAssembleCancelled(t *testing.T) {
	s := New(openSynthetic(t, rastertest.New(64, 64, 3, 32, 32)))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, _, err := s.Assemble(ctx, image.Rectangle{}, 1); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestStitch(t *testing.T) {
	s := New(openSynthetic(t, rastertest.New(128, 128, 3, 32, 32)))

	res, err := s.Stitch(context.Background(), &Options{
		Region:            image.Rect(0, 0, 100, 60),
		Scale:             0.5,
		GenerateWorldFile: true,
	})
	if err != nil {
		t.Fatalf("Stitch failed: %v", err)
	}

	if res.Width != 50 || res.Height != 30 {
		t.Errorf("expected 50x30 output, got %dx%d", res.Width, res.Height)
	}
	if res.PixelSizeX != 2 || res.PixelSizeY != 2 {
		t.Errorf("expected pixel size 2, got %g,%g", res.PixelSizeX, res.PixelSizeY)
	}

	img, err := png.Decode(bytes.NewReader(res.ImageData))
	if err != nil {
		t.Fatalf("output is not a PNG: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 50 || b.Dy() != 30 {
		t.Errorf("expected 50x30 PNG, got %v", b)
	}

	lines := strings.Fields(string(res.WorldFileData))
	if len(lines) != 6 || lines[0] != "2.0000000000" || lines[3] != "-2.0000000000" {
		t.Errorf("unexpected world file %q", res.WorldFileData)
	}
}

func TestStitchRejectsTinyScale(t *testing.T) {
	s := New(openSynthetic(t, rastertest.New(32, 32, 3, 32, 32)))

	if _, err := s.Stitch(context.Background(), &Options{Scale: 0.001}); err == nil {
		t.Error("expected scale that leaves no pixels to fail")
	}
}
