package drivers

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/mrjoshuak/go-jpeg2000"
	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"

	"github.com/kiesman99/rasterpipe/pkg/raster"
)

// testRGBA returns an opaque image whose channels encode their position.
func testRGBA(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: uint8(x + y), A: 255})
		}
	}
	return img
}

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("Failed to write fixture: %v", err)
	}
	return path
}

func encodeFixture(t *testing.T, name string, encode func(*bytes.Buffer) error) string {
	t.Helper()
	var buf bytes.Buffer
	if err := encode(&buf); err != nil {
		t.Fatalf("Failed to encode %s: %v", name, err)
	}
	return writeFile(t, name, buf.Bytes())
}

func readBand(t *testing.T, ds raster.Dataset, band int, r image.Rectangle) []byte {
	t.Helper()
	b, err := ds.Band(band)
	if err != nil {
		t.Fatalf("Band(%d) failed: %v", band, err)
	}
	dst := make([]byte, r.Dx()*r.Dy())
	n, err := b.ReadBlock(r, dst)
	if err != nil {
		t.Fatalf("ReadBlock(%v) failed: %v", r, err)
	}
	if n != len(dst) {
		t.Fatalf("expected %d pixels, got %d", len(dst), n)
	}
	return dst
}

func TestLosslessFormats(t *testing.T) {
	img := testRGBA(70, 50)

	testCases := []struct {
		name   string
		driver string
		encode func(*bytes.Buffer) error
	}{
		{"tile.png", "png", func(b *bytes.Buffer) error { return png.Encode(b, img) }},
		{"tile.bmp", "bmp", func(b *bytes.Buffer) error { return bmp.Encode(b, img) }},
		{"tile.tif", "tiff", func(b *bytes.Buffer) error { return tiff.Encode(b, img, nil) }},
	}

	reg := Default(32)

	for _, tc := range testCases {
		t.Run(tc.driver, func(t *testing.T) {
			path := encodeFixture(t, tc.name, tc.encode)

			ds, name, err := reg.Open(path)
			if err != nil {
				t.Fatalf("Open failed: %v", err)
			}
			defer ds.Close()

			if name != tc.driver {
				t.Errorf("expected driver %s, got %s", tc.driver, name)
			}

			w, h := ds.Size()
			if w != 70 || h != 50 {
				t.Errorf("expected 70x50, got %dx%d", w, h)
			}
			if ds.BandCount() < 3 {
				t.Fatalf("expected at least 3 bands, got %d", ds.BandCount())
			}

			b, _ := ds.Band(0)
			if bw, bh := b.BlockSize(); bw != 32 || bh != 32 {
				t.Errorf("expected 32x32 blocks, got %dx%d", bw, bh)
			}
			if b.SampleType() != raster.Byte {
				t.Errorf("expected uint8 samples, got %s", b.SampleType())
			}

			// Edge block: 70-64 = 6 columns wide.
			r := image.Rect(64, 32, 70, 50)
			red := readBand(t, ds, 0, r)
			green := readBand(t, ds, 1, r)
			blue := readBand(t, ds, 2, r)
			for i := range red {
				x := r.Min.X + i%r.Dx()
				y := r.Min.Y + i/r.Dx()
				if red[i] != uint8(x) || green[i] != uint8(y) || blue[i] != uint8(x+y) {
					t.Fatalf("pixel %d,%d: got %d,%d,%d", x, y, red[i], green[i], blue[i])
				}
			}
		})
	}
}

func TestGrayAndDeepPNG(t *testing.T) {
	gray := image.NewGray(image.Rect(0, 0, 8, 8))
	for i := range gray.Pix {
		gray.Pix[i] = uint8(i)
	}
	path := encodeFixture(t, "gray.png", func(b *bytes.Buffer) error { return png.Encode(b, gray) })

	ds, err := NewPNG(4).Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if ds.BandCount() != 1 {
		t.Fatalf("expected 1 band, got %d", ds.BandCount())
	}
	got := readBand(t, ds, 0, image.Rect(4, 4, 8, 8))
	if got[0] != 36 || got[15] != 63 {
		t.Errorf("unexpected gray samples: %v", got)
	}
	if _, err := ds.Band(1); !errors.Is(err, raster.ErrMissingBand) {
		t.Errorf("expected ErrMissingBand for band 1, got %v", err)
	}

	deep := image.NewGray16(image.Rect(0, 0, 8, 8))
	path = encodeFixture(t, "deep.png", func(b *bytes.Buffer) error { return png.Encode(b, deep) })

	ds, err = NewPNG(4).Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	b, _ := ds.Band(0)
	if b.SampleType() != raster.UInt16 {
		t.Errorf("expected uint16 samples, got %s", b.SampleType())
	}
	if _, err := b.ReadBlock(image.Rect(0, 0, 4, 4), make([]byte, 16)); !errors.Is(err, raster.ErrUnsupportedPixelDepth) {
		t.Errorf("expected ErrUnsupportedPixelDepth, got %v", err)
	}
}

func TestJPEG(t *testing.T) {
	path := encodeFixture(t, "photo.jpg", func(b *bytes.Buffer) error {
		return jpeg.Encode(b, testRGBA(40, 24), &jpeg.Options{Quality: 90})
	})

	ds, name, err := Default(16).Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer ds.Close()

	if name != "jpeg" {
		t.Errorf("expected jpeg driver, got %s", name)
	}
	if w, h := ds.Size(); w != 40 || h != 24 {
		t.Errorf("expected 40x24, got %dx%d", w, h)
	}
	if ds.BandCount() != 3 {
		t.Errorf("expected 3 bands, got %d", ds.BandCount())
	}
	readBand(t, ds, 2, image.Rect(32, 16, 40, 24))
}

func TestJP2(t *testing.T) {
	opts := jpeg2000.DefaultOptions()
	opts.Lossless = true
	opts.NumResolutions = 3
	path := encodeFixture(t, "tile.jp2", func(b *bytes.Buffer) error {
		return jpeg2000.Encode(b, testRGBA(64, 64), opts)
	})

	ds, name, err := Default(16).Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer ds.Close()

	if name != "jp2" {
		t.Errorf("expected jp2 driver, got %s", name)
	}
	if w, h := ds.Size(); w != 64 || h != 64 {
		t.Errorf("expected 64x64, got %dx%d", w, h)
	}
	if ds.BandCount() < 3 {
		t.Fatalf("expected at least 3 bands, got %d", ds.BandCount())
	}
	b, _ := ds.Band(0)
	if b.SampleType() != raster.Byte {
		t.Errorf("expected uint8 samples, got %s", b.SampleType())
	}
	// Single-tile codestream falls back to the virtual block size.
	if bw, bh := b.BlockSize(); bw != 16 || bh != 16 {
		t.Errorf("expected 16x16 blocks, got %dx%d", bw, bh)
	}
}

func TestUnsupportedInput(t *testing.T) {
	reg := Default(0)

	path := writeFile(t, "notes.txt", []byte("definitely not a raster"))
	if _, _, err := reg.Open(path); !errors.Is(err, raster.ErrUnsupportedFormat) {
		t.Errorf("expected ErrUnsupportedFormat for text file, got %v", err)
	}

	if _, _, err := reg.Open(filepath.Join(t.TempDir(), "missing.png")); !errors.Is(err, raster.ErrUnsupportedFormat) {
		t.Errorf("expected ErrUnsupportedFormat for missing file, got %v", err)
	}

	// Right magic, broken body.
	path = writeFile(t, "broken.png", []byte("\x89PNG\r\n\x1a\ngarbage"))
	if _, _, err := reg.Open(path); !errors.Is(err, raster.ErrUnsupportedFormat) {
		t.Errorf("expected ErrUnsupportedFormat for broken png, got %v", err)
	}
}

func TestRegistryOrder(t *testing.T) {
	reg := Default(0)
	want := []string{"jp2", "tiff", "png", "jpeg", "webp", "bmp"}
	got := reg.Names()
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("driver %d: expected %s, got %s", i, want[i], got[i])
		}
	}
}

func TestClosedDatasetRejectsReads(t *testing.T) {
	path := encodeFixture(t, "closed.png", func(b *bytes.Buffer) error { return png.Encode(b, testRGBA(4, 4)) })

	ds, err := NewPNG(4).Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	b, _ := ds.Band(0)
	ds.Close()

	if _, err := b.ReadBlock(image.Rect(0, 0, 4, 4), make([]byte, 16)); err == nil {
		t.Error("expected read after close to fail")
	}
}
