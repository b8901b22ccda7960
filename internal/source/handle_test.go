package source

import (
	"errors"
	"testing"

	"github.com/kiesman99/rasterpipe/pkg/raster"
	"github.com/kiesman99/rasterpipe/pkg/raster/rastertest"
)

func opener(datasets map[string]*rastertest.Dataset) Opener {
	return registryFunc(func(id string) (raster.Dataset, string, error) {
		d := &rastertest.Driver{Datasets: datasets}
		ds, err := d.Open(id)
		return ds, d.Name(), err
	})
}

type registryFunc func(string) (raster.Dataset, string, error)

func (f registryFunc) Open(id string) (raster.Dataset, string, error) { return f(id) }

func TestOpenPublishesGeometry(t *testing.T) {
	ds := rastertest.New(100, 80, 4, 64, 16)
	h, err := Open(opener(map[string]*rastertest.Dataset{"a": ds}), "a", nil)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer h.Close()

	if w, ht := h.Size(); w != 100 || ht != 80 {
		t.Errorf("expected 100x80, got %dx%d", w, ht)
	}
	if tw, th := h.TileSize(); tw != 64 || th != 16 {
		t.Errorf("expected 64x16 tiles, got %dx%d", tw, th)
	}
	if h.BandCount() != 4 || h.Channels() != 3 {
		t.Errorf("expected 4 source bands and 3 channels, got %d and %d", h.BandCount(), h.Channels())
	}

	m := h.Meta()
	if m.Width != 100 || m.Height != 80 || m.Bands != 3 {
		t.Errorf("unexpected meta %+v", m)
	}
	if m.XRes != 1.0 || m.YRes != 1.0 || m.Format != "uchar" || !m.Partial {
		t.Errorf("unexpected meta defaults %+v", m)
	}
	if m.Driver != "synthetic" || m.SampleType != "uint8" {
		t.Errorf("unexpected driver or sample type %+v", m)
	}
}

func TestOpenValidation(t *testing.T) {
	twoBands := rastertest.New(32, 32, 2, 16, 16)
	noBands := rastertest.New(32, 32, 0, 16, 16)
	deep := rastertest.New(32, 32, 3, 16, 16)
	deep.Type = raster.UInt16
	noGrid := rastertest.New(32, 32, 3, 0, 16)
	gray := rastertest.New(32, 32, 1, 16, 16)

	datasets := map[string]*rastertest.Dataset{
		"two":    twoBands,
		"none":   noBands,
		"deep":   deep,
		"nogrid": noGrid,
		"gray":   gray,
	}

	testCases := []struct {
		name    string
		id      string
		bandMap []int
		wantErr error
	}{
		{"unknown identifier", "missing", nil, raster.ErrUnsupportedFormat},
		{"fewer than three bands", "two", nil, raster.ErrMissingBand},
		{"no bands", "none", nil, raster.ErrMissingBand},
		{"sixteen bit", "deep", nil, raster.ErrUnsupportedPixelDepth},
		{"no block grid", "nogrid", nil, raster.ErrUnsupportedFormat},
		{"band map past end", "gray", []int{0, 0, 1}, raster.ErrMissingBand},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Open(opener(datasets), tc.id, tc.bandMap)
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("expected %v, got %v", tc.wantErr, err)
			}
		})
	}

	// Every dataset that was opened and rejected must have been closed.
	for id, ds := range datasets {
		if ds.Closes() != 1 {
			t.Errorf("dataset %s: expected 1 close, got %d", id, ds.Closes())
		}
	}
}

func TestGrayBandMap(t *testing.T) {
	gray := rastertest.New(16, 16, 1, 8, 8)
	h, err := Open(opener(map[string]*rastertest.Dataset{"g": gray}), "g", []int{0, 0, 0})
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer h.Close()

	for c := 0; c < h.Channels(); c++ {
		if h.SourceBand(c) != 0 {
			t.Errorf("channel %d: expected band 0, got %d", c, h.SourceBand(c))
		}
	}
}

func TestBandMapLength(t *testing.T) {
	ds := rastertest.New(16, 16, 3, 8, 8)
	if _, err := Open(opener(map[string]*rastertest.Dataset{"a": ds}), "a", []int{0, 1}); err == nil {
		t.Fatal("expected short band map to fail")
	}
	if ds.Closes() != 0 {
		t.Errorf("band map is checked before opening, got %d closes", ds.Closes())
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	ds := rastertest.New(16, 16, 3, 8, 8)
	h, err := Open(opener(map[string]*rastertest.Dataset{"a": ds}), "a", nil)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	for i := 0; i < 3; i++ {
		if err := h.Close(); err != nil {
			t.Errorf("Close %d failed: %v", i, err)
		}
	}
	if ds.Closes() != 1 {
		t.Errorf("expected dataset closed once, got %d", ds.Closes())
	}
}
