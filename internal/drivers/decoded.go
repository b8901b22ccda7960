package drivers

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"io"
	"os"
	"sync"

	"github.com/kiesman99/rasterpipe/pkg/raster"
)

var errClosed = errors.New("dataset closed")

// imageFormat describes a format decoded by a whole-image decoder.
type imageFormat struct {
	name         string
	magic        [][]byte
	decodeConfig func(io.Reader) (image.Config, error)
	decode       func(io.Reader) (image.Image, error)
}

// imageDriver opens imageFormat files. Geometry comes from the header; the
// pixels are decoded once, on the first block read.
type imageDriver struct {
	format    imageFormat
	blockSize int
}

func (d *imageDriver) Name() string { return d.format.name }

func (d *imageDriver) Open(identifier string) (raster.Dataset, error) {
	f, err := openSniffed(identifier, d.format.magic)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	cfg, err := d.format.decodeConfig(f)
	if err != nil {
		return nil, fmt.Errorf("read %s header: %w", d.format.name, err)
	}

	bands, sampleType := describeModel(cfg.ColorModel)
	types := make([]raster.SampleType, bands)
	for i := range types {
		types[i] = sampleType
	}

	return &decodedDataset{
		width:       cfg.Width,
		height:      cfg.Height,
		types:       types,
		blockWidth:  min(d.blockSize, cfg.Width),
		blockHeight: min(d.blockSize, cfg.Height),
		load: func() (image.Image, error) {
			f, err := os.Open(identifier)
			if err != nil {
				return nil, err
			}
			defer f.Close()
			return d.format.decode(f)
		},
	}, nil
}

// openSniffed opens path and checks that it starts with one of magic. The
// returned file is positioned at the start. A missing file or a mismatch is
// ErrUnsupportedFormat, so the registry moves on to the next driver.
func openSniffed(path string, magic [][]byte) (*os.File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", raster.ErrUnsupportedFormat, err)
	}

	longest := 0
	for _, m := range magic {
		longest = max(longest, len(m))
	}
	head := make([]byte, longest)
	n, _ := io.ReadFull(f, head)
	head = head[:n]

	matched := false
	for _, m := range magic {
		if matchMagic(head, m) {
			matched = true
			break
		}
	}
	if !matched {
		f.Close()
		return nil, raster.ErrUnsupportedFormat
	}

	if _, err := f.Seek(0, io.SeekStart); err != nil {
		f.Close()
		return nil, err
	}
	return f, nil
}

// matchMagic reports whether head starts with magic, where '?' in magic
// matches any byte.
func matchMagic(head, magic []byte) bool {
	if len(head) < len(magic) {
		return false
	}
	for i, b := range magic {
		if b != '?' && head[i] != b {
			return false
		}
	}
	return true
}

// describeModel maps a decoder's color model to a band count and sample
// type as they appear in the file.
func describeModel(m color.Model) (int, raster.SampleType) {
	if _, ok := m.(color.Palette); ok {
		// Palette entries expand to RGB.
		return 3, raster.Byte
	}

	switch m {
	case color.GrayModel:
		return 1, raster.Byte
	case color.Gray16Model:
		return 1, raster.UInt16
	case color.RGBAModel, color.NRGBAModel:
		return 4, raster.Byte
	case color.RGBA64Model, color.NRGBA64Model:
		return 4, raster.UInt16
	case color.AlphaModel:
		return 1, raster.Byte
	case color.Alpha16Model:
		return 1, raster.UInt16
	}
	// YCbCr, CMYK and anything else is delivered as 8-bit RGB.
	return 3, raster.Byte
}

// decodedDataset serves block reads from planes of a fully decoded image.
type decodedDataset struct {
	width, height           int
	types                   []raster.SampleType
	blockWidth, blockHeight int
	load                    func() (image.Image, error)

	once    sync.Once
	planes  [][]byte
	loadErr error
	closed  bool
}

func (ds *decodedDataset) Size() (int, int) { return ds.width, ds.height }

func (ds *decodedDataset) BandCount() int { return len(ds.types) }

func (ds *decodedDataset) Band(i int) (raster.Band, error) {
	if i < 0 || i >= len(ds.types) {
		return nil, fmt.Errorf("band %d of %d: %w", i, len(ds.types), raster.ErrMissingBand)
	}
	return &decodedBand{ds: ds, index: i}, nil
}

func (ds *decodedDataset) Close() error {
	ds.closed = true
	ds.planes = nil
	return nil
}

// pixels decodes the image on first use.
func (ds *decodedDataset) pixels() ([][]byte, error) {
	ds.once.Do(func() {
		img, err := ds.load()
		if err != nil {
			ds.loadErr = fmt.Errorf("decode: %w", err)
			return
		}
		b := img.Bounds()
		if b.Dx() != ds.width || b.Dy() != ds.height {
			ds.loadErr = fmt.Errorf("decoded %dx%d image, header said %dx%d",
				b.Dx(), b.Dy(), ds.width, ds.height)
			return
		}
		ds.planes = splitPlanes(img, len(ds.types))
	})
	return ds.planes, ds.loadErr
}

type decodedBand struct {
	ds    *decodedDataset
	index int
}

func (b *decodedBand) BlockSize() (int, int) {
	return b.ds.blockWidth, b.ds.blockHeight
}

func (b *decodedBand) SampleType() raster.SampleType {
	return b.ds.types[b.index]
}

func (b *decodedBand) ReadBlock(rect image.Rectangle, dst []byte) (int, error) {
	ds := b.ds
	if ds.closed {
		return 0, errClosed
	}
	if st := ds.types[b.index]; st != raster.Byte {
		return 0, fmt.Errorf("band %d is %s: %w", b.index, st, raster.ErrUnsupportedPixelDepth)
	}
	if !rect.In(image.Rect(0, 0, ds.width, ds.height)) {
		return 0, fmt.Errorf("rect %v outside %dx%d raster", rect, ds.width, ds.height)
	}

	planes, err := ds.pixels()
	if err != nil {
		return 0, err
	}

	plane := planes[b.index]
	n := 0
	for y := rect.Min.Y; y < rect.Max.Y; y++ {
		row := plane[y*ds.width+rect.Min.X : y*ds.width+rect.Max.X]
		n += copy(dst[n:], row)
	}
	return n, nil
}

// splitPlanes converts img into n row-major 8-bit planes: one gray plane
// when n is 1, otherwise R, G, B and (for n == 4) A.
func splitPlanes(img image.Image, n int) [][]byte {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()

	planes := make([][]byte, n)
	for i := range planes {
		planes[i] = make([]byte, w*h)
	}

	switch src := img.(type) {
	case *image.Gray:
		if n == 1 {
			for y := 0; y < h; y++ {
				copy(planes[0][y*w:(y+1)*w], src.Pix[y*src.Stride:])
			}
			return planes
		}
	case *image.RGBA:
		splitPacked(src.Pix, src.Stride, w, h, planes)
		return planes
	case *image.NRGBA:
		splitPacked(src.Pix, src.Stride, w, h, planes)
		return planes
	}

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			i := y*w + x
			c := img.At(b.Min.X+x, b.Min.Y+y)
			if n == 1 {
				planes[0][i] = color.GrayModel.Convert(c).(color.Gray).Y
				continue
			}
			nc := color.NRGBAModel.Convert(c).(color.NRGBA)
			px := [4]byte{nc.R, nc.G, nc.B, nc.A}
			for p := 0; p < n && p < 4; p++ {
				planes[p][i] = px[p]
			}
		}
	}
	return planes
}

// splitPacked splits 4-byte-per-pixel rows into up to four planes.
func splitPacked(pix []byte, stride, w, h int, planes [][]byte) {
	for y := 0; y < h; y++ {
		row := pix[y*stride : y*stride+w*4]
		for x := 0; x < w; x++ {
			i := y*w + x
			for p := 0; p < len(planes) && p < 4; p++ {
				planes[p][i] = row[x*4+p]
			}
		}
	}
}
