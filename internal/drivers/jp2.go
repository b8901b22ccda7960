package drivers

import (
	"fmt"
	"image"
	"os"

	"github.com/mrjoshuak/go-jpeg2000"

	"github.com/kiesman99/rasterpipe/pkg/raster"
)

var (
	jp2Magic = []byte("\x00\x00\x00\x0cjP  \r\n\x87\n")
	j2kMagic = []byte("\xff\x4f\xff\x51")
)

// jp2Driver opens JPEG 2000 files, both the JP2 container and raw J2K
// codestreams. The codestream tile grid becomes the block size.
type jp2Driver struct {
	blockSize int
}

// NewJP2 returns the JPEG 2000 driver. blockSize is used when the
// codestream is a single tile covering the whole image.
func NewJP2(blockSize int) raster.Driver {
	return &jp2Driver{blockSize: blockSize}
}

func (d *jp2Driver) Name() string { return "jp2" }

func (d *jp2Driver) Open(identifier string) (raster.Dataset, error) {
	f, err := openSniffed(identifier, [][]byte{jp2Magic, j2kMagic})
	if err != nil {
		return nil, err
	}
	defer f.Close()

	md, err := jpeg2000.DecodeMetadata(f)
	if err != nil {
		return nil, fmt.Errorf("read jp2 header: %w", err)
	}
	if md.Width <= 0 || md.Height <= 0 {
		return nil, fmt.Errorf("jp2 header reports %dx%d image", md.Width, md.Height)
	}

	types := make([]raster.SampleType, md.NumComponents)
	for i := range types {
		types[i] = componentType(md.BitsPerComponent[i], md.Signed[i])
	}

	tw, th := d.tileSize(md)

	return &decodedDataset{
		width:       md.Width,
		height:      md.Height,
		types:       types,
		blockWidth:  tw,
		blockHeight: th,
		load: func() (image.Image, error) {
			f, err := os.Open(identifier)
			if err != nil {
				return nil, err
			}
			defer f.Close()
			return jpeg2000.Decode(f)
		},
	}, nil
}

// tileSize returns the codestream tile size clipped to the image, or a
// virtual block when the codestream is not tiled.
func (d *jp2Driver) tileSize(md *jpeg2000.Metadata) (int, int) {
	tw, th := md.TileWidth, md.TileHeight
	if tw <= 0 || th <= 0 || (tw >= md.Width && th >= md.Height) {
		tw, th = d.blockSize, d.blockSize
	}
	return min(tw, md.Width), min(th, md.Height)
}

// componentType maps a component's precision and signedness to a sample
// type.
func componentType(bits int, signed bool) raster.SampleType {
	switch {
	case bits <= 0:
		return raster.Unknown
	case bits <= 8 && !signed:
		return raster.Byte
	case bits <= 16 && !signed:
		return raster.UInt16
	case bits <= 16:
		return raster.Int16
	case !signed:
		return raster.UInt32
	}
	return raster.Int32
}
