package drivers

import (
	"image"
	"image/png"
	"io"

	"github.com/gen2brain/jpegn"
	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
	"golang.org/x/image/webp"

	"github.com/kiesman99/rasterpipe/pkg/raster"
)

// NewPNG returns the PNG driver.
func NewPNG(blockSize int) raster.Driver {
	return &imageDriver{
		format: imageFormat{
			name:         "png",
			magic:        [][]byte{[]byte("\x89PNG\r\n\x1a\n")},
			decodeConfig: png.DecodeConfig,
			decode:       png.Decode,
		},
		blockSize: blockSize,
	}
}

// NewTIFF returns the TIFF driver (classic little- and big-endian TIFF).
func NewTIFF(blockSize int) raster.Driver {
	return &imageDriver{
		format: imageFormat{
			name:         "tiff",
			magic:        [][]byte{[]byte("II*\x00"), []byte("MM\x00*")},
			decodeConfig: tiff.DecodeConfig,
			decode:       tiff.Decode,
		},
		blockSize: blockSize,
	}
}

// NewBMP returns the BMP driver.
func NewBMP(blockSize int) raster.Driver {
	return &imageDriver{
		format: imageFormat{
			name:         "bmp",
			magic:        [][]byte{[]byte("BM????\x00\x00\x00\x00")},
			decodeConfig: bmp.DecodeConfig,
			decode:       bmp.Decode,
		},
		blockSize: blockSize,
	}
}

// NewWebP returns the WebP driver.
func NewWebP(blockSize int) raster.Driver {
	return &imageDriver{
		format: imageFormat{
			name:         "webp",
			magic:        [][]byte{[]byte("RIFF????WEBPVP8")},
			decodeConfig: webp.DecodeConfig,
			decode:       webp.Decode,
		},
		blockSize: blockSize,
	}
}

// NewJPEG returns the JPEG driver.
func NewJPEG(blockSize int) raster.Driver {
	return &imageDriver{
		format: imageFormat{
			name:         "jpeg",
			magic:        [][]byte{[]byte("\xff\xd8\xff")},
			decodeConfig: jpegn.DecodeConfig,
			decode: func(r io.Reader) (image.Image, error) {
				return jpegn.Decode(r, &jpegn.Options{ToRGBA: true})
			},
		},
		blockSize: blockSize,
	}
}
