package tile

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"os"
)

// ToRGBA converts packed interleaved 3-channel pixels of a width x height
// tile into an opaque RGBA image.
func ToRGBA(pix []byte, width, height int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	CopyInto(img, image.Point{}, pix, width, height)
	return img
}

// CopyInto writes packed interleaved pixels of a width x height tile into
// dst with the tile's origin at p. Pixels falling outside dst are skipped.
func CopyInto(dst *image.RGBA, p image.Point, pix []byte, width, height int) {
	area := image.Rect(p.X, p.Y, p.X+width, p.Y+height).Intersect(dst.Rect)
	for y := area.Min.Y; y < area.Max.Y; y++ {
		src := pix[((y-p.Y)*width+(area.Min.X-p.X))*Bands:]
		off := dst.PixOffset(area.Min.X, y)
		row := dst.Pix[off : off+area.Dx()*4]
		for i := 0; i < area.Dx(); i++ {
			row[i*4] = src[i*Bands]
			row[i*4+1] = src[i*Bands+1]
			row[i*4+2] = src[i*Bands+2]
			row[i*4+3] = 255
		}
	}
}

// Interleaved returns the pixels of img packed as 3-channel bytes, dropping
// alpha.
func Interleaved(img *image.RGBA) []byte {
	b := img.Bounds()
	out := make([]byte, 0, b.Dx()*b.Dy()*Bands)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		off := img.PixOffset(b.Min.X, y)
		row := img.Pix[off : off+b.Dx()*4]
		for i := 0; i < len(row); i += 4 {
			out = append(out, row[i], row[i+1], row[i+2])
		}
	}
	return out
}

// Encode encodes img in the given output format.
func Encode(img *image.RGBA, format, quality int) ([]byte, error) {
	var output bytes.Buffer

	switch format {
	case FormatPNG:
		if err := png.Encode(&output, img); err != nil {
			return nil, err
		}
	case FormatJPEG:
		if quality <= 0 {
			quality = jpeg.DefaultQuality
		}
		if err := jpeg.Encode(&output, img, &jpeg.Options{Quality: quality}); err != nil {
			return nil, err
		}
	case FormatRaw:
		return Interleaved(img), nil
	default:
		return nil, fmt.Errorf("unknown output format %d", format)
	}

	return output.Bytes(), nil
}

// ContentType returns the MIME type of an output format.
func ContentType(format int) string {
	switch format {
	case FormatJPEG:
		return "image/jpeg"
	case FormatRaw:
		return "application/octet-stream"
	default:
		return "image/png"
	}
}

// WriteOutput writes encoded image data to filename, or to stdout when
// filename is empty.
func WriteOutput(filename string, data []byte) error {
	var output io.Writer

	if filename == "" {
		output = os.Stdout
	} else {
		file, err := os.Create(filename)
		if err != nil {
			return err
		}
		defer file.Close()
		output = file
	}

	_, err := output.Write(data)
	return err
}
