package raster

import (
	"errors"
	"fmt"
	"image"
)

// Error kinds surfaced by the pipeline.
var (
	// ErrUnsupportedFormat means no driver could open the source.
	ErrUnsupportedFormat = errors.New("unsupported raster format")

	// ErrMissingBand means the source has fewer bands than the output needs.
	ErrMissingBand = errors.New("missing raster band")

	// ErrUnsupportedPixelDepth means a band is not 8-bit unsigned.
	ErrUnsupportedPixelDepth = errors.New("unsupported pixel depth")

	// ErrIORead means a block read failed or returned too few pixels.
	// Every *ReadError matches it with errors.Is.
	ErrIORead = errors.New("raster block read failed")
)

// ReadError describes a failed or incomplete block read.
type ReadError struct {
	Rect image.Rectangle
	Band int
	Got  int
	Want int
	Err  error
}

func (e *ReadError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("read band %d at %v: %v", e.Band, e.Rect, e.Err)
	}
	return fmt.Sprintf("read band %d at %v: short read, got %d of %d pixels",
		e.Band, e.Rect, e.Got, e.Want)
}

func (e *ReadError) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrIORead.
func (e *ReadError) Is(target error) bool {
	return target == ErrIORead
}
