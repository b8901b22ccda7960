// Package raster defines the boundary between the tile pipeline and the
// block-oriented raster sources it reads from.
//
// A Driver opens an identifier (usually a file path) into a Dataset. A
// Dataset exposes its pixel geometry and a list of bands; each Band reports
// its native block size and sample type and can read any rectangle of the
// raster at native resolution.
//
// Datasets are not safe for concurrent use. The tile cache serializes every
// call into a dataset, so drivers need no locking of their own.
package raster

import (
	"image"
)

// SampleType identifies the storage type of one band sample.
type SampleType int

// Sample types known to the drivers. Only Byte can be decoded by the pipeline.
const (
	Unknown SampleType = iota
	Byte
	UInt16
	Int16
	UInt32
	Int32
	Float32
	Float64
)

var sampleTypeNames = [...]string{
	Unknown: "unknown",
	Byte:    "uint8",
	UInt16:  "uint16",
	Int16:   "int16",
	UInt32:  "uint32",
	Int32:   "int32",
	Float32: "float32",
	Float64: "float64",
}

// String returns the lower-case name of the sample type.
func (t SampleType) String() string {
	if t < 0 || int(t) >= len(sampleTypeNames) {
		return sampleTypeNames[Unknown]
	}
	return sampleTypeNames[t]
}

// Bits returns the size of one sample in bits, or 0 for Unknown.
func (t SampleType) Bits() int {
	switch t {
	case Byte:
		return 8
	case UInt16, Int16:
		return 16
	case UInt32, Int32, Float32:
		return 32
	case Float64:
		return 64
	}
	return 0
}

// Band is one channel plane of a dataset.
type Band interface {
	// BlockSize returns the native block (tile) size of the band.
	BlockSize() (width, height int)

	// SampleType returns the storage type of the band's samples.
	SampleType() SampleType

	// ReadBlock copies rect, read 1:1 at native resolution, into dst as
	// row-major 8-bit samples and returns the number of pixels written.
	// A result smaller than rect.Dx()*rect.Dy() is an incomplete read.
	ReadBlock(rect image.Rectangle, dst []byte) (int, error)
}

// Dataset is an open raster source.
type Dataset interface {
	// Size returns the raster size in pixels.
	Size() (width, height int)

	// BandCount returns the number of bands.
	BandCount() int

	// Band returns the band at the 0-based index i.
	Band(i int) (Band, error)

	// Close releases the dataset.
	Close() error
}

// Driver opens datasets of one format.
type Driver interface {
	// Name returns a short format name such as "png" or "jp2".
	Name() string

	// Open opens identifier. It returns an error wrapping
	// ErrUnsupportedFormat when the identifier is not in the driver's format.
	Open(identifier string) (Dataset, error)
}
