// Package drivers implements raster.Driver for the formats rasterpipe reads
// and the ordered registry the loader consults.
package drivers

import (
	"errors"
	"fmt"

	"github.com/kiesman99/rasterpipe/internal/logging"
	"github.com/kiesman99/rasterpipe/pkg/raster"
)

// DefaultBlockSize is the virtual block edge used by formats whose decoder
// exposes no native tile grid.
const DefaultBlockSize = 256

// Registry is an ordered list of drivers. Open tries them in order and the
// first driver that accepts the identifier wins.
type Registry struct {
	drivers []raster.Driver
}

// NewRegistry creates a registry over drivers, in priority order.
func NewRegistry(drivers ...raster.Driver) *Registry {
	return &Registry{drivers: drivers}
}

// Default returns the built-in drivers. blockSize sets the virtual block
// edge for formats without a native tile grid; <= 0 selects
// DefaultBlockSize.
func Default(blockSize int) *Registry {
	if blockSize <= 0 {
		blockSize = DefaultBlockSize
	}
	return NewRegistry(
		NewJP2(blockSize),
		NewTIFF(blockSize),
		NewPNG(blockSize),
		NewJPEG(blockSize),
		NewWebP(blockSize),
		NewBMP(blockSize),
	)
}

// Names returns the driver names in priority order.
func (r *Registry) Names() []string {
	names := make([]string, len(r.drivers))
	for i, d := range r.drivers {
		names[i] = d.Name()
	}
	return names
}

// Open opens identifier with the first driver that accepts it and returns
// the dataset together with the driver's name.
func (r *Registry) Open(identifier string) (raster.Dataset, string, error) {
	var errs []error
	for _, d := range r.drivers {
		ds, err := d.Open(identifier)
		if err == nil {
			logging.Logger().Debug("dataset opened", "identifier", identifier, "driver", d.Name())
			return ds, d.Name(), nil
		}
		if !errors.Is(err, raster.ErrUnsupportedFormat) {
			// The format matched but the data is broken.
			errs = append(errs, fmt.Errorf("%s: %w", d.Name(), err))
		}
	}

	if len(errs) > 0 {
		return nil, "", fmt.Errorf("%s: %w: %w", identifier, raster.ErrUnsupportedFormat, errors.Join(errs...))
	}
	return nil, "", fmt.Errorf("%s: %w", identifier, raster.ErrUnsupportedFormat)
}
