// Package grids selects a GridReader backend by name.
package grids

import (
	"fmt"

	"go.ngs.io/precip-regions/internal/adapter/store"
	"go.ngs.io/precip-regions/internal/adapter/store/native"
	"go.ngs.io/precip-regions/internal/adapter/store/netcdf"
)

// NewReader returns the "netcdf" (C library) or "native" (pure Go) reader.
func NewReader(kind string) (store.GridReader, error) {
	switch kind {
	case "", "netcdf":
		return netcdf.NewReader(), nil
	case "native":
		return native.NewReader(), nil
	}
	return nil, fmt.Errorf("unknown grid reader %q (use netcdf or native)", kind)
}
