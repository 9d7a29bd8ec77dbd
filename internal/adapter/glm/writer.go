package glm

import (
	"errors"
	"fmt"

	"github.com/batchatco/go-native-netcdf/netcdf"
	"github.com/batchatco/go-native-netcdf/netcdf/api"
	"github.com/batchatco/go-native-netcdf/netcdf/util"

	"github.com/couchcryptid/storm-flash-track/internal/domain"
)

// ErrEmptyScan is returned by WriteScanFile when a coordinate array is empty.
var ErrEmptyScan = errors.New("scan file needs at least one flash")

// WriteScanFile writes a minimal classic-CDF scan file holding flash_lat and
// flash_lon as float32 degrees. It backs synthetic catalogs for local runs
// and tests; operational files come from object storage.
func WriteScanFile(path string, events domain.EventCoordinates) (err error) {
	if len(events.Lats) == 0 || len(events.Lons) == 0 {
		return ErrEmptyScan
	}

	w, err := netcdf.OpenWriter(path, netcdf.KindCDF)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer func() {
		if cerr := w.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close %s: %w", path, cerr)
		}
	}()

	global, err := util.NewOrderedMap(
		[]string{"title", "platform_ID"},
		map[string]any{"title": "GLM L2 Lightning Detections: Flashes", "platform_ID": "G16"},
	)
	if err != nil {
		return err
	}
	if err := w.AddAttributes(global); err != nil {
		return fmt.Errorf("write attributes: %w", err)
	}

	latDim := "number_of_flashes"
	lonDim := latDim
	if len(events.Lons) != len(events.Lats) {
		lonDim = "number_of_flash_lons"
	}

	if err := addDegrees(w, FlashLatVar, latDim, "degrees_north", events.Lats); err != nil {
		return err
	}
	return addDegrees(w, FlashLonVar, lonDim, "degrees_east", events.Lons)
}

func addDegrees(w api.Writer, name, dim, units string, values []float64) error {
	attrs, err := util.NewOrderedMap([]string{"units"}, map[string]any{"units": units})
	if err != nil {
		return err
	}
	f32 := make([]float32, len(values))
	for i, v := range values {
		f32[i] = float32(v)
	}
	if err := w.AddVar(name, api.Variable{
		Values:     f32,
		Dimensions: []string{dim},
		Attributes: attrs,
	}); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	return nil
}
