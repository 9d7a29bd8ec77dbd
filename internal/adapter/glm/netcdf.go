package glm

import (
	"context"
	"fmt"
	"math"

	"github.com/batchatco/go-native-netcdf/netcdf"
	"github.com/batchatco/go-native-netcdf/netcdf/api"

	"github.com/couchcryptid/storm-flash-track/internal/domain"
)

// Variable names of the flash centroid arrays in a GLM L2 LCFA file.
const (
	FlashLatVar = "flash_lat"
	FlashLonVar = "flash_lon"
)

// NetCDFReader loads flash coordinates from GLM netCDF files. Both classic
// CDF and netCDF-4 (HDF5) encodings are supported.
type NetCDFReader struct {
	latVar string
	lonVar string
}

// NewNetCDFReader creates a reader for the flash_lat and flash_lon variables.
func NewNetCDFReader() *NetCDFReader {
	return &NetCDFReader{latVar: FlashLatVar, lonVar: FlashLonVar}
}

// ReadEvents opens scan.Source and returns its unpacked flash latitudes and
// longitudes in degrees.
func (r *NetCDFReader) ReadEvents(ctx context.Context, scan domain.ScanRecord) (domain.EventCoordinates, error) {
	if err := ctx.Err(); err != nil {
		return domain.EventCoordinates{}, err
	}

	g, err := netcdf.Open(scan.Source)
	if err != nil {
		return domain.EventCoordinates{}, fmt.Errorf("open %s: %w", scan.Source, err)
	}
	defer g.Close()

	lats, err := readVariable(g, r.latVar)
	if err != nil {
		return domain.EventCoordinates{}, err
	}
	lons, err := readVariable(g, r.lonVar)
	if err != nil {
		return domain.EventCoordinates{}, err
	}
	return domain.EventCoordinates{Lats: lats, Lons: lons}, nil
}

func readVariable(g api.Group, name string) ([]float64, error) {
	v, err := g.GetVariable(name)
	if err != nil {
		return nil, fmt.Errorf("variable %s: %w", name, err)
	}

	scale, offset := 1.0, 0.0
	unsigned := false
	if v.Attributes != nil {
		if s, ok := attrFloat(v.Attributes, "scale_factor"); ok {
			scale = s
		}
		if o, ok := attrFloat(v.Attributes, "add_offset"); ok {
			offset = o
		}
		if u, ok := v.Attributes.Get("_Unsigned"); ok {
			unsigned = u == "true"
		}
	}

	raw, err := toFloat64s(v.Values, unsigned)
	if err != nil {
		return nil, fmt.Errorf("variable %s: %w", name, err)
	}
	if scale != 1 || offset != 0 {
		for i := range raw {
			raw[i] = raw[i]*scale + offset
		}
	}
	return raw, nil
}

// toFloat64s widens a one-dimensional numeric netCDF array. A scalar is
// returned as a single element.
func toFloat64s(values any, unsigned bool) ([]float64, error) {
	switch vs := values.(type) {
	case []float64:
		out := make([]float64, len(vs))
		copy(out, vs)
		return out, nil
	case []float32:
		return widen(vs, func(x float32) float64 { return float64(x) }), nil
	case []int32:
		if unsigned {
			return widen(vs, func(x int32) float64 { return float64(uint32(x)) }), nil
		}
		return widen(vs, func(x int32) float64 { return float64(x) }), nil
	case []int16:
		if unsigned {
			return widen(vs, func(x int16) float64 { return float64(uint16(x)) }), nil
		}
		return widen(vs, func(x int16) float64 { return float64(x) }), nil
	case []uint16:
		return widen(vs, func(x uint16) float64 { return float64(x) }), nil
	case []int8:
		if unsigned {
			return widen(vs, func(x int8) float64 { return float64(uint8(x)) }), nil
		}
		return widen(vs, func(x int8) float64 { return float64(x) }), nil
	case float64:
		return []float64{vs}, nil
	case float32:
		return []float64{float64(vs)}, nil
	default:
		return nil, fmt.Errorf("unsupported value type %T", values)
	}
}

func widen[T any](vs []T, conv func(T) float64) []float64 {
	out := make([]float64, len(vs))
	for i, v := range vs {
		out[i] = conv(v)
	}
	return out
}

// attrFloat reads a numeric attribute stored as a scalar or a one-element array.
func attrFloat(attrs api.AttributeMap, key string) (float64, bool) {
	v, ok := attrs.Get(key)
	if !ok {
		return 0, false
	}
	var f float64
	switch a := v.(type) {
	case float64:
		f = a
	case float32:
		f = float64(a)
	case []float64:
		if len(a) == 0 {
			return 0, false
		}
		f = a[0]
	case []float32:
		if len(a) == 0 {
			return 0, false
		}
		f = float64(a[0])
	case int16:
		f = float64(a)
	case int32:
		f = float64(a)
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
