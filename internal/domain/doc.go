// Package domain models storm track reconstruction and GOES Geostationary
// Lightning Mapper (GLM) flash data.
//
// # Storm Track
//
// A storm is observed at two best-track fixes (for example consecutive
// IBTrACS rows). The path between them is assumed to be a straight line
// travelled at constant speed:
//
//	speed_kmh   = distance_km / elapsed_hours
//	cadence_km  = speed_kmh * cadence_seconds / 3600
//	sample_count = trunc(distance_km / cadence_km)
//
// The sample count is truncated, never rounded. Because the ratio is
// mathematically elapsed_hours*3600/cadence_seconds, floating point error
// can leave it a hair below the whole number and the truncation then drops
// one sample. That behaviour is kept so results stay comparable with earlier
// runs.
//
// Positions are interpolated coordinate-wise (linear in latitude and in
// longitude), not along the geodesic.
//
// # GLM Scans
//
// GLM L2 LCFA products are 20-second netCDF files published on the
// noaa-goes16 bucket under GLM-L2-LCFA/<year>/<day-of-year>/<hour>/. File
// names carry the scan begin (s), end (e) and creation (c) times as
// YYYYJJJHHMMSSt tokens, where JJJ is the day of year and t is tenths of a
// second:
//
//	OR_GLM-L2-LCFA_G16_s20211400000000_e20211400000200_c20211400000220.nc
//
// Each file exposes flash_lat and flash_lon arrays.
//
// # Counting
//
// Scans are joined to samples by exact equality of scan begin time and
// sample timestamp. Events are counted in a box of ±1 degree latitude and
// ±1 degree longitude around the sample. The default [CountCrossProduct]
// mode counts in-range latitudes times in-range longitudes, treating the two
// arrays independently; [CountPaired] counts coincident events instead.
package domain
