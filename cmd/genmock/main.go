// Command genmock writes synthetic GLM scan files along the configured storm
// track so the pipeline can run without object storage. Flash positions are
// scattered around each sample with a fixed seed, so repeated runs produce
// identical files.
//
// Usage:
//
//	TRACK_START_LAT=30.30 TRACK_START_LON=-55.50 \
//	go run ./cmd/genmock -out data/mock -stride 3
package main

import (
	"flag"
	"fmt"
	"log"
	"math/rand/v2"
	"os"
	"path/filepath"
	"time"

	"github.com/couchcryptid/storm-flash-track/internal/adapter/glm"
	"github.com/couchcryptid/storm-flash-track/internal/config"
	"github.com/couchcryptid/storm-flash-track/internal/domain"
	"github.com/couchcryptid/storm-flash-track/internal/trajectory"
)

const (
	product  = "GLM-L2-LCFA"
	platform = "G16"
	// Products are written a few seconds after the scan closes.
	createdLag = 2 * time.Second
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	out := flag.String("out", "", "directory to write scan files into")
	stride := flag.Int("stride", 1, "write a scan for every n-th trajectory sample")
	maxFlashes := flag.Int("max-flashes", 40, "upper bound on flashes per scan")
	spread := flag.Float64("spread", 0.6, "standard deviation of flash offsets in degrees")
	seed := flag.Uint64("seed", 20210520, "random seed")
	flag.Parse()

	if *out == "" {
		flag.Usage()
		return fmt.Errorf("missing required flag: -out")
	}
	if *stride < 1 || *maxFlashes < 1 || *spread <= 0 {
		return fmt.Errorf("-stride and -max-flashes must be positive, -spread must be > 0")
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	samples, summary, err := trajectory.Build(trajectory.NewBuilder(), cfg.Track)
	if err != nil {
		return fmt.Errorf("build trajectory: %w", err)
	}
	log.Printf("trajectory: %d samples over %.2f km", summary.SampleCount, summary.DistanceKm)

	if err := os.MkdirAll(*out, 0o755); err != nil {
		return err
	}

	cadence := time.Duration(summary.CadenceSeconds) * time.Second
	rng := rand.New(rand.NewPCG(*seed, *seed>>1))
	written, flashes := 0, 0

	for i := 0; i < len(samples); i += *stride {
		s := samples[i]
		events := scatter(rng, s.Position, 1+rng.IntN(*maxFlashes), *spread)
		end := s.Timestamp.Add(cadence)
		name := glm.FormatFilename(product, platform, s.Timestamp, end, end.Add(createdLag))

		if err := glm.WriteScanFile(filepath.Join(*out, name), events); err != nil {
			return fmt.Errorf("write %s: %w", name, err)
		}
		written++
		flashes += len(events.Lats)
	}

	log.Printf("wrote %d scan files with %d flashes to %s", written, flashes, *out)
	return nil
}

// scatter places n flashes normally distributed around center, clamped to
// valid coordinates.
func scatter(rng *rand.Rand, center domain.GeoPoint, n int, spread float64) domain.EventCoordinates {
	ev := domain.EventCoordinates{
		Lats: make([]float64, n),
		Lons: make([]float64, n),
	}
	for i := range n {
		ev.Lats[i] = clamp(center.Lat+rng.NormFloat64()*spread, domain.MaxLatitude)
		ev.Lons[i] = clamp(center.Lon+rng.NormFloat64()*spread, domain.MaxLongitude)
	}
	return ev
}

func clamp(v, limit float64) float64 {
	return max(-limit, min(limit, v))
}
