// Package plot renders run results as PNG charts.
package plot

import (
	"context"
	"errors"
	"fmt"
	"image/color"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	gonumplot "gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"

	"github.com/couchcryptid/storm-flash-track/internal/domain"
)

// File names written by Loader.
const (
	FlashCountFile = "flash_count.png"
	TrackFile      = "track.png"
)

// Rendered chart size.
const (
	chartWidth  = 12 * vg.Inch
	chartHeight = 6.75 * vg.Inch
)

var (
	lineColor  = color.RGBA{R: 31, G: 119, B: 180, A: 255}
	pointColor = color.RGBA{R: 31, G: 119, B: 180, A: 160}
	endColor   = color.RGBA{R: 44, G: 160, B: 44, A: 255}
)

// ErrNoData is returned when there is nothing to draw.
var ErrNoData = errors.New("no data to plot")

// FlashCounts builds a line chart of event count against scan time. The
// x axis holds Unix seconds and is labelled in UTC.
func FlashCounts(series domain.ResultSeries) (*gonumplot.Plot, error) {
	obs := series.Observations
	if len(obs) == 0 {
		return nil, ErrNoData
	}

	xys := make(plotter.XYs, len(obs))
	for i, o := range obs {
		xys[i].X = unixSeconds(o)
		xys[i].Y = float64(o.EventCount)
	}

	p := gonumplot.New()
	p.Title.Text = "Flash count near storm center"
	p.X.Label.Text = "Time of scan (UTC)"
	p.Y.Label.Text = "Flashes"
	p.X.Tick.Marker = gonumplot.TimeTicks{Format: "15:04", Time: gonumplot.UTCUnixTime}

	line, points, err := plotter.NewLinePoints(xys)
	if err != nil {
		return nil, fmt.Errorf("flash count line: %w", err)
	}
	line.Color = lineColor
	points.GlyphStyle.Color = lineColor
	points.GlyphStyle.Radius = vg.Points(1.5)

	p.Add(plotter.NewGrid(), line, points)
	p.Y.Min = 0
	return p, nil
}

// Track builds a scatter plot of the interpolated positions in degrees.
// Start and end fixes are drawn with larger labelled glyphs.
func Track(samples []domain.TrajectorySample) (*gonumplot.Plot, error) {
	if len(samples) == 0 {
		return nil, ErrNoData
	}

	xys := make(plotter.XYs, len(samples))
	for i, s := range samples {
		xys[i].X = s.Position.Lon
		xys[i].Y = s.Position.Lat
	}
	first, last := samples[0].Position, samples[len(samples)-1].Position
	ends := plotter.XYs{{X: first.Lon, Y: first.Lat}, {X: last.Lon, Y: last.Lat}}

	p := gonumplot.New()
	p.Title.Text = fmt.Sprintf("Interpolated storm track (%d points)", len(samples))
	p.X.Label.Text = "Longitude"
	p.Y.Label.Text = "Latitude"

	track, err := plotter.NewScatter(xys)
	if err != nil {
		return nil, fmt.Errorf("track scatter: %w", err)
	}
	track.GlyphStyle.Color = pointColor
	track.GlyphStyle.Radius = vg.Points(1.5)
	track.GlyphStyle.Shape = draw.CircleGlyph{}

	fixes, err := plotter.NewScatter(ends)
	if err != nil {
		return nil, fmt.Errorf("track endpoints: %w", err)
	}
	fixes.GlyphStyle.Color = endColor
	fixes.GlyphStyle.Radius = vg.Points(5)
	fixes.GlyphStyle.Shape = draw.CircleGlyph{}

	labels, err := plotter.NewLabels(plotter.XYLabels{XYs: ends, Labels: []string{"start", "end"}})
	if err != nil {
		return nil, fmt.Errorf("track labels: %w", err)
	}
	labels.Offset = vg.Point{X: vg.Points(8)}

	p.Add(plotter.NewGrid(), track, fixes, labels)
	p.Legend.Add("interpolated", track)
	p.Legend.Add("start/end fix", fixes)
	return p, nil
}

// EncodePNG draws p at the chart size and writes it to w as PNG.
func EncodePNG(w io.Writer, p *gonumplot.Plot) error {
	c := vgimg.New(chartWidth, chartHeight)
	p.Draw(draw.New(c))
	_, err := vgimg.PngCanvas{Canvas: c}.WriteTo(w)
	return err
}

func unixSeconds(o domain.AggregatedObservation) float64 {
	return float64(o.Timestamp.UnixNano()) / 1e9
}

// Loader writes both charts into a directory after each run.
type Loader struct {
	dir    string
	logger *slog.Logger
}

// NewLoader creates a Loader writing into dir.
func NewLoader(dir string, logger *slog.Logger) *Loader {
	return &Loader{dir: dir, logger: logger}
}

// LoadSeries implements pipeline.SeriesLoader. Empty inputs are skipped
// rather than treated as errors.
func (l *Loader) LoadSeries(_ context.Context, run domain.RunOutput) error {
	if err := os.MkdirAll(l.dir, 0o755); err != nil {
		return fmt.Errorf("create plot dir: %w", err)
	}

	charts := []struct {
		name  string
		build func() (*gonumplot.Plot, error)
	}{
		{FlashCountFile, func() (*gonumplot.Plot, error) { return FlashCounts(run.Series) }},
		{TrackFile, func() (*gonumplot.Plot, error) { return Track(run.Samples) }},
	}

	for _, ch := range charts {
		p, err := ch.build()
		if errors.Is(err, ErrNoData) {
			l.logger.Info("plot skipped, no data", "file", ch.name)
			continue
		}
		if err != nil {
			return err
		}
		path := filepath.Join(l.dir, ch.name)
		if err := writePNG(path, p); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
		l.logger.Info("plot written", "path", path)
	}
	return nil
}

func writePNG(path string, p *gonumplot.Plot) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := EncodePNG(f, p); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
