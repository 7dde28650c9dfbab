// Package plotter renders voltage-over-time charts.
package plotter

import (
	"bytes"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/pkg/browser"
	"github.com/rs/zerolog/log"
	chart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/psu-lab/relatorio/pkg/models"
)

const (
	XAxisLabel = "Time (s)"
	YAxisLabel = "Voltage"

	// 4:3 matches the 400x300 pt slot in the report
	DefaultWidth  = 800
	DefaultHeight = 600
)

// placeholderColor has zero alpha but is not the zero Color, which go-chart
// would replace with a palette color.
var placeholderColor = drawing.Color{R: 255, G: 255, B: 255, A: 0}

// OpenFunc shows a rendered image file to the user
type OpenFunc func(path string) error

// Plotter renders charts and shows them
type Plotter interface {
	Render(w io.Writer, series *models.Series, title string) error
	SaveImage(dir string, series *models.Series, title string) (string, func(), error)
	Show(series *models.Series, title string) (func(), error)
}

type plotter struct {
	width  int
	height int
	open   OpenFunc
}

// NewPlotter creates a plotter. A nil open uses the system image viewer.
func NewPlotter(open OpenFunc) Plotter {
	if open == nil {
		open = browser.OpenFile
	}
	return &plotter{
		width:  DefaultWidth,
		height: DefaultHeight,
		open:   open,
	}
}

// Render writes the chart as PNG. Every call builds its own chart value, so
// nothing drawn for one chart leaks into the next.
func (p *plotter) Render(w io.Writer, series *models.Series, title string) error {
	graph := p.newChart(series, title)
	if err := graph.Render(chart.PNG, w); err != nil {
		return fmt.Errorf("failed to render chart: %w", err)
	}
	return nil
}

// SaveImage renders the chart into a transient PNG inside dir. The returned
// release func removes the file.
func (p *plotter) SaveImage(dir string, series *models.Series, title string) (string, func(), error) {
	path := filepath.Join(dir, fmt.Sprintf("temp_plot_%s.png", uuid.New().String()[:8]))

	var buf bytes.Buffer
	if err := p.Render(&buf, series, title); err != nil {
		return "", func() {}, err
	}
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return "", func() {}, fmt.Errorf("failed to write chart image: %w", err)
	}

	release := func() {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			log.Warn().Err(err).Str("path", path).Msg("Failed to remove chart image")
		}
	}
	return path, release, nil
}

// Show renders the chart to a temporary file and opens it in the image viewer.
// The viewer reads the file asynchronously, so the caller removes it with the
// returned release func once the viewer has had time to load it.
func (p *plotter) Show(series *models.Series, title string) (func(), error) {
	path, release, err := p.SaveImage(os.TempDir(), series, title)
	if err != nil {
		return release, err
	}
	log.Info().Str("path", path).Int("samples", series.Len()).Msg("Opening chart")
	if err := p.open(path); err != nil {
		release()
		return func() {}, fmt.Errorf("failed to open chart viewer: %w", err)
	}
	return release, nil
}

func (p *plotter) newChart(series *models.Series, title string) chart.Chart {
	xs := series.XValues()
	ys := series.YValues()

	style := chart.Style{
		StrokeColor: drawing.ColorFromHex("1f77b4"),
		StrokeWidth: 2,
	}

	xAxis := chart.XAxis{Name: XAxisLabel}
	yAxis := chart.YAxis{Name: YAxisLabel}

	// go-chart refuses to render a zero-width range, so flat or empty data
	// gets explicit axis bounds.
	if xr, ok := paddedRange(xs); ok {
		xAxis.Range = xr
	}
	if yr, ok := paddedRange(ys); ok {
		yAxis.Range = yr
	}

	// go-chart needs at least one visible series, so empty data is drawn as
	// a fully transparent line across the padded range.
	var data chart.Series
	if len(xs) == 0 {
		data = chart.ContinuousSeries{
			Name:    "empty",
			Style:   chart.Style{StrokeColor: placeholderColor, StrokeWidth: 1},
			XValues: []float64{0, 1},
			YValues: []float64{0, 1},
		}
	} else {
		data = chart.ContinuousSeries{
			Name:    YAxisLabel,
			Style:   style,
			XValues: xs,
			YValues: ys,
		}
	}

	return chart.Chart{
		Title:      title,
		Width:      p.width,
		Height:     p.height,
		Background: chart.Style{Padding: chart.Box{Top: 40, Left: 20, Right: 20, Bottom: 20}},
		XAxis:      xAxis,
		YAxis:      yAxis,
		Series:     []chart.Series{data},
	}
}

// paddedRange returns explicit bounds when values span no distance
func paddedRange(values []float64) (*chart.ContinuousRange, bool) {
	if len(values) == 0 {
		return &chart.ContinuousRange{Min: 0, Max: 1}, true
	}
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, v := range values {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	if hi > lo {
		return nil, false
	}
	return &chart.ContinuousRange{Min: lo - 1, Max: hi + 1}, true
}
