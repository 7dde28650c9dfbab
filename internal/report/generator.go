// Package report lays out the test report PDF: equipment header, chart title,
// observations and the embedded voltage chart.
package report

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/go-pdf/fpdf"
	"github.com/rs/zerolog/log"

	"github.com/psu-lab/relatorio/internal/plotter"
	"github.com/psu-lab/relatorio/pkg/models"
)

// FilenameLayout is the time layout embedded in report names
const FilenameLayout = "20060102_150405"

// Page geometry, in points on a Letter page (612x792)
const (
	pageHeight  = 792.0
	marginLeft  = 72.0
	marginRight = 72.0
	fontSize    = 12.0
	lineHeight  = 15.0

	imageWidth  = 400.0
	imageHeight = 300.0
	imageGap    = 20.0
)

// Baselines measured from the bottom of the page
const (
	nameBaseline         = 750.0
	manufacturerBaseline = 735.0
	partNumberBaseline   = 720.0
	serialNumberBaseline = 705.0
	modelBaseline        = 690.0
	titleBaseline        = 660.0
	obsLabelBaseline     = 630.0
	obsTextBaseline      = 615.0
)

// Config holds report output settings
type Config struct {
	Dir      string
	Compress bool
}

// Generator writes run reports
type Generator interface {
	Generate(meta models.Metadata, series *models.Series) (string, error)
}

type generator struct {
	cfg     Config
	plotter plotter.Plotter
	now     func() time.Time
}

// NewGenerator creates a report generator that renders its chart with p
func NewGenerator(cfg Config, p plotter.Plotter) Generator {
	if cfg.Dir == "" {
		cfg.Dir = "."
	}
	return &generator{
		cfg:     cfg,
		plotter: p,
		now:     time.Now,
	}
}

// Filename returns the report name for a run started at t
func Filename(t time.Time) string {
	return fmt.Sprintf("Relatorio_%s.pdf", t.Format(FilenameLayout))
}

// Generate writes the report and returns its path
func (g *generator) Generate(meta models.Metadata, series *models.Series) (string, error) {
	path := filepath.Join(g.cfg.Dir, Filename(g.now()))
	title := meta.Title()

	pdf := fpdf.New("P", "pt", "Letter", "")
	pdf.SetCompression(g.cfg.Compress)
	pdf.SetTitle(title, true)
	pdf.SetCreator("relatorio", true)
	pdf.SetMargins(marginLeft, marginLeft, marginRight)
	pdf.SetAutoPageBreak(true, marginLeft)
	pdf.AddPage()
	pdf.SetFont("Helvetica", "", fontSize)

	tr := pdf.UnicodeTranslatorFromDescriptor("")
	text := func(baseline float64, s string) {
		pdf.Text(marginLeft, pageHeight-baseline, tr(s))
	}

	// Header
	text(nameBaseline, "Name: "+meta.Name)
	text(manufacturerBaseline, "Manufacturer: "+meta.Manufacturer)
	text(partNumberBaseline, "P/N: "+meta.PartNumber)
	text(serialNumberBaseline, "S/N: "+meta.SerialNumber)
	text(modelBaseline, "Model: "+meta.Model.String())
	text(titleBaseline, "Graph - "+title)
	text(obsLabelBaseline, "Observations:")

	// Observations wrap inside the margins; MultiCell positions by the top
	// of the first line, so shift up by the font ascent.
	pageWidth, _ := pdf.GetPageSize()
	pdf.SetXY(marginLeft, pageHeight-obsTextBaseline-fontSize*0.8)
	pdf.MultiCell(pageWidth-marginLeft-marginRight, lineHeight, tr(meta.Observations), "", "L", false)

	// Chart
	imagePath, release, err := g.plotter.SaveImage(g.cfg.Dir, series, title)
	if err != nil {
		return "", err
	}
	defer release()

	y := pdf.GetY() + imageGap
	if y+imageHeight > pageHeight-marginLeft {
		pdf.AddPage()
		y = marginLeft
	}
	pdf.ImageOptions(imagePath, marginLeft, y, imageWidth, imageHeight, false,
		fpdf.ImageOptions{ImageType: "PNG"}, 0, "")

	if err := pdf.OutputFileAndClose(path); err != nil {
		return "", fmt.Errorf("failed to write report %s: %w", path, err)
	}

	log.Info().
		Str("path", path).
		Int("pages", pdf.PageCount()).
		Int("samples", series.Len()).
		Msg("Report generated")

	return path, nil
}
