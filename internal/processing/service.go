package processing

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	"github.com/psu-lab/relatorio/internal/plotter"
	"github.com/psu-lab/relatorio/internal/report"
	"github.com/psu-lab/relatorio/internal/sampler"
	"github.com/psu-lab/relatorio/internal/storage"
	"github.com/psu-lab/relatorio/pkg/models"
)

// ObservationsFunc asks the technician for observations once sampling is over
type ObservationsFunc func() (string, error)

type ProcessingService interface {
	ProcessRun(ctx context.Context, run *models.Run, observations ObservationsFunc) (*models.RunResult, error)
}

type processingService struct {
	sampler   sampler.Sampler
	plotter   plotter.Plotter
	generator report.Generator
	archive   storage.ReportArchive // nil when archiving is disabled
	showPlot  bool

	// notify scopes the interrupt signal to the sampling step
	notify func(ctx context.Context) (context.Context, context.CancelFunc)
}

func NewProcessingService(s sampler.Sampler, p plotter.Plotter, g report.Generator, archive storage.ReportArchive, showPlot bool) ProcessingService {
	return &processingService{
		sampler:   s,
		plotter:   p,
		generator: g,
		archive:   archive,
		showPlot:  showPlot,
		notify: func(ctx context.Context) (context.Context, context.CancelFunc) {
			return signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
		},
	}
}

func (s *processingService) ProcessRun(ctx context.Context, run *models.Run, observations ObservationsFunc) (*models.RunResult, error) {
	meta := run.Metadata
	result := &models.RunResult{RunID: run.ID.String()}
	logger := log.With().Str("run_id", result.RunID).Str("model", meta.Model.String()).Logger()

	// Step 1: Sample until the test duration elapses or the user interrupts
	sampleCtx, stop := s.notify(ctx)
	series, err := s.sampler.Sample(sampleCtx, run.Port, meta.Model.TestDuration())
	result.Interrupted = sampleCtx.Err() != nil && ctx.Err() == nil
	stop()
	if err != nil {
		return nil, fmt.Errorf("sampling failed: %w", err)
	}
	result.Series = series
	logger.Info().Int("samples", series.Len()).Bool("interrupted", result.Interrupted).Msg("Sampling complete")

	// Step 2: Show the chart while the technician writes observations
	if s.showPlot {
		release, err := s.plotter.Show(series, meta.Title())
		if err != nil {
			logger.Warn().Err(err).Msg("Could not display chart")
		}
		defer release()
	}

	// Step 3: Collect observations
	if observations != nil {
		text, err := observations()
		if err != nil {
			return nil, fmt.Errorf("failed to read observations: %w", err)
		}
		meta.Observations = text
	}

	// Step 4: Generate the report
	path, err := s.generator.Generate(meta, series)
	if err != nil {
		return nil, fmt.Errorf("failed to generate report: %w", err)
	}
	result.ReportPath = path

	// Step 5: Archive the report
	if s.archive == nil {
		return result, nil
	}

	key := storage.ReportKey(result.RunID, path)
	if err := s.archive.UploadReport(ctx, key, path); err != nil {
		logger.Error().Err(err).Str("key", key).Msg("Report archive failed, local copy kept")
		return result, nil
	}
	result.ArchiveKey = key

	url, err := s.archive.GenerateDownloadURL(ctx, key)
	if err != nil {
		logger.Warn().Err(err).Str("key", key).Msg("Could not create share link")
		return result, nil
	}
	result.ShareURL = url
	logger.Info().Str("key", key).Msg("Report archived")

	return result, nil
}
