package main

import (
	"context"
	"errors"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/psu-lab/relatorio/internal/cli"
	"github.com/psu-lab/relatorio/internal/config"
	"github.com/psu-lab/relatorio/internal/plotter"
	"github.com/psu-lab/relatorio/internal/processing"
	"github.com/psu-lab/relatorio/internal/report"
	"github.com/psu-lab/relatorio/internal/sampler"
	"github.com/psu-lab/relatorio/internal/serialport"
	"github.com/psu-lab/relatorio/internal/storage"
	"github.com/psu-lab/relatorio/pkg/models"
)

func main() {
	// Configure zerolog for structured logging
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.Warn().Str("level", cfg.LogLevel).Msg("Unknown LOG_LEVEL, using info")
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	ctx := context.Background()

	var archive storage.ReportArchive
	if cfg.AWS.ArchiveEnabled() {
		archive, err = storage.NewS3Archive(ctx, storage.S3Config{
			Bucket:    cfg.AWS.S3Bucket,
			Endpoint:  cfg.AWS.S3Endpoint,
			Region:    cfg.AWS.Region,
			AccessKey: cfg.AWS.AccessKeyID,
			SecretKey: cfg.AWS.SecretAccessKey,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to set up report archive")
		}
		if err := archive.EnsureBucket(ctx); err != nil {
			log.Fatal().Err(err).Msg("Report archive bucket unavailable")
		}
	}

	plot := plotter.NewPlotter(nil)
	processingSvc := processing.NewProcessingService(
		sampler.NewSampler(sampler.Config{
			Baud:          cfg.Serial.Baud,
			ReadTimeout:   cfg.Serial.ReadTimeout,
			Interval:      cfg.Serial.Interval,
			SkipMalformed: cfg.Serial.SkipMalformed,
		}, nil),
		plot,
		report.NewGenerator(report.Config{Dir: cfg.Report.Dir, Compress: cfg.Report.Compress}, plot),
		archive,
		cfg.Plot.Show,
	)

	driver := cli.NewDriver(
		serialport.NewSelector(nil, os.Stdout, cfg.Serial.ListDelay),
		processingSvc,
		os.Stdin,
		os.Stdout,
	)

	if _, err := driver.Run(ctx); err != nil {
		if errors.Is(err, models.ErrInvalidModel) {
			os.Exit(1)
		}
		log.Fatal().Err(err).Msg("Run failed")
	}
}
