// Package sampler reads "<time>,<voltage>" records from the instrument's
// serial line for the length of a test.
package sampler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog/log"
	"go.bug.st/serial"

	"github.com/psu-lab/relatorio/pkg/models"
)

// Conn is the part of a serial port the sampler needs
type Conn interface {
	io.ReadCloser
}

// OpenFunc opens the named port
type OpenFunc func(name string) (Conn, error)

// Config holds sampling parameters
type Config struct {
	Baud          int
	ReadTimeout   time.Duration
	Interval      time.Duration
	SkipMalformed bool
}

// Sampler collects the readings of one test run
type Sampler interface {
	Sample(ctx context.Context, port string, duration time.Duration) (*models.Series, error)
}

type sampler struct {
	cfg  Config
	open OpenFunc
	now  func() time.Time
}

// NewSampler creates a sampler. A nil open uses the system serial ports.
func NewSampler(cfg Config, open OpenFunc) Sampler {
	if open == nil {
		open = SerialOpener(cfg.Baud, cfg.ReadTimeout)
	}
	return &sampler{
		cfg:  cfg,
		open: open,
		now:  time.Now,
	}
}

// SerialOpener opens ports as 8N1 at the given baud rate with a read timeout
func SerialOpener(baud int, readTimeout time.Duration) OpenFunc {
	return func(name string) (Conn, error) {
		port, err := serial.Open(name, &serial.Mode{
			BaudRate: baud,
			DataBits: 8,
			Parity:   serial.NoParity,
			StopBits: serial.OneStopBit,
		})
		if err != nil {
			return nil, err
		}

		if err := port.SetReadTimeout(readTimeout); err != nil {
			_ = port.Close()
			return nil, fmt.Errorf("failed to set read timeout: %w", err)
		}
		_ = port.ResetInputBuffer()

		return port, nil
	}
}

// Sample reads one line per interval until duration has elapsed, the stream
// ends, or ctx is cancelled. Cancellation is not an error: the samples read so
// far are returned. The port is closed on every path.
func (s *sampler) Sample(ctx context.Context, port string, duration time.Duration) (*models.Series, error) {
	series := models.NewSeries()

	conn, err := s.open(port)
	if err != nil {
		return series, &OpenError{Port: port, Err: err}
	}
	defer func() {
		if err := conn.Close(); err != nil {
			log.Warn().Err(err).Str("port", port).Msg("Failed to close serial port")
		}
	}()

	log.Info().
		Str("port", port).
		Int("baud", s.cfg.Baud).
		Dur("duration", duration).
		Dur("interval", s.cfg.Interval).
		Msg("Sampling started")

	reader := newLineReader(conn, s.cfg.ReadTimeout, s.now)
	start := s.now()

loop:
	for s.now().Sub(start) < duration {
		if ctx.Err() != nil {
			break
		}

		var sample models.Sample
		line, err := reader.ReadLine()
		if err == nil {
			sample, err = ParseLine(line)
		}

		var perr *ParseError
		switch {
		case errors.Is(err, errReadTimeout):
			log.Debug().Str("port", port).Msg("No data within read timeout")
		case errors.Is(err, io.EOF):
			log.Warn().Str("port", port).Msg("Serial stream ended")
			break loop
		case errors.As(err, &perr):
			if !s.cfg.SkipMalformed {
				return series, perr
			}
			log.Warn().Err(perr).Msg("Skipping malformed sample")
		case err != nil:
			return series, fmt.Errorf("failed to read from %s: %w", port, err)
		default:
			series.Append(sample)
			log.Debug().
				Int64("time", sample.Time).
				Int64("voltage", sample.Voltage).
				Int("count", series.Len()).
				Msg("Sample received")
		}

		if err := sleep(ctx, s.cfg.Interval); err != nil {
			break
		}
	}

	if ctx.Err() != nil {
		log.Info().Int("samples", series.Len()).Msg("Sampling interrupted")
	} else {
		log.Info().Int("samples", series.Len()).Dur("elapsed", s.now().Sub(start)).Msg("Sampling finished")
	}

	return series, nil
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
