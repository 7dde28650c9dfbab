// Package cli drives a test run through sequential terminal prompts.
package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/psu-lab/relatorio/internal/processing"
	"github.com/psu-lab/relatorio/internal/serialport"
	"github.com/psu-lab/relatorio/pkg/models"
)

// Prompts shown to the technician
const (
	PromptPort         = "Enter the serial port name (e.g. COMx): "
	PromptName         = "Enter the equipment name: "
	PromptManufacturer = "Enter the manufacturer: "
	PromptPartNumber   = "Enter the P/N: "
	PromptSerialNumber = "Enter the S/N: "
	PromptModel        = "Enter the model (PS-835A, C & E or PS-835B, D, F & G): "
	PromptObservations = "Observations (max 1000 words): "

	InvalidModelMessage = "Invalid model. Choose PS-835A, C & E or PS-835B, D, F & G."
)

// ErrPortRequired is returned when no port was selected or typed in
var ErrPortRequired = errors.New("serial port is required")

// Driver asks for the run details and hands the run to the pipeline
type Driver struct {
	selector   serialport.Selector
	processing processing.ProcessingService
	in         *bufio.Reader
	out        io.Writer
}

// NewDriver creates a driver reading answers from in and writing prompts to out
func NewDriver(selector serialport.Selector, processingSvc processing.ProcessingService, in io.Reader, out io.Writer) *Driver {
	return &Driver{
		selector:   selector,
		processing: processingSvc,
		in:         bufio.NewReader(in),
		out:        out,
	}
}

// Run performs one complete test run
func (d *Driver) Run(ctx context.Context) (*models.RunResult, error) {
	port, err := d.selectPort(ctx)
	if err != nil {
		return nil, err
	}

	var meta models.Metadata
	fields := []struct {
		prompt string
		dst    *string
	}{
		{PromptName, &meta.Name},
		{PromptManufacturer, &meta.Manufacturer},
		{PromptPartNumber, &meta.PartNumber},
		{PromptSerialNumber, &meta.SerialNumber},
	}
	for _, f := range fields {
		if *f.dst, err = d.ask(f.prompt); err != nil {
			return nil, err
		}
	}

	answer, err := d.ask(PromptModel)
	if err != nil {
		return nil, err
	}
	model, err := models.ParseModel(answer)
	if err != nil {
		fmt.Fprintln(d.out, InvalidModelMessage)
		return nil, err
	}
	meta.Model = model

	run := models.NewRun(port, meta)
	log.Info().
		Str("run_id", run.ID.String()).
		Str("port", port).
		Str("model", model.String()).
		Msg("Starting run")
	fmt.Fprintf(d.out, "Sampling %s on %s for %.0f minutes. Press Ctrl+C to stop early.\n",
		model, port, model.TestDuration().Minutes())

	result, err := d.processing.ProcessRun(ctx, run, func() (string, error) {
		return d.ask(PromptObservations)
	})
	if err != nil {
		return nil, err
	}

	if result.Interrupted {
		fmt.Fprintf(d.out, "Sampling stopped early after %d samples.\n", result.Series.Len())
	}
	fmt.Fprintf(d.out, "Report saved to %s\n", result.ReportPath)
	if result.ShareURL != "" {
		fmt.Fprintf(d.out, "Report link: %s\n", result.ShareURL)
	}

	return result, nil
}

// selectPort uses the first enumerated port, or asks for one
func (d *Driver) selectPort(ctx context.Context) (string, error) {
	port, err := d.selector.AutoSelect(ctx)
	if err == nil {
		return port, nil
	}
	if ctx.Err() != nil {
		return "", ctx.Err()
	}
	if !errors.Is(err, serialport.ErrNoPorts) {
		log.Warn().Err(err).Msg("Automatic port selection failed")
	}

	port, err = d.ask(PromptPort)
	if err != nil {
		return "", err
	}
	port = strings.TrimSpace(port)
	if port == "" {
		return "", ErrPortRequired
	}
	return port, nil
}

// ask prints a prompt and returns the answer without its line terminator.
// Other whitespace is kept as typed.
func (d *Driver) ask(prompt string) (string, error) {
	fmt.Fprint(d.out, prompt)

	line, err := d.in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", fmt.Errorf("failed to read answer to %q: %w", strings.TrimSpace(prompt), err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}
