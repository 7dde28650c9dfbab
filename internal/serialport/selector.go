// Package serialport discovers the serial ports attached to the host and picks
// the one the instrument is connected to.
package serialport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/rs/zerolog/log"
	"go.bug.st/serial/enumerator"
)

// ErrNoPorts is returned when enumeration finds nothing
var ErrNoPorts = errors.New("no serial ports available")

// ListFunc enumerates the ports present on the host
type ListFunc func() ([]*enumerator.PortDetails, error)

// Selector lists serial ports and selects one automatically
type Selector interface {
	AutoSelect(ctx context.Context) (string, error)
}

type selector struct {
	list  ListFunc
	out   io.Writer
	delay time.Duration
}

// NewSelector creates a selector that prints the port list to out and waits
// delay before returning so the list can be read.
func NewSelector(list ListFunc, out io.Writer, delay time.Duration) Selector {
	if list == nil {
		list = enumerator.GetDetailedPortsList
	}
	return &selector{
		list:  list,
		out:   out,
		delay: delay,
	}
}

// AutoSelect prints every discovered port and returns the first one
func (s *selector) AutoSelect(ctx context.Context) (string, error) {
	ports, err := s.list()
	if err != nil {
		return "", fmt.Errorf("failed to enumerate serial ports: %w", err)
	}

	sort.Slice(ports, func(i, j int) bool { return ports[i].Name < ports[j].Name })

	fmt.Fprintln(s.out, "Available serial ports:")
	for _, p := range ports {
		fmt.Fprintf(s.out, "%s: %s [%s]\n", p.Name, Description(p), HardwareID(p))
	}
	log.Debug().Int("count", len(ports)).Msg("Serial ports enumerated")

	if err := wait(ctx, s.delay); err != nil {
		return "", err
	}

	if len(ports) == 0 {
		fmt.Fprintln(s.out, "No serial ports available.")
		return "", ErrNoPorts
	}

	selected := ports[0].Name
	fmt.Fprintf(s.out, "Serial port selected automatically: %s\n", selected)
	log.Info().Str("port", selected).Msg("Serial port selected")
	return selected, nil
}

// Description returns a human readable label for the port
func Description(p *enumerator.PortDetails) string {
	if p.Product != "" {
		return p.Product
	}
	return "n/a"
}

// HardwareID formats the USB identifiers of the port
func HardwareID(p *enumerator.PortDetails) string {
	if !p.IsUSB {
		return "n/a"
	}
	hwid := fmt.Sprintf("USB VID:PID=%s:%s", p.VID, p.PID)
	if p.SerialNumber != "" {
		hwid += " SER=" + p.SerialNumber
	}
	return hwid
}

func wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
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
