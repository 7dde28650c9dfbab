package models

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Model identifies a supported power-supply family
type Model string

const (
	ModelPS835ACE  Model = "PS-835A, C & E"
	ModelPS835BDFG Model = "PS-835B, D, F & G"
)

// ErrInvalidModel is returned when the model is not one of the supported families
var ErrInvalidModel = errors.New("invalid model")

var testDurations = map[Model]time.Duration{
	ModelPS835ACE:  45 * time.Minute,
	ModelPS835BDFG: 90 * time.Minute,
}

// Models lists the accepted models in prompt order
func Models() []Model {
	return []Model{ModelPS835ACE, ModelPS835BDFG}
}

// ParseModel matches the input exactly against the supported models.
// No trimming or case folding is applied.
func ParseModel(s string) (Model, error) {
	for _, m := range Models() {
		if string(m) == s {
			return m, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidModel, s)
}

// TestDuration returns how long a unit of this model is sampled
func (m Model) TestDuration() time.Duration {
	return testDurations[m]
}

func (m Model) String() string {
	return string(m)
}

// Metadata holds the equipment information typed in by the technician
type Metadata struct {
	Name         string `json:"name"`
	Manufacturer string `json:"manufacturer"`
	PartNumber   string `json:"part_number"`
	SerialNumber string `json:"serial_number"`
	Model        Model  `json:"model"`
	Observations string `json:"observations"`
}

// Title returns the chart title for the run
func (m Metadata) Title() string {
	return fmt.Sprintf("Voltage over Time (%s)", m.Model)
}

// Run represents a single test run (for internal use)
type Run struct {
	ID        uuid.UUID `json:"id"`
	Port      string    `json:"port"`
	Metadata  Metadata  `json:"metadata"`
	StartedAt time.Time `json:"started_at"`
}

// NewRun creates a run for the given port and metadata
func NewRun(port string, meta Metadata) *Run {
	return &Run{
		ID:        uuid.New(),
		Port:      port,
		Metadata:  meta,
		StartedAt: time.Now(),
	}
}

// RunResult is what a completed run produced
type RunResult struct {
	RunID       string  `json:"run_id"`
	Series      *Series `json:"series"`
	Interrupted bool    `json:"interrupted"`
	ReportPath  string  `json:"report_path"`
	ArchiveKey  string  `json:"archive_key,omitempty"`
	ShareURL    string  `json:"share_url,omitempty"`
}
