package sampler

import (
	"errors"
	"strconv"
	"strings"

	"github.com/psu-lab/relatorio/pkg/models"
)

var errFieldCount = errors.New("expected exactly two comma separated fields")

// ParseLine decodes a "<time>,<voltage>" record. Surrounding whitespace,
// including the line terminator, is ignored.
func ParseLine(line string) (models.Sample, error) {
	trimmed := strings.TrimSpace(line)
	fields := strings.Split(trimmed, ",")
	if len(fields) != 2 {
		return models.Sample{}, &ParseError{Line: trimmed, Err: errFieldCount}
	}

	t, err := strconv.ParseInt(strings.TrimSpace(fields[0]), 10, 64)
	if err != nil {
		return models.Sample{}, &ParseError{Line: trimmed, Err: err}
	}
	v, err := strconv.ParseInt(strings.TrimSpace(fields[1]), 10, 64)
	if err != nil {
		return models.Sample{}, &ParseError{Line: trimmed, Err: err}
	}

	return models.Sample{Time: t, Voltage: v}, nil
}
