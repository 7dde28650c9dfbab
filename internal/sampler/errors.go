package sampler

import (
	"errors"
	"fmt"

	"go.bug.st/serial"
)

// ParseError reports a line that is not two comma separated integers
type ParseError struct {
	Line string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("malformed sample %q: %v", e.Line, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// OpenError reports a port that could not be opened or configured
type OpenError struct {
	Port string
	Err  error
}

func (e *OpenError) Error() string {
	return fmt.Sprintf("failed to open serial port %s: %s", e.Port, describePortError(e.Err))
}

func (e *OpenError) Unwrap() error {
	return e.Err
}

// portErrorCode extracts the serial library error code, if any
func portErrorCode(err error) (serial.PortErrorCode, bool) {
	var ptr *serial.PortError
	if errors.As(err, &ptr) && ptr != nil {
		return ptr.Code(), true
	}
	var val serial.PortError
	if errors.As(err, &val) {
		return val.Code(), true
	}
	return 0, false
}

func describePortError(err error) string {
	code, ok := portErrorCode(err)
	if !ok {
		return err.Error()
	}
	switch code {
	case serial.PortNotFound:
		return "port not found, check the cable and the port name"
	case serial.PortBusy:
		return "port is in use by another program"
	case serial.PermissionDenied:
		return "permission denied, the user may need to join the dialout group"
	case serial.InvalidSpeed:
		return "baud rate not supported by the port"
	case serial.InvalidSerialPort:
		return "not a serial port"
	default:
		return err.Error()
	}
}
