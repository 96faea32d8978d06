package espudp

import (
	"errors"
	"fmt"
)

// Common driver errors
var (
	// ErrAlreadyConnected indicates Connect was called while a socket is open
	ErrAlreadyConnected = errors.New("connection already started")

	// ErrNilSource indicates the driver was created without a network event source
	ErrNilSource = errors.New("network event source is nil")

	// ErrInvalidOptions indicates the driver options failed validation
	ErrInvalidOptions = errors.New("invalid options")
)

// DriverError represents an error with additional context
type DriverError struct {
	Op   string // operation that caused the error
	Addr string // address if relevant
	Err  error  // underlying error
}

func (e *DriverError) Error() string {
	if e.Addr != "" {
		return fmt.Sprintf("espudp %s %s: %v", e.Op, e.Addr, e.Err)
	}
	return fmt.Sprintf("espudp %s: %v", e.Op, e.Err)
}

func (e *DriverError) Unwrap() error {
	return e.Err
}

// newDriverError creates a new DriverError
func newDriverError(op, addr string, err error) *DriverError {
	return &DriverError{
		Op:   op,
		Addr: addr,
		Err:  err,
	}
}
