package spur

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrInvalidState is returned for a lifecycle call not allowed in the
// component's current state.
var ErrInvalidState = errors.New("invalid lifecycle state")

// ConfigError reports a configuration value that could not be parsed.
type ConfigError struct {
	Name  string
	Value string
	Err   error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config %s=%q: %v", e.Name, e.Value, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }
func (e *ConfigError) Cause() error  { return e.Err }

// InitializationError reports a port or provider registration failure.
type InitializationError struct {
	Port string
	Err  error
}

func (e *InitializationError) Error() string {
	return fmt.Sprintf("register port %s: %v", e.Port, e.Err)
}

func (e *InitializationError) Unwrap() error { return e.Err }
func (e *InitializationError) Cause() error  { return e.Err }

// HardwareError reports a failed driver operation.
type HardwareError struct {
	Op  string
	Err error
}

func (e *HardwareError) Error() string {
	return fmt.Sprintf("hardware %s: %v", e.Op, e.Err)
}

func (e *HardwareError) Unwrap() error { return e.Err }
func (e *HardwareError) Cause() error  { return e.Err }

func IsConfigError(err error) bool {
	var target *ConfigError
	return errors.As(err, &target)
}

func IsInitializationError(err error) bool {
	var target *InitializationError
	return errors.As(err, &target)
}

func IsHardwareError(err error) bool {
	var target *HardwareError
	return errors.As(err, &target)
}

func invalidState(current State, op string) error {
	return errors.Wrapf(ErrInvalidState, "%s in state %s", op, current)
}
