// Package ypspur provides access to a YP-Spur differential-drive motor
// controller: the Driver capability, a hardware binding, a simulator and a
// call-recording mock.
package ypspur

import (
	"fmt"

	"github.com/pkg/errors"
)

// Driver is an exclusive session with a motor controller. Only Open may be
// called while the session is closed; every other call returns ErrNotOpen.
type Driver interface {
	Open() error
	Close() error
	// Stop brings the platform to rest.
	Stop() error

	SetVelocityLimit(v float64) error
	SetAccelLimit(a float64) error
	SetAngularVelocityLimit(w float64) error
	SetAngularAccelLimit(aa float64) error

	// CommandVelocity sets the linear (m/s) and angular (rad/s) target.
	CommandVelocity(v, w float64) error
	// AdjustGlobalPose re-anchors odometry so the current position reads
	// (x, y, th) in the global frame. It does not move the platform.
	AdjustGlobalPose(x, y, th float64) error
	ReadGlobalPose() (x, y, th float64, err error)
	ReadVelocity() (v, w float64, err error)
}

// Driver operation names, as used in errors and by MockDriver.
const (
	OpOpen                    = "open"
	OpClose                   = "close"
	OpStop                    = "stop"
	OpSetVelocityLimit        = "setVelocityLimit"
	OpSetAccelLimit           = "setAccelLimit"
	OpSetAngularVelocityLimit = "setAngularVelocityLimit"
	OpSetAngularAccelLimit    = "setAngularAccelLimit"
	OpCommandVelocity         = "commandVelocity"
	OpAdjustGlobalPose        = "adjustGlobalPose"
	OpReadGlobalPose          = "readGlobalPose"
	OpReadVelocity            = "readVelocity"
)

var (
	ErrNotOpen     = errors.New("ypspur: session is not open")
	ErrAlreadyOpen = errors.New("ypspur: session is already open")
	ErrUnavailable = errors.New("ypspur: hardware driver not compiled in (build with -tags ypspur)")
)

// OpError records a failed driver operation.
type OpError struct {
	Op  string
	Err error
}

func (e *OpError) Error() string {
	return fmt.Sprintf("ypspur %s: %v", e.Op, e.Err)
}

func (e *OpError) Unwrap() error {
	return e.Err
}

// Cause lets errors.Cause see through an OpError.
func (e *OpError) Cause() error {
	return e.Err
}

// Limits are the motion limits pushed to the controller.
type Limits struct {
	Velocity        float64 // m/s
	Accel           float64 // m/s^2
	AngularVelocity float64 // rad/s
	AngularAccel    float64 // rad/s^2
}

// DefaultLimits are the limits a freshly opened controller is assumed to use.
var DefaultLimits = Limits{
	Velocity:        0.2,
	Accel:           0.2,
	AngularVelocity: 0.52,
	AngularAccel:    0.314,
}

// ApplyLimits pushes l to d in the order velocity, acceleration, angular
// velocity, angular acceleration, stopping at the first failure.
func ApplyLimits(d Driver, l Limits) error {
	steps := []struct {
		op  string
		fn  func(float64) error
		val float64
	}{
		{OpSetVelocityLimit, d.SetVelocityLimit, l.Velocity},
		{OpSetAccelLimit, d.SetAccelLimit, l.Accel},
		{OpSetAngularVelocityLimit, d.SetAngularVelocityLimit, l.AngularVelocity},
		{OpSetAngularAccelLimit, d.SetAngularAccelLimit, l.AngularAccel},
	}
	for _, s := range steps {
		if err := s.fn(s.val); err != nil {
			return wrapOp(s.op, err)
		}
	}
	return nil
}

func wrapOp(op string, err error) error {
	if _, ok := err.(*OpError); ok {
		return err
	}
	return &OpError{Op: op, Err: err}
}
