//go:build ypspur

package ypspur

/*
#cgo LDFLAGS: -lypspur
#include <ypspur.h>

static int spur_init(void) { return Spur_init(); }
static int spur_free(void) { return Spur_free(); }
static int spur_stop(void) { return Spur_stop(); }
static int spur_set_vel(double v) { return Spur_set_vel(v); }
static int spur_set_accel(double a) { return Spur_set_accel(a); }
static int spur_set_angvel(double w) { return Spur_set_angvel(w); }
static int spur_set_angaccel(double a) { return Spur_set_angaccel(a); }
static int spur_vel(double v, double w) { return Spur_vel(v, w); }
static int spur_adjust_pos_GL(double x, double y, double th) { return Spur_adjust_pos_GL(x, y, th); }
static double spur_get_pos_GL(double *x, double *y, double *th) { return Spur_get_pos_GL(x, y, th); }
static double spur_get_vel(double *v, double *w) { return Spur_get_vel(v, w); }
*/
import "C"

import (
	"sync"

	"github.com/pkg/errors"
)

// libDriver drives the controller through libypspur and a running
// ypspur-coordinator. The library keeps one process-global connection, so
// only one libDriver may be open per process.
type libDriver struct {
	mu   sync.Mutex
	open bool
}

var libInUse sync.Mutex

// NewLibDriver returns a Driver backed by libypspur.
func NewLibDriver() (Driver, error) {
	return &libDriver{}, nil
}

func status(op string, rc C.int) error {
	if rc < 0 {
		return &OpError{Op: op, Err: errors.Errorf("returned %d", int(rc))}
	}
	return nil
}

func (d *libDriver) call(op string, fn func() C.int) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.open {
		return &OpError{Op: op, Err: ErrNotOpen}
	}
	return status(op, fn())
}

func (d *libDriver) Open() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.open {
		return ErrAlreadyOpen
	}
	libInUse.Lock()
	if err := status(OpOpen, C.spur_init()); err != nil {
		libInUse.Unlock()
		return err
	}
	d.open = true
	return nil
}

func (d *libDriver) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.open {
		return ErrNotOpen
	}
	d.open = false
	defer libInUse.Unlock()
	return status(OpClose, C.spur_free())
}

func (d *libDriver) Stop() error {
	return d.call(OpStop, func() C.int { return C.spur_stop() })
}

func (d *libDriver) SetVelocityLimit(v float64) error {
	return d.call(OpSetVelocityLimit, func() C.int { return C.spur_set_vel(C.double(v)) })
}

func (d *libDriver) SetAccelLimit(a float64) error {
	return d.call(OpSetAccelLimit, func() C.int { return C.spur_set_accel(C.double(a)) })
}

func (d *libDriver) SetAngularVelocityLimit(w float64) error {
	return d.call(OpSetAngularVelocityLimit, func() C.int { return C.spur_set_angvel(C.double(w)) })
}

func (d *libDriver) SetAngularAccelLimit(aa float64) error {
	return d.call(OpSetAngularAccelLimit, func() C.int { return C.spur_set_angaccel(C.double(aa)) })
}

func (d *libDriver) CommandVelocity(v, w float64) error {
	return d.call(OpCommandVelocity, func() C.int { return C.spur_vel(C.double(v), C.double(w)) })
}

func (d *libDriver) AdjustGlobalPose(x, y, th float64) error {
	return d.call(OpAdjustGlobalPose, func() C.int {
		return C.spur_adjust_pos_GL(C.double(x), C.double(y), C.double(th))
	})
}

func (d *libDriver) ReadGlobalPose() (float64, float64, float64, error) {
	var x, y, th C.double
	err := d.call(OpReadGlobalPose, func() C.int {
		if C.spur_get_pos_GL(&x, &y, &th) < 0 {
			return -1
		}
		return 0
	})
	return float64(x), float64(y), float64(th), err
}

func (d *libDriver) ReadVelocity() (float64, float64, error) {
	var v, w C.double
	err := d.call(OpReadVelocity, func() C.int {
		if C.spur_get_vel(&v, &w) < 0 {
			return -1
		}
		return 0
	})
	return float64(v), float64(w), err
}
