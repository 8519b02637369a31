package ypspur

import (
	"math"
	"sync"
	"time"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/spatial/r2"
)

// Simulator is a pure-Go Driver integrating unicycle odometry. Commanded
// velocities are clamped to the velocity limits and approached at the
// acceleration limits.
type Simulator struct {
	mu  sync.Mutex
	now func() time.Time

	open    bool
	limits  Limits
	pos     r2.Vec
	heading float64
	v, w    float64
	targetV float64
	targetW float64
	last    time.Time
}

type SimulatorOption func(*Simulator)

// WithSimClock replaces the wall clock used to integrate motion.
func WithSimClock(now func() time.Time) SimulatorOption {
	return func(s *Simulator) { s.now = now }
}

func NewSimulator(opts ...SimulatorOption) *Simulator {
	s := &Simulator{now: time.Now, limits: DefaultLimits}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Simulator) Open() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.open {
		return ErrAlreadyOpen
	}
	s.open = true
	s.v, s.w, s.targetV, s.targetW = 0, 0, 0, 0
	s.last = s.now()
	return nil
}

func (s *Simulator) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.open {
		return ErrNotOpen
	}
	s.open = false
	return nil
}

// Stop sets a zero target; the platform decelerates at the limits.
func (s *Simulator) Stop() error {
	return s.update(func() error {
		s.targetV, s.targetW = 0, 0
		return nil
	})
}

func (s *Simulator) SetVelocityLimit(v float64) error {
	return s.setLimit(&s.limits.Velocity, v)
}

func (s *Simulator) SetAccelLimit(a float64) error {
	return s.setLimit(&s.limits.Accel, a)
}

func (s *Simulator) SetAngularVelocityLimit(w float64) error {
	return s.setLimit(&s.limits.AngularVelocity, w)
}

func (s *Simulator) SetAngularAccelLimit(aa float64) error {
	return s.setLimit(&s.limits.AngularAccel, aa)
}

func (s *Simulator) setLimit(field *float64, value float64) error {
	if value < 0 || math.IsNaN(value) {
		return errors.Errorf("invalid limit %v", value)
	}
	return s.update(func() error {
		*field = value
		return nil
	})
}

func (s *Simulator) CommandVelocity(v, w float64) error {
	return s.update(func() error {
		s.targetV = clamp(v, s.limits.Velocity)
		s.targetW = clamp(w, s.limits.AngularVelocity)
		return nil
	})
}

func (s *Simulator) AdjustGlobalPose(x, y, th float64) error {
	return s.update(func() error {
		s.pos = r2.Vec{X: x, Y: y}
		s.heading = th
		return nil
	})
}

func (s *Simulator) ReadGlobalPose() (x, y, th float64, err error) {
	err = s.update(func() error {
		x, y, th = s.pos.X, s.pos.Y, s.heading
		return nil
	})
	return
}

func (s *Simulator) ReadVelocity() (v, w float64, err error) {
	err = s.update(func() error {
		v, w = s.v, s.w
		return nil
	})
	return
}

// update advances the simulation to now and then applies fn.
func (s *Simulator) update(fn func() error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.open {
		return ErrNotOpen
	}
	s.step(s.now())
	return fn()
}

func (s *Simulator) step(now time.Time) {
	dt := now.Sub(s.last).Seconds()
	s.last = now
	if dt <= 0 {
		return
	}
	v0, w0 := s.v, s.w
	s.v = ramp(s.v, s.targetV, s.limits.Accel*dt)
	s.w = ramp(s.w, s.targetW, s.limits.AngularAccel*dt)

	// Trapezoidal integration over the step.
	ds := (v0 + s.v) / 2 * dt
	dth := (w0 + s.w) / 2 * dt
	mid := s.heading + dth/2
	s.pos = r2.Add(s.pos, r2.Scale(ds, r2.Vec{X: math.Cos(mid), Y: math.Sin(mid)}))
	s.heading += dth
}

func ramp(current, target, maxStep float64) float64 {
	switch {
	case target > current+maxStep:
		return current + maxStep
	case target < current-maxStep:
		return current - maxStep
	default:
		return target
	}
}

func clamp(value, limit float64) float64 {
	return math.Max(-limit, math.Min(limit, value))
}
