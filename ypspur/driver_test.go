package ypspur

import (
	"testing"

	"github.com/pkg/errors"
)

func TestApplyLimitsOrder(t *testing.T) {
	m := &MockDriver{}
	if err := m.Open(); err != nil {
		t.Fatal(err)
	}
	m.ResetCalls()
	if err := ApplyLimits(m, Limits{Velocity: 1, Accel: 2, AngularVelocity: 3, AngularAccel: 4}); err != nil {
		t.Fatal(err)
	}
	want := []Call{
		{OpSetVelocityLimit, []float64{1}},
		{OpSetAccelLimit, []float64{2}},
		{OpSetAngularVelocityLimit, []float64{3}},
		{OpSetAngularAccelLimit, []float64{4}},
	}
	if len(m.Calls) != len(want) {
		t.Fatalf("calls = %v", m.Calls)
	}
	for i, c := range m.Calls {
		if c.Op != want[i].Op || c.Args[0] != want[i].Args[0] {
			t.Errorf("call %d = %+v, want %+v", i, c, want[i])
		}
	}
}

func TestApplyLimitsStopsAtFailure(t *testing.T) {
	boom := errors.New("ioctl failed")
	m := &MockDriver{LimitErr: boom}
	m.Open()
	m.ResetCalls()
	err := ApplyLimits(m, DefaultLimits)
	opErr, ok := err.(*OpError)
	if !ok || opErr.Op != OpSetVelocityLimit {
		t.Fatalf("unexpected error %v", err)
	}
	if errors.Cause(err) != boom {
		t.Errorf("cause = %v", errors.Cause(err))
	}
	if len(m.Calls) != 1 {
		t.Errorf("calls after failure = %v", m.Ops())
	}
}

func TestMockDriverClosedSession(t *testing.T) {
	m := &MockDriver{Pose: [3]float64{1, 2, 3}}
	if _, _, _, err := m.ReadGlobalPose(); err != ErrNotOpen {
		t.Errorf("expected ErrNotOpen, got %v", err)
	}
	m.Open()
	x, y, th, err := m.ReadGlobalPose()
	if err != nil || x != 1 || y != 2 || th != 3 {
		t.Errorf("pose = (%v, %v, %v) %v", x, y, th, err)
	}
	if err := m.Open(); err != ErrAlreadyOpen {
		t.Errorf("expected ErrAlreadyOpen, got %v", err)
	}
	m.Close()
	if m.IsOpen() {
		t.Error("still open after close")
	}
	if got := len(m.CallsOf(OpReadGlobalPose)); got != 2 {
		t.Errorf("recorded %d pose reads", got)
	}
}

func TestLibDriverStub(t *testing.T) {
	d, err := NewLibDriver()
	if err == ErrUnavailable {
		if d != nil {
			t.Error("stub returned a driver")
		}
		return
	}
	if err != nil || d == nil {
		t.Errorf("NewLibDriver = %v, %v", d, err)
	}
}
