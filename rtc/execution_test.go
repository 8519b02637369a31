package rtc

import (
	"context"
	"sync"
	"testing"
	"time"

	modular "github.com/edwinhayes/logrus-modular"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus/hooks/test"
)

type fakeExecutable struct {
	mu          sync.Mutex
	activateErr error
	cycleErr    error
	activated   int
	deactivated int
	cycles      int
	onCycle     func(n int)
}

func (f *fakeExecutable) Activate() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.activateErr != nil {
		return f.activateErr
	}
	f.activated++
	return nil
}

func (f *fakeExecutable) ExecuteCycle() error {
	f.mu.Lock()
	f.cycles++
	n := f.cycles
	err := f.cycleErr
	onCycle := f.onCycle
	f.mu.Unlock()
	if onCycle != nil {
		onCycle(n)
	}
	return err
}

func (f *fakeExecutable) Deactivate() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deactivated++
	return nil
}

func quietLogger() modular.Logger {
	l, _ := test.NewNullLogger()
	return ChildLogger(NewRootLogger(l), "ExecutionContext")
}

func TestNewExecutionContextRejectsBadRate(t *testing.T) {
	if _, err := NewExecutionContext(0); err == nil {
		t.Error("zero rate accepted")
	}
}

func TestExecutionContextID(t *testing.T) {
	a, err := NewExecutionContext(10, WithExecutionLogger(quietLogger()))
	if err != nil {
		t.Fatal(err)
	}
	b, _ := NewExecutionContext(10, WithExecutionLogger(quietLogger()))
	if a.ID() == "" || a.ID() == b.ID() {
		t.Errorf("ids not unique: %q %q", a.ID(), b.ID())
	}
	if a.Rate() != 10 {
		t.Error(a.Rate())
	}
}

func TestExecutionContextRunUntilCancelled(t *testing.T) {
	ec, err := NewExecutionContext(200, WithExecutionLogger(quietLogger()))
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	comp := &fakeExecutable{onCycle: func(n int) {
		if n == 3 {
			cancel()
		}
	}}
	if err := ec.Run(ctx, comp); err != nil {
		t.Fatal(err)
	}
	if comp.activated != 1 || comp.deactivated != 1 {
		t.Errorf("activated %d deactivated %d", comp.activated, comp.deactivated)
	}
	if comp.cycles != 3 {
		t.Errorf("expected 3 cycles, got %d", comp.cycles)
	}
	if cycles, failures := ec.Stats(); cycles != 3 || failures != 0 {
		t.Errorf("stats %d %d", cycles, failures)
	}
}

func TestExecutionContextActivationFailure(t *testing.T) {
	ec, _ := NewExecutionContext(100, WithExecutionLogger(quietLogger()))
	boom := errors.New("open failed")
	comp := &fakeExecutable{activateErr: boom}
	err := ec.Run(context.Background(), comp)
	if errors.Cause(err) != boom {
		t.Errorf("expected activation error, got %v", err)
	}
	if comp.cycles != 0 || comp.deactivated != 0 {
		t.Errorf("cycles %d deactivated %d", comp.cycles, comp.deactivated)
	}
}

func TestExecutionContextRetryNextTick(t *testing.T) {
	ec, _ := NewExecutionContext(200, WithExecutionLogger(quietLogger()))
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	comp := &fakeExecutable{cycleErr: errors.New("read failed"), onCycle: func(n int) {
		if n == 2 {
			cancel()
		}
	}}
	if err := ec.Run(ctx, comp); err != nil {
		t.Fatal(err)
	}
	if _, failures := ec.Stats(); failures != 2 {
		t.Errorf("expected 2 failures, got %d", failures)
	}
	if comp.deactivated != 1 {
		t.Errorf("deactivated %d", comp.deactivated)
	}
}

func TestExecutionContextStopOnError(t *testing.T) {
	ec, _ := NewExecutionContext(200, WithRetryPolicy(StopOnError), WithExecutionLogger(quietLogger()))
	boom := errors.New("read failed")
	comp := &fakeExecutable{cycleErr: boom}
	err := ec.Run(context.Background(), comp)
	if errors.Cause(err) != boom {
		t.Errorf("expected cycle error, got %v", err)
	}
	if comp.cycles != 1 || comp.deactivated != 1 {
		t.Errorf("cycles %d deactivated %d", comp.cycles, comp.deactivated)
	}
}

func TestParseRetryPolicy(t *testing.T) {
	for in, want := range map[string]RetryPolicy{"": RetryNextTick, "retry": RetryNextTick, "STOP": StopOnError} {
		got, err := ParseRetryPolicy(in)
		if err != nil || got != want {
			t.Errorf("%q: %v %v", in, got, err)
		}
	}
	if _, err := ParseRetryPolicy("panic"); err == nil {
		t.Error("unknown policy accepted")
	}
}
