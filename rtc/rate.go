package rtc

import (
	"context"
	gotime "time"
)

// Rate paces a periodic loop at a fixed frequency.
type Rate struct {
	actualCycleTime   Duration
	expectedCycleTime Duration
	start             Time
}

// NewRate returns a Rate ticking at frequency Hz.
func NewRate(frequency float64) Rate {
	var expectedCycleTime Duration
	expectedCycleTime.FromSec(1.0 / frequency)
	return Rate{expectedCycleTime: expectedCycleTime, start: Now()}
}

// CycleTime returns a Rate with the given period.
func CycleTime(d Duration) Rate {
	return Rate{expectedCycleTime: d, start: Now()}
}

// CycleTime returns the measured length of the last cycle.
func (r *Rate) CycleTime() Duration {
	return r.actualCycleTime
}

func (r *Rate) ExpectedCycleTime() Duration {
	return r.expectedCycleTime
}

func (r *Rate) Reset() {
	r.actualCycleTime = NewDuration(0, 0)
	r.start = Now()
}

// Remaining returns how long is left of the current cycle.
func (r *Rate) Remaining() Duration {
	now := Now()
	if now.Cmp(r.start) <= 0 {
		return r.expectedCycleTime
	}
	elapsed := now.Diff(r.start)
	if r.expectedCycleTime.Cmp(elapsed) <= 0 {
		return Duration{}
	}
	sec, nsec := normalizeTemporal(int64(r.expectedCycleTime.Sec)-int64(elapsed.Sec),
		int64(r.expectedCycleTime.NSec)-int64(elapsed.NSec))
	return Duration{temporal{sec, nsec}}
}

// Sleep blocks until the end of the current cycle.
func (r *Rate) Sleep() {
	r.Remaining().Sleep()
	r.advance()
}

// Wait is Sleep that returns early with ctx.Err() when ctx is done.
func (r *Rate) Wait(ctx context.Context) error {
	timer := gotime.NewTimer(r.Remaining().Duration())
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
	}
	r.advance()
	return nil
}

func (r *Rate) advance() {
	now := Now()
	if now.Cmp(r.start) > 0 {
		r.actualCycleTime = now.Diff(r.start)
	} else {
		r.actualCycleTime = Duration{}
	}
	r.start = r.start.Add(r.expectedCycleTime)
	// Fell behind by more than a cycle: restart from now instead of bursting.
	if now.Cmp(r.start) > 0 && now.Diff(r.start).Cmp(r.expectedCycleTime) > 0 {
		r.start = now
	}
}
