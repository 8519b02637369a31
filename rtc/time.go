package rtc

import (
	gotime "time"
)

const maxUint32 = int64(^uint32(0))

const secondInNanosecond = 1000000000

func normalizeTemporal(sec int64, nsec int64) (uint32, uint32) {
	if nsec >= secondInNanosecond {
		sec += nsec / secondInNanosecond
		nsec = nsec % secondInNanosecond
	} else if nsec < 0 {
		sec += nsec/secondInNanosecond - 1
		nsec = nsec%secondInNanosecond + secondInNanosecond
		if nsec == secondInNanosecond {
			sec++
			nsec = 0
		}
	}

	if sec < 0 || sec > maxUint32 {
		panic("rtc: time is out of range")
	}

	return uint32(sec), uint32(nsec)
}

func cmpUint64(lhs, rhs uint64) int {
	switch {
	case lhs > rhs:
		return 1
	case lhs < rhs:
		return -1
	default:
		return 0
	}
}

type temporal struct {
	Sec  uint32
	NSec uint32
}

func (t temporal) IsZero() bool {
	return t.Sec == 0 && t.NSec == 0
}

func (t temporal) ToSec() float64 {
	return float64(t.Sec) + float64(t.NSec)*1e-9
}

func (t temporal) ToNSec() uint64 {
	return uint64(t.Sec)*secondInNanosecond + uint64(t.NSec)
}

func (t *temporal) FromSec(sec float64) {
	t.FromNSec(uint64(sec * 1e9))
}

func (t *temporal) FromNSec(nsec uint64) {
	t.Sec, t.NSec = normalizeTemporal(int64(nsec/secondInNanosecond), int64(nsec%secondInNanosecond))
}

// Time is a sample timestamp as carried by the framework data types.
type Time struct {
	temporal
}

// NewTime creates a Time of the given seconds and nanoseconds.
func NewTime(sec uint32, nsec uint32) Time {
	sec, nsec = normalizeTemporal(int64(sec), int64(nsec))
	return Time{temporal{sec, nsec}}
}

// Now returns the current wall clock time.
func Now() Time {
	return FromGoTime(gotime.Now())
}

// FromGoTime converts a time.Time into a Time.
func FromGoTime(t gotime.Time) Time {
	var r Time
	r.FromNSec(uint64(t.UnixNano()))
	return r
}

// GoTime converts t into a time.Time.
func (t Time) GoTime() gotime.Time {
	return gotime.Unix(int64(t.Sec), int64(t.NSec))
}

// Diff returns t - from.
func (t Time) Diff(from Time) Duration {
	sec, nsec := normalizeTemporal(int64(t.Sec)-int64(from.Sec),
		int64(t.NSec)-int64(from.NSec))
	return Duration{temporal{sec, nsec}}
}

// Add returns t + d.
func (t Time) Add(d Duration) Time {
	sec, nsec := normalizeTemporal(int64(t.Sec)+int64(d.Sec),
		int64(t.NSec)+int64(d.NSec))
	return Time{temporal{sec, nsec}}
}

// Cmp compares two times, returning -1, 0 or 1.
func (t Time) Cmp(other Time) int {
	return cmpUint64(t.ToNSec(), other.ToNSec())
}

// Equal reports whether t and other are the same instant.
func (t Time) Equal(other Time) bool {
	return t.Sec == other.Sec && t.NSec == other.NSec
}

// Duration is a non-negative span of {sec,nsec}.
type Duration struct {
	temporal
}

// NewDuration creates a Duration of the given seconds and nanoseconds.
func NewDuration(sec uint32, nsec uint32) Duration {
	sec, nsec = normalizeTemporal(int64(sec), int64(nsec))
	return Duration{temporal{sec, nsec}}
}

// Duration converts d into a time.Duration.
func (d Duration) Duration() gotime.Duration {
	return gotime.Duration(d.ToNSec())
}

// Cmp compares two durations, returning -1, 0 or 1.
func (d Duration) Cmp(other Duration) int {
	return cmpUint64(d.ToNSec(), other.ToNSec())
}

// Sleep pauses the calling goroutine for d.
func (d Duration) Sleep() {
	if !d.IsZero() {
		gotime.Sleep(d.Duration())
	}
}
