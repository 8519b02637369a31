package spur

import (
	"github.com/edwinhayes/spurgo/rtc"
	"github.com/edwinhayes/spurgo/ypspur"
)

// Configuration property names.
const (
	PropDebug     = "debug"
	PropMaxVel    = "max_vel"
	PropMaxAcc    = "max_acc"
	PropMaxRotVel = "max_rot_vel"
	PropMaxRotAcc = "max_rot_acc"
)

var defaults = []struct {
	name, value string
}{
	{PropDebug, "0"},
	{PropMaxVel, "0.2"},
	{PropMaxAcc, "0.2"},
	{PropMaxRotVel, "0.52"},
	{PropMaxRotAcc, "0.314"},
}

// DefaultProperties returns the configuration defaults as text.
func DefaultProperties() *rtc.Properties {
	p := rtc.NewProperties()
	for _, d := range defaults {
		p.Set(d.name, d.value)
	}
	return p
}

// Config holds the bound configuration. It does not change after
// Initialize.
type Config struct {
	Debug     bool
	MaxVel    float64 // m/s
	MaxAcc    float64 // m/s^2
	MaxRotVel float64 // rad/s
	MaxRotAcc float64 // rad/s^2
}

// Limits returns the motion limits pushed to the driver on activation.
func (c Config) Limits() ypspur.Limits {
	return ypspur.Limits{
		Velocity:        c.MaxVel,
		Accel:           c.MaxAcc,
		AngularVelocity: c.MaxRotVel,
		AngularAccel:    c.MaxRotAcc,
	}
}

// BindConfig parses props into a Config. Unset names take their defaults.
// Values are only checked to parse.
func BindConfig(props *rtc.Properties) (Config, error) {
	merged := rtc.NewProperties()
	merged.Merge(props)
	for _, d := range defaults {
		merged.SetDefault(d.name, d.value)
	}

	var c Config
	debug, err := merged.Bool(PropDebug)
	if err != nil {
		return Config{}, configError(merged, PropDebug, err)
	}
	c.Debug = debug

	floats := []struct {
		name string
		dst  *float64
	}{
		{PropMaxVel, &c.MaxVel},
		{PropMaxAcc, &c.MaxAcc},
		{PropMaxRotVel, &c.MaxRotVel},
		{PropMaxRotAcc, &c.MaxRotAcc},
	}
	for _, f := range floats {
		v, err := merged.Float64(f.name)
		if err != nil {
			return Config{}, configError(merged, f.name, err)
		}
		*f.dst = v
	}
	return c, nil
}

func configError(props *rtc.Properties, name string, err error) error {
	return &ConfigError{Name: name, Value: props.GetOr(name, ""), Err: err}
}
