package spur

import "fmt"

// ModuleProfile identifies the component to the framework.
type ModuleProfile struct {
	ImplementationID string
	TypeName         string
	Description      string
	Version          string
	Vendor           string
	Category         string
	ActivityType     string
	Kind             string
	MaxInstance      int
}

// Profile is the profile of the motion bridge module.
var Profile = ModuleProfile{
	ImplementationID: "SpurRTC",
	TypeName:         "SpurRTC",
	Description:      "Spur RT-Component",
	Version:          "1.0.0",
	Vendor:           "Sugar Sweet Robotics",
	Category:         "Experimental",
	ActivityType:     "PERIODIC",
	Kind:             "DataFlowComponent",
	MaxInstance:      1,
}

// Spec returns the profile as ordered name/value pairs, followed by the
// configuration defaults and their editor widgets.
func (p ModuleProfile) Spec() [][2]string {
	spec := [][2]string{
		{"implementation_id", p.ImplementationID},
		{"type_name", p.TypeName},
		{"description", p.Description},
		{"version", p.Version},
		{"vendor", p.Vendor},
		{"category", p.Category},
		{"activity_type", p.ActivityType},
		{"kind", p.Kind},
		{"max_instance", fmt.Sprint(p.MaxInstance)},
		{"language", "Go"},
	}
	for _, d := range defaults {
		spec = append(spec, [2]string{"conf.default." + d.name, d.value})
	}
	for _, d := range defaults {
		spec = append(spec, [2]string{"conf.__widget__." + d.name, "text"})
	}
	return spec
}
