package main

import (
	"github.com/edwinhayes/spurgo/rtc"
	"github.com/edwinhayes/spurgo/spur"
	"github.com/edwinhayes/spurgo/xmlrpc"
)

// bridgeMethods exposes the data ports of c on the XML-RPC listener so
// external producers and consumers can reach them.
func bridgeMethods(admin *rtc.PortAdmin, c *spur.Component, now func() rtc.Time) map[string]xmlrpc.Method {
	return map[string]xmlrpc.Method{
		"ports.list": func() (interface{}, error) {
			var ports []map[string]interface{}
			for _, p := range admin.Ports() {
				ports = append(ports, map[string]interface{}{
					"name":      p.Name,
					"direction": p.Direction.String(),
					"dataType":  p.DataType,
				})
			}
			return ports, nil
		},
		spur.PortTargetVelocity + ".write": func(vx, va float64) (interface{}, error) {
			c.TargetVelocityIn().Write(rtc.TimedVelocity2D{
				Tm:   now(),
				Data: rtc.Velocity2D{Vx: vx, Va: va},
			})
			return true, nil
		},
		spur.PortPoseUpdate + ".write": func(x, y, th float64) (interface{}, error) {
			c.PoseUpdateIn().Write(rtc.TimedPose2D{
				Tm:   now(),
				Data: rtc.Pose2D{Position: rtc.Point2D{X: x, Y: y}, Heading: th},
			})
			return true, nil
		},
		spur.PortCurrentPose + ".read": func() (interface{}, error) {
			p, ok := c.CurrentPoseOut().Latest()
			return map[string]interface{}{
				"valid":   ok,
				"sec":     p.Tm.Sec,
				"nsec":    p.Tm.NSec,
				"x":       p.Data.Position.X,
				"y":       p.Data.Position.Y,
				"heading": p.Data.Heading,
			}, nil
		},
		spur.PortCurrentVelocity + ".read": func() (interface{}, error) {
			v, ok := c.CurrentVelocityOut().Latest()
			return map[string]interface{}{
				"valid": ok,
				"sec":   v.Tm.Sec,
				"nsec":  v.Tm.NSec,
				"vx":    v.Data.Vx,
				"vy":    v.Data.Vy,
				"va":    v.Data.Va,
			}, nil
		},
	}
}
