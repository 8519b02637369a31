package spur

import (
	"github.com/edwinhayes/spurgo/xmlrpc"
	"github.com/edwinhayes/spurgo/ypspur"
)

// Service is the YPSpur provider of the spur service port. It reaches the
// driver through the component, so calls fail unless the component is
// Active.
type Service struct {
	c *Component
}

// Stop brings the platform to rest.
func (s *Service) Stop() error {
	return s.c.withSession(ypspur.OpStop, func(d ypspur.Driver) error {
		return d.Stop()
	})
}

// Vel commands a linear and angular velocity directly.
func (s *Service) Vel(v, w float64) error {
	return s.c.withSession(ypspur.OpCommandVelocity, func(d ypspur.Driver) error {
		return d.CommandVelocity(v, w)
	})
}

// AdjustPosGL re-anchors odometry in the global frame.
func (s *Service) AdjustPosGL(x, y, th float64) error {
	return s.c.withSession(ypspur.OpAdjustGlobalPose, func(d ypspur.Driver) error {
		return d.AdjustGlobalPose(x, y, th)
	})
}

// GetPosGL reads the pose in the global frame.
func (s *Service) GetPosGL() (x, y, th float64, err error) {
	err = s.c.withSession(ypspur.OpReadGlobalPose, func(d ypspur.Driver) error {
		var rerr error
		x, y, th, rerr = d.ReadGlobalPose()
		return rerr
	})
	return
}

// GetVel reads the linear and angular velocity.
func (s *Service) GetVel() (v, w float64, err error) {
	err = s.c.withSession(ypspur.OpReadVelocity, func(d ypspur.Driver) error {
		var rerr error
		v, w, rerr = d.ReadVelocity()
		return rerr
	})
	return
}

// State returns the component's lifecycle state name.
func (s *Service) State() string {
	return s.c.State().String()
}

// Methods returns the XML-RPC bindings of s.
func (s *Service) Methods() map[string]xmlrpc.Method {
	return map[string]xmlrpc.Method{
		"stop": func() (interface{}, error) {
			return true, s.Stop()
		},
		"vel": func(v, w float64) (interface{}, error) {
			return true, s.Vel(v, w)
		},
		"adjustPosGL": func(x, y, th float64) (interface{}, error) {
			return true, s.AdjustPosGL(x, y, th)
		},
		"getPosGL": func() (interface{}, error) {
			x, y, th, err := s.GetPosGL()
			return []float64{x, y, th}, err
		},
		"getVel": func() (interface{}, error) {
			v, w, err := s.GetVel()
			return []float64{v, w}, err
		},
		"state": func() (interface{}, error) {
			return s.State(), nil
		},
	}
}

// ServiceOf returns the YPSpur provider registered on c's service port.
func ServiceOf(c *Component) (*Service, bool) {
	impl, ok := c.SpurPort().Provider(ProviderName)
	if !ok {
		return nil, false
	}
	s, ok := impl.(*Service)
	return s, ok
}
