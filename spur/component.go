// Package spur bridges a YP-Spur motor controller into the component
// framework. A Component relays velocity and pose commands from its input
// ports to the driver and republishes the driver's pose and velocity on its
// output ports, once per execution cycle.
package spur

import (
	"sync"

	modular "github.com/edwinhayes/logrus-modular"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/edwinhayes/spurgo/rtc"
	"github.com/edwinhayes/spurgo/ypspur"
)

// Port and provider names.
const (
	PortTargetVelocity  = "targetVelocity"
	PortPoseUpdate      = "poseUpdate"
	PortCurrentVelocity = "currentVelocity"
	PortCurrentPose     = "currentPose"
	PortSpur            = "spur"

	ProviderName = "YPSpur"
	ProviderType = "spur::YPSpur"
)

// State is a lifecycle state of a Component.
type State int

const (
	StateCreated State = iota
	StateInitialized
	StateActive
	StateDeactivated
	StateFinalized
)

func (s State) String() string {
	switch s {
	case StateCreated:
		return "Created"
	case StateInitialized:
		return "Initialized"
	case StateActive:
		return "Active"
	case StateDeactivated:
		return "Deactivated"
	case StateFinalized:
		return "Finalized"
	default:
		return "Unknown"
	}
}

// Component is the motion bridge. Its methods are safe to call from
// multiple goroutines; cycles and service calls are serialised.
type Component struct {
	mu     sync.Mutex
	name   string
	driver ypspur.Driver
	logger modular.ModuleLogger
	clock  func() rtc.Time

	state  State
	config Config

	targetVelocityIn   *rtc.InPort[rtc.TimedVelocity2D]
	poseUpdateIn       *rtc.InPort[rtc.TimedPose2D]
	currentVelocityOut *rtc.OutPort[rtc.TimedVelocity2D]
	currentPoseOut     *rtc.OutPort[rtc.TimedPose2D]
	spurPort           *rtc.ServicePort

	currentPose     rtc.TimedPose2D
	currentVelocity rtc.TimedVelocity2D
}

type Option func(*Component)

// WithLogger sets the module diagnostics are written to. The debug
// property changes the level of this module only.
func WithLogger(l modular.ModuleLogger) Option {
	return func(c *Component) { c.logger = l }
}

// WithClock sets the source of sample timestamps.
func WithClock(clock func() rtc.Time) Option {
	return func(c *Component) { c.clock = clock }
}

// WithName sets the instance name used in logs.
func WithName(name string) Option {
	return func(c *Component) { c.name = name }
}

// New creates a component owning driver. The driver must not be used by
// anything else while the component is active.
func New(driver ypspur.Driver, opts ...Option) *Component {
	c := &Component{
		name:   "SpurRTC0",
		driver: driver,
		clock:  rtc.Now,
		state:  StateCreated,

		targetVelocityIn:   rtc.NewInPort[rtc.TimedVelocity2D](PortTargetVelocity),
		poseUpdateIn:       rtc.NewInPort[rtc.TimedPose2D](PortPoseUpdate),
		currentVelocityOut: rtc.NewOutPort[rtc.TimedVelocity2D](PortCurrentVelocity),
		currentPoseOut:     rtc.NewOutPort[rtc.TimedPose2D](PortCurrentPose),
		spurPort:           rtc.NewServicePort(PortSpur),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = rtc.NewLogger(c.name)
	}
	return c
}

func (c *Component) Name() string { return c.name }

func (c *Component) TargetVelocityIn() *rtc.InPort[rtc.TimedVelocity2D] { return c.targetVelocityIn }
func (c *Component) PoseUpdateIn() *rtc.InPort[rtc.TimedPose2D]         { return c.poseUpdateIn }
func (c *Component) CurrentVelocityOut() *rtc.OutPort[rtc.TimedVelocity2D] {
	return c.currentVelocityOut
}
func (c *Component) CurrentPoseOut() *rtc.OutPort[rtc.TimedPose2D] { return c.currentPoseOut }
func (c *Component) SpurPort() *rtc.ServicePort                    { return c.spurPort }

func (c *Component) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Config returns the bound configuration. It is the zero Config before
// Initialize.
func (c *Component) Config() Config {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.config
}

// Initialize binds props and registers the ports with reg. Unset
// properties take their defaults. On failure nothing stays registered with
// reg and Initialize may be called again.
func (c *Component) Initialize(reg rtc.PortRegistry, props *rtc.Properties) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateCreated {
		return invalidState(c.state, "initialize")
	}

	config, err := BindConfig(props)
	if err != nil {
		return err
	}
	if _, ok := c.spurPort.Provider(ProviderName); !ok {
		if err := c.spurPort.RegisterProvider(ProviderName, ProviderType, &Service{c: c}); err != nil {
			return &InitializationError{Port: PortSpur, Err: err}
		}
	}
	if err := registerPorts(reg, []rtc.Port{
		c.targetVelocityIn,
		c.poseUpdateIn,
		c.currentVelocityOut,
		c.currentPoseOut,
		c.spurPort,
	}); err != nil {
		return err
	}

	c.config = config
	if config.Debug && c.logger.GetLevel() < logrus.DebugLevel {
		c.logger.SetLevel(logrus.DebugLevel)
	}
	c.logger.WithFields(logrus.Fields{
		PropMaxVel:    config.MaxVel,
		PropMaxAcc:    config.MaxAcc,
		PropMaxRotVel: config.MaxRotVel,
		PropMaxRotAcc: config.MaxRotAcc,
	}).Info("Initialized")
	c.state = StateInitialized
	return nil
}

// Activate opens the driver session and pushes the configured limits. On
// failure the session is left closed and the state is unchanged.
func (c *Component) Activate() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateInitialized && c.state != StateDeactivated {
		return invalidState(c.state, "activate")
	}

	if err := c.driver.Open(); err != nil {
		c.logger.WithError(err).Error("Can not open Spur")
		return &HardwareError{Op: ypspur.OpOpen, Err: err}
	}
	if err := ypspur.ApplyLimits(c.driver, c.config.Limits()); err != nil {
		c.logger.WithError(err).Error("Can not apply limits")
		if cerr := c.driver.Close(); cerr != nil {
			c.logger.WithError(cerr).Warn("Close after failed activation")
		}
		return &HardwareError{Op: opOf(err, "limits"), Err: err}
	}

	c.currentPose.Data = rtc.Pose2D{}
	c.state = StateActive
	c.logger.Debug("Activated")
	return nil
}

// Deactivate stops the platform and closes the driver session. The
// component is Deactivated afterwards even if the driver reported an
// error, which is returned.
func (c *Component) Deactivate() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateActive {
		return invalidState(c.state, "deactivate")
	}
	c.state = StateDeactivated

	stopErr := c.driver.Stop()
	if stopErr != nil {
		c.logger.WithError(stopErr).Error("Spur_stop failed")
	}
	closeErr := c.driver.Close()
	if closeErr != nil {
		c.logger.WithError(closeErr).Error("Spur_free failed")
	}
	c.logger.Debug("Deactivated")

	if stopErr != nil {
		return &HardwareError{Op: ypspur.OpStop, Err: stopErr}
	}
	if closeErr != nil {
		return &HardwareError{Op: ypspur.OpClose, Err: closeErr}
	}
	return nil
}

// registerPorts adds ports to reg in order. If one is rejected the ports
// added before it are removed again.
func registerPorts(reg rtc.PortRegistry, ports []rtc.Port) error {
	for i, p := range ports {
		if err := reg.AddPort(p); err != nil {
			for _, added := range ports[:i] {
				reg.RemovePort(added.Profile().Name)
			}
			return &InitializationError{Port: p.Profile().Name, Err: err}
		}
	}
	return nil
}

// Finalize ends the component's life. It is not allowed while Active.
func (c *Component) Finalize() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch c.state {
	case StateCreated, StateInitialized, StateDeactivated:
		c.state = StateFinalized
		return nil
	default:
		return invalidState(c.state, "finalize")
	}
}

// cycleOutput holds the samples a cycle publishes once the component lock
// is released, so port listeners may call back into the component.
type cycleOutput struct {
	pose     *rtc.TimedPose2D
	velocity *rtc.TimedVelocity2D
}

func (o cycleOutput) publish(c *Component) {
	if o.pose != nil {
		c.currentPoseOut.Write(*o.pose)
	}
	if o.velocity != nil {
		c.currentVelocityOut.Write(*o.velocity)
	}
}

// ExecuteCycle relays any new commands to the driver and publishes the
// driver's pose and velocity if the pose changed.
func (c *Component) ExecuteCycle() error {
	var out cycleOutput
	err := c.executeLocked(&out)
	out.publish(c)
	return err
}

func (c *Component) executeLocked(out *cycleOutput) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateActive {
		return invalidState(c.state, "execute")
	}
	if err := c.relayCommands(); err != nil {
		return err
	}
	return c.sampleStatus(out)
}

// relayCommands forwards both pending commands and returns the first
// failure.
func (c *Component) relayCommands() error {
	var first error
	if cmd, ok := c.targetVelocityIn.Read(); ok {
		c.logger.Debugf("Velocity command vx=%v va=%v", cmd.Data.Vx, cmd.Data.Va)
		if err := c.driver.CommandVelocity(cmd.Data.Vx, cmd.Data.Va); err != nil {
			first = c.hardwareError(ypspur.OpCommandVelocity, err)
		}
	}

	if upd, ok := c.poseUpdateIn.Read(); ok {
		p := upd.Data
		c.logger.Debugf("Pose update x=%v y=%v th=%v", p.Position.X, p.Position.Y, p.Heading)
		if err := c.driver.AdjustGlobalPose(p.Position.X, p.Position.Y, p.Heading); err != nil {
			herr := c.hardwareError(ypspur.OpAdjustGlobalPose, err)
			if first == nil {
				first = herr
			}
		}
	}
	return first
}

func (c *Component) sampleStatus(out *cycleOutput) error {
	x, y, th, err := c.driver.ReadGlobalPose()
	if err != nil {
		return c.hardwareError(ypspur.OpReadGlobalPose, err)
	}

	held := c.currentPose.Data
	if held.Position.X == x && held.Position.Y == y && held.Heading == th {
		return nil
	}
	c.currentPose.Data = rtc.Pose2D{Position: rtc.Point2D{X: x, Y: y}, Heading: th}
	c.currentPose.Tm = c.clock()
	pose := c.currentPose
	out.pose = &pose

	v, w, err := c.driver.ReadVelocity()
	if err != nil {
		return c.hardwareError(ypspur.OpReadVelocity, err)
	}
	c.currentVelocity.Data = rtc.Velocity2D{Vx: v, Vy: 0, Va: w}
	c.currentVelocity.Tm = c.clock()
	vel := c.currentVelocity
	out.velocity = &vel
	return nil
}

func (c *Component) hardwareError(op string, err error) error {
	c.logger.WithError(err).WithField("op", op).Error("Driver call failed")
	return &HardwareError{Op: op, Err: err}
}

// withSession runs fn on the driver while the session is open.
func (c *Component) withSession(op string, fn func(d ypspur.Driver) error) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateActive {
		return &HardwareError{Op: op, Err: ypspur.ErrNotOpen}
	}
	if err := fn(c.driver); err != nil {
		return c.hardwareError(op, err)
	}
	return nil
}

func opOf(err error, fallback string) string {
	var opErr *ypspur.OpError
	if errors.As(err, &opErr) {
		return opErr.Op
	}
	return fallback
}
