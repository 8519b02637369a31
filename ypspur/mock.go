package ypspur

// Call is one recorded MockDriver invocation.
type Call struct {
	Op   string
	Args []float64
}

// MockDriver implements Driver for testing. Every invocation is recorded,
// including ones rejected because the session is closed.
type MockDriver struct {
	Calls []Call

	OpenErr    error
	CloseErr   error
	StopErr    error
	LimitErr   error
	CommandErr error
	AdjustErr  error
	PoseErr    error
	VelErr     error

	// Pose and Vel are returned by ReadGlobalPose and ReadVelocity.
	Pose [3]float64
	Vel  [2]float64

	// PoseFunc, if set, overrides Pose and PoseErr.
	PoseFunc func() (x, y, th float64, err error)

	open bool
}

func (m *MockDriver) record(op string, args ...float64) {
	m.Calls = append(m.Calls, Call{Op: op, Args: args})
}

func (m *MockDriver) guard(injected error) error {
	if !m.open {
		return ErrNotOpen
	}
	return injected
}

// IsOpen reports whether the session is open.
func (m *MockDriver) IsOpen() bool {
	return m.open
}

// Ops returns the recorded operation names in order.
func (m *MockDriver) Ops() []string {
	ops := make([]string, len(m.Calls))
	for i, c := range m.Calls {
		ops[i] = c.Op
	}
	return ops
}

// CallsOf returns the recorded calls of a single operation.
func (m *MockDriver) CallsOf(op string) []Call {
	var calls []Call
	for _, c := range m.Calls {
		if c.Op == op {
			calls = append(calls, c)
		}
	}
	return calls
}

// ResetCalls forgets the recorded calls.
func (m *MockDriver) ResetCalls() {
	m.Calls = nil
}

func (m *MockDriver) Open() error {
	m.record(OpOpen)
	if m.open {
		return ErrAlreadyOpen
	}
	if m.OpenErr != nil {
		return m.OpenErr
	}
	m.open = true
	return nil
}

func (m *MockDriver) Close() error {
	m.record(OpClose)
	if !m.open {
		return ErrNotOpen
	}
	m.open = false
	return m.CloseErr
}

func (m *MockDriver) Stop() error {
	m.record(OpStop)
	return m.guard(m.StopErr)
}

func (m *MockDriver) SetVelocityLimit(v float64) error {
	m.record(OpSetVelocityLimit, v)
	return m.guard(m.LimitErr)
}

func (m *MockDriver) SetAccelLimit(a float64) error {
	m.record(OpSetAccelLimit, a)
	return m.guard(m.LimitErr)
}

func (m *MockDriver) SetAngularVelocityLimit(w float64) error {
	m.record(OpSetAngularVelocityLimit, w)
	return m.guard(m.LimitErr)
}

func (m *MockDriver) SetAngularAccelLimit(aa float64) error {
	m.record(OpSetAngularAccelLimit, aa)
	return m.guard(m.LimitErr)
}

func (m *MockDriver) CommandVelocity(v, w float64) error {
	m.record(OpCommandVelocity, v, w)
	return m.guard(m.CommandErr)
}

func (m *MockDriver) AdjustGlobalPose(x, y, th float64) error {
	m.record(OpAdjustGlobalPose, x, y, th)
	return m.guard(m.AdjustErr)
}

func (m *MockDriver) ReadGlobalPose() (float64, float64, float64, error) {
	m.record(OpReadGlobalPose)
	if err := m.guard(nil); err != nil {
		return 0, 0, 0, err
	}
	if m.PoseFunc != nil {
		return m.PoseFunc()
	}
	if m.PoseErr != nil {
		return 0, 0, 0, m.PoseErr
	}
	return m.Pose[0], m.Pose[1], m.Pose[2], nil
}

func (m *MockDriver) ReadVelocity() (float64, float64, error) {
	m.record(OpReadVelocity)
	if err := m.guard(m.VelErr); err != nil {
		return 0, 0, err
	}
	return m.Vel[0], m.Vel[1], nil
}
