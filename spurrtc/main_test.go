package main

import (
	"bytes"
	"context"
	"io/ioutil"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	modular "github.com/edwinhayes/logrus-modular"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edwinhayes/spurgo/rtc"
	"github.com/edwinhayes/spurgo/spur"
	"github.com/edwinhayes/spurgo/xmlrpc"
	"github.com/edwinhayes/spurgo/ypspur"
)

func TestLoadProperties(t *testing.T) {
	dir, err := ioutil.TempDir("", "spurrtc")
	require.NoError(t, err)
	defer os.RemoveAll(dir)
	path := filepath.Join(dir, "conf.json")
	require.NoError(t, ioutil.WriteFile(path, []byte(`{"max_vel": 0.3, "max_acc": "0.4"}`), 0644))

	props, specials, err := loadProperties(path, []string{"_max_vel:=0.5", "__name:=base1"})
	require.NoError(t, err)
	assert.Equal(t, "0.5", props.GetOr(spur.PropMaxVel, ""))
	assert.Equal(t, "0.4", props.GetOr(spur.PropMaxAcc, ""))
	assert.Equal(t, "base1", specials.GetOr("__name", defaultName))
	assert.Equal(t, "", props.GetOr("__name", ""))

	_, specials, err = loadProperties("", nil)
	require.NoError(t, err)
	assert.Equal(t, defaultName, specials.GetOr("__name", defaultName))

	_, _, err = loadProperties("", []string{"stray"})
	assert.Error(t, err)
	_, _, err = loadProperties(filepath.Join(dir, "missing.json"), nil)
	assert.Error(t, err)
}

func TestParseCallArg(t *testing.T) {
	assert.Equal(t, 0.5, parseCallArg("0.5"))
	assert.Equal(t, 3.0, parseCallArg("3"))
	assert.Equal(t, true, parseCallArg("true"))
	assert.Equal(t, "hello", parseCallArg("hello"))
}

func TestNewDriver(t *testing.T) {
	d, err := newDriver("sim")
	require.NoError(t, err)
	assert.IsType(t, &ypspur.Simulator{}, d)
	_, err = newDriver("serial")
	assert.Error(t, err)
}

func TestPrintProfile(t *testing.T) {
	var buf bytes.Buffer
	printProfile(&buf)
	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "implementation_id: SpurRTC\n"))
	assert.Contains(t, out, "conf.default.max_vel: 0.2\n")
}

func quietRoot() modular.RootLogger {
	logger, _ := test.NewNullLogger()
	return rtc.NewRootLogger(logger)
}

func TestNewInstance(t *testing.T) {
	root := quietRoot()
	inst, err := newInstance(&ypspur.MockDriver{}, nil, "base1",
		spur.WithLogger(rtc.ChildLogger(root, "base1")))
	require.NoError(t, err)
	assert.Equal(t, "base1", inst.comp.Name())
	assert.Equal(t, spur.StateInitialized, inst.comp.State())
	assert.Len(t, inst.admin.Ports(), 5)

	bad := rtc.PropertiesFrom(map[string]string{spur.PropMaxVel: "fast"})
	_, err = newInstance(&ypspur.MockDriver{}, bad, "base2",
		spur.WithLogger(rtc.ChildLogger(root, "base2")))
	assert.True(t, spur.IsConfigError(err))
}

func TestRunWithSimulator(t *testing.T) {
	root := quietRoot()
	inst, err := newInstance(ypspur.NewSimulator(), nil, "sim0",
		spur.WithLogger(rtc.ChildLogger(root, "sim0")))
	require.NoError(t, err)
	server := httptest.NewServer(inst.handler)
	defer server.Close()

	inst.comp.TargetVelocityIn().Write(rtc.TimedVelocity2D{Data: rtc.Velocity2D{Vx: 0.2}})
	ec, err := rtc.NewExecutionContext(200,
		rtc.WithExecutionLogger(rtc.ChildLogger(root, "ExecutionContext")))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 150*time.Millisecond)
	defer cancel()
	during := make(chan interface{}, 1)
	go func() {
		time.Sleep(50 * time.Millisecond)
		state, err := xmlrpc.Call(server.URL, "state")
		if err != nil {
			state = err
		}
		during <- state
	}()
	require.NoError(t, ec.Run(ctx, inst.comp))
	assert.Equal(t, "Active", <-during, "service state while running")

	assert.Equal(t, spur.StateDeactivated, inst.comp.State())
	cycles, failures := ec.Stats()
	assert.NotZero(t, cycles)
	assert.Zero(t, failures)
	pose, ok := inst.comp.CurrentPoseOut().Latest()
	require.True(t, ok, "no pose published")
	assert.Greater(t, pose.Data.Position.X, 0.0)

	state, err := xmlrpc.Call(server.URL, "state")
	require.NoError(t, err)
	assert.Equal(t, "Deactivated", state)
	require.NoError(t, inst.comp.Finalize())
}

func TestPortBridge(t *testing.T) {
	driver := &ypspur.MockDriver{Pose: [3]float64{1, 2, 0}}
	stamp := rtc.NewTime(42, 7)
	comp := spur.New(driver,
		spur.WithLogger(rtc.ChildLogger(quietRoot(), "SpurRTC0")),
		spur.WithClock(func() rtc.Time { return stamp }))
	admin := rtc.NewPortAdmin()
	require.NoError(t, comp.Initialize(admin, nil))
	require.NoError(t, comp.Activate())

	handler := xmlrpc.NewHandler(bridgeMethods(admin, comp, func() rtc.Time { return stamp }))
	server := httptest.NewServer(handler)
	defer server.Close()

	result, err := xmlrpc.Call(server.URL, "ports.list")
	require.NoError(t, err)
	ports, ok := result.([]interface{})
	require.True(t, ok)
	assert.Len(t, ports, 5)

	pose, err := xmlrpc.Call(server.URL, "currentPose.read")
	require.NoError(t, err)
	assert.Equal(t, false, pose.(map[string]interface{})["valid"])

	_, err = xmlrpc.Call(server.URL, "targetVelocity.write", 0.5, 0.1)
	require.NoError(t, err)
	require.NoError(t, comp.ExecuteCycle())
	assert.Equal(t, []ypspur.Call{{Op: ypspur.OpCommandVelocity, Args: []float64{0.5, 0.1}}},
		driver.CallsOf(ypspur.OpCommandVelocity))

	pose, err = xmlrpc.Call(server.URL, "currentPose.read")
	require.NoError(t, err)
	m := pose.(map[string]interface{})
	assert.Equal(t, true, m["valid"])
	assert.Equal(t, int32(42), m["sec"])
	assert.Equal(t, 1.0, m["x"])
	assert.Equal(t, 2.0, m["y"])

	vel, err := xmlrpc.Call(server.URL, "currentVelocity.read")
	require.NoError(t, err)
	assert.Equal(t, true, vel.(map[string]interface{})["valid"])

	_, err = xmlrpc.Call(server.URL, "poseUpdate.write", 3, 4, 0.5)
	require.NoError(t, err)
	require.NoError(t, comp.ExecuteCycle())
	assert.Equal(t, []ypspur.Call{{Op: ypspur.OpAdjustGlobalPose, Args: []float64{3, 4, 0.5}}},
		driver.CallsOf(ypspur.OpAdjustGlobalPose))
}
