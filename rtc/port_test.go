package rtc

import (
	"sync"
	"testing"

	"github.com/pkg/errors"
)

func TestInPortReadOnce(t *testing.T) {
	p := NewInPort[TimedVelocity2D]("targetVelocity")
	if p.IsNew() {
		t.Fatal("fresh port reports new data")
	}
	if _, ok := p.Read(); ok {
		t.Fatal("fresh port returned a new sample")
	}

	p.Write(TimedVelocity2D{Data: Velocity2D{Vx: 0.5, Va: 0.1}})
	if !p.IsNew() {
		t.Fatal("written port does not report new data")
	}
	v, ok := p.Read()
	if !ok || v.Data.Vx != 0.5 || v.Data.Va != 0.1 {
		t.Errorf("unexpected read %+v %v", v, ok)
	}
	if p.IsNew() {
		t.Error("sample still new after read")
	}
	v, ok = p.Read()
	if ok {
		t.Error("sample delivered twice")
	}
	if v.Data.Vx != 0.5 {
		t.Errorf("last value lost: %+v", v)
	}
}

func TestInPortKeepsLatest(t *testing.T) {
	p := NewInPort[TimedPose2D]("poseUpdate")
	p.Write(TimedPose2D{Data: Pose2D{Heading: 1}})
	p.Write(TimedPose2D{Data: Pose2D{Heading: 2}})
	v, ok := p.Read()
	if !ok || v.Data.Heading != 2 {
		t.Errorf("unexpected read %+v %v", v, ok)
	}
}

func TestInPortConcurrentWriters(t *testing.T) {
	p := NewInPort[TimedVelocity2D]("targetVelocity")
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			p.Write(TimedVelocity2D{Data: Velocity2D{Vx: float64(i)}})
		}(i)
	}
	wg.Wait()
	if _, ok := p.Read(); !ok {
		t.Error("no sample after concurrent writes")
	}
}

func TestOutPortListeners(t *testing.T) {
	p := NewOutPort[TimedPose2D]("currentPose")
	if _, ok := p.Latest(); ok {
		t.Fatal("fresh port has a latest sample")
	}
	var got []float64
	p.OnWrite(func(v TimedPose2D) { got = append(got, v.Data.Position.X) })

	p.Write(TimedPose2D{Data: Pose2D{Position: Point2D{X: 1}}})
	p.Write(TimedPose2D{Data: Pose2D{Position: Point2D{X: 2}}})

	if p.Count() != 2 {
		t.Errorf("expected 2 writes, got %d", p.Count())
	}
	if len(got) != 2 || got[0] != 1 || got[1] != 2 {
		t.Errorf("listener saw %v", got)
	}
	latest, ok := p.Latest()
	if !ok || latest.Data.Position.X != 2 {
		t.Errorf("unexpected latest %+v", latest)
	}
}

func TestPortAdmin(t *testing.T) {
	admin := NewPortAdmin()
	if err := admin.AddPort(NewInPort[TimedVelocity2D]("targetVelocity")); err != nil {
		t.Fatal(err)
	}
	if err := admin.AddPort(NewOutPort[TimedPose2D]("currentPose")); err != nil {
		t.Fatal(err)
	}
	err := admin.AddPort(NewOutPort[TimedPose2D]("currentPose"))
	if errors.Cause(err) != ErrDuplicatePort {
		t.Errorf("expected duplicate error, got %v", err)
	}
	if err := admin.AddPort(NewInPort[TimedPose2D]("")); err != ErrEmptyPortName {
		t.Errorf("expected empty name error, got %v", err)
	}

	profiles := admin.Ports()
	if len(profiles) != 2 {
		t.Fatalf("expected 2 ports, got %d", len(profiles))
	}
	if profiles[0].Name != "currentPose" || profiles[0].Direction != DirectionOut || profiles[0].DataType != "RTC::TimedPose2D" {
		t.Errorf("unexpected profile %+v", profiles[0])
	}
	if profiles[1].Name != "targetVelocity" || profiles[1].Direction != DirectionIn || profiles[1].DataType != "RTC::TimedVelocity2D" {
		t.Errorf("unexpected profile %+v", profiles[1])
	}
	if _, ok := admin.Lookup("targetVelocity"); !ok {
		t.Error("lookup failed")
	}

	if !admin.RemovePort("currentPose") {
		t.Error("remove of registered port reported false")
	}
	if admin.RemovePort("currentPose") {
		t.Error("second remove reported true")
	}
	if err := admin.AddPort(NewOutPort[TimedPose2D]("currentPose")); err != nil {
		t.Errorf("re-add after remove: %v", err)
	}
}

func TestServicePortProviders(t *testing.T) {
	sp := NewServicePort("spur")
	if err := sp.RegisterProvider("YPSpur", "spur::YPSpur", 42); err != nil {
		t.Fatal(err)
	}
	if err := sp.RegisterProvider("YPSpur", "spur::YPSpur", 43); err == nil {
		t.Error("duplicate provider accepted")
	}
	impl, ok := sp.Provider("YPSpur")
	if !ok || impl.(int) != 42 {
		t.Errorf("unexpected provider %v", impl)
	}
	if prof := sp.Profile(); prof.DataType != "spur::YPSpur" || prof.Direction != DirectionService {
		t.Errorf("unexpected profile %+v", prof)
	}
}
