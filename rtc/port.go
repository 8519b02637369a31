package rtc

import (
	"sort"
	"sync"

	"github.com/pkg/errors"
)

// Direction tells which way data flows through a port.
type Direction int

const (
	DirectionIn Direction = iota
	DirectionOut
	DirectionService
)

func (d Direction) String() string {
	switch d {
	case DirectionIn:
		return "DataInPort"
	case DirectionOut:
		return "DataOutPort"
	case DirectionService:
		return "CorbaPort"
	default:
		return "unknown"
	}
}

// PortProfile describes a registered port.
type PortProfile struct {
	Name      string
	Direction Direction
	DataType  string
}

// Port is anything a component can register with a PortRegistry.
type Port interface {
	Profile() PortProfile
}

var (
	ErrEmptyPortName = errors.New("port name is empty")
	ErrDuplicatePort = errors.New("port already registered")
)

// InPort is a single-slot input. A producer overwrites the slot with Write;
// the owning component consumes it with Read. Each written sample is
// reported new at most once.
type InPort[T any] struct {
	name  string
	mu    sync.Mutex
	value T
	isNew bool
}

func NewInPort[T any](name string) *InPort[T] {
	return &InPort[T]{name: name}
}

func (p *InPort[T]) Name() string {
	return p.name
}

func (p *InPort[T]) Profile() PortProfile {
	var zero T
	return PortProfile{Name: p.name, Direction: DirectionIn, DataType: DataTypeName(zero)}
}

// Write stores v as the latest sample, replacing any unread one.
func (p *InPort[T]) Write(v T) {
	p.mu.Lock()
	p.value = v
	p.isNew = true
	p.mu.Unlock()
}

// IsNew reports whether a sample arrived since the last Read.
func (p *InPort[T]) IsNew() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.isNew
}

// Read returns the latest sample and whether it was new. The new flag is
// cleared, so a second Read without a Write in between returns false.
func (p *InPort[T]) Read() (T, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	wasNew := p.isNew
	p.isNew = false
	return p.value, wasNew
}

// OutPort holds the latest sample written by the component and fans it out
// to listeners.
type OutPort[T any] struct {
	name      string
	mu        sync.Mutex
	latest    T
	count     uint64
	listeners []func(T)
}

func NewOutPort[T any](name string) *OutPort[T] {
	return &OutPort[T]{name: name}
}

func (p *OutPort[T]) Name() string {
	return p.name
}

func (p *OutPort[T]) Profile() PortProfile {
	var zero T
	return PortProfile{Name: p.name, Direction: DirectionOut, DataType: DataTypeName(zero)}
}

// OnWrite registers fn to be called, in the writer's goroutine, for every
// sample written after registration.
func (p *OutPort[T]) OnWrite(fn func(T)) {
	p.mu.Lock()
	p.listeners = append(p.listeners, fn)
	p.mu.Unlock()
}

func (p *OutPort[T]) Write(v T) {
	p.mu.Lock()
	p.latest = v
	p.count++
	listeners := make([]func(T), len(p.listeners))
	copy(listeners, p.listeners)
	p.mu.Unlock()

	for _, fn := range listeners {
		fn(v)
	}
}

// Latest returns the last written sample, or false if nothing was written.
func (p *OutPort[T]) Latest() (T, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.latest, p.count > 0
}

// Count returns the number of samples written so far.
func (p *OutPort[T]) Count() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.count
}

// ServicePort exposes provider objects under an instance name.
type ServicePort struct {
	name      string
	mu        sync.RWMutex
	providers map[string]serviceProvider
}

type serviceProvider struct {
	typeName string
	impl     interface{}
}

func NewServicePort(name string) *ServicePort {
	return &ServicePort{name: name, providers: make(map[string]serviceProvider)}
}

func (p *ServicePort) Name() string {
	return p.name
}

func (p *ServicePort) Profile() PortProfile {
	p.mu.RLock()
	defer p.mu.RUnlock()
	dataType := ""
	for _, sp := range p.providers {
		dataType = sp.typeName
		break
	}
	return PortProfile{Name: p.name, Direction: DirectionService, DataType: dataType}
}

// RegisterProvider makes impl reachable as instanceName of interface
// typeName.
func (p *ServicePort) RegisterProvider(instanceName, typeName string, impl interface{}) error {
	if instanceName == "" {
		return errors.New("provider instance name is empty")
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.providers[instanceName]; ok {
		return errors.Errorf("provider %q already registered on port %q", instanceName, p.name)
	}
	p.providers[instanceName] = serviceProvider{typeName: typeName, impl: impl}
	return nil
}

// Provider returns the provider registered as instanceName.
func (p *ServicePort) Provider(instanceName string) (interface{}, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	sp, ok := p.providers[instanceName]
	return sp.impl, ok
}

// PortRegistry accepts port registrations from a component.
type PortRegistry interface {
	AddPort(p Port) error
	// RemovePort drops the port registered as name, reporting whether
	// there was one.
	RemovePort(name string) bool
}

// PortAdmin is the default PortRegistry.
type PortAdmin struct {
	mu    sync.RWMutex
	ports map[string]Port
}

func NewPortAdmin() *PortAdmin {
	return &PortAdmin{ports: make(map[string]Port)}
}

func (a *PortAdmin) AddPort(p Port) error {
	name := p.Profile().Name
	if name == "" {
		return ErrEmptyPortName
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, ok := a.ports[name]; ok {
		return errors.Wrapf(ErrDuplicatePort, "port %q", name)
	}
	a.ports[name] = p
	return nil
}

func (a *PortAdmin) RemovePort(name string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, ok := a.ports[name]; !ok {
		return false
	}
	delete(a.ports, name)
	return true
}

// Lookup returns the port registered under name.
func (a *PortAdmin) Lookup(name string) (Port, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	p, ok := a.ports[name]
	return p, ok
}

// Ports lists the profiles of all registered ports sorted by name.
func (a *PortAdmin) Ports() []PortProfile {
	a.mu.RLock()
	profiles := make([]PortProfile, 0, len(a.ports))
	for _, p := range a.ports {
		profiles = append(profiles, p.Profile())
	}
	a.mu.RUnlock()
	sort.Slice(profiles, func(i, j int) bool { return profiles[i].Name < profiles[j].Name })
	return profiles
}
