// Package devicestate tracks the observed state of a hardware
// device's OSC-addressable parameters, computes the diff against a
// desired configuration, and reconciles by watching for the device's
// own echo rather than assuming a send succeeded (spec.md §4.6).
package devicestate

import (
	"sync"
	"time"
)

// Status is the device's lifecycle stage, mirroring spec.md §3's
// DeviceState model.
type Status int

const (
	Disconnected Status = iota
	Connected
	Initialized
	Running
	Error
)

func (s Status) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connected:
		return "connected"
	case Initialized:
		return "initialized"
	case Running:
		return "running"
	case Error:
		return "error"
	default:
		return "unknown"
	}
}

// Parameter is one tracked value plus its reconciliation bookkeeping:
// a value the manager sent but has not yet seen echoed is "pending"
// until either the echo arrives or echoTimeout elapses, at which
// point it is marked drifted (spec.md §4.6 "a timeout (default 2s) on
// echo causes the parameter to be marked drifted").
type Parameter struct {
	Value   float32
	Pending bool
	SentAt  time.Time
	Drifted bool
}

// DeviceState is the current observed state of one device (spec.md
// §4.6, §3).
type DeviceState struct {
	Name        string
	Type        string
	Status      Status
	InputChans  int
	OutputChans int
	SampleRate  int
	BlockSize   int
	Properties  map[string]string
	Parameters  map[string]Parameter
}

// NewDeviceState returns an empty, Disconnected DeviceState.
func NewDeviceState(name, deviceType string) *DeviceState {
	return &DeviceState{
		Name:       name,
		Type:       deviceType,
		Status:     Disconnected,
		Properties: make(map[string]string),
		Parameters: make(map[string]Parameter),
	}
}

// Healthy reports spec.md §4.6's health check: status not Error,
// sample rate and block size positive, and (for a hardware device) at
// least one channel direction present.
func (d *DeviceState) Healthy() bool {
	if d.Status == Error {
		return false
	}
	if d.SampleRate <= 0 || d.BlockSize <= 0 {
		return false
	}
	if d.InputChans == 0 && d.OutputChans == 0 {
		return false
	}
	return true
}

// Manager owns a DeviceState and the parameter plane used to read and
// write it, implementing spec.md §4.6's query/apply/reconcile
// protocol. It is guarded by a mutex per spec.md §5's "DeviceState is
// guarded by a mutex; writers on the OSC server thread and control
// thread both go through it".
type Manager struct {
	mu          sync.Mutex
	state       *DeviceState
	plane       ParameterPlane
	codec       ParameterCodec
	echoTimeout time.Duration
	listeners   []func(address string, value float32)
}

// ParameterPlane is the write half of the device control transport
// (spec.md §4.6 "send(address, args)"); reads go through Querier and
// events arrive via OnParameterEvent. oscserver.DeviceLink satisfies
// both ParameterPlane and Querier.
type ParameterPlane interface {
	Send(address string, value float32) error
}

// NewManager returns a Manager for device name/deviceType, sending
// parameter writes through plane and decoding/encoding values with
// codec. An echoTimeout of 0 uses spec.md's 2-second default.
func NewManager(name, deviceType string, plane ParameterPlane, codec ParameterCodec, echoTimeout time.Duration) *Manager {
	if echoTimeout <= 0 {
		echoTimeout = 2 * time.Second
	}
	if codec == nil {
		codec = GenericOSC{}
	}
	return &Manager{
		state:       NewDeviceState(name, deviceType),
		plane:       plane,
		codec:       codec,
		echoTimeout: echoTimeout,
	}
}

// Snapshot returns a copy of the current DeviceState, safe to read
// without holding the manager's lock (spec.md §5 "readers can obtain
// a snapshot by copying under the lock").
func (m *Manager) Snapshot() DeviceState {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *m.state
	cp.Properties = make(map[string]string, len(m.state.Properties))
	for k, v := range m.state.Properties {
		cp.Properties[k] = v
	}
	cp.Parameters = make(map[string]Parameter, len(m.state.Parameters))
	for k, v := range m.state.Parameters {
		cp.Parameters[k] = v
	}
	return cp
}

// Healthy reports the current state's health check under lock.
func (m *Manager) Healthy() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.Healthy()
}

// AddListener registers a callback invoked, in registration order,
// whenever OnParameterEvent observes a new value (spec.md §4.6
// "listeners are called in registration order").
func (m *Manager) AddListener(fn func(address string, value float32)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners = append(m.listeners, fn)
}

// OnParameterEvent updates the observed parameter from a device echo
// or an unsolicited event, clears any pending/drifted bookkeeping for
// it, and notifies listeners (spec.md §4.6 "on_parameter_event").
func (m *Manager) OnParameterEvent(address string, value float32) {
	m.mu.Lock()
	m.state.Parameters[address] = Parameter{Value: value}
	listeners := append([]func(string, float32){}, m.listeners...)
	m.mu.Unlock()

	for _, fn := range listeners {
		fn(address, value)
	}
}

// SetParameter sends a new value for address through the parameter
// plane and marks it pending reconciliation; the manager does not
// consider the write applied until an echo arrives via
// OnParameterEvent (spec.md §4.6 "the manager never assumes a send
// succeeded; it waits for the device to echo the change").
func (m *Manager) SetParameter(address string, dB float32) error {
	normalized := m.codec.EncodeFloat(dB)
	if err := m.plane.Send(address, normalized); err != nil {
		return err
	}
	m.mu.Lock()
	m.state.Parameters[address] = Parameter{Value: normalized, Pending: true, SentAt: now()}
	m.mu.Unlock()
	return nil
}

// CheckDrift marks every parameter that has been pending longer than
// the manager's echo timeout as drifted; the Drifted flag is visible
// through Snapshot, and Healthy does not take it into account.
// Intended to be called periodically by the control thread.
func (m *Manager) CheckDrift(asOf time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for addr, p := range m.state.Parameters {
		if p.Pending && asOf.Sub(p.SentAt) > m.echoTimeout {
			p.Drifted = true
			m.state.Parameters[addr] = p
		}
	}
}

// now is a seam so tests can avoid relying on wall-clock timing for
// SetParameter's SentAt stamp; production code uses time.Now.
var now = time.Now
