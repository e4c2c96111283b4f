package oscserver

import (
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/kestrelaudio/audiograph/osc"
)

// MethodId identifies a registered method for later removal, mirroring
// the C++ reference's addMethod/removeMethod(MethodId) pairing
// (original_source/src/oscpp/Server.h).
type MethodId uint64

// MethodHandler handles one matched message.
type MethodHandler func(osc.Message)

// BundleHandler brackets a bundle's contained messages.
type BundleHandler func(osc.Bundle)

// ErrorHandler reports socket or framing errors; the server loop logs
// and continues rather than exiting (spec.md §4.5 "malformed packet:
// logged and skipped, loop continues").
type ErrorHandler func(where string, err error)

type method struct {
	id       MethodId
	pattern  *regexp.Regexp
	typeSpec string // prefix of the arg type-tag string required, "" = any
	handler  MethodHandler
}

// Dispatcher routes decoded OSC packets to registered methods by
// address pattern and (optionally) a type-tag prefix, exactly as
// spec.md §4.5 describes: every method whose pattern matches the
// address and whose type-spec is empty or a prefix of the incoming
// type-tag string is invoked, in registration order; if none match,
// the default handler (if any) runs instead.
type Dispatcher struct {
	mu             sync.Mutex
	nextID         MethodId
	methods        []method
	defaultHandler MethodHandler
	bundleStart    BundleHandler
	bundleEnd      BundleHandler
	errorHandler   ErrorHandler
}

// NewDispatcher returns an empty Dispatcher.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{}
}

// AddMethod registers handler for every message whose address matches
// pattern and whose type-tag string (less the leading ',') starts with
// typeSpec. An empty typeSpec matches any argument list.
func (d *Dispatcher) AddMethod(pattern, typeSpec string, handler MethodHandler) (MethodId, error) {
	re, err := compilePattern(pattern)
	if err != nil {
		return 0, fmt.Errorf("oscserver: compile pattern %q: %w", pattern, err)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.nextID++
	id := d.nextID
	d.methods = append(d.methods, method{id: id, pattern: re, typeSpec: typeSpec, handler: handler})
	return id, nil
}

// AddDefaultMethod registers the handler invoked when no method
// matches a dispatched message.
func (d *Dispatcher) AddDefaultMethod(handler MethodHandler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.defaultHandler = handler
}

// RemoveMethod unregisters a method previously returned by AddMethod,
// reporting whether it was found.
func (d *Dispatcher) RemoveMethod(id MethodId) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	for i, m := range d.methods {
		if m.id == id {
			d.methods = append(d.methods[:i], d.methods[i+1:]...)
			return true
		}
	}
	return false
}

// SetBundleHandlers installs the bundle-start/bundle-end bracketing
// handlers invoked around a bundle's contained messages (spec.md §4.5).
// Either may be nil.
func (d *Dispatcher) SetBundleHandlers(start, end BundleHandler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.bundleStart = start
	d.bundleEnd = end
}

// SetErrorHandler installs the handler invoked on transport/framing
// errors encountered by a server loop.
func (d *Dispatcher) SetErrorHandler(h ErrorHandler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.errorHandler = h
}

// Dispatch routes a decoded packet: a Message goes straight to
// dispatchMessage; a Bundle is bracketed by the bundle-start/end
// handlers and its elements are walked depth-first via Bundle.ForEach,
// each contained message going to dispatchMessage in turn.
func (d *Dispatcher) Dispatch(pkt osc.Packet) {
	switch v := pkt.(type) {
	case osc.Message:
		d.dispatchMessage(v)
	case osc.Bundle:
		d.dispatchBundle(v)
	}
}

func (d *Dispatcher) dispatchBundle(bnd osc.Bundle) {
	d.mu.Lock()
	start, end := d.bundleStart, d.bundleEnd
	d.mu.Unlock()

	if start != nil {
		start(bnd)
	}
	bnd.ForEach(d.dispatchMessage, start, end)
	if end != nil {
		end(bnd)
	}
}

func (d *Dispatcher) dispatchMessage(m osc.Message) {
	tags := strings.TrimPrefix(m.TypeTagString(), ",")

	d.mu.Lock()
	var matched []MethodHandler
	for i := range d.methods {
		cand := &d.methods[i]
		if !cand.pattern.MatchString(m.Address) {
			continue
		}
		if cand.typeSpec != "" && !strings.HasPrefix(tags, cand.typeSpec) {
			continue
		}
		matched = append(matched, cand.handler)
	}
	def := d.defaultHandler
	d.mu.Unlock()

	if len(matched) == 0 {
		if def != nil {
			def(m)
		}
		return
	}
	for _, h := range matched {
		h(m)
	}
}

func (d *Dispatcher) reportError(where string, err error) {
	d.mu.Lock()
	h := d.errorHandler
	d.mu.Unlock()
	if h != nil {
		h(where, err)
	}
}
