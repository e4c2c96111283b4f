package oscserver

import (
	"time"

	"github.com/kestrelaudio/audiograph/osc"
)

// DeviceLink adapts a Server plus a fixed remote device address into
// the parameter-plane capability devicestate.Manager expects
// (spec.md §4.6: "a reference to an OSC controller... that exposes
// send(address, args), query(address, callback)"). It satisfies
// devicestate.ParameterPlane and devicestate.Querier structurally, so
// oscserver need not import devicestate to provide it.
type DeviceLink struct {
	Server       *Server
	RemoteAddr   string
	QueryTimeout time.Duration
}

// NewDeviceLink returns a DeviceLink sending to remoteAddr through
// srv, using a default 2s per-query timeout if queryTimeout is 0.
func NewDeviceLink(srv *Server, remoteAddr string, queryTimeout time.Duration) *DeviceLink {
	if queryTimeout <= 0 {
		queryTimeout = 2 * time.Second
	}
	return &DeviceLink{Server: srv, RemoteAddr: remoteAddr, QueryTimeout: queryTimeout}
}

// Send implements devicestate.ParameterPlane: encodes a single-float
// OSC message to address and sends it to the remote device.
func (l *DeviceLink) Send(address string, value float32) error {
	msg, err := osc.NewMessage(address, osc.Float32Arg(value))
	if err != nil {
		return err
	}
	return l.Server.Send(l.RemoteAddr, msg)
}

// Query implements devicestate.Querier: issues a one-shot query at
// address through the server's query/response correlation and
// reports the result (or ok=false on timeout) to cb.
func (l *DeviceLink) Query(address string, cb func(value float32, ok bool)) {
	reply, err := l.Server.Query(l.RemoteAddr, address, address, l.QueryTimeout)
	if err != nil || len(reply.Args) == 0 {
		cb(0, false)
		return
	}
	cb(reply.Args[0].Float32, true)
}
