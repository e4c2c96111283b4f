package oscserver

import (
	"encoding/binary"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/kestrelaudio/audiograph/osc"
)

// DefaultMaxPacketSize bounds a single TCP-framed packet; a length
// prefix larger than this is a fatal framing error for that
// connection (spec.md §4.5 TCP framing, §6 default 64 KiB).
const DefaultMaxPacketSize = 64 * 1024

// Server runs the OSC receive loop over UDP or TCP, decoding each
// packet and dispatching it through a Dispatcher (spec.md §4.5 "one
// socket bound to (host, port)... the loop runs on a dedicated
// thread"). It's grounded on original_source/src/oscpp/ServerThread.cpp's
// goroutine-per-listener / accept-loop shape, reexpressed with Go's
// net package and a shared stop channel in place of the C++ thread
// object.
type Server struct {
	Dispatcher *Dispatcher

	maxBlobSize   int
	maxPacketSize int

	mu       sync.Mutex
	udpConn  *net.UDPConn
	tcpLn    net.Listener
	stopCh   chan struct{}
	wg       sync.WaitGroup
	queries  map[string]chan osc.Message
	queriesM sync.Mutex
	addrLock map[string]*sync.Mutex
}

// NewServer returns a Server dispatching through d. A maxBlobSize or
// maxPacketSize of 0 uses the package defaults.
func NewServer(d *Dispatcher, maxBlobSize, maxPacketSize int) *Server {
	if maxBlobSize <= 0 {
		maxBlobSize = osc.DefaultMaxBlobSize
	}
	if maxPacketSize <= 0 {
		maxPacketSize = DefaultMaxPacketSize
	}
	return &Server{
		Dispatcher:    d,
		maxBlobSize:   maxBlobSize,
		maxPacketSize: maxPacketSize,
		stopCh:        make(chan struct{}),
		queries:       make(map[string]chan osc.Message),
		addrLock:      make(map[string]*sync.Mutex),
	}
}

// ListenUDP binds a UDP socket at addr and starts its receive loop on
// a dedicated goroutine.
func (s *Server) ListenUDP(addr string) error {
	udpAddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return fmt.Errorf("oscserver: resolve %q: %w", addr, err)
	}
	conn, err := net.ListenUDP("udp", udpAddr)
	if err != nil {
		return fmt.Errorf("oscserver: listen udp %q: %w", addr, err)
	}
	s.mu.Lock()
	s.udpConn = conn
	s.mu.Unlock()

	s.wg.Add(1)
	go s.udpLoop(conn)
	return nil
}

// ListenTCP binds a TCP listener at addr and starts its accept loop
// on a dedicated goroutine; each accepted connection gets its own
// framed-read goroutine.
func (s *Server) ListenTCP(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("oscserver: listen tcp %q: %w", addr, err)
	}
	s.mu.Lock()
	s.tcpLn = ln
	s.mu.Unlock()

	s.wg.Add(1)
	go s.tcpAcceptLoop(ln)
	return nil
}

// Close stops all listeners and their loops, waiting for them to
// return.
func (s *Server) Close() error {
	close(s.stopCh)

	s.mu.Lock()
	if s.udpConn != nil {
		s.udpConn.Close()
	}
	if s.tcpLn != nil {
		s.tcpLn.Close()
	}
	s.mu.Unlock()

	s.wg.Wait()
	return nil
}

func (s *Server) udpLoop(conn *net.UDPConn) {
	defer s.wg.Done()
	buf := make([]byte, s.maxPacketSize)
	for {
		n, _, err := conn.ReadFromUDP(buf)
		if err != nil {
			select {
			case <-s.stopCh:
				return
			default:
			}
			s.Dispatcher.reportError("udp read", err)
			continue
		}
		s.decodeAndDispatch(append([]byte(nil), buf[:n]...))
	}
}

func (s *Server) tcpAcceptLoop(ln net.Listener) {
	defer s.wg.Done()
	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-s.stopCh:
				return
			default:
			}
			s.Dispatcher.reportError("tcp accept", err)
			continue
		}
		s.wg.Add(1)
		go s.tcpConnLoop(conn)
	}
}

// tcpConnLoop reads 4-byte big-endian length-prefixed packets off
// conn until EOF, a framing error, or shutdown. A prefix exceeding
// maxPacketSize is a fatal framing error for this connection: it is
// reported and the connection is closed (spec.md §6 "rejecting
// lengths over a configured max... as a fatal framing error").
func (s *Server) tcpConnLoop(conn net.Conn) {
	defer s.wg.Done()
	defer conn.Close()

	var lenPrefix [4]byte
	for {
		if _, err := io.ReadFull(conn, lenPrefix[:]); err != nil {
			if err != io.EOF {
				select {
				case <-s.stopCh:
				default:
					s.Dispatcher.reportError("tcp read length", err)
				}
			}
			return
		}
		size := int(binary.BigEndian.Uint32(lenPrefix[:]))
		if size < 0 || size > s.maxPacketSize {
			s.Dispatcher.reportError("tcp frame", fmt.Errorf("frame size %d exceeds max %d", size, s.maxPacketSize))
			return
		}
		payload := make([]byte, size)
		if _, err := io.ReadFull(conn, payload); err != nil {
			s.Dispatcher.reportError("tcp read payload", err)
			return
		}
		s.decodeAndDispatch(payload)
	}
}

func (s *Server) decodeAndDispatch(payload []byte) {
	pkt, err := osc.DecodePacket(payload, s.maxBlobSize)
	if err != nil {
		s.Dispatcher.reportError("decode packet", err)
		return
	}
	if msg, ok := pkt.(osc.Message); ok && s.deliverQueryReply(msg) {
		return
	}
	s.Dispatcher.Dispatch(pkt)
}

// deliverQueryReply satisfies a pending Query for msg.Address, if any,
// and reports whether it did (in which case the message is consumed
// rather than also going through normal dispatch).
func (s *Server) deliverQueryReply(msg osc.Message) bool {
	s.queriesM.Lock()
	ch, ok := s.queries[msg.Address]
	s.queriesM.Unlock()
	if !ok {
		return false
	}
	select {
	case ch <- msg:
	default:
	}
	return true
}

// Send encodes and writes pkt to addr over UDP, independent of
// whether a receive loop is running — used by the control plane and
// by Query to issue outbound reads (spec.md §4.6 "send(address,
// args)").
func (s *Server) Send(addr string, pkt osc.Packet) error {
	udpAddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return fmt.Errorf("oscserver: resolve %q: %w", addr, err)
	}
	conn, err := net.DialUDP("udp", nil, udpAddr)
	if err != nil {
		return fmt.Errorf("oscserver: dial %q: %w", addr, err)
	}
	defer conn.Close()
	_, err = conn.Write(pkt.Encode())
	return err
}

// ErrQueryTimeout is returned by Query when no reply arrives in time.
var ErrQueryTimeout = fmt.Errorf("oscserver: query timed out")

// Query implements spec.md §4.5's one-shot parameter-query
// correlation: it registers a listener for a reply at address, sends
// an empty-argument message to replyAddr (the device-specific address
// the query is sent to), waits up to timeout for a reply at address,
// then unregisters. Concurrent queries to the same address are
// serialized: a second caller blocks until the first completes.
func (s *Server) Query(remoteAddr, replyAddr, address string, timeout time.Duration) (osc.Message, error) {
	lock := s.addressLock(address)
	lock.Lock()
	defer lock.Unlock()

	ch := make(chan osc.Message, 1)
	s.queriesM.Lock()
	s.queries[address] = ch
	s.queriesM.Unlock()
	defer func() {
		s.queriesM.Lock()
		delete(s.queries, address)
		s.queriesM.Unlock()
	}()

	empty, err := osc.NewMessage(replyAddr)
	if err != nil {
		return osc.Message{}, err
	}
	if err := s.Send(remoteAddr, empty); err != nil {
		return osc.Message{}, fmt.Errorf("oscserver: send query: %w", err)
	}

	select {
	case reply := <-ch:
		return reply, nil
	case <-time.After(timeout):
		return osc.Message{}, ErrQueryTimeout
	}
}

// addressLock returns the mutex serializing concurrent queries to
// address (spec.md §4.5: "concurrent queries to the same address are
// serialized, second caller waits"), creating it on first use.
func (s *Server) addressLock(address string) *sync.Mutex {
	s.queriesM.Lock()
	defer s.queriesM.Unlock()
	l, ok := s.addrLock[address]
	if !ok {
		l = &sync.Mutex{}
		s.addrLock[address] = l
	}
	return l
}
