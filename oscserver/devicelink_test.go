package oscserver

import (
	"testing"
	"time"

	"github.com/kestrelaudio/audiograph/osc"
)

func TestDeviceLinkSendEncodesFloatMessage(t *testing.T) {
	received := make(chan osc.Message, 1)
	d := NewDispatcher()
	d.AddMethod("/1/input/volume", "", func(m osc.Message) { received <- m })

	srv := NewServer(d, 0, 0)
	if err := srv.ListenUDP("127.0.0.1:0"); err != nil {
		t.Fatalf("ListenUDP: %v", err)
	}
	defer srv.Close()

	link := NewDeviceLink(srv, srv.udpConn.LocalAddr().String(), 0)
	if err := link.Send("/1/input/volume", 0.75); err != nil {
		t.Fatalf("Send: %v", err)
	}

	select {
	case m := <-received:
		if m.Args[0].Float32 != 0.75 {
			t.Fatalf("unexpected value: %+v", m.Args)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for dispatched message")
	}
}

func TestDeviceLinkQueryReportsFailureOnTimeout(t *testing.T) {
	srv := NewServer(NewDispatcher(), 0, 0)
	if err := srv.ListenUDP("127.0.0.1:0"); err != nil {
		t.Fatalf("ListenUDP: %v", err)
	}
	defer srv.Close()

	// A separate, silent server stands in for the device, so the query is
	// not looped back to srv's own socket as an empty reply.
	device := NewServer(NewDispatcher(), 0, 0)
	if err := device.ListenUDP("127.0.0.1:0"); err != nil {
		t.Fatalf("ListenUDP (device): %v", err)
	}
	defer device.Close()

	link := NewDeviceLink(srv, device.udpConn.LocalAddr().String(), 30*time.Millisecond)
	var gotOK bool
	done := make(chan struct{})
	link.Query("/never/replies", func(_ float32, ok bool) {
		gotOK = ok
		close(done)
	})

	select {
	case <-done:
		if gotOK {
			t.Fatalf("expected ok=false on query timeout")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for Query callback")
	}
}
