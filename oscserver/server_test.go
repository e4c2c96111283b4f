package oscserver

import (
	"testing"
	"time"

	"github.com/kestrelaudio/audiograph/osc"
)

func TestServerUDPRoundTrip(t *testing.T) {
	d := NewDispatcher()
	received := make(chan osc.Message, 1)
	d.AddMethod("/ping", "", func(m osc.Message) { received <- m })

	srv := NewServer(d, 0, 0)
	if err := srv.ListenUDP("127.0.0.1:0"); err != nil {
		t.Fatalf("ListenUDP: %v", err)
	}
	defer srv.Close()

	addr := srv.udpConn.LocalAddr().String()
	msg, _ := osc.NewMessage("/ping", osc.Int32Arg(42))
	if err := srv.Send(addr, msg); err != nil {
		t.Fatalf("Send: %v", err)
	}

	select {
	case got := <-received:
		if got.Address != "/ping" || got.Args[0].Int32 != 42 {
			t.Fatalf("unexpected message: %+v", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for dispatched message")
	}
}

func TestServerQueryTimesOutWithoutReply(t *testing.T) {
	d := NewDispatcher()
	srv := NewServer(d, 0, 0)
	if err := srv.ListenUDP("127.0.0.1:0"); err != nil {
		t.Fatalf("ListenUDP: %v", err)
	}
	defer srv.Close()

	// A separate, silent server stands in for the device: querying the
	// controller's own socket would loop the query back as its own reply.
	device := NewServer(NewDispatcher(), 0, 0)
	if err := device.ListenUDP("127.0.0.1:0"); err != nil {
		t.Fatalf("ListenUDP (device): %v", err)
	}
	defer device.Close()

	addr := device.udpConn.LocalAddr().String()
	_, err := srv.Query(addr, "/device/volume", "/device/volume", 50*time.Millisecond)
	if err != ErrQueryTimeout {
		t.Fatalf("expected ErrQueryTimeout, got %v", err)
	}
}

func TestServerQueryReceivesEchoedReply(t *testing.T) {
	// Two independent servers stand in for the controller (issuing the
	// query) and the device (echoing the queried parameter back), since
	// a single socket looping a query message back to itself would be
	// indistinguishable from a reply.
	deviceDispatcher := NewDispatcher()
	device := NewServer(deviceDispatcher, 0, 0)
	if err := device.ListenUDP("127.0.0.1:0"); err != nil {
		t.Fatalf("ListenUDP (device): %v", err)
	}
	defer device.Close()
	deviceAddr := device.udpConn.LocalAddr().String()

	controller := NewServer(NewDispatcher(), 0, 0)
	if err := controller.ListenUDP("127.0.0.1:0"); err != nil {
		t.Fatalf("ListenUDP (controller): %v", err)
	}
	defer controller.Close()
	controllerAddr := controller.udpConn.LocalAddr().String()

	deviceDispatcher.AddDefaultMethod(func(m osc.Message) {
		if m.Address != "/device/volume" {
			return
		}
		reply, _ := osc.NewMessage("/device/volume", osc.Float32Arg(-6))
		go device.Send(controllerAddr, reply)
	})

	got, err := controller.Query(deviceAddr, "/device/volume", "/device/volume", 2*time.Second)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if got.Args[0].Float32 != -6 {
		t.Fatalf("unexpected reply args: %+v", got.Args)
	}
}
