package osc

import "testing"

func TestBundleRoundTrip(t *testing.T) {
	m1, _ := NewMessage("/1/channel/1/volume", Float32Arg(0.8))
	m2, _ := NewMessage("/1/channel/2/mute", Int32Arg(1))
	bnd := NewBundleAt(TimeTag{Seconds: 100, Fraction: 200}).AddMessage(m1).AddMessage(m2)

	encoded := bnd.Encode()
	decoded, err := DecodeBundle(encoded, 0)
	if err != nil {
		t.Fatalf("DecodeBundle: %v", err)
	}
	if decoded.Time != bnd.Time {
		t.Fatalf("time tag: got %+v want %+v", decoded.Time, bnd.Time)
	}
	if len(decoded.Elements) != 2 {
		t.Fatalf("expected 2 elements, got %d", len(decoded.Elements))
	}
	got1, ok := decoded.Elements[0].(Message)
	if !ok || got1.Address != "/1/channel/1/volume" {
		t.Fatalf("element 0: got %+v", decoded.Elements[0])
	}
}

func TestBundleNesting(t *testing.T) {
	inner := NewBundle().AddMessage(mustMessage(t, "/inner"))
	outer := NewBundle().AddBundle(inner).AddMessage(mustMessage(t, "/outer"))

	decoded, err := DecodeBundle(outer.Encode(), 0)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(decoded.Elements) != 2 {
		t.Fatalf("expected 2 top-level elements, got %d", len(decoded.Elements))
	}
	if _, ok := decoded.Elements[0].(Bundle); !ok {
		t.Fatalf("expected element 0 to be a nested Bundle, got %T", decoded.Elements[0])
	}

	var messages []string
	decoded.ForEach(func(m Message) { messages = append(messages, m.Address) }, nil, nil)
	if len(messages) != 2 || messages[0] != "/inner" || messages[1] != "/outer" {
		t.Fatalf("ForEach order: got %v", messages)
	}
}

func TestForEachBracketsNestedBundles(t *testing.T) {
	innerMsg, _ := NewMessage("/inner")
	inner := NewBundle().AddMessage(innerMsg)
	outerMsg, _ := NewMessage("/outer")
	outer := NewBundle().AddBundle(inner).AddMessage(outerMsg)

	var order []string
	outer.ForEach(
		func(m Message) { order = append(order, "msg:"+m.Address) },
		func(Bundle) { order = append(order, "start") },
		func(Bundle) { order = append(order, "end") },
	)

	want := []string{"start", "msg:/inner", "end", "msg:/outer"}
	if len(order) != len(want) {
		t.Fatalf("got %v want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("got %v want %v", order, want)
		}
	}
}

func TestDecodePacketDispatchesByTag(t *testing.T) {
	msg := mustMessage(t, "/x")
	pkt, err := DecodePacket(msg.Encode(), 0)
	if err != nil {
		t.Fatalf("decode message as packet: %v", err)
	}
	if _, ok := pkt.(Message); !ok {
		t.Fatalf("expected Message, got %T", pkt)
	}

	bnd := NewBundle().AddMessage(msg)
	pkt, err = DecodePacket(bnd.Encode(), 0)
	if err != nil {
		t.Fatalf("decode bundle as packet: %v", err)
	}
	if _, ok := pkt.(Bundle); !ok {
		t.Fatalf("expected Bundle, got %T", pkt)
	}
}

func mustMessage(t *testing.T, addr string, args ...Arg) Message {
	t.Helper()
	m, err := NewMessage(addr, args...)
	if err != nil {
		t.Fatalf("NewMessage(%q): %v", addr, err)
	}
	return m
}
