package osc

import (
	"bytes"
	"testing"
)

func TestMessageRoundTrip(t *testing.T) {
	msg, err := NewMessage("/1/channel/3/volume",
		Int32Arg(7), Float32Arg(-0.5), StringArg("hello"), BlobArg([]byte{1, 2, 3, 4, 5}))
	if err != nil {
		t.Fatalf("NewMessage: %v", err)
	}
	encoded := msg.Encode()
	if len(encoded)%4 != 0 {
		t.Fatalf("encoded message not 4-byte aligned: %d bytes", len(encoded))
	}

	decoded, err := DecodeMessage(encoded, 0)
	if err != nil {
		t.Fatalf("DecodeMessage: %v", err)
	}
	if decoded.Address != msg.Address {
		t.Fatalf("address: got %q want %q", decoded.Address, msg.Address)
	}
	if len(decoded.Args) != 4 {
		t.Fatalf("expected 4 args, got %d", len(decoded.Args))
	}
	if decoded.Args[0].Int32 != 7 {
		t.Fatalf("arg0: got %d want 7", decoded.Args[0].Int32)
	}
	if decoded.Args[1].Float32 != -0.5 {
		t.Fatalf("arg1: got %v want -0.5", decoded.Args[1].Float32)
	}
	if decoded.Args[2].Str != "hello" {
		t.Fatalf("arg2: got %q want hello", decoded.Args[2].Str)
	}
	if !bytes.Equal(decoded.Args[3].Blob, []byte{1, 2, 3, 4, 5}) {
		t.Fatalf("arg3: got %v", decoded.Args[3].Blob)
	}
}

func TestMessageRejectsBadAddress(t *testing.T) {
	if _, err := NewMessage("channel/3/volume"); err == nil {
		t.Fatalf("expected ErrBadAddress for non-'/' address")
	}
}

func TestDecodeMessageRejectsOversizeBlob(t *testing.T) {
	msg, _ := NewMessage("/x", BlobArg(make([]byte, 128)))
	encoded := msg.Encode()
	if _, err := DecodeMessage(encoded, 64); err == nil {
		t.Fatalf("expected ErrOversizeBlob with a 64-byte limit")
	}
}

func TestTypeTagString(t *testing.T) {
	msg, _ := NewMessage("/x", Int32Arg(1), ArrayArg([]Arg{Float32Arg(1), StringArg("a")}), BoolArg(true))
	want := ",i[fs]T"
	if got := msg.TypeTagString(); got != want {
		t.Fatalf("type tags: got %q want %q", got, want)
	}
}

func TestDecodeArrayArgument(t *testing.T) {
	msg, _ := NewMessage("/x", ArrayArg([]Arg{Int32Arg(1), Int32Arg(2), Int32Arg(3)}))
	decoded, err := DecodeMessage(msg.Encode(), 0)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(decoded.Args) != 1 || decoded.Args[0].Type != arrayOpen {
		t.Fatalf("expected one array arg, got %+v", decoded.Args)
	}
	if len(decoded.Args[0].Array) != 3 {
		t.Fatalf("expected 3 nested args, got %d", len(decoded.Args[0].Array))
	}
}

func TestDecodeMessageRejectsUnclosedArray(t *testing.T) {
	var buf bytes.Buffer
	writePaddedString(&buf, "/x")
	writePaddedString(&buf, ",[i")
	writeInt32(&buf, 1)
	if _, err := DecodeMessage(buf.Bytes(), 0); err == nil {
		t.Fatalf("expected ErrUnclosedArray")
	}
}
