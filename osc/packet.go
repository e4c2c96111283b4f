// Package osc implements the OSC wire codec: message and bundle
// encode/decode exactly as spec.md §4.4 describes, independent of
// transport (spec.md §4.5 layers UDP/TCP framing on top of this).
package osc

import (
	"bytes"
	"errors"
	"math"
)

// Errors the decoder returns for malformed wire data (spec.md §4.4
// "Decoder rejects" list).
var (
	ErrUnknownTypeTag  = errors.New("osc: unknown type tag")
	ErrBadAddress      = errors.New("osc: address must start with '/'")
	ErrOversizeBlob    = errors.New("osc: blob exceeds size limit")
	ErrTruncated       = errors.New("osc: truncated packet data")
	ErrUnclosedArray   = errors.New("osc: unclosed array in type tag string")
	ErrNotBundleOrMsg  = errors.New("osc: packet is neither a bundle nor a message")
	DefaultMaxBlobSize = 64 * 1024
)

const bundleTag = "#bundle\x00"

// TimeTag is the 64-bit NTP-format timestamp used by bundles (spec.md
// §4.4: "8 bytes (2x int32 big-endian)").
type TimeTag struct {
	Seconds  uint32
	Fraction uint32
}

// Immediate is the special "execute now" time tag (NTP second 0,
// fraction 1), the value every OSC implementation treats as "now".
var Immediate = TimeTag{Seconds: 0, Fraction: 1}

func (t TimeTag) encode(buf *bytes.Buffer) {
	writeUint32(buf, t.Seconds)
	writeUint32(buf, t.Fraction)
}

func decodeTimeTag(b []byte) (TimeTag, error) {
	if len(b) < 8 {
		return TimeTag{}, ErrTruncated
	}
	return TimeTag{Seconds: readUint32(b[0:4]), Fraction: readUint32(b[4:8])}, nil
}

func align4(n int) int { return (n + 3) &^ 3 }

func writeUint32(buf *bytes.Buffer, v uint32) {
	buf.WriteByte(byte(v >> 24))
	buf.WriteByte(byte(v >> 16))
	buf.WriteByte(byte(v >> 8))
	buf.WriteByte(byte(v))
}

func writeInt32(buf *bytes.Buffer, v int32) { writeUint32(buf, uint32(v)) }

func writeFloat32(buf *bytes.Buffer, v float32) { writeUint32(buf, math.Float32bits(v)) }

func writeUint64(buf *bytes.Buffer, v uint64) {
	writeUint32(buf, uint32(v>>32))
	writeUint32(buf, uint32(v))
}

func writeInt64(buf *bytes.Buffer, v int64)     { writeUint64(buf, uint64(v)) }
func writeFloat64(buf *bytes.Buffer, v float64) { writeUint64(buf, math.Float64bits(v)) }

func writePaddedString(buf *bytes.Buffer, s string) {
	buf.WriteString(s)
	buf.WriteByte(0)
	for buf.Len()%4 != 0 {
		buf.WriteByte(0)
	}
}

func readUint32(b []byte) uint32 {
	return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
}
func readInt32(b []byte) int32     { return int32(readUint32(b)) }
func readFloat32(b []byte) float32 { return math.Float32frombits(readUint32(b)) }
func readUint64(b []byte) uint64 {
	return uint64(readUint32(b[0:4]))<<32 | uint64(readUint32(b[4:8]))
}
func readInt64(b []byte) int64     { return int64(readUint64(b)) }
func readFloat64(b []byte) float64 { return math.Float64frombits(readUint64(b)) }

// readPaddedString reads a null-terminated, 4-byte-padded string
// starting at offset 0 of b, returning the string and the number of
// bytes consumed (including padding).
func readPaddedString(b []byte) (string, int, error) {
	i := bytes.IndexByte(b, 0)
	if i < 0 {
		return "", 0, ErrTruncated
	}
	consumed := align4(i + 1)
	if consumed > len(b) {
		return "", 0, ErrTruncated
	}
	return string(b[:i]), consumed, nil
}

// Packet is implemented by Message and Bundle: both a bundle element
// and a transport payload can be either (spec.md §4.4 bundle layout).
type Packet interface {
	Encode() []byte
}

// DecodePacket inspects the first bytes of b and dispatches to
// DecodeBundle or DecodeMessage (spec.md §4.5: "decodes as
// bundle-or-message by inspecting the first 8 bytes").
func DecodePacket(b []byte, maxBlobSize int) (Packet, error) {
	if len(b) >= 8 && string(b[:8]) == bundleTag {
		return DecodeBundle(b, maxBlobSize)
	}
	if len(b) > 0 && b[0] == '/' {
		return DecodeMessage(b, maxBlobSize)
	}
	return nil, ErrNotBundleOrMsg
}

func clampMaxBlobSize(maxBlobSize int) int {
	if maxBlobSize <= 0 {
		return DefaultMaxBlobSize
	}
	return maxBlobSize
}
