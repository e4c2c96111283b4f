package audioformat

import (
	"encoding/binary"
	"math"
)

// clamp restricts v to [-1.0, 1.0], the normalized float range used
// throughout the internal representation.
func clamp(v float64) float64 {
	if v > 1.0 {
		return 1.0
	}
	if v < -1.0 {
		return -1.0
	}
	return v
}

// readSample decodes one sample at b[0:bytesPerSample(format)] into the
// normalized range [-1.0, 1.0] for integer formats, or the raw value for
// float formats. Widening (int -> float) divides by 2^(N-1), per spec.md
// §4.3 — not 2^N and not 2^N-1.
func readSample(format SampleFormat, b []byte) float64 {
	switch format {
	case S16:
		v := int16(binary.LittleEndian.Uint16(b))
		return float64(v) / 32768.0
	case S24:
		// Packed in a 32-bit slot, sign extended (this module's choice
		// among the two hardware conventions spec.md §4.2 allows).
		v := int32(binary.LittleEndian.Uint32(b))
		v = (v << 8) >> 8 // sign-extend from bit 23
		return float64(v) / 8388608.0
	case S32:
		v := int32(binary.LittleEndian.Uint32(b))
		return float64(v) / 2147483648.0
	case F32:
		bits := binary.LittleEndian.Uint32(b)
		return float64(math.Float32frombits(bits))
	case F64:
		bits := binary.LittleEndian.Uint64(b)
		return math.Float64frombits(bits)
	default:
		panic("audioformat: readSample: unknown format")
	}
}

// writeSample encodes a normalized value into b[0:bytesPerSample(format)].
// Narrowing (float -> int) clamps to [-1.0, 1.0] then scales by
// 2^(N-1)-1 and rounds toward zero, per spec.md §4.2/§4.3.
func writeSample(format SampleFormat, v float64, b []byte) {
	switch format {
	case S16:
		c := clamp(v)
		iv := int16(c * 32767.0)
		binary.LittleEndian.PutUint16(b, uint16(iv))
	case S24:
		c := clamp(v)
		iv := int32(c * 8388607.0)
		binary.LittleEndian.PutUint32(b, uint32(iv))
	case S32:
		c := clamp(v)
		iv := int64(c * 2147483647.0)
		binary.LittleEndian.PutUint32(b, uint32(int32(iv)))
	case F32:
		binary.LittleEndian.PutUint32(b, math.Float32bits(float32(v)))
	case F64:
		binary.LittleEndian.PutUint64(b, math.Float64bits(v))
	default:
		panic("audioformat: writeSample: unknown format")
	}
}
