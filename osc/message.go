package osc

import (
	"bytes"
	"fmt"
)

// ArgType is one of the type-tag characters spec.md §4.4 defines.
type ArgType byte

const (
	TypeInt32   ArgType = 'i'
	TypeInt64   ArgType = 'h'
	TypeFloat32 ArgType = 'f'
	TypeFloat64 ArgType = 'd'
	TypeString  ArgType = 's'
	TypeSymbol  ArgType = 'S'
	TypeBlob    ArgType = 'b'
	TypeTimeTag ArgType = 't'
	TypeChar    ArgType = 'c'
	TypeRGBA    ArgType = 'r'
	TypeMIDI    ArgType = 'm'
	TypeTrue    ArgType = 'T'
	TypeFalse   ArgType = 'F'
	TypeNil     ArgType = 'N'
	TypeInf     ArgType = 'I'
	arrayOpen   ArgType = '['
	arrayClose  ArgType = ']'
)

// Arg is one typed OSC argument. Only the field matching Type is
// meaningful; Array holds nested arguments when Type is arrayOpen
// (spec.md §4.4: "[, ]: array delimiters").
type Arg struct {
	Type    ArgType
	Int32   int32
	Int64   int64
	Float32 float32
	Float64 float64
	Str     string
	Blob    []byte
	Time    TimeTag
	MIDI    [4]byte
	Array   []Arg
}

func Int32Arg(v int32) Arg     { return Arg{Type: TypeInt32, Int32: v} }
func Int64Arg(v int64) Arg     { return Arg{Type: TypeInt64, Int64: v} }
func Float32Arg(v float32) Arg { return Arg{Type: TypeFloat32, Float32: v} }
func Float64Arg(v float64) Arg { return Arg{Type: TypeFloat64, Float64: v} }
func StringArg(v string) Arg   { return Arg{Type: TypeString, Str: v} }
func SymbolArg(v string) Arg   { return Arg{Type: TypeSymbol, Str: v} }
func BlobArg(v []byte) Arg     { return Arg{Type: TypeBlob, Blob: v} }
func TimeTagArg(v TimeTag) Arg { return Arg{Type: TypeTimeTag, Time: v} }
func BoolArg(v bool) Arg {
	if v {
		return Arg{Type: TypeTrue}
	}
	return Arg{Type: TypeFalse}
}
func NilArg() Arg          { return Arg{Type: TypeNil} }
func InfArg() Arg          { return Arg{Type: TypeInf} }
func ArrayArg(v []Arg) Arg { return Arg{Type: arrayOpen, Array: v} }

// Message is an OSC address plus its typed argument list (spec.md
// §4.4 message layout).
type Message struct {
	Address string
	Args    []Arg
}

// NewMessage constructs a Message, validating the address starts with
// '/' per spec.md §4.4's decoder rule.
func NewMessage(address string, args ...Arg) (Message, error) {
	if address == "" || address[0] != '/' {
		return Message{}, ErrBadAddress
	}
	return Message{Address: address, Args: args}, nil
}

// TypeTagString returns the ",ifs..." string describing Args, used by
// the dispatcher's type-spec prefix matching (spec.md §4.5).
func (m Message) TypeTagString() string {
	var b bytes.Buffer
	b.WriteByte(',')
	writeTypeTags(&b, m.Args)
	return b.String()
}

func writeTypeTags(b *bytes.Buffer, args []Arg) {
	for _, a := range args {
		if a.Type == arrayOpen {
			b.WriteByte(byte(arrayOpen))
			writeTypeTags(b, a.Array)
			b.WriteByte(byte(arrayClose))
			continue
		}
		b.WriteByte(byte(a.Type))
	}
}

// Encode implements Packet.
func (m Message) Encode() []byte {
	var buf bytes.Buffer
	writePaddedString(&buf, m.Address)
	writePaddedString(&buf, m.TypeTagString())
	for _, a := range m.Args {
		encodeArg(&buf, a)
	}
	return buf.Bytes()
}

func encodeArg(buf *bytes.Buffer, a Arg) {
	switch a.Type {
	case TypeInt32:
		writeInt32(buf, a.Int32)
	case TypeInt64:
		writeInt64(buf, a.Int64)
	case TypeFloat32:
		writeFloat32(buf, a.Float32)
	case TypeFloat64:
		writeFloat64(buf, a.Float64)
	case TypeString, TypeSymbol:
		writePaddedString(buf, a.Str)
	case TypeBlob:
		writeInt32(buf, int32(len(a.Blob)))
		buf.Write(a.Blob)
		for buf.Len()%4 != 0 {
			buf.WriteByte(0)
		}
	case TypeTimeTag:
		a.Time.encode(buf)
	case TypeChar:
		writeInt32(buf, a.Int32)
	case TypeRGBA:
		buf.Write(a.MIDI[:])
	case TypeMIDI:
		buf.Write(a.MIDI[:])
	case TypeTrue, TypeFalse, TypeNil, TypeInf:
		// no data
	case arrayOpen:
		for _, inner := range a.Array {
			encodeArg(buf, inner)
		}
	}
}

// DecodeMessage parses a Message from b (spec.md §4.4).
func DecodeMessage(b []byte, maxBlobSize int) (Message, error) {
	maxBlobSize = clampMaxBlobSize(maxBlobSize)

	address, n, err := readPaddedString(b)
	if err != nil {
		return Message{}, fmt.Errorf("osc: decode address: %w", err)
	}
	if address == "" || address[0] != '/' {
		return Message{}, ErrBadAddress
	}
	b = b[n:]

	typeTags, n, err := readPaddedString(b)
	if err != nil {
		return Message{}, fmt.Errorf("osc: decode type tags: %w", err)
	}
	if len(typeTags) == 0 || typeTags[0] != ',' {
		return Message{}, fmt.Errorf("%w: type tag string must start with ','", ErrUnknownTypeTag)
	}
	b = b[n:]

	tags := []byte(typeTags[1:])
	args, _, err := decodeArgs(tags, b, maxBlobSize)
	if err != nil {
		return Message{}, err
	}
	return Message{Address: address, Args: args}, nil
}

// decodeArgs decodes len(tags) arguments (array delimiters included)
// from b, returning consumed bytes from b.
func decodeArgs(tags []byte, b []byte, maxBlobSize int) ([]Arg, int, error) {
	var args []Arg
	offset := 0
	ti := 0
	for ti < len(tags) {
		tag := ArgType(tags[ti])
		if tag == arrayClose {
			return nil, 0, ErrUnclosedArray
		}
		if tag == arrayOpen {
			closeAt := matchingArrayClose(tags[ti:])
			if closeAt < 0 {
				return nil, 0, ErrUnclosedArray
			}
			inner, n, err := decodeArgs(tags[ti+1:ti+closeAt], b[offset:], maxBlobSize)
			if err != nil {
				return nil, 0, err
			}
			args = append(args, ArrayArg(inner))
			offset += n
			ti += closeAt + 1
			continue
		}
		a, n, err := decodeArg(tag, b[offset:], maxBlobSize)
		if err != nil {
			return nil, 0, err
		}
		args = append(args, a)
		offset += n
		ti++
	}
	return args, offset, nil
}

// matchingArrayClose returns the index (relative to tags, tags[0]=='[')
// of the ']' that closes the array starting at tags[0], or -1.
func matchingArrayClose(tags []byte) int {
	depth := 0
	for i, t := range tags {
		switch ArgType(t) {
		case arrayOpen:
			depth++
		case arrayClose:
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

func decodeArg(tag ArgType, b []byte, maxBlobSize int) (Arg, int, error) {
	switch tag {
	case TypeInt32, TypeChar:
		if len(b) < 4 {
			return Arg{}, 0, ErrTruncated
		}
		return Arg{Type: tag, Int32: readInt32(b[:4])}, 4, nil
	case TypeInt64:
		if len(b) < 8 {
			return Arg{}, 0, ErrTruncated
		}
		return Arg{Type: tag, Int64: readInt64(b[:8])}, 8, nil
	case TypeFloat32:
		if len(b) < 4 {
			return Arg{}, 0, ErrTruncated
		}
		return Arg{Type: tag, Float32: readFloat32(b[:4])}, 4, nil
	case TypeFloat64:
		if len(b) < 8 {
			return Arg{}, 0, ErrTruncated
		}
		return Arg{Type: tag, Float64: readFloat64(b[:8])}, 8, nil
	case TypeString, TypeSymbol:
		s, n, err := readPaddedString(b)
		if err != nil {
			return Arg{}, 0, err
		}
		return Arg{Type: tag, Str: s}, n, nil
	case TypeBlob:
		if len(b) < 4 {
			return Arg{}, 0, ErrTruncated
		}
		size := int(readInt32(b[:4]))
		if size < 0 || size > maxBlobSize {
			return Arg{}, 0, ErrOversizeBlob
		}
		total := 4 + align4(size)
		if len(b) < total {
			return Arg{}, 0, ErrTruncated
		}
		blob := make([]byte, size)
		copy(blob, b[4:4+size])
		return Arg{Type: tag, Blob: blob}, total, nil
	case TypeTimeTag:
		tt, err := decodeTimeTag(b)
		if err != nil {
			return Arg{}, 0, err
		}
		return Arg{Type: tag, Time: tt}, 8, nil
	case TypeRGBA, TypeMIDI:
		if len(b) < 4 {
			return Arg{}, 0, ErrTruncated
		}
		var m [4]byte
		copy(m[:], b[:4])
		return Arg{Type: tag, MIDI: m}, 4, nil
	case TypeTrue, TypeFalse, TypeNil, TypeInf:
		return Arg{Type: tag}, 0, nil
	default:
		return Arg{}, 0, fmt.Errorf("%w: %q", ErrUnknownTypeTag, string(tag))
	}
}
