package osc

import (
	"bytes"
	"fmt"
)

// Bundle groups messages and/or nested bundles under one time tag
// (spec.md §4.4 bundle layout).
type Bundle struct {
	Time     TimeTag
	Elements []Packet
}

// NewBundle returns an empty bundle scheduled for immediate execution.
func NewBundle() Bundle { return Bundle{Time: Immediate} }

// NewBundleAt returns an empty bundle with the given time tag.
func NewBundleAt(t TimeTag) Bundle { return Bundle{Time: t} }

// AddMessage appends a message and returns the bundle for chaining.
func (bnd Bundle) AddMessage(m Message) Bundle {
	bnd.Elements = append(bnd.Elements, m)
	return bnd
}

// AddBundle appends a nested bundle and returns the bundle for
// chaining.
func (bnd Bundle) AddBundle(nested Bundle) Bundle {
	bnd.Elements = append(bnd.Elements, nested)
	return bnd
}

// Encode implements Packet.
func (bnd Bundle) Encode() []byte {
	var buf bytes.Buffer
	buf.WriteString(bundleTag)
	bnd.Time.encode(&buf)
	for _, el := range bnd.Elements {
		data := el.Encode()
		writeInt32(&buf, int32(len(data)))
		buf.Write(data)
	}
	return buf.Bytes()
}

// DecodeBundle parses a Bundle from b (spec.md §4.4). maxBlobSize
// bounds every nested message's blob arguments.
func DecodeBundle(b []byte, maxBlobSize int) (Bundle, error) {
	if len(b) < 16 {
		return Bundle{}, fmt.Errorf("%w: bundle shorter than tag+timetag", ErrTruncated)
	}
	if string(b[:8]) != bundleTag {
		return Bundle{}, fmt.Errorf("%w: missing #bundle tag", ErrNotBundleOrMsg)
	}
	t, err := decodeTimeTag(b[8:16])
	if err != nil {
		return Bundle{}, err
	}
	bnd := Bundle{Time: t}

	offset := 16
	for offset+4 <= len(b) {
		size := int(readInt32(b[offset : offset+4]))
		offset += 4
		if size < 0 || offset+size > len(b) {
			return Bundle{}, fmt.Errorf("%w: bundle element size exceeds remaining data", ErrTruncated)
		}
		element := b[offset : offset+size]
		pkt, err := DecodePacket(element, maxBlobSize)
		if err != nil {
			return Bundle{}, err
		}
		bnd.Elements = append(bnd.Elements, pkt)
		offset += size
	}
	return bnd, nil
}

// ForEach walks every Message in the bundle, recursing into nested
// bundles depth-first: bundleStartFn (if non-nil) runs before a nested
// bundle's own elements, bundleEndFn (if non-nil) runs after, so a
// nested bundle gets its own start/end bracketing exactly like the
// top-level bundle does (spec.md §4.5: "nested bundles entering their
// own start/end bracketing"). The dispatcher builds its bundle-start/
// bundle-end handling on top of this walk.
func (bnd Bundle) ForEach(messageFn func(Message), bundleStartFn, bundleEndFn func(Bundle)) {
	for _, el := range bnd.Elements {
		switch v := el.(type) {
		case Message:
			if messageFn != nil {
				messageFn(v)
			}
		case Bundle:
			if bundleStartFn != nil {
				bundleStartFn(v)
			}
			v.ForEach(messageFn, bundleStartFn, bundleEndFn)
			if bundleEndFn != nil {
				bundleEndFn(v)
			}
		}
	}
}
