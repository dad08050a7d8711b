package netlink

import (
	"fmt"
	"net"
)

// payloadOf extracts the raw payload bytes from an attribute value; both
// Attr and Rtattr carry the same {Type, Payload} shape but as distinct
// types, so this is a tiny type switch rather than another interface
// method (Payload access needs no flag bits, unlike Attribute).
func payloadOf[T Attribute](item T) []byte {
	switch v := any(item).(type) {
	case Attr:
		return v.Payload
	case Rtattr:
		return v.Payload
	default:
		return nil
	}
}

// Handle is a borrowing query view over an AttrList: the primary way
// callers look up attributes by type and descend into nested ones.
// GenlHandle = Handle[Attr]; RtHandle = Handle[Rtattr].
type Handle[T Attribute] struct {
	list *AttrList[T]
}

// GenlHandle queries a GenlBuffer.
type GenlHandle = Handle[Attr]

// RtHandle queries an RtBuffer.
type RtHandle = Handle[Rtattr]

// NewHandle wraps list for querying. A nil list behaves as empty.
func NewHandle[T Attribute](list *AttrList[T]) Handle[T] {
	return Handle[T]{list: list}
}

// Get returns the first attribute with the given type, masking the
// NESTED/NETWORK_BYTE_ORDER flag bits before comparing.
func (h Handle[T]) Get(typ uint16) (T, bool) {
	if h.list == nil {
		var zero T
		return zero, false
	}
	return h.list.Get(typ)
}

// All returns every attribute with the given type, in on-wire order.
func (h Handle[T]) All(typ uint16) []T {
	if h.list == nil {
		return nil
	}
	return h.list.All(typ)
}

// Payload returns the raw payload of the first attribute with the given
// type.
func (h Handle[T]) Payload(typ uint16) ([]byte, bool) {
	item, ok := h.Get(typ)
	if !ok {
		return nil, false
	}
	return payloadOf(item), true
}

// GetUint8 decodes the first attribute of the given type as a single
// byte.
func (h Handle[T]) GetUint8(typ uint16) (uint8, error) {
	p, ok := h.Payload(typ)
	if !ok {
		return 0, fmt.Errorf("netlink: no attribute of type %d", typ)
	}
	if len(p) < 1 {
		return 0, &CodecError{Kind: ErrTruncated, Expected: 1, Got: len(p)}
	}
	return p[0], nil
}

// GetUint16 decodes the first attribute of the given type as a
// host-order uint16.
func (h Handle[T]) GetUint16(typ uint16) (uint16, error) {
	p, ok := h.Payload(typ)
	if !ok {
		return 0, fmt.Errorf("netlink: no attribute of type %d", typ)
	}
	buf := WrapBuffer(p)
	return buf.GetUint16()
}

// GetUint32 decodes the first attribute of the given type as a
// host-order uint32.
func (h Handle[T]) GetUint32(typ uint16) (uint32, error) {
	p, ok := h.Payload(typ)
	if !ok {
		return 0, fmt.Errorf("netlink: no attribute of type %d", typ)
	}
	buf := WrapBuffer(p)
	return buf.GetUint32()
}

// GetUint64 decodes the first attribute of the given type as a
// host-order uint64.
func (h Handle[T]) GetUint64(typ uint16) (uint64, error) {
	p, ok := h.Payload(typ)
	if !ok {
		return 0, fmt.Errorf("netlink: no attribute of type %d", typ)
	}
	buf := WrapBuffer(p)
	return buf.GetUint64()
}

// GetString decodes the first attribute of the given type as a
// NUL-terminated C string, per the family convention netlink string
// attributes follow.
func (h Handle[T]) GetString(typ uint16) (string, error) {
	p, ok := h.Payload(typ)
	if !ok {
		return "", fmt.Errorf("netlink: no attribute of type %d", typ)
	}
	if len(p) > 0 && p[len(p)-1] == 0 {
		p = p[:len(p)-1]
	}
	return string(p), nil
}

// GetBytes decodes the first attribute of the given type as an opaque
// byte string, borrowing from the underlying list without copying.
func (h Handle[T]) GetBytes(typ uint16) ([]byte, error) {
	p, ok := h.Payload(typ)
	if !ok {
		return nil, fmt.Errorf("netlink: no attribute of type %d", typ)
	}
	return p, nil
}

// GetIP decodes the first attribute of the given type as a 4- or
// 16-byte IP address.
func (h Handle[T]) GetIP(typ uint16) (net.IP, error) {
	p, ok := h.Payload(typ)
	if !ok {
		return nil, fmt.Errorf("netlink: no attribute of type %d", typ)
	}
	switch len(p) {
	case net.IPv4len, net.IPv6len:
		ip := make(net.IP, len(p))
		copy(ip, p)
		return ip, nil
	default:
		return nil, &CodecError{Kind: ErrTruncated, Expected: net.IPv4len, Got: len(p)}
	}
}

// Nested decodes the payload of the first attribute of the given type as
// a nested attribute list of the same family, returning a Handle over
// it. It succeeds whether or not the caller set the NESTED flag bit on
// the attribute (some kernel netlink families omit it).
func (h Handle[T]) Nested(typ uint16) (Handle[T], error) {
	item, ok := h.Get(typ)
	if !ok {
		return Handle[T]{}, fmt.Errorf("netlink: no attribute of type %d", typ)
	}
	payload := payloadOf(item)
	list, err := decodeNestedList[T](payload)
	if err != nil {
		return Handle[T]{}, err
	}
	return NewHandle(list), nil
}

func decodeNestedList[T Attribute](payload []byte) (*AttrList[T], error) {
	buf := WrapBuffer(payload)
	var zero T
	switch any(zero).(type) {
	case Attr:
		l, err := DecodeAttrList(buf, len(payload), func(b *Buffer) (Attr, error) { return DecodeAttr(b) })
		if err != nil {
			return nil, err
		}
		return any(l).(*AttrList[T]), nil
	case Rtattr:
		l, err := DecodeAttrList(buf, len(payload), func(b *Buffer) (Rtattr, error) { return DecodeRtattr(b) })
		if err != nil {
			return nil, err
		}
		return any(l).(*AttrList[T]), nil
	default:
		return nil, fmt.Errorf("netlink: unsupported attribute type")
	}
}
