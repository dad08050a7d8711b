package netlink

import "fmt"

// SizeofAttrHeader is the on-wire size of an attribute TLV header:
// u16 len | u16 type.
const SizeofAttrHeader = 4

// AttrFlag bits live in the top two bits of an attribute's type field
// and must be masked off before comparing against family constants.
type AttrFlag uint16

const (
	NLA_F_NESTED        AttrFlag = 1 << 15
	NLA_F_NET_BYTEORDER AttrFlag = 1 << 14
	nlaTypeMask                  = ^uint16(NLA_F_NESTED | NLA_F_NET_BYTEORDER)
)

// attrHeader is the shared 4-byte TLV header underlying both Attr and
// Rtattr; the two wire formats are identical, only the surrounding
// containers and family conventions differ.
type attrHeader struct {
	Len  uint16
	Type uint16
}

func decodeAttrHeader(buf *Buffer) (attrHeader, error) {
	var h attrHeader
	if buf.Remaining() < SizeofAttrHeader {
		return h, &CodecError{Kind: ErrTruncated, Offset: buf.Pos(), Expected: SizeofAttrHeader, Got: buf.Remaining()}
	}
	l, _ := buf.GetUint16()
	t, _ := buf.GetUint16()
	h.Len = l
	h.Type = t
	if int(h.Len) < SizeofAttrHeader {
		return h, &CodecError{Kind: ErrTruncated, Offset: buf.Pos() - SizeofAttrHeader, Expected: SizeofAttrHeader, Got: int(h.Len)}
	}
	return h, nil
}

// Attr is a generic-netlink attribute: a TLV with a raw payload. The top
// two bits of Type carry the NESTED and NETWORK_BYTE_ORDER flags.
type Attr struct {
	Type    uint16
	Payload []byte
}

// NewAttr builds an Attr from a raw payload.
func NewAttr(typ uint16, payload []byte) Attr {
	return Attr{Type: typ, Payload: payload}
}

// Kind returns Type with the NESTED/NETWORK_BYTE_ORDER flag bits masked
// off, the value family constants are defined against.
func (a Attr) Kind() uint16 { return a.Type & nlaTypeMask }

// Nested reports whether the NESTED flag bit is set.
func (a Attr) Nested() bool { return AttrFlag(a.Type)&NLA_F_NESTED != 0 }

// NetworkByteOrder reports whether the NETWORK_BYTE_ORDER flag bit is
// set.
func (a Attr) NetworkByteOrder() bool { return AttrFlag(a.Type)&NLA_F_NET_BYTEORDER != 0 }

// WithNested returns a copy of a with the NESTED flag bit set.
func (a Attr) WithNested() Attr {
	a.Type |= uint16(NLA_F_NESTED)
	return a
}

// UnpaddedSize is the attribute's on-wire length before trailing pad,
// i.e. header + payload.
func (a Attr) UnpaddedSize() int { return SizeofAttrHeader + len(a.Payload) }

// PaddedSize is UnpaddedSize rounded up to the next 4-byte boundary.
func (a Attr) PaddedSize() int { return Align(a.UnpaddedSize()) }

// Encode writes the attribute's header, payload, and trailing pad. The
// header's length field does not include the pad, per NLA_ALIGNTO.
func (a Attr) Encode(buf *Buffer) (int, error) {
	buf.PutUint16(uint16(a.UnpaddedSize()))
	buf.PutUint16(a.Type)
	buf.WriteBytes(a.Payload)
	buf.WritePad(a.UnpaddedSize())
	return a.PaddedSize(), nil
}

// DecodeAttr reads one attribute (header, payload, and its trailing pad)
// from buf.
func DecodeAttr(buf *Buffer) (Attr, error) {
	start := buf.Pos()
	h, err := decodeAttrHeader(buf)
	if err != nil {
		return Attr{}, err
	}
	payloadLen := int(h.Len) - SizeofAttrHeader
	payload, err := buf.ReadBytes(payloadLen)
	if err != nil {
		return Attr{}, err
	}
	unpadded := int(h.Len) - start
	if err := buf.SkipPad(unpadded); err != nil {
		return Attr{}, err
	}
	out := make([]byte, len(payload))
	copy(out, payload)
	return Attr{Type: h.Type, Payload: out}, nil
}

func (a Attr) String() string {
	return fmt.Sprintf("attr{type:%d nested:%v payload:%d bytes}", a.Kind(), a.Nested(), len(a.Payload))
}

// Rtattr is a routing-family attribute. Its wire format is identical to
// Attr; it is a distinct type so route and generic-netlink attribute
// lists cannot be mixed up at compile time.
type Rtattr struct {
	Type    uint16
	Payload []byte
}

// NewRtattr builds an Rtattr from a raw payload.
func NewRtattr(typ uint16, payload []byte) Rtattr {
	return Rtattr{Type: typ, Payload: payload}
}

func (a Rtattr) Kind() uint16             { return a.Type & nlaTypeMask }
func (a Rtattr) Nested() bool             { return AttrFlag(a.Type)&NLA_F_NESTED != 0 }
func (a Rtattr) NetworkByteOrder() bool   { return AttrFlag(a.Type)&NLA_F_NET_BYTEORDER != 0 }
func (a Rtattr) UnpaddedSize() int        { return SizeofAttrHeader + len(a.Payload) }
func (a Rtattr) PaddedSize() int          { return Align(a.UnpaddedSize()) }

func (a Rtattr) Encode(buf *Buffer) (int, error) {
	buf.PutUint16(uint16(a.UnpaddedSize()))
	buf.PutUint16(a.Type)
	buf.WriteBytes(a.Payload)
	buf.WritePad(a.UnpaddedSize())
	return a.PaddedSize(), nil
}

// DecodeRtattr reads one routing attribute (header, payload, and its
// trailing pad) from buf.
func DecodeRtattr(buf *Buffer) (Rtattr, error) {
	start := buf.Pos()
	h, err := decodeAttrHeader(buf)
	if err != nil {
		return Rtattr{}, err
	}
	payloadLen := int(h.Len) - SizeofAttrHeader
	payload, err := buf.ReadBytes(payloadLen)
	if err != nil {
		return Rtattr{}, err
	}
	unpadded := int(h.Len) - start
	if err := buf.SkipPad(unpadded); err != nil {
		return Rtattr{}, err
	}
	out := make([]byte, len(payload))
	copy(out, payload)
	return Rtattr{Type: h.Type, Payload: out}, nil
}

func (a Rtattr) String() string {
	return fmt.Sprintf("rtattr{type:%d nested:%v payload:%d bytes}", a.Kind(), a.Nested(), len(a.Payload))
}
