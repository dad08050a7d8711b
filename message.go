package netlink

import (
	"fmt"
	"syscall"
)

// Payload is anything that can be framed inside a netlink Message.
type Payload interface {
	Encode(buf *Buffer) (int, error)
}

// SizeofGenlHeader is the size of the generic-netlink sub-header that
// precedes a GenlBuffer.
const SizeofGenlHeader = 4

// GenlHeader is the fixed 4-byte sub-header every generic-netlink
// message carries ahead of its attributes.
type GenlHeader struct {
	Cmd     uint8
	Version uint8
}

// GenlPayload is a generic-netlink message: the 4-byte sub-header
// followed by a sequence of Attr.
type GenlPayload struct {
	GenlHeader
	Attrs GenlBuffer
}

func (p *GenlPayload) Encode(buf *Buffer) (int, error) {
	buf.WriteBytes([]byte{p.Cmd, p.Version, 0, 0})
	n, err := p.Attrs.Encode(buf)
	return SizeofGenlHeader + n, err
}

// DecodeSized parses buf's next size bytes as a generic-netlink
// sub-header plus attributes, consuming exactly size bytes. size comes
// from the enclosing Nlmsghdr's declared payload length, since a
// GenlPayload has no length prefix of its own.
func (p *GenlPayload) DecodeSized(buf *Buffer, size int) error {
	if size < SizeofGenlHeader {
		return &CodecError{Kind: ErrTruncated, Offset: buf.Pos(), Expected: SizeofGenlHeader, Got: size}
	}
	hdr, err := buf.ReadBytes(SizeofGenlHeader)
	if err != nil {
		return err
	}
	attrs, err := DecodeAttrList(buf, size-SizeofGenlHeader, func(b *Buffer) (Attr, error) { return DecodeAttr(b) })
	if err != nil {
		return err
	}
	p.GenlHeader = GenlHeader{Cmd: hdr[0], Version: hdr[1]}
	p.Attrs = *attrs
	return nil
}

// DecodeGenlPayload parses the whole of payload as a generic-netlink
// sub-header plus attributes.
func DecodeGenlPayload(payload []byte) (*GenlPayload, error) {
	buf := WrapBuffer(payload)
	p := &GenlPayload{}
	if err := p.DecodeSized(buf, buf.Remaining()); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *GenlPayload) String() string {
	return fmt.Sprintf("genl{cmd:%d version:%d attrs:%d}", p.Cmd, p.Version, p.Attrs.Len())
}

// RawPayload is an opaque byte slice: the representation for any
// family-specific message this library doesn't know the shape of (route,
// netfilter, nl80211, ...). Callers decode it with their own family
// package, typically as a fixed struct followed by an RtBuffer.
type RawPayload struct {
	Data []byte
}

func (p *RawPayload) Encode(buf *Buffer) (int, error) { return buf.WriteBytes(p.Data) }

func (p *RawPayload) String() string { return fmt.Sprintf("raw{%d bytes}", len(p.Data)) }

// ExtAck carries the optional human-readable diagnostics a kernel
// ERROR/DONE frame includes when the receiving socket set
// NETLINK_EXT_ACK.
type ExtAck struct {
	Msg      string
	Offset   uint32
	HaveOff  bool
	MissType uint32
	HaveMiss bool
	Cookie   []byte
}

// Extended-ACK TLV attribute types, from the uapi netlink.h
// NLMSGERR_ATTR_* enumeration.
const (
	NLMSGERR_ATTR_MSG       uint16 = 1
	NLMSGERR_ATTR_OFFS      uint16 = 2
	NLMSGERR_ATTR_COOKIE    uint16 = 3
	NLMSGERR_ATTR_MISS_TYPE uint16 = 5
)

func decodeExtAck(payload []byte) (*ExtAck, error) {
	if len(payload) == 0 {
		return nil, nil
	}
	buf := WrapBuffer(payload)
	attrs, err := DecodeAttrList(buf, len(payload), func(b *Buffer) (Rtattr, error) { return DecodeRtattr(b) })
	if err != nil {
		return nil, err
	}
	h := NewHandle(attrs)
	ext := &ExtAck{}
	if msg, err := h.GetString(NLMSGERR_ATTR_MSG); err == nil {
		ext.Msg = msg
	}
	if off, err := h.GetUint32(NLMSGERR_ATTR_OFFS); err == nil {
		ext.Offset = off
		ext.HaveOff = true
	}
	if mt, err := h.GetUint32(NLMSGERR_ATTR_MISS_TYPE); err == nil {
		ext.MissType = mt
		ext.HaveMiss = true
	}
	if c, err := h.GetBytes(NLMSGERR_ATTR_COOKIE); err == nil {
		ext.Cookie = c
	}
	return ext, nil
}

// ErrorPayload is the error/ACK frame: a signed errno (0 == ACK)
// followed by the original request's header, plus optional extended-ACK
// TLVs when the receiving socket enabled NETLINK_EXT_ACK.
type ErrorPayload struct {
	Errno int32
	Req   Header
	Ext   *ExtAck
}

// IsAck reports whether this is a zero-code ACK rather than a genuine
// error.
func (p *ErrorPayload) IsAck() bool { return p.Errno == 0 }

// Errno32 returns the error as a syscall.Errno, valid when !IsAck().
func (p *ErrorPayload) Errno32() syscall.Errno { return syscall.Errno(-p.Errno) }

func (p *ErrorPayload) Encode(buf *Buffer) (int, error) {
	buf.PutUint32(uint32(p.Errno))
	n, err := p.Req.Encode(buf)
	return 4 + n, err
}

// DecodeErrorPayload parses an ERROR/ACK payload: errno, the echoed
// request header, and, for a non-zero errno without NLM_F_CAPPED, the
// request's original payload bytes trailing the header, followed by any
// ext-ack TLVs. An ACK (errno 0) never carries that echoed payload, and
// neither does a frame with NLM_F_CAPPED set, so for those only the
// fixed errno+header prefix remains before any ext-ack TLVs.
func DecodeErrorPayload(payload []byte, flags HeaderFlags) (*ErrorPayload, error) {
	buf := WrapBuffer(payload)
	if buf.Remaining() < 4+SizeofHeader {
		return nil, &CodecError{Kind: ErrTruncated, Expected: 4 + SizeofHeader, Got: buf.Remaining()}
	}
	errno, _ := buf.GetUint32()
	var req Header
	if err := req.Decode(buf); err != nil {
		return nil, err
	}
	p := &ErrorPayload{Errno: int32(errno), Req: req}
	if errno != 0 && !flags.Has(NLM_F_CAPPED) {
		if _, err := buf.ReadBytes(req.PayloadLen()); err != nil {
			return nil, err
		}
	}
	if flags.Has(NLM_F_ACK_TLVS) && buf.Remaining() > 0 {
		rest, _ := buf.ReadBytes(buf.Remaining())
		ext, err := decodeExtAck(rest)
		if err != nil {
			return nil, err
		}
		p.Ext = ext
	}
	return p, nil
}

func (p *ErrorPayload) String() string {
	if p.IsAck() {
		return "ack"
	}
	return fmt.Sprintf("error{errno:%v}", p.Errno32())
}

// DonePayload is a MULTI dump's terminator: a status code plus optional
// extended-ACK TLVs.
type DonePayload struct {
	Status int32
	Ext    *ExtAck
}

func (p *DonePayload) Encode(buf *Buffer) (int, error) {
	buf.PutUint32(uint32(p.Status))
	return 4, nil
}

// DecodeDonePayload parses a DONE payload.
func DecodeDonePayload(payload []byte) (*DonePayload, error) {
	buf := WrapBuffer(payload)
	if buf.Remaining() < 4 {
		return nil, &CodecError{Kind: ErrTruncated, Expected: 4, Got: buf.Remaining()}
	}
	status, _ := buf.GetUint32()
	p := &DonePayload{Status: int32(status)}
	if buf.Remaining() > 0 {
		rest, _ := buf.ReadBytes(buf.Remaining())
		ext, err := decodeExtAck(rest)
		if err != nil {
			return nil, err
		}
		p.Ext = ext
	}
	return p, nil
}

func (p *DonePayload) String() string { return fmt.Sprintf("done{status:%d}", p.Status) }

// Message is a full netlink datagram: header plus payload.
type Message struct {
	Header  Header
	Payload Payload
}

// Encode serializes m, computing Header.Len from the encoded payload
// size (16 + unpadded payload bytes, per spec), then zero-pads to the
// next 4-byte boundary so encoded messages can be concatenated into one
// datagram. Header.Len excludes that pad; the returned count includes
// it.
func (m *Message) Encode(buf *Buffer) (int, error) {
	scratch := NewBuffer()
	if m.Payload != nil {
		if _, err := m.Payload.Encode(scratch); err != nil {
			return 0, err
		}
	}
	m.Header.Len = uint32(SizeofHeader + scratch.Len())
	if _, err := m.Header.Encode(buf); err != nil {
		return 0, err
	}
	buf.WriteBytes(scratch.Bytes())
	pad, _ := buf.WritePad(int(m.Header.Len))
	return int(m.Header.Len) + pad, nil
}

// MessageBuilder validates required fields before producing a Message,
// per spec.md's builder-pattern design note.
type MessageBuilder struct {
	msg Message
	set struct {
		typ bool
	}
}

// NewMessageBuilder starts building a message of the given family type.
func NewMessageBuilder(typ MsgType) *MessageBuilder {
	b := &MessageBuilder{}
	b.msg.Header.Type = typ
	b.set.typ = true
	return b
}

// Flags sets the header flags.
func (b *MessageBuilder) Flags(f HeaderFlags) *MessageBuilder {
	b.msg.Header.Flags = f
	return b
}

// Seq pins the sequence number; routers normally assign this instead.
func (b *MessageBuilder) Seq(seq uint32) *MessageBuilder {
	b.msg.Header.Seq = seq
	return b
}

// Pid pins the sender port id; routers normally assign this instead.
func (b *MessageBuilder) Pid(pid uint32) *MessageBuilder {
	b.msg.Header.Pid = pid
	return b
}

// Payload attaches the message payload.
func (b *MessageBuilder) Payload(p Payload) *MessageBuilder {
	b.msg.Payload = p
	return b
}

// Build validates the message is complete and returns it.
func (b *MessageBuilder) Build() (*Message, error) {
	if !b.set.typ {
		return nil, &BuilderError{Field: "Type"}
	}
	if b.msg.Payload == nil {
		return nil, &BuilderError{Field: "Payload"}
	}
	msg := b.msg
	return &msg, nil
}
