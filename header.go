package netlink

import (
	"fmt"

	"github.com/nlkit/netlink/internal/enumname"
)

// SizeofHeader is the on-wire size of Header: u32 len | u16 type | u16
// flags | u32 seq | u32 pid.
const SizeofHeader = 16

// MsgType partitions into protocol-reserved control values (< 16) and
// family-specific values (>= 16), the latter supplied opaquely by
// callers.
type MsgType uint16

const (
	NLMSG_NOOP    MsgType = 0x1
	NLMSG_ERROR   MsgType = 0x2
	NLMSG_DONE    MsgType = 0x3
	NLMSG_OVERRUN MsgType = 0x4
	NLMSG_MIN_TYPE MsgType = 0x10
)

var msgTypeNames = []string{
	NLMSG_NOOP:    "NOOP",
	NLMSG_ERROR:   "ERROR",
	NLMSG_DONE:    "DONE",
	NLMSG_OVERRUN: "OVERRUN",
}

func (t MsgType) String() string {
	if t < NLMSG_MIN_TYPE {
		return enumname.Stringer(msgTypeNames, int(t))
	}
	return fmt.Sprintf("family(%d)", uint16(t))
}

// IsControl reports whether t is one of the protocol-reserved control
// values rather than a family-specific message type.
func (t MsgType) IsControl() bool { return t < NLMSG_MIN_TYPE }

// HeaderFlags is the netlink header flags bitset.
type HeaderFlags uint16

const (
	NLM_F_REQUEST HeaderFlags = 1 << iota
	NLM_F_MULTI
	NLM_F_ACK
	NLM_F_ECHO
	NLM_F_DUMP_INTR
)

// ERROR-message header flags, valid only when Type == NLMSG_ERROR: they
// share bit values with the GET/NEW modifiers below because the kernel
// never mixes the two in one message's flags field.
const (
	NLM_F_CAPPED    HeaderFlags = 0x100 // error frame carries only the header, no dumped request
	NLM_F_ACK_TLVS  HeaderFlags = 0x200 // error frame carries extended-ACK TLV attributes
)

// GET-request modifiers, aliasing bits with the NEW-request modifiers
// below (the kernel disambiguates by message type, same as netlink(7)).
const (
	NLM_F_ROOT   HeaderFlags = 0x100
	NLM_F_MATCH  HeaderFlags = 0x200
	NLM_F_ATOMIC HeaderFlags = 0x400
	NLM_F_DUMP   HeaderFlags = NLM_F_ROOT | NLM_F_MATCH
)

// NEW-request modifiers.
const (
	NLM_F_REPLACE HeaderFlags = 0x100
	NLM_F_EXCL    HeaderFlags = 0x200
	NLM_F_CREATE  HeaderFlags = 0x400
	NLM_F_APPEND  HeaderFlags = 0x800
)

var headerFlagNames = []string{
	0: "REQUEST",
	1: "MULTI",
	2: "ACK",
	3: "ECHO",
	4: "DUMP_INTR",
}

func (f HeaderFlags) String() string {
	return enumname.FlagStringer(headerFlagNames, uint64(f))
}

// Has reports whether all bits in mask are set in f.
func (f HeaderFlags) Has(mask HeaderFlags) bool { return f&mask == mask }

// Header is the outer netlink message header (Nlmsghdr), five fields,
// host-byte-order on the wire per netlink(7).
type Header struct {
	Len   uint32
	Type  MsgType
	Flags HeaderFlags
	Seq   uint32
	Pid   uint32
}

// Encode writes h into buf, advancing the cursor by SizeofHeader.
func (h *Header) Encode(buf *Buffer) (int, error) {
	buf.PutUint32(h.Len)
	buf.PutUint16(uint16(h.Type))
	buf.PutUint16(uint16(h.Flags))
	buf.PutUint32(h.Seq)
	buf.PutUint32(h.Pid)
	return SizeofHeader, nil
}

// Decode reads a Header from buf, advancing the cursor by SizeofHeader.
func (h *Header) Decode(buf *Buffer) error {
	if buf.Remaining() < SizeofHeader {
		return &CodecError{Kind: ErrTruncated, Offset: buf.Pos(), Expected: SizeofHeader, Got: buf.Remaining()}
	}
	length, _ := buf.GetUint32()
	typ, _ := buf.GetUint16()
	flags, _ := buf.GetUint16()
	seq, _ := buf.GetUint32()
	pid, _ := buf.GetUint32()
	if length < SizeofHeader {
		return &CodecError{Kind: ErrTruncated, Offset: 0, Expected: SizeofHeader, Got: int(length)}
	}
	h.Len = length
	h.Type = MsgType(typ)
	h.Flags = HeaderFlags(flags)
	h.Seq = seq
	h.Pid = pid
	return nil
}

// PayloadLen returns the number of payload bytes this header declares,
// i.e. Len minus the header itself.
func (h *Header) PayloadLen() int {
	if int(h.Len) < SizeofHeader {
		return 0
	}
	return int(h.Len) - SizeofHeader
}

// AlignedLen rounds Len up to the next 4-byte boundary, the footprint
// this message occupies within a multi-message datagram.
func (h *Header) AlignedLen() int { return Align(int(h.Len)) }

func (h Header) String() string {
	return fmt.Sprintf("{len:%d type:%v flags:[%s] seq:%d pid:%d}", h.Len, h.Type, h.Flags, h.Seq, h.Pid)
}
