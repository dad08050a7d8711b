package netlink

import "fmt"

// FrameKind classifies a decoded frame by its header type, the switch
// spec.md's iteration layer performs on every datagram.
type FrameKind int

const (
	FrameData FrameKind = iota
	FrameAck
	FrameError
	FrameDone
	FrameOverrun
	FrameNoop
)

func (k FrameKind) String() string {
	switch k {
	case FrameData:
		return "data"
	case FrameAck:
		return "ack"
	case FrameError:
		return "error"
	case FrameDone:
		return "done"
	case FrameOverrun:
		return "overrun"
	case FrameNoop:
		return "noop"
	default:
		return fmt.Sprintf("frame(%d)", int(k))
	}
}

// Frame is one decoded message off the wire. Raw holds the family
// payload bytes for FrameData, unparsed: the iterator has no way to know
// whether a given socket's family payload is generic-netlink, route, or
// something else, so callers reinterpret it with DecodeGenlPayload or
// their own family codec. Raw is always a copy, never a slice of the
// buffer Next was decoding from, since frames outlive that buffer once
// they're handed to a different goroutine through a sink channel.
type Frame struct {
	Header   Header
	Kind     FrameKind
	Raw      []byte
	Error    *ErrorPayload
	Done     *DonePayload
	DumpIntr bool
}

// MessageIter walks a filled receive buffer message by message. It is
// restartable via Reset so a pooled buffer can be reused across
// receives without reallocating the iterator.
type MessageIter struct {
	buf    *Buffer
	extAck bool
	err    error
}

// NewMessageIter starts iterating over data. extAck should mirror
// whether the owning socket enabled NETLINK_EXT_ACK, since that's what
// determines whether ERROR/DONE frames carry trailing TLVs.
func NewMessageIter(data []byte, extAck bool) *MessageIter {
	return &MessageIter{buf: WrapBuffer(data), extAck: extAck}
}

// Reset rewinds the iterator to walk a new buffer, reusing the
// MessageIter value itself.
func (it *MessageIter) Reset(data []byte) {
	it.buf = WrapBuffer(data)
	it.err = nil
}

// Err returns the first error encountered, if Next ever returned false
// because decoding failed rather than because the buffer was exhausted.
func (it *MessageIter) Err() error { return it.err }

// Next decodes the next frame. It returns ok == false both at normal end
// of buffer and on decode failure; callers distinguish the two with Err.
func (it *MessageIter) Next() (Frame, bool) {
	if it.err != nil || it.buf.Remaining() == 0 {
		return Frame{}, false
	}

	start := it.buf.Pos()
	var hdr Header
	if err := hdr.Decode(it.buf); err != nil {
		it.err = err
		return Frame{}, false
	}

	payload, err := it.buf.ReadBytes(hdr.PayloadLen())
	if err != nil {
		it.err = err
		return Frame{}, false
	}
	if err := it.buf.SkipPad(int(hdr.Len) - start); err != nil {
		it.err = err
		return Frame{}, false
	}

	frame := Frame{Header: hdr, DumpIntr: hdr.Flags.Has(NLM_F_DUMP_INTR)}
	switch hdr.Type {
	case NLMSG_NOOP:
		frame.Kind = FrameNoop
	case NLMSG_OVERRUN:
		frame.Kind = FrameOverrun
	case NLMSG_DONE:
		frame.Kind = FrameDone
		done, err := DecodeDonePayload(payload)
		if err != nil {
			it.err = err
			return Frame{}, false
		}
		if !it.extAck {
			done.Ext = nil
		}
		frame.Done = done
	case NLMSG_ERROR:
		errp, err := DecodeErrorPayload(payload, hdr.Flags)
		if err != nil {
			it.err = err
			return Frame{}, false
		}
		frame.Error = errp
		if errp.IsAck() {
			frame.Kind = FrameAck
		} else {
			frame.Kind = FrameError
		}
	default:
		frame.Kind = FrameData
		raw := make([]byte, len(payload))
		copy(raw, payload)
		frame.Raw = raw
	}
	return frame, true
}
