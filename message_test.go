package netlink

import "testing"

func TestMessageEncodeComputesLength(t *testing.T) {
	attrs := &GenlBuffer{}
	attrs.Append(NewAttr(1, []byte("x")))
	msg := &Message{
		Header:  Header{Type: 0x10, Flags: NLM_F_REQUEST, Seq: 1, Pid: 100},
		Payload: &GenlPayload{GenlHeader: GenlHeader{Cmd: 1, Version: 1}, Attrs: *attrs},
	}
	buf := NewBuffer()
	if _, err := msg.Encode(buf); err != nil {
		t.Fatal(err)
	}
	if msg.Header.Len != uint32(buf.Len()) {
		t.Fatalf("Header.Len = %d, want %d", msg.Header.Len, buf.Len())
	}
	if int(msg.Header.Len) < SizeofHeader+SizeofGenlHeader {
		t.Fatalf("Header.Len too small: %d", msg.Header.Len)
	}
}

func TestMessageBuilderRequiresPayload(t *testing.T) {
	_, err := NewMessageBuilder(0x10).Build()
	if err == nil {
		t.Fatal("expected BuilderError for missing payload")
	}
	if _, ok := err.(*BuilderError); !ok {
		t.Fatalf("expected *BuilderError, got %T", err)
	}
}

func TestMessageBuilderBuildsCompleteMessage(t *testing.T) {
	msg, err := NewMessageBuilder(0x10).
		Flags(NLM_F_REQUEST | NLM_F_ACK).
		Seq(5).
		Pid(9).
		Payload(&RawPayload{Data: []byte{1, 2}}).
		Build()
	if err != nil {
		t.Fatal(err)
	}
	if msg.Header.Seq != 5 || msg.Header.Pid != 9 {
		t.Fatalf("got %+v", msg.Header)
	}
}

func TestDecodeErrorPayloadAck(t *testing.T) {
	req := Header{Len: SizeofHeader, Type: 0x10, Flags: NLM_F_REQUEST, Seq: 3, Pid: 7}
	buf := NewBuffer()
	buf.PutUint32(0)
	req.Encode(buf)

	p, err := DecodeErrorPayload(buf.Bytes(), 0)
	if err != nil {
		t.Fatal(err)
	}
	if !p.IsAck() {
		t.Fatal("expected ACK (errno 0)")
	}
	if p.Req.Seq != 3 {
		t.Fatalf("Req.Seq = %d, want 3", p.Req.Seq)
	}
}

func TestDecodeErrorPayloadWithExtAck(t *testing.T) {
	req := Header{Len: SizeofHeader, Type: 0x10, Seq: 3, Pid: 7}
	buf := NewBuffer()
	errno := int32(-2)
	buf.PutUint32(uint32(errno)) // -ENOENT
	req.Encode(buf)

	ext := &RtBuffer{}
	ext.Append(NewRtattr(NLMSGERR_ATTR_MSG, append([]byte("no such family"), 0)))
	ext.Encode(buf)

	p, err := DecodeErrorPayload(buf.Bytes(), NLM_F_ACK_TLVS)
	if err != nil {
		t.Fatal(err)
	}
	if p.IsAck() {
		t.Fatal("expected a real error, not an ACK")
	}
	if p.Ext == nil || p.Ext.Msg != "no such family" {
		t.Fatalf("got Ext = %+v", p.Ext)
	}
}

func TestDecodeErrorPayloadSkipsUncappedEchoedRequest(t *testing.T) {
	original := []byte("original request payload")
	req := Header{Len: uint32(SizeofHeader + len(original)), Type: 0x10, Seq: 3, Pid: 7}
	buf := NewBuffer()
	errno := int32(-2)
	buf.PutUint32(uint32(errno)) // -ENOENT
	req.Encode(buf)
	buf.WriteBytes(original)

	ext := &RtBuffer{}
	ext.Append(NewRtattr(NLMSGERR_ATTR_MSG, append([]byte("no such family"), 0)))
	ext.Encode(buf)

	p, err := DecodeErrorPayload(buf.Bytes(), NLM_F_ACK_TLVS)
	if err != nil {
		t.Fatal(err)
	}
	if p.Ext == nil || p.Ext.Msg != "no such family" {
		t.Fatalf("got Ext = %+v, want the echoed request skipped before the ext-ack TLVs", p.Ext)
	}
}

func TestDecodeErrorPayloadCappedHasNoEchoedRequest(t *testing.T) {
	req := Header{Len: SizeofHeader + 100, Type: 0x10, Seq: 3, Pid: 7}
	buf := NewBuffer()
	errno := int32(-2)
	buf.PutUint32(uint32(errno))
	req.Encode(buf)

	p, err := DecodeErrorPayload(buf.Bytes(), NLM_F_CAPPED)
	if err != nil {
		t.Fatal(err)
	}
	if p.Req.Len != req.Len {
		t.Fatalf("Req.Len = %d, want %d", p.Req.Len, req.Len)
	}
}
