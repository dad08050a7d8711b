package netlink

import "testing"

func TestHeaderRoundTrip(t *testing.T) {
	h := Header{Type: NLMSG_ERROR, Flags: NLM_F_REQUEST | NLM_F_ACK, Seq: 7, Pid: 42}
	h.Len = SizeofHeader

	buf := NewBuffer()
	if _, err := h.Encode(buf); err != nil {
		t.Fatal(err)
	}
	if buf.Len() != SizeofHeader {
		t.Fatalf("encoded len = %d, want %d", buf.Len(), SizeofHeader)
	}

	var got Header
	if err := got.Decode(WrapBuffer(buf.Bytes())); err != nil {
		t.Fatal(err)
	}
	if got != h {
		t.Fatalf("got %+v, want %+v", got, h)
	}
}

func TestHeaderDecodeRejectsShortLength(t *testing.T) {
	buf := NewBuffer()
	buf.PutUint32(4) // Len shorter than SizeofHeader
	buf.PutUint16(0)
	buf.PutUint16(0)
	buf.PutUint32(0)
	buf.PutUint32(0)

	var h Header
	if err := h.Decode(WrapBuffer(buf.Bytes())); err == nil {
		t.Fatal("expected error for undersized Len")
	}
}

func TestHeaderFlagsHas(t *testing.T) {
	f := NLM_F_REQUEST | NLM_F_ACK
	if !f.Has(NLM_F_REQUEST) {
		t.Error("expected REQUEST set")
	}
	if f.Has(NLM_F_MULTI) {
		t.Error("did not expect MULTI set")
	}
	if !f.Has(NLM_F_REQUEST | NLM_F_ACK) {
		t.Error("expected both REQUEST and ACK set")
	}
}

func TestMsgTypeIsControl(t *testing.T) {
	if !NLMSG_DONE.IsControl() {
		t.Error("NLMSG_DONE should be a control type")
	}
	if MsgType(0x10).IsControl() {
		t.Error("family type 0x10 should not be a control type")
	}
}
