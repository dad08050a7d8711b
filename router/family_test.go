package router

import (
	"context"
	"encoding/binary"
	"testing"
	"time"

	"github.com/nlkit/netlink"
)

func buildFamilyReply(seq uint32, id uint16, groups map[string]uint32) *netlink.Message {
	inner := &netlink.GenlBuffer{}
	inner.Append(netlink.NewAttr(CTRL_ATTR_FAMILY_ID, u16le(id)))
	inner.Append(netlink.NewAttr(CTRL_ATTR_VERSION, []byte{1}))

	if len(groups) > 0 {
		arr := &netlink.GenlBuffer{}
		idx := uint16(1)
		for name, gid := range groups {
			entry := &netlink.GenlBuffer{}
			entry.Append(netlink.NewAttr(CTRL_ATTR_MCAST_GRP_NAME, append([]byte(name), 0)))
			entry.Append(netlink.NewAttr(CTRL_ATTR_MCAST_GRP_ID, u32le(gid)))
			eb := netlink.NewBuffer()
			entry.Encode(eb)
			arr.Append(netlink.NewAttr(idx, eb.Bytes()))
			idx++
		}
		ab := netlink.NewBuffer()
		arr.Encode(ab)
		inner.Append(netlink.NewAttr(CTRL_ATTR_MCAST_GROUPS, ab.Bytes()))
	}

	return &netlink.Message{
		Header: netlink.Header{Type: GENL_ID_CTRL, Seq: seq},
		Payload: &netlink.GenlPayload{
			GenlHeader: netlink.GenlHeader{Cmd: CTRL_CMD_GETFAMILY, Version: 1},
			Attrs:      *inner,
		},
	}
}

func u16le(v uint16) []byte { b := make([]byte, 2); binary.NativeEndian.PutUint16(b, v); return b }
func u32le(v uint32) []byte { b := make([]byte, 4); binary.NativeEndian.PutUint32(b, v); return b }

func TestResolveFamilySuccess(t *testing.T) {
	conn := newFakeConn()
	r, err := New(conn)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()

	done := make(chan struct{})
	var fam *Family
	var resolveErr error
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		fam, resolveErr = ResolveFamily(ctx, r, "nl80211")
		close(done)
	}()

	seq := waitForSentSeq(t, conn)
	conn.deliver(buildFamilyReply(seq, 0x17, map[string]uint32{"config": 1, "scan": 2}), 0, 0)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("ResolveFamily did not complete")
	}
	if resolveErr != nil {
		t.Fatal(resolveErr)
	}
	if fam.ID != 0x17 {
		t.Fatalf("fam.ID = %#x, want 0x17", fam.ID)
	}
	if fam.Groups["config"] != 1 || fam.Groups["scan"] != 2 {
		t.Fatalf("fam.Groups = %+v", fam.Groups)
	}
}

func waitForSentSeq(t *testing.T, conn *fakeConn) uint32 {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		conn.mu.Lock()
		n := len(conn.sent)
		var last []byte
		if n > 0 {
			last = conn.sent[n-1]
		}
		conn.mu.Unlock()
		if n > 0 {
			var h netlink.Header
			if err := h.Decode(netlink.WrapBuffer(last)); err == nil {
				return h.Seq
			}
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("timed out waiting for a sent request")
	return 0
}
