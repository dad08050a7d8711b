package router

import (
	"context"
	"syscall"

	"github.com/nlkit/netlink"
)

// Generic-netlink controller family constants (uapi
// linux/genetlink.h).
const (
	GENL_ID_CTRL = 0x10

	CTRL_CMD_GETFAMILY = 3

	CTRL_ATTR_FAMILY_ID    uint16 = 1
	CTRL_ATTR_FAMILY_NAME  uint16 = 2
	CTRL_ATTR_VERSION      uint16 = 3
	CTRL_ATTR_MCAST_GROUPS uint16 = 7

	CTRL_ATTR_MCAST_GRP_NAME uint16 = 1
	CTRL_ATTR_MCAST_GRP_ID   uint16 = 2
)

// Family is the result of resolving a generic-netlink family by name:
// its numeric id and its named multicast groups.
type Family struct {
	ID      uint16
	Version uint8
	Groups  map[string]uint32
}

// ResolveFamily issues CTRL_CMD_GETFAMILY against the kernel's nlctrl
// family (GENL_ID_CTRL) and parses the single reply into a Family.
func ResolveFamily(ctx context.Context, r *Router, name string) (*Family, error) {
	nameAttr := netlink.NewAttr(CTRL_ATTR_FAMILY_NAME, appendNulString(nil, name))
	attrs := &netlink.GenlBuffer{}
	attrs.Append(nameAttr)

	msg := &netlink.Message{
		Header: netlink.Header{Type: GENL_ID_CTRL, Flags: netlink.NLM_F_REQUEST | netlink.NLM_F_ACK},
		Payload: &netlink.GenlPayload{
			GenlHeader: netlink.GenlHeader{Cmd: CTRL_CMD_GETFAMILY, Version: 1},
			Attrs:      *attrs,
		},
	}

	stream, err := r.SendRequest(msg)
	if err != nil {
		return nil, err
	}
	defer stream.Close()

	for {
		frame, ok := stream.Next(ctx)
		if !ok {
			if err := stream.Err(); err != nil {
				return nil, err
			}
			return nil, ctx.Err()
		}
		switch frame.Kind {
		case netlink.FrameError:
			errno := frame.Error.Errno32()
			if errno == syscall.ENOENT {
				return nil, &UnknownFamily{Name: name}
			}
			return nil, &netlink.ProtocolError{Errno: errno, Ext: frame.Error.Ext}
		case netlink.FrameData:
			return parseFamilyReply(frame.Raw)
		}
	}
}

func parseFamilyReply(raw []byte) (*Family, error) {
	gp, err := netlink.DecodeGenlPayload(raw)
	if err != nil {
		return nil, err
	}
	h := netlink.NewHandle(&gp.Attrs)

	fam := &Family{Groups: make(map[string]uint32)}
	id, err := h.GetUint16(CTRL_ATTR_FAMILY_ID)
	if err != nil {
		return nil, err
	}
	fam.ID = id
	if v, err := h.GetUint8(CTRL_ATTR_VERSION); err == nil {
		fam.Version = v
	}

	if _, ok := h.Get(CTRL_ATTR_MCAST_GROUPS); !ok {
		return fam, nil
	}
	for _, entry := range allNested(&gp.Attrs, CTRL_ATTR_MCAST_GROUPS) {
		nested := netlink.NewHandle(entry)
		gname, err := nested.GetString(CTRL_ATTR_MCAST_GRP_NAME)
		if err != nil {
			continue
		}
		gid, err := nested.GetUint32(CTRL_ATTR_MCAST_GRP_ID)
		if err != nil {
			continue
		}
		fam.Groups[gname] = gid
	}
	return fam, nil
}

// allNested decodes every array-indexed nested entry under typ into its
// own attribute list, per generic-netlink's array-of-nested-attrs
// convention (CTRL_ATTR_MCAST_GROUPS is one such array).
func allNested(attrs *netlink.GenlBuffer, typ uint16) []*netlink.GenlBuffer {
	container, ok := attrs.Get(typ)
	if !ok {
		return nil
	}
	buf := netlink.WrapBuffer(container.Payload)
	list, err := netlink.DecodeAttrList(buf, len(container.Payload), func(b *netlink.Buffer) (netlink.Attr, error) {
		return netlink.DecodeAttr(b)
	})
	if err != nil {
		return nil
	}
	var out []*netlink.GenlBuffer
	for _, item := range list.Items() {
		inner := netlink.WrapBuffer(item.Payload)
		innerList, err := netlink.DecodeAttrList(inner, len(item.Payload), func(b *netlink.Buffer) (netlink.Attr, error) {
			return netlink.DecodeAttr(b)
		})
		if err != nil {
			continue
		}
		out = append(out, innerList)
	}
	return out
}

func appendNulString(buf []byte, s string) []byte {
	buf = append(buf, s...)
	return append(buf, 0)
}
