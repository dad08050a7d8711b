//go:build linux

package netlink

import (
	"fmt"
	"log/slog"
	"sync"
	"unsafe"

	"golang.org/x/sys/unix"
)


// Protocol constants netlink(7) defines but golang.org/x/sys/unix does
// not always carry under a stable name across versions; values match
// the uapi linux/netlink.h enumeration.
const (
	solNetlink           = 270
	netlinkAddMembership = 1
	netlinkDropMembership = 2
	netlinkListMemberships = 9
	netlinkCapAck        = 10
	netlinkExtAck        = 11
	netlinkGetStrictChk  = 12
)

// Socket is a thin wrapper over an AF_NETLINK datagram socket: open,
// bind, send, receive-into-buffer, multicast membership, and the
// sockopts that toggle extended-ACK and strict-checking behavior.
//
// Send holds a mutex around sendto, so concurrent Send calls on one
// Socket are serialized. Send takes an already-framed datagram; it does
// no framing of its own.
type Socket struct {
	fd       int
	family   int
	portID   uint32
	groups   *NetlinkBitArray
	blocking bool
	extAck   bool
	capAck   bool

	sendMu sync.Mutex
}

// Open creates an unbound AF_NETLINK socket for the given protocol
// family (e.g. unix.NETLINK_ROUTE, unix.NETLINK_GENERIC).
func Open(family int) (*Socket, error) {
	fd, err := unix.Socket(unix.AF_NETLINK, unix.SOCK_RAW|unix.SOCK_CLOEXEC, family)
	if err != nil {
		return nil, newSocketError("socket", err)
	}
	return &Socket{fd: fd, family: family, blocking: true}, nil
}

// Bind binds the socket, optionally pinning a port id (0 lets the
// kernel assign one, typically the pid) and joining the given
// multicast groups. Groups above 31 are joined individually via
// NETLINK_ADD_MEMBERSHIP after bind, since sockaddr_nl.groups is only
// 32 bits wide.
func (s *Socket) Bind(portID uint32, groups ...uint32) error {
	addr := &unix.SockaddrNetlink{Family: unix.AF_NETLINK, Pid: portID}
	var high []uint32
	for _, g := range groups {
		if g == 0 {
			continue
		}
		if g <= 31 {
			addr.Groups |= 1 << (g - 1)
		} else {
			high = append(high, g)
		}
	}
	if err := unix.Bind(s.fd, addr); err != nil {
		return newSocketError("bind", err)
	}
	sa, err := unix.Getsockname(s.fd)
	if err != nil {
		return newSocketError("getsockname", err)
	}
	nl, ok := sa.(*unix.SockaddrNetlink)
	if !ok {
		return newSocketError("getsockname", fmt.Errorf("unexpected sockaddr type %T", sa))
	}
	s.portID = nl.Pid
	s.groups = NewNetlinkBitArray()
	for _, g := range groups {
		if g != 0 {
			s.groups.Set(g)
		}
	}
	for _, g := range high {
		if err := s.AddMembership(g); err != nil {
			return err
		}
	}
	return nil
}

// PortID returns the bound port id, valid after Bind.
func (s *Socket) PortID() uint32 { return s.portID }

// Fd returns the underlying file descriptor, for epoll registration by
// the router's cooperative demultiplexer.
func (s *Socket) Fd() int { return s.fd }

// Send writes data as a single datagram to the kernel (pid 0, group 0).
func (s *Socket) Send(data []byte) error {
	s.sendMu.Lock()
	defer s.sendMu.Unlock()
	dst := &unix.SockaddrNetlink{Family: unix.AF_NETLINK}
	if err := unix.Sendto(s.fd, data, 0, dst); err != nil {
		return newSocketError("sendto", err)
	}
	return nil
}

// Recv reads one datagram into buf, returning the number of bytes
// filled, the sender's port id (0 for the kernel), the multicast group
// bitmask the kernel delivered it under (0 for a unicast reply), and
// whether the datagram was larger than buf. MSG_TRUNC makes the kernel
// report the datagram's real length in n even when it only copies
// len(buf) bytes; when that happens, n is capped to len(buf) here (the
// caller only ever gets bytes actually written into its buffer) and
// truncated is set so the caller can tell its buffer was too small
// rather than silently parse a partial message as complete.
func (s *Socket) Recv(buf []byte) (n int, fromPid, fromGroups uint32, truncated bool, err error) {
	rn, from, rerr := unix.Recvfrom(s.fd, buf, unix.MSG_TRUNC)
	if rerr != nil {
		return 0, 0, 0, false, newSocketError("recvfrom", rerr)
	}
	if nl, ok := from.(*unix.SockaddrNetlink); ok {
		fromPid = nl.Pid
		fromGroups = nl.Groups
	}
	if rn > len(buf) {
		return len(buf), fromPid, fromGroups, true, nil
	}
	return rn, fromPid, fromGroups, false, nil
}

// AddMembership joins a multicast group.
func (s *Socket) AddMembership(group uint32) error {
	if err := unix.SetsockoptInt(s.fd, solNetlink, netlinkAddMembership, int(group)); err != nil {
		return newSocketError("setsockopt NETLINK_ADD_MEMBERSHIP", err)
	}
	if s.groups == nil {
		s.groups = NewNetlinkBitArray()
	}
	s.groups.Set(group)
	return nil
}

// DropMembership leaves a multicast group.
func (s *Socket) DropMembership(group uint32) error {
	if err := unix.SetsockoptInt(s.fd, solNetlink, netlinkDropMembership, int(group)); err != nil {
		return newSocketError("setsockopt NETLINK_DROP_MEMBERSHIP", err)
	}
	if s.groups != nil {
		s.groups.Clear(group)
	}
	return nil
}

// ListMcastMemberships asks the kernel which groups this socket
// currently belongs to. NETLINK_LIST_MEMBERSHIPS returns a variable
// number of u32 words, so this negotiates the length with a zero-sized
// probe first, matching getsockopt(2)'s standard growable-buffer
// convention.
func (s *Socket) ListMcastMemberships() (*NetlinkBitArray, error) {
	optlen, err := getsockoptLen(s.fd, solNetlink, netlinkListMemberships)
	if err != nil {
		return nil, newSocketError("getsockopt NETLINK_LIST_MEMBERSHIPS", err)
	}
	if optlen == 0 {
		return NewNetlinkBitArray(), nil
	}
	buf := make([]byte, optlen)
	if err := getsockoptBytes(s.fd, solNetlink, netlinkListMemberships, buf); err != nil {
		return nil, newSocketError("getsockopt NETLINK_LIST_MEMBERSHIPS", err)
	}
	bits := NewNetlinkBitArray()
	for i := 0; i+4 <= len(buf); i += 4 {
		word := hostOrder.Uint32(buf[i : i+4])
		for bit := uint32(0); bit < 32; bit++ {
			if word&(1<<bit) != 0 {
				bits.Set(uint32(i/4)*32 + bit + 1)
			}
		}
	}
	return bits, nil
}

// EnableExtAck toggles NETLINK_EXT_ACK, which makes ERROR/DONE frames
// carry human-readable diagnostic TLVs.
func (s *Socket) EnableExtAck(enable bool) error {
	v := 0
	if enable {
		v = 1
	}
	if err := unix.SetsockoptInt(s.fd, solNetlink, netlinkExtAck, v); err != nil {
		return newSocketError("setsockopt NETLINK_EXT_ACK", err)
	}
	s.extAck = enable
	return nil
}

// ExtAckEnabled reports the last value passed to EnableExtAck.
func (s *Socket) ExtAckEnabled() bool { return s.extAck }

// EnableCapAck toggles NETLINK_CAP_ACK, which asks the kernel to omit
// the original request payload from ERROR frames (ACKs never carry it),
// leaving only the
// echoed header (and any ext-ack TLVs). Callers that don't need the
// echoed request back should enable this to shrink ACK traffic.
func (s *Socket) EnableCapAck(enable bool) error {
	v := 0
	if enable {
		v = 1
	}
	if err := unix.SetsockoptInt(s.fd, solNetlink, netlinkCapAck, v); err != nil {
		return newSocketError("setsockopt NETLINK_CAP_ACK", err)
	}
	s.capAck = enable
	return nil
}

// CapAckEnabled reports the last value passed to EnableCapAck.
func (s *Socket) CapAckEnabled() bool { return s.capAck }

// EnableStrictChecking toggles NETLINK_GET_STRICT_CHK, asking the
// kernel to reject dump requests with attributes it doesn't recognize
// instead of silently ignoring them.
func (s *Socket) EnableStrictChecking(enable bool) error {
	v := 0
	if enable {
		v = 1
	}
	if err := unix.SetsockoptInt(s.fd, solNetlink, netlinkGetStrictChk, v); err != nil {
		return newSocketError("setsockopt NETLINK_GET_STRICT_CHK", err)
	}
	return nil
}

// SetRcvbuf requests a receive buffer of the given size, verifying the
// kernel didn't silently truncate the request; force is SO_RCVBUFFORCE,
// which needs CAP_NET_ADMIN but bypasses the rmem_max ceiling.
func (s *Socket) SetRcvbuf(bytes int, force bool) error {
	opt := unix.SO_RCVBUF
	if force {
		opt = unix.SO_RCVBUFFORCE
	}
	if err := unix.SetsockoptInt(s.fd, unix.SOL_SOCKET, opt, bytes); err != nil {
		return newSocketError("setsockopt SO_RCVBUF", err)
	}
	got, err := unix.GetsockoptInt(s.fd, unix.SOL_SOCKET, unix.SO_RCVBUF)
	if err != nil {
		return newSocketError("getsockopt SO_RCVBUF", err)
	}
	if got < bytes {
		slog.Warn("netlink: kernel truncated SO_RCVBUF request", "requested", bytes, "got", got)
	}
	return nil
}

// SetNonblocking switches the socket between blocking and non-blocking
// mode, backing the router's threaded vs. cooperative demultiplexers.
func (s *Socket) SetNonblocking(nonblocking bool) error {
	if err := unix.SetNonblock(s.fd, nonblocking); err != nil {
		return newSocketError("setnonblock", err)
	}
	s.blocking = !nonblocking
	return nil
}

// Blocking reports the socket's current blocking mode.
func (s *Socket) Blocking() bool { return s.blocking }

// Close closes the underlying file descriptor.
func (s *Socket) Close() error {
	if err := unix.Close(s.fd); err != nil {
		return newSocketError("close", err)
	}
	return nil
}

// getsockoptLen probes a variable-length sockopt's current size without
// copying its payload, the standard zero-buffer getsockopt(2) idiom.
func getsockoptLen(fd, level, opt int) (int, error) {
	var optlen uint32
	_, _, errno := unix.Syscall6(unix.SYS_GETSOCKOPT, uintptr(fd), uintptr(level), uintptr(opt), 0, uintptr(unsafe.Pointer(&optlen)), 0)
	if errno != 0 {
		return 0, errno
	}
	return int(optlen), nil
}

// getsockoptBytes fills buf with a variable-length sockopt's payload.
func getsockoptBytes(fd, level, opt int, buf []byte) error {
	optlen := uint32(len(buf))
	var bufPtr unsafe.Pointer
	if len(buf) > 0 {
		bufPtr = unsafe.Pointer(&buf[0])
	}
	_, _, errno := unix.Syscall6(unix.SYS_GETSOCKOPT, uintptr(fd), uintptr(level), uintptr(opt), uintptr(bufPtr), uintptr(unsafe.Pointer(&optlen)), 0)
	if errno != 0 {
		return errno
	}
	return nil
}
