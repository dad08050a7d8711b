//go:build linux

package router

import (
	"fmt"

	"golang.org/x/sys/unix"

	"github.com/nlkit/netlink"
)

// NewAsync creates a Router with a cooperative, epoll-driven
// demultiplexer: the socket is set non-blocking and a single goroutine
// suspends in epoll_wait between datagrams instead of blocking inside
// Recv. This is the async feature toggle's Go realization; Go has no
// native async/await, so "cooperative" here means "yields to the
// runtime scheduler via epoll" rather than "runs on a dedicated OS
// thread blocked in a syscall".
func NewAsync(conn Conn, opts ...Option) (*Router, error) {
	if err := conn.SetNonblocking(true); err != nil {
		return nil, fmt.Errorf("router: %w", err)
	}
	r := newRouter(conn, opts)
	epollFd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, fmt.Errorf("router: epoll_create1: %w", err)
	}
	if err := unix.EpollCtl(epollFd, unix.EPOLL_CTL_ADD, conn.Fd(), &unix.EpollEvent{
		Events: unix.EPOLLIN,
		Fd:     int32(conn.Fd()),
	}); err != nil {
		unix.Close(epollFd)
		return nil, fmt.Errorf("router: epoll_ctl: %w", err)
	}
	go r.runAsync(epollFd)
	return r, nil
}

func (r *Router) runAsync(epollFd int) {
	defer unix.Close(epollFd)
	buf := netlink.GetRecvBuffer(defaultReadBufSize)
	defer netlink.PutRecvBuffer(buf)
	events := make([]unix.EpollEvent, 1)
	for {
		_, err := unix.EpollWait(epollFd, events, -1)
		if err != nil {
			if err == unix.EINTR {
				continue
			}
			r.shutdown(fmt.Errorf("epoll_wait: %w", err))
			return
		}
		for {
			n, fromPid, fromGroups, truncated, err := r.conn.Recv(buf)
			if err != nil {
				if serr, ok := asSocketError(err); ok && serr.WouldBlock() {
					break
				}
				r.shutdown(err)
				return
			}
			r.dispatch(buf[:n], fromPid, fromGroups, truncated)
		}
	}
}

func asSocketError(err error) (*netlink.SocketError, bool) {
	se, ok := err.(*netlink.SocketError)
	return se, ok
}
