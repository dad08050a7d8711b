//go:build !linux

package router

import "github.com/nlkit/netlink"

// NewAsync is unavailable outside Linux: epoll is a Linux-specific
// readiness mechanism and AF_NETLINK doesn't exist elsewhere.
func NewAsync(conn Conn, opts ...Option) (*Router, error) {
	return nil, netlink.ErrUnsupported
}
