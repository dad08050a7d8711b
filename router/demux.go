package router

import "github.com/nlkit/netlink"

// runThreaded is the blocking demultiplexer backing New: one goroutine,
// parked in Recv between datagrams, dispatching each as it arrives
// until Recv returns a fatal error (including the one Close triggers by
// closing the socket out from under it).
func (r *Router) runThreaded() {
	buf := netlink.GetRecvBuffer(defaultReadBufSize)
	defer netlink.PutRecvBuffer(buf)
	for {
		n, fromPid, fromGroups, truncated, err := r.conn.Recv(buf)
		if err != nil {
			r.shutdown(err)
			return
		}
		r.dispatch(buf[:n], fromPid, fromGroups, truncated)
	}
}

const defaultReadBufSize = netlink.DefaultRecvBufferSize
