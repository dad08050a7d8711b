package netlink

import "sync"

// DefaultRecvBufferSize is the receive buffer size handed out by the
// pool when a caller doesn't need a larger one; four pages is the
// teacher's own default for a single recvfrom.
const DefaultRecvBufferSize = 4 * 4096

var recvBufferPool = sync.Pool{
	New: func() any {
		buf := make([]byte, DefaultRecvBufferSize)
		return &buf
	},
}

// GetRecvBuffer borrows a receive buffer from the pool, sized to at
// least n bytes. Demultiplexers hold onto the returned buffer for the
// lifetime of their receive loop and return it with PutRecvBuffer on
// exit; MessageIter always copies out of it before a frame crosses a
// goroutine boundary, so reuse across Recv calls is safe.
func GetRecvBuffer(n int) []byte {
	p := recvBufferPool.Get().(*[]byte)
	buf := *p
	if cap(buf) < n {
		return make([]byte, n)
	}
	return buf[:n]
}

// PutRecvBuffer returns a receive buffer to the pool. Buffers larger
// than four times the pool's default size are simply dropped rather than pooled at
// their oversized capacity, to keep the pool's steady-state memory
// bounded.
func PutRecvBuffer(buf []byte) {
	if cap(buf) > DefaultRecvBufferSize*4 {
		return
	}
	full := buf[:cap(buf)]
	recvBufferPool.Put(&full)
}
