// Package router is the concurrency core: it multiplexes many logical
// requests over one netlink socket, tracking sequence numbers,
// validating sender credentials, and delivering responses (single
// reply, streaming dump, or ACK) to the right caller.
package router

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/nlkit/netlink"
)

// Conn is the socket surface the router needs. *netlink.Socket
// satisfies it; tests substitute an in-memory fake so the router's
// dispatch logic can be exercised without a real kernel.
type Conn interface {
	Send(data []byte) error
	Recv(buf []byte) (n int, fromPid uint32, fromGroups uint32, truncated bool, err error)
	PortID() uint32
	Fd() int
	SetNonblocking(nonblocking bool) error
	Close() error
}

// sink is a bounded per-request queue of frames plus a completion
// signal, the router's "response sink" per spec.md's router design.
type sink struct {
	ch   chan netlink.Frame
	done chan struct{}
	once sync.Once
	err  error
}

func newSink(depth int) *sink {
	return &sink{ch: make(chan netlink.Frame, depth), done: make(chan struct{})}
}

func (s *sink) push(f netlink.Frame) bool {
	select {
	case s.ch <- f:
		return true
	case <-s.done:
		return false
	}
}

// close terminates the sink with no error, the normal-completion path.
func (s *sink) close() { s.closeWithErr(nil) }

// closeWithErr terminates the sink and records err as the cause a
// caller can retrieve through ResponseStream.Err once Next reports the
// stream exhausted. Only the first call has any effect; err is written
// before the done channel closes, so a reader observing done closed is
// guaranteed to see it.
func (s *sink) closeWithErr(err error) {
	s.once.Do(func() {
		s.err = err
		close(s.done)
	})
}

// Router owns a netlink socket, allocates sequence numbers, and runs a
// background demultiplexer that dispatches inbound frames to the
// correct caller.
type Router struct {
	conn    Conn
	log     *slog.Logger
	extAck  bool
	peerPid uint32 // expected sender pid; 0 == kernel

	seq atomic.Uint32

	mu      sync.RWMutex
	pending map[uint32]*sink
	closed  bool

	mcast *mcastTable

	spoofed   atomic.Uint64
	orphans   atomic.Uint64
	truncated atomic.Uint64

	demuxDone chan struct{}
	closeOnce sync.Once
}

// Option configures a Router at construction time.
type Option func(*Router)

// WithLogger overrides the router's logger; the default is
// slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(r *Router) { r.log = l }
}

// WithExtendedAck records that the underlying socket has
// NETLINK_EXT_ACK enabled, so ERROR/DONE frames are parsed for trailing
// diagnostic TLVs.
func WithExtendedAck(enabled bool) Option {
	return func(r *Router) { r.extAck = enabled }
}

// WithPeerPortID pins the expected sender port id (0 means "the
// kernel", the default). Frames from any other pid are logged as
// SpoofedPeer and dropped.
func WithPeerPortID(pid uint32) Option {
	return func(r *Router) { r.peerPid = pid }
}

func newRouter(conn Conn, opts []Option) *Router {
	r := &Router{
		conn:      conn,
		log:       slog.Default(),
		pending:   make(map[uint32]*sink),
		mcast:     newMcastTable(),
		demuxDone: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// New creates a Router with a threaded, blocking demultiplexer: the
// demultiplexer runs on its own goroutine and blocks in Recv between
// datagrams. This is the sync feature toggle's Go realization.
func New(conn Conn, opts ...Option) (*Router, error) {
	if err := conn.SetNonblocking(false); err != nil {
		return nil, fmt.Errorf("router: %w", err)
	}
	r := newRouter(conn, opts)
	go r.runThreaded()
	return r, nil
}

// nextSeq returns the next sequence number, skipping 0 (reserved for
// unsolicited kernel broadcasts) on wraparound.
func (r *Router) nextSeq() uint32 {
	for {
		seq := r.seq.Add(1)
		if seq != 0 {
			return seq
		}
	}
}

// SendRequest assigns a sequence number (if the message doesn't already
// carry one), stamps the router's port id, sends the message, and
// returns a ResponseStream the caller reads frames from until it
// observes an ACK, DONE, or ERROR.
func (r *Router) SendRequest(msg *netlink.Message) (*ResponseStream, error) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil, &Shutdown{}
	}
	if msg.Header.Seq == 0 {
		msg.Header.Seq = r.nextSeq()
	}
	if msg.Header.Pid == 0 {
		msg.Header.Pid = r.conn.PortID()
	}
	msg.Header.Flags |= netlink.NLM_F_REQUEST

	sk := newSink(64)
	r.pending[msg.Header.Seq] = sk
	r.mu.Unlock()

	buf := netlink.NewBuffer()
	if _, err := msg.Encode(buf); err != nil {
		r.removeSink(msg.Header.Seq)
		return nil, fmt.Errorf("router: encode request: %w", err)
	}
	if err := r.conn.Send(buf.Bytes()); err != nil {
		r.removeSink(msg.Header.Seq)
		return nil, err
	}
	return &ResponseStream{r: r, seq: msg.Header.Seq, sink: sk}, nil
}

func (r *Router) removeSink(seq uint32) {
	r.mu.Lock()
	delete(r.pending, seq)
	r.mu.Unlock()
}

// ResponseStream is the caller-facing handle for a request in flight:
// a single reply, an ACK, or a multi-part dump, terminated by an
// ACK/DONE/ERROR frame or by Shutdown.
type ResponseStream struct {
	r    *Router
	seq  uint32
	sink *sink
}

// Next blocks for the next frame, or returns false when the stream is
// exhausted (terminal frame delivered, ctx canceled, or router shut
// down). Call Err after a false return to distinguish normal
// completion (nil) from an abnormal one.
func (rs *ResponseStream) Next(ctx context.Context) (netlink.Frame, bool) {
	select {
	case f, ok := <-rs.sink.ch:
		if !ok {
			return netlink.Frame{}, false
		}
		// route closes the sink (with any DumpInterrupted cause) right
		// after pushing a terminal frame; wait for that so Err is
		// already set when the caller sees the terminal frame.
		if isTerminal(f) {
			<-rs.sink.done
		}
		return f, true
	case <-rs.sink.done:
		// Frames pushed before the sink closed are still delivered.
		select {
		case f := <-rs.sink.ch:
			return f, true
		default:
			return netlink.Frame{}, false
		}
	case <-ctx.Done():
		rs.closeWithErr(ctx.Err())
		return netlink.Frame{}, false
	}
}

// Err returns the cause the stream ended for, if it ended abnormally: a
// *Shutdown if the router was closed while this stream was still live,
// netlink.ErrDumpInterrupted if the kernel signalled a buffer overrun
// or set NLM_F_DUMP_INTR mid-dump, or ctx.Err() if Next's context was
// canceled first. Returns nil after ordinary completion (an ACK, ERROR,
// or un-interrupted DONE) or an explicit Close.
func (rs *ResponseStream) Err() error { return rs.sink.err }

func isTerminal(f netlink.Frame) bool {
	switch f.Kind {
	case netlink.FrameAck, netlink.FrameDone, netlink.FrameError:
		return true
	default:
		return false
	}
}

// Close cancels the stream locally. In-flight kernel work cannot be
// canceled; its output is simply discarded from here on.
func (rs *ResponseStream) Close() {
	rs.closeWithErr(nil)
}

func (rs *ResponseStream) closeWithErr(err error) {
	rs.sink.closeWithErr(err)
	rs.r.removeSink(rs.seq)
}

// Subscribe returns a stream of broadcast messages for the given
// multicast group.
func (r *Router) Subscribe(group uint32) *McastStream {
	return r.mcast.subscribe(group)
}

// SpoofedCount returns the number of frames dropped for arriving from
// an unexpected sender port id.
func (r *Router) SpoofedCount() uint64 { return r.spoofed.Load() }

// OrphanCount returns the number of frames dropped for matching no
// pending request and no multicast subscriber.
func (r *Router) OrphanCount() uint64 { return r.orphans.Load() }

// TruncatedCount returns the number of datagrams the kernel reported
// as larger than the demultiplexer's receive buffer (MSG_TRUNC).
func (r *Router) TruncatedCount() uint64 { return r.truncated.Load() }

// Close shuts the router down: closes the socket (waking the
// demultiplexer's blocked recv with EOF/EBADF), then waits for it to
// signal every pending and multicast sink with Shutdown.
func (r *Router) Close() error {
	var err error
	r.closeOnce.Do(func() {
		r.mu.Lock()
		r.closed = true
		r.mu.Unlock()
		err = r.conn.Close()
		<-r.demuxDone
	})
	return err
}

// dispatch classifies one inbound datagram's worth of frames and routes
// each to the right sink. Multicast delivery (nonzero group bitmask in
// the sender address) is preferred when it reaches a live subscriber,
// otherwise fall back to the pending table by sequence number. NLMSG_OVERRUN frames bypass both and reset every pending
// sink, since an overrun means the kernel dropped data this socket
// hadn't read yet, regardless of which sequence it belonged to.
// truncated reports a datagram larger than the receive buffer
// (MSG_TRUNC): data is still parsed on a best-effort basis, since a
// truncated message may still contain complete leading frames, but the
// event is counted and logged so a caller watching TruncatedCount
// knows its buffer is undersized.
func (r *Router) dispatch(data []byte, fromPid, fromGroups uint32, truncated bool) {
	if truncated {
		r.truncated.Add(1)
		r.log.Warn("netlink router: kernel reported a truncated datagram (MSG_TRUNC), buffer too small", "bufLen", len(data))
	}
	if fromPid != r.peerPid {
		r.spoofed.Add(1)
		r.log.Warn("netlink router: dropped frame from unexpected peer", "want", r.peerPid, "got", fromPid)
		return
	}
	it := netlink.NewMessageIter(data, r.extAck)
	for {
		frame, ok := it.Next()
		if !ok {
			if err := it.Err(); err != nil {
				r.log.Warn("netlink router: dropping malformed frame", "error", err)
			}
			return
		}
		r.route(frame, fromGroups)
	}
}

func (r *Router) route(frame netlink.Frame, fromGroups uint32) {
	if frame.Kind == netlink.FrameOverrun {
		r.handleOverrun()
		return
	}
	if fromGroups != 0 && r.mcast.dispatch(fromGroups, frame) {
		return
	}
	r.mu.RLock()
	sk, ok := r.pending[frame.Header.Seq]
	r.mu.RUnlock()
	if !ok {
		r.orphans.Add(1)
		r.log.Debug("netlink router: orphan frame", "seq", frame.Header.Seq, "kind", frame.Kind)
		return
	}
	if !sk.push(frame) {
		return
	}
	if isTerminal(frame) {
		r.removeSink(frame.Header.Seq)
		if frame.DumpIntr {
			sk.closeWithErr(netlink.ErrDumpInterrupted)
		} else {
			sk.close()
		}
	}
}

// handleOverrun handles NLMSG_OVERRUN: the kernel dropped messages
// because this socket's receive queue filled up, so any dump currently
// in flight is missing data no matter which sequence it belonged to.
// Every pending sink is evicted and told to retry.
func (r *Router) handleOverrun() {
	r.mu.Lock()
	pending := r.pending
	r.pending = make(map[uint32]*sink)
	r.mu.Unlock()

	if len(pending) > 0 {
		r.log.Warn("netlink router: kernel signalled receive overrun, resetting pending requests", "count", len(pending))
	}
	for _, sk := range pending {
		sk.closeWithErr(netlink.ErrDumpInterrupted)
	}
}

// shutdown signals every live sink and unblocks Close.
func (r *Router) shutdown(cause error) {
	r.mu.Lock()
	wasClosed := r.closed
	r.closed = true
	pending := r.pending
	r.pending = make(map[uint32]*sink)
	r.mu.Unlock()

	for _, sk := range pending {
		sk.closeWithErr(&Shutdown{Err: cause})
	}
	r.mcast.shutdown()
	close(r.demuxDone)
	if cause != nil {
		if wasClosed {
			r.log.Debug("netlink router: demultiplexer exiting after Close", "error", cause)
		} else {
			r.log.Error("netlink router: demultiplexer exiting", "error", cause)
		}
	}
}
