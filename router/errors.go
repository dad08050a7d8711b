package router

import "fmt"

// Shutdown is delivered to every pending and multicast sink when the
// router's demultiplexer exits, whether from a Close call or a fatal
// socket error on recv.
type Shutdown struct {
	Err error // the error that ended the demultiplexer (after Close, the recv error closing the socket caused); nil when returned by SendRequest on a closed router
}

func (s *Shutdown) Error() string {
	if s.Err == nil {
		return "router: shut down"
	}
	return fmt.Sprintf("router: shut down: %v", s.Err)
}

func (s *Shutdown) Unwrap() error { return s.Err }

// UnknownFamily is returned by ResolveFamily when the kernel has no
// generic-netlink family registered under the requested name.
type UnknownFamily struct {
	Name string
}

func (e *UnknownFamily) Error() string {
	return fmt.Sprintf("router: unknown generic netlink family %q", e.Name)
}

// SpoofedPeer is logged (not returned) whenever a frame arrives from a
// port id other than the expected peer; the router discards the frame
// and continues.
type SpoofedPeer struct {
	Want uint32
	Got  uint32
}

func (e *SpoofedPeer) Error() string {
	return fmt.Sprintf("router: dropped frame from unexpected peer pid %d (want %d)", e.Got, e.Want)
}

// Orphan is logged whenever a frame's sequence number matches no
// pending request and no multicast subscriber.
type Orphan struct {
	Seq uint32
}

func (e *Orphan) Error() string {
	return fmt.Sprintf("router: dropped frame for unknown sequence %d", e.Seq)
}
