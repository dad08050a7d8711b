package router

import (
	"sync"

	"github.com/nlkit/netlink"
)

// McastStream is a subscriber's view onto one multicast group: a stream
// of broadcast frames terminated only by Unsubscribe or router
// Shutdown.
type McastStream struct {
	group     uint32
	ch        chan netlink.Frame
	table     *mcastTable
	closeOnce sync.Once
}

// Recv blocks for the next broadcast frame, or returns false once the
// stream is closed.
func (m *McastStream) Recv() (netlink.Frame, bool) {
	f, ok := <-m.ch
	return f, ok
}

// Unsubscribe stops delivery to this stream and closes it.
func (m *McastStream) Unsubscribe() { m.table.unsubscribe(m) }

type mcastTable struct {
	mu   sync.RWMutex
	subs map[uint32][]*McastStream
}

func newMcastTable() *mcastTable {
	return &mcastTable{subs: make(map[uint32][]*McastStream)}
}

func (t *mcastTable) subscribe(group uint32) *McastStream {
	s := &McastStream{group: group, ch: make(chan netlink.Frame, 64), table: t}
	t.mu.Lock()
	t.subs[group] = append(t.subs[group], s)
	t.mu.Unlock()
	return s
}

func (t *mcastTable) unsubscribe(s *McastStream) {
	t.mu.Lock()
	list := t.subs[s.group]
	for i, x := range list {
		if x == s {
			t.subs[s.group] = append(list[:i], list[i+1:]...)
			break
		}
	}
	t.mu.Unlock()
	closeStreamOnce(s)
}

// closeStreamOnce closes a subscriber's channel exactly once, whether
// triggered by Unsubscribe or by router shutdown.
func closeStreamOnce(s *McastStream) {
	s.closeOnce.Do(func() { close(s.ch) })
}

// dispatch delivers frame to every subscriber of any group set in
// groupMask, returning whether it found at least one subscriber.
func (t *mcastTable) dispatch(groupMask uint32, frame netlink.Frame) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	delivered := false
	for bit := uint32(0); bit < 32; bit++ {
		if groupMask&(1<<bit) == 0 {
			continue
		}
		group := bit + 1
		for _, s := range t.subs[group] {
			select {
			case s.ch <- frame:
				delivered = true
			default:
				// subscriber too slow; drop rather than block the demux
			}
		}
	}
	return delivered
}

func (t *mcastTable) shutdown() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for group, list := range t.subs {
		for _, s := range list {
			closeStreamOnce(s)
		}
		delete(t.subs, group)
	}
}
