package netlink

// Attribute is the method set shared by Attr and Rtattr, letting
// AttrList and Handle work generically over either wire family without
// letting a genl attribute list and a routing attribute list be mixed
// up at compile time (they're still distinct instantiations). It is
// deliberately not `comparable`: both concrete types carry a []byte
// payload field, so neither supports ==.
type Attribute interface {
	Kind() uint16
	UnpaddedSize() int
	PaddedSize() int
	Encode(buf *Buffer) (int, error)
}

// AttrList is an ordered sequence of header-framed attributes:
// GenlBuffer = AttrList[Attr], RtBuffer = AttrList[Rtattr]. Iteration
// preserves on-wire order; duplicate types are permitted.
type AttrList[T Attribute] struct {
	items []T
}

// GenlBuffer is the attribute container carried by generic-netlink
// payloads.
type GenlBuffer = AttrList[Attr]

// RtBuffer is the attribute container carried by route/netfilter/other
// family payloads.
type RtBuffer = AttrList[Rtattr]

// Append adds an item to the end of the list.
func (l *AttrList[T]) Append(item T) { l.items = append(l.items, item) }

// Items returns the list's items in on-wire order. The returned slice
// must not be mutated by the caller.
func (l *AttrList[T]) Items() []T {
	if l == nil {
		return nil
	}
	return l.items
}

// Len returns the number of attributes in the list.
func (l *AttrList[T]) Len() int { return len(l.items) }

// UnpaddedSize is the sum of each item's unpadded length.
func (l *AttrList[T]) UnpaddedSize() int {
	n := 0
	for _, it := range l.items {
		n += it.UnpaddedSize()
	}
	return n
}

// PaddedSize is the sum of each item's padded length, i.e. the number of
// bytes this list actually occupies on the wire.
func (l *AttrList[T]) PaddedSize() int {
	n := 0
	for _, it := range l.items {
		n += it.PaddedSize()
	}
	return n
}

// Encode writes every item in order, each followed by its own alignment
// padding.
func (l *AttrList[T]) Encode(buf *Buffer) (int, error) {
	n := 0
	for _, it := range l.items {
		written, err := it.Encode(buf)
		if err != nil {
			return n, err
		}
		n += written
	}
	return n, nil
}

// attrDecoder reads one T (header, payload, and trailing pad) from buf.
type attrDecoder[T Attribute] func(buf *Buffer) (T, error)

// DecodeAttrList reads attributes from buf until size bytes (the
// declared size of the enclosing container, counting each attribute's
// trailing pad) have been consumed. It fails with Truncated when buf
// runs out first, or TrailingBytes when the attributes' padded sizes do
// not add up to exactly size.
func DecodeAttrList[T Attribute](buf *Buffer, size int, decode attrDecoder[T]) (*AttrList[T], error) {
	list := &AttrList[T]{}
	consumed := 0
	for consumed < size {
		item, err := decode(buf)
		if err != nil {
			return list, err
		}
		list.items = append(list.items, item)
		consumed += item.PaddedSize()
	}
	if consumed != size {
		return list, &CodecError{Kind: ErrTrailingBytes, Offset: buf.Pos(), Got: consumed - size}
	}
	return list, nil
}

// Get returns the first attribute with the given Kind (NESTED/NBO bits
// masked off), matching on-wire order. Lookup is O(n) by design: real
// attribute lists are small, and preserving order matters more than
// asymptotic lookup cost.
func (l *AttrList[T]) Get(typ uint16) (T, bool) {
	for _, it := range l.items {
		if it.Kind() == typ {
			return it, true
		}
	}
	var zero T
	return zero, false
}

// All returns every attribute with the given Kind, in on-wire order.
func (l *AttrList[T]) All(typ uint16) []T {
	var out []T
	for _, it := range l.items {
		if it.Kind() == typ {
			out = append(out, it)
		}
	}
	return out
}
