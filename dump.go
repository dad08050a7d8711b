package netlink

import (
	"encoding/hex"
	"fmt"
	"io"

	"github.com/nlkit/netlink/internal/indent"
)

// Dump writes a human-readable, recursively-indented trace of a
// message's header and attributes, descending into nested attribute
// lists. It's meant for debug logging, not for the wire.
func (m *Message) Dump(w io.Writer) error {
	iw := indent.New(w, "  ")
	fmt.Fprintf(iw, "%s\n", m.Header.String())
	switch p := m.Payload.(type) {
	case *GenlPayload:
		fmt.Fprintf(iw, "genl cmd=%d version=%d\n", p.Cmd, p.Version)
		indent.Increase(iw)
		dumpAttrs(iw, p.Attrs.Items())
		indent.Decrease(iw)
	case *RawPayload:
		fmt.Fprintf(iw, "raw %s\n", hex.EncodeToString(p.Data))
	case fmt.Stringer:
		fmt.Fprintf(iw, "%s\n", p.String())
	}
	return nil
}

// Dump writes each attribute's type and payload, one per line,
// indenting and recursing into any attribute flagged NESTED.
func (l *AttrList[T]) Dump(w io.Writer) error {
	iw := indent.New(w, "  ")
	dumpAttrs(iw, l.Items())
	return nil
}

func dumpAttrs[T Attribute](w io.Writer, items []T) {
	for _, a := range items {
		payload := payloadOf(a)
		if nestedOf(a) {
			fmt.Fprintf(w, "attr type=%d (nested):\n", a.Kind())
			indent.Increase(w)
			nested, err := decodeNestedList[T](payload)
			if err != nil {
				fmt.Fprintf(w, "malformed nested attribute: %v\n", err)
			} else {
				dumpAttrs(w, nested.Items())
			}
			indent.Decrease(w)
			continue
		}
		fmt.Fprintf(w, "attr type=%d: %s\n", a.Kind(), hex.EncodeToString(payload))
	}
}

// nestedOf reports whether item has its NESTED flag bit set; see
// payloadOf for why this is a type switch rather than an interface
// method.
func nestedOf[T Attribute](item T) bool {
	switch v := any(item).(type) {
	case Attr:
		return v.Nested()
	case Rtattr:
		return v.Nested()
	default:
		return false
	}
}
