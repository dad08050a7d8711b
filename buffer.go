package netlink

import "encoding/binary"

// NLAAlignTo is the netlink attribute/message alignment granularity.
const NLAAlignTo = 4

// Align rounds n up to the next multiple of NLAAlignTo.
func Align(n int) int {
	return (n + NLAAlignTo - 1) &^ (NLAAlignTo - 1)
}

// Pad returns the number of zero-fill bytes needed after n bytes to
// restore 4-byte alignment.
func Pad(n int) int {
	return Align(n) - n
}

// Encoder writes a fixed-layout value into a Buffer, advancing its
// cursor, and reports how many bytes it wrote.
type Encoder interface {
	Encode(buf *Buffer) (int, error)
}

// Decoder reads a fixed-layout value out of a Buffer, advancing its
// cursor.
type Decoder interface {
	Decode(buf *Buffer) error
}

// SizedDecoder reads a value whose length was declared by an enclosing
// header. Implementations must consume exactly size bytes.
type SizedDecoder interface {
	DecodeSized(buf *Buffer, size int) error
}

// Buffer is a contiguous byte region plus a cursor, the fundamental I/O
// object every codec operation in this package advances. Encoders grow
// the underlying slice on demand; decoders never do.
type Buffer struct {
	data []byte
	pos  int
}

// NewBuffer returns an empty, growable Buffer used for encoding.
func NewBuffer() *Buffer {
	return &Buffer{data: make([]byte, 0, 64)}
}

// NewBufferSize returns an empty, growable Buffer with the given initial
// capacity, used for encoding.
func NewBufferSize(capacity int) *Buffer {
	return &Buffer{data: make([]byte, 0, capacity)}
}

// WrapBuffer returns a Buffer for decoding the contents of b. The slice
// is used as-is; writes through the Buffer mutate it in place once the
// cursor is within len(b), and only grow it past that point.
func WrapBuffer(b []byte) *Buffer {
	return &Buffer{data: b}
}

// Bytes returns the buffer's contents up to its current length. It does
// not reflect the cursor position.
func (b *Buffer) Bytes() []byte { return b.data }

// Pos returns the current cursor offset.
func (b *Buffer) Pos() int { return b.pos }

// Len returns the number of bytes currently stored in the buffer.
func (b *Buffer) Len() int { return len(b.data) }

// Remaining returns the number of unread bytes between the cursor and
// the end of the buffer.
func (b *Buffer) Remaining() int { return len(b.data) - b.pos }

// Seek repositions the cursor to an absolute offset.
func (b *Buffer) Seek(pos int) { b.pos = pos }

func (b *Buffer) grow(n int) {
	if b.pos+n <= len(b.data) {
		return
	}
	if b.pos+n <= cap(b.data) {
		b.data = b.data[:b.pos+n]
		return
	}
	grown := make([]byte, b.pos+n)
	copy(grown, b.data)
	b.data = grown
}

// WriteBytes copies p into the buffer at the cursor, advancing it.
func (b *Buffer) WriteBytes(p []byte) (int, error) {
	b.grow(len(p))
	copy(b.data[b.pos:], p)
	b.pos += len(p)
	return len(p), nil
}

// ReadBytes returns a borrowed slice of the next n bytes and advances the
// cursor, or a Truncated error if fewer than n bytes remain.
func (b *Buffer) ReadBytes(n int) ([]byte, error) {
	if b.Remaining() < n {
		return nil, &CodecError{Kind: ErrTruncated, Offset: b.pos, Expected: n, Got: b.Remaining()}
	}
	v := b.data[b.pos : b.pos+n]
	b.pos += n
	return v, nil
}

// WritePad emits the zero-fill bytes needed to bring the cursor back to
// a 4-byte boundary, given that n bytes of unpadded content were just
// written.
func (b *Buffer) WritePad(n int) (int, error) {
	pad := Pad(n)
	if pad == 0 {
		return 0, nil
	}
	b.grow(pad)
	for i := 0; i < pad; i++ {
		b.data[b.pos+i] = 0
	}
	b.pos += pad
	return pad, nil
}

// SkipPad advances the cursor past the padding that follows n bytes of
// unpadded content, failing if the buffer doesn't have that many bytes.
func (b *Buffer) SkipPad(n int) error {
	pad := Pad(n)
	if pad == 0 {
		return nil
	}
	if b.Remaining() < pad {
		return &CodecError{Kind: ErrTruncated, Offset: b.pos, Expected: pad, Got: b.Remaining()}
	}
	b.pos += pad
	return nil
}

// Host-order primitives. Netlink headers and attribute headers are
// host-byte-order on the wire by Linux convention; encoding/binary's
// NativeEndian exists precisely for formats like this one.
var hostOrder = binary.NativeEndian

func (b *Buffer) PutUint16(v uint16) (int, error) {
	b.grow(2)
	hostOrder.PutUint16(b.data[b.pos:], v)
	b.pos += 2
	return 2, nil
}

func (b *Buffer) PutUint32(v uint32) (int, error) {
	b.grow(4)
	hostOrder.PutUint32(b.data[b.pos:], v)
	b.pos += 4
	return 4, nil
}

func (b *Buffer) PutUint64(v uint64) (int, error) {
	b.grow(8)
	hostOrder.PutUint64(b.data[b.pos:], v)
	b.pos += 8
	return 8, nil
}

func (b *Buffer) GetUint16() (uint16, error) {
	v, err := b.ReadBytes(2)
	if err != nil {
		return 0, err
	}
	return hostOrder.Uint16(v), nil
}

func (b *Buffer) GetUint32() (uint32, error) {
	v, err := b.ReadBytes(4)
	if err != nil {
		return 0, err
	}
	return hostOrder.Uint32(v), nil
}

func (b *Buffer) GetUint64() (uint64, error) {
	v, err := b.ReadBytes(8)
	if err != nil {
		return 0, err
	}
	return hostOrder.Uint64(v), nil
}

// Network-order primitives, for the rare attribute payload that sets the
// NETWORK_BYTE_ORDER flag.
func (b *Buffer) PutUint16BE(v uint16) (int, error) {
	b.grow(2)
	binary.BigEndian.PutUint16(b.data[b.pos:], v)
	b.pos += 2
	return 2, nil
}

func (b *Buffer) PutUint32BE(v uint32) (int, error) {
	b.grow(4)
	binary.BigEndian.PutUint32(b.data[b.pos:], v)
	b.pos += 4
	return 4, nil
}

func (b *Buffer) GetUint16BE() (uint16, error) {
	v, err := b.ReadBytes(2)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(v), nil
}

func (b *Buffer) GetUint32BE() (uint32, error) {
	v, err := b.ReadBytes(4)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(v), nil
}
