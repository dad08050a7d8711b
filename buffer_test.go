package netlink

import "testing"

func TestAlign(t *testing.T) {
	cases := []struct{ in, want int }{
		{0, 0}, {1, 4}, {3, 4}, {4, 4}, {5, 8}, {8, 8},
	}
	for _, c := range cases {
		if got := Align(c.in); got != c.want {
			t.Errorf("Align(%d) = %d, want %d", c.in, got, c.want)
		}
	}
}

func TestBufferWriteReadRoundTrip(t *testing.T) {
	buf := NewBuffer()
	buf.PutUint16(0xabcd)
	buf.PutUint32(0xdeadbeef)
	buf.PutUint16BE(0x1234)
	buf.WriteBytes([]byte{1, 2, 3})

	rd := WrapBuffer(buf.Bytes())
	v16, err := rd.GetUint16()
	if err != nil || v16 != 0xabcd {
		t.Fatalf("GetUint16 = %#x, %v", v16, err)
	}
	v32, err := rd.GetUint32()
	if err != nil || v32 != 0xdeadbeef {
		t.Fatalf("GetUint32 = %#x, %v", v32, err)
	}
	vbe, err := rd.GetUint16BE()
	if err != nil || vbe != 0x1234 {
		t.Fatalf("GetUint16BE = %#x, %v", vbe, err)
	}
	rest, err := rd.ReadBytes(3)
	if err != nil || string(rest) != "\x01\x02\x03" {
		t.Fatalf("ReadBytes = %v, %v", rest, err)
	}
}

func TestBufferReadPastEndReturnsTruncated(t *testing.T) {
	buf := WrapBuffer([]byte{1, 2})
	if _, err := buf.ReadBytes(4); err == nil {
		t.Fatal("expected truncated error")
	} else if ce, ok := err.(*CodecError); !ok || ce.Kind != ErrTruncated {
		t.Fatalf("expected CodecError{Truncated}, got %v", err)
	}
}

func TestWritePadAndSkipPad(t *testing.T) {
	buf := NewBuffer()
	buf.WriteBytes([]byte{1, 2, 3})
	n, err := buf.WritePad(3)
	if err != nil || n != 1 {
		t.Fatalf("WritePad(3) = %d, %v, want 1 byte of pad", n, err)
	}
	if buf.Len() != 4 {
		t.Fatalf("Len() = %d, want 4", buf.Len())
	}

	rd := WrapBuffer(buf.Bytes())
	if _, err := rd.ReadBytes(3); err != nil {
		t.Fatal(err)
	}
	if err := rd.SkipPad(3); err != nil {
		t.Fatal(err)
	}
	if rd.Remaining() != 0 {
		t.Fatalf("Remaining() = %d, want 0", rd.Remaining())
	}
}
