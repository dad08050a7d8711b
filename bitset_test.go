package netlink

import "testing"

func TestNetlinkBitArraySetClearIsSet(t *testing.T) {
	b := NewNetlinkBitArray(1, 40, 100)
	for _, g := range []uint32{1, 40, 100} {
		if !b.IsSet(g) {
			t.Errorf("expected group %d to be set", g)
		}
	}
	if b.IsSet(2) {
		t.Error("group 2 should not be set")
	}
	b.Clear(40)
	if b.IsSet(40) {
		t.Error("group 40 should have been cleared")
	}
}

func TestNetlinkBitArrayGroupsSorted(t *testing.T) {
	b := NewNetlinkBitArray(65, 3, 33)
	groups := b.Groups()
	want := []uint32{3, 33, 65}
	if len(groups) != len(want) {
		t.Fatalf("Groups() = %v, want %v", groups, want)
	}
	for i := range want {
		if groups[i] != want[i] {
			t.Fatalf("Groups() = %v, want %v", groups, want)
		}
	}
}
