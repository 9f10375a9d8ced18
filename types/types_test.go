package types

import "testing"

func TestPeerIDString(t *testing.T) {
	p := PeerID{MAC: [6]byte{0xAA, 0xBB, 0x0C, 0x0D, 0xE0, 0x01}}
	if got := p.String(); got != "AA:BB:0C:0D:E0:01" {
		t.Fatalf("String() = %q", got)
	}
	p.Random = true
	if got := p.String(); got != "AA:BB:0C:0D:E0:01/random" {
		t.Fatalf("String() = %q", got)
	}
}

func TestPeerIDEquality(t *testing.T) {
	a := PeerID{MAC: [6]byte{1, 2, 3, 4, 5, 6}}
	b := a
	b.Random = true
	if a == b {
		t.Fatal("address type must take part in equality")
	}
	if !OwnedBy(a).Is(a) || OwnedBy(a).Is(b) || Unclaimed().Is(a) {
		t.Fatal("OwnerState.Is mismatch")
	}
}

func TestOwnerStateString(t *testing.T) {
	if Unclaimed().String() != "unclaimed" {
		t.Fatal("unclaimed")
	}
	p := PeerID{MAC: [6]byte{0, 0, 0, 0, 0, 1}}
	if got := OwnedBy(p).String(); got != "owned(00:00:00:00:00:01)" {
		t.Fatalf("got %q", got)
	}
}
