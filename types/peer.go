package types

// PeerID is a link-layer address. MAC is in display order (most
// significant byte first).
type PeerID struct {
	Random bool
	MAC    [6]byte
}

func (p PeerID) IsZero() bool { return p == PeerID{} }

// String renders AA:BB:CC:DD:EE:FF, with a /random suffix for random
// addresses. No fmt.
func (p PeerID) String() string {
	const hexd = "0123456789ABCDEF"
	var b [6*3 - 1 + len("/random")]byte
	n := 0
	for i, c := range p.MAC {
		if i > 0 {
			b[n] = ':'
			n++
		}
		b[n] = hexd[c>>4]
		b[n+1] = hexd[c&0x0F]
		n += 2
	}
	if p.Random {
		n += copy(b[n:], "/random")
	}
	return string(b[:n])
}

func (p PeerID) MarshalText() ([]byte, error) { return []byte(p.String()), nil }
