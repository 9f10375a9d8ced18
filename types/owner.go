package types

// OwnerState is Unclaimed (Owned == false) or Owned(Peer).
type OwnerState struct {
	Owned bool   `json:"owned"`
	Peer  PeerID `json:"peer"`
}

func Unclaimed() OwnerState { return OwnerState{} }
func OwnedBy(p PeerID) OwnerState { return OwnerState{Owned: true, Peer: p} }
func (s OwnerState) Is(p PeerID) bool { return s.Owned && s.Peer == p }

func (s OwnerState) String() string {
	if !s.Owned {
		return "unclaimed"
	}
	return "owned(" + s.Peer.String() + ")"
}

// OwnerReset is the reply payload of access/control/reset.
type OwnerReset struct {
	OK       bool       `json:"ok"`
	Previous OwnerState `json:"previous"`
}
