package wireless

import (
	"powermon-go/gatt"
	"powermon-go/types"
)

type EventKind uint8

const (
	EventConnect EventKind = iota + 1
	EventWrite
	EventDisconnect
)

func (k EventKind) String() string {
	switch k {
	case EventConnect:
		return "connect"
	case EventWrite:
		return "write"
	case EventDisconnect:
		return "disconnect"
	}
	return "unknown"
}

// Event is delivered by the radio stack. Data is owned by the receiver.
type Event struct {
	Kind  EventKind
	Peer  types.PeerID
	Field gatt.Field // writes only
	Data  []byte     // writes only
}

// Radio is the radio stack boundary. Stack callbacks never touch shared
// state; they enqueue Events on a bounded channel.
type Radio interface {
	Events() <-chan Event
	Notify(f gatt.Field, value []byte) error
	Disconnect(peer types.PeerID) error
	StartAdvertising() error
	StopAdvertising() error
}
