// Package platform binds the firmware services to the RP2 board: the I2C
// bus owner, the BLE peripheral, the e-paper panel and the console UART.
package platform

import (
	"sync/atomic"

	"powermon-go/services/wireless"
	"powermon-go/types"
)

// DefaultEventDepth bounds the radio event queue.
const DefaultEventDepth = 8

// eventQueue carries radio stack callbacks to the wireless task. Posting
// never blocks; when the queue is full the event is dropped and counted.
type eventQueue struct {
	ch    chan wireless.Event
	drops uint32
}

func newEventQueue(depth int) *eventQueue {
	if depth <= 0 {
		depth = DefaultEventDepth
	}
	return &eventQueue{ch: make(chan wireless.Event, depth)}
}

func (q *eventQueue) post(ev wireless.Event) bool {
	select {
	case q.ch <- ev:
		return true
	default:
		atomic.AddUint32(&q.drops, 1)
		return false
	}
}

func (q *eventQueue) events() <-chan wireless.Event { return q.ch }

func (q *eventQueue) Drops() uint32 { return atomic.LoadUint32(&q.drops) }

// PeerFromMAC converts a stack address (least significant byte first) into
// a PeerID in display order.
func PeerFromMAC(mac [6]byte, random bool) types.PeerID {
	var p types.PeerID
	for i := range mac {
		p.MAC[i] = mac[len(mac)-1-i]
	}
	p.Random = random
	return p
}

// connTable tracks live connections so writes can be attributed to a peer.
// The stack reports writes by connection handle only; a write is attributed
// to a peer only while exactly one connection is live.
type connTable struct {
	peers [4]types.PeerID
	n     int
}

func (t *connTable) add(p types.PeerID) {
	for i := 0; i < t.n; i++ {
		if t.peers[i] == p {
			return
		}
	}
	if t.n < len(t.peers) {
		t.peers[t.n] = p
		t.n++
	}
}

func (t *connTable) remove(p types.PeerID) {
	for i := 0; i < t.n; i++ {
		if t.peers[i] == p {
			t.n--
			t.peers[i] = t.peers[t.n]
			t.peers[t.n] = types.PeerID{}
			return
		}
	}
}

// writer returns the only live peer, or the zero PeerID when the writer is
// ambiguous. The zero PeerID is never authorized.
func (t *connTable) writer() types.PeerID {
	if t.n == 1 {
		return t.peers[0]
	}
	return types.PeerID{}
}
