// Package access implements the owner whitelist: the first accepted peer
// becomes the owner until an administrative reset.
package access

import (
	"sync"

	"github.com/rs/zerolog"

	"powermon-go/bus"
	"powermon-go/types"
)

var TopicOwner = bus.T("access", "owner")

// Decision is the outcome of a connection attempt.
type Decision uint8

const (
	DecisionRejected Decision = iota
	DecisionClaimed           // Unclaimed -> Owned(peer)
	DecisionAccepted          // owner reconnecting
)

func (d Decision) Allowed() bool { return d != DecisionRejected }

func (d Decision) String() string {
	switch d {
	case DecisionClaimed:
		return "claimed"
	case DecisionAccepted:
		return "accepted"
	}
	return "rejected"
}

// Guard holds the OwnerState. It is shared by the wireless task and the
// access service and carries its own lock.
type Guard struct {
	mu    sync.Mutex
	state types.OwnerState
	conn  *bus.Connection
	log   zerolog.Logger
}

// NewGuard returns an Unclaimed guard. conn may be nil.
func NewGuard(conn *bus.Connection, log zerolog.Logger) *Guard {
	g := &Guard{conn: conn, log: log}
	g.publish(g.state)
	return g
}

// Connect evaluates a connection attempt from peer.
func (g *Guard) Connect(peer types.PeerID) Decision {
	g.mu.Lock()
	switch {
	case !g.state.Owned:
		g.state = types.OwnedBy(peer)
		st := g.state
		g.mu.Unlock()
		g.log.Info().Stringer("peer", peer).Msg("owner claimed")
		g.publish(st)
		return DecisionClaimed
	case g.state.Peer == peer:
		g.mu.Unlock()
		return DecisionAccepted
	}
	owner := g.state.Peer
	g.mu.Unlock()
	g.log.Info().Stringer("peer", peer).Stringer("owner", owner).Msg("connection rejected")
	return DecisionRejected
}

// AuthorizeWrite reports whether peer is the current owner. Writes while
// Unclaimed are rejected.
func (g *Guard) AuthorizeWrite(peer types.PeerID) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state.Is(peer)
}

// Reset returns the guard to Unclaimed and reports the previous state.
func (g *Guard) Reset() types.OwnerState {
	g.mu.Lock()
	prev := g.state
	g.state = types.Unclaimed()
	g.mu.Unlock()
	g.log.Info().Stringer("previous", prev).Msg("owner reset")
	g.publish(types.Unclaimed())
	return prev
}

func (g *Guard) State() types.OwnerState {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

func (g *Guard) publish(st types.OwnerState) {
	if g.conn == nil {
		return
	}
	g.conn.Publish(g.conn.NewMessage(TopicOwner, st, true))
}
