// Package wireless bridges radio events to the access guard and the
// telemetry store, and pushes notifications to the active owner link.
package wireless

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"powermon-go/bus"
	"powermon-go/errcode"
	"powermon-go/gatt"
	"powermon-go/services/access"
	"powermon-go/services/store"
	"powermon-go/types"
	"powermon-go/x/timex"
)

var (
	TopicLink = bus.T("wireless", "link")
	TopicRx   = bus.T("wireless", "rx")
)

var errEventsClosed = errors.New("radio event stream closed")

type Config struct {
	NotifyPeriod time.Duration // 0 => 1 s
}

type Service struct {
	radio Radio
	guard *access.Guard
	store *store.Store
	conn  *bus.Connection
	log   zerolog.Logger
	cfg   Config

	active types.PeerID
	linked bool
	ticker *time.Ticker
	tickC  <-chan time.Time

	notifyErrs uint32
	buf        [4]byte
}

func New(radio Radio, g *access.Guard, st *store.Store, conn *bus.Connection, log zerolog.Logger, cfg Config) (*Service, error) {
	if radio == nil {
		return nil, errcode.Wrap(errcode.RadioUnavailable, "wireless.New", errors.New("nil radio"))
	}
	if g == nil || st == nil {
		return nil, errcode.Wrap(errcode.InvalidParams, "wireless.New", errors.New("nil guard or store"))
	}
	if cfg.NotifyPeriod <= 0 {
		cfg.NotifyPeriod = time.Second
	}
	return &Service{radio: radio, guard: g, store: st, conn: conn, log: log, cfg: cfg}, nil
}

// NotifyErrors returns the number of failed notify ticks.
func (s *Service) NotifyErrors() uint32 { return s.notifyErrs }

// Run serves radio events until ctx ends. A failure to start advertising is
// fatal.
func (s *Service) Run(ctx context.Context) error {
	if err := s.radio.StartAdvertising(); err != nil {
		return errcode.Wrap(errcode.RadioUnavailable, "advertise", err)
	}
	s.publishLink(types.LinkAdvertising, types.PeerID{})
	s.log.Info().Msg("advertising")

	var ownerC <-chan *bus.Message
	if s.conn != nil {
		ownerSub := s.conn.Subscribe(access.TopicOwner)
		defer s.conn.Unsubscribe(ownerSub)
		ownerC = ownerSub.Channel()
	}
	defer s.stopTicker()

	events := s.radio.Events()
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-events:
			if !ok {
				return errEventsClosed
			}
			s.handle(ev)
		case <-s.tickC:
			s.notify()
		case <-ownerC:
			// Re-check the live state; retained messages may be stale.
			if s.linked && !s.guard.State().Is(s.active) {
				s.log.Info().Stringer("peer", s.active).Msg("owner reset, dropping link")
				if err := s.radio.Disconnect(s.active); err != nil {
					s.log.Warn().Err(err).Msg("disconnect failed")
				}
				// Stop notifying now; the disconnect event re-advertises.
				s.stopTicker()
				s.linked, s.active = false, types.PeerID{}
			}
		}
	}
}

func (s *Service) handle(ev Event) {
	switch ev.Kind {
	case EventConnect:
		s.onConnect(ev.Peer)
	case EventWrite:
		s.onWrite(ev)
	case EventDisconnect:
		s.onDisconnect(ev.Peer)
	default:
		s.log.Debug().Uint8("kind", uint8(ev.Kind)).Msg("unknown radio event")
	}
}

func (s *Service) onConnect(peer types.PeerID) {
	d := s.guard.Connect(peer)
	if !d.Allowed() {
		if err := s.radio.Disconnect(peer); err != nil {
			s.log.Warn().Err(err).Stringer("peer", peer).Msg("disconnect failed")
		}
		s.publishLink(types.LinkRejected, peer)
		// The owner's link stays the only one; advertising resumes when it ends.
		if !s.linked {
			s.advertise()
		}
		return
	}
	// A claim after an owner reset can arrive before the reset notification.
	// The previous link must not outlive its ownership.
	if s.linked && s.active != peer {
		s.log.Info().Stringer("peer", s.active).Stringer("owner", peer).Msg("link superseded, dropping")
		if err := s.radio.Disconnect(s.active); err != nil {
			s.log.Warn().Err(err).Stringer("peer", s.active).Msg("disconnect failed")
		}
	}
	s.active, s.linked = peer, true
	if err := s.radio.StopAdvertising(); err != nil {
		s.log.Debug().Err(err).Msg("stop advertising")
	}
	s.startTicker()
	s.publishLink(types.LinkConnected, peer)
	s.log.Info().Stringer("peer", peer).Stringer("decision", d).Msg("link up")
}

func (s *Service) onWrite(ev Event) {
	if ev.Field != gatt.FieldRX {
		s.log.Debug().Stringer("field", ev.Field).Msg("write to read-only field dropped")
		return
	}
	if !s.guard.AuthorizeWrite(ev.Peer) {
		s.log.Debug().Stringer("peer", ev.Peer).Msg("unauthorized write dropped")
		return
	}
	text := s.store.UpdateRxText(string(ev.Data))
	s.log.Debug().Str("text", text).Msg("rx")
	if s.conn != nil {
		s.conn.Publish(s.conn.NewMessage(TopicRx, text, false))
	}
}

func (s *Service) onDisconnect(peer types.PeerID) {
	if s.linked && peer == s.active {
		s.stopTicker()
		s.linked = false
		s.active = types.PeerID{}
		s.log.Info().Stringer("peer", peer).Msg("link down")
	}
	if !s.linked {
		s.advertise()
	}
}

func (s *Service) advertise() {
	if err := s.radio.StartAdvertising(); err != nil {
		s.log.Warn().Err(err).Msg("advertising restart failed")
		return
	}
	s.publishLink(types.LinkAdvertising, types.PeerID{})
}

// notify pushes every published field. The first failure skips the rest of
// the tick.
func (s *Service) notify() {
	snap := s.store.Snapshot()
	for _, f := range gatt.Published {
		v := gatt.Encode(s.buf[:0], f, snap.Reading)
		if err := s.radio.Notify(f, v); err != nil {
			s.notifyErrs++
			s.log.Debug().Err(err).Stringer("field", f).Uint32("count", s.notifyErrs).Msg("notify failed")
			return
		}
	}
}

func (s *Service) startTicker() {
	s.stopTicker()
	s.ticker = time.NewTicker(s.cfg.NotifyPeriod)
	s.tickC = s.ticker.C
}

func (s *Service) stopTicker() {
	if s.ticker != nil {
		s.ticker.Stop()
		s.ticker = nil
	}
	s.tickC = nil
}

func (s *Service) publishLink(st types.LinkState, peer types.PeerID) {
	if s.conn == nil {
		return
	}
	s.conn.Publish(s.conn.NewMessage(TopicLink, types.WirelessLink{State: st, Peer: peer, TS: timex.NowMs()}, true))
}
