package heartbeat

import (
	"context"
	"runtime"
	"time"

	"github.com/rs/zerolog"

	"powermon-go/bus"
	"powermon-go/services/access"
	"powermon-go/types"
)

var (
	topicConfigHeartbeat = bus.Topic{"config", "heartbeat"}
	TopicHeartbeat       = bus.Topic{"system", "heartbeat"}
)

const defaultInterval = 10 * time.Second

type Service struct {
	log     zerolog.Logger
	started time.Time
	owner   types.OwnerState
}

func New(log zerolog.Logger) *Service {
	return &Service{log: log, started: time.Now()}
}

// beat logs and publishes one heartbeat.
func (s *Service) beat(conn *bus.Connection) types.Heartbeat {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	hb := types.Heartbeat{
		UptimeS:   int64(time.Since(s.started) / time.Second),
		HeapAlloc: ms.HeapAlloc,
		HeapSys:   ms.HeapSys,
		Mallocs:   ms.Mallocs,
		Owner:     s.owner,
	}
	s.log.Info().
		Int64("uptime_s", hb.UptimeS).
		Uint64("heap_alloc", hb.HeapAlloc).
		Uint64("heap_sys", hb.HeapSys).
		Stringer("owner", hb.Owner).
		Msg("heartbeat")
	conn.Publish(conn.NewMessage(TopicHeartbeat, hb, false))
	return hb
}

// intervalFrom extracts {"interval": seconds} from a config payload.
func intervalFrom(p any) (time.Duration, bool) {
	switch v := p.(type) {
	case map[string]any:
		if f, ok := v["interval"].(float64); ok && f > 0 {
			return time.Duration(f * float64(time.Second)), true
		}
	case types.HeartbeatConfig:
		if v.Interval > 0 {
			return time.Duration(v.Interval * float64(time.Second)), true
		}
	}
	return 0, false
}

// Run loops until ctx is cancelled, responding to ticks, config changes and
// owner updates.
func (s *Service) Run(ctx context.Context, conn *bus.Connection) error {
	cfgSub := conn.Subscribe(topicConfigHeartbeat)
	defer conn.Unsubscribe(cfgSub)
	ownerSub := conn.Subscribe(access.TopicOwner)
	defer conn.Unsubscribe(ownerSub)

	tick := time.NewTicker(defaultInterval)
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info().Msg("heartbeat service stopping")
			return nil
		case <-tick.C:
			s.beat(conn)
		case msg := <-cfgSub.Channel():
			if d, ok := intervalFrom(msg.Payload); ok {
				tick.Reset(d)
				s.log.Info().Dur("interval", d).Msg("heartbeat interval set")
			}
		case msg := <-ownerSub.Channel():
			if st, ok := msg.Payload.(types.OwnerState); ok {
				s.owner = st
			}
		}
	}
}
