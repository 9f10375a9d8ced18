package access

import (
	"context"

	"github.com/rs/zerolog"

	"powermon-go/bus"
	"powermon-go/errcode"
	"powermon-go/types"
)

var (
	TopicControl = bus.T("access", "control", "+")
	TopicStatus  = bus.T("access", "control", "status")
	TopicReset   = bus.T("access", "control", "reset")
)

// Service answers owner control verbs on the bus.
type Service struct {
	guard *Guard
	log   zerolog.Logger
}

func NewService(g *Guard, log zerolog.Logger) *Service {
	return &Service{guard: g, log: log}
}

// Run serves requests until ctx ends.
func (s *Service) Run(ctx context.Context, conn *bus.Connection) error {
	sub := conn.Subscribe(TopicControl)
	defer conn.Unsubscribe(sub)

	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-sub.Channel():
			if !ok {
				return nil
			}
			s.handle(conn, msg)
		}
	}
}

func (s *Service) handle(conn *bus.Connection, msg *bus.Message) {
	verb, _ := msg.Topic.At(msg.Topic.Len() - 1).(string)
	switch verb {
	case "status":
		conn.Reply(msg, s.guard.State(), false)
	case "reset":
		prev := s.guard.Reset()
		conn.Reply(msg, types.OwnerReset{OK: true, Previous: prev}, false)
	default:
		s.log.Debug().Str("verb", verb).Msg("unknown control verb")
		conn.Reply(msg, types.ErrorReply{OK: false, Error: string(errcode.Unsupported)}, false)
	}
}
