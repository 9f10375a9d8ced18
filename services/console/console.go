// Package console is a line-oriented admin console on a UART. It is the
// administrative path for resetting the owner.
package console

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"powermon-go/bus"
	"powermon-go/errcode"
	"powermon-go/services/access"
	"powermon-go/services/store"
	"powermon-go/types"
	"powermon-go/x/conv"
)

const (
	MaxLine        = 128
	requestTimeout = 500 * time.Millisecond
	prompt         = "> "
)

// Port is the console byte stream.
type Port interface {
	Write(p []byte) (int, error)
	Readable() <-chan struct{}
	RecvSomeContext(ctx context.Context, p []byte) (int, error)
}

type Info struct {
	Version string
	Device  string
}

type Console struct {
	port  Port
	conn  *bus.Connection
	store *store.Store
	log   zerolog.Logger
	info  Info

	line []byte
	num  [20]byte
}

func New(port Port, conn *bus.Connection, st *store.Store, log zerolog.Logger, info Info) *Console {
	return &Console{port: port, conn: conn, store: st, log: log, info: info, line: make([]byte, 0, MaxLine)}
}

// Run reads lines until ctx ends. CR is ignored, LF ends a line and bytes
// beyond MaxLine are dropped.
func (c *Console) Run(ctx context.Context) error {
	buf := make([]byte, 64)
	c.write(prompt)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-c.port.Readable():
			rctx, cancel := context.WithTimeout(ctx, 250*time.Millisecond)
			n, err := c.port.RecvSomeContext(rctx, buf)
			cancel()
			if err != nil && ctx.Err() == nil && !errors.Is(err, context.DeadlineExceeded) {
				c.log.Debug().Err(err).Int("n", n).Msg("console read failed")
			}
			for i := 0; i < n; i++ {
				switch b := buf[i]; b {
				case '\n':
					out := c.Exec(ctx, string(c.line))
					c.line = c.line[:0]
					c.write(out)
					c.write(prompt)
				case '\r':
				default:
					if len(c.line) < MaxLine {
						c.line = append(c.line, b)
					}
				}
			}
		}
	}
}

// Exec runs one command line and returns the reply text.
func (c *Console) Exec(ctx context.Context, line string) string {
	f := strings.Fields(line)
	if len(f) == 0 {
		return ""
	}
	switch f[0] {
	case "help":
		return "commands: help, owner, owner reset, reading, version\r\n"
	case "version":
		return c.info.Device + " " + c.info.Version + "\r\n"
	case "reading":
		return c.reading()
	case "owner":
		if len(f) == 1 {
			return c.owner(ctx, access.TopicStatus)
		}
		if len(f) == 2 && f[1] == "reset" {
			return c.owner(ctx, access.TopicReset)
		}
	}
	return "error: " + string(errcode.Unsupported) + "\r\n"
}

func (c *Console) owner(ctx context.Context, topic bus.Topic) string {
	rctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()
	reply, err := c.conn.RequestWait(rctx, c.conn.NewMessage(topic, nil, false))
	if err != nil {
		return "error: " + string(errcode.Of(err)) + "\r\n"
	}
	switch p := reply.Payload.(type) {
	case types.OwnerState:
		return "owner: " + p.String() + "\r\n"
	case types.OwnerReset:
		c.log.Info().Stringer("previous", p.Previous).Msg("owner reset from console")
		return "owner reset (was " + p.Previous.String() + ")\r\n"
	case types.ErrorReply:
		return "error: " + p.Error + "\r\n"
	}
	return "error: " + string(errcode.InvalidPayload) + "\r\n"
}

func (c *Console) reading() string {
	snap := c.store.Snapshot()
	var b strings.Builder
	b.WriteString("V=")
	b.Write(conv.Fixed(c.num[:], int64(snap.VoltageMilliV), 3))
	b.WriteString("V I=")
	b.Write(conv.Itoa(c.num[:], int64(snap.CurrentMilliA)))
	b.WriteString("mA P=")
	b.Write(conv.Fixed(c.num[:], int64(snap.PowerDeciW), 1))
	b.WriteString("W T=")
	b.Write(conv.Fixed(c.num[:], int64(snap.TempCentiC), 2))
	b.WriteString("C BAT=")
	b.Write(conv.Utoa(c.num[:], uint64(snap.BatteryPct)))
	b.WriteString("% RX=")
	b.WriteString(snap.RxText)
	b.WriteString("\r\n")
	return b.String()
}

func (c *Console) write(s string) {
	if s == "" {
		return
	}
	if _, err := c.port.Write([]byte(s)); err != nil {
		c.log.Debug().Err(err).Msg("console write failed")
	}
}
