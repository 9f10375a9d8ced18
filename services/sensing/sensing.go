// Package sensing runs the 1 Hz acquisition loop that feeds the telemetry
// store.
package sensing

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"powermon-go/bus"
	"powermon-go/errcode"
	"powermon-go/services/store"
	"powermon-go/types"
	"powermon-go/x/mathx"
	"powermon-go/x/timex"
)

var (
	TopicStatus  = bus.T("sensor", "status")
	TopicReading = bus.T("sensor", "reading")
)

// Sensor is the register-driver boundary. One call per tick.
type Sensor interface {
	Read(ctx context.Context) (types.RawReading, error)
}

// SensorFunc adapts a function to Sensor.
type SensorFunc func(ctx context.Context) (types.RawReading, error)

func (f SensorFunc) Read(ctx context.Context) (types.RawReading, error) { return f(ctx) }

type Config struct {
	Period      time.Duration // 0 => 1 s
	ReadTimeout time.Duration // 0 => Period
	VMinMilliV  uint32
	VMaxMilliV  uint32
}

type Service struct {
	sensor Sensor
	store  *store.Store
	conn   *bus.Connection
	log    zerolog.Logger
	cfg    Config

	link     types.Link
	failures int
}

func New(sensor Sensor, st *store.Store, conn *bus.Connection, log zerolog.Logger, cfg Config) (*Service, error) {
	if sensor == nil {
		return nil, errcode.Wrap(errcode.SensorUnavailable, "sensing.New", errors.New("nil sensor"))
	}
	if st == nil {
		return nil, errcode.Wrap(errcode.InvalidParams, "sensing.New", errors.New("nil store"))
	}
	if cfg.Period <= 0 {
		cfg.Period = time.Second
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = cfg.Period
	}
	return &Service{sensor: sensor, store: st, conn: conn, log: log, cfg: cfg}, nil
}

// Run acquires once per period until ctx ends. Boundaries are measured from
// the start of the previous acquisition; overruns skip missed boundaries.
func (s *Service) Run(ctx context.Context) error {
	s.log.Info().Dur("period", s.cfg.Period).Msg("sensing started")
	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info().Msg("sensing stopping")
			return nil
		case <-timer.C:
		}
		start := time.Now()
		s.acquire(ctx)
		next := timex.NextBoundary(start, time.Now(), s.cfg.Period)
		timex.ResetTimer(timer, time.Until(next))
	}
}

// acquire performs exactly one read. On failure the store keeps its previous
// values.
func (s *Service) acquire(ctx context.Context) bool {
	rctx, cancel := context.WithTimeout(ctx, s.cfg.ReadTimeout)
	raw, err := s.sensor.Read(rctx)
	cancel()
	if err != nil {
		s.failures++
		s.log.Warn().Err(err).Int("consecutive", s.failures).Msg("sensor read failed")
		s.publishStatus(types.LinkDegraded, string(errcode.Of(err)))
		return false
	}
	r := Convert(raw, s.cfg.VMinMilliV, s.cfg.VMaxMilliV)
	s.store.UpdateSensor(r)
	if s.failures > 0 {
		s.log.Info().Int("after", s.failures).Msg("sensor recovered")
	}
	s.failures = 0
	s.publishStatus(types.LinkUp, "")
	if s.conn != nil {
		s.conn.Publish(s.conn.NewMessage(TopicReading, r, true))
	}
	return true
}

func (s *Service) publishStatus(l types.Link, code string) {
	if s.conn == nil || s.link == l {
		return
	}
	s.link = l
	s.conn.Publish(s.conn.NewMessage(TopicStatus, types.CapabilityStatus{Link: l, TS: timex.NowMs(), Error: code}, true))
}

// Convert saturates a raw reading into store units and derives the battery
// percentage from the pack voltage window.
func Convert(raw types.RawReading, vminMilliV, vmaxMilliV uint32) types.Reading {
	return types.Reading{
		VoltageMilliV: uint16(mathx.Clamp(raw.BusMilliV, 0, 0xFFFF)),
		CurrentMilliA: int16(mathx.Clamp(raw.CurrentMilliA, -32768, 32767)),
		PowerDeciW:    uint16(mathx.Clamp((int64(raw.PowerMilliW)+50)/100, 0, 0xFFFF)),
		TempCentiC:    int16(mathx.Clamp(raw.DieTempMilliC/10, -32768, 32767)),
		BatteryPct:    BatteryPct(raw.BusMilliV, vminMilliV, vmaxMilliV),
	}
}

// BatteryPct maps mv linearly onto [vmin, vmax] => [0, 100].
func BatteryPct(mv int32, vminMilliV, vmaxMilliV uint32) uint8 {
	return mathx.Percent(int64(mv), int64(vminMilliV), int64(vmaxMilliV))
}
