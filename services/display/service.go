// Package display renders telemetry snapshots onto the e-paper panel.
package display

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"tinygo.org/x/tinyfont"
	"tinygo.org/x/tinyfont/proggy"

	"powermon-go/errcode"
	"powermon-go/services/store"
	"powermon-go/types"
)

type RefreshMode uint8

const (
	RefreshPartial RefreshMode = iota
	RefreshFull
)

func (m RefreshMode) String() string {
	if m == RefreshFull {
		return "full"
	}
	return "partial"
}

// Panel is the display driver boundary.
type Panel interface {
	Render(f *Frame, mode RefreshMode) error
}

const (
	DefaultWidth  = 122
	DefaultHeight = 250
)

type Config struct {
	Period    time.Duration // 0 => 1 s
	FullEvery int           // 0 => 30
	Width     int16         // 0 => DefaultWidth
	Height    int16         // 0 => DefaultHeight
	Font      tinyfont.Fonter
	LineStep  int16 // 0 => 22
}

type Service struct {
	panel Panel
	store *store.Store
	log   zerolog.Logger
	cfg   Config

	frame  *Frame
	layout Layout

	last      types.TelemetryRecord
	rendered  bool
	sinceFull int
	needFull  bool
	errs      uint32
}

func New(panel Panel, st *store.Store, log zerolog.Logger, cfg Config) (*Service, error) {
	if panel == nil || st == nil {
		return nil, errcode.Wrap(errcode.PanelFailed, "display.New", errors.New("nil panel or store"))
	}
	if cfg.Period <= 0 {
		cfg.Period = time.Second
	}
	if cfg.FullEvery <= 0 {
		cfg.FullEvery = 30
	}
	if cfg.Width <= 0 {
		cfg.Width = DefaultWidth
	}
	if cfg.Height <= 0 {
		cfg.Height = DefaultHeight
	}
	if cfg.Font == nil {
		cfg.Font = &proggy.TinySZ8pt7b
	}
	if cfg.LineStep <= 0 {
		cfg.LineStep = 22
	}
	return &Service{panel: panel, store: st, log: log, cfg: cfg, frame: NewFrame(cfg.Width, cfg.Height)}, nil
}

func (s *Service) Frame() *Frame { return s.frame }

// Run renders once per period until ctx ends. Panel errors are logged and
// the next render is forced to a full refresh.
func (s *Service) Run(ctx context.Context) error {
	tick := time.NewTicker(s.cfg.Period)
	defer tick.Stop()

	s.tick()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-tick.C:
			s.tick()
		}
	}
}

// tick reports whether the panel was driven.
func (s *Service) tick() bool {
	snap := s.store.Snapshot()
	if s.rendered && snap == s.last {
		return false
	}
	s.layout.Build(snap, ParseRx(snap.RxText))
	s.draw()

	mode := RefreshPartial
	if !s.rendered || s.needFull || s.sinceFull >= s.cfg.FullEvery {
		mode = RefreshFull
	}
	if err := s.panel.Render(s.frame, mode); err != nil {
		s.errs++
		s.needFull = true
		s.log.Warn().Err(err).Stringer("mode", mode).Uint32("count", s.errs).Msg("panel render failed")
		return true
	}
	s.last, s.rendered, s.needFull = snap, true, false
	if mode == RefreshFull {
		s.sinceFull = 0
	} else {
		s.sinceFull++
	}
	return true
}

func (s *Service) draw() {
	s.frame.Clear()
	y := s.cfg.LineStep
	for i := 0; i < NumLines; i++ {
		tinyfont.WriteLine(s.frame, s.cfg.Font, 2, y, s.layout.Line(i), Black)
		y += s.cfg.LineStep
	}
}
