package main

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"powermon-go/gatt"
	"powermon-go/host/central"
	"powermon-go/x/conv"
)

const helpText = `Commands:
  tx <message>         - send raw text to the sensor
  set pas|speed|range|dist <value>
                       - update CSV fields
  fields               - print current PAS/SPEED/RANGE/DIST values
  send                 - transmit CSV payload (pas,speed,range,dist)
  wait                 - block until the BLE link is ready
  status               - show link state and the latest reading
  owner [reset]        - query or reset the owner (needs -admin-port)
  help                 - show this help text
  quit                 - exit the program`

// Link is the BLE side of the terminal.
type Link interface {
	WriteRX(text string) error
	Connected() bool
	WaitConnected(ctx context.Context) error
	Address() string
}

// Admin is the serial console side of the terminal.
type Admin interface {
	Owner() (string, error)
	ResetOwner() (string, error)
}

type fields struct {
	pas, speed, rng, dist string
}

// csv renders pas,speed,range,dist. Numeric fields that do not parse are
// sent as 0.
func (f fields) csv() string {
	pas := strings.TrimSpace(f.pas)
	if pas == "" {
		pas = "0"
	}
	return strings.Join([]string{pas, sanitizeFloat(f.speed), sanitizeFloat(f.rng), sanitizeFloat(f.dist)}, ",")
}

// sanitizeFloat normalises a decimal so whole numbers keep one fractional
// digit ("12" => "12.0").
func sanitizeFloat(s string) string {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return "0"
	}
	out := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.ContainsAny(out, ".eE") {
		out += ".0"
	}
	return out
}

type shell struct {
	out     io.Writer
	link    Link
	admin   Admin // nil when no admin port is configured
	tracker *central.Tracker
	f       fields
	now     func() time.Time
}

func newShell(out io.Writer, link Link, admin Admin, tr *central.Tracker) *shell {
	return &shell{
		out:     out,
		link:    link,
		admin:   admin,
		tracker: tr,
		f:       fields{pas: "0", speed: "0", rng: "0", dist: "0"},
		now:     time.Now,
	}
}

func (s *shell) printf(format string, a ...any) { fmt.Fprintf(s.out, format, a...) }

func (s *shell) status(msg string) { s.printf("[STATUS] %s\n", msg) }

// exec runs one input line and reports whether the terminal should exit.
func (s *shell) exec(ctx context.Context, line string) bool {
	line = strings.TrimSpace(line)
	if line == "" {
		return false
	}
	cmd, rest, _ := strings.Cut(line, " ")
	rest = strings.TrimSpace(rest)

	switch cmd {
	case "quit", "exit":
		s.printf("Exiting...\n")
		return true
	case "help":
		s.printf("%s\n", helpText)
	case "wait":
		s.printf("Waiting for BLE connection...\n")
		if err := s.link.WaitConnected(ctx); err != nil {
			s.status("Wait aborted: " + err.Error())
			return false
		}
		s.printf("Connected.\n")
	case "fields":
		s.printFields()
	case "send":
		s.send(s.f.csv())
	case "tx":
		if rest == "" {
			s.printf("Usage: tx <message>\n")
			return false
		}
		s.send(rest)
	case "set":
		s.set(rest)
	case "status":
		s.printStatus()
	case "owner":
		s.owner(rest)
	default:
		s.printf("Unknown command. Type 'help' to see available commands.\n")
	}
	return false
}

func (s *shell) set(args string) {
	name, value, ok := strings.Cut(args, " ")
	value = strings.TrimSpace(value)
	if !ok || value == "" {
		s.printf("Usage: set pas|speed|range|dist <value>\n")
		return
	}
	switch name {
	case "pas":
		s.f.pas = value
	case "speed":
		s.f.speed = value
	case "range":
		s.f.rng = value
	case "dist":
		s.f.dist = value
	default:
		s.printf("Unknown field. Use pas, speed, range, or dist.\n")
		return
	}
	s.printFields()
}

func (s *shell) printFields() {
	s.printf("PAS: %s\nSPD: %s\nRNG: %s\nDST: %s\n", s.f.pas, s.f.speed, s.f.rng, s.f.dist)
}

func (s *shell) send(payload string) {
	if !s.link.Connected() {
		s.printf("Not connected yet. Use 'wait' or try again after connection completes.\n")
		return
	}
	if err := s.link.WriteRX(payload); err != nil {
		s.status("Send failed: " + err.Error())
		return
	}
	s.status("Sent: " + payload)
}

func (s *shell) printStatus() {
	if s.link.Connected() {
		s.printf("link: connected %s\n", s.link.Address())
	} else {
		s.printf("link: scanning\n")
	}
	r, seq, at := s.tracker.Latest()
	if seq == 0 {
		s.printf("reading: none yet\n")
		return
	}
	var num [24]byte
	var b strings.Builder
	b.WriteString("reading: V=")
	b.Write(conv.Fixed(num[:], int64(r.VoltageMilliV), 3))
	b.WriteString("V I=")
	b.Write(conv.Itoa(num[:], int64(r.CurrentMilliA)))
	b.WriteString("mA P=")
	b.Write(conv.Utoa(num[:], uint64(gatt.PowerWatts(r.PowerDeciW))))
	b.WriteString("W T=")
	b.Write(conv.Fixed(num[:], int64(r.TempCentiC), 2))
	b.WriteString("C BAT=")
	b.Write(conv.Utoa(num[:], uint64(r.BatteryPct)))
	b.WriteString("%")
	s.printf("%s (%s ago)\n", b.String(), s.now().Sub(at).Round(100*time.Millisecond))
}

func (s *shell) owner(args string) {
	if s.admin == nil {
		s.printf("No admin port configured. Start with -admin-port.\n")
		return
	}
	var reply string
	var err error
	switch args {
	case "":
		reply, err = s.admin.Owner()
	case "reset":
		reply, err = s.admin.ResetOwner()
	default:
		s.printf("Usage: owner [reset]\n")
		return
	}
	if err != nil {
		s.status("Admin failed: " + err.Error())
		return
	}
	s.printf("%s\n", reply)
}
